package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rankwatch/placerank/internal/rank"
)

// CampaignStore reads and updates tracked campaigns in Postgres. The
// crawler never creates or deletes campaigns; registration is a separate
// flow.
type CampaignStore struct {
	pool dbPool
}

// NewCampaignStore constructs a store from an existing pool.
func NewCampaignStore(pool dbPool) (*CampaignStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &CampaignStore{pool: pool}, nil
}

const campaignColumns = `id, company, place_id, keyword, current_rank, last_rank, last_checked_at, status`

// ListActive returns every active place campaign.
func (s *CampaignStore) ListActive(ctx context.Context) ([]rank.Campaign, error) {
	query := `
SELECT ` + campaignColumns + `
FROM campaigns
WHERE status = $1 AND category = 'place'
ORDER BY company, keyword`
	rows, err := s.pool.Query(ctx, query, rank.CampaignStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active campaigns: %w", err)
	}
	defer rows.Close()

	var campaigns []rank.Campaign
	for rows.Next() {
		c, err := scanCampaign(rows)
		if err != nil {
			return nil, fmt.Errorf("scan campaign row: %w", err)
		}
		campaigns = append(campaigns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate campaign rows: %w", err)
	}
	return campaigns, nil
}

// GetByID returns a single campaign, or rank.ErrNotFound.
func (s *CampaignStore) GetByID(ctx context.Context, id string) (rank.Campaign, error) {
	query := `
SELECT ` + campaignColumns + `
FROM campaigns
WHERE id = $1`
	c, err := scanCampaign(s.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return rank.Campaign{}, rank.ErrNotFound
		}
		return rank.Campaign{}, fmt.Errorf("get campaign: %w", err)
	}
	return c, nil
}

// UpdateRanks applies the ratchet update: the caller passes the rank held
// before this check as lastRank and the newly resolved value as
// currentRank.
func (s *CampaignStore) UpdateRanks(ctx context.Context, id string, lastRank, currentRank *int, checkedAt time.Time) error {
	query := `
UPDATE campaigns
SET last_rank = $2, current_rank = $3, last_checked_at = $4
WHERE id = $1`
	tag, err := s.pool.Exec(ctx, query, id, lastRank, currentRank, checkedAt)
	if err != nil {
		return fmt.Errorf("update campaign ranks: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return rank.ErrNotFound
	}
	return nil
}

// CountActive returns the number of active place campaigns.
func (s *CampaignStore) CountActive(ctx context.Context) (int, error) {
	query := `
SELECT COUNT(*)
FROM campaigns
WHERE status = $1 AND category = 'place'`
	var count int
	if err := s.pool.QueryRow(ctx, query, rank.CampaignStatusActive).Scan(&count); err != nil {
		return 0, fmt.Errorf("count active campaigns: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCampaign(row rowScanner) (rank.Campaign, error) {
	var c rank.Campaign
	err := row.Scan(
		&c.ID,
		&c.Company,
		&c.PlaceID,
		&c.Keyword,
		&c.CurrentRank,
		&c.LastRank,
		&c.LastCheckedAt,
		&c.Status,
	)
	return c, err
}
