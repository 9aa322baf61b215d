package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/rankwatch/placerank/internal/rank"
)

// HistoryStore appends rank check records to the append-only history
// table.
type HistoryStore struct {
	pool dbPool
}

// NewHistoryStore constructs a store from an existing pool.
func NewHistoryStore(pool dbPool) (*HistoryStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	return &HistoryStore{pool: pool}, nil
}

// AppendCheck inserts one rank check. One row is written per resolution
// attempt regardless of success.
func (s *HistoryStore) AppendCheck(ctx context.Context, check rank.Check) error {
	if check.CampaignID == "" {
		return fmt.Errorf("campaign id is required")
	}
	query := `
INSERT INTO campaign_rank_history (
	campaign_id,
	place_id,
	keyword,
	rank,
	total_results,
	error_text,
	checked_at
) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	args := []any{
		check.CampaignID,
		check.PlaceID,
		check.Keyword,
		check.Rank,
		check.TotalResults,
		check.ErrorText,
		check.CheckedAt,
	}
	if _, err := s.pool.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert rank check: %w", err)
	}
	return nil
}

// LastCheckedAt returns the most recent check timestamp across all
// campaigns, or nil when no checks have been recorded yet.
func (s *HistoryStore) LastCheckedAt(ctx context.Context) (*time.Time, error) {
	query := `
SELECT checked_at
FROM campaign_rank_history
ORDER BY checked_at DESC
LIMIT 1`
	var at time.Time
	if err := s.pool.QueryRow(ctx, query).Scan(&at); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("query last check: %w", err)
	}
	return &at, nil
}
