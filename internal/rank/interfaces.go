package rank

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by stores and extractors when the requested
// record does not exist.
var ErrNotFound = errors.New("not found")

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// CampaignStore persists tracked campaigns.
type CampaignStore interface {
	ListActive(ctx context.Context) ([]Campaign, error)
	GetByID(ctx context.Context, id string) (Campaign, error)
	UpdateRanks(ctx context.Context, id string, lastRank, currentRank *int, checkedAt time.Time) error
	CountActive(ctx context.Context) (int, error)
}

// HistoryStore appends rank check records. Writes are fire-and-continue
// from the caller's perspective: failures are logged, not propagated.
type HistoryStore interface {
	AppendCheck(ctx context.Context, check Check) error
	LastCheckedAt(ctx context.Context) (*time.Time, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}
