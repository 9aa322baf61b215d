// Package rank defines core types shared across subsystems.
package rank

import "time"

// CampaignStatus represents the lifecycle state of a tracked campaign.
type CampaignStatus string

// Campaign status values persisted in the campaign store.
const (
	CampaignStatusActive   CampaignStatus = "active"
	CampaignStatusInactive CampaignStatus = "inactive"
)

// Campaign is a tracked business listing plus the keyword it is ranked for.
// Campaigns are created by an external registration flow; the crawler only
// mutates the rank fields after each resolution.
type Campaign struct {
	ID            string         `json:"id"`
	Company       string         `json:"company"`
	PlaceID       string         `json:"place_id"`
	Keyword       string         `json:"keyword"`
	CurrentRank   *int           `json:"current_rank,omitempty"`
	LastRank      *int           `json:"last_rank,omitempty"`
	LastCheckedAt *time.Time     `json:"last_checked_at,omitempty"`
	Status        CampaignStatus `json:"status"`
}

// PlaceInfo is the profile metadata extracted for a single listing. It is
// transient: produced per extraction call and consumed immediately.
type PlaceInfo struct {
	PlaceID   string `json:"place_id"`
	Name      string `json:"name"`
	Thumbnail string `json:"thumbnail,omitempty"`
	Address   string `json:"address,omitempty"`
	Category  string `json:"category,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// Listing is one entry of a search result page. Position is the 1-based
// ordinal within the sequence the extractor produced, before ad filtering.
type Listing struct {
	ID       string
	Name     string
	Position int
	Ad       bool
}

// Check is one rank resolution attempt. Exactly one Check is produced per
// attempt, whether or not the target was found. Rank, when non-nil, is a
// 1-based index into the organic (non-ad) listing sequence evaluated for
// this check.
type Check struct {
	CampaignID   string    `json:"campaign_id,omitempty"`
	PlaceID      string    `json:"place_id"`
	Keyword      string    `json:"keyword"`
	Rank         *int      `json:"rank"`
	TotalResults int       `json:"total_results"`
	CheckedAt    time.Time `json:"checked_at"`
	ErrorText    string    `json:"error_text,omitempty"`
}

// ItemOutcome classifies a single campaign's result within a batch.
type ItemOutcome string

// Item outcome values recorded in batch summaries.
const (
	OutcomeSuccess   ItemOutcome = "success"
	OutcomeFailed    ItemOutcome = "failed"
	OutcomeException ItemOutcome = "exception"
)

// ItemResult is the per-campaign detail record of a batch run.
type ItemResult struct {
	CampaignID string      `json:"campaign_id"`
	Company    string      `json:"company"`
	Keyword    string      `json:"keyword"`
	Rank       *int        `json:"rank"`
	Outcome    ItemOutcome `json:"outcome"`
	ErrorText  string      `json:"error_text,omitempty"`
}

// BatchSummary aggregates the outcomes of one orchestrator run.
type BatchSummary struct {
	Total     int           `json:"total"`
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Details   []ItemResult  `json:"details"`
	Elapsed   time.Duration `json:"elapsed"`
}

// FetchRequest captures everything needed to fetch one upstream page.
type FetchRequest struct {
	URL     string
	Headers map[string]string
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Body       []byte
	Duration   time.Duration
}
