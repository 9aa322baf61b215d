package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rankwatch/placerank/internal/rank"
)

type stubCampaignStore struct {
	campaigns map[string]rank.Campaign
	active    int
	countErr  error
}

func (s *stubCampaignStore) ListActive(context.Context) ([]rank.Campaign, error) {
	out := make([]rank.Campaign, 0, len(s.campaigns))
	for _, c := range s.campaigns {
		out = append(out, c)
	}
	return out, nil
}

func (s *stubCampaignStore) GetByID(_ context.Context, id string) (rank.Campaign, error) {
	c, ok := s.campaigns[id]
	if !ok {
		return rank.Campaign{}, rank.ErrNotFound
	}
	return c, nil
}

func (s *stubCampaignStore) UpdateRanks(context.Context, string, *int, *int, time.Time) error {
	return nil
}

func (s *stubCampaignStore) CountActive(context.Context) (int, error) {
	return s.active, s.countErr
}

type stubHistoryStore struct {
	last *time.Time
}

func (s *stubHistoryStore) AppendCheck(context.Context, rank.Check) error { return nil }

func (s *stubHistoryStore) LastCheckedAt(context.Context) (*time.Time, error) {
	return s.last, nil
}

type stubRunner struct {
	summary rank.BatchSummary
	runErr  error
	result  rank.ItemResult
	ranFor  string
}

func (s *stubRunner) RunAll(context.Context) (rank.BatchSummary, error) {
	return s.summary, s.runErr
}

func (s *stubRunner) RunOne(_ context.Context, campaign rank.Campaign) rank.ItemResult {
	s.ranFor = campaign.ID
	return s.result
}

type stubInfoFetcher struct {
	info rank.PlaceInfo
	err  error
}

func (s *stubInfoFetcher) PlaceInfo(context.Context, string) (rank.PlaceInfo, error) {
	return s.info, s.err
}

type stubClock struct {
	now time.Time
}

func (c stubClock) Now() time.Time { return c.now }

func newTestServer(t *testing.T, campaigns *stubCampaignStore, history *stubHistoryStore, runner *stubRunner, info *stubInfoFetcher) *Server {
	t.Helper()
	if campaigns == nil {
		campaigns = &stubCampaignStore{}
	}
	if history == nil {
		history = &stubHistoryStore{}
	}
	if runner == nil {
		runner = &stubRunner{}
	}
	if info == nil {
		info = &stubInfoFetcher{}
	}
	nextRun := func() time.Time { return time.Date(2024, 6, 2, 14, 0, 0, 0, time.UTC) }
	return NewServer(campaigns, history, runner, info, nextRun, stubClock{now: time.Date(2024, 6, 1, 9, 30, 0, 0, time.UTC)}, nil)
}

func doJSON(t *testing.T, s *Server, method, path string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, bytes.NewReader(nil))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestRootReportsServiceAndNextCrawl(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil, nil, nil)
	rec, body := doJSON(t, s, http.MethodGet, "/")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", body["status"])
	require.Equal(t, "placerank-crawler", body["service"])
	require.Equal(t, "2024-06-01T09:30:00Z", body["time"])
	require.Equal(t, "2024-06-02T14:00:00Z", body["next_crawl"])
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil, nil, nil)
	rec, body := doJSON(t, s, http.MethodGet, "/healthz")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "healthy", body["status"])
}

func TestStatusReportsCampaignsAndCrawlTimes(t *testing.T) {
	t.Parallel()

	last := time.Date(2024, 6, 1, 14, 5, 0, 0, time.UTC)
	s := newTestServer(t,
		&stubCampaignStore{active: 12},
		&stubHistoryStore{last: &last},
		nil, nil)
	rec, body := doJSON(t, s, http.MethodGet, "/status")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(12), body["active_campaigns"])
	require.NotEmpty(t, body["last_crawl"])
	require.Equal(t, "2024-06-02T14:00:00Z", body["next_crawl"])
}

func TestStatusStoreFailure(t *testing.T) {
	t.Parallel()

	s := newTestServer(t,
		&stubCampaignStore{countErr: errors.New("db down")},
		nil, nil, nil)
	rec, body := doJSON(t, s, http.MethodGet, "/status")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, false, body["success"])
}

func TestGetPlaceInfo(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil, nil, &stubInfoFetcher{
		info: rank.PlaceInfo{PlaceID: "11111", Name: "Han River Cafe", Category: "cafe"},
	})
	rec, body := doJSON(t, s, http.MethodGet, "/v1/places/11111")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, body["success"])
	place, ok := body["place"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "Han River Cafe", place["name"])
}

func TestGetPlaceInfoNotFound(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, nil, nil, nil, &stubInfoFetcher{err: rank.ErrNotFound})
	rec, body := doJSON(t, s, http.MethodGet, "/v1/places/99999")

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, false, body["success"])
	require.Equal(t, "place information unavailable", body["error"])
}

func TestCrawlAll(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{summary: rank.BatchSummary{Total: 3, Succeeded: 2, Failed: 1}}
	s := newTestServer(t, nil, nil, runner, nil)
	rec, body := doJSON(t, s, http.MethodPost, "/v1/crawl/all")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, body["success"])
	result, ok := body["result"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, float64(3), result["total"])
	require.Equal(t, float64(2), result["succeeded"])
}

func TestCrawlAllFailure(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{runErr: errors.New("db down")}
	s := newTestServer(t, nil, nil, runner, nil)
	rec, body := doJSON(t, s, http.MethodPost, "/v1/crawl/all")

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, false, body["success"])
}

func TestCrawlCampaign(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{result: rank.ItemResult{CampaignID: "c1", Outcome: rank.OutcomeSuccess}}
	store := &stubCampaignStore{campaigns: map[string]rank.Campaign{
		"c1": {ID: "c1", Company: "Han River Cafe", PlaceID: "11111", Keyword: "cafe mapo"},
	}}
	s := newTestServer(t, store, nil, runner, nil)
	rec, body := doJSON(t, s, http.MethodPost, "/v1/crawl/campaigns/c1")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, true, body["success"])
	require.Equal(t, "c1", runner.ranFor)
}

func TestCrawlCampaignNotFound(t *testing.T) {
	t.Parallel()

	s := newTestServer(t, &stubCampaignStore{}, nil, nil, nil)
	rec, body := doJSON(t, s, http.MethodPost, "/v1/crawl/campaigns/ghost")

	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "campaign not found", body["error"])
}

func TestCrawlCampaignFailedOutcome(t *testing.T) {
	t.Parallel()

	runner := &stubRunner{result: rank.ItemResult{CampaignID: "c1", Outcome: rank.OutcomeFailed, ErrorText: "fetch timed out"}}
	store := &stubCampaignStore{campaigns: map[string]rank.Campaign{
		"c1": {ID: "c1", PlaceID: "11111", Keyword: "cafe mapo"},
	}}
	s := newTestServer(t, store, nil, runner, nil)
	rec, body := doJSON(t, s, http.MethodPost, "/v1/crawl/campaigns/c1")

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, false, body["success"])
}
