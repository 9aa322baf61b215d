// Package resolver determines a place's organic search rank for a keyword.
package resolver

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/rankwatch/placerank/internal/extract"
	"github.com/rankwatch/placerank/internal/rank"
)

// Fixed upstream endpoints for the KR region. The mobile profile page and
// the desktop search page embed the same style of client-state blob but
// expect different browser signatures.
const (
	defaultSearchBaseURL = "https://map.naver.com/p/search"
	defaultPlaceBaseURL  = "https://m.place.naver.com/place"

	searchUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	placeUserAgent  = "Mozilla/5.0 (iPhone; CPU iPhone OS 16_0 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/16.0 Mobile/15E148 Safari/604.1"

	acceptHTML     = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptLanguage = "ko-KR,ko;q=0.9"
)

// Config overrides the upstream endpoints, mainly for tests.
type Config struct {
	SearchBaseURL string
	PlaceBaseURL  string
}

// Resolver issues one fetch per resolution and reports a rank.Check. It
// never raises: transport and extraction failures are carried in the
// check's error text with a null rank.
type Resolver struct {
	fetcher rank.Fetcher
	clock   rank.Clock
	cfg     Config
	logger  *zap.Logger
}

// New constructs a Resolver.
func New(fetcher rank.Fetcher, clock rank.Clock, cfg Config, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SearchBaseURL == "" {
		cfg.SearchBaseURL = defaultSearchBaseURL
	}
	if cfg.PlaceBaseURL == "" {
		cfg.PlaceBaseURL = defaultPlaceBaseURL
	}
	return &Resolver{
		fetcher: fetcher,
		clock:   clock,
		cfg:     cfg,
		logger:  logger,
	}
}

// NormalizeID canonicalizes an identifier for comparison. Upstream records
// carry ids as either JSON numbers or strings; both sides of every
// comparison must pass through here first.
func NormalizeID(id string) string {
	return strings.TrimSpace(id)
}

// ResolveRank fetches the search page for keyword and locates targetID's
// 1-based position within the organic listing sequence. The returned check
// always carries a timestamp; on total failure the rank is null, the total
// is zero and the error text is populated.
func (r *Resolver) ResolveRank(ctx context.Context, keyword, targetID string) rank.Check {
	check := rank.Check{
		PlaceID:   targetID,
		Keyword:   keyword,
		CheckedAt: r.clock.Now(),
	}

	resp, err := r.fetcher.Fetch(ctx, rank.FetchRequest{
		URL: r.cfg.SearchBaseURL + "/" + url.PathEscape(keyword),
		Headers: map[string]string{
			"User-Agent":      searchUserAgent,
			"Accept":          acceptHTML,
			"Accept-Language": acceptLanguage,
		},
	})
	if err != nil {
		check.ErrorText = err.Error()
		r.logger.Error("rank search fetch failed",
			zap.String("keyword", keyword),
			zap.String("place_id", targetID),
			zap.Error(err),
		)
		return check
	}

	listings, source := extract.Listings(resp.Body)
	organic := organicOnly(listings)
	check.TotalResults = len(organic)

	target := NormalizeID(targetID)
	for i, listing := range organic {
		if NormalizeID(listing.ID) == target {
			position := i + 1
			check.Rank = &position
			r.logger.Info("rank resolved",
				zap.String("keyword", keyword),
				zap.String("place_id", targetID),
				zap.Int("rank", position),
				zap.String("source", string(source)),
			)
			return check
		}
	}

	r.logger.Info("place not found in results",
		zap.String("keyword", keyword),
		zap.String("place_id", targetID),
		zap.Int("total_results", check.TotalResults),
		zap.String("source", string(source)),
	)
	if len(organic) > 0 {
		r.logger.Debug("top of listing", zap.Strings("ids", topIDs(organic, 5)))
	}
	return check
}

// PlaceInfo fetches the profile page for placeID and runs the profile
// extraction cascade on it.
func (r *Resolver) PlaceInfo(ctx context.Context, placeID string) (rank.PlaceInfo, error) {
	resp, err := r.fetcher.Fetch(ctx, rank.FetchRequest{
		URL: r.cfg.PlaceBaseURL + "/" + url.PathEscape(placeID) + "/home",
		Headers: map[string]string{
			"User-Agent":      placeUserAgent,
			"Accept":          acceptHTML,
			"Accept-Language": acceptLanguage,
		},
	})
	if err != nil {
		return rank.PlaceInfo{}, fmt.Errorf("fetch place page: %w", err)
	}
	info, err := extract.Profile(placeID, resp.Body)
	if err != nil {
		return rank.PlaceInfo{}, err
	}
	return info, nil
}

// organicOnly filters the listing sequence down to non-ad entries,
// preserving order.
func organicOnly(listings []rank.Listing) []rank.Listing {
	organic := make([]rank.Listing, 0, len(listings))
	for _, l := range listings {
		if !l.Ad {
			organic = append(organic, l)
		}
	}
	return organic
}

func topIDs(listings []rank.Listing, n int) []string {
	if n > len(listings) {
		n = len(listings)
	}
	ids := make([]string, 0, n)
	for _, l := range listings[:n] {
		ids = append(ids, l.ID)
	}
	return ids
}
