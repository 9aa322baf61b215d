package extract

import (
	"regexp"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/rankwatch/placerank/internal/rank"
)

// Listing record key prefixes inside the search page's state graph.
var listingKeyPrefixes = []string{"PlaceSummary:", "Place:"}

// adFlagFields are the field names the upstream source has used to mark
// sponsored entries. Any truthy value excludes the entry from organic rank.
var adFlagFields = []string{"isAd", "isAdv", "ad"}

// placeIDPathRe matches identifier-bearing URL paths anywhere in the body.
var placeIDPathRe = regexp.MustCompile(`place/(\d+)`)

// Source names the strategy that produced a listing sequence.
type Source string

// Listing sources, in cascade order.
const (
	SourceStateGraph Source = "state_graph"
	SourceIDScan     Source = "id_scan"
	SourceNone       Source = "none"
)

// Listings extracts the ordered result sequence from a search page body.
// The embedded state graph is tried first; when it yields nothing (blob
// absent, malformed JSON, or no listing records) the whole body is scanned
// for identifier-bearing paths instead. Discovery order is presentation
// order. Entries flagged as ads keep their Ad flag set so callers can
// filter to the organic subsequence.
func Listings(body []byte) ([]rank.Listing, Source) {
	if listings := listingsFromStateGraph(body); len(listings) > 0 {
		return listings, SourceStateGraph
	}
	if listings := listingsFromIDScan(body); len(listings) > 0 {
		return listings, SourceIDScan
	}
	return nil, SourceNone
}

func listingsFromStateGraph(body []byte) []rank.Listing {
	state, ok := stateGraph(body)
	if !ok {
		return nil
	}
	var listings []rank.Listing
	state.ForEach(func(key, value gjson.Result) bool {
		if !hasListingPrefix(key.String()) {
			return true
		}
		id := firstNonEmpty(value, "id", "placeId")
		if id == "" {
			return true
		}
		listings = append(listings, rank.Listing{
			ID:       id,
			Name:     value.Get("name").String(),
			Position: len(listings) + 1,
			Ad:       isAdFlagged(value),
		})
		return true
	})
	return listings
}

// listingsFromIDScan treats every distinct identifier found in the raw body
// as one listing, in first-seen order. Names and ad flags are unknown here.
func listingsFromIDScan(body []byte) []rank.Listing {
	matches := placeIDPathRe.FindAllSubmatch(body, -1)
	if matches == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	var listings []rank.Listing
	for _, m := range matches {
		id := string(m[1])
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		listings = append(listings, rank.Listing{
			ID:       id,
			Position: len(listings) + 1,
		})
	}
	return listings
}

func hasListingPrefix(key string) bool {
	for _, prefix := range listingKeyPrefixes {
		if strings.HasPrefix(key, prefix) {
			return true
		}
	}
	return false
}

func isAdFlagged(record gjson.Result) bool {
	for _, field := range adFlagFields {
		if record.Get(field).Bool() {
			return true
		}
	}
	return false
}
