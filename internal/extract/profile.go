package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/tidwall/gjson"

	"github.com/rankwatch/placerank/internal/rank"
)

// profileKeyPrefix marks place detail records inside the state graph.
const profileKeyPrefix = "PlaceDetailBase:"

// titleSeparators are the characters the upstream page uses between the
// business name and the service suffix in page titles.
const titleSeparators = ":-|"

// Profile extracts a place's descriptive metadata from a raw page body.
// Strategies are tried in order; the first one that yields a name wins.
// Returns rank.ErrNotFound when every strategy comes up empty.
func Profile(placeID string, body []byte) (rank.PlaceInfo, error) {
	if info, ok := profileFromStateGraph(placeID, body); ok {
		return info, nil
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return rank.PlaceInfo{}, fmt.Errorf("parse document: %w", err)
	}
	if info, ok := profileFromMetaTags(placeID, doc); ok {
		return info, nil
	}
	if info, ok := profileFromMarkup(placeID, doc); ok {
		return info, nil
	}
	return rank.PlaceInfo{}, fmt.Errorf("no extraction strategy yielded a name for place %s: %w", placeID, rank.ErrNotFound)
}

// profileFromStateGraph reads the first place detail record out of the
// embedded state blob.
func profileFromStateGraph(placeID string, body []byte) (rank.PlaceInfo, bool) {
	state, ok := stateGraph(body)
	if !ok {
		return rank.PlaceInfo{}, false
	}
	var record gjson.Result
	var found bool
	state.ForEach(func(key, value gjson.Result) bool {
		if strings.HasPrefix(key.String(), profileKeyPrefix) {
			record = value
			found = true
			return false
		}
		return true
	})
	if !found {
		return rank.PlaceInfo{}, false
	}
	name := record.Get("name").String()
	if name == "" {
		return rank.PlaceInfo{}, false
	}
	return rank.PlaceInfo{
		PlaceID:   placeID,
		Name:      name,
		Thumbnail: firstNonEmpty(record, "imageUrl", "thumbnailUrl"),
		Address:   firstNonEmpty(record, "roadAddress", "address"),
		Category:  record.Get("category").String(),
		Phone:     firstNonEmpty(record, "phone", "virtualPhone"),
	}, true
}

// profileFromMetaTags derives the place name from open-graph metadata.
// Page titles look like "Business Name : Service", so everything after the
// first separator is discarded.
func profileFromMetaTags(placeID string, doc *goquery.Document) (rank.PlaceInfo, bool) {
	title, _ := doc.Find(`meta[property="og:title"]`).Attr("content")
	image, _ := doc.Find(`meta[property="og:image"]`).Attr("content")

	name := title
	if i := strings.IndexAny(title, titleSeparators); i >= 0 {
		name = title[:i]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return rank.PlaceInfo{}, false
	}
	return rank.PlaceInfo{
		PlaceID:   placeID,
		Name:      name,
		Thumbnail: image,
	}, true
}

// profileFromMarkup falls back to legacy class names and the first heading.
func profileFromMarkup(placeID string, doc *goquery.Document) (rank.PlaceInfo, bool) {
	for _, selector := range []string{"span.GHAhO", "span.place_name", "h1"} {
		name := strings.TrimSpace(doc.Find(selector).First().Text())
		if name != "" {
			image, _ := doc.Find(`meta[property="og:image"]`).Attr("content")
			return rank.PlaceInfo{
				PlaceID:   placeID,
				Name:      name,
				Thumbnail: image,
			}, true
		}
	}
	return rank.PlaceInfo{}, false
}
