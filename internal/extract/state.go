// Package extract recovers structured place data from raw upstream pages.
//
// The upstream page format is neither versioned nor guaranteed, so each
// extraction runs an ordered cascade of independent strategies: the inlined
// client-state blob first, then page metadata, then raw markup. A strategy
// that fails (blob absent, malformed JSON, missing markup) never aborts the
// cascade; it only hands off to the next one.
package extract

import (
	"regexp"

	"github.com/tidwall/gjson"
)

// stateBlobRe locates the client-state snapshot the upstream app inlines
// into a script tag. Both the profile page (window.__APOLLO_STATE__ = ...)
// and the search page (__APOLLO_STATE__ = ...) carry it.
var stateBlobRe = regexp.MustCompile(`(?s)__APOLLO_STATE__\s*=\s*(\{.*?\});?\s*</script>`)

// stateGraph returns the embedded state blob as a parsed JSON document.
// The second return is false when the page carries no blob or the blob is
// not valid JSON; both are non-fatal to callers.
func stateGraph(body []byte) (gjson.Result, bool) {
	m := stateBlobRe.FindSubmatch(body)
	if m == nil {
		return gjson.Result{}, false
	}
	if !gjson.ValidBytes(m[1]) {
		return gjson.Result{}, false
	}
	return gjson.ParseBytes(m[1]), true
}

// firstNonEmpty returns the first field of record that renders non-empty.
func firstNonEmpty(record gjson.Result, fields ...string) string {
	for _, f := range fields {
		if v := record.Get(f).String(); v != "" {
			return v
		}
	}
	return ""
}
