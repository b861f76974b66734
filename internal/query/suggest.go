package query

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// maxSuggestionLen caps the captured URL of a SUGGEST_FETCH marker.
const maxSuggestionLen = 2000

// Go's RE2 engine matches in linear time but rejects repeat counts above
// 1000, so the length cap is applied to each match instead of inside the
// pattern.
var suggestFetchPattern = regexp.MustCompile(`\[SUGGEST_FETCH:\s*([^\]]+)\]`)

// ParseSuggestedFetch returns the URL of the first SUGGEST_FETCH marker in
// text.
func ParseSuggestedFetch(text string) (string, bool) {
	for _, m := range suggestFetchPattern.FindAllStringSubmatchIndex(text, -1) {
		capture := text[m[2]:m[3]]
		if utf8.RuneCountInString(capture) > maxSuggestionLen {
			continue
		}
		if url := strings.TrimSpace(capture); url != "" {
			return url, true
		}
	}
	return "", false
}

// RemoveSuggestFetchMarkers deletes every SUGGEST_FETCH marker and trims the
// result.
func RemoveSuggestFetchMarkers(text string) string {
	out := suggestFetchPattern.ReplaceAllStringFunc(text, func(marker string) string {
		m := suggestFetchPattern.FindStringSubmatch(marker)
		if utf8.RuneCountInString(m[1]) > maxSuggestionLen {
			return marker
		}
		return ""
	})
	return strings.TrimSpace(out)
}
