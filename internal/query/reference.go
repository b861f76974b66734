package query

import (
	"strings"

	"github.com/apresai/mulmoprep/internal/script"
)

// FindMatchingReference returns the first reference whose title,
// description or URL contains at least two of the query's words (one when
// the query has a single word). Words of two characters or fewer are
// ignored. Order matters: this is first-match, not best-match.
func FindMatchingReference(refs []script.Reference, query string) *script.Reference {
	if len(refs) == 0 {
		return nil
	}

	var words []string
	for _, w := range strings.Fields(strings.ToLower(query)) {
		if len([]rune(w)) > 2 {
			words = append(words, w)
		}
	}
	if len(words) == 0 {
		return nil
	}

	for i := range refs {
		blob := searchBlob(refs[i])
		score := 0
		for _, w := range words {
			if strings.Contains(blob, w) {
				score++
			}
		}
		if score >= 2 || (len(words) == 1 && score == 1) {
			ref := refs[i]
			return &ref
		}
	}
	return nil
}

func searchBlob(ref script.Reference) string {
	var fields []string
	for _, f := range []string{ref.Title, ref.Description, ref.URL} {
		if f != "" {
			fields = append(fields, f)
		}
	}
	return strings.ToLower(strings.Join(fields, " "))
}
