package query

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/apresai/mulmoprep/internal/script"
)

func TestParseSuggestedFetch(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"marker", "See more. [SUGGEST_FETCH: https://example.com/docs]", "https://example.com/docs", true},
		{"no space", "[SUGGEST_FETCH:https://a.test]", "https://a.test", true},
		{"trailing space trimmed", "[SUGGEST_FETCH: https://a.test  ]", "https://a.test", true},
		{"first wins", "[SUGGEST_FETCH: https://a.test] [SUGGEST_FETCH: https://b.test]", "https://a.test", true},
		{"none", "plain answer", "", false},
		{"unterminated", "[SUGGEST_FETCH: https://a.test", "", false},
		{"empty", "[SUGGEST_FETCH: ]", "", false},
		{"too long", "[SUGGEST_FETCH: " + strings.Repeat("a", 2001) + "]", "", false},
		{"at cap", "[SUGGEST_FETCH: " + strings.Repeat("a", 2000) + "]", strings.Repeat("a", 2000), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseSuggestedFetch(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRemoveSuggestFetchMarkers(t *testing.T) {
	assert.Equal(t, "Answer here.", RemoveSuggestFetchMarkers("Answer here. [SUGGEST_FETCH: https://a.test]"))
	assert.Equal(t, "A  B", RemoveSuggestFetchMarkers("[SUGGEST_FETCH: x] A [SUGGEST_FETCH: y] B "))
	assert.Equal(t, "untouched", RemoveSuggestFetchMarkers("  untouched  "))

	long := "[SUGGEST_FETCH: " + strings.Repeat("a", 2001) + "]"
	assert.Equal(t, long, RemoveSuggestFetchMarkers(long))
}

func TestParseSuggestedFetch_AdversarialInputIsFast(t *testing.T) {
	in := strings.Repeat("[SUGGEST_FETCH: "+strings.Repeat("a", 500), 200)

	start := time.Now()
	_, ok := ParseSuggestedFetch(in)
	_ = RemoveSuggestFetchMarkers(in)

	assert.False(t, ok)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestFindMatchingReference(t *testing.T) {
	refs := []script.Reference{
		{URL: "https://example.com/graphai", Title: "GraphAI Documentation", Description: "Official guide"},
		{URL: "https://github.com/receptron/graphai", Title: "GraphAI repository", Type: script.ReferenceCode},
		{URL: "https://example.com/agents", Title: "Agent patterns"},
	}

	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"two words", "graphai documentation", "https://example.com/graphai"},
		{"first match wins", "graphai github", "https://github.com/receptron/graphai"},
		{"single word", "patterns", "https://example.com/agents"},
		{"single word first match", "graphai", "https://example.com/graphai"},
		{"url text counts", "receptron repository", "https://github.com/receptron/graphai"},
		{"case insensitive", "GRAPHAI Official", "https://example.com/graphai"},
		{"two words need two hits", "graphai cooking", ""},
		{"short words ignored", "a an of", ""},
		{"no hits", "kubernetes", ""},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindMatchingReference(refs, tt.query)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			if assert.NotNil(t, got) {
				assert.Equal(t, tt.want, got.URL)
			}
		})
	}

	assert.Nil(t, FindMatchingReference(nil, "graphai"))
}
