// Package ingest fetches reference material over HTTP and turns it into
// plain text suitable for a prompt.
package ingest

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// DefaultMaxLength is the default character limit for fetched content.
	DefaultMaxLength = 8000

	// maxBodySize caps response bodies (5 MB).
	maxBodySize = 5 * 1024 * 1024
)

// FetchedContent is the outcome of one fetch. Failures are reported in
// Error, never as a Go error.
type FetchedContent struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Content     string `json:"content"`
	Error       string `json:"error,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Truncated   bool   `json:"truncated,omitempty"`
}

// OK reports whether the fetch produced content.
func (c FetchedContent) OK() bool {
	return c.Error == ""
}

func failed(url, contentType, format string, args ...any) FetchedContent {
	return FetchedContent{URL: url, ContentType: contentType, Error: fmt.Sprintf(format, args...)}
}

// truncate cuts s to max characters (runes), reporting whether it did.
func truncate(s string, max int) (string, bool) {
	if utf8.RuneCountInString(s) <= max {
		return s, false
	}
	count := 0
	for i := range s {
		if count == max {
			return s[:i], true
		}
		count++
	}
	return s, false
}

func titleFromText(text string, maxLen int) string {
	line := text
	if idx := strings.IndexByte(text, '\n'); idx > 0 {
		line = text[:idx]
	}
	line = strings.TrimSpace(line)
	if cut, ok := truncate(line, maxLen); ok {
		line = cut + "..."
	}
	return line
}
