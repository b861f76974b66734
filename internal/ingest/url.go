package ingest

import (
	"fmt"
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
)

// Extractor turns an HTML document into a title and plain text.
type Extractor interface {
	Extract(html string, pageURL *url.URL) (title, text string)
}

// NewExtractor returns the extractor registered under name. "" selects the
// scan extractor.
func NewExtractor(name string) (Extractor, error) {
	switch strings.ToLower(name) {
	case "", "scan":
		return ScanExtractor{}, nil
	case "readability":
		return ReadabilityExtractor{Fallback: ScanExtractor{}}, nil
	default:
		return nil, fmt.Errorf("unknown extractor %q (valid: scan, readability)", name)
	}
}

// ScanExtractor keeps all visible text using bounded delimiter scanning.
type ScanExtractor struct{}

func (ScanExtractor) Extract(html string, _ *url.URL) (string, string) {
	title, _ := ExtractTitle(html)
	return title, StripHTML(html)
}

// ReadabilityExtractor keeps only the main article body. Pages readability
// cannot parse are handed to Fallback.
type ReadabilityExtractor struct {
	Fallback Extractor
}

func (r ReadabilityExtractor) Extract(html string, pageURL *url.URL) (string, string) {
	article, err := readability.FromReader(strings.NewReader(html), pageURL)
	text := strings.TrimSpace(article.TextContent)
	if err != nil || text == "" {
		if r.Fallback == nil {
			return "", ""
		}
		return r.Fallback.Extract(html, pageURL)
	}

	title := strings.TrimSpace(article.Title)
	if title == "" {
		title, _ = ExtractTitle(html)
	}
	return title, normalizeWhitespace(text)
}
