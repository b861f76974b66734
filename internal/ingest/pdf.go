package ingest

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF returns the plain text of a PDF document and a title taken
// from its first line.
func extractPDF(data []byte) (title, text string, err error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", "", fmt.Errorf("could not read PDF: %w", err)
	}

	var sb strings.Builder
	numPages := r.NumPage()

	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue // Skip pages that fail to extract
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}

	text = normalizeWhitespace(sb.String())
	if text == "" {
		return "", "", fmt.Errorf("could not extract text from PDF, it may be scanned or image-based")
	}
	return titleFromText(text, 80), text, nil
}
