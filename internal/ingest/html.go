package ingest

import (
	"strings"
	"unicode"
)

// Closing tags of these elements become line breaks. Opening and
// self-closing tags, <br> and <br/> included, are removed without one.
var blockElements = map[string]bool{
	"p": true, "div": true, "li": true, "tr": true, "br": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
}

// Decoded in order; &amp; must stay last so "&amp;lt;" yields "&lt;".
var entities = []struct{ from, to string }{
	{"&nbsp;", " "},
	{"&lt;", "<"},
	{"&gt;", ">"},
	{"&quot;", `"`},
	{"&#39;", "'"},
	{"&amp;", "&"},
}

// StripHTML converts untrusted HTML into plain text. Every pass is a linear
// delimiter scan, so hostile input cannot trigger super-linear work.
func StripHTML(html string) string {
	text := removeBlocks(html, "<script", "</script>")
	text = removeBlocks(text, "<style", "</style>")
	text = removeBlocks(text, "<!--", "-->")
	text = removeTags(text)
	for _, e := range entities {
		text = strings.ReplaceAll(text, e.from, e.to)
	}
	return normalizeWhitespace(text)
}

// ExtractTitle returns the trimmed contents of the first <title> element.
func ExtractTitle(html string) (string, bool) {
	start := indexFold(html, "<title", 0)
	if start < 0 {
		return "", false
	}
	open := strings.IndexByte(html[start:], '>')
	if open < 0 {
		return "", false
	}
	contentStart := start + open + 1
	end := indexFold(html, "</title>", contentStart)
	if end < 0 {
		return "", false
	}
	title := strings.TrimSpace(html[contentStart:end])
	return title, title != ""
}

// removeBlocks drops every open...close block including its content. An
// unclosed block stops the removal and the remainder is kept as is.
func removeBlocks(s, open, close string) string {
	var b strings.Builder
	pos := 0
	for {
		start := indexFold(s, open, pos)
		if start < 0 {
			break
		}
		end := indexFold(s, close, start+len(open))
		if end < 0 {
			break
		}
		b.WriteString(s[pos:start])
		pos = end + len(close)
	}
	b.WriteString(s[pos:])
	return b.String()
}

func removeTags(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	pos := 0
	for pos < len(s) {
		lt := strings.IndexByte(s[pos:], '<')
		if lt < 0 {
			b.WriteString(s[pos:])
			break
		}
		lt += pos
		b.WriteString(s[pos:lt])

		gt := strings.IndexByte(s[lt:], '>')
		if gt < 0 {
			// Unclosed tag at end of input: keep the raw text.
			b.WriteString(s[lt:])
			break
		}
		gt += lt
		if breaksLine(s[lt+1 : gt]) {
			b.WriteByte('\n')
		}
		pos = gt + 1
	}
	return b.String()
}

func breaksLine(tag string) bool {
	tag, closing := strings.CutPrefix(tag, "/")
	if !closing {
		return false
	}
	end := 0
	for end < len(tag) && isWordByte(tag[end]) {
		end++
	}
	return blockElements[strings.ToLower(tag[:end])]
}

// normalizeWhitespace collapses horizontal whitespace runs to one space,
// trims each line and keeps at most one blank line between paragraphs.
func normalizeWhitespace(s string) string {
	var out []string
	pendingBlank := false
	for _, line := range strings.Split(s, "\n") {
		line = strings.Join(strings.FieldsFunc(line, isHorizontalSpace), " ")
		if line == "" {
			pendingBlank = len(out) > 0
			continue
		}
		if pendingBlank {
			out = append(out, "")
			pendingBlank = false
		}
		out = append(out, line)
	}
	return strings.Join(out, "\n")
}

func isHorizontalSpace(r rune) bool {
	return r != '\n' && unicode.IsSpace(r)
}

func isWordByte(c byte) bool {
	return c == '_' || '0' <= c && c <= '9' || 'a' <= c && c <= 'z' || 'A' <= c && c <= 'Z'
}

// indexFold finds sub in s at or after from, ignoring ASCII case. sub must
// be lowercase and start with a non-letter.
func indexFold(s, sub string, from int) int {
	for from <= len(s)-len(sub) {
		i := strings.IndexByte(s[from:], sub[0])
		if i < 0 {
			return -1
		}
		i += from
		if hasPrefixFold(s[i:], sub) {
			return i
		}
		from = i + 1
	}
	return -1
}

func hasPrefixFold(s, prefix string) bool {
	if len(s) < len(prefix) {
		return false
	}
	for i := 0; i < len(prefix); i++ {
		c := s[i]
		if 'A' <= c && c <= 'Z' {
			c += 'a' - 'A'
		}
		if c != prefix[i] {
			return false
		}
	}
	return true
}
