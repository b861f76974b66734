package script

import (
	"fmt"
	"strings"
)

// BuildBeatContent renders one beat for a prompt: "[index] text" followed by
// its meta hints. Beats with blank text render as "".
func BuildBeatContent(b *Beat, index int) string {
	if strings.TrimSpace(b.Text) == "" {
		return ""
	}

	lines := []string{fmt.Sprintf("[%d] %s", index, b.Text)}
	if m := b.Meta; m != nil {
		if len(m.Tags) > 0 {
			lines = append(lines, "  Tags: "+strings.Join(m.Tags, ", "))
		}
		if m.Context != "" {
			lines = append(lines, "  Context: "+m.Context)
		}
		if len(m.Keywords) > 0 {
			lines = append(lines, "  Keywords: "+strings.Join(m.Keywords, ", "))
		}
		if len(m.ExpectedQuestions) > 0 {
			lines = append(lines, "  Can answer: "+strings.Join(m.ExpectedQuestions, "; "))
		}
	}
	return strings.Join(lines, "\n")
}

// BuildScriptMetaContent renders script-level metadata, or "" when there is
// none.
func BuildScriptMetaContent(s *Script) string {
	m := s.ScriptMeta
	if m == nil {
		return ""
	}

	var lines []string
	if m.Background != "" {
		lines = append(lines, "Background: "+m.Background)
	}
	if m.Audience != "" {
		lines = append(lines, "Target audience: "+m.Audience)
	}
	if len(m.Prerequisites) > 0 {
		lines = append(lines, "Prerequisites: "+strings.Join(m.Prerequisites, ", "))
	}
	if len(m.Goals) > 0 {
		lines = append(lines, "Goals: "+strings.Join(m.Goals, "; "))
	}
	if len(m.Keywords) > 0 {
		lines = append(lines, "Keywords: "+strings.Join(m.Keywords, ", "))
	}
	if len(m.References) > 0 {
		lines = append(lines, "References:")
		for _, ref := range m.References {
			lines = append(lines, "  - "+FormatReference(ref))
		}
	}
	if len(m.FAQ) > 0 {
		lines = append(lines, "FAQ:")
		for _, f := range m.FAQ {
			lines = append(lines, "  Q: "+f.Question, "  A: "+f.Answer)
		}
	}
	if m.Author != "" {
		lines = append(lines, "Author: "+m.Author)
	}
	return strings.Join(lines, "\n")
}

// FormatReference renders "[type] title: url - description".
func FormatReference(ref Reference) string {
	typ := ref.Type
	if typ == "" {
		typ = ReferenceWeb
	}
	title := ref.Title
	if title == "" {
		title = ref.URL
	}
	desc := ""
	if ref.Description != "" {
		desc = " - " + ref.Description
	}
	return fmt.Sprintf("[%s] %s: %s%s", typ, title, ref.URL, desc)
}

// BuildScriptContent renders the script body shared by every prompt: title,
// language, metadata, then beats grouped by section in first-seen order.
func BuildScriptContent(s *Script) string {
	parts := []string{
		"# Script: " + s.Title,
		"Language: " + s.Lang,
		"",
	}

	if meta := BuildScriptMetaContent(s); meta != "" {
		parts = append(parts, "## About this content", meta, "")
	}

	var order []string
	sections := map[string][]string{}
	for i := range s.Beats {
		content := BuildBeatContent(&s.Beats[i], i)
		if content == "" {
			continue
		}
		section := DefaultSection
		if m := s.Beats[i].Meta; m != nil && m.Section != "" {
			section = m.Section
		}
		if _, ok := sections[section]; !ok {
			order = append(order, section)
		}
		sections[section] = append(sections[section], content)
	}

	for _, section := range order {
		parts = append(parts, "## Section: "+section)
		parts = append(parts, sections[section]...)
		parts = append(parts, "")
	}
	return strings.Join(parts, "\n")
}
