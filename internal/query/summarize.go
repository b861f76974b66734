package query

import (
	"bytes"
	"context"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/apresai/mulmoprep/internal/llm"
	"github.com/apresai/mulmoprep/internal/script"
)

// Format is the summary output format.
type Format string

const (
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	// FormatHTML asks for markdown and renders it to an HTML fragment.
	FormatHTML Format = "html"
)

// ParseFormat validates a format name. "" selects text.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatText:
		return FormatText, nil
	case FormatMarkdown, FormatHTML:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown format %q (valid: text, markdown, html)", s)
	}
}

// SummarizeOptions extends Options with output shaping.
type SummarizeOptions struct {
	Options
	Format            Format
	TargetLengthChars int
}

// SummarizeResult is the generated summary.
type SummarizeResult struct {
	Summary     string `json:"summary"`
	Format      Format `json:"format"`
	ScriptTitle string `json:"scriptTitle"`
	BeatCount   int    `json:"beatCount"`
}

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Summarize explains the (filtered) script content directly to the reader.
// When filters leave no beats the model is not called and NoContentSummary
// is returned.
func Summarize(ctx context.Context, client llm.Client, s *script.Script, opts SummarizeOptions) (*SummarizeResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	format, err := ParseFormat(string(opts.Format))
	if err != nil {
		return nil, err
	}
	if opts.TargetLengthChars < 0 {
		return nil, fmt.Errorf("target length must be positive, got %d", opts.TargetLengthChars)
	}

	filtered := script.FilterScript(s, opts.Section, opts.Tags)
	result := &SummarizeResult{
		Format:      format,
		ScriptTitle: s.TitleOrDefault(),
		BeatCount:   len(filtered.Beats),
	}
	if len(filtered.Beats) == 0 {
		result.Summary = NoContentSummary
		return result, nil
	}

	opts.logger().InfoContext(ctx, "summarizing script",
		"title", result.ScriptTitle,
		"provider", opts.LLM.Provider,
		"beats", result.BeatCount,
		"format", format,
	)

	base := DefaultSummarizeTextSystemPrompt
	if format != FormatText {
		base = DefaultSummarizeMarkdownSystemPrompt
	}
	system := BuildSystemPrompt(base, opts.SystemPrompt, opts.Lang)
	summary, err := client.Complete(ctx, system, BuildSummarizePrompt(filtered, opts.TargetLengthChars), opts.LLM)
	if err != nil {
		return nil, err
	}

	if format == FormatHTML {
		var buf bytes.Buffer
		if err := markdown.Convert([]byte(summary), &buf); err != nil {
			return nil, fmt.Errorf("render summary html: %w", err)
		}
		summary = buf.String()
	}
	result.Summary = summary
	return result, nil
}
