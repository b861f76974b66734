// Package query answers questions about a script with an LLM, one-shot or
// as an interactive session that can pull in reference pages on request.
package query

import (
	"context"
	"log/slog"

	"github.com/apresai/mulmoprep/internal/llm"
	"github.com/apresai/mulmoprep/internal/script"
)

// Options configures Query, Summarize and interactive sessions.
type Options struct {
	LLM llm.Options
	// Lang adds an output-language instruction to the system prompt.
	Lang string
	// SystemPrompt replaces the built-in system prompt entirely.
	SystemPrompt string
	Section      string
	Tags         []string
	// FetchMaxLength caps fetched reference text in sessions. Zero means
	// ingest.DefaultMaxLength.
	FetchMaxLength int
	Logger         *slog.Logger
}

// Validate checks the LLM options.
func (o Options) Validate() error {
	return o.LLM.Validate()
}

func (o Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

// Result is the outcome of a one-shot question.
type Result struct {
	Answer      string `json:"answer"`
	Question    string `json:"question"`
	ScriptTitle string `json:"scriptTitle"`
	BeatCount   int    `json:"beatCount"`
}

// Query answers question from the (filtered) script content. When filters
// leave no beats the model is not called and NoContentAnswer is returned.
func Query(ctx context.Context, client llm.Client, s *script.Script, question string, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	filtered := script.FilterScript(s, opts.Section, opts.Tags)
	result := &Result{
		Question:    question,
		ScriptTitle: s.TitleOrDefault(),
		BeatCount:   len(filtered.Beats),
	}
	if len(filtered.Beats) == 0 {
		result.Answer = NoContentAnswer
		return result, nil
	}

	opts.logger().InfoContext(ctx, "querying script",
		"title", result.ScriptTitle,
		"provider", opts.LLM.Provider,
		"beats", result.BeatCount,
	)

	system := BuildSystemPrompt(DefaultQuerySystemPrompt, opts.SystemPrompt, opts.Lang)
	answer, err := client.Complete(ctx, system, BuildQueryPrompt(filtered, question), opts.LLM)
	if err != nil {
		return nil, err
	}
	result.Answer = answer
	return result, nil
}
