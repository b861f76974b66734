// Package pipeline runs the batch commands: load a script, transform it,
// and write the result, reporting progress per stage.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/apresai/mulmoprep/internal/llm"
	"github.com/apresai/mulmoprep/internal/observability"
	"github.com/apresai/mulmoprep/internal/progress"
	"github.com/apresai/mulmoprep/internal/query"
	"github.com/apresai/mulmoprep/internal/script"
)

// PipelineError names the stage a batch command failed in.
type PipelineError struct {
	Stage   progress.Stage
	Message string
	Err     error
}

func (e *PipelineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Stage, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Stage, e.Message)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// ProcessOptions configures Process.
type ProcessOptions struct {
	Source string
	// Script, when set, is used instead of loading Source again. Source
	// still labels logs and spans.
	Script *script.Script
	// Output is a file path or s3:// URL. Empty writes JSON to Stdout.
	Output  string
	Stdout  io.Writer
	Profile string
	Section string
	Tags    []string

	Loader     *script.Loader
	OnProgress progress.Callback
	Logger     *slog.Logger
}

// Process loads Source, applies filters and profile, and writes the result.
func Process(ctx context.Context, opts ProcessOptions) (*script.Script, error) {
	start := time.Now()
	notify, logger := callbacks(opts.OnProgress, opts.Logger)

	ctx, span := observability.StartSpan(ctx, "pipeline.Process",
		attribute.String("source", opts.Source),
		attribute.String("profile", opts.Profile),
	)
	var err error
	defer func() { observability.EndSpan(span, err) }()

	notify(progress.NewEvent(progress.StageLoad, "Loading script from "+opts.Source, 0.1, start))
	s := opts.Script
	if s == nil {
		s, err = opts.Loader.Load(ctx, opts.Source)
		if err != nil {
			err = &PipelineError{Stage: progress.StageLoad, Message: "failed to load script", Err: err}
			notify(progress.Event{Stage: progress.StageLoad, Error: err})
			return nil, err
		}
	}

	notify(progress.NewEvent(progress.StageProcess, fmt.Sprintf("Applying profile to %d beats", len(s.Beats)), 0.5, start))
	out := script.ProcessScript(s, script.ProcessOptions{
		Profile: opts.Profile,
		Section: opts.Section,
		Tags:    opts.Tags,
	})
	logger.InfoContext(ctx, "script processed",
		"source", opts.Source,
		"profile", opts.Profile,
		"beats_in", len(s.Beats),
		"beats_out", len(out.Beats),
	)

	notify(progress.NewEvent(progress.StageWrite, "Writing output", 0.8, start))
	if err = write(ctx, opts.Loader, out, opts.Output, opts.Stdout); err != nil {
		err = &PipelineError{Stage: progress.StageWrite, Message: "failed to write output", Err: err}
		notify(progress.Event{Stage: progress.StageWrite, Error: err})
		return nil, err
	}

	done := progress.NewEvent(progress.StageComplete, fmt.Sprintf("Processed %d beats", len(out.Beats)), 1, start)
	done.OutputFile = opts.Output
	done.Beats = len(out.Beats)
	notify(done)
	return out, nil
}

// SummarizeOptions configures Summarize.
type SummarizeOptions struct {
	Source string
	query.SummarizeOptions

	Loader     *script.Loader
	Client     llm.Client
	OnProgress progress.Callback
}

// Summarize loads Source and asks the model for a summary.
func Summarize(ctx context.Context, opts SummarizeOptions) (*query.SummarizeResult, error) {
	start := time.Now()
	notify, _ := callbacks(opts.OnProgress, opts.Logger)

	notify(progress.NewEvent(progress.StageLoad, "Loading script from "+opts.Source, 0.1, start))
	s, err := opts.Loader.Load(ctx, opts.Source)
	if err != nil {
		err = &PipelineError{Stage: progress.StageLoad, Message: "failed to load script", Err: err}
		notify(progress.Event{Stage: progress.StageLoad, Error: err})
		return nil, err
	}

	notify(progress.NewEvent(progress.StageGenerate, "Generating summary", 0.4, start))
	res, err := query.Summarize(ctx, opts.Client, s, opts.SummarizeOptions)
	if err != nil {
		err = &PipelineError{Stage: progress.StageGenerate, Message: "failed to summarize", Err: err}
		notify(progress.Event{Stage: progress.StageGenerate, Error: err})
		return nil, err
	}

	done := progress.NewEvent(progress.StageComplete, fmt.Sprintf("Summarized %d beats", res.BeatCount), 1, start)
	done.Beats = res.BeatCount
	notify(done)
	return res, nil
}

func write(ctx context.Context, loader *script.Loader, s *script.Script, dest string, stdout io.Writer) error {
	if dest != "" {
		return loader.Save(ctx, s, dest)
	}
	data, err := script.Marshal(s)
	if err != nil {
		return err
	}
	_, err = stdout.Write(data)
	return err
}

func callbacks(cb progress.Callback, logger *slog.Logger) (progress.Callback, *slog.Logger) {
	if cb == nil {
		cb = progress.NopCallback
	}
	if logger == nil {
		logger = slog.Default()
	}
	return cb, logger
}
