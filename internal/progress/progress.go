package progress

import "time"

// Stage identifies which processing stage is active.
type Stage string

const (
	StageLoad     Stage = "load"
	StageProcess  Stage = "process"
	StageGenerate Stage = "generate"
	StageWrite    Stage = "write"
	StageComplete Stage = "complete"
)

// Event carries progress information from the pipeline to the renderer.
type Event struct {
	Stage   Stage
	Message string
	Percent float64 // 0.0–1.0
	Elapsed time.Duration
	Error   error
	// OutputFile is set on StageComplete when output went to a file.
	OutputFile string
	// Beats is the beat count of the result, set on StageComplete.
	Beats int
}

// Callback is the function signature for progress event handlers.
type Callback func(Event)

// NopCallback is a no-op progress callback for tests and silent mode.
func NopCallback(Event) {}

// NewEvent creates an Event with common fields populated.
func NewEvent(stage Stage, msg string, pct float64, start time.Time) Event {
	return Event{
		Stage:   stage,
		Message: msg,
		Percent: pct,
		Elapsed: time.Since(start),
	}
}
