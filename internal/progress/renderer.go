package progress

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/mattn/go-isatty"
)

// BarRenderer draws a two-line progress display (status + bar) on a TTY,
// or prints timestamped single lines on a non-TTY.
type BarRenderer struct {
	out       io.Writer
	start     time.Time
	isTTY     bool
	width     int
	lastEvent Event
	lines     int // number of lines currently written (for TTY overwrite)
}

// NewBarRenderer creates a renderer that writes to out. TTY mode and
// terminal width are detected when out is an *os.File.
func NewBarRenderer(out io.Writer) *BarRenderer {
	r := &BarRenderer{out: out, start: time.Now(), width: 80}
	if f, ok := out.(*os.File); ok {
		r.isTTY = IsTerminal(f)
		if r.isTTY {
			if w, _, err := term.GetSize(f.Fd()); err == nil && w > 0 {
				r.width = w
			}
		}
	}
	return r
}

// IsTerminal reports whether f is an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Handle processes a progress event. It satisfies the Callback type.
func (r *BarRenderer) Handle(e Event) {
	e.Elapsed = time.Since(r.start)

	// StageComplete is always 100% regardless of the calculated percent.
	if e.Stage == StageComplete {
		e.Percent = 1.0
	}

	r.lastEvent = e

	if r.isTTY {
		r.renderTTY(e)
	} else {
		r.renderPlain(e)
	}
}

// Finish clears the progress display and prints a final summary.
func (r *BarRenderer) Finish() {
	e := r.lastEvent
	if r.isTTY && r.lines > 0 {
		r.clearLines()
	}

	if e.Error != nil {
		fmt.Fprintf(r.out, "\n  Error: %v\n", e.Error)
		return
	}
	if e.Stage != StageComplete {
		return
	}

	if e.OutputFile != "" {
		fmt.Fprintf(r.out, "\n  Saved to %s (%d beats, %s)\n", e.OutputFile, e.Beats, formatElapsed(e.Elapsed))
	} else {
		fmt.Fprintf(r.out, "\n  %s (%s)\n", e.Message, formatElapsed(e.Elapsed))
	}
}

func (r *BarRenderer) renderTTY(e Event) {
	if r.lines > 0 {
		r.clearLines()
	}

	msg := fmt.Sprintf("  %s", e.Message)
	bar := renderBar(e.Percent, r.barWidth())
	pctStr := fmt.Sprintf("%3d%%", int(e.Percent*100))
	line2 := fmt.Sprintf("  %s %s  %s", bar, pctStr, formatElapsed(e.Elapsed))

	fmt.Fprintf(r.out, "%s\n%s", msg, line2)
	r.lines = 2
}

func (r *BarRenderer) renderPlain(e Event) {
	fmt.Fprintf(r.out, "[%s] %s\n", formatElapsed(e.Elapsed), e.Message)
}

func (r *BarRenderer) clearLines() {
	for i := 0; i < r.lines; i++ {
		if i == 0 {
			fmt.Fprint(r.out, "\r\033[2K")
		} else {
			fmt.Fprint(r.out, "\033[A\033[2K")
		}
	}
	fmt.Fprint(r.out, "\r")
	r.lines = 0
}

// barWidth returns the width available for the bar, accounting for brackets,
// percent, elapsed, and padding.
func (r *BarRenderer) barWidth() int {
	w := r.width - 16
	if w < 20 {
		w = 20
	}
	if w > 60 {
		w = 60
	}
	return w
}

// renderBar draws a [####....] style bar of the given width.
func renderBar(pct float64, width int) string {
	pct = min(max(pct, 0), 1)
	filled := min(int(pct*float64(width)), width)
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}

// formatElapsed formats a duration as M:SS.
func formatElapsed(d time.Duration) string {
	total := int(d.Seconds())
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}
