package query

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/apresai/mulmoprep/internal/script"
)

const commandList = "Commands: /clear, /history, /refs, /fetch [url], /help, /exit"

var (
	promptStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	assistantStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#04B575"))
	hintStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Italic(true)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5555"))
)

// REPLOptions configures the interactive loop.
type REPLOptions struct {
	// Styled enables lipgloss colors; set it only when out is a terminal.
	Styled bool
}

// REPL reads questions and commands line by line and drives a Session.
type REPL struct {
	session *Session
	in      io.Reader
	out     io.Writer
	opts    REPLOptions

	lastSuggested string
}

func NewREPL(session *Session, in io.Reader, out io.Writer, opts REPLOptions) *REPL {
	return &REPL{session: session, in: in, out: out, opts: opts}
}

// LastSuggestedURL is the URL a bare /fetch would load.
func (r *REPL) LastSuggestedURL() string {
	return r.lastSuggested
}

// Run loops until /exit, /quit, end of input or ctx cancellation, then
// closes the session. Turn-level failures are printed, never returned.
func (r *REPL) Run(ctx context.Context) error {
	defer r.session.Close()

	r.printf("Interactive query mode for %q (%d beats)\n", r.session.ScriptTitle, r.session.BeatCount)
	r.println(commandList)
	r.println("")

	scanner := bufio.NewScanner(r.in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.print(r.style(promptStyle, "You: "))
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if done := r.handle(ctx, line); done {
			r.println("Goodbye!")
			return nil
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	r.println("")
	r.println("Goodbye!")
	return nil
}

// handle dispatches one input line and reports whether the loop should end.
func (r *REPL) handle(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/exit", "/quit":
		return true
	case "/help":
		r.println(commandList)
	case "/clear":
		r.session.Clear()
		r.println("Conversation history cleared.")
	case "/history":
		r.printHistory()
	case "/refs":
		r.printReferences()
	case "/fetch":
		r.fetch(ctx, arg)
	default:
		r.ask(ctx, line)
	}
	return false
}

func (r *REPL) ask(ctx context.Context, question string) {
	ans, err := r.session.Ask(ctx, question)
	if err != nil {
		r.println(r.style(errorStyle, "Error: "+err.Error()))
		r.println("")
		return
	}
	r.println("")
	r.println(r.style(assistantStyle, "Assistant: ") + ans.Text)
	if ans.SuggestedURL != "" {
		r.lastSuggested = ans.SuggestedURL
		r.println("")
		r.println(r.style(hintStyle, fmt.Sprintf("[Suggested reference: %s] Type /fetch to load it.", ans.SuggestedURL)))
	}
	r.println("")
}

func (r *REPL) fetch(ctx context.Context, arg string) {
	target := arg
	switch {
	case arg == "":
		if r.lastSuggested == "" {
			r.println("Usage: /fetch <url> (no suggested URL available)")
			return
		}
		target = r.lastSuggested
	case !isURL(arg):
		ref := r.session.FindReference(arg)
		if ref == nil {
			r.println("No matching reference found for: " + arg)
			return
		}
		target = ref.URL
	}

	r.printf("Fetching %s...\n", target)
	fc, err := r.session.Fetch(ctx, target)
	if err != nil {
		r.println(r.style(errorStyle, "Error: "+err.Error()))
		return
	}
	if !fc.OK() {
		r.println(r.style(errorStyle, fmt.Sprintf("Failed to fetch %s: %s", target, fc.Error)))
		return
	}
	title := fc.Title
	if title == "" {
		title = "untitled"
	}
	r.printf("Fetched %d chars from %s (%s). Your next question will include this content.\n",
		len([]rune(fc.Content)), target, title)
}

func (r *REPL) printHistory() {
	history := r.session.History()
	if len(history) == 0 {
		r.println("No conversation history.")
		return
	}
	for _, m := range history {
		if m.Role == RoleUser {
			r.println(r.style(promptStyle, "You: ") + m.Content)
		} else {
			r.println(r.style(assistantStyle, "Assistant: ") + RemoveSuggestFetchMarkers(m.Content))
		}
	}
}

func (r *REPL) printReferences() {
	refs := r.session.References()
	if len(refs) == 0 {
		r.println("No references available.")
		return
	}
	r.println("Available references:")
	for i, ref := range refs {
		r.printf("  %d. %s\n", i+1, script.FormatReference(ref))
	}
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func (r *REPL) style(st lipgloss.Style, s string) string {
	if !r.opts.Styled {
		return s
	}
	return st.Render(s)
}

func (r *REPL) print(s string) {
	fmt.Fprint(r.out, s)
}

func (r *REPL) println(s string) {
	fmt.Fprintln(r.out, s)
}

func (r *REPL) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}
