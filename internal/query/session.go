package query

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/apresai/mulmoprep/internal/ingest"
	"github.com/apresai/mulmoprep/internal/llm"
	"github.com/apresai/mulmoprep/internal/observability"
	"github.com/apresai/mulmoprep/internal/script"
)

// Role identifies the author of a conversation message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one entry of the conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// State is the session lifecycle position.
type State int

const (
	StateIdle State = iota
	StateAwaitingInput
	StateProcessing
	StateFetchPending
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingInput:
		return "awaiting_input"
	case StateProcessing:
		return "processing"
	case StateFetchPending:
		return "fetch_pending"
	case StateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// ErrSessionClosed is returned by Ask and Fetch after Close.
var ErrSessionClosed = errors.New("session closed")

// Fetcher retrieves reference content. *ingest.Fetcher satisfies it.
type Fetcher interface {
	FetchURLContent(ctx context.Context, rawURL string, maxLength int) ingest.FetchedContent
}

// Answer is the outcome of one conversational turn.
type Answer struct {
	// Text is the answer with SUGGEST_FETCH markers removed.
	Text string
	// Raw is the model output as received; it is what history stores.
	Raw          string
	SuggestedURL string
	// UsedReference is the URL of fetched content consumed by this turn.
	UsedReference string
}

// Session is a single-user conversation over one script. It is not safe
// for concurrent use; the REPL drives it one input at a time.
type Session struct {
	ID          string
	ScriptTitle string
	BeatCount   int

	script     *script.Script
	references []script.Reference
	client     llm.Client
	fetcher    Fetcher
	opts       Options

	history []Message
	fetched *ingest.FetchedContent
	state   State
}

// NewSession validates opts and narrows s once with the section and tag
// filters. The references come from the unfiltered script.
func NewSession(s *script.Script, client llm.Client, fetcher Fetcher, opts Options) (*Session, error) {
	if s == nil {
		return nil, errors.New("script is required")
	}
	if client == nil {
		return nil, errors.New("llm client is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if fetcher == nil {
		fetcher = ingest.NewFetcher(ingest.WithLogger(opts.logger()))
	}

	filtered := script.FilterScript(s, opts.Section, opts.Tags)
	sess := &Session{
		ID:          ulid.MustNew(ulid.Now(), rand.Reader).String(),
		ScriptTitle: s.TitleOrDefault(),
		BeatCount:   len(filtered.Beats),
		script:      filtered,
		references:  s.ReferenceList(),
		client:      client,
		fetcher:     fetcher,
		opts:        opts,
		state:       StateAwaitingInput,
	}
	opts.logger().Debug("interactive session created",
		"session_id", sess.ID,
		"title", sess.ScriptTitle,
		"beats", sess.BeatCount,
		"references", len(sess.references),
	)
	return sess, nil
}

// Ask runs one conversational turn. Pending fetched content is included
// right before the question and consumed when the turn succeeds; on an LLM
// error it stays pending and history is unchanged.
func (s *Session) Ask(ctx context.Context, question string) (Answer, error) {
	if s.state == StateClosed {
		return Answer{}, ErrSessionClosed
	}
	if s.BeatCount == 0 {
		return Answer{Text: NoContentAnswer, Raw: NoContentAnswer}, nil
	}

	s.state = StateProcessing
	defer func() {
		if s.state == StateProcessing {
			s.state = StateAwaitingInput
		}
	}()

	ctx, span := observability.StartSpan(ctx, "query.Ask",
		attribute.String("session.id", s.ID),
		attribute.Int("history.length", len(s.history)),
		attribute.Bool("fetched", s.fetched != nil),
	)

	base := DefaultInteractiveSystemPrompt
	if s.fetched != nil {
		base = DefaultInteractiveFetchSystemPrompt
	}
	system := BuildSystemPrompt(base, s.opts.SystemPrompt, s.opts.Lang)
	prompt := BuildInteractivePrompt(s.script, question, s.history, s.fetched)

	raw, err := s.client.Complete(ctx, system, prompt, s.opts.LLM)
	observability.EndSpan(span, err)
	if err != nil {
		s.opts.logger().WarnContext(ctx, "interactive turn failed", "session_id", s.ID, "error", err)
		return Answer{}, err
	}

	ans := Answer{Text: RemoveSuggestFetchMarkers(raw), Raw: raw}
	ans.SuggestedURL, _ = ParseSuggestedFetch(raw)

	recorded := question
	if s.fetched != nil {
		ans.UsedReference = s.fetched.URL
		recorded = fmt.Sprintf("%s (with reference: %s)", question, s.fetched.URL)
		s.fetched = nil
	}
	s.history = append(s.history,
		Message{Role: RoleUser, Content: recorded},
		Message{Role: RoleAssistant, Content: raw},
	)
	return ans, nil
}

// Fetch downloads url into the pending-content slot. A failed fetch leaves
// the slot as it was and is reported in the result's Error field.
func (s *Session) Fetch(ctx context.Context, url string) (ingest.FetchedContent, error) {
	if s.state == StateClosed {
		return ingest.FetchedContent{}, ErrSessionClosed
	}
	s.state = StateFetchPending
	defer func() {
		if s.state == StateFetchPending {
			s.state = StateAwaitingInput
		}
	}()

	maxLength := s.opts.FetchMaxLength
	if maxLength <= 0 {
		maxLength = ingest.DefaultMaxLength
	}
	fc := s.fetcher.FetchURLContent(ctx, url, maxLength)
	if !fc.OK() {
		s.opts.logger().InfoContext(ctx, "reference fetch failed", "session_id", s.ID, "url", url, "error", fc.Error)
		return fc, nil
	}
	s.fetched = &fc
	return fc, nil
}

// Pending returns the fetched content waiting for the next question.
func (s *Session) Pending() (ingest.FetchedContent, bool) {
	if s.fetched == nil {
		return ingest.FetchedContent{}, false
	}
	return *s.fetched, true
}

// FindReference resolves free text against the script's references.
func (s *Session) FindReference(query string) *script.Reference {
	return FindMatchingReference(s.references, query)
}

// Clear drops the conversation history. Pending fetched content is kept.
func (s *Session) Clear() {
	s.history = nil
}

// History returns a copy of the conversation so far.
func (s *Session) History() []Message {
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

func (s *Session) References() []script.Reference {
	return s.references
}

func (s *Session) State() State {
	return s.state
}

// Close ends the session. Later calls to Ask and Fetch fail.
func (s *Session) Close() {
	s.state = StateClosed
	s.fetched = nil
}
