package query

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/mulmoprep/internal/ingest"
	"github.com/apresai/mulmoprep/internal/llm"
)

const docsURL = "https://example.com/graphai"

func newTestSession(t *testing.T, client *fakeClient, opts Options) (*Session, *fakeFetcher) {
	t.Helper()
	fetcher := &fakeFetcher{pages: map[string]ingest.FetchedContent{
		docsURL: {URL: docsURL, Title: "GraphAI Docs", Content: "Nodes are agents."},
	}}
	sess, err := NewSession(loadSample(t), client, fetcher, opts)
	require.NoError(t, err)
	return sess, fetcher
}

func TestNewSession(t *testing.T) {
	sess, _ := newTestSession(t, &fakeClient{}, Options{Section: "opening"})

	assert.Len(t, sess.ID, 26)
	assert.Equal(t, "GraphAI Overview", sess.ScriptTitle)
	assert.Equal(t, 2, sess.BeatCount)
	assert.Len(t, sess.References(), 2)
	assert.Empty(t, sess.History())
	assert.Equal(t, StateAwaitingInput, sess.State())
}

func TestNewSession_Invalid(t *testing.T) {
	_, err := NewSession(loadSample(t), &fakeClient{}, nil, Options{LLM: llm.Options{Provider: "cohere"}})
	assert.Error(t, err)

	_, err = NewSession(nil, &fakeClient{}, nil, Options{})
	assert.Error(t, err)

	_, err = NewSession(loadSample(t), nil, nil, Options{})
	assert.Error(t, err)
}

func TestSession_AskRecordsHistory(t *testing.T) {
	client := &fakeClient{replies: []string{"first answer", "second answer"}}
	sess, _ := newTestSession(t, client, Options{})
	ctx := context.Background()

	ans, err := sess.Ask(ctx, "first?")
	require.NoError(t, err)
	assert.Equal(t, "first answer", ans.Text)
	assert.Empty(t, ans.SuggestedURL)

	_, err = sess.Ask(ctx, "second?")
	require.NoError(t, err)

	assert.Equal(t, []Message{
		{Role: RoleUser, Content: "first?"},
		{Role: RoleAssistant, Content: "first answer"},
		{Role: RoleUser, Content: "second?"},
		{Role: RoleAssistant, Content: "second answer"},
	}, sess.History())

	require.Len(t, client.calls, 2)
	assert.Equal(t, DefaultInteractiveSystemPrompt, client.calls[0].system)
	assert.NotContains(t, client.calls[0].user, "Previous conversation:")
	assert.Contains(t, client.calls[1].user, "Previous conversation:\nQ: first?\nA: first answer\n")
	assert.Equal(t, StateAwaitingInput, sess.State())
}

func TestSession_HistoryIsACopy(t *testing.T) {
	sess, _ := newTestSession(t, &fakeClient{}, Options{})
	_, err := sess.Ask(context.Background(), "q")
	require.NoError(t, err)

	h := sess.History()
	h[0].Content = "changed"
	assert.Equal(t, "q", sess.History()[0].Content)
}

func TestSession_SuggestedFetch(t *testing.T) {
	raw := "See the docs for more. [SUGGEST_FETCH: " + docsURL + "]"
	sess, _ := newTestSession(t, &fakeClient{replies: []string{raw}}, Options{})

	ans, err := sess.Ask(context.Background(), "tell me more")
	require.NoError(t, err)

	assert.Equal(t, "See the docs for more.", ans.Text)
	assert.Equal(t, raw, ans.Raw)
	assert.Equal(t, docsURL, ans.SuggestedURL)
	assert.Equal(t, raw, sess.History()[1].Content)
}

func TestSession_FetchedContentIsUsedOnce(t *testing.T) {
	client := &fakeClient{}
	sess, fetcher := newTestSession(t, client, Options{})
	ctx := context.Background()

	fc, err := sess.Fetch(ctx, docsURL)
	require.NoError(t, err)
	require.True(t, fc.OK())
	assert.Equal(t, []string{docsURL}, fetcher.urls)
	_, pending := sess.Pending()
	assert.True(t, pending)

	ans, err := sess.Ask(ctx, "what is a node?")
	require.NoError(t, err)
	assert.Equal(t, docsURL, ans.UsedReference)

	user := client.calls[0].user
	assert.Equal(t, DefaultInteractiveFetchSystemPrompt, client.calls[0].system)
	assert.Contains(t, user, "URL: "+docsURL+"\nTitle: GraphAI Docs\n\nNodes are agents.\n---\n\nCurrent question: what is a node?")
	assert.Equal(t, "what is a node? (with reference: "+docsURL+")", sess.History()[0].Content)

	_, pending = sess.Pending()
	assert.False(t, pending)

	_, err = sess.Ask(ctx, "and edges?")
	require.NoError(t, err)
	assert.NotContains(t, client.calls[1].user, "Additional reference content")
	assert.Equal(t, DefaultInteractiveSystemPrompt, client.calls[1].system)
}

func TestSession_FetchErrorLeavesSlotEmpty(t *testing.T) {
	client := &fakeClient{}
	sess, _ := newTestSession(t, client, Options{})

	fc, err := sess.Fetch(context.Background(), "https://example.com/missing")
	require.NoError(t, err)
	assert.Equal(t, "HTTP 404: Not Found", fc.Error)

	_, pending := sess.Pending()
	assert.False(t, pending)

	_, err = sess.Ask(context.Background(), "q")
	require.NoError(t, err)
	assert.NotContains(t, client.calls[0].user, "Additional reference content")
}

func TestSession_LLMErrorKeepsState(t *testing.T) {
	client := &fakeClient{errs: []error{errors.New("rate limited")}}
	sess, _ := newTestSession(t, client, Options{})
	ctx := context.Background()

	_, err := sess.Fetch(ctx, docsURL)
	require.NoError(t, err)

	_, err = sess.Ask(ctx, "q")
	require.EqualError(t, err, "rate limited")
	assert.Empty(t, sess.History())
	_, pending := sess.Pending()
	assert.True(t, pending, "fetched content survives a failed turn")
	assert.Equal(t, StateAwaitingInput, sess.State())

	ans, err := sess.Ask(ctx, "q")
	require.NoError(t, err)
	assert.Equal(t, docsURL, ans.UsedReference)
}

func TestSession_EmptyFilter(t *testing.T) {
	client := &fakeClient{}
	sess, _ := newTestSession(t, client, Options{Tags: []string{"missing"}})

	ans, err := sess.Ask(context.Background(), "q")
	require.NoError(t, err)

	assert.Equal(t, NoContentAnswer, ans.Text)
	assert.Empty(t, client.calls)
	assert.Empty(t, sess.History())
}

func TestSession_ClearKeepsPendingFetch(t *testing.T) {
	sess, _ := newTestSession(t, &fakeClient{}, Options{})
	ctx := context.Background()

	_, err := sess.Ask(ctx, "q")
	require.NoError(t, err)
	_, err = sess.Fetch(ctx, docsURL)
	require.NoError(t, err)

	sess.Clear()

	assert.Empty(t, sess.History())
	_, pending := sess.Pending()
	assert.True(t, pending)
}

func TestSession_Close(t *testing.T) {
	sess, _ := newTestSession(t, &fakeClient{}, Options{})
	sess.Close()

	assert.Equal(t, StateClosed, sess.State())
	_, err := sess.Ask(context.Background(), "q")
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = sess.Fetch(context.Background(), docsURL)
	assert.ErrorIs(t, err, ErrSessionClosed)
}

func TestSession_FindReference(t *testing.T) {
	sess, _ := newTestSession(t, &fakeClient{}, Options{Section: "closing"})

	ref := sess.FindReference("graphai repository")
	require.NotNil(t, ref)
	assert.Equal(t, "https://github.com/receptron/graphai", ref.URL)
}

func TestSession_LanguageInstruction(t *testing.T) {
	client := &fakeClient{}
	sess, _ := newTestSession(t, client, Options{Lang: "de"})

	_, err := sess.Ask(context.Background(), "q")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(client.calls[0].system, "Write the answer in German"))
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "fetch_pending", StateFetchPending.String())
	assert.Equal(t, "state(9)", State(9).String())
}
