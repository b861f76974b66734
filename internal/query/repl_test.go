package query

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runREPL(t *testing.T, client *fakeClient, input string) (string, *REPL, *Session, *fakeFetcher) {
	t.Helper()
	sess, fetcher := newTestSession(t, client, Options{})
	var out bytes.Buffer
	repl := NewREPL(sess, strings.NewReader(input), &out, REPLOptions{})
	require.NoError(t, repl.Run(context.Background()))
	return out.String(), repl, sess, fetcher
}

func TestREPL_BannerAndExit(t *testing.T) {
	out, _, sess, _ := runREPL(t, &fakeClient{}, "/exit\nnever asked\n")

	assert.Contains(t, out, `Interactive query mode for "GraphAI Overview" (4 beats)`)
	assert.Contains(t, out, commandList)
	assert.True(t, strings.HasSuffix(out, "You: Goodbye!\n"))
	assert.Empty(t, sess.History())
	assert.Equal(t, StateClosed, sess.State())
}

func TestREPL_QuitAndEOF(t *testing.T) {
	client := &fakeClient{}
	out, _, _, _ := runREPL(t, client, "/quit\n")
	assert.Contains(t, out, "Goodbye!")

	out, _, sess, _ := runREPL(t, client, "hello")
	assert.Contains(t, out, "Assistant: ok")
	assert.True(t, strings.HasSuffix(out, "Goodbye!\n"))
	assert.Equal(t, StateClosed, sess.State())
}

func TestREPL_CommandsDoNotReachModel(t *testing.T) {
	client := &fakeClient{}
	out, _, _, _ := runREPL(t, client, "/history\n/clear\n/help\n\n   \n/refs\n")

	assert.Empty(t, client.calls)
	assert.Contains(t, out, "No conversation history.")
	assert.Contains(t, out, "Conversation history cleared.")
	assert.Contains(t, out, "Available references:\n  1. [web] GraphAI Documentation: https://example.com/graphai - Official guide\n  2. [code] GraphAI repository: https://github.com/receptron/graphai\n")
}

func TestREPL_UnknownSlashGoesToModel(t *testing.T) {
	client := &fakeClient{}
	runREPL(t, client, "/why not\n")

	require.Len(t, client.calls, 1)
	assert.Contains(t, client.calls[0].user, "Current question: /why not")
}

func TestREPL_SuggestThenBareFetch(t *testing.T) {
	client := &fakeClient{replies: []string{
		"Read the docs. [SUGGEST_FETCH: " + docsURL + "]",
		"Nodes are agents.",
	}}
	input := "what is a node?\n/fetch\nand now?\n/history\n"

	out, repl, sess, fetcher := runREPL(t, client, input)

	assert.Contains(t, out, "Assistant: Read the docs.\n")
	assert.Contains(t, out, "[Suggested reference: "+docsURL+"] Type /fetch to load it.")
	assert.Contains(t, out, "Fetching "+docsURL+"...")
	assert.Contains(t, out, "Fetched 17 chars from "+docsURL+" (GraphAI Docs). Your next question will include this content.")
	assert.Equal(t, []string{docsURL}, fetcher.urls)
	assert.Equal(t, docsURL, repl.LastSuggestedURL())

	require.Len(t, client.calls, 2)
	assert.Contains(t, client.calls[1].user, "Nodes are agents.\n---\n\nCurrent question: and now?")
	assert.Contains(t, out, "You: and now? (with reference: "+docsURL+")")
	assert.Len(t, sess.History(), 4)
}

func TestREPL_BareFetchWithoutSuggestion(t *testing.T) {
	out, _, _, fetcher := runREPL(t, &fakeClient{}, "/fetch\n")

	assert.Contains(t, out, "Usage: /fetch <url> (no suggested URL available)")
	assert.Empty(t, fetcher.urls)
}

func TestREPL_FetchByReferenceWords(t *testing.T) {
	out, _, _, fetcher := runREPL(t, &fakeClient{}, "/fetch graphai documentation\n/fetch kubernetes\n")

	assert.Equal(t, []string{docsURL}, fetcher.urls)
	assert.Contains(t, out, "No matching reference found for: kubernetes")
}

func TestREPL_FetchFailureIsInline(t *testing.T) {
	client := &fakeClient{}
	out, _, sess, _ := runREPL(t, client, "/fetch https://example.com/missing\nq\n")

	assert.Contains(t, out, "Failed to fetch https://example.com/missing: HTTP 404: Not Found")
	require.Len(t, client.calls, 1)
	assert.NotContains(t, client.calls[0].user, "Additional reference content")
	assert.Equal(t, "q", sess.History()[0].Content)
}

func TestREPL_LLMErrorContinues(t *testing.T) {
	client := &fakeClient{errs: []error{errors.New("upstream down")}, replies: []string{"", "recovered"}}
	out, _, sess, _ := runREPL(t, client, "first\nsecond\n")

	assert.Contains(t, out, "Error: upstream down")
	assert.Contains(t, out, "Assistant: recovered")
	assert.Len(t, sess.History(), 2)
}

func TestREPL_CancelledContext(t *testing.T) {
	sess, _ := newTestSession(t, &fakeClient{}, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewREPL(sess, strings.NewReader("q\n"), &bytes.Buffer{}, REPLOptions{}).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, StateClosed, sess.State())
}
