package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/mulmoprep/internal/config"
	"github.com/apresai/mulmoprep/internal/llm"
	"github.com/apresai/mulmoprep/internal/query"
	"github.com/apresai/mulmoprep/internal/script"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("MULMOPREP_LOG_LEVEL", "error")
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "mulmoprep dev\n", out)
}

func TestProcessCommand(t *testing.T) {
	out, err := run(t, "process", samplePath, "-p", "teaser")
	require.NoError(t, err)

	var s script.Script
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	require.Len(t, s.Beats, 2)
	assert.Equal(t, "Check this out!", s.Beats[0].Text)
	assert.Equal(t, "Try it now!", s.Beats[1].Text)
}

func TestProfilesCommand(t *testing.T) {
	out, err := run(t, "profiles", samplePath)
	require.NoError(t, err)
	assert.Contains(t, out, "Available profiles:")
	assert.Contains(t, out, "  default: 4 beats\n")
	assert.Contains(t, out, "  teaser (Teaser): 2 beats, 2 skipped\n")
	assert.Contains(t, out, "    Thirty second hook\n")
}

func TestQueryCommand_RequiresQuestion(t *testing.T) {
	_, err := run(t, "query", samplePath)
	assert.ErrorContains(t, err, "a question is required")
}

func TestLLMOptions(t *testing.T) {
	a := &app{cfg: &config.Config{Provider: "anthropic", Model: "claude-test"}}

	opts, err := a.llmOptions("", "")
	require.NoError(t, err)
	assert.Equal(t, llm.Options{Provider: llm.Anthropic, Model: "claude-test"}, opts)

	opts, err = a.llmOptions("groq", "")
	require.NoError(t, err)
	assert.Equal(t, llm.Options{Provider: llm.Groq}, opts)

	opts, err = a.llmOptions("", "claude-other")
	require.NoError(t, err)
	assert.Equal(t, "claude-other", opts.Model)

	_, err = a.llmOptions("cohere", "")
	assert.Error(t, err)
}

func TestCleanTags(t *testing.T) {
	assert.Equal(t, []string{"concept", "demo"}, cleanTags([]string{" concept", "", "demo "}))
	assert.Nil(t, cleanTags(nil))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "text/html; charset=utf-8", contentType(query.FormatHTML))
	assert.Equal(t, "text/plain; charset=utf-8", contentType(query.FormatText))
}
