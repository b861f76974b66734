package config

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/mulmoprep/internal/llm"
)

func TestFromEnv_Defaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "scan", cfg.Extractor)
	assert.Equal(t, 8000, cfg.FetchMaxLength)
	assert.Equal(t, 3, cfg.LLMMaxAttempts)
	assert.Equal(t, time.Second, cfg.LLMBackoff)
	assert.Equal(t, "stdio", cfg.MCPTransport)
	assert.Equal(t, "127.0.0.1:8000", cfg.MCPAddr)
	assert.Empty(t, cfg.MCPAPIKey)
}

func TestResolveMCPAPIKey(t *testing.T) {
	t.Setenv("MCP_API_KEY", "")

	cfg := &Config{MCPTransport: "http", MCPAPIKey: "configured"}
	key, err := cfg.ResolveMCPAPIKey(nil)
	require.NoError(t, err)
	assert.Equal(t, "configured", key)

	cfg = &Config{MCPTransport: "http"}
	keys := &Keys{secrets: map[string]string{MCPAPIKeyName: "from-secret"}}
	key, err = cfg.ResolveMCPAPIKey(keys)
	require.NoError(t, err)
	assert.Equal(t, "from-secret", key)

	_, err = cfg.ResolveMCPAPIKey(nil)
	assert.ErrorContains(t, err, "MULMOPREP_MCP_API_KEY is required")

	cfg = &Config{MCPTransport: "stdio"}
	key, err = cfg.ResolveMCPAPIKey(nil)
	require.NoError(t, err)
	assert.Empty(t, key)
}

func TestFromEnv_PrefixedOverrides(t *testing.T) {
	t.Setenv("MULMOPREP_PROVIDER", "anthropic")
	t.Setenv("MULMOPREP_EXTRACTOR", "readability")
	t.Setenv("MULMOPREP_LLM_BACKOFF", "250ms")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "anthropic", cfg.Provider)
	assert.Equal(t, "readability", cfg.Extractor)
	assert.Equal(t, 250*time.Millisecond, cfg.LLMBackoff)
}

func TestFromEnv_Invalid(t *testing.T) {
	tests := map[string]string{
		"MULMOPREP_PROVIDER":         "cohere",
		"MULMOPREP_EXTRACTOR":        "magic",
		"MULMOPREP_FETCH_MAX_LENGTH": "0",
		"MULMOPREP_LLM_MAX_ATTEMPTS": "0",
		"MULMOPREP_MCP_TRANSPORT":    "sse",
	}
	for name, value := range tests {
		t.Run(name, func(t *testing.T) {
			t.Setenv(name, value)
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestLoad_ReadsDotEnv(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("MULMOPREP_MODEL=gpt-4o\n"), 0o644))
	t.Chdir(dir)
	t.Cleanup(func() { os.Unsetenv("MULMOPREP_MODEL") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", cfg.Model)
}

type fakeSecrets struct {
	values map[string]string
	asked  []string
}

func (f *fakeSecrets) GetSecretValue(_ context.Context, in *secretsmanager.GetSecretValueInput, _ ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	id := aws.ToString(in.SecretId)
	f.asked = append(f.asked, id)
	v, ok := f.values[id]
	if !ok {
		return nil, errors.New("ResourceNotFoundException")
	}
	return &secretsmanager.GetSecretValueOutput{SecretString: aws.String(v)}, nil
}

func TestLoadKeys(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "from-env")
	t.Setenv("ANTHROPIC_API_KEY", "")
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")

	t.Setenv("MCP_API_KEY", "")

	client := &fakeSecrets{values: map[string]string{
		"/mulmoprep/ANTHROPIC_API_KEY": "from-secret",
		"/mulmoprep/MCP_API_KEY":       "mcp-secret",
	}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	keys := LoadKeys(context.Background(), client, "/mulmoprep/", llm.DefaultConfig().Providers, logger, MCPAPIKeyName)

	assert.NotContains(t, client.asked, "/mulmoprep/OPENAI_API_KEY")
	assert.Contains(t, client.asked, "/mulmoprep/GROQ_API_KEY")

	v, ok := keys.Lookup("OPENAI_API_KEY")
	assert.True(t, ok)
	assert.Equal(t, "from-env", v)

	v, ok = keys.Lookup("ANTHROPIC_API_KEY")
	assert.True(t, ok)
	assert.Equal(t, "from-secret", v)

	_, ok = keys.Lookup("GEMINI_API_KEY")
	assert.False(t, ok)

	v, ok = keys.Lookup(MCPAPIKeyName)
	assert.True(t, ok)
	assert.Equal(t, "mcp-secret", v)
}

func TestKeys_NilLookup(t *testing.T) {
	t.Setenv("GROQ_API_KEY", "g")
	var keys *Keys

	v, ok := keys.Lookup("GROQ_API_KEY")
	assert.True(t, ok)
	assert.Equal(t, "g", v)

	_, ok = keys.Lookup("MULMOPREP_DEFINITELY_UNSET")
	assert.False(t, ok)
}

func TestLLMConfig(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)
	cfg.LLMMaxAttempts = 5

	lc := cfg.LLMConfig(nil)
	assert.Equal(t, 5, lc.MaxAttempts)
	assert.Len(t, lc.Providers, 4)
	require.NotNil(t, lc.LookupKey)
}
