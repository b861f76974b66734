// Package config loads process configuration from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/apresai/mulmoprep/internal/ingest"
	"github.com/apresai/mulmoprep/internal/llm"
)

// Prefix is prepended to every variable name. Unprefixed names are accepted
// as a fallback.
const Prefix = "MULMOPREP"

// Config holds settings shared by the CLI and the MCP server.
type Config struct {
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	Environment string `envconfig:"ENVIRONMENT" default:"development"`

	// LLM defaults, overridden by command flags.
	Provider       string        `envconfig:"PROVIDER" default:"openai"`
	Model          string        `envconfig:"MODEL"`
	LLMMaxAttempts int           `envconfig:"LLM_MAX_ATTEMPTS" default:"3"`
	LLMBackoff     time.Duration `envconfig:"LLM_BACKOFF" default:"1s"`

	// Reference fetching.
	Extractor      string `envconfig:"EXTRACTOR" default:"scan"`
	FetchMaxLength int    `envconfig:"FETCH_MAX_LENGTH" default:"8000"`

	// AWS: region for S3 scripts and Secrets Manager key lookup.
	AWSRegion    string `envconfig:"AWS_REGION" default:"us-east-1"`
	SecretPrefix string `envconfig:"SECRET_PREFIX"`

	// MCP server. The http transport requires MCP_API_KEY, from the
	// environment or Secrets Manager under SecretPrefix.
	MCPTransport string `envconfig:"MCP_TRANSPORT" default:"stdio"`
	MCPAddr      string `envconfig:"MCP_ADDR" default:"127.0.0.1:8000"`
	MCPAPIKey    string `envconfig:"MCP_API_KEY"`
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}
	return FromEnv()
}

// FromEnv reads the environment only.
func FromEnv() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects values that would only fail later, mid-command.
func (c *Config) Validate() error {
	if _, err := llm.ParseProvider(c.Provider); err != nil {
		return fmt.Errorf("%s_PROVIDER: %w", Prefix, err)
	}
	if _, err := ingest.NewExtractor(c.Extractor); err != nil {
		return fmt.Errorf("%s_EXTRACTOR: %w", Prefix, err)
	}
	if c.FetchMaxLength <= 0 {
		return fmt.Errorf("%s_FETCH_MAX_LENGTH must be positive, got %d", Prefix, c.FetchMaxLength)
	}
	if c.LLMMaxAttempts < 1 {
		return fmt.Errorf("%s_LLM_MAX_ATTEMPTS must be at least 1, got %d", Prefix, c.LLMMaxAttempts)
	}
	switch c.MCPTransport {
	case "http", "stdio":
	default:
		return fmt.Errorf("%s_MCP_TRANSPORT must be http or stdio, got %q", Prefix, c.MCPTransport)
	}
	return nil
}

// MCPAPIKeyName is the Secrets Manager name (after SecretPrefix) and
// unprefixed environment variable holding the MCP server key.
const MCPAPIKeyName = "MCP_API_KEY"

// ResolveMCPAPIKey returns the configured key, falling back to keys.
func (c *Config) ResolveMCPAPIKey(keys *Keys) (string, error) {
	if c.MCPAPIKey != "" {
		return c.MCPAPIKey, nil
	}
	if v, ok := keys.Lookup(MCPAPIKeyName); ok {
		return v, nil
	}
	if c.MCPTransport == "http" {
		return "", fmt.Errorf("%s_%s is required for the http transport", Prefix, MCPAPIKeyName)
	}
	return "", nil
}

// LLMConfig builds the provider router configuration. keys, when non-nil,
// is consulted after the environment.
func (c *Config) LLMConfig(keys *Keys) llm.Config {
	cfg := llm.DefaultConfig()
	cfg.MaxAttempts = c.LLMMaxAttempts
	cfg.InitialBackoff = c.LLMBackoff
	cfg.LookupKey = keys.Lookup
	return cfg
}

// Keys resolves API keys from the environment first, then from values
// loaded out of Secrets Manager.
type Keys struct {
	secrets map[string]string
}

// Lookup satisfies llm.Config.LookupKey. It is safe on a nil *Keys.
func (k *Keys) Lookup(name string) (string, bool) {
	if v, ok := os.LookupEnv(name); ok && v != "" {
		return v, true
	}
	if k == nil {
		return "", false
	}
	v, ok := k.secrets[name]
	return v, ok && v != ""
}
