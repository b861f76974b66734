// Package llm sends a single system+user prompt pair to one of the
// supported chat providers and returns the reply text.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/apresai/mulmoprep/internal/observability"
)

// Provider names a chat completion backend.
type Provider string

const (
	OpenAI    Provider = "openai"
	Anthropic Provider = "anthropic"
	Groq      Provider = "groq"
	Gemini    Provider = "gemini"
)

// Providers lists every supported provider in display order.
var Providers = []Provider{OpenAI, Anthropic, Groq, Gemini}

const (
	DefaultTemperature = 0.7
	DefaultMaxTokens   = 4096
	MaxTemperature     = 2.0
)

// ParseProvider validates a provider name. "" selects OpenAI.
func ParseProvider(s string) (Provider, error) {
	if s == "" {
		return OpenAI, nil
	}
	p := Provider(strings.ToLower(s))
	for _, known := range Providers {
		if p == known {
			return p, nil
		}
	}
	return "", &ConfigError{Provider: s, Msg: fmt.Sprintf("unknown provider %q (valid: openai, anthropic, groq, gemini)", s)}
}

// ProviderConfig describes how to reach one provider.
type ProviderConfig struct {
	DefaultModel string
	KeyEnv       string
	MaxTokens    int
	// BaseURL overrides the provider endpoint. Empty means the public API.
	BaseURL string
}

// Config is passed explicitly to New; there is no package-level provider
// state.
type Config struct {
	Providers map[Provider]ProviderConfig
	// LookupKey resolves an API key variable name. Defaults to os.LookupEnv.
	LookupKey      func(name string) (string, bool)
	HTTPClient     *http.Client
	MaxAttempts    int
	InitialBackoff time.Duration
	Logger         *slog.Logger
}

// DefaultConfig returns the stock provider table.
func DefaultConfig() Config {
	return Config{
		Providers: map[Provider]ProviderConfig{
			OpenAI:    {DefaultModel: "gpt-4o-mini", KeyEnv: "OPENAI_API_KEY", MaxTokens: DefaultMaxTokens},
			Anthropic: {DefaultModel: "claude-sonnet-4-20250514", KeyEnv: "ANTHROPIC_API_KEY", MaxTokens: DefaultMaxTokens},
			Groq:      {DefaultModel: "llama-3.1-8b-instant", KeyEnv: "GROQ_API_KEY", MaxTokens: DefaultMaxTokens, BaseURL: groqBaseURL},
			Gemini:    {DefaultModel: "gemini-2.0-flash", KeyEnv: "GEMINI_API_KEY", MaxTokens: DefaultMaxTokens},
		},
		LookupKey:      os.LookupEnv,
		MaxAttempts:    3,
		InitialBackoff: time.Second,
	}
}

// Options selects the provider and sampling parameters for one call. Zero
// values fall back to the provider defaults.
type Options struct {
	Provider    Provider
	Model       string
	Temperature *float64
	MaxTokens   int
}

// Validate checks ranges without resolving API keys.
func (o Options) Validate() error {
	if _, err := ParseProvider(string(o.Provider)); err != nil {
		return err
	}
	if o.Temperature != nil && (*o.Temperature < 0 || *o.Temperature > MaxTemperature) {
		return &ConfigError{Provider: string(o.Provider), Msg: fmt.Sprintf("temperature must be between 0 and %.0f, got %g", MaxTemperature, *o.Temperature)}
	}
	if o.MaxTokens < 0 {
		return &ConfigError{Provider: string(o.Provider), Msg: fmt.Sprintf("maxTokens must be positive, got %d", o.MaxTokens)}
	}
	return nil
}

// Float returns a pointer to v, for Options.Temperature.
func Float(v float64) *float64 {
	return &v
}

// ConfigError reports a provider that cannot be used. It is returned before
// any network call.
type ConfigError struct {
	Provider string
	KeyEnv   string
	Msg      string
}

func (e *ConfigError) Error() string {
	if e.KeyEnv != "" {
		return fmt.Sprintf("API key not found for provider %q. Please set the %s environment variable.", e.Provider, e.KeyEnv)
	}
	return e.Msg
}

// Client is the (system, user, options) -> text boundary the query and
// summarize commands depend on.
type Client interface {
	Complete(ctx context.Context, system, user string, opts Options) (string, error)
}

// request is a fully resolved call.
type request struct {
	System      string
	User        string
	Model       string
	Temperature float64
	MaxTokens   int
}

type backend interface {
	complete(ctx context.Context, req request) (string, error)
}

var errEmptyResponse = errors.New("empty response")

// Router dispatches Complete to the selected provider.
type Router struct {
	cfg    Config
	logger *slog.Logger
}

// New creates a Router. Unset Config fields take DefaultConfig values.
func New(cfg Config) *Router {
	def := DefaultConfig()
	if cfg.Providers == nil {
		cfg.Providers = def.Providers
	}
	if cfg.LookupKey == nil {
		cfg.LookupKey = def.LookupKey
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 120 * time.Second}
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{cfg: cfg, logger: logger}
}

// Complete sends the prompts to the provider chosen in opts, retrying
// transient failures with exponential backoff.
func (r *Router) Complete(ctx context.Context, system, user string, opts Options) (string, error) {
	if err := opts.Validate(); err != nil {
		return "", err
	}
	provider, _ := ParseProvider(string(opts.Provider))
	pc, ok := r.cfg.Providers[provider]
	if !ok {
		return "", &ConfigError{Provider: string(provider), Msg: fmt.Sprintf("provider %q is not configured", provider)}
	}
	key, ok := r.cfg.LookupKey(pc.KeyEnv)
	if !ok || key == "" {
		return "", &ConfigError{Provider: string(provider), KeyEnv: pc.KeyEnv}
	}

	req := resolve(system, user, opts, pc)
	b := r.backend(provider, pc, key)

	ctx, span := observability.StartSpan(ctx, "llm.complete",
		attribute.String("llm.provider", string(provider)),
		attribute.String("llm.model", req.Model),
		attribute.Int("llm.max_tokens", req.MaxTokens),
	)

	if r.logger.Enabled(ctx, slog.LevelDebug) {
		r.logger.DebugContext(ctx, "calling llm",
			"provider", provider,
			"model", req.Model,
			"prompt_tokens_est", EstimateTokens(req.Model, system+"\n"+user),
		)
	}
	r.logger.Log(ctx, observability.LevelTrace, "llm prompt", "system", system, "user", user)

	start := time.Now()
	text, err := retry(ctx, r.cfg.MaxAttempts, r.cfg.InitialBackoff, func(ctx context.Context) (string, error) {
		text, err := b.complete(ctx, req)
		if err == nil && strings.TrimSpace(text) == "" {
			err = errEmptyResponse
		}
		return text, err
	})
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
		err = fmt.Errorf("%s completion: %w", provider, err)
	}
	requestsTotal.WithLabelValues(string(provider), outcome).Inc()
	requestDuration.WithLabelValues(string(provider)).Observe(elapsed.Seconds())
	observability.EndSpan(span, err)

	if err != nil {
		return "", err
	}
	r.logger.DebugContext(ctx, "llm responded", "provider", provider, "chars", len(text), "elapsed_ms", elapsed.Milliseconds())
	return text, nil
}

func (r *Router) backend(p Provider, pc ProviderConfig, key string) backend {
	switch p {
	case Anthropic:
		return newAnthropicBackend(key, pc.BaseURL, r.cfg.HTTPClient)
	case Gemini:
		return newGeminiBackend(key, pc.BaseURL, r.cfg.HTTPClient)
	default:
		return newOpenAIBackend(key, pc.BaseURL, r.cfg.HTTPClient)
	}
}

func resolve(system, user string, opts Options, pc ProviderConfig) request {
	req := request{
		System:      system,
		User:        user,
		Model:       opts.Model,
		Temperature: DefaultTemperature,
		MaxTokens:   opts.MaxTokens,
	}
	if req.Model == "" {
		req.Model = pc.DefaultModel
	}
	if opts.Temperature != nil {
		req.Temperature = *opts.Temperature
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = pc.MaxTokens
	}
	if req.MaxTokens == 0 {
		req.MaxTokens = DefaultMaxTokens
	}
	return req
}
