package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/apresai/mulmoprep/internal/ingest"
	"github.com/apresai/mulmoprep/internal/llm"
	"github.com/apresai/mulmoprep/internal/observability"
	"github.com/apresai/mulmoprep/internal/query"
	"github.com/apresai/mulmoprep/internal/script"
)

var scriptParams = map[string]any{
	"script": map[string]any{
		"type":        "string",
		"description": "Script location: http(s) URL, s3://bucket/key, or a file path (stdio transport only)",
	},
	"script_json": map[string]any{
		"type":        "string",
		"description": "Inline script JSON (alternative to script)",
	},
}

var filterParams = map[string]any{
	"section": map[string]any{
		"type":        "string",
		"description": "Only include beats whose meta.section equals this value",
	},
	"tags": map[string]any{
		"type":        "array",
		"items":       map[string]any{"type": "string"},
		"description": "Only include beats carrying at least one of these tags",
	},
}

var llmParams = map[string]any{
	"provider": map[string]any{
		"type":        "string",
		"description": "LLM provider: openai, anthropic, groq, gemini",
	},
	"model": map[string]any{
		"type":        "string",
		"description": "Model override (provider default when empty)",
	},
	"lang": map[string]any{
		"type":        "string",
		"description": "Answer language code, e.g. en, ja",
	},
}

func props(groups ...map[string]any) map[string]any {
	out := map[string]any{}
	for _, g := range groups {
		for k, v := range g {
			out[k] = v
		}
	}
	return out
}

// ToolDefs returns the MCP tool definitions.
func ToolDefs() []mcp.Tool {
	return []mcp.Tool{
		{
			Name:        "process_script",
			Description: "Apply an output profile and optional section/tag filters to a script. Returns the resulting base-format script JSON with all profile annotations removed.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: props(scriptParams, filterParams, map[string]any{
					"profile": map[string]any{
						"type":        "string",
						"description": "Profile name (default: the unmodified script)",
						"default":     script.DefaultProfile,
					},
				}),
			},
		},
		{
			Name:        "list_profiles",
			Description: "List the profiles a script defines with beat and skip counts, plus its sections and tags.",
			InputSchema: mcp.ToolInputSchema{
				Type:       "object",
				Properties: props(scriptParams),
			},
		},
		{
			Name:        "summarize_script",
			Description: "Summarize the (optionally filtered) script content with an LLM.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: props(scriptParams, filterParams, llmParams, map[string]any{
					"format": map[string]any{
						"type":        "string",
						"description": "Output format: text, markdown, html",
						"default":     "text",
					},
					"target_length": map[string]any{
						"type":        "integer",
						"description": "Approximate summary length in characters",
					},
				}),
			},
		},
		{
			Name:        "query_script",
			Description: "Answer a question using only the (optionally filtered) script content.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: props(scriptParams, filterParams, llmParams, map[string]any{
					"question": map[string]any{
						"type":        "string",
						"description": "The question to answer",
					},
				}),
				Required: []string{"question"},
			},
		},
		{
			Name:        "fetch_reference",
			Description: "Fetch a reference URL and return its extracted text. Pass url directly, or script plus reference words to pick one of the script's references.",
			InputSchema: mcp.ToolInputSchema{
				Type: "object",
				Properties: props(scriptParams, map[string]any{
					"url": map[string]any{
						"type":        "string",
						"description": "URL to fetch",
					},
					"reference": map[string]any{
						"type":        "string",
						"description": "Words matched against the script's reference titles, descriptions and URLs",
					},
					"max_length": map[string]any{
						"type":        "integer",
						"description": "Maximum characters of content to return",
						"default":     ingest.DefaultMaxLength,
					},
				}),
			},
		},
	}
}

// Handlers contains tool handler implementations.
type Handlers struct {
	deps Deps
	cfg  Config
	log  *slog.Logger
}

// NewHandlers creates tool handlers.
func NewHandlers(deps Deps, cfg Config, logger *slog.Logger) *Handlers {
	return &Handlers{deps: deps, cfg: cfg, log: logger}
}

// instrument wraps a handler with a span, metrics and a log line.
func (h *Handlers) instrument(name string, fn server.ToolHandlerFunc) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := observability.StartSpan(ctx, "tool."+name, spanAttrs(req)...)
		defer span.End()

		start := time.Now()
		result, err := fn(ctx, req)
		elapsed := time.Since(start)

		outcome := "ok"
		switch {
		case err != nil:
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		case result != nil && result.IsError:
			outcome = "tool_error"
			span.SetStatus(codes.Error, "tool error")
		}
		toolCallsTotal.WithLabelValues(name, outcome).Inc()
		toolDuration.WithLabelValues(name).Observe(elapsed.Seconds())
		attrs := []any{"tool", name, "outcome", outcome, "elapsed_ms", elapsed.Milliseconds()}
		if auth := AuthFromContext(ctx); auth.Authenticated {
			attrs = append(attrs, "key_id", auth.KeyID)
		}
		h.log.InfoContext(ctx, "Tool call", attrs...)
		return result, err
	}
}

// HandleProcessScript applies a profile and filters.
func (h *Handlers) HandleProcessScript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, errResult := h.loadScript(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	opts := script.ProcessOptions{
		Profile: mcp.ParseString(req, "profile", ""),
		Section: mcp.ParseString(req, "section", ""),
		Tags:    parseStrings(req, "tags"),
	}
	out := script.ProcessScript(s, opts)
	h.log.InfoContext(ctx, "Script processed", "profile", opts.Profile, "beats_in", len(s.Beats), "beats_out", len(out.Beats))
	return jsonResult(out)
}

// HandleListProfiles returns the profile catalog.
func (h *Handlers) HandleListProfiles(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, errResult := h.loadScript(ctx, req)
	if errResult != nil {
		return errResult, nil
	}

	result := map[string]any{
		"title":    s.TitleOrDefault(),
		"profiles": script.ListProfiles(s),
		"sections": script.Sections(s),
		"tags":     script.Tags(s),
	}
	return jsonResult(result)
}

// HandleSummarizeScript generates a summary.
func (h *Handlers) HandleSummarizeScript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s, errResult := h.loadScript(ctx, req)
	if errResult != nil {
		return errResult, nil
	}
	opts, err := h.queryOptions(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := query.Summarize(ctx, h.deps.LLM, s, query.SummarizeOptions{
		Options:           opts,
		Format:            query.Format(mcp.ParseString(req, "format", "")),
		TargetLengthChars: parseIntParam(req, "target_length", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to summarize: %v", err)), nil
	}
	return jsonResult(res)
}

// HandleQueryScript answers one question.
func (h *Handlers) HandleQueryScript(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question := strings.TrimSpace(mcp.ParseString(req, "question", ""))
	if question == "" {
		return mcp.NewToolResultError("question is required"), nil
	}
	s, errResult := h.loadScript(ctx, req)
	if errResult != nil {
		return errResult, nil
	}
	opts, err := h.queryOptions(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := query.Query(ctx, h.deps.LLM, s, question, opts)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to answer: %v", err)), nil
	}
	return jsonResult(res)
}

// HandleFetchReference fetches a URL, or resolves reference words against
// the script's declared references first.
func (h *Handlers) HandleFetchReference(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	target := mcp.ParseString(req, "url", "")
	if target == "" {
		words := mcp.ParseString(req, "reference", "")
		if words == "" {
			return mcp.NewToolResultError("either url or reference is required"), nil
		}
		s, errResult := h.loadScript(ctx, req)
		if errResult != nil {
			return errResult, nil
		}
		ref := query.FindMatchingReference(s.ReferenceList(), words)
		if ref == nil {
			return mcp.NewToolResultError("No matching reference found for: " + words), nil
		}
		target = ref.URL
	}

	if err := ingest.CheckPublicURL(target); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Refusing to fetch %s: %v", target, err)), nil
	}

	maxLength := parseIntParam(req, "max_length", h.cfg.FetchMaxLength)
	fc := h.deps.Fetcher.FetchURLContent(ctx, target, maxLength)
	if !fc.OK() {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to fetch %s: %s", target, fc.Error)), nil
	}
	return jsonResult(fc)
}

// loadScript reads script_json or loads script. The second return is a
// tool error result when the script is unusable.
func (h *Handlers) loadScript(ctx context.Context, req mcp.CallToolRequest) (*script.Script, *mcp.CallToolResult) {
	if inline := mcp.ParseString(req, "script_json", ""); inline != "" {
		s, err := script.Parse([]byte(inline), false)
		if err != nil {
			return nil, mcp.NewToolResultError(fmt.Sprintf("invalid script_json: %v", err))
		}
		return s, nil
	}

	source := mcp.ParseString(req, "script", "")
	if source == "" {
		return nil, mcp.NewToolResultError("either script or script_json is required")
	}
	if h.cfg.Transport != TransportStdio {
		switch script.DetectSource(source) {
		case script.SourceFile:
			return nil, mcp.NewToolResultError("local file paths are not accepted over http; use an http(s):// or s3:// URL, or script_json")
		case script.SourceURL:
			if err := ingest.CheckPublicURL(source); err != nil {
				return nil, mcp.NewToolResultError(fmt.Sprintf("failed to load script: %v", err))
			}
		}
	}
	s, err := h.deps.Loader.Load(ctx, source)
	if err != nil {
		var verr *script.ValidationError
		if errors.As(err, &verr) {
			return nil, mcp.NewToolResultError(verr.Error())
		}
		return nil, mcp.NewToolResultError(fmt.Sprintf("failed to load script: %v", err))
	}
	return s, nil
}

func (h *Handlers) queryOptions(req mcp.CallToolRequest) (query.Options, error) {
	provider := h.cfg.Provider
	if name := mcp.ParseString(req, "provider", ""); name != "" {
		p, err := llm.ParseProvider(name)
		if err != nil {
			return query.Options{}, err
		}
		provider = p
	}
	model := mcp.ParseString(req, "model", "")
	if model == "" && provider == h.cfg.Provider {
		model = h.cfg.Model
	}
	opts := query.Options{
		LLM:     llm.Options{Provider: provider, Model: model},
		Lang:    mcp.ParseString(req, "lang", ""),
		Section: mcp.ParseString(req, "section", ""),
		Tags:    parseStrings(req, "tags"),
		Logger:  h.log,
	}
	return opts, opts.Validate()
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func parseIntParam(req mcp.CallToolRequest, key string, defaultVal int) int {
	args := req.GetArguments()
	if args == nil {
		return defaultVal
	}
	raw, ok := args[key]
	if !ok {
		return defaultVal
	}
	switch v := raw.(type) {
	case float64:
		return int(v)
	case int:
		return v
	default:
		return defaultVal
	}
}

// parseStrings accepts a JSON string array or a comma-separated string.
func parseStrings(req mcp.CallToolRequest, key string) []string {
	args := req.GetArguments()
	if args == nil {
		return nil
	}
	var out []string
	switch v := args[key].(type) {
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case []string:
		for _, s := range v {
			if strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	case string:
		for _, s := range strings.Split(v, ",") {
			if strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
	}
	return out
}

func spanAttrs(req mcp.CallToolRequest) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String("script", mcp.ParseString(req, "script", "")),
		attribute.Bool("script.inline", mcp.ParseString(req, "script_json", "") != ""),
	}
}
