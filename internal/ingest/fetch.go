package ingest

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"

	"github.com/apresai/mulmoprep/internal/observability"
)

const (
	// FetchTimeout bounds one fetch, including reading the body.
	FetchTimeout = 30 * time.Second

	userAgent    = "Mozilla/5.0 (compatible; MulmoCast/1.0; +https://github.com/receptron/mulmocast)"
	acceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
)

// Fetcher downloads reference URLs and extracts their text.
type Fetcher struct {
	client    *http.Client
	extractor Extractor
	maxBytes  int64
	logger    *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the traced default client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithExtractor selects how HTML pages are reduced to text.
func WithExtractor(e Extractor) Option {
	return func(f *Fetcher) { f.extractor = e }
}

func WithLogger(l *slog.Logger) Option {
	return func(f *Fetcher) { f.logger = l }
}

// NewHTTPClient returns a client whose requests carry trace context.
func NewHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

// NewFetcher creates a Fetcher using the scan extractor unless configured
// otherwise.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    NewHTTPClient(FetchTimeout),
		extractor: ScanExtractor{},
		maxBytes:  maxBodySize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchURLContent downloads rawURL and returns at most maxLength characters
// of text (maxLength <= 0 means DefaultMaxLength). HTML and PDF content that
// is cut gets a trailing "...". Every failure is reported in the result.
func (f *Fetcher) FetchURLContent(ctx context.Context, rawURL string, maxLength int) (result FetchedContent) {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}

	ctx, span := observability.StartSpan(ctx, "ingest.fetch", attribute.String("url.full", rawURL))
	start := time.Now()
	defer func() {
		fetchDuration.Observe(time.Since(start).Seconds())
		fetchesTotal.WithLabelValues(outcome(result)).Inc()
		span.SetAttributes(
			attribute.Int("content.length", len(result.Content)),
			attribute.Bool("content.truncated", result.Truncated),
		)
		if result.Error != "" {
			span.SetAttributes(attribute.String("fetch.error", result.Error))
		}
		span.End()
	}()

	f.logger.DebugContext(ctx, "fetching url", "url", rawURL)

	ctx, cancel := context.WithTimeout(ctx, FetchTimeout)
	defer cancel()

	pageURL, err := url.Parse(rawURL)
	if err != nil {
		return failed(rawURL, "", "invalid URL: %v", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return failed(rawURL, "", "%v", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := f.client.Do(req)
	if err != nil {
		return failed(rawURL, "", "%v", err)
	}
	defer resp.Body.Close()

	contentType := resp.Header.Get("Content-Type")
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return failed(rawURL, contentType, "HTTP %d: %s", resp.StatusCode, statusText(resp))
	}

	kind := classify(contentType)
	if kind == kindUnsupported {
		return failed(rawURL, contentType, "Unsupported content type: %s", contentType)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return failed(rawURL, contentType, "read response: %v", err)
	}

	result = FetchedContent{URL: rawURL, ContentType: contentType}
	switch kind {
	case kindPlain:
		result.Content, result.Truncated = truncate(string(body), maxLength)
		return result
	case kindPDF:
		title, text, err := extractPDF(body)
		if err != nil {
			return failed(rawURL, contentType, "%v", err)
		}
		result.Title, result.Content = title, text
	default:
		result.Title, result.Content = f.extractor.Extract(string(body), pageURL)
	}

	extracted := len(result.Content)
	if cut, ok := truncate(result.Content, maxLength); ok {
		result.Content, result.Truncated = cut+"...", true
	}
	f.logger.DebugContext(ctx, "fetched url", "url", rawURL, "chars", extracted, "truncated", result.Truncated)
	return result
}

type contentKind int

const (
	kindUnsupported contentKind = iota
	kindHTML
	kindPlain
	kindPDF
)

func classify(contentType string) contentKind {
	ct := strings.ToLower(contentType)
	switch {
	case strings.Contains(ct, "text/html"), strings.Contains(ct, "application/xhtml+xml"):
		return kindHTML
	case strings.Contains(ct, "text/plain"):
		return kindPlain
	case strings.Contains(ct, "application/pdf"):
		return kindPDF
	default:
		return kindUnsupported
	}
}

// statusText prefers the server's reason phrase.
func statusText(resp *http.Response) string {
	if reason := strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "); reason != "" && reason != resp.Status {
		return reason
	}
	return http.StatusText(resp.StatusCode)
}

func outcome(c FetchedContent) string {
	switch {
	case c.Error == "":
		return "ok"
	case strings.HasPrefix(c.Error, "HTTP "):
		return "http_error"
	case strings.HasPrefix(c.Error, "Unsupported content type"):
		return "unsupported"
	default:
		return "error"
	}
}
