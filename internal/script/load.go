package script

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// maxScriptSize caps script files and HTTP bodies (25 MB).
	maxScriptSize = 25 * 1024 * 1024

	// LoadTimeout bounds fetching a script over HTTP.
	LoadTimeout = 30 * time.Second
)

// SourceType identifies where a script is loaded from.
type SourceType string

const (
	SourceFile SourceType = "file"
	SourceURL  SourceType = "url"
	SourceS3   SourceType = "s3"
)

func (s SourceType) String() string {
	return string(s)
}

// DetectSource classifies a script location.
func DetectSource(input string) SourceType {
	switch {
	case strings.HasPrefix(input, "http://") || strings.HasPrefix(input, "https://"):
		return SourceURL
	case strings.HasPrefix(input, "s3://"):
		return SourceS3
	default:
		return SourceFile
	}
}

// ObjectStore reads and writes script objects in a bucket.
type ObjectStore interface {
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) error
}

// LoadError reports a script that could not be read or parsed.
type LoadError struct {
	Source string
	Err    error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load script %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Loader reads scripts from files, HTTP(S) URLs and object storage.
type Loader struct {
	httpClient *http.Client
	objects    ObjectStore
}

// NewLoader creates a Loader. objects may be nil when s3:// sources are not
// needed.
func NewLoader(httpClient *http.Client, objects ObjectStore) *Loader {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: LoadTimeout}
	}
	return &Loader{httpClient: httpClient, objects: objects}
}

// Load reads, decodes and validates a script.
func (l *Loader) Load(ctx context.Context, source string) (*Script, error) {
	data, err := l.read(ctx, source)
	if err != nil {
		return nil, &LoadError{Source: source, Err: err}
	}
	s, err := Parse(data, isYAML(source))
	if err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			verr.Source = source
			return nil, verr
		}
		return nil, &LoadError{Source: source, Err: err}
	}
	return s, nil
}

// Save writes s as indented JSON to a local path or s3:// URL.
func (l *Loader) Save(ctx context.Context, s any, dest string) error {
	data, err := Marshal(s)
	if err != nil {
		return err
	}
	return l.write(ctx, data, dest, "application/json")
}

// SaveText writes plain text output (summaries) the same way Save writes
// scripts.
func (l *Loader) SaveText(ctx context.Context, text, dest, contentType string) error {
	return l.write(ctx, []byte(text), dest, contentType)
}

func (l *Loader) write(ctx context.Context, data []byte, dest, contentType string) error {
	if DetectSource(dest) == SourceS3 {
		if l.objects == nil {
			return fmt.Errorf("write %s: object storage not configured", dest)
		}
		bucket, key, err := ParseS3URL(dest)
		if err != nil {
			return err
		}
		if err := l.objects.Put(ctx, bucket, key, data, contentType); err != nil {
			return fmt.Errorf("write %s: %w", dest, err)
		}
		return nil
	}
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return nil
}

// Marshal renders a script (or any processed output) as indented JSON with a
// trailing newline.
func Marshal(v any) ([]byte, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal script: %w", err)
	}
	return append(data, '\n'), nil
}

// Parse decodes script bytes (JSON, or YAML when fromYAML is set) and
// validates the result.
func Parse(data []byte, fromYAML bool) (*Script, error) {
	if fromYAML {
		converted, err := yamlToJSON(data)
		if err != nil {
			return nil, err
		}
		data = converted
	}

	var s Script
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&s); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, &ValidationError{Issues: []string{
				fmt.Sprintf("%s: expected %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value),
			}}
		}
		return nil, fmt.Errorf("parse script: %w", err)
	}
	if err := Validate(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (l *Loader) read(ctx context.Context, source string) ([]byte, error) {
	switch DetectSource(source) {
	case SourceURL:
		return l.fetch(ctx, source)
	case SourceS3:
		if l.objects == nil {
			return nil, fmt.Errorf("object storage not configured")
		}
		bucket, key, err := ParseS3URL(source)
		if err != nil {
			return nil, err
		}
		return l.objects.Get(ctx, bucket, key)
	default:
		return readFile(source)
	}
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, LoadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	req.Header.Set("Accept", "application/json, application/yaml;q=0.9, */*;q=0.5")

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxScriptSize+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(data) > maxScriptSize {
		return nil, fmt.Errorf("response too large (max %d MB)", maxScriptSize/(1024*1024))
	}
	return data, nil
}

func readFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("cannot access %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory, not a file", path)
	}
	if info.Size() > maxScriptSize {
		return nil, fmt.Errorf("%s is too large (%d MB, max %d MB)", path, info.Size()/(1024*1024), maxScriptSize/(1024*1024))
	}
	return os.ReadFile(path)
}

// ParseS3URL splits s3://bucket/key.
func ParseS3URL(u string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(u, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 URL: %s", u)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" {
		return "", "", fmt.Errorf("s3 URL must be s3://bucket/key: %s", u)
	}
	return bucket, key, nil
}

func isYAML(source string) bool {
	if i := strings.IndexAny(source, "?#"); i >= 0 && DetectSource(source) == SourceURL {
		source = source[:i]
	}
	ext := strings.ToLower(filepath.Ext(source))
	return ext == ".yaml" || ext == ".yml"
}

// yamlToJSON re-encodes a YAML document as JSON so a single decoder (and its
// type errors) handles both formats.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	out, err := json.Marshal(normalizeYAML(doc))
	if err != nil {
		return nil, fmt.Errorf("convert yaml: %w", err)
	}
	return out, nil
}

// normalizeYAML turns map[any]any style nodes into JSON-compatible values.
func normalizeYAML(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			t[k] = normalizeYAML(val)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			m[fmt.Sprint(k)] = normalizeYAML(val)
		}
		return m
	case []any:
		for i, val := range t {
			t[i] = normalizeYAML(val)
		}
		return t
	default:
		return v
	}
}
