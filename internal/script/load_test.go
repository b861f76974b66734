package script

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	objects map[string][]byte
}

func (m *memStore) Get(_ context.Context, bucket, key string) ([]byte, error) {
	data, ok := m.objects[bucket+"/"+key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return data, nil
}

func (m *memStore) Put(_ context.Context, bucket, key string, data []byte, _ string) error {
	if m.objects == nil {
		m.objects = map[string][]byte{}
	}
	m.objects[bucket+"/"+key] = data
	return nil
}

func TestDetectSource(t *testing.T) {
	assert.Equal(t, SourceURL, DetectSource("https://example.com/a.json"))
	assert.Equal(t, SourceURL, DetectSource("http://example.com/a.json"))
	assert.Equal(t, SourceS3, DetectSource("s3://bucket/a.json"))
	assert.Equal(t, SourceFile, DetectSource("./a.json"))
}

func TestParseS3URL(t *testing.T) {
	bucket, key, err := ParseS3URL("s3://scripts/team/demo.json")
	require.NoError(t, err)
	assert.Equal(t, "scripts", bucket)
	assert.Equal(t, "team/demo.json", key)

	_, _, err = ParseS3URL("s3://scripts")
	assert.Error(t, err)
	_, _, err = ParseS3URL("https://scripts/x")
	assert.Error(t, err)
}

func TestLoader_LoadFile(t *testing.T) {
	l := NewLoader(nil, nil)

	s, err := l.Load(context.Background(), "testdata/sample.json")

	require.NoError(t, err)
	assert.Equal(t, "GraphAI Overview", s.Title)
	assert.Len(t, s.Beats, 4)
	assert.Len(t, s.ReferenceList(), 2)
}

func TestLoader_LoadMissingFile(t *testing.T) {
	l := NewLoader(nil, nil)

	_, err := l.Load(context.Background(), filepath.Join(t.TempDir(), "nope.json"))

	var lerr *LoadError
	require.ErrorAs(t, err, &lerr)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoader_LoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "script.yaml")
	doc := `title: From YAML
lang: ja
beats:
  - id: one
    text: Hello
    variants:
      short:
        skip: true
    meta:
      section: intro
      tags: [greeting]
  - id: two
    text: World
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0644))

	s, err := NewLoader(nil, nil).Load(context.Background(), path)

	require.NoError(t, err)
	assert.Equal(t, "From YAML", s.Title)
	assert.Equal(t, []string{"World"}, beatTexts(ApplyProfile(s, "short")))
	assert.Equal(t, []string{"intro"}, Sections(s))
}

func TestLoader_LoadURL(t *testing.T) {
	data, err := os.ReadFile("testdata/sample.json")
	require.NoError(t, err)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sample.json" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	}))
	defer srv.Close()

	l := NewLoader(srv.Client(), nil)

	s, err := l.Load(context.Background(), srv.URL+"/sample.json")
	require.NoError(t, err)
	assert.Equal(t, "GraphAI Overview", s.Title)

	_, err = l.Load(context.Background(), srv.URL+"/missing.json")
	var lerr *LoadError
	require.ErrorAs(t, err, &lerr)
	assert.Contains(t, err.Error(), "HTTP error: 404 Not Found")
}

func TestLoader_S3RoundTrip(t *testing.T) {
	store := &memStore{}
	l := NewLoader(nil, store)
	s := loadSample(t)

	require.NoError(t, l.Save(context.Background(), ApplyProfile(s, "teaser"), "s3://out/teaser.json"))
	got, err := l.Load(context.Background(), "s3://out/teaser.json")

	require.NoError(t, err)
	assert.Equal(t, []string{"Check this out!", "Try it now!"}, beatTexts(got))
	assert.Nil(t, got.ScriptMeta)
}

func TestLoader_S3NotConfigured(t *testing.T) {
	l := NewLoader(nil, nil)

	_, err := l.Load(context.Background(), "s3://bucket/key.json")
	assert.ErrorContains(t, err, "object storage not configured")

	err = l.Save(context.Background(), &Script{}, "s3://bucket/key.json")
	assert.ErrorContains(t, err, "object storage not configured")
}

func TestLoader_SaveFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")

	require.NoError(t, NewLoader(nil, nil).Save(context.Background(), ListProfiles(loadSample(t)), path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  {\n")
	assert.Equal(t, byte('\n'), data[len(data)-1])
	assert.Contains(t, string(data), `"skippedCount": 2`)
}

func TestParse_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"missing beats", `{"title":"x"}`, "beats: required"},
		{"bad reference type", `{"beats":[],"scriptMeta":{"references":[{"type":"podcast","url":"https://x"}]}}`, `scriptMeta.references[0].type: "podcast" is not one of`},
		{"reference without url", `{"beats":[],"scriptMeta":{"references":[{"type":"web"}]}}`, "scriptMeta.references[0].url: required"},
		{"faq without answer", `{"beats":[],"scriptMeta":{"faq":[{"question":"why?"}]}}`, "scriptMeta.faq[0].answer: required"},
		{"skip is not boolean", `{"beats":[{"text":"a","variants":{"p":{"skip":"yes"}}}]}`, "skip"},
		{"duplicate beat ids", `{"beats":[{"id":"a","text":"1"},{"id":"a","text":"2"}]}`, `beats[1]: duplicate id "a"`},
		{"null variant image", `{"beats":[{"text":"a","image":{"type":"image"},"variants":{"p":{"image":null}}}]}`, "beats[0].variants.p.image: must not be null"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc), false)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_EmptyBeatsIsValid(t *testing.T) {
	s, err := Parse([]byte(`{"beats":[]}`), false)

	require.NoError(t, err)
	assert.Empty(t, s.Beats)
	assert.Equal(t, []ProfileInfo{{Name: "default"}}, ListProfiles(s))
}

func TestParse_MalformedJSON(t *testing.T) {
	_, err := Parse([]byte(`{"beats": [`), false)

	require.Error(t, err)
	var verr *ValidationError
	assert.False(t, errors.As(err, &verr))
}

func TestLoader_ValidationErrorCarriesSource(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"title":"no beats"}`), 0644))

	_, err := NewLoader(nil, nil).Load(context.Background(), path)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, path, verr.Source)
}
