package ingest

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsPublicIP(t *testing.T) {
	tests := map[string]bool{
		"93.184.216.34":   true,
		"2606:4700::1111": true,
		"127.0.0.1":       false,
		"::1":             false,
		"10.0.0.1":        false,
		"172.16.5.4":      false,
		"192.168.1.1":     false,
		"169.254.169.254": false,
		"fe80::1":         false,
		"fd00::1":         false,
		"100.64.0.1":      false,
		"0.0.0.0":         false,
		"224.0.0.1":       false,
	}
	for addr, want := range tests {
		t.Run(addr, func(t *testing.T) {
			assert.Equal(t, want, IsPublicIP(net.ParseIP(addr)))
		})
	}
}

func TestCheckPublicURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr string
	}{
		{"https://example.com/docs", ""},
		{"http://93.184.216.34/", ""},
		{"http://169.254.169.254/latest/meta-data/", "not publicly routable"},
		{"http://127.0.0.1:8000/healthz", "not publicly routable"},
		{"http://[::1]/", "not publicly routable"},
		{"http://10.1.2.3/admin", "not publicly routable"},
		{"http://LOCALHOST./", "not publicly routable"},
		{"http://api.localhost/", "not publicly routable"},
		{"file:///etc/passwd", "unsupported url scheme"},
		{"gopher://example.com/", "unsupported url scheme"},
		{"http:///nohost", "no host"},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := CheckPublicURL(tt.url)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestPublicHTTPClient_RefusesLoopbackServer(t *testing.T) {
	srv := newTestServer(t)
	f := NewFetcher(WithHTTPClient(NewPublicHTTPClient(5 * time.Second)))

	got := f.FetchURLContent(context.Background(), srv.URL+"/page", 0)

	require.False(t, got.OK())
	assert.Contains(t, got.Error, "not publicly routable")
	assert.Empty(t, got.Content)
}
