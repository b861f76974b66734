package mcpserver

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAPIKeyAuth_EmptyKey(t *testing.T) {
	assert.Nil(t, NewAPIKeyAuth(""))
	assert.Nil(t, NewAPIKeyAuth("  "))
}

func TestValidateAPIKey(t *testing.T) {
	auth := NewAPIKeyAuth("secret-key")
	require.NotNil(t, auth)

	result := auth.ValidateAPIKey("Bearer secret-key")
	assert.True(t, result.Authenticated)
	assert.Len(t, result.KeyID, 8)
	assert.NotContains(t, result.KeyID, "secret")

	tests := map[string]string{
		"":                   "missing bearer token",
		"Bearer ":            "missing bearer token",
		"secret-key":         "missing bearer token",
		"Bearer secret-ke":   "invalid API key",
		"Bearer secret-key2": "invalid API key",
	}
	for header, want := range tests {
		t.Run(header, func(t *testing.T) {
			result := auth.ValidateAPIKey(header)
			assert.False(t, result.Authenticated)
			assert.ErrorContains(t, result.Error, want)
		})
	}
}

func TestMiddleware_StoresAuthResult(t *testing.T) {
	auth := NewAPIKeyAuth("secret-key")
	var seen AuthResult
	h := auth.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = AuthFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.Header.Set("Authorization", "Bearer secret-key")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.True(t, seen.Authenticated)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/mcp", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.JSONEq(t, `{"error":"missing bearer token"}`, rec.Body.String())
}

func TestAuthFromContext_Missing(t *testing.T) {
	assert.False(t, AuthFromContext(context.Background()).Authenticated)
}
