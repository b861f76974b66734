package mcpserver

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

// authContextKey is the context key for auth results.
type authContextKey struct{}

// AuthResult holds the result of API key validation.
type AuthResult struct {
	Authenticated bool
	KeyID         string // short hash prefix for logging
	Error         error
}

// WithAuthResult stores the auth result in context.
func WithAuthResult(ctx context.Context, result AuthResult) context.Context {
	return context.WithValue(ctx, authContextKey{}, result)
}

// AuthFromContext retrieves the auth result from context.
func AuthFromContext(ctx context.Context) AuthResult {
	result, ok := ctx.Value(authContextKey{}).(AuthResult)
	if !ok {
		return AuthResult{Authenticated: false}
	}
	return result
}

// APIKeyAuth checks bearer tokens against one configured key. Only the
// SHA-256 of the key is held.
type APIKeyAuth struct {
	keyHash [sha256.Size]byte
	keyID   string
}

// NewAPIKeyAuth returns nil for an empty key.
func NewAPIKeyAuth(key string) *APIKeyAuth {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	hash := sha256.Sum256([]byte(key))
	return &APIKeyAuth{keyHash: hash, keyID: hex.EncodeToString(hash[:4])}
}

// ValidateAPIKey checks an Authorization header value of the form
// "Bearer <key>".
func (a *APIKeyAuth) ValidateAPIKey(header string) AuthResult {
	token, ok := strings.CutPrefix(header, "Bearer ")
	token = strings.TrimSpace(token)
	if !ok || token == "" {
		return AuthResult{Error: errors.New("missing bearer token")}
	}

	hash := sha256.Sum256([]byte(token))
	if subtle.ConstantTimeCompare(hash[:], a.keyHash[:]) != 1 {
		return AuthResult{Error: errors.New("invalid API key")}
	}
	return AuthResult{Authenticated: true, KeyID: a.keyID}
}

// Middleware rejects requests without a valid key with 401 and stores the
// auth result in the request context otherwise.
func (a *APIKeyAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		result := a.ValidateAPIKey(r.Header.Get("Authorization"))
		if !result.Authenticated {
			authFailuresTotal.Inc()
			w.Header().Set("WWW-Authenticate", `Bearer realm="mulmoprep"`)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": result.Error.Error()})
			return
		}
		next.ServeHTTP(w, r.WithContext(WithAuthResult(r.Context(), result)))
	})
}
