package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	openai "github.com/sashabaranov/go-openai"
)

const backoffMult = 2

// retry runs fn up to attempts times, doubling the wait after each
// retryable failure. Permanent errors return immediately.
func retry(ctx context.Context, attempts int, backoff time.Duration, fn func(context.Context) (string, error)) (string, error) {
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		text, err := fn(ctx)
		if err == nil {
			return text, nil
		}
		lastErr = fmt.Errorf("attempt %d/%d: %w", attempt, attempts, err)
		if !retryable(err) {
			return "", lastErr
		}

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= backoffMult
		}
	}
	return "", lastErr
}

// statusError is an HTTP failure from a provider called over raw REST.
type statusError struct {
	StatusCode int
	Body       string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Body)
}

// retryable reports whether err is worth another attempt: rate limits,
// server errors, empty replies and transport failures.
func retryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, errEmptyResponse) {
		return true
	}
	if code, ok := statusCode(err); ok {
		return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
	}
	return true
}

func statusCode(err error) (int, bool) {
	var se *statusError
	if errors.As(err, &se) {
		return se.StatusCode, true
	}
	var ae *anthropic.Error
	if errors.As(err, &ae) {
		return ae.StatusCode, true
	}
	var oe *openai.APIError
	if errors.As(err, &oe) && oe.HTTPStatusCode != 0 {
		return oe.HTTPStatusCode, true
	}
	var re *openai.RequestError
	if errors.As(err, &re) && re.HTTPStatusCode != 0 {
		return re.HTTPStatusCode, true
	}
	return 0, false
}
