// Package remote holds the error taxonomy and small request helpers shared by
// every HTTP-facing client in chatrelay.
package remote

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// TransportError is a network-level failure: DNS, refused connection,
// timeout, reset. It always wraps the underlying cause.
type TransportError struct {
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a non-2xx response from the backend or a provider. Detail holds
// the server's "detail" field when the error body carried one, else the raw
// body text.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Detail)
}

// Detail extracts the server-side error message from an error response body.
// Backends answer errors as {"detail": ...}; when the body does not decode,
// or carries no detail field, the raw body text is returned instead.
func Detail(body []byte) string {
	var payload struct {
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Detail != nil {
		if s, ok := payload.Detail.(string); ok {
			return s
		}
		if raw, err := json.Marshal(payload.Detail); err == nil {
			return string(raw)
		}
	}
	return strings.TrimSpace(string(body))
}

// Authorize sets the bearer Authorization header when token is non-empty.
// An empty token sends no header at all, never an empty-string credential.
func Authorize(req *http.Request, token string) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
}
