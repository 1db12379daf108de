package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNetwork is an exported constant or variable used by the session client.
	// Connectivity and timeout failures; the session is untouched and the
	// caller may retry manually.
	ErrNetwork = errors.New("network unavailable")
	// ErrAuthExpired is an exported constant or variable used by the session client.
	// A 401 whose refresh attempt failed; recovered only by logging in again.
	ErrAuthExpired = errors.New("session expired")
)

// APIError defines a public type used by goSession APIs.
//
// APIError instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
// APIError is the one normalized shape every non-2xx server response collapses
// into.
type APIError struct {
	StatusCode int    `json:"statusCode"`
	Code       string `json:"code,omitempty"`
	Message    string `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("api error [%s] (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("api error (HTTP %d): %s", e.StatusCode, e.Message)
}

// apiErrorEnvelope is the server's error body. Unparseable bodies fall back to
// the HTTP status text.
type apiErrorEnvelope struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func normalizeAPIError(status int, body []byte) *APIError {
	out := &APIError{StatusCode: status}

	var env apiErrorEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Message != "" {
		out.Code = env.Code
		out.Message = env.Message
		return out
	}

	out.Message = http.StatusText(status)
	if out.Message == "" {
		out.Message = "request failed"
	}
	return out
}
