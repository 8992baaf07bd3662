// Package api provides the client for the loginweb platform REST API.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
)

// Sentinel errors for the conditions callers branch on.
var (
	// ErrUnauthorized indicates a missing, invalid, or expired API key.
	ErrUnauthorized = errors.New("unauthorized: check your API key")

	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("record not found")
)

// APIError is a non-2xx platform response.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("platform API error (status %d): %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("platform API error (status %d)", e.StatusCode)
}

// HTTPStatus exposes the response status for the retry classifier.
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// responseError converts a non-2xx response into an error, consuming the
// body. 401/403 and 404 map to their sentinels so call sites can use
// errors.Is.
func responseError(resp *nethttp.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 8192))

	msg := strings.TrimSpace(string(body))
	var parsed struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil {
		if parsed.Message != "" {
			msg = parsed.Message
		} else if parsed.Error != "" {
			msg = parsed.Error
		}
	}

	apiErr := &APIError{StatusCode: resp.StatusCode, Message: msg}

	// Both the sentinel and the APIError stay in the chain: call sites
	// branch with errors.Is, the retry classifier reads the status with
	// errors.As.
	switch resp.StatusCode {
	case nethttp.StatusUnauthorized, nethttp.StatusForbidden:
		return fmt.Errorf("%w: %w", ErrUnauthorized, apiErr)
	case nethttp.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrNotFound, apiErr)
	}
	return apiErr
}

// IsAuthError checks if an error indicates an authentication failure.
func IsAuthError(err error) bool {
	if errors.Is(err, ErrUnauthorized) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) &&
		(apiErr.StatusCode == nethttp.StatusUnauthorized || apiErr.StatusCode == nethttp.StatusForbidden)
}
