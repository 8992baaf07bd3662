package http

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/aws/smithy-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// platformError mimics the api package's status-carrying error without
// importing it.
type platformError struct{ status int }

func (e *platformError) Error() string   { return fmt.Sprintf("platform API error (status %d)", e.status) }
func (e *platformError) HTTPStatus() int { return e.status }

type timeoutError struct{}

func (timeoutError) Error() string   { return "dial tcp 10.0.0.1:443: i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorType
	}{
		{"nil", nil, ErrorTypeSuccess},
		{"cancelled context", context.Canceled, ErrorTypeFatal},
		{"platform jwt rejected", &platformError{status: 401}, ErrorTypeCredential},
		{"platform forbidden", &platformError{status: 403}, ErrorTypeCredential},
		{"platform rate limited", &platformError{status: 429}, ErrorTypeRetryable},
		{"platform server error", &platformError{status: 500}, ErrorTypeRetryable},
		{"platform bad request", &platformError{status: 400}, ErrorTypeFatal},
		{"wrapped platform error", fmt.Errorf("failed to list: %w", &platformError{status: 401}), ErrorTypeCredential},
		{"azure sas rejected", &azcore.ResponseError{ErrorCode: "AuthenticationFailed", StatusCode: 403}, ErrorTypeCredential},
		{"azure busy", &azcore.ResponseError{ErrorCode: "ServerBusy", StatusCode: 503}, ErrorTypeRetryable},
		{"azure blob missing", &azcore.ResponseError{ErrorCode: "BlobNotFound", StatusCode: 404}, ErrorTypeFatal},
		{"aws expired token", &smithy.GenericAPIError{Code: "ExpiredToken"}, ErrorTypeCredential},
		{"aws slow down", &smithy.GenericAPIError{Code: "SlowDown"}, ErrorTypeRetryable},
		{"aws missing key", &smithy.GenericAPIError{Code: "NoSuchKey"}, ErrorTypeFatal},
		{"net timeout", timeoutError{}, ErrorTypeNetwork},
		{"flattened reset", errors.New("read tcp: connection reset by peer"), ErrorTypeNetwork},
		{"flattened sas expiry", errors.New("sas token has expired"), ErrorTypeCredential},
		{"flattened throttle", errors.New("throttled, reduce request rate"), ErrorTypeRetryable},
		{"unknown text", errors.New("something strange happened"), ErrorTypeFatal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, ClassifyError(tc.err))
		})
	}
}

func TestErrorTypeString(t *testing.T) {
	assert.Equal(t, "credential", ErrorTypeCredential.String())
	assert.Equal(t, "fatal", ErrorTypeFatal.String())
	assert.Equal(t, "unknown", ErrorType(42).String())
}

func TestCalculateBackoffBounds(t *testing.T) {
	initial := 100 * time.Millisecond
	max := 2 * time.Second

	assert.Equal(t, time.Duration(0), CalculateBackoff(0, initial, max))

	for attempt := 1; attempt <= 10; attempt++ {
		d := CalculateBackoff(attempt, initial, max)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.Less(t, d, max, "attempt %d must stay under max delay", attempt)
	}
}

func TestExecuteWithRetryFatalReturnsImmediately(t *testing.T) {
	calls := 0
	err := ExecuteWithRetry(context.Background(), DefaultConfig(), func() error {
		calls++
		return &platformError{status: 400}
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "fatal errors must not retry")
}

func TestExecuteWithRetryEventualSuccess(t *testing.T) {
	cfg := Config{
		MaxRetries:   5,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
	}

	calls := 0
	err := ExecuteWithRetry(context.Background(), cfg, func() error {
		calls++
		if calls < 3 {
			return errors.New("connection reset by peer")
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestExecuteWithRetryExhausted(t *testing.T) {
	cfg := Config{
		MaxRetries:   3,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
	}

	var retryTypes []ErrorType
	cfg.OnRetry = func(attempt int, err error, errorType ErrorType) {
		retryTypes = append(retryTypes, errorType)
	}

	calls := 0
	err := ExecuteWithRetry(context.Background(), cfg, func() error {
		calls++
		return timeoutError{}
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, calls)
	assert.Equal(t, []ErrorType{ErrorTypeNetwork, ErrorTypeNetwork}, retryTypes)
}

func TestExecuteWithRetryCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := ExecuteWithRetry(ctx, DefaultConfig(), func() error {
		calls++
		return nil
	})

	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls)
}

func TestExecuteWithRetryCredentialRefresh(t *testing.T) {
	cfg := Config{
		MaxRetries:   4,
		InitialDelay: time.Millisecond,
		MaxDelay:     2 * time.Millisecond,
	}

	refreshes := 0
	cfg.CredentialRefresh = func(ctx context.Context) error {
		refreshes++
		return nil
	}

	calls := 0
	err := ExecuteWithRetry(context.Background(), cfg, func() error {
		calls++
		if calls == 1 {
			return timeoutError{}
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 2, refreshes, "credentials refresh before every attempt")
}
