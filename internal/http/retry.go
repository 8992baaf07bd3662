package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"strings"
	"syscall"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/aws/smithy-go"
)

// ErrorType classifies a failed storage or platform call for the retry loop.
type ErrorType int

const (
	// ErrorTypeSuccess indicates the operation succeeded.
	ErrorTypeSuccess ErrorType = iota
	// ErrorTypeCredential indicates the platform grant or storage
	// credentials are no longer accepted (expired JWT, stale SAS token,
	// revoked S3 session) and must be reissued before retrying.
	ErrorTypeCredential
	// ErrorTypeNetwork indicates a transport failure (reset, refused,
	// timeout) worth retrying with backoff.
	ErrorTypeNetwork
	// ErrorTypeRetryable indicates a server-side transient (throttling,
	// 5xx) worth retrying with backoff.
	ErrorTypeRetryable
	// ErrorTypeFatal indicates the request itself is wrong and retrying
	// cannot help.
	ErrorTypeFatal
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypeSuccess:
		return "success"
	case ErrorTypeCredential:
		return "credential"
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeRetryable:
		return "retryable"
	case ErrorTypeFatal:
		return "fatal"
	}
	return "unknown"
}

// credentialPause is the flat wait before retrying with fresh credentials.
const credentialPause = time.Second

// Config holds retry parameters for ExecuteWithRetry.
type Config struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration

	// CredentialRefresh runs before every attempt so a long transfer
	// never resumes on a grant that expired mid-flight.
	CredentialRefresh func(context.Context) error

	// OnRetry is invoked before each retry wait.
	OnRetry func(attempt int, err error, errorType ErrorType)
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		MaxRetries:   10,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     15 * time.Second,
	}
}

// statusCarrier is implemented by platform API errors; classification by
// status avoids an import of the api package here.
type statusCarrier interface {
	HTTPStatus() int
}

// ClassifyError maps an error onto the retry taxonomy. Typed errors are
// inspected first: platform API errors by HTTP status, Azure errors by
// service error code, AWS errors by smithy error code, transport errors via
// the net package. The message text is only consulted as a last resort, for
// errors that arrive flattened into strings.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrorTypeSuccess
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return ErrorTypeFatal
	}

	var carrier statusCarrier
	if errors.As(err, &carrier) {
		return classifyStatus(carrier.HTTPStatus())
	}

	var azErr *azcore.ResponseError
	if errors.As(err, &azErr) {
		switch azErr.ErrorCode {
		case "AuthenticationFailed", "AuthorizationFailure", "InvalidAuthenticationInfo":
			return ErrorTypeCredential
		case "ServerBusy", "OperationTimedOut", "InternalError":
			return ErrorTypeRetryable
		}
		return classifyStatus(azErr.StatusCode)
	}

	var awsErr smithy.APIError
	if errors.As(err, &awsErr) {
		switch awsErr.ErrorCode() {
		case "ExpiredToken", "InvalidAccessKeyId", "SignatureDoesNotMatch", "AccessDenied", "TokenRefreshRequired":
			return ErrorTypeCredential
		case "SlowDown", "Throttling", "ThrottlingException", "RequestTimeout", "InternalError", "ServiceUnavailable":
			return ErrorTypeRetryable
		case "NoSuchKey", "NoSuchBucket", "NoSuchUpload", "InvalidPart", "InvalidRequest":
			return ErrorTypeFatal
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ErrorTypeNetwork
	}
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return ErrorTypeNetwork
	}

	return classifyMessage(strings.ToLower(err.Error()))
}

func classifyStatus(status int) ErrorType {
	switch {
	case status == 401 || status == 403:
		return ErrorTypeCredential
	case status == 408 || status == 429 || status >= 500:
		return ErrorTypeRetryable
	}
	return ErrorTypeFatal
}

// classifyMessage covers errors that reach us as plain text: proxy CONNECT
// failures, SAS query strings rejected before a response object exists, and
// SDK errors flattened through fmt wrapping.
func classifyMessage(msg string) ErrorType {
	for _, marker := range []string{"expired", "sas token", "invalid sas", "unauthorized", "signature"} {
		if strings.Contains(msg, marker) {
			return ErrorTypeCredential
		}
	}
	for _, marker := range []string{"connection reset", "connection refused", "broken pipe", "timeout", "tls handshake", "eof"} {
		if strings.Contains(msg, marker) {
			return ErrorTypeNetwork
		}
	}
	for _, marker := range []string{"slowdown", "throttl", "server busy", "service unavailable", "502", "503"} {
		if strings.Contains(msg, marker) {
			return ErrorTypeRetryable
		}
	}
	return ErrorTypeFatal
}

// CalculateBackoff returns a full-jitter exponential backoff duration:
// random(0, min(maxDelay, initialDelay << attempt)).
func CalculateBackoff(attempt int, initialDelay, maxDelay time.Duration) time.Duration {
	if attempt < 1 {
		return 0
	}
	ceiling := initialDelay << uint(attempt)
	if ceiling > maxDelay || ceiling <= 0 {
		ceiling = maxDelay
	}
	return time.Duration(rand.Int63n(int64(ceiling)))
}

// ExecuteWithRetry runs operation until it succeeds, fails fatally, or the
// attempt budget is spent. Credential errors wait a flat second after the
// refresh; network and server transients back off with full jitter. Waits
// are cut short by context cancellation.
func ExecuteWithRetry(ctx context.Context, config Config, operation func() error) error {
	var lastErr error

	for attempt := 1; attempt <= config.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		if config.CredentialRefresh != nil {
			if err := config.CredentialRefresh(ctx); err != nil {
				return fmt.Errorf("credential refresh failed: %w", err)
			}
		}

		lastErr = operation()
		if lastErr == nil {
			return nil
		}

		kind := ClassifyError(lastErr)
		if kind == ErrorTypeFatal {
			return lastErr
		}
		if attempt == config.MaxRetries {
			break
		}

		if config.OnRetry != nil {
			config.OnRetry(attempt, lastErr, kind)
		}

		wait := CalculateBackoff(attempt, config.InitialDelay, config.MaxDelay)
		if kind == ErrorTypeCredential {
			wait = credentialPause
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", config.MaxRetries, lastErr)
}
