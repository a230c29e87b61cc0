package waitlist

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrAlreadyRegistered maps the store's uniqueness violation on the
	// normalized email to a user-facing conflict.
	ErrAlreadyRegistered = errors.New("email already registered")

	// ErrTokenInvalid is deliberately vague: unknown, malformed and expired
	// tokens are indistinguishable to the caller.
	ErrTokenInvalid = errors.New("invalid or expired token")

	// ErrVerifyFailed is the terminal error after the narrowed retry also fails.
	ErrVerifyFailed = errors.New("failed to verify email, contact support")

	// ErrNotFound is the repository-level missing-row error.
	ErrNotFound = errors.New("user not found")

	// ErrProviderNotConfigured means the email provider credential is missing
	// or rejected. Terminal and non-retryable.
	ErrProviderNotConfigured = errors.New("email provider is not configured")

	// ErrDependencyUnavailable covers store or provider connectivity failures.
	// Full detail is logged server-side only.
	ErrDependencyUnavailable = errors.New("service unavailable")
)

// RateLimitedError is a retryable provider throttle with a backoff hint.
type RateLimitedError struct {
	RetryAfter time.Duration
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("email provider rate limited, retry after %s", e.RetryAfter)
}
