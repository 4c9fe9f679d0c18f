package inference

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/avast/retry-go"
)

// isRetryableError determines if an error should trigger a retry
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	// Providers sometimes truncate the JSON document
	if errors.Is(err, ErrGenerationFormat) {
		return true
	}

	var statusErr *HTTPStatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode >= 500 || statusErr.StatusCode == 429
	}

	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "i/o timeout") {
		return true
	}
	return false
}

// Retry runs fn until it succeeds, fails with a non-retryable error, or runs
// out of attempts. The last error is returned unwrapped.
func Retry(ctx context.Context, maxRetryAttempts uint, delay time.Duration, fn func() error) error {
	options := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(maxRetryAttempts + 1),
		retry.LastErrorOnly(true),
		retry.DelayType(func(n uint, err error, config *retry.Config) time.Duration {
			return retry.BackOffDelay(n, err, config)
		}),
	}
	if delay > 0 {
		options = append(options, retry.Delay(delay))
	}
	return retry.Do(
		func() error {
			err := fn()
			if err != nil && !isRetryableError(err) {
				return retry.Unrecoverable(err)
			}
			return err
		},
		options...,
	)
}
