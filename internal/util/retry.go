package util

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"
	"time"
)

// RetryConfig holds retry configuration
type RetryConfig struct {
	MaxAttempts int           // Maximum number of attempts, including the first
	InitialWait time.Duration // Initial wait duration (will be doubled each retry)
	MaxWait     time.Duration // Maximum wait duration between retries
}

// DefaultRetryConfig is used when RetryWithBackoff is given no config
func DefaultRetryConfig() *RetryConfig {
	return &RetryConfig{
		MaxAttempts: 3,
		InitialWait: 100 * time.Millisecond,
		MaxWait:     5 * time.Second,
	}
}

// ConnectRetryConfig returns retry config for opening network database sessions
func ConnectRetryConfig(attempts int, initialWait time.Duration) *RetryConfig {
	if attempts < 1 {
		attempts = 1
	}
	if initialWait <= 0 {
		initialWait = 500 * time.Millisecond
	}
	return &RetryConfig{
		MaxAttempts: attempts,
		InitialWait: initialWait,
		MaxWait:     10 * time.Second,
	}
}

// IsRetryableError checks if an error is worth retrying
// Returns true for transient network errors (refused, reset, timeouts)
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var syscallError syscall.Errno
	if errors.As(err, &syscallError) {
		switch syscallError {
		case syscall.EAGAIN,
			syscall.ETIMEDOUT,
			syscall.ECONNRESET,
			syscall.ECONNABORTED,
			syscall.ECONNREFUSED,
			syscall.ENETDOWN,
			syscall.ENETUNREACH,
			syscall.EHOSTDOWN,
			syscall.EHOSTUNREACH:
			return true
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// Drivers often flatten the cause into the message
	errMsg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"timeout",
		"timed out",
		"connection reset",
		"connection refused",
		"connection aborted",
		"broken pipe",
		"no route to host",
		"network is unreachable",
		"network is down",
		"host is down",
		"temporary failure",
		"resource temporarily unavailable",
		"the database system is starting up",
		"too many connections",
	}

	for _, pattern := range transientPatterns {
		if strings.Contains(errMsg, pattern) {
			return true
		}
	}

	return false
}

// RetryWithBackoff executes a function with exponential backoff retry logic
// Returns the result of the function or the final error after all retries exhausted
func RetryWithBackoff[T any](ctx context.Context, cfg *RetryConfig, operation func() (T, error), operationName string) (T, error) {
	var result T
	var err error

	if cfg == nil {
		cfg = DefaultRetryConfig()
	}

	waitDuration := cfg.InitialWait

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		result, err = operation()

		if err == nil {
			if attempt > 1 {
				DebugLog("Retry: %s succeeded on attempt %d/%d",
					operationName, attempt, cfg.MaxAttempts)
			}
			return result, nil
		}

		if !IsRetryableError(err) {
			DebugLog("Retry: %s failed with non-retryable error: %v", operationName, err)
			return result, err
		}

		if attempt == cfg.MaxAttempts {
			if cfg.MaxAttempts > 1 {
				WarnLog("Retry: %s failed after %d attempts: %v",
					operationName, cfg.MaxAttempts, err)
				return result, fmt.Errorf("max retries exceeded (%d attempts): %w",
					cfg.MaxAttempts, err)
			}
			return result, err
		}

		DebugLog("Retry: %s failed (attempt %d/%d), retrying in %v: %v",
			operationName, attempt, cfg.MaxAttempts, waitDuration, err)

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(waitDuration):
		}

		waitDuration *= 2
		if waitDuration > cfg.MaxWait {
			waitDuration = cfg.MaxWait
		}
	}

	return result, fmt.Errorf("unexpected retry loop exit: %w", err)
}
