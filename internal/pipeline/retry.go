package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/avast/retry-go/v4"
)

// RetryPolicy bounds the attempts made for one operation.
type RetryPolicy struct {
	MaxRetries int           // total attempts, including the first
	BaseDelay  time.Duration // delay after the first failure; doubles after each one
	Timer      retry.Timer   // nil uses real time
}

// DefaultRetryPolicy is three attempts starting at one second.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: time.Second}
}

func (p RetryPolicy) attempts() int {
	if p.MaxRetries < 1 {
		return 1
	}
	return p.MaxRetries
}

// RetryError reports an operation that failed on every attempt.
type RetryError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *RetryError) Error() string {
	return fmt.Sprintf("failed to %s after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *RetryError) Unwrap() error { return e.Err }

// ExponentialDelay waits base, 2*base, 4*base, ... between attempts.
// retry-go numbers the first wait as n=1.
func ExponentialDelay(base time.Duration) retry.DelayTypeFunc {
	return func(n uint, _ error, _ *retry.Config) time.Duration {
		if n < 1 {
			n = 1
		}
		shift := n - 1
		if shift > 30 {
			shift = 30
		}
		return base << shift
	}
}

// Retry runs fn until it succeeds or the policy is exhausted. Cancellation of
// ctx stops retrying and returns ctx's error; any other final failure, timeouts
// included, is wrapped in a *RetryError.
func Retry[T any](ctx context.Context, op string, p RetryPolicy, log *slog.Logger, fn func(context.Context) (T, error)) (T, error) {
	maxAttempts := p.attempts()
	attempts := 0
	delayFn := ExponentialDelay(p.BaseDelay)

	opts := []retry.Option{
		retry.Context(ctx),
		retry.Attempts(uint(maxAttempts)),
		retry.DelayType(delayFn),
		retry.LastErrorOnly(true),
		// Client timeouts also match context.DeadlineExceeded; only the
		// caller's context ends the loop early.
		retry.RetryIf(func(error) bool {
			return ctx.Err() == nil
		}),
		retry.OnRetry(func(n uint, err error) {
			if int(n)+1 >= maxAttempts {
				return
			}
			log.Warn("attempt failed, retrying",
				"op", op,
				"attempt", n+1,
				"max_attempts", maxAttempts,
				"delay_ms", delayFn(n+1, err, nil).Milliseconds(),
				"error", err,
			)
		}),
	}
	if p.Timer != nil {
		opts = append(opts, retry.WithTimer(p.Timer))
	}

	out, err := retry.DoWithData(func() (T, error) {
		attempts++
		return fn(ctx)
	}, opts...)
	if err == nil {
		return out, nil
	}

	var zero T
	if ctxErr := ctx.Err(); ctxErr != nil {
		return zero, ctxErr
	}

	log.Error("operation failed after retries", "op", op, "attempts", attempts, "error", err)
	return zero, &RetryError{Op: op, Attempts: attempts, Err: err}
}
