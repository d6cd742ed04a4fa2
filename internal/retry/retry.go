package retry

import (
	"context"
	"errors"
	"strings"
	"time"

	"raffleworker/internal/logger"

	"github.com/tonkeeper/tonapi-go"
	"go.uber.org/zap"
)

const (
	DefaultRateLimitBackoff = 2 * time.Second
	rateLimitStatusCode     = 429
	rateLimitMessage        = "rate limit"
)

type Func[T any] func(ctx context.Context) (T, error)

// Policy describes how an operation is retried. MaxAttempts counts the first call,
// zero means the operation is retried for as long as IsRetryable allows it.
type Policy struct {
	Name        string
	MaxAttempts int
	BaseDelay   time.Duration
	Multiplier  float64
	MaxDelay    time.Duration
	IsRetryable func(err error) bool
	OnRetry     func(attempt int, delay time.Duration, err error)
}

// RateLimitPolicy retries rate-limited calls forever with a fixed delay and fails fast on anything else.
func RateLimitPolicy(delay time.Duration) Policy {
	if delay <= 0 {
		delay = DefaultRateLimitBackoff
	}

	return Policy{
		Name:        "rate limit",
		BaseDelay:   delay,
		IsRetryable: IsRateLimited,
	}
}

// ExponentialPolicy retries every error except cancellation, doubling the delay after each attempt.
func ExponentialPolicy(maxAttempts int, baseDelay time.Duration, maxDelay time.Duration) Policy {
	return Policy{
		Name:        "exponential",
		MaxAttempts: maxAttempts,
		BaseDelay:   baseDelay,
		Multiplier:  2,
		MaxDelay:    maxDelay,
		IsRetryable: func(err error) bool {
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		},
	}
}

// WithOnRetry returns a copy of the policy that also reports retries to hook.
func (p Policy) WithOnRetry(hook func(attempt int, delay time.Duration, err error)) Policy {
	previous := p.OnRetry
	p.OnRetry = func(attempt int, delay time.Duration, err error) {
		if previous != nil {
			previous(attempt, delay, err)
		}
		hook(attempt, delay, err)
	}

	return p
}

func (p Policy) delay(attempt int) time.Duration {
	delay := p.BaseDelay
	if p.Multiplier > 1 {
		for i := 1; i < attempt; i++ {
			delay = time.Duration(float64(delay) * p.Multiplier)
			if p.MaxDelay > 0 && delay >= p.MaxDelay {
				return p.MaxDelay
			}
		}
	}

	return delay
}

// Do runs fn until it succeeds, the policy gives up or ctx is done.
// The last error of fn is returned as is.
func Do[T any](ctx context.Context, policy Policy, fn Func[T]) (T, error) {
	var zero T

	for attempt := 1; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		if ctx.Err() != nil {
			return zero, err
		}

		if policy.IsRetryable == nil || !policy.IsRetryable(err) {
			return zero, err
		}

		if policy.MaxAttempts > 0 && attempt >= policy.MaxAttempts {
			return zero, err
		}

		delay := policy.delay(attempt)
		logger.Warn("retry: upstream call failed, retrying",
			zap.String("policy", policy.Name),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)

		if policy.OnRetry != nil {
			policy.OnRetry(attempt, delay, err)
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return zero, ctx.Err()
		case <-timer.C:
		}
	}
}

// IsRateLimited reports whether err is the upstream rate-limit signature.
func IsRateLimited(err error) bool {
	var statusError *tonapi.ErrorStatusCode
	if !errors.As(err, &statusError) {
		return false
	}

	return statusError.StatusCode == rateLimitStatusCode ||
		strings.Contains(strings.ToLower(statusError.Response.Error), rateLimitMessage)
}
