package tracker

import (
	"context"
	"errors"
	"strings"
	"time"

	"raffleworker/internal/metrics"
	"raffleworker/internal/retry"
)

var (
	// ErrNotDeployed is returned when the queried contract or its get method does not exist on chain.
	ErrNotDeployed = errors.New("contract not deployed")
	// ErrEmptyStack is returned when a get method succeeded without returning anything.
	ErrEmptyStack = errors.New("get method returned empty stack")
)

// Tracker rebuilds the raffle view of one user from the oracle account history.
// It holds no per-request state and may serve concurrent requests.
type Tracker struct {
	client    Client
	policy    retry.Policy
	codeHash  string
	pageLimit int
	metrics   *metrics.Metrics
}

type Option func(*Tracker)

// WithRetryPolicy replaces the default unbounded rate-limit policy.
func WithRetryPolicy(policy retry.Policy) Option {
	return func(t *Tracker) {
		t.policy = policy
	}
}

func WithPageLimit(limit int) Option {
	return func(t *Tracker) {
		if limit > 0 {
			t.pageLimit = limit
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(t *Tracker) {
		t.metrics = m
	}
}

// NewTracker creates a tracker over client. codeHash is the hex code hash of the raffle contract.
func NewTracker(client Client, codeHash string, options ...Option) *Tracker {
	t := &Tracker{
		client:    client,
		policy:    retry.RateLimitPolicy(retry.DefaultRateLimitBackoff),
		codeHash:  strings.ToLower(strings.TrimPrefix(codeHash, "0x")),
		pageLimit: GlobalLimitWindowSize,
	}

	for _, option := range options {
		option(t)
	}

	return t
}

// call runs fn under the retry policy and records the upstream call.
func call[T any](ctx context.Context, t *Tracker, method string, fn retry.Func[T]) (T, error) {
	startedAt := time.Now()
	policy := t.policy.WithOnRetry(func(int, time.Duration, error) {
		t.metrics.ObserveRetry(method)
	})

	result, err := retry.Do(ctx, policy, fn)
	t.metrics.ObserveUpstreamCall(method, time.Since(startedAt), err)

	return result, err
}
