package biz

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/go-kratos/kratos/v2/log"
)

// defaultRetryableStatuses are the HTTP codes retried when a policy does not
// supply its own allow-list.
var defaultRetryableStatuses = []int{429, 500, 502, 503, 504}

// RetryPolicy is the immutable configuration of a retry run. A run itself
// carries only the attempt counter and the last error.
type RetryPolicy struct {
	// MaxAttempts is the total number of tries including the first.
	// A value of 1 disables retrying entirely.
	MaxAttempts int
	// InitialDelay is the base delay before the first retry.
	InitialDelay time.Duration
	// MaxDelay caps both the computed backoff and server retry hints.
	MaxDelay time.Duration
	// BackoffFactor is the multiplier applied per attempt.
	BackoffFactor float64
	// RetryableStatuses optionally replaces the default status allow-list.
	RetryableStatuses []int
}

// DefaultRetryPolicy returns the policy used for channel pushes unless
// overridden by configuration.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   3,
		InitialDelay:  time.Second,
		MaxDelay:      30 * time.Second,
		BackoffFactor: 2,
	}
}

func (p RetryPolicy) statuses() []int {
	if len(p.RetryableStatuses) > 0 {
		return p.RetryableStatuses
	}
	return defaultRetryableStatuses
}

// Retryer executes operations with exponential backoff and jitter. Delays
// for different in-flight operations are independent: sleeping happens on
// the caller's goroutine with a context-aware timer, never a shared lock.
type Retryer struct {
	logger *log.Helper
}

// NewRetryer creates a Retryer.
func NewRetryer(logger log.Logger) *Retryer {
	return &Retryer{logger: log.NewHelper(logger)}
}

// Run attempts op until it succeeds, a non-retryable error occurs, the
// context is cancelled, or the policy's attempts are exhausted. The jittered
// delay schedule comes from an exponential backoff with randomization factor
// 0.25, so each delay is drawn uniformly from [0.75, 1.25] of the nominal
// value; this prevents synchronized retry storms across concurrent callers.
// A server-supplied Retry-After hint takes precedence over the computed
// delay, capped at the policy's MaxDelay.
func (r *Retryer) Run(ctx context.Context, op func(context.Context) error, policy RetryPolicy) error {
	if policy.MaxAttempts < 1 {
		policy.MaxAttempts = 1
	}

	bo := newBackOff(policy)

	var lastErr error
	for attempt := 1; ; attempt++ {
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}

		if !r.retryable(lastErr, policy.statuses()) {
			// Non-retryable errors short-circuit with zero delay.
			return lastErr
		}

		if attempt >= policy.MaxAttempts {
			break
		}

		delay := boundedDelay(bo, lastErr, policy)

		r.logger.Debugw("retrying after failure",
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"delay", delay,
			"error", lastErr)

		if err := sleepCtx(ctx, delay); err != nil {
			return err
		}
	}

	return &RetryExhaustedError{Attempts: policy.MaxAttempts, Err: lastErr}
}

// retryable classifies the failure. Network and timeout classes retry;
// API rejections retry only when their status is allow-listed; everything
// else (validation, auth, circuit-open) aborts immediately.
func (r *Retryer) retryable(err error, statuses []int) bool {
	if IsCircuitOpen(err) {
		return false
	}

	classified := Classify(err)
	switch classified.Type {
	case ErrorTypeNetwork, ErrorTypeTimeout:
		return true
	case ErrorTypeAPI:
		for _, code := range statuses {
			if classified.StatusCode == code {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// newBackOff builds the jittered delay schedule for one run.
func newBackOff(policy RetryPolicy) *backoff.ExponentialBackOff {
	bo := &backoff.ExponentialBackOff{
		InitialInterval:     policy.InitialDelay,
		RandomizationFactor: 0.25,
		Multiplier:          policy.BackoffFactor,
		MaxInterval:         policy.MaxDelay,
	}
	bo.Reset()
	return bo
}

// boundedDelay draws the next delay from the schedule, lets a server
// Retry-After hint take precedence, and never exceeds the policy's MaxDelay.
func boundedDelay(bo *backoff.ExponentialBackOff, err error, policy RetryPolicy) time.Duration {
	delay := bo.NextBackOff()
	if hint, ok := retryAfterHint(err); ok {
		delay = hint
	}
	if delay > policy.MaxDelay {
		delay = policy.MaxDelay
	}
	return delay
}

// retryAfterHint extracts a server-supplied retry delay, if any.
func retryAfterHint(err error) (time.Duration, bool) {
	var syncErr *SyncError
	if errors.As(err, &syncErr) && syncErr.RetryAfter > 0 {
		return syncErr.RetryAfter, true
	}
	return 0, false
}

// sleepCtx blocks for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
