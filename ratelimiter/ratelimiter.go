// Package ratelimiter implements a RateLimiter policy, which controls the rate of executions as a way of
// preventing system overload.
package ratelimiter

import (
	"context"
	"errors"
	"time"

	"github.com/bertbaron/failsafe-go"
	"github.com/bertbaron/failsafe-go/spi"
)

// ErrExceeded is returned when an execution exceeds a configured rate limit.
var ErrExceeded = errors.New("rate limit exceeded")

/*
RateLimiter is a policy that controls the rate of executions as a way of preventing system overload.

There are two types of rate limiting: smooth and bursty. Smooth rate limiting evenly spreads out execution
permits over time. Bursty rate limiting allows bursts of executions, up to a configured max per time period.

Rate limiting is based on permits, which are automatically refreshed over time according to the rate limiter's
configuration.

This type is concurrency safe.
*/
type RateLimiter[R any] interface {
	failsafe.Policy[R]

	// AcquirePermit attempts to acquire a permit, waiting until one is available or ctx is done. ctx may be nil.
	AcquirePermit(ctx context.Context) error

	// AcquirePermits attempts to acquire the requested permits, waiting until they are available or ctx is done.
	// ctx may be nil.
	AcquirePermits(ctx context.Context, permits uint) error

	// AcquirePermitWithMaxWait attempts to acquire a permit, waiting up to maxWaitTime or until ctx is done.
	// Returns ErrExceeded if a permit would not be available in time. ctx may be nil.
	AcquirePermitWithMaxWait(ctx context.Context, maxWaitTime time.Duration) error

	// AcquirePermitsWithMaxWait attempts to acquire the requested permits, waiting up to maxWaitTime or until ctx
	// is done. Returns ErrExceeded if the permits would not be available in time. ctx may be nil.
	AcquirePermitsWithMaxWait(ctx context.Context, requestedPermits uint, maxWaitTime time.Duration) error

	// ReservePermit reserves a permit and returns the time the caller is expected to wait before acting on it.
	// Returns 0 if the permit is immediately available.
	ReservePermit() time.Duration

	// ReservePermits reserves the requested permits and returns the time the caller is expected to wait before
	// acting on them. Returns 0 if the permits are immediately available.
	ReservePermits(permits uint) time.Duration

	// TryAcquirePermit tries to acquire a permit, returning immediately without waiting.
	TryAcquirePermit() bool

	// TryAcquirePermits tries to acquire the requested permits, returning immediately without waiting.
	TryAcquirePermits(permits uint) bool

	// TryReservePermit tries to reserve a permit and returns the expected wait time, as long as it does not exceed
	// maxWaitTime. Returns -1 if the permit was not reserved because the wait time would exceed maxWaitTime.
	TryReservePermit(maxWaitTime time.Duration) time.Duration

	// TryReservePermits tries to reserve the requested permits and returns the expected wait time, as long as it
	// does not exceed maxWaitTime. Returns -1 if the permits were not reserved because the wait time would exceed
	// maxWaitTime.
	TryReservePermits(requestedPermits uint, maxWaitTime time.Duration) time.Duration

	// Reset resets the rate limiter's internal state, as if it were newly created.
	Reset()
}

// RateLimiterBuilder builds RateLimiter instances.
//
// This type is not concurrency safe.
type RateLimiterBuilder[R any] interface {
	// WithMaxWaitTime configures the max time to wait for permits to become available. If permits cannot be
	// acquired before maxWaitTime is exceeded, the rate limiter returns ErrExceeded.
	WithMaxWaitTime(maxWaitTime time.Duration) RateLimiterBuilder[R]

	// OnRateLimitExceeded registers the listener to be called when the rate limit is exceeded.
	OnRateLimitExceeded(listener func(failsafe.ExecutionAttemptedEvent[R])) RateLimiterBuilder[R]

	// Build returns a new RateLimiter using the builder's configuration.
	Build() RateLimiter[R]
}

type rateLimiterConfig[R any] struct {
	maxWaitTime         time.Duration
	onRateLimitExceeded func(failsafe.ExecutionAttemptedEvent[R])

	// Smooth
	interval time.Duration

	// Bursty
	periodPermits int
	period        time.Duration
}

var _ RateLimiterBuilder[any] = &rateLimiterConfig[any]{}

/*
Smooth returns a smooth RateLimiter for maxExecutions and period, which control how frequently an execution is
permitted. The individual execution rate is computed as period / maxExecutions. For example, with maxExecutions
of 100 and a period of 1000ms, executions are permitted at a max rate of one every 10ms.

Executions proceed with no delay until they exceed the max rate, after which they are rejected.
*/
func Smooth[R any](maxExecutions uint, period time.Duration) RateLimiter[R] {
	return SmoothBuilder[R](maxExecutions, period).Build()
}

// SmoothWithMaxRate returns a smooth RateLimiter for the given maxRate, which controls how frequently an
// execution is permitted. A maxRate of 10ms allows up to one execution every 10 milliseconds.
func SmoothWithMaxRate[R any](maxRate time.Duration) RateLimiter[R] {
	return SmoothBuilderWithMaxRate[R](maxRate).Build()
}

// SmoothBuilder returns a smooth RateLimiterBuilder for maxExecutions and period. By default the builder has a
// max wait time of 0, so executions that exceed the rate are rejected rather than delayed.
func SmoothBuilder[R any](maxExecutions uint, period time.Duration) RateLimiterBuilder[R] {
	return &rateLimiterConfig[R]{
		interval: period / time.Duration(maxExecutions),
	}
}

// SmoothBuilderWithMaxRate returns a smooth RateLimiterBuilder for the given maxRate.
func SmoothBuilderWithMaxRate[R any](maxRate time.Duration) RateLimiterBuilder[R] {
	return &rateLimiterConfig[R]{
		interval: maxRate,
	}
}

/*
Bursty returns a bursty RateLimiter for maxExecutions per period. A maxExecutions value of 100 with a period of
1s allows up to 100 executions every second.

Executions proceed with no delay until they exceed the max rate, after which they are rejected.
*/
func Bursty[R any](maxExecutions uint, period time.Duration) RateLimiter[R] {
	return BurstyBuilder[R](maxExecutions, period).Build()
}

// BurstyBuilder returns a bursty RateLimiterBuilder for maxExecutions per period. By default the builder has a
// max wait time of 0, so executions that exceed the rate are rejected rather than delayed.
func BurstyBuilder[R any](maxExecutions uint, period time.Duration) RateLimiterBuilder[R] {
	return &rateLimiterConfig[R]{
		periodPermits: int(maxExecutions),
		period:        period,
	}
}

func (c *rateLimiterConfig[R]) WithMaxWaitTime(maxWaitTime time.Duration) RateLimiterBuilder[R] {
	c.maxWaitTime = maxWaitTime
	return c
}

func (c *rateLimiterConfig[R]) OnRateLimitExceeded(listener func(failsafe.ExecutionAttemptedEvent[R])) RateLimiterBuilder[R] {
	c.onRateLimitExceeded = listener
	return c
}

func (c *rateLimiterConfig[R]) Build() RateLimiter[R] {
	cCopy := *c
	if cCopy.interval != 0 {
		return &rateLimiter[R]{
			config: &cCopy,
			stats:  newSmoothStats(&cCopy),
		}
	}
	return &rateLimiter[R]{
		config: &cCopy,
		stats:  newBurstyStats(&cCopy),
	}
}

type rateLimiter[R any] struct {
	config *rateLimiterConfig[R]
	stats  rateLimiterStats
}

func (r *rateLimiter[R]) AcquirePermit(ctx context.Context) error {
	return r.AcquirePermits(ctx, 1)
}

func (r *rateLimiter[R]) AcquirePermits(ctx context.Context, permits uint) error {
	waitTime := r.ReservePermits(permits)
	if ctx != nil {
		timer := time.NewTimer(waitTime)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		}
	} else {
		time.Sleep(waitTime)
	}
	return nil
}

func (r *rateLimiter[R]) AcquirePermitWithMaxWait(ctx context.Context, maxWaitTime time.Duration) error {
	return r.acquirePermitsWithMaxWait(ctx, nil, 1, maxWaitTime)
}

func (r *rateLimiter[R]) AcquirePermitsWithMaxWait(ctx context.Context, requestedPermits uint, maxWaitTime time.Duration) error {
	return r.acquirePermitsWithMaxWait(ctx, nil, requestedPermits, maxWaitTime)
}

// acquirePermitsWithMaxWait waits on execInternal.Canceled() instead of ctx.Done() when execInternal is non-nil,
// so a timeout or other outer policy cancellation unblocks the wait the same way a context cancellation would.
func (r *rateLimiter[R]) acquirePermitsWithMaxWait(ctx context.Context, execInternal *failsafe.ExecutionInternal[R], requestedPermits uint, maxWaitTime time.Duration) error {
	waitTime := r.stats.acquirePermits(int(requestedPermits), maxWaitTime)
	if waitTime == -1 {
		return ErrExceeded
	}
	if ctx == nil {
		ctx = context.Background()
	}
	timer := time.NewTimer(waitTime)
	defer timer.Stop()
	if execInternal == nil {
		select {
		case <-timer.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	} else {
		select {
		case <-timer.C:
		case <-execInternal.Canceled():
			return execInternal.LastError
		}
	}
	return nil
}

func (r *rateLimiter[R]) ReservePermit() time.Duration {
	return r.ReservePermits(1)
}

func (r *rateLimiter[R]) ReservePermits(permits uint) time.Duration {
	return r.stats.acquirePermits(int(permits), -1)
}

func (r *rateLimiter[R]) TryAcquirePermit() bool {
	return r.TryAcquirePermits(1)
}

func (r *rateLimiter[R]) TryAcquirePermits(permits uint) bool {
	return r.TryReservePermits(permits, 0) == 0
}

func (r *rateLimiter[R]) TryReservePermit(maxWaitTime time.Duration) time.Duration {
	return r.TryReservePermits(1, maxWaitTime)
}

func (r *rateLimiter[R]) TryReservePermits(requestedPermits uint, maxWaitTime time.Duration) time.Duration {
	return r.stats.acquirePermits(int(requestedPermits), maxWaitTime)
}

func (r *rateLimiter[R]) Reset() {
	r.stats.reset()
}

func (r *rateLimiter[R]) ToExecutor(policyIndex int) failsafe.PolicyExecutor[R] {
	rle := &rateLimiterExecutor[R]{
		BasePolicyExecutor: &spi.BasePolicyExecutor[R]{
			PolicyIndex: policyIndex,
		},
		rateLimiter: r,
	}
	rle.PolicyExecutor = rle
	return rle
}
