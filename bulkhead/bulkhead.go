// Package bulkhead implements a Bulkhead policy, which restricts concurrent executions as a way of preventing
// system overload.
package bulkhead

import (
	"context"
	"errors"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/bertbaron/failsafe-go"
	"github.com/bertbaron/failsafe-go/spi"
)

// ErrFull is returned when an execution is attempted against a Bulkhead that is full.
var ErrFull = errors.New("bulkhead full")

// Bulkhead is a policy that restricts concurrent executions as a way of preventing system overload.
//
// This type is concurrency safe.
type Bulkhead[R any] interface {
	failsafe.Policy[R]

	// AcquirePermit attempts to acquire a permit, waiting until one is available or ctx is done. ctx may be nil.
	AcquirePermit(ctx context.Context) error

	// AcquirePermitWithMaxWait attempts to acquire a permit, waiting up to maxWaitTime or until ctx is done.
	// Returns ErrFull if a permit could not be acquired in time. ctx may be nil.
	AcquirePermitWithMaxWait(ctx context.Context, maxWaitTime time.Duration) error

	// ReleasePermit releases a previously acquired permit back to the Bulkhead.
	ReleasePermit()

	// TryAcquirePermit tries to acquire a permit without waiting, returning whether one was acquired.
	TryAcquirePermit() bool
}

// BulkheadBuilder builds Bulkhead instances.
//
// This type is not concurrency safe.
type BulkheadBuilder[R any] interface {
	// WithMaxWaitTime configures the max time to wait for a permit to become available.
	WithMaxWaitTime(maxWaitTime time.Duration) BulkheadBuilder[R]

	// OnFull registers the listener to be called when the bulkhead is full.
	OnFull(listener func(event failsafe.ExecutionAttemptedEvent[R])) BulkheadBuilder[R]

	// Build returns a new Bulkhead using the builder's configuration.
	Build() Bulkhead[R]
}

type bulkheadConfig[R any] struct {
	maxConcurrency int64
	maxWaitTime    time.Duration
	onFull         func(failsafe.ExecutionAttemptedEvent[R])
}

var _ BulkheadBuilder[any] = &bulkheadConfig[any]{}

func (c *bulkheadConfig[R]) WithMaxWaitTime(maxWaitTime time.Duration) BulkheadBuilder[R] {
	c.maxWaitTime = maxWaitTime
	return c
}

func (c *bulkheadConfig[R]) OnFull(listener func(event failsafe.ExecutionAttemptedEvent[R])) BulkheadBuilder[R] {
	c.onFull = listener
	return c
}

func (c *bulkheadConfig[R]) Build() Bulkhead[R] {
	cCopy := *c
	return &bulkhead[R]{
		config: &cCopy,
		sem:    semaphore.NewWeighted(cCopy.maxConcurrency),
	}
}

// With returns a new Bulkhead with the given maxConcurrency.
func With[R any](maxConcurrency uint) Bulkhead[R] {
	return Builder[R](maxConcurrency).Build()
}

// Builder returns a BulkheadBuilder for a Bulkhead with the given maxConcurrency.
func Builder[R any](maxConcurrency uint) BulkheadBuilder[R] {
	return &bulkheadConfig[R]{
		maxConcurrency: int64(maxConcurrency),
	}
}

type bulkhead[R any] struct {
	config *bulkheadConfig[R]
	sem    *semaphore.Weighted
}

func (b *bulkhead[R]) AcquirePermit(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return b.sem.Acquire(ctx, 1)
}

func (b *bulkhead[R]) AcquirePermitWithMaxWait(ctx context.Context, maxWaitTime time.Duration) error {
	if ctx == nil {
		ctx = context.Background()
	}

	if b.sem.TryAcquire(1) {
		return nil
	}
	if maxWaitTime == 0 {
		return ErrFull
	}

	waitCtx, cancel := context.WithTimeout(ctx, maxWaitTime)
	defer cancel()
	if err := b.sem.Acquire(waitCtx, 1); err != nil {
		if errors.Is(waitCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return ErrFull
		}
		return err
	}
	return nil
}

func (b *bulkhead[R]) TryAcquirePermit() bool {
	return b.sem.TryAcquire(1)
}

func (b *bulkhead[R]) ReleasePermit() {
	b.sem.Release(1)
}

func (b *bulkhead[R]) ToExecutor(policyIndex int) failsafe.PolicyExecutor[R] {
	be := &bulkheadExecutor[R]{
		BasePolicyExecutor: &spi.BasePolicyExecutor[R]{
			PolicyIndex: policyIndex,
		},
		bulkhead: b,
	}
	be.PolicyExecutor = be
	return be
}
