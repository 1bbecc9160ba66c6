// Package timeout implements a Timeout policy, which cancels an execution and any policies composed inside it if
// it exceeds a configured time limit.
package timeout

import (
	"errors"
	"time"

	"github.com/bertbaron/failsafe-go"
	"github.com/bertbaron/failsafe-go/spi"
)

// ErrExceeded is the error set on a result when a Timeout's time limit is exceeded.
var ErrExceeded = errors.New("timeout exceeded")

// Timeout is a policy that fails an execution with ErrExceeded, and cancels any policy composed inside it such as a
// retry, if it exceeds a time limit. Inner policies observe the cancellation through the execution's cancellation
// channel; the execution's Context is not replaced or canceled, and a running func is not interrupted: the Timeout
// returns once the func has returned.
//
// This type is concurrency safe.
type Timeout[R any] interface {
	failsafe.Policy[R]
}

// Builder builds Timeout instances.
//
// This type is not concurrency safe.
type Builder[R any] interface {
	// OnTimeoutExceeded registers the listener to be called when the timeout is exceeded.
	OnTimeoutExceeded(listener func(event failsafe.ExecutionDoneEvent[R])) Builder[R]

	// Build returns a new Timeout using the builder's configuration.
	Build() Timeout[R]
}

type timeoutConfig[R any] struct {
	*spi.BaseListenablePolicy[R]
	timeLimit         time.Duration
	onTimeoutExceeded func(failsafe.ExecutionDoneEvent[R])
}

var _ Builder[any] = &timeoutConfig[any]{}

// New returns a new Timeout for the given timeLimit.
func New[R any](timeLimit time.Duration) Timeout[R] {
	return NewBuilder[R](timeLimit).Build()
}

// NewBuilder returns a Builder for Timeouts with the given timeLimit.
func NewBuilder[R any](timeLimit time.Duration) Builder[R] {
	return &timeoutConfig[R]{
		BaseListenablePolicy: &spi.BaseListenablePolicy[R]{},
		timeLimit:            timeLimit,
	}
}

func (c *timeoutConfig[R]) OnTimeoutExceeded(listener func(event failsafe.ExecutionDoneEvent[R])) Builder[R] {
	c.onTimeoutExceeded = listener
	return c
}

func (c *timeoutConfig[R]) Build() Timeout[R] {
	cCopy := *c
	return &timeoutPolicy[R]{config: &cCopy}
}

type timeoutPolicy[R any] struct {
	config *timeoutConfig[R]
}

func (t *timeoutPolicy[R]) ToExecutor(policyIndex int) failsafe.PolicyExecutor[R] {
	te := &timeoutExecutor[R]{
		BasePolicyExecutor: &spi.BasePolicyExecutor[R]{
			BaseListenablePolicy: t.config.BaseListenablePolicy,
			PolicyIndex:          policyIndex,
		},
		timeoutPolicy: t,
	}
	te.PolicyExecutor = te
	return te
}
