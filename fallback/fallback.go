// Package fallback implements a Fallback policy, which substitutes a result, error, or computed value when an
// execution fails.
package fallback

import (
	"github.com/bertbaron/failsafe-go"
	"github.com/bertbaron/failsafe-go/spi"
)

// Fallback is a policy that handles failures using a fallback function, result, or error.
//
// This type is concurrency safe.
type Fallback[R any] interface {
	failsafe.Policy[R]
}

/*
FallbackBuilder builds Fallback instances.
  - By default, any error is considered a failure and is handled by the policy. This can be overridden with Handle,
    HandleIf, HandleResult, HandleResultIf, or HandleAllIf. If multiple conditions are configured, any condition that
    matches triggers handling.

This type is not concurrency safe.
*/
type FallbackBuilder[R any] interface {
	failsafe.ListenablePolicyBuilder[FallbackBuilder[R], R]
	failsafe.FailurePolicyBuilder[FallbackBuilder[R], R]

	// OnFailedAttempt registers the listener to be called when the last execution attempt prior to the fallback
	// failed. Use OnFailure to instead handle a failure in the fallback function itself.
	OnFailedAttempt(listener func(failsafe.ExecutionAttemptedEvent[R])) FallbackBuilder[R]

	// Build returns a new Fallback using the builder's configuration.
	Build() Fallback[R]
}

type fallbackConfig[R any] struct {
	*spi.BaseListenablePolicy[R]
	*spi.BaseFailurePolicy[R]
	fn                    func(event failsafe.ExecutionAttemptedEvent[R]) (R, error)
	failedAttemptListener func(failsafe.ExecutionAttemptedEvent[R])
}

var _ FallbackBuilder[any] = &fallbackConfig[any]{}

type fallback[R any] struct {
	config *fallbackConfig[R]
}

// WithResult returns a Fallback that returns result when an execution fails.
func WithResult[R any](result R) Fallback[R] {
	return BuilderWithResult[R](result).Build()
}

// WithError returns a Fallback that returns err when an execution fails.
func WithError[R any](err error) Fallback[R] {
	return BuilderWithError[R](err).Build()
}

// WithFn returns a Fallback that uses fallbackFn to compute a replacement result for a failed execution.
func WithFn[R any](fallbackFn func(event failsafe.ExecutionAttemptedEvent[R]) (R, error)) Fallback[R] {
	return BuilderWithFn(fallbackFn).Build()
}

func BuilderWithResult[R any](result R) FallbackBuilder[R] {
	return BuilderWithFn(func(_ failsafe.ExecutionAttemptedEvent[R]) (R, error) {
		return result, nil
	})
}

func BuilderWithError[R any](err error) FallbackBuilder[R] {
	return BuilderWithFn(func(_ failsafe.ExecutionAttemptedEvent[R]) (R, error) {
		var zero R
		return zero, err
	})
}

func BuilderWithFn[R any](fallbackFn func(event failsafe.ExecutionAttemptedEvent[R]) (R, error)) FallbackBuilder[R] {
	return &fallbackConfig[R]{
		BaseListenablePolicy: &spi.BaseListenablePolicy[R]{},
		BaseFailurePolicy:    &spi.BaseFailurePolicy[R]{},
		fn:                   fallbackFn,
	}
}

func (c *fallbackConfig[R]) Handle(errs ...error) FallbackBuilder[R] {
	c.BaseFailurePolicy.Handle(errs...)
	return c
}

func (c *fallbackConfig[R]) HandleIf(predicate func(error) bool) FallbackBuilder[R] {
	c.BaseFailurePolicy.HandleIf(predicate)
	return c
}

func (c *fallbackConfig[R]) HandleResult(result R) FallbackBuilder[R] {
	c.BaseFailurePolicy.HandleResult(result)
	return c
}

func (c *fallbackConfig[R]) HandleResultIf(predicate func(R) bool) FallbackBuilder[R] {
	c.BaseFailurePolicy.HandleResultIf(predicate)
	return c
}

func (c *fallbackConfig[R]) HandleAllIf(predicate func(R, error) bool) FallbackBuilder[R] {
	c.BaseFailurePolicy.HandleAllIf(predicate)
	return c
}

func (c *fallbackConfig[R]) OnFailedAttempt(listener func(failsafe.ExecutionAttemptedEvent[R])) FallbackBuilder[R] {
	c.failedAttemptListener = listener
	return c
}

func (c *fallbackConfig[R]) OnSuccess(listener func(event failsafe.ExecutionCompletedEvent[R])) FallbackBuilder[R] {
	c.BaseListenablePolicy.OnSuccess(listener)
	return c
}

func (c *fallbackConfig[R]) OnFailure(listener func(event failsafe.ExecutionCompletedEvent[R])) FallbackBuilder[R] {
	c.BaseListenablePolicy.OnFailure(listener)
	return c
}

func (c *fallbackConfig[R]) Build() Fallback[R] {
	cCopy := *c
	return &fallback[R]{config: &cCopy}
}

func (fb *fallback[R]) ToExecutor(policyIndex int) failsafe.PolicyExecutor[R] {
	fbe := &fallbackExecutor[R]{
		BasePolicyExecutor: &spi.BasePolicyExecutor[R]{
			BaseListenablePolicy: fb.config.BaseListenablePolicy,
			BaseFailurePolicy:    fb.config.BaseFailurePolicy,
			PolicyIndex:          policyIndex,
		},
		fallback: fb,
	}
	fbe.PolicyExecutor = fbe
	return fbe
}
