// Package retrypolicy implements a RetryPolicy, which retries failed executions a configurable number of times,
// with an optional delay between attempts.
package retrypolicy

import (
	"time"

	"github.com/bertbaron/failsafe-go"
	"github.com/bertbaron/failsafe-go/spi"
)

const defaultMaxRetries = 2

// RetryPolicy is a policy that defines when retries should be performed. See RetryPolicyBuilder for configuration
// options.
//
// This type is concurrency safe.
type RetryPolicy[R any] interface {
	failsafe.Policy[R]
}

/*
RetryPolicyBuilder builds RetryPolicy instances.

  - By default, a RetryPolicy retries up to 2 times when any error is returned, with no delay between attempts.
  - By default, any error is considered a failure and is handled by the policy. This can be overridden with Handle,
    HandleIf, HandleResult, HandleResultIf, or HandleAllIf. If multiple conditions are configured, any condition that
    matches triggers handling.
  - AbortOn, AbortWhen, and AbortIf describe when retries should stop early regardless of the remaining attempt
    budget.

This type is not concurrency safe.
*/
type RetryPolicyBuilder[R any] interface {
	failsafe.ListenablePolicyBuilder[RetryPolicyBuilder[R], R]
	failsafe.FailurePolicyBuilder[RetryPolicyBuilder[R], R]
	failsafe.DelayablePolicyBuilder[RetryPolicyBuilder[R], R]

	// WithMaxAttempts sets the max number of execution attempts to perform. -1 indicates no limit. Equivalent to
	// setting 1 more than WithMaxRetries.
	WithMaxAttempts(maxAttempts int) RetryPolicyBuilder[R]

	// WithMaxRetries sets the max number of retries to perform when an execution attempt fails. -1 indicates no
	// limit.
	WithMaxRetries(maxRetries int) RetryPolicyBuilder[R]

	// WithMaxDuration sets the max duration to perform retries for, after which the execution is failed.
	WithMaxDuration(maxDuration time.Duration) RetryPolicyBuilder[R]

	// WithBackoff sets the delay between retries, exponentially backing off to maxDelay and doubling consecutive
	// delays. Replaces any previously configured fixed delay.
	WithBackoff(delay time.Duration, maxDelay time.Duration) RetryPolicyBuilder[R]

	// WithBackoffFactor sets the delay between retries, exponentially backing off to maxDelay and multiplying
	// consecutive delays by delayFactor. Replaces any previously configured fixed delay.
	WithBackoffFactor(delay time.Duration, maxDelay time.Duration, delayFactor float32) RetryPolicyBuilder[R]

	// WithJitter sets the jitter to randomly vary retry delays by: for each delay, a random portion of +/- jitter
	// is added. Replaces any previously configured jitter factor.
	WithJitter(jitter time.Duration) RetryPolicyBuilder[R]

	// WithJitterFactor sets the jitterFactor to randomly vary retry delays by: for each delay, a random portion of
	// +/- (delay * jitterFactor) is added. Replaces any previously configured jitter duration.
	WithJitterFactor(jitterFactor float32) RetryPolicyBuilder[R]

	// AbortOn specifies that retries should be aborted if the execution error satisfies errors.Is against any of
	// the given errors.
	AbortOn(errs ...error) RetryPolicyBuilder[R]

	// AbortWhen specifies that retries should be aborted if the execution result equals the given result.
	AbortWhen(result R) RetryPolicyBuilder[R]

	// AbortIf specifies that retries should be aborted if the predicate matches the execution error.
	AbortIf(predicate func(error) bool) RetryPolicyBuilder[R]

	// OnAbort registers the listener to be called when retries are aborted.
	OnAbort(listener func(failsafe.ExecutionCompletedEvent[R])) RetryPolicyBuilder[R]

	// OnFailedAttempt registers the listener to be called when an execution attempt fails.
	OnFailedAttempt(listener func(failsafe.ExecutionAttemptedEvent[R])) RetryPolicyBuilder[R]

	// OnRetriesExceeded registers the listener to be called when an execution fails and the max retries or max
	// duration are exceeded.
	OnRetriesExceeded(listener func(failsafe.ExecutionCompletedEvent[R])) RetryPolicyBuilder[R]

	// OnRetryScheduled registers the listener to be called when a retry is scheduled, before any delay.
	OnRetryScheduled(listener func(failsafe.ExecutionScheduledEvent[R])) RetryPolicyBuilder[R]

	// OnRetry registers the listener to be called just before a retry attempt takes place, after any delay.
	OnRetry(listener func(failsafe.ExecutionAttemptedEvent[R])) RetryPolicyBuilder[R]

	// Build returns a new RetryPolicy using the builder's configuration.
	Build() RetryPolicy[R]
}

type retryPolicyConfig[R any] struct {
	*spi.BaseListenablePolicy[R]
	*spi.BaseFailurePolicy[R]
	*spi.BaseDelayablePolicy[R]
	*spi.BaseAbortablePolicy[R]

	delayFactor  float32
	maxDelay     time.Duration
	jitter       time.Duration
	jitterFactor float32
	maxDuration  time.Duration
	maxRetries   int

	abortListener           func(failsafe.ExecutionCompletedEvent[R])
	failedAttemptListener   func(failsafe.ExecutionAttemptedEvent[R])
	retriesExceededListener func(failsafe.ExecutionCompletedEvent[R])
	retryListener           func(failsafe.ExecutionAttemptedEvent[R])
	retryScheduledListener  func(failsafe.ExecutionScheduledEvent[R])
}

var _ RetryPolicyBuilder[any] = &retryPolicyConfig[any]{}

type retryPolicy[R any] struct {
	config *retryPolicyConfig[R]
}

// OfDefaults returns a RetryPolicy using the default configuration: up to 2 retries with no delay.
func OfDefaults[R any]() RetryPolicy[R] {
	return BuilderForResult[R]().Build()
}

func Builder() RetryPolicyBuilder[any] {
	return BuilderForResult[any]()
}

func BuilderForResult[R any]() RetryPolicyBuilder[R] {
	return &retryPolicyConfig[R]{
		BaseListenablePolicy: &spi.BaseListenablePolicy[R]{},
		BaseFailurePolicy:    &spi.BaseFailurePolicy[R]{},
		BaseDelayablePolicy:  &spi.BaseDelayablePolicy[R]{},
		BaseAbortablePolicy:  &spi.BaseAbortablePolicy[R]{},
		maxRetries:           defaultMaxRetries,
	}
}

func (c *retryPolicyConfig[R]) Build() RetryPolicy[R] {
	cCopy := *c
	return &retryPolicy[R]{config: &cCopy}
}

func (c *retryPolicyConfig[R]) AbortOn(errs ...error) RetryPolicyBuilder[R] {
	c.BaseAbortablePolicy.AbortOn(errs...)
	return c
}

func (c *retryPolicyConfig[R]) AbortIf(predicate func(error) bool) RetryPolicyBuilder[R] {
	c.BaseAbortablePolicy.AbortIf(func(_ R, err error) bool {
		if err == nil {
			return false
		}
		return predicate(err)
	})
	return c
}

func (c *retryPolicyConfig[R]) AbortWhen(result R) RetryPolicyBuilder[R] {
	c.BaseAbortablePolicy.AbortOnResult(result)
	return c
}

func (c *retryPolicyConfig[R]) Handle(errs ...error) RetryPolicyBuilder[R] {
	c.BaseFailurePolicy.Handle(errs...)
	return c
}

func (c *retryPolicyConfig[R]) HandleIf(predicate func(error) bool) RetryPolicyBuilder[R] {
	c.BaseFailurePolicy.HandleIf(predicate)
	return c
}

func (c *retryPolicyConfig[R]) HandleResult(result R) RetryPolicyBuilder[R] {
	c.BaseFailurePolicy.HandleResult(result)
	return c
}

func (c *retryPolicyConfig[R]) HandleResultIf(predicate func(R) bool) RetryPolicyBuilder[R] {
	c.BaseFailurePolicy.HandleResultIf(predicate)
	return c
}

func (c *retryPolicyConfig[R]) HandleAllIf(predicate func(R, error) bool) RetryPolicyBuilder[R] {
	c.BaseFailurePolicy.HandleAllIf(predicate)
	return c
}

func (c *retryPolicyConfig[R]) WithMaxAttempts(maxAttempts int) RetryPolicyBuilder[R] {
	if maxAttempts == -1 {
		c.maxRetries = -1
	} else {
		c.maxRetries = maxAttempts - 1
	}
	return c
}

// WithMaxRetries configures the max number of retries to perform. A maxRetries of -1 means no limit; 0 or any other
// negative value disables retries.
func (c *retryPolicyConfig[R]) WithMaxRetries(maxRetries int) RetryPolicyBuilder[R] {
	c.maxRetries = maxRetries
	return c
}

func (c *retryPolicyConfig[R]) WithMaxDuration(maxDuration time.Duration) RetryPolicyBuilder[R] {
	c.maxDuration = maxDuration
	return c
}

func (c *retryPolicyConfig[R]) WithDelay(delay time.Duration) RetryPolicyBuilder[R] {
	c.BaseDelayablePolicy.WithDelay(delay)
	return c
}

func (c *retryPolicyConfig[R]) WithDelayFn(delayFn failsafe.DelayFunction[R]) RetryPolicyBuilder[R] {
	c.BaseDelayablePolicy.WithDelayFn(delayFn)
	return c
}

func (c *retryPolicyConfig[R]) WithBackoff(delay time.Duration, maxDelay time.Duration) RetryPolicyBuilder[R] {
	c.BaseDelayablePolicy.WithDelay(delay)
	c.maxDelay = maxDelay
	c.delayFactor = 2
	return c
}

func (c *retryPolicyConfig[R]) WithBackoffFactor(delay time.Duration, maxDelay time.Duration, delayFactor float32) RetryPolicyBuilder[R] {
	c.BaseDelayablePolicy.WithDelay(delay)
	c.maxDelay = maxDelay
	c.delayFactor = delayFactor
	return c
}

func (c *retryPolicyConfig[R]) WithJitter(jitter time.Duration) RetryPolicyBuilder[R] {
	c.jitter = jitter
	c.jitterFactor = 0
	return c
}

func (c *retryPolicyConfig[R]) WithJitterFactor(jitterFactor float32) RetryPolicyBuilder[R] {
	c.jitterFactor = jitterFactor
	c.jitter = 0
	return c
}

func (c *retryPolicyConfig[R]) OnSuccess(listener func(event failsafe.ExecutionCompletedEvent[R])) RetryPolicyBuilder[R] {
	c.BaseListenablePolicy.OnSuccess(listener)
	return c
}

func (c *retryPolicyConfig[R]) OnFailure(listener func(event failsafe.ExecutionCompletedEvent[R])) RetryPolicyBuilder[R] {
	c.BaseListenablePolicy.OnFailure(listener)
	return c
}

func (c *retryPolicyConfig[R]) OnAbort(listener func(failsafe.ExecutionCompletedEvent[R])) RetryPolicyBuilder[R] {
	c.abortListener = listener
	return c
}

func (c *retryPolicyConfig[R]) OnFailedAttempt(listener func(failsafe.ExecutionAttemptedEvent[R])) RetryPolicyBuilder[R] {
	c.failedAttemptListener = listener
	return c
}

func (c *retryPolicyConfig[R]) OnRetriesExceeded(listener func(failsafe.ExecutionCompletedEvent[R])) RetryPolicyBuilder[R] {
	c.retriesExceededListener = listener
	return c
}

func (c *retryPolicyConfig[R]) OnRetry(listener func(failsafe.ExecutionAttemptedEvent[R])) RetryPolicyBuilder[R] {
	c.retryListener = listener
	return c
}

func (c *retryPolicyConfig[R]) OnRetryScheduled(listener func(failsafe.ExecutionScheduledEvent[R])) RetryPolicyBuilder[R] {
	c.retryScheduledListener = listener
	return c
}

func (c *retryPolicyConfig[R]) allowsRetries() bool {
	return c.maxRetries == -1 || c.maxRetries > 0
}

func (rp *retryPolicy[R]) ToExecutor(policyIndex int) failsafe.PolicyExecutor[R] {
	rpe := retryPolicyExecutor[R]{
		BasePolicyExecutor: &spi.BasePolicyExecutor[R]{
			BaseListenablePolicy: rp.config.BaseListenablePolicy,
			BaseFailurePolicy:    rp.config.BaseFailurePolicy,
			PolicyIndex:          policyIndex,
		},
		retryPolicy: rp,
	}
	rpe.PolicyExecutor = &rpe
	return &rpe
}
