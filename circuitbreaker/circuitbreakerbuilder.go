package circuitbreaker

import (
	"time"

	"github.com/bertbaron/failsafe-go"
	"github.com/bertbaron/failsafe-go/internal/util"
	"github.com/bertbaron/failsafe-go/spi"
)

/*
CircuitBreakerBuilder builds CircuitBreaker instances.

  - By default, any error is considered a failure and is handled by the policy. This can be overridden with Handle,
    HandleIf, HandleResult, HandleResultIf, or HandleAllIf. If multiple conditions are configured, any condition that
    matches triggers handling.

This type is not concurrency safe.
*/
type CircuitBreakerBuilder[R any] interface {
	failsafe.ListenablePolicyBuilder[CircuitBreakerBuilder[R], R]
	failsafe.FailurePolicyBuilder[CircuitBreakerBuilder[R], R]
	failsafe.DelayablePolicyBuilder[CircuitBreakerBuilder[R], R]

	// OnClose calls the listener when the CircuitBreaker closes.
	OnClose(listener func(StateChangedEvent)) CircuitBreakerBuilder[R]

	// OnOpen calls the listener when the CircuitBreaker opens.
	OnOpen(listener func(StateChangedEvent)) CircuitBreakerBuilder[R]

	// OnHalfOpen calls the listener when the CircuitBreaker half-opens.
	OnHalfOpen(listener func(StateChangedEvent)) CircuitBreakerBuilder[R]

	// WithFailureThreshold configures the threshold that must be reached in ClosedState to open the circuit. If a
	// success threshold is not also configured, the same threshold is reused in HalfOpenState to decide whether to
	// transition back to OpenState or ClosedState.
	WithFailureThreshold(thresholdConfig ThresholdConfig) CircuitBreakerBuilder[R]

	// WithSuccessThreshold configures count based success thresholding: the number of successful trial executions,
	// out of successThresholdingCapacity permitted in HalfOpenState, required to close the circuit.
	WithSuccessThreshold(successThreshold uint, successThresholdingCapacity uint) CircuitBreakerBuilder[R]

	// Build returns a new CircuitBreaker using the builder's configuration.
	Build() CircuitBreaker[R]
}

type circuitBreakerConfig[R any] struct {
	*spi.BaseListenablePolicy[R]
	*spi.BaseFailurePolicy[R]
	*spi.BaseDelayablePolicy[R]
	clock                  util.Clock
	openListener           func(StateChangedEvent)
	halfOpenListener       func(StateChangedEvent)
	closeListener          func(StateChangedEvent)
	failureThresholdConfig *thresholdConfig

	successThreshold            uint
	successThresholdingCapacity uint
}

var _ CircuitBreakerBuilder[any] = &circuitBreakerConfig[any]{}

// ThresholdConfig configures when a CircuitBreaker should trip, via NewCountBasedThreshold, NewTimeBasedThreshold,
// or NewRateBasedThreshold.
type ThresholdConfig interface {
	// WithExecutionThreshold sets the minimum number of executions, within the thresholding period, before a time
	// or rate based threshold can trip the circuit.
	WithExecutionThreshold(executionThreshold uint) ThresholdConfig
	getConfig() *thresholdConfig
}

type thresholdConfig struct {
	threshold            uint
	rateThreshold        uint
	thresholdingCapacity uint
	executionThreshold   uint
	thresholdingPeriod   time.Duration
}

func (c *thresholdConfig) WithExecutionThreshold(executionThreshold uint) ThresholdConfig {
	c.executionThreshold = executionThreshold
	return c
}

func (c *thresholdConfig) getConfig() *thresholdConfig {
	return c
}

// NewCountBasedThreshold returns a ThresholdConfig that trips after threshold failures out of the last
// thresholdingCapacity executions.
func NewCountBasedThreshold(threshold uint, thresholdingCapacity uint) ThresholdConfig {
	return &thresholdConfig{
		threshold:            threshold,
		thresholdingCapacity: thresholdingCapacity,
	}
}

// NewTimeBasedThreshold returns a ThresholdConfig that trips after threshold failures within thresholdingPeriod.
func NewTimeBasedThreshold(threshold uint, thresholdingPeriod time.Duration) ThresholdConfig {
	return &thresholdConfig{
		threshold:            threshold,
		thresholdingCapacity: threshold,
		executionThreshold:   threshold,
		thresholdingPeriod:   thresholdingPeriod,
	}
}

// NewRateBasedThreshold returns a ThresholdConfig that trips when the failure rate, as a percentage, reaches
// rateThreshold within thresholdingPeriod, once at least executionThreshold executions have occurred.
func NewRateBasedThreshold(rateThreshold uint, executionThreshold uint, thresholdingPeriod time.Duration) ThresholdConfig {
	return &thresholdConfig{
		rateThreshold:      rateThreshold,
		executionThreshold: executionThreshold,
		thresholdingPeriod: thresholdingPeriod,
	}
}

// OfDefaults creates a count based CircuitBreaker that opens after a single failure, closes after a single
// success, and delays 1 minute before a trial execution.
func OfDefaults[R any]() CircuitBreaker[R] {
	return Builder[R]().Build()
}

// Builder creates a CircuitBreakerBuilder that by default builds a count based circuit breaker opening after a
// single failure, closing after a single success, with a 1 minute delay, unless configured otherwise.
func Builder[R any]() CircuitBreakerBuilder[R] {
	return &circuitBreakerConfig[R]{
		BaseListenablePolicy: &spi.BaseListenablePolicy[R]{},
		BaseFailurePolicy:    &spi.BaseFailurePolicy[R]{},
		BaseDelayablePolicy: &spi.BaseDelayablePolicy[R]{
			Delay: time.Minute,
		},
		clock: util.NewClock(),
		failureThresholdConfig: &thresholdConfig{
			threshold:            1,
			thresholdingCapacity: 1,
		},
	}
}

func (c *circuitBreakerConfig[R]) Build() CircuitBreaker[R] {
	cCopy := *c
	breaker := &circuitBreaker[R]{config: &cCopy}
	breaker.state = newClosedState[R](breaker)
	return breaker
}

func (c *circuitBreakerConfig[R]) Handle(errs ...error) CircuitBreakerBuilder[R] {
	c.BaseFailurePolicy.Handle(errs...)
	return c
}

func (c *circuitBreakerConfig[R]) HandleIf(predicate func(error) bool) CircuitBreakerBuilder[R] {
	c.BaseFailurePolicy.HandleIf(predicate)
	return c
}

func (c *circuitBreakerConfig[R]) HandleResult(result R) CircuitBreakerBuilder[R] {
	c.BaseFailurePolicy.HandleResult(result)
	return c
}

func (c *circuitBreakerConfig[R]) HandleResultIf(predicate func(R) bool) CircuitBreakerBuilder[R] {
	c.BaseFailurePolicy.HandleResultIf(predicate)
	return c
}

func (c *circuitBreakerConfig[R]) HandleAllIf(predicate func(R, error) bool) CircuitBreakerBuilder[R] {
	c.BaseFailurePolicy.HandleAllIf(predicate)
	return c
}

func (c *circuitBreakerConfig[R]) WithFailureThreshold(tc ThresholdConfig) CircuitBreakerBuilder[R] {
	c.failureThresholdConfig = tc.getConfig()
	return c
}

func (c *circuitBreakerConfig[R]) WithSuccessThreshold(successThreshold uint, successThresholdingCapacity uint) CircuitBreakerBuilder[R] {
	c.successThreshold = successThreshold
	c.successThresholdingCapacity = successThresholdingCapacity
	return c
}

func (c *circuitBreakerConfig[R]) WithDelay(delay time.Duration) CircuitBreakerBuilder[R] {
	c.BaseDelayablePolicy.WithDelay(delay)
	return c
}

func (c *circuitBreakerConfig[R]) WithDelayFn(delayFn failsafe.DelayFunction[R]) CircuitBreakerBuilder[R] {
	c.BaseDelayablePolicy.WithDelayFn(delayFn)
	return c
}

func (c *circuitBreakerConfig[R]) OnClose(listener func(event StateChangedEvent)) CircuitBreakerBuilder[R] {
	c.closeListener = listener
	return c
}

func (c *circuitBreakerConfig[R]) OnOpen(listener func(event StateChangedEvent)) CircuitBreakerBuilder[R] {
	c.openListener = listener
	return c
}

func (c *circuitBreakerConfig[R]) OnHalfOpen(listener func(event StateChangedEvent)) CircuitBreakerBuilder[R] {
	c.halfOpenListener = listener
	return c
}

func (c *circuitBreakerConfig[R]) OnSuccess(listener func(event failsafe.ExecutionCompletedEvent[R])) CircuitBreakerBuilder[R] {
	c.BaseListenablePolicy.OnSuccess(listener)
	return c
}

func (c *circuitBreakerConfig[R]) OnFailure(listener func(event failsafe.ExecutionCompletedEvent[R])) CircuitBreakerBuilder[R] {
	c.BaseListenablePolicy.OnFailure(listener)
	return c
}
