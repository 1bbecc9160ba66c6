package ratelimiter

import (
	"errors"

	"github.com/bertbaron/failsafe-go"
	"github.com/bertbaron/failsafe-go/common"
	"github.com/bertbaron/failsafe-go/spi"
)

// rateLimiterExecutor is a failsafe.PolicyExecutor that handles failures according to a RateLimiter.
type rateLimiterExecutor[R any] struct {
	*spi.BasePolicyExecutor[R]
	*rateLimiter[R]
}

var _ failsafe.PolicyExecutor[any] = &rateLimiterExecutor[any]{}

func (e *rateLimiterExecutor[R]) Apply(innerFn failsafe.ExecutionHandler[R]) failsafe.ExecutionHandler[R] {
	return func(exec *failsafe.ExecutionInternal[R]) *common.ExecutionResult[R] {
		if err := e.acquirePermitsWithMaxWait(exec.Context, exec, 1, e.config.maxWaitTime); err != nil {
			if e.config.onRateLimitExceeded != nil && errors.Is(err, ErrExceeded) {
				e.config.onRateLimitExceeded(failsafe.ExecutionAttemptedEvent[R]{
					Execution: exec.Execution,
				})
			}
			return e.PostExecute(exec, common.Failure[R](err))
		}
		return e.PostExecute(exec, innerFn(exec))
	}
}

func (e *rateLimiterExecutor[R]) IsFailure(result *common.ExecutionResult[R]) bool {
	return result.Error != nil && errors.Is(result.Error, ErrExceeded)
}
