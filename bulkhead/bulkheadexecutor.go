package bulkhead

import (
	"errors"

	"github.com/bertbaron/failsafe-go"
	"github.com/bertbaron/failsafe-go/common"
	"github.com/bertbaron/failsafe-go/spi"
)

// bulkheadExecutor is a failsafe.PolicyExecutor that handles failures according to a Bulkhead.
type bulkheadExecutor[R any] struct {
	*spi.BasePolicyExecutor[R]
	*bulkhead[R]
}

var _ failsafe.PolicyExecutor[any] = &bulkheadExecutor[any]{}

// Apply acquires a permit before invoking innerFn and releases it once innerFn returns, regardless of outcome.
func (e *bulkheadExecutor[R]) Apply(innerFn failsafe.ExecutionHandler[R]) failsafe.ExecutionHandler[R] {
	return func(exec *failsafe.ExecutionInternal[R]) *common.ExecutionResult[R] {
		if err := e.bulkhead.AcquirePermitWithMaxWait(exec.Context, e.bulkhead.config.maxWaitTime); err != nil {
			if e.bulkhead.config.onFull != nil && errors.Is(err, ErrFull) {
				e.bulkhead.config.onFull(failsafe.ExecutionAttemptedEvent[R]{
					Execution: exec.Execution,
				})
			}
			if errors.Is(err, ErrFull) {
				return e.PostExecute(exec, common.Failure[R](ErrFull))
			}
			return e.PostExecute(exec, common.Failure[R](err))
		}
		defer e.bulkhead.ReleasePermit()

		result := innerFn(exec)
		return e.PostExecute(exec, result)
	}
}

func (e *bulkheadExecutor[R]) IsFailure(result *common.ExecutionResult[R]) bool {
	return result.Error != nil && errors.Is(result.Error, ErrFull)
}
