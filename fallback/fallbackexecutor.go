package fallback

import (
	"github.com/bertbaron/failsafe-go"
	"github.com/bertbaron/failsafe-go/common"
	"github.com/bertbaron/failsafe-go/spi"
)

// fallbackExecutor is a failsafe.PolicyExecutor that handles failures according to a Fallback.
type fallbackExecutor[R any] struct {
	*spi.BasePolicyExecutor[R]
	*fallback[R]
}

var _ failsafe.PolicyExecutor[any] = &fallbackExecutor[any]{}

// Apply calls innerFn, substituting a fallback result if it fails, then applies post-execution handling. A
// cancellation observed after innerFn returns (e.g. an outer Timeout firing) skips the fallback: there's no point
// computing a replacement result for an execution the caller has already given up on.
func (e *fallbackExecutor[R]) Apply(innerFn failsafe.ExecutionHandler[R]) failsafe.ExecutionHandler[R] {
	return func(exec *failsafe.ExecutionInternal[R]) *common.ExecutionResult[R] {
		result := innerFn(exec)
		if exec.IsCanceled(e.PolicyIndex) {
			return result
		}

		if e.IsFailure(result) {
			event := failsafe.ExecutionAttemptedEvent[R]{
				Execution: exec.ExecutionForResult(result),
			}
			if e.config.failedAttemptListener != nil {
				e.config.failedAttemptListener(event)
			}

			fallbackResult, err := e.config.fn(event)
			result = &common.ExecutionResult[R]{
				Result:     fallbackResult,
				Error:      err,
				Complete:   true,
				Success:    true,
				SuccessAll: result.SuccessAll,
			}
		}
		return e.PostExecute(exec, result)
	}
}
