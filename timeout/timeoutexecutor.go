package timeout

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/bertbaron/failsafe-go"
	"github.com/bertbaron/failsafe-go/common"
	"github.com/bertbaron/failsafe-go/spi"
)

// timeoutExecutor is a failsafe.PolicyExecutor that handles failures according to a Timeout.
type timeoutExecutor[R any] struct {
	*spi.BasePolicyExecutor[R]
	*timeoutPolicy[R]
}

var _ failsafe.PolicyExecutor[any] = &timeoutExecutor[any]{}

// Apply races a timeout context, the execution's own context (if any), and innerFn's completion. Whichever
// completes first wins; a timeout cancels everything composed inside it via exec.Cancel, which unblocks retry
// delays and other inner waits through ExecutionInternal.Canceled.
func (e *timeoutExecutor[R]) Apply(innerFn failsafe.ExecutionHandler[R]) failsafe.ExecutionHandler[R] {
	return func(exec *failsafe.ExecutionInternal[R]) *common.ExecutionResult[R] {
		var result atomic.Pointer[common.ExecutionResult[R]]
		timeoutCtx, timeoutCancelFn := context.WithTimeout(context.Background(), e.config.timeLimit)
		defer timeoutCancelFn()

		timeoutResult := common.Failure[R](ErrExceeded)
		go func() {
			select {
			case <-timeoutCtx.Done():
				if errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
					if result.CompareAndSwap(nil, timeoutResult) {
						exec.Cancel(e.PolicyIndex, timeoutResult)
					}
				}
			case <-execContextDone(exec):
				ctxResult := common.Failure[R](exec.Context.Err())
				if result.CompareAndSwap(nil, ctxResult) {
					timeoutCancelFn()
				}
			}
		}()

		if result.CompareAndSwap(nil, innerFn(exec)) {
			timeoutCancelFn()
		}
		er := result.Load()
		if er == timeoutResult && e.config.onTimeoutExceeded != nil {
			e.config.onTimeoutExceeded(failsafe.ExecutionDoneEvent[R]{
				Error:          ErrExceeded,
				ExecutionStats: exec.ExecutionStats,
			})
		}
		return e.PostExecute(exec, er)
	}
}

// execContextDone returns exec's Context.Done channel, or a channel that never fires if no Context is configured.
func execContextDone[R any](exec *failsafe.ExecutionInternal[R]) <-chan struct{} {
	if exec.Context == nil {
		return nil
	}
	return exec.Context.Done()
}

func (e *timeoutExecutor[R]) IsFailure(result *common.ExecutionResult[R]) bool {
	return result.Error != nil && errors.Is(result.Error, ErrExceeded)
}
