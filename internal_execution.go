package failsafe

import (
	"math"
	"sync"
	"time"

	"github.com/bertbaron/failsafe-go/common"
)

// notCanceled is a canceledIndex value lower than any real policy index (which start at 0 for the innermost
// policy and increase outward), meaning no cancellation has occurred.
const notCanceled = math.MinInt32

// ExecutionInternal contains the mutable, per-call state for a single execution — the spec's AbstractExecution.
// It is created once per Executor call, mutated only by the owning pipeline and, for the cancellation protocol
// below, by at most one concurrent canceller (a Timeout watcher goroutine or an external Future.Cancel caller).
type ExecutionInternal[R any] struct {
	Execution[R]

	mtx sync.Mutex
	// result is the last recorded result, or nil if none has been recorded yet.
	result *common.ExecutionResult[R]
	// resultAttempt is the value of Attempts when result was recorded.
	resultAttempt int
	// canceledIndex is notCanceled until some policy (or orchestrationIndex for the Future layer) cancels the
	// execution, at which point it holds that canceller's policy index.
	canceledIndex int
	// canceled is closed when the execution is canceled, letting any blocked select observe it.
	canceled chan struct{}
}

// newExecutionInternal creates a new, uninitialized ExecutionInternal.
func newExecutionInternal[R any]() *ExecutionInternal[R] {
	return &ExecutionInternal[R]{
		canceledIndex: notCanceled,
		canceled:      make(chan struct{}),
	}
}

// InitializeAttempt prepares a new execution attempt, incrementing the attempt counter and recording its start
// time. Returns false if the attempt could not be initialized because the execution was already canceled by a
// policy outside policyIndex (a larger index), or by the Future.
func (e *ExecutionInternal[R]) InitializeAttempt(policyIndex int) bool {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	if e.isCanceled(policyIndex) {
		return false
	}
	e.Attempts++
	e.Executions++
	e.AttemptStartTime = time.Now()
	return true
}

// Record records the result of the current execution attempt, if a result has not already been recorded for that
// attempt, and returns the recorded result. Subsequent calls for the same attempt observe the first recorded result.
func (e *ExecutionInternal[R]) Record(result *common.ExecutionResult[R]) *common.ExecutionResult[R] {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.record(result)
}

// record requires mtx to be held.
func (e *ExecutionInternal[R]) record(result *common.ExecutionResult[R]) *common.ExecutionResult[R] {
	if e.result == nil || e.resultAttempt != e.Attempts {
		e.result = result
		e.resultAttempt = e.Attempts
		e.LastResult = result.Result
		e.LastError = result.Error
	}
	return e.result
}

// Cancel marks the execution as canceled by the policy at policyIndex (orchestrationIndex for the Future layer),
// which cancels pending work of any policy composed inside policyIndex, and records the given result in place of
// any result already recorded for the current attempt. Only the first call has an effect. IsCanceled does not
// report policies at or outside policyIndex as canceled; they observe the given result via GetResult.
func (e *ExecutionInternal[R]) Cancel(policyIndex int, result *common.ExecutionResult[R]) {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	if e.canceledIndex != notCanceled {
		return
	}
	e.canceledIndex = policyIndex
	e.result = result
	e.resultAttempt = e.Attempts
	e.LastResult = result.Result
	e.LastError = result.Error
	close(e.canceled)
}

// IsCanceled returns whether the execution has been canceled by a policy composed outside policyIndex (a larger
// index, since policies are indexed innermost=0, increasing outward), or by an external Future.Cancel, which always
// qualifies since orchestrationIndex is larger than every real policy index.
func (e *ExecutionInternal[R]) IsCanceled(policyIndex int) bool {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.isCanceled(policyIndex)
}

// isCanceled requires mtx to be held.
func (e *ExecutionInternal[R]) isCanceled(policyIndex int) bool {
	return e.canceledIndex > policyIndex
}

// Canceled returns a channel that is closed when the execution is canceled.
func (e *ExecutionInternal[R]) Canceled() <-chan struct{} {
	return e.canceled
}

// GetResult returns the last recorded result, or nil if none has been recorded.
func (e *ExecutionInternal[R]) GetResult() *common.ExecutionResult[R] {
	e.mtx.Lock()
	defer e.mtx.Unlock()
	return e.result
}

// ExecutionForResult returns a copy of the Execution with LastResult/LastError set from result, leaving the
// ExecutionInternal's own bookkeeping untouched. This is used before handing the execution to an event listener.
func (e *ExecutionInternal[R]) ExecutionForResult(result *common.ExecutionResult[R]) Execution[R] {
	c := e.Execution
	c.LastResult = result.Result
	c.LastError = result.Error
	return c
}
