package failsafe

import (
	"math"
	"sync"

	"github.com/bertbaron/failsafe-go/common"
)

// orchestrationIndex is the policy index used by the Future itself when canceling an execution from the outside,
// i.e. a cancellation that is not attributable to any configured policy. It must be larger than every real policy
// index (policies are indexed innermost=0, increasing outward) so that an external cancellation dominates and is
// observed as "canceled" by every policy in the composition, regardless of how many are configured.
const orchestrationIndex = math.MaxInt

// Future is a handle to an asynchronous execution, returned by Executor's RunAsync / GetAsync family of methods. A
// Future can be waited on via Get, or canceled via Cancel.
type Future[R any] struct {
	mtx    sync.Mutex
	done   chan struct{}
	result *common.ExecutionResult[R]

	execInternal *ExecutionInternal[R]
	// cancelFns holds the cancellation callbacks registered through addCancelFn, one per policy index. Entries are
	// invoked in descending index order, so outer policies are canceled before inner ones. The Future's own
	// cancellation does not use this map; it goes through ExecutionInternal.Cancel with orchestrationIndex.
	cancelFns map[int]func()
}

func newFuture[R any](execInternal *ExecutionInternal[R]) *Future[R] {
	return &Future[R]{
		done:         make(chan struct{}),
		execInternal: execInternal,
		cancelFns:    make(map[int]func()),
	}
}

// addCancelFn registers a cancellation callback for policyIndex. Only one callback may be registered per index.
func (f *Future[R]) addCancelFn(policyIndex int, cancelFn func()) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	f.cancelFns[policyIndex] = cancelFn
}

// complete records the final result and unblocks any goroutine waiting in Get. Only the first call takes effect;
// later calls are ignored.
func (f *Future[R]) complete(result *common.ExecutionResult[R]) {
	f.mtx.Lock()
	defer f.mtx.Unlock()
	if f.result != nil {
		return
	}
	f.result = result
	close(f.done)
}

// Get blocks until the execution is complete and returns its result.
func (f *Future[R]) Get() (R, error) {
	<-f.done
	f.mtx.Lock()
	defer f.mtx.Unlock()
	return f.result.Result, f.result.Error
}

// Done returns a channel that is closed once the execution is complete.
func (f *Future[R]) Done() <-chan struct{} {
	return f.done
}

// Cancel cancels the asynchronous execution, stopping any policy currently waiting on a delay, timeout, or external
// completion, and completes the Future with the given error. Has no effect if the execution is already complete or
// already canceled.
func (f *Future[R]) Cancel(err error) {
	result := common.Failure[R](err).WithComplete(true, false).WithAbort()
	f.execInternal.Cancel(orchestrationIndex, result)

	f.mtx.Lock()
	fns := make([]int, 0, len(f.cancelFns))
	for idx := range f.cancelFns {
		fns = append(fns, idx)
	}
	f.mtx.Unlock()

	// Invoke registered cancel callbacks in descending policy-index order, so outer policies (higher index) are
	// canceled before inner ones.
	for hi := len(fns); hi > 0; hi-- {
		maxIdx, pos := fns[0], 0
		for i, idx := range fns {
			if idx > maxIdx {
				maxIdx, pos = idx, i
			}
		}
		f.mtx.Lock()
		cancelFn := f.cancelFns[maxIdx]
		delete(f.cancelFns, maxIdx)
		f.mtx.Unlock()
		if cancelFn != nil {
			cancelFn()
		}
		fns = append(fns[:pos], fns[pos+1:]...)
	}
}

// AsyncExecution contains contextual information about a single asynchronous execution attempt. The user-supplied
// function receives one of these per attempt and must eventually call Record, RecordError, or Complete on it —
// possibly from another goroutine or a callback — to unblock the pipeline's handling of that attempt.
type AsyncExecution[R any] struct {
	Execution[R]

	execInternal *ExecutionInternal[R]
	future       *Future[R]
	// attemptDone receives the single result of this attempt. Buffered so Record never blocks its caller.
	attemptDone chan *common.ExecutionResult[R]
}

// Record records the result of this attempt, represented as a value and error. Must be called at most once per
// attempt; later calls for the same attempt are ignored.
func (e *AsyncExecution[R]) Record(result R, err error) {
	er := (&common.ExecutionResult[R]{Result: result, Error: err}).WithComplete(true, true)
	select {
	case e.attemptDone <- er:
	default:
	}
}

// RecordError records the result of this attempt as a failure.
func (e *AsyncExecution[R]) RecordError(err error) {
	var zero R
	e.Record(zero, err)
}

// Complete marks this attempt as successfully complete with the given result.
func (e *AsyncExecution[R]) Complete(result R) {
	e.Record(result, nil)
}
