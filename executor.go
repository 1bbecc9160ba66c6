package failsafe

import (
	"context"
	"time"

	"github.com/bertbaron/failsafe-go/common"
)

/*
Executor handles failures according to configured policies. An executor can be created for specific policies via:

	failsafe.With(outerPolicy, policies...)
*/
type Executor[R any] interface {
	// Compose returns a new Executor that composes the currently configured policies around the given innerPolicy.
	// For example:
	//
	//	failsafe.With(fallback).Compose(retryPolicy).Compose(circuitBreaker)
	//
	// results in the following internal composition when executing a func and handling its result:
	//
	//	Fallback(RetryPolicy(CircuitBreaker(func)))
	Compose(innerPolicy Policy[R]) Executor[R]

	// WithContext configures a ctx that can be used to cancel executions.
	WithContext(ctx context.Context) Executor[R]

	// OnComplete registers the listener to be called when an execution is complete.
	OnComplete(listener func(ExecutionCompletedEvent[R])) Executor[R]

	// OnSuccess registers the listener to be called when an execution is successful according to every configured
	// policy.
	OnSuccess(listener func(ExecutionCompletedEvent[R])) Executor[R]

	// OnFailure registers the listener to be called when an execution fails according to some policy, and all
	// policies have been exceeded.
	OnFailure(listener func(ExecutionCompletedEvent[R])) Executor[R]

	// Run executes the runnable until successful or until the configured policies are exceeded.
	Run(fn func() error) error

	// RunWithExecution executes the runnable until successful or until the configured policies are exceeded, while
	// providing an Execution to the fn.
	RunWithExecution(fn func(exec *Execution[R]) error) error

	// Get executes the supplier until a successful result is returned or the configured policies are exceeded.
	Get(fn func() (R, error)) (R, error)

	// GetWithExecution executes the supplier until a successful result is returned or the configured policies are
	// exceeded, while providing an Execution to the fn.
	GetWithExecution(fn func(exec *Execution[R]) (R, error)) (R, error)

	// RunAsync executes the runnable asynchronously until successful or until the configured policies are exceeded.
	RunAsync(fn func() error) *Future[R]

	// RunAsyncWithExecution executes the runnable asynchronously, providing an AsyncExecution that the fn must call
	// Record or Complete on to supply the result.
	RunAsyncWithExecution(fn func(exec *AsyncExecution[R])) *Future[R]

	// GetAsync executes the supplier asynchronously until a successful result is returned or the configured
	// policies are exceeded.
	GetAsync(fn func() (R, error)) *Future[R]

	// GetAsyncWithExecution executes the supplier asynchronously, providing an AsyncExecution that the fn must call
	// Record or Complete on to supply the result.
	GetAsyncWithExecution(fn func(exec *AsyncExecution[R])) *Future[R]
}

type executor[R any] struct {
	policies   []Policy[R]
	ctx        context.Context
	onComplete func(ExecutionCompletedEvent[R])
	onSuccess  func(ExecutionCompletedEvent[R])
	onFailure  func(ExecutionCompletedEvent[R])
}

/*
With creates and returns a new Executor for result type R that will handle failures according to the given
policies. The policies are composed around an execution and handle results in reverse, with the last policy
applied first. For example:

	failsafe.With(fallback, retryPolicy, circuitBreaker).Get(fn)

is equivalent to composition via Compose:

	failsafe.With(fallback).Compose(retryPolicy).Compose(circuitBreaker).Get(fn)

Both result in the following internal composition when executing fn and handling its result:

	Fallback(RetryPolicy(CircuitBreaker(fn)))
*/
func With[R any](outerPolicy Policy[R], policies ...Policy[R]) Executor[R] {
	all := append([]Policy[R]{outerPolicy}, policies...)
	return &executor[R]{policies: all}
}

func (e *executor[R]) Compose(innerPolicy Policy[R]) Executor[R] {
	e.policies = append(e.policies, innerPolicy)
	return e
}

func (e *executor[R]) WithContext(ctx context.Context) Executor[R] {
	e.ctx = ctx
	return e
}

func (e *executor[R]) OnComplete(listener func(ExecutionCompletedEvent[R])) Executor[R] {
	e.onComplete = listener
	return e
}

func (e *executor[R]) OnSuccess(listener func(ExecutionCompletedEvent[R])) Executor[R] {
	e.onSuccess = listener
	return e
}

func (e *executor[R]) OnFailure(listener func(ExecutionCompletedEvent[R])) Executor[R] {
	e.onFailure = listener
	return e
}

func (e *executor[R]) Run(fn func() error) error {
	_, err := e.GetWithExecution(func(_ *Execution[R]) (R, error) {
		return *new(R), fn()
	})
	return err
}

func (e *executor[R]) RunWithExecution(fn func(exec *Execution[R]) error) error {
	_, err := e.GetWithExecution(func(exec *Execution[R]) (R, error) {
		return *new(R), fn(exec)
	})
	return err
}

func (e *executor[R]) Get(fn func() (R, error)) (R, error) {
	return e.GetWithExecution(func(_ *Execution[R]) (R, error) {
		return fn()
	})
}

// composedFn folds the policies into a single ExecutionHandler, innermost first. Policy indexes are assigned from
// the inside out, so the innermost supplied policy gets index 0 and each policy further out gets a larger index,
// matching the convention used throughout ExecutionInternal's cancellation protocol.
func (e *executor[R]) composedFn(base ExecutionHandler[R]) ExecutionHandler[R] {
	outerFn := base
	for i := len(e.policies) - 1; i >= 0; i-- {
		policyIndex := len(e.policies) - 1 - i
		outerFn = e.policies[i].ToExecutor(policyIndex).Apply(outerFn)
	}
	return outerFn
}

func (e *executor[R]) GetWithExecution(fn func(exec *Execution[R]) (R, error)) (R, error) {
	base := func(execInternal *ExecutionInternal[R]) *common.ExecutionResult[R] {
		result, err := fn(&execInternal.Execution)
		er := &common.ExecutionResult[R]{
			Result:     result,
			Error:      err,
			Complete:   true,
			Success:    true,
			SuccessAll: true,
		}
		return execInternal.Record(er)
	}
	outerFn := e.composedFn(base)

	execInternal := newExecutionInternal[R]()
	execInternal.Execution.Context = e.ctx
	execInternal.Execution.StartTime = time.Now()
	execInternal.InitializeAttempt(len(e.policies))

	er := outerFn(execInternal)
	e.dispatch(er, &execInternal.ExecutionStats)
	return er.Result, er.Error
}

func (e *executor[R]) RunAsync(fn func() error) *Future[R] {
	return e.GetAsyncWithExecution(func(exec *AsyncExecution[R]) {
		exec.RecordError(fn())
	})
}

func (e *executor[R]) RunAsyncWithExecution(fn func(exec *AsyncExecution[R])) *Future[R] {
	return e.GetAsyncWithExecution(fn)
}

func (e *executor[R]) GetAsync(fn func() (R, error)) *Future[R] {
	return e.GetAsyncWithExecution(func(exec *AsyncExecution[R]) {
		exec.Record(fn())
	})
}

func (e *executor[R]) GetAsyncWithExecution(fn func(exec *AsyncExecution[R])) *Future[R] {
	execInternal := newExecutionInternal[R]()
	execInternal.Execution.Context = e.ctx
	execInternal.Execution.StartTime = time.Now()

	future := newFuture[R](execInternal)

	base := func(execInternal *ExecutionInternal[R]) *common.ExecutionResult[R] {
		attemptDone := make(chan *common.ExecutionResult[R], 1)
		asyncExec := &AsyncExecution[R]{
			Execution:    execInternal.Execution,
			execInternal: execInternal,
			future:       future,
			attemptDone:  attemptDone,
		}
		fn(asyncExec)
		select {
		case er := <-attemptDone:
			return execInternal.Record(er)
		case <-execInternal.Canceled():
			return execInternal.GetResult()
		}
	}
	outerFn := e.composedFn(base)
	execInternal.InitializeAttempt(len(e.policies))

	go func() {
		er := outerFn(execInternal)
		e.dispatch(er, &execInternal.ExecutionStats)
		future.complete(er)
	}()

	return future
}

func (e *executor[R]) dispatch(er *common.ExecutionResult[R], stats *ExecutionStats) {
	if e.onSuccess != nil && er.SuccessAll {
		e.onSuccess(newExecutionCompletedEvent(er, stats))
	} else if e.onFailure != nil && !er.SuccessAll {
		e.onFailure(newExecutionCompletedEvent(er, stats))
	}
	if e.onComplete != nil {
		e.onComplete(newExecutionCompletedEvent(er, stats))
	}
}
