package failsafe

import (
	"time"

	"github.com/bertbaron/failsafe-go/common"
)

// Policy handles execution failures.
type Policy[R any] interface {
	// ToExecutor returns a PolicyExecutor capable of handling an execution for the Policy. policyIndex is this
	// policy's position in the composition, starting at 0 for the innermost policy.
	ToExecutor(policyIndex int) PolicyExecutor[R]
}

// ListenablePolicyBuilder configures listeners for a Policy execution result.
type ListenablePolicyBuilder[S any, R any] interface {
	// OnSuccess registers the listener to be called when the policy succeeds in handling an execution. This means
	// that the supplied execution either succeeded, or if it failed, the policy was able to produce a successful
	// result.
	OnSuccess(listener func(ExecutionCompletedEvent[R])) S

	// OnFailure registers the listener to be called when the policy fails to handle an error. This means that not
	// only was the supplied execution considered a failure by the policy, but that the policy was unable to produce
	// a successful result.
	OnFailure(listener func(ExecutionCompletedEvent[R])) S
}

/*
FailurePolicyBuilder builds a Policy that allows configurable conditions to determine whether an execution is a
failure.

  - By default, any error is considered a failure and will be handled by the policy. You can override this by
    specifying your own handle conditions. The default error handling condition will only be overridden by another
    condition that handles errors, such as Handle or HandleIf. Specifying a condition that only handles results, such
    as HandleResult or HandleResultIf, will not replace the default error handling condition.
  - If multiple handle conditions are specified, any condition that matches an execution result or error will
    trigger policy handling.
*/
type FailurePolicyBuilder[S any, R any] interface {
	// Handle specifies the errors to handle as failures. Any error that satisfies errors.Is against the execution
	// error will be handled.
	Handle(errs ...error) S

	// HandleIf specifies that a failure has occurred if the predicate matches the error.
	HandleIf(predicate func(error) bool) S

	// HandleResult specifies the results to handle as failures. Any result that is reflect.DeepEqual to the
	// execution result will be handled. This method is only considered when a result is returned from an execution,
	// not when an error is returned.
	HandleResult(result R) S

	// HandleResultIf specifies that a failure has occurred if the predicate matches the execution result. This
	// method is only considered when a result is returned from an execution, not when an error is returned.
	HandleResultIf(predicate func(R) bool) S

	// HandleAllIf specifies that a failure has occurred if the predicate matches the execution result and error.
	HandleAllIf(predicate func(R, error) bool) S
}

// DelayFunction returns a duration to delay for, given an Execution.
type DelayFunction[R any] func(exec *Execution[R]) time.Duration

// DelayablePolicyBuilder builds policies that can be delayed between executions.
type DelayablePolicyBuilder[S any, R any] interface {
	// WithDelay configures the time to delay between execution attempts.
	WithDelay(delay time.Duration) S

	// WithDelayFn accepts a function that configures the time to delay before the next execution attempt.
	WithDelayFn(delayFn DelayFunction[R]) S
}

// ExecutionHandler returns an ExecutionResult for an ExecutionInternal.
type ExecutionHandler[R any] func(*ExecutionInternal[R]) *common.ExecutionResult[R]

// PolicyExecutor handles execution and execution results according to a policy. May contain pre-execution and
// post-execution behaviors. Each PolicyExecutor makes its own determination about whether an execution result is a
// success or failure.
type PolicyExecutor[R any] interface {
	// PreExecute is called before execution to return an alternative result, such as if execution is not allowed or
	// needed (a circuit is open, a bulkhead is full, a rate limit was exceeded).
	PreExecute(exec *ExecutionInternal[R]) *common.ExecutionResult[R]

	// Apply performs an execution by calling PreExecute and returning any result, else calling the innerFn and
	// PostExecute.
	Apply(innerFn ExecutionHandler[R]) ExecutionHandler[R]

	// PostExecute performs synchronous post-execution handling for an execution result.
	PostExecute(exec *ExecutionInternal[R], result *common.ExecutionResult[R]) *common.ExecutionResult[R]

	// IsFailure returns whether the result is a failure according to the corresponding policy.
	IsFailure(result *common.ExecutionResult[R]) bool

	// OnSuccess performs post-execution handling for a result that is considered a success according to IsFailure.
	OnSuccess(result *common.ExecutionResult[R])

	// OnFailure performs post-execution handling for a result that is considered a failure according to IsFailure,
	// possibly producing a new result, else returning the original.
	OnFailure(exec *Execution[R], result *common.ExecutionResult[R]) *common.ExecutionResult[R]
}
