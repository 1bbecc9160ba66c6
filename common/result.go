// Package common holds types shared across the failsafe policy and
// composition packages.
package common

// ExecutionResult represents the internal result of an execution attempt for
// zero or more policies, before or after a policy has handled the result. If
// a policy is done handling a result, or is no longer able to handle it, such
// as when retries are exceeded, the ExecutionResult should be marked as
// complete.
//
// A nil *ExecutionResult[R] stands for "no outcome yet" (the spec's NONE
// sentinel). IsNullResult recognises a non-nil result that is not complete,
// not successful and has no Error. The executors in this module do not
// produce or check such a result: an asynchronous attempt blocks until its
// AsyncExecution's Record is called or the execution is canceled.
type ExecutionResult[R any] struct {
	Result R
	Error  error

	// Complete indicates whether an execution is complete or if retries may be needed.
	Complete bool
	// Success indicates whether the policy that produced this result considers it non-failing.
	Success bool
	// SuccessAll indicates whether every policy in the composition so far considers the result non-failing.
	SuccessAll bool
	// WaitTime is the delay the orchestrator should wait before the next retry attempt.
	WaitTime int64
	// Abortive forces termination of the composition regardless of any remaining retries.
	Abortive bool
}

// Success returns a complete, successful ExecutionResult for the given value.
func Success[R any](value R) *ExecutionResult[R] {
	return &ExecutionResult[R]{
		Result:     value,
		Complete:   true,
		Success:    true,
		SuccessAll: true,
	}
}

// Failure returns a complete, failed ExecutionResult for the given error.
func Failure[R any](err error) *ExecutionResult[R] {
	return &ExecutionResult[R]{
		Error:    err,
		Complete: true,
	}
}

// WithComplete returns a copy of the ExecutionResult with the given complete and success values.
func (er *ExecutionResult[R]) WithComplete(complete bool, success bool) *ExecutionResult[R] {
	c := *er
	c.Complete = complete
	c.Success = success
	c.SuccessAll = success && c.SuccessAll
	return &c
}

// WithFailure returns a copy of the ExecutionResult marked as not successful.
func (er *ExecutionResult[R]) WithFailure() *ExecutionResult[R] {
	c := *er
	c.Success = false
	c.SuccessAll = false
	return &c
}

// WithWaitTime returns a copy of the ExecutionResult with the given wait time and Complete set to false.
func (er *ExecutionResult[R]) WithWaitTime(waitTime int64) *ExecutionResult[R] {
	c := *er
	c.WaitTime = waitTime
	c.Complete = false
	return &c
}

// WithAbort returns a copy of the ExecutionResult marked as complete and abortive.
func (er *ExecutionResult[R]) WithAbort() *ExecutionResult[R] {
	c := *er
	c.Complete = true
	c.Abortive = true
	return &c
}

// IsNullResult returns true for a non-nil result that is not complete, not
// successful and has no Error.
func (er *ExecutionResult[R]) IsNullResult() bool {
	return er != nil && !er.Complete && !er.Success && er.Error == nil
}
