// Package failsafe provides fault tolerance and resilience patterns for Go,
// modeled as a composable stack of policies — retry, circuit breaker,
// timeout, fallback, bulkhead, and rate limiter — wrapped around a
// user-supplied operation.
package failsafe

import (
	"context"
	"time"
)

// ExecutionStats contains stats for an execution.
type ExecutionStats struct {
	// Attempts is the number of execution attempts, including attempts that are currently in progress and attempts
	// that were blocked before being executed, such as by a CircuitBreaker or RateLimiter.
	Attempts int
	// Executions is the number of executions. It is incremented together with Attempts when an attempt starts, so
	// attempts that are then blocked, such as when a CircuitBreaker is open, are counted as well.
	Executions int
	// StartTime is the time that the initial execution attempt started at.
	StartTime time.Time
}

// IsFirstAttempt returns true when Attempts is 1, meaning this is the first execution attempt.
func (s *ExecutionStats) IsFirstAttempt() bool {
	return s.Attempts == 1
}

// IsRetry returns true when Attempts is > 1, meaning the execution is being retried.
func (s *ExecutionStats) IsRetry() bool {
	return s.Attempts > 1
}

// ElapsedTime returns the elapsed time since the initial execution attempt began.
func (s *ExecutionStats) ElapsedTime() time.Duration {
	return time.Since(s.StartTime)
}

// Execution contains contextual information about an execution.
type Execution[R any] struct {
	Context context.Context
	ExecutionStats
	// LastResult is the last result returned, else the zero value for R.
	LastResult R
	// LastError is the last error that occurred, else nil.
	LastError error
	// AttemptStartTime is the time that the most recent execution attempt started at.
	AttemptStartTime time.Time
}

// IsDone returns whether any configured Context is done, in which case Context.Err is not nil.
func (e *Execution[_]) IsDone() bool {
	return e.Context != nil && e.Context.Err() != nil
}

// IsCanceled returns whether any configured Context has been canceled.
func (e *Execution[_]) IsCanceled() bool {
	return e.Context != nil && e.Context.Err() == context.Canceled
}

// ElapsedAttemptTime returns the elapsed time since the last execution attempt began.
func (e *Execution[_]) ElapsedAttemptTime() time.Duration {
	return time.Since(e.AttemptStartTime)
}
