package failsafe

import (
	"time"

	"github.com/bertbaron/failsafe-go/common"
)

// ExecutionAttemptedEvent indicates an execution was attempted.
type ExecutionAttemptedEvent[R any] struct {
	Execution[R]
}

// ExecutionScheduledEvent indicates an execution was scheduled.
type ExecutionScheduledEvent[R any] struct {
	Execution[R]
	// Delay is the delay before the next execution attempt.
	Delay time.Duration
}

// ExecutionCompletedEvent indicates an execution was completed.
type ExecutionCompletedEvent[R any] struct {
	// Result is the execution result, else the zero value for R.
	Result R
	// Error is the execution error, else nil.
	Error error
	ExecutionStats
}

// ExecutionDoneEvent indicates a single policy finished handling an execution attempt, regardless of overall success.
type ExecutionDoneEvent[R any] struct {
	Result R
	Error  error
	ExecutionStats
}

func newExecutionCompletedEvent[R any](er *common.ExecutionResult[R], stats *ExecutionStats) ExecutionCompletedEvent[R] {
	return ExecutionCompletedEvent[R]{
		Result:         er.Result,
		Error:          er.Error,
		ExecutionStats: *stats,
	}
}
