package retrypolicy

import (
	"math/rand"
	"time"

	"github.com/bertbaron/failsafe-go"
	"github.com/bertbaron/failsafe-go/common"
	"github.com/bertbaron/failsafe-go/internal/util"
	"github.com/bertbaron/failsafe-go/spi"
)

// retryPolicyExecutor is a failsafe.PolicyExecutor that handles failures according to a RetryPolicy.
type retryPolicyExecutor[R any] struct {
	*spi.BasePolicyExecutor[R]
	*retryPolicy[R]

	// Mutable state, reset per-execution by the PolicyExecutor that created it.
	failedAttempts  int
	retriesExceeded bool
	lastDelay       time.Duration
}

func (rpe *retryPolicyExecutor[R]) Apply(innerFn failsafe.ExecutionHandler[R]) failsafe.ExecutionHandler[R] {
	return func(exec *failsafe.ExecutionInternal[R]) *common.ExecutionResult[R] {
		for {
			result := innerFn(exec)
			if rpe.retriesExceeded {
				return result
			}

			result = rpe.PostExecute(exec, result)
			if result.Complete {
				return result
			}

			delay := rpe.getDelay(&exec.Execution)
			if rpe.config.retryScheduledListener != nil {
				rpe.config.retryScheduledListener(failsafe.ExecutionScheduledEvent[R]{
					Execution: exec.ExecutionForResult(result),
					Delay:     delay,
				})
			}
			// exec.Canceled() is one shared channel for the whole composition, so a cancellation by a policy
			// composed inside this retry (e.g. an inner Timeout) also wakes this select. Only treat the signal as
			// terminal to this retry if it actually reaches this policy's own index; otherwise fall through and
			// schedule the next attempt as if the delay had simply elapsed.
			if exec.Context != nil {
				select {
				case <-time.After(delay):
				case <-exec.Context.Done():
					return result
				case <-exec.Canceled():
					if exec.IsCanceled(rpe.PolicyIndex) {
						return exec.GetResult()
					}
				}
			} else {
				select {
				case <-time.After(delay):
				case <-exec.Canceled():
					if exec.IsCanceled(rpe.PolicyIndex) {
						return exec.GetResult()
					}
				}
			}

			if rpe.config.retryListener != nil {
				rpe.config.retryListener(failsafe.ExecutionAttemptedEvent[R]{
					Execution: exec.ExecutionForResult(result),
				})
			}

			if !exec.InitializeAttempt(rpe.PolicyIndex) {
				return exec.GetResult()
			}
		}
	}
}

// OnFailure updates failedAttempts/retriesExceeded bookkeeping and determines whether the execution should be
// retried, aborted, or completed as a final failure.
func (rpe *retryPolicyExecutor[R]) OnFailure(exec *failsafe.Execution[R], result *common.ExecutionResult[R]) *common.ExecutionResult[R] {
	rpe.failedAttempts++
	maxRetriesExceeded := rpe.config.maxRetries != -1 && rpe.failedAttempts > rpe.config.maxRetries
	maxDurationExceeded := rpe.config.maxDuration != 0 && exec.ElapsedTime() > rpe.config.maxDuration
	rpe.retriesExceeded = maxRetriesExceeded || maxDurationExceeded
	isAbortable := rpe.config.IsAbortable(result.Result, result.Error)
	shouldRetry := !isAbortable && !rpe.retriesExceeded && rpe.config.allowsRetries()
	completed := isAbortable || !shouldRetry

	if rpe.config.failedAttemptListener != nil {
		rpe.config.failedAttemptListener(failsafe.ExecutionAttemptedEvent[R]{
			Execution: *exec,
		})
	}
	if isAbortable && rpe.config.abortListener != nil {
		rpe.config.abortListener(failsafe.ExecutionCompletedEvent[R]{
			Result:         exec.LastResult,
			Error:          exec.LastError,
			ExecutionStats: exec.ExecutionStats,
		})
	} else if rpe.retriesExceeded && !isAbortable && rpe.config.retriesExceededListener != nil {
		rpe.config.retriesExceededListener(failsafe.ExecutionCompletedEvent[R]{
			Result:         exec.LastResult,
			Error:          exec.LastError,
			ExecutionStats: exec.ExecutionStats,
		})
	}

	if isAbortable {
		return result.WithAbort()
	}
	return result.WithComplete(completed, false)
}

// getDelay computes the delay before the next retry attempt: a configured delay function takes precedence, else a
// fixed or exponential-backoff delay is used, clamped to maxDelay and widened by any configured jitter.
func (rpe *retryPolicyExecutor[R]) getDelay(exec *failsafe.Execution[R]) time.Duration {
	computed := rpe.config.ComputeDelay(exec)
	if computed >= 0 {
		return computed
	}

	delay := rpe.config.Delay
	if delay <= 0 {
		return 0
	}
	if rpe.config.delayFactor > 0 {
		// Exponential backoff: double (or delayFactor) the last delay, up to maxDelay.
		if rpe.lastDelay == 0 {
			rpe.lastDelay = delay
		} else {
			rpe.lastDelay = time.Duration(float64(rpe.lastDelay) * float64(rpe.config.delayFactor))
		}
		if rpe.config.maxDelay > 0 {
			rpe.lastDelay = util.Min(rpe.lastDelay, rpe.config.maxDelay)
		}
		delay = rpe.lastDelay
	}

	if rpe.config.jitter > 0 {
		delay = util.RandomDelay(delay, rpe.config.jitter, rand.Float64())
	} else if rpe.config.jitterFactor > 0 {
		delay = util.RandomDelayFactor(delay, rpe.config.jitterFactor, rand.Float32())
	}
	return util.Max(delay, 0)
}
