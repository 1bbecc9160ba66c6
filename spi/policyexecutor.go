package spi

import (
	"github.com/bertbaron/failsafe-go"
	"github.com/bertbaron/failsafe-go/common"
)

// BasePolicyExecutor provides a base implementation of failsafe.PolicyExecutor. Concrete policy executors embed
// this and override the methods they need; the embedded PolicyExecutor field lets Apply and PostExecute dispatch
// back through the concrete type's overrides ("virtual" calls), matching how a PreExecute or OnFailure override
// defined on the embedding type takes precedence over this base's defaults.
type BasePolicyExecutor[R any] struct {
	failsafe.PolicyExecutor[R]
	*BaseListenablePolicy[R]
	*BaseFailurePolicy[R]

	// PolicyIndex is this executor's position in the composition, set by the owning Policy's ToExecutor. Indexes
	// are assigned innermost=0, increasing outward.
	PolicyIndex int
}

var _ failsafe.PolicyExecutor[any] = &BasePolicyExecutor[any]{}

func (bpe *BasePolicyExecutor[R]) PreExecute(_ *failsafe.ExecutionInternal[R]) *common.ExecutionResult[R] {
	return nil
}

func (bpe *BasePolicyExecutor[R]) Apply(innerFn failsafe.ExecutionHandler[R]) failsafe.ExecutionHandler[R] {
	return func(execInternal *failsafe.ExecutionInternal[R]) *common.ExecutionResult[R] {
		if result := bpe.PolicyExecutor.PreExecute(execInternal); result != nil {
			return result
		}
		return bpe.PolicyExecutor.PostExecute(execInternal, innerFn(execInternal))
	}
}

func (bpe *BasePolicyExecutor[R]) PostExecute(execInternal *failsafe.ExecutionInternal[R], er *common.ExecutionResult[R]) *common.ExecutionResult[R] {
	if bpe.PolicyExecutor.IsFailure(er) {
		er = bpe.PolicyExecutor.OnFailure(&execInternal.Execution, er.WithFailure())
		if er.Complete && bpe.BaseListenablePolicy != nil && bpe.BaseListenablePolicy.FailureListener != nil {
			bpe.BaseListenablePolicy.FailureListener(failsafe.ExecutionCompletedEvent[R]{
				Result:         er.Result,
				Error:          er.Error,
				ExecutionStats: execInternal.ExecutionStats,
			})
		}
	} else {
		er = er.WithComplete(true, true)
		bpe.PolicyExecutor.OnSuccess(er)
		if er.Complete && bpe.BaseListenablePolicy != nil && bpe.BaseListenablePolicy.SuccessListener != nil {
			bpe.BaseListenablePolicy.SuccessListener(failsafe.ExecutionCompletedEvent[R]{
				Result:         er.Result,
				Error:          er.Error,
				ExecutionStats: execInternal.ExecutionStats,
			})
		}
	}
	return er
}

func (bpe *BasePolicyExecutor[R]) IsFailure(result *common.ExecutionResult[R]) bool {
	if bpe.BaseFailurePolicy != nil {
		return bpe.BaseFailurePolicy.IsFailure(result.Result, result.Error)
	}
	return result.Error != nil
}

func (bpe *BasePolicyExecutor[R]) OnSuccess(_ *common.ExecutionResult[R]) {
}

func (bpe *BasePolicyExecutor[R]) OnFailure(_ *failsafe.Execution[R], result *common.ExecutionResult[R]) *common.ExecutionResult[R] {
	return result
}
