package failsafe

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bertbaron/failsafe-go/common"
)

// testPolicy is a minimal Policy used to exercise composition order and cancellation without depending on any
// concrete policy package.
type testPolicy[R any] struct {
	apply func(policyIndex int, innerFn ExecutionHandler[R]) ExecutionHandler[R]
}

func (p *testPolicy[R]) ToExecutor(policyIndex int) PolicyExecutor[R] {
	return &testPolicyExecutor[R]{policy: p, policyIndex: policyIndex}
}

type testPolicyExecutor[R any] struct {
	policy      *testPolicy[R]
	policyIndex int
}

func (e *testPolicyExecutor[R]) PreExecute(_ *ExecutionInternal[R]) *common.ExecutionResult[R] {
	return nil
}

func (e *testPolicyExecutor[R]) Apply(innerFn ExecutionHandler[R]) ExecutionHandler[R] {
	return e.policy.apply(e.policyIndex, innerFn)
}

func (e *testPolicyExecutor[R]) PostExecute(_ *ExecutionInternal[R], result *common.ExecutionResult[R]) *common.ExecutionResult[R] {
	return result
}

func (e *testPolicyExecutor[R]) IsFailure(result *common.ExecutionResult[R]) bool {
	return result.Error != nil
}

func (e *testPolicyExecutor[R]) OnSuccess(_ *common.ExecutionResult[R]) {}

func (e *testPolicyExecutor[R]) OnFailure(_ *Execution[R], result *common.ExecutionResult[R]) *common.ExecutionResult[R] {
	return result
}

// identityPolicy is a Policy that passes execution through unchanged, used where a test needs an Executor but no
// policy behavior of its own.
func identityPolicy[R any]() Policy[R] {
	return &testPolicy[R]{
		apply: func(_ int, innerFn ExecutionHandler[R]) ExecutionHandler[R] {
			return innerFn
		},
	}
}

func recordingPolicy[R any](order *[]int) Policy[R] {
	return &testPolicy[R]{
		apply: func(policyIndex int, innerFn ExecutionHandler[R]) ExecutionHandler[R] {
			return func(exec *ExecutionInternal[R]) *common.ExecutionResult[R] {
				*order = append(*order, policyIndex)
				return innerFn(exec)
			}
		},
	}
}

func TestComposedOrderIsOuterToInner(t *testing.T) {
	var order []int
	outer := recordingPolicy[string](&order)
	inner := recordingPolicy[string](&order)

	result, err := With[string](outer, inner).Get(func() (string, error) {
		return "ok", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "ok", result)
	// Policies are indexed innermost=0, increasing outward, so outer (runs first) is index 1 and inner is index 0.
	assert.Equal(t, []int{1, 0}, order)
}

func TestFutureCancelIsObservedByEveryPolicyIndex(t *testing.T) {
	var observed []bool
	recordCancelation := func() Policy[string] {
		return &testPolicy[string]{
			apply: func(policyIndex int, innerFn ExecutionHandler[string]) ExecutionHandler[string] {
				return func(exec *ExecutionInternal[string]) *common.ExecutionResult[string] {
					result := innerFn(exec)
					observed = append(observed, exec.IsCanceled(policyIndex))
					return result
				}
			},
		}
	}

	future := With[string](recordCancelation(), recordCancelation()).GetAsyncWithExecution(func(exec *AsyncExecution[string]) {
		// never records, relies on cancellation to unblock
	})
	go func() {
		time.Sleep(10 * time.Millisecond)
		future.Cancel(errors.New("canceled"))
	}()
	_, err := future.Get()

	assert.Error(t, err)
	// An external Future.Cancel must dominate every configured policy's index, innermost and outermost alike.
	assert.Equal(t, []bool{true, true}, observed)
}

func TestGetReturnsOperationResult(t *testing.T) {
	result, err := With[int](identityPolicy[int]()).Get(func() (int, error) {
		return 42, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestRunPropagatesError(t *testing.T) {
	expected := errors.New("boom")
	err := With[any](identityPolicy[any]()).Run(func() error {
		return expected
	})
	assert.ErrorIs(t, err, expected)
}

func TestOnCompleteListenersFire(t *testing.T) {
	var completed, succeeded bool
	_, err := With[string](identityPolicy[string]()).
		OnComplete(func(ExecutionCompletedEvent[string]) { completed = true }).
		OnSuccess(func(ExecutionCompletedEvent[string]) { succeeded = true }).
		Get(func() (string, error) { return "ok", nil })

	assert.NoError(t, err)
	assert.True(t, completed)
	assert.True(t, succeeded)
}

func TestOnFailureListenerFires(t *testing.T) {
	var failed bool
	expected := errors.New("fail")
	_, err := With[string](identityPolicy[string]()).
		OnFailure(func(ExecutionCompletedEvent[string]) { failed = true }).
		Get(func() (string, error) { return "", expected })

	assert.ErrorIs(t, err, expected)
	assert.True(t, failed)
}

func TestGetAsyncCompletesWithResult(t *testing.T) {
	future := With[int](identityPolicy[int]()).GetAsync(func() (int, error) {
		return 7, nil
	})
	result, err := future.Get()
	assert.NoError(t, err)
	assert.Equal(t, 7, result)
}

func TestGetAsyncWithExecutionRecordsResult(t *testing.T) {
	future := With[int](identityPolicy[int]()).GetAsyncWithExecution(func(exec *AsyncExecution[int]) {
		go exec.Record(9, nil)
	})
	result, err := future.Get()
	assert.NoError(t, err)
	assert.Equal(t, 9, result)
}

func TestFutureCancelUnblocksGet(t *testing.T) {
	future := With[int](identityPolicy[int]()).GetAsyncWithExecution(func(exec *AsyncExecution[int]) {
		// never records, relies on cancellation to unblock
	})
	go func() {
		time.Sleep(10 * time.Millisecond)
		future.Cancel(errors.New("canceled"))
	}()
	_, err := future.Get()
	assert.Error(t, err)
}

func TestWithContextIsPropagatedToExecution(t *testing.T) {
	type ctxKey struct{}
	ctx := context.WithValue(context.Background(), ctxKey{}, "v")

	var seen any
	_, _ = With[string](identityPolicy[string]()).WithContext(ctx).GetWithExecution(func(exec *Execution[string]) (string, error) {
		seen = exec.Context.Value(ctxKey{})
		return "", nil
	})
	assert.Equal(t, "v", seen)
}
