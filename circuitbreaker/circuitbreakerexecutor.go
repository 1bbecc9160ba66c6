package circuitbreaker

import (
	"github.com/bertbaron/failsafe-go"
	"github.com/bertbaron/failsafe-go/common"
	"github.com/bertbaron/failsafe-go/spi"
)

// circuitBreakerExecutor is a failsafe.PolicyExecutor that handles failures according to a CircuitBreaker.
type circuitBreakerExecutor[R any] struct {
	*spi.BasePolicyExecutor[R]
	*circuitBreaker[R]
}

var _ failsafe.PolicyExecutor[any] = &circuitBreakerExecutor[any]{}

func (cbe *circuitBreakerExecutor[R]) PreExecute(_ *failsafe.ExecutionInternal[R]) *common.ExecutionResult[R] {
	if !cbe.circuitBreaker.TryAcquirePermit() {
		return common.Failure[R](ErrOpen)
	}
	return nil
}

func (cbe *circuitBreakerExecutor[R]) OnSuccess(_ *common.ExecutionResult[R]) {
	cbe.RecordSuccess()
}

func (cbe *circuitBreakerExecutor[R]) OnFailure(exec *failsafe.Execution[R], result *common.ExecutionResult[R]) *common.ExecutionResult[R] {
	cbe.mtx.Lock()
	defer cbe.mtx.Unlock()
	cbe.recordFailure(exec)
	return result
}
