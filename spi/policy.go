// Package spi provides base implementations that policy packages embed to satisfy failsafe's builder interfaces
// without repeating the same bookkeeping in each policy.
package spi

import (
	"errors"
	"reflect"
	"time"

	"github.com/bertbaron/failsafe-go"
	"github.com/bertbaron/failsafe-go/internal/util"
)

// BaseListenablePolicy provides a base for implementing ListenablePolicyBuilder.
type BaseListenablePolicy[R any] struct {
	SuccessListener func(failsafe.ExecutionCompletedEvent[R])
	FailureListener func(failsafe.ExecutionCompletedEvent[R])
}

func (bp *BaseListenablePolicy[R]) OnSuccess(listener func(event failsafe.ExecutionCompletedEvent[R])) {
	bp.SuccessListener = listener
}

func (bp *BaseListenablePolicy[R]) OnFailure(listener func(event failsafe.ExecutionCompletedEvent[R])) {
	bp.FailureListener = listener
}

// BaseFailurePolicy provides a base for implementing FailurePolicyBuilder.
type BaseFailurePolicy[R any] struct {
	// ErrorsChecked indicates whether errors are checked by a configured failure condition.
	ErrorsChecked bool
	// FailureConditions determine whether an execution is a failure.
	FailureConditions []func(result R, err error) bool
}

func (p *BaseFailurePolicy[R]) Handle(errs ...error) {
	for _, target := range errs {
		p.FailureConditions = append(p.FailureConditions, func(_ R, actualErr error) bool {
			return errors.Is(actualErr, target)
		})
	}
	p.ErrorsChecked = true
}

func (p *BaseFailurePolicy[R]) HandleIf(predicate func(error) bool) {
	p.FailureConditions = append(p.FailureConditions, func(_ R, err error) bool {
		if err == nil {
			return false
		}
		return predicate(err)
	})
	p.ErrorsChecked = true
}

func (p *BaseFailurePolicy[R]) HandleResult(result R) {
	p.FailureConditions = append(p.FailureConditions, func(r R, _ error) bool {
		return reflect.DeepEqual(r, result)
	})
}

func (p *BaseFailurePolicy[R]) HandleResultIf(predicate func(R) bool) {
	p.FailureConditions = append(p.FailureConditions, func(r R, _ error) bool {
		return predicate(r)
	})
}

func (p *BaseFailurePolicy[R]) HandleAllIf(predicate func(R, error) bool) {
	p.FailureConditions = append(p.FailureConditions, predicate)
	p.ErrorsChecked = true
}

// IsFailure returns whether the result/error is a failure according to the configured conditions. With no
// conditions configured, any non-nil error is a failure. With conditions configured, an unchecked error is still a
// failure by default, since the caller never said errors in general should pass.
func (p *BaseFailurePolicy[R]) IsFailure(result R, err error) bool {
	if len(p.FailureConditions) == 0 {
		return err != nil
	}
	if util.AppliesToAny(p.FailureConditions, result, err) {
		return true
	}
	return err != nil && !p.ErrorsChecked
}

// BaseDelayablePolicy provides a base for implementing DelayablePolicyBuilder.
type BaseDelayablePolicy[R any] struct {
	Delay   time.Duration
	DelayFn failsafe.DelayFunction[R]
}

func (d *BaseDelayablePolicy[R]) WithDelay(delay time.Duration) {
	d.Delay = delay
}

func (d *BaseDelayablePolicy[R]) WithDelayFn(delayFn failsafe.DelayFunction[R]) {
	d.DelayFn = delayFn
}

// ComputeDelay returns a computed delay, else -1 if no delay function is configured or exec is nil.
func (d *BaseDelayablePolicy[R]) ComputeDelay(exec *failsafe.Execution[R]) time.Duration {
	if exec != nil && d.DelayFn != nil {
		return d.DelayFn(exec)
	}
	return -1
}

// BaseAbortablePolicy provides a base for policies, such as RetryPolicy, that can abort retries for certain results.
type BaseAbortablePolicy[R any] struct {
	AbortConditions []func(result R, err error) bool
}

func (a *BaseAbortablePolicy[R]) AbortOn(errs ...error) {
	for _, target := range errs {
		a.AbortConditions = append(a.AbortConditions, func(_ R, actualErr error) bool {
			return errors.Is(actualErr, target)
		})
	}
}

func (a *BaseAbortablePolicy[R]) AbortOnResult(result R) {
	a.AbortConditions = append(a.AbortConditions, func(r R, _ error) bool {
		return reflect.DeepEqual(r, result)
	})
}

func (a *BaseAbortablePolicy[R]) AbortIf(predicate func(R, error) bool) {
	a.AbortConditions = append(a.AbortConditions, predicate)
}

// IsAbortable returns whether any configured abort condition matches the result/error.
func (a *BaseAbortablePolicy[R]) IsAbortable(result R, err error) bool {
	return util.AppliesToAny(a.AbortConditions, result, err)
}
