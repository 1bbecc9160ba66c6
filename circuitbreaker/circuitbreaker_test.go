package circuitbreaker

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bertbaron/failsafe-go"
)

var _ CircuitBreaker[any] = &circuitBreaker[any]{}

func TestOpensAfterFailureThreshold(t *testing.T) {
	cb := Builder[string]().
		WithFailureThreshold(NewCountBasedThreshold(2, 2)).
		Build()

	assert.True(t, cb.IsClosed())

	_, _ = failsafe.With[string](cb).Get(func() (string, error) { return "", errors.New("fail") })
	assert.True(t, cb.IsClosed())

	_, _ = failsafe.With[string](cb).Get(func() (string, error) { return "", errors.New("fail") })
	assert.True(t, cb.IsOpen())
}

func TestOpenCircuitRejectsExecutions(t *testing.T) {
	cb := Builder[string]().Build() // default: opens after 1 failure
	_, _ = failsafe.With[string](cb).Get(func() (string, error) { return "", errors.New("fail") })
	assert.True(t, cb.IsOpen())

	called := false
	_, err := failsafe.With[string](cb).Get(func() (string, error) {
		called = true
		return "ok", nil
	})

	assert.False(t, called)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestHalfOpenTrialClosesOnSuccess(t *testing.T) {
	cb := Builder[string]().Build() // default: closes after 1 success
	cb.HalfOpen()
	assert.True(t, cb.IsHalfOpen())

	cb.RecordSuccess()
	assert.True(t, cb.IsClosed())
}

func TestHalfOpenTrialReopensOnFailure(t *testing.T) {
	cb := Builder[string]().Build() // default: opens after 1 failure
	cb.HalfOpen()
	assert.True(t, cb.IsHalfOpen())

	cb.RecordFailure()
	assert.True(t, cb.IsOpen())
}

func TestOpenStateTransitionsToHalfOpenAfterDelay(t *testing.T) {
	cb := Builder[string]().
		WithDelay(1 * time.Millisecond).
		Build()

	_, _ = failsafe.With[string](cb).Get(func() (string, error) { return "", errors.New("fail") })
	assert.True(t, cb.IsOpen())

	time.Sleep(5 * time.Millisecond)
	cb.TryAcquirePermit()
	assert.True(t, cb.IsHalfOpen())
}

func TestManualOpenCloseHalfOpen(t *testing.T) {
	cb := Builder[string]().Build()
	assert.True(t, cb.IsClosed())

	cb.Open()
	assert.True(t, cb.IsOpen())

	cb.HalfOpen()
	assert.True(t, cb.IsHalfOpen())

	cb.Close()
	assert.True(t, cb.IsClosed())
}

func TestOnOpenListenerFires(t *testing.T) {
	var opened bool
	cb := Builder[string]().
		OnOpen(func(StateChangedEvent) { opened = true }).
		Build()

	_, _ = failsafe.With[string](cb).Get(func() (string, error) { return "", errors.New("fail") })
	assert.True(t, opened)
}

func TestRateBasedThresholdOpensOnFailureRate(t *testing.T) {
	cb := Builder[string]().
		WithFailureThreshold(NewRateBasedThreshold(50, 4, time.Minute)).
		Build()

	// 2 successes, 2 failures => 50% failure rate, at the 4-execution threshold.
	_, _ = failsafe.With[string](cb).Get(func() (string, error) { return "ok", nil })
	_, _ = failsafe.With[string](cb).Get(func() (string, error) { return "ok", nil })
	_, _ = failsafe.With[string](cb).Get(func() (string, error) { return "", errors.New("fail") })
	assert.True(t, cb.IsClosed())
	_, _ = failsafe.With[string](cb).Get(func() (string, error) { return "", errors.New("fail") })

	assert.True(t, cb.IsOpen())
}
