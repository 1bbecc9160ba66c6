package ratelimiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bertbaron/failsafe-go"
)

func TestSmoothAllowsFirstExecution(t *testing.T) {
	rl := Smooth[string](10, time.Second)

	result, err := failsafe.With[string](rl).Get(func() (string, error) {
		return "ok", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestSmoothRejectsWhenRateExceeded(t *testing.T) {
	rl := SmoothBuilder[string](1, time.Second).Build()

	assert.True(t, rl.TryAcquirePermit())
	assert.False(t, rl.TryAcquirePermit())
}

func TestBurstyAllowsUpToMaxPerPeriod(t *testing.T) {
	rl := Bursty[string](3, time.Second)

	assert.True(t, rl.TryAcquirePermit())
	assert.True(t, rl.TryAcquirePermit())
	assert.True(t, rl.TryAcquirePermit())
	assert.False(t, rl.TryAcquirePermit())
}

func TestReservePermitReturnsWaitTime(t *testing.T) {
	rl := SmoothBuilder[string](1, 100*time.Millisecond).Build()

	first := rl.ReservePermit()
	assert.Equal(t, time.Duration(0), first)

	second := rl.ReservePermit()
	assert.Greater(t, second, time.Duration(0))
}

func TestTryReservePermitExceedsMaxWait(t *testing.T) {
	rl := SmoothBuilder[string](1, time.Second).Build()

	assert.True(t, rl.TryAcquirePermit())
	wait := rl.TryReservePermit(10 * time.Millisecond)
	assert.Equal(t, time.Duration(-1), wait)
}

func TestOnRateLimitExceededListenerFires(t *testing.T) {
	var exceeded bool
	rl := SmoothBuilder[string](1, time.Second).
		OnRateLimitExceeded(func(failsafe.ExecutionAttemptedEvent[string]) { exceeded = true }).
		Build()

	_, _ = failsafe.With[string](rl).Get(func() (string, error) { return "ok", nil })
	_, err := failsafe.With[string](rl).Get(func() (string, error) { return "ok", nil })

	assert.ErrorIs(t, err, ErrExceeded)
	assert.True(t, exceeded)
}

func TestResetClearsState(t *testing.T) {
	rl := SmoothBuilder[string](1, time.Second).Build()

	assert.True(t, rl.TryAcquirePermit())
	assert.False(t, rl.TryAcquirePermit())

	rl.Reset()
	assert.True(t, rl.TryAcquirePermit())
}
