package retrypolicy

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bertbaron/failsafe-go"
)

var _ RetryPolicy[any] = &retryPolicy[any]{}

func TestRetriesUntilSuccess(t *testing.T) {
	rp := BuilderForResult[string]().WithMaxRetries(3).Build()

	attempts := 0
	result, err := failsafe.With[string](rp).Get(func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, attempts)
}

func TestRetriesExceededReturnsLastError(t *testing.T) {
	rp := BuilderForResult[string]().WithMaxRetries(2).Build()

	attempts := 0
	expected := errors.New("always fails")
	_, err := failsafe.With[string](rp).Get(func() (string, error) {
		attempts++
		return "", expected
	})

	assert.ErrorIs(t, err, expected)
	assert.Equal(t, 3, attempts) // 1 initial + 2 retries
}

func TestWithMaxRetriesZeroDisablesRetries(t *testing.T) {
	rp := BuilderForResult[string]().WithMaxRetries(0).Build()

	attempts := 0
	_, err := failsafe.With[string](rp).Get(func() (string, error) {
		attempts++
		return "", errors.New("fails")
	})

	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestAbortOnStopsRetries(t *testing.T) {
	fatal := errors.New("fatal")
	rp := BuilderForResult[string]().
		WithMaxRetries(5).
		AbortOn(fatal).
		Build()

	attempts := 0
	_, err := failsafe.With[string](rp).Get(func() (string, error) {
		attempts++
		return "", fatal
	})

	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, attempts)
}

func TestOnRetryListenerFiresPerAttempt(t *testing.T) {
	var retryCount int
	rp := BuilderForResult[string]().
		WithMaxRetries(2).
		OnRetry(func(failsafe.ExecutionAttemptedEvent[string]) { retryCount++ }).
		Build()

	attempts := 0
	_, _ = failsafe.With[string](rp).Get(func() (string, error) {
		attempts++
		return "", errors.New("fails")
	})

	assert.Equal(t, 2, retryCount)
}

func TestOnRetriesExceededListenerFires(t *testing.T) {
	var exceeded bool
	rp := BuilderForResult[string]().
		WithMaxRetries(1).
		OnRetriesExceeded(func(failsafe.ExecutionCompletedEvent[string]) { exceeded = true }).
		Build()

	_, _ = failsafe.With[string](rp).Get(func() (string, error) {
		return "", errors.New("fails")
	})

	assert.True(t, exceeded)
}

func TestWithDelayWaitsBetweenAttempts(t *testing.T) {
	rp := BuilderForResult[string]().
		WithMaxRetries(1).
		WithDelay(20 * time.Millisecond).
		Build()

	start := time.Now()
	attempts := 0
	_, _ = failsafe.With[string](rp).Get(func() (string, error) {
		attempts++
		if attempts < 2 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})

	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestHandleResultRetriesOnMatchingResult(t *testing.T) {
	rp := BuilderForResult[string]().
		WithMaxRetries(2).
		HandleResult("retry-me").
		Build()

	attempts := 0
	result, err := failsafe.With[string](rp).Get(func() (string, error) {
		attempts++
		if attempts < 2 {
			return "retry-me", nil
		}
		return "done", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "done", result)
	assert.Equal(t, 2, attempts)
}
