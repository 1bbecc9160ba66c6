package timeout

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bertbaron/failsafe-go"
)

func TestCompletesBeforeTimeLimit(t *testing.T) {
	to := New[string](50 * time.Millisecond)

	result, err := failsafe.With[string](to).Get(func() (string, error) {
		return "ok", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestExceedsTimeLimit(t *testing.T) {
	to := New[string](10 * time.Millisecond)

	_, err := failsafe.With[string](to).Get(func() (string, error) {
		time.Sleep(50 * time.Millisecond)
		return "late", nil
	})

	assert.ErrorIs(t, err, ErrExceeded)
}

func TestOnTimeoutExceededListenerFires(t *testing.T) {
	var exceeded bool
	to := NewBuilder[string](10 * time.Millisecond).
		OnTimeoutExceeded(func(failsafe.ExecutionDoneEvent[string]) { exceeded = true }).
		Build()

	_, _ = failsafe.With[string](to).Get(func() (string, error) {
		time.Sleep(50 * time.Millisecond)
		return "", nil
	})

	assert.True(t, exceeded)
}

func TestInnerErrorPropagatesWhenFasterThanTimeout(t *testing.T) {
	to := New[string](50 * time.Millisecond)
	expected := errors.New("boom")

	_, err := failsafe.With[string](to).Get(func() (string, error) {
		return "", expected
	})

	assert.ErrorIs(t, err, expected)
}
