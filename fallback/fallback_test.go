package fallback

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bertbaron/failsafe-go"
)

func TestWithResultSubstitutesOnFailure(t *testing.T) {
	fb := WithResult[string]("fallback-value")

	result, err := failsafe.With[string](fb).Get(func() (string, error) {
		return "", errors.New("fail")
	})

	assert.NoError(t, err)
	assert.Equal(t, "fallback-value", result)
}

func TestWithErrorSubstitutesOnFailure(t *testing.T) {
	fallbackErr := errors.New("fallback error")
	fb := WithError[string](fallbackErr)

	_, err := failsafe.With[string](fb).Get(func() (string, error) {
		return "", errors.New("original")
	})

	assert.ErrorIs(t, err, fallbackErr)
}

func TestWithFnComputesReplacement(t *testing.T) {
	fb := WithFn[string](func(event failsafe.ExecutionAttemptedEvent[string]) (string, error) {
		return "computed", nil
	})

	result, err := failsafe.With[string](fb).Get(func() (string, error) {
		return "", errors.New("fail")
	})

	assert.NoError(t, err)
	assert.Equal(t, "computed", result)
}

func TestSuccessfulExecutionSkipsFallback(t *testing.T) {
	fb := WithResult[string]("fallback-value")

	result, err := failsafe.With[string](fb).Get(func() (string, error) {
		return "original", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "original", result)
}

func TestHandleResultTriggersFallback(t *testing.T) {
	fb := BuilderWithResult[string]("replaced").
		HandleResult("bad-value").
		Build()

	result, err := failsafe.With[string](fb).Get(func() (string, error) {
		return "bad-value", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "replaced", result)
}

func TestOnFailedAttemptListenerFires(t *testing.T) {
	var attempted bool
	fb := BuilderWithResult[string]("replaced").
		OnFailedAttempt(func(failsafe.ExecutionAttemptedEvent[string]) { attempted = true }).
		Build()

	_, _ = failsafe.With[string](fb).Get(func() (string, error) {
		return "", errors.New("fail")
	})

	assert.True(t, attempted)
}
