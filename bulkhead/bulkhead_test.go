package bulkhead

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/bertbaron/failsafe-go"
)

func TestAllowsExecutionWithinCapacity(t *testing.T) {
	bh := With[string](2)

	result, err := failsafe.With[string](bh).Get(func() (string, error) {
		return "ok", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "ok", result)
}

func TestRejectsWhenFull(t *testing.T) {
	bh := With[string](1)

	var wg sync.WaitGroup
	wg.Add(1)
	blocking := make(chan struct{})
	go func() {
		defer wg.Done()
		_, _ = failsafe.With[string](bh).Get(func() (string, error) {
			close(blocking)
			time.Sleep(30 * time.Millisecond)
			return "ok", nil
		})
	}()
	<-blocking

	_, err := failsafe.With[string](bh).Get(func() (string, error) {
		return "should not run", nil
	})
	assert.ErrorIs(t, err, ErrFull)

	wg.Wait()
}

func TestWithMaxWaitTimeAllowsQueueingUpToLimit(t *testing.T) {
	bh := Builder[string](1).
		WithMaxWaitTime(50 * time.Millisecond).
		Build()

	var wg sync.WaitGroup
	wg.Add(1)
	started := make(chan struct{})
	go func() {
		defer wg.Done()
		_, _ = failsafe.With[string](bh).Get(func() (string, error) {
			close(started)
			time.Sleep(10 * time.Millisecond)
			return "first", nil
		})
	}()
	<-started

	result, err := failsafe.With[string](bh).Get(func() (string, error) {
		return "second", nil
	})

	assert.NoError(t, err)
	assert.Equal(t, "second", result)
	wg.Wait()
}

func TestOnFullListenerFires(t *testing.T) {
	var full bool
	bh := Builder[string](1).
		OnFull(func(failsafe.ExecutionAttemptedEvent[string]) { full = true }).
		Build()

	assert.True(t, bh.TryAcquirePermit())
	defer bh.ReleasePermit()

	_, err := failsafe.With[string](bh).Get(func() (string, error) {
		return "should not run", nil
	})

	assert.ErrorIs(t, err, ErrFull)
	assert.True(t, full)
}

func TestTryAcquireAndReleasePermit(t *testing.T) {
	bh := With[string](1)

	assert.True(t, bh.TryAcquirePermit())
	assert.False(t, bh.TryAcquirePermit())

	bh.ReleasePermit()
	assert.True(t, bh.TryAcquirePermit())
}
