package ratelimiter

import (
	"sync"
	"time"

	"github.com/bertbaron/failsafe-go/internal/util"
)

type rateLimiterStats interface {
	// acquirePermits eagerly acquires requestedPermits and returns the time that must be waited in order to use
	// the permits, else returns -1 if the wait time would exceed maxWaitTime. A maxWaitTime of -1 means no max.
	acquirePermits(requestedPermits int, maxWaitTime time.Duration) time.Duration

	reset()
}

// smoothStats evenly distributes permits over time, based on the configured interval between permits. It tracks
// the next interval in which a permit is free.
type smoothStats[R any] struct {
	config    *rateLimiterConfig[R]
	stopwatch util.Stopwatch
	mtx       sync.Mutex

	// nextFreePermitTime is the time, relative to the start time, that the next permit will be free. Always a
	// multiple of config.interval. Guarded by mtx.
	nextFreePermitTime time.Duration
}

func newSmoothStats[R any](config *rateLimiterConfig[R]) rateLimiterStats {
	return &smoothStats[R]{
		config:    config,
		stopwatch: util.NewStopwatch(),
	}
}

func (s *smoothStats[R]) acquirePermits(requestedPermits int, maxWaitTime time.Duration) time.Duration {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	currentTime := s.stopwatch.ElapsedTime()
	requestedPermitTime := s.config.interval * time.Duration(requestedPermits)
	var newNextFreePermitTime time.Duration

	if currentTime >= s.nextFreePermitTime {
		currentIntervalTime := util.RoundDown(currentTime, s.config.interval)
		newNextFreePermitTime = currentIntervalTime + requestedPermitTime
	} else {
		newNextFreePermitTime = s.nextFreePermitTime + requestedPermitTime
	}

	waitTime := util.Max(newNextFreePermitTime-currentTime-s.config.interval, 0)
	if exceedsMaxWaitTime(waitTime, maxWaitTime) {
		return -1
	}

	s.nextFreePermitTime = newNextFreePermitTime
	return waitTime
}

func (s *smoothStats[R]) reset() {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.stopwatch.Reset()
	s.nextFreePermitTime = 0
}

// burstyStats allows bursts of executions, up to the max permits per period. It tracks the current period and
// available permits, which can go into a deficit that causes later callers to wait across multiple periods.
type burstyStats[R any] struct {
	config    *rateLimiterConfig[R]
	stopwatch util.Stopwatch
	mtx       sync.Mutex

	// availablePermits can be negative during a deficit. Guarded by mtx.
	availablePermits int
	currentPeriod    int
}

func newBurstyStats[R any](config *rateLimiterConfig[R]) rateLimiterStats {
	return &burstyStats[R]{
		config:           config,
		stopwatch:        util.NewStopwatch(),
		availablePermits: config.periodPermits,
	}
}

func (s *burstyStats[R]) acquirePermits(requestedPermits int, maxWaitTime time.Duration) time.Duration {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	currentTime := s.stopwatch.ElapsedTime()
	newCurrentPeriod := int(currentTime / s.config.period)

	if s.currentPeriod < newCurrentPeriod {
		elapsedPeriods := newCurrentPeriod - s.currentPeriod
		elapsedPermits := elapsedPeriods * s.config.periodPermits
		s.currentPeriod = newCurrentPeriod
		if s.availablePermits < 0 {
			s.availablePermits += elapsedPermits
		} else {
			s.availablePermits = s.config.periodPermits
		}
	}

	waitTime := time.Duration(0)
	if requestedPermits > s.availablePermits {
		nextPeriodTime := time.Duration(s.currentPeriod+1) * s.config.period
		timeToNextPeriod := nextPeriodTime - currentTime
		permitDeficit := requestedPermits - s.availablePermits
		additionalPeriods := permitDeficit / s.config.periodPermits
		additionalUnits := permitDeficit % s.config.periodPermits

		// Don't wait for an additional period if none of its permits are being used.
		if additionalUnits == 0 {
			additionalPeriods--
		}

		waitTime = timeToNextPeriod + time.Duration(additionalPeriods)*s.config.period
		if exceedsMaxWaitTime(waitTime, maxWaitTime) {
			return -1
		}
	}

	s.availablePermits -= requestedPermits
	return waitTime
}

func (s *burstyStats[R]) reset() {
	s.mtx.Lock()
	defer s.mtx.Unlock()
	s.stopwatch.Reset()
	s.availablePermits = s.config.periodPermits
	s.currentPeriod = 0
}

// exceedsMaxWaitTime returns whether waitTime would exceed maxWaitTime, else false if maxWaitTime is -1.
func exceedsMaxWaitTime(waitTime time.Duration, maxWaitTime time.Duration) bool {
	return maxWaitTime != -1 && waitTime > maxWaitTime
}
