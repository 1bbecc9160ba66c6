package circuitbreaker

import (
	"math"
	"time"

	"github.com/bits-and-blooms/bitset"

	"github.com/bertbaron/failsafe-go/internal/util"
)

// circuitStats tracks execution outcomes for a CircuitBreaker state. Implementations are not concurrency safe and
// must be guarded externally by the owning circuitBreaker's mutex.
type circuitStats interface {
	getExecutionCount() uint
	getFailureCount() uint
	getFailureRate() uint
	getSuccessCount() uint
	getSuccessRate() uint
	recordFailure()
	recordSuccess()
	reset()
}

// defaultBucketCount is the number of buckets a time-based window is split into.
const defaultBucketCount = 10

// countingStats counts execution results over the last `size` executions using a ring-buffered BitSet, giving O(1)
// record/query regardless of window size.
type countingStats struct {
	bitSet *bitset.BitSet
	size   uint

	currentIndex uint
	occupiedBits uint
	successes    uint
	failures     uint
}

func newStats[R any](config *circuitBreakerConfig[R], supportsTimeBased bool, capacity uint) circuitStats {
	if supportsTimeBased && config.failureThresholdConfig.thresholdingPeriod != 0 {
		return newTimedStats(defaultBucketCount, config.failureThresholdConfig.thresholdingPeriod, config.clock)
	}
	return newCountingStats(capacity)
}

func newCountingStats(size uint) *countingStats {
	return &countingStats{
		bitSet: bitset.New(size),
		size:   size,
	}
}

// setNext sets the value of the next bit in the ring, returning the previous value at that slot: 1 for success, 0
// for failure, -1 if the slot had not yet been written.
func (c *countingStats) setNext(value bool) int {
	previousValue := -1
	if c.occupiedBits < c.size {
		c.occupiedBits++
	} else {
		if c.bitSet.Test(c.currentIndex) {
			previousValue = 1
		} else {
			previousValue = 0
		}
	}

	c.bitSet.SetTo(c.currentIndex, value)
	c.currentIndex = c.indexAfter(c.currentIndex)

	if value {
		if previousValue != 1 {
			c.successes++
		}
		if previousValue == 0 {
			c.failures--
		}
	} else {
		if previousValue != 0 {
			c.failures++
		}
		if previousValue == 1 {
			c.successes--
		}
	}
	return previousValue
}

func (c *countingStats) indexAfter(index uint) uint {
	if index == c.size-1 {
		return 0
	}
	return index + 1
}

func (c *countingStats) getExecutionCount() uint {
	return c.occupiedBits
}

func (c *countingStats) getFailureCount() uint {
	return c.failures
}

func (c *countingStats) getFailureRate() uint {
	if c.occupiedBits == 0 {
		return 0
	}
	return uint(math.Round(float64(c.failures) / float64(c.occupiedBits) * 100.0))
}

func (c *countingStats) getSuccessCount() uint {
	return c.successes
}

func (c *countingStats) getSuccessRate() uint {
	if c.occupiedBits == 0 {
		return 0
	}
	return uint(math.Round(float64(c.successes) / float64(c.occupiedBits) * 100.0))
}

func (c *countingStats) recordFailure() {
	c.setNext(false)
}

func (c *countingStats) recordSuccess() {
	c.setNext(true)
}

func (c *countingStats) reset() {
	c.bitSet.ClearAll()
	c.currentIndex = 0
	c.occupiedBits = 0
	c.successes = 0
	c.failures = 0
}

// timedStats counts execution results within a rolling time period, bucketed to bound the cost of aging out old
// entries.
type timedStats struct {
	clock      util.Clock
	bucketSize time.Duration
	windowSize time.Duration

	buckets      []timeBucket
	summary      outcomeTally
	currentIndex int
}

type timeBucket struct {
	outcomeTally
	startTime int64
}

type outcomeTally struct {
	successes uint
	failures  uint
}

func (s *outcomeTally) reset() {
	s.successes = 0
	s.failures = 0
}

func (s *outcomeTally) add(b *timeBucket) {
	s.successes += b.successes
	s.failures += b.failures
}

func (s *outcomeTally) remove(b *timeBucket) {
	s.successes -= b.successes
	s.failures -= b.failures
}

func newTimedStats(bucketCount int, thresholdingPeriod time.Duration, clock util.Clock) *timedStats {
	buckets := make([]timeBucket, bucketCount)
	for i := 0; i < bucketCount; i++ {
		buckets[i] = timeBucket{startTime: -1}
	}
	buckets[0].startTime = clock.CurrentUnixNano()
	return &timedStats{
		buckets:    buckets,
		windowSize: thresholdingPeriod,
		bucketSize: thresholdingPeriod / time.Duration(bucketCount),
		clock:      clock,
	}
}

func (s *timedStats) getCurrentBucket() *timeBucket {
	currentBucket := &s.buckets[s.currentIndex]
	timeDiff := s.clock.CurrentUnixNano() - currentBucket.startTime
	bucketsToMove := int(timeDiff / s.bucketSize.Nanoseconds())

	if bucketsToMove > len(s.buckets) {
		s.reset()
		return &s.buckets[s.currentIndex]
	}
	for i := 0; i < bucketsToMove; i++ {
		previousBucket := currentBucket
		currentBucket = &s.buckets[s.nextIndex()]
		s.summary.remove(currentBucket)
		currentBucket.reset()
		if currentBucket.startTime == -1 {
			currentBucket.startTime = previousBucket.startTime + s.bucketSize.Nanoseconds()
		} else {
			currentBucket.startTime += s.windowSize.Nanoseconds()
		}
	}
	return currentBucket
}

func (s *timedStats) nextIndex() int {
	s.currentIndex = (s.currentIndex + 1) % len(s.buckets)
	return s.currentIndex
}

func (s *timedStats) getExecutionCount() uint {
	return s.summary.successes + s.summary.failures
}

func (s *timedStats) getFailureCount() uint {
	return s.summary.failures
}

func (s *timedStats) getFailureRate() uint {
	executions := s.getExecutionCount()
	if executions == 0 {
		return 0
	}
	return uint(math.Round(float64(s.summary.failures) / float64(executions) * 100.0))
}

func (s *timedStats) getSuccessCount() uint {
	return s.summary.successes
}

func (s *timedStats) getSuccessRate() uint {
	executions := s.getExecutionCount()
	if executions == 0 {
		return 0
	}
	return uint(math.Round(float64(s.summary.successes) / float64(executions) * 100.0))
}

func (s *timedStats) recordFailure() {
	s.getCurrentBucket().failures++
	s.summary.failures++
}

func (s *timedStats) recordSuccess() {
	s.getCurrentBucket().successes++
	s.summary.successes++
}

func (s *timedStats) reset() {
	startTime := s.clock.CurrentUnixNano()
	for i := range s.buckets {
		b := &s.buckets[i]
		b.reset()
		b.startTime = startTime
		startTime += s.bucketSize.Nanoseconds()
	}
	s.summary.reset()
	s.currentIndex = 0
}
