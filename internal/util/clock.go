package util

import "time"

// Clock provides the current time, in nanoseconds since the Unix epoch. It exists so that time-based windows can
// be driven by a fake clock in tests instead of wall-clock time.
type Clock interface {
	CurrentUnixNano() int64
}

type systemClock struct{}

func (systemClock) CurrentUnixNano() int64 {
	return time.Now().UnixNano()
}

// NewClock returns a Clock backed by the system wall clock.
func NewClock() Clock {
	return systemClock{}
}
