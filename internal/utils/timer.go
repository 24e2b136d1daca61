package utils

import "time"

// Timer measures elapsed wall-clock time. NewTimer starts it.
type Timer struct {
	startTime time.Time
	duration  time.Duration
}

// NewTimer returns a started Timer.
func NewTimer() *Timer {
	return &Timer{startTime: time.Now()}
}

// Stop records the time elapsed since NewTimer and returns it.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.startTime)
	return t.duration
}

// Milliseconds returns the recorded duration in fractional milliseconds.
func (t *Timer) Milliseconds() float64 {
	return float64(t.duration.Microseconds()) / 1000
}
