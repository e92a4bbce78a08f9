package util

import "time"

// Timer measures how long an upstream lookup took.
type Timer struct {
	start time.Time
}

// StartTimer returns a timer running from now.
func StartTimer() Timer {
	return Timer{start: time.Now()}
}

// Elapsed returns the time since start, zero for an unstarted timer.
func (t Timer) Elapsed() time.Duration {
	if t.start.IsZero() {
		return 0
	}
	return time.Since(t.start)
}

// ElapsedMs returns Elapsed in whole milliseconds.
func (t Timer) ElapsedMs() int64 {
	return t.Elapsed().Milliseconds()
}
