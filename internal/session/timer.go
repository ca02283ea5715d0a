package session

import (
	"fmt"
	"time"
)

// TickInterval is how often a running Timer advances.
const TickInterval = time.Second

// Timer counts active session time in whole ticks. It has no pause: once stopped it
// never runs again.
type Timer struct {
	ticks   int
	running bool
	stopped bool
}

// Start begins counting from offset, rounded down to whole ticks. It does nothing if
// the timer is already running or was stopped.
func (t *Timer) Start(offset time.Duration) {
	if t.running || t.stopped {
		return
	}
	if offset > 0 {
		t.ticks = int(offset / TickInterval)
	}
	t.running = true
}

// Tick advances the counter by one tick while running.
func (t *Timer) Tick() {
	if t.running {
		t.ticks++
	}
}

// Stop halts the timer permanently.
func (t *Timer) Stop() {
	t.running = false
	t.stopped = true
}

// Running reports whether ticks currently advance the counter.
func (t *Timer) Running() bool { return t.running }

// Elapsed returns the counted time.
func (t *Timer) Elapsed() time.Duration {
	return time.Duration(t.ticks) * TickInterval
}

// FormatElapsed renders d as MM:SS. Minutes grow past two digits as needed.
func FormatElapsed(d time.Duration) string {
	secs := int(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
