package delivery

import (
	"sync"
	"time"
)

// Clock supplies event timestamps.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time { return time.Now().UTC() }

// monotonicClock never returns a time earlier than one it already returned,
// so event timestamps and durations cannot go backwards when the wall
// clock is adjusted.
//
// Thread-safety: safe for concurrent use.
type monotonicClock struct {
	mu   sync.Mutex
	src  Clock
	last time.Time
}

func newMonotonicClock(src Clock) *monotonicClock {
	return &monotonicClock{src: src}
}

func (c *monotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.src.Now()
	if now.Before(c.last) {
		return c.last
	}
	c.last = now
	return now
}
