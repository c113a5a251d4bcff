package core

import (
	"sync"
	"time"
)

// Clock assigns record timestamps
type Clock interface {
	Now() time.Time
}

// MonotonicClock hands out strictly increasing UTC timestamps at microsecond
// precision, the finest resolution every record store keeps
type MonotonicClock struct {
	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// NewMonotonicClock creates a clock backed by the system time
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{now: time.Now}
}

// Now returns the next timestamp
func (c *MonotonicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	t := c.now().UTC().Truncate(time.Microsecond)
	if !t.After(c.last) {
		t = c.last.Add(time.Microsecond)
	}
	c.last = t
	return t
}
