package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonotonicClockNeverRepeats(t *testing.T) {
	frozen := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.FixedZone("X", 3600))
	c := &MonotonicClock{now: func() time.Time { return frozen }}

	a := c.Now()
	b := c.Now()

	assert.Equal(t, time.UTC, a.Location())
	assert.Equal(t, 0, a.Nanosecond()%1000)
	assert.True(t, b.After(a))
	assert.Equal(t, time.Microsecond, b.Sub(a))
}
