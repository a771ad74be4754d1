package sysaction

import (
	"sync/atomic"
	"time"
)

// Clock is the trusted time source commands are stamped with. Cooldowns,
// heartbeat windows and monthly resets are all measured against it.
type Clock interface {
	Now() int64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now implements Clock.
func (SystemClock) Now() int64 { return time.Now().Unix() }

// ManualClock is a clock that only moves when told to.
type ManualClock struct{ now atomic.Int64 }

// NewManualClock returns a clock reading now.
func NewManualClock(now int64) *ManualClock {
	c := new(ManualClock)
	c.now.Store(now)
	return c
}

// Now implements Clock.
func (c *ManualClock) Now() int64 { return c.now.Load() }

// Set moves the clock to now.
func (c *ManualClock) Set(now int64) { c.now.Store(now) }

// Advance moves the clock forward by secs seconds.
func (c *ManualClock) Advance(secs int64) { c.now.Add(secs) }
