package testutil

import (
	"context"
	"sync"
	"time"

	"kycflow/pkg/requestcontext"
)

// Clock is a manually advanced time source for workflow tests.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock starts a clock at now.
func NewClock(now time.Time) *Clock {
	return &Clock{now: now}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Context returns a context pinned to the clock's current time, the way the
// edge middleware pins request time.
func (c *Clock) Context(parent context.Context) context.Context {
	return requestcontext.WithTime(parent, c.Now())
}
