// Package timeutil lets sweep directory stamps and simulation runtimes be
// pinned in tests.
package timeutil

import (
	"sync"
	"time"
)

// StampLayout names sweep directories to the second, e.g. 260119_143005.
const StampLayout = "060102_150405"

// Stamp formats t with StampLayout.
func Stamp(t time.Time) string { return t.Format(StampLayout) }

type Clock interface {
	Now() time.Time
	Since(t time.Time) time.Duration
}

// RealClock reads the wall clock.
type RealClock struct{}

func (RealClock) Now() time.Time                  { return time.Now() }
func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }

// MockClock only moves when told to. With a step set, each Now call returns
// the current reading and then moves forward by the step, so consecutive
// readings are strictly ordered.
type MockClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func NewMockClock(t time.Time) *MockClock { return &MockClock{now: t} }

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = t.Add(c.step)
	return t
}

// Since measures against the current reading and does not step.
func (c *MockClock) Since(t time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now.Sub(t)
}

func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func (c *MockClock) AutoStep(d time.Duration) {
	c.mu.Lock()
	c.step = d
	c.mu.Unlock()
}
