// Package clock provides Clock implementations.
package clock

import (
	"sync"
	"time"

	"github.com/artpar/saasgate/ports"
)

// Real returns the actual current time.
type Real struct{}

// Now returns the current time.
func (Real) Now() time.Time {
	return time.Now()
}

// Fake is a controllable clock for tests. When a step is set, every call to
// Now advances the clock by that step after reading it.
type Fake struct {
	mu      sync.Mutex
	current time.Time
	step    time.Duration
}

// NewFake creates a fake clock set to t.
func NewFake(t time.Time) *Fake {
	return &Fake{current: t}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	now := f.current
	f.current = f.current.Add(f.step)
	return now
}

// Advance moves the clock forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = f.current.Add(d)
}

// AutoAdvance makes every Now call move the clock forward by step.
func (f *Fake) AutoAdvance(step time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.step = step
}

var (
	_ ports.Clock = Real{}
	_ ports.Clock = (*Fake)(nil)
)
