// Package tick provides sched.TickSource implementations: a real
// wall-clock source for production use and a manually-advanced virtual
// clock for deterministic tests.
package tick

import (
	"sync"
	"time"
)

// Wallclock returns a sched.TickSource backed by the host's monotonic
// clock, truncated to milliseconds and cast to uint32. Like any 32-bit
// ms counter it wraps roughly every 49.7 days; callers rely on unsigned
// subtraction to handle that transparently.
func Wallclock() *WallclockSource {
	return &WallclockSource{start: time.Now()}
}

// WallclockSource samples time.Since(start) in milliseconds.
type WallclockSource struct {
	start time.Time
}

func (w *WallclockSource) Sample() uint32 {
	return uint32(time.Since(w.start).Milliseconds())
}

// VirtualClock is a manually-advanced tick source for tests: it never
// moves on its own, only when Advance is called, so scenarios like
// wraparound or multi-tick sleep decay can be reproduced exactly.
type VirtualClock struct {
	mu  sync.Mutex
	now uint32
}

// Virtual returns a VirtualClock starting at start.
func Virtual(start uint32) *VirtualClock {
	return &VirtualClock{now: start}
}

func (v *VirtualClock) Sample() uint32 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.now
}

// Advance moves the clock forward by ms, wrapping at 2^32 the same way
// the real 32-bit hardware tick would.
func (v *VirtualClock) Advance(ms uint32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.now += ms
}

// Set pins the clock to an exact value, useful for seeding the
// near-wraparound scenarios the scheduler must tolerate.
func (v *VirtualClock) Set(now uint32) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.now = now
}
