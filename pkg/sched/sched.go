// Package sched implements a single-threaded cooperative task scheduler
// for resource-constrained execution environments. It multiplexes a
// fixed number of logically-concurrent coroutines onto one logical
// execution context: a dispatcher selects a READY coroutine, invokes
// its body, and the body runs until it reaches a suspension point and
// returns. There is no per-coroutine stack and no preemption; the
// scheduler is safe to call from exactly one goroutine at a time.
package sched

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// Handle is a task table slot index. Handle(0) always names the idle
// coroutine. A handle is stable for the lifetime of the task it names.
type Handle int

// TickSource supplies the scheduler's monotonic millisecond clock. Sample
// must return a value that only ever advances, wrapping at 2^32 the way
// an unsigned counter naturally does; the scheduler relies on unsigned
// subtraction to compute elapsed time correctly across that wraparound.
type TickSource interface {
	Sample() uint32
}

// TickSourceFunc adapts a plain function to a TickSource.
type TickSourceFunc func() uint32

func (f TickSourceFunc) Sample() uint32 { return f() }

// Option configures a Scheduler at construction time.
type Option func(*Scheduler)

// WithLogger attaches a structured logger. The scheduler logs at debug
// level only (initialization, task creation); by default it uses
// slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger }
}

// Scheduler is the task table and dispatcher. The zero value is not
// usable; construct one with New.
type Scheduler struct {
	table       []*Task
	capacity    int // total slots, including slot 0 (idle)
	nextSlot    int
	currentID   Handle
	tickSource  TickSource
	lastTick    uint32
	initialized bool
	logger      *slog.Logger

	lifecycle sync.Mutex // guards stopCh/doneCh only, not task state
	stopCh    chan struct{}
	doneCh    chan struct{}
}

func defaultIdleBody(t *Task, arg any) {}

// New initializes a scheduler with room for userCapacity application
// coroutines plus the reserved idle slot. userCapacity must be in
// [1, 31]. tickSource must be non-nil.
func New(userCapacity int, tickSource TickSource, opts ...Option) (*Scheduler, error) {
	if tickSource == nil {
		return nil, ErrNilTickSource
	}
	if userCapacity < 1 || userCapacity > 31 {
		return nil, ErrInvalidCapacity
	}

	s := &Scheduler{
		table:       make([]*Task, userCapacity+1),
		capacity:    userCapacity + 1,
		nextSlot:    1,
		tickSource:  tickSource,
		initialized: true,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.table[0] = &Task{
		handle:      0,
		state:       StateReady,
		switchState: SwitchNormal,
		callback:    defaultIdleBody,
		sched:       s,
	}
	s.lastTick = tickSource.Sample()

	s.logger.Debug("scheduler initialized", "capacity", userCapacity, "slots", s.capacity)
	return s, nil
}

// Close releases the task table. It is idempotent; calling Close while
// Start is running is undefined — callers must Stop first.
func (s *Scheduler) Close() error {
	if !s.initialized {
		return nil
	}
	s.table = nil
	s.initialized = false
	return nil
}

// SetIdle replaces the body installed at slot 0. It should be called
// before Start; the default idle body does nothing.
func (s *Scheduler) SetIdle(body Body) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	if body == nil {
		return ErrNilBody
	}
	s.table[0].callback = body
	return nil
}

// CreateTask assigns the next free slot (sequential, never reused
// within one Scheduler's lifetime), installs callback/arg, and returns
// the new handle. The record is briefly StateCreated before being
// promoted to StateReady, per the reference's CREATED→READY transition
// at init; CreateTask performs both steps before returning.
func (s *Scheduler) CreateTask(callback Body, arg any) (Handle, error) {
	if !s.initialized {
		return 0, ErrNotInitialized
	}
	if callback == nil {
		return 0, ErrNilBody
	}
	if s.nextSlot >= s.capacity {
		return 0, ErrCapacityExceeded
	}

	h := Handle(s.nextSlot)
	s.nextSlot++
	t := &Task{
		handle:      h,
		state:       StateCreated,
		switchState: SwitchNormal,
		callback:    callback,
		arg:         arg,
		sched:       s,
	}
	t.state = StateReady
	s.table[h] = t

	s.logger.Debug("task created", "handle", h)
	return h, nil
}

// Task returns the task occupying h, or ErrUnknownHandle if h is out of
// range or was never assigned.
func (s *Scheduler) Task(h Handle) (*Task, error) {
	if !s.initialized {
		return nil, ErrNotInitialized
	}
	if int(h) < 0 || int(h) >= s.capacity || s.table[h] == nil {
		return nil, ErrUnknownHandle
	}
	return s.table[h], nil
}

// Suspend pauses the task named by h. Suspending a task already
// TERMINATED, NONE, or CREATED is a silent no-op; a slot in range that
// was never assigned counts as NONE.
func (s *Scheduler) Suspend(h Handle) error {
	if s.initialized && int(h) > 0 && int(h) < s.capacity && s.table[h] == nil {
		return nil
	}
	t, err := s.Task(h)
	if err != nil {
		return err
	}
	switch t.state {
	case StateTerminated, StateNone, StateCreated:
		return nil
	}
	t.state = StateSuspended
	t.timeout = 0
	return nil
}

// Resume returns the task named by h to READY and clears its timeout.
// Resuming a NONE or TERMINATED task is a no-op; a slot in range that
// was never assigned counts as NONE.
func (s *Scheduler) Resume(h Handle) error {
	if s.initialized && int(h) > 0 && int(h) < s.capacity && s.table[h] == nil {
		return nil
	}
	t, err := s.Task(h)
	if err != nil {
		return err
	}
	if t.state == StateNone || t.state == StateTerminated {
		return nil
	}
	t.state = StateReady
	t.timeout = 0
	return nil
}

// Tick runs exactly one pass of the dispatch loop: the timeout manager
// advances all WAITING tasks, then one READY or BLOCKED task (or the
// idle task, if there is none) is dispatched.
func (s *Scheduler) Tick(ctx context.Context) error {
	if !s.initialized {
		return ErrNotInitialized
	}
	s.advanceTimeouts()
	s.dispatchOne()
	return nil
}

// advanceTimeouts implements the timeout manager of the scheduler: for
// every WAITING task, it decays timeout by the elapsed ticks since the
// last advance, promoting to READY once it reaches zero. Subtraction is
// unsigned, so wraparound of the underlying 32-bit counter is handled
// transparently.
func (s *Scheduler) advanceTimeouts() {
	now := s.tickSource.Sample()
	elapsed := now - s.lastTick
	for _, t := range s.table {
		if t == nil || t.state != StateWaiting {
			continue
		}
		if t.timeout > elapsed {
			t.timeout -= elapsed
		} else {
			t.timeout = 0
			t.state = StateReady
		}
	}
	s.lastTick = now
}

// dispatchOne selects the next READY task by round-robin starting after
// currentID, skipping slot 0, falling back to slot 0 (idle) when
// nothing else is READY, and invokes it.
//
// BLOCKED tasks are scanned alongside READY ones: the reference never
// defines a wake signal from mutex release back to READY, only the
// polling re-entry of §4.3.6 — a BLOCKED task's only path forward is to
// be dispatched again so its body can retry the lock at the same
// anchor. Treating BLOCKED as dispatch-eligible is what makes that
// retry actually happen.
func (s *Scheduler) dispatchOne() {
	next := Handle((int(s.currentID) + 1) % s.capacity)
	chosen := Handle(0)
	found := false
	for scanned := 0; scanned < s.capacity; scanned++ {
		if next != 0 && s.table[next] != nil && isDispatchable(s.table[next].state) {
			chosen = next
			found = true
			break
		}
		next = Handle((int(next) + 1) % s.capacity)
	}
	if !found {
		chosen = 0
	}

	s.currentID = chosen
	t := s.table[chosen]
	t.state = StateRunning
	// switchState is left alone here: CreateTask (and New, for the idle
	// slot) sets it to NORMAL, and it only ever moves NORMAL->ABORT, in
	// Begin's first call or at a suspension point. Resetting it on every
	// dispatch would make Begin take the
	// fresh-entry branch every time, discarding the anchor the task's
	// last Yield/Sleep/SuspendSelf/Mutex.Lock recorded.
	t.callback(t, t.arg)
	if t.state == StateRunning {
		t.state = StateReady
	}
}

func isDispatchable(s TaskState) bool {
	return s == StateReady || s == StateBlocked
}

// Start drives Tick in a loop until ctx is cancelled or Stop is called.
// This is the hosted analogue of the reference's run(), adapted to
// return instead of looping forever, so host code (tests, the CLI, the
// debug server) can bound or cancel a dispatch session cleanly.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.initialized {
		return ErrNotInitialized
	}

	s.lifecycle.Lock()
	if s.stopCh == nil {
		s.stopCh = make(chan struct{})
	}
	stopCh := s.stopCh
	doneCh := make(chan struct{})
	s.doneCh = doneCh
	s.lifecycle.Unlock()
	defer func() {
		s.lifecycle.Lock()
		s.stopCh = nil
		s.lifecycle.Unlock()
		close(doneCh)
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-stopCh:
			return nil
		default:
		}
		if err := s.Tick(ctx); err != nil {
			return fmt.Errorf("tick: %w", err)
		}
	}
}

// Stop signals a running Start loop to return. It is safe to call
// multiple times or when no Start loop is running; a Stop that arrives
// before Start has entered its loop makes that Start return at once.
func (s *Scheduler) Stop() error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()
	if s.stopCh == nil {
		s.stopCh = make(chan struct{})
	}
	select {
	case <-s.stopCh:
	default:
		close(s.stopCh)
	}
	return nil
}

// TaskSnapshot is a read-only copy of one task's observable state, safe
// to share across goroutines once taken.
type TaskSnapshot struct {
	Handle  Handle
	State   TaskState
	Timeout uint32
}

// Snapshot returns a point-in-time copy of every slot's handle, state,
// and timeout. It is the only supported way to observe scheduler state
// from outside the goroutine driving Tick/Start.
func (s *Scheduler) Snapshot() []TaskSnapshot {
	out := make([]TaskSnapshot, 0, len(s.table))
	for _, t := range s.table {
		if t == nil {
			continue
		}
		out = append(out, TaskSnapshot{Handle: t.handle, State: t.state, Timeout: t.timeout})
	}
	return out
}

// Capacity returns the total number of slots, including slot 0.
func (s *Scheduler) Capacity() int { return s.capacity }
