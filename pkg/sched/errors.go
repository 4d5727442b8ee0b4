package sched

import "errors"

// Sentinel errors returned at the scheduler API boundary. The dispatch
// loop itself never returns an error from these conditions; they are
// precondition checks made by the public entry points only.
var (
	ErrNotInitialized     = errors.New("sched: scheduler not initialized")
	ErrAlreadyInitialized = errors.New("sched: scheduler already initialized")
	ErrCapacityExceeded   = errors.New("sched: capacity exceeded")
	ErrInvalidCapacity    = errors.New("sched: capacity must be between 1 and 31")
	ErrNilTickSource      = errors.New("sched: tick source must not be nil")
	ErrNilBody            = errors.New("sched: body must not be nil")
	ErrUnknownHandle      = errors.New("sched: unknown handle")
)
