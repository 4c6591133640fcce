package fibertask

import (
	"sync/atomic"
)

// SchedulerState represents the lifecycle state of a [Scheduler].
//
// State Machine:
//
//	StateUninitialized (0) -> StateRunning (1)     [Init succeeds]
//	StateRunning (1)       -> StateQuitting (2)     [main task returns]
//	StateQuitting (2)      -> StateTerminated (3)   [all workers unwound]
//
// State Transition Rules:
//   - Use TryTransition (CAS) for every transition; the state machine is
//     strictly forward-moving, so a failed CAS means another goroutine
//     already advanced it and the caller should re-load and reconsider.
//   - StateTerminated is terminal: no further transitions are valid.
type SchedulerState uint64

const (
	// StateUninitialized is the zero value: Init has not yet succeeded.
	StateUninitialized SchedulerState = 0
	// StateRunning indicates workers are active and dispatching tasks.
	StateRunning SchedulerState = 1
	// StateQuitting indicates the main task has returned and workers are
	// draining their ready-fiber handoffs before unwinding.
	StateQuitting SchedulerState = 2
	// StateTerminated indicates every worker has returned to its thread
	// fiber and the scheduler is fully shut down.
	StateTerminated SchedulerState = 3
)

// String returns a human-readable representation of the state.
func (s SchedulerState) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateRunning:
		return "Running"
	case StateQuitting:
		return "Quitting"
	case StateTerminated:
		return "Terminated"
	default:
		return "Unknown"
	}
}

// fastState is a lock-free lifecycle state machine with cache-line padding,
// so that worker goroutines polling it on every loop iteration don't false
// share the cache line with other frequently-written scheduler fields.
type fastState struct { // betteralign:ignore
	_ [sizeOfCacheLine]byte                     // padding before the value
	v atomic.Uint64                             // state value
	_ [sizeOfCacheLine - sizeOfAtomicUint64]byte // pad to complete the cache line
}

// newFastState creates a state machine in StateUninitialized.
func newFastState() *fastState {
	s := &fastState{}
	s.v.Store(uint64(StateUninitialized))
	return s
}

// Load returns the current state atomically.
func (s *fastState) Load() SchedulerState {
	return SchedulerState(s.v.Load())
}

// Store atomically stores a new state, bypassing transition validation.
// Only used to force StateTerminated after the last worker unwinds.
func (s *fastState) Store(state SchedulerState) {
	s.v.Store(uint64(state))
}

// TryTransition attempts to atomically transition from one state to
// another, returning true if it succeeded.
func (s *fastState) TryTransition(from, to SchedulerState) bool {
	return s.v.CompareAndSwap(uint64(from), uint64(to))
}

// IsQuitting reports whether shutdown has been requested or completed.
func (s *fastState) IsQuitting() bool {
	state := s.Load()
	return state == StateQuitting || state == StateTerminated
}
