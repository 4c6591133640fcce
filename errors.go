package fibertask

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the scheduler and its synchronization
// primitives. Use [errors.Is] to match them through any wrapping.
var (
	// ErrAlreadyInitialized is returned by [Init] if the Scheduler it is
	// building has already left its uninitialized state. Init constructs a
	// new Scheduler on every call, so this check always passes: calling
	// Init twice creates two independent schedulers and returns no error.
	ErrAlreadyInitialized = errors.New("fibertask: scheduler already initialized")

	// ErrNoFreeWaitSlot is the panic value of [Scheduler.WaitForCounter]
	// when a [TaskCounter]'s fixed-size wait-slot table has no free slot for
	// a new waiter. This is a
	// programmer contract violation: size the counter's slot table for the
	// expected number of concurrent waiters.
	ErrNoFreeWaitSlot = errors.New("fibertask: no free wait slot on counter")

	// ErrNegativeWaitGroup is the panic value of [WaitGroup.Add] when an Add
	// drives a WaitGroup's counter below zero.
	ErrNegativeWaitGroup = errors.New("fibertask: wait group counter driven negative")

	// ErrSchedulerQuit is the panic value of AddTask/AddTasks/WaitForCounter
	// calls made after the scheduler has begun shutting down.
	ErrSchedulerQuit = errors.New("fibertask: scheduler is shutting down")

	// ErrNotFromWorker is the panic value used by operations that require
	// the calling goroutine to be a known scheduler worker or fiber, such
	// as [Scheduler.AddTask] or [Scheduler.WaitForCounter] called from an
	// untracked goroutine. [Scheduler.CurrentThreadIndex] instead reports
	// the same condition through its bool return, since it has no other
	// failure mode worth panicking over.
	ErrNotFromWorker = errors.New("fibertask: caller is not a scheduler worker or fiber")

	// ErrInvalidOption is returned by [Init], wrapped, when an [Option] was
	// given an out-of-range argument.
	ErrInvalidOption = errors.New("fibertask: invalid option value")
)

// WrapError wraps an error with a contextual message, preserving the
// original for [errors.Is] / [errors.As] matching.
func WrapError(message string, cause error) error {
	return fmt.Errorf("%s: %w", message, cause)
}
