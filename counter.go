package fibertask

import (
	"sync/atomic"
)

// waitSlot is one entry in a TaskCounter's fixed-capacity wait table.
// free advertises availability; inUse mediates between a parking fiber
// publishing its bundle and a concurrent decrement scanning for a match,
// exactly as the component design's CAS protocol requires.
type waitSlot struct {
	free   atomic.Bool
	inUse  atomic.Bool
	target uint32
	pf     *parkedFiber
}

// TaskCounter tracks an outstanding task count and parks fibers waiting
// for it to reach a target value. Its wait-slot table has a fixed
// capacity, the price of never allocating on the hot decrement path; size
// it for the maximum number of fibers that will wait on one counter
// concurrently.
type TaskCounter struct {
	sched    *Scheduler
	value    atomic.Uint32
	slots    []waitSlot
	inflight atomic.Int32
}

// NewTaskCounter constructs a TaskCounter bound to s, with the given
// initial value and wait-slot capacity. Pass [DefaultWaitSlots] for slots
// unless a workload is known to need more concurrent waiters on the same
// counter.
func NewTaskCounter(s *Scheduler, initial uint32, slots int) *TaskCounter {
	if slots <= 0 {
		slots = DefaultWaitSlots
	}
	c := &TaskCounter{sched: s, slots: make([]waitSlot, slots)}
	c.value.Store(initial)
	for i := range c.slots {
		c.slots[i].free.Store(true)
		// inUse starts true, matching the original's AtomicCounter slot
		// init: it is the "retired" state, so a concurrent decrement
		// scanning a slot between free.CompareAndSwap and the parker's
		// own inUse.Store(false) never reads a half-published slot as a
		// match.
		c.slots[i].inUse.Store(true)
	}
	return c
}

// Load returns the current value.
func (c *TaskCounter) Load() uint32 {
	return c.value.Load()
}

// Add bumps the value by n. Add never wakes parked waiters — only
// decrement does. This mirrors the original's TaskCounter::add exactly
// and is deliberate: Add is for registering new outstanding work (e.g.
// from AddTask), never for driving the counter down to a value a fiber is
// waiting on. Code that needs "decrement the count and possibly wake
// waiters" must go through the scheduler's own task-completion path.
func (c *TaskCounter) Add(n uint32) {
	c.inflight.Add(1)
	defer c.inflight.Add(-1)
	c.value.Add(n)
}

func (c *TaskCounter) add(n uint32) {
	c.Add(n)
}

// decrement is called by the scheduler once a task bound to this counter
// finishes. If the resulting value matches any parked waiter's target
// (most commonly zero), those waiters are woken.
func (c *TaskCounter) decrement() {
	c.inflight.Add(1)
	defer c.inflight.Add(-1)
	newVal := c.value.Add(^uint32(0)) // -1, wrapping semantics per atomic.Uint32.Add
	c.wakeMatching(newVal)
}

// wakeMatching scans the wait table for slots whose target equals value,
// retiring and waking each one it finds. A slot is retired by setting
// free=true while deliberately leaving inUse=true, so a concurrent scanner
// racing the retirement never observes a half-populated slot as a match.
func (c *TaskCounter) wakeMatching(value uint32) {
	for i := range c.slots {
		s := &c.slots[i]
		if s.free.Load() {
			continue
		}
		if !s.inUse.CompareAndSwap(false, true) {
			continue
		}
		if s.target != value {
			s.inUse.Store(false)
			continue
		}
		pf := s.pf
		s.free.Store(true)
		pf.wake()
	}
}

// wait is the implementation behind Scheduler.WaitForCounter. It reserves
// a wait slot, re-checks the value after publishing it (closing the race
// against a concurrent decrement), and parks the calling fiber only if
// still necessary.
func (c *TaskCounter) wait(w *worker, mySlot int, target uint32, pin bool) {
	if c.value.Load() == target {
		return
	}

	c.inflight.Add(1)
	defer c.inflight.Add(-1)

	for i := range c.slots {
		slot := &c.slots[i]
		if !slot.free.CompareAndSwap(true, false) {
			continue
		}

		var pinnedWorker *worker
		if pin {
			pinnedWorker = w
		}
		pf := newParkedFiber(w, pinnedWorker)
		slot.target = target
		slot.pf = pf
		// Publish with sequentially consistent ordering, then re-read the
		// value: this is what lets a racing decrement and this parker
		// agree on exactly one winner without a lock.
		slot.inUse.Store(false)

		if c.value.Load() == target {
			if slot.inUse.CompareAndSwap(false, true) {
				slot.free.Store(true)
				return
			}
			// A concurrent decrement already claimed and is waking this
			// slot; let it proceed and park normally so the wake isn't
			// lost.
		}

		park(c.sched, w, mySlot, pf)
		return
	}

	panic(ErrNoFreeWaitSlot)
}
