package fibertask

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTaskCounterLoadAndAdd(t *testing.T) {
	c := NewTaskCounter(nil, 0, DefaultWaitSlots)
	require.EqualValues(t, 0, c.Load())
	c.Add(3)
	require.EqualValues(t, 3, c.Load())
}

// TestTaskCounterWaitFastPath exercises the no-park branch of wait: when the
// value already equals target, wait must return without touching the
// scheduler or worker it was passed.
func TestTaskCounterWaitFastPath(t *testing.T) {
	c := NewTaskCounter(nil, 5, 1)
	c.wait(nil, 0, 5, false)
}

// TestTaskCounterNoFreeWaitSlotPanics fills a counter's single wait slot
// directly, then asserts that a wait call with a mismatched target panics
// with ErrNoFreeWaitSlot rather than silently parking forever.
func TestTaskCounterNoFreeWaitSlotPanics(t *testing.T) {
	c := NewTaskCounter(nil, 1, 1)
	require.True(t, c.slots[0].free.CompareAndSwap(true, false))
	require.PanicsWithValue(t, ErrNoFreeWaitSlot, func() {
		c.wait(nil, 0, 0, false)
	})
}

func TestTaskCounterDecrementWakesMatchingSlotOnly(t *testing.T) {
	c := NewTaskCounter(nil, 2, 2)

	// Install two fake waiters directly, bypassing the parking machinery,
	// so wakeMatching's target comparison can be tested in isolation. wake()
	// only appends the parkedFiber to its target worker's ready list; a real
	// driveLoop would later pop it and complete the resumeCh handoff. Each
	// slot is published the way wait publishes it: free=false, then
	// inUse=false.
	wA := &worker{deque: NewWaitFreeQueue[taskBundle]()}
	wB := &worker{deque: NewWaitFreeQueue[taskBundle]()}
	wA.sleepCond = sync.NewCond(&wA.sleepMu)
	wB.sleepCond = sync.NewCond(&wB.sleepMu)
	pfA := newParkedFiber(wA, wA)
	pfB := newParkedFiber(wB, wB)

	c.slots[0].target = 1
	c.slots[0].pf = pfA
	c.slots[0].free.Store(false)
	c.slots[0].inUse.Store(false)

	c.slots[1].target = 0
	c.slots[1].pf = pfB
	c.slots[1].free.Store(false)
	c.slots[1].inUse.Store(false)

	c.decrement() // 2 -> 1: matches slot 0's target only

	require.Len(t, wA.readyFibers, 1, "slot targeting the reached value was not woken")
	require.Same(t, pfA, wA.readyFibers[0])
	require.Empty(t, wB.readyFibers, "slot targeting an unreached value was woken")
}

// TestTaskCounterFreshSlotsStartInUse guards against a never-used slot
// being mistaken for a live waiter: a freshly constructed counter must
// leave inUse true on every slot (the "retired" state), the same way a
// slot is left after wakeMatching retires it, so decrementing to a value
// that happens to match a fresh slot's zero-value target (most commonly
// zero itself) can never hand wakeMatching a nil *parkedFiber.
func TestTaskCounterFreshSlotsStartInUse(t *testing.T) {
	c := NewTaskCounter(nil, 1, 2)
	for i := range c.slots {
		require.True(t, c.slots[i].free.Load())
		require.True(t, c.slots[i].inUse.Load())
	}

	require.NotPanics(t, func() {
		c.decrement() // 1 -> 0: must not match any untouched slot
	})
}
