package fibertask

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWaitGroupAddNegativePanics(t *testing.T) {
	wg := NewWaitGroup(nil)
	wg.Add(1)
	require.PanicsWithValue(t, ErrNegativeWaitGroup, func() {
		wg.Add(-2)
	})
}

func TestWaitGroupDoneToZeroWakesAllWaiters(t *testing.T) {
	wg := NewWaitGroup(nil)
	wg.Add(2)

	w1 := &worker{deque: NewWaitFreeQueue[taskBundle]()}
	w2 := &worker{deque: NewWaitFreeQueue[taskBundle]()}
	w1.sleepCond = sync.NewCond(&w1.sleepMu)
	w2.sleepCond = sync.NewCond(&w2.sleepMu)

	pf1 := newParkedFiber(w1, w1)
	pf2 := newParkedFiber(w2, w2)
	wg.head = &wgNode{pf: pf1, next: &wgNode{pf: pf2}}
	wg.tail = wg.head.next

	wg.Done()
	require.Equal(t, int32(1), wg.counter)
	require.Empty(t, w1.readyFibers)
	require.Empty(t, w2.readyFibers)

	wg.Done()
	require.Equal(t, int32(0), wg.counter)
	require.Len(t, w1.readyFibers, 1)
	require.Len(t, w2.readyFibers, 1)
	require.Nil(t, wg.head)
	require.Nil(t, wg.tail)
}

// TestWaitGroupWaitFastPathWhenAlreadyZero checks that Wait returns without
// parking when the counter is already at zero.
func TestWaitGroupWaitFastPathWhenAlreadyZero(t *testing.T) {
	w := &worker{deque: NewWaitFreeQueue[taskBundle]()}
	setCurrentWorker(w, 0)
	defer clearCurrentWorker()

	wg := NewWaitGroup(&Scheduler{})
	wg.Wait(false)
}
