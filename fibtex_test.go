package fibertask

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFibtexTryLock(t *testing.T) {
	f := NewFibtex(nil)
	require.True(t, f.TryLock())
	require.False(t, f.TryLock())
	f.Unlock()
	require.True(t, f.TryLock())
}

func TestFibtexLockFastPath(t *testing.T) {
	w := &worker{deque: NewWaitFreeQueue[taskBundle]()}
	setCurrentWorker(w, 0)
	defer clearCurrentWorker()

	f := NewFibtex(&Scheduler{})
	f.Lock()
	require.True(t, f.locked)
	f.Unlock()
	require.False(t, f.locked)
}

// TestFibtexUnlockHandsOffDirectly checks that Unlock, with a waiter queued,
// transfers ownership (locked stays true) straight to that waiter instead of
// releasing the lock for a barging acquirer.
func TestFibtexUnlockHandsOffDirectly(t *testing.T) {
	f := NewFibtex(nil)
	require.True(t, f.TryLock())

	waiter := &worker{deque: NewWaitFreeQueue[taskBundle]()}
	waiter.sleepCond = sync.NewCond(&waiter.sleepMu)
	pf := newParkedFiber(waiter, waiter)
	f.head = &wgNode{pf: pf}
	f.tail = f.head

	f.Unlock()

	require.True(t, f.locked, "ownership must transfer directly, never pass through unlocked")
	require.Nil(t, f.head)
	require.Len(t, waiter.readyFibers, 1)
	require.Same(t, pf, waiter.readyFibers[0])
}

func TestFibtexUnlockWithNoWaitersFrees(t *testing.T) {
	f := NewFibtex(nil)
	require.True(t, f.TryLock())
	f.Unlock()
	require.False(t, f.locked)
}

// TestFibtexLockPinnedFastPath checks LockPinned's uncontended path
// behaves the same as Lock's; the pin flag only changes behavior once the
// fiber actually parks, covered by TestSchedulerPinnedWaitResumesOnSameWorker
// for WaitForCounter and exercised for Fibtex via the pinnedWorker wiring
// inside lock itself.
func TestFibtexLockPinnedFastPath(t *testing.T) {
	w := &worker{deque: NewWaitFreeQueue[taskBundle]()}
	setCurrentWorker(w, 0)
	defer clearCurrentWorker()

	f := NewFibtex(&Scheduler{})
	f.LockPinned()
	require.True(t, f.locked)
	f.Unlock()
	require.False(t, f.locked)
}
