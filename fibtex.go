package fibertask

import (
	"runtime"
	"sync"
)

var _ sync.Locker = (*Fibtex)(nil)

// fibtexSpinIterations is how many times Lock busy-waits before falling
// back to parking, when no other fiber is already queued.
const fibtexSpinIterations = 40

// Fibtex is a mutex whose blocked waiter is a fiber, not a thread: a fiber
// that cannot immediately acquire it is parked (detached from its worker)
// rather than blocking the underlying OS thread. It is non-reentrant and
// may be fiber-pinned so a holder that must not migrate mid-critical-
// section can request that a contended acquire resumes on the worker it
// started from.
//
// Unlock performs a direct ownership handoff to the longest-waiting fiber
// rather than simply clearing the locked flag: this is what makes the
// FIFO wake guarantee (waiters parked strictly in order w1, w2, w3 proceed
// in that order) hold even in the presence of a concurrent fiber racing
// Lock's fast path. See DESIGN.md for why this departs from a literal
// clear-then-race unlock.
type Fibtex struct {
	sched  *Scheduler
	mu     sync.Mutex
	locked bool
	head   *wgNode
	tail   *wgNode
}

// NewFibtex constructs an unlocked Fibtex bound to s.
func NewFibtex(s *Scheduler) *Fibtex {
	return &Fibtex{sched: s}
}

// Lock acquires the mutex, parking the calling fiber if it is already
// held. Satisfies [sync.Locker]. Use [Fibtex.LockPinned] if the holder
// must not migrate workers across a contended acquire.
func (f *Fibtex) Lock() {
	f.lock(false)
}

// LockPinned acquires the mutex like Lock, but if the calling fiber must
// park, it is guaranteed to resume on the worker it parked from; see the
// pinning note in fiber.go.
func (f *Fibtex) LockPinned() {
	f.lock(true)
}

func (f *Fibtex) lock(pin bool) {
	drv, ok := currentDriver()
	if !ok {
		panic(ErrNotFromWorker)
	}

	f.mu.Lock()
	if !f.locked {
		f.locked = true
		f.mu.Unlock()
		return
	}
	noWaiters := f.head == nil
	f.mu.Unlock()

	if noWaiters && f.spinForLock() {
		return
	}

	f.mu.Lock()
	if !f.locked {
		f.locked = true
		f.mu.Unlock()
		return
	}
	var pinnedWorker *worker
	if pin {
		pinnedWorker = drv.worker
	}
	pf := newParkedFiber(drv.worker, pinnedWorker)
	node := &wgNode{pf: pf}
	if f.tail == nil {
		f.head = node
	} else {
		f.tail.next = node
	}
	f.tail = node
	f.mu.Unlock()

	park(f.sched, drv.worker, drv.slot, pf)
	// Woken only by Unlock's direct handoff, which transfers ownership
	// before waking us: no re-check or retry needed on resume.
}

func (f *Fibtex) spinForLock() bool {
	for i := 0; i < fibtexSpinIterations; i++ {
		f.mu.Lock()
		if !f.locked {
			f.locked = true
			f.mu.Unlock()
			return true
		}
		f.mu.Unlock()
		runtime.Gosched()
	}
	return false
}

// TryLock makes a single acquisition attempt without parking, barging
// ahead of any queued waiters if the lock happens to be free. Returns
// whether it succeeded.
func (f *Fibtex) TryLock() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.locked {
		return false
	}
	f.locked = true
	return true
}

// Unlock releases the mutex. If a fiber is waiting, ownership transfers
// directly to the longest-waiting one (FIFO), whose Lock call returns
// holding the mutex as soon as it resumes; otherwise the lock becomes free
// for the next acquirer.
func (f *Fibtex) Unlock() {
	f.mu.Lock()
	if f.head == nil {
		f.locked = false
		f.mu.Unlock()
		return
	}
	node := f.head
	f.head = node.next
	if f.head == nil {
		f.tail = nil
	}
	f.mu.Unlock()
	node.pf.wake()
}
