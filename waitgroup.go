package fibertask

import (
	"sync"
)

// wgNode is an intrusive wait-list entry. The original packs the list head
// and two lock bits into a single uintptr and threads nodes through
// pointer tagging; Go's GC cannot tolerate a pointer hidden inside a plain
// integer, so this is a conventional mutex-guarded singly linked list
// instead. It keeps the property that actually matters — a parked fiber's
// node needs no heap allocation beyond the node itself and is visible to
// the world only while parked — without unsafe pointer packing.
type wgNode struct {
	pf   *parkedFiber
	next *wgNode
}

// WaitGroup is a barrier with an unbounded set of waiters, unlike
// TaskCounter's fixed wait-slot table. Each Wait call that parks links one
// node into the list; the node is heap-allocated, since the shared list
// references it, and is linked only while its fiber is parked.
//
// Ordering contract: Add must not be called once any waiter has entered
// Wait; if a WaitGroup is reused across independent phases, new Add calls
// must happen strictly after all previous Wait calls have returned. This
// is the same contract sync.WaitGroup documents and for the same reason:
// otherwise a new Add racing a zero-crossing wakeup cannot be
// distinguished from the wakeup it's racing.
type WaitGroup struct {
	sched   *Scheduler
	mu      sync.Mutex
	counter int32
	head    *wgNode
	tail    *wgNode
}

// NewWaitGroup constructs an empty WaitGroup bound to s.
func NewWaitGroup(s *Scheduler) *WaitGroup {
	return &WaitGroup{sched: s}
}

// Add adds delta to the counter. If the result is zero, every currently
// parked waiter is woken; if negative, Add panics with
// [ErrNegativeWaitGroup] (an invariant violation, undefined in the
// original and an assertion failure here instead of silent corruption).
func (wg *WaitGroup) Add(delta int32) {
	wg.mu.Lock()
	wg.counter += delta
	if wg.counter < 0 {
		wg.mu.Unlock()
		panic(ErrNegativeWaitGroup)
	}
	if wg.counter != 0 {
		wg.mu.Unlock()
		return
	}
	head := wg.head
	wg.head, wg.tail = nil, nil
	wg.mu.Unlock()

	for n := head; n != nil; {
		next := n.next
		n.pf.wake()
		n = next
	}
}

// Done is a shorthand for Add(-1).
func (wg *WaitGroup) Done() {
	wg.Add(-1)
}

// Wait parks the calling fiber until the counter reaches zero. If pin is
// true, the fiber resumes on the worker it parked from; see the pinning
// note in fiber.go.
func (wg *WaitGroup) Wait(pin bool) {
	drv, ok := currentDriver()
	if !ok {
		panic(ErrNotFromWorker)
	}

	wg.mu.Lock()
	if wg.counter == 0 {
		wg.mu.Unlock()
		return
	}

	var pinnedWorker *worker
	if pin {
		pinnedWorker = drv.worker
	}
	pf := newParkedFiber(drv.worker, pinnedWorker)
	node := &wgNode{pf: pf}
	if wg.tail == nil {
		wg.head = node
	} else {
		wg.tail.next = node
	}
	wg.tail = node
	wg.mu.Unlock()

	park(wg.sched, drv.worker, drv.slot, pf)
}
