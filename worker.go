package fibertask

import (
	"runtime"
	"sync"
	"time"
)

// worker holds the per-thread local state the component design calls for:
// an owned task deque, a list of pending ready-fiber handoffs, a steal
// hint, and the bookkeeping the Sleep empty-queue policy needs.
type worker struct {
	index int
	sched *Scheduler
	deque *WaitFreeQueue[taskBundle]

	readyMu     sync.Mutex
	readyFibers []*parkedFiber

	lastSteal int

	sleepMu        sync.Mutex
	sleepCond      *sync.Cond
	failedPopCount int
}

// failedPopSleepThreshold is the number of empty fetches, counted since the
// last ready-fiber handoff to the worker, before a Sleep-policy worker
// parks on its condition variable.
const failedPopSleepThreshold = 5

func newWorker(index int, s *Scheduler) *worker {
	w := &worker{
		index: index,
		sched: s,
		deque: NewWaitFreeQueue[taskBundle](),
	}
	w.sleepCond = sync.NewCond(&w.sleepMu)
	return w
}

// pushReady appends pf to this worker's ready-fiber list and, if the
// worker might be sleeping, wakes it.
func (w *worker) pushReady(pf *parkedFiber) {
	w.readyMu.Lock()
	w.readyFibers = append(w.readyFibers, pf)
	w.readyMu.Unlock()

	w.sleepMu.Lock()
	w.failedPopCount = 0
	w.sleepCond.Broadcast()
	w.sleepMu.Unlock()
}

// popReadyHandoff removes and returns the oldest pending ready-fiber
// handoff, if any. FIFO order here is cosmetic (any ready fiber may be
// resumed by any worker whose list it is on); it simply avoids starving
// the first fiber that became ready behind a burst of later ones.
func (w *worker) popReadyHandoff() *parkedFiber {
	w.readyMu.Lock()
	defer w.readyMu.Unlock()
	if len(w.readyFibers) == 0 {
		return nil
	}
	pf := w.readyFibers[0]
	w.readyFibers = w.readyFibers[1:]
	return pf
}

// nextTask implements get_next_task: try the worker's own deque first,
// then steal from siblings in round robin starting from lastSteal.
func (w *worker) nextTask() (taskBundle, bool) {
	if tb, ok := w.deque.Pop(); ok {
		return tb, true
	}
	workers := w.sched.workers
	n := len(workers)
	for i := 0; i < n; i++ {
		idx := (w.lastSteal + i) % n
		if idx == w.index {
			continue
		}
		if tb, ok := workers[idx].deque.Steal(); ok {
			w.lastSteal = idx
			if m := w.sched.metrics; m != nil {
				m.Steals.RecordSteal(true)
			}
			return tb, true
		}
	}
	if n > 1 {
		if m := w.sched.metrics; m != nil {
			m.Steals.RecordSteal(false)
		}
	}
	return taskBundle{}, false
}

// onEmptyQueue implements the configured EmptyQueueBehavior when a worker
// finds neither a ready fiber nor a task.
func (w *worker) onEmptyQueue() {
	switch w.sched.opts.emptyQueueBehavior {
	case EmptyQueueYield:
		runtime.Gosched()
	case EmptyQueueSleep:
		w.sleepMu.Lock()
		w.failedPopCount++
		if w.failedPopCount >= failedPopSleepThreshold && !w.hasWork() {
			w.sleepCond.Wait()
		}
		w.sleepMu.Unlock()
	default: // EmptyQueueSpin
	}
}

// hasWork is a best-effort check used right before parking on the sleep
// condition variable, to close the race against a wakeup that arrived
// between the failed-pop count check and acquiring sleepMu.
func (w *worker) hasWork() bool {
	w.readyMu.Lock()
	ready := len(w.readyFibers) > 0
	w.readyMu.Unlock()
	return ready || w.deque.Len() > 0
}

// wakeForShutdown broadcasts this worker's sleep condition variable so a
// quit (or a policy change) becomes visible promptly instead of waiting
// out the sleep policy. Callers invoke it once per worker.
func (w *worker) wakeForShutdown() {
	w.sleepMu.Lock()
	w.sleepCond.Broadcast()
	w.sleepMu.Unlock()
}

// driveLoop is the fetch-run-clean loop described in the component
// design's "Worker loop" section. It always runs on the goroutine that
// currently holds the driver role for currentWorker(); that role transfers
// across park/resume boundaries via the identity registry, never by two
// goroutines driving the same worker concurrently.
func driveLoop(mySlot int) {
	for {
		w, ok := currentWorker()
		if !ok {
			return
		}

		if pf := w.popReadyHandoff(); pf != nil {
			pf.resumeCh <- resumeSignal{retireSlot: mySlot, worker: w}
			clearCurrentWorker()
			return
		}

		if tb, ok := w.nextTask(); ok {
			m := w.sched.metrics
			var start time.Time
			if m != nil {
				start = time.Now()
			}
			tb.task.Fn(w.sched)
			if tb.counter != nil {
				tb.counter.decrement()
			}
			if m != nil {
				m.Latency.Record(time.Since(start))
				m.Throughput.Increment()
				m.Queue.UpdateDeque(int(w.deque.Len()))
				m.Queue.UpdateParked(w.sched.pool.live())
			}
			continue
		}

		if w.sched.quitting() {
			w.sched.retireWorker(w, mySlot)
			clearCurrentWorker()
			return
		}

		w.onEmptyQueue()
	}
}
