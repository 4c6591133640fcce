package fibertask

// Callbacks are optional hooks invoked by a [Scheduler] as it creates
// threads and fibers and as fibers change state. All fields are optional;
// a nil callback is simply not invoked. Callbacks must not block and must
// not call back into the scheduler that is invoking them.
type Callbacks struct {
	// ThreadsCreated is invoked once by Init, right after it has launched
	// the goroutines for workers 1..N-1 (they may not be running yet, and
	// worker 0 starts in Run), with the total count including worker 0.
	ThreadsCreated func(count int)

	// FibersCreated is invoked once the fiber pool has been populated, with
	// the pool size.
	FibersCreated func(count int)

	// ThreadStarted is invoked on a worker's own goroutine immediately
	// after it begins its dispatch loop.
	ThreadStarted func(workerIndex int)

	// ThreadEnded is invoked on a worker's own goroutine immediately before
	// it unwinds and returns.
	ThreadEnded func(workerIndex int)

	// FiberStateChanged is invoked whenever a pool fiber transitions
	// between free and claimed, primarily useful for diagnostics and
	// testing against Testable Property 2 (fiber-count invariance).
	FiberStateChanged func(fiberIndex int, free bool)
}

func (c Callbacks) threadsCreated(n int) {
	if c.ThreadsCreated != nil {
		c.ThreadsCreated(n)
	}
}

func (c Callbacks) fibersCreated(n int) {
	if c.FibersCreated != nil {
		c.FibersCreated(n)
	}
}

func (c Callbacks) threadStarted(i int) {
	if c.ThreadStarted != nil {
		c.ThreadStarted(i)
	}
}

func (c Callbacks) threadEnded(i int) {
	if c.ThreadEnded != nil {
		c.ThreadEnded(i)
	}
}

func (c Callbacks) fiberStateChanged(i int, free bool) {
	if c.FiberStateChanged != nil {
		c.FiberStateChanged(i, free)
	}
}
