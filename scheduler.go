package fibertask

import (
	"runtime"
	"sync"
)

// Scheduler owns a fixed pool of worker threads, a fixed-size fiber pool,
// and the per-worker deques and ready-fiber lists that let fibers migrate
// between threads safely. The zero value is not usable; construct with
// [Init].
type Scheduler struct {
	opts      *schedulerOptions
	callbacks Callbacks
	logger    Logger

	workers []*worker
	pool    *fiberPool

	state      *fastState
	shutdownWG sync.WaitGroup

	limiter *diagnosticLimiter
	metrics *Metrics
}

// Init constructs and starts a Scheduler. The calling goroutine is not
// made a worker here; call [Scheduler.Run] with the main task to repurpose
// it into worker 0, matching the component design's "the calling thread
// becomes the first worker" initialization contract.
//
// Every call builds and starts a new, independent Scheduler, so a second
// call does not fail with [ErrAlreadyInitialized]. The only error Init
// returns is an invalid [Option] value, wrapping [ErrInvalidOption].
func Init(opts ...Option) (*Scheduler, error) {
	cfg, err := resolveSchedulerOptions(opts)
	if err != nil {
		return nil, err
	}

	threadPoolSize := cfg.threadPoolSize
	if threadPoolSize <= 0 {
		threadPoolSize = runtime.GOMAXPROCS(0)
	}
	if threadPoolSize < 1 {
		threadPoolSize = 1
	}

	s := &Scheduler{
		opts:      cfg,
		callbacks: cfg.callbacks,
		logger:    cfg.logger,
		pool:      newFiberPool(cfg.fiberPoolSize),
		state:     newFastState(),
		limiter:   cfg.rateLimiter,
	}
	if cfg.metricsEnabled {
		s.metrics = newMetrics()
	}
	if !s.state.TryTransition(StateUninitialized, StateRunning) {
		return nil, ErrAlreadyInitialized
	}

	s.workers = make([]*worker, threadPoolSize)
	for i := range s.workers {
		s.workers[i] = newWorker(i, s)
	}

	s.callbacks.fibersCreated(cfg.fiberPoolSize)

	// Worker 0 is driven by whatever goroutine calls Run; only 1..N-1 get
	// their own goroutine here.
	s.shutdownWG.Add(threadPoolSize - 1)
	for i := 1; i < threadPoolSize; i++ {
		w := s.workers[i]
		go func() {
			runtime.LockOSThread()
			defer runtime.UnlockOSThread()
			setAffinity(s, w.index)
			slot := s.pool.claim(s)
			setCurrentWorker(w, slot)
			s.callbacks.threadStarted(w.index)
			driveLoop(slot)
			s.callbacks.threadEnded(w.index)
		}()
	}
	s.callbacks.threadsCreated(threadPoolSize)

	return s, nil
}

// Run repurposes the calling goroutine into worker 0, runs main as its
// first task, and then drives shutdown: once main returns, the scheduler
// transitions to StateQuitting, wakes every sleeping worker, and worker 0
// keeps dispatching (so in-flight ready-fiber handoffs still complete)
// until every worker has observed quit and returned. Run blocks until
// shutdown is complete.
func (s *Scheduler) Run(main TaskFunc) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	setAffinity(s, 0)

	slot := s.pool.claim(s)
	w0 := s.workers[0]
	setCurrentWorker(w0, slot)
	s.callbacks.threadStarted(0)

	main(s)

	s.state.TryTransition(StateRunning, StateQuitting)
	for _, w := range s.workers {
		w.wakeForShutdown()
	}

	driveLoop(slot)
	s.callbacks.threadEnded(0)

	s.shutdownWG.Wait()
	s.state.Store(StateTerminated)
}

// quitting reports whether shutdown has been requested.
func (s *Scheduler) quitting() bool {
	return s.state.IsQuitting()
}

// retireWorker releases mySlot and, for every worker other than worker 0
// (which Run already waits on directly), marks that worker's shutdown as
// complete.
func (s *Scheduler) retireWorker(w *worker, mySlot int) {
	s.pool.release(s, mySlot)
	if w.index != 0 {
		s.shutdownWG.Done()
	}
}

// AddTask enqueues task on the calling fiber's own worker deque, paying
// down counter by one (if non-nil) when the task finishes. It may only be
// called from within the main task passed to Run or from within a running
// task; any other caller gets an [ErrNotFromWorker] panic. AddTask does not
// wake workers sleeping under [EmptyQueueSleep].
func (s *Scheduler) AddTask(task Task, counter *TaskCounter) {
	if s.quitting() {
		panic(ErrSchedulerQuit)
	}
	w, ok := currentWorker()
	if !ok {
		panic(ErrNotFromWorker)
	}
	if counter != nil {
		counter.add(1)
	}
	w.deque.Push(taskBundle{task: task, counter: counter})
}

// AddTasks enqueues every task in tasks the same way as AddTask, bumping
// counter once by len(tasks) rather than once per task.
func (s *Scheduler) AddTasks(tasks []Task, counter *TaskCounter) {
	if s.quitting() {
		panic(ErrSchedulerQuit)
	}
	w, ok := currentWorker()
	if !ok {
		panic(ErrNotFromWorker)
	}
	if counter != nil && len(tasks) > 0 {
		counter.add(uint32(len(tasks)))
	}
	for _, t := range tasks {
		w.deque.Push(taskBundle{task: t, counter: counter})
	}
}

// WaitForCounter parks the calling fiber until counter reaches target. If
// pin is true, the fiber is guaranteed to resume on the same worker it
// parked from (see the pinning note in fiber.go for what that guarantee
// does and does not cover under Go's scheduler). WaitForCounter must be
// called from within a running task.
func (s *Scheduler) WaitForCounter(counter *TaskCounter, target uint32, pin bool) {
	if s.quitting() {
		panic(ErrSchedulerQuit)
	}
	drv, ok := currentDriver()
	if !ok {
		panic(ErrNotFromWorker)
	}
	counter.wait(drv.worker, drv.slot, target, pin)
}

// CurrentThreadIndex returns the index of the worker the calling fiber is
// presently running on, and false if called from outside the scheduler.
func (s *Scheduler) CurrentThreadIndex() (int, bool) {
	w, ok := currentWorker()
	if !ok {
		return 0, false
	}
	return w.index, true
}

// ThreadCount returns the number of worker threads the scheduler was
// initialized with.
func (s *Scheduler) ThreadCount() int {
	return len(s.workers)
}

// FiberCount returns the size of the fiber pool.
func (s *Scheduler) FiberCount() int {
	return len(s.pool.free)
}

// Metrics returns the scheduler's metrics collector, or nil if [WithMetrics]
// was not enabled at [Init] time.
func (s *Scheduler) Metrics() *Metrics {
	return s.metrics
}

// SetEmptyQueueBehavior changes the policy workers use when they find
// neither a ready fiber nor a task. Safe to call at any time; takes effect
// on each worker's next empty-queue check.
func (s *Scheduler) SetEmptyQueueBehavior(b EmptyQueueBehavior) {
	s.opts.emptyQueueBehavior = b
	for _, w := range s.workers {
		w.wakeForShutdown()
	}
}

// diagnoseFiberExhaustion logs a rate-limited possible-deadlock warning
// when next_free_fiber has made several full scans without success.
func (s *Scheduler) diagnoseFiberExhaustion(rounds int) {
	if _, allow := s.limiter.allow("fiber-pool-exhausted"); !allow {
		return
	}
	s.logger.Warn("fiber pool exhausted after repeated scans, possible deadlock",
		Field{Key: "rounds", Value: rounds},
		Field{Key: "pool_size", Value: len(s.pool.free)},
	)
}
