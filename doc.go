// Package fibertask provides a user-space fiber scheduler: a fixed pool of
// OS threads ("workers") that multiplex many lightweight cooperative
// computations ("fibers") with work-stealing queues and fiber-aware
// synchronization primitives.
//
// # Architecture
//
// A [Scheduler] owns a fixed number of workers and a fixed-size fiber pool.
// Each worker drives a fetch-run-clean loop: it drains pending ready-fiber
// handoffs, pulls a [Task] from its own deque (falling back to stealing from
// a sibling worker's deque), and runs it to completion or until it parks on
// a wait. [TaskCounter], [WaitGroup], and [Fibtex] are the three primitives
// a task may park on; all three detach the waiting fiber from its worker so
// the underlying OS thread is never blocked.
//
// Go has no portable stackful-coroutine primitive, so a fiber here is a
// goroutine paired with a rendezvous channel rather than a raw stack and
// context-switch pair; see the package-level note in fiber.go for the exact
// translation and its consequences for pinning.
//
// # Platform Support
//
// Worker-to-core affinity is applied via golang.org/x/sys/unix on Linux
// (unix.SchedSetaffinity); on other platforms [Init] accepts the same
// options but the affinity calls are no-ops.
//
// # Thread Safety
//
// [Scheduler.AddTask] and [Scheduler.AddTasks] are safe to call from the
// main task passed to [Scheduler.Run] or from within a running task; any
// other goroutine gets an [ErrNotFromWorker] panic.
// [TaskCounter], [WaitGroup], and [Fibtex] are safe for concurrent use from
// any worker.
//
// # Usage
//
// [Init] starts the worker pool; [Scheduler.Run] then repurposes
// the calling goroutine into worker 0 and runs the main task, blocking
// until every task it transitively spawns has finished and the scheduler
// has shut down.
//
//	sched, err := fibertask.Init(fibertask.WithThreadPoolSize(4))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	sched.Run(func(s *fibertask.Scheduler) {
//	    counter := fibertask.NewTaskCounter(s, 0, fibertask.DefaultWaitSlots)
//	    s.AddTask(fibertask.Task{Name: "greet", Fn: func(s *fibertask.Scheduler) {
//	        fmt.Println("hello from a fiber")
//	    }}, counter)
//	    s.WaitForCounter(counter, 0, false)
//	})
//
// # Error Types
//
//   - [ErrAlreadyInitialized]: the Scheduler being built was already
//     initialized; [Init] builds a new Scheduler on every call, so it does
//     not return this error in practice.
//   - [ErrNoFreeWaitSlot]: a counter's fixed wait-slot table is exhausted.
//   - [ErrNegativeWaitGroup]: a [WaitGroup.Add] drove the counter negative.
//   - [ErrSchedulerQuit]: a task or wait was attempted after shutdown.
package fibertask
