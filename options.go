// Copyright 2025 Joseph Cumines
//
// Permission to use, copy, modify, and distribute this software for any
// purpose with or without fee is hereby granted, provided that this copyright
// notice appears in all copies.

package fibertask

import "time"

// DefaultFiberPoolSize is the default number of pool fibers, chosen to
// comfortably outnumber the wait points a typical task graph parks on
// concurrently.
const DefaultFiberPoolSize = 400

// DefaultWaitSlots is the default fixed wait-slot capacity of a new
// [TaskCounter].
const DefaultWaitSlots = 4

// EmptyQueueBehavior selects what a worker does when it has no task and no
// ready-fiber handoff.
type EmptyQueueBehavior int

const (
	// EmptyQueueSpin busy-loops back to the top of the worker loop.
	EmptyQueueSpin EmptyQueueBehavior = iota
	// EmptyQueueYield calls runtime.Gosched between attempts.
	EmptyQueueYield
	// EmptyQueueSleep parks the worker on a condition variable once it has
	// counted a threshold of failed fetches since the last ready-fiber
	// handoff to it (a successful fetch does not reset the count). It is
	// woken by a ready-fiber handoff, SetEmptyQueueBehavior, or shutdown;
	// AddTask and AddTasks do not wake sleeping workers.
	EmptyQueueSleep
)

// String implements fmt.Stringer.
func (b EmptyQueueBehavior) String() string {
	switch b {
	case EmptyQueueSpin:
		return "Spin"
	case EmptyQueueYield:
		return "Yield"
	case EmptyQueueSleep:
		return "Sleep"
	default:
		return "Unknown"
	}
}

// schedulerOptions holds resolved configuration for [Init].
type schedulerOptions struct {
	fiberPoolSize       int
	threadPoolSize      int
	emptyQueueBehavior  EmptyQueueBehavior
	callbacks           Callbacks
	logger              Logger
	affinity            bool
	deadlockWarningRate map[time.Duration]int
	rateLimiter         *diagnosticLimiter
	metricsEnabled      bool
}

// Option configures a [Scheduler] at [Init] time.
type Option interface {
	applyScheduler(*schedulerOptions) error
}

type optionFunc struct {
	apply func(*schedulerOptions) error
}

func (o *optionFunc) applyScheduler(opts *schedulerOptions) error {
	return o.apply(opts)
}

// WithFiberPoolSize sets the number of pool fibers available for parking
// and ready-fiber dispatch. Defaults to [DefaultFiberPoolSize].
func WithFiberPoolSize(n int) Option {
	return &optionFunc{func(opts *schedulerOptions) error {
		if n <= 0 {
			return WrapError("WithFiberPoolSize", ErrInvalidOption)
		}
		opts.fiberPoolSize = n
		return nil
	}}
}

// WithThreadPoolSize sets the number of worker threads. A value of 0 (the
// default) uses runtime.GOMAXPROCS(0).
func WithThreadPoolSize(n int) Option {
	return &optionFunc{func(opts *schedulerOptions) error {
		if n < 0 {
			return WrapError("WithThreadPoolSize", ErrInvalidOption)
		}
		opts.threadPoolSize = n
		return nil
	}}
}

// WithEmptyQueueBehavior selects the policy a worker follows when it finds
// no task and no ready fiber. Defaults to [EmptyQueueSleep].
func WithEmptyQueueBehavior(b EmptyQueueBehavior) Option {
	return &optionFunc{func(opts *schedulerOptions) error {
		opts.emptyQueueBehavior = b
		return nil
	}}
}

// WithCallbacks installs lifecycle callbacks invoked as the scheduler
// creates threads and fibers. See [Callbacks].
func WithCallbacks(cb Callbacks) Option {
	return &optionFunc{func(opts *schedulerOptions) error {
		opts.callbacks = cb
		return nil
	}}
}

// WithLogger installs a structured [Logger] used for scheduler diagnostics
// (possible-deadlock warnings, CPU-affinity failures). Defaults to a no-op
// logger.
func WithLogger(l Logger) Option {
	return &optionFunc{func(opts *schedulerOptions) error {
		if l != nil {
			opts.logger = l
		}
		return nil
	}}
}

// WithCPUAffinity enables or disables pinning each worker to a logical CPU
// core matching its worker index. Defaults to enabled on Linux, a no-op
// elsewhere. Disabling is useful under container CPU quotas narrower than
// the host's core count.
func WithCPUAffinity(enabled bool) Option {
	return &optionFunc{func(opts *schedulerOptions) error {
		opts.affinity = enabled
		return nil
	}}
}

// WithMetrics enables collection of [Metrics] (task latency percentiles,
// deque/fiber-pool occupancy, steal outcomes, throughput). Disabled by
// default, since latency recording and the steal counters cost a mutex or
// atomic op per task that a latency-insensitive caller need not pay.
func WithMetrics(enabled bool) Option {
	return &optionFunc{func(opts *schedulerOptions) error {
		opts.metricsEnabled = enabled
		return nil
	}}
}

// WithDeadlockWarningRate overrides the rate at which the scheduler emits
// fiber-pool-exhaustion diagnostics, as a set of (window, max events in
// window) pairs passed straight to the underlying category rate limiter.
// Defaults to at most once a second and three times per ten seconds.
func WithDeadlockWarningRate(rate map[time.Duration]int) Option {
	return &optionFunc{func(opts *schedulerOptions) error {
		if len(rate) == 0 {
			return WrapError("WithDeadlockWarningRate", ErrInvalidOption)
		}
		opts.deadlockWarningRate = rate
		return nil
	}}
}

// resolveSchedulerOptions applies Option values over the documented
// defaults.
func resolveSchedulerOptions(opts []Option) (*schedulerOptions, error) {
	cfg := &schedulerOptions{
		fiberPoolSize:      DefaultFiberPoolSize,
		threadPoolSize:     0,
		emptyQueueBehavior: EmptyQueueSleep,
		logger:             noopLogger{},
		affinity:           true,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt.applyScheduler(cfg); err != nil {
			return nil, err
		}
	}
	rate := cfg.deadlockWarningRate
	if rate == nil {
		rate = defaultDeadlockWarningRate
	}
	cfg.rateLimiter = newDiagnosticLimiter(rate)
	return cfg, nil
}
