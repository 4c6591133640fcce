package fibertask

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics tracks runtime statistics for a [Scheduler]. Metrics are optional
// (see [WithMetrics]) and designed to be low-overhead enough to leave
// enabled in production: every update is either a single atomic op or a
// short critical section. The fiber-pool occupancy sample taken after each
// task scans the whole pool, so that one costs time proportional to the
// pool size.
//
// Thread Safety: every exported method on every field is safe to call from
// any worker or from an external monitoring goroutine concurrently.
type Metrics struct {
	// Latency tracks task execution duration.
	Latency LatencyMetrics

	// Queue tracks per-worker deque depth and fiber-pool occupancy.
	Queue QueueMetrics

	// Steals tracks work-stealing attempts across the worker pool.
	Steals StealMetrics

	// Throughput counts completed tasks per second over a rolling window.
	Throughput *TPSCounter
}

// newMetrics builds a ready-to-use Metrics with a 10s/100ms throughput
// window, matching the component design's "10-30s for production
// monitoring" guidance.
func newMetrics() *Metrics {
	return &Metrics{
		Throughput: NewTPSCounter(10*time.Second, 100*time.Millisecond),
	}
}

// LatencyMetrics tracks task execution latency using the P-Square
// algorithm for O(1) streaming percentile estimation.
type LatencyMetrics struct {
	mu      sync.Mutex
	psquare *pSquareMultiQuantile

	P50  time.Duration
	P90  time.Duration
	P95  time.Duration
	P99  time.Duration
	Max  time.Duration
	Mean time.Duration
}

// Record adds a completed task's execution duration to the estimator. This
// is called once per task by the worker loop when metrics are enabled.
func (l *LatencyMetrics) Record(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.psquare == nil {
		l.psquare = newPSquareMultiQuantile(0.50, 0.90, 0.95, 0.99)
	}
	l.psquare.Update(float64(d))
}

// Sample refreshes the cached P50/P90/P95/P99/Max/Mean fields from the
// current estimator state and returns the number of observations used.
func (l *LatencyMetrics) Sample() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.psquare == nil {
		return 0
	}
	l.P50 = time.Duration(l.psquare.Quantile(0))
	l.P90 = time.Duration(l.psquare.Quantile(1))
	l.P95 = time.Duration(l.psquare.Quantile(2))
	l.P99 = time.Duration(l.psquare.Quantile(3))
	l.Max = time.Duration(l.psquare.Max())
	l.Mean = time.Duration(l.psquare.Mean())
	return l.psquare.Count()
}

// QueueMetrics tracks task-deque depth and fiber-pool occupancy, each as a
// current value, a running maximum, and an exponential moving average
// (alpha 0.1, warmstarted to the first observation).
type QueueMetrics struct {
	mu sync.Mutex

	DequeCurrent int
	DequeMax     int
	DequeAvg     float64
	dequeWarm    bool

	ParkedCurrent int
	ParkedMax     int
	ParkedAvg     float64
	parkedWarm    bool
}

// UpdateDeque records a worker's own deque length, as observed once per
// dispatch-loop iteration.
func (q *QueueMetrics) UpdateDeque(depth int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.DequeCurrent = depth
	if depth > q.DequeMax {
		q.DequeMax = depth
	}
	if !q.dequeWarm {
		q.DequeAvg = float64(depth)
		q.dequeWarm = true
	} else {
		q.DequeAvg = 0.9*q.DequeAvg + 0.1*float64(depth)
	}
}

// UpdateParked records the number of fiber-pool slots currently claimed
// (driving a worker or parked on a wait).
func (q *QueueMetrics) UpdateParked(n int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ParkedCurrent = n
	if n > q.ParkedMax {
		q.ParkedMax = n
	}
	if !q.parkedWarm {
		q.ParkedAvg = float64(n)
		q.parkedWarm = true
	} else {
		q.ParkedAvg = 0.9*q.ParkedAvg + 0.1*float64(n)
	}
}

// StealMetrics counts work-stealing outcomes across the worker pool.
type StealMetrics struct {
	succeeded atomic.Int64
	failed    atomic.Int64
}

// RecordSteal tallies one steal attempt's outcome.
func (s *StealMetrics) RecordSteal(success bool) {
	if success {
		s.succeeded.Add(1)
	} else {
		s.failed.Add(1)
	}
}

// Succeeded returns the number of successful steals observed so far.
func (s *StealMetrics) Succeeded() int64 { return s.succeeded.Load() }

// Failed returns the number of steal attempts that found every sibling
// deque empty.
func (s *StealMetrics) Failed() int64 { return s.failed.Load() }

// TPSCounter tracks completed-task throughput with a rolling window,
// implemented as a ring of fixed-width time buckets.
//
// Thread Safety: Increment and TPS are safe for concurrent use from any
// number of goroutines.
type TPSCounter struct {
	lastRotation atomic.Value // time.Time
	buckets      []int64
	bucketSize   time.Duration
	windowSize   time.Duration
	mu           sync.Mutex
}

// NewTPSCounter creates a throughput counter over windowSize, divided into
// buckets of bucketSize (must be > 0 and <= windowSize). Finer buckets give
// higher precision at the cost of more bookkeeping per rotation.
func NewTPSCounter(windowSize, bucketSize time.Duration) *TPSCounter {
	if windowSize <= 0 {
		panic("fibertask: windowSize must be positive")
	}
	if bucketSize <= 0 {
		panic("fibertask: bucketSize must be positive")
	}
	if bucketSize > windowSize {
		panic("fibertask: bucketSize cannot exceed windowSize")
	}

	bucketCount := int(windowSize / bucketSize)
	counter := &TPSCounter{
		buckets:    make([]int64, bucketCount),
		bucketSize: bucketSize,
		windowSize: windowSize,
	}
	counter.lastRotation.Store(time.Now())
	return counter
}

// Increment records one completed task.
func (t *TPSCounter) Increment() {
	t.rotate()
	t.mu.Lock()
	t.buckets[len(t.buckets)-1]++
	t.mu.Unlock()
}

// rotate advances the bucket ring to account for elapsed time.
func (t *TPSCounter) rotate() {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := time.Now()
	lastRotation := t.lastRotation.Load().(time.Time)
	elapsed := now.Sub(lastRotation)

	advance64 := int64(elapsed) / int64(t.bucketSize)
	if advance64 < 0 || advance64 > int64(len(t.buckets)) {
		advance64 = int64(len(t.buckets))
	}
	advance := int(advance64)

	if advance >= len(t.buckets) {
		for i := range t.buckets {
			t.buckets[i] = 0
		}
		t.lastRotation.Store(now)
		return
	}
	if advance <= 0 {
		return
	}

	copy(t.buckets, t.buckets[advance:])
	for i := len(t.buckets) - advance; i < len(t.buckets); i++ {
		t.buckets[i] = 0
	}
	t.lastRotation.Store(lastRotation.Add(time.Duration(advance) * t.bucketSize))
}

// TPS returns the current completed-tasks-per-second rate over the
// configured window.
func (t *TPSCounter) TPS() float64 {
	t.rotate()

	t.mu.Lock()
	defer t.mu.Unlock()

	var sum int64
	for _, count := range t.buckets {
		sum += count
	}
	if sum == 0 {
		return 0
	}

	monitored := float64(len(t.buckets)) * t.bucketSize.Seconds()
	return float64(sum) / monitored
}
