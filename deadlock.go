package fibertask

import (
	"time"

	catrate "github.com/joeycumines/go-catrate"
)

// diagnosticLimiter throttles the scheduler's possible-deadlock and other
// rare-but-noisy diagnostics so a genuinely stuck workload doesn't flood
// the configured Logger with one line per failed fiber-pool scan.
type diagnosticLimiter struct {
	limiter *catrate.Limiter
}

// defaultDeadlockWarningRate is used unless [WithDeadlockWarningRate]
// overrides it: at most once a second, and at most three times per ten
// seconds.
var defaultDeadlockWarningRate = map[time.Duration]int{
	time.Second:      1,
	10 * time.Second: 3,
}

func newDiagnosticLimiter(rate map[time.Duration]int) *diagnosticLimiter {
	return &diagnosticLimiter{
		limiter: catrate.NewLimiter(rate),
	}
}

func (d *diagnosticLimiter) allow(category string) (time.Time, bool) {
	return d.limiter.Allow(category)
}
