package fibertask

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFiberPoolClaimReleaseCallbacks(t *testing.T) {
	var events []bool
	s := &Scheduler{callbacks: Callbacks{
		FiberStateChanged: func(_ int, free bool) {
			events = append(events, free)
		},
	}}
	p := newFiberPool(2)

	i := p.claim(s)
	require.Equal(t, 1, p.live())
	p.release(s, i)
	require.Equal(t, 0, p.live())

	require.Equal(t, []bool{false, true}, events)
}

func TestFiberPoolClaimExhaustionBlocksUntilRelease(t *testing.T) {
	p := newFiberPool(1)
	s := &Scheduler{
		callbacks: Callbacks{},
		limiter:   newDiagnosticLimiter(defaultDeadlockWarningRate),
		logger:    noopLogger{},
		pool:      p,
	}

	first := p.claim(s)
	require.Equal(t, 1, p.live())

	claimed := make(chan int, 1)
	go func() {
		claimed <- p.claim(s)
	}()

	select {
	case <-claimed:
		t.Fatal("claim returned before any slot was released")
	case <-time.After(50 * time.Millisecond):
	}

	p.release(s, first)
	select {
	case second := <-claimed:
		require.Equal(t, first, second)
	case <-time.After(5 * time.Second):
		t.Fatal("claim did not observe the released slot")
	}
}
