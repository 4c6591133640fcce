package fibertask

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFastStateTransitions(t *testing.T) {
	s := newFastState()
	require.Equal(t, StateUninitialized, s.Load())

	require.True(t, s.TryTransition(StateUninitialized, StateRunning))
	require.Equal(t, StateRunning, s.Load())

	require.False(t, s.TryTransition(StateUninitialized, StateRunning), "stale from-state must fail")

	require.True(t, s.TryTransition(StateRunning, StateQuitting))
	require.True(t, s.IsQuitting())

	s.Store(StateTerminated)
	require.Equal(t, StateTerminated, s.Load())
	require.True(t, s.IsQuitting())
}

func TestSchedulerStateString(t *testing.T) {
	cases := map[SchedulerState]string{
		StateUninitialized: "Uninitialized",
		StateRunning:       "Running",
		StateQuitting:      "Quitting",
		StateTerminated:    "Terminated",
		SchedulerState(99): "Unknown",
	}
	for state, want := range cases {
		require.Equal(t, want, state.String())
	}
}
