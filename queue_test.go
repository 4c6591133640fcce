package fibertask

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWaitFreeQueuePushPopLIFO(t *testing.T) {
	q := NewWaitFreeQueue[int]()
	for i := 0; i < 10; i++ {
		q.Push(i)
	}
	require.EqualValues(t, 10, q.Len())
	for i := 9; i >= 0; i-- {
		v, ok := q.Pop()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	_, ok := q.Pop()
	require.False(t, ok)
}

func TestWaitFreeQueueStealFIFO(t *testing.T) {
	q := NewWaitFreeQueue[int]()
	for i := 0; i < 5; i++ {
		q.Push(i)
	}
	for i := 0; i < 5; i++ {
		v, ok := q.Steal()
		require.True(t, ok)
		require.Equal(t, i, v)
	}
	_, ok := q.Steal()
	require.False(t, ok)
}

func TestWaitFreeQueueGrows(t *testing.T) {
	q := NewWaitFreeQueue[int]()
	const n = 500
	for i := 0; i < n; i++ {
		q.Push(i)
	}
	require.EqualValues(t, n, q.Len())
	seen := make(map[int]bool, n)
	for i := 0; i < n; i++ {
		v, ok := q.Pop()
		require.True(t, ok)
		seen[v] = true
	}
	require.Len(t, seen, n)
}

// TestWaitFreeQueueConcurrentStealers pushes a known set of values from the
// owner and drains them concurrently via a mix of owner Pop and many thief
// Steal goroutines, verifying every value surfaces exactly once (the core
// work-stealing deque correctness property).
func TestWaitFreeQueueConcurrentStealers(t *testing.T) {
	q := NewWaitFreeQueue[int]()
	const n = 20000
	for i := 0; i < n; i++ {
		q.Push(i)
	}

	var mu sync.Mutex
	seen := make(map[int]int, n)
	record := func(v int) {
		mu.Lock()
		seen[v]++
		mu.Unlock()
	}

	var wg sync.WaitGroup
	const thieves = 8
	wg.Add(thieves)
	for i := 0; i < thieves; i++ {
		go func() {
			defer wg.Done()
			for {
				v, ok := q.Steal()
				if !ok {
					if q.Len() == 0 {
						return
					}
					continue
				}
				record(v)
			}
		}()
	}

	for {
		v, ok := q.Pop()
		if !ok {
			break
		}
		record(v)
	}
	wg.Wait()

	require.Len(t, seen, n)
	for v, count := range seen {
		require.Equalf(t, 1, count, "value %d observed %d times", v, count)
	}
}
