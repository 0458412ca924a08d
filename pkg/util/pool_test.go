package util

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPoolExecutesTasks(t *testing.T) {
	pool := NewWorkerPool(2, 8)
	pool.Start()
	defer pool.Stop(time.Second)

	var counter int64
	var wg sync.WaitGroup

	for i := 0; i < 8; i++ {
		wg.Add(1)
		ok := pool.Submit(func() {
			atomic.AddInt64(&counter, 1)
			wg.Done()
		})
		require.True(t, ok)
	}

	wg.Wait()
	assert.Equal(t, int64(8), atomic.LoadInt64(&counter))

	stats := pool.Stats()
	assert.Equal(t, int64(8), stats.TasksSubmitted)
	assert.Equal(t, int64(8), stats.TasksCompleted)
}

func TestWorkerPoolRejectsWhenFull(t *testing.T) {
	pool := NewWorkerPool(1, 1)
	pool.Start()

	gate := make(chan struct{})
	defer pool.Stop(time.Second)
	defer close(gate)

	// Occupy the worker
	require.True(t, pool.Submit(func() { <-gate }))

	// Give the worker time to pick up the blocking task, then fill
	// the single queue slot
	time.Sleep(50 * time.Millisecond)
	require.True(t, pool.Submit(func() {}))

	assert.False(t, pool.Submit(func() {}))
	assert.Equal(t, int64(1), pool.Stats().TasksRejected)
}

func TestWorkerPoolRejectsNilTask(t *testing.T) {
	pool := NewWorkerPool(1, 1)
	pool.Start()
	defer pool.Stop(time.Second)

	assert.False(t, pool.Submit(nil))
}

func TestWorkerPoolRejectsAfterStop(t *testing.T) {
	pool := NewWorkerPool(1, 4)
	pool.Start()
	pool.Stop(time.Second)

	assert.False(t, pool.Submit(func() {}))
}

func TestWorkerPoolStopDrainsQueue(t *testing.T) {
	pool := NewWorkerPool(1, 8)
	pool.Start()

	var counter int64
	for i := 0; i < 4; i++ {
		require.True(t, pool.Submit(func() {
			atomic.AddInt64(&counter, 1)
		}))
	}

	pool.Stop(2 * time.Second)
	assert.Equal(t, int64(4), atomic.LoadInt64(&counter))
}
