package util

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"
)

// Task represents a unit of work to be executed
type Task func()

// WorkerPool manages a fixed pool of goroutines for background task
// execution. Submission never blocks on task execution: a full queue is
// reported to the caller instead.
type WorkerPool struct {
	workers   int
	taskQueue chan Task
	wg        sync.WaitGroup
	ctx       context.Context
	cancel    context.CancelFunc
	stats     PoolStats
}

// PoolStats tracks pool counters
type PoolStats struct {
	TasksSubmitted int64
	TasksCompleted int64
	TasksRejected  int64
}

// NewWorkerPool creates a new worker pool
func NewWorkerPool(workers int, queueSize int) *WorkerPool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if queueSize <= 0 {
		queueSize = workers * 10
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &WorkerPool{
		workers:   workers,
		taskQueue: make(chan Task, queueSize),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start launches the workers
func (p *WorkerPool) Start() {
	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Submit enqueues a task. Returns false when the queue is full or the
// pool is shutting down.
func (p *WorkerPool) Submit(task Task) bool {
	if task == nil {
		return false
	}

	select {
	case <-p.ctx.Done():
		atomic.AddInt64(&p.stats.TasksRejected, 1)
		return false
	case p.taskQueue <- task:
		atomic.AddInt64(&p.stats.TasksSubmitted, 1)
		return true
	default:
		atomic.AddInt64(&p.stats.TasksRejected, 1)
		return false
	}
}

// Stop drains the pool, waiting up to timeout for in-flight tasks
func (p *WorkerPool) Stop(timeout time.Duration) {
	p.cancel()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
	}
}

// Stats returns a snapshot of the pool counters
func (p *WorkerPool) Stats() PoolStats {
	return PoolStats{
		TasksSubmitted: atomic.LoadInt64(&p.stats.TasksSubmitted),
		TasksCompleted: atomic.LoadInt64(&p.stats.TasksCompleted),
		TasksRejected:  atomic.LoadInt64(&p.stats.TasksRejected),
	}
}

func (p *WorkerPool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			// Drain remaining queued tasks before exit
			for {
				select {
				case task := <-p.taskQueue:
					task()
					atomic.AddInt64(&p.stats.TasksCompleted, 1)
				default:
					return
				}
			}
		case task := <-p.taskQueue:
			task()
			atomic.AddInt64(&p.stats.TasksCompleted, 1)
		}
	}
}
