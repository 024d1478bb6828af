package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// DefaultWorkerCount is the pool size used when the caller doesn't pick one.
const DefaultWorkerCount = 20

// TaskHandler is a function that processes a TransferTask.
type TaskHandler func(ctx context.Context, task TransferTask) error

// WorkerPool drains a TaskQueue with a fixed number of concurrent workers.
// Every worker loops TryTake-then-handle until the queue is empty, so the
// pool terminates exactly when all queued tasks have been attempted.
type WorkerPool struct {
	queue   *TaskQueue
	handler TaskHandler
	workers int
}

// NewWorkerPool creates a pool of the given size over queue. The worker
// count must be positive.
func NewWorkerPool(queue *TaskQueue, handler TaskHandler, workers int) (*WorkerPool, error) {
	if workers <= 0 {
		return nil, fmt.Errorf("worker count must be positive, got %d", workers)
	}
	if queue == nil {
		return nil, errors.New("worker pool requires a queue")
	}
	if handler == nil {
		return nil, errors.New("worker pool requires a handler")
	}
	return &WorkerPool{
		queue:   queue,
		handler: handler,
		workers: workers,
	}, nil
}

// WorkerCount returns the pool size.
func (p *WorkerPool) WorkerCount() int { return p.workers }

// Run spawns the workers and returns after every worker has exited, which
// happens once the queue is drained. A failed task never stops the other
// workers; all task failures are joined into the returned error so the
// caller sees every one of them after the barrier.
//
// Cancelling ctx does not abandon queued tasks: every task is still
// attempted, with the cancelled context surfacing through the handler's
// own I/O.
func (p *WorkerPool) Run(ctx context.Context) error {
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		failures []error
	)

	for i := 0; i < p.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				task, ok := p.queue.TryTake()
				if !ok {
					return
				}
				if err := p.handler(ctx, task); err != nil {
					mu.Lock()
					failures = append(failures, err)
					mu.Unlock()
				}
			}
		}()
	}

	wg.Wait()
	return errors.Join(failures...)
}
