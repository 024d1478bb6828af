package engine

import (
	"sync"
)

// TaskQueue is an unbounded FIFO of TransferTasks, safe for concurrent use.
// Discovery fills the queue completely before the worker pool starts, so
// there is no blocking take: workers poll with TryTake until it reports
// empty and then exit.
type TaskQueue struct {
	mu    sync.Mutex
	tasks []TransferTask
}

// NewTaskQueue creates an empty queue.
func NewTaskQueue() *TaskQueue {
	return &TaskQueue{}
}

// Put appends a task. It never blocks.
func (q *TaskQueue) Put(task TransferTask) {
	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()
}

// TryTake removes and returns the oldest task. It reports false when the
// queue is empty. Each task is delivered to at most one caller.
func (q *TaskQueue) TryTake() (TransferTask, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.tasks) == 0 {
		return TransferTask{}, false
	}
	task := q.tasks[0]
	q.tasks = q.tasks[1:]
	return task, true
}

// Len returns the number of queued tasks.
func (q *TaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}
