package engine_test

import (
	"fmt"
	"sync"
	"testing"

	"github.com/cstatic/cstatic/engine"
)

func TestTaskQueue_FIFO(t *testing.T) {
	q := engine.NewTaskQueue()

	for i := 0; i < 3; i++ {
		q.Put(engine.TransferTask{DestinationPath: fmt.Sprintf("static/%d.css", i)})
	}
	if q.Len() != 3 {
		t.Fatalf("expected 3 queued tasks, got %d", q.Len())
	}

	for i := 0; i < 3; i++ {
		task, ok := q.TryTake()
		if !ok {
			t.Fatalf("expected a task at position %d", i)
		}
		want := fmt.Sprintf("static/%d.css", i)
		if task.DestinationPath != want {
			t.Errorf("expected %s, got %s", want, task.DestinationPath)
		}
	}

	if _, ok := q.TryTake(); ok {
		t.Error("expected empty queue after draining")
	}
}

func TestTaskQueue_TryTakeEmpty(t *testing.T) {
	q := engine.NewTaskQueue()
	if _, ok := q.TryTake(); ok {
		t.Error("TryTake on an empty queue reported a task")
	}
}

// Each task must be delivered to at most one consumer, and none may be lost.
func TestTaskQueue_ConcurrentTake(t *testing.T) {
	q := engine.NewTaskQueue()

	const total = 500
	for i := 0; i < total; i++ {
		q.Put(engine.TransferTask{DestinationPath: fmt.Sprintf("static/%d.js", i)})
	}

	var mu sync.Mutex
	seen := make(map[string]int)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				task, ok := q.TryTake()
				if !ok {
					return
				}
				mu.Lock()
				seen[task.DestinationPath]++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(seen) != total {
		t.Fatalf("expected %d distinct tasks, got %d", total, len(seen))
	}
	for dest, count := range seen {
		if count != 1 {
			t.Errorf("task %s delivered %d times", dest, count)
		}
	}
}
