package timeline

import "sync"

// Scheduler defers work to the host's next tick, after layout has settled.
type Scheduler interface {
	Defer(fn func())
}

// Queue is a Scheduler the host drains explicitly, once per frame.
type Queue struct {
	mu    sync.Mutex
	tasks []func()
}

// Defer enqueues fn for the next Flush.
func (q *Queue) Defer(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.tasks = append(q.tasks, fn)
}

// Flush runs the tasks queued before the call, in order. Tasks deferred while
// flushing run on the following Flush. Returns the number of tasks run.
func (q *Queue) Flush() int {
	q.mu.Lock()
	tasks := q.tasks
	q.tasks = nil
	q.mu.Unlock()

	for _, fn := range tasks {
		fn()
	}
	return len(tasks)
}

// Len returns the number of queued tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.tasks)
}
