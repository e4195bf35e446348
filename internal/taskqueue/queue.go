// internal/taskqueue/queue.go
package taskqueue

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/primedigitaltech/azon-seeker/internal/utils"
)

// Observer receives task outcomes and queue depth
type Observer interface {
	ObserveTask(name string, status string, elapsed time.Duration)
	SetQueueLength(n int)
}

// Queue runs tasks one at a time in FIFO order. Once started it drains the
// pending tasks and goes idle.
type Queue struct {
	mu       sync.Mutex
	pending  []*Task
	current  *Task
	running  bool
	stopping bool
	done     chan struct{}

	logger   utils.Logger
	observer Observer
}

// Option configures a Queue
type Option func(*Queue)

// WithLogger sets the queue logger
func WithLogger(logger utils.Logger) Option {
	return func(q *Queue) { q.logger = logger }
}

// WithObserver reports task outcomes to o
func WithObserver(o Observer) Option {
	return func(q *Queue) { q.observer = o }
}

// New creates an idle queue
func New(opts ...Option) *Queue {
	q := &Queue{logger: utils.NewNopLogger()}
	for _, opt := range opts {
		opt(q)
	}
	q.logger = q.logger.WithField("component", "taskqueue")
	return q
}

// Add appends a task
func (q *Queue) Add(task *Task) {
	q.mu.Lock()
	q.pending = append(q.pending, task)
	n := len(q.pending)
	q.mu.Unlock()
	q.reportLength(n)
	q.logger.WithFields(map[string]interface{}{"task": task.Name(), "id": task.ID()}).Debug("task queued")
}

// Start begins draining the queue with ctx. It is a no-op while running.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	if q.running {
		q.mu.Unlock()
		return
	}
	q.running = true
	q.stopping = false
	q.done = make(chan struct{})
	done := q.done
	q.mu.Unlock()

	go q.loop(ctx, done)
}

func (q *Queue) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	for {
		q.mu.Lock()
		if q.stopping || len(q.pending) == 0 || ctx.Err() != nil {
			q.running = false
			q.stopping = false
			q.current = nil
			q.mu.Unlock()
			return
		}
		task := q.pending[0]
		q.pending[0] = nil
		q.pending = q.pending[1:]
		q.current = task
		n := len(q.pending)
		q.mu.Unlock()
		q.reportLength(n)

		start := time.Now()
		logger := q.logger.WithFields(map[string]interface{}{"task": task.Name(), "id": task.ID()})
		logger.Info("task started")
		result := task.Execute(ctx)
		elapsed := time.Since(start)
		if result.Status == StatusFailure {
			logger.Warnf("task failed after %s: %s", elapsed, firstLine(result.Message))
		} else {
			logger.Infof("task finished in %s", elapsed)
		}
		if q.observer != nil {
			q.observer.ObserveTask(task.Name(), string(result.Status), elapsed)
		}

		q.mu.Lock()
		q.current = nil
		q.mu.Unlock()
	}
}

// Stop halts the queue after the in-flight task completes. It returns once
// the queue is idle or ctx is done; pending tasks stay queued.
func (q *Queue) Stop(ctx context.Context) error {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return nil
	}
	q.stopping = true
	done := q.done
	q.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Clear drops every pending task. Dropped tasks resolve as failures so
// their waiters return.
func (q *Queue) Clear() {
	q.mu.Lock()
	dropped := q.pending
	q.pending = nil
	q.mu.Unlock()
	q.reportLength(0)

	for _, task := range dropped {
		task.finish(Result{Status: StatusFailure, Message: "task cleared from queue"})
	}
	if len(dropped) > 0 {
		q.logger.Infof("cleared %d pending tasks", len(dropped))
	}
}

// Running reports whether the queue is draining
func (q *Queue) Running() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.running
}

// Len returns the number of pending tasks
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Current returns the in-flight task, if any
func (q *Queue) Current() (Info, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.current == nil {
		return Info{}, false
	}
	return q.current.Info(), true
}

// Pending returns the queued tasks in execution order
func (q *Queue) Pending() []Info {
	q.mu.Lock()
	defer q.mu.Unlock()
	infos := make([]Info, len(q.pending))
	for i, t := range q.pending {
		infos[i] = t.Info()
	}
	return infos
}

func (q *Queue) reportLength(n int) {
	if q.observer != nil {
		q.observer.SetQueueLength(n)
	}
}

func firstLine(s string) string {
	line, _, _ := strings.Cut(s, "\n")
	return line
}
