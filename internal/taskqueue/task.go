// internal/taskqueue/task.go
package taskqueue

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a task
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// IsTerminal reports whether the status is final
func (s Status) IsTerminal() bool {
	return s == StatusSuccess || s == StatusFailure
}

// Func is the unit of work wrapped by a task
type Func func(ctx context.Context) (interface{}, error)

// Result is the tagged outcome of a task. Failures are data, never errors.
type Result struct {
	Status  Status      `json:"status"`
	Value   interface{} `json:"value,omitempty"`
	Message string      `json:"message,omitempty"`
}

// Info is a read-only view of a task
type Info struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Message     string     `json:"message,omitempty"`
}

// Task is one queued unit of work. A task executes at most once.
type Task struct {
	id        string
	name      string
	fn        Func
	createdAt time.Time

	mu          sync.Mutex
	status      Status
	startedAt   *time.Time
	completedAt *time.Time
	result      Result
	done        chan struct{}
}

// NewTask creates a pending task
func NewTask(name string, fn Func) *Task {
	return &Task{
		id:        uuid.NewString(),
		name:      name,
		fn:        fn,
		createdAt: time.Now(),
		status:    StatusPending,
		done:      make(chan struct{}),
	}
}

// ID returns the task id
func (t *Task) ID() string { return t.id }

// Name returns the task name
func (t *Task) Name() string { return t.name }

// Status returns the current status
func (t *Task) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.status
}

// Info returns a snapshot of the task
func (t *Task) Info() Info {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Info{
		ID:          t.id,
		Name:        t.name,
		Status:      t.status,
		CreatedAt:   t.createdAt,
		StartedAt:   t.startedAt,
		CompletedAt: t.completedAt,
		Message:     t.result.Message,
	}
}

// Done is closed once the task has a result
func (t *Task) Done() <-chan struct{} { return t.done }

// Result returns the result, valid once Done is closed
func (t *Task) Result() Result {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.result
}

// Execute runs the task and records its result. It never returns an error:
// a returned error or a panic becomes a failure result. Executing a task
// that already ran returns its recorded result.
func (t *Task) Execute(ctx context.Context) Result {
	t.mu.Lock()
	if t.status != StatusPending {
		t.mu.Unlock()
		<-t.done
		return t.Result()
	}
	now := time.Now()
	t.status = StatusRunning
	t.startedAt = &now
	t.mu.Unlock()

	result := t.invoke(ctx)
	t.finish(result)
	return result
}

func (t *Task) invoke(ctx context.Context) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			result = Result{
				Status:  StatusFailure,
				Message: fmt.Sprintf("task panicked: %v\n%s", r, debug.Stack()),
			}
		}
	}()
	value, err := t.fn(ctx)
	if err != nil {
		return Result{Status: StatusFailure, Message: err.Error()}
	}
	return Result{Status: StatusSuccess, Value: value}
}

// finish records result unless the task already has one
func (t *Task) finish(result Result) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.status.IsTerminal() {
		return false
	}
	now := time.Now()
	t.status = result.Status
	t.completedAt = &now
	t.result = result
	close(t.done)
	return true
}
