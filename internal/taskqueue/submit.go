// internal/taskqueue/submit.go
package taskqueue

import (
	"context"

	"github.com/primedigitaltech/azon-seeker/internal/utils"
)

// Submit enqueues fn, starts the queue if idle and waits for the result.
// The queue keeps running when ctx is cancelled; only the wait is
// abandoned. A failure result is returned as a TASK_FAILED error.
func Submit(ctx context.Context, q *Queue, name string, fn Func) (interface{}, error) {
	task := Enqueue(ctx, q, name, fn)
	select {
	case <-task.Done():
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	result := task.Result()
	if result.Status == StatusFailure {
		return nil, utils.NewError(utils.ErrCodeTaskFailed, result.Message).
			WithContext("task", name).
			Build()
	}
	return result.Value, nil
}

// Enqueue adds fn as a task and starts the queue if idle, without waiting.
// The queue is detached from ctx cancellation.
func Enqueue(ctx context.Context, q *Queue, name string, fn Func) *Task {
	task := NewTask(name, fn)
	q.Add(task)
	q.Start(context.WithoutCancel(ctx))
	return task
}
