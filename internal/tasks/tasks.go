package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mkorchagin/product-catalog/internal/logging"
)

const (
	// TypeLongRunning is the placeholder job consumed by cmd/worker.
	TypeLongRunning = "catalog:long_running"

	// ResultRetention keeps finished tasks around so /task-status can
	// still see them after completion.
	ResultRetention = time.Hour

	longTaskDuration = 10 * time.Second
)

func NewLongRunningTask() *asynq.Task {
	return asynq.NewTask(TypeLongRunning, nil)
}

// HandleLongRunningTask simulates a slow unit of work and records its
// result for the status endpoint.
func HandleLongRunningTask(ctx context.Context, t *asynq.Task) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(longTaskDuration):
	}

	if _, err := t.ResultWriter().Write([]byte("Task Completed")); err != nil {
		return fmt.Errorf("write task result: %w", err)
	}

	logging.FromContext(ctx).Info("long running task finished", "task_id", t.ResultWriter().TaskID())
	return nil
}

// StateName maps queue-internal task states onto the states the API
// exposes: pending, running, succeeded, failed.
func StateName(s asynq.TaskState) string {
	switch s {
	case asynq.TaskStateActive:
		return "running"
	case asynq.TaskStateCompleted:
		return "succeeded"
	case asynq.TaskStateArchived:
		return "failed"
	default:
		return "pending"
	}
}
