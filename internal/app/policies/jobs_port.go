package policies

import "context"

const TaskSavedSearchAlerts = "savedsearch:alerts"

// JobQueue schedules background work by task type.
type JobQueue interface {
	Enqueue(ctx context.Context, taskType string, payload []byte) error
}

// JobHandler executes a dequeued task.
type JobHandler func(ctx context.Context, payload []byte) error
