package tasks

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type TaskType string

const (
	TaskTypeReindexSearch TaskType = "reindex_search"
)

const DefaultMaxRetries = 3

// TaskInterface is a unit of background work. Implementations embed Task,
// which carries the bookkeeping the scheduler reads through State.
type TaskInterface interface {
	Execute(ctx context.Context) error
	State() *Task
}

type Task struct {
	ID         string
	Type       TaskType
	Retries    int
	MaxRetries int
	StartedAt  time.Time
}

func NewTask(taskType TaskType) Task {
	return Task{
		ID:         uuid.NewString(),
		Type:       taskType,
		MaxRetries: DefaultMaxRetries,
	}
}

func (t *Task) State() *Task {
	return t
}

func (t *Task) CanRetry() bool {
	return t.Retries < t.MaxRetries
}

// Elapsed is the time since the current attempt started, zero before the first one.
func (t *Task) Elapsed() time.Duration {
	if t.StartedAt.IsZero() {
		return 0
	}
	return time.Since(t.StartedAt)
}
