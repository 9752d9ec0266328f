package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/keepit/app/database"
)

type SearchRebuilder interface {
	Rebuild(ctx context.Context, repo database.ItemRepository) (int, error)
}

// ReindexSearchTask rebuilds the search index from the items table, picking
// up rows written by other instances and any best-effort index update that failed.
type ReindexSearchTask struct {
	Task
	index SearchRebuilder
	repo  database.ItemRepository
}

func NewReindexSearchTask(index SearchRebuilder, repo database.ItemRepository) *ReindexSearchTask {
	return &ReindexSearchTask{
		Task:  NewTask(TaskTypeReindexSearch),
		index: index,
		repo:  repo,
	}
}

func (t *ReindexSearchTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	count, err := t.index.Rebuild(ctx, t.repo)
	if err != nil {
		return fmt.Errorf("failed to rebuild search index: %w", err)
	}

	slog.Info("Task completed",
		"type", "ReindexSearch",
		"duration", t.Elapsed(),
		"items", count)

	return nil
}
