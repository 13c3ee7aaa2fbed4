package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/neverbiasu/daily-news-rss/app/pipeline"
	"github.com/neverbiasu/daily-news-rss/app/storage"
)

// ProcessTask runs the classification pass over the latest raw snapshot.
type ProcessTask struct {
	Task
	processor *pipeline.Processor
	store     *storage.SnapshotStore
}

func NewProcessTask(processor *pipeline.Processor, store *storage.SnapshotStore) *ProcessTask {
	return &ProcessTask{
		Task:      NewTask(TaskTypeProcess),
		processor: processor,
		store:     store,
	}
}

func (t *ProcessTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	raw, err := t.store.LoadLatestRaw()
	if err != nil {
		return fmt.Errorf("failed to load raw snapshot: %w", err)
	}
	if raw == nil {
		slog.Debug("No raw snapshot yet, skipping processing")
		return nil
	}

	snapshot, stats, err := t.processor.Run(ctx, raw)
	if err != nil {
		return fmt.Errorf("failed to process snapshot: %w", err)
	}

	slog.Info("Task completed",
		"type", "Process",
		"duration", t.GetDuration(),
		"total", snapshot.TotalArticles,
		"classified", stats.Classified,
		"kept", stats.Kept,
		"rejected", stats.Rejected)

	return nil
}
