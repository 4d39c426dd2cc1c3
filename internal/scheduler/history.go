package scheduler

import (
	"context"
	"time"

	"github.com/afonsoingles/helper-scheduler/internal/domain"
)

// catalogueIndexer is satisfied by *catalogue.Catalogue.
type catalogueIndexer interface {
	RecordHistory(ctx context.Context, executionID string, completedAt time.Time) error
}

// historyArchiver is satisfied by *postgres.HistoryRepository.
type historyArchiver interface {
	Archive(ctx context.Context, job domain.Job, completedAt time.Time) error
}

// HistoryRecorder is the production TerminalRecorder: it indexes the
// execution id in the Catalogue's GC sorted set and archives the full Job
// Record to durable storage.
type HistoryRecorder struct {
	index   catalogueIndexer
	archive historyArchiver
}

func NewHistoryRecorder(index catalogueIndexer, archive historyArchiver) *HistoryRecorder {
	return &HistoryRecorder{index: index, archive: archive}
}

func (r *HistoryRecorder) RecordTerminal(ctx context.Context, job domain.Job, completedAt time.Time) error {
	if err := r.index.RecordHistory(ctx, job.ExecutionID, completedAt); err != nil {
		return err
	}
	return r.archive.Archive(ctx, job, completedAt)
}
