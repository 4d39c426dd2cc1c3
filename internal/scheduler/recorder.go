package scheduler

import (
	"context"
	"time"

	"github.com/afonsoingles/helper-scheduler/internal/domain"
)

// TerminalRecorder is notified whenever a Job reaches a terminal status,
// after the Execution Queue transition has already been written. It feeds
// the Catalogue's GC index and the durable history archive. Recording
// failure is logged, never fatal: the Execution Queue transition already
// succeeded and is the only write that must not be lost.
type TerminalRecorder interface {
	RecordTerminal(ctx context.Context, job domain.Job, completedAt time.Time) error
}

type noopRecorder struct{}

func (noopRecorder) RecordTerminal(context.Context, domain.Job, time.Time) error { return nil }
