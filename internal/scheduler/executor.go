package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/afonsoingles/helper-scheduler/internal/domain"
	"github.com/afonsoingles/helper-scheduler/internal/helperkit"
	"github.com/afonsoingles/helper-scheduler/internal/metrics"
	"github.com/afonsoingles/helper-scheduler/internal/queue"
)

// FailureHook is notified whenever a Job run by the Executor terminates in
// error, after the terminal status write. Jobs the dispatcher fails before
// they reach the Executor do not trigger it. Nil is a valid no-op hook.
type FailureHook func(ctx context.Context, job domain.Job, cause error)

// Executor is the concurrency envelope around a helper's run operation:
// one per dispatcher, invoked once per dispatched Job.
type Executor struct {
	queue    *queue.ExecutionQueue
	logger   *slog.Logger
	onFail   FailureHook
	recorder TerminalRecorder
}

func NewExecutor(q *queue.ExecutionQueue, logger *slog.Logger, onFail FailureHook) *Executor {
	return &Executor{
		queue:    q,
		logger:   logger.With("component", "executor"),
		onFail:   onFail,
		recorder: noopRecorder{},
	}
}

// SetRecorder overrides the terminal-job recorder. Production wiring calls
// this once at boot; tests leave it at its no-op default.
func (e *Executor) SetRecorder(r TerminalRecorder) {
	e.recorder = r
}

// Run executes one Job's helper to completion (or timeout) and writes its
// terminal status exactly once. The deadline is run-relative: it starts
// counting from this call, not from the Job's original executionTime, so
// a Job dispatched late from a backlog still gets its full configured
// timeout.
func (e *Executor) Run(ctx context.Context, job domain.Job, reg helperkit.Registration) {
	start := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, time.Duration(job.ExecutionExpiry)*time.Second)
	defer cancel()

	rc := helperkit.RunContext{
		UserID: job.UserID,
		Params: job.Params,
		Logger: e.logger,
	}

	err := reg.Run(runCtx, rc)
	duration := time.Since(start)

	switch {
	case err == nil:
		e.succeed(ctx, job, duration)
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		cause := &domain.DeadlineExceeded{HelperID: job.HelperID, ExecutionID: job.ExecutionID}
		e.fail(ctx, job, cause, duration)
	default:
		cause := &domain.HelperRuntimeError{HelperID: job.HelperID, ExecutionID: job.ExecutionID, Err: err}
		e.fail(ctx, job, cause, duration)
	}
}

func (e *Executor) succeed(ctx context.Context, job domain.Job, duration time.Duration) {
	if err := e.queue.DequeueTerminal(ctx, job.ExecutionID, domain.JobSuccess); err != nil {
		e.logger.ErrorContext(ctx, "executor: success transition failed", "execution_id", job.ExecutionID, "error", err)
		return
	}
	metrics.HelperExecutionDuration.WithLabelValues(job.HelperID, "success").Observe(duration.Seconds())
	metrics.JobsTerminalTotal.WithLabelValues(string(domain.JobSuccess)).Inc()
	e.logger.InfoContext(ctx, "executor: job succeeded", "execution_id", job.ExecutionID, "helper_id", job.HelperID, "duration", duration)

	job.Status = domain.JobSuccess
	if err := e.recorder.RecordTerminal(ctx, job, time.Now()); err != nil {
		e.logger.ErrorContext(ctx, "executor: record history failed", "execution_id", job.ExecutionID, "error", err)
	}
}

func (e *Executor) fail(ctx context.Context, job domain.Job, cause error, duration time.Duration) {
	e.logger.ErrorContext(ctx, "executor: job failed", "execution_id", job.ExecutionID, "helper_id", job.HelperID, "error", cause, "duration", duration)

	if err := e.queue.SetError(ctx, job.ExecutionID, cause.Error()); err != nil {
		e.logger.ErrorContext(ctx, "executor: set error failed", "execution_id", job.ExecutionID, "error", err)
	}
	if err := e.queue.DequeueTerminal(ctx, job.ExecutionID, domain.JobError); err != nil {
		e.logger.ErrorContext(ctx, "executor: error transition failed", "execution_id", job.ExecutionID, "error", err)
		return
	}
	metrics.HelperExecutionDuration.WithLabelValues(job.HelperID, "error").Observe(duration.Seconds())
	metrics.JobsTerminalTotal.WithLabelValues(string(domain.JobError)).Inc()

	job.Status = domain.JobError
	job.Error = cause.Error()
	if err := e.recorder.RecordTerminal(ctx, job, time.Now()); err != nil {
		e.logger.ErrorContext(ctx, "executor: record history failed", "execution_id", job.ExecutionID, "error", err)
	}

	if e.onFail != nil {
		e.onFail(ctx, job, cause)
	}
}
