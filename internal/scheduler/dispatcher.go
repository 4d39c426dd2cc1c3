// Package scheduler is the cooperative dispatch loop: it reads due Jobs
// off the Execution Queue, resolves expiry versus execution, and hands
// each runnable Job to the Executor.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/afonsoingles/helper-scheduler/internal/directory"
	"github.com/afonsoingles/helper-scheduler/internal/domain"
	"github.com/afonsoingles/helper-scheduler/internal/helperkit"
	"github.com/afonsoingles/helper-scheduler/internal/metrics"
	"github.com/afonsoingles/helper-scheduler/internal/queue"
)

const (
	defaultTickInterval = time.Second
	storeErrorBackoff   = 5 * time.Second
	shutdownGrace       = 5 * time.Second
)

// Clock returns the current time. Overridden in tests for determinism.
type Clock func() time.Time

// Dispatcher is the tick loop that reads due Jobs and hands them to an
// Executor, once per tick.
type Dispatcher struct {
	queue        *queue.ExecutionQueue
	users        directory.UserDirectory
	executor     *Executor
	logger       *slog.Logger
	now          Clock
	recorder     TerminalRecorder
	tickInterval time.Duration

	wg sync.WaitGroup
}

func NewDispatcher(q *queue.ExecutionQueue, users directory.UserDirectory, executor *Executor, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		queue:        q,
		users:        users,
		executor:     executor,
		logger:       logger.With("component", "dispatcher"),
		now:          time.Now,
		recorder:     noopRecorder{},
		tickInterval: defaultTickInterval,
	}
}

// SetRecorder overrides the terminal-job recorder used for Jobs the
// dispatcher itself resolves to a terminal status (expiry, pre-run
// failure) without ever reaching the Executor. Production wiring calls
// this once at boot; tests leave it at its no-op default.
func (d *Dispatcher) SetRecorder(r TerminalRecorder) {
	d.recorder = r
}

// SetClock overrides the dispatcher's notion of "now". Production wiring
// never calls it.
func (d *Dispatcher) SetClock(c Clock) {
	d.now = c
}

// SetTickInterval overrides the dispatch tick cadence. Production wiring
// sets this once at boot from configuration; the default is 1s.
func (d *Dispatcher) SetTickInterval(interval time.Duration) {
	d.tickInterval = interval
}

// Start runs the tick loop until ctx is cancelled. On cancellation the
// dispatcher stops accepting new ticks and gives in-flight executions up
// to shutdownGrace to finish before force-cancelling them.
func (d *Dispatcher) Start(ctx context.Context) {
	ticker := time.NewTicker(d.tickInterval)
	defer ticker.Stop()

	// Executor work runs against a context independent of the caller's:
	// outstanding executions must survive the caller cancelling ctx long
	// enough for the grace period below, then be force-cancelled.
	runCtx, forceCancel := context.WithCancel(context.Background())
	defer forceCancel()

	d.logger.Info("dispatcher started", "tick", d.tickInterval)

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping, draining in-flight executions")
			d.drain(forceCancel)
			return
		case <-ticker.C:
			d.Tick(runCtx)
		}
	}
}

// Wait blocks until every in-flight execution launched by Tick has
// completed. Tests call it after Tick; production shutdown also calls it,
// after the HTTP servers stop, while Start runs its own grace-bounded drain.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) drain(forceCancel context.CancelFunc) {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.logger.Info("dispatcher: all in-flight executions finished")
	case <-time.After(shutdownGrace):
		d.logger.Warn("dispatcher: shutdown grace exceeded, force-cancelling in-flight executions")
		forceCancel()
		<-done
	}
}

// Tick runs one dispatch pass: it reads due Jobs and resolves each against
// expiry and the catalogue/directory before handing runnable ones to the
// Executor. Exposed directly so tests can drive a pass without waiting on
// the real 1s ticker.
func (d *Dispatcher) Tick(ctx context.Context) {
	start := time.Now()
	defer func() { metrics.DispatchTickDuration.Observe(time.Since(start).Seconds()) }()

	nowSec := d.now().Unix()

	executionIDs, err := d.queue.DueNow(ctx, nowSec)
	if err != nil {
		d.logger.ErrorContext(ctx, "dispatcher: due-now read failed, backing off", "error", err)
		time.Sleep(storeErrorBackoff)
		return
	}

	// Jobs come back from DueNow in non-decreasing executionScore order
	// (sorted-set range), so processing them in sequence here already
	// satisfies the tick's within-tick ordering guarantee.
	for _, executionID := range executionIDs {
		d.dispatchOne(ctx, executionID, nowSec)
	}

	if depth, err := d.queue.IndexedCount(ctx); err == nil {
		metrics.QueueDepth.Set(float64(depth))
	}
}

func (d *Dispatcher) dispatchOne(ctx context.Context, executionID string, nowSec int64) {
	job, ok, err := d.queue.JobRecord(ctx, executionID)
	if err != nil {
		d.logger.ErrorContext(ctx, "dispatcher: job record read failed", "execution_id", executionID, "error", err)
		return
	}
	if !ok || job.Status != domain.JobQueued {
		return
	}

	if nowSec > job.ExecutionTime+int64(job.ExecutionExpiry) {
		if err := d.queue.DequeueTerminal(ctx, executionID, domain.JobExpired); err != nil {
			d.logger.ErrorContext(ctx, "dispatcher: expire transition failed", "execution_id", executionID, "error", err)
			return
		}
		metrics.JobsTerminalTotal.WithLabelValues(string(domain.JobExpired)).Inc()
		job.Status = domain.JobExpired
		if err := d.recorder.RecordTerminal(ctx, job, d.now()); err != nil {
			d.logger.ErrorContext(ctx, "dispatcher: record history failed", "execution_id", executionID, "error", err)
		}
		return
	}

	reg, ok := helperkit.Lookup(job.HelperID)
	if !ok {
		d.failBeforeRun(ctx, job, fmt.Errorf("%w: %s", domain.ErrHelperNotFound, job.HelperID))
		return
	}

	if job.UserID != domain.InternalOwner {
		_, ok, err := d.users.GetUserByID(ctx, job.UserID, directory.LookupOptions{})
		if err != nil {
			d.logger.ErrorContext(ctx, "dispatcher: user lookup failed", "execution_id", executionID, "user_id", job.UserID, "error", err)
			return
		}
		if !ok {
			d.failBeforeRun(ctx, job, domain.ErrUserNotFound)
			return
		}
	}

	if err := d.queue.SetStatus(ctx, executionID, domain.JobRunning); err != nil {
		d.logger.ErrorContext(ctx, "dispatcher: running transition failed", "execution_id", executionID, "error", err)
		return
	}
	job.Status = domain.JobRunning
	metrics.JobsDispatchedTotal.WithLabelValues(job.HelperID).Inc()

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.executor.Run(ctx, job, reg)
	}()
}

// failBeforeRun marks a Job error before it ever reaches the Executor —
// helper not found, or the owning user has disappeared from the
// Directory between planning and dispatch.
func (d *Dispatcher) failBeforeRun(ctx context.Context, job domain.Job, cause error) {
	if err := d.queue.SetError(ctx, job.ExecutionID, cause.Error()); err != nil {
		d.logger.ErrorContext(ctx, "dispatcher: set error failed", "execution_id", job.ExecutionID, "error", err)
	}
	if err := d.queue.DequeueTerminal(ctx, job.ExecutionID, domain.JobError); err != nil {
		d.logger.ErrorContext(ctx, "dispatcher: dequeue after pre-run failure failed", "execution_id", job.ExecutionID, "error", err)
		return
	}
	metrics.JobsTerminalTotal.WithLabelValues(string(domain.JobError)).Inc()

	job.Status = domain.JobError
	job.Error = cause.Error()
	if err := d.recorder.RecordTerminal(ctx, job, d.now()); err != nil {
		d.logger.ErrorContext(ctx, "dispatcher: record history failed", "execution_id", job.ExecutionID, "error", err)
	}
}
