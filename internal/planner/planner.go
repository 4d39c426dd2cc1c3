// Package planner implements the Queue Planner: it turns catalogue state
// and user subscriptions into Job Records in the Execution Queue. It never
// runs a helper itself — that is the dispatcher's job.
package planner

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/afonsoingles/helper-scheduler/internal/catalogue"
	"github.com/afonsoingles/helper-scheduler/internal/cronx"
	"github.com/afonsoingles/helper-scheduler/internal/directory"
	"github.com/afonsoingles/helper-scheduler/internal/domain"
	"github.com/afonsoingles/helper-scheduler/internal/metrics"
	"github.com/afonsoingles/helper-scheduler/internal/queue"
)

const (
	// buildWindow is the lookahead BuildInitial and ReplanUser schedule
	// across: 2h.
	buildWindow = 2 * time.Hour
	// expandWindow is the lookahead ExpandWindow adds per tick: 10m.
	expandWindow = 10 * time.Minute
)

// Clock returns the current time. Overridden in tests for determinism.
type Clock func() time.Time

// Planner is the Queue Planner.
type Planner struct {
	catalogue *catalogue.Catalogue
	queue     *queue.ExecutionQueue
	users     directory.UserDirectory
	logger    *slog.Logger
	now       Clock
}

func New(cat *catalogue.Catalogue, q *queue.ExecutionQueue, users directory.UserDirectory, logger *slog.Logger) *Planner {
	return &Planner{
		catalogue: cat,
		queue:     q,
		users:     users,
		logger:    logger.With("component", "planner"),
		now:       time.Now,
	}
}

// SetClock overrides the planner's notion of "now". Tests use this for
// deterministic window boundaries; production wiring never calls it.
func (p *Planner) SetClock(c Clock) {
	p.now = c
}

// BuildInitial populates the Execution Queue at boot. An internal boot_run
// helper fires once immediately and still has its schedule expanded; a user
// subscription to a boot_run helper fires once immediately and its schedule
// is not expanded. Every other helper's (or, for
// allow_execution_time_config helpers, every subscription's) schedule is
// expanded across the full build window. No dedupe is needed here — the
// queue is empty.
func (p *Planner) BuildInitial(ctx context.Context) error {
	const pass = "build_initial"
	start := time.Now()
	defer func() { metrics.PlannerCycleDuration.WithLabelValues(pass).Observe(time.Since(start).Seconds()) }()

	now := p.now().UTC()
	until := now.Add(buildWindow)

	defs, err := p.catalogue.All(ctx)
	if err != nil {
		return fmt.Errorf("planner: load catalogue: %w", err)
	}

	for _, def := range defs {
		if !def.Internal || def.Disabled {
			continue
		}
		if def.BootRun {
			p.enqueueNow(ctx, def, domain.InternalOwner, nil, now, pass)
		}
		p.expandSchedule(ctx, def, domain.InternalOwner, def.Schedule, nil, now, until, nil, pass)
	}

	users, err := p.users.GetAllActiveUsers(ctx)
	if err != nil {
		return fmt.Errorf("planner: load active users: %w", err)
	}

	for _, user := range users {
		for _, sub := range user.Services {
			if !sub.Enabled {
				continue
			}
			def, ok := p.resolveForUser(ctx, sub.HelperID, user)
			if !ok {
				continue
			}
			if def.BootRun {
				p.enqueueNow(ctx, def, user.ID, sub.Params, now, pass)
				continue
			}
			p.expandSchedule(ctx, def, user.ID, scheduleFor(def, sub), sub.Params, now, until, nil, pass)
		}
	}
	return nil
}

// ExpandWindow is the realtime queue updater, run once per expansion tick.
// It extends coverage by expandWindow, deduping against Jobs an earlier
// tick already scheduled so a helper's timestamp is never enqueued twice.
// Internal boot_run helpers keep expanding on their own schedule here; user
// subscriptions to boot_run helpers are skipped — they fired once at boot
// and never repeat.
func (p *Planner) ExpandWindow(ctx context.Context) error {
	const pass = "expand_window"
	start := time.Now()
	defer func() { metrics.PlannerCycleDuration.WithLabelValues(pass).Observe(time.Since(start).Seconds()) }()

	now := p.now().UTC()
	until := now.Add(expandWindow)

	existing, err := p.queue.All(ctx)
	if err != nil {
		return fmt.Errorf("planner: load existing queue for dedupe: %w", err)
	}

	defs, err := p.catalogue.All(ctx)
	if err != nil {
		return fmt.Errorf("planner: load catalogue: %w", err)
	}

	for _, def := range defs {
		if !def.Internal || def.Disabled {
			continue
		}
		p.expandSchedule(ctx, def, domain.InternalOwner, def.Schedule, nil, now, until, existing, pass)
	}

	users, err := p.users.GetAllActiveUsers(ctx)
	if err != nil {
		return fmt.Errorf("planner: load active users: %w", err)
	}

	for _, user := range users {
		for _, sub := range user.Services {
			if !sub.Enabled {
				continue
			}
			def, ok := p.resolveForUser(ctx, sub.HelperID, user)
			if !ok {
				continue
			}
			if def.BootRun {
				continue
			}
			p.expandSchedule(ctx, def, user.ID, scheduleFor(def, sub), sub.Params, now, until, existing, pass)
		}
	}
	return nil
}

// ReplanUser cancels every still-queued Job belonging to userID, then
// re-expands its subscriptions across the full build window. Jobs already
// running are left untouched: a subscription edit never interrupts an
// invocation in flight. boot_run helpers are skipped — they fire once, at
// boot, only.
func (p *Planner) ReplanUser(ctx context.Context, userID string) error {
	const pass = "replan_user"
	start := time.Now()
	defer func() { metrics.PlannerCycleDuration.WithLabelValues(pass).Observe(time.Since(start).Seconds()) }()

	if err := p.cancelQueued(ctx, userID); err != nil {
		return fmt.Errorf("planner: cancel queued jobs for %s: %w", userID, err)
	}

	user, ok, err := p.users.GetUserByID(ctx, userID, directory.LookupOptions{})
	if err != nil {
		return fmt.Errorf("planner: load user %s: %w", userID, err)
	}
	if !ok {
		return fmt.Errorf("planner: replan %s: %w", userID, domain.ErrUserNotFound)
	}

	now := p.now().UTC()
	until := now.Add(buildWindow)

	for _, sub := range user.Services {
		if !sub.Enabled {
			continue
		}
		def, ok := p.resolveForUser(ctx, sub.HelperID, user)
		if !ok {
			continue
		}
		if def.BootRun {
			continue
		}
		p.expandSchedule(ctx, def, user.ID, scheduleFor(def, sub), sub.Params, now, until, nil, pass)
	}
	return nil
}

// scheduleFor resolves which schedule expressions govern a subscription:
// the user's own, if the helper allows per-user configuration, else the
// helper's fixed schedule.
func scheduleFor(def domain.HelperDefinition, sub domain.Subscription) []string {
	if def.AllowExecutionTimeConfig {
		return sub.Schedule
	}
	return def.Schedule
}

// resolveForUser applies the gating order: catalogue missing/disabled/
// internal, then region lock, then admin_only. Subscription.Enabled is
// checked by the caller before this is reached.
func (p *Planner) resolveForUser(ctx context.Context, helperID string, user domain.User) (domain.HelperDefinition, bool) {
	def, ok, err := p.catalogue.Get(ctx, helperID)
	if err != nil {
		p.logger.ErrorContext(ctx, "planner: catalogue lookup failed", "helper_id", helperID, "user_id", user.ID, "error", err)
		return domain.HelperDefinition{}, false
	}
	if !ok || def.Disabled || def.Internal {
		p.logger.WarnContext(ctx, "planner: helper unavailable, skipping", "helper_id", helperID, "user_id", user.ID)
		return domain.HelperDefinition{}, false
	}
	if !def.RegionAllowed(user.Region) {
		p.logger.WarnContext(ctx, "planner: helper not available in user region, skipping", "helper_id", helperID, "user_id", user.ID, "region", user.Region)
		return domain.HelperDefinition{}, false
	}
	if def.AdminOnly && !user.Admin {
		p.logger.WarnContext(ctx, "planner: helper is admin-only, skipping for non-admin user", "helper_id", helperID, "user_id", user.ID)
		return domain.HelperDefinition{}, false
	}
	return def, true
}

// expandSchedule expands every cron expression in schedule across
// (from, until] and enqueues a Job per firing. When existing is non-nil,
// a firing already present as a Job for the same helper/owner/timestamp
// triple is skipped.
func (p *Planner) expandSchedule(ctx context.Context, def domain.HelperDefinition, ownerID string, schedule []string, params map[string]interface{}, from, until time.Time, existing []domain.Job, pass string) {
	for _, expr := range schedule {
		firings, err := cronx.Expand(expr, from, until)
		if err != nil {
			p.logger.ErrorContext(ctx, "planner: invalid cron expression, skipping", "helper_id", def.ID, "expression", expr, "error", err)
			continue
		}
		for _, ts := range firings {
			if existing != nil && alreadyQueued(existing, def.ID, ownerID, ts) {
				continue
			}
			p.enqueue(ctx, def, ownerID, ts, params, pass)
		}
	}
}

func alreadyQueued(existing []domain.Job, helperID, ownerID string, executionTime int64) bool {
	for _, job := range existing {
		if job.HelperID == helperID && job.UserID == ownerID && job.ExecutionTime == executionTime {
			return true
		}
	}
	return false
}

func (p *Planner) enqueueNow(ctx context.Context, def domain.HelperDefinition, ownerID string, params map[string]interface{}, now time.Time, pass string) {
	p.enqueue(ctx, def, ownerID, now.Unix(), params, pass)
}

func (p *Planner) enqueue(ctx context.Context, def domain.HelperDefinition, ownerID string, executionTime int64, params map[string]interface{}, pass string) {
	job := domain.Job{
		ExecutionID:     uuid.NewString(),
		UserID:          ownerID,
		HelperID:        def.ID,
		ExecutionTime:   executionTime,
		ExecutionScore:  domain.Score(executionTime, def.Priority),
		Priority:        def.Priority,
		ExecutionExpiry: def.Timeout,
		Status:          domain.JobQueued,
		Params:          params,
	}
	if err := p.queue.Enqueue(ctx, job); err != nil {
		p.logger.ErrorContext(ctx, "planner: enqueue failed", "helper_id", def.ID, "user_id", ownerID, "execution_time", executionTime, "error", err)
		return
	}
	metrics.PlannerJobsEnqueuedTotal.WithLabelValues(pass).Inc()
}

func (p *Planner) cancelQueued(ctx context.Context, userID string) error {
	jobs, err := p.queue.All(ctx)
	if err != nil {
		return err
	}
	for _, job := range jobs {
		if job.UserID != userID || job.Status != domain.JobQueued {
			continue
		}
		if err := p.queue.DequeueTerminal(ctx, job.ExecutionID, domain.JobCancelled); err != nil {
			return err
		}
	}
	return nil
}
