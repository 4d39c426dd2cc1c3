// Package queue implements the Execution Queue: a temporal priority queue
// of pending Jobs, each a Job Record (hash) indexed by executionScore in a
// sorted set.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/afonsoingles/helper-scheduler/internal/domain"
	"github.com/afonsoingles/helper-scheduler/internal/store"
)

// ExecutionQueue wraps a Store with Job Record semantics.
type ExecutionQueue struct {
	store store.Store
}

func New(s store.Store) *ExecutionQueue {
	return &ExecutionQueue{store: s}
}

// Enqueue writes the Job Record hash then adds its execution id to the
// sorted-set index at executionScore. If the id is already indexed
// (duplicate enqueue), the hash is still written but the index entry is
// not duplicated — ZAddIfAbsent is a no-op in that case.
func (q *ExecutionQueue) Enqueue(ctx context.Context, job domain.Job) error {
	fields, err := marshalJob(job)
	if err != nil {
		return err
	}
	if err := q.store.HashSet(ctx, store.JobKey(job.ExecutionID), fields); err != nil {
		return err
	}
	_, err = q.store.ZAddIfAbsent(ctx, store.ExecutionQueueKey, job.ExecutionScore, job.ExecutionID)
	return err
}

// DequeueTerminal sets the Job's status to a terminal value and removes it
// from the sorted-set index. It never deletes the Job Record hash; that is
// the catalogue's lazy-GC responsibility.
func (q *ExecutionQueue) DequeueTerminal(ctx context.Context, executionID string, status domain.JobStatus) error {
	if !status.Terminal() {
		return fmt.Errorf("dequeueTerminal: %q is not a terminal status", status)
	}
	if err := q.store.HashSetField(ctx, store.JobKey(executionID), "status", string(status)); err != nil {
		return err
	}
	return q.store.ZRemMember(ctx, store.ExecutionQueueKey, executionID)
}

// SetStatus writes a non-terminal status transition (queued -> running).
func (q *ExecutionQueue) SetStatus(ctx context.Context, executionID string, status domain.JobStatus) error {
	return q.store.HashSetField(ctx, store.JobKey(executionID), "status", string(status))
}

// SetError records a failure message alongside a terminal status write.
func (q *ExecutionQueue) SetError(ctx context.Context, executionID, message string) error {
	return q.store.HashSetField(ctx, store.JobKey(executionID), "error", message)
}

// DueNow returns execution ids whose score is at or below the last priority
// slot of nowSec (overdue Jobs from earlier seconds included), filtered to
// Jobs still in status queued. The "+5" inclusive upper bound captures
// priority slots 1..5 at that second.
func (q *ExecutionQueue) DueNow(ctx context.Context, nowSec int64) ([]string, error) {
	candidates, err := q.store.ZRangeByScoreAsc(ctx, store.ExecutionQueueKey, 0, nowSec*10+5, 0)
	if err != nil {
		return nil, err
	}

	due := make([]string, 0, len(candidates))
	for _, executionID := range candidates {
		job, ok, err := q.JobRecord(ctx, executionID)
		if err != nil {
			return nil, err
		}
		if !ok || job.Status != domain.JobQueued {
			continue
		}
		due = append(due, executionID)
	}
	return due, nil
}

// JobRecord reads and decodes the Job Record hash for executionID.
func (q *ExecutionQueue) JobRecord(ctx context.Context, executionID string) (domain.Job, bool, error) {
	fields, ok, err := q.store.HashGetAll(ctx, store.JobKey(executionID))
	if err != nil || !ok {
		return domain.Job{}, ok, err
	}
	job, err := unmarshalJob(fields)
	if err != nil {
		return domain.Job{}, false, err
	}
	return job, true, nil
}

// IndexedCount returns how many execution ids are currently queued/running
// (present in the sorted-set index). Exposed for tests and diagnostics.
func (q *ExecutionQueue) IndexedCount(ctx context.Context) (int, error) {
	members, err := q.store.ZRangeAll(ctx, store.ExecutionQueueKey)
	if err != nil {
		return 0, err
	}
	return len(members), nil
}

// All returns the Job Record for every execution id currently in the
// sorted-set index. The planner uses this to dedupe a window expansion
// against Jobs an earlier tick already scheduled.
func (q *ExecutionQueue) All(ctx context.Context) ([]domain.Job, error) {
	members, err := q.store.ZRangeAll(ctx, store.ExecutionQueueKey)
	if err != nil {
		return nil, err
	}

	jobs := make([]domain.Job, 0, len(members))
	for _, executionID := range members {
		job, ok, err := q.JobRecord(ctx, executionID)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func marshalJob(job domain.Job) (map[string]string, error) {
	params := "{}"
	if job.Params != nil {
		raw, err := json.Marshal(job.Params)
		if err != nil {
			return nil, fmt.Errorf("marshal job params: %w", err)
		}
		params = string(raw)
	}
	return map[string]string{
		"executionId":     job.ExecutionID,
		"userId":          job.UserID,
		"helperId":        job.HelperID,
		"executionTime":   strconv.FormatInt(job.ExecutionTime, 10),
		"executionScore":  strconv.FormatInt(job.ExecutionScore, 10),
		"priority":        strconv.Itoa(job.Priority),
		"executionExpiry": strconv.Itoa(job.ExecutionExpiry),
		"status":          string(job.Status),
		"params":          params,
		"error":           job.Error,
	}, nil
}

func unmarshalJob(fields map[string]string) (domain.Job, error) {
	executionTime, err := strconv.ParseInt(fields["executionTime"], 10, 64)
	if err != nil {
		return domain.Job{}, fmt.Errorf("unmarshal job: executionTime: %w", err)
	}
	executionScore, err := strconv.ParseInt(fields["executionScore"], 10, 64)
	if err != nil {
		return domain.Job{}, fmt.Errorf("unmarshal job: executionScore: %w", err)
	}
	priority, err := strconv.Atoi(fields["priority"])
	if err != nil {
		return domain.Job{}, fmt.Errorf("unmarshal job: priority: %w", err)
	}
	executionExpiry, err := strconv.Atoi(fields["executionExpiry"])
	if err != nil {
		return domain.Job{}, fmt.Errorf("unmarshal job: executionExpiry: %w", err)
	}

	var params map[string]interface{}
	if raw := fields["params"]; raw != "" {
		if err := json.Unmarshal([]byte(raw), &params); err != nil {
			return domain.Job{}, fmt.Errorf("unmarshal job: params: %w", err)
		}
	}

	return domain.Job{
		ExecutionID:     fields["executionId"],
		UserID:          fields["userId"],
		HelperID:        fields["helperId"],
		ExecutionTime:   executionTime,
		ExecutionScore:  executionScore,
		Priority:        priority,
		ExecutionExpiry: executionExpiry,
		Status:          domain.JobStatus(fields["status"]),
		Params:          params,
		Error:           fields["error"],
	}, nil
}
