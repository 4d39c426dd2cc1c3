package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/afonsoingles/helper-scheduler/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HistoryRepository archives terminal Job Records past the Scheduling
// Store's own retention window (internal/catalogue.GC). The Redis-backed
// Execution Queue is the source of truth for anything queued or running;
// this table exists purely for audit/reporting once a Job has left it.
type HistoryRepository struct {
	pool *pgxpool.Pool
}

func NewHistoryRepository(pool *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{pool: pool}
}

// Archive persists a terminal Job Record. Safe to call more than once for
// the same execution id (upsert on conflict).
func (r *HistoryRepository) Archive(ctx context.Context, job domain.Job, completedAt time.Time) error {
	params, err := json.Marshal(job.Params)
	if err != nil {
		return fmt.Errorf("marshal job params: %w", err)
	}

	const query = `
		INSERT INTO execution_history
			(execution_id, user_id, helper_id, execution_time, priority, status, error, params, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (execution_id) DO UPDATE
		SET status = EXCLUDED.status, error = EXCLUDED.error, completed_at = EXCLUDED.completed_at`

	_, err = r.pool.Exec(ctx, query,
		job.ExecutionID, job.UserID, job.HelperID,
		time.Unix(job.ExecutionTime, 0), job.Priority, string(job.Status), job.Error,
		params, completedAt,
	)
	if err != nil {
		return fmt.Errorf("archive execution %s: %w", job.ExecutionID, err)
	}
	return nil
}

// ListByUser returns the most recent archived executions for a user,
// newest first.
func (r *HistoryRepository) ListByUser(ctx context.Context, userID string, limit int) ([]domain.Job, error) {
	const query = `
		SELECT execution_id, user_id, helper_id, execution_time, priority, status, error, params
		FROM execution_history
		WHERE user_id = $1
		ORDER BY completed_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list execution history for %s: %w", userID, err)
	}
	defer rows.Close()

	var jobs []domain.Job
	for rows.Next() {
		var (
			job           domain.Job
			executionTime time.Time
			status        string
			params        []byte
		)
		if err := rows.Scan(&job.ExecutionID, &job.UserID, &job.HelperID, &executionTime, &job.Priority, &status, &job.Error, &params); err != nil {
			return nil, fmt.Errorf("scan execution history row: %w", err)
		}
		job.ExecutionTime = executionTime.Unix()
		job.Status = domain.JobStatus(status)
		if len(params) > 0 {
			if err := json.Unmarshal(params, &job.Params); err != nil {
				return nil, fmt.Errorf("unmarshal execution history params: %w", err)
			}
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate execution history: %w", err)
	}
	return jobs, nil
}
