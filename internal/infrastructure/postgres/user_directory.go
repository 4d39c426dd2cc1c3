package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/afonsoingles/helper-scheduler/internal/directory"
	"github.com/afonsoingles/helper-scheduler/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// UserDirectory is a reference implementation of directory.UserDirectory
// backed by Postgres. It exists so the scheduling core can be exercised
// end-to-end without a bespoke account-management service; production
// deployments may swap in any other implementation of the interface.
type UserDirectory struct {
	pool *pgxpool.Pool
}

func NewUserDirectory(pool *pgxpool.Pool) *UserDirectory {
	return &UserDirectory{pool: pool}
}

// GetUserByID resolves a user by id. BypassCache and Raw are accepted for
// interface compatibility; this reference adapter has no cache of its own
// and never stores a password hash, so both are no-ops here.
func (d *UserDirectory) GetUserByID(ctx context.Context, id string, _ directory.LookupOptions) (directory.UserRecord, bool, error) {
	const query = `
		SELECT id, email, admin, status, region, services, created_at, updated_at
		FROM users WHERE id = $1`

	row := d.pool.QueryRow(ctx, query, id)
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return directory.UserRecord{}, false, nil
		}
		return directory.UserRecord{}, false, err
	}
	return user, true, nil
}

// GetAllActiveUsers returns every user with status = active.
func (d *UserDirectory) GetAllActiveUsers(ctx context.Context) ([]directory.UserRecord, error) {
	const query = `
		SELECT id, email, admin, status, region, services, created_at, updated_at
		FROM users WHERE status = $1`

	rows, err := d.pool.Query(ctx, query, string(domain.StatusActive))
	if err != nil {
		return nil, fmt.Errorf("query active users: %w", err)
	}
	defer rows.Close()

	var users []directory.UserRecord
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active users: %w", err)
	}
	return users, nil
}

// UpdateUser writes the full record. The mutation use cases call this after
// merging a subscription change into record.Services.
func (d *UserDirectory) UpdateUser(ctx context.Context, id string, record directory.UserRecord) error {
	services, err := json.Marshal(record.Services)
	if err != nil {
		return fmt.Errorf("marshal services: %w", err)
	}

	const query = `
		UPDATE users
		SET admin = $2, status = $3, region = $4, services = $5, updated_at = NOW()
		WHERE id = $1`

	tag, err := d.pool.Exec(ctx, query, id, record.Admin, string(record.Status), record.Region, services)
	if err != nil {
		return fmt.Errorf("update user %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// rowScanner is satisfied by both pgx.Row (QueryRow) and pgx.Rows (Query).
type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (domain.User, error) {
	var (
		u        domain.User
		status   string
		services []byte
	)
	err := row.Scan(&u.ID, &u.Email, &u.Admin, &status, &u.Region, &services, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, domain.ErrUserNotFound
		}
		return domain.User{}, fmt.Errorf("scan user: %w", err)
	}
	u.Status = domain.UserStatus(status)
	if len(services) > 0 {
		if err := json.Unmarshal(services, &u.Services); err != nil {
			return domain.User{}, fmt.Errorf("unmarshal services: %w", err)
		}
	}
	return u, nil
}
