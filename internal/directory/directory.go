// Package directory declares the User Directory interface the scheduling
// core consumes. The directory itself — account management, persistence,
// caching — is an external collaborator; only this interface is specified.
package directory

import (
	"context"

	"github.com/afonsoingles/helper-scheduler/internal/domain"
)

// UserRecord is the User Subscription record as seen by the core.
type UserRecord = domain.User

// LookupOptions controls how a user record is resolved.
type LookupOptions struct {
	// BypassCache forces a read past any caching layer the directory keeps.
	BypassCache bool
	// Raw requests the unredacted record (e.g. including a password hash).
	// Non-raw lookups must strip any such field.
	Raw bool
}

// UserDirectory is the read-mostly, caching user store the core consumes.
// Cache invalidation is the directory's own responsibility, not the core's.
type UserDirectory interface {
	GetUserByID(ctx context.Context, id string, opts LookupOptions) (UserRecord, bool, error)
	GetAllActiveUsers(ctx context.Context) ([]UserRecord, error)
	UpdateUser(ctx context.Context, id string, record UserRecord) error
}
