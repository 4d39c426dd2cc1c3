package domain

import "time"

// UserStatus is the lifecycle state of a user subscription owner.
type UserStatus string

const (
	StatusActive          UserStatus = "active"
	StatusSuspended       UserStatus = "suspended"
	StatusDeletionPending UserStatus = "deletionPending"
)

// InternalOwner is the synthetic userId used for helpers with
// HelperDefinition.Internal = true; they run without a user.
const InternalOwner = "internal"

// Subscription is a user's opt-in to run a specific helper.
type Subscription struct {
	HelperID string                 `json:"id"`
	Enabled  bool                   `json:"enabled"`
	Params   map[string]interface{} `json:"params"`
	Schedule []string               `json:"schedule"`
}

// User is the User Subscription record, owned by the User Directory and
// read by the scheduling core.
type User struct {
	ID       string         `json:"id"`
	Email    string         `json:"email"`
	Admin    bool           `json:"admin"`
	Status   UserStatus     `json:"status"`
	Region   string         `json:"region"`
	Services []Subscription `json:"services"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Subscription returns the user's subscription to helperID, if any.
func (u User) Subscription(helperID string) (Subscription, bool) {
	for _, s := range u.Services {
		if s.HelperID == helperID {
			return s, true
		}
	}
	return Subscription{}, false
}
