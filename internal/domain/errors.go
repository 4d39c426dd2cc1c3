package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrHelperNotFound means a Job's helperId is not present in the catalogue
	// at dispatch time, or a mutation referenced an unknown helper id.
	ErrHelperNotFound = errors.New("helper not found")

	// ErrUserNotFound means a Job's non-internal userId could not be resolved
	// against the User Directory.
	ErrUserNotFound = errors.New("user not found")

	// ErrInvalidCronExpression means a schedule string failed to parse under
	// the standard 5-field dialect.
	ErrInvalidCronExpression = errors.New("invalid cron expression")

	// ErrJobNotFound means the requested execution id has no Job Record.
	ErrJobNotFound = errors.New("job not found")

	// ErrSubscriptionNotFound means the user has no subscription for the
	// referenced helper id.
	ErrSubscriptionNotFound = errors.New("helper not registered")

	// ErrSubscriptionExists means the user already has an enabled
	// subscription for the referenced helper id.
	ErrSubscriptionExists = errors.New("helper already registered")

	// ErrAdminRequired means the caller lacks the privilege the mutation
	// requires (admin_only, require_admin_activation).
	ErrAdminRequired = errors.New("admin privileges required")

	// ErrMissingParameters means a required helper parameter was omitted.
	ErrMissingParameters = errors.New("missing required parameters")

	// ErrInvalidParameterType means a supplied parameter value could not be
	// coerced to its declared scalar type.
	ErrInvalidParameterType = errors.New("invalid parameter type")

	// ErrDuplicateScheduleExpression means the same cron expression appeared
	// twice in a single schedule list.
	ErrDuplicateScheduleExpression = errors.New("duplicate schedule expression")

	// ErrSchedulingNotSupported means a helper does not allow
	// allow_execution_time_config and the caller tried to override its schedule.
	ErrSchedulingNotSupported = errors.New("this helper does not support custom scheduling")
)

// StoreTransportError wraps a Scheduling Store failure at the
// network/transport layer. It is retried locally by the dispatcher tick and
// never surfaced to a request caller.
type StoreTransportError struct {
	Op  string
	Err error
}

func (e *StoreTransportError) Error() string {
	return fmt.Sprintf("scheduling store: %s: %v", e.Op, e.Err)
}

func (e *StoreTransportError) Unwrap() error { return e.Err }

// DeadlineExceeded means the Executor observed a Job's executionExpiry
// before the helper's run returned.
type DeadlineExceeded struct {
	HelperID    string
	ExecutionID string
}

func (e *DeadlineExceeded) Error() string {
	return fmt.Sprintf("helper %s: execution %s exceeded its deadline", e.HelperID, e.ExecutionID)
}

// HelperRuntimeError wraps any error returned by a helper's run operation.
type HelperRuntimeError struct {
	HelperID    string
	ExecutionID string
	Err         error
}

func (e *HelperRuntimeError) Error() string {
	return fmt.Sprintf("helper %s: execution %s: %v", e.HelperID, e.ExecutionID, e.Err)
}

func (e *HelperRuntimeError) Unwrap() error { return e.Err }
