package domain

// JobStatus is the lifecycle state of one scheduled helper invocation.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSuccess   JobStatus = "success"
	JobError     JobStatus = "error"
	JobExpired   JobStatus = "expired"
	JobCancelled JobStatus = "cancelled"
)

// Terminal reports whether status is absorbing.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobSuccess, JobError, JobExpired, JobCancelled:
		return true
	default:
		return false
	}
}

// Job is one scheduled invocation of a helper for a specific user (or the
// synthetic InternalOwner) at one timestamp.
type Job struct {
	ExecutionID     string    `json:"executionId"`
	UserID          string    `json:"userId"`
	HelperID        string    `json:"helperId"`
	ExecutionTime   int64     `json:"executionTime"`   // Unix seconds
	ExecutionScore  int64     `json:"executionScore"`  // executionTime*10 + (6-priority)
	Priority        int       `json:"priority"`         // 1..5, copied from catalogue at plan time
	ExecutionExpiry int       `json:"executionExpiry"`  // seconds, copied from helper timeout at plan time
	Status          JobStatus `json:"status"`

	// Params is the resolved parameter set the helper runs with, frozen at
	// planning time so later catalogue/subscription edits never mutate an
	// already-queued Job.
	Params map[string]interface{} `json:"params,omitempty"`

	Error string `json:"error,omitempty"`
}

// Score computes the Execution Queue Index score for a Job with the given
// scheduled firing time and priority. This is the integer variant the
// scheduling core standardises on: ten distinct score slots per second,
// earliest-first and highest-priority-first at the same second.
func Score(executionTime int64, priority int) int64 {
	return executionTime*10 + int64(6-priority)
}
