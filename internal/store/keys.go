package store

import "fmt"

// Fixed key prefixes, part of the wire contract between the scheduling
// core and the Scheduling Store.
const (
	HelperKeyPrefix = "internalAvailableHelpers:"
	JobKeyPrefix    = "executionJob:"

	ExecutionQueueKey   = "internalExecutionQueue"
	ExecutionHistoryKey = "internalExecutionHistory"
)

// HelperKey returns the catalogue entry key for a helper id.
func HelperKey(helperID string) string {
	return HelperKeyPrefix + helperID
}

// JobKey returns the Job Record hash key for an execution id.
func JobKey(executionID string) string {
	return fmt.Sprintf("%s%s", JobKeyPrefix, executionID)
}
