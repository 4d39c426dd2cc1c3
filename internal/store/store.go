// Package store defines the Scheduling Store adapter: a key/value and
// sorted-set service with fail-fast, single-command-atomic operations. It
// has no knowledge of helpers, jobs, or users — those live in the packages
// that consume it (catalogue, queue, planner).
package store

import "context"

// Store is the Scheduling Store contract described in the design: simple
// key/value, hashes, and one sorted-set primitive, all single-command
// atomic. No multi-key transactions are required.
type Store interface {
	SetKV(ctx context.Context, key, value string) error
	GetKV(ctx context.Context, key string) (value string, ok bool, err error)
	DelKey(ctx context.Context, key string) error
	KeysByPrefix(ctx context.Context, prefix string) ([]string, error)

	HashSet(ctx context.Context, key string, fields map[string]string) error
	HashGetAll(ctx context.Context, key string) (fields map[string]string, ok bool, err error)
	HashSetField(ctx context.Context, key, field, value string) error

	// ZAddIfAbsent adds member to the sorted set at key with the given score
	// only if member is not already present. Returns whether it was added.
	ZAddIfAbsent(ctx context.Context, key string, score int64, member string) (added bool, err error)

	// ZRangeByScoreAsc returns members with score in [min, max], ascending.
	// limit <= 0 means unlimited.
	ZRangeByScoreAsc(ctx context.Context, key string, min, max int64, limit int64) ([]string, error)

	ZRemMember(ctx context.Context, key, member string) error
	ZRangeAll(ctx context.Context, key string) ([]string, error)
}
