package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/afonsoingles/helper-scheduler/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RedisStore implements Store against Redis (or any RESP-compatible
// service, including miniredis in tests).
type RedisStore struct {
	client redis.UniversalClient
}

// NewRedisStore wraps an existing client. The caller owns the client's
// lifecycle (construction from a URL, TLS, pooling) and closes it on
// shutdown.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

// Ping satisfies health.Pinger so the scheduling store can be checked
// alongside Postgres at readiness time.
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func transportErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &domain.StoreTransportError{Op: op, Err: err}
}

func (s *RedisStore) SetKV(ctx context.Context, key, value string) error {
	return transportErr("setKV", s.client.Set(ctx, key, value, 0).Err())
}

func (s *RedisStore) GetKV(ctx context.Context, key string) (string, bool, error) {
	v, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, transportErr("getKV", err)
	}
	return v, true, nil
}

func (s *RedisStore) DelKey(ctx context.Context, key string) error {
	return transportErr("delKey", s.client.Del(ctx, key).Err())
}

func (s *RedisStore) KeysByPrefix(ctx context.Context, prefix string) ([]string, error) {
	var (
		keys   []string
		cursor uint64
	)
	for {
		batch, next, err := s.client.Scan(ctx, cursor, prefix+"*", 200).Result()
		if err != nil {
			return nil, transportErr("keysByPrefix", err)
		}
		keys = append(keys, batch...)
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return keys, nil
}

func (s *RedisStore) HashSet(ctx context.Context, key string, fields map[string]string) error {
	if len(fields) == 0 {
		return nil
	}
	values := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		values[k] = v
	}
	return transportErr("hashSet", s.client.HSet(ctx, key, values).Err())
}

func (s *RedisStore) HashGetAll(ctx context.Context, key string) (map[string]string, bool, error) {
	fields, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, false, transportErr("hashGetAll", err)
	}
	if len(fields) == 0 {
		return nil, false, nil
	}
	return fields, true, nil
}

func (s *RedisStore) HashSetField(ctx context.Context, key, field, value string) error {
	return transportErr("hashSetField", s.client.HSet(ctx, key, field, value).Err())
}

func (s *RedisStore) ZAddIfAbsent(ctx context.Context, key string, score int64, member string) (bool, error) {
	n, err := s.client.ZAddNX(ctx, key, redis.Z{Score: float64(score), Member: member}).Result()
	if err != nil {
		return false, transportErr("zaddIfAbsent", err)
	}
	return n > 0, nil
}

func (s *RedisStore) ZRangeByScoreAsc(ctx context.Context, key string, min, max int64, limit int64) ([]string, error) {
	rangeBy := &redis.ZRangeBy{
		Min: strconv.FormatInt(min, 10),
		Max: strconv.FormatInt(max, 10),
	}
	if limit > 0 {
		rangeBy.Offset = 0
		rangeBy.Count = limit
	}
	members, err := s.client.ZRangeByScore(ctx, key, rangeBy).Result()
	if err != nil {
		return nil, transportErr("zrangeByScoreAsc", err)
	}
	return members, nil
}

func (s *RedisStore) ZRemMember(ctx context.Context, key, member string) error {
	return transportErr("zremMember", s.client.ZRem(ctx, key, member).Err())
}

func (s *RedisStore) ZRangeAll(ctx context.Context, key string) ([]string, error) {
	members, err := s.client.ZRange(ctx, key, 0, -1).Result()
	if err != nil {
		return nil, transportErr("zrangeAll", err)
	}
	return members, nil
}

// NewClient builds a go-redis client from a redis:// URL.
func NewClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}
