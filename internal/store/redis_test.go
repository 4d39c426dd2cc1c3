package store_test

import (
	"context"
	"testing"

	"github.com/afonsoingles/helper-scheduler/internal/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) *store.RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return store.NewRedisStore(client)
}

func TestRedisStore_SetGetDelKV(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.SetKV(ctx, "k1", "v1"); err != nil {
		t.Fatalf("SetKV: %v", err)
	}

	v, ok, err := s.GetKV(ctx, "k1")
	if err != nil || !ok || v != "v1" {
		t.Fatalf("GetKV = %q, %v, %v; want v1, true, nil", v, ok, err)
	}

	if err := s.DelKey(ctx, "k1"); err != nil {
		t.Fatalf("DelKey: %v", err)
	}

	_, ok, err = s.GetKV(ctx, "k1")
	if err != nil || ok {
		t.Fatalf("GetKV after delete = ok=%v err=%v; want false, nil", ok, err)
	}
}

func TestRedisStore_KeysByPrefix(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for _, k := range []string{"helper:a", "helper:b", "other:c"} {
		if err := s.SetKV(ctx, k, "x"); err != nil {
			t.Fatalf("SetKV(%s): %v", k, err)
		}
	}

	keys, err := s.KeysByPrefix(ctx, "helper:")
	if err != nil {
		t.Fatalf("KeysByPrefix: %v", err)
	}
	if len(keys) != 2 {
		t.Fatalf("KeysByPrefix returned %d keys, want 2 (%v)", len(keys), keys)
	}
}

func TestRedisStore_Hash(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if err := s.HashSet(ctx, "h1", map[string]string{"a": "1", "b": "2"}); err != nil {
		t.Fatalf("HashSet: %v", err)
	}
	if err := s.HashSetField(ctx, "h1", "c", "3"); err != nil {
		t.Fatalf("HashSetField: %v", err)
	}

	fields, ok, err := s.HashGetAll(ctx, "h1")
	if err != nil || !ok {
		t.Fatalf("HashGetAll: ok=%v err=%v", ok, err)
	}
	if fields["a"] != "1" || fields["b"] != "2" || fields["c"] != "3" {
		t.Fatalf("HashGetAll = %v, want a=1 b=2 c=3", fields)
	}

	_, ok, err = s.HashGetAll(ctx, "missing")
	if err != nil || ok {
		t.Fatalf("HashGetAll(missing) = ok=%v err=%v; want false, nil", ok, err)
	}
}

func TestRedisStore_ZAddIfAbsent_PreventsDuplicates(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	added, err := s.ZAddIfAbsent(ctx, "zq", 100, "job-1")
	if err != nil || !added {
		t.Fatalf("first ZAddIfAbsent: added=%v err=%v", added, err)
	}

	added, err = s.ZAddIfAbsent(ctx, "zq", 999, "job-1")
	if err != nil || added {
		t.Fatalf("second ZAddIfAbsent: added=%v err=%v; want false", added, err)
	}

	members, err := s.ZRangeAll(ctx, "zq")
	if err != nil || len(members) != 1 {
		t.Fatalf("ZRangeAll = %v, %v; want exactly 1 member", members, err)
	}
}

func TestRedisStore_ZRangeByScoreAsc(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	for member, score := range map[string]int64{"a": 10, "b": 20, "c": 30} {
		if _, err := s.ZAddIfAbsent(ctx, "zq", score, member); err != nil {
			t.Fatalf("ZAddIfAbsent(%s): %v", member, err)
		}
	}

	members, err := s.ZRangeByScoreAsc(ctx, "zq", 0, 20, 0)
	if err != nil {
		t.Fatalf("ZRangeByScoreAsc: %v", err)
	}
	if len(members) != 2 || members[0] != "a" || members[1] != "b" {
		t.Fatalf("ZRangeByScoreAsc = %v, want [a b]", members)
	}
}

func TestRedisStore_ZRemMember(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	if _, err := s.ZAddIfAbsent(ctx, "zq", 1, "a"); err != nil {
		t.Fatalf("ZAddIfAbsent: %v", err)
	}
	if err := s.ZRemMember(ctx, "zq", "a"); err != nil {
		t.Fatalf("ZRemMember: %v", err)
	}

	members, err := s.ZRangeAll(ctx, "zq")
	if err != nil || len(members) != 0 {
		t.Fatalf("ZRangeAll after remove = %v, %v; want empty", members, err)
	}
}
