package catalogue_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/afonsoingles/helper-scheduler/internal/catalogue"
	"github.com/afonsoingles/helper-scheduler/internal/domain"
	"github.com/afonsoingles/helper-scheduler/internal/store"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCatalogue(t *testing.T) *catalogue.Catalogue {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return catalogue.New(store.NewRedisStore(client), logger)
}

func TestCatalogue_RegisterIsIdempotent(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalogue(t)

	def := domain.HelperDefinition{ID: "checkIn", Name: "Check In", Priority: 2, Timeout: 120}

	if err := c.Register(ctx, def); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if err := c.Register(ctx, def); err != nil {
		t.Fatalf("second register: %v", err)
	}

	all, err := c.All(ctx)
	if err != nil {
		t.Fatalf("All: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("All = %d entries, want 1", len(all))
	}
}

func TestCatalogue_GetAbsent(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalogue(t)

	_, ok, err := c.Get(ctx, "missing")
	if err != nil || ok {
		t.Fatalf("Get(missing) = ok=%v err=%v, want false, nil", ok, err)
	}
}

func TestCatalogue_Clear(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalogue(t)

	if err := c.Register(ctx, domain.HelperDefinition{ID: "a"}); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := c.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	all, err := c.All(ctx)
	if err != nil || len(all) != 0 {
		t.Fatalf("All after Clear = %v, %v; want empty", all, err)
	}
}

func TestCatalogue_GC_RemovesOnlyStaleHistory(t *testing.T) {
	ctx := context.Background()
	c := newTestCatalogue(t)
	now := time.Unix(1_000_000, 0)

	if err := c.RecordHistory(ctx, "old-exec", now.Add(-48*time.Hour)); err != nil {
		t.Fatalf("RecordHistory old: %v", err)
	}
	if err := c.RecordHistory(ctx, "fresh-exec", now.Add(-1*time.Hour)); err != nil {
		t.Fatalf("RecordHistory fresh: %v", err)
	}

	removed, err := c.GC(ctx, now, 24*time.Hour)
	if err != nil {
		t.Fatalf("GC: %v", err)
	}
	if removed != 1 {
		t.Fatalf("GC removed %d, want 1", removed)
	}
}
