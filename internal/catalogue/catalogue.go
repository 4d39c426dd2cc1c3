// Package catalogue is the in-store registry of helper definitions
// discovered at boot — the source of truth for dispatch.
package catalogue

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/afonsoingles/helper-scheduler/internal/domain"
	"github.com/afonsoingles/helper-scheduler/internal/metrics"
	"github.com/afonsoingles/helper-scheduler/internal/store"
)

// Catalogue wraps a Store with helper-definition semantics.
type Catalogue struct {
	store  store.Store
	logger *slog.Logger
}

func New(s store.Store, logger *slog.Logger) *Catalogue {
	return &Catalogue{store: s, logger: logger.With("component", "catalogue")}
}

// Register writes the definition under its id. Idempotent: a repeated
// register overwrites the previous entry.
func (c *Catalogue) Register(ctx context.Context, def domain.HelperDefinition) error {
	payload, err := json.Marshal(def)
	if err != nil {
		return fmt.Errorf("marshal helper definition %s: %w", def.ID, err)
	}
	return c.store.SetKV(ctx, store.HelperKey(def.ID), string(payload))
}

// Get returns the helper definition for id, or ok=false if absent.
func (c *Catalogue) Get(ctx context.Context, id string) (domain.HelperDefinition, bool, error) {
	raw, ok, err := c.store.GetKV(ctx, store.HelperKey(id))
	if err != nil {
		return domain.HelperDefinition{}, false, err
	}
	if !ok {
		return domain.HelperDefinition{}, false, nil
	}
	var def domain.HelperDefinition
	if err := json.Unmarshal([]byte(raw), &def); err != nil {
		return domain.HelperDefinition{}, false, fmt.Errorf("unmarshal helper definition %s: %w", id, err)
	}
	return def, true, nil
}

// All returns every registered helper definition.
func (c *Catalogue) All(ctx context.Context) ([]domain.HelperDefinition, error) {
	keys, err := c.store.KeysByPrefix(ctx, store.HelperKeyPrefix)
	if err != nil {
		return nil, err
	}

	defs := make([]domain.HelperDefinition, 0, len(keys))
	for _, key := range keys {
		raw, ok, err := c.store.GetKV(ctx, key)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		var def domain.HelperDefinition
		if err := json.Unmarshal([]byte(raw), &def); err != nil {
			c.logger.Error("catalogue: corrupt helper entry skipped", "key", key, "error", err)
			continue
		}
		defs = append(defs, def)
	}
	return defs, nil
}

// Clear deletes every catalogue entry. Called once at boot before
// re-registration so stale entries from a previous deploy never linger.
func (c *Catalogue) Clear(ctx context.Context) error {
	keys, err := c.store.KeysByPrefix(ctx, store.HelperKeyPrefix)
	if err != nil {
		return err
	}
	for _, key := range keys {
		if err := c.store.DelKey(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// RecordHistory indexes a terminal execution id by its completion time, for
// GC windowing.
func (c *Catalogue) RecordHistory(ctx context.Context, executionID string, completedAt time.Time) error {
	_, err := c.store.ZAddIfAbsent(ctx, store.ExecutionHistoryKey, completedAt.Unix(), executionID)
	return err
}

// GC removes Job Records older than retention from the history index and
// deletes their hashes. It is called once per expansion tick.
func (c *Catalogue) GC(ctx context.Context, now time.Time, retention time.Duration) (int, error) {
	cutoff := now.Add(-retention).Unix()

	stale, err := c.store.ZRangeByScoreAsc(ctx, store.ExecutionHistoryKey, 0, cutoff, 0)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, executionID := range stale {
		if err := c.store.DelKey(ctx, store.JobKey(executionID)); err != nil {
			return removed, err
		}
		if err := c.store.ZRemMember(ctx, store.ExecutionHistoryKey, executionID); err != nil {
			return removed, err
		}
		removed++
	}
	if removed > 0 {
		metrics.CatalogueGCRemovedTotal.Add(float64(removed))
	}
	return removed, nil
}
