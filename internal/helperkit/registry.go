// Package helperkit is the compile-time replacement for the original
// importlib-based helper discovery: every helper is a value (its
// HelperDefinition) plus a RunFunc closure implementing run(userContext,
// params) -> error. Helpers self-register from their own init(), and the
// dispatcher looks them up by id rather than by file path.
package helperkit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/afonsoingles/helper-scheduler/internal/domain"
)

// RunContext carries everything a helper invocation needs: the caller's
// identity, its resolved parameters, and a logger scoped to the run.
type RunContext struct {
	UserID string
	Params map[string]interface{}
	Logger *slog.Logger
}

// RunFunc is the polymorphic "run" operation of a helper. It must observe
// ctx cancellation at its next suspension point — the Executor cancels ctx
// on timeout, not the goroutine itself.
type RunFunc func(ctx context.Context, rc RunContext) error

// Registration pairs a helper's declared configuration with its run
// operation.
type Registration struct {
	Definition domain.HelperDefinition
	Run        RunFunc
}

var (
	mu       sync.Mutex
	registry = map[string]Registration{}
)

// Register adds a helper to the compile-time registry. Called from each
// helper's init(). Panics on a duplicate id — that is a programming error,
// not a runtime condition.
func Register(def domain.HelperDefinition, run RunFunc) {
	mu.Lock()
	defer mu.Unlock()

	if _, exists := registry[def.ID]; exists {
		panic(fmt.Sprintf("helperkit: helper %q already registered", def.ID))
	}
	registry[def.ID] = Registration{Definition: def, Run: run}
}

// All returns every registered helper, in no particular order.
func All() []Registration {
	mu.Lock()
	defer mu.Unlock()

	out := make([]Registration, 0, len(registry))
	for _, reg := range registry {
		out = append(out, reg)
	}
	return out
}

// Lookup returns the registration for id, if any.
func Lookup(id string) (Registration, bool) {
	mu.Lock()
	defer mu.Unlock()

	reg, ok := registry[id]
	return reg, ok
}
