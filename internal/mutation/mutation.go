// Package mutation implements the use cases behind the Mutation API
// boundary: register/unregister/update a user's helper subscription and
// flip a catalogue entry's enabled state. Every mutation that touches a
// user's subscriptions schedules a background re-plan of that user's Jobs
// instead of replanning inline.
package mutation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/afonsoingles/helper-scheduler/internal/catalogue"
	"github.com/afonsoingles/helper-scheduler/internal/cronx"
	"github.com/afonsoingles/helper-scheduler/internal/directory"
	"github.com/afonsoingles/helper-scheduler/internal/domain"
)

// replanQueueSize bounds the background re-plan channel. When it is full,
// new requests are logged and discarded rather than blocking the caller. A
// discarded request is not retried: the next expansion tick plans enabled
// subscriptions within its own window, but never cancels Jobs already
// queued for a removed or disabled one.
const replanQueueSize = 256

// RegisterRequest is the validated input to Register.
type RegisterRequest struct {
	HelperID string
	Params   map[string]interface{}
	Schedule []string
}

// UpdateRequest is the validated input to Update. HasSchedule
// distinguishes "schedule omitted" from "schedule explicitly emptied".
type UpdateRequest struct {
	Params      map[string]interface{}
	Schedule    []string
	HasSchedule bool
	Enabled     *bool
}

// Service implements the subscription mutation use cases.
type Service struct {
	catalogue *catalogue.Catalogue
	users     directory.UserDirectory
	logger    *slog.Logger
	replanCh  chan string
}

func New(cat *catalogue.Catalogue, users directory.UserDirectory, logger *slog.Logger) *Service {
	return &Service{
		catalogue: cat,
		users:     users,
		logger:    logger.With("component", "mutation"),
		replanCh:  make(chan string, replanQueueSize),
	}
}

// ReplanRequests is the single-consumer channel of user ids awaiting a
// background re-plan. The owning process drains it into
// planner.ReplanUser.
func (s *Service) ReplanRequests() <-chan string {
	return s.replanCh
}

func (s *Service) scheduleReplan(ctx context.Context, userID string) {
	select {
	case s.replanCh <- userID:
	default:
		s.logger.WarnContext(ctx, "mutation: replan queue full, dropping request", "user_id", userID)
	}
}

// Register adds a helper subscription to the caller's services and
// schedules a re-plan. impersonating must be true only when an admin is
// acting on a subject user's behalf — it relaxes require_admin_activation
// for that one call.
func (s *Service) Register(ctx context.Context, callerID string, impersonating bool, req RegisterRequest) (domain.Subscription, error) {
	user, ok, err := s.users.GetUserByID(ctx, callerID, directory.LookupOptions{})
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("mutation: load user %s: %w", callerID, err)
	}
	if !ok {
		return domain.Subscription{}, fmt.Errorf("mutation: register: %w", domain.ErrUserNotFound)
	}

	def, err := s.resolveMutable(ctx, req.HelperID, user, impersonating)
	if err != nil {
		return domain.Subscription{}, err
	}

	params, err := coerceParams(def, req.Params)
	if err != nil {
		return domain.Subscription{}, err
	}

	schedule, err := resolveRegisterSchedule(def, req.Schedule)
	if err != nil {
		return domain.Subscription{}, err
	}

	for _, existing := range user.Services {
		if existing.HelperID == def.ID && existing.Enabled {
			return domain.Subscription{}, fmt.Errorf("mutation: register %s: %w", def.ID, domain.ErrSubscriptionExists)
		}
	}

	sub := domain.Subscription{HelperID: def.ID, Enabled: true, Params: params, Schedule: schedule}
	user.Services = append(user.Services, sub)

	if err := s.users.UpdateUser(ctx, callerID, user); err != nil {
		return domain.Subscription{}, fmt.Errorf("mutation: persist registration: %w", err)
	}
	s.scheduleReplan(ctx, callerID)
	return sub, nil
}

// Unregister removes a helper subscription from the caller's services and
// schedules a re-plan.
func (s *Service) Unregister(ctx context.Context, callerID, helperID string) error {
	user, ok, err := s.users.GetUserByID(ctx, callerID, directory.LookupOptions{})
	if err != nil {
		return fmt.Errorf("mutation: load user %s: %w", callerID, err)
	}
	if !ok {
		return fmt.Errorf("mutation: unregister: %w", domain.ErrUserNotFound)
	}

	if _, err := s.resolveMutable(ctx, helperID, user, false); err != nil {
		return err
	}

	idx := -1
	for i, sub := range user.Services {
		if sub.HelperID == helperID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("mutation: unregister %s: %w", helperID, domain.ErrSubscriptionNotFound)
	}
	user.Services = append(user.Services[:idx], user.Services[idx+1:]...)

	if err := s.users.UpdateUser(ctx, callerID, user); err != nil {
		return fmt.Errorf("mutation: persist unregistration: %w", err)
	}
	s.scheduleReplan(ctx, callerID)
	return nil
}

// Update merges param and schedule changes into an existing subscription
// and schedules a re-plan.
func (s *Service) Update(ctx context.Context, callerID, helperID string, req UpdateRequest) (domain.Subscription, error) {
	user, ok, err := s.users.GetUserByID(ctx, callerID, directory.LookupOptions{})
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("mutation: load user %s: %w", callerID, err)
	}
	if !ok {
		return domain.Subscription{}, fmt.Errorf("mutation: update: %w", domain.ErrUserNotFound)
	}

	def, err := s.resolveMutable(ctx, helperID, user, false)
	if err != nil {
		return domain.Subscription{}, err
	}

	idx := -1
	for i, sub := range user.Services {
		if sub.HelperID == helperID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return domain.Subscription{}, fmt.Errorf("mutation: update %s: %w", helperID, domain.ErrSubscriptionNotFound)
	}
	sub := user.Services[idx]

	if sub.Params == nil {
		sub.Params = map[string]interface{}{}
	}
	for name, raw := range req.Params {
		pt, declared := def.Params[name]
		if !declared {
			continue
		}
		value, err := coerceParam(raw, pt)
		if err != nil {
			return domain.Subscription{}, fmt.Errorf("mutation: update %s: parameter %q: %w", helperID, name, err)
		}
		sub.Params[name] = value
	}

	if !def.AllowExecutionTimeConfig && len(req.Schedule) > 0 {
		return domain.Subscription{}, fmt.Errorf("mutation: update %s: %w", helperID, domain.ErrSchedulingNotSupported)
	}
	if def.AllowExecutionTimeConfig && req.HasSchedule {
		schedule, err := dedupedValidSchedule(req.Schedule)
		if err != nil {
			return domain.Subscription{}, err
		}
		sub.Schedule = schedule
	}

	if req.Enabled != nil {
		sub.Enabled = *req.Enabled
	}

	user.Services[idx] = sub
	if err := s.users.UpdateUser(ctx, callerID, user); err != nil {
		return domain.Subscription{}, fmt.Errorf("mutation: persist update: %w", err)
	}
	s.scheduleReplan(ctx, callerID)
	return sub, nil
}

// SetHelperEnabled flips a catalogue entry's disabled flag. The planner
// ignores a disabled helper on its next pass; nothing already queued is
// dequeued immediately.
func (s *Service) SetHelperEnabled(ctx context.Context, helperID string, enabled bool) error {
	def, ok, err := s.catalogue.Get(ctx, helperID)
	if err != nil {
		return fmt.Errorf("mutation: load helper %s: %w", helperID, err)
	}
	if !ok {
		return fmt.Errorf("mutation: set enabled %s: %w", helperID, domain.ErrHelperNotFound)
	}
	def.Disabled = !enabled
	return s.catalogue.Register(ctx, def)
}

// resolveMutable looks up a helper definition and applies the gates a
// user-facing mutation must honor: must exist, must not be internal or
// disabled, admin_only requires an admin caller, and
// require_admin_activation additionally allows an admin acting via
// impersonation.
func (s *Service) resolveMutable(ctx context.Context, helperID string, user domain.User, impersonating bool) (domain.HelperDefinition, error) {
	def, ok, err := s.catalogue.Get(ctx, helperID)
	if err != nil {
		return domain.HelperDefinition{}, fmt.Errorf("mutation: load helper %s: %w", helperID, err)
	}
	if !ok || def.Internal || def.Disabled {
		return domain.HelperDefinition{}, fmt.Errorf("mutation: %s: %w", helperID, domain.ErrHelperNotFound)
	}
	if def.AdminOnly && !user.Admin {
		return domain.HelperDefinition{}, fmt.Errorf("mutation: %s: %w", helperID, domain.ErrAdminRequired)
	}
	if def.RequireAdminActivation && !user.Admin && !impersonating {
		return domain.HelperDefinition{}, fmt.Errorf("mutation: %s: %w", helperID, domain.ErrAdminRequired)
	}
	return def, nil
}

func resolveRegisterSchedule(def domain.HelperDefinition, requested []string) ([]string, error) {
	if !def.AllowExecutionTimeConfig {
		return nil, nil
	}
	if len(requested) == 0 {
		return nil, fmt.Errorf("mutation: register %s: %w", def.ID, domain.ErrMissingParameters)
	}
	return dedupedValidSchedule(requested)
}

func dedupedValidSchedule(expressions []string) ([]string, error) {
	seen := make(map[string]struct{}, len(expressions))
	for _, expr := range expressions {
		if _, dup := seen[expr]; dup {
			return nil, fmt.Errorf("mutation: %q: %w", expr, domain.ErrDuplicateScheduleExpression)
		}
		if err := cronx.Validate(expr); err != nil {
			return nil, err
		}
		seen[expr] = struct{}{}
	}
	return expressions, nil
}

// coerceParams validates that every parameter a helper declares is
// present and coercible to its declared scalar type.
func coerceParams(def domain.HelperDefinition, raw map[string]interface{}) (map[string]interface{}, error) {
	if len(def.Params) == 0 {
		return nil, nil
	}
	out := make(map[string]interface{}, len(def.Params))
	for name, pt := range def.Params {
		value, ok := raw[name]
		if !ok {
			return nil, fmt.Errorf("mutation: register %s: parameter %q: %w", def.ID, name, domain.ErrMissingParameters)
		}
		coerced, err := coerceParam(value, pt)
		if err != nil {
			return nil, fmt.Errorf("mutation: register %s: parameter %q: %w", def.ID, name, err)
		}
		out[name] = coerced
	}
	return out, nil
}

// coerceParam coerces a JSON-decoded value to a helper's declared
// parameter type, mirroring the original's permissive str()/int()/bool()
// coercion with the strictness Go's static typing already affords:
// numeric and boolean destinations reject a mismatched source type
// outright rather than risk a silent truncation.
func coerceParam(value interface{}, pt domain.ParamType) (interface{}, error) {
	switch pt {
	case domain.ParamString:
		switch v := value.(type) {
		case string:
			return v, nil
		default:
			return fmt.Sprint(v), nil
		}
	case domain.ParamInteger:
		switch v := value.(type) {
		case float64:
			if v != float64(int(v)) {
				return nil, domain.ErrInvalidParameterType
			}
			return int(v), nil
		case int:
			return v, nil
		default:
			return nil, domain.ErrInvalidParameterType
		}
	case domain.ParamBoolean:
		b, ok := value.(bool)
		if !ok {
			return nil, domain.ErrInvalidParameterType
		}
		return b, nil
	default:
		return nil, fmt.Errorf("mutation: unknown parameter type %q", pt)
	}
}
