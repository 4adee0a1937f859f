package service

import (
	"context"
	"errors"
	"log"

	"github.com/portier-acs/portier/server/internal/portier/store"
	"github.com/portier-acs/portier/server/internal/portier/types"
)

// Caller identifies the authenticated principal behind a management call.
// It comes from the injected token verifier, never from the request body.
type Caller struct {
	UserID int64
	Role   types.Role
}

// RuleService is the management surface: rule CRUD, the request approval
// workflow, and the audit query.  Role gating happens here so every
// transport (HTTP today) gets identical behavior.
type RuleService struct {
	rules  store.RuleStore
	events store.ScanEventStore
	logger *log.Logger

	// Direct rule creation rejects time_start == time_end; request
	// creation accepts it.
	ruleValidator    Validator
	requestValidator Validator
}

func NewRuleService(rules store.RuleStore, events store.ScanEventStore, logger *log.Logger) *RuleService {
	return &RuleService{
		rules:            rules,
		events:           events,
		logger:           logger,
		ruleValidator:    Validator{RequireStrictTimeOrder: true},
		requestValidator: Validator{RequireStrictTimeOrder: false},
	}
}

// CreateRule creates an immediately-active rule.  Moderator or
// administrator only.
func (s *RuleService) CreateRule(ctx context.Context, caller Caller, in RuleInput) (types.AccessRule, error) {
	if !caller.Role.CanModerate() {
		return types.AccessRule{}, ErrForbidden
	}

	rule, err := s.ruleValidator.Validate(in)
	if err != nil {
		return types.AccessRule{}, err
	}
	rule.IsRequest = false
	return s.create(ctx, rule)
}

// CreateRequest creates a pending request.  Any authenticated caller; the
// owning user is always the caller, regardless of what the body claims.
func (s *RuleService) CreateRequest(ctx context.Context, caller Caller, in RuleInput) (types.AccessRule, error) {
	in.UserID = caller.UserID

	rule, err := s.requestValidator.Validate(in)
	if err != nil {
		return types.AccessRule{}, err
	}
	rule.IsRequest = true
	return s.create(ctx, rule)
}

func (s *RuleService) create(ctx context.Context, rule types.AccessRule) (types.AccessRule, error) {
	id, err := s.rules.Create(ctx, rule)
	if errors.Is(err, store.ErrMissingReference) {
		return types.AccessRule{}, ErrNotFound
	}
	if err != nil {
		return types.AccessRule{}, err
	}
	rule.ID = id
	return rule, nil
}

// ListRules lists active rules.  Basic callers see only their own; the
// filter's user id is overridden for them.
func (s *RuleService) ListRules(ctx context.Context, caller Caller, f store.RuleFilter) ([]types.AccessRule, error) {
	return s.rules.ListActive(ctx, scopeFilter(caller, f))
}

// ListRequests lists pending requests with the same scoping as ListRules.
func (s *RuleService) ListRequests(ctx context.Context, caller Caller, f store.RuleFilter) ([]types.AccessRule, error) {
	return s.rules.ListRequests(ctx, scopeFilter(caller, f))
}

func scopeFilter(caller Caller, f store.RuleFilter) store.RuleFilter {
	if !caller.Role.CanModerate() {
		uid := caller.UserID
		f.UserID = &uid
	}
	return f
}

// Approve promotes a pending request to an active rule.  Approving an
// already-active rule is ErrConflict, an unknown id ErrNotFound — neither
// is a silent success.
func (s *RuleService) Approve(ctx context.Context, caller Caller, id int64) error {
	if !caller.Role.CanModerate() {
		return ErrForbidden
	}

	err := s.rules.Promote(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrConflict):
		return ErrConflict
	case err != nil:
		return err
	}

	s.logger.Printf("request %d approved by user %d", id, caller.UserID)
	return nil
}

// Disapprove deletes a pending request.  Refuses to touch an active rule
// (use DeleteRule for that); the store checks and deletes in one
// operation so a concurrent approval cannot turn this into the deletion
// of an active rule.
func (s *RuleService) Disapprove(ctx context.Context, caller Caller, id int64) error {
	if !caller.Role.CanModerate() {
		return ErrForbidden
	}

	err := s.rules.DeleteRequest(ctx, id)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrConflict):
		return ErrConflict
	case err != nil:
		return err
	}

	s.logger.Printf("request %d disapproved by user %d", id, caller.UserID)
	return nil
}

// DeleteRule removes a rule or request outright.
func (s *RuleService) DeleteRule(ctx context.Context, caller Caller, id int64) error {
	if !caller.Role.CanModerate() {
		return ErrForbidden
	}

	err := s.rules.Delete(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	return err
}

// ListEvents queries the audit log.  Moderator or administrator only.
func (s *RuleService) ListEvents(ctx context.Context, caller Caller, f store.EventFilter) ([]types.ScanEvent, error) {
	if !caller.Role.CanModerate() {
		return nil, ErrForbidden
	}
	return s.events.List(ctx, f)
}
