package store

import (
	"context"

	"github.com/portier-acs/portier/server/internal/portier/types"
)

// RuleFilter narrows rule listings.  Nil fields match everything.
type RuleFilter struct {
	UserID    *int64
	ScannerID *int64
}

// RuleStore persists access rules and pending requests in one table,
// distinguished by the is_request flag.
type RuleStore interface {
	// Create inserts a rule (or request) and returns its id.  Returns
	// ErrMissingReference if the user or scanner id is unknown.
	Create(ctx context.Context, rule types.AccessRule) (int64, error)

	// Get returns the rule with the given id, request or not.
	Get(ctx context.Context, id int64) (types.AccessRule, error)

	// ListActive returns rules with is_request=false matching the filter.
	ListActive(ctx context.Context, f RuleFilter) ([]types.AccessRule, error)

	// ListRequests returns rules with is_request=true matching the filter.
	ListRequests(ctx context.Context, f RuleFilter) ([]types.AccessRule, error)

	// Promote flips is_request off.  Returns ErrNotFound for an unknown
	// id and ErrConflict if the rule is already active.
	Promote(ctx context.Context, id int64) error

	// Delete removes the rule.  Returns ErrNotFound for an unknown id.
	Delete(ctx context.Context, id int64) error

	// DeleteRequest removes a pending request in one operation, so a
	// concurrent Promote cannot slip between check and delete.  Returns
	// ErrNotFound for an unknown id and ErrConflict if the rule is
	// already active.
	DeleteRequest(ctx context.Context, id int64) error
}
