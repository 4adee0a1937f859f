package service

import (
	"context"
	"time"

	"github.com/portier-acs/portier/server/internal/portier/store"
	"github.com/portier-acs/portier/server/internal/portier/types"
)

// Decide answers PERMIT iff any rule in the set covers the instant.  The
// function is pure: no clock, no storage.  Requests in the set are ignored
// (AppliesAt never matches them), so callers may pass unfiltered rows.
func Decide(rules []types.AccessRule, at time.Time) types.Decision {
	for _, r := range rules {
		if r.AppliesAt(at) {
			return types.DecisionPermit
		}
	}
	return types.DecisionDeny
}

// Evaluator answers access decisions against the rule store.
type Evaluator struct {
	rules store.RuleStore
}

func NewEvaluator(rules store.RuleStore) *Evaluator {
	return &Evaluator{rules: rules}
}

// Decide fetches the active rules for (userID, scannerID) and evaluates
// them at the given instant.  On a storage failure the decision is DENY
// alongside the error — callers must treat the error as operator-visible
// but the decision as final.
func (e *Evaluator) Decide(ctx context.Context, userID, scannerID int64, at time.Time) (types.Decision, error) {
	rules, err := e.rules.ListActive(ctx, store.RuleFilter{
		UserID:    &userID,
		ScannerID: &scannerID,
	})
	if err != nil {
		return types.DecisionDeny, err
	}
	return Decide(rules, at), nil
}
