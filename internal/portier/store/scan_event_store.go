package store

import (
	"context"
	"time"

	"github.com/portier-acs/portier/server/internal/portier/types"
)

// EventFilter narrows audit log listings.  Nil fields match everything;
// Limit 0 means the implementation's default cap.
type EventFilter struct {
	UserID    *int64
	ScannerID *int64
	Limit     int
}

// ScanEventStore persists scan decisions as an append-only audit log.
// Rows are never mutated; retention pruning is the only deletion path and
// is disabled by default.
type ScanEventStore interface {
	Append(ctx context.Context, ev types.ScanEvent) (int64, error)

	// List returns events newest first.
	List(ctx context.Context, f EventFilter) ([]types.ScanEvent, error)

	// PruneOlderThan deletes events scanned before the cutoff, returning
	// the number of rows removed.
	PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
