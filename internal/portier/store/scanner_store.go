package store

import (
	"context"
	"time"

	"github.com/portier-acs/portier/server/internal/portier/types"
)

// ScannerStore persists the scanner fleet.  The pipeline only ever reads
// it as a uid -> id lookup; creation comes from administrators.
type ScannerStore interface {
	// Create inserts a scanner and returns its id.  Returns ErrConflict
	// if the uid is already registered.
	Create(ctx context.Context, s types.Scanner) (int64, error)

	// GetByUID returns the scanner with the given hardware uid, or
	// ErrNotFound.
	GetByUID(ctx context.Context, uid string) (types.Scanner, error)

	// List returns all scanners.
	List(ctx context.Context) ([]types.Scanner, error)

	// NoteSeen updates the scanner's last_seen timestamp.  Best-effort;
	// an unknown id is not an error.
	NoteSeen(ctx context.Context, id int64, t time.Time) error
}
