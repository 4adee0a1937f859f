package store

import (
	"context"

	"github.com/portier-acs/portier/server/internal/portier/types"
)

// TagStore persists physical tags.  Tags are never deleted by the engine;
// the external CRUD layer owns removal.
type TagStore interface {
	// ResolveOrRegister looks up a tag by its hardware uid, inserting an
	// unowned row if the uid has never been seen.  The insert must be
	// idempotent under concurrent first sightings of the same uid: exactly
	// one row exists afterwards and every caller gets it back.  existed is
	// false only for the sighting that created the row.
	ResolveOrRegister(ctx context.Context, uid string) (tag types.Tag, existed bool, err error)

	// ListUnassigned returns tags with no owning user, oldest first.
	ListUnassigned(ctx context.Context) ([]types.Tag, error)

	// AssignOwner sets the owning user.  Returns ErrNotFound for an
	// unknown tag id and ErrMissingReference for an unknown user id.
	AssignOwner(ctx context.Context, tagID, userID int64) error
}
