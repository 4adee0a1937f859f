package service

import (
	"context"
	"errors"
	"strings"

	"github.com/portier-acs/portier/server/internal/portier/store"
	"github.com/portier-acs/portier/server/internal/portier/types"
)

var ErrInvalidTagUID = errors.New("tag uid is required")

// TagRegistry maps physical tag uids to owning users, auto-registering
// unknown uids as unowned tags on first sighting.
type TagRegistry struct {
	tags store.TagStore
}

func NewTagRegistry(tags store.TagStore) *TagRegistry {
	return &TagRegistry{tags: tags}
}

// Resolve returns the tag for the uid, inserting an unowned row if the uid
// has never been seen.  existed is false only for the first sighting.  The
// underlying store guarantees concurrent first sightings converge on a
// single row.
func (r *TagRegistry) Resolve(ctx context.Context, uid string) (tag types.Tag, existed bool, err error) {
	uid = strings.TrimSpace(uid)
	if uid == "" {
		return types.Tag{}, false, ErrInvalidTagUID
	}
	return r.tags.ResolveOrRegister(ctx, uid)
}

// ListUnassigned lists auto-registered tags awaiting an owner.
func (r *TagRegistry) ListUnassigned(ctx context.Context) ([]types.Tag, error) {
	return r.tags.ListUnassigned(ctx)
}

// AssignOwner gives a tag to a user.  Administrator-only; the caller check
// lives in the HTTP layer.
func (r *TagRegistry) AssignOwner(ctx context.Context, tagID, userID int64) error {
	err := r.tags.AssignOwner(ctx, tagID, userID)
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrMissingReference):
		return ErrNotFound
	default:
		return err
	}
}
