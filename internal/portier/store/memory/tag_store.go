package memory

import (
	"context"
	"sync"

	"github.com/portier-acs/portier/server/internal/portier/store"
	"github.com/portier-acs/portier/server/internal/portier/types"
)

// TagStore is an in-memory TagStore for tests and dev.
type TagStore struct {
	mu     sync.Mutex
	nextID int64
	byUID  map[string]*types.Tag
}

func NewTagStore() *TagStore {
	return &TagStore{nextID: 1, byUID: make(map[string]*types.Tag)}
}

// Seed inserts a tag with a known owner.  Test helper.
func (s *TagStore) Seed(uid string, ownerUserID *int64) types.Tag {
	s.mu.Lock()
	defer s.mu.Unlock()

	tag := &types.Tag{ID: s.nextID, UID: uid, OwnerUserID: ownerUserID}
	s.nextID++
	s.byUID[uid] = tag
	return *tag
}

func (s *TagStore) ResolveOrRegister(_ context.Context, uid string) (types.Tag, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tag, ok := s.byUID[uid]; ok {
		return *tag, true, nil
	}

	tag := &types.Tag{ID: s.nextID, UID: uid}
	s.nextID++
	s.byUID[uid] = tag
	return *tag, false, nil
}

func (s *TagStore) ListUnassigned(_ context.Context) ([]types.Tag, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.Tag
	for id := int64(1); id < s.nextID; id++ {
		for _, tag := range s.byUID {
			if tag.ID == id && tag.OwnerUserID == nil {
				out = append(out, *tag)
			}
		}
	}
	return out, nil
}

func (s *TagStore) AssignOwner(_ context.Context, tagID, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tag := range s.byUID {
		if tag.ID == tagID {
			v := userID
			tag.OwnerUserID = &v
			return nil
		}
	}
	return store.ErrNotFound
}
