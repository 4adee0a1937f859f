package memory

import (
	"context"
	"sync"
	"time"

	"github.com/portier-acs/portier/server/internal/portier/store"
	"github.com/portier-acs/portier/server/internal/portier/types"
)

// ScannerStore is an in-memory ScannerStore for tests and dev.
type ScannerStore struct {
	mu       sync.Mutex
	nextID   int64
	scanners []types.Scanner
}

func NewScannerStore() *ScannerStore {
	return &ScannerStore{nextID: 1}
}

func (s *ScannerStore) Create(_ context.Context, sc types.Scanner) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.scanners {
		if existing.UID == sc.UID {
			return 0, store.ErrConflict
		}
	}
	sc.ID = s.nextID
	s.nextID++
	s.scanners = append(s.scanners, sc)
	return sc.ID, nil
}

func (s *ScannerStore) GetByUID(_ context.Context, uid string) (types.Scanner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sc := range s.scanners {
		if sc.UID == uid {
			return sc, nil
		}
	}
	return types.Scanner{}, store.ErrNotFound
}

func (s *ScannerStore) List(_ context.Context) ([]types.Scanner, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.Scanner, len(s.scanners))
	copy(out, s.scanners)
	return out, nil
}

func (s *ScannerStore) NoteSeen(_ context.Context, id int64, t time.Time) error {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.scanners {
		if s.scanners[i].ID == id {
			seen := t
			s.scanners[i].LastSeenAt = &seen
			break
		}
	}
	return nil
}
