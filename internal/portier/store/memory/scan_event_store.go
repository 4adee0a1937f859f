package memory

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/portier-acs/portier/server/internal/portier/store"
	"github.com/portier-acs/portier/server/internal/portier/types"
)

// ScanEventStore is an in-memory append-only audit log for tests and dev.
type ScanEventStore struct {
	mu     sync.Mutex
	nextID int64
	events []types.ScanEvent

	// failNext makes the next Append return an error.  Test helper for
	// the audit-write-failure path.
	failNext bool
}

func NewScanEventStore() *ScanEventStore {
	return &ScanEventStore{nextID: 1}
}

// FailNextAppend arms a one-shot Append failure.  Test helper.
func (s *ScanEventStore) FailNextAppend() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = true
}

func (s *ScanEventStore) Append(_ context.Context, ev types.ScanEvent) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.failNext {
		s.failNext = false
		return 0, errors.New("append failed (injected)")
	}

	ev.ID = s.nextID
	s.nextID++
	s.events = append(s.events, ev)
	return ev.ID, nil
}

func (s *ScanEventStore) List(_ context.Context, f store.EventFilter) ([]types.ScanEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.ScanEvent
	for i := len(s.events) - 1; i >= 0; i-- {
		ev := s.events[i]
		if f.UserID != nil && (ev.UserID == nil || *ev.UserID != *f.UserID) {
			continue
		}
		if f.ScannerID != nil && ev.ScannerID != *f.ScannerID {
			continue
		}
		out = append(out, ev)
		if f.Limit > 0 && len(out) == f.Limit {
			break
		}
	}
	return out, nil
}

func (s *ScanEventStore) PruneOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var kept []types.ScanEvent
	var deleted int64
	for _, ev := range s.events {
		if ev.ScannedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, ev)
	}
	s.events = kept
	return deleted, nil
}

// Events returns a copy of all recorded events, oldest first.  Test-only
// helper.
func (s *ScanEventStore) Events() []types.ScanEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.ScanEvent, len(s.events))
	copy(out, s.events)
	return out
}
