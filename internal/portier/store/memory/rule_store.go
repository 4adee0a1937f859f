package memory

import (
	"context"
	"sync"

	"github.com/portier-acs/portier/server/internal/portier/store"
	"github.com/portier-acs/portier/server/internal/portier/types"
)

// RuleStore is an in-memory RuleStore for tests and dev.  Foreign keys are
// checked against the user/scanner id sets registered via AddUser and
// AddScanner so service-level validation paths can be exercised.
type RuleStore struct {
	mu       sync.Mutex
	nextID   int64
	rules    map[int64]types.AccessRule
	users    map[int64]struct{}
	scanners map[int64]struct{}
}

func NewRuleStore() *RuleStore {
	return &RuleStore{
		nextID:   1,
		rules:    make(map[int64]types.AccessRule),
		users:    make(map[int64]struct{}),
		scanners: make(map[int64]struct{}),
	}
}

// AddUser registers a user id for foreign-key checks.  Test helper.
func (s *RuleStore) AddUser(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = struct{}{}
}

// AddScanner registers a scanner id for foreign-key checks.  Test helper.
func (s *RuleStore) AddScanner(id int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scanners[id] = struct{}{}
}

func (s *RuleStore) Create(_ context.Context, rule types.AccessRule) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[rule.UserID]; !ok {
		return 0, store.ErrMissingReference
	}
	if _, ok := s.scanners[rule.ScannerID]; !ok {
		return 0, store.ErrMissingReference
	}

	rule.ID = s.nextID
	s.nextID++
	rule.Weekdays = append([]types.Weekday(nil), rule.Weekdays...)
	s.rules[rule.ID] = rule
	return rule.ID, nil
}

func (s *RuleStore) Get(_ context.Context, id int64) (types.AccessRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rules[id]
	if !ok {
		return types.AccessRule{}, store.ErrNotFound
	}
	return r, nil
}

func (s *RuleStore) ListActive(_ context.Context, f store.RuleFilter) ([]types.AccessRule, error) {
	return s.list(false, f), nil
}

func (s *RuleStore) ListRequests(_ context.Context, f store.RuleFilter) ([]types.AccessRule, error) {
	return s.list(true, f), nil
}

func (s *RuleStore) list(requests bool, f store.RuleFilter) []types.AccessRule {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []types.AccessRule
	for id := int64(1); id < s.nextID; id++ {
		r, ok := s.rules[id]
		if !ok || r.IsRequest != requests {
			continue
		}
		if f.UserID != nil && r.UserID != *f.UserID {
			continue
		}
		if f.ScannerID != nil && r.ScannerID != *f.ScannerID {
			continue
		}
		out = append(out, r)
	}
	return out
}

func (s *RuleStore) Promote(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rules[id]
	if !ok {
		return store.ErrNotFound
	}
	if !r.IsRequest {
		return store.ErrConflict
	}
	r.IsRequest = false
	s.rules[id] = r
	return nil
}

func (s *RuleStore) DeleteRequest(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rules[id]
	if !ok {
		return store.ErrNotFound
	}
	if !r.IsRequest {
		return store.ErrConflict
	}
	delete(s.rules, id)
	return nil
}

func (s *RuleStore) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rules[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.rules, id)
	return nil
}
