package sqlite_test

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/portier-acs/portier/server/internal/portier/store"
	sqlitestore "github.com/portier-acs/portier/server/internal/portier/store/sqlite"
	"github.com/portier-acs/portier/server/internal/portier/types"
)

func TestRuleStore_CreateGetRoundTrip(t *testing.T) {
	conn := openTestDB(t)
	writer := newTestWriter(t, conn)
	rs := sqlitestore.NewRuleStore(conn, writer)
	ctx := context.Background()

	userID := seedUser(t, conn, "alice")
	scannerID := seedScanner(t, conn, "SCN-01")

	rule := testRule(t, userID, scannerID)
	id, err := rs.Create(ctx, rule)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == 0 {
		t.Fatal("create returned id 0")
	}

	got, err := rs.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	rule.ID = id
	if !reflect.DeepEqual(got, rule) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, rule)
	}
}

func TestRuleStore_GetUnknown(t *testing.T) {
	conn := openTestDB(t)
	rs := sqlitestore.NewRuleStore(conn, newTestWriter(t, conn))

	if _, err := rs.Get(context.Background(), 42); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestRuleStore_CreateRejectsUnknownReferences(t *testing.T) {
	conn := openTestDB(t)
	rs := sqlitestore.NewRuleStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	userID := seedUser(t, conn, "alice")
	scannerID := seedScanner(t, conn, "SCN-01")

	rule := testRule(t, userID, 999)
	if _, err := rs.Create(ctx, rule); !errors.Is(err, store.ErrMissingReference) {
		t.Errorf("unknown scanner: got %v, want ErrMissingReference", err)
	}

	rule = testRule(t, 999, scannerID)
	if _, err := rs.Create(ctx, rule); !errors.Is(err, store.ErrMissingReference) {
		t.Errorf("unknown user: got %v, want ErrMissingReference", err)
	}
}

func TestRuleStore_ListFilters(t *testing.T) {
	conn := openTestDB(t)
	rs := sqlitestore.NewRuleStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	alice := seedUser(t, conn, "alice")
	bob := seedUser(t, conn, "bob")
	front := seedScanner(t, conn, "SCN-FRONT")
	back := seedScanner(t, conn, "SCN-BACK")

	mustCreate := func(r types.AccessRule) int64 {
		id, err := rs.Create(ctx, r)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		return id
	}

	mustCreate(testRule(t, alice, front))
	mustCreate(testRule(t, alice, back))
	mustCreate(testRule(t, bob, front))

	req := testRule(t, bob, back)
	req.IsRequest = true
	reqID := mustCreate(req)

	all, err := rs.ListActive(ctx, store.RuleFilter{})
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("unfiltered active: got %d, want 3", len(all))
	}

	byUser, err := rs.ListActive(ctx, store.RuleFilter{UserID: &alice})
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(byUser) != 2 {
		t.Errorf("alice's rules: got %d, want 2", len(byUser))
	}

	byBoth, err := rs.ListActive(ctx, store.RuleFilter{UserID: &alice, ScannerID: &back})
	if err != nil {
		t.Fatalf("list by both: %v", err)
	}
	if len(byBoth) != 1 || byBoth[0].UserID != alice || byBoth[0].ScannerID != back {
		t.Errorf("alice at back: got %+v, want one rule", byBoth)
	}

	requests, err := rs.ListRequests(ctx, store.RuleFilter{})
	if err != nil {
		t.Fatalf("list requests: %v", err)
	}
	if len(requests) != 1 || requests[0].ID != reqID {
		t.Errorf("requests: got %+v, want the one pending request", requests)
	}
}

func TestRuleStore_Promote(t *testing.T) {
	conn := openTestDB(t)
	rs := sqlitestore.NewRuleStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	userID := seedUser(t, conn, "alice")
	scannerID := seedScanner(t, conn, "SCN-01")

	req := testRule(t, userID, scannerID)
	req.IsRequest = true
	id, err := rs.Create(ctx, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := rs.Promote(ctx, id); err != nil {
		t.Fatalf("promote: %v", err)
	}

	got, err := rs.Get(ctx, id)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.IsRequest {
		t.Error("promoted rule still flagged as request")
	}

	// Promoting an already-active rule is a conflict, not a no-op.
	if err := rs.Promote(ctx, id); !errors.Is(err, store.ErrConflict) {
		t.Errorf("double promote: got %v, want ErrConflict", err)
	}
	if err := rs.Promote(ctx, 999); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("promote unknown: got %v, want ErrNotFound", err)
	}
}

func TestRuleStore_DeleteRequest(t *testing.T) {
	conn := openTestDB(t)
	rs := sqlitestore.NewRuleStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	userID := seedUser(t, conn, "alice")
	scannerID := seedScanner(t, conn, "SCN-01")

	req := testRule(t, userID, scannerID)
	req.IsRequest = true
	id, err := rs.Create(ctx, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := rs.DeleteRequest(ctx, id); err != nil {
		t.Fatalf("delete request: %v", err)
	}
	if _, err := rs.Get(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("get after delete: got %v, want ErrNotFound", err)
	}
	if err := rs.DeleteRequest(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("delete twice: got %v, want ErrNotFound", err)
	}

	// A promoted request is an active rule and must survive.
	id, err = rs.Create(ctx, req)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := rs.Promote(ctx, id); err != nil {
		t.Fatalf("promote: %v", err)
	}
	if err := rs.DeleteRequest(ctx, id); !errors.Is(err, store.ErrConflict) {
		t.Errorf("delete promoted request: got %v, want ErrConflict", err)
	}
	if _, err := rs.Get(ctx, id); err != nil {
		t.Errorf("active rule gone after refused delete: %v", err)
	}
}

func TestRuleStore_Delete(t *testing.T) {
	conn := openTestDB(t)
	rs := sqlitestore.NewRuleStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	userID := seedUser(t, conn, "alice")
	scannerID := seedScanner(t, conn, "SCN-01")

	id, err := rs.Create(ctx, testRule(t, userID, scannerID))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := rs.Delete(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := rs.Get(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("get after delete: got %v, want ErrNotFound", err)
	}
	if err := rs.Delete(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("delete twice: got %v, want ErrNotFound", err)
	}
}

func TestRuleStore_WeekdayMaskRoundTrip(t *testing.T) {
	conn := openTestDB(t)
	rs := sqlitestore.NewRuleStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	userID := seedUser(t, conn, "alice")
	scannerID := seedScanner(t, conn, "SCN-01")

	sets := [][]types.Weekday{
		{types.Sunday},
		{types.Saturday},
		{types.Sunday, types.Saturday},
		{types.Sunday, types.Monday, types.Tuesday, types.Wednesday,
			types.Thursday, types.Friday, types.Saturday},
	}
	for _, days := range sets {
		rule := testRule(t, userID, scannerID)
		rule.Weekdays = days

		id, err := rs.Create(ctx, rule)
		if err != nil {
			t.Fatalf("create %v: %v", days, err)
		}
		got, err := rs.Get(ctx, id)
		if err != nil {
			t.Fatalf("get %v: %v", days, err)
		}
		if !reflect.DeepEqual(got.Weekdays, days) {
			t.Errorf("weekdays %v came back as %v", days, got.Weekdays)
		}
	}
}
