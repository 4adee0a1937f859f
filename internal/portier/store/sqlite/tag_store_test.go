package sqlite_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/portier-acs/portier/server/internal/portier/store"
	sqlitestore "github.com/portier-acs/portier/server/internal/portier/store/sqlite"
)

func TestTagStore_ResolveOrRegister(t *testing.T) {
	conn := openTestDB(t)
	ts := sqlitestore.NewTagStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	tag, existed, err := ts.ResolveOrRegister(ctx, "04AABBCCDD")
	if err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if existed {
		t.Error("first sighting reported existed=true")
	}
	if tag.ID == 0 || tag.UID != "04AABBCCDD" {
		t.Errorf("first resolve returned %+v", tag)
	}
	if tag.OwnerUserID != nil {
		t.Errorf("auto-registered tag has owner %d", *tag.OwnerUserID)
	}

	again, existed, err := ts.ResolveOrRegister(ctx, "04AABBCCDD")
	if err != nil {
		t.Fatalf("second resolve: %v", err)
	}
	if !existed {
		t.Error("second sighting reported existed=false")
	}
	if again.ID != tag.ID {
		t.Errorf("second resolve returned id %d, want %d", again.ID, tag.ID)
	}
}

func TestTagStore_ConcurrentRegistrationConverges(t *testing.T) {
	conn := openTestDB(t)
	ts := sqlitestore.NewTagStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	const workers = 10
	ids := make([]int64, workers)
	errs := make([]error, workers)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tag, _, err := ts.ResolveOrRegister(ctx, "TAG-RACE")
			ids[i], errs[i] = tag.ID, err
		}(i)
	}
	wg.Wait()

	for i := 0; i < workers; i++ {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		if ids[i] != ids[0] {
			t.Fatalf("worker %d got id %d, worker 0 got %d", i, ids[i], ids[0])
		}
	}

	var count int
	if err := conn.QueryRow(`SELECT COUNT(*) FROM tags WHERE uid = 'TAG-RACE';`).Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Errorf("concurrent registration produced %d rows, want 1", count)
	}
}

func TestTagStore_AssignOwnerAndListUnassigned(t *testing.T) {
	conn := openTestDB(t)
	ts := sqlitestore.NewTagStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	userID := seedUser(t, conn, "alice")

	first, _, err := ts.ResolveOrRegister(ctx, "TAG-A")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, _, err := ts.ResolveOrRegister(ctx, "TAG-B"); err != nil {
		t.Fatalf("register: %v", err)
	}

	unassigned, err := ts.ListUnassigned(ctx)
	if err != nil {
		t.Fatalf("list unassigned: %v", err)
	}
	if len(unassigned) != 2 {
		t.Fatalf("got %d unassigned tags, want 2", len(unassigned))
	}

	if err := ts.AssignOwner(ctx, first.ID, userID); err != nil {
		t.Fatalf("assign: %v", err)
	}

	unassigned, err = ts.ListUnassigned(ctx)
	if err != nil {
		t.Fatalf("list unassigned: %v", err)
	}
	if len(unassigned) != 1 || unassigned[0].UID != "TAG-B" {
		t.Errorf("after assign: got %+v, want only TAG-B", unassigned)
	}

	tag, existed, err := ts.ResolveOrRegister(ctx, "TAG-A")
	if err != nil || !existed {
		t.Fatalf("resolve assigned tag: existed=%v err=%v", existed, err)
	}
	if tag.OwnerUserID == nil || *tag.OwnerUserID != userID {
		t.Errorf("assigned tag owner = %v, want %d", tag.OwnerUserID, userID)
	}
}

func TestTagStore_AssignOwnerErrors(t *testing.T) {
	conn := openTestDB(t)
	ts := sqlitestore.NewTagStore(conn, newTestWriter(t, conn))
	ctx := context.Background()

	userID := seedUser(t, conn, "alice")

	if err := ts.AssignOwner(ctx, 999, userID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("unknown tag: got %v, want ErrNotFound", err)
	}

	tag, _, err := ts.ResolveOrRegister(ctx, "TAG-A")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := ts.AssignOwner(ctx, tag.ID, 999); !errors.Is(err, store.ErrMissingReference) {
		t.Errorf("unknown user: got %v, want ErrMissingReference", err)
	}
}
