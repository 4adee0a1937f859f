package sqlite_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/portier-acs/portier/server/internal/db"
	"github.com/portier-acs/portier/server/internal/portier/types"
)

// openTestDB returns an in-memory SQLite connection with the same PRAGMAs
// and schema as production.  The connection is closed automatically when the
// test finishes.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()

	// Each call gets a unique in-memory database.  The shared-cache URI
	// keeps the database alive for the lifetime of the connection pool
	// (important because sql.DB may close/reopen the underlying conn).
	dsn := fmt.Sprintf(
		"file:test_%s?mode=memory&cache=shared&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)&_pragma=busy_timeout(5000)",
		t.Name(),
	)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("openTestDB: sql.Open: %v", err)
	}

	// Match production: single connection for SQLite safety.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)
	conn.SetConnMaxLifetime(0)

	if err := conn.Ping(); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: ping: %v", err)
	}

	// Apply the same migrations as production.
	if err := db.Migrate(context.Background(), conn); err != nil {
		conn.Close()
		t.Fatalf("openTestDB: migrate: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// newTestWriter returns a db.Worker backed by conn.  The worker is closed
// automatically when the test finishes.
func newTestWriter(t *testing.T, conn *sql.DB) *db.Worker {
	t.Helper()

	w := db.NewWorker(conn)
	t.Cleanup(func() { w.Close() })
	return w
}

// seedUser inserts a user row directly and returns its id.
func seedUser(t *testing.T, conn *sql.DB, username string) int64 {
	t.Helper()

	res, err := conn.Exec(
		`INSERT INTO users(username, role, created_at_ms) VALUES (?, 'basic', ?);`,
		username, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		t.Fatalf("seedUser %q: %v", username, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("seedUser %q: %v", username, err)
	}
	return id
}

// seedScanner inserts a scanner row directly and returns its id.
func seedScanner(t *testing.T, conn *sql.DB, uid string) int64 {
	t.Helper()

	now := time.Now().UTC().UnixMilli()
	res, err := conn.Exec(
		`INSERT INTO scanners(uid, created_at_ms, updated_at_ms) VALUES (?, ?, ?);`,
		uid, now, now,
	)
	if err != nil {
		t.Fatalf("seedScanner %q: %v", uid, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		t.Fatalf("seedScanner %q: %v", uid, err)
	}
	return id
}

// testRule builds a Mon-Fri office hours rule for the given ids.
func testRule(t *testing.T, userID, scannerID int64) types.AccessRule {
	t.Helper()

	start, err := types.ParseTimeOfDay("09:00:00")
	if err != nil {
		t.Fatal(err)
	}
	end, err := types.ParseTimeOfDay("17:00:00")
	if err != nil {
		t.Fatal(err)
	}
	from, err := types.ParseDate("2024-01-01")
	if err != nil {
		t.Fatal(err)
	}
	to, err := types.ParseDate("2024-12-31")
	if err != nil {
		t.Fatal(err)
	}
	return types.AccessRule{
		UserID:    userID,
		ScannerID: scannerID,
		TimeStart: start,
		TimeEnd:   end,
		ValidFrom: from,
		ValidTo:   to,
		Weekdays: []types.Weekday{
			types.Monday, types.Tuesday, types.Wednesday,
			types.Thursday, types.Friday,
		},
	}
}
