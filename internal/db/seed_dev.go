package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// SeedDev inserts a small fixture set for local development: one scanner,
// one user per role, a tag owned by the basic user, and a weekday
// business-hours rule.  Every statement is idempotent so repeated startups
// are safe.  Never called in prod.
func SeedDev(ctx context.Context, conn *sql.DB) error {
	now := time.Now().UTC().UnixMilli()

	users := []struct {
		username string
		role     string
	}{
		{"admin", "administrator"},
		{"mod", "moderator"},
		{"alice", "basic"},
	}
	for _, u := range users {
		if _, err := conn.ExecContext(ctx, `
INSERT OR IGNORE INTO users(username, role, created_at_ms)
VALUES (?, ?, ?);`, u.username, u.role, now); err != nil {
			return fmt.Errorf("seed user %s: %w", u.username, err)
		}
	}

	if _, err := conn.ExecContext(ctx, `
INSERT OR IGNORE INTO scanners(uid, description, created_at_ms, updated_at_ms)
VALUES ('SCN-DEV-01', 'Dev front door', ?, ?);`, now, now); err != nil {
		return fmt.Errorf("seed scanner: %w", err)
	}

	if _, err := conn.ExecContext(ctx, `
INSERT OR IGNORE INTO tags(uid, description, user_id, created_at_ms)
VALUES ('04AABBCCDD', 'Dev tag (alice)',
        (SELECT id FROM users WHERE username = 'alice'), ?);`, now); err != nil {
		return fmt.Errorf("seed tag: %w", err)
	}

	// Mon-Fri 09:00:00-17:00:00 for the current year, idempotent via the
	// probe on an identical existing row.
	year := time.Now().UTC().Year()
	from := fmt.Sprintf("%04d-01-01", year)
	to := fmt.Sprintf("%04d-12-31", year)
	const monToFriMask = 0b0111110 // weekdays 2..6, bit (n-1) per weekday n
	if _, err := conn.ExecContext(ctx, `
INSERT INTO access_rules(user_id, scanner_id, time_start_s, time_end_s,
                         valid_from, valid_to, weekday_mask, is_request,
                         created_at_ms)
SELECT u.id, s.id, 32400, 61200, ?, ?, ?, 0, ?
FROM users u, scanners s
WHERE u.username = 'alice' AND s.uid = 'SCN-DEV-01'
  AND NOT EXISTS (
    SELECT 1 FROM access_rules r
    WHERE r.user_id = u.id AND r.scanner_id = s.id
      AND r.valid_from = ? AND r.valid_to = ?
  );`, from, to, monToFriMask, now, from, to); err != nil {
		return fmt.Errorf("seed rule: %w", err)
	}

	return nil
}
