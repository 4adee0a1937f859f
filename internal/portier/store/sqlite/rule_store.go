package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	dbpkg "github.com/portier-acs/portier/server/internal/db"
	"github.com/portier-acs/portier/server/internal/portier/store"
	"github.com/portier-acs/portier/server/internal/portier/types"
)

type RuleStore struct {
	conn   *sql.DB
	writer *dbpkg.Worker
}

func NewRuleStore(conn *sql.DB, writer *dbpkg.Worker) *RuleStore {
	return &RuleStore{conn: conn, writer: writer}
}

// weekday n (Sunday=1 .. Saturday=7) occupies bit n-1 of weekday_mask.

func maskFromWeekdays(days []types.Weekday) int {
	mask := 0
	for _, d := range days {
		mask |= 1 << (int(d) - 1)
	}
	return mask
}

func weekdaysFromMask(mask int) []types.Weekday {
	var days []types.Weekday
	for d := types.Sunday; d <= types.Saturday; d++ {
		if mask&(1<<(int(d)-1)) != 0 {
			days = append(days, d)
		}
	}
	return days
}

func (s *RuleStore) Create(ctx context.Context, rule types.AccessRule) (int64, error) {
	isRequest := 0
	if rule.IsRequest {
		isRequest = 1
	}
	now := time.Now().UTC().UnixMilli()

	var id int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO access_rules(
  user_id, scanner_id, time_start_s, time_end_s,
  valid_from, valid_to, weekday_mask, is_request, created_at_ms
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?);
`,
			rule.UserID, rule.ScannerID, int(rule.TimeStart), int(rule.TimeEnd),
			rule.ValidFrom.String(), rule.ValidTo.String(),
			maskFromWeekdays(rule.Weekdays), isRequest, now,
		)
		if err != nil {
			if isForeignKeyViolation(err) {
				return store.ErrMissingReference
			}
			return fmt.Errorf("Create insert rule: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("Create last insert id: %w", err)
		}
		return nil
	})
	return id, err
}

const ruleColumns = `id, user_id, scanner_id, time_start_s, time_end_s,
valid_from, valid_to, weekday_mask, is_request`

func scanRule(row interface{ Scan(dest ...any) error }) (types.AccessRule, error) {
	var (
		r               types.AccessRule
		startS, endS    int
		fromStr, toStr  string
		mask, isRequest int
	)
	if err := row.Scan(&r.ID, &r.UserID, &r.ScannerID, &startS, &endS,
		&fromStr, &toStr, &mask, &isRequest); err != nil {
		return types.AccessRule{}, err
	}

	r.TimeStart = types.TimeOfDay(startS)
	r.TimeEnd = types.TimeOfDay(endS)
	r.Weekdays = weekdaysFromMask(mask)
	r.IsRequest = isRequest == 1

	var err error
	if r.ValidFrom, err = types.ParseDate(fromStr); err != nil {
		return types.AccessRule{}, fmt.Errorf("stored valid_from: %w", err)
	}
	if r.ValidTo, err = types.ParseDate(toStr); err != nil {
		return types.AccessRule{}, fmt.Errorf("stored valid_to: %w", err)
	}
	return r, nil
}

func (s *RuleStore) Get(ctx context.Context, id int64) (types.AccessRule, error) {
	row := s.conn.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM access_rules WHERE id = ?;`, id)
	r, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.AccessRule{}, store.ErrNotFound
	}
	if err != nil {
		return types.AccessRule{}, fmt.Errorf("Get rule %d: %w", id, err)
	}
	return r, nil
}

func (s *RuleStore) ListActive(ctx context.Context, f store.RuleFilter) ([]types.AccessRule, error) {
	return s.list(ctx, false, f)
}

func (s *RuleStore) ListRequests(ctx context.Context, f store.RuleFilter) ([]types.AccessRule, error) {
	return s.list(ctx, true, f)
}

func (s *RuleStore) list(ctx context.Context, requests bool, f store.RuleFilter) ([]types.AccessRule, error) {
	isRequest := 0
	if requests {
		isRequest = 1
	}

	// Fixed query shape with optional equality filters; no dynamic SQL.
	query := `SELECT ` + ruleColumns + `
FROM access_rules
WHERE is_request = ?
  AND (? IS NULL OR user_id = ?)
  AND (? IS NULL OR scanner_id = ?)
ORDER BY id;`

	var userID, scannerID any
	if f.UserID != nil {
		userID = *f.UserID
	}
	if f.ScannerID != nil {
		scannerID = *f.ScannerID
	}

	rows, err := s.conn.QueryContext(ctx, query,
		isRequest, userID, userID, scannerID, scannerID)
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	var out []types.AccessRule
	for rows.Next() {
		r, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("list rules scan: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list rules rows: %w", err)
	}
	return out, nil
}

func (s *RuleStore) Promote(ctx context.Context, id int64) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
UPDATE access_rules SET is_request = 0 WHERE id = ? AND is_request = 1;
`, id)
		if err != nil {
			return fmt.Errorf("Promote update: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("Promote rows affected: %w", err)
		}
		if n == 1 {
			return nil
		}

		// Nothing flipped: distinguish "no such rule" from "already
		// active" inside the same transaction.
		var exists int
		err = tx.QueryRowContext(ctx,
			`SELECT 1 FROM access_rules WHERE id = ?;`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("Promote probe: %w", err)
		}
		return store.ErrConflict
	})
}

func (s *RuleStore) DeleteRequest(ctx context.Context, id int64) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM access_rules WHERE id = ? AND is_request = 1;`, id)
		if err != nil {
			return fmt.Errorf("DeleteRequest: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("DeleteRequest rows affected: %w", err)
		}
		if n == 1 {
			return nil
		}

		// Nothing deleted: distinguish "no such rule" from "already
		// active" inside the same transaction.
		var exists int
		err = tx.QueryRowContext(ctx,
			`SELECT 1 FROM access_rules WHERE id = ?;`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return store.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("DeleteRequest probe: %w", err)
		}
		return store.ErrConflict
	})
}

func (s *RuleStore) Delete(ctx context.Context, id int64) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM access_rules WHERE id = ?;`, id)
		if err != nil {
			return fmt.Errorf("Delete rule: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("Delete rows affected: %w", err)
		}
		if n == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}
