package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dbpkg "github.com/portier-acs/portier/server/internal/db"
	"github.com/portier-acs/portier/server/internal/portier/store"
	"github.com/portier-acs/portier/server/internal/portier/types"
)

// defaultEventListLimit caps audit queries that do not supply a limit.
const defaultEventListLimit = 200

type ScanEventStore struct {
	conn   *sql.DB
	writer *dbpkg.Worker
}

func NewScanEventStore(conn *sql.DB, writer *dbpkg.Worker) *ScanEventStore {
	return &ScanEventStore{conn: conn, writer: writer}
}

func (s *ScanEventStore) Append(ctx context.Context, ev types.ScanEvent) (int64, error) {
	if ev.ScannedAt.IsZero() {
		ev.ScannedAt = time.Now().UTC()
	}

	var userID any
	if ev.UserID != nil {
		userID = *ev.UserID
	}

	var id int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO scan_events(user_id, scanner_id, decision, scanned_at_ms, recorded_at_ms)
VALUES (?, ?, ?, ?, ?);
`, userID, ev.ScannerID, string(ev.Decision),
			ev.ScannedAt.UTC().UnixMilli(), time.Now().UTC().UnixMilli())
		if err != nil {
			if isForeignKeyViolation(err) {
				return store.ErrMissingReference
			}
			return fmt.Errorf("Append scan event: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("Append last insert id: %w", err)
		}
		return nil
	})
	return id, err
}

func (s *ScanEventStore) List(ctx context.Context, f store.EventFilter) ([]types.ScanEvent, error) {
	limit := f.Limit
	if limit <= 0 {
		limit = defaultEventListLimit
	}

	var userID, scannerID any
	if f.UserID != nil {
		userID = *f.UserID
	}
	if f.ScannerID != nil {
		scannerID = *f.ScannerID
	}

	rows, err := s.conn.QueryContext(ctx, `
SELECT id, user_id, scanner_id, decision, scanned_at_ms
FROM scan_events
WHERE (? IS NULL OR user_id = ?)
  AND (? IS NULL OR scanner_id = ?)
ORDER BY scanned_at_ms DESC, id DESC
LIMIT ?;
`, userID, userID, scannerID, scannerID, limit)
	if err != nil {
		return nil, fmt.Errorf("List scan events: %w", err)
	}
	defer rows.Close()

	var out []types.ScanEvent
	for rows.Next() {
		var (
			ev        types.ScanEvent
			user      sql.NullInt64
			scannedMs int64
			decision  string
		)
		if err := rows.Scan(&ev.ID, &user, &ev.ScannerID, &decision, &scannedMs); err != nil {
			return nil, fmt.Errorf("List scan events scan: %w", err)
		}
		if user.Valid {
			v := user.Int64
			ev.UserID = &v
		}
		ev.Decision = types.Decision(decision)
		ev.ScannedAt = time.UnixMilli(scannedMs).UTC()
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List scan events rows: %w", err)
	}
	return out, nil
}

// PruneOlderThan uses the idx_scan_events_time index for an efficient
// range delete.  Only the retention pruner calls this.
func (s *ScanEventStore) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoffMs := cutoff.UTC().UnixMilli()

	var deleted int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
DELETE FROM scan_events WHERE scanned_at_ms < ?;
`, cutoffMs)
		if err != nil {
			return fmt.Errorf("PruneOlderThan: %w", err)
		}
		deleted, _ = res.RowsAffected()
		return nil
	})
	return deleted, err
}
