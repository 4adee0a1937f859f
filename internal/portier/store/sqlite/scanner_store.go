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

type ScannerStore struct {
	conn   *sql.DB
	writer *dbpkg.Worker
}

func NewScannerStore(conn *sql.DB, writer *dbpkg.Worker) *ScannerStore {
	return &ScannerStore{conn: conn, writer: writer}
}

func (s *ScannerStore) Create(ctx context.Context, sc types.Scanner) (int64, error) {
	now := time.Now().UTC().UnixMilli()

	var id int64
	err := s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT INTO scanners(uid, description, created_at_ms, updated_at_ms)
VALUES (?, ?, ?, ?);
`, sc.UID, sc.Description, now, now)
		if err != nil {
			if isUniqueViolation(err) {
				return store.ErrConflict
			}
			return fmt.Errorf("Create scanner: %w", err)
		}
		id, err = res.LastInsertId()
		if err != nil {
			return fmt.Errorf("Create scanner last insert id: %w", err)
		}
		return nil
	})
	return id, err
}

func (s *ScannerStore) GetByUID(ctx context.Context, uid string) (types.Scanner, error) {
	var (
		sc       types.Scanner
		lastSeen sql.NullInt64
	)
	err := s.conn.QueryRowContext(ctx, `
SELECT id, uid, description, last_seen_at_ms FROM scanners WHERE uid = ?;
`, uid).Scan(&sc.ID, &sc.UID, &sc.Description, &lastSeen)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Scanner{}, store.ErrNotFound
	}
	if err != nil {
		return types.Scanner{}, fmt.Errorf("GetByUID scanner: %w", err)
	}
	if lastSeen.Valid {
		t := time.UnixMilli(lastSeen.Int64).UTC()
		sc.LastSeenAt = &t
	}
	return sc, nil
}

func (s *ScannerStore) List(ctx context.Context) ([]types.Scanner, error) {
	rows, err := s.conn.QueryContext(ctx, `
SELECT id, uid, description, last_seen_at_ms FROM scanners ORDER BY id;
`)
	if err != nil {
		return nil, fmt.Errorf("List scanners: %w", err)
	}
	defer rows.Close()

	var out []types.Scanner
	for rows.Next() {
		var (
			sc       types.Scanner
			lastSeen sql.NullInt64
		)
		if err := rows.Scan(&sc.ID, &sc.UID, &sc.Description, &lastSeen); err != nil {
			return nil, fmt.Errorf("List scanners scan: %w", err)
		}
		if lastSeen.Valid {
			t := time.UnixMilli(lastSeen.Int64).UTC()
			sc.LastSeenAt = &t
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("List scanners rows: %w", err)
	}
	return out, nil
}

func (s *ScannerStore) NoteSeen(ctx context.Context, id int64, t time.Time) error {
	if t.IsZero() {
		t = time.Now().UTC()
	}
	ms := t.UTC().UnixMilli()

	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
UPDATE scanners SET last_seen_at_ms = ?, updated_at_ms = ? WHERE id = ?;
`, ms, ms, id); err != nil {
			return fmt.Errorf("NoteSeen: %w", err)
		}
		return nil
	})
}
