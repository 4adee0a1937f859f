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

type TagStore struct {
	conn   *sql.DB
	writer *dbpkg.Worker
}

func NewTagStore(conn *sql.DB, writer *dbpkg.Worker) *TagStore {
	return &TagStore{conn: conn, writer: writer}
}

func (s *TagStore) ResolveOrRegister(ctx context.Context, uid string) (types.Tag, bool, error) {
	// Fast path: the tag has been seen before.
	tag, err := s.getByUID(ctx, uid)
	if err == nil {
		return tag, true, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return types.Tag{}, false, err
	}

	// First sighting.  INSERT OR IGNORE through the serialized writer makes
	// concurrent registrations of the same uid converge on one row: the
	// loser of the race simply reads back the winner's insert.
	var (
		out     types.Tag
		existed bool
	)
	err = s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
INSERT OR IGNORE INTO tags(uid, created_at_ms) VALUES (?, ?);
`, uid, time.Now().UTC().UnixMilli())
		if err != nil {
			return fmt.Errorf("ResolveOrRegister insert: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("ResolveOrRegister rows affected: %w", err)
		}
		existed = n == 0

		var owner sql.NullInt64
		err = tx.QueryRowContext(ctx, `
SELECT id, uid, description, user_id FROM tags WHERE uid = ?;
`, uid).Scan(&out.ID, &out.UID, &out.Description, &owner)
		if err != nil {
			return fmt.Errorf("ResolveOrRegister read back: %w", err)
		}
		if owner.Valid {
			v := owner.Int64
			out.OwnerUserID = &v
		}
		return nil
	})
	if err != nil {
		return types.Tag{}, false, err
	}
	return out, existed, nil
}

func (s *TagStore) getByUID(ctx context.Context, uid string) (types.Tag, error) {
	var (
		tag   types.Tag
		owner sql.NullInt64
	)
	err := s.conn.QueryRowContext(ctx, `
SELECT id, uid, description, user_id FROM tags WHERE uid = ?;
`, uid).Scan(&tag.ID, &tag.UID, &tag.Description, &owner)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Tag{}, store.ErrNotFound
	}
	if err != nil {
		return types.Tag{}, fmt.Errorf("get tag by uid: %w", err)
	}
	if owner.Valid {
		v := owner.Int64
		tag.OwnerUserID = &v
	}
	return tag, nil
}

func (s *TagStore) ListUnassigned(ctx context.Context) ([]types.Tag, error) {
	rows, err := s.conn.QueryContext(ctx, `
SELECT id, uid, description FROM tags WHERE user_id IS NULL ORDER BY id;
`)
	if err != nil {
		return nil, fmt.Errorf("list unassigned tags: %w", err)
	}
	defer rows.Close()

	var out []types.Tag
	for rows.Next() {
		var tag types.Tag
		if err := rows.Scan(&tag.ID, &tag.UID, &tag.Description); err != nil {
			return nil, fmt.Errorf("list unassigned tags scan: %w", err)
		}
		out = append(out, tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list unassigned tags rows: %w", err)
	}
	return out, nil
}

func (s *TagStore) AssignOwner(ctx context.Context, tagID, userID int64) error {
	return s.writer.Do(ctx, func(ctx context.Context, tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE tags SET user_id = ? WHERE id = ?;`, userID, tagID)
		if err != nil {
			if isForeignKeyViolation(err) {
				return store.ErrMissingReference
			}
			return fmt.Errorf("AssignOwner update: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("AssignOwner rows affected: %w", err)
		}
		if n == 0 {
			return store.ErrNotFound
		}
		return nil
	})
}
