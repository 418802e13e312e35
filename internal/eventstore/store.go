package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/streamhub/corehub/internal/database"
)

var ErrNotFound = errors.New("event not found")

// Store is the per-user event database's operation surface.
type Store struct {
	db *DB
}

func NewStore(db *DB) *Store { return &Store{db: db} }

// Create inserts a new live event, serialised through retryOnBusy so a
// concurrent writer's SQLITE_BUSY is resubmitted rather than surfaced.
func (s *Store) Create(ctx context.Context, ev *Event) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}

	content, err := marshalNullable(ev.Content)
	if err != nil {
		return fmt.Errorf("marshaling content: %w", err)
	}
	clientData, err := marshalNullable(ev.ClientData)
	if err != nil {
		return fmt.Errorf("marshaling clientData: %w", err)
	}
	attachments, err := marshalNullable(ev.Attachments)
	if err != nil {
		return fmt.Errorf("marshaling attachments: %w", err)
	}

	return retryOnBusy(ctx, s.db, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO events (eventid, headId, streamIds, time, endTime, deleted, type, content, description, clientData, integrity, attachments, trashed, created, createdBy, modified, modifiedBy)
			VALUES (?, NULL, ?, ?, ?, NULL, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			ev.ID, encodeStreamIDs(ev.StreamIDs), ev.Time, nullableFloat(ev.EndTime), ev.Type,
			content, ev.Description, clientData, nullString(ev.Integrity), attachments,
			boolToInt(ev.Trashed), ev.Created, ev.CreatedBy, ev.Modified, ev.ModifiedBy,
		)
		return err
	})
}

// captureHistory inserts a history row carrying the live event's current
// values under a fresh id, pointed back at headID via headId, preserving
// the pre-image before the caller overwrites the live row. Must run in the
// same transaction as the mutation it precedes.
func captureHistory(ctx context.Context, tx *database.Tx, headID string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO events (eventid, headId, streamIds, time, endTime, deleted, type, content, description, clientData, integrity, attachments, trashed, created, createdBy, modified, modifiedBy)
		SELECT ?, eventid, streamIds, time, endTime, deleted, type, content, description, clientData, integrity, attachments, trashed, created, createdBy, modified, modifiedBy
		FROM events WHERE eventid = ? AND headId IS NULL
	`, uuid.New().String(), headID)
	return err
}

// Update captures history then rewrites every non-key column of the live
// event in one UPDATE; returns ErrNotFound if that UPDATE doesn't affect
// exactly one row.
func (s *Store) Update(ctx context.Context, ev *Event) error {
	content, err := marshalNullable(ev.Content)
	if err != nil {
		return fmt.Errorf("marshaling content: %w", err)
	}
	clientData, err := marshalNullable(ev.ClientData)
	if err != nil {
		return fmt.Errorf("marshaling clientData: %w", err)
	}
	attachments, err := marshalNullable(ev.Attachments)
	if err != nil {
		return fmt.Errorf("marshaling attachments: %w", err)
	}

	return retryOnBusy(ctx, s.db, func() error {
		return s.db.Transaction(ctx, func(tx *database.Tx) error {
			if err := captureHistory(ctx, tx, ev.ID); err != nil {
				return fmt.Errorf("capturing history: %w", err)
			}

			result, err := tx.ExecContext(ctx, `
				UPDATE events SET
					streamIds = ?, time = ?, endTime = ?, type = ?, content = ?,
					description = ?, clientData = ?, integrity = ?, attachments = ?,
					trashed = ?, modified = ?, modifiedBy = ?
				WHERE eventid = ? AND headId IS NULL
			`,
				encodeStreamIDs(ev.StreamIDs), ev.Time, nullableFloat(ev.EndTime), ev.Type, content,
				ev.Description, clientData, nullString(ev.Integrity), attachments,
				boolToInt(ev.Trashed), ev.Modified, ev.ModifiedBy,
				ev.ID,
			)
			if err != nil {
				return err
			}

			affected, err := result.RowsAffected()
			if err != nil {
				return err
			}
			if affected != 1 {
				return ErrNotFound
			}
			return nil
		})
	})
}

// Delete tombstones an event (deleted=timestamp, streamIds collapsed to
// the universal tag) or, when physical is true, removes the row outright
// — physical deletion is only used by test fixtures and TTL cleanup.
func (s *Store) Delete(ctx context.Context, eventID string, deletedAt float64, physical bool) error {
	return retryOnBusy(ctx, s.db, func() error {
		if physical {
			_, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE eventid = ?`, eventID)
			return err
		}

		result, err := s.db.ExecContext(ctx, `
			UPDATE events SET deleted = ?, streamIds = ?, modified = ?
			WHERE eventid = ? AND headId IS NULL AND deleted IS NULL
		`, deletedAt, tombstoneStreamIDs(), deletedAt, eventID)
		if err != nil {
			return err
		}
		affected, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if affected != 1 {
			return ErrNotFound
		}
		return nil
	})
}

// DeleteByStreamQuery iterates events matched by a stream query and
// deletes them one by one, since SQLite cannot DELETE across an FTS5
// MATCH in a single statement.
func (s *Store) DeleteByStreamQuery(ctx context.Context, andBlocks [][]StreamMatch, deletedAt float64, physical bool) (int, error) {
	expr := CompileStreamQuery(andBlocks)
	if expr == "" {
		return 0, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT e.eventid FROM events e
		JOIN events_fts f ON f.eventid = e.eventid
		WHERE events_fts MATCH ? AND e.headId IS NULL AND e.deleted IS NULL
	`, expr)
	if err != nil {
		return 0, fmt.Errorf("matching events for delete: %w", err)
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scanning matched event id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	deleted := 0
	for _, id := range ids {
		if err := s.Delete(ctx, id, deletedAt, physical); err != nil && !errors.Is(err, ErrNotFound) {
			return deleted, err
		}
		deleted++
	}
	return deleted, nil
}

// MinimiseHistory nulls out content, description, clientData, integrity and
// attachments of every history row for headID (privacy after a hard delete
// of the live event), sets their type to "minimised/minimised" and collapses
// their streamIds to the universal tag. Time, created and modified columns
// are left as they are.
func (s *Store) MinimiseHistory(ctx context.Context, headID string) error {
	return retryOnBusy(ctx, s.db, func() error {
		_, err := s.db.ExecContext(ctx, `
			UPDATE events SET
				streamIds = ?, content = NULL, description = NULL, clientData = NULL,
				integrity = NULL, attachments = NULL, type = 'minimised/minimised'
			WHERE headId = ?
		`, tombstoneStreamIDs(), headID)
		return err
	})
}

// Find runs a compiled structured query (with the implicit
// "deleted IS NULL AND headId IS NULL" filter) and returns a streaming
// iterator over the matches, ordered by time descending.
func (s *Store) Find(ctx context.Context, items []QueryItem, limit int) (*EventIterator, error) {
	where, args := CompileQuery(items)
	if where != "" {
		where = baseFilter + " AND " + where
	} else {
		where = baseFilter
	}

	query := fmt.Sprintf(`SELECT %s FROM events WHERE %s ORDER BY time DESC`, eventColumns, where)
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	return newEventIterator(rows), nil
}

// History streams every history row (headId = the live event's id) for
// eventID, oldest first.
func (s *Store) History(ctx context.Context, eventID string) (*EventIterator, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf(`SELECT %s FROM events WHERE headId = ? ORDER BY modified ASC`, eventColumns), eventID)
	if err != nil {
		return nil, fmt.Errorf("querying event history: %w", err)
	}
	return newEventIterator(rows), nil
}

func marshalNullable(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
