package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
)

// EventIterator is a pull-based, finite, non-restartable reader over a
// streamed query result set. Grounded in the general Go idiom of wrapping
// *sql.Rows behind a narrow Next/Close surface used throughout
// internal/database's row-scanning helpers; no pack example defines an
// iterator type of its own to ground this against more directly (see
// DESIGN.md).
type EventIterator struct {
	rows   *sql.Rows
	closed bool
}

func newEventIterator(rows *sql.Rows) *EventIterator {
	return &EventIterator{rows: rows}
}

// Next advances the iterator and decodes the next row via scanEvent. Returns
// (nil, false, nil) once exhausted.
func (it *EventIterator) Next(ctx context.Context) (*Event, bool, error) {
	if it.closed {
		return nil, false, nil
	}

	if !it.rows.Next() {
		if err := it.rows.Err(); err != nil {
			return nil, false, fmt.Errorf("iterating events: %w", err)
		}
		_ = it.Close()
		return nil, false, nil
	}

	ev, err := scanEvent(it.rows)
	if err != nil {
		return nil, false, err
	}
	return ev, true, nil
}

// Close releases the underlying rows; safe to call multiple times.
func (it *EventIterator) Close() error {
	if it.closed {
		return nil
	}
	it.closed = true
	return it.rows.Close()
}

// eventColumns is the fixed column order every SELECT against events uses,
// matched by scanEvent.
const eventColumns = `eventid, headId, streamIds, time, endTime, deleted, type, content, description, clientData, integrity, attachments, trashed, created, createdBy, modified, modifiedBy`

func scanEvent(rows *sql.Rows) (*Event, error) {
	var (
		ev                                            Event
		headID, content, description, clientData      sql.NullString
		integrity, attachments                         sql.NullString
		endTime, deleted                               sql.NullFloat64
		streamIDs                                      string
		trashed                                        int
	)

	if err := rows.Scan(
		&ev.ID, &headID, &streamIDs, &ev.Time, &endTime, &deleted, &ev.Type,
		&content, &description, &clientData, &integrity, &attachments,
		&trashed, &ev.Created, &ev.CreatedBy, &ev.Modified, &ev.ModifiedBy,
	); err != nil {
		return nil, fmt.Errorf("scanning event row: %w", err)
	}

	ev.HeadID = headID.String
	ev.StreamIDs = decodeStreamIDs(streamIDs)
	ev.Trashed = trashed != 0
	ev.Description = description.String
	ev.Integrity = integrity.String

	if endTime.Valid {
		ev.EndTime = &endTime.Float64
	}
	if deleted.Valid {
		ev.Deleted = &deleted.Float64
	}
	if content.Valid && content.String != "" {
		if err := json.Unmarshal([]byte(content.String), &ev.Content); err != nil {
			return nil, fmt.Errorf("decoding event content: %w", err)
		}
	}
	if clientData.Valid && clientData.String != "" {
		if err := json.Unmarshal([]byte(clientData.String), &ev.ClientData); err != nil {
			return nil, fmt.Errorf("decoding event clientData: %w", err)
		}
	}
	if attachments.Valid && attachments.String != "" {
		if err := json.Unmarshal([]byte(attachments.String), &ev.Attachments); err != nil {
			return nil, fmt.Errorf("decoding event attachments: %w", err)
		}
	}

	return &ev, nil
}
