// Package accessstore persists Access records and personal-session
// bookkeeping in the per-user event database, alongside the events table —
// accesses are as much "this user's data" as their events are, so they live
// in the same SQLite file rather than a separate control-plane table. It
// implements the methodcontext.AccessLoader and
// methodcontext.Toucher ports, grounded on the same query/marshal idioms
// internal/eventstore/store.go already uses for the events table.
package accessstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/streamhub/corehub/internal/accesslogic"
	"github.com/streamhub/corehub/internal/apierror"
	"github.com/streamhub/corehub/internal/database"
	"github.com/streamhub/corehub/internal/eventstore"
)

// Store is the per-user accesses/sessions table, opened on the same
// eventstore.DB connection as that user's events.
type Store struct {
	db *eventstore.DB
}

func New(db *eventstore.DB) *Store {
	return &Store{db: db}
}

// Create persists a freshly-built access. access.ID and access.Token must
// already be set by the caller (registration, or accesses.create).
func (s *Store) Create(ctx context.Context, access *accesslogic.Access, now float64) error {
	permissions, err := json.Marshal(access.Permissions)
	if err != nil {
		return fmt.Errorf("encoding permissions: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO accesses (id, token, type, name, deviceName, permissions, calls, expires, integrity, createdBy, created, modified)
		VALUES (?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?)
	`, access.ID, access.Token, string(access.Type), access.Name, nullString(access.DeviceName),
		string(permissions), nullableFloat(access.Expires), nullString(access.Integrity),
		nullString(access.CreatedBy), now, now)
	if err != nil {
		if database.IsUniqueError(database.ClassifyError(err)) {
			return apierror.New(apierror.ItemAlreadyExists, fmt.Sprintf("an access named %q already exists", access.Name))
		}
		return fmt.Errorf("inserting access: %w", err)
	}
	return nil
}

// LoadAccess implements methodcontext.AccessLoader, resolving token to its
// persisted record. userID is accepted for interface-shape symmetry with
// cluster deployments where access lookup might need to be scoped; the
// standalone per-user database already scopes it implicitly.
func (s *Store) LoadAccess(ctx context.Context, userID, token string) (*accesslogic.Access, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, token, type, name, deviceName, permissions, calls, expires, deleted, integrity, createdBy
		FROM accesses WHERE token = ?
	`, token)

	return scanAccess(row)
}

// GetByID loads an access by its id, for accesses.get/accesses.delete.
func (s *Store) GetByID(ctx context.Context, accessID string) (*accesslogic.Access, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, token, type, name, deviceName, permissions, calls, expires, deleted, integrity, createdBy
		FROM accesses WHERE id = ?
	`, accessID)

	return scanAccess(row)
}

// List returns every non-deleted access.
func (s *Store) List(ctx context.Context) ([]*accesslogic.Access, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, token, type, name, deviceName, permissions, calls, expires, deleted, integrity, createdBy
		FROM accesses WHERE deleted IS NULL
	`)
	if err != nil {
		return nil, fmt.Errorf("listing accesses: %w", err)
	}
	defer rows.Close()

	var out []*accesslogic.Access
	for rows.Next() {
		access, err := scanAccessRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, access)
	}
	return out, rows.Err()
}

// Delete tombstones an access (spec's accesses are soft-deleted, like
// events, so calls already in flight against it still resolve during the
// request that deletes it).
func (s *Store) Delete(ctx context.Context, accessID string, deletedAt float64) error {
	result, err := s.db.ExecContext(ctx, `UPDATE accesses SET deleted = ? WHERE id = ? AND deleted IS NULL`, deletedAt, accessID)
	if err != nil {
		return fmt.Errorf("deleting access: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected != 1 {
		return apierror.New(apierror.UnknownResource, fmt.Sprintf("access %q not found", accessID))
	}
	return nil
}

// IncrementCalls bumps an access's call counter, per spec's Access.Calls
// bookkeeping field.
func (s *Store) IncrementCalls(ctx context.Context, accessID string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE accesses SET calls = calls + 1 WHERE id = ?`, accessID)
	return err
}

// EnsureSession opens (or refreshes) the personal-session row for accessID.
func (s *Store) EnsureSession(ctx context.Context, accessID string, now float64) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO sessions (accessId, lastUsed) VALUES (?, ?)
		ON CONFLICT(accessId) DO UPDATE SET lastUsed = excluded.lastUsed
	`, accessID, now)
	return err
}

// SessionExists implements methodcontext.AccessLoader.
func (s *Store) SessionExists(ctx context.Context, userID, accessID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM sessions WHERE accessId = ?`, accessID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("checking session: %w", err)
	}
	return true, nil
}

// TouchSession implements methodcontext.Toucher.
func (s *Store) TouchSession(ctx context.Context, userID, accessID string) error {
	return s.EnsureSession(ctx, accessID, float64(time.Now().Unix()))
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAccess(row *sql.Row) (*accesslogic.Access, error) {
	access, err := scanAccessRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apierror.New(apierror.InvalidAccessToken, "unknown access token")
	}
	return access, err
}

func scanAccessRow(row scannable) (*accesslogic.Access, error) {
	var (
		access          accesslogic.Access
		accessType      string
		deviceName      sql.NullString
		permissionsJSON string
		expires         sql.NullFloat64
		deleted         sql.NullFloat64
		integrity       sql.NullString
		createdBy       sql.NullString
	)

	if err := row.Scan(&access.ID, &access.Token, &accessType, &access.Name, &deviceName,
		&permissionsJSON, &access.Calls, &expires, &deleted, &integrity, &createdBy); err != nil {
		return nil, err
	}

	access.Type = accesslogic.AccessType(accessType)
	access.DeviceName = deviceName.String
	access.Integrity = integrity.String
	access.CreatedBy = createdBy.String
	if expires.Valid {
		access.Expires = &expires.Float64
	}
	if deleted.Valid {
		access.Deleted = &deleted.Float64
	}

	if err := json.Unmarshal([]byte(permissionsJSON), &access.Permissions); err != nil {
		return nil, fmt.Errorf("decoding permissions: %w", err)
	}

	return &access, nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}
