// Package usersindex maps usernames to user ids — the one piece of global,
// cross-user state every other per-user component depends on to resolve
// "which user owns this username" before anything else can run.
package usersindex

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/streamhub/corehub/internal/apierror"
	"github.com/streamhub/corehub/internal/controldb"
	"github.com/streamhub/corehub/internal/database"
)

// Index is the control-database-backed username<->userId mapping, grounded
// on internal/auth/service.go's _alyx_users access patterns generalized
// from "users keyed by email" to "user ids keyed by username".
type Index struct {
	db    *controldb.DB
	cache *lru
}

// New wraps db with an in-process LRU of the given capacity (0 picks a
// sane default).
func New(db *controldb.DB, cacheCapacity int) *Index {
	return &Index{db: db, cache: newLRU(cacheCapacity)}
}

// AddUser registers a new username, generating a short id for it (spec's
// "cuid-shaped" id, grounded on database.GenerateShortID). Returns
// apierror.ItemAlreadyExists if the username is taken.
func (idx *Index) AddUser(ctx context.Context, username string) (string, error) {
	id := database.GenerateShortID()

	_, err := idx.db.ExecContext(ctx,
		`INSERT INTO users (id, username) VALUES (?, ?)`, id, username)
	if err != nil {
		if database.IsUniqueError(database.ClassifyError(err)) {
			return "", apierror.New(apierror.ItemAlreadyExists, fmt.Sprintf("username %q already exists", username))
		}
		return "", fmt.Errorf("inserting user: %w", err)
	}

	idx.cache.put(username, id)
	return id, nil
}

// GetUserID returns the user id owning username, or
// apierror.Kind UnknownResource if none does.
func (idx *Index) GetUserID(ctx context.Context, username string) (string, error) {
	if id, ok := idx.cache.get(username); ok {
		return id, nil
	}

	var id string
	err := idx.db.QueryRowContext(ctx, `SELECT id FROM users WHERE username = ?`, username).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apierror.New(apierror.UnknownResource, fmt.Sprintf("unknown user %q", username))
	}
	if err != nil {
		return "", fmt.Errorf("querying user: %w", err)
	}

	idx.cache.put(username, id)
	return id, nil
}

// GetUsername returns the username for userID, bypassing the cache since it
// is keyed by username, not id; callers on the hot path should prefer
// GetUserID and carry the username forward instead of round-tripping here.
func (idx *Index) GetUsername(ctx context.Context, userID string) (string, error) {
	var username string
	err := idx.db.QueryRowContext(ctx, `SELECT username FROM users WHERE id = ?`, userID).Scan(&username)
	if errors.Is(err, sql.ErrNoRows) {
		return "", apierror.New(apierror.UnknownResource, fmt.Sprintf("unknown user id %q", userID))
	}
	if err != nil {
		return "", fmt.Errorf("querying username: %w", err)
	}
	return username, nil
}

// GetAllByUsername returns every known username, sorted, for administrative
// listing.
func (idx *Index) GetAllByUsername(ctx context.Context) ([]string, error) {
	rows, err := idx.db.QueryContext(ctx, `SELECT username FROM users ORDER BY username`)
	if err != nil {
		return nil, fmt.Errorf("listing usernames: %w", err)
	}
	defer rows.Close()

	var usernames []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, fmt.Errorf("scanning username: %w", err)
		}
		usernames = append(usernames, u)
	}
	return usernames, rows.Err()
}

// DeleteByID removes a user's index entry, invalidating the cache.
func (idx *Index) DeleteByID(ctx context.Context, userID string) error {
	username, err := idx.GetUsername(ctx, userID)
	if err != nil {
		return err
	}

	if _, err := idx.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID); err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}

	idx.cache.invalidate(username)
	return nil
}

// DeleteAll wipes the index, for test fixtures and the (standalone-only)
// factory-reset admin operation. Never exposed over HTTP.
func (idx *Index) DeleteAll(ctx context.Context) error {
	if _, err := idx.db.ExecContext(ctx, `DELETE FROM users`); err != nil {
		return fmt.Errorf("clearing users: %w", err)
	}
	idx.cache.clear()
	return nil
}
