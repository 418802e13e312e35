// Package accountstorage holds the password hash and bounded password
// history for every user, kept out of the event store entirely: a
// password must never be materialized as a content event.
package accountstorage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"unicode"

	"golang.org/x/crypto/bcrypt"

	"github.com/streamhub/corehub/internal/apierror"
	"github.com/streamhub/corehub/internal/config"
	"github.com/streamhub/corehub/internal/controldb"
	"github.com/streamhub/corehub/internal/database"
)

const bcryptCost = 12

// Sentinel errors identifying why a password was rejected, so callers can
// render the specific complaint rather than a generic failure.
var (
	ErrPasswordTooShort    = errors.New("password is too short")
	ErrPasswordNoUppercase = errors.New("password must contain at least one uppercase letter")
	ErrPasswordNoLowercase = errors.New("password must contain at least one lowercase letter")
	ErrPasswordNoNumber    = errors.New("password must contain at least one number")
	ErrPasswordNoSpecial   = errors.New("password must contain at least one special character")
	ErrPasswordReused      = errors.New("password was used too recently")
	ErrWrongPassword       = errors.New("password does not match")
)

// Store is the control-database-backed password store.
type Store struct {
	db  *controldb.DB
	cfg config.PasswordConfig
}

func New(db *controldb.DB, cfg config.PasswordConfig) *Store {
	return &Store{db: db, cfg: cfg}
}

// SetInitialPassword hashes and stores password for a freshly-registered
// user. Does not consult history, since there is none yet.
func (s *Store) SetInitialPassword(ctx context.Context, userID, password string) error {
	if err := s.validate(password); err != nil {
		return err
	}
	return s.store(ctx, userID, password, "")
}

// ChangePassword validates, checks against the bounded history, and rotates
// a user's password, recording the new hash into history (which therefore
// holds the current password and those set before it) and trimming it to
// cfg.HistoryLength entries so none of the last N passwords can be reused.
func (s *Store) ChangePassword(ctx context.Context, userID, newPassword, accessID string) error {
	if err := s.validate(newPassword); err != nil {
		return err
	}

	reused, err := s.inHistory(ctx, userID, newPassword)
	if err != nil {
		return err
	}
	if reused {
		return ErrPasswordReused
	}

	return s.store(ctx, userID, newPassword, accessID)
}

// Verify checks password against the stored hash for userID.
func (s *Store) Verify(ctx context.Context, userID, password string) error {
	var hash string
	err := s.db.QueryRowContext(ctx, `SELECT hash FROM passwords WHERE user_id = ?`, userID).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return apierror.New(apierror.UnknownResource, "no password set for user")
	}
	if err != nil {
		return fmt.Errorf("querying password: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return ErrWrongPassword
		}
		return err
	}
	return nil
}

// DeleteUser removes a user's password and password history, for the
// user-deletion pipeline.
func (s *Store) DeleteUser(ctx context.Context, userID string) error {
	return s.db.Transaction(ctx, func(tx *database.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM password_history WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("deleting password history: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM passwords WHERE user_id = ?`, userID); err != nil {
			return fmt.Errorf("deleting password: %w", err)
		}
		return nil
	})
}

// LastN returns the most recent n historical hashes for userID, newest
// first, used to enforce "no reuse of last N".
func (s *Store) LastN(ctx context.Context, userID string, n int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT hash FROM password_history WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`, userID, n)
	if err != nil {
		return nil, fmt.Errorf("querying password history: %w", err)
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scanning password history: %w", err)
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

func (s *Store) inHistory(ctx context.Context, userID, password string) (bool, error) {
	n := s.cfg.HistoryLength
	if n <= 0 {
		return false, nil
	}

	hashes, err := s.LastN(ctx, userID, n)
	if err != nil {
		return false, err
	}
	for _, h := range hashes {
		if bcrypt.CompareHashAndPassword([]byte(h), []byte(password)) == nil {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) store(ctx context.Context, userID, password, accessID string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	return s.db.Transaction(ctx, func(tx *database.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO passwords (user_id, hash) VALUES (?, ?)
			 ON CONFLICT(user_id) DO UPDATE SET hash = excluded.hash, updated_at = datetime('now')`,
			userID, string(hash)); err != nil {
			return fmt.Errorf("storing password: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`INSERT INTO password_history (user_id, hash, access_id) VALUES (?, ?, ?)`,
			userID, string(hash), accessID); err != nil {
			return fmt.Errorf("recording password history: %w", err)
		}

		return s.trimHistory(ctx, tx, userID)
	})
}

func (s *Store) trimHistory(ctx context.Context, tx *database.Tx, userID string) error {
	keep := s.cfg.HistoryLength
	if keep <= 0 {
		return nil
	}
	_, err := tx.ExecContext(ctx, `
		DELETE FROM password_history
		WHERE user_id = ? AND id NOT IN (
			SELECT id FROM password_history WHERE user_id = ? ORDER BY created_at DESC LIMIT ?
		)`, userID, userID, keep)
	return err
}

func (s *Store) validate(password string) error {
	if len(password) < s.cfg.MinLength {
		return ErrPasswordTooShort
	}

	var hasUpper, hasLower, hasNumber, hasSpecial bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasNumber = true
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			hasSpecial = true
		}
	}

	if s.cfg.RequireUppercase && !hasUpper {
		return ErrPasswordNoUppercase
	}
	if s.cfg.RequireLowercase && !hasLower {
		return ErrPasswordNoLowercase
	}
	if s.cfg.RequireNumber && !hasNumber {
		return ErrPasswordNoNumber
	}
	if s.cfg.RequireSpecial && !hasSpecial {
		return ErrPasswordNoSpecial
	}
	return nil
}
