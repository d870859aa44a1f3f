package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/treefix50/soundboard/internal/auth"
)

const (
	adminPasswordKey     = "auth.adminPasswordHash"
	adminPasswordTTLDays = 100 * 365
)

// AdminPasswordHash returns the stored bcrypt hash of the admin password
func (s *Store) AdminPasswordHash(ctx context.Context) (string, bool, error) {
	return s.Get(ctx, adminPasswordKey)
}

// SetAdminPasswordHash replaces the admin password hash
func (s *Store) SetAdminPasswordHash(ctx context.Context, hash string) error {
	return s.Put(ctx, adminPasswordKey, hash, adminPasswordTTLDays)
}

// CreateSession creates a new session
func (s *Store) CreateSession(ctx context.Context, session auth.Session) error {
	if s == nil || s.db == nil {
		return errMissingDB
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO auth_sessions (token, created_at, expires_at)
		VALUES (?, ?, ?)
	`, session.Token, session.CreatedAt.Unix(), session.ExpiresAt.Unix())
	return err
}

// GetSession retrieves a session by token
func (s *Store) GetSession(ctx context.Context, token string) (*auth.Session, error) {
	if s == nil || s.db == nil {
		return nil, errMissingDB
	}

	var (
		session   auth.Session
		createdAt int64
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT token, created_at, expires_at
		FROM auth_sessions
		WHERE token = ?
	`, token).Scan(&session.Token, &createdAt, &expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrInvalidToken
		}
		return nil, err
	}

	session.CreatedAt = time.Unix(createdAt, 0)
	session.ExpiresAt = time.Unix(expiresAt, 0)
	return &session, nil
}

// DeleteSession deletes a session
func (s *Store) DeleteSession(ctx context.Context, token string) error {
	if s == nil || s.db == nil {
		return errMissingDB
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE token = ?`, token)
	return err
}

// DeleteAllSessions logs every client out
func (s *Store) DeleteAllSessions(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errMissingDB
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM auth_sessions`)
	return err
}

// CleanExpiredSessions removes all expired sessions
func (s *Store) CleanExpiredSessions(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errMissingDB
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE expires_at < ?`, s.clock().Unix())
	return err
}
