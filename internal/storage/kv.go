package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// DefaultTTLDays is used when Put is called without a positive lifetime.
const DefaultTTLDays = 365

// Put stores value under key, replacing any previous value. The row reads as
// absent once ttlDays have passed.
func (s *Store) Put(ctx context.Context, key, value string, ttlDays int) error {
	if s == nil || s.db == nil {
		return errMissingDB
	}
	if key == "" {
		return fmt.Errorf("storage: empty key")
	}
	if ttlDays <= 0 {
		ttlDays = DefaultTTLDays
	}

	now := s.clock()
	expires := now.Add(time.Duration(ttlDays) * 24 * time.Hour)
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO kv (key, value, updated_at, expires_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			value=excluded.value,
			updated_at=excluded.updated_at,
			expires_at=excluded.expires_at
	`, key, value, now.Unix(), expires.Unix())
	if err != nil {
		return fmt.Errorf("storage: put %q: %w", key, err)
	}
	return nil
}

// Get returns the value stored under key. Missing and expired keys report
// found=false without an error.
func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	if s == nil || s.db == nil {
		return "", false, errMissingDB
	}

	var (
		value   string
		expires int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT value, expires_at
		FROM kv
		WHERE key = ?
	`, key).Scan(&value, &expires)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("storage: get %q: %w", key, err)
	}
	if s.clock().Unix() >= expires {
		return "", false, nil
	}
	return value, true, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if s == nil || s.db == nil {
		return errMissingDB
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE key = ?`, key)
	return err
}

// PurgeExpired removes expired keys and returns how many were dropped.
func (s *Store) PurgeExpired(ctx context.Context) (int64, error) {
	if s == nil || s.db == nil {
		return 0, errMissingDB
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM kv WHERE expires_at <= ?`, s.clock().Unix())
	if err != nil {
		return 0, fmt.Errorf("storage: purge expired: %w", err)
	}
	return result.RowsAffected()
}
