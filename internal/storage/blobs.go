package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/treefix50/soundboard/internal/clip"
)

// PutBlob stores an uploaded audio file and returns its new id.
func (s *Store) PutBlob(ctx context.Context, file clip.AudioFile) (string, error) {
	if s == nil || s.db == nil {
		return "", errMissingDB
	}
	if len(file.Data) == 0 {
		return "", fmt.Errorf("storage: empty audio file")
	}

	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audio_files (id, label, name, mime_type, size, data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		id,
		nullString(file.Label),
		nullString(file.Name),
		nullString(file.MIMEType),
		len(file.Data),
		file.Data,
		s.clock().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("storage: put blob: %w", err)
	}
	return id, nil
}

// GetBlob loads an audio file including its bytes.
func (s *Store) GetBlob(ctx context.Context, id string) (clip.AudioFile, bool, error) {
	if s == nil || s.db == nil {
		return clip.AudioFile{}, false, errMissingDB
	}

	var (
		file      clip.AudioFile
		label     sql.NullString
		name      sql.NullString
		mimeType  sql.NullString
		createdAt int64
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT id, label, name, mime_type, size, data, created_at
		FROM audio_files
		WHERE id = ?
	`, id).Scan(&file.ID, &label, &name, &mimeType, &file.Size, &file.Data, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return clip.AudioFile{}, false, nil
		}
		return clip.AudioFile{}, false, fmt.Errorf("storage: get blob %s: %w", id, err)
	}

	file.Label = label.String
	file.Name = name.String
	file.MIMEType = mimeType.String
	file.CreatedAt = time.Unix(createdAt, 0)
	return file, true, nil
}

// ListBlobs returns metadata for every stored file, newest first.
func (s *Store) ListBlobs(ctx context.Context) ([]clip.AudioFile, error) {
	if s == nil || s.db == nil {
		return nil, errMissingDB
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, label, name, mime_type, size, created_at
		FROM audio_files
		ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var files []clip.AudioFile
	for rows.Next() {
		var (
			file      clip.AudioFile
			label     sql.NullString
			name      sql.NullString
			mimeType  sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&file.ID, &label, &name, &mimeType, &file.Size, &createdAt); err != nil {
			return nil, err
		}
		file.Label = label.String
		file.Name = name.String
		file.MIMEType = mimeType.String
		file.CreatedAt = time.Unix(createdAt, 0)
		files = append(files, file)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return files, nil
}

func (s *Store) DeleteBlob(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return errMissingDB
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM audio_files WHERE id = ?`, id)
	return err
}

func nullString(value string) sql.NullString {
	if strings.TrimSpace(value) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
