package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// GetSetting returns the value saved under key; ok is false if none is saved
func (s *Store) GetSetting(ctx context.Context, key string) (value string, ok bool, err error) {
	if s.db == nil {
		return "", false, ErrNotInitialized
	}

	err = s.db.QueryRowContext(ctx, "SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%w: get setting %s: %w", ErrRead, key, err)
	}
	return value, true, nil
}

// SetSetting saves value under key, replacing any previous value
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	if s.db == nil {
		return ErrNotInitialized
	}

	_, err := s.db.ExecContext(ctx,
		"INSERT OR REPLACE INTO settings (key, value) VALUES (?, ?)",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("%w: set setting %s: %w", ErrWrite, key, err)
	}
	return nil
}

// DeleteSetting removes key; deleting a missing key is not an error
func (s *Store) DeleteSetting(ctx context.Context, key string) error {
	if s.db == nil {
		return ErrNotInitialized
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM settings WHERE key = ?", key); err != nil {
		return fmt.Errorf("%w: delete setting %s: %w", ErrWrite, key, err)
	}
	return nil
}
