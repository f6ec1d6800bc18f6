package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/srgjo27/westudy/internal/core/domain"
)

// SessionStore keeps persisted auth sessions in the client_sessions table.
type SessionStore struct {
	db *sql.DB
}

func NewSessionStore(db *sql.DB) *SessionStore {
	return &SessionStore{db: db}
}

func (r *SessionStore) EnsureSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS client_sessions (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)
	`

	if _, err := r.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to create client_sessions table: %w", err)
	}

	return nil
}

func (r *SessionStore) GetItem(ctx context.Context, key string) (string, error) {
	query := `
	SELECT value FROM client_sessions
	WHERE key = $1
	`

	var value string
	err := r.db.QueryRowContext(ctx, query, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", domain.ErrNotFound
		}

		return "", err
	}

	return value, nil
}

func (r *SessionStore) SetItem(ctx context.Context, key string, value string) error {
	query := `
	INSERT INTO client_sessions (key, value, updated_at)
	VALUES ($1, $2, NOW())
	ON CONFLICT (key) DO UPDATE
	SET value = EXCLUDED.value,
		updated_at = NOW()
	`

	if _, err := r.db.ExecContext(ctx, query, key, value); err != nil {
		return fmt.Errorf("failed to upsert session %s: %w", key, err)
	}

	return nil
}

func (r *SessionStore) RemoveItem(ctx context.Context, key string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM client_sessions WHERE key = $1`, key)

	return err
}
