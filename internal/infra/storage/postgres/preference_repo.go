package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/vietddude/walletview/internal/infra/storage"
)

const (
	getPreference = `SELECT value FROM preferences WHERE key = $1`
	setPreference = `INSERT INTO preferences (key, value, updated_at) VALUES ($1, $2, now())
ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
)

// PreferenceRepo implements storage.PreferenceRepository using PostgreSQL.
type PreferenceRepo struct {
	db *DB
}

// NewPreferenceRepo creates a new PostgreSQL preference repository.
func NewPreferenceRepo(db *DB) *PreferenceRepo {
	return &PreferenceRepo{db: db}
}

// Get retrieves a preference by key.
func (r *PreferenceRepo) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := r.db.GetContext(ctx, &value, getPreference, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", storage.ErrPreferenceNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get preference: %w", err)
	}
	return value, nil
}

// Set upserts a preference.
func (r *PreferenceRepo) Set(ctx context.Context, key, value string) error {
	if _, err := r.db.ExecContext(ctx, setPreference, key, value); err != nil {
		return fmt.Errorf("failed to save preference: %w", err)
	}
	return nil
}
