package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/artpar/saasgate/domain/settings"
	"github.com/artpar/saasgate/ports"
)

// SettingsStore implements ports.SettingsStore for one backend using SQLite.
// Stores for different backends share the settings table.
type SettingsStore struct {
	db      *DB
	backend settings.Backend
	clock   ports.Clock
}

// NewSettingsStore creates a settings store for backend.
func NewSettingsStore(db *DB, backend settings.Backend, clock ports.Clock) *SettingsStore {
	return &SettingsStore{db: db, backend: backend, clock: clock}
}

// Backends returns one store per known backend, all backed by db.
func Backends(db *DB, clock ports.Clock) ports.SettingsBackends {
	return ports.SettingsBackends{
		settings.UserSettings:         NewSettingsStore(db, settings.UserSettings, clock),
		settings.OrganizationSettings: NewSettingsStore(db, settings.OrganizationSettings, clock),
	}
}

// Get retrieves a single value.
func (s *SettingsStore) Get(ctx context.Context, owner, key string) ([]byte, bool, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM settings WHERE backend = ? AND owner_id = ? AND key = ?`,
		string(s.backend), owner, key,
	).Scan(&value)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get setting %s/%s: %w", s.backend, key, err)
	}
	return value, true, nil
}

// Set stores or updates a value.
func (s *SettingsStore) Set(ctx context.Context, owner, key string, value []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (backend, owner_id, key, value, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(backend, owner_id, key) DO UPDATE SET
			value = excluded.value,
			updated_at = excluded.updated_at`,
		string(s.backend), owner, key, value, s.clock.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("set setting %s/%s: %w", s.backend, key, err)
	}
	return nil
}

// Delete removes a value.
func (s *SettingsStore) Delete(ctx context.Context, owner, key string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM settings WHERE backend = ? AND owner_id = ? AND key = ?`,
		string(s.backend), owner, key,
	)
	if err != nil {
		return fmt.Errorf("delete setting %s/%s: %w", s.backend, key, err)
	}
	return nil
}

// List returns every value stored for owner ordered by key.
func (s *SettingsStore) List(ctx context.Context, owner string) ([]ports.StoredValue, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value, updated_at FROM settings
		WHERE backend = ? AND owner_id = ?
		ORDER BY key`,
		string(s.backend), owner,
	)
	if err != nil {
		return nil, fmt.Errorf("list settings %s: %w", s.backend, err)
	}
	defer rows.Close()

	var result []ports.StoredValue
	for rows.Next() {
		var v ports.StoredValue
		var updatedAt string
		if err := rows.Scan(&v.Key, &v.Value, &updatedAt); err != nil {
			return nil, err
		}
		v.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		result = append(result, v)
	}
	return result, rows.Err()
}
