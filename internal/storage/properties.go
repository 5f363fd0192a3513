package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/Veraticus/spendmail/internal/common"
)

// PropertyStore is a key-value store for credentials and settings that should
// not live in the config file.
type PropertyStore struct {
	storage *SQLiteStorage
}

// Properties returns the property store.
func (s *SQLiteStorage) Properties() *PropertyStore {
	return &PropertyStore{storage: s}
}

// Get returns the value of key or an error wrapping common.ErrNotFound.
func (p *PropertyStore) Get(ctx context.Context, key string) (string, error) {
	if err := validateString(key, "key"); err != nil {
		return "", err
	}

	var value string
	err := p.storage.db.GetContext(ctx, &value, `SELECT value FROM properties WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("property %q: %w", key, common.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get property %q: %w", key, err)
	}
	return value, nil
}

// Set stores value under key.
func (p *PropertyStore) Set(ctx context.Context, key, value string) error {
	return p.SetMany(ctx, map[string]string{key: value})
}

// SetMany stores every entry of values in one transaction.
func (p *PropertyStore) SetMany(ctx context.Context, values map[string]string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	for key := range values {
		if err := validateString(key, "key"); err != nil {
			return err
		}
	}

	tx, err := p.storage.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for key, value := range values {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO properties (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
			key, value)
		if err != nil {
			return fmt.Errorf("failed to set property %q: %w", key, err)
		}
	}

	return tx.Commit()
}

type property struct {
	Key   string `db:"key"`
	Value string `db:"value"`
}

// All returns every stored property.
func (p *PropertyStore) All(ctx context.Context) (map[string]string, error) {
	var props []property
	if err := p.storage.db.SelectContext(ctx, &props, `SELECT key, value FROM properties ORDER BY key`); err != nil {
		return nil, fmt.Errorf("failed to list properties: %w", err)
	}

	out := make(map[string]string, len(props))
	for _, prop := range props {
		out[prop.Key] = prop.Value
	}
	return out, nil
}

// Delete removes key. Deleting a missing key is not an error.
func (p *PropertyStore) Delete(ctx context.Context, key string) error {
	if err := validateString(key, "key"); err != nil {
		return err
	}
	if _, err := p.storage.db.ExecContext(ctx, `DELETE FROM properties WHERE key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete property %q: %w", key, err)
	}
	return nil
}
