// Package vault persists the console's durable client state: the one
// bearer token that lets a reload resume an authenticated session.
package vault

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	_ "modernc.org/sqlite"
)

// ErrNoToken is returned when no session token is stored. On bootstrap
// this means the session resolves to unauthenticated.
var ErrNoToken = errors.New("no stored token")

const schema = `
	CREATE TABLE IF NOT EXISTS session (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		token TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	)`

// Vault stores the bearer token in an embedded sqlite database. The
// session table holds at most one row.
type Vault struct {
	db *sqlx.DB
}

// New opens (or creates) the state database at path.
func New(ctx context.Context, path string) (*Vault, error) {
	const op = "vault.New"

	db, err := sqlx.ConnectContext(ctx, "sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%s: failed to open state database: %w", op, err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: failed to prepare schema: %w", op, err)
	}

	return &Vault{db: db}, nil
}

// NewWithDB wraps an already opened database. Used by tests.
func NewWithDB(db *sqlx.DB) *Vault {
	return &Vault{db: db}
}

// SaveToken stores the bearer token, replacing any previous one.
func (v *Vault) SaveToken(ctx context.Context, token string) error {
	const op = "vault.Vault.SaveToken"

	query := `INSERT INTO session(id, token, updated_at)
		VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at`

	if _, err := v.db.ExecContext(ctx, query, token, time.Now().UTC()); err != nil {
		return fmt.Errorf("%s: failed to save token: %w", op, err)
	}

	return nil
}

// LoadToken returns the stored bearer token, or ErrNoToken when the
// session table is empty.
func (v *Vault) LoadToken(ctx context.Context) (string, error) {
	const op = "vault.Vault.LoadToken"

	var token string
	query := `SELECT token FROM session WHERE id = 1`

	err := v.db.GetContext(ctx, &token, query)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%s: %w", op, ErrNoToken)
		}

		return "", fmt.Errorf("%s: failed to load token: %w", op, err)
	}

	return token, nil
}

// DeleteToken removes the stored token. Deleting an absent token is
// not an error.
func (v *Vault) DeleteToken(ctx context.Context) error {
	const op = "vault.Vault.DeleteToken"

	query := `DELETE FROM session WHERE id = 1`

	if _, err := v.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("%s: failed to delete token: %w", op, err)
	}

	return nil
}

func (v *Vault) Close() error {
	return v.db.Close()
}
