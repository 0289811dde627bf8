package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// Migration is one forward schema step.
type Migration struct {
	Version string
	Name    string
	SQL     string
}

// Migrations lists the schema steps in apply order.
var Migrations = []Migration{
	{
		Version: "20240101000001",
		Name:    "create_accounts",
		SQL: `
CREATE TABLE IF NOT EXISTS accounts (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    balance    TEXT NOT NULL DEFAULT '0',
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`,
	},
	{
		Version: "20240101000002",
		Name:    "create_payment_methods",
		SQL: `
CREATE TABLE IF NOT EXISTS payment_methods (
    id               TEXT PRIMARY KEY,
    name             TEXT NOT NULL,
    type             TEXT NOT NULL,
    asset_account_id TEXT NOT NULL,
    closing_day      INTEGER NOT NULL DEFAULT 0,
    withdrawal_day   INTEGER NOT NULL DEFAULT 0,
    memo             TEXT NOT NULL DEFAULT '',
    created_at       TEXT NOT NULL,
    updated_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_payment_methods_account ON payment_methods (asset_account_id);`,
	},
	{
		Version: "20240101000003",
		Name:    "create_categories",
		SQL: `
CREATE TABLE IF NOT EXISTS categories (
    id         TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    type       TEXT NOT NULL,
    created_at TEXT NOT NULL,
    updated_at TEXT NOT NULL
);`,
	},
	{
		Version: "20240101000004",
		Name:    "create_transactions",
		SQL: `
CREATE TABLE IF NOT EXISTS transactions (
    id                TEXT PRIMARY KEY,
    date              TEXT NOT NULL,
    amount            TEXT NOT NULL,
    type              TEXT NOT NULL,
    payment_method_id TEXT NOT NULL,
    category_id       TEXT NOT NULL DEFAULT '',
    asset_account_id  TEXT NOT NULL,
    memo              TEXT NOT NULL DEFAULT '',
    settlement_date   TEXT NOT NULL,
    settled           INTEGER NOT NULL DEFAULT 0,
    cancelled         INTEGER NOT NULL DEFAULT 0,
    recurring_id      TEXT NOT NULL DEFAULT '',
    created_at        TEXT NOT NULL,
    updated_at        TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_transactions_date ON transactions (date);
CREATE INDEX IF NOT EXISTS idx_transactions_pending ON transactions (settled, cancelled, settlement_date);
CREATE INDEX IF NOT EXISTS idx_transactions_account ON transactions (asset_account_id);`,
	},
	{
		Version: "20240101000005",
		Name:    "create_transfers",
		SQL: `
CREATE TABLE IF NOT EXISTS transfers (
    id                   TEXT PRIMARY KEY,
    kind                 TEXT NOT NULL,
    date                 TEXT NOT NULL,
    amount               TEXT NOT NULL,
    from_account_id      TEXT NOT NULL,
    to_account_id        TEXT NOT NULL DEFAULT '',
    to_payment_method_id TEXT NOT NULL DEFAULT '',
    memo                 TEXT NOT NULL DEFAULT '',
    created_at           TEXT NOT NULL
);`,
	},
	{
		Version: "20240101000006",
		Name:    "create_recurring_transactions",
		SQL: `
CREATE TABLE IF NOT EXISTS recurring_transactions (
    id                TEXT PRIMARY KEY,
    name              TEXT NOT NULL,
    amount            TEXT NOT NULL,
    type              TEXT NOT NULL,
    payment_method_id TEXT NOT NULL,
    category_id       TEXT NOT NULL DEFAULT '',
    asset_account_id  TEXT NOT NULL DEFAULT '',
    frequency         TEXT NOT NULL,
    start_date        TEXT NOT NULL,
    end_date          TEXT,
    day_of_month      INTEGER NOT NULL DEFAULT 0,
    day_of_week       INTEGER NOT NULL DEFAULT 0,
    active            INTEGER NOT NULL DEFAULT 1,
    memo              TEXT NOT NULL DEFAULT '',
    created_at        TEXT NOT NULL,
    updated_at        TEXT NOT NULL
);`,
	},
	{
		Version: "20240101000007",
		Name:    "create_settings",
		SQL: `
CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);`,
	},
}

// Migrate applies every migration that has not been recorded yet and returns
// the names of the ones it applied.
func (s *Store) Migrate(ctx context.Context) ([]string, error) {
	if _, err := s.db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
    version    TEXT PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TEXT NOT NULL DEFAULT (datetime('now'))
)`); err != nil {
		return nil, fmt.Errorf("Migrate: creating schema_migrations: %w", err)
	}

	var applied []string
	for _, m := range Migrations {
		done, err := s.applyMigration(ctx, m)
		if err != nil {
			return applied, err
		}
		if done {
			applied = append(applied, m.Name)
		}
	}
	return applied, nil
}

func (s *Store) applyMigration(ctx context.Context, m Migration) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("Migrate: %s: begin: %w", m.Name, err)
	}
	defer tx.Rollback()

	var version string
	err = tx.QueryRowContext(ctx, `SELECT version FROM schema_migrations WHERE version = ?`, m.Version).Scan(&version)
	switch {
	case err == nil:
		return false, nil
	case err != sql.ErrNoRows:
		return false, fmt.Errorf("Migrate: %s: checking version: %w", m.Name, err)
	}

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		return false, fmt.Errorf("Migrate: %s: %w", m.Name, err)
	}
	if _, err := tx.ExecContext(ctx, `INSERT INTO schema_migrations (version, name) VALUES (?, ?)`, m.Version, m.Name); err != nil {
		return false, fmt.Errorf("Migrate: %s: recording version: %w", m.Name, err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("Migrate: %s: commit: %w", m.Name, err)
	}
	return true, nil
}

// AppliedMigration is a row of schema_migrations.
type AppliedMigration struct {
	Version   string
	Name      string
	AppliedAt string
}

// AppliedMigrations lists the recorded migrations in version order.
func (s *Store) AppliedMigrations(ctx context.Context) ([]AppliedMigration, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT version, name, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("AppliedMigrations: %w", err)
	}
	defer rows.Close()

	var applied []AppliedMigration
	for rows.Next() {
		var am AppliedMigration
		if err := rows.Scan(&am.Version, &am.Name, &am.AppliedAt); err != nil {
			return nil, fmt.Errorf("AppliedMigrations: scanning: %w", err)
		}
		applied = append(applied, am)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("AppliedMigrations: %w", err)
	}
	return applied, nil
}
