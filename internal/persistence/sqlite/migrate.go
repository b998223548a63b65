package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// migration is one ordered schema change. Versions must be unique and are
// applied in slice order; applied versions are recorded in schema_migrations
// and never re-run.
type migration struct {
	version    string
	statements []string
}

var migrations = []migration{
	{
		version: "001_core_tables",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS events (
				id             TEXT PRIMARY KEY,
				organizer_id   TEXT NOT NULL,
				title          TEXT NOT NULL,
				description    TEXT NOT NULL DEFAULT '',
				category       TEXT NOT NULL,
				starts_at      TEXT NOT NULL,
				venue_name     TEXT NOT NULL DEFAULT '',
				venue_address  TEXT NOT NULL DEFAULT '',
				venue_capacity INTEGER NOT NULL DEFAULT 0,
				cover_image    TEXT NOT NULL DEFAULT '',
				status         TEXT NOT NULL,
				visibility     TEXT NOT NULL,
				price          TEXT,
				currency       TEXT NOT NULL DEFAULT '',
				created_at     TEXT NOT NULL,
				updated_at     TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_events_organizer ON events (organizer_id)`,
			`CREATE INDEX IF NOT EXISTS idx_events_status ON events (status)`,
			`CREATE TABLE IF NOT EXISTS ticket_types (
				id           TEXT PRIMARY KEY,
				event_id     TEXT NOT NULL REFERENCES events (id),
				name         TEXT NOT NULL,
				description  TEXT NOT NULL DEFAULT '',
				price        TEXT NOT NULL,
				currency     TEXT NOT NULL,
				quantity     INTEGER NOT NULL,
				sold         INTEGER NOT NULL DEFAULT 0,
				sale_start   TEXT NOT NULL,
				sale_end     TEXT NOT NULL,
				active       INTEGER NOT NULL DEFAULT 1,
				benefits     TEXT,
				restrictions TEXT,
				created_at   TEXT NOT NULL,
				updated_at   TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_ticket_types_event ON ticket_types (event_id)`,
			`CREATE TABLE IF NOT EXISTS attendees (
				id              TEXT PRIMARY KEY,
				event_id        TEXT NOT NULL REFERENCES events (id),
				ticket_type_id  TEXT,
				user_id         TEXT NOT NULL,
				registered_at   TEXT NOT NULL,
				check_in_status TEXT NOT NULL,
				payment_status  TEXT NOT NULL,
				updated_at      TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_attendees_event ON attendees (event_id)`,
			`CREATE TABLE IF NOT EXISTS analytics_snapshots (
				event_id      TEXT PRIMARY KEY REFERENCES events (id),
				views         INTEGER NOT NULL DEFAULT 0,
				registrations INTEGER NOT NULL DEFAULT 0,
				revenue       TEXT NOT NULL DEFAULT '0',
				referrers     TEXT,
				created_at    TEXT NOT NULL,
				updated_at    TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS campaigns (
				id         TEXT PRIMARY KEY,
				event_id   TEXT NOT NULL REFERENCES events (id),
				name       TEXT NOT NULL,
				channel    TEXT NOT NULL,
				subject    TEXT NOT NULL DEFAULT '',
				content    TEXT NOT NULL DEFAULT '',
				audience   TEXT NOT NULL DEFAULT '',
				status     TEXT NOT NULL,
				sent_at    TEXT,
				open_rate  REAL NOT NULL DEFAULT 0,
				click_rate REAL NOT NULL DEFAULT 0,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_campaigns_event ON campaigns (event_id)`,
		},
	},
	{
		version: "002_accounts",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS users (
				id            TEXT PRIMARY KEY,
				email         TEXT NOT NULL UNIQUE,
				display_name  TEXT NOT NULL DEFAULT '',
				password_hash TEXT NOT NULL,
				is_admin      INTEGER NOT NULL DEFAULT 0,
				disabled      INTEGER NOT NULL DEFAULT 0,
				created_at    TEXT NOT NULL,
				updated_at    TEXT NOT NULL
			)`,
			`CREATE TABLE IF NOT EXISTS sessions (
				id         TEXT PRIMARY KEY,
				user_id    TEXT NOT NULL,
				token      TEXT NOT NULL UNIQUE,
				expires_at TEXT NOT NULL,
				created_at TEXT NOT NULL,
				updated_at TEXT NOT NULL,
				revoked_at TEXT
			)`,
			`CREATE INDEX IF NOT EXISTS idx_sessions_user ON sessions (user_id)`,
		},
	},
	{
		version: "003_security_log",
		statements: []string{
			`CREATE TABLE IF NOT EXISTS security_log (
				id          TEXT PRIMARY KEY,
				actor       TEXT NOT NULL,
				action      TEXT NOT NULL,
				detail      TEXT NOT NULL DEFAULT '',
				occurred_at TEXT NOT NULL
			)`,
			`CREATE INDEX IF NOT EXISTS idx_security_log_occurred ON security_log (occurred_at)`,
		},
	},
}

// Migrate applies every pending migration in order. It is safe to call on
// every startup.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version    TEXT PRIMARY KEY,
		applied_at TEXT NOT NULL
	)`); err != nil {
		return fmt.Errorf("sqlite: initialize schema_migrations: %w", err)
	}

	applied, err := s.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.version] {
			continue
		}
		if err := s.applyMigration(ctx, m); err != nil {
			return fmt.Errorf("sqlite: migration %s: %w", m.version, err)
		}
	}
	return nil
}

func (s *Store) appliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, fmt.Errorf("sqlite: scan schema_migrations: %w", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: read schema_migrations: %w", err)
	}
	return applied, nil
}

func (s *Store) applyMigration(ctx context.Context, m migration) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		for _, stmt := range m.statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("execute statement: %w", err)
			}
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, applied_at) VALUES (?, datetime('now'))`,
			m.version,
		); err != nil {
			return fmt.Errorf("record version: %w", err)
		}
		return nil
	})
}
