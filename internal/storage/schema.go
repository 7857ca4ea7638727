package storage

import "fmt"

const schemaMigrations = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	applied_at INTEGER NOT NULL DEFAULT (strftime('%s', 'now'))
);`

type migration struct {
	version    int
	statements []string
}

var migrations = []migration{
	{
		version: 1,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS events (
				id INTEGER PRIMARY KEY,
				name TEXT NOT NULL,
				pre_title TEXT NOT NULL DEFAULT '',
				post_title TEXT NOT NULL DEFAULT '',
				pricing TEXT NOT NULL DEFAULT '',
				ticket_link TEXT NOT NULL DEFAULT '',
				film_information TEXT NOT NULL DEFAULT '',
				copy_summary TEXT,
				private INTEGER NOT NULL DEFAULT 0,
				outside_hire INTEGER NOT NULL DEFAULT 0
			);`,
			`CREATE TABLE IF NOT EXISTS showings (
				id INTEGER PRIMARY KEY,
				event_id INTEGER NOT NULL,
				start INTEGER NOT NULL,
				confirmed INTEGER NOT NULL DEFAULT 0,
				hide_in_programme INTEGER NOT NULL DEFAULT 0,
				cancelled INTEGER NOT NULL DEFAULT 0,
				discounted INTEGER NOT NULL DEFAULT 0,
				sold_out INTEGER NOT NULL DEFAULT 0,
				FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
			);`,
			`CREATE INDEX IF NOT EXISTS idx_showings_start ON showings(start);`,
			`CREATE INDEX IF NOT EXISTS idx_showings_event_id ON showings(event_id);`,
		},
	},
	{
		version: 2,
		statements: []string{
			`CREATE TABLE IF NOT EXISTS event_tags (
				event_id INTEGER NOT NULL,
				tag TEXT NOT NULL,
				position INTEGER NOT NULL DEFAULT 0,
				PRIMARY KEY (event_id, tag),
				FOREIGN KEY (event_id) REFERENCES events(id) ON DELETE CASCADE
			);`,
		},
	},
}

func (s *Store) EnsureSchema() error {
	return s.MigrateSchema()
}

func (s *Store) MigrateSchema() error {
	if s == nil || s.db == nil {
		return fmt.Errorf("storage: missing database connection")
	}

	if _, err := s.db.Exec(schemaMigrations); err != nil {
		return fmt.Errorf("storage: create schema_migrations table: %w", err)
	}

	current, err := s.currentSchemaVersion()
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.version <= current {
			continue
		}
		if err := s.applyMigration(migration); err != nil {
			return err
		}
		current = migration.version
	}

	return nil
}

func (s *Store) currentSchemaVersion() (int, error) {
	var version int
	if err := s.db.QueryRow(`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&version); err != nil {
		return 0, fmt.Errorf("storage: read schema version: %w", err)
	}
	return version, nil
}

func (s *Store) applyMigration(migration migration) (err error) {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("storage: start migration %d: %w", migration.version, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, statement := range migration.statements {
		if _, err = tx.Exec(statement); err != nil {
			return fmt.Errorf("storage: migration %d failed: %w", migration.version, err)
		}
	}

	if _, err = tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, migration.version); err != nil {
		return fmt.Errorf("storage: record migration %d: %w", migration.version, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit migration %d: %w", migration.version, err)
	}
	return nil
}
