package db

import (
	"database/sql"
	"fmt"
)

// runMigrations applies database migrations for existing databases
func (db *DB) runMigrations() error {
	// Migration 1: free-form notes on builds
	if err := db.migration001AddNote(); err != nil {
		return fmt.Errorf("migration 001: %w", err)
	}

	// Migration 2: full-text index over tab code and titles
	if err := db.migration002AddTabsFTS(); err != nil {
		return fmt.Errorf("migration 002: %w", err)
	}

	return nil
}

// migration001AddNote adds the note column to builds
func (db *DB) migration001AddNote() error {
	var hasNote bool
	err := db.conn.QueryRow(`
		SELECT COUNT(*) FROM pragma_table_info('builds')
		WHERE name='note'
	`).Scan(&hasNote)
	if err != nil {
		return err
	}

	if !hasNote {
		if _, err := db.conn.Exec(`ALTER TABLE builds ADD COLUMN note TEXT NOT NULL DEFAULT '';`); err != nil {
			return fmt.Errorf("add note column: %w", err)
		}
	}
	return nil
}

// migration002AddTabsFTS creates the FTS tables and their sync triggers,
// then indexes any tabs stored before they existed
func (db *DB) migration002AddTabsFTS() error {
	var tableName string
	err := db.conn.QueryRow(`
		SELECT name FROM sqlite_master
		WHERE type='table' AND name='build_tabs_fts'
	`).Scan(&tableName)
	if err == nil {
		return nil
	}
	if err != sql.ErrNoRows {
		return err
	}

	_, err = db.conn.Exec(`
		-- Identifier search without stemming (keeps snake_case and std names)
		CREATE VIRTUAL TABLE build_tabs_fts USING fts5(
			title,
			code,
			content=build_tabs,
			content_rowid=id,
			tokenize='unicode61'
		);

		CREATE TRIGGER IF NOT EXISTS build_tabs_ai AFTER INSERT ON build_tabs BEGIN
			INSERT INTO build_tabs_fts(rowid, title, code) VALUES (new.id, new.title, new.code);
		END;

		CREATE TRIGGER IF NOT EXISTS build_tabs_ad AFTER DELETE ON build_tabs BEGIN
			INSERT INTO build_tabs_fts(build_tabs_fts, rowid, title, code) VALUES ('delete', old.id, old.title, old.code);
		END;

		CREATE TRIGGER IF NOT EXISTS build_tabs_au AFTER UPDATE ON build_tabs BEGIN
			INSERT INTO build_tabs_fts(build_tabs_fts, rowid, title, code) VALUES ('delete', old.id, old.title, old.code);
			INSERT INTO build_tabs_fts(rowid, title, code) VALUES (new.id, new.title, new.code);
		END;

		INSERT INTO build_tabs_fts(build_tabs_fts) VALUES ('rebuild');
	`)
	if err != nil {
		return fmt.Errorf("create build_tabs_fts: %w", err)
	}
	return nil
}
