package db

func (db *DB) initSchema() error {
	schema := `
	-- Builds known to this machine, keyed by service identity (or a draft id)
	CREATE TABLE IF NOT EXISTS builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT UNIQUE NOT NULL,
		draft BOOLEAN NOT NULL DEFAULT 0,
		title TEXT NOT NULL DEFAULT '',
		tab_count INTEGER NOT NULL DEFAULT 0,
		code_size INTEGER NOT NULL DEFAULT 0,
		has_result BOOLEAN NOT NULL DEFAULT 0,
		payload TEXT,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		last_opened_at DATETIME,
		open_count INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_builds_build_id ON builds(build_id);
	CREATE INDEX IF NOT EXISTS idx_builds_updated_at ON builds(updated_at);

	-- Tabs of each build, in order
	CREATE TABLE IF NOT EXISTS build_tabs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id INTEGER NOT NULL,
		position INTEGER NOT NULL,
		title TEXT NOT NULL,
		compiler TEXT NOT NULL DEFAULT '',
		cpp_version TEXT NOT NULL DEFAULT '',
		optim TEXT NOT NULL DEFAULT '',
		lib TEXT NOT NULL DEFAULT '',
		code TEXT NOT NULL DEFAULT '',
		FOREIGN KEY (build_id) REFERENCES builds(id) ON DELETE CASCADE,
		UNIQUE (build_id, position)
	);

	CREATE INDEX IF NOT EXISTS idx_build_tabs_build_id ON build_tabs(build_id);
	CREATE INDEX IF NOT EXISTS idx_build_tabs_compiler ON build_tabs(compiler);
	`

	_, err := db.conn.Exec(schema)
	return err
}
