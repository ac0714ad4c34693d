package db

import (
	"database/sql"
	"time"
)

// Stats summarizes the local build history
type Stats struct {
	TotalBuilds         int
	TotalDrafts         int
	TotalTabs           int
	WithResults         int
	OldestBuild         time.Time
	NewestBuild         time.Time
	MostUsedCompiler    string
	MostUsedCompilerTab int
}

// GetStats returns history statistics
func (db *DB) GetStats() (*Stats, error) {
	stats := &Stats{}

	err := db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(SUM(draft), 0),
			COALESCE(SUM(has_result), 0)
		FROM builds
	`).Scan(&stats.TotalBuilds, &stats.TotalDrafts, &stats.WithResults)
	if err != nil {
		return nil, err
	}

	if err := db.QueryRow("SELECT COUNT(*) FROM build_tabs").Scan(&stats.TotalTabs); err != nil {
		return nil, err
	}

	if stats.TotalBuilds == 0 {
		return stats, nil
	}

	var oldest, newest sql.NullString
	if err := db.QueryRow("SELECT MIN(created_at), MAX(updated_at) FROM builds").Scan(&oldest, &newest); err != nil {
		return nil, err
	}
	if oldest.Valid {
		stats.OldestBuild = parseTimestamp(oldest.String)
	}
	if newest.Valid {
		stats.NewestBuild = parseTimestamp(newest.String)
	}

	var compiler sql.NullString
	err = db.QueryRow(`
		SELECT compiler, COUNT(*) as count
		FROM build_tabs
		WHERE compiler != ''
		GROUP BY compiler
		ORDER BY count DESC, compiler
		LIMIT 1
	`).Scan(&compiler, &stats.MostUsedCompilerTab)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if compiler.Valid {
		stats.MostUsedCompiler = compiler.String
	}

	return stats, nil
}
