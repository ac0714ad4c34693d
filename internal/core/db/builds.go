package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// Build is a benchmark session recorded in the local history
type Build struct {
	ID           int64
	BuildID      string // service identity, or a draft id for builds that never got one
	Draft        bool
	Title        string
	Tabs         []BuildTab
	Payload      json.RawMessage // last response seen for this build, tabs included
	HasResult    bool
	Note         string
	OpenCount    int
	CreatedAt    time.Time
	UpdatedAt    time.Time
	LastOpenedAt time.Time
}

// BuildTab is one tab of a recorded build
type BuildTab struct {
	Position   int
	Title      string
	Compiler   string
	CppVersion string
	Optim      string
	Lib        string
	Code       string
}

// BuildSummary is a row of the history list
type BuildSummary struct {
	BuildID   string
	Draft     bool
	Title     string
	TabCount  int
	CodeSize  int
	Compilers []string
	HasResult bool
	Note      string
	OpenCount int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TitleFor joins tab titles into a history title ("a vs b vs c")
func TitleFor(tabs []BuildTab) string {
	titles := make([]string, len(tabs))
	for i, t := range tabs {
		titles[i] = t.Title
	}
	return strings.Join(titles, " vs ")
}

// SaveBuild inserts or replaces a build and its tabs, keyed by BuildID.
// Open counts and notes survive a re-save.
func (db *DB) SaveBuild(b *Build) error {
	if b.BuildID == "" {
		return fmt.Errorf("build id is required")
	}
	if b.Title == "" {
		b.Title = TitleFor(b.Tabs)
	}

	codeSize := 0
	for _, t := range b.Tabs {
		codeSize += utf8.RuneCountInString(t.Code)
	}

	now := time.Now().UTC()
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now

	var payload interface{}
	if len(b.Payload) > 0 {
		payload = string(b.Payload)
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT INTO builds
		(build_id, draft, title, tab_count, code_size, has_result, payload, note, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(build_id) DO UPDATE SET
			draft = excluded.draft,
			title = excluded.title,
			tab_count = excluded.tab_count,
			code_size = excluded.code_size,
			has_result = excluded.has_result,
			payload = excluded.payload,
			note = CASE WHEN excluded.note != '' THEN excluded.note ELSE builds.note END,
			updated_at = excluded.updated_at
	`, b.BuildID, b.Draft, b.Title, len(b.Tabs), codeSize, b.HasResult, payload, b.Note,
		formatTimestamp(b.CreatedAt), formatTimestamp(b.UpdatedAt))
	if err != nil {
		return fmt.Errorf("upsert build: %w", err)
	}

	if err := tx.QueryRow(`SELECT id FROM builds WHERE build_id = ?`, b.BuildID).Scan(&b.ID); err != nil {
		return fmt.Errorf("get build row: %w", err)
	}

	if _, err := tx.Exec(`DELETE FROM build_tabs WHERE build_id = ?`, b.ID); err != nil {
		return fmt.Errorf("clear tabs: %w", err)
	}
	for i, t := range b.Tabs {
		_, err = tx.Exec(`
			INSERT INTO build_tabs (build_id, position, title, compiler, cpp_version, optim, lib, code)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, b.ID, i, t.Title, t.Compiler, t.CppVersion, t.Optim, t.Lib, t.Code)
		if err != nil {
			return fmt.Errorf("insert tab %d: %w", i, err)
		}
	}

	return tx.Commit()
}

// GetBuild returns the build recorded under buildID, or nil if there is none
func (db *DB) GetBuild(buildID string) (*Build, error) {
	var (
		b                   Build
		payload, lastOpened sql.NullString
		created, updated    string
	)
	err := db.conn.QueryRow(`
		SELECT id, build_id, draft, title, has_result, payload, note, open_count,
		       created_at, updated_at, last_opened_at
		FROM builds WHERE build_id = ?
	`, buildID).Scan(&b.ID, &b.BuildID, &b.Draft, &b.Title, &b.HasResult, &payload, &b.Note,
		&b.OpenCount, &created, &updated, &lastOpened)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if payload.Valid {
		b.Payload = json.RawMessage(payload.String)
	}
	b.CreatedAt = parseTimestamp(created)
	b.UpdatedAt = parseTimestamp(updated)
	if lastOpened.Valid {
		b.LastOpenedAt = parseTimestamp(lastOpened.String)
	}

	rows, err := db.conn.Query(`
		SELECT position, title, compiler, cpp_version, optim, lib, code
		FROM build_tabs WHERE build_id = ? ORDER BY position
	`, b.ID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var t BuildTab
		if err := rows.Scan(&t.Position, &t.Title, &t.Compiler, &t.CppVersion, &t.Optim, &t.Lib, &t.Code); err != nil {
			return nil, err
		}
		b.Tabs = append(b.Tabs, t)
	}
	return &b, rows.Err()
}

// ListBuilds returns history entries matching f, most recently updated first
func (db *DB) ListBuilds(f HistoryFilter) ([]BuildSummary, error) {
	query := `
		SELECT
			b.build_id,
			b.draft,
			b.title,
			b.tab_count,
			b.code_size,
			COALESCE((SELECT GROUP_CONCAT(DISTINCT compiler) FROM build_tabs WHERE build_id = b.id), ''),
			b.has_result,
			b.note,
			b.open_count,
			b.created_at,
			b.updated_at
		FROM builds b
		WHERE 1=1`

	var args []interface{}
	if f.Query != "" {
		query += ` AND (b.title LIKE ? OR b.note LIKE ? OR b.build_id LIKE ?)`
		like := "%" + f.Query + "%"
		args = append(args, like, like, like)
	}
	if f.Compiler != "" {
		query += ` AND EXISTS (SELECT 1 FROM build_tabs WHERE build_id = b.id AND compiler LIKE ?)`
		args = append(args, f.Compiler+"%")
	}
	if f.HasAfter {
		query += ` AND b.updated_at >= ?`
		args = append(args, formatTimestamp(f.AfterDate))
	}
	if f.HasBefore {
		query += ` AND b.updated_at < ?`
		args = append(args, formatTimestamp(f.BeforeDate))
	}
	if f.OnlyResults {
		query += ` AND b.has_result = 1`
	}
	if !f.IncludeDrafts {
		query += ` AND b.draft = 0`
	}

	limit := f.Limit
	if limit <= 0 {
		limit = 1000
	}
	query += ` ORDER BY b.updated_at DESC, b.id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var builds []BuildSummary
	for rows.Next() {
		var (
			s                BuildSummary
			compilers        string
			created, updated string
		)
		err := rows.Scan(&s.BuildID, &s.Draft, &s.Title, &s.TabCount, &s.CodeSize, &compilers,
			&s.HasResult, &s.Note, &s.OpenCount, &created, &updated)
		if err != nil {
			return nil, err
		}
		if compilers != "" {
			s.Compilers = strings.Split(compilers, ",")
		}
		s.CreatedAt = parseTimestamp(created)
		s.UpdatedAt = parseTimestamp(updated)
		builds = append(builds, s)
	}
	return builds, rows.Err()
}

// TouchBuild records that a build was opened
func (db *DB) TouchBuild(buildID string) error {
	_, err := db.conn.Exec(`
		UPDATE builds
		SET open_count = open_count + 1, last_opened_at = ?
		WHERE build_id = ?
	`, formatTimestamp(time.Now()), buildID)
	return err
}

// SetNote replaces the note on a build
func (db *DB) SetNote(buildID, note string) error {
	res, err := db.conn.Exec(`UPDATE builds SET note = ? WHERE build_id = ?`, note, buildID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("no build %q in history", buildID)
	}
	return nil
}

// DeleteBuild removes a build and its tabs. It reports whether anything was deleted.
func (db *DB) DeleteBuild(buildID string) (bool, error) {
	res, err := db.conn.Exec(`DELETE FROM builds WHERE build_id = ?`, buildID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}
