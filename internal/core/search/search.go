// Package search finds recorded builds by the code and titles of their tabs.
package search

import (
	"database/sql"
	"fmt"
	"strings"
	"unicode"

	"github.com/neilberkman/qbench/internal/core/db"
)

// Result is one matching tab of a recorded build
type Result struct {
	BuildID    string
	BuildTitle string
	TabTitle   string
	Position   int
	Compiler   string
	Snippet    string
	UpdatedAt  string
}

// Default sort order for search results (most recent first)
const defaultOrderBy = "b.updated_at DESC, t.position ASC"

// Search finds tabs whose code or title matches query. Plain words use the
// FTS index; anything with punctuation (std::vector, #include, a_b) falls
// back to substring matching so C++ symbols are found verbatim.
func Search(database *db.DB, query string, limit int) ([]Result, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("search query cannot be empty")
	}
	if limit <= 0 {
		limit = 100
	}

	var (
		rows *sql.Rows
		err  error
	)
	if needsSubstringMatch(query) {
		rows, err = database.Query(fmt.Sprintf(`
			SELECT b.build_id, b.title, t.title, t.position, t.compiler, t.code, b.updated_at
			FROM build_tabs t
			JOIN builds b ON b.id = t.build_id
			WHERE t.code LIKE '%%' || ? || '%%' OR t.title LIKE '%%' || ? || '%%'
			ORDER BY %s
			LIMIT ?
		`, defaultOrderBy), query, query, limit)
	} else {
		rows, err = database.Query(fmt.Sprintf(`
			SELECT b.build_id, b.title, t.title, t.position, t.compiler,
			       snippet(build_tabs_fts, 1, '', '', '...', 16), b.updated_at
			FROM build_tabs_fts
			JOIN build_tabs t ON build_tabs_fts.rowid = t.id
			JOIN builds b ON b.id = t.build_id
			WHERE build_tabs_fts MATCH ?
			ORDER BY %s
			LIMIT ?
		`, defaultOrderBy), query, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("search query failed: %w", err)
	}
	defer func() { _ = rows.Close() }()

	substring := needsSubstringMatch(query)
	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.BuildID, &r.BuildTitle, &r.TabTitle, &r.Position, &r.Compiler, &r.Snippet, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan result: %w", err)
		}
		if substring {
			r.Snippet = snippetAround(r.Snippet, query, 40)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating results: %w", err)
	}

	return results, nil
}

func needsSubstringMatch(query string) bool {
	return strings.IndexFunc(query, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && !unicode.IsSpace(r)
	}) >= 0
}

// snippetAround returns the line of text containing query, trimmed to
// about radius characters either side of the match
func snippetAround(text, query string, radius int) string {
	idx := strings.Index(text, query)
	if idx < 0 {
		// Title match: show the first line of code
		line, _, _ := strings.Cut(text, "\n")
		return truncate(strings.TrimSpace(line), 2*radius)
	}

	start := strings.LastIndex(text[:idx], "\n") + 1
	end := len(text)
	if nl := strings.Index(text[idx:], "\n"); nl >= 0 {
		end = idx + nl
	}
	line := []rune(text[start:end])
	pos := len([]rune(text[start:idx]))

	from, to := pos-radius, pos+len([]rune(query))+radius
	prefix, suffix := "...", "..."
	if from <= 0 {
		from, prefix = 0, ""
	}
	if to >= len(line) {
		to, suffix = len(line), ""
	}
	return prefix + strings.TrimSpace(string(line[from:to])) + suffix
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
