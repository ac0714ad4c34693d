package db

import (
	"strconv"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// HistoryFilter narrows ListBuilds
type HistoryFilter struct {
	Query         string    // Substring of title, note or build id
	Compiler      string    // Prefix of any tab's compiler (e.g. "gcc", "clang-9")
	AfterDate     time.Time // Only builds updated at or after this date
	BeforeDate    time.Time // Only builds updated before this date
	HasAfter      bool
	HasBefore     bool
	OnlyResults   bool // Skip builds that only produced diagnostics
	IncludeDrafts bool
	Limit         int
}

// ParseHistoryQuery extracts filters from a history query string
// Supports:
//   - compiler:<prefix> - filter by compiler
//   - after:yesterday, before:2024-11-01 - date ranges
//   - date:3-days-ago - same as after: (dashes stand for spaces)
//   - limit:<n>, has:results, has:drafts
func ParseHistoryQuery(query string) HistoryFilter {
	filters := HistoryFilter{}
	w := newDateParser()

	var queryParts []string
	for _, token := range strings.Fields(query) {
		key, value, ok := strings.Cut(token, ":")
		if !ok || value == "" {
			queryParts = append(queryParts, token)
			continue
		}

		switch key {
		case "compiler":
			filters.Compiler = value
		case "after", "date":
			if parsed := parseDate(w, value); parsed != nil {
				filters.AfterDate = *parsed
				filters.HasAfter = true
			}
		case "before":
			if parsed := parseDate(w, value); parsed != nil {
				filters.BeforeDate = *parsed
				filters.HasBefore = true
			}
		case "limit":
			if n, err := strconv.Atoi(value); err == nil && n > 0 {
				filters.Limit = n
			}
		case "has":
			switch value {
			case "results":
				filters.OnlyResults = true
			case "drafts":
				filters.IncludeDrafts = true
			}
		default:
			// Not a filter (e.g. "std::vector"), keep it in the query
			queryParts = append(queryParts, token)
		}
	}

	filters.Query = strings.Join(queryParts, " ")
	return filters
}

// ParseDate parses natural language ("last week", "3 days ago") or a
// calendar date. It reports false when nothing could be understood.
func ParseDate(s string) (time.Time, bool) {
	t := parseDate(newDateParser(), s)
	if t == nil {
		return time.Time{}, false
	}
	return *t, true
}

func newDateParser() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}

// parseDate tries calendar formats first, then natural language
func parseDate(w *when.Parser, dateStr string) *time.Time {
	formats := []string{
		"2006-01-02",
		"2006-01-02T15:04:05",
		time.RFC3339,
		"2006/01/02",
		"01/02/2006",
	}
	for _, format := range formats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return &t
		}
	}

	// Query tokens use dashes for spaces: after:last-week
	natural := strings.ReplaceAll(dateStr, "-", " ")
	if result, err := w.Parse(natural, time.Now()); err == nil && result != nil {
		return &result.Time
	}

	return nil
}
