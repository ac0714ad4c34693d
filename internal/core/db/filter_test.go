package db

import (
	"testing"
	"time"
)

func TestParseHistoryQuery(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		wantQuery    string
		wantCompiler string
		wantAfter    bool
		wantBefore   bool
		wantLimit    int
	}{
		{"plain", "vector benchmark", "vector benchmark", "", false, false, 0},
		{"compiler", "compiler:gcc sort", "sort", "gcc", false, false, 0},
		{"after iso", "after:2024-11-01", "", "", true, false, 0},
		{"before natural", "before:yesterday map", "map", "", false, true, 0},
		{"date alias", "date:3-days-ago", "", "", true, false, 0},
		{"limit", "limit:5", "", "", false, false, 5},
		{"cpp symbol kept", "std::vector", "std::vector", "", false, false, 0},
		{"unparseable date dropped", "after:zzz", "", "", false, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseHistoryQuery(tt.query)
			if got.Query != tt.wantQuery {
				t.Errorf("Query = %q, want %q", got.Query, tt.wantQuery)
			}
			if got.Compiler != tt.wantCompiler {
				t.Errorf("Compiler = %q, want %q", got.Compiler, tt.wantCompiler)
			}
			if got.HasAfter != tt.wantAfter || got.HasBefore != tt.wantBefore {
				t.Errorf("HasAfter = %v, HasBefore = %v", got.HasAfter, got.HasBefore)
			}
			if got.Limit != tt.wantLimit {
				t.Errorf("Limit = %d, want %d", got.Limit, tt.wantLimit)
			}
		})
	}
}

func TestParseHistoryQueryFlags(t *testing.T) {
	got := ParseHistoryQuery("has:results has:drafts")
	if !got.OnlyResults || !got.IncludeDrafts {
		t.Errorf("filters = %+v", got)
	}
}

func TestParseDate(t *testing.T) {
	got, ok := ParseDate("2024-11-01")
	if !ok || !got.Equal(time.Date(2024, 11, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("ParseDate(2024-11-01) = %v, %v", got, ok)
	}

	got, ok = ParseDate("yesterday")
	if !ok || time.Since(got) > 48*time.Hour {
		t.Errorf("ParseDate(yesterday) = %v, %v", got, ok)
	}

	if _, ok := ParseDate(""); ok {
		t.Error("ParseDate(\"\") should fail")
	}
}
