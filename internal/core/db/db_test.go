package db

import (
	"encoding/json"
	"os"
	"testing"
	"time"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	tmpfile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Remove(tmpfile.Name()) })
	_ = tmpfile.Close()

	database, err := New(tmpfile.Name())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return database
}

func sampleBuild(id string) *Build {
	return &Build{
		BuildID: id,
		Tabs: []BuildTab{
			{Title: "cstdio", Compiler: "clang-9.0", CppVersion: "20", Optim: "3", Lib: "gnu", Code: "#include <cstdio>\nint main() { puts(\"hi\"); }"},
			{Title: "iostream", Compiler: "gcc-9.2", CppVersion: "20", Optim: "3", Lib: "gnu", Code: "#include <iostream>\nint main() { std::cout << \"hi\"; }"},
		},
		Payload:   json.RawMessage(`{"result":[]}`),
		HasResult: true,
	}
}

func TestNew_WALMode(t *testing.T) {
	database := newTestDB(t)

	var journalMode string
	if err := database.conn.QueryRow("PRAGMA journal_mode").Scan(&journalMode); err != nil {
		t.Fatalf("Failed to query journal mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("Expected WAL mode, got %s", journalMode)
	}
}

func TestNew_ForeignKeys(t *testing.T) {
	database := newTestDB(t)

	var fkEnabled int
	if err := database.conn.QueryRow("PRAGMA foreign_keys").Scan(&fkEnabled); err != nil {
		t.Fatalf("Failed to query foreign keys: %v", err)
	}
	if fkEnabled != 1 {
		t.Errorf("Expected foreign keys enabled, got %d", fkEnabled)
	}
}

func TestNew_Reopen(t *testing.T) {
	tmpfile, err := os.CreateTemp("", "test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = os.Remove(tmpfile.Name()) }()
	_ = tmpfile.Close()

	for i := 0; i < 2; i++ {
		database, err := New(tmpfile.Name())
		if err != nil {
			t.Fatalf("New() open %d error = %v", i+1, err)
		}
		_ = database.Close()
	}
}

func TestSaveAndGetBuild(t *testing.T) {
	database := newTestDB(t)

	b := sampleBuild("abc123")
	if err := database.SaveBuild(b); err != nil {
		t.Fatalf("SaveBuild() error = %v", err)
	}
	if b.ID == 0 {
		t.Error("SaveBuild() did not set ID")
	}

	got, err := database.GetBuild("abc123")
	if err != nil {
		t.Fatalf("GetBuild() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetBuild() = nil")
	}
	if got.Title != "cstdio vs iostream" {
		t.Errorf("Title = %q", got.Title)
	}
	if len(got.Tabs) != 2 || got.Tabs[1].Compiler != "gcc-9.2" || got.Tabs[1].Position != 1 {
		t.Errorf("Tabs = %+v", got.Tabs)
	}
	if string(got.Payload) != `{"result":[]}` || !got.HasResult {
		t.Errorf("Payload = %s, HasResult = %v", got.Payload, got.HasResult)
	}
	if time.Since(got.UpdatedAt) > time.Hour {
		t.Errorf("UpdatedAt = %v", got.UpdatedAt)
	}
}

func TestGetBuildMissing(t *testing.T) {
	database := newTestDB(t)

	got, err := database.GetBuild("nope")
	if err != nil || got != nil {
		t.Errorf("GetBuild() = %v, %v, want nil, nil", got, err)
	}
}

func TestSaveBuildReplacesTabs(t *testing.T) {
	database := newTestDB(t)

	b := sampleBuild("abc123")
	b.Note = "first"
	if err := database.SaveBuild(b); err != nil {
		t.Fatal(err)
	}
	if err := database.TouchBuild("abc123"); err != nil {
		t.Fatal(err)
	}

	again := sampleBuild("abc123")
	again.Tabs = again.Tabs[:1]
	if err := database.SaveBuild(again); err != nil {
		t.Fatal(err)
	}

	got, err := database.GetBuild("abc123")
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Tabs) != 1 {
		t.Errorf("len(Tabs) = %d, want 1", len(got.Tabs))
	}
	if got.Note != "first" {
		t.Errorf("Note = %q, want it kept", got.Note)
	}
	if got.OpenCount != 1 {
		t.Errorf("OpenCount = %d, want 1", got.OpenCount)
	}
}

func TestSaveBuildRequiresID(t *testing.T) {
	database := newTestDB(t)
	if err := database.SaveBuild(&Build{}); err == nil {
		t.Error("SaveBuild() expected error for empty id")
	}
}

func TestListBuilds(t *testing.T) {
	database := newTestDB(t)

	if err := database.SaveBuild(sampleBuild("one")); err != nil {
		t.Fatal(err)
	}
	diag := sampleBuild("two")
	diag.HasResult = false
	diag.Tabs = diag.Tabs[:1]
	if err := database.SaveBuild(diag); err != nil {
		t.Fatal(err)
	}
	draft := sampleBuild("draft-1234")
	draft.Draft = true
	if err := database.SaveBuild(draft); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		filter HistoryFilter
		want   int
	}{
		{"all", HistoryFilter{}, 2},
		{"drafts", HistoryFilter{IncludeDrafts: true}, 3},
		{"results only", HistoryFilter{OnlyResults: true}, 1},
		{"compiler", HistoryFilter{Compiler: "gcc"}, 1},
		{"query", HistoryFilter{Query: "two"}, 1},
		{"limit", HistoryFilter{Limit: 1}, 1},
		{"after future", HistoryFilter{AfterDate: time.Now().Add(time.Hour), HasAfter: true}, 0},
		{"before future", HistoryFilter{BeforeDate: time.Now().Add(time.Hour), HasBefore: true}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := database.ListBuilds(tt.filter)
			if err != nil {
				t.Fatalf("ListBuilds() error = %v", err)
			}
			if len(got) != tt.want {
				t.Errorf("ListBuilds() returned %d builds, want %d", len(got), tt.want)
			}
		})
	}

	all, _ := database.ListBuilds(HistoryFilter{})
	for _, b := range all {
		if b.BuildID == "one" && (b.TabCount != 2 || len(b.Compilers) != 2 || b.CodeSize == 0) {
			t.Errorf("summary = %+v", b)
		}
	}
}

func TestSetNoteAndDelete(t *testing.T) {
	database := newTestDB(t)
	if err := database.SaveBuild(sampleBuild("abc")); err != nil {
		t.Fatal(err)
	}

	if err := database.SetNote("abc", "vector vs list"); err != nil {
		t.Fatal(err)
	}
	if err := database.SetNote("missing", "x"); err == nil {
		t.Error("SetNote() on a missing build expected error")
	}

	deleted, err := database.DeleteBuild("abc")
	if err != nil || !deleted {
		t.Fatalf("DeleteBuild() = %v, %v", deleted, err)
	}
	var tabs int
	if err := database.QueryRow("SELECT COUNT(*) FROM build_tabs").Scan(&tabs); err != nil {
		t.Fatal(err)
	}
	if tabs != 0 {
		t.Errorf("%d tabs left after delete, want cascade", tabs)
	}

	deleted, err = database.DeleteBuild("abc")
	if err != nil || deleted {
		t.Errorf("second DeleteBuild() = %v, %v", deleted, err)
	}
}

func TestGetStats(t *testing.T) {
	database := newTestDB(t)

	stats, err := database.GetStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalBuilds != 0 {
		t.Errorf("TotalBuilds = %d", stats.TotalBuilds)
	}

	_ = database.SaveBuild(sampleBuild("a"))
	b := sampleBuild("b")
	b.Tabs[1].Compiler = "clang-9.0"
	_ = database.SaveBuild(b)

	stats, err = database.GetStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalBuilds != 2 || stats.TotalTabs != 4 || stats.WithResults != 2 {
		t.Errorf("stats = %+v", stats)
	}
	if stats.MostUsedCompiler != "clang-9.0" || stats.MostUsedCompilerTab != 3 {
		t.Errorf("most used = %s (%d)", stats.MostUsedCompiler, stats.MostUsedCompilerTab)
	}
	if stats.NewestBuild.IsZero() {
		t.Error("NewestBuild not set")
	}
}
