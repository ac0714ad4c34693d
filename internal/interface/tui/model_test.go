package tui

import (
	"context"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/qbench/internal/core/session"
	"github.com/neilberkman/qbench/pkg/buildbench"
)

type fakeBuilder struct {
	resp *buildbench.Response
	err  error
}

func (f *fakeBuilder) Build(context.Context, buildbench.BuildRequest) (*buildbench.Response, error) {
	return f.resp, f.err
}

func (f *fakeBuilder) Fetch(context.Context, string) (*buildbench.Response, error) {
	return f.resp, f.err
}

func newTestModel() Model {
	m := New(Options{
		Session:    session.New(),
		Client:     &fakeBuilder{},
		ServiceURL: "https://build-bench.com",
		Compilers:  []string{"clang-9.0", "gcc-10.1"},
	})
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return updated.(Model)
}

func press(t *testing.T, m Model, k tea.KeyType) Model {
	t.Helper()
	updated, _ := m.Update(tea.KeyMsg{Type: k})
	return updated.(Model)
}

func TestCycle(t *testing.T) {
	tests := []struct {
		choices []string
		cur     string
		want    string
	}{
		{[]string{"a", "b", "c"}, "a", "b"},
		{[]string{"a", "b", "c"}, "c", "a"},
		{[]string{"a", "b", "c"}, "zzz", "a"},
	}
	for _, tt := range tests {
		if got := cycle(tt.choices, tt.cur); got != tt.want {
			t.Errorf("cycle(%v, %q) = %q, want %q", tt.choices, tt.cur, got, tt.want)
		}
	}
}

func TestEditorShowsFocusedTab(t *testing.T) {
	m := newTestModel()
	tab, _ := m.session.Tab(0)
	if m.editor.Value() != tab.Code {
		t.Errorf("editor = %q, want first tab code", m.editor.Value())
	}

	m = press(t, m, tea.KeyTab)
	if m.session.Focused() != 1 {
		t.Fatalf("Focused() = %d, want 1", m.session.Focused())
	}
	tab, _ = m.session.Tab(1)
	if m.editor.Value() != tab.Code {
		t.Errorf("editor = %q, want second tab code", m.editor.Value())
	}
}

func TestTypingUpdatesSession(t *testing.T) {
	m := newTestModel()
	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("x")})
	m = updated.(Model)

	tab, _ := m.session.Tab(0)
	if !strings.Contains(tab.Code, "x") {
		t.Errorf("tab code = %q, want typed rune", tab.Code)
	}
	if !m.session.Dirty() {
		t.Error("session not dirty after typing")
	}
}

func TestAddAndCloseTab(t *testing.T) {
	m := newTestModel()
	m = press(t, m, tea.KeyCtrlT)
	if m.session.Len() != 3 {
		t.Fatalf("Len() = %d after ctrl+t, want 3", m.session.Len())
	}
	if m.session.Focused() != 2 {
		t.Errorf("Focused() = %d, want new tab", m.session.Focused())
	}

	m = press(t, m, tea.KeyCtrlW)
	if m.session.Len() != 2 {
		t.Errorf("Len() = %d after ctrl+w, want 2", m.session.Len())
	}
}

func TestCycleCompiler(t *testing.T) {
	m := newTestModel()
	m = press(t, m, tea.KeyF2)
	tab, _ := m.session.Tab(0)
	if tab.Options.Compiler != "gcc-10.1" {
		t.Errorf("compiler = %q, want gcc-10.1", tab.Options.Compiler)
	}
	// Options start mirrored
	other, _ := m.session.Tab(1)
	if other.Options.Compiler != "gcc-10.1" {
		t.Errorf("second tab compiler = %q, want mirrored gcc-10.1", other.Options.Compiler)
	}
}

func TestBuildDone(t *testing.T) {
	m := newTestModel()
	ticket, _, err := m.session.BeginSubmit()
	if err != nil {
		t.Fatalf("BeginSubmit() error = %v", err)
	}

	resp := &buildbench.Response{
		ID:     "abc",
		Result: []byte(`[{"name":"cstdio","time":1},{"name":"iostream","time":2}]`),
	}
	updated, _ := m.Update(buildDoneMsg{ticket: ticket, resp: resp})
	m = updated.(Model)

	if m.mode != resultsView {
		t.Errorf("mode = %v, want results view", m.mode)
	}
	if m.PageURL != "https://build-bench.com/b/abc" {
		t.Errorf("PageURL = %q", m.PageURL)
	}
	if !strings.Contains(m.renderChart(), "iostream") {
		t.Errorf("renderChart() missing benchmark:\n%s", m.renderChart())
	}
}

func TestStaleBuildIgnored(t *testing.T) {
	m := newTestModel()
	old, _, _ := m.session.BeginSubmit()
	_, _, _ = m.session.BeginSubmit()

	updated, _ := m.Update(buildDoneMsg{ticket: old, resp: &buildbench.Response{ID: "old", Result: []byte(`[]`)}})
	m = updated.(Model)

	if m.session.Identity() == "old" {
		t.Error("stale response was applied")
	}
	if !m.session.InFlight() {
		t.Error("newer submission no longer in flight")
	}
}

func TestHelpReturnsToPreviousView(t *testing.T) {
	m := newTestModel()
	m.mode = resultsView
	m = press(t, m, tea.KeyF1)
	if m.mode != helpView {
		t.Fatalf("mode = %v, want help", m.mode)
	}
	m = press(t, m, tea.KeyEsc)
	if m.mode != resultsView {
		t.Errorf("mode = %v, want results view", m.mode)
	}
}

func TestForceRequiresCleanSession(t *testing.T) {
	m := newTestModel()
	m = press(t, m, tea.KeyCtrlF)
	if m.session.Force() {
		t.Error("force set on a dirty session")
	}
	if m.status == "" {
		t.Error("no status explaining why force was refused")
	}
}

func TestResultsKeys(t *testing.T) {
	m := newTestModel()
	m.mode = resultsView

	m = press(t, m, tea.KeyTab)
	if m.pane != includesPane {
		t.Errorf("pane after tab = %v, want includes", m.pane)
	}
	m = press(t, m, tea.KeyShiftTab)
	if m.pane != chartPane {
		t.Errorf("pane after shift+tab = %v, want chart", m.pane)
	}

	updated, _ := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("]")})
	m = updated.(Model)
	if m.paneTab != 1 {
		t.Errorf("paneTab after ] = %d, want 1", m.paneTab)
	}

	updated, _ = m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("5")})
	m = updated.(Model)
	if m.pane != messagesPane {
		t.Errorf("pane after 5 = %v, want messages", m.pane)
	}

	m = press(t, m, tea.KeyEsc)
	if m.mode != editorView {
		t.Errorf("mode after esc = %v, want editor", m.mode)
	}
}

func TestMessagesWrapToViewport(t *testing.T) {
	m := newTestModel()
	long := strings.Repeat("error: expected ';' ", 20)
	for _, line := range strings.Split(m.wrap(long), "\n") {
		if len(line) > m.viewport.Width {
			t.Errorf("wrapped line longer than viewport (%d): %q", m.viewport.Width, line)
		}
	}
}

func TestResetUnsavedSession(t *testing.T) {
	m := newTestModel()
	_ = m.session.SetTitle(0, "edited")
	_ = m.session.SetCode(0, "int x;")
	m.session.AddTab()

	m = press(t, m, tea.KeyCtrlN)

	tab, _ := m.session.Tab(0)
	if tab.Title != "cstdio" {
		t.Errorf("title after ctrl+n = %q, want cstdio", tab.Title)
	}
	if m.session.Len() != 2 {
		t.Errorf("tabs after ctrl+n = %d, want 2", m.session.Len())
	}
	want, _ := session.New().Tab(0)
	if tab.Code != want.Code {
		t.Errorf("code after ctrl+n = %q, want the starter code", tab.Code)
	}
}

func TestSecondBuildWhileInFlight(t *testing.T) {
	m := newTestModel()
	m = press(t, m, tea.KeyCtrlR)
	if !m.session.InFlight() {
		t.Fatal("ctrl+r did not start a build")
	}
	seq := m.tickSeq

	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlR})
	m = updated.(Model)
	if cmd != nil {
		t.Error("second ctrl+r issued a request")
	}
	if m.tickSeq != seq {
		t.Errorf("tickSeq = %d, want %d", m.tickSeq, seq)
	}
	if m.status == "" {
		t.Error("no status explaining the refused build")
	}
}

func TestFirstLineTruncatesRunes(t *testing.T) {
	tests := []struct {
		text   string
		maxLen int
		want   string
	}{
		{"short\nsecond", 20, "short"},
		{"abcdefghij", 8, "abcde..."},
		{"ошибка: нет файла", 9, "ошибка..."},
	}
	for _, tt := range tests {
		if got := firstLine(tt.text, tt.maxLen); got != tt.want {
			t.Errorf("firstLine(%q, %d) = %q, want %q", tt.text, tt.maxLen, got, tt.want)
		}
	}
}
