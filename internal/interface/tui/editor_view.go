package tui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/neilberkman/qbench/internal/core/explorer"
	"github.com/neilberkman/qbench/internal/core/history"
	"github.com/neilberkman/qbench/internal/core/progress"
	"github.com/neilberkman/qbench/internal/core/session"
	"github.com/neilberkman/qbench/internal/core/share"
	"github.com/neilberkman/qbench/pkg/buildbench"
)

var (
	cppVersions = []string{"11", "14", "17", "20"}
	optimLevels = []string{"0", "1", "2", "3", "G", "F", "S"}
	stdLibs     = []string{"gnu", "llvm"}
)

// loadEditor shows the focused tab's code in the editor
func (m *Model) loadEditor() {
	tab, err := m.session.Tab(m.session.Focused())
	if err != nil {
		return
	}
	m.editorIndex = m.session.Focused()
	if m.editor.Value() != tab.Code {
		m.editor.SetValue(tab.Code)
	}
}

// commitEditor writes pending editor text back to its tab
func (m *Model) commitEditor() {
	tab, err := m.session.Tab(m.editorIndex)
	if err != nil {
		return
	}
	if v := m.editor.Value(); v != tab.Code {
		_ = m.session.SetCode(m.editorIndex, v)
	}
}

func (m Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	s := m.session
	m.status = ""

	switch msg.String() {
	case "ctrl+r":
		return m.startBuild()

	case "tab", "shift+tab":
		m.commitEditor()
		delta := 1
		if msg.String() == "shift+tab" {
			delta = s.Len() - 1
		}
		_ = s.Focus((s.Focused() + delta) % s.Len())
		m.loadEditor()
		return m, nil

	case "ctrl+t":
		m.commitEditor()
		_ = s.Focus(s.AddTab())
		m.loadEditor()
		return m, nil

	case "ctrl+w":
		m.commitEditor()
		if err := s.RemoveTab(s.Focused()); err != nil {
			m.status = err.Error()
		}
		m.loadEditor()
		m.refreshResults()
		return m, nil

	case "f7", "f8":
		m.commitEditor()
		to := s.Focused() - 1
		if msg.String() == "f8" {
			to = s.Focused() + 1
		}
		if to >= 0 && to < s.Len() {
			_ = s.MoveTab(s.Focused(), to)
		}
		m.loadEditor()
		m.refreshResults()
		return m, nil

	case "f2", "f3", "f4", "f5":
		m.cycleOption(msg.String())
		return m, nil

	case "f6":
		tab, _ := s.Tab(s.Focused())
		m.titleInput.SetValue(tab.Title)
		m.titleInput.CursorEnd()
		m.titleInput.Focus()
		m.prev = editorView
		m.mode = renameView
		return m, nil

	case "f9":
		m.commitEditor()
		m.status = "code " + s.ToggleCodeSync().String()
		m.loadEditor()
		return m, nil

	case "f10":
		m.status = "options " + s.ToggleOptionsSync().String()
		return m, nil

	case "ctrl+f":
		m.commitEditor()
		if !s.SetForce(!s.Force()) {
			m.status = "cache bypass is only available for an unchanged build"
		}
		return m, nil

	case "ctrl+n":
		s.Reset()
		m.progress = 0
		m.PageURL = ""
		m.loadEditor()
		m.refreshResults()
		return m, nil

	case "ctrl+g":
		m.commitEditor()
		m.mode = resultsView
		m.refreshResults()
		return m, nil

	case "ctrl+l":
		if m.opts.DB == nil {
			m.status = "history is disabled"
			return m, nil
		}
		m.commitEditor()
		m.mode = historyView
		return m, loadBuilds(m.opts.DB, m.filter.Value())

	case "ctrl+y":
		m.commitEditor()
		tab, _ := s.Tab(s.Focused())
		link, err := share.Link(strings.TrimSuffix(m.opts.ServiceURL, "/")+"/", share.FromTab(tab))
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		return m, copyToClipboard(link, "share link")

	case "ctrl+x":
		m.commitEditor()
		link, err := explorer.Link(m.opts.ExplorerURL, s.Tabs())
		if err != nil {
			m.status = err.Error()
			return m, nil
		}
		return m, copyToClipboard(link, "Compiler Explorer link")

	case "ctrl+b":
		if s.Identity() == "" || history.IsDraft(s.Identity()) {
			m.status = "build first to get a build page"
			return m, nil
		}
		return m, openInBrowser(m.opts.Opener, buildbench.PageURL(m.opts.ServiceURL, s.Identity()))
	}

	var cmd tea.Cmd
	m.editor, cmd = m.editor.Update(msg)
	m.commitEditor()
	return m, cmd
}

// startBuild issues a submission for the current tabs
func (m Model) startBuild() (tea.Model, tea.Cmd) {
	s := m.session
	if s.InFlight() {
		m.status = "a build is already running"
		return m, nil
	}
	m.commitEditor()

	// An oversize tab leaves its notice in the session
	t, req, err := s.BeginSubmit()
	if err != nil {
		return m, nil
	}
	m.tickSeq++
	m.progress = 0
	m.refreshResults()
	return m, tea.Batch(
		submitBuild(m.opts.Client, t, req),
		tickProgress(s.Progress().Interval(), m.tickSeq),
	)
}

func (m *Model) cycleOption(key string) {
	s := m.session
	tab, err := s.Tab(s.Focused())
	if err != nil {
		return
	}
	opts := tab.Options
	switch key {
	case "f2":
		choices := m.opts.Compilers
		if len(choices) == 0 {
			choices = []string{opts.Compiler}
		}
		opts.Compiler = cycle(choices, opts.Compiler)
	case "f3":
		opts.CppVersion = cycle(cppVersions, opts.CppVersion)
	case "f4":
		opts.Optim = cycle(optimLevels, opts.Optim)
	case "f5":
		opts.Lib = cycle(stdLibs, opts.Lib)
	}
	_ = s.SetOptions(s.Focused(), opts)
}

// cycle returns the choice after cur, wrapping around
func cycle(choices []string, cur string) string {
	for i, c := range choices {
		if c == cur {
			return choices[(i+1)%len(choices)]
		}
	}
	return choices[0]
}

func (m Model) handleBuildDone(msg buildDoneMsg) (tea.Model, tea.Cmd) {
	outcome, err := m.session.CompleteSubmit(msg.ticket, msg.resp, msg.err)
	if outcome == session.OutcomeStale {
		return m, nil
	}
	m.progress = 0
	m.loadEditor()

	var cmd tea.Cmd
	switch outcome {
	case session.OutcomeResults:
		m.status = "build finished"
		m.mode = resultsView
		m.pane = chartPane
		m.PageURL = buildbench.PageURL(m.opts.ServiceURL, m.session.Identity())
		cmd = recordSubmit(m.opts.History, outcome, m.session.Tabs(), msg.resp)
	case session.OutcomeDiagnostics:
		m.status = "build produced diagnostics"
	default:
		if err != nil {
			m.status = err.Error()
		}
	}
	m.refreshResults()
	return m, cmd
}

func (m Model) handleLoadDone(msg loadDoneMsg) (tea.Model, tea.Cmd) {
	outcome, err := m.session.CompleteLoad(msg.ticket, msg.resp, msg.err)
	if outcome == session.OutcomeStale {
		return m, nil
	}
	m.loadEditor()

	var cmd tea.Cmd
	switch outcome {
	case session.OutcomeResults, session.OutcomeDiagnostics:
		m.status = "loaded " + msg.ticket.Identity
		if !history.IsDraft(msg.ticket.Identity) {
			m.PageURL = buildbench.PageURL(m.opts.ServiceURL, msg.ticket.Identity)
		}
		if outcome == session.OutcomeResults {
			m.mode = resultsView
			m.pane = chartPane
		} else {
			m.mode = editorView
		}
		if !msg.local {
			cmd = recordLoad(m.opts.History, msg.ticket.Identity, msg.resp)
		}
	default:
		m.mode = editorView
		if err != nil {
			m.status = err.Error()
		}
	}
	m.refreshResults()
	return m, cmd
}

func (m Model) viewEditor() string {
	var b strings.Builder
	s := m.session

	b.WriteString(m.renderTabBar())
	b.WriteString("\n")

	tab, _ := s.Tab(s.Focused())
	opts := tab.Options
	line := optionsStyle.Render(fmt.Sprintf("%s  c++%s  -O%s  %s", opts.Compiler, opts.CppVersion, opts.Optim, opts.Lib))
	line += "  " + syncStyle.Render(fmt.Sprintf("code:%s options:%s", s.CodeSync(), s.OptionsSync()))
	if s.Force() {
		line += "  " + noticeStyle.Render("force")
	}
	if size := len([]rune(tab.Code)); size > s.MaxCodeSize() {
		line += "  " + noticeStyle.Render(fmt.Sprintf("%d/%d chars", size, s.MaxCodeSize()))
	}
	b.WriteString(line)
	b.WriteString("\n")

	b.WriteString(m.editor.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("ctrl+r build • tab next • ctrl+t add • ctrl+w close • F2-F5 options • ctrl+g results • ctrl+l history • F1 help"))
	return b.String()
}

// statusLine shows the build progress, or the most relevant message
func (m Model) statusLine() string {
	s := m.session
	if s.InFlight() && s.Progress().Running() {
		width := m.width - 20
		if width > 50 {
			width = 50
		}
		if width < 10 {
			width = 10
		}
		return barStyle.Render(fmt.Sprintf("[%s] %3.0f%% building...", progress.Bar(m.progress, width), m.progress))
	}
	if s.InFlight() {
		return statusStyle.Render("loading...")
	}

	tab, _ := s.Tab(s.Focused())
	switch {
	case s.Notice() != "":
		return noticeStyle.Render(firstLine(s.Notice(), m.width))
	case tab.Message != "":
		return messageStyle.Render(firstLine(tab.Message, m.width))
	case m.status != "":
		return statusStyle.Render(m.status)
	}
	return ""
}

func (m Model) renderTabBar() string {
	s := m.session
	var parts []string
	for i, t := range s.Tabs() {
		title := t.Title
		if t.Message != "" {
			title += " !"
		}
		if i == s.Focused() {
			parts = append(parts, activeTabStyle.Render(title))
		} else {
			parts = append(parts, inactiveTabStyle.Render(title))
		}
	}
	bar := lipgloss.JoinHorizontal(lipgloss.Top, parts...)

	id := "unsaved"
	if s.Identity() != "" {
		id = s.Identity()
	}
	if s.Dirty() {
		id += "*"
	}
	return bar + "  " + titleStyle.Render(id)
}

// firstLine returns the first line of text, shortened to maxLen
func firstLine(text string, maxLen int) string {
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	if maxLen > 3 {
		text = truncate.StringWithTail(text, uint(maxLen), "...")
	}
	return text
}
