package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/qbench/internal/core/browser"
	"github.com/neilberkman/qbench/internal/core/db"
	"github.com/neilberkman/qbench/internal/core/history"
	"github.com/neilberkman/qbench/internal/core/search"
	"github.com/neilberkman/qbench/internal/core/session"
)

type viewMode int

const (
	editorView viewMode = iota
	resultsView
	historyView
	searchView
	renameView
	helpView
)

// Options wires a Model to its collaborators. History and DB may be nil
// when the local history is disabled.
type Options struct {
	Session     *session.Session
	Client      session.Builder
	History     *history.Recorder
	DB          *db.DB
	Opener      *browser.Opener
	ServiceURL  string
	ExplorerURL string
	Compilers   []string
	InitialID   string
}

type Model struct {
	opts    Options
	session *session.Session
	mode    viewMode
	prev    viewMode // mode to return to from help and rename
	width   int
	height  int
	status  string
	err     error

	editor      textarea.Model
	editorIndex int // tab whose code the editor holds

	// Results view
	viewport viewport.Model
	keyHelp  help.Model
	pane     resultPane
	paneTab  int
	progress float64
	tickSeq  int // identifies the live progress tick chain

	// History view
	list       list.Model
	builds     []db.BuildSummary
	filter     textinput.Model
	filtering  bool
	titleInput textinput.Model

	// Search view
	searchInput       textinput.Model
	searchResults     []search.Result
	searchSelectedIdx int
	searchViewOffset  int

	// URL of the last loaded build, printed by the caller after exit
	PageURL string
}

// New creates the TUI model around an existing session
func New(opts Options) Model {
	ed := textarea.New()
	ed.ShowLineNumbers = true
	ed.CharLimit = 0
	ed.MaxHeight = 0
	ed.Focus()

	filter := textinput.New()
	filter.Placeholder = "compiler:gcc after:yesterday has:results"

	si := textinput.New()
	si.Placeholder = "std::vector"

	ti := textinput.New()
	ti.CharLimit = 64

	m := Model{
		opts:        opts,
		session:     opts.Session,
		mode:        editorView,
		editor:      ed,
		filter:      filter,
		searchInput: si,
		titleInput:  ti,
		keyHelp:     help.New(),
		list:        createBuildList(nil, 80, 24),
	}
	m.loadEditor()
	return m
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{textarea.Blink}
	if m.opts.InitialID != "" {
		if t, ok := m.session.Navigate(m.opts.InitialID); ok {
			cmds = append(cmds, fetchBuild(m.builderFor(t.Identity), t))
		}
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "f1":
			if m.mode != helpView {
				m.prev = m.mode
				m.mode = helpView
			}
			return m, nil
		}

		switch m.mode {
		case editorView:
			return m.updateEditor(msg)
		case resultsView:
			return m.updateResults(msg)
		case historyView:
			return m.updateHistory(msg)
		case searchView:
			return m.updateSearch(msg)
		case renameView:
			return m.updateRename(msg)
		case helpView:
			return m.updateHelp(msg)
		}

	case buildDoneMsg:
		return m.handleBuildDone(msg)

	case loadDoneMsg:
		return m.handleLoadDone(msg)

	case progressTickMsg:
		if msg.seq != m.tickSeq || !m.session.InFlight() {
			return m, nil
		}
		m.progress = m.session.Progress().Tick()
		return m, tickProgress(m.session.Progress().Interval(), msg.seq)

	case recordedMsg:
		if msg.err != nil {
			m.status = "history: " + msg.err.Error()
		}
		return m, nil

	case buildsLoadedMsg:
		m.builds = msg.builds
		m.list = createBuildList(msg.builds, m.width, m.listHeight())
		return m, nil

	case searchResultsMsg:
		if msg.query == m.searchInput.Value() {
			m.searchResults = msg.results
		}
		return m, nil

	case statusMsg:
		m.status = string(msg)
		return m, nil

	case errMsg:
		m.err = msg.err
		return m, nil
	}

	// Forward cursor blink and other internal messages to the editor
	if m.mode == editorView {
		var cmd tea.Cmd
		m.editor, cmd = m.editor.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) View() string {
	if m.err != nil {
		return "Error: " + m.err.Error() + "\n\nPress ctrl+c to quit"
	}

	switch m.mode {
	case editorView:
		return m.viewEditor()
	case resultsView:
		return m.viewResults()
	case historyView:
		return m.viewHistory()
	case searchView:
		return m.viewSearch()
	case renameView:
		return m.viewRename()
	case helpView:
		return m.viewHelp()
	}

	return ""
}

// resize fits the editor, viewport and list to the window
func (m *Model) resize() {
	if m.width == 0 || m.height == 0 {
		return
	}
	m.editor.SetWidth(m.width)
	h := m.height - 6
	if h < 3 {
		h = 3
	}
	m.editor.SetHeight(h)

	m.viewport.Width = m.width
	m.viewport.Height = m.height - 5
	m.keyHelp.Width = m.width
	m.refreshResults()

	m.list.SetSize(m.width, m.listHeight())
}

func (m Model) listHeight() int {
	h := m.height - 4
	if h < 1 {
		h = 1
	}
	return h
}

// builderFor picks where a build id is loaded from: drafts exist only in
// the local history
func (m Model) builderFor(id string) session.Builder {
	if history.IsDraft(id) && m.opts.History != nil {
		return m.opts.History
	}
	return m.opts.Client
}
