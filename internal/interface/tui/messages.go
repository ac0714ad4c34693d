package tui

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/neilberkman/qbench/internal/core/browser"
	"github.com/neilberkman/qbench/internal/core/db"
	"github.com/neilberkman/qbench/internal/core/history"
	"github.com/neilberkman/qbench/internal/core/models"
	"github.com/neilberkman/qbench/internal/core/search"
	"github.com/neilberkman/qbench/internal/core/session"
	"github.com/neilberkman/qbench/pkg/buildbench"
)

type errMsg struct {
	err error
}

type statusMsg string

type buildDoneMsg struct {
	ticket session.Ticket
	resp   *buildbench.Response
	err    error
}

type loadDoneMsg struct {
	ticket session.Ticket
	resp   *buildbench.Response
	err    error
	local  bool // served from the local history
}

type progressTickMsg struct {
	seq int
}

type recordedMsg struct {
	id  string
	err error
}

type buildsLoadedMsg struct {
	builds []db.BuildSummary
}

type searchResultsMsg struct {
	query   string
	results []search.Result
}

// submitBuild performs the network half of a submission. The session is
// not touched here; the result comes back to Update as a buildDoneMsg.
func submitBuild(b session.Builder, t session.Ticket, req buildbench.BuildRequest) tea.Cmd {
	return func() tea.Msg {
		resp, err := b.Build(context.Background(), req)
		return buildDoneMsg{ticket: t, resp: resp, err: err}
	}
}

func fetchBuild(b session.Builder, t session.Ticket) tea.Cmd {
	_, local := b.(*history.Recorder)
	return func() tea.Msg {
		resp, err := b.Fetch(context.Background(), t.Identity)
		return loadDoneMsg{ticket: t, resp: resp, err: err, local: local}
	}
}

func tickProgress(interval time.Duration, seq int) tea.Cmd {
	return tea.Tick(interval, func(time.Time) tea.Msg {
		return progressTickMsg{seq: seq}
	})
}

func recordSubmit(rec *history.Recorder, outcome session.Outcome, tabs []models.Tab, resp *buildbench.Response) tea.Cmd {
	if rec == nil {
		return nil
	}
	return func() tea.Msg {
		id, err := rec.RecordSubmit(outcome, tabs, resp)
		return recordedMsg{id: id, err: err}
	}
}

func recordLoad(rec *history.Recorder, identity string, resp *buildbench.Response) tea.Cmd {
	if rec == nil {
		return nil
	}
	return func() tea.Msg {
		id, err := rec.RecordLoad(identity, resp)
		return recordedMsg{id: id, err: err}
	}
}

func loadBuilds(database *db.DB, query string) tea.Cmd {
	if database == nil {
		return nil
	}
	return func() tea.Msg {
		filter := db.ParseHistoryQuery(query)
		filter.IncludeDrafts = true
		if filter.Limit == 0 {
			filter.Limit = 200
		}
		builds, err := database.ListBuilds(filter)
		if err != nil {
			return errMsg{err}
		}
		return buildsLoadedMsg{builds: builds}
	}
}

func deleteBuild(database *db.DB, id, query string) tea.Cmd {
	return func() tea.Msg {
		if _, err := database.DeleteBuild(id); err != nil {
			return errMsg{err}
		}
		return loadBuilds(database, query)()
	}
}

func performSearch(database *db.DB, query string) tea.Cmd {
	return func() tea.Msg {
		// Minimum 2 characters to search (avoid useless single-char results)
		if database == nil || len(query) < 2 {
			return searchResultsMsg{query: query}
		}
		results, err := search.Search(database, query, 100)
		if err != nil {
			return statusMsg("search: " + err.Error())
		}
		return searchResultsMsg{query: query, results: results}
	}
}

func copyToClipboard(text, what string) tea.Cmd {
	return func() tea.Msg {
		if err := clipboard.WriteAll(text); err != nil {
			return statusMsg("copy failed: " + err.Error())
		}
		return statusMsg(what + " copied to clipboard")
	}
}

func openInBrowser(o *browser.Opener, url string) tea.Cmd {
	return func() tea.Msg {
		if o == nil {
			return statusMsg("no browser configured")
		}
		if err := o.Open(url); err != nil {
			return statusMsg("open failed: " + err.Error())
		}
		return statusMsg("opened " + url)
	}
}
