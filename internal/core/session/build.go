package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/cbroglie/mustache"
	"github.com/dustin/go-humanize"
	"github.com/neilberkman/qbench/internal/core/models"
	"github.com/neilberkman/qbench/internal/core/share"
	"github.com/neilberkman/qbench/pkg/buildbench"
)

// DefaultTooLargeTemplate renders the notice shown for oversize code
const DefaultTooLargeTemplate = `Your code in {{{title}}} is {{size}} characters long, while the maximum code size is {{max}}.
If you think this limitation is stopping you in a legitimate usage of build-bench, please contact the maintainers.`

// TransportNotice is shown when the service gave no usable answer
const TransportNotice = "Could not reach the build service. Please try again later."

// Builder performs build-service calls on behalf of a session
type Builder interface {
	Build(ctx context.Context, req buildbench.BuildRequest) (*buildbench.Response, error)
	Fetch(ctx context.Context, id string) (*buildbench.Response, error)
}

// TicketKind distinguishes submissions from loads
type TicketKind int

const (
	SubmitTicket TicketKind = iota
	LoadTicket
)

// Ticket identifies one outstanding request. Only the most recently issued
// ticket may complete; anything older is stale.
type Ticket struct {
	token    uint64
	Kind     TicketKind
	Identity string // identity the request was issued for
}

// Outcome classifies how a request resolved
type Outcome int

const (
	OutcomeResults Outcome = iota
	OutcomeDiagnostics
	OutcomeTransportFailure
	OutcomeNotFound
	OutcomeRejected
	OutcomeStale
)

func (o Outcome) String() string {
	switch o {
	case OutcomeResults:
		return "results"
	case OutcomeDiagnostics:
		return "diagnostics"
	case OutcomeTransportFailure:
		return "transport failure"
	case OutcomeNotFound:
		return "not found"
	case OutcomeRejected:
		return "rejected"
	case OutcomeStale:
		return "stale"
	}
	return "unknown"
}

// Hydrate applies a share payload: its text replaces the first tab's code
// and any options it carries override that tab's options.
func (s *Session) Hydrate(p share.Payload) {
	if p.Text == "" {
		return
	}
	_ = s.SetCode(0, p.Text)
	_ = s.SetOptions(0, s.tabs[0].Options.Merge(p.Options()))
}

// BeginSubmit validates the tabs and shapes a build request. On success the
// session is in flight with results cleared and the estimator started. An
// oversize tab yields a *PayloadTooLargeError and a notice, and changes
// nothing else.
func (s *Session) BeginSubmit() (Ticket, buildbench.BuildRequest, error) {
	for i, tab := range s.tabs {
		if size := utf8.RuneCountInString(tab.Code); size > s.maxCodeSize {
			err := &PayloadTooLargeError{Index: i, Title: tab.Title, Size: size, Max: s.maxCodeSize}
			s.notice = s.renderTooLarge(err)
			return Ticket{}, buildbench.BuildRequest{}, err
		}
	}

	req := buildbench.BuildRequest{
		Tabs:            make([]buildbench.TabRequest, len(s.tabs)),
		ProtocolVersion: buildbench.ProtocolVersion,
		Force:           !s.dirty && s.force,
	}
	for i, tab := range s.tabs {
		req.Tabs[i] = buildbench.TabRequest{
			Code:       tab.Code,
			Title:      tab.Title,
			Compiler:   tab.Options.Compiler,
			Optim:      tab.Options.Optim,
			CppVersion: tab.Options.CppVersion,
			Lib:        tab.Options.Lib,
			Asm:        buildbench.AsmSyntax,
			WithPP:     buildbench.WithPP,
		}
	}

	s.token++
	s.inFlight = true
	s.results = nil
	s.clearMessages()
	s.progress.Start()

	return Ticket{token: s.token, Kind: SubmitTicket, Identity: s.identity}, req, nil
}

// CompleteSubmit merges the answer to a submission. Responses for stale
// tickets are discarded with ErrStaleResponse. Transport failures leave
// the session as it was apart from a notice.
func (s *Session) CompleteSubmit(t Ticket, resp *buildbench.Response, err error) (Outcome, error) {
	if t.Kind != SubmitTicket || t.token != s.token {
		return OutcomeStale, ErrStaleResponse
	}
	s.inFlight = false
	s.progress.Stop()

	if err == nil && resp == nil {
		err = errors.New("empty response")
	}
	if err != nil {
		s.notice = TransportNotice
		return OutcomeTransportFailure, err
	}

	if !resp.HasResult() {
		s.force = false
		s.applyMessages(resp.Messages)
		return OutcomeDiagnostics, nil
	}

	results, err := decodeResults(resp)
	if err != nil {
		s.notice = TransportNotice
		return OutcomeTransportFailure, err
	}

	s.results = results
	if resp.ID != "" {
		s.identity = resp.ID
	}
	s.dirty = false
	s.force = false
	s.applyMessages(resp.Messages)
	return OutcomeResults, nil
}

// Navigate moves the session to identity id: an empty id resets to the
// defaults, the current id is a no-op, anything else starts a load. It
// reports whether a load must be performed with the returned ticket.
func (s *Session) Navigate(id string) (Ticket, bool) {
	switch id {
	case s.identity:
		return Ticket{}, false
	case "":
		s.Reset()
		return Ticket{}, false
	}
	return s.BeginLoad(id), true
}

// BeginLoad starts fetching a stored session. Results are cleared at once
// so stale charts never show while the fetch is outstanding, and any
// outstanding submission becomes stale.
func (s *Session) BeginLoad(id string) Ticket {
	s.token++
	s.inFlight = true
	s.results = nil
	s.clearMessages()
	s.progress.Stop()
	return Ticket{token: s.token, Kind: LoadTicket, Identity: id}
}

// CompleteLoad merges a fetched session. On success tabs, results and sync
// modes are replaced and the identity adopted; on absence or failure the
// tabs and identity are kept and the condition is reported in the notice.
func (s *Session) CompleteLoad(t Ticket, resp *buildbench.Response, err error) (Outcome, error) {
	if t.Kind != LoadTicket || t.token != s.token {
		return OutcomeStale, ErrStaleResponse
	}
	s.inFlight = false

	if err == nil && resp == nil {
		err = buildbench.ErrNotFound
	}
	if errors.Is(err, buildbench.ErrNotFound) {
		s.notice = fmt.Sprintf("No build found for %s.", t.Identity)
		return OutcomeNotFound, err
	}
	if err != nil {
		s.notice = TransportNotice
		return OutcomeTransportFailure, err
	}

	var results *Results
	if resp.HasResult() {
		results, err = decodeResults(resp)
		if err != nil {
			s.notice = TransportNotice
			return OutcomeTransportFailure, err
		}
	}

	if len(resp.Tabs) > 0 {
		tabs := make([]models.Tab, len(resp.Tabs))
		for i, rec := range resp.Tabs {
			tabs[i] = models.Tab{
				Code:  rec.Code,
				Title: rec.Title,
				Options: models.Options{
					Compiler:   rec.Compiler,
					CppVersion: rec.CppVersion,
					Optim:      rec.Optim,
					Lib:        rec.Lib,
				},
			}
		}
		s.tabs = tabs
		s.focus = 0
		s.codeSync = detectSync(tabs, func(t models.Tab) string { return t.Code })
		s.optionsSync = detectSync(tabs, func(t models.Tab) models.Options { return t.Options })
		s.identity = t.Identity
		s.dirty = false
		s.force = false
	}

	s.results = results
	s.applyMessages(resp.Messages)

	if results != nil {
		return OutcomeResults, nil
	}
	return OutcomeDiagnostics, nil
}

// Submit runs a whole submission against b, ticking the estimator (and
// the OnProgress callback) until the response is merged.
func (s *Session) Submit(ctx context.Context, b Builder) (Outcome, error) {
	t, req, err := s.BeginSubmit()
	if err != nil {
		return OutcomeRejected, err
	}

	stop := s.progress.Run(s.onProgress)
	defer stop()

	resp, err := b.Build(ctx, req)
	return s.CompleteSubmit(t, resp, err)
}

// Load fetches identity id from b and merges it
func (s *Session) Load(ctx context.Context, b Builder, id string) (Outcome, error) {
	t := s.BeginLoad(id)
	resp, err := b.Fetch(ctx, id)
	return s.CompleteLoad(t, resp, err)
}

// applyMessages routes service messages: one per tab when the counts
// match, otherwise joined into the session notice
func (s *Session) applyMessages(msgs buildbench.Messages) {
	if len(msgs) == 0 {
		return
	}
	if len(msgs) == len(s.tabs) {
		for i := range s.tabs {
			s.tabs[i].Message = msgs[i]
		}
		return
	}

	var parts []string
	for _, m := range msgs {
		if strings.TrimSpace(m) != "" {
			parts = append(parts, m)
		}
	}
	s.notice = strings.Join(parts, "\n")
}

func (s *Session) clearMessages() {
	s.notice = ""
	for i := range s.tabs {
		s.tabs[i].Message = ""
	}
}

func (s *Session) renderTooLarge(e *PayloadTooLargeError) string {
	data := map[string]interface{}{
		"title":      e.Title,
		"size":       e.Size,
		"max":        e.Max,
		"size_human": humanize.Comma(int64(e.Size)),
		"max_human":  humanize.Comma(int64(e.Max)),
	}
	out, err := mustache.Render(s.tooLargeTemplate, data)
	if err != nil {
		slog.Warn("invalid code size template, using default", "error", err)
		out, _ = mustache.Render(DefaultTooLargeTemplate, data)
	}
	return out
}

func decodeResults(resp *buildbench.Response) (*Results, error) {
	var graph models.Graph
	if err := json.Unmarshal(resp.Result, &graph); err != nil {
		return nil, fmt.Errorf("decode result graph: %w", err)
	}
	if graph == nil {
		graph = models.Graph{}
	}
	return &Results{
		Graph:        graph,
		Includes:     FormatIncludes(buildbench.Strings(resp.Includes)),
		Assembly:     buildbench.Strings(resp.Asm),
		Preprocessed: buildbench.Strings(resp.Preprocessed),
	}, nil
}

// FormatIncludes turns the compiler's include trace (one leading '.' per
// nesting level) into tab-indented text
func FormatIncludes(includes []string) []string {
	if includes == nil {
		return nil
	}
	out := make([]string, len(includes))
	for i, text := range includes {
		lines := strings.Split(text, "\n")
		for j, line := range lines {
			depth := 0
			for depth < len(line) && line[depth] == '.' {
				depth++
			}
			line = strings.Repeat("\t", depth) + line[depth:]
			lines[j] = strings.Replace(line, "\t ", "", 1)
		}
		out[i] = strings.Join(lines, "\n")
	}
	return out
}
