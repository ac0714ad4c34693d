package session

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/neilberkman/qbench/internal/core/models"
	"github.com/neilberkman/qbench/pkg/buildbench"
)

type fakeBuilder struct {
	builds  int
	fetches int
	lastReq buildbench.BuildRequest

	buildResp *buildbench.Response
	buildErr  error
	fetchResp *buildbench.Response
	fetchErr  error
}

func (f *fakeBuilder) Build(_ context.Context, req buildbench.BuildRequest) (*buildbench.Response, error) {
	f.builds++
	f.lastReq = req
	return f.buildResp, f.buildErr
}

func (f *fakeBuilder) Fetch(_ context.Context, _ string) (*buildbench.Response, error) {
	f.fetches++
	return f.fetchResp, f.fetchErr
}

const sampleResult = `[{"name":"cstdio","cpu_time":12.5},{"name":"iostream","cpu_time":30}]`

func successResponse() *buildbench.Response {
	return &buildbench.Response{
		ID:       "abc123",
		Result:   json.RawMessage(sampleResult),
		Messages: buildbench.Messages{"ok"},
		Includes: []buildbench.Text{". /usr/include/stdio.h\n.. /usr/include/features.h", ". /usr/include/c++/iostream"},
		Asm:      []buildbench.Text{"main:", "main:\n  ret"},
	}
}

func TestSubmitRejectsOversizeCode(t *testing.T) {
	s := New()
	_ = s.SetCode(1, strings.Repeat("x", DefaultMaxCodeSize+1))
	b := &fakeBuilder{}

	outcome, err := s.Submit(context.Background(), b)

	var tooLarge *PayloadTooLargeError
	if !errors.As(err, &tooLarge) {
		t.Fatalf("Submit() error = %v, want *PayloadTooLargeError", err)
	}
	if outcome != OutcomeRejected {
		t.Errorf("outcome = %v, want rejected", outcome)
	}
	if b.builds != 0 {
		t.Errorf("build service called %d times, want 0", b.builds)
	}
	if tooLarge.Index != 1 || tooLarge.Size != DefaultMaxCodeSize+1 {
		t.Errorf("error = %+v", tooLarge)
	}
	if !strings.Contains(s.Notice(), "iostream") || !strings.Contains(s.Notice(), "20001") {
		t.Errorf("Notice() = %q, want the tab title and size", s.Notice())
	}
	if s.InFlight() || !s.Dirty() {
		t.Error("a rejected submission must not change the session flags")
	}
}

func TestSubmitAtLimitIsAccepted(t *testing.T) {
	s := New(WithMaxCodeSize(5))
	_ = s.SetCode(0, "ééééé") // five characters, ten bytes
	b := &fakeBuilder{buildResp: successResponse()}

	if _, err := s.Submit(context.Background(), b); err != nil {
		t.Fatalf("Submit() error = %v", err)
	}
	if b.builds != 1 {
		t.Errorf("builds = %d, want 1", b.builds)
	}
}

func TestTooLargeTemplateOverride(t *testing.T) {
	s := New(WithMaxCodeSize(3), WithTooLargeTemplate("{{title}}: {{size_human}} > {{max_human}}"))
	_ = s.SetCode(0, strings.Repeat("a", 1500))

	if _, _, err := s.BeginSubmit(); err == nil {
		t.Fatal("BeginSubmit() expected error")
	}
	if got, want := s.Notice(), "cstdio: 1,500 > 3"; got != want {
		t.Errorf("Notice() = %q, want %q", got, want)
	}
}

func TestSubmitRequestShape(t *testing.T) {
	s := New()
	b := &fakeBuilder{buildResp: successResponse()}

	if _, err := s.Submit(context.Background(), b); err != nil {
		t.Fatal(err)
	}

	req := b.lastReq
	if req.ProtocolVersion != buildbench.ProtocolVersion || req.Force {
		t.Errorf("request = %+v", req)
	}
	if len(req.Tabs) != 2 {
		t.Fatalf("len(Tabs) = %d", len(req.Tabs))
	}
	tab := req.Tabs[0]
	if tab.Title != "cstdio" || tab.Compiler != "clang-9.0" || tab.Asm != "att" || !tab.WithPP {
		t.Errorf("tab 0 = %+v", tab)
	}
}

func TestSubmitSuccess(t *testing.T) {
	s := New()
	b := &fakeBuilder{buildResp: successResponse()}

	outcome, err := s.Submit(context.Background(), b)
	if err != nil || outcome != OutcomeResults {
		t.Fatalf("Submit() = %v, %v", outcome, err)
	}

	if s.Identity() != "abc123" {
		t.Errorf("Identity() = %q", s.Identity())
	}
	if s.Dirty() || s.InFlight() || s.Force() {
		t.Error("flags after success should all be false")
	}
	res := s.Results()
	if res == nil || len(res.Graph) != 2 || res.Graph[1].Metrics["cpu_time"] != 30 {
		t.Fatalf("Results() = %+v", res)
	}
	if res.Includes[0] != "/usr/include/stdio.h\n\t/usr/include/features.h" {
		t.Errorf("Includes[0] = %q", res.Includes[0])
	}
	// One message for two tabs lands in the session notice.
	if s.Notice() != "ok" {
		t.Errorf("Notice() = %q, want ok", s.Notice())
	}
	if s.Progress().Running() || s.Progress().Value() != 0 {
		t.Error("estimator should be stopped and reset after completion")
	}
}

func TestSubmitForceOnlyWhenClean(t *testing.T) {
	s := New()
	b := &fakeBuilder{buildResp: successResponse()}
	if _, err := s.Submit(context.Background(), b); err != nil {
		t.Fatal(err)
	}

	if !s.SetForce(true) {
		t.Fatal("SetForce(true) refused on a clean session")
	}
	if _, err := s.Submit(context.Background(), b); err != nil {
		t.Fatal(err)
	}
	if !b.lastReq.Force {
		t.Error("force flag not sent")
	}
	if s.Force() {
		t.Error("force should clear after a successful build")
	}
}

func TestSubmitDiagnosticsOnly(t *testing.T) {
	s := New()
	b := &fakeBuilder{buildResp: &buildbench.Response{
		Messages: buildbench.Messages{"error: expected ';'", ""},
	}}

	outcome, err := s.Submit(context.Background(), b)
	if err != nil || outcome != OutcomeDiagnostics {
		t.Fatalf("Submit() = %v, %v", outcome, err)
	}
	if s.Results() != nil {
		t.Error("diagnostics-only response should not produce results")
	}
	if !s.Dirty() {
		t.Error("diagnostics-only response should leave the session dirty")
	}
	if s.Identity() != "" {
		t.Errorf("Identity() = %q", s.Identity())
	}
	if got := s.Tabs()[0].Message; got != "error: expected ';'" {
		t.Errorf("tab 0 message = %q", got)
	}
	if s.InFlight() {
		t.Error("InFlight() = true after completion")
	}
}

func TestSubmitTransportFailure(t *testing.T) {
	s := New()
	ok := &fakeBuilder{buildResp: successResponse()}
	if _, err := s.Submit(context.Background(), ok); err != nil {
		t.Fatal(err)
	}
	_ = s.SetCode(0, "changed")
	prevTabs := s.Tabs()

	failing := &fakeBuilder{buildErr: &buildbench.TransportError{Op: "build", Status: 502}}
	outcome, err := s.Submit(context.Background(), failing)
	if err == nil || outcome != OutcomeTransportFailure {
		t.Fatalf("Submit() = %v, %v", outcome, err)
	}
	if s.Notice() != TransportNotice {
		t.Errorf("Notice() = %q", s.Notice())
	}
	if !s.Dirty() || s.InFlight() {
		t.Error("transport failure should keep dirty and clear in-flight")
	}
	if s.Identity() != "abc123" {
		t.Errorf("identity lost on failure: %q", s.Identity())
	}
	for i, tab := range s.Tabs() {
		if tab.Code != prevTabs[i].Code {
			t.Errorf("tab %d code changed", i)
		}
	}
}

func TestSubmitMalformedResult(t *testing.T) {
	s := New()
	b := &fakeBuilder{buildResp: &buildbench.Response{Result: json.RawMessage(`{"not":"a graph"}`)}}

	outcome, err := s.Submit(context.Background(), b)
	if err == nil || outcome != OutcomeTransportFailure {
		t.Errorf("Submit() = %v, %v", outcome, err)
	}
}

func TestStaleTickets(t *testing.T) {
	s := New()

	first, _, err := s.BeginSubmit()
	if err != nil {
		t.Fatal(err)
	}
	second, _, err := s.BeginSubmit()
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.CompleteSubmit(first, successResponse(), nil); !errors.Is(err, ErrStaleResponse) {
		t.Errorf("stale CompleteSubmit() error = %v", err)
	}
	if s.Results() != nil || !s.InFlight() {
		t.Error("stale response must not touch the session")
	}

	if _, err := s.CompleteSubmit(second, successResponse(), nil); err != nil {
		t.Errorf("current CompleteSubmit() error = %v", err)
	}
}

func TestResetInvalidatesOutstandingRequest(t *testing.T) {
	s := New()
	ticket, _, err := s.BeginSubmit()
	if err != nil {
		t.Fatal(err)
	}

	s.Reset()

	outcome, err := s.CompleteSubmit(ticket, successResponse(), nil)
	if outcome != OutcomeStale || !errors.Is(err, ErrStaleResponse) {
		t.Errorf("CompleteSubmit() = %v, %v", outcome, err)
	}
	if s.Identity() != "" || s.Results() != nil {
		t.Error("late response leaked into the reset session")
	}
}

func TestLoadSupersedesSubmit(t *testing.T) {
	s := New()
	submit, _, _ := s.BeginSubmit()
	load := s.BeginLoad("xyz")

	if _, err := s.CompleteSubmit(submit, successResponse(), nil); !errors.Is(err, ErrStaleResponse) {
		t.Errorf("submit after load error = %v", err)
	}
	if _, err := s.CompleteLoad(load, nil, buildbench.ErrNotFound); !errors.Is(err, buildbench.ErrNotFound) {
		t.Errorf("CompleteLoad() error = %v", err)
	}
	// Kinds are not interchangeable.
	if _, err := s.CompleteSubmit(Ticket{token: s.token, Kind: LoadTicket}, nil, nil); !errors.Is(err, ErrStaleResponse) {
		t.Errorf("mismatched ticket kind error = %v", err)
	}
}

func TestLoadNotFound(t *testing.T) {
	s := New()
	before := s.Tabs()
	b := &fakeBuilder{fetchErr: buildbench.ErrNotFound}

	outcome, err := s.Load(context.Background(), b, "missing")
	if outcome != OutcomeNotFound || !errors.Is(err, buildbench.ErrNotFound) {
		t.Fatalf("Load() = %v, %v", outcome, err)
	}
	if !strings.Contains(s.Notice(), "missing") {
		t.Errorf("Notice() = %q", s.Notice())
	}
	if s.Identity() != "" {
		t.Errorf("Identity() = %q, want unchanged", s.Identity())
	}
	for i, tab := range s.Tabs() {
		if tab != before[i] {
			t.Errorf("tab %d changed on a failed load", i)
		}
	}
	if s.InFlight() {
		t.Error("InFlight() = true after load completed")
	}
}

func TestLoadReplacesTabsAndDetectsSync(t *testing.T) {
	s := New()
	opts := models.Options{Compiler: "gcc-9.2", CppVersion: "17", Optim: "2", Lib: "gnu"}
	resp := &buildbench.Response{
		Tabs: []buildbench.TabRecord{
			{Code: "same", Title: "a", Compiler: opts.Compiler, CppVersion: opts.CppVersion, Optim: opts.Optim, Lib: opts.Lib},
			{Code: "same", Title: "b", Compiler: opts.Compiler, CppVersion: opts.CppVersion, Optim: "0", Lib: opts.Lib},
			{Code: "same", Title: "c", Compiler: opts.Compiler, CppVersion: opts.CppVersion, Optim: opts.Optim, Lib: opts.Lib},
		},
		Result:   json.RawMessage(`[{"name":"a","cpu_time":1}]`),
		Messages: buildbench.Messages{"", "warning", ""},
	}
	b := &fakeBuilder{fetchResp: resp}

	outcome, err := s.Load(context.Background(), b, "stored")
	if err != nil || outcome != OutcomeResults {
		t.Fatalf("Load() = %v, %v", outcome, err)
	}

	if s.Len() != 3 || s.Identity() != "stored" {
		t.Errorf("Len() = %d, Identity() = %q", s.Len(), s.Identity())
	}
	if s.CodeSync() != Mirrored {
		t.Error("equal code should load as mirrored")
	}
	if s.OptionsSync() != Independent {
		t.Error("differing options should load as independent")
	}
	if s.Dirty() {
		t.Error("a loaded session is clean")
	}
	if got := s.Tabs()[1].Message; got != "warning" {
		t.Errorf("tab 1 message = %q", got)
	}
	if got := s.Tabs()[1].Options.Optim; got != "0" {
		t.Errorf("tab 1 optim = %q", got)
	}
}

func TestNavigate(t *testing.T) {
	s := New()

	if _, load := s.Navigate(""); load {
		t.Error("Navigate(\"\") on a fresh session should not load")
	}

	ticket, load := s.Navigate("abc")
	if !load || ticket.Identity != "abc" || ticket.Kind != LoadTicket {
		t.Fatalf("Navigate(abc) = %+v, %v", ticket, load)
	}
	if _, err := s.CompleteLoad(ticket, successResponse(), nil); err != nil {
		t.Fatal(err)
	}

	// successResponse carries no tabs, so the identity is not adopted and
	// navigating again still loads.
	if _, load := s.Navigate("abc"); !load {
		t.Error("Navigate(abc) should load when abc was never adopted")
	}

	s.identity = "abc"
	if _, load := s.Navigate("abc"); load {
		t.Error("Navigate to the current identity should be a no-op")
	}

	_ = s.SetTitle(0, "edited")
	if _, load := s.Navigate(""); load {
		t.Error("Navigate(\"\") should reset, not load")
	}
	if s.Identity() != "" || s.Tabs()[0].Title != "cstdio" {
		t.Error("Navigate(\"\") did not reset the session")
	}
}

func TestFormatIncludes(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, nil},
		{"flat", []string{"no dots"}, []string{"no dots"}},
		{"nested", []string{". a.h\n.. b.h\n... c.h"}, []string{"a.h\n\tb.h\n\t\tc.h"}},
		{"multiple tabs", []string{". x.h", ""}, []string{"x.h", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FormatIncludes(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("FormatIncludes() = %q, want %q", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("FormatIncludes()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
