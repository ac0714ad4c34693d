package mcp

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/neilberkman/qbench/internal/core/db"
	"github.com/neilberkman/qbench/internal/core/models"
	"github.com/neilberkman/qbench/internal/core/session"
	"github.com/neilberkman/qbench/internal/core/share"
	"github.com/neilberkman/qbench/pkg/buildbench"
)

type fakeClient struct {
	lastReq buildbench.BuildRequest
	resp    *buildbench.Response
	err     error
}

func (f *fakeClient) Build(_ context.Context, req buildbench.BuildRequest) (*buildbench.Response, error) {
	f.lastReq = req
	return f.resp, f.err
}

func (f *fakeClient) Fetch(context.Context, string) (*buildbench.Response, error) {
	return f.resp, f.err
}

func newDeps(t *testing.T, client *fakeClient) Deps {
	t.Helper()
	database, err := db.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("db.New() error = %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })
	return Deps{
		DB:          database,
		Client:      client,
		NewSession:  func() *session.Session { return session.New() },
		Defaults:    models.DefaultOptions(),
		ServiceURL:  "https://build-bench.com",
		ExplorerURL: "https://godbolt.org",
	}
}

func call(t *testing.T, h toolHandler, args map[string]interface{}) (string, bool) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	res, err := h(context.Background(), req)
	if err != nil {
		t.Fatalf("handler error = %v", err)
	}
	if len(res.Content) == 0 {
		t.Fatal("handler returned no content")
	}
	text, ok := res.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content = %T, want TextContent", res.Content[0])
	}
	return text.Text, res.IsError
}

func TestRunBuild(t *testing.T) {
	client := &fakeClient{resp: &buildbench.Response{
		ID:     "abc",
		Result: json.RawMessage(`[{"name":"a","time":2},{"name":"b","time":4}]`),
	}}
	deps := newDeps(t, client)

	out, isErr := call(t, makeRunBuildHandler(deps), map[string]interface{}{
		"tabs": []interface{}{
			map[string]interface{}{"title": "a", "code": "int a;"},
			map[string]interface{}{"title": "b", "code": "int b;", "compiler": "gcc-10.1"},
		},
	})
	if isErr {
		t.Fatalf("run_build error: %s", out)
	}
	if !strings.Contains(out, `"outcome":"results"`) || !strings.Contains(out, "/b/abc") {
		t.Errorf("run_build = %s", out)
	}
	if got := client.lastReq.Tabs[1].Compiler; got != "gcc-10.1" {
		t.Errorf("second tab compiler = %q, want gcc-10.1", got)
	}
	if got := client.lastReq.Tabs[0].Compiler; got != "clang-9.0" {
		t.Errorf("first tab compiler = %q, want default clang-9.0", got)
	}

	b, err := deps.DB.GetBuild("abc")
	if err != nil || b == nil {
		t.Fatalf("GetBuild() = %v, %v; want recorded build", b, err)
	}
}

func TestRunBuildRejectsOversize(t *testing.T) {
	client := &fakeClient{}
	deps := newDeps(t, client)

	out, isErr := call(t, makeRunBuildHandler(deps), map[string]interface{}{
		"tabs": []interface{}{
			map[string]interface{}{"title": "big", "code": strings.Repeat("x", session.DefaultMaxCodeSize+1)},
		},
	})
	if !isErr {
		t.Fatalf("run_build accepted oversize code: %s", out)
	}
	if !strings.Contains(out, "big") {
		t.Errorf("error = %q, want tab title", out)
	}
	if client.lastReq.Tabs != nil {
		t.Error("oversize code reached the service")
	}
}

func TestGetBuildOffline(t *testing.T) {
	deps := newDeps(t, &fakeClient{})
	out, isErr := call(t, makeGetBuildHandler(deps), map[string]interface{}{"id": "missing", "offline": true})
	if !isErr {
		t.Errorf("get_build offline for a missing id = %s, want error", out)
	}
}

func TestShareLink(t *testing.T) {
	deps := newDeps(t, &fakeClient{})
	out, isErr := call(t, makeShareLinkHandler(deps), map[string]interface{}{"code": "int main() {}", "optim": "2"})
	if isErr {
		t.Fatalf("share_link error: %s", out)
	}
	p, ok := share.ParseInput(out)
	if !ok {
		t.Fatalf("share_link produced an undecodable link: %s", out)
	}
	if p.Text != "int main() {}" || p.Optim != "2" || p.Compiler != "clang-9.0" {
		t.Errorf("decoded payload = %+v", p)
	}
}

func TestListHistory(t *testing.T) {
	client := &fakeClient{resp: &buildbench.Response{ID: "abc", Result: json.RawMessage(`[]`)}}
	deps := newDeps(t, client)
	call(t, makeRunBuildHandler(deps), map[string]interface{}{
		"tabs": []interface{}{map[string]interface{}{"title": "a", "code": "int a;"}},
	})

	out, isErr := call(t, makeListHistoryHandler(deps), map[string]interface{}{})
	if isErr {
		t.Fatalf("list_history error: %s", out)
	}
	var got struct {
		Builds []HistoryEntry `json:"builds"`
	}
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("decode list_history: %v", err)
	}
	if len(got.Builds) != 1 || got.Builds[0].ID != "abc" {
		t.Errorf("builds = %+v, want [abc]", got.Builds)
	}
}

func TestRunBuildDiagnosticsNotRecorded(t *testing.T) {
	client := &fakeClient{resp: &buildbench.Response{ID: "abc", Result: json.RawMessage(`[{"name":"a","time":1}]`)}}
	deps := newDeps(t, client)
	h := makeRunBuildHandler(deps)
	call(t, h, map[string]interface{}{
		"tabs": []interface{}{map[string]interface{}{"title": "a", "code": "int a;"}},
	})

	client.resp = &buildbench.Response{ID: "abc", Messages: buildbench.Messages{"error: expected ';'"}}
	out, isErr := call(t, h, map[string]interface{}{
		"tabs": []interface{}{map[string]interface{}{"title": "a", "code": "int a"}},
	})
	if isErr || !strings.Contains(out, `"outcome":"diagnostics"`) {
		t.Fatalf("run_build = %s", out)
	}

	b, err := deps.DB.GetBuild("abc")
	if err != nil || b == nil {
		t.Fatalf("GetBuild() = %v, %v", b, err)
	}
	if !b.HasResult || b.Tabs[0].Code != "int a;" {
		t.Errorf("stored abc was replaced: %+v", b)
	}
	stats, err := deps.DB.GetStats()
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalBuilds != 1 {
		t.Errorf("TotalBuilds = %d, want 1", stats.TotalBuilds)
	}
}
