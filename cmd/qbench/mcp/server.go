package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/neilberkman/qbench/internal/core/db"
	"github.com/neilberkman/qbench/internal/core/explorer"
	"github.com/neilberkman/qbench/internal/core/history"
	"github.com/neilberkman/qbench/internal/core/models"
	"github.com/neilberkman/qbench/internal/core/report"
	"github.com/neilberkman/qbench/internal/core/search"
	"github.com/neilberkman/qbench/internal/core/session"
	"github.com/neilberkman/qbench/internal/core/share"
	"github.com/neilberkman/qbench/pkg/buildbench"
)

// Deps are the collaborators the tools run against
type Deps struct {
	DB          *db.DB // nil disables the history tools
	Client      session.Builder
	NewSession  func() *session.Session
	Defaults    models.Options
	ServiceURL  string
	ExplorerURL string
	Version     string
}

// TabArg is one tab of a run_build call
type TabArg struct {
	Title      string `json:"title" jsonschema:"description=Tab title,required"`
	Code       string `json:"code" jsonschema:"description=C++ source of the translation unit,required"`
	Compiler   string `json:"compiler,omitempty" jsonschema:"description=Compiler such as clang-9.0 or gcc-10.1"`
	CppVersion string `json:"cpp_version,omitempty" jsonschema:"description=C++ standard: 11, 14, 17 or 20"`
	Optim      string `json:"optim,omitempty" jsonschema:"description=Optimization level: 0-3, G, F or S"`
	Lib        string `json:"lib,omitempty" jsonschema:"description=Standard library: gnu or llvm"`
}

// RunBuildArgs defines arguments for the run_build tool
type RunBuildArgs struct {
	Tabs   []TabArg `json:"tabs" jsonschema:"description=Tabs to benchmark against each other,required"`
	Detail bool     `json:"detail,omitempty" jsonschema:"description=Include includes, assembly and preprocessed output"`
}

// GetBuildArgs defines arguments for the get_build tool
type GetBuildArgs struct {
	ID      string `json:"id" jsonschema:"description=Build id or build page URL,required"`
	Offline bool   `json:"offline,omitempty" jsonschema:"description=Read from the local history only"`
	Detail  bool   `json:"detail,omitempty" jsonschema:"description=Include includes, assembly and preprocessed output"`
}

// ShareLinkArgs defines arguments for the share_link tool
type ShareLinkArgs struct {
	Code       string `json:"code"`
	Compiler   string `json:"compiler,omitempty"`
	CppVersion string `json:"cpp_version,omitempty"`
	Optim      string `json:"optim,omitempty"`
	Lib        string `json:"lib,omitempty"`
}

// ExplorerLinkArgs defines arguments for the explorer_link tool
type ExplorerLinkArgs struct {
	ID string `json:"id"`
}

// HistoryArgs defines arguments for list_history and search_history
type HistoryArgs struct {
	Query string `json:"query,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// StartServer starts the MCP server on stdio
func StartServer(deps Deps) error {
	s := server.NewMCPServer("qbench", deps.Version)
	registerTools(s, deps)
	return server.ServeStdio(s)
}

func registerTools(s *server.MCPServer, deps Deps) {
	runTool := mcp.NewTool("run_build",
		mcp.WithDescription("Benchmark the build time of several C++ translation units against each other on the build-bench service. Returns per-benchmark metrics and any compiler messages."),
		mcp.WithArray("tabs",
			mcp.Required(),
			mcp.Description("Tabs to compare. Each tab has title and code, and optionally compiler, cpp_version, optim and lib."),
			mcp.Items(map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"title":       map[string]interface{}{"type": "string"},
					"code":        map[string]interface{}{"type": "string"},
					"compiler":    map[string]interface{}{"type": "string"},
					"cpp_version": map[string]interface{}{"type": "string"},
					"optim":       map[string]interface{}{"type": "string"},
					"lib":         map[string]interface{}{"type": "string"},
				},
				"required": []string{"title", "code"},
			})),
		mcp.WithBoolean("detail",
			mcp.Description("Include includes, assembly and preprocessed output (large)")),
	)
	s.AddTool(runTool, makeRunBuildHandler(deps))

	getTool := mcp.NewTool("get_build",
		mcp.WithDescription("Retrieve a stored build by id or build page URL, with its tabs and results"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Build id or build page URL")),
		mcp.WithBoolean("offline",
			mcp.Description("Read from the local history instead of the service")),
		mcp.WithBoolean("detail",
			mcp.Description("Include includes, assembly and preprocessed output (large)")),
	)
	s.AddTool(getTool, makeGetBuildHandler(deps))

	shareTool := mcp.NewTool("share_link",
		mcp.WithDescription("Create a build-bench share link that opens the given code and options in one tab"),
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("C++ source to share")),
		mcp.WithString("compiler", mcp.Description("Compiler such as clang-9.0")),
		mcp.WithString("cpp_version", mcp.Description("C++ standard: 11, 14, 17 or 20")),
		mcp.WithString("optim", mcp.Description("Optimization level")),
		mcp.WithString("lib", mcp.Description("Standard library: gnu or llvm")),
	)
	s.AddTool(shareTool, makeShareLinkHandler(deps))

	explorerTool := mcp.NewTool("explorer_link",
		mcp.WithDescription("Create a Compiler Explorer link showing every tab of a stored build"),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Build id or build page URL")),
	)
	s.AddTool(explorerTool, makeExplorerLinkHandler(deps))

	if deps.DB == nil {
		return
	}

	listTool := mcp.NewTool("list_history",
		mcp.WithDescription("List builds in the local history, most recent first. The query supports compiler:<prefix>, after:<date>, before:<date>, has:results and has:drafts."),
		mcp.WithString("query", mcp.Description("Text and filters, e.g. 'compiler:gcc after:yesterday'")),
		mcp.WithNumber("limit", mcp.Description("Max builds to return (default: 20)")),
	)
	s.AddTool(listTool, makeListHistoryHandler(deps))

	searchTool := mcp.NewTool("search_history",
		mcp.WithDescription("Search the code and titles of every tab in the local history"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Words or a C++ symbol such as std::vector")),
		mcp.WithNumber("limit", mcp.Description("Max tabs to return (default: 20)")),
	)
	s.AddTool(searchTool, makeSearchHistoryHandler(deps))
}

type toolHandler = func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error)

func decodeArgs(request mcp.CallToolRequest, v interface{}) error {
	argsBytes, _ := json.Marshal(request.Params.Arguments)
	if err := json.Unmarshal(argsBytes, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func jsonResult(v interface{}) (*mcp.CallToolResult, error) {
	resultJSON, err := json.Marshal(v)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(resultJSON)), nil
}

func detail(full bool) report.Detail {
	if full {
		return report.Full
	}
	return report.Detail{}
}

func (d Deps) pageURL(id string) string {
	if id == "" || history.IsDraft(id) {
		return ""
	}
	return buildbench.PageURL(d.ServiceURL, id)
}

func (d Deps) recorder() *history.Recorder {
	if d.DB == nil {
		return nil
	}
	return history.New(d.DB)
}

func makeRunBuildHandler(deps Deps) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args RunBuildArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if len(args.Tabs) == 0 {
			return mcp.NewToolResultError("at least one tab is required"), nil
		}

		tabs := make([]models.Tab, len(args.Tabs))
		for i, t := range args.Tabs {
			tabs[i] = models.Tab{
				Title: strings.TrimSpace(t.Title),
				Code:  t.Code,
				Options: deps.Defaults.Merge(models.Options{
					Compiler:   t.Compiler,
					CppVersion: t.CppVersion,
					Optim:      t.Optim,
					Lib:        t.Lib,
				}),
			}
		}

		s := deps.NewSession()
		if err := s.SetTabs(tabs); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		t, req, err := s.BeginSubmit()
		if err != nil {
			return mcp.NewToolResultError(s.Notice()), nil
		}
		resp, err := deps.Client.Build(ctx, req)
		outcome, err := s.CompleteSubmit(t, resp, err)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("build failed: %v", err)), nil
		}

		if rec := deps.recorder(); rec != nil {
			if _, err := rec.RecordSubmit(outcome, s.Tabs(), resp); err != nil {
				slog.Warn("failed to record build in history", "error", err)
			}
		}

		r := report.FromSession(s, deps.pageURL(s.Identity()), detail(args.Detail))
		return jsonResult(map[string]interface{}{
			"outcome": outcome.String(),
			"build":   r,
		})
	}
}

func makeGetBuildHandler(deps Deps) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args GetBuildArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		s, err := loadBuild(ctx, deps, args.ID, args.Offline)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(report.FromSession(s, deps.pageURL(s.Identity()), detail(args.Detail)))
	}
}

// loadBuild loads id from the history first, then from the service
func loadBuild(ctx context.Context, deps Deps, input string, offline bool) (*session.Session, error) {
	id, ok := buildbench.ParseIdentity(input)
	if !ok {
		return nil, fmt.Errorf("not a build id or build page URL: %s", input)
	}

	s := deps.NewSession()
	if rec := deps.recorder(); rec != nil {
		_, err := s.Load(ctx, rec, id)
		if err == nil {
			return s, nil
		}
		if offline || !errors.Is(err, buildbench.ErrNotFound) {
			return nil, fmt.Errorf("%s: %w", s.Notice(), err)
		}
	} else if offline {
		return nil, fmt.Errorf("the local history is disabled")
	}

	if _, err := s.Load(ctx, deps.Client, id); err != nil {
		return nil, fmt.Errorf("%s: %w", s.Notice(), err)
	}
	return s, nil
}

func makeShareLinkHandler(deps Deps) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args ShareLinkArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if args.Code == "" {
			return mcp.NewToolResultError("code is required"), nil
		}

		opts := deps.Defaults.Merge(models.Options{
			Compiler:   args.Compiler,
			CppVersion: args.CppVersion,
			Optim:      args.Optim,
			Lib:        args.Lib,
		})
		link, err := share.Link(strings.TrimSuffix(deps.ServiceURL, "/")+"/", share.FromTab(models.Tab{Code: args.Code, Options: opts}))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(link), nil
	}
}

func makeExplorerLinkHandler(deps Deps) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args ExplorerLinkArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		s, err := loadBuild(ctx, deps, args.ID, false)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		link, err := explorer.Link(deps.ExplorerURL, s.Tabs())
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(link), nil
	}
}

// HistoryEntry represents a build in the list_history result
type HistoryEntry struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Note      string   `json:"note,omitempty"`
	Compilers []string `json:"compilers"`
	Tabs      int      `json:"tabs"`
	Draft     bool     `json:"draft,omitempty"`
	HasResult bool     `json:"has_result"`
	UpdatedAt string   `json:"updated_at"`
	URL       string   `json:"url,omitempty"`
}

func makeListHistoryHandler(deps Deps) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args HistoryArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}

		filter := db.ParseHistoryQuery(args.Query)
		if args.Limit > 0 {
			filter.Limit = args.Limit
		}
		if filter.Limit == 0 {
			filter.Limit = 20
		}

		builds, err := deps.DB.ListBuilds(filter)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to list builds: %v", err)), nil
		}

		entries := make([]HistoryEntry, 0, len(builds))
		for _, b := range builds {
			entries = append(entries, HistoryEntry{
				ID:        b.BuildID,
				Title:     b.Title,
				Note:      b.Note,
				Compilers: b.Compilers,
				Tabs:      b.TabCount,
				Draft:     b.Draft,
				HasResult: b.HasResult,
				UpdatedAt: b.UpdatedAt.Format("2006-01-02 15:04:05"),
				URL:       deps.pageURL(b.BuildID),
			})
		}
		return jsonResult(map[string]interface{}{"builds": entries})
	}
}

func makeSearchHistoryHandler(deps Deps) toolHandler {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args HistoryArgs
		if err := decodeArgs(request, &args); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		limit := args.Limit
		if limit == 0 {
			limit = 20
		}

		results, err := search.Search(deps.DB, args.Query, limit)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}
		return jsonResult(map[string]interface{}{"matches": results})
	}
}
