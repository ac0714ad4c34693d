// Package history records builds in the local database and serves them back
// in the build service's own response format.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/neilberkman/qbench/internal/core/db"
	"github.com/neilberkman/qbench/internal/core/models"
	"github.com/neilberkman/qbench/internal/core/session"
	"github.com/neilberkman/qbench/pkg/buildbench"
)

// DraftPrefix marks history entries for builds the service never named
const DraftPrefix = "draft-"

// ErrOffline is returned by Store.Build: the local history cannot compile
var ErrOffline = errors.New("local history cannot run builds")

// Recorder writes builds into the history database
type Recorder struct {
	db *db.DB
}

// New creates a new recorder
func New(database *db.DB) *Recorder {
	return &Recorder{db: database}
}

// NewDraftID returns a fresh id for a build without a service identity
func NewDraftID() string {
	return DraftPrefix + uuid.New().String()[:8]
}

// IsDraft reports whether id was produced by NewDraftID
func IsDraft(id string) bool {
	return strings.HasPrefix(id, DraftPrefix)
}

// Record stores tabs and the response they produced under identity, or
// under a new draft id when identity is empty. It returns the id used.
func (r *Recorder) Record(identity string, tabs []models.Tab, resp *buildbench.Response) (string, error) {
	id := identity
	if id == "" {
		id = NewDraftID()
	}

	stored := buildbench.Response{}
	if resp != nil {
		stored = *resp
	}
	stored.ID = ""
	if !IsDraft(id) {
		stored.ID = id
	}
	stored.Tabs = TabRecords(tabs)

	payload, err := json.Marshal(stored)
	if err != nil {
		return "", fmt.Errorf("encode payload: %w", err)
	}

	b := &db.Build{
		BuildID:   id,
		Draft:     IsDraft(id),
		Tabs:      buildTabs(tabs),
		Payload:   payload,
		HasResult: stored.HasResult(),
	}
	if err := r.db.SaveBuild(b); err != nil {
		return "", fmt.Errorf("save build %s: %w", id, err)
	}
	return id, nil
}

// RecordSubmit stores a finished submission under the identity the service
// assigned to it. Only a submission that produced results is stored: after
// diagnostics or a transport failure the session still carries the previous
// build's identity, and that build must keep its own tabs and results. It
// returns "" when nothing was stored.
func (r *Recorder) RecordSubmit(outcome session.Outcome, tabs []models.Tab, resp *buildbench.Response) (string, error) {
	if outcome != session.OutcomeResults || resp == nil {
		return "", nil
	}
	return r.Record(resp.ID, tabs, resp)
}

// RecordLoad stores a build fetched from the service under id, with the
// tabs the service sent for it. Responses without tabs are not stored.
func (r *Recorder) RecordLoad(id string, resp *buildbench.Response) (string, error) {
	if id == "" || IsDraft(id) || resp == nil || len(resp.Tabs) == 0 {
		return "", nil
	}
	return r.Record(id, Tabs(resp.Tabs), resp)
}

// Lookup returns the stored response for id, tabs included. It returns
// buildbench.ErrNotFound when the history has no such build.
func (r *Recorder) Lookup(id string) (*buildbench.Response, error) {
	b, err := r.db.GetBuild(id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, buildbench.ErrNotFound
	}

	var resp buildbench.Response
	if len(b.Payload) > 0 {
		if err := json.Unmarshal(b.Payload, &resp); err != nil {
			return nil, fmt.Errorf("decode stored payload for %s: %w", id, err)
		}
	}
	if len(resp.Tabs) == 0 {
		resp.Tabs = make([]buildbench.TabRecord, len(b.Tabs))
		for i, t := range b.Tabs {
			resp.Tabs[i] = buildbench.TabRecord{
				Code: t.Code, Title: t.Title, Compiler: t.Compiler,
				CppVersion: t.CppVersion, Optim: t.Optim, Lib: t.Lib,
			}
		}
	}
	return &resp, nil
}

// Fetch serves a stored build so the history can stand in for the service
func (r *Recorder) Fetch(_ context.Context, id string) (*buildbench.Response, error) {
	resp, err := r.Lookup(id)
	if err == nil {
		_ = r.db.TouchBuild(id)
	}
	return resp, err
}

// Build always fails: builds need the real service
func (r *Recorder) Build(context.Context, buildbench.BuildRequest) (*buildbench.Response, error) {
	return nil, ErrOffline
}

// TabRecords converts session tabs to the service's stored-tab format
func TabRecords(tabs []models.Tab) []buildbench.TabRecord {
	out := make([]buildbench.TabRecord, len(tabs))
	for i, t := range tabs {
		out[i] = buildbench.TabRecord{
			Code:       t.Code,
			Title:      t.Title,
			Compiler:   t.Options.Compiler,
			CppVersion: t.Options.CppVersion,
			Optim:      t.Options.Optim,
			Lib:        t.Options.Lib,
		}
	}
	return out
}

// Tabs converts stored-tab records back to session tabs
func Tabs(recs []buildbench.TabRecord) []models.Tab {
	tabs := make([]models.Tab, len(recs))
	for i, t := range recs {
		tabs[i] = models.Tab{
			Code:  t.Code,
			Title: t.Title,
			Options: models.Options{
				Compiler:   t.Compiler,
				CppVersion: t.CppVersion,
				Optim:      t.Optim,
				Lib:        t.Lib,
			},
		}
	}
	return tabs
}

func buildTabs(tabs []models.Tab) []db.BuildTab {
	out := make([]db.BuildTab, len(tabs))
	for i, t := range tabs {
		out[i] = db.BuildTab{
			Position:   i,
			Title:      t.Title,
			Compiler:   t.Options.Compiler,
			CppVersion: t.Options.CppVersion,
			Optim:      t.Options.Optim,
			Lib:        t.Options.Lib,
			Code:       t.Code,
		}
	}
	return out
}

// ReadSources reads C++ source files into tabs titled after the file
// names, all with opts
func ReadSources(paths []string, opts models.Options) ([]models.Tab, error) {
	tabs := make([]models.Tab, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		title := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		tabs = append(tabs, models.Tab{Code: string(data), Title: title, Options: opts})
	}
	return tabs, nil
}
