// Package mirror serves the local build history over the build service's
// own HTTP protocol, so that any client pointed at it can read recorded
// builds offline. With an upstream configured it also proxies new builds
// and unknown ids to the real service, recording what passes through.
package mirror

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/neilberkman/qbench/internal/core/db"
	"github.com/neilberkman/qbench/internal/core/history"
	"github.com/neilberkman/qbench/internal/core/models"
	"github.com/neilberkman/qbench/internal/core/report"
	"github.com/neilberkman/qbench/internal/core/session"
	"github.com/neilberkman/qbench/pkg/buildbench"
)

// maxRequestBody bounds POST /build/ bodies
const maxRequestBody = 4 << 20

// Server answers build-service requests from the local history
type Server struct {
	db       *db.DB
	rec      *history.Recorder
	upstream session.Builder
	logger   *slog.Logger
}

// New creates a mirror. upstream may be nil for a read-only mirror.
func New(database *db.DB, upstream session.Builder, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		db:       database,
		rec:      history.New(database),
		upstream: upstream,
		logger:   logger,
	}
}

// Router creates the chi router with all routes and middleware.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Logger(s.logger))
	r.Use(Recovery(s.logger))

	r.Get("/health", s.health)
	r.Get("/builds", s.listBuilds)
	r.Get("/b/{id}", s.page)

	r.Route("/build", func(r chi.Router) {
		r.Post("/", s.build)
		r.Get("/{id}", s.fetch)
	})

	return r
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	stats, err := s.db.GetStats()
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "history unavailable: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"builds":   stats.TotalBuilds,
		"upstream": s.upstream != nil,
	})
}

// listBuilds handles GET /builds?q=<history query>
func (s *Server) listBuilds(w http.ResponseWriter, r *http.Request) {
	filter := db.ParseHistoryQuery(r.URL.Query().Get("q"))
	if filter.Limit == 0 {
		filter.Limit = 100
	}
	builds, err := s.db.ListBuilds(filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if builds == nil {
		builds = []db.BuildSummary{}
	}
	writeJSON(w, http.StatusOK, builds)
}

// fetch handles GET /build/{id}
func (s *Server) fetch(w http.ResponseWriter, r *http.Request) {
	resp, status, err := s.lookup(r, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// page handles GET /b/{id} with a plain-text report
func (s *Server) page(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	resp, status, err := s.lookup(r, id)
	if err != nil {
		writeError(w, status, err.Error())
		return
	}

	sess := session.New()
	t := sess.BeginLoad(id)
	if _, err := sess.CompleteLoad(t, resp, nil); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_ = report.FromSession(sess, "", report.Detail{}).WriteText(w)
}

// lookup serves id from the history, falling back to the upstream
func (s *Server) lookup(r *http.Request, id string) (*buildbench.Response, int, error) {
	resp, err := s.rec.Lookup(id)
	if err == nil {
		_ = s.db.TouchBuild(id)
		return resp, http.StatusOK, nil
	}
	if !errors.Is(err, buildbench.ErrNotFound) {
		return nil, http.StatusInternalServerError, err
	}
	if s.upstream == nil || history.IsDraft(id) {
		return nil, http.StatusNotFound, err
	}

	resp, err = s.upstream.Fetch(r.Context(), id)
	if errors.Is(err, buildbench.ErrNotFound) {
		return nil, http.StatusNotFound, err
	}
	if err != nil {
		return nil, http.StatusBadGateway, err
	}
	if _, err := s.rec.RecordLoad(id, resp); err != nil {
		s.logger.Warn("failed to record fetched build", "id", id, "error", err)
	}
	return resp, http.StatusOK, nil
}

// build handles POST /build/ by forwarding to the upstream
func (s *Server) build(w http.ResponseWriter, r *http.Request) {
	if s.upstream == nil {
		writeError(w, http.StatusServiceUnavailable, "this mirror is read-only")
		return
	}

	var req buildbench.BuildRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if len(req.Tabs) == 0 {
		writeError(w, http.StatusBadRequest, "tabs are required")
		return
	}

	resp, err := s.upstream.Build(r.Context(), req)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	// Diagnostics are passed through but not stored, so an earlier build
	// under the same id keeps its tabs and results.
	if resp.HasResult() {
		if _, err := s.rec.Record(resp.ID, tabsFromRequest(req.Tabs), resp); err != nil {
			s.logger.Warn("failed to record build", "id", resp.ID, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func tabsFromRequest(reqs []buildbench.TabRequest) []models.Tab {
	tabs := make([]models.Tab, len(reqs))
	for i, t := range reqs {
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
