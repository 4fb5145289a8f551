// Package web provides a small read-only web UI over the run journal.
package web

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"net/http"

	"github.com/metalagman/researchloop/internal/db"
	"github.com/metalagman/researchloop/internal/report"
	"github.com/metalagman/researchloop/internal/research"
)

// RunStore is the subset of the journal the UI reads.
type RunStore interface {
	ListRuns(ctx context.Context, limit int) ([]db.RunRecord, error)
	GetRun(ctx context.Context, runID string) (db.RunRecord, research.Result, error)
}

// Server provides the web UI handlers and state.
type Server struct {
	store RunStore
	tmpl  *template.Template
}

//go:embed templates/*.html
var templatesFS embed.FS

var funcs = template.FuncMap{
	"score": report.FormatScore,
	"trend": report.ScoreTrend,
	"tier":  report.TierOf,
}

// NewServer creates a new web server.
func NewServer(store RunStore) (*Server, error) {
	tmpl, err := template.New("").Funcs(funcs).ParseFS(templatesFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	return &Server{store: store, tmpl: tmpl}, nil
}

// Routes returns the router for the web UI.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /runs/{id}", s.handleRun)
	mux.HandleFunc("GET /api/runs/{id}", s.handleRunJSON)
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	runs, err := s.store.ListRuns(r.Context(), 100)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if err := s.tmpl.ExecuteTemplate(w, "index.html", runs); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

type runView struct {
	Record db.RunRecord
	Result research.Result
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	rec, res, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	if err := s.tmpl.ExecuteTemplate(w, "run.html", runView{Record: rec, Result: res}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func (s *Server) handleRunJSON(w http.ResponseWriter, r *http.Request) {
	_, res, ok := s.loadRun(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(res)
}

func (s *Server) loadRun(w http.ResponseWriter, r *http.Request) (db.RunRecord, research.Result, bool) {
	rec, res, err := s.store.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, db.ErrRunNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, err.Error(), status)
		return db.RunRecord{}, research.Result{}, false
	}
	return rec, res, true
}
