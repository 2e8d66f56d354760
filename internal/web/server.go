// Package web serves the read-only HTTP surface: job state as JSON plus live
// progress streams. All writes go through the CLI; the server never mutates
// a job.
package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/uiforge/uiforge/internal/events"
	"github.com/uiforge/uiforge/internal/progress"
	"github.com/uiforge/uiforge/internal/tcc"
)

// Server exposes job state and progress streams.
type Server struct {
	store tcc.Store
	db    *events.DB
	hub   *progress.Hub
	port  int
	log   *logrus.Entry
}

// NewServer creates a Server. db may be nil when the event log is disabled;
// the events endpoint then returns 404.
func NewServer(store tcc.Store, db *events.DB, hub *progress.Hub, port int, log *logrus.Entry) *Server {
	return &Server{store: store, db: db, hub: hub, port: port, log: log}
}

// Handler returns the route mux, exposed separately for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/jobs", s.handleJobs)
	mux.HandleFunc("/api/jobs/", s.routeJob)
	mux.HandleFunc("/events/stream", s.handleStream)
	mux.HandleFunc("/events/ws", s.handleWS)
	return mux
}

// Start begins listening. It blocks until the listener fails.
func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.log.WithField("addr", addr).Info("web server listening")
	return http.ListenAndServe(addr, s.Handler())
}

// jobSummary is the list-view shape: enough to render a dashboard row
// without shipping every artifact.
type jobSummary struct {
	JobID       string        `json:"job_id"`
	Description string        `json:"description"`
	ToolType    string        `json:"tool_type,omitempty"`
	JobStatus   tcc.JobStatus `json:"job_status"`
	CurrentStep tcc.Step      `json:"current_step,omitempty"`
	Fallbacks   bool          `json:"used_fallbacks"`
	CreatedAt   string        `json:"created_at"`
	UpdatedAt   string        `json:"updated_at"`
}

func summarize(t *tcc.ToolConstructionContext) jobSummary {
	return jobSummary{
		JobID:       t.JobID,
		Description: t.UserInput.Description,
		ToolType:    t.UserInput.ToolType,
		JobStatus:   t.JobStatus,
		CurrentStep: t.CurrentStep,
		Fallbacks:   t.UsedFallbacks(),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	status := tcc.JobStatus(r.URL.Query().Get("status"))
	jobs, err := s.store.List(status)
	if err != nil {
		s.jsonError(w, http.StatusInternalServerError, err)
		return
	}
	summaries := make([]jobSummary, 0, len(jobs))
	for _, t := range jobs {
		summaries = append(summaries, summarize(t))
	}
	s.writeJSON(w, http.StatusOK, summaries)
}

func (s *Server) routeJob(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	parts := strings.Split(strings.Trim(rest, "/"), "/")
	switch {
	case len(parts) == 1 && parts[0] != "":
		s.handleJobDetail(w, r, parts[0])
	case len(parts) == 2 && parts[1] == "events":
		s.handleJobEvents(w, r, parts[0])
	default:
		http.NotFound(w, r)
	}
}

func (s *Server) handleJobDetail(w http.ResponseWriter, _ *http.Request, jobID string) {
	t, err := s.store.Get(jobID)
	if err != nil {
		if err == tcc.ErrNotFound {
			s.jsonError(w, http.StatusNotFound, fmt.Errorf("job %s not found", jobID))
			return
		}
		s.jsonError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleJobEvents(w http.ResponseWriter, r *http.Request, jobID string) {
	if s.db == nil {
		http.NotFound(w, r)
		return
	}
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			s.jsonError(w, http.StatusBadRequest, fmt.Errorf("bad limit %q", v))
			return
		}
		limit = n
	}
	rows, err := s.db.ListForJob(jobID, limit)
	if err != nil {
		s.jsonError(w, http.StatusInternalServerError, err)
		return
	}
	if rows == nil {
		rows = []events.Row{}
	}
	s.writeJSON(w, http.StatusOK, rows)
}

func (s *Server) writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.WithError(err).Warn("write response failed")
	}
}

func (s *Server) jsonError(w http.ResponseWriter, code int, err error) {
	s.writeJSON(w, code, map[string]string{"error": err.Error()})
}
