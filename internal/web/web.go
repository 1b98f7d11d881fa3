// Package web serves the latest build as a read-only JSON API.
package web

import (
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"esiplanner/internal/config"
	appLog "esiplanner/internal/log"
	"esiplanner/internal/model"
)

// Server exposes the most recent Snapshot over HTTP.
type Server struct {
	cfg *config.Config
	mux *http.ServeMux

	// Swapped wholesale after every build; readers never see a partial one.
	snapMu sync.RWMutex
	snap   *Snapshot
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config) *Server {
	s := &Server{
		cfg: cfg,
		mux: http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// SetSnapshot publishes a finished build.
func (s *Server) SetSnapshot(snap *Snapshot) {
	s.snapMu.Lock()
	s.snap = snap
	s.snapMu.Unlock()
}

func (s *Server) snapshot() *Snapshot {
	s.snapMu.RLock()
	defer s.snapMu.RUnlock()
	return s.snap
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// Empty credentials mean disabled.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="ESIPlanner", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("GET /api/subjects", s.withSnapshot(s.handleSubjects))
	s.mux.HandleFunc("GET /api/subjects/{code}", s.withSnapshot(s.handleSubject))
	s.mux.HandleFunc("GET /api/degrees", s.withSnapshot(s.handleDegrees))
	s.mux.HandleFunc("GET /api/degrees/{code}", s.withSnapshot(s.handleDegree))
	s.mux.HandleFunc("GET /api/mapping", s.withSnapshot(s.handleMapping))
}

// withSnapshot answers 503 until the first build has been published.
func (s *Server) withSnapshot(h func(http.ResponseWriter, *http.Request, *Snapshot)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap := s.snapshot()
		if snap == nil {
			writeError(w, http.StatusServiceUnavailable, "no build available yet")
			return
		}
		h(w, r, snap)
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// subjectSummary is the list view of a subject.
type subjectSummary struct {
	Code    string `json:"code"`
	Name    string `json:"name"`
	Classes int    `json:"classes"`
	Events  int    `json:"events"`
}

func (s *Server) handleSubjects(w http.ResponseWriter, _ *http.Request, snap *Snapshot) {
	out := make([]subjectSummary, 0, len(snap.subjects))
	for _, sub := range snap.subjects {
		out = append(out, subjectSummary{
			Code:    sub.Code,
			Name:    sub.Name,
			Classes: len(sub.Classes),
			Events:  sub.EventCount(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSubject(w http.ResponseWriter, r *http.Request, snap *Snapshot) {
	code := r.PathValue("code")
	sub, ok := snap.subject(code)
	if !ok {
		writeError(w, http.StatusNotFound, "subject not found: "+code)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleDegrees(w http.ResponseWriter, _ *http.Request, snap *Snapshot) {
	out := snap.degrees
	if out == nil {
		out = []model.Degree{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDegree(w http.ResponseWriter, r *http.Request, snap *Snapshot) {
	code := r.PathValue("code")
	d, ok := snap.degree(code)
	if !ok {
		writeError(w, http.StatusNotFound, "degree not found: "+code)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleMapping(w http.ResponseWriter, _ *http.Request, snap *Snapshot) {
	if snap.mapping == nil {
		writeError(w, http.StatusNotFound, "no mapping file configured")
		return
	}
	writeJSON(w, http.StatusOK, snap.mapping)
}

// errorDTO is one calendar source that failed to parse.
type errorDTO struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// statusResponse is the JSON response shape for /api/status.
type statusResponse struct {
	Ready         bool       `json:"ready"`
	SessionID     string     `json:"session_id,omitempty"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
	Subjects      int        `json:"subjects"`
	Degrees       int        `json:"degrees"`
	SourceErrors  []errorDTO `json:"source_errors"`
	CatalogErrors []string   `json:"catalog_errors"`
	FeedErrors    []string   `json:"feed_errors"`
}

// handleStatus reports on the last build. It answers 200 with ready=false
// before the first build so health checks can tell "starting" from "down".
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := statusResponse{
		SourceErrors:  []errorDTO{},
		CatalogErrors: []string{},
		FeedErrors:    []string{},
	}
	snap := s.snapshot()
	if snap != nil {
		resp.Ready = true
		resp.SessionID = snap.SessionID
		started, finished := snap.StartedAt, snap.FinishedAt
		resp.StartedAt = &started
		resp.FinishedAt = &finished
		resp.Subjects = len(snap.subjects)
		resp.Degrees = len(snap.degrees)
		resp.SourceErrors = append(resp.SourceErrors, snap.sourceErrors...)
		resp.CatalogErrors = append(resp.CatalogErrors, snap.catalogErrors...)
		resp.FeedErrors = append(resp.FeedErrors, snap.feedErrors...)
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
