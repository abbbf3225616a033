// Package ops exposes a small operational HTTP surface: liveness and a
// read-only view of queued broadcast jobs. It binds to a local address and
// carries no authentication, so it must not be exposed publicly.
package ops

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"hookbot/internal/storage"
	logx "hookbot/pkg/logx"
)

type Config struct {
	Enabled bool
	Addr    string
}

const defaultAddr = "127.0.0.1:8090"

type Server struct {
	cfg   Config
	store storage.Store
	log   logx.Logger

	srv *http.Server
}

func New(cfg Config, store storage.Store, log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{cfg: cfg, store: store, log: log}
}

func (s *Server) Start() error {
	if !s.cfg.Enabled || s.srv != nil {
		return nil
	}
	addr := s.cfg.Addr
	if addr == "" {
		addr = defaultAddr
	}

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		s.log.Info("ops server listening", logx.String("addr", addr))
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("ops server exited", logx.Err(err))
		}
	}()
	return nil
}

func (s *Server) handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/jobs", s.handleJobs)
	r.Get("/jobs/{jobID}", s.handleJob)
	return r
}

func (s *Server) Stop(ctx context.Context) error {
	if s.srv == nil {
		return nil
	}
	err := s.srv.Shutdown(ctx)
	s.srv = nil
	return err
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type jobView struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Status    string    `json:"status"`
	Processed int       `json:"processed"`
	Success   int       `json:"success"`
	Failed    int       `json:"failed"`
	Remaining int       `json:"remaining"`
	CreatedAt time.Time `json:"createdAt"`
}

func (s *Server) handleJobs(w http.ResponseWriter, r *http.Request) {
	ids, err := s.store.ListJobIDs(r.Context())
	if err != nil {
		s.log.Error("ops: list jobs", logx.Err(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage failure"})
		return
	}

	views := make([]jobView, 0, len(ids))
	for _, id := range ids {
		rec, err := s.store.ReadJob(r.Context(), id)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue // drained between list and read
			}
			s.log.Error("ops: read job", logx.String("job_id", id), logx.Err(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage failure"})
			return
		}
		views = append(views, toView(rec))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "jobID")
	rec, err := s.store.ReadJob(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "job not found"})
			return
		}
		s.log.Error("ops: read job", logx.String("job_id", id), logx.Err(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "storage failure"})
		return
	}
	writeJSON(w, http.StatusOK, toView(rec))
}

func toView(rec storage.JobRecord) jobView {
	remaining := len(rec.Targets) - rec.Cursor
	if remaining < 0 {
		remaining = 0
	}
	return jobView{
		ID:        rec.ID,
		Kind:      string(rec.Kind),
		Status:    string(rec.Status),
		Processed: rec.Cursor,
		Success:   rec.SuccessCount,
		Failed:    rec.FailureCount,
		Remaining: remaining,
		CreatedAt: rec.CreatedAt,
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
