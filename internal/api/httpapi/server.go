// Package httpapi exposes the operator control surface as a JSON HTTP API.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	zlog "github.com/rs/zerolog/log"

	"cueloop/internal/app/jockey"
)

// Server serves the control API for one jockey service.
type Server struct {
	svc *jockey.Service
}

// NewServer creates an API server over the given service.
func NewServer(svc *jockey.Service) *Server {
	return &Server{svc: svc}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/status", s.handleStatus)

		r.Route("/queue", func(r chi.Router) {
			r.Get("/", s.handleQueueList)
			r.Post("/", s.handleQueueAdd)
			r.Post("/batch", s.handleQueueBatch)
			r.Delete("/{id}", s.handleQueueRemove)
		})

		r.Route("/playback", func(r chi.Router) {
			r.Post("/start", s.handleStart)
			r.Post("/stop", s.handleStop)
			r.Put("/loop", s.handleLoop)
		})

		r.Get("/events", s.handleEvents)
	})

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Status())
}

type addRequest struct {
	Reference string `json:"reference"`
}

func (s *Server) handleQueueAdd(w http.ResponseWriter, r *http.Request) {
	var req addRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	it, err := s.svc.Enqueue(r.Context(), req.Reference)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, it)
}

type batchRequest struct {
	References []string `json:"references"`
}

func (s *Server) handleQueueBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	items, err := s.svc.EnqueueBatch(r.Context(), req.References)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"items": items})
}

func (s *Server) handleQueueList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": s.svc.List()})
}

func (s *Server) handleQueueRemove(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	it, err := s.svc.Remove(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, it)
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	started := s.svc.StartIfIdle()
	writeJSON(w, http.StatusOK, map[string]bool{"started": started})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.svc.Stop()
	w.WriteHeader(http.StatusNoContent)
}

type loopRequest struct {
	Enabled bool `json:"enabled"`
}

func (s *Server) handleLoop(w http.ResponseWriter, r *http.Request) {
	var req loopRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.svc.SetLoop(req.Enabled)
	writeJSON(w, http.StatusOK, map[string]bool{"loop": s.svc.Loop()})
}

// writeServiceError maps service errors onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var rejected *jockey.RejectedError
	switch {
	case errors.As(err, &rejected):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error": rejected.Message,
			"code":  rejected.Code,
		})
	case errors.Is(err, jockey.ErrNotFound):
		writeError(w, http.StatusNotFound, "item not found")
	default:
		writeError(w, http.StatusBadRequest, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zlog.Warn().Msgf("httpapi: response encode failed: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// requestLogger logs one line per request.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zlog.Debug().Msgf("httpapi: %s %s status=%d elapsed=%v", r.Method, r.URL.Path, ww.Status(), time.Since(start))
	})
}
