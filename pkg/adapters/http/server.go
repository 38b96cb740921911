// Package http exposes the rig over a small JSON API: a command
// endpoint, status and step queries, a step editor and an SSE status
// stream. The transport serializes nothing itself; every request rides
// the control loop's own queue, so one trigger is in flight at a time.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/buzzauk/sixarm"
	"github.com/buzzauk/sixarm/internal/logging"
	"github.com/buzzauk/sixarm/pkg/domain"
)

// Rig is the control surface the server drives. *sixarm.Rig satisfies
// it.
type Rig interface {
	Command(ctx context.Context, name string, index *int) (string, error)
	UpdateStep(ctx context.Context, index int, p domain.Pose) (string, error)
	Status(ctx context.Context) (domain.Status, error)
	Steps(ctx context.Context) ([]domain.Pose, error)
	Watch(ctx context.Context) <-chan domain.Status
}

// CommandResponse is the envelope for every command verdict: a success
// flag plus a human-readable message. Domain rejections ride an OK
// transport status; only malformed requests and a dead loop surface as
// HTTP errors.
type CommandResponse struct {
	OK      bool   `json:"ok"`
	Message string `json:"message"`
}

// StepsResponse lists the stored poses in playback order.
type StepsResponse struct {
	Steps []domain.Pose `json:"steps"`
}

type commandRequest struct {
	Name  string `json:"name"`
	Index *int   `json:"index,omitempty"`
}

type updateStepRequest struct {
	Positions []uint16 `json:"positions"`
}

// Server implements the HTTP surface over a Rig.
type Server struct {
	rig Rig
	log *slog.Logger
}

// NewHandler builds the HTTP surface for a rig.
func NewHandler(rig Rig, log *slog.Logger) http.Handler {
	if log == nil {
		log = logging.NewNop()
	}
	s := &Server{rig: rig, log: log}

	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Post("/command", s.Command)
		r.Get("/status", s.Status)
		r.Get("/steps", s.Steps)
		r.Put("/steps/{index}", s.UpdateStep)
		r.Get("/events", s.Events)
		r.Get("/info", s.Info)
	})
	r.Get("/healthz", s.Health)
	r.Handle("/metrics", promhttp.Handler())

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Command handles POST /api/command.
func (s *Server) Command(w http.ResponseWriter, r *http.Request) {
	var body commandRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		s.log.Warn("command: invalid request body", "err", err)
		return
	}

	msg, err := s.rig.Command(r.Context(), body.Name, body.Index)
	if err != nil {
		s.writeJSON(w, commandStatus(err), CommandResponse{OK: false, Message: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, CommandResponse{OK: true, Message: msg})
}

func commandStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrBadCommand):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotRunning):
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// Status handles GET /api/status.
func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	st, err := s.rig.Status(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	s.writeJSON(w, http.StatusOK, st)
}

// Steps handles GET /api/steps.
func (s *Server) Steps(w http.ResponseWriter, r *http.Request) {
	steps, err := s.rig.Steps(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if steps == nil {
		steps = []domain.Pose{}
	}
	s.writeJSON(w, http.StatusOK, StepsResponse{Steps: steps})
}

// UpdateStep handles PUT /api/steps/{index}.
func (s *Server) UpdateStep(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		http.Error(w, "invalid step index", http.StatusBadRequest)
		return
	}

	var body updateStepRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		s.log.Warn("update step: invalid request body", "err", err)
		return
	}
	if len(body.Positions) != domain.NumChannels {
		http.Error(w, fmt.Sprintf("positions must have %d values", domain.NumChannels), http.StatusBadRequest)
		return
	}

	var pose domain.Pose
	copy(pose[:], body.Positions)
	msg, err := s.rig.UpdateStep(r.Context(), index, pose)
	if err != nil {
		s.writeJSON(w, updateStatus(err), CommandResponse{OK: false, Message: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, CommandResponse{OK: true, Message: msg})
}

func updateStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrOutOfRange):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNotRunning):
		return http.StatusServiceUnavailable
	}
	return http.StatusOK
}

// Events handles GET /api/events as an SSE stream of status
// snapshots.
func (s *Server) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		s.log.Error("events: streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	events := s.rig.Watch(r.Context())

	// Prime the stream with the current snapshot so a fresh client
	// renders without waiting for a change.
	if st, err := s.rig.Status(r.Context()); err == nil {
		s.writeEvent(w, st)
		flusher.Flush()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case st, ok := <-events:
			if !ok {
				return
			}
			s.writeEvent(w, st)
			flusher.Flush()
		}
	}
}

// Health handles GET /healthz.
func (s *Server) Health(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Info handles GET /api/info.
func (s *Server) Info(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"app":     "sixarm",
		"version": sixarm.Version,
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Error("response encode failed", "err", err)
	}
}

func (s *Server) writeEvent(w io.Writer, st domain.Status) {
	data, err := json.Marshal(st)
	if err != nil {
		s.log.Error("status encode failed", "err", err)
		return
	}
	fmt.Fprintf(w, "data: %s\n\n", data)
}
