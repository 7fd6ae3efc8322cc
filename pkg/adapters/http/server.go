package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/ttystep"
	"github.com/aretw0/ttystep/internal/logging"
	"github.com/aretw0/ttystep/pkg/domain"
	"github.com/aretw0/ttystep/pkg/session"
	"github.com/aretw0/ttystep/pkg/ttyrec"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const writeDeadline = 10 * time.Second

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Server exposes a session.Manager over HTTP.
type Server struct {
	Manager *session.Manager
	metrics http.Handler
	logger  *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures the server logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler replaces the default Prometheus handler served at /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewHandler creates the HTTP handler for the manager's sessions.
func NewHandler(mgr *session.Manager, opts ...Option) http.Handler {
	s := &Server{
		Manager: mgr,
		metrics: promhttp.Handler(),
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Handle("/metrics", s.metrics)

	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", s.CreateSession)
		r.Get("/", s.ListSessions)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Post("/step", s.Step)
			r.Post("/reset", s.Reset)
			r.Get("/stream", s.Stream)
		})
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// CreateRequest is the body of POST /sessions. Empty fields keep the defaults.
type CreateRequest struct {
	Program       string `json:"program,omitempty"`
	Strategy      string `json:"strategy,omitempty"`
	RecordActions bool   `json:"record_actions,omitempty"`
}

// StepRequest is the body of POST /sessions/{id}/step. Action accepts a
// character ("y"), a decimal key code ("13") or an escape ("\\n").
type StepRequest struct {
	Action string `json:"action"`
}

// StateResponse reports a session after an operation. Observation is the
// output as text; ObservationRaw carries the exact bytes (base64 in JSON).
type StateResponse struct {
	Session        domain.SessionInfo `json:"session"`
	Done           bool               `json:"done"`
	Observation    string             `json:"observation"`
	ObservationRaw []byte             `json:"observation_raw"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// CreateSession handles POST /sessions.
func (s *Server) CreateSession(w http.ResponseWriter, r *http.Request) {
	var body CreateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			s.fail(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			return
		}
	}

	var opts []ttystep.Option
	if body.Program != "" {
		opts = append(opts, ttystep.WithProgram(body.Program))
	}
	if body.Strategy != "" {
		strategy, err := domain.ParseStrategy(body.Strategy)
		if err != nil {
			s.fail(w, http.StatusBadRequest, err)
			return
		}
		opts = append(opts, ttystep.WithStrategy(strategy))
	}
	if body.RecordActions {
		opts = append(opts, ttystep.WithRecordActions(true))
	}

	sess, err := s.Manager.Create(r.Context(), opts...)
	if err != nil {
		s.reject(w, "CreateSession", err)
		return
	}
	s.logger.Info("Session created", "session_id", sess.ID())
	obs := sess.Observation()
	s.respond(w, http.StatusCreated, StateResponse{
		Session:        sess.Info(),
		Done:           sess.Done(),
		Observation:    string(obs),
		ObservationRaw: obs,
	})
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	infos, err := s.Manager.List(r.Context())
	if err != nil {
		s.reject(w, "ListSessions", err)
		return
	}
	s.respond(w, http.StatusOK, infos)
}

// GetSession handles GET /sessions/{id}.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	info, err := s.Manager.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.reject(w, "GetSession", err)
		return
	}
	s.respond(w, http.StatusOK, info)
}

// DeleteSession handles DELETE /sessions/{id}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.Manager.Get(r.Context(), id); err != nil {
		s.reject(w, "DeleteSession", err)
		return
	}
	if err := s.Manager.Delete(r.Context(), id); err != nil {
		s.reject(w, "DeleteSession", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Step handles POST /sessions/{id}/step.
func (s *Server) Step(w http.ResponseWriter, r *http.Request) {
	var body StepRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.fail(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	action, err := domain.ParseAction(body.Action)
	if err != nil {
		s.fail(w, http.StatusBadRequest, err)
		return
	}

	id := chi.URLParam(r, "id")
	done, obs, err := s.Manager.Step(r.Context(), id, action)
	if err != nil {
		s.reject(w, "Step", err)
		return
	}
	s.state(w, r.Context(), id, done, obs)
}

// Reset handles POST /sessions/{id}/reset.
func (s *Server) Reset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	obs, err := s.Manager.Reset(r.Context(), id)
	if err != nil {
		s.reject(w, "Reset", err)
		return
	}
	s.state(w, r.Context(), id, false, obs)
}

// Stream handles GET /sessions/{id}/stream. Every record of the session's
// recording, past and future, is sent as one binary message in ttyrec framing.
func (s *Server) Stream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	info, err := s.Manager.Get(r.Context(), id)
	if err != nil {
		s.reject(w, "Stream", err)
		return
	}
	if info.Recording == "" {
		s.fail(w, http.StatusNotFound, fmt.Errorf("session %s has no recording", id))
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Websocket upgrade failed", "session_id", id, "err", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// The client never sends anything; reading surfaces its close.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.logger.Debug("Stream subscribed", "session_id", id, "recording", info.Recording)
	var frame []byte
	err = ttyrec.Follow(ctx, info.Recording, func(rec domain.Record) error {
		frame = ttyrec.AppendRecord(frame[:0], rec.Sec, rec.Usec, rec.Channel, rec.Payload)
		_ = conn.SetWriteDeadline(time.Now().Add(writeDeadline))
		return conn.WriteMessage(websocket.BinaryMessage, frame)
	})
	code, reason := websocket.CloseNormalClosure, ""
	switch {
	case errors.Is(err, ttyrec.ErrCorrupt):
		s.logger.Warn("Stream aborted", "session_id", id, "err", err)
		code, reason = websocket.CloseInternalServerErr, "corrupt recording"
	case err != nil && !errors.Is(err, context.Canceled):
		s.logger.Debug("Stream closed", "session_id", id, "err", err)
	}
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(time.Second))
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, map[string]string{
		"app":     "ttystep-http",
		"version": strings.TrimSpace(ttystep.Version),
	})
}

func (s *Server) state(w http.ResponseWriter, ctx context.Context, id string, done bool, obs []byte) {
	info, err := s.Manager.Get(ctx, id)
	if err != nil {
		s.reject(w, "State", err)
		return
	}
	s.respond(w, http.StatusOK, StateResponse{
		Session:        *info,
		Done:           done || info.Done,
		Observation:    string(obs),
		ObservationRaw: obs,
	})
}

func (s *Server) respond(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "err", err)
	}
}

func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	s.respond(w, status, errorResponse{Error: err.Error()})
}

// reject maps domain errors to status codes.
func (s *Server) reject(w http.ResponseWriter, op string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrSessionDone), errors.Is(err, domain.ErrSessionEnded),
		errors.Is(err, domain.ErrNotStackConfined):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrUnknownProgram), errors.Is(err, domain.ErrUnknownStrategy):
		status = http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		s.logger.Error(op+" failed", "err", err)
	} else {
		s.logger.Warn(op+" rejected", "err", err)
	}
	s.fail(w, status, err)
}
