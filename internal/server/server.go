// internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/emrekoca/taskwarden/internal/supervisor"
)

// Pinger verifies datastore reachability for the health endpoint.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Server exposes the operator-facing surface: a manual scan trigger and a
// health check. Role-based authorization is the surrounding application's
// concern; the trigger is still guarded by a shared operator token so it is
// not open by default.
type Server struct {
	engine        *supervisor.Engine
	db            Pinger
	operatorToken string
	scanTimeout   time.Duration
	logger        zerolog.Logger
}

func New(
	engine *supervisor.Engine,
	db Pinger,
	operatorToken string,
	scanTimeout time.Duration,
	logger zerolog.Logger,
) *Server {
	return &Server{
		engine:        engine,
		db:            db,
		operatorToken: operatorToken,
		scanTimeout:   scanTimeout,
		logger:        logger.With().Str("component", "server").Logger(),
	}
}

// Handler returns the route mux.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/supervisory/scan", s.handleScan)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	return mux
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	if s.operatorToken == "" {
		writeError(w, http.StatusForbidden, "manual trigger disabled: no operator token configured")
		return
	}
	if r.Header.Get("X-Operator-Token") != s.operatorToken {
		writeError(w, http.StatusUnauthorized, "invalid operator token")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.scanTimeout)
	defer cancel()

	start := time.Now()
	result, err := s.engine.Run(ctx, time.Now())
	if errors.Is(err, supervisor.ErrScanInProgress) {
		writeError(w, http.StatusConflict, "a scan is already in progress")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("manual scan failed")
		writeJSON(w, http.StatusInternalServerError, result)
		return
	}

	s.logger.Info().Dur("duration", time.Since(start)).Int("total", result.Total).Msg("manual scan completed")
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.db.PingContext(ctx); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unreachable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
