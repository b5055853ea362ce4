// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/podium/internal/app"
	"github.com/okian/podium/internal/domain/ceremony"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/stats"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	CeremonyDependencies
	StandingsDependencies
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	ceremonyHandler  *CeremonyHandler
	standingsHandler *StandingsHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(statsProvider),
		ceremonyHandler:  NewCeremonyHandler(deps),
		standingsHandler: NewStandingsHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/standings", MetricsMiddleware(s.standingsHandler.HandleGetStandings, "standings"))
	mux.HandleFunc("/ceremony", MetricsMiddleware(s.ceremonyHandler.HandleGetCeremony, "ceremony"))
	mux.HandleFunc("/ceremony/start", MetricsMiddleware(s.ceremonyHandler.HandleStart, "ceremony_start"))
	mux.HandleFunc("/ceremony/advance", MetricsMiddleware(s.ceremonyHandler.HandleAdvance, "ceremony_advance"))
	mux.HandleFunc("/ceremony/skip", MetricsMiddleware(s.ceremonyHandler.HandleSkip, "ceremony_skip"))
	mux.HandleFunc("/ceremony/end", MetricsMiddleware(s.ceremonyHandler.HandleEnd, "ceremony_end"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps domain errors to HTTP statuses.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ceremony.ErrCeremonyActive), errors.Is(err, ceremony.ErrAlreadyViewed):
		writeError(w, http.StatusConflict, "conflict", wrapKind(op, ErrConflict, err))
	case errors.Is(err, ceremony.ErrNoCeremony), errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", wrapKind(op, ErrNotFound, err))
	case errors.Is(err, model.ErrUnknownKind),
		errors.Is(err, model.ErrInvalidMonthKey),
		errors.Is(err, stats.ErrNoLeague),
		errors.Is(err, ceremony.ErrInvalidParams),
		errors.Is(err, ErrBadRequest):
		writeError(w, http.StatusBadRequest, "bad_request", wrapKind(op, ErrBadRequest, err))
	case errors.Is(err, service.ErrNotStarted):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}
