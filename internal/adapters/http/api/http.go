// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/taixiu/internal/app"
	"github.com/okian/taixiu/internal/domain/types"
)

const defaultMaxHistoryLimit = 500

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	PredictDependencies
	HistoryDependencies
	AccuracyDependencies
}

// PredictionResponse mirrors the body of GET /predict.
type PredictionResponse = types.PredictionResponse

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	metricsHandler  http.Handler
	statsHandler    *StatsHandler
	predictHandler  *PredictHandler
	historyHandler  *HistoryHandler
	accuracyHandler *AccuracyHandler
}

// NewServer creates a new API server with all handlers. A non-positive
// maxHistoryLimit uses the default.
func NewServer(deps Dependencies, statsProvider StatsProvider, maxHistoryLimit int) *Server {
	if maxHistoryLimit <= 0 {
		maxHistoryLimit = defaultMaxHistoryLimit
	}
	return &Server{
		healthHandler:   NewHealthHandler(),
		metricsHandler:  NewMetricsHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		predictHandler:  NewPredictHandler(deps),
		historyHandler:  NewHistoryHandler(deps, maxHistoryLimit),
		accuracyHandler: NewAccuracyHandler(deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.Handle("/metrics", s.metricsHandler)
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/predict", MetricsMiddleware(s.predictHandler.HandlePredict, "predict"))
	mux.HandleFunc("/history", MetricsMiddleware(s.historyHandler.HandleHistory, "history"))
	mux.HandleFunc("/accuracy", MetricsMiddleware(s.accuracyHandler.HandleAccuracy, "accuracy"))
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

// classify maps service errors to an HTTP status, an error code and an API kind.
func classify(err error) (int, string, error) {
	switch {
	case errors.Is(err, service.ErrEmptyHistory):
		return http.StatusServiceUnavailable, "empty_history", ErrUnavailable
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "not_ready", ErrUnavailable
	case errors.Is(err, service.ErrUpstream):
		return http.StatusBadGateway, "upstream_unavailable", ErrUpstream
	default:
		return http.StatusInternalServerError, "internal_error", ErrInternal
	}
}

// writeServiceError writes err using classify.
func writeServiceError(w http.ResponseWriter, op string, err error) {
	status, code, kind := classify(err)
	writeError(w, status, code, WrapKind(op, kind, err))
}
