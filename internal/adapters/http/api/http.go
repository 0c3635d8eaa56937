// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/okian/stampview/internal/domain/filter"
	"github.com/okian/stampview/internal/domain/response"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Query runs a selection through the filter and aggregation pipeline.
	Query(ctx context.Context, sel filter.Selection) (response.Payload, error)

	// FilterValues lists the selectable values per filter column.
	FilterValues(ctx context.Context) (map[string][]any, error)

	// Datasets reports row counts per loaded dataset.
	Datasets(ctx context.Context) (map[string]int, error)

	RowLimit() int
	Fingerprint() uint64
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler  *HealthHandler
	statsHandler   *StatsHandler
	dataHandler    *DataHandler
	filtersHandler *FiltersHandler
	metricsHandler http.Handler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider) *Server {
	return &Server{
		healthHandler:  NewHealthHandler(deps),
		statsHandler:   NewStatsHandler(statsProvider),
		dataHandler:    NewDataHandler(deps),
		filtersHandler: NewFiltersHandler(deps),
		metricsHandler: NewMetricsHandler(),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/api/data", MetricsMiddleware(s.dataHandler.HandleData, "data"))
	mux.HandleFunc("/api/filters", MetricsMiddleware(s.filtersHandler.HandleFilters, "filters"))
	mux.Handle("/metrics", s.metricsHandler)
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
