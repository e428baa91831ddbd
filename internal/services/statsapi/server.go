// Package statsapi serves read-only availability views for dashboards.
package statsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/NordCoder/Vigil/internal/domain"
	"github.com/NordCoder/Vigil/internal/domain/endpoint"
	"github.com/NordCoder/Vigil/internal/domain/stats"
	"github.com/NordCoder/Vigil/internal/obs"
	"github.com/NordCoder/Vigil/internal/services/aggregator"
)

type StatsSource interface {
	Stats(ctx context.Context, endpointID int64, historyDays int) (*stats.Stats, error)
	RollingUptime(ctx context.Context, endpointID int64, window time.Duration) (float64, error)
}

type Server struct {
	log       *zap.Logger
	stats     StatsSource
	endpoints endpoint.Repo
}

func NewServer(log *zap.Logger, src StatsSource, endpoints endpoint.Repo) *Server {
	return &Server{log: log.With(zap.String("component", "statsapi")), stats: src, endpoints: endpoints}
}

func (s *Server) Mount(mux *http.ServeMux) {
	mux.Handle("GET /v1/endpoints/{id}/stats", obs.HTTPHandler(http.HandlerFunc(s.Stats), "stats.get"))
	mux.Handle("GET /v1/endpoints/{id}/uptime", obs.HTTPHandler(http.HandlerFunc(s.Uptime), "uptime.get"))
}

type uptimeResponse struct {
	EndpointID int64           `json:"endpoint_id"`
	Days       int             `json:"days"`
	Uptime     float64         `json:"uptime"`
	Status     endpoint.Status `json:"status"`
	LastCheck  *time.Time      `json:"last_check"`
}

// Stats handles GET /v1/endpoints/{id}/stats?days=N. days is clamped to the next history window.
func (s *Server) Stats(w http.ResponseWriter, r *http.Request) {
	ep, ok := s.endpoint(w, r)
	if !ok {
		return
	}
	days, err := queryDays(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	days = aggregator.ClampHistory(days)

	st, err := s.stats.Stats(r.Context(), ep.ID, days)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, st)
}

// Uptime handles GET /v1/endpoints/{id}/uptime?days=N. Without days the configured window
// applies; days beyond the longest retention window are rejected.
func (s *Server) Uptime(w http.ResponseWriter, r *http.Request) {
	ep, ok := s.endpoint(w, r)
	if !ok {
		return
	}
	days, err := queryDays(r)
	if err == nil && days > aggregator.MaxHistoryDays {
		err = fmt.Errorf("days %d exceeds %d: %w", days, aggregator.MaxHistoryDays, domain.ErrInvalid)
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var window time.Duration
	if days > 0 {
		window = time.Duration(days) * 24 * time.Hour
	}

	up, err := s.stats.RollingUptime(r.Context(), ep.ID, window)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, uptimeResponse{
		EndpointID: ep.ID,
		Days:       days,
		Uptime:     up,
		Status:     ep.Status,
		LastCheck:  ep.LastCheck,
	})
}

func (s *Server) endpoint(w http.ResponseWriter, r *http.Request) (*endpoint.Endpoint, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid endpoint id", http.StatusBadRequest)
		return nil, false
	}
	ep, err := s.endpoints.GetByID(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return nil, false
	}
	return ep, true
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		http.Error(w, "endpoint not found", http.StatusNotFound)
	case errors.Is(err, domain.ErrInvalid):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		obs.WithTrace(r.Context(), s.log).Error("stats request", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

// queryDays returns 0 when days is absent.
func queryDays(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("days")
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("days %q: %w", raw, domain.ErrInvalid)
	}
	return v, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
