// Package httpapi exposes a cache over HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"lrucache/internal/cache"
	"lrucache/internal/store"
)

// Cache is the part of *cache.Cache[string] the API serves.
type Cache interface {
	Get(ctx context.Context, key string) (string, error)
	Snapshot() []string
	Drain(ctx context.Context) error
	Stats() cache.Stats
	Done() <-chan struct{}
}

const drainTimeout = 5 * time.Second

type handler struct {
	cache  Cache
	logger *slog.Logger
}

// NewRouter wires the routes:
//
//	GET /v1/values/{key}        read-through lookup
//	GET /debug/recency?drain=1  recency order, MRU first
//	GET /debug/stats            counters
//	GET /metrics                Prometheus exposition from gatherer
//	GET /healthz                503 once the maintenance worker has exited
func NewRouter(c Cache, gatherer prometheus.Gatherer, logger *slog.Logger) http.Handler {
	h := &handler{cache: c, logger: logger}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/v1", func(r chi.Router) {
		r.Get("/values/{key}", h.getValue)
	})
	r.Route("/debug", func(r chi.Router) {
		r.Get("/recency", h.recency)
		r.Get("/stats", h.stats)
	})
	return r
}

type valueResponse struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type recencyResponse struct {
	Keys []string `json:"keys"`
}

type statsResponse struct {
	Hits              int64 `json:"hits"`
	Misses            int64 `json:"misses"`
	Fetches           int64 `json:"fetches"`
	FetchErrors       int64 `json:"fetch_errors"`
	Evictions         int64 `json:"evictions"`
	BookkeepingErrors int64 `json:"bookkeeping_errors"`
	Pending           int   `json:"pending"`
	Resident          int   `json:"resident"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handler) getValue(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")

	v, err := h.cache.Get(r.Context(), key)
	if err != nil {
		status := statusFor(err)
		if status >= http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "get failed",
				"key", key,
				"request_id", middleware.GetReqID(r.Context()),
				"error", err,
			)
		}
		writeJSON(w, status, errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, valueResponse{Key: key, Value: v})
}

func (h *handler) recency(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("drain"); raw != "" {
		drain, err := strconv.ParseBool(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "drain must be a boolean"})
			return
		}
		if drain {
			ctx, cancel := context.WithTimeout(r.Context(), drainTimeout)
			defer cancel()
			if err := h.cache.Drain(ctx); err != nil {
				writeJSON(w, statusFor(err), errorResponse{Error: err.Error()})
				return
			}
		}
	}
	writeJSON(w, http.StatusOK, recencyResponse{Keys: h.cache.Snapshot()})
}

func (h *handler) stats(w http.ResponseWriter, _ *http.Request) {
	s := h.cache.Stats()
	writeJSON(w, http.StatusOK, statsResponse{
		Hits:              s.Hits,
		Misses:            s.Misses,
		Fetches:           s.Fetches,
		FetchErrors:       s.FetchErrors,
		Evictions:         s.Evictions,
		BookkeepingErrors: s.BookkeepingErrors,
		Pending:           s.Pending,
		Resident:          s.Resident,
	})
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	select {
	case <-h.cache.Done():
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: cache.ErrClosed.Error()})
	default:
		w.WriteHeader(http.StatusOK)
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrInvalidKey):
		return http.StatusBadRequest
	case errors.Is(err, cache.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
