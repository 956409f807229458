package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/yndnr/pulsekv/internal/infra/buildinfo"
	"github.com/yndnr/pulsekv/internal/pubsub"
	"github.com/yndnr/pulsekv/internal/telemetry/metric"
)

// Stats is a point-in-time view of server state reported by /health.
type Stats struct {
	Keys        int `json:"keys"`
	Connections int `json:"connections"`

	// ShardKeys is the entry count of each keyspace shard.
	ShardKeys []int `json:"shard_keys,omitempty"`
}

// RouterConfig holds configuration for the HTTP router.
type RouterConfig struct {
	// Registry receives WebSocket subscribers. Required.
	Registry *pubsub.Registry

	// Metrics is served on /metrics. Defaults to metric.Global().
	Metrics *metric.Registry

	// Stats is sampled on every /health request. Optional.
	Stats func() Stats

	Logger *slog.Logger

	// WriteTimeout bounds each WebSocket message write.
	WriteTimeout time.Duration

	// SendBuffer is the per-subscriber queue length.
	SendBuffer int

	// EnableAudit enables audit logging for all requests.
	EnableAudit bool
}

// Router serves the admin endpoints:
//
//	GET /health               liveness plus keyspace and registry sizes
//	GET /metrics              Prometheus exposition
//	GET /subscribe/{channel}  WebSocket subscription to channel
type Router struct {
	handler http.Handler
	subs    *subscribeHandler
	cfg     RouterConfig
	started time.Time
}

// NewRouter creates the router with all routes and middleware.
func NewRouter(cfg RouterConfig) *Router {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metric.Global()
	}

	rt := &Router{
		cfg:     cfg,
		subs:    newSubscribeHandler(cfg.Registry, cfg.Logger, cfg.SendBuffer, cfg.WriteTimeout),
		started: time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", rt.handleHealth)
	mux.Handle("GET /metrics", cfg.Metrics.Handler())
	mux.Handle("GET /subscribe/{channel}", rt.subs)

	middlewares := []Middleware{RequestID()}
	if cfg.EnableAudit {
		middlewares = append(middlewares, Audit(cfg.Logger))
	}
	middlewares = append(middlewares, Recover(cfg.Logger))

	rt.handler = Chain(mux, middlewares...)
	return rt
}

// ServeHTTP implements http.Handler.
func (rt *Router) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rt.handler.ServeHTTP(w, r)
}

// CloseSubscribers disconnects every WebSocket subscriber.
func (rt *Router) CloseSubscribers() {
	rt.subs.closeAll()
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	Uptime        string `json:"uptime"`
	Keys          int    `json:"keys"`
	Connections   int    `json:"connections"`
	Channels      int    `json:"channels"`
	Subscriptions int    `json:"subscriptions"`
	WebSockets    int    `json:"websockets"`
	ShardKeys     []int  `json:"shard_keys,omitempty"`

	// Totals holds counter and gauge sums from the metrics registry.
	Totals map[string]float64 `json:"totals,omitempty"`
}

func (rt *Router) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := HealthResponse{
		Status:        "ok",
		Version:       buildinfo.Get().Version,
		Uptime:        time.Since(rt.started).Truncate(time.Second).String(),
		Channels:      rt.cfg.Registry.Channels(),
		Subscriptions: rt.cfg.Registry.Subscriptions(),
		WebSockets:    rt.subs.active(),
	}
	if rt.cfg.Stats != nil {
		st := rt.cfg.Stats()
		resp.Keys = st.Keys
		resp.Connections = st.Connections
		resp.ShardKeys = st.ShardKeys
	}
	if totals, err := rt.cfg.Metrics.Totals(); err == nil {
		resp.Totals = totals
	} else {
		rt.cfg.Logger.Warn("gather metrics for health", "error", err)
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
