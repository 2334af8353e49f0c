// Package server hosts the generated catalog site for local preview, with a
// health endpoint and optional Prometheus metrics on the same listener.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"fwcatalog/internal/config"
	"fwcatalog/internal/version"
)

var httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "fwcatalog_http_requests_total",
	Help: "HTTP requests served by the preview server.",
}, []string{"path", "status"})

// Server serves a generated site directory over HTTP.
type Server struct {
	httpServer *http.Server
	dir        string
	started    time.Time
}

// RouteOption configures optional route behavior.
type RouteOption func(*mux.Router)

// WithOTelMiddleware adds OpenTelemetry HTTP instrumentation middleware.
func WithOTelMiddleware(serviceName string) RouteOption {
	return func(r *mux.Router) {
		r.Use(otelmux.Middleware(serviceName,
			otelmux.WithFilter(func(r *http.Request) bool {
				return r.URL.Path != "/healthz" && r.URL.Path != "/metrics"
			}),
		))
	}
}

// New builds a preview server for the site in cfg.Dir. When metrics are
// enabled the Prometheus handler is mounted on the same router.
func New(cfg config.ServeConfig, metrics config.MetricsConfig, opts ...RouteOption) *Server {
	router := mux.NewRouter()
	for _, opt := range opts {
		opt(router)
	}

	s := &Server{
		dir:     cfg.Dir,
		started: time.Now(),
	}

	router.HandleFunc("/healthz", s.handleHealth).Methods("GET")
	if metrics.Enabled {
		router.Handle(metrics.Path, promhttp.Handler()).Methods("GET")
	}
	router.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.Dir))).Methods("GET", "HEAD")

	router.Use(loggingMiddleware)
	if metrics.Enabled {
		router.Use(metricsMiddleware)
	}
	router.Use(recoveryMiddleware)

	s.httpServer = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Start begins serving in a blocking call. Returns http.ErrServerClosed on
// graceful shutdown.
func (s *Server) Start() error {
	slog.Info("Starting preview server", "addr", s.httpServer.Addr, "dir", s.dir)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// Handler exposes the configured router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

type healthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Uptime  string `json:"uptime"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(healthResponse{
		Status:  "ok",
		Version: version.GetInfo().Version,
		Uptime:  time.Since(s.started).Round(time.Second).String(),
	})
}

// loggingMiddleware logs HTTP requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slog.Info("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"remote_addr", r.RemoteAddr)
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// metricsMiddleware counts requests by path and status
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		httpRequests.WithLabelValues(r.URL.Path, strconv.Itoa(rec.status)).Inc()
	})
}

// recoveryMiddleware handles panics
func recoveryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				slog.Error("Panic recovered", "error", err, "path", r.URL.Path)
				http.Error(w, "internal server error", http.StatusInternalServerError)
			}
		}()
		next.ServeHTTP(w, r)
	})
}
