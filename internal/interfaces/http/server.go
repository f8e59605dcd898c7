// Package http exposes the assembled report payload as a read-only JSON API.
// The narrative/chat collaborators and dashboards consume this surface; the
// engine itself stays free of transport concerns.
package http

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/revlens/revlens/internal/net/ratelimit"
	"github.com/revlens/revlens/internal/report"
)

// ReportProvider builds (or fetches) the payload for one date pair.
type ReportProvider interface {
	Report(ctx context.Context, today, baseline time.Time) (*report.Payload, error)
}

// ServerConfig holds server tuning.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	RateRPS      float64
	RateBurst    int
}

// DefaultServerConfig returns a local-only default.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:         "127.0.0.1",
		Port:         8080,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		RateRPS:      5,
		RateBurst:    10,
	}
}

// Server is the read-only report API server.
type Server struct {
	router   *mux.Router
	server   *http.Server
	config   ServerConfig
	provider ReportProvider
	metrics  *MetricsRegistry
	limiter  *ratelimit.Limiter
}

// NewServer wires routes, middleware and metrics around a report provider.
func NewServer(config ServerConfig, provider ReportProvider) *Server {
	s := &Server{
		router:   mux.NewRouter(),
		config:   config,
		provider: provider,
		metrics:  NewMetricsRegistry(),
		limiter:  ratelimit.NewLimiter(config.RateRPS, config.RateBurst),
	}
	s.setupRoutes()

	addr := fmt.Sprintf("%s:%d", config.Host, config.Port)
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.requestIDMiddleware)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(s.rateLimitMiddleware)

	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	s.router.Handle("/metrics", s.metrics.Handler()).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/report", s.handleReport).Methods(http.MethodGet)
	s.router.HandleFunc("/v1/report/stream", s.handleReportStream).Methods(http.MethodGet)
	s.router.NotFoundHandler = http.HandlerFunc(s.handleNotFound)
}

// Router exposes the handler tree (used by tests).
func (s *Server) Router() http.Handler { return s.router }

// Metrics exposes the server's metric registry so the application layer can
// record cache activity on the same /metrics surface.
func (s *Server) Metrics() *MetricsRegistry { return s.metrics }

type ctxKey string

const requestIDKey ctxKey = "request_id"

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.New().String()[:8]
		ctx := context.WithValue(r.Context(), requestIDKey, requestID)
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapper, r)
		elapsed := time.Since(start)

		s.metrics.HTTPDuration.
			WithLabelValues(r.URL.Path, strconv.Itoa(wrapper.status)).
			Observe(elapsed.Seconds())

		requestID, _ := r.Context().Value(requestIDKey).(string)
		log.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", wrapper.status).
			Dur("elapsed", elapsed).
			Str("remote", r.RemoteAddr).
			Msg("http request")
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			host = r.RemoteAddr
		}
		if !s.limiter.Allow(host) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("report API listening")
	return s.server.ListenAndServe()
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("report API shutting down")
	return s.server.Shutdown(ctx)
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
