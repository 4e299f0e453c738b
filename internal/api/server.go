package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/searchqa/eval-engine/internal/catalog"
	"github.com/searchqa/eval-engine/internal/config"
	"github.com/searchqa/eval-engine/internal/evaluation"
	"github.com/searchqa/eval-engine/internal/health"
	"github.com/searchqa/eval-engine/internal/history"
	"github.com/searchqa/eval-engine/internal/storage"
)

// Server represents the HTTP API server
type Server struct {
	config       config.ServerConfig
	router       *chi.Mux
	catalog      *catalog.Store
	session      *catalog.Session
	orchestrator *evaluation.Orchestrator
	history      *history.Aggregator
	poller       *health.Poller
	store        storage.Store
	metrics      *prometheus.Registry
}

// NewServer creates a new API server. poller and metrics may be nil.
func NewServer(
	cfg config.ServerConfig,
	cat *catalog.Store,
	session *catalog.Session,
	orch *evaluation.Orchestrator,
	hist *history.Aggregator,
	poller *health.Poller,
	store storage.Store,
	metrics *prometheus.Registry,
) *Server {
	s := &Server{
		config:       cfg,
		catalog:      cat,
		session:      session,
		orchestrator: orch,
		history:      hist,
		poller:       poller,
		store:        store,
		metrics:      metrics,
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

// setupRouter configures all routes and middleware
func (s *Server) setupRouter() {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// Health and observability (outside versioned API)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/status", s.handleStatus)
	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/items", func(r chi.Router) {
			r.Get("/", s.handleListItems)
			r.Get("/next", s.handleNextItem)
			r.Get("/active", s.handleActiveItem)
			r.Post("/reset", s.handleResetItems)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetItem)
				r.Post("/claim", s.handleClaimItem)
				r.Post("/unclaim", s.handleUnclaimItem)
			})
		})

		r.Route("/evaluations", func(r chi.Router) {
			r.Post("/", s.handleEvaluate)
			r.Post("/batch", s.handleEvaluateBatch)
		})

		r.Route("/history", func(r chi.Router) {
			r.Get("/", s.handleGetHistory)
			r.Delete("/", s.handleClearHistory)
			r.Get("/stats", s.handleGetStats)
		})

		r.Get("/batches", s.handleGetBatches)
	})

	s.router = r
}

// loggingMiddleware logs HTTP requests using slog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
				"remote_addr", r.RemoteAddr,
			)
		}()

		next.ServeHTTP(ww, r)
	})
}
