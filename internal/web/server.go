// Package web provides the HTTP server: the dashboard pages, the JSON API and
// the middleware stack in front of them.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/JonMunkholm/nexus/internal/analyst"
	"github.com/JonMunkholm/nexus/internal/config"
	"github.com/JonMunkholm/nexus/internal/history"
	"github.com/JonMunkholm/nexus/internal/ingest"
	"github.com/JonMunkholm/nexus/internal/session"
	"github.com/JonMunkholm/nexus/internal/web/middleware"
)

// errRateLimited is rendered when a client exceeds its request allowance.
var errRateLimited = errors.New("rate limit exceeded")

// Deps are the services the server is built from.
type Deps struct {
	Config   *config.Config
	Ingester *ingest.Ingester
	Limiter  *ingest.Limiter
	Sessions *session.Store
	History  history.Recorder
	Analyst  *analyst.Analyst
	Logger   *slog.Logger
}

// Server is the HTTP server.
type Server struct {
	cfg      *config.Config
	ingester *ingest.Ingester
	limiter  *ingest.Limiter
	sessions *session.Store
	history  history.Recorder
	analyst  *analyst.Analyst
	logger   *slog.Logger

	router       *chi.Mux
	server       *http.Server
	rateLimiters []*middleware.RateLimiter
}

// NewServer creates a Server with its routes registered.
func NewServer(d Deps) *Server {
	s := &Server{
		cfg:      d.Config,
		ingester: d.Ingester,
		limiter:  d.Limiter,
		sessions: d.Sessions,
		history:  d.History,
		analyst:  d.Analyst,
		logger:   d.Logger,
		router:   chi.NewRouter(),
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.limiter == nil {
		s.limiter = ingest.NewLimiter(s.cfg.Upload.MaxConcurrent, s.cfg.Upload.MaxWaitTime)
	}
	if s.history == nil {
		s.history = history.NewMemoryStore(history.DefaultMemoryCapacity)
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware() {
	s.router.Use(chimw.RequestID)
	s.router.Use(middleware.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(middleware.Logger)
	s.router.Use(chimw.Recoverer)
	s.router.Use(chimw.Compress(5))
	s.router.Use(chimw.Timeout(s.cfg.Server.RequestTimeout))
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		s.router.Use(s.rateLimit(s.cfg.Rate.RequestsPerMinute))
	}
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	uploads := s.rateLimit(s.cfg.Rate.UploadLimit)
	asks := s.rateLimit(s.cfg.Rate.AskLimit)

	s.router.Get("/healthz", s.handleHealth)

	// Pages
	s.router.Group(func(r chi.Router) {
		r.Use(s.withSession)

		r.Get("/", s.handleDashboard)
		r.With(uploads).Post("/upload", s.handleUpload)
		r.With(uploads).Post("/select", s.handleSelect)
		r.With(asks).Post("/ask", s.handleAsk)
		r.Post("/clear", s.handleClear)
	})

	// API routes
	s.router.Route("/api", func(r chi.Router) {
		if len(s.cfg.Security.CORSOrigins) > 0 {
			r.Use(cors.Handler(cors.Options{
				AllowedOrigins:   s.cfg.Security.CORSOrigins,
				AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
				AllowedHeaders:   []string{"Accept", "Content-Type", middleware.APIKeyHeader, sessionHeader},
				ExposedHeaders:   []string{sessionHeader},
				AllowCredentials: true,
				MaxAge:           300,
			}))
		}
		r.Use(middleware.APIKeyAuth(&s.cfg.Security))
		r.Use(s.withSession)

		r.Get("/status", s.handleStatus)

		// Active table
		r.Get("/table", s.handleGetTable)
		r.Get("/table/rows", s.handleGetRows)
		r.Delete("/table", s.handleDeleteTable)

		// Ingestion
		r.With(uploads).Post("/ingest", s.handleAPIIngest)
		r.With(uploads).Post("/select", s.handleAPISelect)
		r.Get("/history", s.handleHistory)

		// Questions
		r.With(asks).Post("/ask", s.handleAPIAsk)
		r.Get("/messages", s.handleMessages)
		r.Get("/examples", s.handleExamples)

		// Export
		r.Get("/export.csv", s.handleExportCSV)
		r.Get("/export.parquet", s.handleExportParquet)
	})
}

// rateLimit returns a per-IP limiter middleware, or a pass-through when rate
// limiting is disabled.
func (s *Server) rateLimit(perMinute int) func(http.Handler) http.Handler {
	if !s.cfg.Rate.Enabled {
		return func(next http.Handler) http.Handler { return next }
	}
	rl := middleware.NewRateLimiter(perMinute, func(w http.ResponseWriter, r *http.Request) {
		s.respondError(w, r, errRateLimited, http.StatusTooManyRequests)
	})
	s.rateLimiters = append(s.rateLimiters, rl)
	return rl.Handler
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	s.logger.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	for _, rl := range s.rateLimiters {
		rl.Close()
	}
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// Router returns the underlying chi router for testing.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// securityHeaders adds security headers to all responses.
func securityHeaders(enableCSP bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			// Pages carry their stylesheet inline and use no scripts.
			if enableCSP {
				w.Header().Set("Content-Security-Policy",
					"default-src 'self'; script-src 'none'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; form-action 'self'; frame-ancestors 'none'")
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// writeJSON encodes v as JSON with the given status.
// Encoding errors are logged since headers are already sent.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}
