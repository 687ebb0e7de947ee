// Package web provides the HTTP server and handlers for the catalog viewer.
package web

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/text/language"

	"github.com/JonMunkholm/catalog/internal/config"
	"github.com/JonMunkholm/catalog/internal/core"
	"github.com/JonMunkholm/catalog/internal/facet"
	"github.com/JonMunkholm/catalog/internal/metrics"
	webmw "github.com/JonMunkholm/catalog/internal/web/middleware"
)

const contentSecurityPolicy = "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https: http:; connect-src 'self'; font-src 'self'"

// Server is the HTTP server for the catalog.
type Server struct {
	service  *core.Service
	engine   *facet.Engine
	metrics  *metrics.Metrics
	cfg      *config.Config
	locale   language.Tag
	pageSize int
	router   *chi.Mux
	server   *http.Server
}

// NewServer creates a new Server instance. Background work owned by the
// server, such as rate limiter cleanup, stops when ctx is cancelled.
// m may be nil when metrics are disabled.
func NewServer(ctx context.Context, service *core.Service, cfg *config.Config, m *metrics.Metrics) *Server {
	locale := cfg.LocaleTag()
	s := &Server{
		service:  service,
		engine:   facet.NewEngine(service.Schema(), locale),
		metrics:  m,
		cfg:      cfg,
		locale:   locale,
		pageSize: cfg.Feed.PageSize,
		router:   chi.NewRouter(),
	}
	s.setupMiddleware(ctx)
	s.setupRoutes(ctx)
	return s
}

// setupMiddleware configures middleware for all routes.
func (s *Server) setupMiddleware(ctx context.Context) {
	s.router.Use(middleware.RequestID)
	s.router.Use(webmw.TrustedRealIP(s.cfg.Security.TrustedProxies))
	s.router.Use(webmw.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(s.metrics.Middleware)
	s.router.Use(middleware.Compress(5))

	// Security hardening
	s.router.Use(securityHeaders(s.cfg.Security.EnableCSP))

	if s.cfg.Rate.Enabled {
		limiter := newRateLimiter(ctx, s.cfg.Rate.RequestsPerMinute, time.Minute)
		s.router.Use(limiter.middleware)
	}
}

// setupRoutes configures all HTTP routes. The status stream is registered
// outside the request timeout since it stays open.
func (s *Server) setupRoutes(ctx context.Context) {
	s.router.Get("/healthz", s.handleHealth)
	s.router.Handle("/metrics", s.metrics.Handler())
	s.router.Get("/api/status/stream", s.handleStatusStream)

	s.router.Group(func(r chi.Router) {
		if s.cfg.Server.RequestTimeout > 0 {
			r.Use(middleware.Timeout(s.cfg.Server.RequestTimeout))
		}

		// Pages
		r.Get("/", s.handleCatalog)
		r.Get("/product/{partNumber}", s.handleProductPage)

		// API routes
		r.Route("/api", func(r chi.Router) {
			r.Get("/products", s.handleListProducts)
			r.Get("/products/{partNumber}", s.handleGetProduct)
			r.Get("/export", s.handleExport)
			r.Get("/status", s.handleStatus)

			refresh := http.HandlerFunc(s.handleRefresh)
			if s.cfg.Rate.Enabled {
				limiter := newRateLimiter(ctx, s.cfg.Rate.RefreshLimit, time.Minute)
				r.Method(http.MethodPost, "/refresh", limiter.middleware(refresh))
			} else {
				r.Method(http.MethodPost, "/refresh", refresh)
			}
		})
	})

	s.router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "page not found")
	})
}

// Start begins listening for HTTP requests.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout, // 0 keeps the status stream open
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	slog.Info("starting server", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
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
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			// Product images are hot-linked from the sheet, hence https: in img-src
			if enableCSP {
				h.Set("Content-Security-Policy", contentSecurityPolicy)
			}
			next.ServeHTTP(w, r)
		})
	}
}
