// Package intake exposes the HTTP surface through which relay jobs enter
// the system. Admission is the only write path into the store that isn't
// internal to one of the long-lived loops.
package intake

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/speedrun-hq/relay-orchestrator/pkg/logger"
	"github.com/speedrun-hq/relay-orchestrator/pkg/store"
)

// Server is the intake API: admission, status lookup, and health.
type Server struct {
	store         *store.Store
	logger        logger.Logger
	sourceDomains map[int]bool
	throttle      *perIPThrottle
	httpServer    *http.Server
}

// Config bundles the parameters needed to construct a Server.
type Config struct {
	Port                 string
	SourceDomains        map[int]bool
	RateLimitBurst       float64
	RateLimitRefillPerIP float64
}

// New builds the intake API server.
func New(s *store.Store, cfg Config, logg logger.Logger) *Server {
	if logg == nil {
		logg = &logger.EmptyLogger{}
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 10
	}
	if cfg.RateLimitRefillPerIP == 0 {
		cfg.RateLimitRefillPerIP = 2
	}

	srv := &Server{
		store:         s,
		logger:        logg,
		sourceDomains: cfg.SourceDomains,
		throttle:      newPerIPThrottle(cfg.RateLimitBurst, cfg.RateLimitRefillPerIP),
	}

	router := srv.router()
	srv.httpServer = &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}
	return srv
}

func (s *Server) router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.recoveredPanicLogger)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler)

	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.throttle.middleware())
		r.Get("/health", s.health)
		r.Route("/relay", func(r chi.Router) {
			r.Post("/", s.createJob)
			r.Get("/{txHash}", s.getJob)
		})
	})

	return r
}

// recoveredPanicLogger sits inside chi's Recoverer to make panics visible in
// the component-tagged log stream instead of only chi's default stderr dump.
func (s *Server) recoveredPanicLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.ErrorWithComponent(logger.Intake, "panic recovered: %v", rec)
				panic(rec)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// Run starts the HTTP server and blocks until ctx is cancelled, then shuts
// down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.InfoWithComponent(logger.Intake, "intake API listening on %s", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.InfoWithComponent(logger.Intake, "intake API shutting down")
		return s.httpServer.Shutdown(context.Background())
	case err := <-errCh:
		return fmt.Errorf("intake: serve: %w", err)
	}
}
