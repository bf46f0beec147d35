package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/maildispatch/pkg/health"
	"github.com/dmitrymomot/maildispatch/pkg/logger"
	"github.com/dmitrymomot/maildispatch/pkg/mailer"
)

const (
	DefaultAddr        = ":8080"
	DefaultMaxBodySize = 10 << 20 // 10 MiB, attachments included

	defaultReadTimeout       = 15 * time.Second
	defaultWriteTimeout      = 60 * time.Second
	defaultIdleTimeout       = 60 * time.Second
	defaultReadHeaderTimeout = 5 * time.Second
	defaultShutdownTimeout   = 30 * time.Second
)

type config struct {
	logger        *slog.Logger
	checks        health.Checks
	healthTimeout time.Duration
	maxBodySize   int64
}

// Option configures the router.
type Option func(*config)

// WithLogger sets the request and panic logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHealthChecks sets the checks run by /health/ready.
func WithHealthChecks(checks health.Checks) Option {
	return func(c *config) {
		c.checks = checks
	}
}

// WithHealthTimeout bounds the readiness checks.
func WithHealthTimeout(d time.Duration) Option {
	return func(c *config) {
		c.healthTimeout = d
	}
}

// WithMaxBodySize limits request bodies. Default: 10 MiB.
func WithMaxBodySize(n int64) Option {
	return func(c *config) {
		if n > 0 {
			c.maxBodySize = n
		}
	}
}

// NewRouter exposes p over HTTP:
//
//	POST /v1/emails           send a prepared email
//	POST /v1/emails/template  render a template and send it
//	GET  /health/live         liveness
//	GET  /health/ready        readiness, runs the configured checks
func NewRouter(p mailer.Provider, opts ...Option) http.Handler {
	cfg := &config{
		logger:      logger.NewNope(),
		maxBodySize: DefaultMaxBodySize,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	h := &handler{provider: p, maxBodySize: cfg.maxBodySize}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestID)
	r.Use(requestLogger(cfg.logger))
	r.Use(recoverer(cfg.logger))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, &HTTPError{Code: http.StatusNotFound, ErrorCode: "not_found", Message: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, &HTTPError{Code: http.StatusMethodNotAllowed, ErrorCode: "method_not_allowed", Message: "method not allowed"})
	})

	r.Route("/v1/emails", func(r chi.Router) {
		r.Use(middleware.AllowContentType("application/json"))
		r.Post("/", h.sendEmail)
		r.Post("/template", h.sendTemplate)
	})

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", health.LivenessHandler())
		r.Get("/ready", health.ReadinessHandler(cfg.checks,
			health.WithLogger(cfg.logger),
			health.WithTimeout(cfg.healthTimeout),
		))
	})

	return r
}

// Serve runs handler on addr until ctx is canceled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler, log *slog.Logger) error {
	if addr == "" {
		addr = DefaultAddr
	}
	if log == nil {
		log = logger.NewNope()
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	return serve(ctx, ln, handler, log)
}

func serve(ctx context.Context, ln net.Listener, handler http.Handler, log *slog.Logger) error {
	server := &http.Server{
		Handler:           handler,
		ReadTimeout:       defaultReadTimeout,
		WriteTimeout:      defaultWriteTimeout,
		IdleTimeout:       defaultIdleTimeout,
		ReadHeaderTimeout: defaultReadHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info("server starting", slog.String("address", ln.Addr().String()))
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		log.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultShutdownTimeout)
		defer cancel()

		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("shutdown completed")
	return nil
}
