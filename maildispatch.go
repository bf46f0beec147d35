package maildispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/dmitrymomot/maildispatch/pkg/health"
	"github.com/dmitrymomot/maildispatch/pkg/logger"
	"github.com/dmitrymomot/maildispatch/pkg/mailer"
)

// Service is the single entry point for sending email.
// It delegates to the provider selected by EMAIL_PROVIDER and is safe for
// concurrent use.
type Service struct {
	name     string
	provider mailer.Provider
	renderer *mailer.Renderer
	logger   *slog.Logger
}

// New builds a Service from cfg.
//
// It fails with a *mailer.ConfigError when EMAIL_PROVIDER or a provider key is
// missing, and with mailer.ErrUnknownProvider when the name is not registered.
// The provider factory is not called for unknown names.
func New(cfg mailer.Config, opts ...Option) (*Service, error) {
	o := &options{logger: logger.NewNope()}
	for _, opt := range opts {
		opt(o)
	}
	if o.registry == nil {
		o.registry = NewRegistry()
	}

	name, ok := cfg.Lookup(mailer.KeyProvider)
	if !ok {
		return nil, mailer.MissingKeys("", mailer.KeyProvider)
	}
	name = strings.ToLower(name)

	factory, ok := o.registry.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %s)",
			mailer.ErrUnknownProvider, name, strings.Join(o.registry.Names(), ", "))
	}

	renderer := newRenderer(cfg, o)

	provider, err := factory(renderer, cfg)
	if err != nil {
		return nil, err
	}
	if provider == nil {
		return nil, fmt.Errorf("%w: %s: factory returned no provider", mailer.ErrConfig, name)
	}

	return &Service{
		name:     name,
		provider: provider,
		renderer: renderer,
		logger:   o.logger.With(slog.String("provider", name)),
	}, nil
}

func newRenderer(cfg mailer.Config, o *options) *mailer.Renderer {
	rc := mailer.RendererConfig{DefaultLayout: cfg.Get(mailer.KeyTemplateLayout)}
	if o.templateFS != nil {
		return mailer.NewRendererWithConfig(o.templateFS, rc)
	}
	return mailer.NewDirRenderer(cfg.GetDefault(mailer.KeyTemplateDir, mailer.DefaultTemplateDir), rc)
}

// SendEmail sends a fully prepared email through the configured provider.
func (s *Service) SendEmail(ctx context.Context, email *mailer.Email) (*mailer.Result, error) {
	start := time.Now()

	res, err := s.checkResult(s.provider.SendEmail(ctx, email))
	s.logOutcome(ctx, "send_email", start, res, err)
	return res, err
}

// SendTemplateEmail renders a template and sends the result through the
// configured provider. Template errors are returned unchanged.
func (s *Service) SendTemplateEmail(ctx context.Context, params mailer.TemplateParams) (*mailer.Result, error) {
	start := time.Now()

	res, err := s.checkResult(s.provider.SendTemplateEmail(ctx, params))
	s.logOutcome(ctx, "send_template_email", start, res, err, slog.String("template", params.Template))
	return res, err
}

// ProviderName returns the lower-cased registry name of the active provider.
func (s *Service) ProviderName() string { return s.name }

// Provider returns the active provider.
func (s *Service) Provider() mailer.Provider { return s.provider }

// Renderer returns the renderer shared with the provider.
func (s *Service) Renderer() *mailer.Renderer { return s.renderer }

// HealthChecks returns a check for the active provider when it supports one.
func (s *Service) HealthChecks() health.Checks {
	hc, ok := s.provider.(mailer.HealthChecker)
	if !ok {
		return health.Checks{}
	}
	return health.Checks{s.name: hc.HealthCheck}
}

// Close releases provider resources. It is a no-op for stateless providers.
func (s *Service) Close() error {
	if c, ok := s.provider.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// checkResult turns a nil result without an error into a send failure.
func (s *Service) checkResult(res *mailer.Result, err error) (*mailer.Result, error) {
	if err == nil && res == nil {
		return nil, fmt.Errorf("%w: %s: provider returned no result", mailer.ErrSendFailed, s.name)
	}
	return res, err
}

func (s *Service) logOutcome(ctx context.Context, op string, start time.Time, res *mailer.Result, err error, attrs ...slog.Attr) {
	attrs = append(attrs,
		slog.String("operation", op),
		slog.Duration("duration", time.Since(start)),
	)

	if err != nil {
		level := slog.LevelError
		if errors.Is(err, mailer.ErrValidation) || errors.Is(err, mailer.ErrTemplateNotFound) {
			level = slog.LevelWarn
		}
		attrs = append(attrs,
			slog.String("error", err.Error()),
			slog.Bool("temporary", mailer.IsTemporary(err)),
		)
		s.logger.LogAttrs(ctx, level, "email dispatch failed", attrs...)
		return
	}

	attrs = append(attrs,
		slog.String("message_id", res.MessageID),
		slog.String("status", string(res.Status)),
	)
	s.logger.LogAttrs(ctx, slog.LevelInfo, "email dispatched", attrs...)
}
