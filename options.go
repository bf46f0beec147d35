package maildispatch

import (
	"io/fs"
	"log/slog"

	"github.com/dmitrymomot/maildispatch/pkg/mailer"
)

// Option configures the Service.
type Option func(*options)

type options struct {
	registry   *mailer.Registry
	logger     *slog.Logger
	templateFS fs.FS
}

// WithRegistry sets the provider registry.
// Defaults to a fresh NewRegistry().
func WithRegistry(r *mailer.Registry) Option {
	return func(o *options) {
		if r != nil {
			o.registry = r
		}
	}
}

// WithLogger sets the logger for send outcomes.
// If nil, logging is disabled.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithTemplateFS reads templates from fsys instead of EMAIL_TEMPLATE_DIR on disk.
// Paths are relative to the root of fsys.
func WithTemplateFS(fsys fs.FS) Option {
	return func(o *options) {
		if fsys != nil {
			o.templateFS = fsys
		}
	}
}
