package mailer

import "context"

// Sender defines the minimal interface that email providers must implement.
// It accepts a fully-prepared Email and hands it to the vendor.
type Sender interface {
	// SendEmail validates the email and delivers it in a single vendor call.
	SendEmail(ctx context.Context, email *Email) (*Result, error)
}

// Provider is the capability contract every backend satisfies.
type Provider interface {
	Sender

	// SendTemplateEmail renders params through the provider's Renderer and
	// passes the HTML to SendEmail. Template errors are returned unchanged
	// and no vendor call is made.
	SendTemplateEmail(ctx context.Context, params TemplateParams) (*Result, error)
}

// Factory builds a Provider from the shared renderer and the flat configuration.
// It must fail with a *ConfigError before creating any vendor client when a
// required key is missing.
type Factory func(renderer *Renderer, cfg Config) (Provider, error)

// HealthChecker is implemented by providers that can verify vendor reachability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}
