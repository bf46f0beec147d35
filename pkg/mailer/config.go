package mailer

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// Shared configuration keys.
const (
	KeyProvider       = "EMAIL_PROVIDER"
	KeyTemplateDir    = "EMAIL_TEMPLATE_DIR"
	KeyTemplateLayout = "EMAIL_TEMPLATE_LAYOUT"
	KeyDefaultSubject = "EMAIL_DEFAULT_SUBJECT"
	KeyFromEmail      = "EMAIL_DEFAULT_FROM_EMAIL"
	KeyFromName       = "EMAIL_DEFAULT_FROM_NAME"
	KeySendTimeout    = "EMAIL_SEND_TIMEOUT"
)

const (
	// DefaultTemplateDir is used when EMAIL_TEMPLATE_DIR is not set.
	DefaultTemplateDir = "templates/emails"

	// DefaultSubject is used when neither the request nor the template has a subject.
	DefaultSubject = "Default subject"
)

// Config is the flat key/value configuration every provider reads from.
// Keys are provider-prefixed (AWS_*, AZURE_*, GCP_*, EMAIL_*).
type Config map[string]string

// Get returns the trimmed value for key, or "".
func (c Config) Get(key string) string {
	v, _ := c.Lookup(key)
	return v
}

// Lookup returns the trimmed value for key. Blank values count as absent.
func (c Config) Lookup(key string) (string, bool) {
	v, ok := c[key]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

// GetDefault returns the value for key or def when absent.
func (c Config) GetDefault(key, def string) string {
	if v, ok := c.Lookup(key); ok {
		return v
	}
	return def
}

// Decode binds the configuration onto a struct tagged for caarlos0/env.
// Fields tagged required or notEmpty that are absent produce a *ConfigError
// naming every missing key. The process environment is never consulted.
func (c Config) Decode(provider string, v any) error {
	environ := make(map[string]string, len(c))
	for k, val := range c {
		if val = strings.TrimSpace(val); val != "" {
			environ[k] = val
		}
	}

	err := env.ParseWithOptions(v, env.Options{Environment: environ})
	if err == nil {
		return nil
	}

	var agg env.AggregateError
	if !errors.As(err, &agg) {
		return fmt.Errorf("%w: %s: %v", ErrConfig, provider, err)
	}

	var missing []string
	for _, e := range agg.Errors {
		var notSet env.VarIsNotSetError
		var empty env.EmptyVarError
		switch {
		case errors.As(e, &notSet):
			missing = append(missing, notSet.Key)
		case errors.As(e, &empty):
			missing = append(missing, empty.Key)
		default:
			return fmt.Errorf("%w: %s: %v", ErrConfig, provider, e)
		}
	}
	if len(missing) == 0 {
		return fmt.Errorf("%w: %s: %v", ErrConfig, provider, err)
	}

	return MissingKeys(provider, missing...)
}
