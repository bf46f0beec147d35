package resend

import "time"

// Config holds Resend email provider configuration.
// Decoded from mailer.Config by FromConfig.
type Config struct {
	APIKey          string        `env:"EMAIL_RESEND_API_KEY,required"`
	SenderEmail     string        `env:"EMAIL_DEFAULT_FROM_EMAIL,required"`
	SenderName      string        `env:"EMAIL_DEFAULT_FROM_NAME"`
	BaseURL         string        `env:"EMAIL_RESEND_BASE_URL"` // Overrides https://api.resend.com/
	FallbackSubject string        `env:"EMAIL_DEFAULT_SUBJECT" envDefault:"Default subject"`
	Timeout         time.Duration `env:"EMAIL_SEND_TIMEOUT"`
}
