package ses

import (
	"time"

	"github.com/dmitrymomot/maildispatch/pkg/mailer"
)

// DefaultRegion is used when AWS_REGION is not set.
const DefaultRegion = "us-east-1"

// Config holds AWS SES provider configuration.
// Decoded from mailer.Config by FromConfig.
//
// Static credentials are optional: when both AccessKeyID and SecretAccessKey
// are empty the default AWS credential chain is used.
type Config struct {
	Region           string        `env:"AWS_REGION" envDefault:"us-east-1"`
	SenderEmail      string        `env:"AWS_SENDER_EMAIL,required"`
	SenderName       string        `env:"EMAIL_DEFAULT_FROM_NAME"`
	AccessKeyID      string        `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey  string        `env:"AWS_SECRET_ACCESS_KEY"`
	SessionToken     string        `env:"AWS_SESSION_TOKEN"`
	ConfigurationSet string        `env:"AWS_SES_CONFIGURATION_SET"`
	EndpointURL      string        `env:"AWS_ENDPOINT_URL"` // Custom endpoint, e.g. a local SES emulator
	FallbackSubject  string        `env:"EMAIL_DEFAULT_SUBJECT" envDefault:"Default subject"`
	Timeout          time.Duration `env:"EMAIL_SEND_TIMEOUT"`
}

// validate checks the constraints struct tags cannot express.
func (c Config) validate() error {
	var missing []string
	if c.SenderEmail == "" {
		missing = append(missing, "AWS_SENDER_EMAIL")
	}
	switch {
	case c.AccessKeyID != "" && c.SecretAccessKey == "":
		missing = append(missing, "AWS_SECRET_ACCESS_KEY")
	case c.AccessKeyID == "" && c.SecretAccessKey != "":
		missing = append(missing, "AWS_ACCESS_KEY_ID")
	}
	if len(missing) > 0 {
		return mailer.MissingKeys(Name, missing...)
	}
	return nil
}

func (c Config) staticCredentials() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}
