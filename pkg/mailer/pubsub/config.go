package pubsub

import "time"

// DefaultTopic is the topic used when GCP_PUBSUB_EMAIL_TOPIC is not set.
const DefaultTopic = "email-notifications"

// Config holds Google Cloud Pub/Sub provider configuration.
// Decoded from mailer.Config by FromConfig.
//
// When CredentialsFile is empty, Application Default Credentials are used.
type Config struct {
	ProjectID       string        `env:"GCP_PROJECT_ID,required"`
	SenderEmail     string        `env:"EMAIL_DEFAULT_FROM_EMAIL,required"`
	SenderName      string        `env:"EMAIL_DEFAULT_FROM_NAME"`
	Topic           string        `env:"GCP_PUBSUB_EMAIL_TOPIC" envDefault:"email-notifications"`
	CredentialsFile string        `env:"GCP_SERVICE_ACCOUNT_JSON"` // Path to a service account key file
	FallbackSubject string        `env:"EMAIL_DEFAULT_SUBJECT" envDefault:"Default subject"`
	Timeout         time.Duration `env:"EMAIL_SEND_TIMEOUT"`
}
