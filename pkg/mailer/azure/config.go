package azure

import (
	"encoding/base64"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrymomot/maildispatch/pkg/mailer"
)

// DefaultAPIVersion is the ACS Email REST API version used when none is configured.
const DefaultAPIVersion = "2023-03-31"

const keyConnectionString = "AZURE_COMMUNICATION_CONNECTION_STRING"

// Config holds Azure Communication Services email configuration.
// Decoded from mailer.Config by FromConfig.
type Config struct {
	ConnectionString  string        `env:"AZURE_COMMUNICATION_CONNECTION_STRING,required"`
	SenderEmail       string        `env:"AZURE_SENDER_EMAIL,required"`
	APIVersion        string        `env:"AZURE_API_VERSION" envDefault:"2023-03-31"`
	WaitForCompletion bool          `env:"AZURE_WAIT_FOR_COMPLETION" envDefault:"false"`
	PollInterval      time.Duration `env:"AZURE_POLL_INTERVAL" envDefault:"1s"`
	FallbackSubject   string        `env:"EMAIL_DEFAULT_SUBJECT" envDefault:"Default subject"`
	Timeout           time.Duration `env:"EMAIL_SEND_TIMEOUT"`
}

// credentials are the parts of a connection string the client needs.
type credentials struct {
	endpoint *url.URL
	key      []byte
}

// parseConnectionString parses "endpoint=https://...;accesskey=<base64>".
// Keys are case-insensitive and may appear in any order.
func parseConnectionString(s string) (credentials, error) {
	var endpoint, accessKey string
	for _, part := range strings.Split(s, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch strings.ToLower(k) {
		case "endpoint":
			endpoint = v
		case "accesskey":
			accessKey = v
		}
	}

	if endpoint == "" || accessKey == "" {
		return credentials{}, mailer.InvalidKey(Name, keyConnectionString, "connection string must contain endpoint= and accesskey=")
	}

	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return credentials{}, mailer.InvalidKey(Name, keyConnectionString, "invalid endpoint")
	}
	u.Path = strings.TrimSuffix(u.Path, "/")

	key, err := base64.StdEncoding.DecodeString(accessKey)
	if err != nil {
		return credentials{}, mailer.InvalidKey(Name, keyConnectionString, "access key is not valid base64")
	}

	return credentials{endpoint: u, key: key}, nil
}
