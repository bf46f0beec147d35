package maildispatch

import (
	"github.com/dmitrymomot/maildispatch/pkg/mailer"
	"github.com/dmitrymomot/maildispatch/pkg/mailer/azure"
	"github.com/dmitrymomot/maildispatch/pkg/mailer/pubsub"
	"github.com/dmitrymomot/maildispatch/pkg/mailer/resend"
	"github.com/dmitrymomot/maildispatch/pkg/mailer/ses"
)

// Built-in provider names.
const (
	ProviderResend = resend.Name
	ProviderAWS    = ses.Name
	ProviderAzure  = azure.Name
	ProviderGCP    = pubsub.Name
)

// NewRegistry returns a registry seeded with the built-in providers.
// Each call returns an independent registry.
func NewRegistry() *mailer.Registry {
	r := mailer.NewRegistry()
	r.Register(ProviderResend, resend.FromConfig)
	r.Register(ProviderAWS, ses.FromConfig)
	r.Register(ProviderAzure, azure.FromConfig)
	r.Register(ProviderGCP, pubsub.FromConfig)
	return r
}
