// Package azure sends email through the Azure Communication Services Email relay.
//
// The relay is asynchronous: a send is accepted with an operation id and
// delivered later. By default SendEmail returns as soon as the relay accepts
// the message; with WaitForCompletion it polls the operation until it settles.
package azure

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrymomot/maildispatch/pkg/mailer"
)

// Name is the registry name of this provider.
const Name = "azure"

// Sender implements mailer.Provider using Azure Communication Services.
type Sender struct {
	client   *client
	renderer *mailer.Renderer
	config   Config
}

// Option configures the Sender.
type Option func(*Sender)

// WithHTTPClient sets the HTTP client used for relay calls.
// A nil client keeps http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(s *Sender) {
		if c != nil {
			s.client.http = c
		}
	}
}

// New creates a new Azure sender from cfg.
func New(cfg Config, renderer *mailer.Renderer, opts ...Option) (*Sender, error) {
	var missing []string
	if cfg.ConnectionString == "" {
		missing = append(missing, keyConnectionString)
	}
	if cfg.SenderEmail == "" {
		missing = append(missing, "AZURE_SENDER_EMAIL")
	}
	if len(missing) > 0 {
		return nil, mailer.MissingKeys(Name, missing...)
	}

	creds, err := parseConnectionString(cfg.ConnectionString)
	if err != nil {
		return nil, err
	}
	if cfg.APIVersion == "" {
		cfg.APIVersion = DefaultAPIVersion
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}

	s := &Sender{
		client:   newClient(nil, creds, cfg.APIVersion),
		renderer: renderer,
		config:   cfg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// FromConfig is the mailer.Factory for Azure.
func FromConfig(renderer *mailer.Renderer, cfg mailer.Config) (mailer.Provider, error) {
	var c Config
	if err := cfg.Decode(Name, &c); err != nil {
		return nil, err
	}
	s, err := New(c, renderer)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SendEmail implements mailer.Sender.
// The result id is the relay operation id. EMAIL_SEND_TIMEOUT bounds the whole
// call, polling included.
func (s *Sender) SendEmail(ctx context.Context, email *mailer.Email) (*mailer.Result, error) {
	if err := email.Validate(); err != nil {
		return nil, err
	}

	ctx, cancel := mailer.CallContext(ctx, s.config.Timeout)
	defer cancel()

	operationID, err := s.client.send(ctx, s.message(email))
	if err != nil {
		return nil, err
	}

	if s.config.WaitForCompletion {
		if err := s.waitForCompletion(ctx, operationID); err != nil {
			return nil, err
		}
	}

	return &mailer.Result{
		Provider:  Name,
		MessageID: operationID,
		Status:    mailer.StatusSent,
	}, nil
}

// SendTemplateEmail implements mailer.Provider.
func (s *Sender) SendTemplateEmail(ctx context.Context, params mailer.TemplateParams) (*mailer.Result, error) {
	return mailer.SendTemplate(ctx, s.renderer, s, params, s.config.FallbackSubject)
}

func (s *Sender) waitForCompletion(ctx context.Context, operationID string) error {
	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return mailer.NewVendorError(Name, ctx.Err())
		case <-ticker.C:
		}

		op, err := s.client.operation(ctx, operationID)
		if err != nil {
			return err
		}

		switch op.Status {
		case statusSucceeded:
			return nil
		case statusFailed, statusCanceled:
			ve := mailer.NewVendorError(Name, fmt.Errorf("operation %s %s", operationID, op.Status))
			if op.Error != nil {
				ve.Code = op.Error.Code
				ve.Err = errors.New(op.Error.Message)
			}
			return ve
		case statusNotStarted, statusRunning:
		}
	}
}

func (s *Sender) message(email *mailer.Email) *emailMessage {
	// The relay only accepts a bare sender address; display names are dropped.
	from := s.config.SenderEmail
	if email.From != "" {
		from = mailer.AddressOnly(email.From)
	}

	msg := &emailMessage{
		SenderAddress: from,
		Content: emailContent{
			Subject:   email.Subject,
			HTML:      email.HTML,
			PlainText: mailer.TextBody(email),
		},
		Recipients: emailRecipients{
			To:  addresses(email.To),
			CC:  addresses(email.CC),
			BCC: addresses(email.BCC),
		},
		Headers: email.Headers,
	}
	if email.ReplyTo != "" {
		msg.ReplyTo = addresses([]string{email.ReplyTo})
	}

	for _, a := range email.Attachments {
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		msg.Attachments = append(msg.Attachments, emailAttachment{
			Name:            a.Filename,
			ContentType:     contentType,
			ContentInBase64: base64.StdEncoding.EncodeToString(a.Content),
			ContentID:       a.ContentID,
		})
	}

	return msg
}

func addresses(list []string) []emailAddress {
	if len(list) == 0 {
		return nil
	}
	result := make([]emailAddress, len(list))
	for i, addr := range list {
		name, email := mailer.SplitAddress(addr)
		result[i] = emailAddress{Address: email, DisplayName: name}
	}
	return result
}
