// Package resend sends email through the Resend HTTP API.
package resend

import (
	"context"
	"net/url"
	"strings"

	"github.com/resend/resend-go/v3"

	"github.com/dmitrymomot/maildispatch/pkg/mailer"
)

// Name is the registry name of this provider.
const Name = "resend"

// emailsAPI is the part of the Resend client the sender uses.
type emailsAPI interface {
	SendWithContext(ctx context.Context, params *resend.SendEmailRequest) (*resend.SendEmailResponse, error)
}

// Sender implements mailer.Provider using the Resend API.
type Sender struct {
	client   emailsAPI
	renderer *mailer.Renderer
	config   Config
}

// New creates a new Resend sender.
func New(cfg Config, renderer *mailer.Renderer) (*Sender, error) {
	if cfg.APIKey == "" {
		return nil, mailer.MissingKeys(Name, "EMAIL_RESEND_API_KEY")
	}
	if cfg.SenderEmail == "" {
		return nil, mailer.MissingKeys(Name, mailer.KeyFromEmail)
	}

	client := resend.NewClient(cfg.APIKey)
	if cfg.BaseURL != "" {
		base, err := url.Parse(cfg.BaseURL)
		if err != nil || base.Scheme == "" || base.Host == "" {
			return nil, mailer.InvalidKey(Name, "EMAIL_RESEND_BASE_URL", "invalid URL")
		}
		if !strings.HasSuffix(base.Path, "/") {
			base.Path += "/"
		}
		client.BaseURL = base
	}

	return newSender(cfg, renderer, client.Emails), nil
}

func newSender(cfg Config, renderer *mailer.Renderer, client emailsAPI) *Sender {
	return &Sender{
		client:   client,
		renderer: renderer,
		config:   cfg,
	}
}

// FromConfig is the mailer.Factory for Resend.
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
func (s *Sender) SendEmail(ctx context.Context, email *mailer.Email) (*mailer.Result, error) {
	if err := email.Validate(); err != nil {
		return nil, err
	}

	req := &resend.SendEmailRequest{
		From:    mailer.ResolveFrom(email.From, s.config.SenderEmail, s.config.SenderName),
		To:      email.To,
		Subject: email.Subject,
		Html:    email.HTML,
		Text:    mailer.TextBody(email),
		ReplyTo: email.ReplyTo,
		Cc:      email.CC,
		Bcc:     email.BCC,
		Headers: email.Headers,
	}

	if len(email.Attachments) > 0 {
		req.Attachments = convertAttachments(email.Attachments)
	}

	if len(email.Tags) > 0 {
		req.Tags = convertTags(email.Tags)
	}

	ctx, cancel := mailer.CallContext(ctx, s.config.Timeout)
	defer cancel()

	resp, err := s.client.SendWithContext(ctx, req)
	if err != nil {
		return nil, mailer.NewVendorError(Name, err)
	}

	return &mailer.Result{
		Provider:  Name,
		MessageID: resp.Id,
		Status:    mailer.StatusSent,
	}, nil
}

// SendTemplateEmail implements mailer.Provider.
func (s *Sender) SendTemplateEmail(ctx context.Context, params mailer.TemplateParams) (*mailer.Result, error) {
	return mailer.SendTemplate(ctx, s.renderer, s, params, s.config.FallbackSubject)
}

func convertAttachments(attachments []mailer.Attachment) []*resend.Attachment {
	result := make([]*resend.Attachment, len(attachments))
	for i, a := range attachments {
		result[i] = &resend.Attachment{
			Filename:    a.Filename,
			Content:     a.Content,
			ContentType: a.ContentType,
			ContentId:   a.ContentID,
		}
	}
	return result
}

func convertTags(tags mailer.Tags) []resend.Tag {
	result := make([]resend.Tag, 0, len(tags))
	for name, value := range tags {
		result = append(result, resend.Tag{
			Name:  name,
			Value: mailer.TagValue(value),
		})
	}
	return result
}
