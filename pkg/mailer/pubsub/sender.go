// Package pubsub hands email off to Google Cloud Pub/Sub for asynchronous delivery.
//
// A successful send only means the message reached the topic. The result has
// status published and a downstream consumer is responsible for delivery.
package pubsub

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"cloud.google.com/go/pubsub"
	"github.com/google/uuid"

	"github.com/dmitrymomot/maildispatch/pkg/mailer"
)

// Name is the registry name of this provider.
const Name = "gcp"

// Message attribute keys.
const (
	AttrDispatchID  = "dispatch_id"
	AttrContentType = "content_type"
	AttrTagPrefix   = "tag_"
)

// Payload is the JSON document published for each email.
type Payload struct {
	From        string              `json:"from"`
	To          []string            `json:"to"`
	CC          []string            `json:"cc,omitempty"`
	BCC         []string            `json:"bcc,omitempty"`
	ReplyTo     string              `json:"reply_to,omitempty"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"html_content"`
	TextContent string              `json:"text_content,omitempty"`
	Headers     map[string]string   `json:"headers,omitempty"`
	Attachments []PayloadAttachment `json:"attachments,omitempty"`
}

// PayloadAttachment is an attachment inside Payload. Content is base64 encoded.
type PayloadAttachment struct {
	Filename    string `json:"filename"`
	Content     string `json:"content"`
	ContentType string `json:"content_type"`
	IsBase64    bool   `json:"is_base64"`
}

// Sender implements mailer.Provider by publishing to a Pub/Sub topic.
type Sender struct {
	topic    publisher
	renderer *mailer.Renderer
	config   Config
	newID    func() string
}

// New creates a Pub/Sub sender and its client.
// Callers must Close the sender to flush and release the client.
func New(ctx context.Context, cfg Config, renderer *mailer.Renderer) (*Sender, error) {
	var missing []string
	if cfg.ProjectID == "" {
		missing = append(missing, "GCP_PROJECT_ID")
	}
	if cfg.SenderEmail == "" {
		missing = append(missing, mailer.KeyFromEmail)
	}
	if len(missing) > 0 {
		return nil, mailer.MissingKeys(Name, missing...)
	}
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}

	topic, err := newTopicPublisher(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return newSender(cfg, renderer, topic), nil
}

func newSender(cfg Config, renderer *mailer.Renderer, topic publisher) *Sender {
	return &Sender{
		topic:    topic,
		renderer: renderer,
		config:   cfg,
		newID:    uuid.NewString,
	}
}

// FromConfig is the mailer.Factory for Pub/Sub.
func FromConfig(renderer *mailer.Renderer, cfg mailer.Config) (mailer.Provider, error) {
	var c Config
	if err := cfg.Decode(Name, &c); err != nil {
		return nil, err
	}
	s, err := New(context.Background(), c, renderer)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// SendEmail implements mailer.Sender.
// The returned MessageID is the Pub/Sub server id and the status is published.
func (s *Sender) SendEmail(ctx context.Context, email *mailer.Email) (*mailer.Result, error) {
	if err := email.Validate(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(s.payload(email))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: encode payload: %v", mailer.ErrSendFailed, Name, err)
	}

	attrs := map[string]string{
		AttrDispatchID:  s.newID(),
		AttrContentType: "application/json",
	}
	for name, value := range email.Tags {
		attrs[AttrTagPrefix+name] = mailer.TagValue(value)
	}

	ctx, cancel := mailer.CallContext(ctx, s.config.Timeout)
	defer cancel()

	serverID, err := s.topic.Publish(ctx, &pubsub.Message{Data: data, Attributes: attrs})
	if err != nil {
		return nil, wrapPublishError(err)
	}

	return &mailer.Result{
		Provider:  Name,
		MessageID: serverID,
		Status:    mailer.StatusPublished,
	}, nil
}

// SendTemplateEmail implements mailer.Provider.
func (s *Sender) SendTemplateEmail(ctx context.Context, params mailer.TemplateParams) (*mailer.Result, error) {
	return mailer.SendTemplate(ctx, s.renderer, s, params, s.config.FallbackSubject)
}

// HealthCheck verifies the topic exists and is reachable.
func (s *Sender) HealthCheck(ctx context.Context) error {
	ok, err := s.topic.Exists(ctx)
	if err != nil {
		return wrapPublishError(err)
	}
	if !ok {
		return fmt.Errorf("%w: %s: topic %q does not exist", mailer.ErrSendFailed, Name, s.config.Topic)
	}
	return nil
}

// Close flushes pending publishes and releases the client.
func (s *Sender) Close() error {
	return s.topic.Close()
}

func (s *Sender) payload(email *mailer.Email) *Payload {
	p := &Payload{
		From:        mailer.ResolveFrom(email.From, s.config.SenderEmail, s.config.SenderName),
		To:          email.To,
		CC:          email.CC,
		BCC:         email.BCC,
		ReplyTo:     email.ReplyTo,
		Subject:     email.Subject,
		HTMLContent: email.HTML,
		TextContent: mailer.TextBody(email),
		Headers:     email.Headers,
	}

	for _, a := range email.Attachments {
		contentType := a.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		p.Attachments = append(p.Attachments, PayloadAttachment{
			Filename:    a.Filename,
			Content:     base64.StdEncoding.EncodeToString(a.Content),
			ContentType: contentType,
			IsBase64:    true,
		})
	}

	return p
}
