// Package ses sends email through Amazon SES v2.
package ses

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/dmitrymomot/maildispatch/pkg/mailer"
)

// Name is the registry name of this provider.
const Name = "aws"

// sesAPI is the part of the SES v2 client the sender uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
	GetAccount(ctx context.Context, params *sesv2.GetAccountInput, optFns ...func(*sesv2.Options)) (*sesv2.GetAccountOutput, error)
}

// Sender implements mailer.Provider using Amazon SES v2.
type Sender struct {
	client   sesAPI
	renderer *mailer.Renderer
	config   Config
	now      func() time.Time
}

// New creates a new SES sender. Static credentials are used when configured,
// otherwise the default AWS credential chain. An empty region means DefaultRegion.
func New(ctx context.Context, cfg Config, renderer *mailer.Renderer) (*Sender, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.staticCredentials() {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: load aws config: %v", mailer.ErrConfig, Name, err)
	}

	client := sesv2.NewFromConfig(awsCfg, func(o *sesv2.Options) {
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		}
	})

	return newSender(cfg, renderer, client), nil
}

func newSender(cfg Config, renderer *mailer.Renderer, client sesAPI) *Sender {
	return &Sender{
		client:   client,
		renderer: renderer,
		config:   cfg,
		now:      time.Now,
	}
}

// FromConfig is the mailer.Factory for SES.
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
// Emails with attachments are sent as raw MIME, everything else as simple content.
func (s *Sender) SendEmail(ctx context.Context, email *mailer.Email) (*mailer.Result, error) {
	if err := email.Validate(); err != nil {
		return nil, err
	}

	from := mailer.ResolveFrom(email.From, s.config.SenderEmail, s.config.SenderName)

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(from),
		Destination: &types.Destination{
			ToAddresses:  email.To,
			CcAddresses:  email.CC,
			BccAddresses: email.BCC,
		},
		EmailTags: convertTags(email.Tags),
	}
	if email.ReplyTo != "" {
		input.ReplyToAddresses = []string{email.ReplyTo}
	}
	if s.config.ConfigurationSet != "" {
		input.ConfigurationSetName = aws.String(s.config.ConfigurationSet)
	}

	content, err := s.content(from, email)
	if err != nil {
		return nil, err
	}
	input.Content = content

	ctx, cancel := mailer.CallContext(ctx, s.config.Timeout)
	defer cancel()

	out, err := s.client.SendEmail(ctx, input)
	if err != nil {
		return nil, wrapSESError(err)
	}

	return &mailer.Result{
		Provider:  Name,
		MessageID: aws.ToString(out.MessageId),
		Status:    mailer.StatusSent,
	}, nil
}

// SendTemplateEmail implements mailer.Provider.
func (s *Sender) SendTemplateEmail(ctx context.Context, params mailer.TemplateParams) (*mailer.Result, error) {
	return mailer.SendTemplate(ctx, s.renderer, s, params, s.config.FallbackSubject)
}

// HealthCheck verifies the credentials can reach the SES account.
func (s *Sender) HealthCheck(ctx context.Context) error {
	if _, err := s.client.GetAccount(ctx, &sesv2.GetAccountInput{}); err != nil {
		return wrapSESError(err)
	}
	return nil
}

func (s *Sender) content(from string, email *mailer.Email) (*types.EmailContent, error) {
	text := mailer.TextBody(email)

	if len(email.Attachments) > 0 {
		raw, err := buildRawMessage(from, email, text, s.now())
		if err != nil {
			return nil, fmt.Errorf("%w: %s: build raw message: %v", mailer.ErrSendFailed, Name, err)
		}
		return &types.EmailContent{Raw: &types.RawMessage{Data: raw}}, nil
	}

	body := &types.Body{
		Html: &types.Content{Data: aws.String(email.HTML), Charset: aws.String("UTF-8")},
	}
	if text != "" {
		body.Text = &types.Content{Data: aws.String(text), Charset: aws.String("UTF-8")}
	}

	msg := &types.Message{
		Subject: &types.Content{Data: aws.String(email.Subject), Charset: aws.String("UTF-8")},
		Body:    body,
	}
	for _, name := range sortedKeys(email.Headers) {
		msg.Headers = append(msg.Headers, types.MessageHeader{
			Name:  aws.String(name),
			Value: aws.String(email.Headers[name]),
		})
	}

	return &types.EmailContent{Simple: msg}, nil
}

func convertTags(tags mailer.Tags) []types.MessageTag {
	if len(tags) == 0 {
		return nil
	}
	result := make([]types.MessageTag, 0, len(tags))
	for name, value := range tags {
		result = append(result, types.MessageTag{
			Name:  aws.String(name),
			Value: aws.String(mailer.TagValue(value)),
		})
	}
	return result
}
