package mailer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	texttemplate "text/template"
	"time"

	"github.com/dmitrymomot/maildispatch/pkg/sanitizer"
)

// SendTemplate renders params with r and passes the rendered HTML unchanged to s.SendEmail.
// Subject resolution: params.Subject > template Subject frontmatter > fallbackSubject > DefaultSubject.
// The subject is itself a text/template over params.Data.
//
// Renderer errors (ErrTemplateNotFound, ErrRenderFailed, ...) are returned as is
// and s is never called.
func SendTemplate(ctx context.Context, r *Renderer, s Sender, params TemplateParams, fallbackSubject string) (*Result, error) {
	if r == nil {
		return nil, fmt.Errorf("%w: no renderer configured", ErrRenderFailed)
	}

	rendered, err := r.Render(params.Template, params.Data)
	if err != nil {
		return nil, err
	}

	subject := params.Subject
	if subject == "" {
		subject = rendered.Subject()
	}
	if subject == "" {
		subject = fallbackSubject
	}
	if subject == "" {
		subject = DefaultSubject
	}

	subject, err = processSubject(subject, params.Data)
	if err != nil {
		return nil, errors.Join(ErrRenderFailed, err)
	}

	return s.SendEmail(ctx, &Email{
		To:          params.To,
		CC:          params.CC,
		BCC:         params.BCC,
		Subject:     subject,
		HTML:        rendered.HTML,
		Text:        rendered.Text,
		From:        params.From,
		ReplyTo:     params.ReplyTo,
		Tags:        params.Tags,
		Attachments: params.Attachments,
	})
}

func processSubject(subject string, data map[string]any) (string, error) {
	tmpl, err := texttemplate.New("subject").Parse(subject)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}

// TextBody returns e.Text, or a plain-text rendering of e.HTML when Text is empty.
func TextBody(e *Email) string {
	if e.Text != "" {
		return e.Text
	}
	return sanitizer.PlainText(e.HTML)
}

// ResolveFrom picks the sender: an explicit override wins, otherwise the
// configured address, decorated with name when one is set.
func ResolveFrom(override, senderEmail, senderName string) string {
	if override != "" {
		return override
	}
	return Recipient(senderName, senderEmail)
}

// CallContext bounds ctx by timeout for a single vendor call.
// A non-positive timeout leaves ctx unchanged.
func CallContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}
