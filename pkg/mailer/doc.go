// Package mailer defines the provider-neutral email contract, template rendering
// and error taxonomy shared by every delivery backend.
//
// # Architecture
//
//   - Provider: interface every backend implements (SendEmail, SendTemplateEmail)
//   - Renderer: turns .html and .md templates (with YAML frontmatter) into HTML
//   - Registry: maps provider names to Factory functions
//   - Config: flat key/value configuration decoded into provider config structs
//
// Concrete providers live in subpackages (resend, ses, azure, pubsub). The
// maildispatch root package wires them into a single façade.
//
// # Sending
//
// SendEmail takes a fully prepared Email:
//
//	res, err := provider.SendEmail(ctx, &mailer.Email{
//		To:      []string{"user@example.com"},
//		Subject: "Hi",
//		HTML:    "<p>Hello!</p>",
//	})
//
// SendTemplateEmail renders a template first and then calls SendEmail with the
// rendered HTML:
//
//	res, err := provider.SendTemplateEmail(ctx, mailer.TemplateParams{
//		To:       []string{"user@example.com"},
//		Template: "welcome",
//		Data:     map[string]any{"user_name": "Jo"},
//	})
//
// Providers implement SendTemplateEmail with SendTemplate, so the vendor
// translation lives in exactly one place per provider.
//
// # Templates
//
// "welcome" resolves to welcome.html, then welcome.md. HTML templates use
// html/template; markdown templates use text/template, goldmark and an optional
// layout. Both accept frontmatter:
//
//	---
//	Subject: Welcome {{.user_name}}!
//	---
//
//	# Welcome
//
//	[!button|Get Started]({{.login_url}})
//
// # Results
//
// Every provider returns a Result with a message identifier and a Status.
// StatusSent means the vendor accepted the message for delivery. StatusPublished
// (Pub/Sub) only means the message reached the topic; use Result.Delivered to
// tell them apart.
//
// # Errors
//
//   - ErrConfig / *ConfigError: missing or malformed configuration keys
//   - ErrUnknownProvider: the selected provider is not registered
//   - ErrTemplateNotFound, ErrLayoutNotFound, ErrRenderFailed, ErrInvalidFrontmatter
//   - ErrValidation with ErrNoRecipient, ErrInvalidAddress, ErrNoSubject, ErrNoContent
//   - ErrSendFailed / *VendorError: the vendor call failed; IsTemporary tells
//     transient failures from permanent ones, ErrTimeout marks deadlines
package mailer
