// Package maildispatch sends transactional and templated email through
// interchangeable delivery backends behind one interface.
//
// A Service is built from a flat configuration map. EMAIL_PROVIDER selects
// the backend from a registry; every backend shares the same template
// renderer and returns the same Result shape.
//
//	svc, err := maildispatch.New(mailer.Config{
//		"EMAIL_PROVIDER":           "resend",
//		"EMAIL_RESEND_API_KEY":     os.Getenv("EMAIL_RESEND_API_KEY"),
//		"EMAIL_DEFAULT_FROM_EMAIL": "team@example.com",
//	}, maildispatch.WithLogger(log))
//	if err != nil {
//		return err
//	}
//	defer svc.Close()
//
//	res, err := svc.SendTemplateEmail(ctx, mailer.TemplateParams{
//		To:       []string{"user@example.com"},
//		Template: "welcome",
//		Data:     map[string]any{"user_name": "Jo"},
//	})
//
// # Providers
//
//   - resend: Resend HTTP API
//   - aws: Amazon SES v2
//   - azure: Azure Communication Services Email relay
//   - gcp: Google Cloud Pub/Sub topic (asynchronous hand-off)
//
// The gcp provider returns StatusPublished: the message reached the topic
// and a downstream consumer delivers it. Check Result.Delivered when the
// difference matters.
//
// # Custom providers
//
// Registries are explicit values. Start from NewRegistry to keep the
// built-ins, add or replace entries, and pass it with WithRegistry:
//
//	reg := maildispatch.NewRegistry()
//	reg.Register("smtp", smtpFactory)
//	svc, err := maildispatch.New(cfg, maildispatch.WithRegistry(reg))
package maildispatch
