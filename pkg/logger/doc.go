// Package logger builds the slog loggers used by maildispatch.
//
// Loggers write JSON (or text) to stdout, inject request-scoped attributes
// through context extractors, and optionally fan out warnings and errors to
// Sentry when a DSN is configured.
//
//	log := logger.New(logger.Options{Format: logger.FormatJSON},
//		logger.DispatchIDExtractor(),
//	)
//
//	ctx := logger.WithDispatchID(ctx, uuid.NewString())
//	log.InfoContext(ctx, "email sent", slog.String("message_id", id))
//	// {"level":"INFO","msg":"email sent","message_id":"...","dispatch_id":"..."}
//
// With Sentry:
//
//	log := logger.NewWithSentry(logger.SentryConfig{
//		DSN:         os.Getenv("SENTRY_DSN"),
//		Environment: "production",
//		MinLevel:    slog.LevelWarn,
//	}, logger.Options{})
//
// An empty DSN falls back to stdout only, so the same code runs locally.
// Errors create Sentry issues; warnings are stored as logs.
//
// NewNope returns a discarding logger for library defaults and tests.
package logger
