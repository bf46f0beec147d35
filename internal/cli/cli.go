package cli

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/google/uuid"

	"github.com/dmitrymomot/maildispatch"
	"github.com/dmitrymomot/maildispatch/internal/httpapi"
	"github.com/dmitrymomot/maildispatch/pkg/health"
	"github.com/dmitrymomot/maildispatch/pkg/logger"
	"github.com/dmitrymomot/maildispatch/pkg/mailer"
)

// Exit codes.
const (
	ExitOK      = 0
	ExitFailure = 1 // send failed or a check is unhealthy
	ExitUsage   = 2 // bad flags or configuration
)

const usage = `Usage: maildispatch <command> [flags]

Commands:
  send       send an HTML email
  template   render a template and send it
  providers  list available providers
  check      verify the configured provider is reachable
  serve      run the HTTP dispatch API

Run "maildispatch <command> -h" for command flags.
`

const defaultCheckTimeout = 10 * time.Second

// errUsage marks flag and argument problems.
var errUsage = errors.New("usage error")

// CLI runs maildispatch commands.
type CLI struct {
	Stdout   io.Writer
	Stderr   io.Writer
	Environ  []string         // Default: os.Environ()
	Registry *mailer.Registry // Default: maildispatch.NewRegistry()
}

// New returns a CLI wired to the process streams and environment.
func New() *CLI {
	return &CLI{
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
		Environ: os.Environ(),
	}
}

// commonFlags are shared by every command that builds a service.
type commonFlags struct {
	envFile   string
	logLevel  string
	logFormat string
}

func (f *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.envFile, "env-file", "", "path to .env file (default: ./.env when present)")
	fs.StringVar(&f.logLevel, "log-level", "info", "log level: debug, info, warn, error")
	fs.StringVar(&f.logFormat, "log-format", logger.FormatText, "log format: text or json")
}

// Run executes args and returns the process exit code.
func (c *CLI) Run(ctx context.Context, args []string) int {
	if len(args) == 0 {
		_, _ = io.WriteString(c.Stderr, usage)
		return ExitUsage
	}

	var err error
	switch cmd, rest := args[0], args[1:]; cmd {
	case "send":
		err = c.send(ctx, rest)
	case "template":
		err = c.template(ctx, rest)
	case "providers":
		err = c.providers(rest)
	case "check":
		err = c.check(ctx, rest)
	case "serve":
		err = c.serve(ctx, rest)
	case "help", "-h", "--help":
		_, _ = io.WriteString(c.Stdout, usage)
		return ExitOK
	default:
		fmt.Fprintf(c.Stderr, "unknown command %q\n\n%s", cmd, usage)
		return ExitUsage
	}

	return c.exitCode(err)
}

func (c *CLI) exitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, flag.ErrHelp):
		return ExitOK
	case errors.Is(err, errUsage), errors.Is(err, mailer.ErrConfig), errors.Is(err, mailer.ErrUnknownProvider):
		fmt.Fprintf(c.Stderr, "error: %v\n", err)
		return ExitUsage
	default:
		fmt.Fprintf(c.Stderr, "error: %v\n", err)
		return ExitFailure
	}
}

func (c *CLI) flagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(c.Stderr)
	return fs
}

func (c *CLI) parse(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return err
		}
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	if fs.NArg() > 0 {
		return fmt.Errorf("%w: unexpected arguments %v", errUsage, fs.Args())
	}
	return nil
}

// service loads configuration and builds the façade with a stderr logger.
func (c *CLI) service(ctx context.Context, f commonFlags) (*maildispatch.Service, *slog.Logger, error) {
	environ := c.Environ
	if environ == nil {
		environ = os.Environ()
	}

	vars, err := loadEnv(f.envFile, environ)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errUsage, err)
	}

	var sentryCfg logger.SentryConfig
	if err := env.ParseWithOptions(&sentryCfg, env.Options{Environment: vars}); err != nil {
		return nil, nil, fmt.Errorf("%w: sentry: %v", errUsage, err)
	}

	log := logger.NewWithSentry(sentryCfg, logger.Options{
		Writer: c.Stderr,
		Format: f.logFormat,
		Level:  logger.ParseLevel(f.logLevel),
	}, logger.DispatchIDExtractor())

	opts := []maildispatch.Option{maildispatch.WithLogger(log)}
	if c.Registry != nil {
		opts = append(opts, maildispatch.WithRegistry(c.Registry))
	}

	svc, err := maildispatch.New(providerConfig(vars), opts...)
	if err != nil {
		return nil, nil, err
	}

	log.DebugContext(ctx, "provider ready", slog.String("provider", svc.ProviderName()))
	return svc, log, nil
}

func (c *CLI) send(ctx context.Context, args []string) error {
	var (
		common                              commonFlags
		to, cc, bcc, subject, content, text string
		from, replyTo                       string
		attachments, tags                   stringList
	)

	fs := c.flagSet("send")
	common.register(fs)
	fs.StringVar(&to, "to", "", "comma-separated recipients (required)")
	fs.StringVar(&cc, "cc", "", "comma-separated CC recipients")
	fs.StringVar(&bcc, "bcc", "", "comma-separated BCC recipients")
	fs.StringVar(&subject, "subject", "", "email subject (required)")
	fs.StringVar(&content, "content", "", "HTML content (required)")
	fs.StringVar(&text, "text", "", "plain-text alternative (default: derived from HTML)")
	fs.StringVar(&from, "from", "", "override the configured sender")
	fs.StringVar(&replyTo, "reply-to", "", "reply-to address")
	fs.Var(&attachments, "attachment", "file to attach (repeatable)")
	fs.Var(&tags, "tag", "tag as name or name=value (repeatable)")

	if err := c.parse(fs, args); err != nil {
		return err
	}
	if to == "" || subject == "" || content == "" {
		return fmt.Errorf("%w: --to, --subject and --content are required", errUsage)
	}

	files, err := readAttachments(attachments)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	svc, _, err := c.service(ctx, common)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	ctx = logger.WithDispatchID(ctx, newDispatchID())
	res, err := svc.SendEmail(ctx, &mailer.Email{
		To:          splitList(to),
		CC:          splitList(cc),
		BCC:         splitList(bcc),
		Subject:     subject,
		HTML:        content,
		Text:        text,
		From:        from,
		ReplyTo:     replyTo,
		Tags:        parseTags(tags),
		Attachments: files,
	})
	if err != nil {
		return err
	}

	return c.printJSON(res)
}

func (c *CLI) template(ctx context.Context, args []string) error {
	var (
		common                  commonFlags
		to, cc, bcc, name, data string
		subject, from, replyTo  string
		attachments, tags       stringList
	)

	fs := c.flagSet("template")
	common.register(fs)
	fs.StringVar(&to, "to", "", "comma-separated recipients (required)")
	fs.StringVar(&cc, "cc", "", "comma-separated CC recipients")
	fs.StringVar(&bcc, "bcc", "", "comma-separated BCC recipients")
	fs.StringVar(&name, "template", "", "template name, with or without extension (required)")
	fs.StringVar(&data, "data", "", "template data as a JSON object")
	fs.StringVar(&subject, "subject", "", "subject, overrides the template subject")
	fs.StringVar(&from, "from", "", "override the configured sender")
	fs.StringVar(&replyTo, "reply-to", "", "reply-to address")
	fs.Var(&attachments, "attachment", "file to attach (repeatable)")
	fs.Var(&tags, "tag", "tag as name or name=value (repeatable)")

	if err := c.parse(fs, args); err != nil {
		return err
	}
	if to == "" || name == "" {
		return fmt.Errorf("%w: --to and --template are required", errUsage)
	}

	vars, err := parseData(data)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}
	files, err := readAttachments(attachments)
	if err != nil {
		return fmt.Errorf("%w: %v", errUsage, err)
	}

	svc, _, err := c.service(ctx, common)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	ctx = logger.WithDispatchID(ctx, newDispatchID())
	res, err := svc.SendTemplateEmail(ctx, mailer.TemplateParams{
		To:          splitList(to),
		CC:          splitList(cc),
		BCC:         splitList(bcc),
		Template:    name,
		Data:        vars,
		Subject:     subject,
		From:        from,
		ReplyTo:     replyTo,
		Tags:        parseTags(tags),
		Attachments: files,
	})
	if err != nil {
		return err
	}

	return c.printJSON(res)
}

func (c *CLI) providers(args []string) error {
	fs := c.flagSet("providers")
	if err := c.parse(fs, args); err != nil {
		return err
	}

	registry := c.Registry
	if registry == nil {
		registry = maildispatch.NewRegistry()
	}
	for _, name := range registry.Names() {
		fmt.Fprintln(c.Stdout, name)
	}
	return nil
}

func (c *CLI) check(ctx context.Context, args []string) error {
	var (
		common  commonFlags
		timeout = defaultCheckTimeout
	)

	fs := c.flagSet("check")
	common.register(fs)
	fs.DurationVar(&timeout, "timeout", timeout, "overall check timeout")

	if err := c.parse(fs, args); err != nil {
		return err
	}

	svc, log, err := c.service(ctx, common)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	resp := health.Run(ctx, svc.HealthChecks(), health.WithTimeout(timeout), health.WithLogger(log))
	if err := c.printJSON(resp); err != nil {
		return err
	}
	return resp.Err()
}

func (c *CLI) serve(ctx context.Context, args []string) error {
	var (
		common      commonFlags
		addr        string
		maxBodySize int64
	)

	fs := c.flagSet("serve")
	common.register(fs)
	fs.StringVar(&addr, "addr", httpapi.DefaultAddr, "listen address")
	fs.Int64Var(&maxBodySize, "max-body-size", httpapi.DefaultMaxBodySize, "request body limit in bytes")

	if err := c.parse(fs, args); err != nil {
		return err
	}

	svc, log, err := c.service(ctx, common)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	router := httpapi.NewRouter(svc,
		httpapi.WithLogger(log),
		httpapi.WithHealthChecks(svc.HealthChecks()),
		httpapi.WithMaxBodySize(maxBodySize),
	)

	return httpapi.Serve(ctx, addr, router, log)
}

func newDispatchID() string {
	return uuid.NewString()
}

func (c *CLI) printJSON(v any) error {
	enc := json.NewEncoder(c.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
