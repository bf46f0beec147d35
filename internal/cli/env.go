package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"

	"github.com/dmitrymomot/maildispatch/pkg/mailer"
)

const defaultEnvFile = ".env"

// configPrefixes are the environment prefixes forwarded to the providers.
var configPrefixes = []string{"EMAIL_", "AWS_", "AZURE_", "GCP_"}

// loadEnv merges environ with the variables of an env file.
// Process variables win over the file, like godotenv.Load. An explicit
// path must exist; the default .env is optional.
func loadEnv(path string, environ []string) (map[string]string, error) {
	vars := make(map[string]string, len(environ))

	file := path
	if file == "" {
		file = defaultEnvFile
	}
	fromFile, err := godotenv.Read(file)
	switch {
	case err == nil:
		for k, v := range fromFile {
			vars[k] = v
		}
	case path == "" && errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("read env file %s: %w", file, err)
	}

	for _, kv := range environ {
		k, v, ok := strings.Cut(kv, "=")
		if ok && k != "" {
			vars[k] = v
		}
	}

	return vars, nil
}

// providerConfig keeps only the variables providers read.
func providerConfig(vars map[string]string) mailer.Config {
	cfg := make(mailer.Config)
	for k, v := range vars {
		for _, prefix := range configPrefixes {
			if strings.HasPrefix(k, prefix) {
				cfg[k] = v
				break
			}
		}
	}
	return cfg
}
