package mailer

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
)

var (
	// ErrConfig indicates missing or invalid configuration.
	ErrConfig = errors.New("mailer: invalid configuration")

	// ErrUnknownProvider indicates the selected provider is not registered.
	ErrUnknownProvider = errors.New("mailer: unknown provider")

	// ErrTemplateNotFound indicates the template file was not found.
	ErrTemplateNotFound = errors.New("mailer: template not found")

	// ErrLayoutNotFound indicates the layout file was not found.
	ErrLayoutNotFound = errors.New("mailer: layout not found")

	// ErrRenderFailed indicates template rendering failed.
	ErrRenderFailed = errors.New("mailer: failed to render template")

	// ErrInvalidFrontmatter indicates invalid YAML frontmatter.
	ErrInvalidFrontmatter = errors.New("mailer: invalid frontmatter")

	// ErrValidation indicates the email failed local validation.
	ErrValidation = errors.New("mailer: invalid email")

	// ErrNoRecipient indicates no recipient was specified.
	ErrNoRecipient = errors.New("email must have at least one recipient")

	// ErrInvalidAddress indicates a malformed email address.
	ErrInvalidAddress = errors.New("invalid email address")

	// ErrNoSubject indicates no subject was provided.
	ErrNoSubject = errors.New("email must have a subject")

	// ErrNoContent indicates no HTML content was provided.
	ErrNoContent = errors.New("email must have HTML content")

	// ErrSendFailed indicates the vendor call failed.
	ErrSendFailed = errors.New("mailer: failed to send email")

	// ErrTimeout indicates the vendor call exceeded its deadline.
	ErrTimeout = errors.New("mailer: vendor call timed out")
)

// ConfigError describes configuration keys that are missing or malformed.
// It matches ErrConfig with errors.Is.
type ConfigError struct {
	Provider string   // Provider being configured, empty for shared keys
	Keys     []string // Offending configuration keys
	Reason   string   // "missing" when empty
}

func (e *ConfigError) Error() string {
	reason := e.Reason
	if reason == "" {
		reason = "missing required configuration"
	}
	if e.Provider == "" {
		return fmt.Sprintf("mailer: %s: %s", reason, strings.Join(e.Keys, ", "))
	}
	return fmt.Sprintf("mailer: %s: %s: %s", e.Provider, reason, strings.Join(e.Keys, ", "))
}

// Is reports whether target is ErrConfig.
func (e *ConfigError) Is(target error) bool {
	return target == ErrConfig
}

// MissingKeys returns a ConfigError for absent keys.
func MissingKeys(provider string, keys ...string) *ConfigError {
	return &ConfigError{Provider: provider, Keys: keys}
}

// InvalidKey returns a ConfigError for a key whose value cannot be used.
func InvalidKey(provider, key, reason string) *ConfigError {
	return &ConfigError{Provider: provider, Keys: []string{key}, Reason: reason}
}

// VendorError wraps a failed vendor call.
// It matches ErrSendFailed, and ErrTimeout when Timeout is set.
type VendorError struct {
	Err        error
	Provider   string
	Code       string // Vendor error code, when the vendor reports one
	StatusCode int    // HTTP status, when known
	Temporary  bool   // Retrying the same request may succeed
	Timeout    bool   // The call hit its deadline
}

func (e *VendorError) Error() string {
	var b strings.Builder
	b.WriteString("mailer: ")
	b.WriteString(e.Provider)
	b.WriteString(": send failed")
	switch {
	case e.StatusCode != 0 && e.Code != "":
		fmt.Fprintf(&b, " (status %d, code %s)", e.StatusCode, e.Code)
	case e.StatusCode != 0:
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	case e.Code != "":
		fmt.Fprintf(&b, " (code %s)", e.Code)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *VendorError) Unwrap() error { return e.Err }

// Is reports whether target is ErrSendFailed, or ErrTimeout for timed out calls.
func (e *VendorError) Is(target error) bool {
	return target == ErrSendFailed || (e.Timeout && target == ErrTimeout)
}

// NewVendorError wraps err as a VendorError, detecting deadlines and network timeouts.
// Providers refine StatusCode, Code and Temporary from vendor-specific error types.
func NewVendorError(provider string, err error) *VendorError {
	ve := &VendorError{Provider: provider, Err: err}

	var netErr net.Error
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		ve.Timeout = true
		ve.Temporary = true
	case errors.As(err, &netErr) && netErr.Timeout():
		ve.Timeout = true
		ve.Temporary = true
	case errors.As(err, &netErr):
		ve.Temporary = true
	}

	return ve
}

// TemporaryStatus reports whether an HTTP status code signals a transient failure.
func TemporaryStatus(code int) bool {
	return code == 408 || code == 429 || code >= 500
}

// IsTemporary reports whether err is a vendor failure worth retrying.
func IsTemporary(err error) bool {
	var ve *VendorError
	return errors.As(err, &ve) && ve.Temporary
}
