package mailer

import (
	"fmt"
	"strconv"
)

// Tags represents email tags/categories that can be either presence-only
// (using struct{}{}) or key-value pairs (using string values).
// Each provider adapter converts them to its own shape:
//   - Resend: name-value pairs (presence-only tags become name="true")
//   - SES: message tags (same conversion as Resend)
//   - Pub/Sub: message attributes prefixed with "tag_"
//   - Azure: ignored, the relay has no tagging
type Tags map[string]any

// SimpleTags creates presence-only tags from a list of tag names.
func SimpleTags(names ...string) Tags {
	t := make(Tags, len(names))
	for _, n := range names {
		t[n] = struct{}{}
	}
	return t
}

// TagValue converts any tag value to the string form vendors expect.
// Presence-only tags (struct{}{}) become "true".
func TagValue(v any) string {
	switch val := v.(type) {
	case nil, struct{}:
		return "true"
	case string:
		return val
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}

// Recipient formats a name and email into RFC 5322 address format.
// Returns "Name <email>" if name is provided, otherwise just email.
func Recipient(name, email string) string {
	if name == "" {
		return email
	}
	return fmt.Sprintf("%s <%s>", name, email)
}

// Email represents a fully-prepared email message ready for sending.
type Email struct {
	Headers     map[string]string // Custom headers
	Tags        Tags              // Provider-specific tags/categories
	Subject     string            // Email subject
	HTML        string            // HTML body content
	Text        string            // Plain text alternative, derived from HTML when empty
	From        string            // Override the configured sender
	ReplyTo     string            // Reply-to address
	To          []string          // Recipients (at least one required)
	CC          []string          // Carbon copy recipients
	BCC         []string          // Blind carbon copy recipients
	Attachments []Attachment      // File attachments
}

// TemplateParams contains parameters for sending a templated email.
type TemplateParams struct {
	Data     map[string]any // Template variables
	Tags     Tags
	Template string // Template name, with or without extension (e.g. "welcome" or "welcome.md")

	// Optional overrides
	Subject     string // Overrides template subject and fallback
	From        string // Overrides the configured sender
	ReplyTo     string
	To          []string
	CC          []string
	BCC         []string
	Attachments []Attachment
}

// Attachment represents an email attachment.
type Attachment struct {
	Filename    string // Display name for the attachment
	ContentType string // MIME type (e.g., "application/pdf")
	ContentID   string // Optional Content-ID for inline attachments
	Content     []byte // Raw file content
}

// Status is the normalized outcome reported by a provider.
type Status string

const (
	// StatusSent means the vendor accepted the message for delivery.
	StatusSent Status = "sent"

	// StatusPublished means the message was published for asynchronous fan-out.
	// A downstream consumer still has to deliver it; nothing about delivery is known.
	StatusPublished Status = "published"
)

// Result is the uniform response of every provider.
type Result struct {
	Provider  string `json:"provider"`
	MessageID string `json:"message_id"`
	Status    Status `json:"status"`
}

// Delivered reports whether the vendor accepted the message for delivery.
// It is false for publish acknowledgments.
func (r *Result) Delivered() bool {
	return r != nil && r.Status == StatusSent
}
