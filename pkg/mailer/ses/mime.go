package ses

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"sort"
	"strings"
	"time"

	"github.com/dmitrymomot/maildispatch/pkg/mailer"
)

// lineLength is the maximum base64 line length allowed by RFC 2045.
const lineLength = 76

// buildRawMessage renders email as a multipart/mixed MIME message.
// Bcc recipients are omitted from the headers; SES takes them from the destination.
func buildRawMessage(from string, email *mailer.Email, text string, now time.Time) ([]byte, error) {
	var buf bytes.Buffer

	mixed := multipart.NewWriter(&buf)

	writeHeader(&buf, "From", from)
	writeHeader(&buf, "To", strings.Join(email.To, ", "))
	if len(email.CC) > 0 {
		writeHeader(&buf, "Cc", strings.Join(email.CC, ", "))
	}
	if email.ReplyTo != "" {
		writeHeader(&buf, "Reply-To", email.ReplyTo)
	}
	writeHeader(&buf, "Subject", mime.QEncoding.Encode("utf-8", email.Subject))
	writeHeader(&buf, "Date", now.UTC().Format(time.RFC1123Z))
	for _, name := range sortedKeys(email.Headers) {
		writeHeader(&buf, textproto.CanonicalMIMEHeaderKey(name), email.Headers[name])
	}
	writeHeader(&buf, "MIME-Version", "1.0")
	writeHeader(&buf, "Content-Type", fmt.Sprintf("multipart/mixed; boundary=%q", mixed.Boundary()))
	buf.WriteString("\r\n")

	body, boundary, err := buildAlternative(email.HTML, text)
	if err != nil {
		return nil, err
	}

	part, err := mixed.CreatePart(textproto.MIMEHeader{
		"Content-Type": {fmt.Sprintf("multipart/alternative; boundary=%q", boundary)},
	})
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(body); err != nil {
		return nil, err
	}

	for _, a := range email.Attachments {
		if err := writeAttachment(mixed, a); err != nil {
			return nil, err
		}
	}

	if err := mixed.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// buildAlternative renders the text and HTML bodies as multipart/alternative.
func buildAlternative(html, text string) ([]byte, string, error) {
	var buf bytes.Buffer
	alt := multipart.NewWriter(&buf)

	bodies := []struct {
		contentType string
		content     string
	}{
		{"text/plain; charset=utf-8", text},
		{"text/html; charset=utf-8", html},
	}

	for _, b := range bodies {
		if b.content == "" {
			continue
		}
		part, err := alt.CreatePart(textproto.MIMEHeader{
			"Content-Type":              {b.contentType},
			"Content-Transfer-Encoding": {"base64"},
		})
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(encodeBase64Lines([]byte(b.content))); err != nil {
			return nil, "", err
		}
	}

	if err := alt.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), alt.Boundary(), nil
}

func writeAttachment(w *multipart.Writer, a mailer.Attachment) error {
	contentType := a.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	disposition := "attachment"
	header := textproto.MIMEHeader{
		"Content-Type":              {mime.FormatMediaType(contentType, map[string]string{"name": a.Filename})},
		"Content-Transfer-Encoding": {"base64"},
	}
	if a.ContentID != "" {
		disposition = "inline"
		header.Set("Content-ID", "<"+strings.Trim(a.ContentID, "<>")+">")
	}
	header.Set("Content-Disposition", mime.FormatMediaType(disposition, map[string]string{"filename": a.Filename}))

	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = part.Write(encodeBase64Lines(a.Content))
	return err
}

func encodeBase64Lines(data []byte) []byte {
	encoded := base64.StdEncoding.EncodeToString(data)

	var out bytes.Buffer
	for len(encoded) > lineLength {
		out.WriteString(encoded[:lineLength])
		out.WriteString("\r\n")
		encoded = encoded[lineLength:]
	}
	out.WriteString(encoded)
	return out.Bytes()
}

func writeHeader(buf *bytes.Buffer, name, value string) {
	buf.WriteString(name)
	buf.WriteString(": ")
	buf.WriteString(strings.NewReplacer("\r", "", "\n", "").Replace(value))
	buf.WriteString("\r\n")
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
