package cli

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrymomot/maildispatch/pkg/mailer"
)

// stringList is a repeatable flag.
type stringList []string

func (s *stringList) String() string {
	return strings.Join(*s, ",")
}

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// splitList parses a comma-separated recipient list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseTags turns "name" and "name=value" flags into tags.
func parseTags(in []string) mailer.Tags {
	if len(in) == 0 {
		return nil
	}
	tags := make(mailer.Tags, len(in))
	for _, t := range in {
		if name, value, ok := strings.Cut(t, "="); ok {
			tags[name] = value
			continue
		}
		tags[t] = struct{}{}
	}
	return tags
}

// parseData decodes the --data JSON object.
func parseData(s string) (map[string]any, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var data map[string]any
	if err := json.Unmarshal([]byte(s), &data); err != nil {
		return nil, fmt.Errorf("template data must be a JSON object: %w", err)
	}
	return data, nil
}

// readAttachments loads files from disk. The content type comes from the
// extension, then from content sniffing.
func readAttachments(paths []string) ([]mailer.Attachment, error) {
	out := make([]mailer.Attachment, 0, len(paths))
	for _, p := range paths {
		content, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read attachment: %w", err)
		}

		contentType := mime.TypeByExtension(filepath.Ext(p))
		if contentType == "" {
			contentType = http.DetectContentType(content)
		}

		out = append(out, mailer.Attachment{
			Filename:    filepath.Base(p),
			ContentType: contentType,
			Content:     content,
		})
	}
	return out, nil
}
