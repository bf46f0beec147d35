// Package sanitizer converts HTML email bodies into plain text.
package sanitizer

import (
	"html"
	"regexp"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy *bluemonday.Policy
	initOnce     sync.Once

	// blockBoundary matches tags after which the text should break the line.
	blockBoundary = regexp.MustCompile(`(?i)<br\s*/?>|</(p|div|h[1-6]|li|tr|table|blockquote|pre|ul|ol|section|article)\s*>`)
)

func initPolicies() {
	initOnce.Do(func() {
		// StrictPolicy strips ALL HTML and drops script/style contents
		strictPolicy = bluemonday.StrictPolicy()
	})
}

// PlainText renders an HTML body as plain text for the text/plain alternative.
// Block-level elements become line breaks, entities are decoded, runs of
// whitespace collapse to single spaces and empty lines are dropped.
func PlainText(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	initPolicies()

	marked := blockBoundary.ReplaceAllString(s, "$0\n")
	stripped := html.UnescapeString(strictPolicy.Sanitize(marked))

	lines := strings.Split(stripped, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
