package mailer

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/yuin/goldmark"
)

func convertButtons(t *testing.T, source string, opts ...ButtonOption) string {
	t.Helper()

	md := goldmark.New(goldmark.WithExtensions(NewButtonExtension(opts...)))

	var buf bytes.Buffer
	require.NoError(t, md.Convert([]byte(source), &buf))
	return buf.String()
}

func TestButtonExtension(t *testing.T) {
	t.Parallel()

	plain := []ButtonOption{WithButtonStyle("")}

	tests := []struct {
		name     string
		source   string
		opts     []ButtonOption
		contains []string
		excludes []string
	}{
		{
			name:     "button",
			source:   `[!button|Confirm](https://example.com/confirm)`,
			opts:     plain,
			contains: []string{`<a href="https://example.com/confirm" class="btn">Confirm</a>`},
		},
		{
			name:     "default inline style",
			source:   `[!button|Confirm](https://example.com)`,
			contains: []string{`class="btn" style="` + DefaultButtonStyle + `"`},
		},
		{
			name:     "custom class",
			source:   `[!button|Pay](https://example.com/pay)`,
			opts:     []ButtonOption{WithButtonClass("cta"), WithButtonStyle("")},
			contains: []string{`<a href="https://example.com/pay" class="cta">Pay</a>`},
		},
		{
			name:     "no class",
			source:   `[!button|Pay](https://example.com/pay)`,
			opts:     []ButtonOption{WithButtonClass(""), WithButtonStyle("")},
			contains: []string{`<a href="https://example.com/pay">Pay</a>`},
		},
		{
			name:     "escapes label",
			source:   `[!button|<b>Go</b>](https://example.com)`,
			opts:     plain,
			contains: []string{"&lt;b&gt;Go&lt;/b&gt;"},
			excludes: []string{"<b>Go</b>"},
		},
		{
			name:     "ampersand in label",
			source:   `[!button|Accept & Continue](https://example.com)`,
			opts:     plain,
			contains: []string{"Accept &amp; Continue"},
		},
		{
			name:     "query string",
			source:   `[!button|Verify](https://example.com/verify?token=abc123&user=7)`,
			opts:     plain,
			contains: []string{"token=abc123", "user=7"},
		},
		{
			name: "surrounding markdown",
			source: "# Welcome\n\nPlease verify your email:\n\n" +
				"[!button|Verify Email](https://example.com/verify)\n\nThanks!",
			opts: plain,
			contains: []string{
				"<h1>Welcome</h1>",
				`<a href="https://example.com/verify" class="btn">Verify Email</a>`,
				"Thanks!",
			},
		},
		{
			name:   "two buttons",
			source: "[!button|Accept](https://example.com/a)\n[!button|Decline](https://example.com/d)",
			opts:   plain,
			contains: []string{
				`<a href="https://example.com/a" class="btn">Accept</a>`,
				`<a href="https://example.com/d" class="btn">Decline</a>`,
			},
		},
		{
			name:     "regular link untouched",
			source:   `[Docs](https://example.com/docs)`,
			contains: []string{`<a href="https://example.com/docs">Docs</a>`},
			excludes: []string{`class="btn"`},
		},
		{
			name:     "missing url",
			source:   `[!button|Broken]`,
			excludes: []string{`class="btn"`},
		},
		{
			name:     "unclosed url",
			source:   `[!button|Broken](https://example.com`,
			excludes: []string{`class="btn"`},
		},
		{
			name:     "empty label",
			source:   `[!button|](https://example.com)`,
			opts:     plain,
			contains: []string{`<a href="https://example.com" class="btn"></a>`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			out := convertButtons(t, tt.source, tt.opts...)
			for _, s := range tt.contains {
				require.Contains(t, out, s)
			}
			for _, s := range tt.excludes {
				require.NotContains(t, out, s)
			}
		})
	}
}

func TestButtonNode_Kind(t *testing.T) {
	t.Parallel()

	node := &ButtonNode{URL: []byte("https://example.com"), Label: []byte("Go")}
	require.Equal(t, KindButton, node.Kind())
}

func TestButtonParser_Trigger(t *testing.T) {
	t.Parallel()

	require.Equal(t, []byte{'['}, NewButtonParser().Trigger())
}
