package mailer

import (
	"bytes"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// buttonPrefix is the syntax prefix that triggers button parsing: [!button|Label](URL).
const buttonPrefix = "[!button|"

// DefaultButtonStyle is inlined on buttons because most mail clients drop <style> blocks.
const DefaultButtonStyle = "display:inline-block;padding:12px 24px;border-radius:6px;" +
	"background:#2563eb;color:#ffffff;text-decoration:none;font-weight:600"

// KindButton is the node kind for ButtonNode.
var KindButton = ast.NewNodeKind("Button")

// ButtonNode represents a call-to-action link in the AST.
type ButtonNode struct {
	ast.BaseInline
	URL   []byte
	Label []byte
}

func (n *ButtonNode) Kind() ast.NodeKind {
	return KindButton
}

func (n *ButtonNode) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{
		"URL":   string(n.URL),
		"Label": string(n.Label),
	}, nil)
}

type buttonParser struct{}

// NewButtonParser creates the inline parser for button syntax.
func NewButtonParser() parser.InlineParser {
	return &buttonParser{}
}

func (p *buttonParser) Trigger() []byte {
	return []byte{'['}
}

func (p *buttonParser) Parse(parent ast.Node, block text.Reader, pc parser.Context) ast.Node {
	line, _ := block.PeekLine()
	rest, ok := bytes.CutPrefix(line, []byte(buttonPrefix))
	if !ok {
		return nil
	}

	label, rest, ok := bytes.Cut(rest, []byte("]("))
	if !ok || bytes.IndexByte(label, ']') >= 0 {
		return nil
	}

	url, _, ok := bytes.Cut(rest, []byte(")"))
	if !ok {
		return nil
	}

	block.Advance(len(buttonPrefix) + len(label) + 2 + len(url) + 1)

	return &ButtonNode{URL: url, Label: label}
}

// ButtonOption configures button rendering.
type ButtonOption func(*buttonRenderer)

// WithButtonClass sets the CSS class on rendered buttons. Default: "btn".
func WithButtonClass(class string) ButtonOption {
	return func(r *buttonRenderer) {
		r.class = class
	}
}

// WithButtonStyle sets the inline style on rendered buttons.
// An empty style omits the attribute.
func WithButtonStyle(style string) ButtonOption {
	return func(r *buttonRenderer) {
		r.style = style
	}
}

type buttonRenderer struct {
	class string
	style string
	html.Config
}

// NewButtonRenderer creates the node renderer for ButtonNode.
func NewButtonRenderer(opts ...ButtonOption) renderer.NodeRenderer {
	r := &buttonRenderer{
		Config: html.NewConfig(),
		class:  "btn",
		style:  DefaultButtonStyle,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *buttonRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(KindButton, r.renderButton)
}

func (r *buttonRenderer) renderButton(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}

	n := node.(*ButtonNode)

	_, _ = w.WriteString(`<a href="`)
	_, _ = w.Write(util.EscapeHTML(util.URLEscape(n.URL, true)))
	_, _ = w.WriteString(`"`)
	if r.class != "" {
		_, _ = w.WriteString(` class="`)
		_, _ = w.Write(util.EscapeHTML([]byte(r.class)))
		_, _ = w.WriteString(`"`)
	}
	if r.style != "" {
		_, _ = w.WriteString(` style="`)
		_, _ = w.Write(util.EscapeHTML([]byte(r.style)))
		_, _ = w.WriteString(`"`)
	}
	_, _ = w.WriteString(`>`)
	_, _ = w.Write(util.EscapeHTML(n.Label))
	_, _ = w.WriteString(`</a>`)

	return ast.WalkContinue, nil
}

// ButtonExtension is a goldmark extension for call-to-action buttons.
type ButtonExtension struct {
	opts []ButtonOption
}

func (e *ButtonExtension) Extend(m goldmark.Markdown) {
	m.Parser().AddOptions(parser.WithInlineParsers(
		util.Prioritized(NewButtonParser(), 50),
	))
	m.Renderer().AddOptions(renderer.WithNodeRenderers(
		util.Prioritized(NewButtonRenderer(e.opts...), 50),
	))
}

// NewButtonExtension creates a new button extension for goldmark.
func NewButtonExtension(opts ...ButtonOption) goldmark.Extender {
	return &ButtonExtension{opts: opts}
}
