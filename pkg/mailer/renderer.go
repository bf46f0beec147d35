package mailer

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path"
	"strings"
	"sync"
	texttemplate "text/template"

	"github.com/yuin/goldmark"
)

// Renderer turns template files into HTML.
//
// Two formats are supported, chosen by file extension:
//   - .html: html/template with optional YAML frontmatter, rendered as is
//   - .md: markdown with optional YAML frontmatter, wrapped in a layout when one is configured
type Renderer struct {
	fs fs.FS
	md goldmark.Markdown // cached markdown processor

	// Caches (safe: stores parsed structure, not rendered output)
	templateCache map[string]*cachedTemplate
	layoutCache   map[string]*template.Template
	templateDir   string
	layoutDir     string
	defaultLayout string

	mu sync.RWMutex
}

// cachedTemplate holds parsed template data for reuse.
// Exactly one of page and markdown is set.
type cachedTemplate struct {
	metadata map[string]any
	page     *template.Template
	markdown *texttemplate.Template
}

// RendererConfig configures the renderer.
type RendererConfig struct {
	TemplateDir   string // Default: "."
	LayoutDir     string // Default: "layouts"
	DefaultLayout string // Layout for markdown templates; empty renders markdown without a layout
}

// NewRenderer creates a new renderer with default config.
func NewRenderer(filesystem fs.FS) *Renderer {
	return NewRendererWithConfig(filesystem, RendererConfig{})
}

// NewDirRenderer creates a renderer reading templates from dir on disk.
// cfg.TemplateDir is ignored; LayoutDir is relative to dir.
func NewDirRenderer(dir string, cfg RendererConfig) *Renderer {
	cfg.TemplateDir = "."
	return NewRendererWithConfig(os.DirFS(dir), cfg)
}

// NewRendererWithConfig creates a new renderer with custom config.
func NewRendererWithConfig(filesystem fs.FS, opts RendererConfig) *Renderer {
	if opts.TemplateDir == "" {
		opts.TemplateDir = "."
	}
	if opts.LayoutDir == "" {
		opts.LayoutDir = "layouts"
	}

	return &Renderer{
		fs:            filesystem,
		templateDir:   opts.TemplateDir,
		layoutDir:     opts.LayoutDir,
		defaultLayout: opts.DefaultLayout,
		md: goldmark.New(
			goldmark.WithExtensions(NewButtonExtension()),
		),
		templateCache: make(map[string]*cachedTemplate),
		layoutCache:   make(map[string]*template.Template),
	}
}

// RenderResult contains the rendered HTML, plain text, and extracted metadata.
type RenderResult struct {
	Metadata map[string]any
	HTML     string
	Text     string // Processed markdown for .md templates, empty for .html templates
}

// Subject returns the Subject frontmatter field, if any.
func (r *RenderResult) Subject() string {
	s, _ := r.Metadata["Subject"].(string)
	return s
}

// RenderHTML renders the named template and returns only the HTML.
func (r *Renderer) RenderHTML(name string, data any) (string, error) {
	res, err := r.Render(name, data)
	if err != nil {
		return "", err
	}
	return res.HTML, nil
}

// Render renders the named template with data using the default layout.
// name may omit the extension; "welcome" resolves to welcome.html, then welcome.md.
func (r *Renderer) Render(name string, data any) (*RenderResult, error) {
	return r.RenderWithLayout(r.defaultLayout, name, data)
}

// RenderWithLayout renders the named template, wrapping markdown output in layout.
// An empty layout renders markdown without a layout.
func (r *Renderer) RenderWithLayout(layout, name string, data any) (*RenderResult, error) {
	cached, err := r.getTemplate(name)
	if err != nil {
		return nil, err
	}

	if cached.page != nil {
		var out bytes.Buffer
		if err := cached.page.Execute(&out, data); err != nil {
			return nil, fmt.Errorf("%w: %s: failed to execute template: %v", ErrRenderFailed, name, err)
		}
		return &RenderResult{HTML: out.String(), Metadata: cached.metadata}, nil
	}

	var processedMarkdown bytes.Buffer
	if err := cached.markdown.Execute(&processedMarkdown, data); err != nil {
		return nil, fmt.Errorf("%w: %s: failed to execute template: %v", ErrRenderFailed, name, err)
	}

	var htmlContent bytes.Buffer
	if err := r.md.Convert(processedMarkdown.Bytes(), &htmlContent); err != nil {
		return nil, fmt.Errorf("%w: %s: failed to convert markdown: %v", ErrRenderFailed, name, err)
	}

	result := &RenderResult{
		HTML:     htmlContent.String(),
		Text:     processedMarkdown.String(),
		Metadata: cached.metadata,
	}
	if layout == "" {
		return result, nil
	}

	layoutTmpl, err := r.getLayout(layout)
	if err != nil {
		return nil, err
	}

	var finalHTML bytes.Buffer
	layoutData := map[string]any{
		"Content":  template.HTML(result.HTML),
		"Metadata": cached.metadata,
	}
	if err := layoutTmpl.Execute(&finalHTML, layoutData); err != nil {
		return nil, fmt.Errorf("%w: %s: failed to execute layout: %v", ErrRenderFailed, layout, err)
	}
	result.HTML = finalHTML.String()

	return result, nil
}

// getTemplate returns a cached template or parses and caches it.
func (r *Renderer) getTemplate(name string) (*cachedTemplate, error) {
	r.mu.RLock()
	if cached, ok := r.templateCache[name]; ok {
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check after acquiring write lock
	if cached, ok := r.templateCache[name]; ok {
		return cached, nil
	}

	file, content, err := r.readTemplate(name)
	if err != nil {
		return nil, err
	}

	parsed, err := ParseTemplate(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRenderFailed, name, err)
	}

	cached := &cachedTemplate{metadata: parsed.Metadata}
	if path.Ext(file) == ".md" {
		cached.markdown, err = texttemplate.New(name).Parse(parsed.Body)
	} else {
		cached.page, err = template.New(name).Parse(parsed.Body)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: failed to parse template body: %v", ErrRenderFailed, name, err)
	}

	r.templateCache[name] = cached
	return cached, nil
}

// readTemplate resolves name to a file under the template directory.
func (r *Renderer) readTemplate(name string) (string, []byte, error) {
	if name == "" || !fs.ValidPath(name) {
		return "", nil, fmt.Errorf("%w: %q", ErrTemplateNotFound, name)
	}

	candidates := []string{name}
	if path.Ext(name) == "" {
		candidates = []string{name + ".html", name + ".md"}
	}

	var lastErr error
	for _, candidate := range candidates {
		file := path.Join(r.templateDir, candidate)
		content, err := fs.ReadFile(r.fs, file)
		if err == nil {
			return file, content, nil
		}
		lastErr = err
		if !errors.Is(err, fs.ErrNotExist) {
			break
		}
	}

	return "", nil, fmt.Errorf("%w: %s (tried %s): %v", ErrTemplateNotFound, name, strings.Join(candidates, ", "), lastErr)
}

// getLayout returns a cached layout template or parses and caches it.
func (r *Renderer) getLayout(name string) (*template.Template, error) {
	r.mu.RLock()
	if cached, ok := r.layoutCache[name]; ok {
		r.mu.RUnlock()
		return cached, nil
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if cached, ok := r.layoutCache[name]; ok {
		return cached, nil
	}

	content, err := fs.ReadFile(r.fs, path.Join(r.layoutDir, name))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrLayoutNotFound, name, err)
	}

	layoutTmpl, err := template.New(name).Parse(string(content))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse layout: %v", ErrRenderFailed, err)
	}

	r.layoutCache[name] = layoutTmpl
	return layoutTmpl, nil
}
