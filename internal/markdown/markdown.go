// Package markdown converts the constrained rich-text dialect used for
// timeline entry descriptions into markup that is safe to embed.
//
// The pipeline is:
//
//	goldmark (GFM, hard wraps) -> chroma code highlighting
//	  -> bluemonday sanitization -> image tagging
//
// Conversion never fails from the caller's point of view: on any error the
// input is handed back unchanged and Result.Fallback is set so that hosts can
// escape it before embedding.
package markdown

import (
	"bytes"
	"io"
	"log"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/util"
)

// Logger receives conversion diagnostics. *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

// Result is the outcome of a conversion.
type Result struct {
	// HTML is the sanitized markup, or the raw input when Fallback is set.
	HTML string
	// Images lists the src of every image left in HTML, in document order.
	Images []string
	// Fallback is true when conversion failed and HTML is the raw input.
	Fallback bool
}

// Renderer converts rich text to sanitized markup. The zero value is not
// usable; use New. A Renderer is safe for concurrent use.
type Renderer struct {
	convert func(src []byte, w io.Writer) error
	policy  *bluemonday.Policy
	logger  Logger
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithLogger directs diagnostics to l instead of the standard logger.
func WithLogger(l Logger) Option {
	return func(r *Renderer) {
		if l != nil {
			r.logger = l
		}
	}
}

// chromaClass matches the class names emitted by the chroma HTML formatter
// and goldmark's language-xxx hints.
var chromaClass = regexp.MustCompile(`^[a-zA-Z0-9 _-]+$`)

// New builds a Renderer with the default dialect and sanitization policy.
func New(opts ...Option) *Renderer {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			renderer.WithNodeRenderers(
				util.Prioritized(newCodeBlockRenderer(), 200),
			),
		),
	)

	r := &Renderer{
		convert: func(src []byte, w io.Writer) error { return md.Convert(src, w) },
		policy:  NewPolicy(),
		logger:  log.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// NewPolicy returns the sanitization policy applied to rendered markup.
//
// Links get rel="nofollow noreferrer" and, when fully qualified,
// target="_blank" with rel="noopener". Scripts, event handler attributes
// and javascript: URLs are always removed.
func NewPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.RequireNoReferrerOnLinks(true)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	p.AllowAttrs("class").Matching(chromaClass).OnElements("pre", "code", "span")
	p.AllowAttrs("align").Matching(regexp.MustCompile(`^(left|center|right)$`)).OnElements("th", "td")
	return p
}

// Render converts text and returns the embeddable markup. Empty input
// yields empty output. On failure the input is returned unchanged.
func (r *Renderer) Render(text string) string {
	return r.Convert(text).HTML
}

// Images returns the image URLs that the rendered form of text contains.
func (r *Renderer) Images(text string) []string {
	res := r.Convert(text)
	if res.Fallback {
		return nil
	}
	return res.Images
}

// Convert runs the full pipeline. It never panics.
func (r *Renderer) Convert(text string) (res Result) {
	if text == "" {
		return Result{}
	}

	defer func() {
		if p := recover(); p != nil {
			r.logger.Printf("[WARN] rich text conversion panicked, using raw text: %v", p)
			res = Result{HTML: text, Fallback: true}
		}
	}()

	var buf bytes.Buffer
	if err := r.convert([]byte(text), &buf); err != nil {
		r.logger.Printf("[WARN] rich text conversion failed, using raw text: %v", err)
		return Result{HTML: text, Fallback: true}
	}

	clean := r.policy.Sanitize(buf.String())

	tagged, images, err := tagImages(clean)
	if err != nil {
		r.logger.Printf("[WARN] tagging images in rich text: %v", err)
		return Result{HTML: text, Fallback: true}
	}

	return Result{HTML: strings.TrimRight(tagged, "\n"), Images: images}
}
