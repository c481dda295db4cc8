package markdown

import (
	"bytes"
	stdhtml "html"
	"strings"

	"github.com/alecthomas/chroma/v2"
	chromahtml "github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/renderer"
	"github.com/yuin/goldmark/util"
)

// Styles used for the generated highlight CSS.
const (
	lightCodeStyle = "github"
	darkCodeStyle  = "monokai"
)

// codeBlockRenderer renders fenced code blocks through chroma. Output uses
// CSS classes rather than inline styles so the sanitizer only has to allow
// class attributes, and light/dark colors come from the stylesheet.
type codeBlockRenderer struct {
	formatter *chromahtml.Formatter
}

func newCodeBlockRenderer() *codeBlockRenderer {
	return &codeBlockRenderer{
		formatter: chromahtml.New(chromahtml.WithClasses(true)),
	}
}

// RegisterFuncs implements renderer.NodeRenderer.
func (r *codeBlockRenderer) RegisterFuncs(reg renderer.NodeRendererFuncRegisterer) {
	reg.Register(ast.KindFencedCodeBlock, r.renderFencedCodeBlock)
}

func (r *codeBlockRenderer) renderFencedCodeBlock(w util.BufWriter, source []byte, node ast.Node, entering bool) (ast.WalkStatus, error) {
	if !entering {
		return ast.WalkContinue, nil
	}
	n := node.(*ast.FencedCodeBlock)

	var code strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		code.Write(seg.Value(source))
	}

	language := ""
	if n.Info != nil {
		language = string(n.Language(source))
	}

	highlighted, ok := r.highlight(code.String(), language)
	if !ok {
		_, _ = w.WriteString("<pre><code>")
		_, _ = w.WriteString(stdhtml.EscapeString(code.String()))
		_, _ = w.WriteString("</code></pre>\n")
		return ast.WalkSkipChildren, nil
	}

	_, _ = w.WriteString(highlighted)
	return ast.WalkSkipChildren, nil
}

// highlight returns chroma markup for code. ok is false when no lexer
// matches or tokenizing fails; callers then fall back to a plain block.
func (r *codeBlockRenderer) highlight(code, language string) (string, bool) {
	var lexer chroma.Lexer
	if language != "" {
		lexer = lexers.Get(language)
	}
	if lexer == nil {
		return "", false
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return "", false
	}

	var buf bytes.Buffer
	if err := r.formatter.Format(&buf, chromaStyles.Get(lightCodeStyle), iterator); err != nil {
		return "", false
	}
	return buf.String(), true
}

// CodeCSS returns the stylesheet for highlighted code blocks. Rules are
// scoped under scope (for example ".timeline.dark") when it is non-empty.
func CodeCSS(dark bool, scope string) string {
	name := lightCodeStyle
	if dark {
		name = darkCodeStyle
	}
	style := chromaStyles.Get(name)
	if style == nil {
		style = chromaStyles.Fallback
	}

	var buf bytes.Buffer
	formatter := chromahtml.New(chromahtml.WithClasses(true))
	if err := formatter.WriteCSS(&buf, style); err != nil {
		return ""
	}
	if scope == "" {
		return buf.String()
	}

	var out strings.Builder
	for _, line := range strings.Split(buf.String(), "\n") {
		if strings.HasPrefix(line, "/*") && strings.Contains(line, "*/ .") {
			// "/* Keyword */ .chroma .k { ... }"
			end := strings.Index(line, "*/ ") + 3
			out.WriteString(line[:end] + scope + " " + line[end:])
		} else if strings.HasPrefix(line, ".") {
			out.WriteString(scope + " " + line)
		} else {
			out.WriteString(line)
		}
		out.WriteString("\n")
	}
	return out.String()
}
