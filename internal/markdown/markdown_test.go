package markdown

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureLogger struct {
	lines []string
}

func (c *captureLogger) Printf(format string, v ...any) {
	c.lines = append(c.lines, fmt.Sprintf(format, v...))
}

func TestRenderEmpty(t *testing.T) {
	r := New()
	assert.Equal(t, "", r.Render(""))
	assert.Equal(t, Result{}, r.Convert(""))
}

func TestRenderStrong(t *testing.T) {
	r := New()
	assert.Equal(t, "<p><strong>Launch</strong></p>", r.Render("**Launch**"))
}

func TestRenderStripsActiveContent(t *testing.T) {
	r := New()
	inputs := []string{
		"<script>alert(1)</script>hello",
		`<img src="x" onerror="alert(1)">`,
		"[click](javascript:alert(1))",
		`<a href="javascript:alert(1)" onclick="steal()">x</a>`,
	}
	for _, in := range inputs {
		out := strings.ToLower(r.Render(in))
		assert.NotContains(t, out, "<script", in)
		assert.NotContains(t, out, "onerror", in)
		assert.NotContains(t, out, "onclick", in)
		assert.NotContains(t, out, "javascript:", in)
	}
}

func TestRenderLinksDoNotLeakReferrer(t *testing.T) {
	out := New().Render("[site](https://example.com/a)")
	assert.Contains(t, out, `href="https://example.com/a"`)
	assert.Contains(t, out, `target="_blank"`)
	assert.Contains(t, out, "noreferrer")
	assert.Contains(t, out, "noopener")
}

func TestRenderRelativeLinksStayInPage(t *testing.T) {
	out := New().Render("[docs](/docs/a)")
	assert.Contains(t, out, `href="/docs/a"`)
	assert.Contains(t, out, "noreferrer")
	assert.NotContains(t, out, `target="_blank"`)
}

func TestRenderHardBreaks(t *testing.T) {
	out := New().Render("first line\nsecond line")
	assert.Contains(t, out, "<br")
	assert.Contains(t, out, "second line")
}

func TestRenderConstructs(t *testing.T) {
	r := New()
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"heading", "### Title", []string{"<h3", "Title</h3>"}},
		{"emphasis", "*soft* and `code`", []string{"<em>soft</em>", "<code>code</code>"}},
		{"list", "- one\n- two", []string{"<ul>", "<li>one</li>"}},
		{"ordered", "1. one\n2. two", []string{"<ol>"}},
		{"quote", "> quoted", []string{"<blockquote>"}},
		{"rule", "a\n\n---\n\nb", []string{"<hr"}},
		{"table", "| a | b |\n|---|---|\n| 1 | 2 |", []string{"<table>", "<td>1</td>"}},
		{"strike", "~~gone~~", []string{"<del>gone</del>"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := r.Render(tt.in)
			for _, w := range tt.want {
				assert.Contains(t, out, w)
			}
		})
	}
}

func TestRenderHighlightsFencedCode(t *testing.T) {
	out := New().Render("```go\nfunc main() {}\n```")
	assert.Contains(t, out, `class="chroma"`)
	assert.Contains(t, out, "main")

	plain := New().Render("```nosuchlanguage\n<b>x</b>\n```")
	assert.Contains(t, plain, "&lt;b&gt;x&lt;/b&gt;")
}

func TestConvertTagsImages(t *testing.T) {
	res := New().Convert("see ![shot](https://img.example/a.png) and ![b](https://img.example/b.png)")
	require.False(t, res.Fallback)
	assert.Equal(t, []string{"https://img.example/a.png", "https://img.example/b.png"}, res.Images)
	assert.Contains(t, res.HTML, `class="markdown-image"`)
	assert.Contains(t, res.HTML, `data-preview-src="https://img.example/a.png"`)
}

func TestImagesWithoutImages(t *testing.T) {
	assert.Empty(t, New().Images("no pictures here"))
}

func TestConvertFallsBackOnError(t *testing.T) {
	logs := &captureLogger{}
	r := New(WithLogger(logs))
	r.convert = func([]byte, io.Writer) error { return errors.New("boom") }

	res := r.Convert("**raw**")
	assert.True(t, res.Fallback)
	assert.Equal(t, "**raw**", res.HTML)
	assert.Nil(t, r.Images("**raw**"))
	require.NotEmpty(t, logs.lines)
	assert.True(t, strings.HasPrefix(logs.lines[0], "[WARN]"))
}

func TestConvertRecoversPanic(t *testing.T) {
	logs := &captureLogger{}
	r := New(WithLogger(logs))
	r.convert = func([]byte, io.Writer) error { panic("bad input") }

	var out string
	require.NotPanics(t, func() { out = r.Render("x") })
	assert.Equal(t, "x", out)
	assert.Len(t, logs.lines, 1)
}

func TestRenderMalformedNeverFails(t *testing.T) {
	r := New()
	for _, in := range []string{"**unclosed", "[link](", "```\nno end", "| a |\n|", "<div><span>", "\x00\xff"} {
		require.NotPanics(t, func() { _ = r.Render(in) })
	}
}

func TestCodeCSSScoped(t *testing.T) {
	css := CodeCSS(true, ".timeline.dark")
	assert.Contains(t, css, ".timeline.dark .chroma")
	assert.NotEmpty(t, CodeCSS(false, ""))
}

func TestTerminalRender(t *testing.T) {
	tr := NewTerminal(nil)
	assert.Equal(t, "", tr.Render("", 40, false))
	assert.Contains(t, tr.Render("**Launch**", 40, true), "Launch")
}
