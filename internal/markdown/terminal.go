package markdown

import (
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// TerminalRenderer renders rich text for a terminal. Glamour renderers are
// built lazily per (width, dark) pair and reused.
type TerminalRenderer struct {
	mu     sync.Mutex
	cache  map[termKey]*glamour.TermRenderer
	logger Logger
}

type termKey struct {
	width int
	dark  bool
}

// NewTerminal returns a TerminalRenderer that reports diagnostics to logger.
// A nil logger discards them.
func NewTerminal(logger Logger) *TerminalRenderer {
	return &TerminalRenderer{
		cache:  make(map[termKey]*glamour.TermRenderer),
		logger: logger,
	}
}

// Render converts text for display at the given width. Empty input yields
// empty output; on failure the raw text is returned.
func (t *TerminalRenderer) Render(text string, width int, dark bool) (out string) {
	if text == "" {
		return ""
	}
	if width < 10 {
		width = 10
	}

	defer func() {
		if p := recover(); p != nil {
			t.warn("terminal rich text panicked, using raw text: %v", p)
			out = text
		}
	}()

	r, err := t.renderer(width, dark)
	if err != nil {
		t.warn("building terminal renderer: %v", err)
		return text
	}

	rendered, err := r.Render(text)
	if err != nil {
		t.warn("terminal rich text conversion failed, using raw text: %v", err)
		return text
	}
	return strings.Trim(rendered, "\n")
}

func (t *TerminalRenderer) renderer(width int, dark bool) (*glamour.TermRenderer, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	key := termKey{width: width, dark: dark}
	if r, ok := t.cache[key]; ok {
		return r, nil
	}

	style := "light"
	if dark {
		style = "dark"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return nil, fmt.Errorf("glamour %s style: %w", style, err)
	}
	t.cache[key] = r
	return r, nil
}

func (t *TerminalRenderer) warn(format string, v ...any) {
	if t.logger != nil {
		t.logger.Printf("[WARN] "+format, v...)
	}
}
