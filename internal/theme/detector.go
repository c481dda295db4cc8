// Package theme reports whether the ambient environment prefers a dark
// color scheme and notifies subscribers when that may have changed.
//
// Two independent signals are OR-ed:
//
//   - an explicit environment preference (TIMELINE_COLOR_SCHEME, then
//     COLORFGBG, then optionally the terminal background);
//   - a host-page marker file whose root element carries class "dark" or
//     data-theme="dark", or which simply contains the word "dark".
//
// Notifications carry no value; subscribers re-probe.
package theme

import (
	"bytes"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/muesli/termenv"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// EnvScheme is the explicit color scheme preference ("dark" or "light").
const EnvScheme = "TIMELINE_COLOR_SCHEME"

// maxMarkerSize bounds how much of the marker file is read.
const maxMarkerSize = 1 << 20

// Logger receives diagnostics. *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

// Detector probes the dark-mode signals. The zero value consults only the
// process environment.
type Detector struct {
	// MarkerPath is the host-page marker file. Empty disables the signal.
	MarkerPath string

	// Terminal enables asking the terminal for its background color when
	// no environment preference is set. It may block briefly on a tty.
	Terminal bool

	// Getenv defaults to os.Getenv.
	Getenv func(string) string

	Logger Logger
}

// Probe reads the signals at call time. It never fails; missing or
// unreadable signals count as light.
func (d *Detector) Probe() bool {
	if d == nil {
		return false
	}
	return d.envPrefersDark() || d.markerIsDark()
}

func (d *Detector) getenv(key string) string {
	if d.Getenv != nil {
		return d.Getenv(key)
	}
	return os.Getenv(key)
}

func (d *Detector) envPrefersDark() bool {
	switch strings.ToLower(strings.TrimSpace(d.getenv(EnvScheme))) {
	case "dark":
		return true
	case "light":
		return false
	}

	if dark, ok := parseColorFGBG(d.getenv("COLORFGBG")); ok {
		return dark
	}

	if d.Terminal {
		return termenv.HasDarkBackground()
	}
	return false
}

// parseColorFGBG interprets the rxvt-style "fg;bg" (or "fg;default;bg")
// variable. Background colors 0-6 and 8 are dark.
func parseColorFGBG(v string) (dark, ok bool) {
	if v == "" {
		return false, false
	}
	parts := strings.Split(v, ";")
	bg, err := strconv.Atoi(strings.TrimSpace(parts[len(parts)-1]))
	if err != nil {
		return false, false
	}
	return bg == 8 || (bg >= 0 && bg <= 6), true
}

func (d *Detector) markerIsDark() bool {
	if d.MarkerPath == "" {
		return false
	}
	f, err := os.Open(d.MarkerPath)
	if err != nil {
		return false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxMarkerSize))
	if err != nil {
		if d.Logger != nil {
			d.Logger.Printf("[WARN] reading theme marker %s: %v", d.MarkerPath, err)
		}
		return false
	}
	return MarkerIsDark(data)
}

// MarkerIsDark interprets the contents of a host-page marker.
func MarkerIsDark(data []byte) bool {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return false
	}
	if trimmed[0] != '<' {
		return strings.EqualFold(string(trimmed), "dark")
	}

	doc, err := html.Parse(bytes.NewReader(trimmed))
	if err != nil {
		return false
	}
	return rootIsDark(doc)
}

// rootIsDark checks the <html> and <body> elements only; a dark class deeper
// in the page does not describe the page.
func rootIsDark(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		switch c.DataAtom {
		case atom.Html:
			if elementIsDark(c) || rootIsDark(c) {
				return true
			}
		case atom.Body:
			if elementIsDark(c) {
				return true
			}
		}
	}
	return false
}

func elementIsDark(n *html.Node) bool {
	for _, a := range n.Attr {
		switch a.Key {
		case "class":
			for _, cls := range strings.Fields(a.Val) {
				if cls == "dark" {
					return true
				}
			}
		case "data-theme", "data-color-scheme":
			if strings.EqualFold(strings.TrimSpace(a.Val), "dark") {
				return true
			}
		}
	}
	return false
}
