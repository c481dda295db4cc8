package htmlview

import (
	"fmt"
	"strings"
)

// Token is a named style variable with its light and dark values. The
// render pass never computes colors; it only picks a set.
type Token struct {
	Name  string
	Light string
	Dark  string
}

// Tokens is the widget palette.
var Tokens = []Token{
	{"--timeline-text-color", "#374151", "#e5e7eb"},
	{"--timeline-line-color", "#e5e7eb", "#4b5563"},
	{"--timeline-bg-color", "transparent", "transparent"},
	{"--timeline-bg-color-hover", "#f9fafb", "#1f2937"},
	{"--timeline-marker-bg", "#fff", "#374151"},
	{"--timeline-marker-border", "#9ca3af", "#6b7280"},
	{"--timeline-marker-active-bg", "#6366f1", "#818cf8"},
	{"--timeline-title-color", "#111827", "#f3f4f6"},
	{"--timeline-title-hover-color", "#6366f1", "#818cf8"},
	{"--timeline-date-color", "#6b7280", "#9ca3af"},
	{"--timeline-link-color", "#6366f1", "#818cf8"},
	{"--timeline-link-hover-color", "#4f46e5", "#a5b4fc"},
	{"--timeline-shadow", "0 1px 2px rgba(0, 0, 0, 0.05)", "0 1px 2px rgba(0, 0, 0, 0.2)"},
	{"--timeline-marker-shadow", "0 0 0 3px rgba(99, 102, 241, 0.1)", "0 0 0 3px rgba(129, 140, 248, 0.15)"},
	{"--timeline-empty-color", "#9ca3af", "#6b7280"},
	{"--timeline-code-bg", "rgba(99, 102, 241, 0.1)", "rgba(129, 140, 248, 0.15)"},
	{"--timeline-pre-bg", "rgba(99, 102, 241, 0.05)", "rgba(129, 140, 248, 0.08)"},
}

// Lookup returns the value of the named token for the given theme.
func Lookup(name string, dark bool) (string, bool) {
	for _, t := range Tokens {
		if t.Name == name {
			if dark {
				return t.Dark, true
			}
			return t.Light, true
		}
	}
	return "", false
}

// TokenCSS returns the variable declarations: the light set on
// .timeline-view and the dark set on .timeline-view.dark.
func TokenCSS() string {
	var b strings.Builder
	writeBlock(&b, ".timeline-view", false)
	writeBlock(&b, ".timeline-view.dark", true)
	return b.String()
}

func writeBlock(b *strings.Builder, selector string, dark bool) {
	fmt.Fprintf(b, "%s {\n", selector)
	for _, t := range Tokens {
		v := t.Light
		if dark {
			v = t.Dark
		}
		fmt.Fprintf(b, "  %s: %s;\n", t.Name, v)
	}
	b.WriteString("}\n")
}
