package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader produces the top bar:
//
//	TIMELINE │ team-x │ vertical │ 4 entries │ dark
func renderHeader(m *Model, st styles) string {
	sep := st.sep.Render(" │ ")

	parts := []string{st.brand.Render("TIMELINE")}

	group := m.state.Group
	if group == "" {
		group = "no group"
	}
	parts = append(parts, sep, st.meta.Render(truncate(group, maxInt(m.width/3, 8))))
	parts = append(parts, sep, st.meta.Render(m.state.Orientation.String()))
	if n := len(m.state.Items); n > 0 {
		parts = append(parts, sep, st.meta.Render(fmt.Sprintf("%d %s", n, plural(n, "entry", "entries"))))
	}
	scheme := "light"
	if m.state.Dark {
		scheme = "dark"
	}
	parts = append(parts, sep, st.meta.Render(scheme))

	return st.bar.Width(m.width).Render(strings.Join(parts, ""))
}

// renderFooter produces the bottom status bar with keyboard hints.
func renderFooter(m *Model, st styles) string {
	left := statusLine(m, st)

	var hints []hint
	if m.state.PreviewOpen() {
		hints = []hint{
			{"esc", "close"},
			{"q", "quit"},
		}
	} else {
		hints = []hint{
			{"↑↓", "select"},
			{"enter", "preview"},
			{"o", "layout"},
			{"r", "reload"},
			{"q", "quit"},
		}
	}
	right := renderHints(st, hints)

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}

	return st.bar.UnsetPadding().
		Width(m.width).
		Render(left + strings.Repeat(" ", gap) + right)
}

// statusLine summarizes the fetch phase of the widget.
func statusLine(m *Model, st styles) string {
	s := m.state
	switch {
	case s.Loading:
		return st.status.Render(m.spinner.View() + " loading " + s.Group)
	case s.LastErr != nil:
		return st.statusErr.Render(truncate("Error: "+s.LastErr.Error(), maxInt(m.width/2, 10)))
	case len(s.Items) > 0:
		return st.status.Render(fmt.Sprintf("%d/%d", m.selected+1, len(s.Items)))
	default:
		return ""
	}
}

type hint struct {
	key  string
	desc string
}

func renderHints(st styles, hints []hint) string {
	var parts []string
	for _, h := range hints {
		parts = append(parts,
			st.hintKey.Render(h.key)+" "+st.hintDesc.Render(h.desc))
	}
	return strings.Join(parts, st.hintDesc.Render("  "))
}
