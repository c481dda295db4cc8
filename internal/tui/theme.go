package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/Mr-Dark-debug/timelineview/internal/htmlview"
)

// ────────────────────────────────────────────────────────────
// Palette
// ────────────────────────────────────────────────────────────
//
// Colors come from the widget tokens so the terminal and the HTML page
// share one palette. No ad-hoc color literals outside this file.

type palette struct {
	text         lipgloss.Color
	line         lipgloss.Color
	surface      lipgloss.Color
	markerBorder lipgloss.Color
	markerActive lipgloss.Color
	title        lipgloss.Color
	date         lipgloss.Color
	link         lipgloss.Color
	empty        lipgloss.Color
}

func token(name string, dark bool) lipgloss.Color {
	v, _ := htmlview.Lookup(name, dark)
	return lipgloss.Color(v)
}

func newPalette(dark bool) palette {
	return palette{
		text:         token("--timeline-text-color", dark),
		line:         token("--timeline-line-color", dark),
		surface:      token("--timeline-bg-color-hover", dark),
		markerBorder: token("--timeline-marker-border", dark),
		markerActive: token("--timeline-marker-active-bg", dark),
		title:        token("--timeline-title-color", dark),
		date:         token("--timeline-date-color", dark),
		link:         token("--timeline-link-color", dark),
		empty:        token("--timeline-empty-color", dark),
	}
}

// ────────────────────────────────────────────────────────────
// Component Styles
// ────────────────────────────────────────────────────────────

type styles struct {
	// Header and footer bars
	bar       lipgloss.Style
	brand     lipgloss.Style
	sep       lipgloss.Style
	meta      lipgloss.Style
	status    lipgloss.Style
	statusErr lipgloss.Style
	hintKey   lipgloss.Style
	hintDesc  lipgloss.Style

	// Items
	line         lipgloss.Style
	marker       lipgloss.Style
	markerActive lipgloss.Style
	date         lipgloss.Style
	text         lipgloss.Style
	link         lipgloss.Style
	image        lipgloss.Style
	selected     lipgloss.Style
	unselected   lipgloss.Style
	empty        lipgloss.Style

	// Preview modal
	modal      lipgloss.Style
	modalTitle lipgloss.Style
	modalClose lipgloss.Style
}

func newStyles(dark bool) styles {
	p := newPalette(dark)
	return styles{
		bar: lipgloss.NewStyle().
			Background(p.surface).
			Foreground(p.text).
			Padding(0, 1),
		brand: lipgloss.NewStyle().
			Bold(true).
			Foreground(p.markerActive),
		sep: lipgloss.NewStyle().
			Foreground(p.line),
		meta: lipgloss.NewStyle().
			Foreground(p.date),
		status: lipgloss.NewStyle().
			Foreground(p.text).
			Padding(0, 1),
		statusErr: lipgloss.NewStyle().
			Foreground(p.link).
			Bold(true).
			Padding(0, 1),
		hintKey: lipgloss.NewStyle().
			Foreground(p.title).
			Bold(true),
		hintDesc: lipgloss.NewStyle().
			Foreground(p.empty),

		line: lipgloss.NewStyle().
			Foreground(p.line),
		marker: lipgloss.NewStyle().
			Foreground(p.markerBorder),
		markerActive: lipgloss.NewStyle().
			Foreground(p.markerActive).
			Bold(true),
		date: lipgloss.NewStyle().
			Foreground(p.date),
		text: lipgloss.NewStyle().
			Foreground(p.text),
		link: lipgloss.NewStyle().
			Foreground(p.link).
			Underline(true),
		image: lipgloss.NewStyle().
			Foreground(p.title),
		selected: lipgloss.NewStyle().
			Border(lipgloss.Border{Left: "┃"}, false, false, false, true).
			BorderForeground(p.markerActive),
		unselected: lipgloss.NewStyle().
			PaddingLeft(1),
		empty: lipgloss.NewStyle().
			Foreground(p.empty).
			Padding(2, 4),

		modal: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.markerActive).
			Foreground(p.text).
			Padding(1, 2),
		modalTitle: lipgloss.NewStyle().
			Foreground(p.title).
			Bold(true),
		modalClose: lipgloss.NewStyle().
			Foreground(p.link).
			Bold(true),
	}
}

var (
	lightStyles = newStyles(false)
	darkStyles  = newStyles(true)
)

func stylesFor(dark bool) styles {
	if dark {
		return darkStyles
	}
	return lightStyles
}
