package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Mr-Dark-debug/timelineview/internal/htmlview"
	"github.com/Mr-Dark-debug/timelineview/internal/layout"
	"github.com/Mr-Dark-debug/timelineview/internal/timeline"
)

const (
	glyphMarker       = "○"
	glyphMarkerActive = "●"
	glyphImage        = "▣"
	glyphLink         = "↗"
)

// renderTimeline renders every item for the current orientation. It also
// returns the first content line of each item for scrolling.
func renderTimeline(m *Model, width int) (string, []int) {
	st := stylesFor(m.state.Dark)
	switch m.state.Orientation {
	case layout.Horizontal:
		return renderHorizontal(m, st, width), make([]int, len(m.state.Items))
	case layout.Alternating:
		return renderAlternating(m, st, width)
	default:
		return renderVertical(m, st, width)
	}
}

func renderVertical(m *Model, st styles, width int) (string, []int) {
	offsets := make([]int, len(m.state.Items))
	var lines []string

	cardWidth := maxInt(width-4, 10)
	for i, item := range m.state.Items {
		if i > 0 {
			lines = append(lines, st.line.Render(" │"))
		}
		offsets[i] = len(lines)

		p := layout.Place(layout.Vertical, i, item.HasImage())
		card := strings.Split(renderCard(m, st, item, cardWidth-2, p), "\n")
		for j, l := range card {
			prefix := st.line.Render("│ ")
			if j == 0 {
				prefix = markerGlyph(st, item) + " "
			}
			card[j] = prefix + l
		}
		lines = append(lines, selectBlock(m, st, i, strings.Join(card, "\n")))
	}
	return strings.Join(lines, "\n"), adjustOffsets(offsets, lines)
}

func renderAlternating(m *Model, st styles, width int) (string, []int) {
	offsets := make([]int, len(m.state.Items))
	laneWidth := maxInt((width-3)/2, 10)

	var rows []string
	row := 0
	for i, item := range m.state.Items {
		p := layout.Place(layout.Alternating, i, item.HasImage())
		card := selectBlock(m, st, i, renderCard(m, st, item, laneWidth-2, p))
		cell := lipgloss.NewStyle().Width(laneWidth).Align(alignOf(p.TextAlign)).Render(card)
		blank := lipgloss.NewStyle().Width(laneWidth).Render("")

		height := lipgloss.Height(cell)
		spine := make([]string, height)
		spine[0] = " " + markerGlyph(st, item) + " "
		for j := 1; j < height; j++ {
			spine[j] = st.line.Render(" │ ")
		}

		left, right := blank, cell
		if p.Lane == layout.LaneLeft {
			left, right = cell, blank
		}

		offsets[i] = row
		rendered := lipgloss.JoinHorizontal(lipgloss.Top, left, strings.Join(spine, "\n"), right)
		rows = append(rows, rendered)
		row += height
	}
	return strings.Join(rows, "\n"), offsets
}

func renderHorizontal(m *Model, st styles, width int) string {
	n := len(m.state.Items)
	if n == 0 {
		return ""
	}
	colWidth := clamp(width/n, 18, 32)
	visible := maxInt(width/colWidth, 1)
	start := clamp(m.selected-visible+1, 0, maxInt(n-visible, 0))
	end := minInt(start+visible, n)

	cols := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		item := m.state.Items[i]
		p := layout.Place(layout.Horizontal, i, item.HasImage())

		half := (colWidth - 1) / 2
		rail := st.line.Render(strings.Repeat("─", half)) +
			markerGlyph(st, item) +
			st.line.Render(strings.Repeat("─", colWidth-1-half))

		card := selectBlock(m, st, i, renderCard(m, st, item, colWidth-3, p))
		body := lipgloss.NewStyle().Width(colWidth).Align(alignOf(p.TextAlign)).Render(card)
		cols = append(cols, lipgloss.JoinVertical(lipgloss.Left, rail, body))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

// renderCard renders the content block of one item: date, rich-text
// title, image slot and related link.
func renderCard(m *Model, st styles, item timeline.Entry, width int, p layout.Placement) string {
	width = maxInt(width, 8)
	align := alignOf(p.TextAlign)

	var parts []string
	if item.Date != "" {
		parts = append(parts, st.date.Render(truncate(item.Date, width)))
	}
	if item.DisplayName != "" {
		title := m.cfg.Terminal.Render(item.DisplayName, width, m.state.Dark)
		parts = append(parts, st.text.Width(width).Align(align).Render(title))
	}
	if item.HasImage() {
		parts = append(parts, st.image.Render(glyphImage+" "+truncate(item.Image, width-2)))
	}
	if item.RelatedLinks != "" {
		parts = append(parts, st.link.Render(glyphLink+" "+htmlview.DefaultText.Related))
	}
	if len(parts) == 0 {
		parts = append(parts, "")
	}
	return lipgloss.JoinVertical(align, parts...)
}

func markerGlyph(st styles, item timeline.Entry) string {
	if item.Active {
		return st.markerActive.Render(glyphMarkerActive)
	}
	return st.marker.Render(glyphMarker)
}

func selectBlock(m *Model, st styles, i int, block string) string {
	if i == m.selected {
		return st.selected.Render(block)
	}
	return st.unselected.Render(block)
}

func alignOf(textAlign string) lipgloss.Position {
	switch textAlign {
	case "right":
		return lipgloss.Right
	case "center":
		return lipgloss.Center
	default:
		return lipgloss.Left
	}
}

// adjustOffsets converts block indexes into line numbers once every block
// may span several lines.
func adjustOffsets(offsets []int, blocks []string) []int {
	lineOf := make([]int, len(blocks))
	line := 0
	for b, block := range blocks {
		lineOf[b] = line
		line += strings.Count(block, "\n") + 1
	}
	out := make([]int, len(offsets))
	for i, b := range offsets {
		out[i] = lineOf[b]
	}
	return out
}
