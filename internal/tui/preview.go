package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Mr-Dark-debug/timelineview/internal/htmlview"
)

// box is the on-screen rectangle of the preview modal, in body
// coordinates.
type box struct {
	x, y, w, h int
}

// previewBox computes where the modal sits in a body of the given size.
// The modal takes most of the body and is centered in it.
func previewBox(width, height int) box {
	w := clamp(width*3/4, minInt(20, width), width)
	h := clamp(height/2, minInt(7, height), height)
	return box{x: (width - w) / 2, y: (height - h) / 2, w: w, h: h}
}

func (b box) contains(x, y int) bool {
	return x >= b.x && x < b.x+b.w && y >= b.y && y < b.y+b.h
}

// closeHit reports a click on the close control, which sits on the first
// content row of the modal, flush with its right padding.
func (b box) closeHit(x, y int) bool {
	frame := lightStyles.modal
	top := b.y + frame.GetBorderTopSize() + frame.GetPaddingTop()
	right := b.x + b.w - frame.GetBorderRightSize() - frame.GetPaddingRight()
	return y == top && x >= right-closeWidth && x < right
}

const closeLabel = "[x]"

var closeWidth = lipgloss.Width(closeLabel)

// renderPreview draws the preview overlay as a centered modal. A terminal
// cannot draw the image itself, so the modal names its source.
func renderPreview(m *Model, st styles, width, height int) string {
	b := previewBox(width, height)
	inner := maxInt(b.w-st.modal.GetHorizontalFrameSize(), 4)

	heading := st.modalTitle.Render(htmlview.DefaultText.Preview)
	closer := st.modalClose.Render(closeLabel)
	gap := maxInt(inner-lipgloss.Width(heading)-lipgloss.Width(closer), 1)

	lines := []string{
		heading + strings.Repeat(" ", gap) + closer,
		"",
		st.image.Render(glyphImage + " " + truncate(m.state.Preview, inner-2)),
	}

	modal := st.modal.
		Width(b.w - 2).
		Height(maxInt(b.h-2, 1)).
		Render(strings.Join(lines, "\n"))

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, modal)
}
