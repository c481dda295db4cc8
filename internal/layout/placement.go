// Package layout decides where each timeline item sits relative to the
// connecting line. Everything here is a pure function of its arguments.
package layout

import "strings"

// Orientation is the widget's layout mode.
type Orientation int

const (
	Vertical Orientation = iota
	Horizontal
	Alternating
)

// String returns the attribute value used in markup and configuration.
func (o Orientation) String() string {
	switch o {
	case Horizontal:
		return "horizontal"
	case Alternating:
		return "alternating"
	default:
		return "vertical"
	}
}

// ParseOrientation maps a configuration value to an Orientation.
// Unknown or empty values fall back to Vertical; ok reports whether the
// value was recognised.
func ParseOrientation(s string) (o Orientation, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "vertical":
		return Vertical, true
	case "horizontal":
		return Horizontal, true
	case "alternating":
		return Alternating, true
	default:
		return Vertical, false
	}
}

// Next cycles through the orientations in declaration order.
func (o Orientation) Next() Orientation {
	switch o {
	case Vertical:
		return Horizontal
	case Horizontal:
		return Alternating
	default:
		return Vertical
	}
}

// Lane is the side of the center line an item's content occupies.
type Lane int

const (
	LaneNone Lane = iota
	LaneLeft
	LaneRight
)

func (l Lane) String() string {
	switch l {
	case LaneLeft:
		return "left"
	case LaneRight:
		return "right"
	default:
		return "none"
	}
}

// Placement describes how a single item is laid out.
type Placement struct {
	Lane Lane

	// ItemClass is the extra class on the item container
	// ("timeline-item-left", "timeline-item-right" or empty).
	ItemClass string

	// ContentClass selects inner padding; it only depends on hasImage.
	ContentClass string

	// TextAlign is the alignment of the item's text block.
	TextAlign string
}

// Place returns the placement of the item at index for orientation o.
//
// In alternating mode even indices go to the right lane and odd indices to
// the left lane; text alignment mirrors the lane. hasImage never influences
// the lane.
func Place(o Orientation, index int, hasImage bool) Placement {
	p := Placement{
		Lane:         LaneNone,
		ContentClass: "timeline-content",
		TextAlign:    "left",
	}
	if hasImage {
		p.ContentClass = "timeline-content timeline-content-image"
	}

	switch o {
	case Horizontal:
		p.TextAlign = "center"
	case Alternating:
		if isEven(index) {
			p.Lane = LaneRight
			p.ItemClass = "timeline-item-right"
			p.TextAlign = "left"
		} else {
			p.Lane = LaneLeft
			p.ItemClass = "timeline-item-left"
			p.TextAlign = "right"
		}
	}
	return p
}

// isEven is also correct for negative indices: -4%2 == 0, -3%2 == -1.
func isEven(i int) bool {
	return i%2 == 0
}
