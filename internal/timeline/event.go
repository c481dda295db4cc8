package timeline

import (
	"fmt"
	"time"

	"github.com/Mr-Dark-debug/timelineview/internal/layout"
)

// ────────────────────────────────────────────────────────────
// Events
// ────────────────────────────────────────────────────────────

// Event is an input to Reduce.
type Event interface {
	event()
}

// Mounted is delivered once when the widget is attached. Dark is the
// initial theme probe.
type Mounted struct {
	Group string
	Dark  bool
}

// GroupChanged is delivered when the configured group identifier changes.
type GroupChanged struct {
	Group string
}

// FetchResolved carries the outcome of a Fetch effect back to the reducer.
type FetchResolved struct {
	Gen     uint64
	Group   string
	Items   []Entry
	Err     error
	Elapsed time.Duration
}

// ThemeChanged carries the result of re-probing the theme detector.
type ThemeChanged struct {
	Dark bool
}

// OrientationChanged switches the layout mode.
type OrientationChanged struct {
	Orientation layout.Orientation
}

// Origin says where a clicked image was rendered.
type Origin int

const (
	// OriginSlot is the entry's dedicated image slot.
	OriginSlot Origin = iota
	// OriginRichText is an image embedded in the entry's description.
	OriginRichText
)

func (o Origin) String() string {
	if o == OriginRichText {
		return "rich-text"
	}
	return "slot"
}

// ImageClicked asks to open the preview for URL, shown on item Index.
type ImageClicked struct {
	Index  int
	URL    string
	Origin Origin
}

// OverlayTarget is the element of the preview overlay that was clicked.
type OverlayTarget int

const (
	TargetBackground OverlayTarget = iota
	TargetCloseButton
	TargetImage
)

func (t OverlayTarget) String() string {
	switch t {
	case TargetCloseButton:
		return "close-button"
	case TargetImage:
		return "image"
	default:
		return "background"
	}
}

// OverlayClicked is a click somewhere inside the open preview overlay.
type OverlayClicked struct {
	Target OverlayTarget
}

// PreviewClosed closes the overlay (escape key, programmatic close).
type PreviewClosed struct{}

func (Mounted) event()            {}
func (GroupChanged) event()       {}
func (FetchResolved) event()      {}
func (ThemeChanged) event()       {}
func (OrientationChanged) event() {}
func (ImageClicked) event()       {}
func (OverlayClicked) event()     {}
func (PreviewClosed) event()      {}

// ────────────────────────────────────────────────────────────
// Effects
// ────────────────────────────────────────────────────────────

// Effect is work the host performs on behalf of the reducer.
type Effect interface {
	effect()
}

// Fetch asks the host to retrieve the entries of Group and deliver the
// outcome as a FetchResolved carrying the same Gen.
type Fetch struct {
	Gen   uint64
	Group string
}

// Level is a diagnostic severity.
type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// Diagnose asks the host to record an operator-visible message.
type Diagnose struct {
	Level Level
	Msg   string
}

func (Fetch) effect()    {}
func (Diagnose) effect() {}

// Logger receives diagnostics. *log.Logger satisfies it.
type Logger interface {
	Printf(format string, v ...any)
}

// Emit writes d to l using the bracketed level prefix.
func (d Diagnose) Emit(l Logger) {
	if l == nil {
		return
	}
	l.Printf("[%s] %s", d.Level, d.Msg)
}

func diagnose(level Level, format string, v ...any) Diagnose {
	return Diagnose{Level: level, Msg: fmt.Sprintf(format, v...)}
}
