package timeline

import "github.com/Mr-Dark-debug/timelineview/internal/layout"

// Phase is the coarse lifecycle position of a widget.
type Phase int

const (
	// PhaseIdle: no group identifier set, nothing requested yet.
	PhaseIdle Phase = iota
	// PhaseLoading: a fetch is outstanding.
	PhaseLoading
	// PhaseLoaded: the latest fetch succeeded with at least one entry.
	PhaseLoaded
	// PhaseEmpty: the latest fetch returned nothing or failed.
	PhaseEmpty
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseLoaded:
		return "loaded"
	case PhaseEmpty:
		return "empty"
	default:
		return "idle"
	}
}

// State is everything one mounted widget knows. It is a value: Reduce
// returns a new State and never modifies the one it was given.
type State struct {
	// ID identifies the mount in diagnostics.
	ID string

	Group       string
	Items       []Entry
	Loading     bool
	Dark        bool
	Orientation layout.Orientation

	// Preview is the URL shown in the overlay; empty means closed.
	Preview string

	Phase Phase

	// LastErr is the failure of the latest fetch, kept for diagnostics only.
	LastErr error

	// gen is the generation of the most recently initiated fetch.
	gen uint64
}

// NewState returns the state of a freshly mounted widget.
func NewState(id string, o layout.Orientation) State {
	return State{
		ID:          id,
		Items:       []Entry{},
		Orientation: o,
		Phase:       PhaseIdle,
	}
}

// Generation returns the generation of the most recently initiated fetch,
// or zero if none was ever started.
func (s State) Generation() uint64 {
	return s.gen
}

// PreviewOpen reports whether the image overlay is visible.
func (s State) PreviewOpen() bool {
	return s.Preview != ""
}

// ShowLoading reports whether the render pass should show the loading
// message instead of items.
func (s State) ShowLoading() bool {
	return s.Loading && len(s.Items) == 0
}

// ShowEmpty reports whether the render pass should show the empty-state
// message.
func (s State) ShowEmpty() bool {
	return !s.Loading && len(s.Items) == 0
}
