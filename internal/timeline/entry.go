// Package timeline implements the widget's state machine.
//
// The widget is modeled as an explicit transition function over an
// immutable-by-convention State value:
//
//	Reduce(State, Event) -> (State, []Effect)
//
// Rendering is a separate pure function over State (see internal/htmlview
// and internal/tui). Effects describe work the host performs on the
// reducer's behalf: fetching entries for a group, whose result comes back as
// a FetchResolved event, and emitting diagnostics.
package timeline

// Entry is one dated event on the timeline. Entries are supplied by a fetch
// collaborator and are read-only to the widget.
type Entry struct {
	Date         string `json:"date,omitempty" yaml:"date,omitempty"`
	DisplayName  string `json:"displayName,omitempty" yaml:"displayName,omitempty"`
	Image        string `json:"image,omitempty" yaml:"image,omitempty"`
	RelatedLinks string `json:"relatedLinks,omitempty" yaml:"relatedLinks,omitempty"`
	Active       bool   `json:"active" yaml:"active"`
}

// HasImage reports whether the entry has a dedicated image slot.
func (e Entry) HasImage() bool {
	return e.Image != ""
}

// cloneEntries returns a copy of entries so the caller's slice can never
// alias widget state. A nil or empty input yields an empty, non-nil slice.
func cloneEntries(entries []Entry) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}
