package timeline

import (
	"github.com/Mr-Dark-debug/timelineview/pkg/timeutil"
)

// Reducer holds the pure collaborators the transition function needs.
type Reducer struct {
	// RichTextImages lists the images present in the rendered form of an
	// entry description. When nil, clicks on rich-text images are ignored.
	RichTextImages func(text string) []string
}

// Reduce applies ev to s with a zero Reducer.
func Reduce(s State, ev Event) (State, []Effect) {
	return Reducer{}.Reduce(s, ev)
}

// Reduce returns the state that follows s after ev, plus the effects the
// host must run. It has no side effects.
func (r Reducer) Reduce(s State, ev Event) (State, []Effect) {
	switch ev := ev.(type) {
	case Mounted:
		s.Dark = ev.Dark
		return s.requestGroup(ev.Group)

	case GroupChanged:
		return s.requestGroup(ev.Group)

	case FetchResolved:
		return s.resolve(ev)

	case ThemeChanged:
		s.Dark = ev.Dark
		return s, nil

	case OrientationChanged:
		s.Orientation = ev.Orientation
		return s, nil

	case ImageClicked:
		return r.openPreview(s, ev)

	case OverlayClicked:
		if ev.Target == TargetImage {
			return s, nil
		}
		s.Preview = ""
		return s, nil

	case PreviewClosed:
		s.Preview = ""
		return s, nil

	default:
		return s, nil
	}
}

// requestGroup starts a fetch for group unless it is empty or already
// being fetched. An empty group keeps the items but abandons any fetch in
// flight, so its result is discarded as stale.
func (s State) requestGroup(group string) (State, []Effect) {
	if group == "" {
		s.Group = ""
		if s.Loading {
			s.gen++
			s.Loading = false
		}
		if len(s.Items) == 0 {
			s.Phase = PhaseIdle
		}
		return s, nil
	}
	if group == s.Group && s.Loading {
		return s, []Effect{diagnose(LevelDebug, "widget %s: fetch for %q already in flight", s.ID, group)}
	}

	s.gen++
	s.Group = group
	s.Loading = true
	s.Phase = PhaseLoading
	return s, []Effect{Fetch{Gen: s.gen, Group: group}}
}

func (s State) resolve(ev FetchResolved) (State, []Effect) {
	if !s.Loading || ev.Gen != s.gen {
		return s, []Effect{diagnose(LevelDebug,
			"widget %s: discarding stale result for %q (generation %d, latest %d, loading %t)",
			s.ID, ev.Group, ev.Gen, s.gen, s.Loading)}
	}

	s.Loading = false
	if ev.Err != nil {
		s.Items = []Entry{}
		s.Phase = PhaseEmpty
		s.LastErr = ev.Err
		return s, []Effect{diagnose(LevelError,
			"widget %s: fetching timeline for group %q: %v", s.ID, ev.Group, ev.Err)}
	}

	s.Items = cloneEntries(ev.Items)
	s.LastErr = nil
	s.Phase = PhaseLoaded
	if len(s.Items) == 0 {
		s.Phase = PhaseEmpty
	}
	return s, []Effect{diagnose(LevelInfo,
		"widget %s: loaded %d entries for group %q in %s",
		s.ID, len(s.Items), ev.Group, timeutil.FormatDuration(ev.Elapsed))}
}

func (r Reducer) openPreview(s State, ev ImageClicked) (State, []Effect) {
	if ev.URL == "" || ev.Index < 0 || ev.Index >= len(s.Items) {
		return s, nil
	}
	item := s.Items[ev.Index]

	ok := false
	switch ev.Origin {
	case OriginSlot:
		ok = item.Image == ev.URL
	case OriginRichText:
		if r.RichTextImages != nil {
			for _, src := range r.RichTextImages(item.DisplayName) {
				if src == ev.URL {
					ok = true
					break
				}
			}
		}
	}
	if !ok {
		return s, []Effect{diagnose(LevelDebug,
			"widget %s: ignoring %s image click on item %d", s.ID, ev.Origin, ev.Index)}
	}

	s.Preview = ev.URL
	return s, nil
}
