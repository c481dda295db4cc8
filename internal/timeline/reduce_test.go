package timeline

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/Mr-Dark-debug/timelineview/internal/layout"
)

func mount(t *testing.T, group string) (State, []Effect) {
	t.Helper()
	return Reduce(NewState("w1", layout.Vertical), Mounted{Group: group})
}

func onlyFetch(t *testing.T, effects []Effect) Fetch {
	t.Helper()
	var fetches []Fetch
	for _, e := range effects {
		if f, ok := e.(Fetch); ok {
			fetches = append(fetches, f)
		}
	}
	if len(fetches) != 1 {
		t.Fatalf("expected exactly one fetch effect, got %d (%v)", len(fetches), effects)
	}
	return fetches[0]
}

func hasFetch(effects []Effect) bool {
	for _, e := range effects {
		if _, ok := e.(Fetch); ok {
			return true
		}
	}
	return false
}

func TestMountWithoutGroupIsIdle(t *testing.T) {
	s, effects := mount(t, "")
	if hasFetch(effects) {
		t.Fatal("mount without group must not fetch")
	}
	if s.Loading {
		t.Error("Loading should remain false")
	}
	if s.Phase != PhaseIdle {
		t.Errorf("Phase = %s, want idle", s.Phase)
	}
	if !s.ShowEmpty() {
		t.Error("expected the empty-state message to be shown")
	}
	if len(effects) != 0 {
		t.Errorf("missing group is not an error; got effects %v", effects)
	}
}

func TestMountWithGroupStartsFetch(t *testing.T) {
	s, effects := mount(t, "team-x")
	f := onlyFetch(t, effects)
	if f.Group != "team-x" || f.Gen != s.Generation() {
		t.Fatalf("fetch = %+v, generation %d", f, s.Generation())
	}
	if !s.Loading || s.Phase != PhaseLoading {
		t.Fatalf("state after mount = %+v", s)
	}
	if !s.ShowLoading() {
		t.Error("expected the loading message with no items")
	}
}

func TestTeamXScenario(t *testing.T) {
	s, effects := mount(t, "team-x")
	f := onlyFetch(t, effects)

	s, _ = Reduce(s, FetchResolved{
		Gen:   f.Gen,
		Group: "team-x",
		Items: []Entry{{Date: "2024-01", DisplayName: "**Launch**", Active: true}},
	})

	if s.Loading {
		t.Error("Loading should be false after resolve")
	}
	if s.Phase != PhaseLoaded {
		t.Errorf("Phase = %s, want loaded", s.Phase)
	}
	if len(s.Items) != 1 || !s.Items[0].Active || s.Items[0].HasImage() {
		t.Fatalf("items = %+v", s.Items)
	}
}

func TestLastInitiatedFetchWins(t *testing.T) {
	s, effects := mount(t, "a")
	fa := onlyFetch(t, effects)

	s, effects = Reduce(s, GroupChanged{Group: "b"})
	fb := onlyFetch(t, effects)
	if fb.Gen <= fa.Gen {
		t.Fatalf("generation did not advance: a=%d b=%d", fa.Gen, fb.Gen)
	}

	bItems := []Entry{{DisplayName: "from b"}}
	aItems := []Entry{{DisplayName: "from a"}, {DisplayName: "also a"}}

	// B resolves first, then A arrives late.
	s, _ = Reduce(s, FetchResolved{Gen: fb.Gen, Group: "b", Items: bItems})
	s, effects = Reduce(s, FetchResolved{Gen: fa.Gen, Group: "a", Items: aItems})

	if len(s.Items) != 1 || s.Items[0].DisplayName != "from b" {
		t.Fatalf("items = %+v, want B's result", s.Items)
	}
	if len(effects) != 1 {
		t.Fatalf("expected one diagnostic for the stale result, got %v", effects)
	}
	if d, ok := effects[0].(Diagnose); !ok || d.Level != LevelDebug {
		t.Errorf("stale result effect = %v", effects[0])
	}
}

func TestStaleFailureDoesNotClearItems(t *testing.T) {
	s, effects := mount(t, "a")
	fa := onlyFetch(t, effects)
	s, effects = Reduce(s, GroupChanged{Group: "b"})
	fb := onlyFetch(t, effects)

	s, _ = Reduce(s, FetchResolved{Gen: fb.Gen, Group: "b", Items: []Entry{{Date: "1"}}})
	s, _ = Reduce(s, FetchResolved{Gen: fa.Gen, Group: "a", Err: errors.New("timeout")})

	if len(s.Items) != 1 || s.LastErr != nil {
		t.Fatalf("stale failure leaked into state: %+v", s)
	}
}

func TestItemsKeptWhileRefetching(t *testing.T) {
	s, effects := mount(t, "a")
	s, _ = Reduce(s, FetchResolved{Gen: onlyFetch(t, effects).Gen, Group: "a", Items: []Entry{{Date: "old"}}})

	s, effects = Reduce(s, GroupChanged{Group: "b"})
	onlyFetch(t, effects)
	if !s.Loading || len(s.Items) != 1 {
		t.Fatalf("items must survive until the new fetch resolves: %+v", s)
	}
	if s.ShowLoading() {
		t.Error("loading message must not replace existing items")
	}
}

func TestSameGroupWhileLoadingDoesNotRefetch(t *testing.T) {
	s, _ := mount(t, "a")
	gen := s.Generation()
	s, effects := Reduce(s, GroupChanged{Group: "a"})
	if hasFetch(effects) {
		t.Fatal("same group while loading must not start a second fetch")
	}
	if s.Generation() != gen {
		t.Errorf("generation changed from %d to %d", gen, s.Generation())
	}
}

func TestSameGroupAfterLoadRefetches(t *testing.T) {
	s, effects := mount(t, "a")
	s, _ = Reduce(s, FetchResolved{Gen: onlyFetch(t, effects).Gen, Group: "a"})
	_, effects = Reduce(s, GroupChanged{Group: "a"})
	onlyFetch(t, effects)
}

func TestEmptyGroupChangeLeavesItems(t *testing.T) {
	s, effects := mount(t, "a")
	s, _ = Reduce(s, FetchResolved{Gen: onlyFetch(t, effects).Gen, Group: "a", Items: []Entry{{Date: "x"}}})

	s, effects = Reduce(s, GroupChanged{Group: ""})
	if hasFetch(effects) {
		t.Fatal("empty group must not fetch")
	}
	if len(s.Items) != 1 || s.Loading {
		t.Fatalf("empty group mutated items/loading: %+v", s)
	}
}

func TestEmptyGroupAbandonsFetchInFlight(t *testing.T) {
	s, effects := mount(t, "a")
	fa := onlyFetch(t, effects)

	s, _ = Reduce(s, GroupChanged{Group: ""})
	if s.Loading || s.Phase != PhaseIdle {
		t.Fatalf("empty group should return to idle: loading=%t phase=%s", s.Loading, s.Phase)
	}

	s, _ = Reduce(s, FetchResolved{Gen: fa.Gen, Group: "a", Items: []Entry{{Date: "late"}}})
	if len(s.Items) != 0 || s.Phase != PhaseIdle {
		t.Fatalf("abandoned fetch was applied: items=%d phase=%s", len(s.Items), s.Phase)
	}
}

func TestResolutionWithoutFetchIsIgnored(t *testing.T) {
	s, _ := mount(t, "")
	s, effects := Reduce(s, FetchResolved{Gen: s.Generation(), Items: []Entry{{Date: "x"}}})
	if len(s.Items) != 0 || s.Phase != PhaseIdle {
		t.Fatalf("unrequested result was applied: items=%d phase=%s", len(s.Items), s.Phase)
	}
	if len(effects) != 1 {
		t.Fatalf("expected one diagnostic, got %v", effects)
	}
	if d, ok := effects[0].(Diagnose); !ok || d.Level != LevelDebug {
		t.Errorf("effect = %v, want debug diagnostic", effects[0])
	}
}

func TestResultAppliedOnlyOnce(t *testing.T) {
	s, effects := mount(t, "a")
	gen := onlyFetch(t, effects).Gen

	s, _ = Reduce(s, FetchResolved{Gen: gen, Group: "a", Items: []Entry{{Date: "x"}}})
	s, _ = Reduce(s, FetchResolved{Gen: gen, Group: "a", Err: errors.New("duplicate delivery")})

	if len(s.Items) != 1 || s.Phase != PhaseLoaded || s.LastErr != nil {
		t.Fatalf("second resolution of the same fetch was applied: %+v", s)
	}
}

func TestFetchFailureEmptiesItems(t *testing.T) {
	s, effects := mount(t, "a")
	s, _ = Reduce(s, FetchResolved{Gen: onlyFetch(t, effects).Gen, Group: "a", Items: []Entry{{Date: "x"}}})

	s, effects = Reduce(s, GroupChanged{Group: "b"})
	s, effects = Reduce(s, FetchResolved{Gen: onlyFetch(t, effects).Gen, Group: "b", Err: errors.New("503")})

	if len(s.Items) != 0 || s.Loading || s.Phase != PhaseEmpty {
		t.Fatalf("state after failure = %+v", s)
	}
	if s.LastErr == nil {
		t.Error("LastErr should record the failure")
	}
	if len(effects) != 1 {
		t.Fatalf("effects = %v", effects)
	}
	d, ok := effects[0].(Diagnose)
	if !ok || d.Level != LevelError || !strings.Contains(d.Msg, "503") {
		t.Errorf("failure diagnostic = %+v", effects[0])
	}
}

func TestEmptyResultIsEmptyPhase(t *testing.T) {
	s, effects := mount(t, "a")
	s, _ = Reduce(s, FetchResolved{Gen: onlyFetch(t, effects).Gen, Group: "a", Items: nil})
	if s.Phase != PhaseEmpty || !s.ShowEmpty() {
		t.Fatalf("state = %+v", s)
	}
	if s.Items == nil {
		t.Error("Items should be empty, not nil")
	}
}

func TestResolvedItemsAreCopied(t *testing.T) {
	s, effects := mount(t, "a")
	supplied := []Entry{{DisplayName: "original"}}
	s, _ = Reduce(s, FetchResolved{Gen: onlyFetch(t, effects).Gen, Group: "a", Items: supplied})

	supplied[0].DisplayName = "changed by caller"
	if s.Items[0].DisplayName != "original" {
		t.Fatal("state aliases the supplied slice")
	}
}

func TestThemeAndOrientationAreIndependent(t *testing.T) {
	s, _ := mount(t, "a")
	s, effects := Reduce(s, ThemeChanged{Dark: true})
	if !s.Dark || len(effects) != 0 {
		t.Fatalf("theme change: %+v %v", s, effects)
	}
	s, effects = Reduce(s, OrientationChanged{Orientation: layout.Alternating})
	if s.Orientation != layout.Alternating || len(effects) != 0 {
		t.Fatalf("orientation change: %+v %v", s, effects)
	}
	if !s.Loading {
		t.Error("theme/orientation changes must not touch loading")
	}
}

func loaded(t *testing.T, items ...Entry) State {
	t.Helper()
	s, effects := mount(t, "g")
	s, _ = Reduce(s, FetchResolved{Gen: onlyFetch(t, effects).Gen, Group: "g", Items: items})
	return s
}

func TestPreviewOpenThenBackgroundCloses(t *testing.T) {
	s := loaded(t, Entry{Image: "https://img/1.png"})
	if s.PreviewOpen() {
		t.Fatal("preview should start closed")
	}

	s, _ = Reduce(s, ImageClicked{Index: 0, URL: "https://img/1.png", Origin: OriginSlot})
	if s.Preview != "https://img/1.png" {
		t.Fatalf("Preview = %q", s.Preview)
	}

	s, _ = Reduce(s, OverlayClicked{Target: TargetBackground})
	if s.PreviewOpen() {
		t.Fatal("background click should close the preview")
	}
}

func TestPreviewContainsClicksOnImage(t *testing.T) {
	s := loaded(t, Entry{Image: "u"})
	s, _ = Reduce(s, ImageClicked{Index: 0, URL: "u", Origin: OriginSlot})

	s, _ = Reduce(s, OverlayClicked{Target: TargetImage})
	if s.Preview != "u" {
		t.Fatal("click on the preview image must not close the overlay")
	}
	s, _ = Reduce(s, OverlayClicked{Target: TargetCloseButton})
	if s.PreviewOpen() {
		t.Fatal("close button should close the overlay")
	}
}

func TestPreviewReplaceWhileOpen(t *testing.T) {
	s := loaded(t, Entry{Image: "a"}, Entry{Image: "b"})
	s, _ = Reduce(s, ImageClicked{Index: 0, URL: "a", Origin: OriginSlot})
	s, _ = Reduce(s, ImageClicked{Index: 1, URL: "b", Origin: OriginSlot})
	if s.Preview != "b" {
		t.Fatalf("Preview = %q, want b", s.Preview)
	}
}

func TestPreviewRequiresRealImage(t *testing.T) {
	s := loaded(t, Entry{DisplayName: "no image"}, Entry{Image: "x"})

	cases := []ImageClicked{
		{Index: 0, URL: "x", Origin: OriginSlot},
		{Index: 1, URL: "y", Origin: OriginSlot},
		{Index: 5, URL: "x", Origin: OriginSlot},
		{Index: -1, URL: "x", Origin: OriginSlot},
		{Index: 1, URL: "", Origin: OriginSlot},
		{Index: 0, URL: "x", Origin: OriginRichText},
	}
	for _, c := range cases {
		next, _ := Reduce(s, c)
		if next.PreviewOpen() {
			t.Errorf("%+v opened the preview", c)
		}
	}
}

func TestPreviewFromRichTextImage(t *testing.T) {
	s := loaded(t, Entry{DisplayName: "![p](https://img/p.png)"})
	r := Reducer{RichTextImages: func(text string) []string {
		if strings.Contains(text, "https://img/p.png") {
			return []string{"https://img/p.png"}
		}
		return nil
	}}

	next, _ := r.Reduce(s, ImageClicked{Index: 0, URL: "https://img/p.png", Origin: OriginRichText})
	if next.Preview != "https://img/p.png" {
		t.Fatalf("Preview = %q", next.Preview)
	}

	next, _ = r.Reduce(s, ImageClicked{Index: 0, URL: "https://evil/x.png", Origin: OriginRichText})
	if next.PreviewOpen() {
		t.Fatal("rich-text click for an image not in the description opened the preview")
	}
}

func TestPreviewIndependentOfLoading(t *testing.T) {
	s := loaded(t, Entry{Image: "a"})
	s, _ = Reduce(s, ImageClicked{Index: 0, URL: "a", Origin: OriginSlot})
	s, effects := Reduce(s, GroupChanged{Group: "other"})
	onlyFetch(t, effects)
	if s.Preview != "a" {
		t.Fatal("starting a fetch closed the preview")
	}
}

func TestReduceDoesNotModifyInput(t *testing.T) {
	before := loaded(t, Entry{Image: "a"})
	_, _ = Reduce(before, ImageClicked{Index: 0, URL: "a", Origin: OriginSlot})
	_, _ = Reduce(before, GroupChanged{Group: "z"})
	if before.PreviewOpen() || before.Loading || before.Group != "g" {
		t.Fatalf("input state was modified: %+v", before)
	}
}

type lines []string

func (l *lines) Printf(format string, v ...any) {
	*l = append(*l, fmt.Sprintf(format, v...))
}

func TestDiagnoseEmit(t *testing.T) {
	var got lines
	Diagnose{Level: LevelWarn, Msg: "hello"}.Emit(&got)
	if len(got) != 1 || got[0] != "[WARN] hello" {
		t.Fatalf("Emit wrote %v", got)
	}
	Diagnose{Level: LevelWarn}.Emit(nil)
}
