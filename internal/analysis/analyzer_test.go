package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/Mr-Dark-debug/timelineview/internal/source"
	"github.com/Mr-Dark-debug/timelineview/internal/timeline"
)

func newTestAnalyzer() *Analyzer {
	a := NewAnalyzer(nil, nil)
	a.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	return a
}

func TestInspectCleanGroup(t *testing.T) {
	a := newTestAnalyzer()
	report := a.InspectEntries("team-x", []timeline.Entry{
		{Date: "2024-01", DisplayName: "**Launch**", Active: true},
		{Date: "2024-02", DisplayName: "see ![shot](https://img.example/s.png)", Image: "https://img.example/a.png", RelatedLinks: "https://example.com"},
	})

	if len(report.Findings) != 0 {
		t.Fatalf("expected no findings, got %+v", report.Findings)
	}
	want := Summary{Entries: 2, Active: 1, WithImage: 1, RichTextImages: 1, WithLink: 1}
	if report.Summary != want {
		t.Errorf("summary = %+v, want %+v", report.Summary, want)
	}
	if report.GeneratedAt != "2024-05-01T12:00:00Z" {
		t.Errorf("generated at = %q", report.GeneratedAt)
	}
	if report.Worst() != "" {
		t.Errorf("worst = %q, want none", report.Worst())
	}
}

func TestInspectFindings(t *testing.T) {
	a := newTestAnalyzer()
	report := a.InspectEntries("g", []timeline.Entry{
		{Date: "1", DisplayName: "a", Image: "/relative.png"},
		{Date: "2", RelatedLinks: "javascript:alert(1)"},
		{},
		{Date: "1", DisplayName: "a"},
		{DisplayName: "![x](javascript:alert(1))"},
	})

	type key struct {
		index int
		field string
	}
	got := make(map[key]Severity)
	for _, f := range report.Findings {
		got[key{f.Index, f.Field}] = f.Severity
	}

	checks := []struct {
		k    key
		want Severity
	}{
		{key{0, "image"}, SeverityMedium},
		{key{1, "relatedLinks"}, SeverityMedium},
		{key{2, ""}, SeverityLow},
		{key{3, ""}, SeverityLow},
		{key{4, "displayName"}, SeverityMedium},
	}
	for _, c := range checks {
		if got[c.k] != c.want {
			t.Errorf("finding %+v: severity %q, want %q (all: %+v)", c.k, got[c.k], c.want, report.Findings)
		}
	}
	if report.Worst() != SeverityMedium {
		t.Errorf("worst = %q, want medium", report.Worst())
	}
}

func TestInspectFetches(t *testing.T) {
	calls := 0
	fetcher := source.FetcherFunc(func(ctx context.Context, group string) ([]timeline.Entry, error) {
		calls++
		if group == "down" {
			return nil, errors.New("unavailable")
		}
		return []timeline.Entry{{Date: "x"}}, nil
	})
	a := NewAnalyzer(fetcher, nil)

	report, err := a.Inspect(context.Background(), "up")
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if report.Summary.Entries != 1 || report.FetchTime == "" {
		t.Errorf("unexpected report %+v", report)
	}

	if _, err := a.Inspect(context.Background(), "down"); err == nil {
		t.Error("expected fetch error")
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
}

func TestFormatReport(t *testing.T) {
	a := newTestAnalyzer()
	clean := a.FormatReport(a.InspectEntries("g", []timeline.Entry{{Date: "1"}}))
	if !strings.Contains(clean, "# Timeline Inspection Report") || !strings.Contains(clean, "No problems found.") {
		t.Errorf("unexpected clean report:\n%s", clean)
	}

	dirty := a.FormatReport(a.InspectEntries("g", []timeline.Entry{{Image: "ftp://x|y"}}))
	if !strings.Contains(dirty, "## Findings") {
		t.Errorf("missing findings section:\n%s", dirty)
	}
	if !strings.Contains(dirty, `ftp://x\|y`) {
		t.Errorf("pipe not escaped:\n%s", dirty)
	}
}
