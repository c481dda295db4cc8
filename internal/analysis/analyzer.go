// Package analysis inspects the entries of a timeline group for problems
// that the widget would otherwise render silently: unsafe or relative
// URLs, descriptions that fall back to escaped text, empty or duplicated
// entries.
//
// All checks are deterministic and run on the same conversion the widget
// uses, so a clean report means the group renders as authored.
package analysis

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Mr-Dark-debug/timelineview/internal/markdown"
	"github.com/Mr-Dark-debug/timelineview/internal/source"
	"github.com/Mr-Dark-debug/timelineview/internal/timeline"
	"github.com/Mr-Dark-debug/timelineview/pkg/timeutil"
)

// Severity ranks a finding.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Analyzer inspects groups fetched from a source.
type Analyzer struct {
	fetcher source.Fetcher
	md      *markdown.Renderer
	now     func() time.Time
}

// NewAnalyzer creates an analyzer reading from fetcher. md may be nil.
func NewAnalyzer(fetcher source.Fetcher, md *markdown.Renderer) *Analyzer {
	if md == nil {
		md = markdown.New()
	}
	return &Analyzer{fetcher: fetcher, md: md, now: time.Now}
}

// ============================================================
// Report
// ============================================================

// Finding is one problem with one entry.
type Finding struct {
	Index    int      `json:"index"`
	Field    string   `json:"field"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// Summary counts what the group contains.
type Summary struct {
	Entries        int `json:"entries"`
	Active         int `json:"active"`
	WithImage      int `json:"with_image"`
	RichTextImages int `json:"rich_text_images"`
	WithLink       int `json:"with_link"`
}

// Report is the complete output of `timeline inspect`.
type Report struct {
	Group       string    `json:"group"`
	GeneratedAt string    `json:"generated_at"`
	FetchTime   string    `json:"fetch_time"`
	Summary     Summary   `json:"summary"`
	Findings    []Finding `json:"findings"`
}

// Worst returns the highest severity among the findings, or "".
func (r *Report) Worst() Severity {
	rank := map[Severity]int{SeverityLow: 1, SeverityMedium: 2, SeverityHigh: 3}
	var worst Severity
	for _, f := range r.Findings {
		if rank[f.Severity] > rank[worst] {
			worst = f.Severity
		}
	}
	return worst
}

// Inspect fetches group and checks every entry.
func (a *Analyzer) Inspect(ctx context.Context, group string) (*Report, error) {
	start := time.Now()
	entries, err := a.fetcher.FetchTimelineEntries(ctx, group)
	if err != nil {
		return nil, fmt.Errorf("fetching group %q for inspection: %w", group, err)
	}

	report := a.InspectEntries(group, entries)
	report.FetchTime = timeutil.FormatDuration(time.Since(start))
	return report, nil
}

// InspectEntries checks entries without fetching.
func (a *Analyzer) InspectEntries(group string, entries []timeline.Entry) *Report {
	report := &Report{
		Group:       group,
		GeneratedAt: a.now().Format(time.RFC3339),
		Findings:    []Finding{},
	}
	add := func(i int, field string, sev Severity, format string, v ...any) {
		report.Findings = append(report.Findings, Finding{
			Index: i, Field: field, Severity: sev, Message: fmt.Sprintf(format, v...),
		})
	}

	seen := make(map[string]int)
	for i, e := range entries {
		s := &report.Summary
		s.Entries++
		if e.Active {
			s.Active++
		}
		if e.HasImage() {
			s.WithImage++
		}
		if e.RelatedLinks != "" {
			s.WithLink++
		}

		// Description
		if e.DisplayName != "" {
			res := a.md.Convert(e.DisplayName)
			if res.Fallback {
				add(i, "displayName", SeverityHigh, "description could not be converted and renders as escaped text")
			}
			s.RichTextImages += len(res.Images)
			if n := strings.Count(e.DisplayName, "!["); n > len(res.Images) {
				add(i, "displayName", SeverityMedium, "%d embedded image(s) were removed by sanitization", n-len(res.Images))
			}
		}
		if e.DisplayName == "" && e.Date == "" && !e.HasImage() {
			add(i, "", SeverityLow, "entry has no date, description or image")
		}

		// URLs
		if e.HasImage() && !isWebURL(e.Image) {
			add(i, "image", SeverityMedium, "image %q is not an absolute http(s) URL", e.Image)
		}
		if e.RelatedLinks != "" && !isWebURL(e.RelatedLinks) {
			add(i, "relatedLinks", SeverityMedium, "related link %q is not an absolute http(s) URL", e.RelatedLinks)
		}

		// Duplicates
		if e.Date != "" || e.DisplayName != "" {
			key := e.Date + "\x00" + e.DisplayName
			if first, dup := seen[key]; dup {
				add(i, "", SeverityLow, "duplicates entry %d", first)
			} else {
				seen[key] = i
			}
		}
	}

	return report
}

func isWebURL(raw string) bool {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// ============================================================
// Formatting
// ============================================================

// FormatReport generates a human-readable markdown report.
func (a *Analyzer) FormatReport(report *Report) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# Timeline Inspection Report\n\n")
	fmt.Fprintf(&b, "**Group:** `%s`\n", report.Group)
	fmt.Fprintf(&b, "**Generated:** %s\n", report.GeneratedAt)
	if report.FetchTime != "" {
		fmt.Fprintf(&b, "**Fetched in:** %s\n", report.FetchTime)
	}
	b.WriteString("\n")

	s := report.Summary
	b.WriteString("## Summary\n\n")
	b.WriteString("| Metric | Value |\n")
	b.WriteString("|--------|-------|\n")
	fmt.Fprintf(&b, "| Entries | %d |\n", s.Entries)
	fmt.Fprintf(&b, "| Active | %d |\n", s.Active)
	fmt.Fprintf(&b, "| With image | %d |\n", s.WithImage)
	fmt.Fprintf(&b, "| Images in descriptions | %d |\n", s.RichTextImages)
	fmt.Fprintf(&b, "| With related link | %d |\n\n", s.WithLink)

	if len(report.Findings) == 0 {
		b.WriteString("No problems found.\n")
		return b.String()
	}

	b.WriteString("## Findings\n\n")
	b.WriteString("| Entry | Field | Severity | Problem |\n")
	b.WriteString("|-------|-------|----------|---------|\n")
	for _, f := range report.Findings {
		field := f.Field
		if field == "" {
			field = "-"
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s |\n", f.Index, field, f.Severity, strings.ReplaceAll(f.Message, "|", `\|`))
	}
	return b.String()
}
