// Package htmlview is the HTML render pass of the timeline widget: a pure
// function from timeline.State to markup. It consults layout.Place for each
// item and the markdown renderer for each description, and never mutates
// the state it is given.
package htmlview

import (
	"bytes"
	"embed"
	"fmt"
	stdhtml "html"
	"html/template"
	"net/url"
	"strconv"

	"github.com/Mr-Dark-debug/timelineview/internal/layout"
	"github.com/Mr-Dark-debug/timelineview/internal/markdown"
	"github.com/Mr-Dark-debug/timelineview/internal/timeline"
)

//go:embed assets/widget.css assets/*.tmpl
var assets embed.FS

var templates = template.Must(template.ParseFS(assets, "assets/*.tmpl"))

// Text holds the user-visible strings of the widget.
type Text struct {
	Loading string
	Empty   string
	Related string
	Preview string
	Close   string
}

// DefaultText is the English copy.
var DefaultText = Text{
	Loading: "Loading...",
	Empty:   "No timeline data",
	Related: "View related",
	Preview: "Preview",
	Close:   "Close",
}

// Links builds the targets of the widget's clickable elements. Hosts that
// can route clicks back into the state machine supply one; without it the
// anchors are inert.
type Links interface {
	Preview(index int, src string, origin timeline.Origin) string
	ClosePreview() string
}

// QueryLinks encodes clicks as query parameters on the current page, keeping
// Base (for example the group's orientation and theme settings).
type QueryLinks struct {
	Base url.Values
}

func (q QueryLinks) values() url.Values {
	v := url.Values{}
	for k, vs := range q.Base {
		if k == "item" || k == "preview" || k == "origin" {
			continue
		}
		v[k] = append([]string(nil), vs...)
	}
	return v
}

// Preview implements Links.
func (q QueryLinks) Preview(index int, src string, origin timeline.Origin) string {
	v := q.values()
	v.Set("item", strconv.Itoa(index))
	v.Set("preview", src)
	v.Set("origin", origin.String())
	return "?" + v.Encode()
}

// ClosePreview implements Links.
func (q QueryLinks) ClosePreview() string {
	return "?" + q.values().Encode()
}

// Options tunes a render.
type Options struct {
	Links Links
	Text  Text
	// Title is the document title; only used by Document.
	Title string
}

func (o Options) text() Text {
	if o.Text == (Text{}) {
		return DefaultText
	}
	return o.Text
}

type itemView struct {
	Index        int
	ItemClass    string
	MarkerClass  string
	ContentClass string
	TextAlign    string
	Image        string
	Alt          string
	PreviewHref  string
	Date         string
	Title        template.HTML
	Link         string
}

type widgetView struct {
	ID          string
	Dark        bool
	Orientation string
	Busy        bool
	ShowLoading bool
	ShowEmpty   bool
	Items       []itemView
	Preview     string
	CloseHref   string
	Text        Text
}

// Render returns the widget markup for s. md may be nil, in which case
// descriptions are shown as escaped plain text.
func Render(s timeline.State, md *markdown.Renderer, opts Options) string {
	view := widgetView{
		ID:          s.ID,
		Dark:        s.Dark,
		Orientation: s.Orientation.String(),
		Busy:        s.Loading,
		ShowLoading: s.ShowLoading(),
		ShowEmpty:   s.ShowEmpty(),
		Preview:     s.Preview,
		CloseHref:   "#",
		Text:        opts.text(),
	}
	if opts.Links != nil {
		view.CloseHref = opts.Links.ClosePreview()
	}

	if !view.ShowLoading && !view.ShowEmpty {
		view.Items = make([]itemView, len(s.Items))
		for i, e := range s.Items {
			view.Items[i] = buildItem(s.Orientation, i, e, md, opts.Links)
		}
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "widget", view); err != nil {
		return fmt.Sprintf(`<div class="timeline-view timeline-error">%s</div>`, stdhtml.EscapeString(err.Error()))
	}
	return buf.String()
}

func buildItem(o layout.Orientation, i int, e timeline.Entry, md *markdown.Renderer, links Links) itemView {
	p := layout.Place(o, i, e.HasImage())

	itemClass := "timeline-item"
	if e.HasImage() {
		itemClass += " has-image"
	}
	if p.ItemClass != "" {
		itemClass += " " + p.ItemClass
	}
	markerClass := "timeline-marker"
	if e.Active {
		markerClass += " active"
	}

	v := itemView{
		Index:        i,
		ItemClass:    itemClass,
		MarkerClass:  markerClass,
		ContentClass: p.ContentClass,
		TextAlign:    p.TextAlign,
		Image:        e.Image,
		Alt:          e.DisplayName,
		PreviewHref:  "#",
		Date:         e.Date,
		Title:        renderTitle(e.DisplayName, md),
		Link:         e.RelatedLinks,
	}
	if e.HasImage() && links != nil {
		v.PreviewHref = links.Preview(i, e.Image, timeline.OriginSlot)
	}
	return v
}

// renderTitle returns trusted markup for a description. Text that could not
// be converted is escaped, never embedded raw.
func renderTitle(text string, md *markdown.Renderer) template.HTML {
	if text == "" {
		return ""
	}
	if md == nil {
		return template.HTML(stdhtml.EscapeString(text))
	}
	res := md.Convert(text)
	if res.Fallback {
		return template.HTML(stdhtml.EscapeString(res.HTML))
	}
	return template.HTML(res.HTML)
}

// Stylesheet returns the widget CSS: tokens, layout rules and code
// highlighting for both themes.
func Stylesheet() string {
	css, _ := assets.ReadFile("assets/widget.css")
	var b bytes.Buffer
	b.WriteString(TokenCSS())
	b.Write(css)
	b.WriteString(markdown.CodeCSS(false, ".timeline-view"))
	b.WriteString(markdown.CodeCSS(true, ".timeline-view.dark"))
	return b.String()
}

type documentView struct {
	Title  string
	Dark   bool
	CSS    template.CSS
	Widget template.HTML
}

// Document returns a standalone HTML page containing the widget for s.
func Document(s timeline.State, md *markdown.Renderer, opts Options) (string, error) {
	title := opts.Title
	if title == "" {
		title = "Timeline"
		if s.Group != "" {
			title = s.Group + " - Timeline"
		}
	}

	view := documentView{
		Title:  title,
		Dark:   s.Dark,
		CSS:    template.CSS(Stylesheet()),
		Widget: template.HTML(Render(s, md, opts)),
	}

	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, "document", view); err != nil {
		return "", fmt.Errorf("rendering document: %w", err)
	}
	return buf.String(), nil
}
