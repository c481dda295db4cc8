package tui

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/Mr-Dark-debug/timelineview/internal/htmlview"
	"github.com/Mr-Dark-debug/timelineview/internal/layout"
	"github.com/Mr-Dark-debug/timelineview/internal/markdown"
	"github.com/Mr-Dark-debug/timelineview/internal/source"
	"github.com/Mr-Dark-debug/timelineview/internal/theme"
	"github.com/Mr-Dark-debug/timelineview/internal/timeline"
)

// DefaultFetchTimeout bounds a single fetch when Config leaves it unset.
const DefaultFetchTimeout = 10 * time.Second

// errNoFetcher is reported for every fetch of a model built without one.
var errNoFetcher = errors.New("no timeline source configured")

// ────────────────────────────────────────────────────────────
// Configuration
// ────────────────────────────────────────────────────────────

// Config is the mount-time configuration of a widget.
type Config struct {
	// ID names the widget in diagnostics. A random one is assigned when empty.
	ID          string
	Group       string
	Orientation layout.Orientation

	Fetcher  source.Fetcher
	Detector *theme.Detector
	Markdown *markdown.Renderer
	Terminal *markdown.TerminalRenderer
	Logger   timeline.Logger

	FetchTimeout time.Duration
}

// ────────────────────────────────────────────────────────────
// Model
// ────────────────────────────────────────────────────────────

// Model is the root BubbleTea model of the widget.
type Model struct {
	cfg     Config
	reducer timeline.Reducer
	state   timeline.State
	mounted bool
	watch   *themeWatch

	// UI state
	selected int
	offsets  []int
	width    int
	height   int
	viewport viewport.Model
	spinner  spinner.Model
}

// NewModel creates a widget for cfg. Nothing happens until Init (or
// Settle) mounts it.
func NewModel(cfg Config) Model {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Markdown == nil {
		cfg.Markdown = markdown.New(markdown.WithLogger(cfg.Logger))
	}
	if cfg.Terminal == nil {
		cfg.Terminal = markdown.NewTerminal(cfg.Logger)
	}
	if cfg.FetchTimeout <= 0 {
		cfg.FetchTimeout = DefaultFetchTimeout
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return Model{
		cfg:      cfg,
		reducer:  timeline.Reducer{RichTextImages: cfg.Markdown.Images},
		state:    timeline.NewState(cfg.ID, cfg.Orientation),
		watch:    newThemeWatch(),
		viewport: viewport.New(80, 20),
		spinner:  sp,
	}
}

// ID returns the widget identifier.
func (m Model) ID() string { return m.cfg.ID }

// State returns a copy of the widget state.
func (m Model) State() timeline.State { return m.state }

// HTML renders the current state with the HTML render pass.
func (m Model) HTML() string {
	return htmlview.Render(m.state, m.cfg.Markdown, htmlview.Options{})
}

// Close unmounts the widget: the theme subscription is cancelled and no
// theme notification is delivered afterwards. Safe to call more than once.
func (m Model) Close() {
	m.watch.close()
}

// ────────────────────────────────────────────────────────────
// Messages
// ────────────────────────────────────────────────────────────

// themeSignalMsg is produced by the theme waiter after a re-probe.
type themeSignalMsg struct{ dark bool }

// ────────────────────────────────────────────────────────────
// Init
// ────────────────────────────────────────────────────────────

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.mountCmd(), m.spinner.Tick}
	if m.watch.start(m.cfg.Detector) {
		cmds = append(cmds, m.waitTheme())
	}
	return tea.Batch(cmds...)
}

func (m Model) mountCmd() tea.Cmd {
	group, detector := m.cfg.Group, m.cfg.Detector
	return func() tea.Msg {
		return timeline.Mounted{Group: group, Dark: detector.Probe()}
	}
}

func (m Model) fetchCmd(f timeline.Fetch) tea.Cmd {
	fetcher, timeout := m.cfg.Fetcher, m.cfg.FetchTimeout
	return func() tea.Msg {
		return runFetch(context.Background(), fetcher, timeout, f)
	}
}

// runFetch performs f and packages the outcome for the reducer.
func runFetch(ctx context.Context, fetcher source.Fetcher, timeout time.Duration, f timeline.Fetch) timeline.FetchResolved {
	res := timeline.FetchResolved{Gen: f.Gen, Group: f.Group}
	if fetcher == nil {
		res.Err = errNoFetcher
		return res
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	res.Items, res.Err = fetcher.FetchTimelineEntries(ctx, f.Group)
	res.Elapsed = time.Since(start)
	return res
}

// ────────────────────────────────────────────────────────────
// Update
// ────────────────────────────────────────────────────────────

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.viewport.Width = msg.Width
		m.viewport.Height = maxInt(m.height-2, 1)
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case themeSignalMsg:
		next, cmd := m.dispatch(timeline.ThemeChanged{Dark: msg.dark})
		return next, tea.Batch(cmd, next.waitTheme())

	case timeline.Event:
		return m.dispatch(msg)
	}

	return m, nil
}

// dispatch runs ev through the reducer and turns fetch effects into
// commands.
func (m Model) dispatch(ev timeline.Event) (Model, tea.Cmd) {
	m, fetches := m.apply(ev)
	cmds := make([]tea.Cmd, 0, len(fetches))
	for _, f := range fetches {
		cmds = append(cmds, m.fetchCmd(f))
	}
	m.refresh()
	return m, tea.Batch(cmds...)
}

// apply advances the state, emits diagnostics and returns the fetches the
// caller must run.
func (m Model) apply(ev timeline.Event) (Model, []timeline.Fetch) {
	if _, ok := ev.(timeline.Mounted); ok {
		m.mounted = true
	}

	var effects []timeline.Effect
	m.state, effects = m.reducer.Reduce(m.state, ev)

	var fetches []timeline.Fetch
	for _, e := range effects {
		switch e := e.(type) {
		case timeline.Fetch:
			fetches = append(fetches, e)
		case timeline.Diagnose:
			e.Emit(m.cfg.Logger)
		}
	}

	m.selected = clamp(m.selected, 0, maxInt(len(m.state.Items)-1, 0))
	return m, fetches
}

// handleKey routes keyboard input. While the preview is open only the
// overlay keys are live.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch key {
	case "q", "ctrl+c":
		m.Close()
		return m, tea.Quit
	}

	if m.state.PreviewOpen() {
		switch key {
		case "esc", "x":
			return m.dispatch(timeline.PreviewClosed{})
		case "enter":
			return m.dispatch(timeline.OverlayClicked{Target: timeline.TargetImage})
		}
		return m, nil
	}

	switch key {
	case "j", "down":
		if m.selected < len(m.state.Items)-1 {
			m.selected++
			m.refresh()
		}
		return m, nil

	case "k", "up":
		if m.selected > 0 {
			m.selected--
			m.refresh()
		}
		return m, nil

	case "o":
		return m.dispatch(timeline.OrientationChanged{Orientation: m.state.Orientation.Next()})

	case "r":
		return m.dispatch(timeline.GroupChanged{Group: m.state.Group})

	case "enter":
		if ev, ok := m.previewTarget(); ok {
			return m.dispatch(ev)
		}
		return m, nil

	case "pgup", "pgdown", "home", "end":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

// previewTarget picks the image to open for the selected item: its image
// slot, else the first image of its description.
func (m Model) previewTarget() (timeline.ImageClicked, bool) {
	if m.selected >= len(m.state.Items) {
		return timeline.ImageClicked{}, false
	}
	item := m.state.Items[m.selected]
	if item.HasImage() {
		return timeline.ImageClicked{Index: m.selected, URL: item.Image, Origin: timeline.OriginSlot}, true
	}
	if images := m.cfg.Markdown.Images(item.DisplayName); len(images) > 0 {
		return timeline.ImageClicked{Index: m.selected, URL: images[0], Origin: timeline.OriginRichText}, true
	}
	return timeline.ImageClicked{}, false
}

// handleMouse maps clicks on the open overlay to overlay targets.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if !m.state.PreviewOpen() || msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	box := previewBox(m.width, m.height-2)
	// The body starts below the header line.
	x, y := msg.X, msg.Y-1
	target := timeline.TargetBackground
	switch {
	case box.closeHit(x, y):
		target = timeline.TargetCloseButton
	case box.contains(x, y):
		target = timeline.TargetImage
	}
	return m.dispatch(timeline.OverlayClicked{Target: target})
}

// refresh re-renders the item list into the viewport and keeps the
// selected item visible.
func (m *Model) refresh() {
	if m.width == 0 {
		return
	}
	content, offsets := renderTimeline(m, m.width)
	m.offsets = offsets
	m.viewport.SetContent(content)

	if m.selected < len(offsets) {
		top := offsets[m.selected]
		if top < m.viewport.YOffset || top >= m.viewport.YOffset+m.viewport.Height {
			m.viewport.SetYOffset(top)
		}
	}
}

// ────────────────────────────────────────────────────────────
// View
// ────────────────────────────────────────────────────────────

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	st := stylesFor(m.state.Dark)
	header := renderHeader(&m, st)
	footer := renderFooter(&m, st)
	bodyHeight := maxInt(m.height-2, 1)

	var body string
	switch {
	case m.state.PreviewOpen():
		body = renderPreview(&m, st, m.width, bodyHeight)
	case m.state.ShowLoading():
		body = lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center,
			st.empty.Render(m.spinner.View()+" "+htmlview.DefaultText.Loading))
	case m.state.ShowEmpty():
		body = lipgloss.Place(m.width, bodyHeight, lipgloss.Center, lipgloss.Center,
			st.empty.Render(htmlview.DefaultText.Empty))
	default:
		body = m.viewport.View()
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}
