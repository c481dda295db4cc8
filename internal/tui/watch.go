package tui

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Mr-Dark-debug/timelineview/internal/theme"
)

// themeWatch bridges a theme subscription into the update loop. Change
// notifications coalesce into a one-slot channel that waitTheme drains.
// It is shared by every copy of a Model.
type themeWatch struct {
	mu      sync.Mutex
	started bool
	closed  bool
	sub     *theme.Subscription
	signal  chan struct{}
}

func newThemeWatch() *themeWatch {
	return &themeWatch{signal: make(chan struct{}, 1)}
}

// start subscribes to d once. It reports whether a waiter is worth
// scheduling.
func (w *themeWatch) start(d *theme.Detector) bool {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed || d == nil || d.MarkerPath == "" {
		return false
	}
	if !w.started {
		w.started = true
		w.sub = d.Subscribe(func() {
			select {
			case w.signal <- struct{}{}:
			default:
			}
		})
	}
	return true
}

// close cancels the subscription and releases any blocked waiter.
func (w *themeWatch) close() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return
	}
	w.closed = true
	w.sub.Cancel()
	close(w.signal)
}

// waitTheme blocks until the theme may have changed, then re-probes. It
// yields no message once the widget is closed.
func (m Model) waitTheme() tea.Cmd {
	w, d := m.watch, m.cfg.Detector
	if d == nil || d.MarkerPath == "" {
		return nil
	}
	return func() tea.Msg {
		if _, ok := <-w.signal; !ok {
			return nil
		}
		return themeSignalMsg{dark: d.Probe()}
	}
}
