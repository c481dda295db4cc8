package tui

import (
	"context"
	"fmt"

	"github.com/Mr-Dark-debug/timelineview/internal/timeline"
)

// Settle drives m without a terminal. It mounts m if needed, applies
// events in order and runs every fetch inline until none remain. Fetch
// failures end up in the state like they would interactively; only a done
// ctx is returned as an error.
//
// The theme subscription is not started; the initial probe still runs.
func Settle(ctx context.Context, m Model, events ...timeline.Event) (Model, error) {
	var pending []timeline.Fetch
	if !m.mounted {
		m, pending = m.apply(timeline.Mounted{Group: m.cfg.Group, Dark: m.cfg.Detector.Probe()})
	}

	var err error
	if m, err = m.drain(ctx, pending); err != nil {
		return m, err
	}
	for _, ev := range events {
		m, pending = m.apply(ev)
		if m, err = m.drain(ctx, pending); err != nil {
			return m, err
		}
	}

	m.refresh()
	return m, nil
}

func (m Model) drain(ctx context.Context, pending []timeline.Fetch) (Model, error) {
	if err := ctx.Err(); err != nil {
		return m, fmt.Errorf("settling widget %s: %w", m.cfg.ID, err)
	}
	for len(pending) > 0 {
		f := pending[0]
		pending = pending[1:]

		var more []timeline.Fetch
		m, more = m.apply(runFetch(ctx, m.cfg.Fetcher, m.cfg.FetchTimeout, f))
		pending = append(pending, more...)

		if err := ctx.Err(); err != nil {
			return m, fmt.Errorf("settling widget %s: %w", m.cfg.ID, err)
		}
	}
	return m, nil
}
