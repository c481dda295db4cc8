// Package source provides the fetch collaborators a widget uses to turn a
// group identifier into timeline entries.
package source

import (
	"context"
	"fmt"

	"github.com/Mr-Dark-debug/timelineview/internal/database"
	"github.com/Mr-Dark-debug/timelineview/internal/timeline"
)

// Fetcher retrieves the entries of a group. Implementations return an
// ordered, possibly empty list on success and an error on any transport or
// parse failure.
type Fetcher interface {
	FetchTimelineEntries(ctx context.Context, group string) ([]timeline.Entry, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, group string) ([]timeline.Entry, error)

// FetchTimelineEntries calls f.
func (f FetcherFunc) FetchTimelineEntries(ctx context.Context, group string) ([]timeline.Entry, error) {
	return f(ctx, group)
}

// StoreFetcher serves entries from the local sqlite store.
type StoreFetcher struct {
	Store database.Store
}

// FetchTimelineEntries implements Fetcher.
func (s StoreFetcher) FetchTimelineEntries(ctx context.Context, group string) ([]timeline.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.Store == nil {
		return nil, fmt.Errorf("store fetcher: no store configured")
	}
	entries, err := s.Store.QueryEntries(group)
	if err != nil {
		return nil, fmt.Errorf("loading group %q from store: %w", group, err)
	}
	return entries, nil
}
