package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Mr-Dark-debug/timelineview/internal/config"
	"github.com/Mr-Dark-debug/timelineview/internal/database"
)

// Open builds the fetcher described by cfg. The returned close function
// releases whatever the fetcher holds and is never nil.
func Open(cfg config.SourceConfig, timeout time.Duration) (Fetcher, func() error, error) {
	nop := func() error { return nil }

	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case config.SourceHTTP:
		if cfg.BaseURL == "" {
			return nil, nop, fmt.Errorf("http source needs a base URL")
		}
		return NewHTTPFetcher(cfg.BaseURL, timeout, cfg.RateLimit, cfg.Burst), nop, nil

	case config.SourceSQLite, "":
		store, err := OpenStore(cfg.DBPath)
		if err != nil {
			return nil, nop, err
		}
		return StoreFetcher{Store: store}, store.Close, nil

	default:
		return nil, nop, fmt.Errorf("unknown source kind %q", cfg.Kind)
	}
}

// OpenStore opens the SQLite store at path, creating its directory.
func OpenStore(path string) (*database.DBService, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite source needs a database path")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}
	store, err := database.NewDBService(path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	return store, nil
}
