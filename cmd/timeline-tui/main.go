// timeline-tui shows a timeline group as an interactive terminal widget.
//
// Usage:
//
//	timeline-tui [flags]
//
// Flags:
//
//	--config        Path to config file (default: ~/.timelineview/config.toml)
//	--group         Timeline group to show
//	--orientation   Layout: vertical, horizontal, alternating
//	--source        Entry source: http, sqlite
//	--db            Path to SQLite database file
//	--api           Base URL of the timelines API
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Mr-Dark-debug/timelineview/internal/config"
	"github.com/Mr-Dark-debug/timelineview/internal/source"
	"github.com/Mr-Dark-debug/timelineview/internal/theme"
	"github.com/Mr-Dark-debug/timelineview/internal/tui"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	group := flag.String("group", "", "Timeline group to show")
	orientation := flag.String("orientation", "", "Layout: vertical, horizontal, alternating")
	kind := flag.String("source", "", "Entry source: http, sqlite")
	dbPath := flag.String("db", "", "Path to SQLite database file")
	api := flag.String("api", "", "Base URL of the timelines API")
	logPath := flag.String("log", "", "Write diagnostics to this file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *group != "" {
		cfg.Widget.Group = *group
	}
	if *orientation != "" {
		cfg.Widget.Orientation = *orientation
	}
	if *kind != "" {
		cfg.Source.Kind = *kind
	}
	if *dbPath != "" {
		cfg.Source.DBPath = *dbPath
	}
	if *api != "" {
		cfg.Source.BaseURL = *api
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid flags: %v", err)
	}

	fetcher, closeFetcher, err := source.Open(cfg.Source, cfg.Widget.FetchTimeout.Duration)
	if err != nil {
		log.Fatalf("Failed to open %s source: %v\n"+
			"Import entries first with: timeline import --group <name> --file <entries.json>", cfg.SourceKind(), err)
	}
	defer closeFetcher()

	// The alternate screen owns stdout, so diagnostics go to a file or nowhere.
	logOut := io.Discard
	if *logPath != "" {
		f, err := os.OpenFile(*logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalf("Failed to open log file: %v", err)
		}
		defer f.Close()
		logOut = f
	}
	logger := log.New(logOut, "", log.LstdFlags)

	model := tui.NewModel(tui.Config{
		Group:       cfg.Widget.Group,
		Orientation: cfg.Orientation(),
		Fetcher:     fetcher,
		Detector: &theme.Detector{
			MarkerPath: cfg.Theme.MarkerPath,
			Terminal:   cfg.Theme.Terminal,
			Logger:     logger,
		},
		Logger:       logger,
		FetchTimeout: cfg.Widget.FetchTimeout.Duration,
	})
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())

	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error running TUI: %v\n", err)
		os.Exit(1)
	}
}
