// timeline-server hosts timeline widgets as HTML pages and screenshots.
//
// Usage:
//
//	timeline-server [flags]
//
// Flags:
//
//	--config   Path to config file (default: ~/.timelineview/config.toml)
//	--listen   HTTP listen address (default: 127.0.0.1:8787)
//	--source   Entry source: http, sqlite
//	--db       Path to SQLite database file (default: ~/.timelineview/timelineview.db)
//	--api      Base URL of an upstream timelines API
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Mr-Dark-debug/timelineview/internal/config"
	"github.com/Mr-Dark-debug/timelineview/internal/server"
	"github.com/Mr-Dark-debug/timelineview/internal/snapshot"
	"github.com/Mr-Dark-debug/timelineview/internal/source"
	"github.com/Mr-Dark-debug/timelineview/internal/theme"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	listen := flag.String("listen", "", "HTTP listen address")
	kind := flag.String("source", "", "Entry source: http, sqlite")
	dbPath := flag.String("db", "", "Path to SQLite database file")
	api := flag.String("api", "", "Base URL of an upstream timelines API")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *listen != "" {
		cfg.Server.ListenAddr = *listen
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

	// Initialize the entry source
	fetcher, closeFetcher, err := source.Open(cfg.Source, cfg.Widget.FetchTimeout.Duration)
	if err != nil {
		log.Fatalf("Failed to open %s source: %v", cfg.SourceKind(), err)
	}
	defer closeFetcher()

	logger := log.Default()
	detector := &theme.Detector{MarkerPath: cfg.Theme.MarkerPath, Logger: logger}

	srv := server.New(server.Config{
		ListenAddr:     cfg.Server.ListenAddr,
		MetricsEnabled: cfg.Server.MetricsEnabled,
		RequestTimeout: cfg.Server.RequestTimeout.Duration,
		FetchTimeout:   cfg.Widget.FetchTimeout.Duration,
		Orientation:    cfg.Orientation(),
		Snapshot: snapshot.Options{
			Width:    cfg.Snapshot.Width,
			Height:   cfg.Snapshot.Height,
			Quality:  cfg.Snapshot.Quality,
			Timeout:  cfg.Snapshot.Timeout.Duration,
			ExecPath: cfg.Snapshot.ExecPath,
		},
	}, fetcher, detector, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := srv.Start(ctx); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	// Print startup banner
	fmt.Println()
	fmt.Println("  TIMELINE SERVER")
	fmt.Println()
	fmt.Printf("  Listen:  http://%s/timeline/{group}\n", srv.Addr())
	switch cfg.SourceKind() {
	case config.SourceHTTP:
		fmt.Printf("  Source:  %s\n", cfg.Source.BaseURL)
	default:
		fmt.Printf("  Source:  %s\n", cfg.Source.DBPath)
	}
	if cfg.Server.MetricsEnabled {
		fmt.Printf("  Metrics: http://%s/metrics\n", srv.Addr())
	}
	fmt.Println()
	fmt.Println("  Press Ctrl+C to stop.")
	fmt.Println()

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\n  Shutting down gracefully...")
	cancel()
	if err := srv.Stop(); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	fmt.Println("  Done.")
}
