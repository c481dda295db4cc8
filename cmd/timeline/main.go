// Timeline CLI: render, import and inspect timeline groups.
//
// Usage:
//
//	timeline <command> [flags]
//
// Commands:
//
//	render    Render a group as an HTML page or a screenshot
//	import    Load entries from a JSON or YAML file into the local store
//	query     Print the entries of a group as JSON
//	groups    List the groups in the local store
//	delete    Remove a group from the local store
//	inspect   Check a group for broken URLs and unrenderable text
//	config    Print the effective configuration
//	version   Print version information
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/Mr-Dark-debug/timelineview/internal/analysis"
	"github.com/Mr-Dark-debug/timelineview/internal/config"
	"github.com/Mr-Dark-debug/timelineview/internal/htmlview"
	"github.com/Mr-Dark-debug/timelineview/internal/markdown"
	"github.com/Mr-Dark-debug/timelineview/internal/snapshot"
	"github.com/Mr-Dark-debug/timelineview/internal/source"
	"github.com/Mr-Dark-debug/timelineview/internal/theme"
	"github.com/Mr-Dark-debug/timelineview/internal/timeline"
	"github.com/Mr-Dark-debug/timelineview/internal/tui"
	"github.com/Mr-Dark-debug/timelineview/pkg/jsonutil"
	"github.com/Mr-Dark-debug/timelineview/pkg/timeutil"
)

var (
	Version   = "0.1.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "render":
		cmdRender()
	case "import":
		cmdImport()
	case "query":
		cmdQuery()
	case "groups":
		cmdGroups()
	case "delete":
		cmdDelete()
	case "inspect":
		cmdInspect()
	case "config":
		cmdConfig()
	case "version":
		fmt.Printf("timeline v%s (commit: %s, built: %s)\n", Version, GitCommit, BuildTime)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`timeline - render and manage timeline widgets

Usage:
  timeline <command> [flags]

Commands:
  render     Render a group as an HTML page or a screenshot
  import     Load entries from a JSON or YAML file into the local store
  query      Print the entries of a group as JSON
  groups     List the groups in the local store
  delete     Remove a group from the local store
  inspect    Check a group for broken URLs and unrenderable text
  config     Print the effective configuration
  version    Print version information

Run 'timeline <command> --help' for details on each command.`)
}

// ============================================================
// Shared flags
// ============================================================

// commonFlags are accepted by every command that reads entries. Flags win
// over the environment, which wins over the config file.
type commonFlags struct {
	configPath  *string
	group       *string
	source      *string
	db          *string
	api         *string
	orientation *string
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	return &commonFlags{
		configPath:  fs.String("config", "", "Path to config file (default: ~/.timelineview/config.toml)"),
		group:       fs.String("group", "", "Timeline group to load"),
		source:      fs.String("source", "", "Entry source: http, sqlite"),
		db:          fs.String("db", "", "Path to SQLite database"),
		api:         fs.String("api", "", "Base URL of the timelines API"),
		orientation: fs.String("orientation", "", "Layout: vertical, horizontal, alternating"),
	}
}

func (c *commonFlags) load() *config.Config {
	cfg, err := config.Load(*c.configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if *c.group != "" {
		cfg.Widget.Group = *c.group
	}
	if *c.source != "" {
		cfg.Source.Kind = *c.source
	}
	if *c.db != "" {
		cfg.Source.DBPath = *c.db
	}
	if *c.api != "" {
		cfg.Source.BaseURL = *c.api
	}
	if *c.orientation != "" {
		cfg.Widget.Orientation = *c.orientation
	}

	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid flags: %v", err)
	}
	return cfg
}

func requireGroup(fs *flag.FlagSet, cfg *config.Config) string {
	if cfg.Widget.Group == "" {
		fmt.Fprintln(os.Stderr, "Error: --group is required")
		fs.Usage()
		os.Exit(1)
	}
	return cfg.Widget.Group
}

func openFetcher(cfg *config.Config) (source.Fetcher, func() error) {
	fetcher, closeFn, err := source.Open(cfg.Source, cfg.Widget.FetchTimeout.Duration)
	if err != nil {
		log.Fatalf("Failed to open %s source: %v", cfg.SourceKind(), err)
	}
	return fetcher, closeFn
}

func newDetector(cfg *config.Config, logger *log.Logger) *theme.Detector {
	return &theme.Detector{
		MarkerPath: cfg.Theme.MarkerPath,
		Terminal:   cfg.Theme.Terminal,
		Logger:     logger,
	}
}

// signalContext is cancelled on Ctrl+C.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// ============================================================
// Commands
// ============================================================

// cmdRender settles a widget for a group and writes it as a page or image.
func cmdRender() {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	common := addCommonFlags(fs)
	scheme := fs.String("theme", "auto", "Color scheme: auto, dark, light")
	format := fs.String("format", "html", "Output format: html, png, jpg")
	output := fs.String("o", "", "Output file (default: stdout)")
	fs.Parse(os.Args[2:])

	cfg := common.load()
	group := requireGroup(fs, cfg)

	var events []timeline.Event
	switch *scheme {
	case "auto":
	case "dark", "light":
		events = append(events, timeline.ThemeChanged{Dark: *scheme == "dark"})
	default:
		fmt.Fprintf(os.Stderr, "Unknown theme: %s\n", *scheme)
		os.Exit(1)
	}

	var shotFormat snapshot.Format
	if *format != "html" {
		f, err := snapshot.ParseFormat(*format)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Unknown format: %s\n", *format)
			os.Exit(1)
		}
		shotFormat = f
	}

	fetcher, closeFetcher := openFetcher(cfg)
	defer closeFetcher()

	logger := log.New(os.Stderr, "", log.LstdFlags)
	md := markdown.New(markdown.WithLogger(logger))

	model := tui.NewModel(tui.Config{
		Group:        group,
		Orientation:  cfg.Orientation(),
		Fetcher:      fetcher,
		Detector:     newDetector(cfg, logger),
		Markdown:     md,
		Logger:       logger,
		FetchTimeout: cfg.Widget.FetchTimeout.Duration,
	})
	defer model.Close()

	ctx, cancel := signalContext()
	defer cancel()

	model, err := tui.Settle(ctx, model, events...)
	if err != nil {
		log.Fatalf("Render failed: %v", err)
	}
	if state := model.State(); state.LastErr != nil {
		logger.Printf("[WARN] group %q rendered empty: %v", group, state.LastErr)
	}

	page, err := htmlview.Document(model.State(), md, htmlview.Options{Title: "Timeline: " + group})
	if err != nil {
		log.Fatalf("Render failed: %v", err)
	}

	w, closeOut := openOutput(*output)
	defer closeOut()

	if shotFormat == "" {
		if _, err := io.WriteString(w, page); err != nil {
			log.Fatalf("Failed to write output: %v", err)
		}
		return
	}

	opts := snapshot.Options{
		Width:    cfg.Snapshot.Width,
		Height:   cfg.Snapshot.Height,
		Quality:  cfg.Snapshot.Quality,
		Timeout:  cfg.Snapshot.Timeout.Duration,
		ExecPath: cfg.Snapshot.ExecPath,
		Logger:   logger,
	}
	if err := snapshot.Render(ctx, w, page, shotFormat, opts); err != nil {
		log.Fatalf("Snapshot failed: %v", err)
	}
}

// cmdImport replaces (or extends) a stored group from a file.
func cmdImport() {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	dbPath := fs.String("db", "", "Path to SQLite database")
	group := fs.String("group", "", "Group to import into (required)")
	file := fs.String("file", "", "JSON or YAML file with entries (required, - for stdin)")
	title := fs.String("title", "", "Display title of the group")
	appendMode := fs.Bool("append", false, "Append to the group instead of replacing it")
	fs.Parse(os.Args[2:])

	if *group == "" || *file == "" {
		fmt.Fprintln(os.Stderr, "Error: --group and --file are required")
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dbPath != "" {
		cfg.Source.DBPath = *dbPath
	}

	entries, err := readEntries(*file)
	if err != nil {
		log.Fatalf("Failed to read %s: %v", *file, err)
	}

	store, err := source.OpenStore(cfg.Source.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	if *appendMode {
		for _, e := range entries {
			if err := store.AppendEntry(*group, e); err != nil {
				log.Fatalf("Import failed: %v", err)
			}
		}
	} else if err := store.ReplaceEntries(*group, entries); err != nil {
		log.Fatalf("Import failed: %v", err)
	}

	if *title != "" {
		if err := store.SetGroupTitle(*group, *title); err != nil {
			log.Fatalf("Failed to set title: %v", err)
		}
	}

	fmt.Printf("Imported %d %s into group %q\n", len(entries), plural(len(entries), "entry", "entries"), *group)
}

// readEntries decodes a list of entries by file extension. Bare lists and
// the {"data": [...]} style envelopes are both accepted.
func readEntries(path string) ([]timeline.Entry, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	keys := []string{"data", "entries", "timelines"}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return jsonutil.DecodeYAMLList[timeline.Entry](data, keys...)
	default:
		return jsonutil.DecodeList[timeline.Entry](data, keys...)
	}
}

// cmdQuery prints a group's entries as fetched from the configured source.
func cmdQuery() {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	common := addCommonFlags(fs)
	fs.Parse(os.Args[2:])

	cfg := common.load()
	group := requireGroup(fs, cfg)

	fetcher, closeFetcher := openFetcher(cfg)
	defer closeFetcher()

	ctx, cancel := signalContext()
	defer cancel()
	ctx, cancelFetch := context.WithTimeout(ctx, cfg.Widget.FetchTimeout.Duration)
	defer cancelFetch()

	entries, err := fetcher.FetchTimelineEntries(ctx, group)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	out, err := jsonutil.PrettyJSON(entries)
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}
	fmt.Println(out)
}

// cmdGroups lists stored groups.
func cmdGroups() {
	fs := flag.NewFlagSet("groups", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	dbPath := fs.String("db", "", "Path to SQLite database")
	outputFormat := fs.String("format", "table", "Output format: table, json")
	fs.Parse(os.Args[2:])

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dbPath != "" {
		cfg.Source.DBPath = *dbPath
	}

	store, err := source.OpenStore(cfg.Source.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	groups, err := store.ListGroups()
	if err != nil {
		log.Fatalf("Query failed: %v", err)
	}

	switch *outputFormat {
	case "json":
		b, _ := json.MarshalIndent(groups, "", "  ")
		fmt.Println(string(b))
	case "table":
		if len(groups) == 0 {
			fmt.Println("No groups stored.")
			return
		}
		now := time.Now()
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "GROUP\tTITLE\tENTRIES\tCREATED\tUPDATED")
		for _, g := range groups {
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n",
				g.Name, jsonutil.TruncateString(g.Title, 40), g.EntryCount,
				timeutil.FormatTimestamp(g.CreatedAt), timeutil.RelativeTime(g.UpdatedAt, now))
		}
		tw.Flush()
	default:
		fmt.Fprintf(os.Stderr, "Unknown format: %s\n", *outputFormat)
		os.Exit(1)
	}
}

// cmdDelete removes a stored group.
func cmdDelete() {
	fs := flag.NewFlagSet("delete", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	dbPath := fs.String("db", "", "Path to SQLite database")
	group := fs.String("group", "", "Group to delete (required)")
	fs.Parse(os.Args[2:])

	if *group == "" {
		fmt.Fprintln(os.Stderr, "Error: --group is required")
		fs.Usage()
		os.Exit(1)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *dbPath != "" {
		cfg.Source.DBPath = *dbPath
	}

	store, err := source.OpenStore(cfg.Source.DBPath)
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer store.Close()

	if err := store.DeleteGroup(*group); err != nil {
		log.Fatalf("Delete failed: %v", err)
	}
	fmt.Printf("Deleted group %q\n", *group)
}

// cmdInspect checks every entry of a group and prints a report.
func cmdInspect() {
	fs := flag.NewFlagSet("inspect", flag.ExitOnError)
	common := addCommonFlags(fs)
	outputFormat := fs.String("format", "terminal", "Output format: terminal, markdown, json")
	strict := fs.Bool("strict", false, "Exit with status 2 when any high severity problem is found")
	fs.Parse(os.Args[2:])

	cfg := common.load()
	group := requireGroup(fs, cfg)

	fetcher, closeFetcher := openFetcher(cfg)
	defer closeFetcher()

	logger := log.New(os.Stderr, "", log.LstdFlags)
	analyzer := analysis.NewAnalyzer(fetcher, markdown.New(markdown.WithLogger(logger)))

	ctx, cancel := signalContext()
	defer cancel()
	ctx, cancelFetch := context.WithTimeout(ctx, cfg.Widget.FetchTimeout.Duration)
	defer cancelFetch()

	report, err := analyzer.Inspect(ctx, group)
	if err != nil {
		log.Fatalf("Inspection failed: %v", err)
	}

	switch *outputFormat {
	case "json":
		b, _ := json.MarshalIndent(report, "", "  ")
		fmt.Println(string(b))
	case "markdown":
		fmt.Print(analyzer.FormatReport(report))
	case "terminal":
		dark := newDetector(cfg, logger).Probe()
		fmt.Print(markdown.NewTerminal(logger).Render(analyzer.FormatReport(report), 100, dark))
	default:
		fmt.Fprintf(os.Stderr, "Unknown format: %s\n", *outputFormat)
		os.Exit(1)
	}

	if *strict && report.Worst() == analysis.SeverityHigh {
		os.Exit(2)
	}
}

// cmdConfig prints the effective configuration as TOML.
func cmdConfig() {
	fs := flag.NewFlagSet("config", flag.ExitOnError)
	configPath := fs.String("config", "", "Path to config file")
	showPath := fs.Bool("path", false, "Print the default config file location instead")
	fs.Parse(os.Args[2:])

	if *showPath {
		p, err := config.Path()
		if err != nil {
			log.Fatalf("Failed to resolve config path: %v", err)
		}
		fmt.Println(p)
		return
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Write(os.Stdout); err != nil {
		log.Fatalf("Failed to write config: %v", err)
	}
}

// ============================================================
// Helpers
// ============================================================

func openOutput(path string) (io.Writer, func()) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}
	}
	f, err := os.Create(path)
	if err != nil {
		log.Fatalf("Failed to create %s: %v", path, err)
	}
	return f, func() {
		if err := f.Close(); err != nil {
			log.Printf("[ERROR] closing %s: %v", path, err)
		}
	}
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
