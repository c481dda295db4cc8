// Package server hosts timeline widgets over HTTP.
//
// Each page request mounts a fresh widget for the requested group, settles
// it headlessly and renders the result as a standalone document. Clicks are
// encoded in the query string and replayed as widget events:
//
//	GET /timeline/{group}?orientation=alternating&theme=dark
//	GET /timeline/{group}?item=2&preview=<url>&origin=slot
//	GET /timeline/{group}?format=png
//
// The server also exposes the entries of its source in the JSON shape the
// HTTP fetcher consumes, plus health and metrics endpoints.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Mr-Dark-debug/timelineview/internal/htmlview"
	"github.com/Mr-Dark-debug/timelineview/internal/layout"
	"github.com/Mr-Dark-debug/timelineview/internal/markdown"
	"github.com/Mr-Dark-debug/timelineview/internal/snapshot"
	"github.com/Mr-Dark-debug/timelineview/internal/source"
	"github.com/Mr-Dark-debug/timelineview/internal/theme"
	"github.com/Mr-Dark-debug/timelineview/internal/timeline"
	"github.com/Mr-Dark-debug/timelineview/internal/tui"
)

// Metrics tracks request throughput and error rates.
type Metrics struct {
	PagesServed    int64 `json:"pages_served"`
	SnapshotsTaken int64 `json:"snapshots_taken"`
	PreviewsOpened int64 `json:"previews_opened"`
	FetchErrors    int64 `json:"fetch_errors"`
	ErrorCount     int64 `json:"error_count"`
	Uptime         int64 `json:"uptime_seconds"`
}

// Config holds configuration for the widget server.
type Config struct {
	// ListenAddr is the TCP address to listen on.
	ListenAddr string

	// MetricsEnabled exposes /metrics and /api/metrics.
	MetricsEnabled bool

	// RequestTimeout bounds mounting and settling one widget.
	RequestTimeout time.Duration

	// FetchTimeout bounds a single fetch inside a request.
	FetchTimeout time.Duration

	// Orientation is used when a request does not choose one.
	Orientation layout.Orientation

	// Snapshot configures ?format=png|jpg renders.
	Snapshot snapshot.Options
}

// DefaultConfig returns sensible defaults for the server.
func DefaultConfig() Config {
	return Config{
		ListenAddr:     "127.0.0.1:8787",
		MetricsEnabled: true,
		RequestTimeout: 15 * time.Second,
		FetchTimeout:   10 * time.Second,
		Snapshot: snapshot.Options{
			Width:   1200,
			Height:  800,
			Quality: 90,
			Timeout: 30 * time.Second,
		},
	}
}

// CaptureFunc turns a document into a PNG screenshot.
type CaptureFunc func(ctx context.Context, page string) ([]byte, error)

// Server serves timeline pages.
type Server struct {
	config   Config
	fetcher  source.Fetcher
	detector *theme.Detector
	md       *markdown.Renderer
	logger   timeline.Logger
	capture  CaptureFunc

	metrics Metrics
	started time.Time

	httpServer *http.Server
	listener   net.Listener
	wg         sync.WaitGroup
	stopOnce   sync.Once
	// stopped is closed by Stop; watchDone when the ctx watcher exits.
	stopped   chan struct{}
	watchDone chan struct{}
}

// New creates a server. detector may be nil; logger defaults to the
// standard logger.
func New(config Config, fetcher source.Fetcher, detector *theme.Detector, logger timeline.Logger) *Server {
	if logger == nil {
		logger = log.Default()
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultConfig().RequestTimeout
	}
	s := &Server{
		config:   config,
		fetcher:  fetcher,
		detector: detector,
		md:       markdown.New(markdown.WithLogger(logger)),
		logger:   logger,
		started:  time.Now(),
	}
	s.capture = func(ctx context.Context, page string) ([]byte, error) {
		opts := s.config.Snapshot
		opts.Logger = s.logger
		return snapshot.Capture(ctx, page, opts)
	}
	return s
}

// SetCapture replaces the screenshot backend.
func (s *Server) SetCapture(fn CaptureFunc) {
	s.capture = fn
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /timeline/{group}", s.handleTimeline)
	mux.HandleFunc("GET /api/timelines", s.handleEntries)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.config.MetricsEnabled {
		mux.HandleFunc("GET /metrics", s.handleMetrics)
		mux.HandleFunc("GET /api/metrics", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, s.Metrics())
		})
	}
	return mux
}

// Start listens on ListenAddr and serves until Stop or ctx is done.
func (s *Server) Start(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.config.ListenAddr, err)
	}
	s.listener = listener
	s.started = time.Now()
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Printf("[ERROR] timeline server: %v", err)
		}
	}()

	s.stopped = make(chan struct{})
	s.watchDone = make(chan struct{})
	go func() {
		defer close(s.watchDone)
		select {
		case <-ctx.Done():
			_ = s.Stop()
		case <-s.stopped:
		}
	}()

	s.logger.Printf("[INFO] timeline server listening on http://%s", listener.Addr())
	return nil
}

// Addr returns the bound address once started.
func (s *Server) Addr() string {
	if s.listener == nil {
		return s.config.ListenAddr
	}
	return s.listener.Addr().String()
}

// Stop shuts the server down, letting in-flight requests finish.
func (s *Server) Stop() error {
	var err error
	s.stopOnce.Do(func() {
		if s.httpServer == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		close(s.stopped)
		err = s.httpServer.Shutdown(ctx)
		s.wg.Wait()
		s.logger.Printf("[INFO] timeline server stopped")
	})
	return err
}

// Metrics returns a snapshot of the current metrics.
func (s *Server) Metrics() Metrics {
	return Metrics{
		PagesServed:    atomic.LoadInt64(&s.metrics.PagesServed),
		SnapshotsTaken: atomic.LoadInt64(&s.metrics.SnapshotsTaken),
		PreviewsOpened: atomic.LoadInt64(&s.metrics.PreviewsOpened),
		FetchErrors:    atomic.LoadInt64(&s.metrics.FetchErrors),
		ErrorCount:     atomic.LoadInt64(&s.metrics.ErrorCount),
		Uptime:         int64(time.Since(s.started).Seconds()),
	}
}

// ============================================================
// Handlers
// ============================================================

func (s *Server) handleTimeline(w http.ResponseWriter, r *http.Request) {
	group := r.PathValue("group")
	q := r.URL.Query()

	orientation := s.config.Orientation
	if v := q.Get("orientation"); v != "" {
		o, ok := layout.ParseOrientation(v)
		if !ok {
			s.fail(w, http.StatusBadRequest, "unknown orientation %q", v)
			return
		}
		orientation = o
	}

	events, err := queryEvents(q)
	if err != nil {
		s.fail(w, http.StatusBadRequest, "%v", err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	m := tui.NewModel(tui.Config{
		Group:        group,
		Orientation:  orientation,
		Fetcher:      s.fetcher,
		Detector:     s.detector,
		Markdown:     s.md,
		Logger:       s.logger,
		FetchTimeout: s.config.FetchTimeout,
	})
	defer m.Close()

	m, err = tui.Settle(ctx, m, events...)
	if err != nil {
		s.fail(w, http.StatusGatewayTimeout, "rendering %q: %v", group, err)
		return
	}

	state := m.State()
	if state.LastErr != nil {
		atomic.AddInt64(&s.metrics.FetchErrors, 1)
	}
	if state.PreviewOpen() {
		atomic.AddInt64(&s.metrics.PreviewsOpened, 1)
	}

	page, err := htmlview.Document(state, s.md, htmlview.Options{
		Links: htmlview.QueryLinks{Base: q},
	})
	if err != nil {
		s.fail(w, http.StatusInternalServerError, "%v", err)
		return
	}

	if v := q.Get("format"); v != "" && v != "html" {
		s.writeSnapshot(ctx, w, page, v)
		return
	}

	atomic.AddInt64(&s.metrics.PagesServed, 1)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(page))
}

func (s *Server) writeSnapshot(ctx context.Context, w http.ResponseWriter, page, formatParam string) {
	format, err := snapshot.ParseFormat(formatParam)
	if err != nil {
		s.fail(w, http.StatusBadRequest, "%v", err)
		return
	}

	shot, err := s.capture(ctx, page)
	if err != nil {
		s.fail(w, http.StatusBadGateway, "%v", err)
		return
	}

	contentType := "image/png"
	if format == snapshot.JPEG {
		contentType = "image/jpeg"
	}
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if err := snapshot.Encode(w, shot, format, s.config.Snapshot.Quality); err != nil {
		s.logger.Printf("[ERROR] writing snapshot: %v", err)
		atomic.AddInt64(&s.metrics.ErrorCount, 1)
		return
	}
	atomic.AddInt64(&s.metrics.SnapshotsTaken, 1)
}

// handleEntries serves GET /api/timelines?groupName=<group>.
func (s *Server) handleEntries(w http.ResponseWriter, r *http.Request) {
	group := r.URL.Query().Get("groupName")
	if group == "" {
		s.fail(w, http.StatusBadRequest, "groupName is required")
		return
	}
	if s.fetcher == nil {
		s.fail(w, http.StatusServiceUnavailable, "no timeline source configured")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	entries, err := s.fetcher.FetchTimelineEntries(ctx, group)
	if err != nil {
		atomic.AddInt64(&s.metrics.FetchErrors, 1)
		s.fail(w, http.StatusBadGateway, "%v", err)
		return
	}
	if entries == nil {
		entries = []timeline.Entry{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"data": entries})
}

// handleMetrics writes the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	m := s.Metrics()
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	counter := func(name, help string, v int64) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s counter\n", name)
		fmt.Fprintf(w, "%s %d\n", name, v)
	}
	counter("timelineview_pages_served_total", "Total widget pages served", m.PagesServed)
	counter("timelineview_snapshots_total", "Total image snapshots served", m.SnapshotsTaken)
	counter("timelineview_previews_opened_total", "Total pages rendered with an open preview", m.PreviewsOpened)
	counter("timelineview_fetch_errors_total", "Total failed entry fetches", m.FetchErrors)
	counter("timelineview_errors_total", "Total request errors", m.ErrorCount)
	fmt.Fprintf(w, "# HELP timelineview_uptime_seconds Uptime in seconds\n")
	fmt.Fprintf(w, "# TYPE timelineview_uptime_seconds gauge\n")
	fmt.Fprintf(w, "timelineview_uptime_seconds %d\n", m.Uptime)
}

// queryEvents converts click parameters into widget events.
func queryEvents(q url.Values) ([]timeline.Event, error) {
	get := q.Get

	var events []timeline.Event
	switch get("theme") {
	case "":
	case "dark":
		events = append(events, timeline.ThemeChanged{Dark: true})
	case "light":
		events = append(events, timeline.ThemeChanged{Dark: false})
	default:
		return nil, fmt.Errorf("unknown theme %q", get("theme"))
	}

	preview := get("preview")
	if preview == "" {
		return events, nil
	}
	index, err := strconv.Atoi(get("item"))
	if err != nil {
		return nil, fmt.Errorf("invalid item %q", get("item"))
	}
	origin := timeline.OriginSlot
	switch get("origin") {
	case "", "slot":
	case "rich-text":
		origin = timeline.OriginRichText
	default:
		return nil, fmt.Errorf("unknown origin %q", get("origin"))
	}
	return append(events, timeline.ImageClicked{Index: index, URL: preview, Origin: origin}), nil
}

func (s *Server) fail(w http.ResponseWriter, code int, format string, v ...any) {
	msg := fmt.Sprintf(format, v...)
	if code >= http.StatusInternalServerError {
		s.logger.Printf("[ERROR] %s", msg)
	} else {
		s.logger.Printf("[DEBUG] %s", msg)
	}
	atomic.AddInt64(&s.metrics.ErrorCount, 1)
	writeJSON(w, code, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
