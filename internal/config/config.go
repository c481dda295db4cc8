// Package config loads the timelineview configuration.
//
// Sources, later ones winning:
//   - built-in defaults
//   - ~/.timelineview/config.toml (or an explicit path)
//   - a .env file in the working directory
//   - TIMELINE_* environment variables
//
// Command-line flags are applied by the commands on top of the result.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/Mr-Dark-debug/timelineview/internal/layout"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config is the complete timelineview configuration.
type Config struct {
	Widget   WidgetConfig   `toml:"widget"`
	Source   SourceConfig   `toml:"source"`
	Theme    ThemeConfig    `toml:"theme"`
	Server   ServerConfig   `toml:"server"`
	Snapshot SnapshotConfig `toml:"snapshot"`
}

// WidgetConfig holds the mount-time widget settings.
type WidgetConfig struct {
	Group        string   `toml:"group"`
	Orientation  string   `toml:"orientation"`
	FetchTimeout Duration `toml:"fetch_timeout"`
}

// Source kinds.
const (
	SourceHTTP   = "http"
	SourceSQLite = "sqlite"
)

// SourceConfig selects where entries come from.
type SourceConfig struct {
	// Kind is "http" or "sqlite".
	Kind    string `toml:"kind"`
	BaseURL string `toml:"base_url"`
	DBPath  string `toml:"db_path"`
	// RateLimit is the sustained HTTP request rate per second; 0 disables it.
	RateLimit float64 `toml:"rate_limit"`
	Burst     int     `toml:"burst"`
}

// ThemeConfig configures the theme detector.
type ThemeConfig struct {
	// MarkerPath is a file whose contents mark the host as dark.
	MarkerPath string `toml:"marker_path"`
	// Terminal allows querying the terminal background.
	Terminal bool `toml:"terminal"`
}

// ServerConfig configures timeline-server.
type ServerConfig struct {
	ListenAddr     string   `toml:"listen_addr"`
	MetricsEnabled bool     `toml:"metrics_enabled"`
	RequestTimeout Duration `toml:"request_timeout"`
}

// SnapshotConfig configures headless browser snapshots.
type SnapshotConfig struct {
	Width   int      `toml:"width"`
	Height  int      `toml:"height"`
	Quality int      `toml:"quality"`
	Timeout Duration `toml:"timeout"`
	// ExecPath overrides the browser binary; empty lets chromedp search.
	ExecPath string `toml:"exec_path"`
}

// Duration is a time.Duration written as a string ("10s") in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	d.Duration = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// =============================================================================
// DEFAULTS & PATHS
// =============================================================================

// Default returns the built-in configuration.
func Default() *Config {
	dbPath := "timelineview.db"
	if dir, err := Dir(); err == nil {
		dbPath = filepath.Join(dir, "timelineview.db")
	}

	return &Config{
		Widget: WidgetConfig{
			Orientation:  layout.Vertical.String(),
			FetchTimeout: Duration{10 * time.Second},
		},
		Source: SourceConfig{
			Kind:    SourceSQLite,
			BaseURL: "http://127.0.0.1:8080",
			DBPath:  dbPath,
			Burst:   1,
		},
		Server: ServerConfig{
			ListenAddr:     "127.0.0.1:8787",
			MetricsEnabled: true,
			RequestTimeout: Duration{15 * time.Second},
		},
		Snapshot: SnapshotConfig{
			Width:   1200,
			Height:  800,
			Quality: 90,
			Timeout: Duration{30 * time.Second},
		},
	}
}

// Dir returns ~/.timelineview.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("locating home directory: %w", err)
	}
	return filepath.Join(home, ".timelineview"), nil
}

// Path returns the default config file location.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// =============================================================================
// LOADING
// =============================================================================

// Load builds the effective configuration. An empty path selects the
// default location; a missing file there is not an error, while a missing
// explicit path is.
func Load(path string) (*Config, error) {
	cfg := Default()

	explicit := path != ""
	if !explicit {
		p, err := Path()
		if err != nil {
			return nil, err
		}
		path = p
	}

	if err := cfg.LoadTOML(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	if err := LoadDotEnv(); err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnvOverrides(os.Getenv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadTOML decodes the file at path over c. Keys absent from the file keep
// their current values.
func (c *Config) LoadTOML(path string) error {
	md, err := toml.DecodeFile(path, c)
	if err != nil {
		return fmt.Errorf("loading config %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("loading config %s: unknown keys: %s", path, strings.Join(keys, ", "))
	}
	return nil
}

// LoadDotEnv loads the given .env files (default ".env") into the process
// environment without overriding variables that are already set. Missing
// files are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("loading %s: %w", f, err)
		}
	}
	return nil
}

// Environment variables read by ApplyEnvOverrides.
const (
	EnvGroup        = "TIMELINE_GROUP"
	EnvOrientation  = "TIMELINE_ORIENTATION"
	EnvFetchTimeout = "TIMELINE_FETCH_TIMEOUT"
	EnvSource       = "TIMELINE_SOURCE"
	EnvAPIURL       = "TIMELINE_API_URL"
	EnvDB           = "TIMELINE_DB"
	EnvRateLimit    = "TIMELINE_RATE_LIMIT"
	EnvThemeMarker  = "TIMELINE_THEME_MARKER"
	EnvListen       = "TIMELINE_LISTEN"
	EnvBrowser      = "TIMELINE_BROWSER"
)

// ApplyEnvOverrides copies TIMELINE_* variables over c. A nil getenv reads
// the process environment.
func (c *Config) ApplyEnvOverrides(getenv func(string) string) error {
	if getenv == nil {
		getenv = os.Getenv
	}

	if v := getenv(EnvGroup); v != "" {
		c.Widget.Group = v
	}
	if v := getenv(EnvOrientation); v != "" {
		c.Widget.Orientation = v
	}
	if v := getenv(EnvFetchTimeout); v != "" {
		if err := c.Widget.FetchTimeout.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("%s: %w", EnvFetchTimeout, err)
		}
	}
	if v := getenv(EnvSource); v != "" {
		c.Source.Kind = v
	}
	if v := getenv(EnvAPIURL); v != "" {
		c.Source.BaseURL = v
	}
	if v := getenv(EnvDB); v != "" {
		c.Source.DBPath = v
	}
	if v := getenv(EnvRateLimit); v != "" {
		rate, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: invalid rate %q: %w", EnvRateLimit, v, err)
		}
		c.Source.RateLimit = rate
	}
	if v := getenv(EnvThemeMarker); v != "" {
		c.Theme.MarkerPath = v
	}
	if v := getenv(EnvListen); v != "" {
		c.Server.ListenAddr = v
	}
	if v := getenv(EnvBrowser); v != "" {
		c.Snapshot.ExecPath = v
	}
	return nil
}

// Write encodes c as TOML.
func (c *Config) Write(w io.Writer) error {
	if err := toml.NewEncoder(w).Encode(c); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes one invalid setting.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidateErrors is a collection of validation errors.
type ValidateErrors []ValidationError

func (e ValidateErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Validate checks every setting and reports all problems at once.
func (c *Config) Validate() error {
	var errs ValidateErrors
	add := func(field, format string, v ...any) {
		errs = append(errs, ValidationError{Field: field, Message: fmt.Sprintf(format, v...)})
	}

	// Widget
	if _, ok := layout.ParseOrientation(c.Widget.Orientation); !ok {
		add("widget.orientation", "invalid orientation %q, must be one of: vertical, horizontal, alternating", c.Widget.Orientation)
	}
	if c.Widget.FetchTimeout.Duration <= 0 {
		add("widget.fetch_timeout", "must be positive")
	}

	// Source
	switch strings.ToLower(c.Source.Kind) {
	case SourceHTTP:
		u, err := url.Parse(c.Source.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			add("source.base_url", "invalid URL %q, must be an absolute http(s) URL", c.Source.BaseURL)
		}
	case SourceSQLite:
		if c.Source.DBPath == "" {
			add("source.db_path", "required when source.kind is sqlite")
		}
	default:
		add("source.kind", "invalid kind %q, must be one of: http, sqlite", c.Source.Kind)
	}
	if c.Source.RateLimit < 0 {
		add("source.rate_limit", "must not be negative")
	}
	if c.Source.Burst < 0 {
		add("source.burst", "must not be negative")
	}

	// Server
	if c.Server.ListenAddr == "" {
		add("server.listen_addr", "required")
	}
	if c.Server.RequestTimeout.Duration <= 0 {
		add("server.request_timeout", "must be positive")
	}

	// Snapshot
	if c.Snapshot.Width <= 0 || c.Snapshot.Height <= 0 {
		add("snapshot", "width and height must be positive, got %dx%d", c.Snapshot.Width, c.Snapshot.Height)
	}
	if c.Snapshot.Quality < 1 || c.Snapshot.Quality > 100 {
		add("snapshot.quality", "must be between 1 and 100, got %d", c.Snapshot.Quality)
	}
	if c.Snapshot.Timeout.Duration <= 0 {
		add("snapshot.timeout", "must be positive")
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Orientation returns the parsed widget orientation.
func (c *Config) Orientation() layout.Orientation {
	o, _ := layout.ParseOrientation(c.Widget.Orientation)
	return o
}

// SourceKind returns the normalized source kind.
func (c *Config) SourceKind() string {
	return strings.ToLower(strings.TrimSpace(c.Source.Kind))
}
