package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mr-Dark-debug/timelineview/internal/layout"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, layout.Vertical, cfg.Orientation())
	assert.Equal(t, SourceSQLite, cfg.SourceKind())
	assert.Equal(t, 10*time.Second, cfg.Widget.FetchTimeout.Duration)
}

func TestLoadTOMLOverridesDefaults(t *testing.T) {
	path := writeFile(t, "config.toml", `
[widget]
group = "team-x"
orientation = "alternating"
fetch_timeout = "3s"

[source]
kind = "http"
base_url = "https://timelines.example"
rate_limit = 2.5
`)

	cfg := Default()
	require.NoError(t, cfg.LoadTOML(path))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "team-x", cfg.Widget.Group)
	assert.Equal(t, layout.Alternating, cfg.Orientation())
	assert.Equal(t, 3*time.Second, cfg.Widget.FetchTimeout.Duration)
	assert.Equal(t, SourceHTTP, cfg.SourceKind())
	assert.Equal(t, 2.5, cfg.Source.RateLimit)
	// Untouched sections keep their defaults.
	assert.Equal(t, 1200, cfg.Snapshot.Width)
	assert.Equal(t, "127.0.0.1:8787", cfg.Server.ListenAddr)
}

func TestLoadTOMLRejectsUnknownKeys(t *testing.T) {
	path := writeFile(t, "config.toml", "[widget]\ngroupe = \"typo\"\n")
	err := Default().LoadTOML(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "widget.groupe")
}

func TestLoadTOMLBadDuration(t *testing.T) {
	path := writeFile(t, "config.toml", "[widget]\nfetch_timeout = \"soon\"\n")
	assert.Error(t, Default().LoadTOML(path))
}

func TestLoadExplicitMissingPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		EnvGroup:        "from-env",
		EnvOrientation:  "horizontal",
		EnvFetchTimeout: "750ms",
		EnvSource:       "http",
		EnvAPIURL:       "http://localhost:9000",
		EnvRateLimit:    "4",
		EnvThemeMarker:  "/tmp/theme",
		EnvListen:       ":9999",
		EnvBrowser:      "/usr/bin/chromium",
	}
	cfg := Default()
	require.NoError(t, cfg.ApplyEnvOverrides(func(k string) string { return env[k] }))
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "from-env", cfg.Widget.Group)
	assert.Equal(t, layout.Horizontal, cfg.Orientation())
	assert.Equal(t, 750*time.Millisecond, cfg.Widget.FetchTimeout.Duration)
	assert.Equal(t, "http://localhost:9000", cfg.Source.BaseURL)
	assert.Equal(t, 4.0, cfg.Source.RateLimit)
	assert.Equal(t, "/tmp/theme", cfg.Theme.MarkerPath)
	assert.Equal(t, ":9999", cfg.Server.ListenAddr)
	assert.Equal(t, "/usr/bin/chromium", cfg.Snapshot.ExecPath)
}

func TestApplyEnvOverridesBadValues(t *testing.T) {
	for _, key := range []string{EnvFetchTimeout, EnvRateLimit} {
		cfg := Default()
		err := cfg.ApplyEnvOverrides(func(k string) string {
			if k == key {
				return "not-a-number"
			}
			return ""
		})
		assert.Error(t, err, key)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"orientation", func(c *Config) { c.Widget.Orientation = "diagonal" }, "widget.orientation"},
		{"fetch timeout", func(c *Config) { c.Widget.FetchTimeout.Duration = 0 }, "widget.fetch_timeout"},
		{"source kind", func(c *Config) { c.Source.Kind = "ftp" }, "source.kind"},
		{"base url", func(c *Config) { c.Source.Kind = "http"; c.Source.BaseURL = "timelines" }, "source.base_url"},
		{"db path", func(c *Config) { c.Source.DBPath = "" }, "source.db_path"},
		{"rate", func(c *Config) { c.Source.RateLimit = -1 }, "source.rate_limit"},
		{"listen", func(c *Config) { c.Server.ListenAddr = "" }, "server.listen_addr"},
		{"snapshot size", func(c *Config) { c.Snapshot.Width = 0 }, "snapshot"},
		{"quality", func(c *Config) { c.Snapshot.Quality = 101 }, "snapshot.quality"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var verrs ValidateErrors
			require.True(t, errors.As(err, &verrs))
			require.Len(t, verrs, 1)
			assert.Equal(t, tt.field, verrs[0].Field)
		})
	}
}

func TestValidateReportsEverything(t *testing.T) {
	cfg := Default()
	cfg.Widget.Orientation = "x"
	cfg.Snapshot.Quality = 0
	cfg.Server.ListenAddr = ""

	var verrs ValidateErrors
	require.True(t, errors.As(cfg.Validate(), &verrs))
	assert.Len(t, verrs, 3)
}

func TestWriteRoundTrips(t *testing.T) {
	cfg := Default()
	cfg.Widget.Group = "written"
	cfg.Widget.FetchTimeout.Duration = 42 * time.Second

	var buf bytes.Buffer
	require.NoError(t, cfg.Write(&buf))
	assert.Contains(t, buf.String(), `fetch_timeout = "42s"`)

	path := writeFile(t, "config.toml", buf.String())
	back := &Config{}
	require.NoError(t, back.LoadTOML(path))
	assert.Equal(t, cfg, back)
}

func TestLoadDotEnv(t *testing.T) {
	path := writeFile(t, ".env", "TIMELINE_DOTENV_PROBE=from-file\n")
	t.Setenv("TIMELINE_DOTENV_PROBE", "")
	os.Unsetenv("TIMELINE_DOTENV_PROBE")

	require.NoError(t, LoadDotEnv(path, filepath.Join(t.TempDir(), "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("TIMELINE_DOTENV_PROBE"))
}
