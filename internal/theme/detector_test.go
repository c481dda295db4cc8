package theme

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func TestProbeDefaultsToLight(t *testing.T) {
	d := &Detector{Getenv: env(nil)}
	assert.False(t, d.Probe())

	var nilDetector *Detector
	assert.False(t, nilDetector.Probe())

	missing := &Detector{Getenv: env(nil), MarkerPath: filepath.Join(t.TempDir(), "absent")}
	assert.False(t, missing.Probe())
}

func TestProbeEnvironmentPreference(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want bool
	}{
		{"explicit dark", map[string]string{EnvScheme: "Dark"}, true},
		{"explicit light wins over colorfgbg", map[string]string{EnvScheme: "light", "COLORFGBG": "15;0"}, false},
		{"colorfgbg dark", map[string]string{"COLORFGBG": "15;0"}, true},
		{"colorfgbg three fields", map[string]string{"COLORFGBG": "15;default;8"}, true},
		{"colorfgbg light", map[string]string{"COLORFGBG": "0;15"}, false},
		{"colorfgbg garbage", map[string]string{"COLORFGBG": "x;y"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &Detector{Getenv: env(tt.vars)}
			assert.Equal(t, tt.want, d.Probe())
		})
	}
}

func TestMarkerIsDark(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", false},
		{"dark\n", true},
		{"DARK", true},
		{"light", false},
		{`<html class="dark"><body></body></html>`, true},
		{`<html class="theme-darkish"></html>`, false},
		{`<html><body class="page dark"></body></html>`, true},
		{`<html data-theme="dark"></html>`, true},
		{`<html data-theme="light"><body><div class="dark"></div></body></html>`, false},
		{`<!DOCTYPE html><html lang="en" class="dark"><head></head></html>`, true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, MarkerIsDark([]byte(tt.in)), tt.in)
	}
}

func TestProbeSignalsAreOred(t *testing.T) {
	marker := filepath.Join(t.TempDir(), "page.html")
	require.NoError(t, os.WriteFile(marker, []byte(`<html class="dark"></html>`), 0o644))

	d := &Detector{Getenv: env(map[string]string{EnvScheme: "light"}), MarkerPath: marker}
	assert.True(t, d.Probe(), "marker alone should select dark")

	require.NoError(t, os.WriteFile(marker, []byte(`<html></html>`), 0o644))
	assert.False(t, d.Probe())

	d.Getenv = env(map[string]string{EnvScheme: "dark"})
	assert.True(t, d.Probe(), "environment alone should select dark")
}

func TestSubscribeWithoutMarkerIsInert(t *testing.T) {
	d := &Detector{Getenv: env(nil)}
	sub := d.Subscribe(func() { t.Error("inert subscription fired") })
	require.NotNil(t, sub)
	sub.Cancel()
	sub.Cancel()

	var nilSub *Subscription
	nilSub.Cancel()
}

func TestSubscribeNotifiesAndCancelStops(t *testing.T) {
	dir := t.TempDir()
	marker := filepath.Join(dir, "theme")
	require.NoError(t, os.WriteFile(marker, []byte("light"), 0o644))

	d := &Detector{Getenv: env(nil), MarkerPath: marker}
	var calls atomic.Int32
	fired := make(chan struct{}, 16)
	sub := d.Subscribe(func() {
		calls.Add(1)
		select {
		case fired <- struct{}{}:
		default:
		}
	})

	// Changes to other files in the directory are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(marker, []byte("dark"), 0o644))

	select {
	case <-fired:
	case <-time.After(5 * time.Second):
		t.Fatal("no notification after the marker changed")
	}
	require.Eventually(t, d.Probe, 5*time.Second, 10*time.Millisecond)

	sub.Cancel()
	after := calls.Load()

	require.NoError(t, os.WriteFile(marker, []byte("light"), 0o644))
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, after, calls.Load(), "callback ran after Cancel")

	sub.Cancel()
}
