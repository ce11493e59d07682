package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jscyril/golang_turntable/api"
)

// isolate points every lookup at an empty temp dir
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("TURNTABLE_CONFIG", filepath.Join(dir, "missing.toml"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))
	for _, key := range []string{
		"TURNTABLE_DATA_DIR", "TURNTABLE_MODE", "TURNTABLE_LOG_LEVEL", "TURNTABLE_MUSIC_DIRS",
		"SPOTIFY_CLIENT_ID", "SPOTIFY_CLIENT_SECRET", "SPOTIFY_REDIRECT_URL",
		"SPOTIFY_DEVICE_NAME", "SPOTIFY_ACCESS_TOKEN",
	} {
		t.Setenv(key, "")
	}
	return dir
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestLoadDefaults(t *testing.T) {
	dir := isolate(t)

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.StartMode() != api.ModeRemote {
		t.Errorf("StartMode = %v", cfg.StartMode())
	}
	if cfg.Turntable.MaxTracks != 12 {
		t.Errorf("MaxTracks = %d", cfg.Turntable.MaxTracks)
	}
	if cfg.Turntable.SettleDelay != 500*time.Millisecond {
		t.Errorf("SettleDelay = %v", cfg.Turntable.SettleDelay)
	}
	if cfg.Geometry.MinAngle != -45 || cfg.Geometry.MaxAngle != 45 {
		t.Errorf("unexpected geometry %+v", cfg.Geometry)
	}
	if cfg.DataDir != filepath.Join(dir, "data", "turntable") {
		t.Errorf("DataDir = %s", cfg.DataDir)
	}
	if cfg.LogPath() != filepath.Join(cfg.DataDir, "turntable.log") {
		t.Errorf("LogPath = %s", cfg.LogPath())
	}
	if cfg.HasSpotifyCredentials() {
		t.Error("expected no credentials by default")
	}
}

func TestLoadFile(t *testing.T) {
	dir := isolate(t)
	path := filepath.Join(dir, "custom.toml")
	writeFile(t, path, `
mode = "local"

[geometry]
arm_length = 160
[geometry.pivot]
x = 25

[turntable]
max_tracks = 8
settle_delay = "750ms"

[player]
default_volume = 0.8

[library]
directories = ["~/Music", "/srv/vinyl"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	tests := []struct {
		name string
		got  any
		want any
	}{
		{"mode", cfg.StartMode(), api.ModeLocal},
		{"arm length", cfg.Geometry.ArmLength, 160.0},
		{"pivot x", cfg.Geometry.Pivot.X, 25.0},
		{"pivot y kept", cfg.Geometry.Pivot.Y, 120.0},
		{"groove kept", cfg.Geometry.GrooveInner, 80.0},
		{"max tracks", cfg.Turntable.MaxTracks, 8},
		{"settle", cfg.Turntable.SettleDelay, 750 * time.Millisecond},
		{"volume", cfg.Player.DefaultVolume, 0.8},
		{"playlist default kept", cfg.Turntable.DefaultPlaylistID, "37i9dQZF1DXcBWIGoYBM5M"},
		{"dirs", len(cfg.Library.Directories), 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %v, want %v", tt.got, tt.want)
			}
		})
	}

	if strings.HasPrefix(cfg.Library.Directories[0], "~") {
		t.Errorf("expected ~ expansion, got %s", cfg.Library.Directories[0])
	}
}

func TestLoadCurrentDirectoryFile(t *testing.T) {
	dir := isolate(t)
	writeFile(t, filepath.Join(dir, "config.toml"), "[turntable]\nvisualizer_bars = 32\n")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Turntable.VisualizerBars != 32 {
		t.Errorf("VisualizerBars = %d, want 32", cfg.Turntable.VisualizerBars)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := isolate(t)

	if _, err := Load(filepath.Join(dir, "nope.toml")); err == nil {
		t.Error("expected error for missing explicit file")
	}

	bad := filepath.Join(dir, "bad.toml")
	writeFile(t, bad, "[geometry]\ngroove_inner = 300\n")
	if _, err := Load(bad); err == nil {
		t.Error("expected geometry validation error")
	}

	mode := filepath.Join(dir, "mode.toml")
	writeFile(t, mode, "mode = \"cassette\"\n")
	if _, err := Load(mode); err == nil {
		t.Error("expected invalid mode error")
	}

	vol := filepath.Join(dir, "vol.toml")
	writeFile(t, vol, "[player]\ndefault_volume = 2.0\n")
	if _, err := Load(vol); err == nil {
		t.Error("expected volume range error")
	}

	syntax := filepath.Join(dir, "syntax.toml")
	writeFile(t, syntax, "[player\n")
	if _, err := Load(syntax); err == nil {
		t.Error("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("TURNTABLE_MODE", "LOCAL")
	t.Setenv("SPOTIFY_CLIENT_ID", "id")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "secret")
	t.Setenv("TURNTABLE_MUSIC_DIRS", strings.Join([]string{"/a", "/b"}, string(os.PathListSeparator)))

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.StartMode() != api.ModeLocal {
		t.Errorf("StartMode = %v", cfg.StartMode())
	}
	if !cfg.HasSpotifyCredentials() {
		t.Error("expected credentials from the environment")
	}
	if len(cfg.Library.Directories) != 2 || cfg.Library.Directories[1] != "/b" {
		t.Errorf("Directories = %v", cfg.Library.Directories)
	}
}

func TestDotEnv(t *testing.T) {
	dir := isolate(t)
	// Unset so .env may fill it; t.Setenv restores the original afterwards
	os.Unsetenv("SPOTIFY_DEVICE_NAME")
	writeFile(t, filepath.Join(dir, ".env"), "SPOTIFY_DEVICE_NAME=Living Room\n")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Spotify.DeviceName != "Living Room" {
		t.Errorf("DeviceName = %q", cfg.Spotify.DeviceName)
	}
}

func TestGetConfigPath(t *testing.T) {
	t.Setenv("TURNTABLE_CONFIG", "/etc/turntable.toml")
	if got := GetConfigPath(); got != "/etc/turntable.toml" {
		t.Errorf("GetConfigPath = %s", got)
	}

	t.Setenv("TURNTABLE_CONFIG", "")
	t.Setenv("XDG_CONFIG_HOME", "/xdg")
	if got := GetConfigPath(); got != filepath.Join("/xdg", "turntable", "config.toml") {
		t.Errorf("GetConfigPath = %s", got)
	}
}
