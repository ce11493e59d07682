package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/jscyril/golang_turntable/api"
	"github.com/jscyril/golang_turntable/internal/geometry"
)

const appName = "turntable"

// Config holds application configuration
type Config struct {
	DataDir   string          `koanf:"data_dir"`
	Mode      string          `koanf:"mode"` // "remote" or "local"
	Geometry  geometry.Config `koanf:"geometry"`
	Turntable TurntableConfig `koanf:"turntable"`
	Spotify   SpotifyConfig   `koanf:"spotify"`
	Player    PlayerConfig    `koanf:"player"`
	Library   LibraryConfig   `koanf:"library"`
	Log       LogConfig       `koanf:"log"`
}

// TurntableConfig tunes the record and arm
type TurntableConfig struct {
	MaxTracks         int           `koanf:"max_tracks"`
	DefaultPlaylistID string        `koanf:"default_playlist_id"`
	SettleDelay       time.Duration `koanf:"settle_delay"`
	VisualizerBars    int           `koanf:"visualizer_bars"`
	RPM               float64       `koanf:"rpm"`
}

// SpotifyConfig holds the streaming service credentials
type SpotifyConfig struct {
	ClientID     string  `koanf:"client_id"`
	ClientSecret string  `koanf:"client_secret"`
	RedirectURL  string  `koanf:"redirect_url"`
	DeviceName   string  `koanf:"device_name"`
	AccessToken  string  `koanf:"access_token"` // usually from the environment
	RateLimit    float64 `koanf:"rate_limit"`   // requests per second
}

// PlayerConfig holds playback defaults
type PlayerConfig struct {
	DefaultVolume  float64       `koanf:"default_volume"`
	PollInterval   time.Duration `koanf:"poll_interval"`
	ProgressPeriod time.Duration `koanf:"progress_period"`
}

// LibraryConfig lists local music to load at startup
type LibraryConfig struct {
	Directories []string `koanf:"directories"`
}

// LogConfig controls the rotating log file
type LogConfig struct {
	Level      string `koanf:"level"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
}

// GetDefaultConfig returns default configuration
func GetDefaultConfig() *Config {
	return &Config{
		DataDir:  defaultDataDir(),
		Mode:     api.ModeRemote.String(),
		Geometry: geometry.DefaultConfig(),
		Turntable: TurntableConfig{
			MaxTracks:         12,
			DefaultPlaylistID: "37i9dQZF1DXcBWIGoYBM5M",
			SettleDelay:       500 * time.Millisecond,
			VisualizerBars:    64,
			RPM:               100.0 / 3,
		},
		Spotify: SpotifyConfig{
			RedirectURL: "http://127.0.0.1:8888/callback",
			RateLimit:   10,
		},
		Player: PlayerConfig{
			DefaultVolume:  0.5,
			PollInterval:   time.Second,
			ProgressPeriod: time.Second,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load builds the configuration from defaults, the TOML files and the
// environment, in that order. With an explicit path only that file is
// read and it must exist; otherwise the user config and ./config.toml are
// read when present.
func Load(path string) (*Config, error) {
	// .env never overrides variables already set
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}

	k := koanf.New(".")
	paths := candidatePaths()
	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		paths = []string{path}
	}

	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := k.Load(file.Provider(p), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", p, err)
		}
	}

	cfg := GetDefaultConfig()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyEnv()
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the player cannot run with
func (c *Config) Validate() error {
	if err := c.Geometry.Validate(); err != nil {
		return err
	}
	if _, err := api.ParseMode(c.Mode); err != nil {
		return err
	}
	if c.Player.DefaultVolume < 0 || c.Player.DefaultVolume > 1 {
		return fmt.Errorf("player.default_volume must be within [0,1], got %v", c.Player.DefaultVolume)
	}
	return nil
}

// StartMode is the mode the player starts in
func (c *Config) StartMode() api.Mode {
	m, err := api.ParseMode(c.Mode)
	if err != nil {
		return api.ModeRemote
	}
	return m
}

// HasSpotifyCredentials reports whether an OAuth login is possible
func (c *Config) HasSpotifyCredentials() bool {
	return c.Spotify.ClientID != "" && c.Spotify.ClientSecret != ""
}

// LogPath is the log file, inside DataDir unless configured
func (c *Config) LogPath() string {
	if c.Log.File != "" {
		return c.Log.File
	}
	return filepath.Join(c.DataDir, appName+".log")
}

func (c *Config) applyEnv() {
	overrides := []struct {
		key string
		dst *string
	}{
		{"TURNTABLE_DATA_DIR", &c.DataDir},
		{"TURNTABLE_MODE", &c.Mode},
		{"TURNTABLE_LOG_LEVEL", &c.Log.Level},
		{"SPOTIFY_CLIENT_ID", &c.Spotify.ClientID},
		{"SPOTIFY_CLIENT_SECRET", &c.Spotify.ClientSecret},
		{"SPOTIFY_REDIRECT_URL", &c.Spotify.RedirectURL},
		{"SPOTIFY_DEVICE_NAME", &c.Spotify.DeviceName},
		{"SPOTIFY_ACCESS_TOKEN", &c.Spotify.AccessToken},
	}
	for _, o := range overrides {
		if v, ok := os.LookupEnv(o.key); ok && v != "" {
			*o.dst = v
		}
	}
	if dirs := os.Getenv("TURNTABLE_MUSIC_DIRS"); dirs != "" {
		c.Library.Directories = filepath.SplitList(dirs)
	}
}

// normalize fills zero values with defaults and expands ~ in paths
func (c *Config) normalize() {
	def := GetDefaultConfig()

	if c.Turntable.MaxTracks <= 0 {
		c.Turntable.MaxTracks = def.Turntable.MaxTracks
	}
	if c.Turntable.DefaultPlaylistID == "" {
		c.Turntable.DefaultPlaylistID = def.Turntable.DefaultPlaylistID
	}
	if c.Turntable.SettleDelay <= 0 {
		c.Turntable.SettleDelay = def.Turntable.SettleDelay
	}
	if c.Turntable.VisualizerBars <= 0 {
		c.Turntable.VisualizerBars = def.Turntable.VisualizerBars
	}
	if c.Turntable.RPM <= 0 {
		c.Turntable.RPM = def.Turntable.RPM
	}
	if c.Spotify.RateLimit <= 0 {
		c.Spotify.RateLimit = def.Spotify.RateLimit
	}
	if c.Player.PollInterval <= 0 {
		c.Player.PollInterval = def.Player.PollInterval
	}
	if c.Player.ProgressPeriod <= 0 {
		c.Player.ProgressPeriod = def.Player.ProgressPeriod
	}

	c.Mode = strings.ToLower(strings.TrimSpace(c.Mode))
	c.DataDir = expandPath(c.DataDir)
	c.Log.File = expandPath(c.Log.File)
	for i, dir := range c.Library.Directories {
		c.Library.Directories[i] = expandPath(dir)
	}
}

// GetConfigPath returns the user config file path
func GetConfigPath() string {
	if path := os.Getenv("TURNTABLE_CONFIG"); path != "" {
		return path
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, appName, "config.toml")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.toml"
	}
	return filepath.Join(home, ".config", appName, "config.toml")
}

// candidatePaths are read in order, later files winning
func candidatePaths() []string {
	paths := []string{GetConfigPath()}
	if paths[0] != "config.toml" && paths[0] != "./config.toml" {
		paths = append(paths, "config.toml")
	}
	return paths
}

func defaultDataDir() string {
	if xdgData := os.Getenv("XDG_DATA_HOME"); xdgData != "" {
		return filepath.Join(xdgData, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "./data"
	}
	return filepath.Join(home, ".local", "share", appName)
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
