// Package config loads the soundboard TOML configuration.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Server configures the HTTP API.
type Server struct {
	Addr                   string `toml:"addr"`
	CORS                   bool   `toml:"cors"`
	MaxUploadMB            int    `toml:"max_upload_mb"`
	ShutdownTimeoutSeconds int    `toml:"shutdown_timeout_seconds"`
}

// Storage configures the SQLite database.
type Storage struct {
	Path                 string `toml:"path"`
	TTLDays              int    `toml:"ttl_days"`
	BusyTimeoutMS        int    `toml:"busy_timeout_ms"`
	Synchronous          string `toml:"synchronous"`
	CacheSizeKB          int    `toml:"cache_size_kb"`
	PurgeIntervalMinutes int    `toml:"purge_interval_minutes"`
}

// Playback selects and configures the video player and audio output.
type Playback struct {
	// Widget is "simulated", "rod" or "none".
	Widget string `toml:"widget"`
	// Audio is "speaker", "discard" or "none".
	Audio         string `toml:"audio"`
	MountID       string `toml:"mount_id"`
	NoticeSeconds int    `toml:"notice_seconds"`
	SampleRate    int    `toml:"sample_rate"`
	BrowserBin    string `toml:"browser_bin"`
	Headless      bool   `toml:"headless"`
	PlayerPageURL string `toml:"player_page_url"`
	IframeAPIURL  string `toml:"iframe_api_url"`
	// Transcode converts uploads the decoders cannot read through ffmpeg.
	Transcode bool   `toml:"transcode"`
	FFmpegBin string `toml:"ffmpeg_bin"`
}

// Auth configures the admin password gate on mutating routes.
type Auth struct {
	Enabled        bool `toml:"enabled"`
	SessionHours   int  `toml:"session_hours"`
	LoginPerMinute int  `toml:"login_per_minute"`
	CacheMinutes   int  `toml:"cache_minutes"`
}

// Logging configures log output.
type Logging struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Config encapsulates all configuration values.
type Config struct {
	Server   Server   `toml:"server"`
	Storage  Storage  `toml:"storage"`
	Playback Playback `toml:"playback"`
	Auth     Auth     `toml:"auth"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path of the default config file.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load parses and validates the file at path, or the default location when
// path is empty. A missing file yields the defaults.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}
	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = defaultConfigPath
	}
	expanded, err := expandPath(path)
	if err != nil {
		return "", false, err
	}
	info, err := os.Stat(expanded)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return expanded, false, nil
		}
		return "", false, fmt.Errorf("stat config: %w", err)
	}
	if info.IsDir() {
		return "", false, fmt.Errorf("config path %q is a directory", expanded)
	}
	return expanded, true, nil
}

// CreateSample writes a commented sample configuration to path.
func CreateSample(path string) error {
	expanded, err := expandPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(expanded), 0o755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(expanded, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}

// EnsureDirectories creates the directory holding the database.
func (c *Config) EnsureDirectories() error {
	if c.Storage.Path == ":memory:" {
		return nil
	}
	dir := filepath.Dir(c.Storage.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create directory %q: %w", dir, err)
	}
	return nil
}

// LockPath is the file guarding the database against a second server.
func (c *Config) LockPath() string {
	return c.Storage.Path + ".lock"
}

func (c *Config) BusyTimeout() time.Duration {
	return time.Duration(c.Storage.BusyTimeoutMS) * time.Millisecond
}

func (c *Config) PurgeInterval() time.Duration {
	return time.Duration(c.Storage.PurgeIntervalMinutes) * time.Minute
}

func (c *Config) NoticeTTL() time.Duration {
	return time.Duration(c.Playback.NoticeSeconds) * time.Second
}

func (c *Config) SessionDuration() time.Duration {
	return time.Duration(c.Auth.SessionHours) * time.Hour
}

func (c *Config) SessionCacheTTL() time.Duration {
	return time.Duration(c.Auth.CacheMinutes) * time.Minute
}

func (c *Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.Server.MaxUploadMB) << 20
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" || pathValue == ":memory:" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath applies the config path rules (home expansion, absolute).
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}
