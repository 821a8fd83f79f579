// Package config handles configuration file loading and parsing.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Default configuration values.
const (
	DefaultTickInterval   = time.Second / 30
	DefaultPollInterval   = 10 * time.Millisecond
	DefaultVolume         = 100
	MaxVolume             = 150
	DefaultSampleRate     = 44100
	DefaultBufferDuration = 100 * time.Millisecond
	DefaultMusicPath      = "media/bgm.mp3"
	DefaultAlertPath      = "media/alert.mp3"
)

// Duration is a time.Duration that can be unmarshaled from human-readable strings.
// Supports formats like "33ms", "10s", "1m", "1h30m", or integer milliseconds.
type Duration time.Duration

// UnmarshalText implements encoding.TextUnmarshaler for TOML parsing.
func (d *Duration) UnmarshalText(text []byte) error {
	s := string(text)

	// Plain integers are milliseconds
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		*d = Duration(time.Duration(ms) * time.Millisecond)
		return nil
	}

	dur, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: must be like '33ms', '1m', '1h30m' or milliseconds: %w", s, err)
	}
	*d = Duration(dur)
	return nil
}

// MarshalText implements encoding.TextMarshaler for TOML output.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration returns the underlying time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// Config represents the worktimer configuration.
type Config struct {
	Timer  TimerConfig  `toml:"timer" yaml:"timer"`
	Audio  AudioConfig  `toml:"audio" yaml:"audio"`
	Notify NotifyConfig `toml:"notify" yaml:"notify"`
}

// TimerConfig holds countdown settings.
type TimerConfig struct {
	TickInterval Duration `toml:"tick_interval" yaml:"tick_interval"` // How often Advance runs
	Initial      Duration `toml:"initial" yaml:"initial"`             // Countdown loaded at startup
}

// AudioConfig holds playback settings.
type AudioConfig struct {
	DefaultVolume int          `toml:"default_volume" yaml:"default_volume"` // 0-150, percent
	PollInterval  Duration     `toml:"poll_interval" yaml:"poll_interval"`   // Actor mailbox poll bound
	SampleRate    int          `toml:"sample_rate" yaml:"sample_rate"`
	Buffer        Duration     `toml:"buffer" yaml:"buffer"`
	ChannelPaths  ChannelPaths `toml:"channel_paths" yaml:"channel_paths"`
}

// ChannelPaths holds the sound file for each channel.
type ChannelPaths struct {
	Music string `toml:"music" yaml:"music"`
	Alert string `toml:"alert" yaml:"alert"`
}

// NotifyConfig holds desktop notification settings.
type NotifyConfig struct {
	Enabled bool `toml:"enabled" yaml:"enabled"`
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		Timer: TimerConfig{
			TickInterval: Duration(DefaultTickInterval),
			Initial:      0,
		},
		Audio: AudioConfig{
			DefaultVolume: DefaultVolume,
			PollInterval:  Duration(DefaultPollInterval),
			SampleRate:    DefaultSampleRate,
			Buffer:        Duration(DefaultBufferDuration),
			ChannelPaths: ChannelPaths{
				Music: DefaultMusicPath,
				Alert: DefaultAlertPath,
			},
		},
		Notify: NotifyConfig{
			Enabled: true,
		},
	}
}

// ConfigPath returns the path to the config file.
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config.
func ConfigPath() string {
	configHome := os.Getenv("XDG_CONFIG_HOME")
	if configHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configHome = filepath.Join(home, ".config")
	}
	return filepath.Join(configHome, "worktimer", "config.toml")
}

// DataPath returns the path to the data directory.
// Uses XDG_DATA_HOME if set, otherwise ~/.local/share.
func DataPath() string {
	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dataHome = filepath.Join(home, ".local", "share")
	}
	return filepath.Join(dataHome, "worktimer")
}

// LogPath returns the path of the log file used while the TUI owns the terminal.
func LogPath() string {
	return filepath.Join(DataPath(), "worktimer.log")
}

// LoadConfig loads configuration from the specified path.
// If path is empty, uses the default config path.
// Returns default config if file doesn't exist.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		path = ConfigPath()
	}

	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Start with defaults, then overlay with file contents
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the specified path.
// Creates parent directories if needed.
func (c *Config) Save(path string) error {
	if path == "" {
		path = ConfigPath()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write atomically via temp file
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return os.Rename(tmpPath, path)
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Timer.TickInterval.Duration() <= 0 {
		return fmt.Errorf("tick_interval must be positive, got %s", c.Timer.TickInterval.Duration())
	}
	if c.Timer.Initial.Duration() < 0 {
		return fmt.Errorf("initial must not be negative, got %s", c.Timer.Initial.Duration())
	}

	if c.Audio.DefaultVolume < 0 || c.Audio.DefaultVolume > MaxVolume {
		return fmt.Errorf("default_volume must be between 0 and %d, got %d", MaxVolume, c.Audio.DefaultVolume)
	}
	if c.Audio.PollInterval.Duration() <= 0 {
		return fmt.Errorf("poll_interval must be positive, got %s", c.Audio.PollInterval.Duration())
	}
	if c.Audio.SampleRate < 8000 || c.Audio.SampleRate > 192000 {
		return fmt.Errorf("sample_rate must be between 8000 and 192000, got %d", c.Audio.SampleRate)
	}
	if c.Audio.Buffer.Duration() <= 0 {
		return fmt.Errorf("buffer must be positive, got %s", c.Audio.Buffer.Duration())
	}

	return nil
}

// Volume returns the default volume as a multiplier (100% = 1.0).
func (a AudioConfig) Volume() float64 {
	return float64(a.DefaultVolume) / 100.0
}

// MusicPath returns the music channel path with ~ expanded.
func (p ChannelPaths) MusicPath() string {
	return expandPath(p.Music)
}

// AlertPath returns the alert channel path with ~ expanded.
func (p ChannelPaths) AlertPath() string {
	return expandPath(p.Alert)
}

// EnsureDataDir creates the data directory if it doesn't exist.
func EnsureDataDir() error {
	path := DataPath()
	if path == "" {
		return errors.New("unable to determine data directory")
	}
	return os.MkdirAll(path, 0755)
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
