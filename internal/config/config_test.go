package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, time.Second/30, cfg.Timer.TickInterval.Duration())
	assert.Equal(t, time.Duration(0), cfg.Timer.Initial.Duration())
	assert.Equal(t, 100, cfg.Audio.DefaultVolume)
	assert.Equal(t, 10*time.Millisecond, cfg.Audio.PollInterval.Duration())
	assert.Equal(t, 44100, cfg.Audio.SampleRate)
	assert.Equal(t, "media/bgm.mp3", cfg.Audio.ChannelPaths.Music)
	assert.Equal(t, "media/alert.mp3", cfg.Audio.ChannelPaths.Alert)
	assert.True(t, cfg.Notify.Enabled)
	require.NoError(t, cfg.Validate())
}

func TestLoadConfig_DefaultsWhenNoFile(t *testing.T) {
	cfg, err := LoadConfig("/nonexistent/path/config.toml")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_ParsesTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[timer]
tick_interval = "50ms"
initial = "25m"

[audio]
default_volume = 80
poll_interval = "20"
sample_rate = 48000
buffer = "200ms"

[audio.channel_paths]
music = "/music/loop.ogg"
alert = "/music/bell.wav"

[notify]
enabled = false
`
	err := os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, 50*time.Millisecond, cfg.Timer.TickInterval.Duration())
	assert.Equal(t, 25*time.Minute, cfg.Timer.Initial.Duration())
	assert.Equal(t, 80, cfg.Audio.DefaultVolume)
	assert.InDelta(t, 0.8, cfg.Audio.Volume(), 1e-9)
	assert.Equal(t, 20*time.Millisecond, cfg.Audio.PollInterval.Duration())
	assert.Equal(t, 48000, cfg.Audio.SampleRate)
	assert.Equal(t, 200*time.Millisecond, cfg.Audio.Buffer.Duration())
	assert.Equal(t, "/music/loop.ogg", cfg.Audio.ChannelPaths.MusicPath())
	assert.Equal(t, "/music/bell.wav", cfg.Audio.ChannelPaths.AlertPath())
	assert.False(t, cfg.Notify.Enabled)
}

func TestLoadConfig_PartialConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[audio]
default_volume = 40
`
	err := os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	// Changed field
	assert.Equal(t, 40, cfg.Audio.DefaultVolume)

	// Unchanged fields should have defaults
	assert.Equal(t, DefaultTickInterval, cfg.Timer.TickInterval.Duration())
	assert.Equal(t, DefaultMusicPath, cfg.Audio.ChannelPaths.Music)
	assert.True(t, cfg.Notify.Enabled)
}

func TestLoadConfig_InvalidTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	err := os.WriteFile(path, []byte(`this is not valid toml [`), 0644)
	require.NoError(t, err)

	_, err = LoadConfig(path)
	assert.Error(t, err)
}

func TestLoadConfig_IntegerMilliseconds(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	content := `
[timer]
tick_interval = 33

[audio]
poll_interval = 10
`
	err := os.WriteFile(path, []byte(content), 0644)
	require.NoError(t, err)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 33*time.Millisecond, cfg.Timer.TickInterval.Duration())
	assert.Equal(t, 10*time.Millisecond, cfg.Audio.PollInterval.Duration())
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"word", `"soon"`},
		{"garbage", `"abc"`},
		{"missing unit", `"1.5"`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "config.toml")

			err := os.WriteFile(path, []byte("[timer]\ntick_interval = "+tt.value+"\n"), 0644)
			require.NoError(t, err)

			_, err = LoadConfig(path)
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid duration")
		})
	}
}

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"33", 33 * time.Millisecond, false},
		{"0", 0, false},
		{"33ms", 33 * time.Millisecond, false},
		{"1h30m", 90 * time.Minute, false},
		{"abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.in))
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "invalid duration")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, d.Duration())
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults",
			modify: func(c *Config) {},
		},
		{
			name:   "boosted volume",
			modify: func(c *Config) { c.Audio.DefaultVolume = 150 },
		},
		{
			name:    "zero tick interval",
			modify:  func(c *Config) { c.Timer.TickInterval = 0 },
			wantErr: "tick_interval",
		},
		{
			name:    "negative initial",
			modify:  func(c *Config) { c.Timer.Initial = Duration(-time.Second) },
			wantErr: "initial",
		},
		{
			name:    "volume too high",
			modify:  func(c *Config) { c.Audio.DefaultVolume = 151 },
			wantErr: "default_volume",
		},
		{
			name:    "negative volume",
			modify:  func(c *Config) { c.Audio.DefaultVolume = -1 },
			wantErr: "default_volume",
		},
		{
			name:    "zero poll interval",
			modify:  func(c *Config) { c.Audio.PollInterval = 0 },
			wantErr: "poll_interval",
		},
		{
			name:    "sample rate too low",
			modify:  func(c *Config) { c.Audio.SampleRate = 100 },
			wantErr: "sample_rate",
		},
		{
			name:    "zero buffer",
			modify:  func(c *Config) { c.Audio.Buffer = 0 },
			wantErr: "buffer",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_Save(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "subdir", "config.toml")

	cfg := DefaultConfig()
	cfg.Timer.Initial = Duration(90 * time.Second)
	cfg.Audio.ChannelPaths.Music = "/tmp/focus.mp3"

	err := cfg.Save(path)
	require.NoError(t, err)

	_, err = os.Stat(path)
	require.NoError(t, err)

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, loaded.Timer.Initial.Duration())
	assert.Equal(t, "/tmp/focus.mp3", loaded.Audio.ChannelPaths.Music)
}

func TestChannelPaths_ExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	paths := ChannelPaths{Music: "~/sounds/bgm.mp3", Alert: "alert.wav"}
	assert.Equal(t, filepath.Join(home, "sounds", "bgm.mp3"), paths.MusicPath())
	assert.Equal(t, "alert.wav", paths.AlertPath())
}

func TestConfigPath(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/custom/config")
	assert.Equal(t, "/custom/config/worktimer/config.toml", ConfigPath())
}

func TestDataPath(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	assert.Equal(t, "/custom/data/worktimer", DataPath())
	assert.Equal(t, "/custom/data/worktimer/worktimer.log", LogPath())
}

func TestEnsureDataDir(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_DATA_HOME", dir)

	err := EnsureDataDir()
	require.NoError(t, err)

	info, err := os.Stat(filepath.Join(dir, "worktimer"))
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
