// Package main provides the CLI entrypoint for worktimer.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/worktimer/internal/config"
)

// Build-time variables (set via ldflags)
var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

// Global configuration and state
var (
	cfg        *config.Config
	globalOpts struct {
		verbose    bool
		configPath string
	}
	overrideOpts struct {
		duration time.Duration
		music    string
		alert    string
		volume   int
	}
	logger *slog.Logger
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "worktimer",
	Short: "Countdown timer with background music and an alert sound",
	Long: `worktimer is a countdown timer for focused work.

Background music loops while the countdown runs. When it reaches zero the
music stops and an alert sound loops until you stop it.

Running worktimer without a subcommand launches the interactive TUI.`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime),
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger(os.Stderr)

		var err error
		cfg, err = config.LoadConfig(configPath())
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		if err := applyOverrides(cmd, cfg); err != nil {
			return err
		}
		return nil
	},
	// Default to TUI when no subcommand is provided
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd, args)
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().BoolVarP(&globalOpts.verbose, "verbose", "v", false,
		"Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&globalOpts.configPath, "config", "",
		"Path to config file (default: ~/.config/worktimer/config.toml)")

	// Overrides for a single session
	rootCmd.PersistentFlags().DurationVarP(&overrideOpts.duration, "duration", "d", 0,
		"Initial countdown (e.g. 25m)")
	rootCmd.PersistentFlags().StringVar(&overrideOpts.music, "music", "",
		"Background music file (wav, mp3, ogg)")
	rootCmd.PersistentFlags().StringVar(&overrideOpts.alert, "alert", "",
		"Alert sound file (wav, mp3, ogg)")
	rootCmd.PersistentFlags().IntVar(&overrideOpts.volume, "volume", 0,
		"Music volume in percent (0-150)")
}

// configPath returns the --config path or the default location.
func configPath() string {
	if globalOpts.configPath != "" {
		return globalOpts.configPath
	}
	return config.ConfigPath()
}

// applyOverrides copies the flags the user set onto c and revalidates it.
func applyOverrides(cmd *cobra.Command, c *config.Config) error {
	flags := cmd.Flags()

	if flags.Changed("duration") {
		c.Timer.Initial = config.Duration(overrideOpts.duration)
	}
	if flags.Changed("music") {
		c.Audio.ChannelPaths.Music = overrideOpts.music
	}
	if flags.Changed("alert") {
		c.Audio.ChannelPaths.Alert = overrideOpts.alert
	}
	if flags.Changed("volume") {
		c.Audio.DefaultVolume = overrideOpts.volume
	}

	if err := c.Validate(); err != nil {
		return fmt.Errorf("invalid options: %w", err)
	}
	return nil
}

// hasOverrides reports whether any session override flag was set.
func hasOverrides(cmd *cobra.Command) bool {
	for _, name := range []string{"duration", "music", "alert", "volume"} {
		if cmd.Flags().Changed(name) {
			return true
		}
	}
	return false
}

// setupLogger configures the global slog logger to write to w.
func setupLogger(w io.Writer) {
	level := slog.LevelWarn
	if globalOpts.verbose {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewTextHandler(w, opts)
	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// getConfig returns the global config instance.
func getConfig() *config.Config {
	return cfg
}
