package main

import (
	"github.com/spf13/cobra"

	"github.com/jmylchreest/worktimer/internal/daemon"
	"github.com/jmylchreest/worktimer/internal/notify"
)

const appName = "worktimer"

// newApp builds the timer from the loaded config. Desktop notifications are
// best effort: without a session bus the timer runs silently.
func newApp(cmd *cobra.Command) (*daemon.App, error) {
	c := getConfig()
	opts := daemon.Options{}

	if c.Notify.Enabled {
		n, err := notify.Connect(appName, logger)
		if err != nil {
			logger.Warn("desktop notifications unavailable", "error", err)
		} else {
			opts.Sender = n
		}
	}

	// Reloading from the file would discard the flags
	if hasOverrides(cmd) {
		logger.Info("config hot-reload disabled by command-line overrides")
	} else {
		opts.ConfigPath = configPath()
	}

	return daemon.New(c, opts, logger)
}
