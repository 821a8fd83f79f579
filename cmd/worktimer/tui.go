package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/worktimer/internal/config"
	"github.com/jmylchreest/worktimer/internal/tui"
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch the interactive timer",
	Long: `Launch the interactive terminal timer.

Logs go to ~/.local/share/worktimer/worktimer.log so they don't draw over
the screen.

Key bindings:
  space/enter  Start, stop, or silence the alert
  r            Reset to zero (while stopped)
  1            Add one minute
  0            Add ten minutes
  +/-          Music volume up/down
  ?            Show help
  q            Quit`,
	RunE: runTUI,
}

func init() {
	rootCmd.AddCommand(tuiCmd)
}

func runTUI(cmd *cobra.Command, args []string) error {
	logFile, err := openLogFile()
	if err != nil {
		return err
	}
	defer logFile.Close()
	setupLogger(logFile)

	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("error closing app", "error", err)
		}
	}()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	app.Start(ctx)

	return tui.Run(tui.RunOptions{
		Session:      app,
		TickInterval: getConfig().Timer.TickInterval.Duration(),
	})
}

// openLogFile opens the TUI log file for appending.
func openLogFile() (*os.File, error) {
	if err := config.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	f, err := os.OpenFile(config.LogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %w", err)
	}
	return f, nil
}
