package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/worktimer/internal/timer"
)

var runOpts struct {
	paused bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the timer without a user interface",
	Long: `Run the countdown headless.

The countdown starts immediately unless --paused is given. When it expires
the alert sound loops and a desktop notification offers a "Stop alert"
button. SIGINT or SIGTERM stops the timer and releases the audio device.

Example:
  worktimer run --duration 25m`,
	RunE: runHeadless,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().BoolVar(&runOpts.paused, "paused", false,
		"Load the countdown without starting it")
}

func runHeadless(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Warn("error closing app", "error", err)
		}
	}()

	app.Start(ctx)

	if !runOpts.paused {
		if phase := app.Toggle(); phase != timer.PhaseRunning {
			return fmt.Errorf("failed to start countdown: timer is %s", phase)
		}
	}

	err = app.Run(ctx)
	logger.Info("shutting down", "remaining", timer.FormatDuration(app.State().Remaining))
	return err
}
