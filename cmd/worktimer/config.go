package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/worktimer/internal/config"
)

var configOpts struct {
	format string
	force  bool
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect or create the configuration file",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	Long: `Print the configuration in effect: defaults, overlaid by the config file,
overlaid by command-line flags.`,
	RunE: runConfigShow,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file with the default values",
	// Must work even when the existing file is invalid
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		setupLogger(os.Stderr)
		return nil
	},
	RunE: runConfigInit,
}

var configPathCmd = &cobra.Command{
	Use:   "path",
	Short: "Print the config file location",
	RunE:  runConfigPath,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd, configInitCmd, configPathCmd)

	configShowCmd.Flags().StringVarP(&configOpts.format, "format", "f", "toml",
		"Output format (toml, yaml)")
	configInitCmd.Flags().BoolVar(&configOpts.force, "force", false,
		"Overwrite an existing config file")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	return writeConfig(cmd.OutOrStdout(), getConfig(), configOpts.format)
}

// writeConfig encodes c to w in the given format.
func writeConfig(w io.Writer, c *config.Config, format string) error {
	var data []byte
	var err error

	switch format {
	case "toml", "":
		data, err = toml.Marshal(c)
	case "yaml", "yml":
		data, err = yaml.Marshal(c)
	default:
		return fmt.Errorf("unknown format %q (want toml or yaml)", format)
	}
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	_, err = w.Write(data)
	return err
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath()

	if _, err := os.Stat(path); err == nil && !configOpts.force {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to check config file: %w", err)
	}

	if err := config.DefaultConfig().Save(path); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func runConfigPath(cmd *cobra.Command, args []string) error {
	path := configPath()
	out := cmd.OutOrStdout()

	info, err := os.Stat(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		fmt.Fprintf(out, "%s (not created, using defaults)\n", path)
	case err != nil:
		return fmt.Errorf("failed to stat config file: %w", err)
	default:
		fmt.Fprintf(out, "%s (%s, modified %s)\n", path,
			humanize.Bytes(uint64(info.Size())), humanize.Time(info.ModTime()))
	}
	return nil
}
