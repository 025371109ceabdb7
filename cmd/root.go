package cmd

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/edulog/edulog/internal/config"
	"github.com/edulog/edulog/internal/host"
)

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

// diag is the structured diagnostic channel shared by subcommands.
var diag zerolog.Logger

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "edulog",
	Short: "Record student coding activity into per-session JSON logs",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// Load and merge config files.
		global, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("loading global config: %w", err)
		}
		project, err := config.LoadProject()
		if err != nil {
			return fmt.Errorf("loading project config: %w", err)
		}
		cfg = config.Merge(global, project)

		diag = host.Diagnostics(os.Stderr, verbose)
		return nil
	},
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetConfig returns the merged configuration for use by subcommands.
func GetConfig() config.Config {
	return cfg
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug diagnostics")
}
