package cmd

import (
	"github.com/spf13/cobra"

	"github.com/edulog/edulog/internal/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats [log-dir]",
	Short: "Show activity statistics for recorded log files",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := cfg.LogDir
		if len(args) == 1 {
			dir = args[0]
		}
		sum, err := stats.Collect(dir)
		if err != nil {
			return err
		}
		cmd.Print(sum.String())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
