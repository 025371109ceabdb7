package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/edulog/edulog/internal/record"
	"github.com/edulog/edulog/internal/tui"
)

var plainOutput bool

var viewCmd = &cobra.Command{
	Use:   "view <part.json>",
	Short: "View a recorded log part",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]

		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("file not found: %s", path)
			}
			return err
		}

		var snap record.Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("parse log part: %w", err)
		}

		if plainOutput || !term.IsTerminal(os.Stdout.Fd()) {
			printSnapshot(cmd, &snap)
			return nil
		}
		return tui.Run(&snap, path)
	},
}

// printSnapshot writes a plain-text summary of one log part.
func printSnapshot(cmd *cobra.Command, snap *record.Snapshot) {
	cmd.Printf("Student:  %s\n", snap.StudentID)
	cmd.Printf("Session:  %s\n", snap.SessionID)
	cmd.Printf("File:     %s\n", snap.FileName)
	cmd.Println()

	cmd.Println("## Edit Log")
	if len(snap.EditLog) == 0 {
		cmd.Println("  (none)")
	}
	for _, e := range snap.EditLog {
		switch {
		case e.Edit != nil:
			cmd.Printf("  [%s] %s %d:%d-%d:%d %q\n",
				e.Edit.Timestamp.Format("15:04:05"), e.Edit.Kind,
				e.Edit.Range.Start.Line, e.Edit.Range.Start.Column,
				e.Edit.Range.End.Line, e.Edit.Range.End.Column,
				e.Edit.LineText)
		case e.Key != nil:
			cmd.Printf("  [%s] key %q at %d:%d\n",
				e.Key.Timestamp.Format("15:04:05"), e.Key.Key,
				e.Key.Position.Line, e.Key.Position.Column)
		}
	}
	cmd.Println()

	cmd.Println("## Error Log")
	if len(snap.ErrorLog) == 0 {
		cmd.Println("  (none)")
	}
	for _, e := range snap.ErrorLog {
		cmd.Printf("  [%s] %s\n", e.Timestamp.Format("15:04:05"), e.Message)
		if e.Stack != nil {
			for _, line := range strings.Split(*e.Stack, "\n") {
				cmd.Printf("      %s\n", line)
			}
		}
	}
	cmd.Println()

	cmd.Println("## Execution Log")
	if len(snap.ExecutionLog) == 0 {
		cmd.Println("  (none)")
	}
	for _, e := range snap.ExecutionLog {
		if e.Event == record.ExecutionEnd && e.ExitCode != nil {
			cmd.Printf("  [%s] %s %s exit=%d %dms\n",
				e.Timestamp.Format("15:04:05"), e.Event, e.File, *e.ExitCode, e.DurationMS)
		} else {
			cmd.Printf("  [%s] %s %s\n", e.Timestamp.Format("15:04:05"), e.Event, e.File)
		}
	}
}

func init() {
	viewCmd.Flags().BoolVar(&plainOutput, "plain", false, "Print a plain-text summary instead of the TUI")
	rootCmd.AddCommand(viewCmd)
}
