package cmd

import (
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/edulog/edulog/internal/logstore"
	"github.com/edulog/edulog/internal/record"
)

// runterm runs the file with inherited stdio so the student interacts with it
// directly. Output is not captured; only the execution boundaries and exit
// code are recorded. Pending log state is flushed before the run starts.
var runtermCmd = &cobra.Command{
	Use:   "runterm <file>",
	Short: "Run a Python file interactively in the terminal",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		sess := record.NewSession(cfg.StudentID, time.Now())
		store := logstore.New(cfg.LogDir, sess, diag)
		store.SetFileBase(filepath.Base(file))
		store.FlushNow()
		defer store.Close()

		started := time.Now()
		proc := exec.Command(cfg.PythonPath, file)
		proc.Dir = filepath.Dir(file)
		proc.Stdin = os.Stdin
		proc.Stdout = os.Stdout
		proc.Stderr = os.Stderr

		store.AppendExecution(record.ExecutionRecord{
			Timestamp: started,
			Event:     record.ExecutionStart,
			File:      file,
			Language:  "python",
		})

		code := 0
		if err := proc.Run(); err != nil {
			code = -1
			if exit, ok := err.(*exec.ExitError); ok {
				code = exit.ExitCode()
			} else {
				cmd.PrintErrf("failed to run %s: %v\n", filepath.Base(file), err)
			}
		}
		now := time.Now()
		store.AppendExecution(record.ExecutionRecord{
			Timestamp:  now,
			Event:      record.ExecutionEnd,
			File:       file,
			Language:   "python",
			ExitCode:   &code,
			DurationMS: now.Sub(started).Milliseconds(),
		})
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runtermCmd)
}
