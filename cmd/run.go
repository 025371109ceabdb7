package cmd

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/edulog/edulog/internal/host"
	"github.com/edulog/edulog/internal/logstore"
	"github.com/edulog/edulog/internal/record"
	"github.com/edulog/edulog/internal/runner"
)

// recordSink feeds tracker records into the store, honoring the
// enable_error_logging config key.
type recordSink struct {
	store     *logstore.Store
	logErrors bool
}

func (s recordSink) AppendExecution(r record.ExecutionRecord) {
	s.store.AppendExecution(r)
}

func (s recordSink) AppendError(r record.ErrorRecord) {
	if s.logErrors {
		s.store.AppendError(r)
	}
}

var runCmd = &cobra.Command{
	Use:   "run <file>",
	Short: "Run a Python file and record the execution outcome",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		file, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		sess := record.NewSession(cfg.StudentID, time.Now())
		store := logstore.New(cfg.LogDir, sess, diag)
		store.SetFileBase(filepath.Base(file))
		defer store.Close()

		tracker := runner.New(recordSink{store: store, logErrors: cfg.ErrorLogging()}, diag)
		tracker.Exec(cfg.PythonPath, file)
		tracker.Wait()

		snap := store.Snapshot()
		notify := host.Console{}
		for _, ex := range snap.ExecutionLog {
			if ex.Event != record.ExecutionEnd {
				continue
			}
			if ex.ExitCode != nil && *ex.ExitCode != 0 {
				notify.Errorf("%s exited with code %d", filepath.Base(file), *ex.ExitCode)
			} else {
				notify.Info(fmt.Sprintf("%s finished in %dms", filepath.Base(file), ex.DurationMS))
			}
			if ex.Stdout != "" {
				cmd.Print(ex.Stdout)
			}
			if ex.Stderr != "" {
				cmd.PrintErr(ex.Stderr)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
}
