package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/edulog/edulog/internal/exclude"
	"github.com/edulog/edulog/internal/logstore"
	"github.com/edulog/edulog/internal/record"
	"github.com/edulog/edulog/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Passively record file edits in a directory until interrupted",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) == 1 {
			dir = args[0]
		}

		sess := record.NewSession(cfg.StudentID, time.Now())
		store := logstore.New(cfg.LogDir, sess, diag)
		defer store.Close()

		rule := exclude.Rule{Patterns: cfg.ExcludePatterns}
		w := watch.New(dir, sess, rule, store, diag)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		fmt.Printf("Recording session %s for student %s. Ctrl-C to stop.\n", sess.ID, sess.StudentID)
		if err := w.Run(ctx); err != nil {
			return fmt.Errorf("watcher: %w", err)
		}
		fmt.Println("Session recorded.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
