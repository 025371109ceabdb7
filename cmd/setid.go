package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/edulog/edulog/internal/config"
)

var setidCmd = &cobra.Command{
	Use:   "setid [student-id]",
	Short: "Set the student id recorded in all log files",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := ""
		if len(args) == 1 {
			id = strings.TrimSpace(args[0])
		} else {
			if !term.IsTerminal(os.Stdin.Fd()) {
				return fmt.Errorf("no student id given and stdin is not a terminal")
			}
			fmt.Printf("Student id [%s]: ", cfg.StudentID)
			line, err := bufio.NewReader(os.Stdin).ReadString('\n')
			if err != nil {
				return err
			}
			id = strings.TrimSpace(line)
		}
		if id == "" {
			id = config.DefaultStudentID
		}

		// Persist into the global config, preserving other keys.
		global, err := config.LoadGlobal()
		if err != nil {
			return err
		}
		global.StudentID = id
		if err := config.SaveGlobal(global); err != nil {
			return fmt.Errorf("saving student id: %w", err)
		}

		fmt.Printf("Student id set to %q.\n", id)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(setidCmd)
}
