package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/harrison/verifier/internal/catalog"
)

// NewTasksCommand creates the tasks command
func NewTasksCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tasks",
		Short: "List the liveness tasks sessions are sampled from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			printTasks(cmd.OutOrStdout())
			return nil
		},
	}
}

func printTasks(out io.Writer) {
	tasks := catalog.Default()
	fmt.Fprintf(out, "Task catalog (%d tasks):\n", len(tasks))
	for _, t := range tasks {
		fmt.Fprintf(out, "  %-11s %-11s %s\n", t.ID, t.Name, t.Instruction)
	}
}
