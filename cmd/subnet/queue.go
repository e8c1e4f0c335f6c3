package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect task queues",
}

var queueListCmd = &cobra.Command{
	Use:   "list",
	Short: "List task queues with backlog and pollers",
	RunE:  runQueueList,
}

func init() {
	queueCmd.AddCommand(queueListCmd)
}

func runQueueList(cmd *cobra.Command, args []string) error {
	queues, err := newClient().ListTaskQueues(cmd.Context())
	if err != nil {
		return err
	}
	if len(queues) == 0 {
		fmt.Println("No task queues found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tKIND\tBACKLOG\tPOLLERS\tDISPATCH")
	for _, q := range queues {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%.0f%%\n", q.Name, q.Kind, q.Backlog, q.Pollers, q.DispatchPct)
	}
	return w.Flush()
}
