package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Inspect workers",
}

var workerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workers and their slots",
	RunE:  runWorkerList,
}

func init() {
	workerCmd.AddCommand(workerListCmd)
}

func runWorkerList(cmd *cobra.Command, args []string) error {
	workers, err := newClient().ListWorkers(cmd.Context())
	if err != nil {
		return err
	}
	if len(workers) == 0 {
		fmt.Println("No workers found")
		return nil
	}

	now := time.Now()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tIDENTITY\tQUEUE\tSTATUS\tSLOTS\tHEARTBEAT")
	for _, wk := range workers {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d/%d\t%s ago\n", wk.ID, wk.Identity, wk.TaskQueue, wk.Status,
			wk.Running, wk.Capacity, now.Sub(wk.LastHeartbeat).Truncate(time.Second))
	}
	return w.Flush()
}
