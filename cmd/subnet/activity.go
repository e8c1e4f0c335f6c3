package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/subnetlabs/console/internal/models"
)

var activityCmd = &cobra.Command{
	Use:     "activity",
	Aliases: []string{"act"},
	Short:   "Inspect activities",
}

var activityListCmd = &cobra.Command{
	Use:   "list",
	Short: "List activities",
	RunE:  runActivityList,
}

var activityShowCmd = &cobra.Command{
	Use:   "show [activity-id]",
	Short: "Show activity details and its attempts",
	Args:  cobra.ExactArgs(1),
	RunE:  runActivityShow,
}

var (
	actStatus   string
	actWorkflow string
	actQuery    string
	actLimit    int
)

func init() {
	activityCmd.AddCommand(activityListCmd, activityShowCmd)

	activityListCmd.Flags().StringVar(&actStatus, "status", "", "Filter by status (scheduled, started, completed, failed, canceled, timed_out)")
	activityListCmd.Flags().StringVar(&actWorkflow, "workflow", "", "Only activities of this workflow")
	activityListCmd.Flags().StringVarP(&actQuery, "query", "q", "", "Search by type or workflow id")
	activityListCmd.Flags().IntVar(&actLimit, "limit", 0, "Maximum number of activities")
}

func runActivityList(cmd *cobra.Command, args []string) error {
	f := models.ActivityFilter{WorkflowID: actWorkflow, Query: actQuery, Limit: actLimit}
	if actStatus != "" {
		st, err := models.ParseActivityStatus(actStatus)
		if err != nil {
			return err
		}
		f.Status = st
	}

	acts, err := newClient().ListActivities(cmd.Context(), f)
	if err != nil {
		return err
	}
	if len(acts) == 0 {
		fmt.Println("No activities found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tWORKFLOW\tTYPE\tSTATUS\tATTEMPT\tWORKER")
	for _, a := range acts {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n", a.ID, a.WorkflowID, a.Type, a.Status, a.Attempt, dash(a.WorkerID))
	}
	return w.Flush()
}

func runActivityShow(cmd *cobra.Command, args []string) error {
	c := newClient()
	a, err := c.GetActivity(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	attempts, err := c.ActivityAttempts(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("ID:          %s\n", a.ID)
	fmt.Printf("Workflow:    %s\n", a.WorkflowID)
	fmt.Printf("Type:        %s\n", a.Type)
	fmt.Printf("Task Queue:  %s\n", a.TaskQueue)
	fmt.Printf("Status:      %s\n", a.Status)
	fmt.Printf("Attempt:     %d\n", a.Attempt)
	fmt.Printf("Worker:      %s\n", dash(a.WorkerID))
	fmt.Printf("Scheduled:   %s\n", a.ScheduledAt.Local().Format(time.RFC3339))
	if a.StartedAt != nil {
		fmt.Printf("Started:     %s\n", a.StartedAt.Local().Format(time.RFC3339))
	}
	if a.ClosedAt != nil {
		fmt.Printf("Closed:      %s\n", a.ClosedAt.Local().Format(time.RFC3339))
	}
	if a.LastFailure != "" {
		fmt.Printf("Failure:     %s\n", a.LastFailure)
	}

	if len(attempts) == 0 {
		fmt.Println("\nNo attempts yet")
		return nil
	}
	fmt.Println()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tWORKER\tSTATUS\tSTARTED\tDURATION\tFAILURE")
	for _, at := range attempts {
		end := time.Now()
		if at.ClosedAt != nil {
			end = *at.ClosedAt
		}
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n", at.Number, at.WorkerID, at.Status,
			at.StartedAt.Local().Format(time.TimeOnly), end.Sub(at.StartedAt).Round(time.Millisecond),
			truncate(at.Failure, 40))
	}
	return w.Flush()
}
