package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/subnetlabs/console/internal/models"
	"github.com/subnetlabs/console/internal/timeline"
	"github.com/subnetlabs/console/internal/tui"
)

var workflowCmd = &cobra.Command{
	Use:     "workflow",
	Aliases: []string{"wf"},
	Short:   "Inspect workflows",
}

var workflowListCmd = &cobra.Command{
	Use:   "list",
	Short: "List workflows",
	RunE:  runWorkflowList,
}

var workflowShowCmd = &cobra.Command{
	Use:   "show [workflow-id]",
	Short: "Show workflow details and its activities",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkflowShow,
}

var workflowTimelineCmd = &cobra.Command{
	Use:   "timeline [workflow-id]",
	Short: "Print a workflow timeline or export it as SVG",
	Args:  cobra.ExactArgs(1),
	RunE:  runWorkflowTimeline,
}

var (
	wfStatus string
	wfQuery  string
	wfLimit  int

	tlSVG   string
	tlUnit  string
	tlZoom  float64
	tlWidth int
)

func init() {
	workflowCmd.AddCommand(workflowListCmd, workflowShowCmd, workflowTimelineCmd)

	workflowListCmd.Flags().StringVar(&wfStatus, "status", "", "Filter by status (running, completed, failed, canceled, terminated, timed_out)")
	workflowListCmd.Flags().StringVarP(&wfQuery, "query", "q", "", "Search by id or type")
	workflowListCmd.Flags().IntVar(&wfLimit, "limit", 0, "Maximum number of workflows")

	workflowTimelineCmd.Flags().StringVar(&tlSVG, "svg", "", "Write the timeline as SVG to this file")
	workflowTimelineCmd.Flags().StringVar(&tlUnit, "unit", "", "Display unit: ms, s, m, h")
	workflowTimelineCmd.Flags().Float64Var(&tlZoom, "zoom", 0, "Zoom level")
	workflowTimelineCmd.Flags().IntVar(&tlWidth, "width", 120, "Text timeline width in columns")
}

func runWorkflowList(cmd *cobra.Command, args []string) error {
	f := models.WorkflowFilter{Query: wfQuery, Limit: wfLimit}
	if wfStatus != "" {
		st, err := models.ParseWorkflowStatus(wfStatus)
		if err != nil {
			return err
		}
		f.Status = st
	}

	workflows, err := newClient().ListWorkflows(cmd.Context(), f)
	if err != nil {
		return err
	}
	if len(workflows) == 0 {
		fmt.Println("No workflows found")
		return nil
	}

	now := time.Now()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTYPE\tQUEUE\tSTATUS\tACTIVITIES\tDURATION")
	for _, wf := range workflows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n", wf.ID, truncate(wf.Type, 30), wf.TaskQueue, wf.Status,
			wf.ActivityCount, wf.Duration(now).Round(time.Millisecond))
	}
	return w.Flush()
}

func runWorkflowShow(cmd *cobra.Command, args []string) error {
	c := newClient()
	wf, err := c.GetWorkflow(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	acts, err := c.WorkflowActivities(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Printf("ID:          %s\n", wf.ID)
	fmt.Printf("Run ID:      %s\n", wf.RunID)
	fmt.Printf("Type:        %s\n", wf.Type)
	fmt.Printf("Task Queue:  %s\n", wf.TaskQueue)
	fmt.Printf("Status:      %s\n", wf.Status)
	fmt.Printf("Started:     %s\n", wf.StartTime.Local().Format(time.RFC3339))
	if wf.CloseTime != nil {
		fmt.Printf("Closed:      %s\n", wf.CloseTime.Local().Format(time.RFC3339))
	}
	fmt.Printf("Duration:    %s\n", wf.Duration(time.Now()).Round(time.Millisecond))

	if len(acts) == 0 {
		fmt.Println("\nNo activities")
		return nil
	}
	fmt.Println()
	printActivities(acts)
	return nil
}

func runWorkflowTimeline(cmd *cobra.Command, args []string) error {
	c := newClient()
	if tlSVG != "" {
		svg, err := c.WorkflowTimelineSVG(cmd.Context(), args[0], tlUnit, tlZoom)
		if err != nil {
			return err
		}
		if err := os.WriteFile(tlSVG, svg, 0644); err != nil {
			return fmt.Errorf("write svg: %w", err)
		}
		fmt.Printf("Wrote %s (%d bytes)\n", tlSVG, len(svg))
		return nil
	}

	events, err := c.WorkflowTimeline(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	view := tui.NewTimelineView(cfg.Timeline, cfg.Console.CellWidthPx)
	if tlUnit != "" {
		u, err := timeline.ParseUnit(tlUnit)
		if err != nil {
			return err
		}
		view.SetUnit(u)
	}
	if tlZoom > 0 {
		view.SetZoom(tlZoom)
	}
	view.SetEvents(events)
	fmt.Println(view.View(time.Now(), tlWidth))
	return nil
}

func printActivities(acts []models.Activity) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tID\tTYPE\tSTATUS\tATTEMPT\tWORKER\tFAILURE")
	for _, a := range acts {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%d\t%s\t%s\n", a.Seq, truncateID(a.ID), a.Type, a.Status, a.Attempt,
			dash(a.WorkerID), truncate(a.LastFailure, 40))
	}
	w.Flush()
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
