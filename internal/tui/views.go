package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/subnetlabs/console/internal/models"
)

const skeletonRows = 5

func (a *App) renderDashboard(height int) string {
	st := a.lists[viewDashboard]
	if a.overview == nil {
		if st.err != nil {
			return renderError(st.err)
		}
		return renderSkeleton(skeletonRows, a.width)
	}

	ov := a.overview
	var b strings.Builder

	if st.err != nil {
		b.WriteString(renderError(st.err))
	}

	b.WriteString("\n  " + headerStyle.Render("Workflows") + "   ")
	for _, s := range models.WorkflowStatuses {
		b.WriteString(fmt.Sprintf("%s %d  ", formatWorkflowStatus(s), ov.Workflows[s]))
	}
	b.WriteString("\n  " + headerStyle.Render("Activities") + "  ")
	for _, s := range models.ActivityStatuses {
		b.WriteString(fmt.Sprintf("%s %d  ", formatActivityStatus(s), ov.Activities[s]))
	}
	b.WriteString(fmt.Sprintf("\n  %s  %d queues, backlog %d    %s  %s / %d active\n",
		headerStyle.Render("Queues"), ov.TaskQueues, ov.Backlog,
		headerStyle.Render("Workers"),
		onlineStyle.Render(fmt.Sprintf("%d", ov.WorkersActive)), ov.WorkersTotal))

	b.WriteString("\n  " + headerStyle.Render("Recent workflows") + "\n")
	if len(ov.RecentWorkflows) == 0 {
		b.WriteString(mutedStyle.Render("  no workflows found") + "\n")
	}
	now := a.now()
	for i, wf := range ov.RecentWorkflows {
		line := fmt.Sprintf("%-20s %-18s %-12s %s", truncate(wf.ID, 20), truncate(wf.Type, 18),
			string(wf.Status), formatAge(wf.StartTime, now))
		b.WriteString(a.renderRow(i == st.cursor, statusIcon(wf.Status.EventStatus()), line, wf.Status.EventStatus()) + "\n")
	}

	b.WriteString("\n  " + headerStyle.Render("Recent failures") + "\n")
	if len(ov.FailedActivities) == 0 {
		b.WriteString(mutedStyle.Render("  none") + "\n")
	}
	for _, act := range ov.FailedActivities {
		b.WriteString(fmt.Sprintf("    %s %-20s %-18s %s\n",
			errorStyle.Render(statusIcon(models.EventError)),
			truncate(act.WorkflowID, 20), truncate(act.Type, 18),
			mutedStyle.Render(truncate(act.LastFailure, 40))))
	}

	b.WriteString("\n  " + mutedStyle.Render("updated "+ov.GeneratedAt.Local().Format("15:04:05")))
	return fitHeight(b.String(), height)
}

func (a *App) renderWorkflows(height int) string {
	var b strings.Builder
	b.WriteString(a.search.View() + "\n")
	header := fmt.Sprintf("%-22s %-18s %-14s %-8s %-10s %s", "ID", "TYPE", "QUEUE", "ACTS", "DURATION", "STARTED")
	body := a.renderList(viewWorkflows, "no workflows found", height-4, len(a.workflows), func(i int, selected bool) string {
		wf := a.workflows[i]
		now := a.now()
		line := fmt.Sprintf("%-22s %-18s %-14s %-8d %-10s %s", truncate(wf.ID, 22), truncate(wf.Type, 18),
			truncate(wf.TaskQueue, 14), wf.ActivityCount, formatDuration(wf.Duration(now)), formatAge(wf.StartTime, now))
		return a.renderRow(selected, statusIcon(wf.Status.EventStatus()), line, wf.Status.EventStatus())
	})
	b.WriteString("    " + headerStyle.Render(header) + "\n")
	b.WriteString(body)
	return b.String()
}

func (a *App) renderActivities(height int) string {
	var b strings.Builder
	b.WriteString(a.search.View() + "\n")
	header := fmt.Sprintf("%-20s %-18s %-11s %-8s %-18s %s", "WORKFLOW", "TYPE", "STATUS", "ATTEMPT", "WORKER", "FAILURE")
	body := a.renderList(viewActivities, "no activities found", height-4, len(a.activities), func(i int, selected bool) string {
		act := a.activities[i]
		line := fmt.Sprintf("%-20s %-18s %-11s %-8d %-18s %s", truncate(act.WorkflowID, 20), truncate(act.Type, 18),
			string(act.Status), act.Attempt, truncate(act.WorkerID, 18), truncate(act.LastFailure, 30))
		return a.renderRow(selected, statusIcon(act.Status.EventStatus()), line, act.Status.EventStatus())
	})
	b.WriteString("    " + headerStyle.Render(header) + "\n")
	b.WriteString(body)
	return b.String()
}

func (a *App) renderQueues(height int) string {
	var b strings.Builder
	header := fmt.Sprintf("%-22s %-10s %-8s %-8s %s", "NAME", "KIND", "BACKLOG", "POLLERS", "DISPATCH")
	body := a.renderList(viewQueues, "no task queues found", height-2, len(a.queues), func(i int, selected bool) string {
		q := a.queues[i]
		line := fmt.Sprintf("%-22s %-10s %-8d %-8d %s", truncate(q.Name, 22), string(q.Kind), q.Backlog, q.Pollers,
			dispatchBar(q.DispatchPct, 20))
		status := models.EventSuccess
		if q.Backlog > 0 && q.Pollers == 0 {
			status = models.EventError
		} else if q.Backlog > 0 {
			status = models.EventRunning
		}
		return a.renderRow(selected, statusIcon(status), line, status)
	})
	b.WriteString("\n    " + headerStyle.Render(header) + "\n")
	b.WriteString(body)
	return b.String()
}

func (a *App) renderWorkers(height int) string {
	var b strings.Builder
	header := fmt.Sprintf("%-20s %-26s %-18s %-10s %s", "ID", "IDENTITY", "QUEUE", "SLOTS", "HEARTBEAT")
	now := a.now()
	body := a.renderList(viewWorkers, "no workers found", height-2, len(a.workers), func(i int, selected bool) string {
		w := a.workers[i]
		line := fmt.Sprintf("%-20s %-26s %-18s %-10s %s", truncate(w.ID, 20), truncate(w.Identity, 26),
			truncate(w.TaskQueue, 18), fmt.Sprintf("%d/%d", w.Running, w.Capacity), formatAge(w.LastHeartbeat, now))
		if selected {
			return selectedStyle.Render("▶ " + line)
		}
		return rowStyle.Render(formatWorkerStatus(w.Status) + " " + line)
	})
	b.WriteString("\n    " + headerStyle.Render(header) + "\n")
	b.WriteString(body)
	return b.String()
}

// renderList draws the loading, error and empty states of a list view, or
// a window of rows around the cursor.
func (a *App) renderList(v view, empty string, height, n int, row func(i int, selected bool) string) string {
	st := a.lists[v]
	if st.loading {
		return renderSkeleton(skeletonRows, a.width)
	}
	if st.err != nil {
		return renderError(st.err)
	}
	if n == 0 {
		return "\n" + mutedStyle.Render("  "+empty) + "\n"
	}

	if height < 1 {
		height = 1
	}
	start, end := 0, n
	if n > height {
		start = st.cursor - height/2
		if start < 0 {
			start = 0
		}
		end = start + height
		if end > n {
			end = n
			start = max(0, end-height)
		}
	}

	lines := make([]string, 0, end-start)
	for i := start; i < end; i++ {
		lines = append(lines, row(i, i == st.cursor))
	}
	return strings.Join(lines, "\n") + "\n"
}

func (a *App) renderRow(selected bool, icon, line string, status models.EventStatus) string {
	if selected {
		return selectedStyle.Render("▶ " + icon + " " + line)
	}
	return rowStyle.Render(eventStyle(status).Render(icon) + " " + line)
}

// renderSkeleton draws placeholder rows while data loads.
func renderSkeleton(rows, width int) string {
	w := width - 8
	if w < 20 {
		w = 20
	}
	if w > 80 {
		w = 80
	}
	var b strings.Builder
	b.WriteString("\n")
	for i := 0; i < rows; i++ {
		n := w - (i%3)*7
		b.WriteString("  " + skeletonStyle.Render(strings.Repeat("░", n)) + "\n")
	}
	return b.String()
}

// renderError shows err exactly as the source reported it.
func renderError(err error) string {
	return "\n  " + errorStyle.Render("✗ "+err.Error()) + "\n"
}

func dispatchBar(pct float64, width int) string {
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	filled := int(pct / 100 * float64(width))
	bar := lipgloss.NewStyle().Foreground(successColor).Render(strings.Repeat("█", filled)) +
		mutedStyle.Render(strings.Repeat("░", width-filled))
	return fmt.Sprintf("%s %3.0f%%", bar, pct)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}

func formatDuration(d time.Duration) string {
	if d < 0 {
		return "-"
	}
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	case d < time.Hour:
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	default:
		return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

func formatAge(t, now time.Time) string {
	if t.IsZero() {
		return "-"
	}
	d := now.Sub(t)
	if d < 0 {
		d = 0
	}
	return formatDuration(d.Truncate(time.Second)) + " ago"
}
