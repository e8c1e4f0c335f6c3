package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/subnetlabs/console/internal/models"
)

// renderDetail writes a detail view into b: a summary, the timeline block
// and a scrollable list of activities or attempts. The list viewport is
// sized and filled by syncDetail.
func (a *App) renderDetail(b *strings.Builder) {
	if a.detailErr != nil {
		b.WriteString(renderError(a.detailErr))
		return
	}
	if !a.detailReady() {
		b.WriteString(renderSkeleton(skeletonRows, a.width))
		return
	}
	b.WriteString(a.detailSummary())
	b.WriteString(a.tl.View(a.renderNow, a.width))
	b.WriteString(a.viewport.View())
}

func (a *App) detailReady() bool {
	return a.detailErr == nil && !(a.detailLoading && a.workflow == nil && a.activity == nil)
}

func (a *App) detailSummary() string {
	switch a.view {
	case viewWorkflowDetail:
		return a.workflowSummary()
	case viewActivityDetail:
		return a.activitySummary()
	}
	return ""
}

// syncDetail runs after every update: it records the screen row of the zoom
// control for mouse hit testing (-1 when no timeline is on screen) and fits
// the list viewport below the timeline.
func (a *App) syncDetail() {
	a.zoomRowY = -1
	if !a.view.isDetail() || !a.detailReady() {
		return
	}

	summary := a.detailSummary()
	above := a.renderHeader() + "\n" + "\n" + summary
	a.zoomRowY = strings.Count(above, "\n") + zoomRowOffset

	var list string
	switch a.view {
	case viewWorkflowDetail:
		list = a.activityList()
	case viewActivityDetail:
		list = a.attemptList()
	}
	block := a.tl.View(a.renderNow, a.width)
	used := strings.Count(summary, "\n") + strings.Count(block, "\n")
	a.viewport.Height = max(a.contentHeight()-used-1, 3)
	a.viewport.Width = a.width
	a.viewport.SetContent(list)
}

func (a *App) workflowSummary() string {
	wf := a.workflow
	if wf == nil {
		return "\n"
	}
	now := a.renderNow
	title := lipgloss.NewStyle().Bold(true).Render(wf.ID)
	line1 := fmt.Sprintf("  %s  %s  %s", title, formatWorkflowStatus(wf.Status), mutedStyle.Render(wf.Type))
	line2 := fmt.Sprintf("  queue %s  started %s  duration %s  run %s",
		wf.TaskQueue, wf.StartTime.Local().Format(time.DateTime), formatDuration(wf.Duration(now)), truncate(wf.RunID, 8))
	return line1 + "\n" + mutedStyle.Render(line2) + "\n\n"
}

func (a *App) activitySummary() string {
	act := a.activity
	if act == nil {
		return "\n"
	}
	title := lipgloss.NewStyle().Bold(true).Render(act.Type)
	line1 := fmt.Sprintf("  %s  %s  %s", title, formatActivityStatus(act.Status), mutedStyle.Render(act.WorkflowID))
	line2 := fmt.Sprintf("  queue %s  attempt %d  worker %s", act.TaskQueue, act.Attempt, orDash(act.WorkerID))
	out := line1 + "\n" + mutedStyle.Render(line2) + "\n"
	if act.LastFailure != "" {
		out += "  " + errorStyle.Render("last failure: "+act.LastFailure) + "\n"
	}
	return out + "\n"
}

func (a *App) activityList() string {
	if len(a.wfActivities) == 0 {
		return mutedStyle.Render("  no activities") + "\n"
	}
	var lines []string
	lines = append(lines, "    "+headerStyle.Render(fmt.Sprintf("%-3s %-20s %-11s %-8s %-18s %s", "#", "TYPE", "STATUS", "ATTEMPT", "WORKER", "DURATION")))
	for i, act := range a.wfActivities {
		line := fmt.Sprintf("%-3d %-20s %-11s %-8d %-18s %s", act.Seq, truncate(act.Type, 20), string(act.Status),
			act.Attempt, truncate(orDash(act.WorkerID), 18), activityDuration(act, a.renderNow))
		lines = append(lines, a.renderRow(i == a.detailCursor, statusIcon(act.Status.EventStatus()), line, act.Status.EventStatus()))
	}
	return strings.Join(lines, "\n")
}

func (a *App) attemptList() string {
	if len(a.attempts) == 0 {
		return mutedStyle.Render("  no attempts yet") + "\n"
	}
	var lines []string
	lines = append(lines, "    "+headerStyle.Render(fmt.Sprintf("%-3s %-18s %-11s %-10s %s", "#", "WORKER", "STATUS", "DURATION", "FAILURE")))
	for i, at := range a.attempts {
		var d string
		if at.ClosedAt != nil {
			d = formatDuration(at.ClosedAt.Sub(at.StartedAt))
		} else {
			d = formatDuration(a.renderNow.Sub(at.StartedAt))
		}
		line := fmt.Sprintf("%-3d %-18s %-11s %-10s %s", at.Number, truncate(at.WorkerID, 18), string(at.Status), d,
			truncate(at.Failure, 40))
		lines = append(lines, a.renderRow(i == a.detailCursor, statusIcon(at.Status.EventStatus()), line, at.Status.EventStatus()))
	}
	return strings.Join(lines, "\n")
}

func activityDuration(act models.Activity, now time.Time) string {
	if act.StartedAt == nil {
		return "-"
	}
	if act.ClosedAt != nil {
		return formatDuration(act.ClosedAt.Sub(*act.StartedAt))
	}
	return formatDuration(now.Sub(*act.StartedAt))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
