package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/subnetlabs/console/internal/models"
)

var (
	// Colors
	primaryColor   = lipgloss.Color("#7C3AED")
	secondaryColor = lipgloss.Color("#6366F1")
	successColor   = lipgloss.Color("#10B981")
	warningColor   = lipgloss.Color("#F59E0B")
	errorColor     = lipgloss.Color("#EF4444")
	mutedColor     = lipgloss.Color("#6B7280")
	fgColor        = lipgloss.Color("#F9FAFB")
	cyanColor      = lipgloss.Color("#06B6D4")

	// Styles
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	statusBarStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#374151")).
			Foreground(fgColor).
			Padding(0, 1)

	searchBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1)

	rowStyle = lipgloss.NewStyle().
			Padding(0, 2)

	selectedStyle = lipgloss.NewStyle().
			Background(primaryColor).
			Foreground(fgColor).
			Bold(true).
			Padding(0, 2)

	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(cyanColor)

	helpStyle = lipgloss.NewStyle().
			Foreground(mutedColor).
			Italic(true)

	mutedStyle = lipgloss.NewStyle().Foreground(mutedColor)

	errorStyle = lipgloss.NewStyle().Foreground(errorColor)

	skeletonStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#374151"))

	tabStyle       = lipgloss.NewStyle().Foreground(mutedColor).Padding(0, 1)
	activeTabStyle = lipgloss.NewStyle().Foreground(fgColor).Background(secondaryColor).Bold(true).Padding(0, 1)

	onlineStyle = lipgloss.NewStyle().
			Foreground(successColor).
			Bold(true)

	offlineStyle = lipgloss.NewStyle().
			Foreground(errorColor)
)

// Bar colours on the timeline.
var eventStyles = map[models.EventStatus]lipgloss.Style{
	models.EventSuccess: lipgloss.NewStyle().Foreground(successColor),
	models.EventError:   lipgloss.NewStyle().Foreground(errorColor),
	models.EventRunning: lipgloss.NewStyle().Foreground(cyanColor),
	models.EventPending: lipgloss.NewStyle().Foreground(mutedColor),
}

func eventStyle(s models.EventStatus) lipgloss.Style {
	if st, ok := eventStyles[s]; ok {
		return st
	}
	return mutedStyle
}

func formatEventStatus(s models.EventStatus) string {
	switch s {
	case models.EventSuccess:
		return eventStyle(s).Render("● success")
	case models.EventError:
		return eventStyle(s).Render("✗ error")
	case models.EventRunning:
		return eventStyle(s).Render("◑ running")
	case models.EventPending:
		return eventStyle(s).Render("○ pending")
	default:
		return string(s)
	}
}

func formatWorkflowStatus(s models.WorkflowStatus) string {
	return eventStyle(s.EventStatus()).Render(statusIcon(s.EventStatus()) + " " + string(s))
}

func formatActivityStatus(s models.ActivityStatus) string {
	return eventStyle(s.EventStatus()).Render(statusIcon(s.EventStatus()) + " " + string(s))
}

func formatWorkerStatus(s models.WorkerStatus) string {
	switch s {
	case models.WorkerActive:
		return onlineStyle.Render("● active")
	case models.WorkerIdle:
		return lipgloss.NewStyle().Foreground(warningColor).Render("◐ idle")
	default:
		return offlineStyle.Render("○ offline")
	}
}

func statusIcon(s models.EventStatus) string {
	switch s {
	case models.EventSuccess:
		return "●"
	case models.EventError:
		return "✗"
	case models.EventRunning:
		return "◑"
	default:
		return "○"
	}
}
