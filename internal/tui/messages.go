package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/subnetlabs/console/internal/models"
)

const fetchTimeout = 10 * time.Second

type overviewLoadedMsg struct {
	overview *models.Overview
	err      error
}

type workflowsLoadedMsg struct {
	items []models.Workflow
	err   error
}

type activitiesLoadedMsg struct {
	items []models.Activity
	err   error
}

type queuesLoadedMsg struct {
	items []models.TaskQueue
	err   error
}

type workersLoadedMsg struct {
	items []models.Worker
	err   error
}

type workflowDetailMsg struct {
	id         string
	workflow   *models.Workflow
	activities []models.Activity
	events     []models.TimelineEvent
	err        error
}

type activityDetailMsg struct {
	id       string
	activity *models.Activity
	attempts []models.Attempt
	events   []models.TimelineEvent
	err      error
}

// nowTickMsg advances the render time of a detail view. Ticks whose gen is
// not the current one belong to a view that was left.
type nowTickMsg struct {
	gen int
	t   time.Time
}

type refreshTickMsg time.Time

type streamStartedMsg struct {
	ch     <-chan *models.Overview
	cancel context.CancelFunc
	err    error
}

type streamSnapshotMsg struct {
	overview *models.Overview
	ok       bool
}

func (a *App) fetchOverview() tea.Cmd {
	src := a.src
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		ov, err := src.Overview(ctx)
		return overviewLoadedMsg{overview: ov, err: err}
	}
}

func (a *App) fetchWorkflows() tea.Cmd {
	src := a.src
	filter := models.WorkflowFilter{Status: workflowFilters[a.wfFilter], Query: a.search.Applied()}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		items, err := src.ListWorkflows(ctx, filter)
		return workflowsLoadedMsg{items: items, err: err}
	}
}

func (a *App) fetchActivities() tea.Cmd {
	src := a.src
	filter := models.ActivityFilter{Status: activityFilters[a.actFilter], Query: a.search.Applied()}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		items, err := src.ListActivities(ctx, filter)
		return activitiesLoadedMsg{items: items, err: err}
	}
}

func (a *App) fetchQueues() tea.Cmd {
	src := a.src
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		items, err := src.ListTaskQueues(ctx)
		return queuesLoadedMsg{items: items, err: err}
	}
}

func (a *App) fetchWorkers() tea.Cmd {
	src := a.src
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		items, err := src.ListWorkers(ctx)
		return workersLoadedMsg{items: items, err: err}
	}
}

func (a *App) fetchWorkflowDetail(id string) tea.Cmd {
	src := a.src
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		msg := workflowDetailMsg{id: id}
		if msg.workflow, msg.err = src.GetWorkflow(ctx, id); msg.err != nil {
			return msg
		}
		if msg.activities, msg.err = src.WorkflowActivities(ctx, id); msg.err != nil {
			return msg
		}
		msg.events, msg.err = src.WorkflowTimeline(ctx, id)
		return msg
	}
}

func (a *App) fetchActivityDetail(id string) tea.Cmd {
	src := a.src
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), fetchTimeout)
		defer cancel()
		msg := activityDetailMsg{id: id}
		if msg.activity, msg.err = src.GetActivity(ctx, id); msg.err != nil {
			return msg
		}
		if msg.attempts, msg.err = src.ActivityAttempts(ctx, id); msg.err != nil {
			return msg
		}
		msg.events, msg.err = src.ActivityTimeline(ctx, id)
		return msg
	}
}

func (a *App) nowTickCmd(gen int) tea.Cmd {
	return tea.Tick(a.opts.NowTick, func(t time.Time) tea.Msg {
		return nowTickMsg{gen: gen, t: t}
	})
}

func (a *App) refreshTickCmd() tea.Cmd {
	if a.opts.RefreshEvery <= 0 {
		return nil
	}
	return tea.Tick(a.opts.RefreshEvery, func(t time.Time) tea.Msg {
		return refreshTickMsg(t)
	})
}

func (a *App) startStream() tea.Cmd {
	streamer, ok := a.src.(OverviewStreamer)
	if !ok {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithCancel(context.Background())
		ch, err := streamer.StreamOverview(ctx)
		if err != nil {
			cancel()
			return streamStartedMsg{err: err}
		}
		return streamStartedMsg{ch: ch, cancel: cancel}
	}
}

func waitForSnapshot(ch <-chan *models.Overview) tea.Cmd {
	return func() tea.Msg {
		ov, ok := <-ch
		return streamSnapshotMsg{overview: ov, ok: ok}
	}
}
