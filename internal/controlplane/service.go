// Package controlplane provides the HTTP API and service layer of the mock
// workflow platform.
package controlplane

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/subnetlabs/console/internal/models"
	"github.com/subnetlabs/console/internal/store"
	"github.com/subnetlabs/console/internal/timeline"
)

// Service provides the read-side business logic over the store.
type Service struct {
	store    *store.Store
	timeline timeline.Config
	now      func() time.Time
}

// NewService creates a new control plane service.
func NewService(s *store.Store, tl timeline.Config) *Service {
	return &Service{
		store:    s,
		timeline: tl.Sanitize(),
		now:      time.Now,
	}
}

// translate maps store sentinels onto the service's.
func translate(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("%v: %w", err, ErrNotFound)
	}
	return err
}

// Overview returns the dashboard summary.
func (s *Service) Overview(ctx context.Context) (*models.Overview, error) {
	return s.store.Overview(ctx, s.now())
}

// ListWorkflows returns filtered workflows.
func (s *Service) ListWorkflows(ctx context.Context, f models.WorkflowFilter) ([]models.Workflow, error) {
	return s.store.ListWorkflows(ctx, f)
}

// GetWorkflow retrieves a workflow by ID.
func (s *Service) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	wf, err := s.store.GetWorkflow(ctx, id)
	return wf, translate(err)
}

// ListActivities returns filtered activities.
func (s *Service) ListActivities(ctx context.Context, f models.ActivityFilter) ([]models.Activity, error) {
	return s.store.ListActivities(ctx, f)
}

// GetActivity retrieves an activity by ID.
func (s *Service) GetActivity(ctx context.Context, id string) (*models.Activity, error) {
	a, err := s.store.GetActivity(ctx, id)
	return a, translate(err)
}

// WorkflowActivities returns a workflow's activities in execution order.
func (s *Service) WorkflowActivities(ctx context.Context, id string) ([]models.Activity, error) {
	if _, err := s.GetWorkflow(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListWorkflowActivities(ctx, id)
}

// ActivityAttempts returns the attempts of an activity.
func (s *Service) ActivityAttempts(ctx context.Context, id string) ([]models.Attempt, error) {
	if _, err := s.GetActivity(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListAttempts(ctx, id)
}

// ListTaskQueues returns every task queue.
func (s *Service) ListTaskQueues(ctx context.Context) ([]models.TaskQueue, error) {
	return s.store.ListTaskQueues(ctx)
}

// ListWorkers returns every worker.
func (s *Service) ListWorkers(ctx context.Context) ([]models.Worker, error) {
	return s.store.ListWorkers(ctx)
}

// WorkflowTimeline derives one event per activity, in execution order.
func (s *Service) WorkflowTimeline(ctx context.Context, id string) ([]models.TimelineEvent, error) {
	activities, err := s.WorkflowActivities(ctx, id)
	if err != nil {
		return nil, err
	}
	events := make([]models.TimelineEvent, 0, len(activities))
	for _, a := range activities {
		events = append(events, ActivityEvent(a))
	}
	return events, nil
}

// ActivityTimeline derives one event per attempt. An activity waiting for its
// next attempt gets a trailing pending event.
func (s *Service) ActivityTimeline(ctx context.Context, id string) ([]models.TimelineEvent, error) {
	a, err := s.GetActivity(ctx, id)
	if err != nil {
		return nil, err
	}
	attempts, err := s.store.ListAttempts(ctx, id)
	if err != nil {
		return nil, err
	}
	events := make([]models.TimelineEvent, 0, len(attempts)+1)
	for _, at := range attempts {
		events = append(events, AttemptEvent(at))
	}
	if a.Status == models.ActivityScheduled {
		events = append(events, models.TimelineEvent{
			ID:     a.ID + "/next",
			Name:   fmt.Sprintf("Attempt %d", len(attempts)+1),
			Status: models.EventPending,
		})
	}
	return events, nil
}

// WriteWorkflowSVG renders a workflow's timeline as SVG.
func (s *Service) WriteWorkflowSVG(ctx context.Context, w io.Writer, id string, unit timeline.Unit, zoom float64) error {
	events, err := s.WorkflowTimeline(ctx, id)
	if err != nil {
		return err
	}
	zc := timeline.NewZoomController(s.timeline)
	state := zc.Nudge(zc.Initial(), zoom-s.timeline.DefaultZoom)
	layout := timeline.Build(events, timeline.Options{
		Unit:          unit,
		PixelsPerUnit: zc.PixelsPerUnit(state),
		Now:           s.now(),
	}, s.timeline)

	opts := timeline.DefaultSVGOptions()
	opts.Title = id
	return timeline.WriteSVG(w, layout, opts)
}

// ActivityEvent maps an activity onto a timeline event. Activities closed
// before they ever started collapse to a point at their close time.
func ActivityEvent(a models.Activity) models.TimelineEvent {
	name := a.Type
	if a.Attempt > 1 {
		name = fmt.Sprintf("%s (attempt %d)", a.Type, a.Attempt)
	}
	ev := models.TimelineEvent{
		ID:        a.ID,
		Name:      name,
		Status:    a.Status.EventStatus(),
		StartTime: models.MillisOf(a.StartedAt),
		EndTime:   models.MillisOf(a.ClosedAt),
	}
	if ev.Status == models.EventPending {
		ev.StartTime, ev.EndTime = 0, 0
	} else if a.StartedAt == nil {
		ev.StartTime = ev.EndTime
	}
	return ev
}

// AttemptEvent maps an attempt onto a timeline event.
func AttemptEvent(at models.Attempt) models.TimelineEvent {
	name := fmt.Sprintf("Attempt %d", at.Number)
	if at.WorkerID != "" {
		name = fmt.Sprintf("Attempt %d · %s", at.Number, at.WorkerID)
	}
	return models.TimelineEvent{
		ID:        at.ID,
		Name:      name,
		Status:    at.Status.EventStatus(),
		StartTime: models.MillisOf(&at.StartedAt),
		EndTime:   models.MillisOf(at.ClosedAt),
	}
}
