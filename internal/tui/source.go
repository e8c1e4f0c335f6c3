package tui

import (
	"context"

	"github.com/subnetlabs/console/internal/models"
)

// Source is where the console reads its data from: the REST client when a
// daemon is running, or the in-process service in offline mode.
type Source interface {
	Overview(ctx context.Context) (*models.Overview, error)
	ListWorkflows(ctx context.Context, f models.WorkflowFilter) ([]models.Workflow, error)
	GetWorkflow(ctx context.Context, id string) (*models.Workflow, error)
	WorkflowActivities(ctx context.Context, id string) ([]models.Activity, error)
	WorkflowTimeline(ctx context.Context, id string) ([]models.TimelineEvent, error)
	ListActivities(ctx context.Context, f models.ActivityFilter) ([]models.Activity, error)
	GetActivity(ctx context.Context, id string) (*models.Activity, error)
	ActivityAttempts(ctx context.Context, id string) ([]models.Attempt, error)
	ActivityTimeline(ctx context.Context, id string) ([]models.TimelineEvent, error)
	ListTaskQueues(ctx context.Context) ([]models.TaskQueue, error)
	ListWorkers(ctx context.Context) ([]models.Worker, error)
}

// OverviewStreamer is implemented by sources that can push live overview
// snapshots.
type OverviewStreamer interface {
	StreamOverview(ctx context.Context) (<-chan *models.Overview, error)
}

// CacheInvalidator is implemented by sources that cache responses.
type CacheInvalidator interface {
	InvalidateCache()
}
