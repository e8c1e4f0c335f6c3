package store

import (
	"context"
	"fmt"
	"time"

	"github.com/subnetlabs/console/internal/models"
)

const overviewListLimit = 5

// Overview aggregates the dashboard counts in one read.
func (s *Store) Overview(ctx context.Context, now time.Time) (*models.Overview, error) {
	ov := &models.Overview{
		GeneratedAt: now.UTC(),
		Workflows:   make(map[models.WorkflowStatus]int, len(models.WorkflowStatuses)),
		Activities:  make(map[models.ActivityStatus]int, len(models.ActivityStatuses)),
	}
	for _, st := range models.WorkflowStatuses {
		ov.Workflows[st] = 0
	}
	for _, st := range models.ActivityStatuses {
		ov.Activities[st] = 0
	}

	if err := s.countByStatus(ctx, `SELECT status, COUNT(*) FROM workflows GROUP BY status`, func(status string, n int) {
		ov.Workflows[models.WorkflowStatus(status)] = n
	}); err != nil {
		return nil, fmt.Errorf("count workflows: %w", err)
	}
	if err := s.countByStatus(ctx, `SELECT status, COUNT(*) FROM activities GROUP BY status`, func(status string, n int) {
		ov.Activities[models.ActivityStatus(status)] = n
	}); err != nil {
		return nil, fmt.Errorf("count activities: %w", err)
	}

	queues, err := s.ListTaskQueues(ctx)
	if err != nil {
		return nil, err
	}
	ov.TaskQueues = len(queues)
	for _, q := range queues {
		ov.Backlog += q.Backlog
	}

	workers, err := s.ListWorkers(ctx)
	if err != nil {
		return nil, err
	}
	ov.WorkersTotal = len(workers)
	for _, w := range workers {
		if w.Status == models.WorkerActive {
			ov.WorkersActive++
		}
	}

	if ov.RecentWorkflows, err = s.ListWorkflows(ctx, models.WorkflowFilter{Limit: overviewListLimit}); err != nil {
		return nil, err
	}
	if ov.FailedActivities, err = s.ListActivities(ctx, models.ActivityFilter{Status: models.ActivityFailed, Limit: overviewListLimit}); err != nil {
		return nil, err
	}
	return ov, nil
}

func (s *Store) countByStatus(ctx context.Context, query string, add func(status string, n int)) error {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return err
		}
		add(status, n)
	}
	return rows.Err()
}
