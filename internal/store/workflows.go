package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/subnetlabs/console/internal/models"
)

const workflowColumns = `w.id, w.run_id, w.type, w.task_queue, w.status, w.start_time, w.close_time,
	(SELECT COUNT(*) FROM activities a WHERE a.workflow_id = w.id)`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanWorkflow(row rowScanner) (models.Workflow, error) {
	var wf models.Workflow
	var closeTime sql.NullTime
	if err := row.Scan(&wf.ID, &wf.RunID, &wf.Type, &wf.TaskQueue, &wf.Status, &wf.StartTime, &closeTime, &wf.ActivityCount); err != nil {
		return wf, err
	}
	wf.StartTime = wf.StartTime.UTC()
	wf.CloseTime = timePtr(closeTime)
	return wf, nil
}

// NewWorkflow describes a workflow to insert along with its activity plan.
type NewWorkflow struct {
	ID        string
	Type      string
	TaskQueue string
	// Activities are the activity types, scheduled in order.
	Activities []string
	// ActivityQueue is where the activities are dispatched; defaults to TaskQueue.
	ActivityQueue string
	StartTime     time.Time
}

// CreateWorkflow inserts a running workflow with all of its activities
// scheduled. Activities run in seq order; see NextRunnable.
func (s *Store) CreateWorkflow(ctx context.Context, nw NewWorkflow) (*models.Workflow, error) {
	if nw.ID == "" {
		nw.ID = fmt.Sprintf("%s-%s", nw.Type, uuid.New().String()[:8])
	}
	if nw.ActivityQueue == "" {
		nw.ActivityQueue = nw.TaskQueue
	}
	start := stamp(nw.StartTime)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	wf := &models.Workflow{
		ID:        nw.ID,
		RunID:     uuid.New().String(),
		Type:      nw.Type,
		TaskQueue: nw.TaskQueue,
		Status:    models.WorkflowRunning,
		StartTime: start,
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO workflows (id, run_id, type, task_queue, status, start_time) VALUES (?, ?, ?, ?, ?, ?)`,
		wf.ID, wf.RunID, wf.Type, wf.TaskQueue, wf.Status, wf.StartTime,
	)
	if err != nil {
		return nil, fmt.Errorf("insert workflow: %w", err)
	}

	for i, activityType := range nw.Activities {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO activities (id, workflow_id, type, task_queue, status, seq, scheduled_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			uuid.New().String(), wf.ID, activityType, nw.ActivityQueue, models.ActivityScheduled, i+1, start,
		)
		if err != nil {
			return nil, fmt.Errorf("insert activity: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	wf.ActivityCount = len(nw.Activities)
	return wf, nil
}

// GetWorkflow retrieves a workflow by ID.
func (s *Store) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+workflowColumns+` FROM workflows w WHERE w.id = ?`, id)
	wf, err := scanWorkflow(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("workflow %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query workflow: %w", err)
	}
	return &wf, nil
}

// ListWorkflows returns workflows newest first, filtered by status and a
// substring match on id, type or task queue.
func (s *Store) ListWorkflows(ctx context.Context, f models.WorkflowFilter) ([]models.Workflow, error) {
	query := `SELECT ` + workflowColumns + ` FROM workflows w WHERE 1 = 1`
	var args []interface{}

	if f.Status != "" {
		query += ` AND w.status = ?`
		args = append(args, f.Status)
	}
	if f.Query != "" {
		query += ` AND (w.id LIKE ? OR w.type LIKE ? OR w.task_queue LIKE ?)`
		p := likePattern(f.Query)
		args = append(args, p, p, p)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	query += ` ORDER BY w.start_time DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query workflows: %w", err)
	}
	defer rows.Close()

	workflows := []models.Workflow{}
	for rows.Next() {
		wf, err := scanWorkflow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan workflow: %w", err)
		}
		workflows = append(workflows, wf)
	}
	return workflows, rows.Err()
}

// CloseWorkflowIfDone closes a running workflow once every activity is closed.
// The workflow fails if any activity did not complete. It reports whether the
// workflow was closed by this call.
func (s *Store) CloseWorkflowIfDone(ctx context.Context, id string, at time.Time) (bool, error) {
	var open, failed int
	err := s.db.QueryRowContext(ctx,
		`SELECT
			COALESCE(SUM(CASE WHEN status IN (?, ?) THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status IN (?, ?, ?) THEN 1 ELSE 0 END), 0)
		 FROM activities WHERE workflow_id = ?`,
		models.ActivityScheduled, models.ActivityStarted,
		models.ActivityFailed, models.ActivityCanceled, models.ActivityTimedOut,
		id,
	).Scan(&open, &failed)
	if err != nil {
		return false, fmt.Errorf("count open activities: %w", err)
	}
	if open > 0 {
		return false, nil
	}

	status := models.WorkflowCompleted
	if failed > 0 {
		status = models.WorkflowFailed
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE workflows SET status = ?, close_time = ? WHERE id = ? AND status = ?`,
		status, stamp(at), id, models.WorkflowRunning,
	)
	if err != nil {
		return false, fmt.Errorf("close workflow: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check rows affected: %w", err)
	}
	return n > 0, nil
}

// CountWorkflows returns the total number of workflows.
func (s *Store) CountWorkflows(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM workflows`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count workflows: %w", err)
	}
	return n, nil
}
