package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/subnetlabs/console/internal/models"
)

const activityColumns = `id, workflow_id, type, task_queue, status, seq, attempt, worker_id,
	scheduled_at, started_at, closed_at, last_failure`

func scanActivity(row rowScanner) (models.Activity, error) {
	var a models.Activity
	var workerID, lastFailure sql.NullString
	var startedAt, closedAt sql.NullTime
	err := row.Scan(&a.ID, &a.WorkflowID, &a.Type, &a.TaskQueue, &a.Status, &a.Seq, &a.Attempt, &workerID,
		&a.ScheduledAt, &startedAt, &closedAt, &lastFailure)
	if err != nil {
		return a, err
	}
	a.ScheduledAt = a.ScheduledAt.UTC()
	a.WorkerID = workerID.String
	a.LastFailure = lastFailure.String
	a.StartedAt = timePtr(startedAt)
	a.ClosedAt = timePtr(closedAt)
	return a, nil
}

func (s *Store) queryActivities(ctx context.Context, query string, args ...interface{}) ([]models.Activity, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query activities: %w", err)
	}
	defer rows.Close()

	activities := []models.Activity{}
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

// GetActivity retrieves an activity by ID.
func (s *Store) GetActivity(ctx context.Context, id string) (*models.Activity, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+activityColumns+` FROM activities WHERE id = ?`, id)
	a, err := scanActivity(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("activity %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query activity: %w", err)
	}
	return &a, nil
}

// ListActivities returns activities newest first, filtered by status, owning
// workflow and a substring match on id, type or task queue.
func (s *Store) ListActivities(ctx context.Context, f models.ActivityFilter) ([]models.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE 1 = 1`
	var args []interface{}

	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, f.Status)
	}
	if f.WorkflowID != "" {
		query += ` AND workflow_id = ?`
		args = append(args, f.WorkflowID)
	}
	if f.Query != "" {
		query += ` AND (id LIKE ? OR type LIKE ? OR task_queue LIKE ?)`
		p := likePattern(f.Query)
		args = append(args, p, p, p)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = defaultLimit
	}
	query += ` ORDER BY scheduled_at DESC, seq DESC LIMIT ?`
	args = append(args, limit)

	return s.queryActivities(ctx, query, args...)
}

// ListWorkflowActivities returns the activities of a workflow in execution order.
func (s *Store) ListWorkflowActivities(ctx context.Context, workflowID string) ([]models.Activity, error) {
	return s.queryActivities(ctx,
		`SELECT `+activityColumns+` FROM activities WHERE workflow_id = ? ORDER BY seq ASC`,
		workflowID,
	)
}

// NextRunnable returns scheduled activities whose predecessors in the same
// workflow have all closed, oldest first.
func (s *Store) NextRunnable(ctx context.Context, limit int) ([]models.Activity, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	return s.queryActivities(ctx,
		`SELECT `+activityColumns+` FROM activities a
		 WHERE a.status = ? AND NOT EXISTS (
			SELECT 1 FROM activities p
			WHERE p.workflow_id = a.workflow_id AND p.seq < a.seq AND p.status IN (?, ?)
		 )
		 ORDER BY a.scheduled_at ASC, a.seq ASC LIMIT ?`,
		models.ActivityScheduled, models.ActivityScheduled, models.ActivityStarted, limit,
	)
}

// ListAttempts returns the attempts of an activity, first attempt first.
func (s *Store) ListAttempts(ctx context.Context, activityID string) ([]models.Attempt, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, activity_id, number, worker_id, status, started_at, closed_at, failure
		 FROM activity_attempts WHERE activity_id = ? ORDER BY number ASC`,
		activityID,
	)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	attempts := []models.Attempt{}
	for rows.Next() {
		var at models.Attempt
		var closedAt sql.NullTime
		var failure sql.NullString
		if err := rows.Scan(&at.ID, &at.ActivityID, &at.Number, &at.WorkerID, &at.Status, &at.StartedAt, &closedAt, &failure); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		at.StartedAt = at.StartedAt.UTC()
		at.ClosedAt = timePtr(closedAt)
		at.Failure = failure.String
		attempts = append(attempts, at)
	}
	return attempts, rows.Err()
}

// StartActivity hands a scheduled activity to a worker and opens a new attempt.
func (s *Store) StartActivity(ctx context.Context, id, workerID string, at time.Time) (*models.Attempt, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := stamp(at)
	res, err := tx.ExecContext(ctx,
		`UPDATE activities SET status = ?, attempt = attempt + 1, worker_id = ?, started_at = ?
		 WHERE id = ? AND status = ?`,
		models.ActivityStarted, workerID, now, id, models.ActivityScheduled,
	)
	if err != nil {
		return nil, fmt.Errorf("update activity: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("check rows affected: %w", err)
	}
	if n == 0 {
		return nil, fmt.Errorf("start activity %s: %w", id, ErrInvalidTransition)
	}

	attempt := &models.Attempt{
		ID:         uuid.New().String(),
		ActivityID: id,
		WorkerID:   workerID,
		Status:     models.ActivityStarted,
		StartedAt:  now,
	}
	if err := tx.QueryRowContext(ctx, `SELECT attempt FROM activities WHERE id = ?`, id).Scan(&attempt.Number); err != nil {
		return nil, fmt.Errorf("read attempt number: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO activity_attempts (id, activity_id, number, worker_id, status, started_at) VALUES (?, ?, ?, ?, ?, ?)`,
		attempt.ID, attempt.ActivityID, attempt.Number, attempt.WorkerID, attempt.Status, attempt.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert attempt: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}
	return attempt, nil
}

// Outcome is how a started attempt ended.
type Outcome struct {
	Status  models.ActivityStatus
	Failure string
	// Retry puts the activity back in the queue instead of closing it.
	Retry bool
}

// FinishActivity closes the current attempt of a started activity. Without a
// retry the activity closes too, and a non-completed activity cancels the
// rest of its workflow's scheduled activities.
func (s *Store) FinishActivity(ctx context.Context, id string, out Outcome, at time.Time) error {
	if !out.Status.IsClosed() {
		return fmt.Errorf("finish activity %s with %q: %w", id, out.Status, ErrInvalidTransition)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := stamp(at)
	var workflowID string
	var attempt int
	err = tx.QueryRowContext(ctx,
		`SELECT workflow_id, attempt FROM activities WHERE id = ? AND status = ?`,
		id, models.ActivityStarted,
	).Scan(&workflowID, &attempt)
	if err == sql.ErrNoRows {
		return fmt.Errorf("finish activity %s: %w", id, ErrInvalidTransition)
	}
	if err != nil {
		return fmt.Errorf("query activity: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE activity_attempts SET status = ?, closed_at = ?, failure = ? WHERE activity_id = ? AND number = ?`,
		out.Status, now, out.Failure, id, attempt,
	)
	if err != nil {
		return fmt.Errorf("close attempt: %w", err)
	}

	if out.Retry {
		_, err = tx.ExecContext(ctx,
			`UPDATE activities SET status = ?, worker_id = NULL, started_at = NULL, scheduled_at = ?, last_failure = ? WHERE id = ?`,
			models.ActivityScheduled, now, out.Failure, id,
		)
		if err != nil {
			return fmt.Errorf("reschedule activity: %w", err)
		}
	} else {
		_, err = tx.ExecContext(ctx,
			`UPDATE activities SET status = ?, closed_at = ?, last_failure = ? WHERE id = ?`,
			out.Status, now, out.Failure, id,
		)
		if err != nil {
			return fmt.Errorf("close activity: %w", err)
		}
		if out.Status != models.ActivityCompleted {
			_, err = tx.ExecContext(ctx,
				`UPDATE activities SET status = ?, closed_at = ? WHERE workflow_id = ? AND status = ?`,
				models.ActivityCanceled, now, workflowID, models.ActivityScheduled,
			)
			if err != nil {
				return fmt.Errorf("cancel remaining activities: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
