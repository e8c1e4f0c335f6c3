package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/subnetlabs/console/internal/models"
)

// UpsertTaskQueue registers a task queue.
func (s *Store) UpsertTaskQueue(ctx context.Context, name string, kind models.QueueKind) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO task_queues (name, kind) VALUES (?, ?) ON CONFLICT(name) DO UPDATE SET kind = excluded.kind`,
		name, kind,
	)
	if err != nil {
		return fmt.Errorf("upsert task queue: %w", err)
	}
	return nil
}

// ListTaskQueues returns every queue with its backlog (scheduled activities),
// pollers (non-offline workers) and the share of open work already dispatched.
func (s *Store) ListTaskQueues(ctx context.Context) ([]models.TaskQueue, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT q.name, q.kind,
			(SELECT COUNT(*) FROM activities a WHERE a.task_queue = q.name AND a.status = ?),
			(SELECT COUNT(*) FROM activities a WHERE a.task_queue = q.name AND a.status = ?),
			(SELECT COUNT(*) FROM workers w WHERE w.task_queue = q.name AND w.status != ?)
		 FROM task_queues q ORDER BY q.name ASC`,
		models.ActivityScheduled, models.ActivityStarted, models.WorkerOffline,
	)
	if err != nil {
		return nil, fmt.Errorf("query task queues: %w", err)
	}
	defer rows.Close()

	queues := []models.TaskQueue{}
	for rows.Next() {
		var q models.TaskQueue
		var started int
		if err := rows.Scan(&q.Name, &q.Kind, &q.Backlog, &started, &q.Pollers); err != nil {
			return nil, fmt.Errorf("scan task queue: %w", err)
		}
		if open := q.Backlog + started; open > 0 {
			q.DispatchPct = float64(started) / float64(open) * 100
		}
		queues = append(queues, q)
	}
	return queues, rows.Err()
}

// UpsertWorker registers a worker or refreshes its identity and capacity.
func (s *Store) UpsertWorker(ctx context.Context, w models.Worker) error {
	if w.Capacity <= 0 {
		w.Capacity = 1
	}
	if w.Status == "" {
		w.Status = models.WorkerIdle
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workers (id, identity, task_queue, status, capacity, last_heartbeat) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET identity = excluded.identity, task_queue = excluded.task_queue,
			capacity = excluded.capacity, status = excluded.status, last_heartbeat = excluded.last_heartbeat`,
		w.ID, w.Identity, w.TaskQueue, w.Status, w.Capacity, stamp(w.LastHeartbeat),
	)
	if err != nil {
		return fmt.Errorf("upsert worker: %w", err)
	}
	return nil
}

const workerQuery = `SELECT w.id, w.identity, w.task_queue, w.status, w.capacity, w.last_heartbeat,
	(SELECT COUNT(*) FROM activities a WHERE a.worker_id = w.id AND a.status = ?) AS running
	FROM workers w`

func scanWorker(row rowScanner) (models.Worker, error) {
	var w models.Worker
	err := row.Scan(&w.ID, &w.Identity, &w.TaskQueue, &w.Status, &w.Capacity, &w.LastHeartbeat, &w.Running)
	w.LastHeartbeat = w.LastHeartbeat.UTC()
	return w, err
}

// ListWorkers returns every worker with its running activity count.
func (s *Store) ListWorkers(ctx context.Context) ([]models.Worker, error) {
	rows, err := s.db.QueryContext(ctx, workerQuery+` ORDER BY w.task_queue ASC, w.identity ASC`, models.ActivityStarted)
	if err != nil {
		return nil, fmt.Errorf("query workers: %w", err)
	}
	defer rows.Close()

	workers := []models.Worker{}
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, fmt.Errorf("scan worker: %w", err)
		}
		workers = append(workers, w)
	}
	return workers, rows.Err()
}

// AvailableWorker returns a live worker on queue with spare capacity, least
// loaded first. It returns ErrNotFound when every worker is busy.
func (s *Store) AvailableWorker(ctx context.Context, queue string) (*models.Worker, error) {
	row := s.db.QueryRowContext(ctx,
		workerQuery+` WHERE w.task_queue = ? AND w.status != ?
			AND (SELECT COUNT(*) FROM activities a WHERE a.worker_id = w.id AND a.status = ?) < w.capacity
		 ORDER BY running ASC, w.identity ASC LIMIT 1`,
		models.ActivityStarted, queue, models.WorkerOffline, models.ActivityStarted,
	)
	w, err := scanWorker(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("worker for %s: %w", queue, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query available worker: %w", err)
	}
	return &w, nil
}

// Heartbeat refreshes every live worker and derives active or idle from its
// running count.
func (s *Store) Heartbeat(ctx context.Context, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE workers SET last_heartbeat = ?,
			status = CASE WHEN EXISTS (
				SELECT 1 FROM activities a WHERE a.worker_id = workers.id AND a.status = ?
			) THEN ? ELSE ? END
		 WHERE status != ?`,
		stamp(at), models.ActivityStarted, models.WorkerActive, models.WorkerIdle, models.WorkerOffline,
	)
	if err != nil {
		return fmt.Errorf("heartbeat workers: %w", err)
	}
	return nil
}

// SetWorkerStatus overrides a worker's liveness.
func (s *Store) SetWorkerStatus(ctx context.Context, id string, status models.WorkerStatus) error {
	res, err := s.db.ExecContext(ctx, `UPDATE workers SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update worker status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("worker %s: %w", id, ErrNotFound)
	}
	return nil
}
