// Package models defines the core domain types for the subnet console.
package models

import "time"

// Workflow is a multi-step execution tracked by the platform.
type Workflow struct {
	ID            string         `json:"id"`
	RunID         string         `json:"run_id"`
	Type          string         `json:"type"`
	TaskQueue     string         `json:"task_queue"`
	Status        WorkflowStatus `json:"status"`
	StartTime     time.Time      `json:"start_time"`
	CloseTime     *time.Time     `json:"close_time,omitempty"`
	ActivityCount int            `json:"activity_count"`
}

// Duration returns how long the workflow ran, or has been running as of now.
func (w Workflow) Duration(now time.Time) time.Duration {
	if w.CloseTime != nil {
		return w.CloseTime.Sub(w.StartTime)
	}
	return now.Sub(w.StartTime)
}

// Activity is a single unit of work within a workflow.
type Activity struct {
	ID          string         `json:"id"`
	WorkflowID  string         `json:"workflow_id"`
	Type        string         `json:"type"`
	TaskQueue   string         `json:"task_queue"`
	Status      ActivityStatus `json:"status"`
	Seq         int            `json:"seq"`
	Attempt     int            `json:"attempt"`
	WorkerID    string         `json:"worker_id,omitempty"`
	ScheduledAt time.Time      `json:"scheduled_at"`
	StartedAt   *time.Time     `json:"started_at,omitempty"`
	ClosedAt    *time.Time     `json:"closed_at,omitempty"`
	LastFailure string         `json:"last_failure,omitempty"`
}

// Attempt is one execution attempt of an activity.
type Attempt struct {
	ID         string         `json:"id"`
	ActivityID string         `json:"activity_id"`
	Number     int            `json:"number"`
	WorkerID   string         `json:"worker_id"`
	Status     ActivityStatus `json:"status"`
	StartedAt  time.Time      `json:"started_at"`
	ClosedAt   *time.Time     `json:"closed_at,omitempty"`
	Failure    string         `json:"failure,omitempty"`
}

// TaskQueue is a named buffer of pending activities awaiting a worker.
type TaskQueue struct {
	Name        string    `json:"name"`
	Kind        QueueKind `json:"kind"`
	Backlog     int       `json:"backlog"`
	Pollers     int       `json:"pollers"`
	DispatchPct float64   `json:"dispatch_pct"`
}

// Worker is an execution agent that claims activities from a queue.
type Worker struct {
	ID            string       `json:"id"`
	Identity      string       `json:"identity"`
	TaskQueue     string       `json:"task_queue"`
	Status        WorkerStatus `json:"status"`
	Running       int          `json:"running"`
	Capacity      int          `json:"capacity"`
	LastHeartbeat time.Time    `json:"last_heartbeat"`
}

// TimelineEvent is a time-bounded record of an execution span.
// StartTime and EndTime are milliseconds since epoch; both are zero while pending.
type TimelineEvent struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	StartTime int64       `json:"startTime"`
	EndTime   int64       `json:"endTime"`
	Status    EventStatus `json:"status"`
}

// Overview is the dashboard summary.
type Overview struct {
	GeneratedAt      time.Time              `json:"generated_at"`
	Workflows        map[WorkflowStatus]int `json:"workflows"`
	Activities       map[ActivityStatus]int `json:"activities"`
	TaskQueues       int                    `json:"task_queues"`
	Backlog          int                    `json:"backlog"`
	WorkersActive    int                    `json:"workers_active"`
	WorkersTotal     int                    `json:"workers_total"`
	RecentWorkflows  []Workflow             `json:"recent_workflows"`
	FailedActivities []Activity             `json:"failed_activities"`
}

// WorkflowFilter narrows a workflow listing.
type WorkflowFilter struct {
	Status WorkflowStatus
	Query  string
	Limit  int
}

// ActivityFilter narrows an activity listing.
type ActivityFilter struct {
	Status     ActivityStatus
	WorkflowID string
	Query      string
	Limit      int
}

// MillisOf converts a time to epoch milliseconds; the zero time maps to 0.
func MillisOf(t *time.Time) int64 {
	if t == nil || t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
