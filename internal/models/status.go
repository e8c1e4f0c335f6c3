package models

import "fmt"

// EventStatus is the state of a timeline event.
type EventStatus string

const (
	EventSuccess EventStatus = "success"
	EventError   EventStatus = "error"
	EventRunning EventStatus = "running"
	EventPending EventStatus = "pending"
)

// EventStatuses lists every event status.
var EventStatuses = []EventStatus{EventSuccess, EventError, EventRunning, EventPending}

// IsTerminal reports whether the event has finished.
func (s EventStatus) IsTerminal() bool {
	return s == EventSuccess || s == EventError
}

// Valid reports whether s is a known event status.
func (s EventStatus) Valid() bool {
	for _, v := range EventStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// UnmarshalText rejects unknown statuses.
func (s *EventStatus) UnmarshalText(b []byte) error {
	v := EventStatus(b)
	if !v.Valid() {
		return fmt.Errorf("%w: event status %q", ErrInvalidStatus, string(b))
	}
	*s = v
	return nil
}

// WorkflowStatus is the state of a workflow execution.
type WorkflowStatus string

const (
	WorkflowRunning    WorkflowStatus = "running"
	WorkflowCompleted  WorkflowStatus = "completed"
	WorkflowFailed     WorkflowStatus = "failed"
	WorkflowCanceled   WorkflowStatus = "canceled"
	WorkflowTerminated WorkflowStatus = "terminated"
	WorkflowTimedOut   WorkflowStatus = "timed_out"
)

// WorkflowStatuses lists every workflow status in display order.
var WorkflowStatuses = []WorkflowStatus{
	WorkflowRunning, WorkflowCompleted, WorkflowFailed,
	WorkflowCanceled, WorkflowTerminated, WorkflowTimedOut,
}

// ParseWorkflowStatus validates s. The empty string means "any".
func ParseWorkflowStatus(s string) (WorkflowStatus, error) {
	if s == "" {
		return "", nil
	}
	for _, v := range WorkflowStatuses {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: workflow status %q", ErrInvalidStatus, s)
}

// UnmarshalText rejects unknown and empty statuses.
func (s *WorkflowStatus) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("%w: empty workflow status", ErrInvalidStatus)
	}
	v, err := ParseWorkflowStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// IsClosed reports whether the workflow has reached a final state.
func (s WorkflowStatus) IsClosed() bool {
	return s != WorkflowRunning && s != ""
}

// EventStatus maps a workflow state onto the timeline states.
func (s WorkflowStatus) EventStatus() EventStatus {
	switch s {
	case WorkflowRunning:
		return EventRunning
	case WorkflowCompleted:
		return EventSuccess
	default:
		return EventError
	}
}

// ActivityStatus is the state of an activity.
type ActivityStatus string

const (
	ActivityScheduled ActivityStatus = "scheduled"
	ActivityStarted   ActivityStatus = "started"
	ActivityCompleted ActivityStatus = "completed"
	ActivityFailed    ActivityStatus = "failed"
	ActivityCanceled  ActivityStatus = "canceled"
	ActivityTimedOut  ActivityStatus = "timed_out"
)

// ActivityStatuses lists every activity status in display order.
var ActivityStatuses = []ActivityStatus{
	ActivityScheduled, ActivityStarted, ActivityCompleted,
	ActivityFailed, ActivityCanceled, ActivityTimedOut,
}

// ParseActivityStatus validates s. The empty string means "any".
func ParseActivityStatus(s string) (ActivityStatus, error) {
	if s == "" {
		return "", nil
	}
	for _, v := range ActivityStatuses {
		if string(v) == s {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: activity status %q", ErrInvalidStatus, s)
}

// UnmarshalText rejects unknown and empty statuses.
func (s *ActivityStatus) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		return fmt.Errorf("%w: empty activity status", ErrInvalidStatus)
	}
	v, err := ParseActivityStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// IsClosed reports whether the activity has reached a final state.
func (s ActivityStatus) IsClosed() bool {
	switch s {
	case ActivityCompleted, ActivityFailed, ActivityCanceled, ActivityTimedOut:
		return true
	}
	return false
}

// EventStatus maps an activity state onto the timeline states.
func (s ActivityStatus) EventStatus() EventStatus {
	switch s {
	case ActivityScheduled:
		return EventPending
	case ActivityStarted:
		return EventRunning
	case ActivityCompleted:
		return EventSuccess
	default:
		return EventError
	}
}

// QueueKind distinguishes workflow and activity task queues.
type QueueKind string

const (
	QueueWorkflow QueueKind = "workflow"
	QueueActivity QueueKind = "activity"
)

// WorkerStatus is the liveness of a worker.
type WorkerStatus string

const (
	WorkerActive  WorkerStatus = "active"
	WorkerIdle    WorkerStatus = "idle"
	WorkerOffline WorkerStatus = "offline"
)
