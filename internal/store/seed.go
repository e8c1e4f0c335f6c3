package store

import (
	"context"
	"fmt"
	"time"

	"github.com/subnetlabs/console/internal/models"
)

// seedStep scripts one activity of a fixture workflow. Failures attempts fail
// and retry before the final attempt. An empty Final leaves the activity
// scheduled; ActivityStarted leaves it running.
type seedStep struct {
	Activity string
	Worker   string
	Duration time.Duration
	Failures int
	Final    models.ActivityStatus
	Failure  string
}

type seedWorkflow struct {
	ID            string
	Type          string
	TaskQueue     string
	ActivityQueue string
	Ago           time.Duration
	Steps         []seedStep
}

const seedGap = 10 * time.Millisecond

var seedQueues = []struct {
	Name string
	Kind models.QueueKind
}{
	{"orders", models.QueueWorkflow},
	{"orders-activities", models.QueueActivity},
	{"billing", models.QueueActivity},
	{"notifications", models.QueueActivity},
}

var seedWorkers = []models.Worker{
	{ID: "orders-worker-1", Identity: "orders-worker-1@node-a", TaskQueue: "orders-activities", Capacity: 2},
	{ID: "orders-worker-2", Identity: "orders-worker-2@node-b", TaskQueue: "orders-activities", Capacity: 2},
	{ID: "billing-worker-1", Identity: "billing-worker-1@node-a", TaskQueue: "billing", Capacity: 1},
	{ID: "notify-worker-1", Identity: "notify-worker-1@node-c", TaskQueue: "notifications", Capacity: 4},
}

var seedWorkflows = []seedWorkflow{
	{
		ID: "order-1001", Type: "OrderFulfillment", TaskQueue: "orders", ActivityQueue: "orders-activities", Ago: 2 * time.Hour,
		Steps: []seedStep{
			{Activity: "ValidateOrder", Worker: "orders-worker-1", Duration: 125 * time.Millisecond, Final: models.ActivityCompleted},
			{Activity: "ChargePayment", Worker: "orders-worker-1", Duration: 145 * time.Millisecond, Final: models.ActivityCompleted},
			{Activity: "ReserveInventory", Worker: "orders-worker-2", Duration: 300 * time.Millisecond, Final: models.ActivityCompleted},
			{Activity: "ShipOrder", Worker: "orders-worker-2", Duration: 2 * time.Second, Final: models.ActivityCompleted},
			{Activity: "SendConfirmation", Worker: "orders-worker-1", Duration: 80 * time.Millisecond, Final: models.ActivityCompleted},
		},
	},
	{
		ID: "order-1002", Type: "OrderFulfillment", TaskQueue: "orders", ActivityQueue: "orders-activities", Ago: 90 * time.Minute,
		Steps: []seedStep{
			{Activity: "ValidateOrder", Worker: "orders-worker-2", Duration: 110 * time.Millisecond, Final: models.ActivityCompleted},
			{Activity: "ChargePayment", Worker: "orders-worker-1", Duration: 220 * time.Millisecond, Failures: 2,
				Final: models.ActivityFailed, Failure: "payment gateway: card declined"},
			{Activity: "ReserveInventory"},
			{Activity: "ShipOrder"},
			{Activity: "SendConfirmation"},
		},
	},
	{
		ID: "order-1003", Type: "OrderFulfillment", TaskQueue: "orders", ActivityQueue: "orders-activities", Ago: 3 * time.Minute,
		Steps: []seedStep{
			{Activity: "ValidateOrder", Worker: "orders-worker-1", Duration: 130 * time.Millisecond, Final: models.ActivityCompleted},
			{Activity: "ChargePayment", Worker: "orders-worker-2", Duration: 160 * time.Millisecond, Final: models.ActivityCompleted},
			{Activity: "ReserveInventory", Worker: "orders-worker-1", Final: models.ActivityStarted},
			{Activity: "ShipOrder"},
			{Activity: "SendConfirmation"},
		},
	},
	{
		ID: "order-1004", Type: "OrderFulfillment", TaskQueue: "orders", ActivityQueue: "orders-activities", Ago: 20 * time.Second,
		Steps: []seedStep{
			{Activity: "ValidateOrder"},
			{Activity: "ChargePayment"},
			{Activity: "ReserveInventory"},
		},
	},
	{
		ID: "invoice-2001", Type: "InvoiceRun", TaskQueue: "orders", ActivityQueue: "billing", Ago: 45 * time.Minute,
		Steps: []seedStep{
			{Activity: "GenerateInvoice", Worker: "billing-worker-1", Duration: 1200 * time.Millisecond, Final: models.ActivityCompleted},
			{Activity: "RenderPDF", Worker: "billing-worker-1", Duration: 3400 * time.Millisecond, Final: models.ActivityCompleted},
			{Activity: "EmailInvoice", Worker: "billing-worker-1", Duration: 400 * time.Millisecond, Final: models.ActivityCompleted},
		},
	},
	{
		ID: "invoice-2002", Type: "InvoiceRun", TaskQueue: "orders", ActivityQueue: "billing", Ago: 2 * time.Minute,
		Steps: []seedStep{
			{Activity: "GenerateInvoice", Worker: "billing-worker-1", Duration: 900 * time.Millisecond, Failures: 1,
				Final: models.ActivityStarted, Failure: "ledger service unavailable"},
			{Activity: "RenderPDF"},
			{Activity: "EmailInvoice"},
		},
	},
	{
		ID: "notify-3001", Type: "NotifyCustomer", TaskQueue: "orders", ActivityQueue: "notifications", Ago: 30 * time.Minute,
		Steps: []seedStep{
			{Activity: "LookupPreferences", Worker: "notify-worker-1", Duration: 40 * time.Millisecond, Final: models.ActivityCompleted},
			{Activity: "SendSMS", Worker: "notify-worker-1", Duration: 900 * time.Millisecond, Final: models.ActivityCompleted},
		},
	},
	{
		ID: "notify-3002", Type: "NotifyCustomer", TaskQueue: "orders", ActivityQueue: "notifications", Ago: 25 * time.Minute,
		Steps: []seedStep{
			{Activity: "LookupPreferences", Worker: "notify-worker-1", Duration: 35 * time.Millisecond, Final: models.ActivityCompleted},
			{Activity: "SendSMS", Worker: "notify-worker-1", Duration: 30 * time.Second, Final: models.ActivityTimedOut, Failure: "start-to-close timeout"},
		},
	},
}

// Seed populates an empty store with fixture executions relative to now.
// It reports whether anything was written.
func (s *Store) Seed(ctx context.Context, now time.Time) (bool, error) {
	n, err := s.CountWorkflows(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	for _, q := range seedQueues {
		if err := s.UpsertTaskQueue(ctx, q.Name, q.Kind); err != nil {
			return false, err
		}
	}
	for _, w := range seedWorkers {
		w.LastHeartbeat = now
		if err := s.UpsertWorker(ctx, w); err != nil {
			return false, err
		}
	}
	for _, sw := range seedWorkflows {
		if err := s.seedWorkflow(ctx, sw, now); err != nil {
			return false, fmt.Errorf("seed %s: %w", sw.ID, err)
		}
	}
	if err := s.Heartbeat(ctx, now); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Store) seedWorkflow(ctx context.Context, sw seedWorkflow, now time.Time) error {
	types := make([]string, len(sw.Steps))
	for i, st := range sw.Steps {
		types[i] = st.Activity
	}
	cursor := now.Add(-sw.Ago)
	wf, err := s.CreateWorkflow(ctx, NewWorkflow{
		ID:            sw.ID,
		Type:          sw.Type,
		TaskQueue:     sw.TaskQueue,
		ActivityQueue: sw.ActivityQueue,
		Activities:    types,
		StartTime:     cursor,
	})
	if err != nil {
		return err
	}
	activities, err := s.ListWorkflowActivities(ctx, wf.ID)
	if err != nil {
		return err
	}

	for i, st := range sw.Steps {
		if st.Final == "" {
			break
		}
		id := activities[i].ID
		for k := 0; k < st.Failures; k++ {
			if _, err := s.StartActivity(ctx, id, st.Worker, cursor); err != nil {
				return err
			}
			cursor = cursor.Add(st.Duration)
			failure := st.Failure
			if failure == "" {
				failure = "transient error"
			}
			if err := s.FinishActivity(ctx, id, Outcome{Status: models.ActivityFailed, Failure: failure, Retry: true}, cursor); err != nil {
				return err
			}
			cursor = cursor.Add(seedGap)
		}

		if _, err := s.StartActivity(ctx, id, st.Worker, cursor); err != nil {
			return err
		}
		if st.Final == models.ActivityStarted {
			break
		}
		cursor = cursor.Add(st.Duration)
		if err := s.FinishActivity(ctx, id, Outcome{Status: st.Final, Failure: st.Failure}, cursor); err != nil {
			return err
		}
		cursor = cursor.Add(seedGap)
	}

	_, err = s.CloseWorkflowIfDone(ctx, wf.ID, cursor.Add(-seedGap))
	return err
}
