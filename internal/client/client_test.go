package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/subnetlabs/console/internal/controlplane"
	"github.com/subnetlabs/console/internal/models"
	"github.com/subnetlabs/console/internal/store"
	"github.com/subnetlabs/console/internal/timeline"
)

func newTestAPI(t *testing.T) (*httptest.Server, *controlplane.Server) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if _, err := st.Seed(context.Background(), time.Now()); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	srv := controlplane.NewServer(controlplane.NewService(st, timeline.DefaultConfig()), st, "127.0.0.1:0", nil)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, srv
}

func TestClient_Health(t *testing.T) {
	ts, _ := newTestAPI(t)
	c := New(ts.URL + "/")

	h, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if !h.OK || h.DB != "ok" {
		t.Errorf("Expected healthy response, got %+v", h)
	}
	if c.BaseURL() != ts.URL {
		t.Errorf("Expected trailing slash trimmed, got %s", c.BaseURL())
	}
}

func TestClient_ListAndGet(t *testing.T) {
	ts, _ := newTestAPI(t)
	c := New(ts.URL)
	ctx := context.Background()

	workflows, err := c.ListWorkflows(ctx, models.WorkflowFilter{Status: models.WorkflowFailed})
	if err != nil {
		t.Fatalf("ListWorkflows failed: %v", err)
	}
	if len(workflows) != 2 {
		t.Errorf("Expected 2 failed workflows, got %d", len(workflows))
	}

	wf, err := c.GetWorkflow(ctx, "order-1003")
	if err != nil {
		t.Fatalf("GetWorkflow failed: %v", err)
	}
	if wf.Status != models.WorkflowRunning {
		t.Errorf("Expected running, got %s", wf.Status)
	}

	activities, err := c.WorkflowActivities(ctx, "order-1003")
	if err != nil {
		t.Fatalf("WorkflowActivities failed: %v", err)
	}
	if len(activities) != 5 {
		t.Fatalf("Expected 5 activities, got %d", len(activities))
	}

	a, err := c.GetActivity(ctx, activities[0].ID)
	if err != nil {
		t.Fatalf("GetActivity failed: %v", err)
	}
	if a.WorkflowID != "order-1003" {
		t.Errorf("Unexpected workflow id %s", a.WorkflowID)
	}

	attempts, err := c.ActivityAttempts(ctx, activities[0].ID)
	if err != nil {
		t.Fatalf("ActivityAttempts failed: %v", err)
	}
	if len(attempts) != 1 {
		t.Errorf("Expected 1 attempt, got %d", len(attempts))
	}

	filtered, err := c.ListActivities(ctx, models.ActivityFilter{WorkflowID: "order-1003", Status: models.ActivityScheduled})
	if err != nil {
		t.Fatalf("ListActivities failed: %v", err)
	}
	if len(filtered) != 2 {
		t.Errorf("Expected 2 scheduled activities, got %d", len(filtered))
	}

	queues, err := c.ListTaskQueues(ctx)
	if err != nil {
		t.Fatalf("ListTaskQueues failed: %v", err)
	}
	if len(queues) != 4 {
		t.Errorf("Expected 4 queues, got %d", len(queues))
	}

	workers, err := c.ListWorkers(ctx)
	if err != nil {
		t.Fatalf("ListWorkers failed: %v", err)
	}
	if len(workers) != 4 {
		t.Errorf("Expected 4 workers, got %d", len(workers))
	}

	ov, err := c.Overview(ctx)
	if err != nil {
		t.Fatalf("Overview failed: %v", err)
	}
	if ov.Workflows[models.WorkflowRunning] != 3 {
		t.Errorf("Expected 3 running workflows, got %d", ov.Workflows[models.WorkflowRunning])
	}
}

func TestClient_Errors(t *testing.T) {
	ts, _ := newTestAPI(t)
	c := New(ts.URL)
	ctx := context.Background()

	_, err := c.GetWorkflow(ctx, "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}

	_, err = c.SimulatorStats(ctx)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound without simulator, got %v", err)
	}

	_, err = c.ListWorkflows(ctx, models.WorkflowFilter{Status: "sleeping"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", apiErr.Status)
	}
	if apiErr.Code != controlplane.ErrCodeInvalidRequest {
		t.Errorf("Expected code %s, got %s", controlplane.ErrCodeInvalidRequest, apiErr.Code)
	}
}

func TestClient_PlainTextError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "upstream exploded", http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := New(ts.URL).Overview(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("Expected *APIError, got %v", err)
	}
	if apiErr.Message != "upstream exploded" {
		t.Errorf("Expected body as message, got %q", apiErr.Message)
	}
}

func TestClient_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := New(url, WithHTTPClient(&http.Client{Timeout: time.Second}))
	if _, err := c.Overview(context.Background()); err == nil {
		t.Error("Expected error for unreachable API")
	}
}

func TestClient_TimelineCache(t *testing.T) {
	var hits int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":"a","name":"A","startTime":0,"endTime":0,"status":"pending"}]`))
	}))
	defer ts.Close()

	c := New(ts.URL, WithCacheTTL(time.Minute))
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		events, err := c.WorkflowTimeline(ctx, "wf")
		if err != nil {
			t.Fatalf("WorkflowTimeline failed: %v", err)
		}
		if len(events) != 1 || events[0].Status != models.EventPending {
			t.Errorf("Unexpected events %+v", events)
		}
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Errorf("Expected 1 request, got %d", got)
	}

	c.InvalidateCache()
	if _, err := c.WorkflowTimeline(ctx, "wf"); err != nil {
		t.Fatalf("WorkflowTimeline failed: %v", err)
	}
	if _, err := c.ActivityTimeline(ctx, "wf"); err != nil {
		t.Fatalf("ActivityTimeline failed: %v", err)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Errorf("Expected 3 requests after invalidation, got %d", got)
	}
}

func TestClient_TimelineSVG(t *testing.T) {
	ts, _ := newTestAPI(t)
	c := New(ts.URL)

	svg, err := c.WorkflowTimelineSVG(context.Background(), "order-1001", "s", 50)
	if err != nil {
		t.Fatalf("WorkflowTimelineSVG failed: %v", err)
	}
	if !strings.HasPrefix(string(svg), "<svg") {
		t.Errorf("Expected SVG document, got %.40q", svg)
	}
}

func TestClient_StreamOverview(t *testing.T) {
	ts, srv := newTestAPI(t)
	srv.SetStreamInterval(20 * time.Millisecond)
	c := New(ts.URL)

	if want := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/overview"; c.StreamURL() != want {
		t.Errorf("Expected %s, got %s", want, c.StreamURL())
	}

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := c.StreamOverview(ctx)
	if err != nil {
		t.Fatalf("StreamOverview failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case ov, ok := <-ch:
			if !ok {
				t.Fatal("Stream closed early")
			}
			if ov.WorkersTotal != 4 {
				t.Errorf("Expected 4 workers, got %d", ov.WorkersTotal)
			}
		case <-time.After(2 * time.Second):
			t.Fatal("Timed out waiting for snapshot")
		}
	}

	cancel()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("Expected stream to close after cancel")
		}
	}
}

func TestStreamURL_HTTPS(t *testing.T) {
	c := New("https://console.example/")
	if got := c.StreamURL(); got != "wss://console.example/ws/overview" {
		t.Errorf("Unexpected stream URL %s", got)
	}
}

func TestClient_StreamOverviewServerDrop(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn.WriteJSON(models.Overview{WorkersTotal: 3})
		conn.Close()
	}))
	defer ts.Close()

	baseline := runtime.NumGoroutine()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := New(ts.URL).StreamOverview(ctx)
	if err != nil {
		t.Fatalf("StreamOverview failed: %v", err)
	}

	deadline := time.After(2 * time.Second)
	got := 0
	for open := true; open; {
		select {
		case ov, ok := <-ch:
			if !ok {
				open = false
				break
			}
			got++
			if ov.WorkersTotal != 3 {
				t.Errorf("Expected 3 workers, got %d", ov.WorkersTotal)
			}
		case <-deadline:
			t.Fatal("Expected stream to close when the server drops the connection")
		}
	}
	if got != 1 {
		t.Errorf("Expected 1 snapshot, got %d", got)
	}

	// The context is still live; no goroutine may be left waiting on it.
	for i := 0; i < 100 && runtime.NumGoroutine() > baseline; i++ {
		time.Sleep(10 * time.Millisecond)
	}
	if n := runtime.NumGoroutine(); n > baseline {
		t.Errorf("Expected stream goroutines to exit, %d running vs %d before", n, baseline)
	}
}
