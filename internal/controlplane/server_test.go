package controlplane

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/subnetlabs/console/internal/models"
	"github.com/subnetlabs/console/internal/store"
	"github.com/subnetlabs/console/internal/timeline"
	"github.com/subnetlabs/console/pkg/logger"
)

var testNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if _, err := st.Seed(context.Background(), testNow); err != nil {
		t.Fatalf("Seed failed: %v", err)
	}

	service := NewService(st, timeline.DefaultConfig())
	service.now = func() time.Time { return testNow }
	return NewServer(service, st, "127.0.0.1:0", nil), st
}

func doGet(t *testing.T, s *Server, path string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w.Result()
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

func TestHealthEndpoint_OK(t *testing.T) {
	s, _ := newTestServer(t)

	resp := doGet(t, s, "/health")
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	var health HealthResponse
	decode(t, resp, &health)
	if !health.OK {
		t.Error("Expected health.OK to be true")
	}
	if health.DB != "ok" {
		t.Errorf("Expected DB status 'ok', got '%s'", health.DB)
	}
	if health.Version == "" {
		t.Error("Expected version to be set")
	}
}

func TestHealthEndpoint_DBError(t *testing.T) {
	s, st := newTestServer(t)

	// Close the store to simulate DB error
	st.Close()

	resp := doGet(t, s, "/health")
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("Expected status 503, got %d", resp.StatusCode)
	}
	var health HealthResponse
	decode(t, resp, &health)
	if health.OK {
		t.Error("Expected health.OK to be false when DB is down")
	}
}

func TestListWorkflows(t *testing.T) {
	s, _ := newTestServer(t)

	resp := doGet(t, s, "/api/v1/workflows?status=running&limit=10")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	var workflows []models.Workflow
	decode(t, resp, &workflows)
	if len(workflows) != 3 {
		t.Errorf("Expected 3 running workflows, got %d", len(workflows))
	}
	for _, wf := range workflows {
		if wf.Status != models.WorkflowRunning {
			t.Errorf("Unexpected status %s", wf.Status)
		}
	}
}

func TestBadQueryParams(t *testing.T) {
	s, _ := newTestServer(t)

	for _, path := range []string{
		"/api/v1/workflows?status=sleeping",
		"/api/v1/activities?limit=-1",
		"/api/v1/workflows/order-1001/timeline.svg?unit=days",
		"/api/v1/workflows/order-1001/timeline.svg?zoom=abc",
	} {
		resp := doGet(t, s, path)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("%s: expected 400, got %d", path, resp.StatusCode)
		}
		var apiErr APIError
		decode(t, resp, &apiErr)
		if apiErr.Code != ErrCodeInvalidRequest {
			t.Errorf("%s: expected code %s, got %s", path, ErrCodeInvalidRequest, apiErr.Code)
		}
	}
}

func TestNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	for _, path := range []string{
		"/api/v1/workflows/missing",
		"/api/v1/workflows/missing/timeline",
		"/api/v1/activities/missing/timeline",
		"/api/v1/nothing-here",
	} {
		resp := doGet(t, s, path)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s: expected 404, got %d", path, resp.StatusCode)
		}
		var apiErr APIError
		decode(t, resp, &apiErr)
		if apiErr.Code != ErrCodeNotFound {
			t.Errorf("%s: expected code %s, got %s", path, ErrCodeNotFound, apiErr.Code)
		}
	}
}

func TestWorkflowTimeline(t *testing.T) {
	s, _ := newTestServer(t)

	resp := doGet(t, s, "/api/v1/workflows/order-1003/timeline")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	var events []models.TimelineEvent
	decode(t, resp, &events)

	want := []models.EventStatus{
		models.EventSuccess, models.EventSuccess, models.EventRunning, models.EventPending, models.EventPending,
	}
	if len(events) != len(want) {
		t.Fatalf("Expected %d events, got %d", len(want), len(events))
	}
	for i, st := range want {
		if events[i].Status != st {
			t.Errorf("Event %d: expected %s, got %s", i, st, events[i].Status)
		}
	}
	if events[2].EndTime != 0 {
		t.Errorf("Running event should have no end, got %d", events[2].EndTime)
	}
	if events[3].StartTime != 0 || events[3].EndTime != 0 {
		t.Errorf("Pending event should carry no times, got %+v", events[3])
	}
	if events[1].StartTime-events[0].EndTime != 10 {
		t.Errorf("Expected 10ms gap, got %d", events[1].StartTime-events[0].EndTime)
	}
}

func TestActivityTimeline(t *testing.T) {
	s, st := newTestServer(t)

	acts, err := st.ListWorkflowActivities(context.Background(), "order-1002")
	if err != nil {
		t.Fatalf("ListWorkflowActivities failed: %v", err)
	}

	resp := doGet(t, s, "/api/v1/activities/"+acts[1].ID+"/timeline")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	var events []models.TimelineEvent
	decode(t, resp, &events)
	if len(events) != 3 {
		t.Fatalf("Expected 3 attempts, got %d", len(events))
	}
	for _, ev := range events {
		if ev.Status != models.EventError {
			t.Errorf("Expected every attempt to fail, got %s", ev.Status)
		}
	}
	if !strings.HasPrefix(events[0].Name, "Attempt 1") {
		t.Errorf("Unexpected attempt name %q", events[0].Name)
	}
}

func TestWorkflowTimelineSVG(t *testing.T) {
	s, _ := newTestServer(t)

	resp := doGet(t, s, "/api/v1/workflows/order-1003/timeline.svg?unit=s&zoom=50")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Errorf("Expected SVG content type, got %s", ct)
	}
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), `class="bar pending"`) {
		t.Error("Expected pending bars in SVG")
	}
	if !strings.Contains(string(body), "<title>order-1003</title>") {
		t.Error("Expected workflow id as title")
	}
}

func TestQueuesWorkersAndSimulator(t *testing.T) {
	s, _ := newTestServer(t)

	var queues []models.TaskQueue
	decode(t, doGet(t, s, "/api/v1/task-queues"), &queues)
	if len(queues) != 4 {
		t.Errorf("Expected 4 queues, got %d", len(queues))
	}

	var workers []models.Worker
	decode(t, doGet(t, s, "/api/v1/workers"), &workers)
	if len(workers) != 4 {
		t.Errorf("Expected 4 workers, got %d", len(workers))
	}

	if resp := doGet(t, s, "/api/v1/simulator"); resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 without a simulator, got %d", resp.StatusCode)
	}
}

func TestOverviewStream(t *testing.T) {
	s, _ := newTestServer(t)
	s.SetStreamInterval(20 * time.Millisecond)

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/overview"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	defer conn.Close()

	for i := 0; i < 2; i++ {
		conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var ov models.Overview
		if err := conn.ReadJSON(&ov); err != nil {
			t.Fatalf("ReadJSON %d failed: %v", i, err)
		}
		if ov.Workflows[models.WorkflowRunning] != 3 {
			t.Errorf("Expected 3 running workflows, got %d", ov.Workflows[models.WorkflowRunning])
		}
	}
}

func TestOverviewStreamRejectsCrossOrigin(t *testing.T) {
	s, _ := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/overview"
	header := http.Header{"Origin": []string{"http://evil.example"}}
	_, resp, err := websocket.DefaultDialer.Dial(url, header)
	if err == nil {
		t.Fatal("Expected cross-origin dial to fail")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Errorf("Expected 403, got %v", resp)
	}
}

func TestActivityEvent(t *testing.T) {
	closed := testNow
	ev := ActivityEvent(models.Activity{ID: "a", Type: "Ship", Status: models.ActivityCanceled, ClosedAt: &closed})
	if ev.Status != models.EventError {
		t.Errorf("Expected canceled to map to error, got %s", ev.Status)
	}
	if ev.StartTime != closed.UnixMilli() || ev.EndTime != closed.UnixMilli() {
		t.Errorf("Expected never-started activity to collapse at close time, got %+v", ev)
	}

	ev = ActivityEvent(models.Activity{ID: "b", Type: "Charge", Status: models.ActivityScheduled, Attempt: 2})
	if ev.Status != models.EventPending || ev.StartTime != 0 {
		t.Errorf("Expected pending with no times, got %+v", ev)
	}
	if ev.Name != "Charge (attempt 2)" {
		t.Errorf("Unexpected name %q", ev.Name)
	}
}

func TestServiceErrorLogsRequestID(t *testing.T) {
	st, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Failed to create store: %v", err)
	}
	var buf bytes.Buffer
	log := logger.NewWithWriter(&buf, slog.LevelInfo, true)
	s := NewServer(NewService(st, timeline.DefaultConfig()), st, "127.0.0.1:0", log)

	// Close the store so the listing fails with an internal error
	st.Close()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/workflows", nil)
	req.Header.Set("X-Request-Id", "req-42")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("Expected status 500, got %d", w.Code)
	}
	if got := w.Header().Get("X-Request-Id"); got != "req-42" {
		t.Errorf("Expected X-Request-Id req-42, got %q", got)
	}

	var found bool
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		var rec map[string]any
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			t.Fatalf("Unmarshal failed: %v", err)
		}
		if rec["msg"] == "request failed" {
			found = true
			if rec["request_id"] != "req-42" {
				t.Errorf("Expected request_id req-42, got %v", rec["request_id"])
			}
		}
	}
	if !found {
		t.Errorf("Expected a request failed log line, got:\n%s", buf.String())
	}
}
