// Package client is the REST and websocket client for the control plane API.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/subnetlabs/console/internal/models"
)

// DefaultClientTimeout is the default HTTP client timeout.
const DefaultClientTimeout = 10 * time.Second

const apiPrefix = "/api/v1"

// Health is the control plane health report.
type Health struct {
	OK      bool   `json:"ok"`
	DB      string `json:"db"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

// SimulatorStats mirrors the counters reported by the control plane simulator.
type SimulatorStats struct {
	Ticks    int `json:"ticks"`
	Started  int `json:"started"`
	Finished int `json:"finished"`
	Retried  int `json:"retried"`
	Closed   int `json:"closed"`
	Spawned  int `json:"spawned"`
	Errors   int `json:"errors"`
}

// Client talks to the control plane API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timelines  *Cache[[]models.TimelineEvent]
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithCacheTTL sets how long timeline responses are reused.
func WithCacheTTL(ttl time.Duration) Option {
	return func(c *Client) {
		c.timelines = NewCache[[]models.TimelineEvent](ttl)
	}
}

// New creates a new API client.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: DefaultClientTimeout,
		},
		timelines: NewCache[[]models.TimelineEvent](DefaultCacheTTL),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Health checks control plane health.
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.get(ctx, "/health", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Overview fetches the dashboard summary.
func (c *Client) Overview(ctx context.Context) (*models.Overview, error) {
	var ov models.Overview
	if err := c.get(ctx, apiPrefix+"/overview", nil, &ov); err != nil {
		return nil, err
	}
	return &ov, nil
}

// ListWorkflows lists workflows matching the filter.
func (c *Client) ListWorkflows(ctx context.Context, f models.WorkflowFilter) ([]models.Workflow, error) {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.Query != "" {
		q.Set("q", f.Query)
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	var workflows []models.Workflow
	if err := c.get(ctx, apiPrefix+"/workflows", q, &workflows); err != nil {
		return nil, err
	}
	return workflows, nil
}

// GetWorkflow fetches one workflow.
func (c *Client) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	var wf models.Workflow
	if err := c.get(ctx, workflowPath(id, ""), nil, &wf); err != nil {
		return nil, err
	}
	return &wf, nil
}

// WorkflowActivities lists a workflow's activities in execution order.
func (c *Client) WorkflowActivities(ctx context.Context, id string) ([]models.Activity, error) {
	var activities []models.Activity
	if err := c.get(ctx, workflowPath(id, "/activities"), nil, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// WorkflowTimeline fetches a workflow's timeline events, served from the
// cache while fresh.
func (c *Client) WorkflowTimeline(ctx context.Context, id string) ([]models.TimelineEvent, error) {
	return c.timelines.Get(ctx, "workflow:"+id, func(ctx context.Context) ([]models.TimelineEvent, error) {
		var events []models.TimelineEvent
		if err := c.get(ctx, workflowPath(id, "/timeline"), nil, &events); err != nil {
			return nil, err
		}
		return events, nil
	})
}

// WorkflowTimelineSVG downloads the rendered SVG for a workflow timeline.
func (c *Client) WorkflowTimelineSVG(ctx context.Context, id, unit string, zoom float64) ([]byte, error) {
	q := url.Values{}
	if unit != "" {
		q.Set("unit", unit)
	}
	if zoom > 0 {
		q.Set("zoom", strconv.FormatFloat(zoom, 'f', -1, 64))
	}
	resp, err := c.do(ctx, workflowPath(id, "/timeline.svg"), q)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// ListActivities lists activities matching the filter.
func (c *Client) ListActivities(ctx context.Context, f models.ActivityFilter) ([]models.Activity, error) {
	q := url.Values{}
	if f.Status != "" {
		q.Set("status", string(f.Status))
	}
	if f.WorkflowID != "" {
		q.Set("workflow_id", f.WorkflowID)
	}
	if f.Query != "" {
		q.Set("q", f.Query)
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	var activities []models.Activity
	if err := c.get(ctx, apiPrefix+"/activities", q, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

// GetActivity fetches one activity.
func (c *Client) GetActivity(ctx context.Context, id string) (*models.Activity, error) {
	var a models.Activity
	if err := c.get(ctx, activityPath(id, ""), nil, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ActivityAttempts lists an activity's attempts.
func (c *Client) ActivityAttempts(ctx context.Context, id string) ([]models.Attempt, error) {
	var attempts []models.Attempt
	if err := c.get(ctx, activityPath(id, "/attempts"), nil, &attempts); err != nil {
		return nil, err
	}
	return attempts, nil
}

// ActivityTimeline fetches an activity's attempt timeline, served from the
// cache while fresh.
func (c *Client) ActivityTimeline(ctx context.Context, id string) ([]models.TimelineEvent, error) {
	return c.timelines.Get(ctx, "activity:"+id, func(ctx context.Context) ([]models.TimelineEvent, error) {
		var events []models.TimelineEvent
		if err := c.get(ctx, activityPath(id, "/timeline"), nil, &events); err != nil {
			return nil, err
		}
		return events, nil
	})
}

// ListTaskQueues lists task queues with their backlog.
func (c *Client) ListTaskQueues(ctx context.Context) ([]models.TaskQueue, error) {
	var queues []models.TaskQueue
	if err := c.get(ctx, apiPrefix+"/task-queues", nil, &queues); err != nil {
		return nil, err
	}
	return queues, nil
}

// ListWorkers lists registered workers.
func (c *Client) ListWorkers(ctx context.Context) ([]models.Worker, error) {
	var workers []models.Worker
	if err := c.get(ctx, apiPrefix+"/workers", nil, &workers); err != nil {
		return nil, err
	}
	return workers, nil
}

// SimulatorStats fetches simulator counters. It returns ErrNotFound when the
// control plane runs without a simulator.
func (c *Client) SimulatorStats(ctx context.Context) (*SimulatorStats, error) {
	var stats SimulatorStats
	if err := c.get(ctx, apiPrefix+"/simulator", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// InvalidateCache drops every cached timeline.
func (c *Client) InvalidateCache() {
	c.timelines.Clear()
}

func workflowPath(id, suffix string) string {
	return apiPrefix + "/workflows/" + url.PathEscape(id) + suffix
}

func activityPath(id, suffix string) string {
	return apiPrefix + "/activities/" + url.PathEscape(id) + suffix
}

func (c *Client) get(ctx context.Context, path string, q url.Values, v any) error {
	resp, err := c.do(ctx, path, q)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// do issues a GET and returns the response on 2xx. Error responses are
// decoded into ErrNotFound or *APIError.
func (c *Client) do(ctx context.Context, path string, q url.Values) (*http.Response, error) {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	if resp.StatusCode < 400 {
		return resp, nil
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	apiErr := &APIError{Status: resp.StatusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, apiErr.Message)
	}
	return nil, apiErr
}
