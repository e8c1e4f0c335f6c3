package client

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/subnetlabs/console/internal/models"
)

const streamHandshakeTimeout = 5 * time.Second

// StreamURL returns the websocket URL of the overview stream.
func (c *Client) StreamURL() string {
	base := c.baseURL
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return base + "/ws/overview"
}

// StreamOverview subscribes to live overview snapshots. The returned channel
// is closed when ctx is done or the connection drops.
func (c *Client) StreamOverview(ctx context.Context) (<-chan *models.Overview, error) {
	dialer := websocket.Dialer{HandshakeTimeout: streamHandshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, c.StreamURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open overview stream: %w", err)
	}

	out := make(chan *models.Overview, 1)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
		case <-done:
		}
		conn.Close()
	}()
	go func() {
		defer close(out)
		defer close(done)
		for {
			var ov models.Overview
			if err := conn.ReadJSON(&ov); err != nil {
				return
			}
			select {
			case out <- &ov:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
