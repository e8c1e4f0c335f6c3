package controlplane

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/subnetlabs/console/internal/models"
)

const overviewWriteTimeout = 5 * time.Second

var overviewUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		host := strings.ToLower(strings.TrimSpace(r.Host))
		originHost := strings.ToLower(strings.TrimSpace(u.Host))
		return host == originHost
	},
}

func (s *Server) handleOverviewWS(w http.ResponseWriter, r *http.Request) {
	conn, err := overviewUpgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Debug("overview upgrade failed")
		return
	}
	s.serveOverviewConnection(r, conn)
}

// serveOverviewConnection pushes a snapshot on connect and then every
// streamInterval until the peer goes away.
func (s *Server) serveOverviewConnection(r *http.Request, conn *websocket.Conn) {
	defer conn.Close()

	ctx := r.Context()
	push := func() error {
		ov, err := s.service.Overview(ctx)
		if err != nil {
			s.log.WithError(err).Warn("overview snapshot failed")
			return nil
		}
		return writeOverviewPayload(conn, ov)
	}

	if err := push(); err != nil {
		return
	}

	ticker := time.NewTicker(s.streamInterval)
	defer ticker.Stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-ticker.C:
			if err := push(); err != nil {
				return
			}
		case <-done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func writeOverviewPayload(conn *websocket.Conn, payload *models.Overview) error {
	_ = conn.SetWriteDeadline(time.Now().Add(overviewWriteTimeout))
	return conn.WriteJSON(payload)
}
