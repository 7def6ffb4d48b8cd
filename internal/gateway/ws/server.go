// Package ws implements the WebSocket endpoint for live dashboard updates.
// Admin consoles connect with their session token and receive aggregate
// stats for their tenant on an interval instead of polling the REST API.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"

	"github.com/rewardhub/rewardhub/internal/auth"
	"github.com/rewardhub/rewardhub/internal/dashboard"
	"github.com/rewardhub/rewardhub/internal/tenant"
)

const defaultInterval = 5 * time.Second

// Server streams dashboard stats over WebSocket connections.
type Server struct {
	auth     *auth.Service
	dash     *dashboard.Service
	interval time.Duration
	logger   *slog.Logger
}

// NewServer creates the dashboard stream server. interval <= 0 uses the
// 5 second default.
func NewServer(authSvc *auth.Service, dash *dashboard.Service, interval time.Duration, logger *slog.Logger) *Server {
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Server{
		auth:     authSvc,
		dash:     dash,
		interval: interval,
		logger:   logger,
	}
}

// Handler returns an http.Handler that upgrades connections to WebSocket.
func (s *Server) Handler() http.Handler {
	return http.HandlerFunc(s.handleUpgrade)
}

func (s *Server) handleUpgrade(w http.ResponseWriter, r *http.Request) {
	// Browsers cannot set headers on WebSocket upgrades, so the session
	// token may also arrive as a query parameter.
	token := r.URL.Query().Get("token")
	if token == "" {
		header := r.Header.Get("Authorization")
		if strings.HasPrefix(header, "Bearer ") {
			token = strings.TrimPrefix(header, "Bearer ")
		}
	}
	if token == "" {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	tc, _, err := s.auth.Authenticate(r.Context(), token)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols: []string{"rewardhub-dashboard-v1"},
	})
	if err != nil {
		s.logger.Error("websocket accept failed", slog.String("error", err.Error()))
		return
	}

	s.streamStats(tenant.WithContext(r.Context(), tc), conn, tc)
}

func (s *Server) streamStats(ctx context.Context, conn *websocket.Conn, tc *tenant.Context) {
	defer conn.Close(websocket.StatusNormalClosure, "connection closed")

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Drain incoming frames so pings are answered and a client close
	// ends the stream promptly.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	// First snapshot immediately, then on the interval.
	if err := s.writeStats(ctx, conn); err != nil {
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.writeStats(ctx, conn); err != nil {
				if websocket.CloseStatus(err) == websocket.StatusNormalClosure ||
					errors.Is(err, context.Canceled) {
					return
				}
				s.logger.Debug("dashboard stream write failed",
					slog.String("user", tc.UserID),
					slog.String("error", err.Error()),
				)
				return
			}
		}
	}
}

func (s *Server) writeStats(ctx context.Context, conn *websocket.Conn) error {
	stats, err := s.dash.Stats(ctx)
	if err != nil {
		return err
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}
