// ABOUTME: Websocket transport: one JSON envelope per text frame, one reply per request.
// ABOUTME: Server feeds an Exchanger; the client is used by adapters and tests.

package transport

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/2389/pacman-gateway/internal/message"
)

const wsWriteTimeout = 10 * time.Second

// WebSocketServer upgrades HTTP requests and relays envelopes to an Exchanger.
type WebSocketServer struct {
	exchanger Exchanger
	upgrader  websocket.Upgrader
	logger    *slog.Logger
}

// NewWebSocketServer creates a websocket handler backed by ex.
func NewWebSocketServer(ex Exchanger, logger *slog.Logger) *WebSocketServer {
	return &WebSocketServer{
		exchanger: ex,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			// Adapters are local processes, not browsers.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// ServeHTTP handles one adapter connection until it closes.
func (s *WebSocketServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.logger.Info("adapter connected", "remote", r.RemoteAddr, "transport", "websocket")
	ctx := r.Context()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("websocket read ended", "remote", r.RemoteAddr, "error", err)
			}
			s.logger.Info("adapter disconnected", "remote", r.RemoteAddr, "transport", "websocket")
			return
		}

		var req message.Envelope
		if err := json.Unmarshal(data, &req); err != nil {
			reply := message.ErrorReply(0, message.CodeInvalidMessage, fmt.Errorf("%w: %v", message.ErrInvalidMessage, err))
			if err := s.write(conn, reply); err != nil {
				return
			}
			continue
		}

		reply, err := s.exchanger.Exchange(ctx, req)
		if err != nil {
			s.logger.Warn("exchange failed", "agent_id", req.AgentID, "error", err)
			msg := websocket.FormatCloseMessage(websocket.CloseGoingAway, "router unavailable")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
			return
		}

		if err := s.write(conn, reply); err != nil {
			return
		}
	}
}

func (s *WebSocketServer) write(conn *websocket.Conn, reply message.Envelope) error {
	_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	if err := conn.WriteJSON(reply); err != nil {
		s.logger.Warn("failed to write websocket reply", "agent_id", reply.AgentID, "error", err)
		return err
	}
	return nil
}

// WebSocketClient is an adapter-side connection. Exchanges are serialized.
type WebSocketClient struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

// DialWebSocket connects to a gateway websocket endpoint such as
// ws://localhost:5555/ws.
func DialWebSocket(ctx context.Context, url string) (*WebSocketClient, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing %s: %w", url, err)
	}
	return &WebSocketClient{conn: conn}, nil
}

// Exchange sends req and waits for its reply.
func (c *WebSocketClient) Exchange(ctx context.Context, req message.Envelope) (message.Envelope, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Zero deadline when ctx has none.
	deadline, _ := ctx.Deadline()
	_ = c.conn.SetWriteDeadline(deadline)
	_ = c.conn.SetReadDeadline(deadline)

	if err := c.conn.WriteJSON(req); err != nil {
		return message.Envelope{}, fmt.Errorf("sending %s: %w", req.Type, err)
	}

	var reply message.Envelope
	if err := c.conn.ReadJSON(&reply); err != nil {
		if websocket.IsCloseError(err, websocket.CloseGoingAway) {
			return message.Envelope{}, errors.Join(ErrClosed, err)
		}
		return message.Envelope{}, fmt.Errorf("reading reply to %s: %w", req.Type, err)
	}
	return reply, nil
}

// Close sends a close frame and closes the connection.
func (c *WebSocketClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.conn.Close()
}
