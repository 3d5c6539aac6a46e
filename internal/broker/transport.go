package broker

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/phrazzld/cardfarm/internal/protocol"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxFrameSize   = 16 << 20
	sendBufferSize = 8
)

var (
	errConnClosed = errors.New("connection closed")
	errSendFull   = errors.New("send buffer full")
)

// Authenticator identifies the worker behind an upgrade request.
type Authenticator interface {
	AuthenticateRequest(r *http.Request) (string, error)
}

// Handler accepts worker WebSocket connections and feeds their frames to a
// Broker.
type Handler struct {
	broker   *Broker
	auth     Authenticator
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates the worker endpoint. auth may be nil, in which case the
// worker name is taken from the "name" query parameter.
func NewHandler(b *Broker, auth Authenticator, logger *slog.Logger) *Handler {
	return &Handler{
		broker: b,
		auth:   auth,
		logger: logger.With("component", "worker_handler"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// ServeHTTP upgrades the request and serves the connection until it closes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if h.auth != nil {
		authName, err := h.auth.AuthenticateRequest(r)
		if err != nil {
			h.logger.Warn("worker authentication failed",
				"remote_addr", r.RemoteAddr,
				"error", err)
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		name = authName
	}
	if name == "" {
		name = r.RemoteAddr
	}

	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error.
		h.logger.Warn("websocket upgrade failed", "remote_addr", r.RemoteAddr, "error", err)
		return
	}

	conn := newWSConn(ws)
	go conn.writeLoop(h.logger)

	ctx := r.Context()
	workerID, err := h.broker.RegisterWorker(ctx, name, conn)
	if err != nil {
		h.logger.Error("failed to register worker", "worker_name", name, "error", err)
		_ = conn.Close()
		return
	}

	logger := h.logger.With("worker_id", workerID, "worker_name", name)
	defer func() {
		_ = conn.Close()
		// The request context is gone once the handler returns.
		if err := h.broker.UnregisterWorker(context.Background(), workerID); err != nil && !errors.Is(err, ErrBrokerClosed) {
			logger.Error("failed to unregister worker", "error", err)
		}
	}()

	ws.SetReadLimit(maxFrameSize)
	_ = ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		msgType, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Warn("worker connection lost", "error", err)
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		if err := h.broker.HandleFrame(context.Background(), workerID, string(data)); err != nil {
			if protocol.IsProtocolError(err) {
				logger.Error("closing worker connection after protocol error", "error", err)
				conn.closeWith(websocket.ClosePolicyViolation, "protocol error")
				return
			}
			logger.Error("failed to handle worker frame", "error", err)
			return
		}
	}
}

// wsConn implements WorkerConn over a gorilla connection. Frames are written
// by a single goroutine; Send only enqueues.
type wsConn struct {
	ws        *websocket.Conn
	send      chan string
	done      chan struct{}
	closeOnce sync.Once
}

func newWSConn(ws *websocket.Conn) *wsConn {
	return &wsConn{
		ws:   ws,
		send: make(chan string, sendBufferSize),
		done: make(chan struct{}),
	}
}

func (c *wsConn) Send(frame string) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return errConnClosed
	default:
		return errSendFull
	}
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.ws.Close()
	})
	return err
}

func (c *wsConn) closeWith(code int, reason string) {
	_ = c.ws.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(code, reason),
		time.Now().Add(writeWait))
	_ = c.Close()
}

func (c *wsConn) writeLoop(logger *slog.Logger) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, []byte(frame)); err != nil {
				logger.Warn("failed to write frame to worker", "error", err)
				_ = c.Close()
				return
			}
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				_ = c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}
