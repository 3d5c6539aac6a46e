package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"github.com/phrazzld/cardfarm/internal/protocol"
)

const writeWait = 10 * time.Second

// ClientConfig holds connection settings for a worker.
type ClientConfig struct {
	// BrokerURL is the broker's WebSocket endpoint.
	BrokerURL string

	// Name identifies this worker in broker logs.
	Name string

	// ReconnectDelay is the fixed wait between connection attempts.
	ReconnectDelay time.Duration

	// Header, if set, supplies headers for each dial (e.g. a fresh token).
	Header func() (http.Header, error)
}

// Client keeps a worker connected to the broker and feeds dispatched jobs to
// a Runtime.
type Client struct {
	config  ClientConfig
	runtime *Runtime
	logger  *slog.Logger
	dialer  *websocket.Dialer
}

// NewClient creates a Client.
func NewClient(config ClientConfig, runtime *Runtime, logger *slog.Logger) *Client {
	if config.ReconnectDelay <= 0 {
		config.ReconnectDelay = 5 * time.Second
	}
	return &Client{
		config:  config,
		runtime: runtime,
		logger:  logger.With("component", "worker_client", "worker_name", config.Name),
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
	}
}

// Run connects and serves until ctx is cancelled, reconnecting after a fixed
// delay whenever the connection drops or cannot be established.
func (c *Client) Run(ctx context.Context) error {
	for {
		err := c.connectAndServe(ctx)
		if ctx.Err() != nil {
			c.logger.Info("worker client stopped")
			return nil
		}
		c.logger.Warn("broker connection ended, reconnecting",
			"error", err,
			"delay", c.config.ReconnectDelay)

		select {
		case <-ctx.Done():
			c.logger.Info("worker client stopped")
			return nil
		case <-time.After(c.config.ReconnectDelay):
		}
	}
}

func (c *Client) connectAndServe(ctx context.Context) error {
	target, err := c.dialURL()
	if err != nil {
		return err
	}

	var header http.Header
	if c.config.Header != nil {
		if header, err = c.config.Header(); err != nil {
			return fmt.Errorf("failed to build dial headers: %w", err)
		}
	}

	ws, resp, err := c.dialer.DialContext(ctx, target, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %w (status %d)", c.config.BrokerURL, err, resp.StatusCode)
		}
		return fmt.Errorf("dial %s: %w", c.config.BrokerURL, err)
	}
	defer ws.Close()

	c.logger.Info("connected to broker", "url", c.config.BrokerURL)
	return c.serve(ctx, ws)
}

func (c *Client) dialURL() (string, error) {
	u, err := url.Parse(c.config.BrokerURL)
	if err != nil {
		return "", fmt.Errorf("invalid broker url: %w", err)
	}
	q := u.Query()
	q.Set("name", c.config.Name)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// serve reads frames on one goroutine and executes them sequentially on
// this one. Reading continues while a job runs so pings are answered.
func (c *Client) serve(ctx context.Context, ws *websocket.Conn) error {
	frames := make(chan string, 4)
	readErr := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		defer close(frames)
		for {
			msgType, data, err := ws.ReadMessage()
			if err != nil {
				readErr <- err
				return
			}
			if msgType != websocket.TextMessage {
				continue
			}
			select {
			case frames <- string(data):
			case <-done:
				return
			}
		}
	}()

	stop := context.AfterFunc(ctx, func() {
		_ = ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "worker shutting down"),
			time.Now().Add(writeWait))
		_ = ws.Close()
	})
	defer stop()

	for frame := range frames {
		reply, ok, err := c.runtime.HandleFrame(ctx, frame)
		if err != nil {
			if protocol.IsProtocolError(err) {
				c.logger.Error("closing connection after protocol error", "error", err)
				return err
			}
			return fmt.Errorf("handle frame: %w", err)
		}
		if !ok {
			continue
		}

		_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteMessage(websocket.TextMessage, []byte(reply)); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	err := <-readErr
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return errors.New("broker closed the connection")
	}
	return err
}
