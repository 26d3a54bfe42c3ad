package reconcile

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/hearthware/stovetop/pkg/log"
	"github.com/hearthware/stovetop/pkg/metrics"
	"github.com/hearthware/stovetop/pkg/types"
)

// Reconciler receives server-reported timer progress. Implemented by
// the engine's ApplyServerTimers.
type Reconciler interface {
	ApplyServerTimers(updates []types.ServerTimer)
}

// wsConn abstracts the duplex socket so the reconnect loop is testable
// without a network.
type wsConn interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

type dialFunc func(ctx context.Context, url string) (wsConn, error)

// Config holds reconciliation client configuration. Zero values take
// the listed defaults.
type Config struct {
	BaseURL      string // remote authority, e.g. "http://timers.example.com"
	UserID       string // anonymous user id; generated when empty
	CreationID   string // session key sent with commands
	PingInterval time.Duration // default 30s
	BackoffBase  time.Duration // default 1s
	BackoffMax   time.Duration // default 30s
	MaxAttempts  int           // default 5
}

// Client maintains one duplex socket to the remote authority and
// mirrors lifecycle commands over point-to-point HTTP. Loss of the
// server is never fatal: after MaxAttempts failed reconnects the
// client goes permanently local-only and every command becomes a
// logged no-op on the network side.
type Client struct {
	cfg    Config
	target Reconciler

	dial  dialFunc
	httpc *http.Client

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}

	logger zerolog.Logger
}

// NewClient creates a reconciliation client. Call Start to open the
// socket; commands work (and fail softly) regardless.
func NewClient(cfg Config, target Reconciler) *Client {
	if cfg.UserID == "" {
		cfg.UserID = uuid.New().String()
	}
	if cfg.PingInterval <= 0 {
		cfg.PingInterval = 30 * time.Second
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 30 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}

	return &Client{
		cfg:    cfg,
		target: target,
		dial:   dialWebsocket,
		httpc:  &http.Client{Timeout: 10 * time.Second},
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
		logger: log.WithComponent("reconcile"),
	}
}

func dialWebsocket(ctx context.Context, url string) (wsConn, error) {
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return nil, err
	}
	return &codeWS{conn: conn}, nil
}

type codeWS struct {
	conn *websocket.Conn
}

func (w *codeWS) Read(ctx context.Context) ([]byte, error) {
	_, data, err := w.conn.Read(ctx)
	return data, err
}

func (w *codeWS) Write(ctx context.Context, data []byte) error {
	return w.conn.Write(ctx, websocket.MessageText, data)
}

func (w *codeWS) Close() error {
	return w.conn.Close(websocket.StatusNormalClosure, "")
}

func (c *Client) wsURL() string {
	base := c.cfg.BaseURL
	base = strings.Replace(base, "https://", "wss://", 1)
	base = strings.Replace(base, "http://", "ws://", 1)
	return base + "/v1/timers/ws?userId=" + c.cfg.UserID
}

// Start opens the socket loop in the background.
func (c *Client) Start() {
	go c.run()
}

// Stop closes the client and waits for the loop to exit.
func (c *Client) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	<-c.doneCh
}

// run is the connection lifecycle loop: dial, serve until the socket
// drops, back off exponentially, and give up for good after
// MaxAttempts consecutive failures.
func (c *Client) run() {
	defer close(c.doneCh)

	attempt := 0
	for {
		select {
		case <-c.stopCh:
			return
		default:
		}

		conn, err := c.dial(context.Background(), c.wsURL())
		if err == nil {
			attempt = 0
			metrics.SocketConnected.Set(1)
			c.serve(conn)
			metrics.SocketConnected.Set(0)

			select {
			case <-c.stopCh:
				return
			default:
			}
		} else {
			c.logger.Warn().Err(err).Msg("socket dial failed")
		}

		attempt++
		metrics.ReconnectAttemptsTotal.Inc()
		if attempt > c.cfg.MaxAttempts {
			c.logger.Warn().
				Int("attempts", attempt-1).
				Msg("reconnect attempts exhausted, continuing local-only")
			return
		}

		delay := backoffDelay(c.cfg.BackoffBase, c.cfg.BackoffMax, attempt-1)
		c.logger.Debug().Dur("delay", delay).Int("attempt", attempt).Msg("scheduling reconnect")
		select {
		case <-time.After(delay):
		case <-c.stopCh:
			return
		}
	}
}

// serve pumps one open socket: a keepalive ping ticker plus the
// inbound frame loop. Returns when the socket drops or Stop is called.
func (c *Client) serve(conn wsConn) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer conn.Close()

	go func() {
		select {
		case <-c.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	go func() {
		ticker := time.NewTicker(c.cfg.PingInterval)
		defer ticker.Stop()
		ping, _ := json.Marshal(types.ClientFrame{Type: types.FramePing})
		for {
			select {
			case <-ticker.C:
				if err := conn.Write(ctx, ping); err != nil {
					cancel()
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		data, err := conn.Read(ctx)
		if err != nil {
			c.logger.Debug().Err(err).Msg("socket closed")
			return
		}

		var frame types.ServerFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			c.logger.Warn().Err(err).Msg("dropping malformed frame")
			continue
		}

		switch frame.Type {
		case types.FrameInit, types.FrameUpdate:
			if c.target != nil {
				c.target.ApplyServerTimers(frame.Timers)
			}
		case types.FramePong:
			// keepalive acknowledged
		case types.FrameError:
			c.logger.Warn().Str("message", frame.Message).Msg("server error frame")
		default:
			c.logger.Debug().Str("type", string(frame.Type)).Msg("dropping unknown frame type")
		}
	}
}
