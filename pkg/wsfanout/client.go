package wsfanout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/coder/websocket"

	"mercator-hq/ccrelay/pkg/router"
)

// ErrNotConnected is returned by Client.SwitchProvider when no connection
// to the leader is currently established.
var ErrNotConnected = errors.New("wsfanout: not connected")

// Client is used both by follower processes connecting to the leader, and
// by the leader itself connecting back to its own Hub (the loopback client
// from spec.md §4.J). router.SwitchProvider is invoked exclusively from
// this Client's provider_changed handler, never directly by callers --
// switchProvider() always goes out over the wire and waits for the ack.
type Client struct {
	url    string
	router *router.Router
	logger *slog.Logger

	mu      sync.Mutex
	conn    *websocket.Conn
	pending map[string]chan Envelope
}

// NewClient builds a Client that will connect to url and keep r's router in
// sync with provider_changed broadcasts.
func NewClient(url string, r *router.Router, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		url:     url,
		router:  r,
		logger:  logger.With("component", "wsfanout.client"),
		pending: make(map[string]chan Envelope),
	}
}

// Run connects and reconnects until ctx is cancelled, applying
// spec.md §4.I's backoff schedule (initial 5s, factor 1.5, cap 30s) on
// every disconnect.
func (c *Client) Run(ctx context.Context) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 5 * time.Second
	bo.Multiplier = 1.5
	bo.MaxInterval = 30 * time.Second
	bo.MaxElapsedTime = 0
	bo.RandomizationFactor = 0.1

	for {
		if ctx.Err() != nil {
			return
		}
		if err := c.connectAndRead(ctx); err != nil && ctx.Err() == nil {
			c.logger.Warn("fan-out connection lost, reconnecting", "error", err)
		}
		if ctx.Err() != nil {
			return
		}

		wait := bo.NextBackOff()
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.Dial(ctx, c.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close(websocket.StatusNormalClosure, "")

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			c.logger.Warn("invalid fan-out message", "error", err)
			continue
		}

		switch env.Type {
		case MsgProviderChanged:
			if err := c.router.SwitchProvider(env.ProviderID); err != nil {
				c.logger.Warn("apply provider_changed failed", "provider_id", env.ProviderID, "error", err)
			}
		case MsgSwitchProviderAck:
			c.resolve(env)
		case MsgServerStopping:
			return fmt.Errorf("leader reported server_stopping")
		}
	}
}

// connSnapshot reports the current connection, or nil if disconnected.
// Used by tests that need to wait for a connection to establish.
func (c *Client) connSnapshot() *websocket.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn
}

func (c *Client) resolve(env Envelope) {
	c.mu.Lock()
	ch, ok := c.pending[env.RequestID]
	if ok {
		delete(c.pending, env.RequestID)
	}
	c.mu.Unlock()
	if ok {
		select {
		case ch <- env:
		default:
		}
	}
}

// SwitchProvider sends a switch_provider RPC to the leader and blocks for
// its ack. This is the only entry point client code should call to change
// the active provider; the local router only updates once the matching
// provider_changed broadcast arrives.
func (c *Client) SwitchProvider(ctx context.Context, providerID string) error {
	c.mu.Lock()
	conn := c.conn
	if conn == nil {
		c.mu.Unlock()
		return ErrNotConnected
	}
	reqID := NewRequestID()
	ch := make(chan Envelope, 1)
	c.pending[reqID] = ch
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, reqID)
		c.mu.Unlock()
	}()

	data, err := Envelope{Type: MsgSwitchProvider, RequestID: reqID, ProviderID: providerID}.encode()
	if err != nil {
		return err
	}
	if err := conn.Write(ctx, websocket.MessageText, data); err != nil {
		return err
	}

	select {
	case env := <-ch:
		if !env.Success {
			return fmt.Errorf("switch provider: %s", env.Error)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
