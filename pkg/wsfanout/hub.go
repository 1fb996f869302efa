package wsfanout

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/google/uuid"

	"mercator-hq/ccrelay/pkg/router"
)

// Hub is the leader-side WebSocket endpoint. It broadcasts provider_changed
// to every connected client whenever router fires a change, and answers
// switch_provider RPCs by mutating router directly and replying with an
// ack on the requester's own connection.
type Hub struct {
	router *router.Router
	logger *slog.Logger

	mu      sync.Mutex
	clients map[*hubClient]struct{}
}

type hubClient struct {
	conn *websocket.Conn
	mu   sync.Mutex // serializes writes; coder/websocket conns are not write-concurrent-safe
}

// NewHub builds a Hub wired to r. It subscribes to r's change notifications
// so every SwitchProvider call -- whether it originated from this Hub's own
// switch_provider handler or elsewhere in-process -- reaches every client.
func NewHub(r *router.Router, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	h := &Hub{router: r, logger: logger.With("component", "wsfanout.hub"), clients: make(map[*hubClient]struct{})}
	r.OnChange(h.broadcastProviderChanged)
	return h
}

func (h *Hub) broadcastProviderChanged(providerID, providerName string) {
	h.broadcast(Envelope{Type: MsgProviderChanged, ProviderID: providerID, ProviderName: providerName})
}

func (h *Hub) broadcast(env Envelope) {
	data, err := env.encode()
	if err != nil {
		h.logger.Error("encode broadcast envelope failed", "error", err)
		return
	}

	h.mu.Lock()
	clients := make([]*hubClient, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.write(data)
	}
}

func (c *hubClient) write(data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.Write(context.Background(), websocket.MessageText, data)
}

// ServeHTTP upgrades the connection and runs its read loop until it closes.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket accept failed", "error", err)
		return
	}
	client := &hubClient{conn: conn}

	h.mu.Lock()
	h.clients[client] = struct{}{}
	h.mu.Unlock()

	defer func() {
		h.mu.Lock()
		delete(h.clients, client)
		h.mu.Unlock()
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	h.readLoop(r.Context(), client)
}

func (h *Hub) readLoop(ctx context.Context, client *hubClient) {
	for {
		_, data, err := client.conn.Read(ctx)
		if err != nil {
			return
		}

		var env Envelope
		if err := json.Unmarshal(data, &env); err != nil {
			h.logger.Warn("invalid fan-out message", "error", err)
			continue
		}

		if env.Type != MsgSwitchProvider {
			h.logger.Warn("unexpected message on fan-out socket", "type", env.Type)
			continue
		}

		h.handleSwitchRequest(client, env)
	}
}

func (h *Hub) handleSwitchRequest(client *hubClient, env Envelope) {
	ack := Envelope{Type: MsgSwitchProviderAck, RequestID: env.RequestID, ProviderID: env.ProviderID}

	if err := h.router.SwitchProvider(env.ProviderID); err != nil {
		ack.Success = false
		ack.Error = err.Error()
	} else {
		p := h.router.CurrentProvider()
		ack.Success = true
		if p != nil {
			ack.ProviderName = p.Name
		}
	}

	data, err := ack.encode()
	if err != nil {
		h.logger.Error("encode ack envelope failed", "error", err)
		return
	}
	client.write(data)
}

// Stop broadcasts server_stopping to every connected client. It does not
// close connections; the caller closes the underlying HTTP server.
func (h *Hub) Stop() {
	h.broadcast(Envelope{Type: MsgServerStopping})
}

// NewRequestID generates a correlation id for a switch_provider RPC.
func NewRequestID() string {
	return uuid.NewString()
}
