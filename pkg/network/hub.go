// pkg/network/hub.go
package network

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/opd-ai/go-sail/pkg/config"
	"github.com/opd-ai/go-sail/pkg/dynamics"
	"github.com/opd-ai/go-sail/pkg/event"
	"github.com/opd-ai/go-sail/pkg/logging"
	"github.com/opd-ai/go-sail/pkg/validation"
)

const (
	// sendQueueSize bounds the per-client outbound queue; a client that
	// cannot drain it loses updates rather than stalling the broadcast.
	sendQueueSize = 64

	pingInterval = 30 * time.Second
)

// Hub accepts WebSocket connections and re-broadcasts each client's boat
// state to every other client. It keeps the last known state per client so
// a newly joined boat immediately sees the rest of the fleet.
type Hub struct {
	logger    *logging.Logger
	validator *validation.MessageValidator
	eventBus  *event.Bus
	upgrader  websocket.Upgrader

	maxClients   int
	writeTimeout time.Duration
	readTimeout  time.Duration

	mu      sync.RWMutex
	clients map[string]*hubClient
	nextID  atomic.Uint64

	listener net.Listener
	server   *http.Server
}

type hubClient struct {
	id       string
	conn     *websocket.Conn
	send     chan []byte
	boatData *dynamics.State
}

// NewHub creates a hub configured from the environment.
func NewHub(envConfig *config.EnvironmentConfig, bus *event.Bus) *Hub {
	if bus == nil {
		bus = event.NewEventBus()
	}
	return &Hub{
		logger:    logging.NewLogger(),
		validator: validation.NewMessageValidator(),
		eventBus:  bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// Browser clients connect from arbitrary origins, as the
			// original deployment allowed.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		maxClients:   envConfig.MaxClients,
		writeTimeout: envConfig.WriteTimeout,
		readTimeout:  envConfig.ReadTimeout,
		clients:      make(map[string]*hubClient),
	}
}

// Start begins accepting connections on the given address.
func (h *Hub) Start(address string) error {
	listener, err := net.Listen("tcp", address)
	if err != nil {
		return fmt.Errorf("failed to start hub: %w", err)
	}
	h.listener = listener
	h.server = &http.Server{Handler: h}

	go func() {
		if err := h.server.Serve(listener); err != nil && err != http.ErrServerClosed {
			h.logger.Error(context.Background(), "hub serve failed", err)
		}
	}()

	h.logger.Info(context.Background(), "hub started", "address", listener.Addr().String())
	return nil
}

// Addr returns the address the hub is listening on, or "" before Start.
func (h *Hub) Addr() string {
	if h.listener == nil {
		return ""
	}
	return h.listener.Addr().String()
}

// Stop closes all client connections and stops the listener.
func (h *Hub) Stop() {
	h.mu.Lock()
	for _, client := range h.clients {
		client.conn.Close()
	}
	h.mu.Unlock()

	if h.server != nil {
		h.server.Close()
	}
	h.validator.Close()

	h.logger.Info(context.Background(), "hub stopped")
}

// Snapshot returns the last known boat state of every connected client
// that has sent at least one update.
func (h *Hub) Snapshot() map[string]dynamics.State {
	h.mu.RLock()
	defer h.mu.RUnlock()

	states := make(map[string]dynamics.State, len(h.clients))
	for id, client := range h.clients {
		if client.boatData != nil {
			states[id] = *client.boatData
		}
	}
	return states
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades an incoming request and runs the client session.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn(r.Context(), "upgrade failed", "error", err.Error())
		return
	}

	client, err := h.register(conn)
	if err != nil {
		h.logger.Warn(r.Context(), "connection rejected", "error", err.Error())
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()),
			time.Now().Add(time.Second))
		conn.Close()
		return
	}

	ctx := logging.WithCorrelationID(r.Context(), client.id)
	go h.writePump(client)
	h.readPump(ctx, client)
}

// register admits a connection, assigns it a client ID and queues the
// initial_boats snapshot of everyone else's last known state.
func (h *Hub) register(conn *websocket.Conn) (*hubClient, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.clients) >= h.maxClients {
		return nil, fmt.Errorf("hub full: %d clients", h.maxClients)
	}

	client := &hubClient{
		id:   strconv.FormatUint(h.nextID.Add(1), 10),
		conn: conn,
		send: make(chan []byte, sendQueueSize),
	}
	h.clients[client.id] = client

	others := make(map[string]dynamics.State)
	for id, peer := range h.clients {
		if id != client.id && peer.boatData != nil {
			others[id] = *peer.boatData
		}
	}
	if len(others) > 0 {
		if payload, err := json.Marshal(Envelope{Type: InitialBoats, Boats: others}); err == nil {
			client.send <- payload
		}
	}

	h.logger.Info(context.Background(), "client connected",
		"client_id", client.id,
		"total_clients", len(h.clients),
	)
	h.eventBus.Publish(event.NewBoatEvent(event.BoatJoined, h, client.id))
	return client, nil
}

// unregister drops a client and tells the remaining clients to remove
// its boat.
func (h *Hub) unregister(client *hubClient) {
	h.mu.Lock()
	_, exists := h.clients[client.id]
	delete(h.clients, client.id)
	remaining := len(h.clients)
	h.mu.Unlock()

	if !exists {
		return
	}
	close(client.send)
	client.conn.Close()

	h.logger.Info(context.Background(), "client disconnected",
		"client_id", client.id,
		"remaining_clients", remaining,
	)

	if payload, err := json.Marshal(Envelope{Type: BoatDisconnected, ClientID: client.id}); err == nil {
		h.broadcastToOthers(client.id, payload)
	}
	h.eventBus.Publish(event.NewBoatEvent(event.BoatLeft, h, client.id))
}

// readPump consumes messages from one client until the connection dies.
func (h *Hub) readPump(ctx context.Context, client *hubClient) {
	defer h.unregister(client)

	client.conn.SetReadLimit(validation.MaxMessageSize)

	for {
		client.conn.SetReadDeadline(time.Now().Add(h.readTimeout))
		_, data, err := client.conn.ReadMessage()
		if err != nil {
			return
		}

		if err := h.validator.ValidateMessage(data, client.id); err != nil {
			h.logger.Warn(ctx, "dropping invalid message", "client_id", client.id, "error", err.Error())
			continue
		}

		env, err := DecodeEnvelope(data)
		if err != nil {
			h.logger.Warn(ctx, "dropping malformed message", "client_id", client.id, "error", err.Error())
			continue
		}
		if env.Type != BoatUpdate {
			// Clients only ever send boat updates; everything else is
			// hub-originated traffic echoed back by a confused client.
			continue
		}

		h.mu.Lock()
		client.boatData = env.BoatData
		h.mu.Unlock()

		env.ClientID = client.id
		payload, err := json.Marshal(env)
		if err != nil {
			continue
		}
		h.broadcastToOthers(client.id, payload)
	}
}

// writePump pushes queued messages to one client and keeps the
// connection alive with pings.
func (h *Hub) writePump(client *hubClient) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case payload, ok := <-client.send:
			if !ok {
				return
			}
			client.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := client.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			client.conn.SetWriteDeadline(time.Now().Add(h.writeTimeout))
			if err := client.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// broadcastToOthers queues a payload for every client except the sender,
// dropping it for clients whose queues are full.
func (h *Hub) broadcastToOthers(senderID string, payload []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	for id, client := range h.clients {
		if id == senderID {
			continue
		}
		select {
		case client.send <- payload:
		default:
			// Slow client: drop this update, the next one supersedes it.
		}
	}
}
