// pkg/network/client.go
package network

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/opd-ai/go-sail/pkg/config"
	"github.com/opd-ai/go-sail/pkg/dynamics"
	"github.com/opd-ai/go-sail/pkg/engine"
	"github.com/opd-ai/go-sail/pkg/event"
	"github.com/opd-ai/go-sail/pkg/logging"
)

const (
	maxReconnectAttempts = 5
	reconnectDelay       = 2 * time.Second
)

// Client connects a local session to a hub. It publishes the local boat's
// state and mirrors every remote boat into the engine as a replicated boat
// that ApplyRemoteState drives instead of the integrator.
type Client struct {
	serverURL string
	regatta   *engine.Regatta
	eventBus  *event.Bus
	service   *NetworkService
	logger    *logging.Logger

	writeTimeout time.Duration
	maxAttempts  int
	retryDelay   time.Duration

	mu        sync.Mutex
	conn      *websocket.Conn
	connected bool
	done      chan struct{}
}

// NewClient creates a replication client for the given hub URL
// (e.g. "ws://localhost:8765").
func NewClient(serverURL string, regatta *engine.Regatta, bus *event.Bus, envConfig *config.EnvironmentConfig) *Client {
	return &Client{
		serverURL:    serverURL,
		regatta:      regatta,
		eventBus:     bus,
		service:      NewNetworkService(envConfig),
		logger:       logging.NewLogger(),
		writeTimeout: envConfig.WriteTimeout,
		maxAttempts:  maxReconnectAttempts,
		retryDelay:   reconnectDelay,
	}
}

// Connect dials the hub through the circuit breaker and starts the read
// loop. It retries with a fixed delay up to maxReconnectAttempts.
func (c *Client) Connect(ctx context.Context) error {
	var lastErr error

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		err := c.service.Execute(ctx, func() error {
			return c.dial(ctx)
		})
		if err == nil {
			c.logger.Info(ctx, "connected to hub", "url", c.serverURL, "attempt", attempt)
			go c.readLoop(ctx)
			return nil
		}
		lastErr = err

		c.logger.Warn(ctx, "connection attempt failed",
			"url", c.serverURL,
			"attempt", attempt,
			"error", err.Error(),
		)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.retryDelay):
		}
	}

	return fmt.Errorf("failed to connect to %s after %d attempts: %w",
		c.serverURL, c.maxAttempts, lastErr)
}

func (c *Client) dial(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, c.serverURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", c.serverURL, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.connected = true
	c.done = make(chan struct{})
	c.mu.Unlock()
	return nil
}

// Connected reports whether the client currently holds a live connection.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.connected
}

// Close shuts the connection down. Safe to call more than once.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.connected {
		return
	}
	c.connected = false
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	c.conn.Close()
	close(c.done)
}

// Done is closed when the connection has been torn down, by Close or by a
// read failure.
func (c *Client) Done() <-chan struct{} {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.done
}

// PublishState sends the local boat's snapshot to the hub. Called once per
// tick; failures run through the circuit breaker so a dead hub stops
// costing a timeout per tick.
func (c *Client) PublishState(ctx context.Context, state dynamics.State) error {
	c.mu.Lock()
	conn := c.conn
	connected := c.connected
	c.mu.Unlock()

	if !connected {
		return fmt.Errorf("not connected")
	}

	payload, err := EncodeBoatUpdate(state)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	return c.service.Execute(ctx, func() error {
		conn.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		return conn.WriteMessage(websocket.TextMessage, payload)
	})
}

// readLoop applies inbound messages to the engine until the connection
// drops.
func (c *Client) readLoop(ctx context.Context) {
	defer c.Close()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			stillConnected := c.connected
			c.mu.Unlock()
			if stillConnected {
				c.logger.Warn(ctx, "connection lost", "error", err.Error())
			}
			return
		}

		env, err := DecodeEnvelope(data)
		if err != nil {
			c.logger.Warn(ctx, "dropping malformed message", "error", err.Error())
			continue
		}
		c.handleEnvelope(ctx, env)
	}
}

func (c *Client) handleEnvelope(ctx context.Context, env Envelope) {
	switch env.Type {
	case BoatUpdate:
		if env.ClientID == "" {
			// The hub stamps every rebroadcast; an unstamped update has
			// no boat to apply to.
			return
		}
		c.applyRemote(ctx, env.ClientID, *env.BoatData)

	case InitialBoats:
		for id, state := range env.Boats {
			c.applyRemote(ctx, id, state)
		}

	case BoatDisconnected:
		c.regatta.RemoveBoat(env.ClientID)
		c.logger.Info(ctx, "remote boat left", "client_id", env.ClientID)
	}
}

// applyRemote creates the replicated boat on first sight and overwrites
// its state with the remote snapshot.
func (c *Client) applyRemote(ctx context.Context, id string, state dynamics.State) {
	boat := c.regatta.Boat(id)
	if boat == nil {
		var err error
		boat, err = c.regatta.AddReplicatedBoat(id, dynamics.DefaultPhysicsConfig())
		if err != nil {
			c.logger.Warn(ctx, "failed to add replicated boat", "client_id", id, "error", err.Error())
			return
		}
		c.logger.Info(ctx, "remote boat joined", "client_id", id)
	}
	boat.ApplyRemoteState(state)

	if c.eventBus != nil {
		c.eventBus.Publish(event.NewBoatEvent(event.BoatStateReplicated, c, id))
	}
}
