package network

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/opd-ai/go-sail/pkg/dynamics"
	"github.com/opd-ai/go-sail/pkg/engine"
	"github.com/opd-ai/go-sail/pkg/event"
	"github.com/opd-ai/go-sail/pkg/physics"
	"github.com/opd-ai/go-sail/pkg/wind"
)

func startTestHub(t *testing.T, maxClients int) *Hub {
	t.Helper()

	cfg := testEnvConfig()
	cfg.MaxClients = maxClients

	hub := NewHub(cfg, event.NewEventBus())
	if err := hub.Start("127.0.0.1:0"); err != nil {
		t.Fatalf("Expected hub to start, got %v", err)
	}
	t.Cleanup(hub.Stop)
	return hub
}

func dialTestHub(t *testing.T, hub *Hub) *websocket.Conn {
	t.Helper()

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+hub.Addr(), nil)
	if err != nil {
		t.Fatalf("Expected dial to succeed, got %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) Envelope {
	t.Helper()

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("Expected a message, got %v", err)
	}
	env, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("Expected a decodable message, got %v: %s", err, data)
	}
	return env
}

func waitForClients(t *testing.T, hub *Hub, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() != want {
		if time.Now().After(deadline) {
			t.Fatalf("Expected %d clients, got %d", want, hub.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func sendUpdate(t *testing.T, conn *websocket.Conn, state dynamics.State) {
	t.Helper()

	payload, err := EncodeBoatUpdate(state)
	if err != nil {
		t.Fatalf("Expected encode to succeed, got %v", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		t.Fatalf("Expected write to succeed, got %v", err)
	}
}

func TestHubBroadcastsUpdatesToOthers(t *testing.T) {
	hub := startTestHub(t, 8)

	first := dialTestHub(t, hub)
	second := dialTestHub(t, hub)
	waitForClients(t, hub, 2)

	sendUpdate(t, first, dynamics.State{Heading: 1.2, Speed: 4.5})

	env := readEnvelope(t, second)
	if env.Type != BoatUpdate {
		t.Fatalf("Expected boat_update, got %q", env.Type)
	}
	if env.ClientID == "" {
		t.Error("Expected hub to stamp client_id")
	}
	if env.BoatData.Speed != 4.5 {
		t.Errorf("Expected speed 4.5, got %v", env.BoatData.Speed)
	}

	// The sender must not receive its own update.
	first.SetReadDeadline(time.Now().Add(100 * time.Millisecond))
	if _, _, err := first.ReadMessage(); err == nil {
		t.Error("Expected no echo back to the sender")
	}
}

func TestHubSendsInitialBoatsToNewClient(t *testing.T) {
	hub := startTestHub(t, 8)

	first := dialTestHub(t, hub)
	waitForClients(t, hub, 1)
	sendUpdate(t, first, dynamics.State{Heading: 0.5, Speed: 2.0})

	// Give the hub a moment to store the update before the second join.
	time.Sleep(50 * time.Millisecond)

	second := dialTestHub(t, hub)
	env := readEnvelope(t, second)
	if env.Type != InitialBoats {
		t.Fatalf("Expected initial_boats, got %q", env.Type)
	}
	if len(env.Boats) != 1 {
		t.Fatalf("Expected 1 boat in snapshot, got %d", len(env.Boats))
	}
	for _, state := range env.Boats {
		if state.Speed != 2.0 {
			t.Errorf("Expected snapshot speed 2.0, got %v", state.Speed)
		}
	}
}

func TestHubBroadcastsDisconnect(t *testing.T) {
	hub := startTestHub(t, 8)

	first := dialTestHub(t, hub)
	second := dialTestHub(t, hub)
	waitForClients(t, hub, 2)

	sendUpdate(t, first, dynamics.State{Speed: 1.0})
	env := readEnvelope(t, second)
	senderID := env.ClientID

	first.Close()

	env = readEnvelope(t, second)
	if env.Type != BoatDisconnected {
		t.Fatalf("Expected boat_disconnected, got %q", env.Type)
	}
	if env.ClientID != senderID {
		t.Errorf("Expected disconnect for client %q, got %q", senderID, env.ClientID)
	}
	waitForClients(t, hub, 1)
}

func TestHubRejectsBeyondMaxClients(t *testing.T) {
	hub := startTestHub(t, 1)

	dialTestHub(t, hub)
	waitForClients(t, hub, 1)

	extra := dialTestHub(t, hub)
	extra.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := extra.ReadMessage(); err == nil {
		t.Error("Expected the over-capacity connection to be closed")
	}
	waitForClients(t, hub, 1)
}

func TestHubIgnoresInvalidMessages(t *testing.T) {
	hub := startTestHub(t, 8)

	first := dialTestHub(t, hub)
	second := dialTestHub(t, hub)
	waitForClients(t, hub, 2)

	// Garbage and unknown types are dropped without killing the session.
	first.WriteMessage(websocket.TextMessage, []byte("not json"))
	first.WriteMessage(websocket.TextMessage, []byte(`{"type":"teleport"}`))

	sendUpdate(t, first, dynamics.State{Speed: 6.0})

	env := readEnvelope(t, second)
	if env.Type != BoatUpdate || env.BoatData.Speed != 6.0 {
		t.Errorf("Expected the valid update to survive, got %+v", env)
	}
	waitForClients(t, hub, 2)
}

func TestClientReplicatesRemoteBoats(t *testing.T) {
	hub := startTestHub(t, 8)

	bus := event.NewEventBus()
	replicated := make(chan string, 16)
	bus.Subscribe(event.BoatStateReplicated, func(e event.Event) {
		if be, ok := e.(*event.BoatEvent); ok {
			replicated <- be.BoatID
		}
	})

	regatta := engine.NewRegatta(wind.NewConstant(physics.Vector3{Z: -1}, 5.0), bus)
	client := NewClient("ws://"+hub.Addr(), regatta, bus, testEnvConfig())
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Expected connect to succeed, got %v", err)
	}
	defer client.Close()

	peer := dialTestHub(t, hub)
	waitForClients(t, hub, 2)
	sendUpdate(t, peer, dynamics.State{Heading: 2.0, Speed: 3.0})

	var boatID string
	select {
	case boatID = <-replicated:
	case <-time.After(2 * time.Second):
		t.Fatal("Expected a replication event")
	}

	boat := regatta.Boat(boatID)
	if boat == nil {
		t.Fatal("Expected the replicated boat to be retrievable")
	}
	if boat.Local() {
		t.Error("Expected the boat to be marked replicated")
	}
	if boat.Speed() != 3.0 {
		t.Errorf("Expected replicated speed 3.0, got %v", boat.Speed())
	}

	// Peer disconnect removes the replicated boat.
	peer.Close()
	deadline := time.Now().Add(2 * time.Second)
	for regatta.BoatCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("Expected boat removal on disconnect, still have %d", regatta.BoatCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestClientPublishState(t *testing.T) {
	hub := startTestHub(t, 8)

	bus := event.NewEventBus()
	regatta := engine.NewRegatta(wind.NewConstant(physics.Vector3{Z: -1}, 5.0), bus)
	client := NewClient("ws://"+hub.Addr(), regatta, bus, testEnvConfig())
	if err := client.Connect(context.Background()); err != nil {
		t.Fatalf("Expected connect to succeed, got %v", err)
	}
	defer client.Close()

	peer := dialTestHub(t, hub)
	waitForClients(t, hub, 2)

	if err := client.PublishState(context.Background(), dynamics.State{Speed: 7.0}); err != nil {
		t.Fatalf("Expected publish to succeed, got %v", err)
	}

	env := readEnvelope(t, peer)
	if env.Type != BoatUpdate || env.BoatData.Speed != 7.0 {
		payload, _ := json.Marshal(env)
		t.Errorf("Expected published update at the peer, got %s", payload)
	}
}

func TestClientConnectFailsForDeadHub(t *testing.T) {
	bus := event.NewEventBus()
	regatta := engine.NewRegatta(wind.NewConstant(physics.Vector3{Z: -1}, 5.0), bus)
	client := NewClient("ws://127.0.0.1:1", regatta, bus, testEnvConfig())
	client.maxAttempts = 2
	client.retryDelay = 10 * time.Millisecond

	if err := client.Connect(context.Background()); err == nil {
		t.Error("Expected connect to fail against a dead hub")
	}
	if client.Connected() {
		t.Error("Expected client to remain disconnected")
	}
}
