// pkg/network/messages.go
package network

import (
	"encoding/json"
	"fmt"

	"github.com/opd-ai/go-sail/pkg/dynamics"
)

// MessageType defines the type of replication message. The wire schema is
// owned by this layer; the dynamics core knows nothing about it.
type MessageType string

const (
	// BoatUpdate carries one boat's state snapshot. Clients send it
	// without a client_id; the hub stamps the sender's ID before
	// re-broadcasting to everyone else.
	BoatUpdate MessageType = "boat_update"

	// InitialBoats is sent to a freshly connected client and carries the
	// last known state of every other boat in the session.
	InitialBoats MessageType = "initial_boats"

	// BoatDisconnected tells clients to drop a replicated boat.
	BoatDisconnected MessageType = "boat_disconnected"
)

// Envelope is the single wire format for all replication messages.
type Envelope struct {
	Type     MessageType               `json:"type"`
	ClientID string                    `json:"client_id,omitempty"`
	BoatData *dynamics.State           `json:"boat_data,omitempty"`
	Boats    map[string]dynamics.State `json:"boats,omitempty"`
}

// EncodeBoatUpdate builds the client-side boat_update message.
func EncodeBoatUpdate(state dynamics.State) ([]byte, error) {
	return json.Marshal(Envelope{
		Type:     BoatUpdate,
		BoatData: &state,
	})
}

// DecodeEnvelope parses and checks an inbound message.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("failed to parse message: %w", err)
	}

	switch env.Type {
	case BoatUpdate:
		if env.BoatData == nil {
			return Envelope{}, fmt.Errorf("boat_update without boat_data")
		}
	case BoatDisconnected:
		if env.ClientID == "" {
			return Envelope{}, fmt.Errorf("boat_disconnected without client_id")
		}
	case InitialBoats:
		// An empty boats map is legal: the sender may be alone.
	default:
		return Envelope{}, fmt.Errorf("unknown message type %q", env.Type)
	}

	return env, nil
}
