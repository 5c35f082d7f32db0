package network

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/opd-ai/go-sail/pkg/dynamics"
)

func TestEncodeBoatUpdate(t *testing.T) {
	state := dynamics.State{Heading: 1.5, Speed: 3.2, SailAngle: -0.4}

	payload, err := EncodeBoatUpdate(state)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		t.Fatalf("Expected valid JSON, got %v", err)
	}
	if env.Type != BoatUpdate {
		t.Errorf("Expected type %q, got %q", BoatUpdate, env.Type)
	}
	if env.ClientID != "" {
		t.Errorf("Expected no client_id before hub stamping, got %q", env.ClientID)
	}
	if env.BoatData == nil || env.BoatData.Speed != 3.2 {
		t.Errorf("Expected boat_data with speed 3.2, got %+v", env.BoatData)
	}
}

func TestDecodeEnvelope(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr bool
	}{
		{
			name: "valid boat update",
			data: `{"type":"boat_update","boat_data":{"heading":1.0,"speed":2.0}}`,
		},
		{
			name:    "boat update missing boat_data",
			data:    `{"type":"boat_update"}`,
			wantErr: true,
		},
		{
			name: "valid disconnect",
			data: `{"type":"boat_disconnected","client_id":"7"}`,
		},
		{
			name:    "disconnect missing client_id",
			data:    `{"type":"boat_disconnected"}`,
			wantErr: true,
		},
		{
			name: "initial boats with fleet",
			data: `{"type":"initial_boats","boats":{"1":{"speed":1.0}}}`,
		},
		{
			name: "initial boats empty",
			data: `{"type":"initial_boats"}`,
		},
		{
			name:    "unknown type",
			data:    `{"type":"teleport"}`,
			wantErr: true,
		},
		{
			name:    "not JSON",
			data:    `boat ahoy`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeEnvelope([]byte(tt.data))
			if tt.wantErr && err == nil {
				t.Errorf("Expected error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestEnvelopeOmitsEmptyFields(t *testing.T) {
	payload, err := json.Marshal(Envelope{Type: BoatDisconnected, ClientID: "3"})
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	s := string(payload)
	if strings.Contains(s, "boat_data") || strings.Contains(s, "boats") {
		t.Errorf("Expected empty fields to be omitted, got %s", s)
	}
}
