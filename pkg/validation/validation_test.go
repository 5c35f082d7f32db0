package validation

import (
	"bytes"
	"testing"
	"time"
)

func TestValidateMessage(t *testing.T) {
	v := NewMessageValidator()
	defer v.Close()

	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{name: "Valid JSON passes", data: []byte(`{"type":"boat_update"}`), wantErr: false},
		{name: "Invalid JSON rejected", data: []byte(`{"type":`), wantErr: true},
		{name: "Oversized message rejected", data: bytes.Repeat([]byte("a"), MaxMessageSize+1), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.ValidateMessage(tt.data, "client-1")
			if (err != nil) != tt.wantErr {
				t.Errorf("Expected wantErr=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidateBoatName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
		wantErr  bool
	}{
		{name: "Plain name", input: "Windsong", expected: "Windsong", wantErr: false},
		{name: "Trimmed", input: "  Sea Breeze  ", expected: "Sea Breeze", wantErr: false},
		{name: "Empty rejected", input: "", wantErr: true},
		{name: "Whitespace only rejected", input: "   ", wantErr: true},
		{name: "Control characters rejected", input: "boat\x00name", wantErr: true},
		{name: "Disallowed characters rejected", input: "boat<script>", wantErr: true},
		{name: "Too long rejected", input: string(bytes.Repeat([]byte("x"), MaxBoatNameLen+1)), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidateBoatName(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Expected wantErr=%v, got %v", tt.wantErr, err)
			}
			if !tt.wantErr && got != tt.expected {
				t.Errorf("Expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestRateLimiter_EnforcesLimit(t *testing.T) {
	rl := NewRateLimiter(3, time.Minute)
	defer rl.Close()

	for i := 0; i < 3; i++ {
		if !rl.Allow("client-a") {
			t.Fatalf("Request %d should have been allowed", i)
		}
	}
	if rl.Allow("client-a") {
		t.Error("Fourth request within the window should have been denied")
	}

	// Other clients have their own buckets.
	if !rl.Allow("client-b") {
		t.Error("A different client must not be affected")
	}
}

func TestRateLimiter_RefillsOverTime(t *testing.T) {
	rl := NewRateLimiter(10, 100*time.Millisecond)
	defer rl.Close()

	for i := 0; i < 10; i++ {
		rl.Allow("client-a")
	}
	if rl.Allow("client-a") {
		t.Fatal("Bucket should be empty")
	}

	time.Sleep(150 * time.Millisecond)

	if !rl.Allow("client-a") {
		t.Error("Expected tokens to refill after the window elapsed")
	}
}
