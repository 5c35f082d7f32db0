// pkg/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/opd-ai/go-sail/pkg/dynamics"
)

// SimConfig contains the configuration for a sailing session.
type SimConfig struct {
	Physics   dynamics.PhysicsConfig `json:"physics"`
	Wind      WindConfig             `json:"wind"`
	Network   NetworkConfig          `json:"network"`
	Telemetry TelemetryConfig        `json:"telemetry"`
	Replay    ReplayConfig           `json:"replay"`
}

// WindConfig describes the session wind. A zero oscillation amplitude
// yields a constant wind.
type WindConfig struct {
	BearingDeg           float64 `json:"bearingDeg"`           // compass direction the wind blows FROM
	Speed                float64 `json:"speed"`                // m/s
	OscillationAmplitude float64 `json:"oscillationAmplitude"` // radians
	OscillationPeriod    float64 `json:"oscillationPeriod"`    // seconds
}

// NetworkConfig contains replication hub settings.
type NetworkConfig struct {
	ServerAddress string `json:"serverAddress"`
	ServerPort    int    `json:"serverPort"`
	UpdateRate    int    `json:"updateRate"` // ticks per second
	MaxClients    int    `json:"maxClients"`
}

// TelemetryConfig contains MQTT publisher settings.
type TelemetryConfig struct {
	Enabled       bool   `json:"enabled"`
	Broker        string `json:"broker"`
	Port          int    `json:"port"`
	Username      string `json:"username"`
	Password      string `json:"password"`
	UseTLS        bool   `json:"useTLS"`
	TopicPrefix   string `json:"topicPrefix"`
	QoS           int    `json:"qos"`
	IntervalTicks int    `json:"intervalTicks"` // publish every N ticks
}

// ReplayConfig contains session recorder settings.
type ReplayConfig struct {
	Enabled bool   `json:"enabled"`
	Dir     string `json:"dir"`
}

// LoadConfig loads a configuration from a file
func LoadConfig(path string) (*SimConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config SimConfig
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return &config, nil
}

// SaveConfig saves a configuration to a file
func SaveConfig(config *SimConfig, path string) error {
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// DefaultConfig returns a default session configuration: a fresh
// southerly breeze, the stock boat tuning, and replication on the
// original server's port.
func DefaultConfig() *SimConfig {
	return &SimConfig{
		Physics: dynamics.DefaultPhysicsConfig(),
		Wind: WindConfig{
			BearingDeg:           180,
			Speed:                8,
			OscillationAmplitude: 0,
			OscillationPeriod:    45,
		},
		Network: NetworkConfig{
			ServerAddress: "localhost",
			ServerPort:    8765,
			UpdateRate:    30,
			MaxClients:    32,
		},
		Telemetry: TelemetryConfig{
			Enabled:       false,
			Broker:        "localhost",
			Port:          1883,
			TopicPrefix:   "sail/boats",
			QoS:           0,
			IntervalTicks: 30,
		},
		Replay: ReplayConfig{
			Enabled: false,
			Dir:     "replays",
		},
	}
}

// Validate checks the parts of the config that would otherwise fail at
// runtime in confusing ways.
func (c *SimConfig) Validate() error {
	if c.Wind.Speed < 0 || math.IsNaN(c.Wind.Speed) {
		return fmt.Errorf("wind speed must be >= 0, got %f", c.Wind.Speed)
	}
	if c.Network.UpdateRate <= 0 {
		return fmt.Errorf("network update rate must be positive, got %d", c.Network.UpdateRate)
	}
	if c.Network.ServerPort <= 0 || c.Network.ServerPort > 65535 {
		return fmt.Errorf("server port out of range: %d", c.Network.ServerPort)
	}
	if c.Telemetry.Enabled && c.Telemetry.Broker == "" {
		return fmt.Errorf("telemetry enabled but no broker configured")
	}
	if c.Replay.Enabled && c.Replay.Dir == "" {
		return fmt.Errorf("replay enabled but no directory configured")
	}
	return nil
}
