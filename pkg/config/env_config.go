// pkg/config/env_config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// EnvironmentConfig contains deployment settings loaded from SAIL_*
// environment variables. File-based SimConfig describes the simulation;
// this describes where and how the process runs.
type EnvironmentConfig struct {
	ServerAddr   string
	ServerPort   int
	MaxClients   int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	UpdateRate   int

	// Circuit breaker tuning for the replication client.
	CircuitBreakerMaxRequests         int
	CircuitBreakerInterval            time.Duration
	CircuitBreakerTimeout             time.Duration
	CircuitBreakerMaxConsecutiveFails int

	ShutdownTimeout time.Duration
}

// LoadConfigFromEnv reads the environment configuration, applying
// defaults for anything unset. The PORT variable overrides
// SAIL_SERVER_PORT so the server runs unchanged on platforms that
// inject the listen port.
func LoadConfigFromEnv() (*EnvironmentConfig, error) {
	cfg := &EnvironmentConfig{
		ServerAddr:   getEnvOrDefault("SAIL_SERVER_ADDR", "localhost"),
		ServerPort:   getEnvAsIntOrDefault("SAIL_SERVER_PORT", 8765),
		MaxClients:   getEnvAsIntOrDefault("SAIL_MAX_CLIENTS", 32),
		ReadTimeout:  getEnvAsDurationOrDefault("SAIL_READ_TIMEOUT", 30*time.Second),
		WriteTimeout: getEnvAsDurationOrDefault("SAIL_WRITE_TIMEOUT", 30*time.Second),
		UpdateRate:   getEnvAsIntOrDefault("SAIL_UPDATE_RATE", 30),

		CircuitBreakerMaxRequests:         getEnvAsIntOrDefault("SAIL_CB_MAX_REQUESTS", 3),
		CircuitBreakerInterval:            getEnvAsDurationOrDefault("SAIL_CB_INTERVAL", 60*time.Second),
		CircuitBreakerTimeout:             getEnvAsDurationOrDefault("SAIL_CB_TIMEOUT", 30*time.Second),
		CircuitBreakerMaxConsecutiveFails: getEnvAsIntOrDefault("SAIL_CB_MAX_CONSECUTIVE_FAILS", 5),

		ShutdownTimeout: getEnvAsDurationOrDefault("SAIL_SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	// Heroku-style port injection, as the original deployment used.
	if port := os.Getenv("PORT"); port != "" {
		if parsed, err := strconv.Atoi(port); err == nil {
			cfg.ServerPort = parsed
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *EnvironmentConfig) validate() error {
	if c.ServerPort <= 0 || c.ServerPort > 65535 {
		return fmt.Errorf("invalid server port: %d", c.ServerPort)
	}
	if c.MaxClients <= 0 {
		return fmt.Errorf("max clients must be positive, got %d", c.MaxClients)
	}
	if c.UpdateRate <= 0 {
		return fmt.Errorf("update rate must be positive, got %d", c.UpdateRate)
	}
	if c.ReadTimeout <= 0 || c.WriteTimeout <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	return nil
}

// getEnvOrDefault returns the environment variable value or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault parses an integer environment variable, falling
// back to the default on absence or parse failure.
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvAsBoolOrDefault parses a boolean environment variable, falling
// back to the default on absence or parse failure.
func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvAsFloatOrDefault parses a float environment variable, falling
// back to the default on absence or parse failure.
func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// getEnvAsDurationOrDefault parses a duration environment variable
// (e.g. "45s"), falling back to the default on absence or parse failure.
func getEnvAsDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}
