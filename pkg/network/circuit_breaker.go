// Package network implements the replication layer: a WebSocket hub that
// re-broadcasts boat state between sessions, and a client that feeds
// replicated boats. Network operations run through a circuit breaker so a
// dead hub degrades to local-only sailing instead of cascading failures.
package network

import (
	"context"
	"log/slog"

	"github.com/sony/gobreaker"

	"github.com/opd-ai/go-sail/pkg/config"
	"github.com/opd-ai/go-sail/pkg/logging"
)

// NetworkService wraps network operations with circuit breaker
// functionality: failure isolation and fast rejection while the hub is
// unreachable.
type NetworkService struct {
	breaker *gobreaker.CircuitBreaker
	logger  *logging.Logger
	config  *config.EnvironmentConfig
}

// NetworkOperation represents a function that performs a network
// operation. It should return an error if the operation fails.
type NetworkOperation func() error

// NewNetworkService creates a NetworkService with the circuit breaker
// configured from environment settings.
func NewNetworkService(envConfig *config.EnvironmentConfig) *NetworkService {
	logger := logging.NewLogger()

	settings := gobreaker.Settings{
		Name:        "sail-replication",
		MaxRequests: uint32(envConfig.CircuitBreakerMaxRequests),
		Interval:    envConfig.CircuitBreakerInterval,
		Timeout:     envConfig.CircuitBreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= uint32(envConfig.CircuitBreakerMaxConsecutiveFails)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Info(context.Background(), "circuit breaker state changed",
				"name", name,
				"from", from.String(),
				"to", to.String(),
			)
		},
	}

	return &NetworkService{
		breaker: gobreaker.NewCircuitBreaker(settings),
		logger:  logger,
		config:  envConfig,
	}
}

// Execute runs a network operation through the circuit breaker. When the
// circuit is open the operation is rejected immediately.
func (ns *NetworkService) Execute(ctx context.Context, operation NetworkOperation) error {
	_, err := ns.breaker.Execute(func() (interface{}, error) {
		return nil, operation()
	})
	if err != nil {
		ns.logger.LogWithContext(ctx, slog.LevelWarn, "network operation failed",
			"breaker_state", ns.breaker.State().String(),
			"error", err.Error(),
		)
	}
	return err
}

// State returns the current circuit breaker state.
func (ns *NetworkService) State() gobreaker.State {
	return ns.breaker.State()
}
