// cmd/server/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opd-ai/go-sail/pkg/config"
	"github.com/opd-ai/go-sail/pkg/dynamics"
	"github.com/opd-ai/go-sail/pkg/engine"
	"github.com/opd-ai/go-sail/pkg/event"
	"github.com/opd-ai/go-sail/pkg/logging"
	"github.com/opd-ai/go-sail/pkg/network"
	"github.com/opd-ai/go-sail/pkg/replay"
	"github.com/opd-ai/go-sail/pkg/telemetry"
	"github.com/opd-ai/go-sail/pkg/wind"
)

func main() {
	logger := logging.NewLogger()
	ctx := context.Background()

	configPath := flag.String("config", "config.json", "Path to configuration file")
	createDefault := flag.Bool("default", false, "Create default configuration file")
	flag.Parse()

	// Create default configuration file if requested
	if *createDefault {
		if err := config.SaveConfig(config.DefaultConfig(), *configPath); err != nil {
			logger.Error(ctx, "Failed to create default configuration", err,
				"config_path", *configPath,
			)
			os.Exit(1)
		}
		logger.Info(ctx, "Created default configuration file",
			"config_path", *configPath,
		)
		return
	}

	// Load configuration
	var simConfig *config.SimConfig

	if _, err := os.Stat(*configPath); os.IsNotExist(err) {
		logger.Info(ctx, "Configuration file not found, using default configuration",
			"config_path", *configPath,
		)
		simConfig = config.DefaultConfig()
	} else {
		simConfig, err = config.LoadConfig(*configPath)
		if err != nil {
			logger.Error(ctx, "Failed to load configuration", err,
				"config_path", *configPath,
			)
			os.Exit(1)
		}
	}
	if err := simConfig.Validate(); err != nil {
		logger.Error(ctx, "Invalid configuration", err)
		os.Exit(1)
	}

	// Environment overrides for the hub (address, port, timeouts)
	envConfig, err := config.LoadConfigFromEnv()
	if err != nil {
		logger.Error(ctx, "Failed to load environment configuration", err)
		os.Exit(1)
	}

	// The server keeps its own regatta mirroring every connected client,
	// so wind oscillation, telemetry and replay all see one coherent
	// session state.
	eventBus := event.NewEventBus()
	regatta := engine.NewRegatta(buildWind(simConfig.Wind), eventBus)

	// The hub gets its own bus: join/leave events for recording come from
	// the regatta mirror, not from raw connections.
	hub := network.NewHub(envConfig, nil)
	address := fmt.Sprintf("%s:%d", envConfig.ServerAddr, envConfig.ServerPort)
	if err := hub.Start(address); err != nil {
		logger.Error(ctx, "Failed to start hub", err, "address", address)
		os.Exit(1)
	}

	var publisher *telemetry.Publisher
	if simConfig.Telemetry.Enabled {
		publisher = telemetry.NewPublisher(simConfig.Telemetry)
		if err := publisher.Connect(ctx); err != nil {
			logger.Error(ctx, "Failed to connect telemetry publisher", err)
			os.Exit(1)
		}
	}

	var recorder *replay.Recorder
	if simConfig.Replay.Enabled {
		var err error
		recorder, _, err = replay.NewRecorder(simConfig.Replay.Dir, "regatta", nil)
		if err != nil {
			logger.Error(ctx, "Failed to create replay recorder", err)
			os.Exit(1)
		}
		logger.Info(ctx, "Recording session", "dir", recorder.Directory())

		for _, eventType := range []event.Type{event.BoatJoined, event.BoatLeft} {
			eventBus.Subscribe(eventType, func(e event.Event) {
				if be, ok := e.(*event.BoatEvent); ok {
					recorder.RecordEvent(regatta.Snapshot().Tick, string(eventType), be.BoatID)
				}
			})
		}
	}

	regatta.Start()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second / time.Duration(simConfig.Network.UpdateRate))
	defer ticker.Stop()

	logger.Info(ctx, "Server running",
		"address", hub.Addr(),
		"update_rate", simConfig.Network.UpdateRate,
		"telemetry", simConfig.Telemetry.Enabled,
		"replay", simConfig.Replay.Enabled,
	)

	for running := true; running; {
		select {
		case <-ticker.C:
			tick(ctx, regatta, hub, simConfig, publisher, recorder, logger)
		case sig := <-stop:
			logger.Info(ctx, "Shutting down", "signal", sig.String())
			running = false
		}
	}

	regatta.Stop()
	hub.Stop()
	if publisher != nil {
		publisher.Disconnect()
	}
	if recorder != nil {
		if err := recorder.Close(); err != nil {
			logger.Error(ctx, "Failed to close replay recorder", err)
		}
	}
}

// buildWind creates the session wind source from configuration. A zero
// oscillation amplitude means a steady breeze.
func buildWind(cfg config.WindConfig) wind.Source {
	if cfg.OscillationAmplitude > 0 {
		return wind.NewOscillating(cfg.BearingDeg, cfg.Speed, cfg.OscillationAmplitude, cfg.OscillationPeriod)
	}
	return wind.FromBearing(cfg.BearingDeg, cfg.Speed)
}

// tick advances the session one step: sync replicated boats from the hub,
// step the regatta, then feed telemetry and replay on their cadence.
func tick(
	ctx context.Context,
	regatta *engine.Regatta,
	hub *network.Hub,
	simConfig *config.SimConfig,
	publisher *telemetry.Publisher,
	recorder *replay.Recorder,
	logger *logging.Logger,
) {
	syncBoats(ctx, regatta, hub.Snapshot(), simConfig.Physics, logger)
	regatta.Update()
	snap := regatta.Snapshot()

	interval := uint64(simConfig.Telemetry.IntervalTicks)
	if interval == 0 {
		interval = 1
	}
	if snap.Tick%interval != 0 {
		return
	}

	if publisher != nil {
		for id, state := range snap.Boats {
			if err := publisher.PublishBoatState(id, state); err != nil {
				logger.Warn(ctx, "Telemetry publish failed", "boat_id", id, "error", err.Error())
			}
		}
	}
	if recorder != nil {
		if err := recorder.RecordSnapshot(snap); err != nil {
			logger.Warn(ctx, "Replay snapshot failed", "error", err.Error())
		}
	}
}

// syncBoats mirrors the hub's last known client states into the regatta
// as replicated boats, and drops boats whose clients left.
func syncBoats(
	ctx context.Context,
	regatta *engine.Regatta,
	states map[string]dynamics.State,
	physics dynamics.PhysicsConfig,
	logger *logging.Logger,
) {
	for id, state := range states {
		boat := regatta.Boat(id)
		if boat == nil {
			var err error
			boat, err = regatta.AddReplicatedBoat(id, physics)
			if err != nil {
				logger.Warn(ctx, "Failed to mirror client boat", "client_id", id, "error", err.Error())
				continue
			}
		}
		boat.ApplyRemoteState(state)
	}

	for _, id := range regatta.BoatIDs() {
		if _, ok := states[id]; !ok {
			regatta.RemoveBoat(id)
		}
	}
}
