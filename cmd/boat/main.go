// cmd/boat/main.go
package main

import (
	"context"
	"flag"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/opd-ai/go-sail/pkg/config"
	"github.com/opd-ai/go-sail/pkg/engine"
	"github.com/opd-ai/go-sail/pkg/event"
	"github.com/opd-ai/go-sail/pkg/logging"
	"github.com/opd-ai/go-sail/pkg/network"
	"github.com/opd-ai/go-sail/pkg/validation"
	"github.com/opd-ai/go-sail/pkg/wind"
)

func main() {
	logger := logging.NewLogger()
	ctx := context.Background()

	configPath := flag.String("config", "config.json", "Path to configuration file")
	serverURL := flag.String("server", "", "Hub URL (e.g. ws://localhost:8765); empty sails offline")
	name := flag.String("name", "boat", "Boat name")
	sailDeg := flag.Float64("sail", -45, "Sail trim in degrees")
	rudderDeg := flag.Float64("rudder", 0, "Rudder angle in degrees")
	speedKnots := flag.Float64("speed", 0, "Initial speed in knots")
	flag.Parse()

	boatName, err := validation.ValidateBoatName(*name)
	if err != nil {
		logger.Error(ctx, "Invalid boat name", err, "name", *name)
		os.Exit(1)
	}

	var simConfig *config.SimConfig
	if _, err := os.Stat(*configPath); os.IsNotExist(err) {
		simConfig = config.DefaultConfig()
	} else {
		simConfig, err = config.LoadConfig(*configPath)
		if err != nil {
			logger.Error(ctx, "Failed to load configuration", err, "config_path", *configPath)
			os.Exit(1)
		}
	}
	if err := simConfig.Validate(); err != nil {
		logger.Error(ctx, "Invalid configuration", err)
		os.Exit(1)
	}

	envConfig, err := config.LoadConfigFromEnv()
	if err != nil {
		logger.Error(ctx, "Failed to load environment configuration", err)
		os.Exit(1)
	}

	eventBus := event.NewEventBus()
	windSource := wind.NewOscillating(
		simConfig.Wind.BearingDeg,
		simConfig.Wind.Speed,
		simConfig.Wind.OscillationAmplitude,
		simConfig.Wind.OscillationPeriod,
	)
	regatta := engine.NewRegatta(windSource, eventBus)

	boat, err := regatta.AddBoat(boatName, simConfig.Physics)
	if err != nil {
		logger.Error(ctx, "Failed to add boat", err)
		os.Exit(1)
	}
	boat.SetSailAngle(*sailDeg * math.Pi / 180)
	boat.SetRudderAngle(*rudderDeg * math.Pi / 180)
	boat.SetInitialSpeed(*speedKnots)

	var client *network.Client
	if *serverURL != "" {
		client = network.NewClient(*serverURL, regatta, eventBus, envConfig)
		if err := client.Connect(ctx); err != nil {
			logger.Error(ctx, "Failed to join hub", err, "url", *serverURL)
			os.Exit(1)
		}
		defer client.Close()
	}

	regatta.Start()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(time.Second / time.Duration(simConfig.Network.UpdateRate))
	defer ticker.Stop()

	// Log a position fix every few seconds, not every tick.
	logEvery := uint64(simConfig.Network.UpdateRate) * 5

	logger.Info(ctx, "Sailing",
		"boat", boatName,
		"wind_bearing_deg", simConfig.Wind.BearingDeg,
		"wind_speed", simConfig.Wind.Speed,
		"online", client != nil,
	)

	for running := true; running; {
		select {
		case <-ticker.C:
			regatta.Update()

			state := boat.State()
			if client != nil && client.Connected() {
				if err := client.PublishState(ctx, state); err != nil {
					logger.Warn(ctx, "Failed to publish state", "error", err.Error())
				}
			}

			snap := regatta.Snapshot()
			if logEvery > 0 && snap.Tick%logEvery == 0 {
				logger.Info(ctx, "Position fix",
					"tick", snap.Tick,
					"x", state.Position.X,
					"z", state.Position.Z,
					"heading", state.Heading,
					"speed", state.Speed,
					"heel", state.HeelAngle,
					"fleet_size", regatta.BoatCount(),
				)
			}
		case sig := <-stop:
			logger.Info(ctx, "Coming about", "signal", sig.String())
			running = false
		}
	}

	regatta.Stop()
}
