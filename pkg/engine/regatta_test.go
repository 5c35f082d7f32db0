package engine

import (
	"math"
	"testing"

	"github.com/opd-ai/go-sail/pkg/dynamics"
	"github.com/opd-ai/go-sail/pkg/event"
	"github.com/opd-ai/go-sail/pkg/wind"
)

func newTestRegatta(t *testing.T) *Regatta {
	t.Helper()
	return NewRegatta(wind.FromBearing(180, 10), event.NewEventBus())
}

func TestRegatta_AddBoatRejectsDuplicates(t *testing.T) {
	r := newTestRegatta(t)

	if _, err := r.AddBoat("alpha", dynamics.DefaultPhysicsConfig()); err != nil {
		t.Fatalf("AddBoat failed: %v", err)
	}
	if _, err := r.AddBoat("alpha", dynamics.DefaultPhysicsConfig()); err == nil {
		t.Error("Expected error for duplicate boat ID")
	}
	if r.BoatCount() != 1 {
		t.Errorf("Expected 1 boat, got %d", r.BoatCount())
	}
}

func TestRegatta_StepSimulatesOnlyLocalBoats(t *testing.T) {
	r := newTestRegatta(t)

	local, err := r.AddBoat("local", dynamics.DefaultPhysicsConfig())
	if err != nil {
		t.Fatalf("AddBoat failed: %v", err)
	}
	remote, err := r.AddReplicatedBoat("remote", dynamics.DefaultPhysicsConfig())
	if err != nil {
		t.Fatalf("AddReplicatedBoat failed: %v", err)
	}

	local.SetSailAngle(-math.Pi / 4)
	remoteBefore := remote.State()

	r.Start()
	for i := 0; i < 50; i++ {
		r.Step(0.05)
	}

	if local.Speed() <= 0 {
		t.Errorf("Expected local boat to accelerate, got speed %f", local.Speed())
	}
	if remote.State() != remoteBefore {
		t.Errorf("Replicated boat must not be simulated:\n%+v\n%+v", remoteBefore, remote.State())
	}
	if r.CurrentTick != 50 {
		t.Errorf("Expected 50 ticks, got %d", r.CurrentTick)
	}
}

func TestRegatta_StepIsNoOpWhenStopped(t *testing.T) {
	r := newTestRegatta(t)
	boat, _ := r.AddBoat("alpha", dynamics.DefaultPhysicsConfig())
	boat.SetSailAngle(-math.Pi / 4)

	r.Step(0.1) // never started

	if boat.Speed() != 0 || r.CurrentTick != 0 {
		t.Errorf("Expected no simulation before Start: speed %f, tick %d", boat.Speed(), r.CurrentTick)
	}
}

func TestRegatta_LifecycleEvents(t *testing.T) {
	bus := event.NewEventBus()
	r := NewRegatta(wind.FromBearing(180, 10), bus)

	var seen []event.Type
	for _, eventType := range []event.Type{
		event.SessionStarted, event.SessionEnded, event.BoatJoined, event.BoatLeft,
	} {
		eventType := eventType
		bus.Subscribe(eventType, func(event.Event) { seen = append(seen, eventType) })
	}

	r.Start()
	r.AddBoat("alpha", dynamics.DefaultPhysicsConfig())
	r.RemoveBoat("alpha")
	r.RemoveBoat("unknown") // no event for boats that were never registered
	r.Stop()

	expected := []event.Type{event.SessionStarted, event.BoatJoined, event.BoatLeft, event.SessionEnded}
	if len(seen) != len(expected) {
		t.Fatalf("Expected events %v, got %v", expected, seen)
	}
	for i := range expected {
		if seen[i] != expected[i] {
			t.Errorf("Event %d: expected %s, got %s", i, expected[i], seen[i])
		}
	}
}

func TestRegatta_SnapshotContainsAllBoats(t *testing.T) {
	r := newTestRegatta(t)
	r.AddBoat("alpha", dynamics.DefaultPhysicsConfig())
	r.AddReplicatedBoat("bravo", dynamics.DefaultPhysicsConfig())
	r.Start()
	r.Step(0.05)

	snap := r.Snapshot()

	if snap.Tick != 1 {
		t.Errorf("Expected tick 1, got %d", snap.Tick)
	}
	if len(snap.Boats) != 2 {
		t.Fatalf("Expected 2 boats in snapshot, got %d", len(snap.Boats))
	}
	if snap.WindSpeed != 10 {
		t.Errorf("Expected wind speed 10, got %f", snap.WindSpeed)
	}
	if _, ok := snap.Boats["alpha"]; !ok {
		t.Error("Snapshot missing boat alpha")
	}
}

func TestRegatta_DeterministicAcrossRuns(t *testing.T) {
	run := func() RegattaState {
		r := NewRegatta(wind.NewOscillating(180, 10, 0.15, 20), event.NewEventBus())
		a, _ := r.AddBoat("alpha", dynamics.DefaultPhysicsConfig())
		b, _ := r.AddBoat("bravo", dynamics.DefaultPhysicsConfig())
		a.SetSailAngle(-math.Pi / 4)
		b.SetSailAngle(-math.Pi / 3)
		b.SetRudderAngle(0.1)
		r.Start()
		for i := 0; i < 300; i++ {
			r.Step(0.02)
		}
		return r.Snapshot()
	}

	first := run()
	second := run()

	for id, state := range first.Boats {
		if second.Boats[id] != state {
			t.Errorf("Boat %s diverged between runs:\n%+v\n%+v", id, state, second.Boats[id])
		}
	}
}
