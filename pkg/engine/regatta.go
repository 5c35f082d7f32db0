// pkg/engine/regatta.go
package engine

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/opd-ai/go-sail/pkg/dynamics"
	"github.com/opd-ai/go-sail/pkg/event"
	"github.com/opd-ai/go-sail/pkg/physics"
	"github.com/opd-ai/go-sail/pkg/wind"
)

// Simulatable is the capability a boat needs to be advanced by the tick
// loop. Replicated boats are simply never registered for simulation, so
// the integrator is not invoked for them at all.
type Simulatable interface {
	Update(deltaTime float64)
}

// Regatta owns a sailing session: the boat registry (local and
// replicated), the shared wind source, and the tick bookkeeping.
type Regatta struct {
	Wind        wind.Source
	EventBus    *event.Bus
	EntityLock  sync.RWMutex
	Running     bool
	CurrentTick uint64
	LastUpdate  time.Time

	boats       map[string]*dynamics.Boat
	simulatable map[string]Simulatable
	order       []string // boat IDs sorted for deterministic iteration
}

// RegattaState is a read-only snapshot of one tick, consumed by the
// replication hub, telemetry and the replay recorder.
type RegattaState struct {
	Tick          uint64                    `json:"tick"`
	WindDirection physics.Vector3           `json:"windDirection"`
	WindSpeed     float64                   `json:"windSpeed"`
	Boats         map[string]dynamics.State `json:"boats"`
}

// NewRegatta creates a session around a wind source.
func NewRegatta(windSource wind.Source, bus *event.Bus) *Regatta {
	if bus == nil {
		bus = event.NewEventBus()
	}
	return &Regatta{
		Wind:        windSource,
		EventBus:    bus,
		LastUpdate:  time.Now(),
		boats:       make(map[string]*dynamics.Boat),
		simulatable: make(map[string]Simulatable),
	}
}

// Start marks the session active and resets the tick clock.
func (r *Regatta) Start() {
	r.EntityLock.Lock()
	r.Running = true
	r.LastUpdate = time.Now()
	r.EntityLock.Unlock()

	r.EventBus.Publish(event.NewSessionEvent(event.SessionStarted, r, r.CurrentTick))
}

// Stop marks the session inactive.
func (r *Regatta) Stop() {
	r.EntityLock.Lock()
	r.Running = false
	r.EntityLock.Unlock()

	r.EventBus.Publish(event.NewSessionEvent(event.SessionEnded, r, r.CurrentTick))
}

// AddBoat registers a locally simulated boat and returns it.
func (r *Regatta) AddBoat(id string, cfg dynamics.PhysicsConfig) (*dynamics.Boat, error) {
	boat := dynamics.NewBoat(cfg, r.Wind)
	if err := r.register(id, boat); err != nil {
		return nil, err
	}
	return boat, nil
}

// AddReplicatedBoat registers a boat fed by an external replication
// stream. It is never simulated locally.
func (r *Regatta) AddReplicatedBoat(id string, cfg dynamics.PhysicsConfig) (*dynamics.Boat, error) {
	boat := dynamics.NewReplicatedBoat(cfg)
	if err := r.register(id, boat); err != nil {
		return nil, err
	}
	return boat, nil
}

func (r *Regatta) register(id string, boat *dynamics.Boat) error {
	r.EntityLock.Lock()
	if _, exists := r.boats[id]; exists {
		r.EntityLock.Unlock()
		return fmt.Errorf("boat %q already registered", id)
	}
	r.boats[id] = boat
	if boat.Local() {
		r.simulatable[id] = boat
	}
	r.order = append(r.order, id)
	sort.Strings(r.order)
	r.EntityLock.Unlock()

	r.EventBus.Publish(event.NewBoatEvent(event.BoatJoined, r, id))
	return nil
}

// RemoveBoat drops a boat from the session.
func (r *Regatta) RemoveBoat(id string) {
	r.EntityLock.Lock()
	_, exists := r.boats[id]
	delete(r.boats, id)
	delete(r.simulatable, id)
	if exists {
		for i, key := range r.order {
			if key == id {
				r.order = append(r.order[:i], r.order[i+1:]...)
				break
			}
		}
	}
	r.EntityLock.Unlock()

	if exists {
		r.EventBus.Publish(event.NewBoatEvent(event.BoatLeft, r, id))
	}
}

// Boat returns a registered boat, or nil when unknown.
func (r *Regatta) Boat(id string) *dynamics.Boat {
	r.EntityLock.RLock()
	defer r.EntityLock.RUnlock()
	return r.boats[id]
}

// BoatIDs returns the registered boat IDs in sorted order.
func (r *Regatta) BoatIDs() []string {
	r.EntityLock.RLock()
	defer r.EntityLock.RUnlock()
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// BoatCount returns the number of registered boats.
func (r *Regatta) BoatCount() int {
	r.EntityLock.RLock()
	defer r.EntityLock.RUnlock()
	return len(r.boats)
}

// Update advances the session by one wall-clock tick.
func (r *Regatta) Update() {
	r.Step(r.calculateDeltaTime())
}

// Step advances the session by a fixed deltaTime in seconds. Wind advances
// first so every boat sees the same wind within a tick; boats update in
// sorted ID order so runs are reproducible.
func (r *Regatta) Step(deltaTime float64) {
	r.EntityLock.Lock()
	defer r.EntityLock.Unlock()

	if !r.Running {
		return
	}

	if advancer, ok := r.Wind.(wind.Advancer); ok {
		advancer.Advance(deltaTime)
	}

	for _, id := range r.order {
		if sim, ok := r.simulatable[id]; ok {
			sim.Update(deltaTime)
		}
	}

	r.CurrentTick++
}

// Snapshot captures the current state of every boat.
func (r *Regatta) Snapshot() RegattaState {
	r.EntityLock.RLock()
	defer r.EntityLock.RUnlock()

	state := RegattaState{
		Tick:  r.CurrentTick,
		Boats: make(map[string]dynamics.State, len(r.boats)),
	}
	if r.Wind != nil {
		state.WindDirection = r.Wind.Direction()
		state.WindSpeed = r.Wind.Speed()
	}
	for id, boat := range r.boats {
		state.Boats[id] = boat.State()
	}
	return state
}

// calculateDeltaTime measures wall-clock time since the previous tick,
// capped so a stalled frame cannot destabilize the physics.
func (r *Regatta) calculateDeltaTime() float64 {
	now := time.Now()
	deltaTime := now.Sub(r.LastUpdate).Seconds()
	r.LastUpdate = now

	if deltaTime > 0.1 {
		deltaTime = 0.1
	}
	return deltaTime
}
