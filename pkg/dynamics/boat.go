// pkg/dynamics/boat.go

// Package dynamics implements the boat force model and integrator: apparent
// wind, sail lift/push decomposition with stall behavior, drag, rudder
// turning, heel, and the per-tick state integration. It is pure arithmetic
// over the boat state and an externally supplied wind source; anomalies
// degrade to zero force or clamped values rather than errors.
package dynamics

import (
	"math"

	"github.com/opd-ai/go-sail/pkg/physics"
	"github.com/opd-ai/go-sail/pkg/wind"
)

// State is the read-only snapshot exposed to rendering, audio, UI and
// network collaborators once per frame.
type State struct {
	Position              physics.Vector3 `json:"position"`
	Heading               float64         `json:"heading"`
	Speed                 float64         `json:"speed"`
	SailAngle             float64         `json:"sailAngle"`
	RudderAngle           float64         `json:"rudderAngle"`
	HeelAngle             float64         `json:"heelAngle"`
	ApparentWindDirection physics.Vector3 `json:"apparentWindDirection"`
	ApparentWindSpeed     float64         `json:"apparentWindSpeed"`
}

// Boat owns one boat's dynamic state. The state is mutated only by
// SetSailAngle, SetRudderAngle and Update; everything else reads snapshots.
// A replicated boat skips integration entirely and is fed through
// ApplyRemoteState by the network layer instead.
//
// Not safe for concurrent use: setters and Update must be called from the
// same tick owner, per the single-threaded host contract.
type Boat struct {
	cfg        PhysicsConfig
	wind       wind.Source
	replicated bool

	position    physics.Vector3
	heading     float64 // radians, kept in [0, 2*pi)
	speed       float64 // m/s, never negative
	sailAngle   float64
	rudderAngle float64
	heelAngle   float64

	forces ForceSet
}

// NewBoat creates a locally simulated boat facing east at rest.
func NewBoat(cfg PhysicsConfig, windSource wind.Source) *Boat {
	return &Boat{
		cfg:     cfg.withDefaults(),
		wind:    windSource,
		heading: math.Pi / 2,
	}
}

// NewReplicatedBoat creates a boat whose Update is a no-op. Its state is
// overwritten wholesale by a replication feed; the same invariants are
// re-applied on every ApplyRemoteState so local control can resume safely.
func NewReplicatedBoat(cfg PhysicsConfig) *Boat {
	b := NewBoat(cfg, nil)
	b.replicated = true
	return b
}

// Local reports whether this boat is simulated locally.
func (b *Boat) Local() bool {
	return !b.replicated
}

// Config returns the immutable physics configuration.
func (b *Boat) Config() PhysicsConfig {
	return b.cfg
}

// SetSailAngle clamps the requested angle to [-maxSailAngle, maxSailAngle]
// and then excludes the dead zone on the side the true wind blows from, so
// the sail can never sit exactly on the centerline while facing the wind.
// Out-of-range and NaN inputs are silently clamped, not rejected.
func (b *Boat) SetSailAngle(angle float64) {
	if math.IsNaN(angle) {
		angle = 0
	}
	angle = physics.Clamp(angle, -b.cfg.MaxSailAngle, b.cfg.MaxSailAngle)

	if b.wind != nil && b.wind.Speed() > 0 {
		windSide := signOr(physics.FromHeading(b.heading).CrossY(b.wind.Direction()), 1)
		if windSide > 0 && angle > -minSailOffset {
			angle = -minSailOffset
		} else if windSide < 0 && angle < minSailOffset {
			angle = minSailOffset
		}
	}

	b.sailAngle = angle
}

// SetRudderAngle clamps the requested angle to [-maxRudderAngle,
// maxRudderAngle]. Negative angles turn the boat right.
func (b *Boat) SetRudderAngle(angle float64) {
	if math.IsNaN(angle) {
		angle = 0
	}
	b.rudderAngle = physics.Clamp(angle, -b.cfg.MaxRudderAngle, b.cfg.MaxRudderAngle)
}

// SetInitialSpeed overrides the boat speed, converting knots to m/s.
// Intended for tests and scenario setup only.
func (b *Boat) SetInitialSpeed(knots float64) {
	if math.IsNaN(knots) {
		knots = 0
	}
	b.speed = math.Max(0, knots*knotsToMetersPerSecond)
}

// Update advances the simulation by one tick. It is a guarded no-op for
// replicated boats and when no wind source is attached; deltaTime is
// clamped so a frame hitch cannot blow up the integration.
//
// Order matters: later steps read intermediate results of earlier ones
// (heel needs this tick's lateral force, drag needs last tick's speed).
func (b *Boat) Update(deltaTime float64) {
	if b.replicated || b.wind == nil {
		return
	}
	if math.IsNaN(deltaTime) || deltaTime <= 0 {
		return
	}
	if deltaTime > maxDeltaTime {
		deltaTime = maxDeltaTime
	}

	headingVec := physics.FromHeading(b.heading)

	awVec, awDir, awSpeed := b.apparentWind(headingVec)
	sail, lift, push := b.computeSailForce(awDir, awSpeed)
	forward, lateral := b.splitForce(headingVec, sail)
	drag := b.dragForce(headingVec)

	b.forces = ForceSet{
		SailForce:             sail,
		LiftForce:             lift,
		PushForce:             push,
		ForwardForce:          forward,
		LateralForce:          lateral,
		DragForce:             drag,
		ApparentWind:          awVec,
		ApparentWindDirection: awDir,
		ApparentWindSpeed:     awSpeed,
	}

	acceleration := (forward.Length() - drag.Length()) / b.cfg.Mass * b.cfg.AccelMultiplier
	b.speed = math.Max(0, b.speed+acceleration*deltaTime)

	b.heading = physics.WrapAngle(b.heading + b.turnRate()*deltaTime)

	b.position = b.position.Add(physics.FromHeading(b.heading).Scale(b.speed * deltaTime))

	b.updateHeel(headingVec, lateral, deltaTime)
}

// State returns a read-only snapshot of the boat.
func (b *Boat) State() State {
	return State{
		Position:              b.position,
		Heading:               b.heading,
		Speed:                 b.speed,
		SailAngle:             b.sailAngle,
		RudderAngle:           b.rudderAngle,
		HeelAngle:             b.heelAngle,
		ApparentWindDirection: b.forces.ApparentWindDirection,
		ApparentWindSpeed:     b.forces.ApparentWindSpeed,
	}
}

// Forces returns the force decomposition from the most recent tick.
// All vectors are zero-value-safe before the first Update.
func (b *Boat) Forces() ForceSet {
	return b.forces
}

// ApplyRemoteState overwrites the boat state from a replication feed,
// re-clamping every field so the invariants hold if local control resumes.
func (b *Boat) ApplyRemoteState(s State) {
	b.position = s.Position
	if !math.IsNaN(s.Heading) {
		b.heading = physics.WrapAngle(s.Heading)
	}
	b.speed = math.Max(0, s.Speed)
	if math.IsNaN(b.speed) {
		b.speed = 0
	}
	b.sailAngle = physics.Clamp(s.SailAngle, -b.cfg.MaxSailAngle, b.cfg.MaxSailAngle)
	b.rudderAngle = physics.Clamp(s.RudderAngle, -b.cfg.MaxRudderAngle, b.cfg.MaxRudderAngle)
	b.heelAngle = physics.Clamp(s.HeelAngle, -b.cfg.MaxHeelAngle, b.cfg.MaxHeelAngle)
	b.forces.ApparentWindDirection = s.ApparentWindDirection
	b.forces.ApparentWindSpeed = s.ApparentWindSpeed
}

// Heading returns the current heading in [0, 2*pi).
func (b *Boat) Heading() float64 { return b.heading }

// Speed returns the current speed in m/s.
func (b *Boat) Speed() float64 { return b.speed }

// Position returns the current position.
func (b *Boat) Position() physics.Vector3 { return b.position }

// SailAngle returns the clamped, wind-gated sail angle.
func (b *Boat) SailAngle() float64 { return b.sailAngle }

// RudderAngle returns the clamped rudder angle.
func (b *Boat) RudderAngle() float64 { return b.rudderAngle }

// HeelAngle returns the current heel (roll) angle.
func (b *Boat) HeelAngle() float64 { return b.heelAngle }
