// Package wind supplies true-wind state to the boat dynamics. Sources are
// read-only from the dynamics side; anything that varies over time is
// advanced explicitly by the session engine so simulation runs stay
// deterministic.
package wind

import (
	"math"

	"github.com/opd-ai/go-sail/pkg/physics"
)

// Source provides the true wind as seen by the world frame.
type Source interface {
	// Direction returns the horizontal unit vector the wind travels along.
	Direction() physics.Vector3
	// Speed returns the true wind speed in m/s, never negative.
	Speed() float64
}

// Advancer is implemented by sources whose state evolves over time.
// The engine calls Advance once per tick before updating boats.
type Advancer interface {
	Advance(deltaTime float64)
}

// ConstantWind is a fixed wind vector.
type ConstantWind struct {
	direction physics.Vector3
	speed     float64
}

// NewConstant creates a constant wind from a travel direction and speed.
// The direction is normalized; a zero direction with nonzero speed keeps
// the speed but reports a stable arbitrary unit direction.
func NewConstant(direction physics.Vector3, speed float64) *ConstantWind {
	return &ConstantWind{
		direction: safeUnit(direction),
		speed:     math.Max(0, speed),
	}
}

// FromBearing creates a constant wind from a meteorological bearing:
// the compass direction in degrees the wind blows FROM (0 = a northerly,
// 90 = an easterly). Speed is in m/s.
func FromBearing(bearingDeg, speed float64) *ConstantWind {
	travel := bearingToTravel(bearingDeg)
	return NewConstant(travel, speed)
}

// Direction returns the horizontal unit vector the wind travels along.
func (w *ConstantWind) Direction() physics.Vector3 {
	return w.direction
}

// Speed returns the true wind speed in m/s.
func (w *ConstantWind) Speed() float64 {
	return w.speed
}

// OscillatingWind shifts direction sinusoidally around a base bearing.
// The oscillation is a pure function of elapsed simulation time, so two
// runs fed identical tick sequences see identical wind.
type OscillatingWind struct {
	baseBearingDeg float64
	amplitudeRad   float64
	period         float64
	speed          float64
	elapsed        float64
}

// NewOscillating creates a wind that swings +/- amplitude radians around
// the given FROM-bearing with the given period in seconds.
func NewOscillating(bearingDeg, speed, amplitudeRad, periodSec float64) *OscillatingWind {
	if periodSec <= 0 {
		periodSec = 1
	}
	return &OscillatingWind{
		baseBearingDeg: bearingDeg,
		amplitudeRad:   amplitudeRad,
		period:         periodSec,
		speed:          math.Max(0, speed),
	}
}

// Advance moves simulation time forward.
func (w *OscillatingWind) Advance(deltaTime float64) {
	if deltaTime > 0 {
		w.elapsed += deltaTime
	}
}

// Direction returns the current travel direction of the wind.
func (w *OscillatingWind) Direction() physics.Vector3 {
	shift := w.amplitudeRad * math.Sin(2*math.Pi*w.elapsed/w.period)
	return bearingToTravel(w.baseBearingDeg).RotateY(shift)
}

// Speed returns the true wind speed in m/s.
func (w *OscillatingWind) Speed() float64 {
	return w.speed
}

// bearingToTravel converts a compass FROM-bearing in degrees to the unit
// vector the wind travels along. A northerly (bearing 0) travels south.
func bearingToTravel(bearingDeg float64) physics.Vector3 {
	from := physics.FromHeading(bearingDeg * math.Pi / 180)
	return from.Scale(-1)
}

func safeUnit(v physics.Vector3) physics.Vector3 {
	unit := v.Normalize()
	if unit == (physics.Vector3{}) {
		return physics.Vector3{Z: 1}
	}
	return unit
}
