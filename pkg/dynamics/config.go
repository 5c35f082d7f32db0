// pkg/dynamics/config.go
package dynamics

import "math"

// PhysicsConfig contains the tuning for one boat instance. It is supplied
// at construction and never mutated afterwards; variants that historically
// lived in parallel force-model forks (drag exponent, gating, stall curve,
// heel softening) are explicit fields here instead.
type PhysicsConfig struct {
	Mass             float64 `json:"mass"`
	DragCoefficient  float64 `json:"dragCoefficient"`
	DragExponent     float64 `json:"dragExponent"` // 2 (quadratic) or 3 (cubic)
	SailEfficiency   float64 `json:"sailEfficiency"`
	RudderEfficiency float64 `json:"rudderEfficiency"`
	Inertia          float64 `json:"inertia"` // yaw inertia
	HeelFactor       float64 `json:"heelFactor"`
	HeelRecoveryRate float64 `json:"heelRecoveryRate"`
	MaxSailAngle     float64 `json:"maxSailAngle"`
	MaxRudderAngle   float64 `json:"maxRudderAngle"`
	MaxHeelAngle     float64 `json:"maxHeelAngle"`
	AccelMultiplier  float64 `json:"accelMultiplier"` // feel tuning, scales net acceleration

	WindSideGating bool `json:"windSideGating"` // zero force when wind strikes the back of the sail
	StallModel     bool `json:"stallModel"`     // lift collapses past the critical angle of attack
	HeelSoftening  bool `json:"heelSoftening"`  // sqrt the lateral force before scaling into heel
}

// DefaultPhysicsConfig returns the tuning used by the stock boat.
func DefaultPhysicsConfig() PhysicsConfig {
	return PhysicsConfig{
		Mass:             120,
		DragCoefficient:  0.8,
		DragExponent:     2,
		SailEfficiency:   2.0,
		RudderEfficiency: 2.0,
		Inertia:          3.0,
		HeelFactor:       0.08,
		HeelRecoveryRate: 2.0,
		MaxSailAngle:     math.Pi / 2,
		MaxRudderAngle:   math.Pi / 4,
		MaxHeelAngle:     0.6,
		AccelMultiplier:  1.0,
		WindSideGating:   true,
		StallModel:       true,
		HeelSoftening:    false,
	}
}

// withDefaults replaces zero or nonsensical values so a partially filled
// config (e.g. from JSON) still yields a stable simulation.
func (c PhysicsConfig) withDefaults() PhysicsConfig {
	def := DefaultPhysicsConfig()
	if c.Mass <= 0 || math.IsNaN(c.Mass) {
		c.Mass = def.Mass
	}
	if c.DragCoefficient < 0 || math.IsNaN(c.DragCoefficient) {
		c.DragCoefficient = def.DragCoefficient
	}
	if c.DragExponent <= 0 || math.IsNaN(c.DragExponent) {
		c.DragExponent = def.DragExponent
	}
	if c.SailEfficiency < 0 || math.IsNaN(c.SailEfficiency) {
		c.SailEfficiency = def.SailEfficiency
	}
	if c.RudderEfficiency < 0 || math.IsNaN(c.RudderEfficiency) {
		c.RudderEfficiency = def.RudderEfficiency
	}
	if c.Inertia <= 0 || math.IsNaN(c.Inertia) {
		c.Inertia = def.Inertia
	}
	if c.HeelFactor < 0 || math.IsNaN(c.HeelFactor) {
		c.HeelFactor = def.HeelFactor
	}
	if c.HeelRecoveryRate < 0 || math.IsNaN(c.HeelRecoveryRate) {
		c.HeelRecoveryRate = def.HeelRecoveryRate
	}
	if c.MaxSailAngle <= 0 || math.IsNaN(c.MaxSailAngle) {
		c.MaxSailAngle = def.MaxSailAngle
	}
	if c.MaxRudderAngle <= 0 || math.IsNaN(c.MaxRudderAngle) {
		c.MaxRudderAngle = def.MaxRudderAngle
	}
	if c.MaxHeelAngle <= 0 || math.IsNaN(c.MaxHeelAngle) {
		c.MaxHeelAngle = def.MaxHeelAngle
	}
	if c.AccelMultiplier <= 0 || math.IsNaN(c.AccelMultiplier) {
		c.AccelMultiplier = def.AccelMultiplier
	}
	return c
}
