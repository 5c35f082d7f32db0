// pkg/dynamics/forces.go
package dynamics

import (
	"math"

	"github.com/opd-ai/go-sail/pkg/physics"
)

// Tuning constants for the sail force model. The push weight and lift
// curve shape are empirical values carried over from the tuned boat,
// not derived quantities.
const (
	// apparentWindEpsilon floors the apparent wind speed so downstream
	// normalization never divides by zero.
	apparentWindEpsilon = 0.01

	// optimalLiftAngle is the angle of attack producing peak lift.
	optimalLiftAngle = 15 * math.Pi / 180

	// criticalStallAngle is where lift starts collapsing.
	criticalStallAngle = math.Pi / 7

	// liftCurveWidth shapes the gaussian window around the optimal angle.
	liftCurveWidth = 0.2

	// stallDecayRate controls how fast lift dies past the critical angle.
	stallDecayRate = 2.0

	// pushWeight scales direct pressure relative to lift's full weight.
	pushWeight = 0.6

	// minSailOffset keeps the sail off the centerline on the windward
	// side (~3 degrees), so the trimmed side is never ambiguous.
	minSailOffset = 0.05

	// maxDeltaTime bounds integration error on frame hitches.
	maxDeltaTime = 0.1

	// heelApplyScale and heelRecoverScale make heeling over faster than
	// coming back upright.
	heelApplyScale   = 1.2
	heelRecoverScale = 0.8

	knotsToMetersPerSecond = 0.514444
)

// ForceSet is the per-tick force decomposition. It is recomputed on every
// update and exposed read-only; all vectors are zero-value-safe.
type ForceSet struct {
	SailForce             physics.Vector3 `json:"sailForce"`
	LiftForce             physics.Vector3 `json:"liftForce"`
	PushForce             physics.Vector3 `json:"pushForce"`
	ForwardForce          physics.Vector3 `json:"forwardForce"`
	LateralForce          physics.Vector3 `json:"lateralForce"`
	DragForce             physics.Vector3 `json:"dragForce"`
	ApparentWind          physics.Vector3 `json:"apparentWind"`
	ApparentWindDirection physics.Vector3 `json:"apparentWindDirection"`
	ApparentWindSpeed     float64         `json:"apparentWindSpeed"`
}

// signOr returns the sign of v, or fallback when v is exactly zero.
// Wind perfectly aligned with the sail must resolve to a deterministic
// side instead of leaving the gating factor undefined.
func signOr(v, fallback float64) float64 {
	if v > 0 {
		return 1
	}
	if v < 0 {
		return -1
	}
	return fallback
}

// apparentWind combines true wind and boat velocity. The returned speed is
// floored at apparentWindEpsilon; the direction falls back to a stable unit
// vector (wind on the bow) when the apparent wind is too weak to normalize.
func (b *Boat) apparentWind(headingVec physics.Vector3) (vec, dir physics.Vector3, speed float64) {
	var trueWind physics.Vector3
	if b.wind != nil {
		trueWind = b.wind.Direction().Scale(b.wind.Speed())
	}

	vec = trueWind.Sub(headingVec.Scale(b.speed))
	raw := vec.Length()
	speed = math.Max(apparentWindEpsilon, raw)
	if raw > apparentWindEpsilon {
		dir = vec.Normalize()
	} else {
		dir = headingVec.Scale(-1)
	}
	return vec, dir, speed
}

// liftCoefficient evaluates the lift curve for an angle of attack.
// Angles past 90 degrees mirror back (the sail works on either tack).
func (b *Boat) liftCoefficient(angle float64) float64 {
	normalized := math.Min(angle, math.Pi-angle)
	if !b.cfg.StallModel {
		return math.Sin(2 * normalized)
	}
	if normalized < criticalStallAngle {
		return preStallLift(normalized)
	}
	// Post-stall: lift falls off rapidly from its value at the critical angle.
	return preStallLift(criticalStallAngle) * math.Exp(-(normalized-criticalStallAngle)*stallDecayRate)
}

func preStallLift(angle float64) float64 {
	window := math.Exp(-math.Pow(angle-optimalLiftAngle, 2) / liftCurveWidth)
	return math.Sin(2*angle) * window
}

// computeSailForce decomposes the aerodynamic force on the sail into lift
// (perpendicular to the apparent wind, stall-limited) and push (direct
// pressure along the sail normal, never stalls).
func (b *Boat) computeSailForce(awDir physics.Vector3, awSpeed float64) (sail, lift, push physics.Vector3) {
	// Becalmed: no true wind means no sail force, even if boat motion
	// produces apparent wind.
	if b.wind == nil || b.wind.Speed() <= 0 {
		return physics.Vector3{}, physics.Vector3{}, physics.Vector3{}
	}
	if awSpeed <= apparentWindEpsilon {
		return physics.Vector3{}, physics.Vector3{}, physics.Vector3{}
	}

	sailDir := physics.FromHeading(b.heading + b.sailAngle)
	sailNormal := sailDir.RotateY(math.Pi / 2)

	// Which side of the sail does the apparent wind strike?
	windCrossSail := sailDir.CrossY(awDir)
	windSign := signOr(windCrossSail, 1)

	windSailFactor := 1.0
	if b.cfg.WindSideGating {
		sailSide := signOr(b.sailAngle, 0)
		windSailFactor = math.Max(0, -sailSide*windSign)
	}

	// Angle of attack between apparent wind and sail chord.
	angle := math.Acos(physics.Clamp(awDir.Dot(sailDir), -1, 1))

	liftDir := physics.Up.Cross(awDir).Scale(windSign)
	liftMag := awSpeed * b.liftCoefficient(angle) * b.cfg.SailEfficiency * windSailFactor
	lift = liftDir.Scale(liftMag)

	pushDir := sailNormal.Scale(-windSign)
	pushMag := awSpeed * math.Abs(math.Sin(angle)) * b.cfg.SailEfficiency * pushWeight * windSailFactor
	push = pushDir.Scale(pushMag)

	return lift.Add(push), lift, push
}

// splitForce projects the sail force onto the boat's axes. The forward
// component is clamped so the sail can never push the boat backward;
// everything left over is lateral (heeling) force.
func (b *Boat) splitForce(headingVec, sailForce physics.Vector3) (forward, lateral physics.Vector3) {
	along := sailForce.Dot(headingVec)
	if along > 0 {
		forward = headingVec.Scale(along)
	}
	lateral = sailForce.Sub(forward)
	return forward, lateral
}

// dragForce opposes the boat's forward motion using the speed from the
// previous tick. It never opposes lateral motion.
func (b *Boat) dragForce(headingVec physics.Vector3) physics.Vector3 {
	magnitude := b.cfg.DragCoefficient * math.Pow(b.speed, b.cfg.DragExponent)
	return headingVec.Scale(-magnitude)
}

// turnRate converts the rudder angle into a heading rate. Authority grows
// with speed but never drops below half, so the boat answers the helm
// even when nearly stopped.
func (b *Boat) turnRate() float64 {
	speedFactor := 0.5 + 0.5*b.speed
	return -b.rudderAngle * speedFactor * b.cfg.RudderEfficiency / b.cfg.Inertia
}

// updateHeel smooths the lateral force magnitude into a roll angle.
// Heeling further uses a faster rate than recovering toward upright.
func (b *Boat) updateHeel(headingVec, lateral physics.Vector3, deltaTime float64) {
	magnitude := lateral.Length()
	if b.cfg.HeelSoftening {
		magnitude = math.Sqrt(magnitude)
	}

	lateralDir := physics.Up.Cross(headingVec)
	heelSign := signOr(lateral.Dot(lateralDir), 0)
	target := math.Min(b.cfg.MaxHeelAngle, magnitude*b.cfg.HeelFactor) * heelSign

	rate := b.cfg.HeelRecoveryRate * heelRecoverScale
	if math.Abs(target) > math.Abs(b.heelAngle) {
		rate = b.cfg.HeelRecoveryRate * heelApplyScale
	}

	b.heelAngle += (target - b.heelAngle) * math.Min(1, deltaTime*rate)
	b.heelAngle = physics.Clamp(b.heelAngle, -b.cfg.MaxHeelAngle, b.cfg.MaxHeelAngle)
}
