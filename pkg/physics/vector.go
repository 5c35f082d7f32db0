// pkg/physics/vector.go
package physics

import "math"

// Vector3 represents a 3D vector in a right-handed, Y-up frame:
// X points east, Z points north, Y is vertical. Boat dynamics keeps
// Y fixed at the water plane; the third component is carried so
// positions and forces match the 3D world the host application uses.
type Vector3 struct {
	X float64
	Y float64
	Z float64
}

// Up is the vertical unit vector.
var Up = Vector3{Y: 1}

// Add returns the sum of two vectors
func (v Vector3) Add(other Vector3) Vector3 {
	return Vector3{
		X: v.X + other.X,
		Y: v.Y + other.Y,
		Z: v.Z + other.Z,
	}
}

// Sub returns the difference between two vectors
func (v Vector3) Sub(other Vector3) Vector3 {
	return Vector3{
		X: v.X - other.X,
		Y: v.Y - other.Y,
		Z: v.Z - other.Z,
	}
}

// Scale multiplies the vector by a scalar value
func (v Vector3) Scale(factor float64) Vector3 {
	return Vector3{
		X: v.X * factor,
		Y: v.Y * factor,
		Z: v.Z * factor,
	}
}

// Length returns the magnitude of the vector
func (v Vector3) Length() float64 {
	return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z)
}

// LengthSquared returns magnitude squared (optimization for comparisons)
func (v Vector3) LengthSquared() float64 {
	return v.X*v.X + v.Y*v.Y + v.Z*v.Z
}

// Normalize returns a unit vector in the same direction.
// The zero vector normalizes to itself.
func (v Vector3) Normalize() Vector3 {
	length := v.Length()
	if length == 0 {
		return Vector3{}
	}
	return Vector3{
		X: v.X / length,
		Y: v.Y / length,
		Z: v.Z / length,
	}
}

// Dot returns the dot product of two vectors
func (v Vector3) Dot(other Vector3) float64 {
	return v.X*other.X + v.Y*other.Y + v.Z*other.Z
}

// Cross returns the cross product of two vectors
func (v Vector3) Cross(other Vector3) Vector3 {
	return Vector3{
		X: v.Y*other.Z - v.Z*other.Y,
		Y: v.Z*other.X - v.X*other.Z,
		Z: v.X*other.Y - v.Y*other.X,
	}
}

// CrossY returns the signed horizontal cross product of two vectors.
// For horizontal vectors the sign tells which side `other` lies on
// relative to v, which is the only thing wind-side decisions need.
func (v Vector3) CrossY(other Vector3) float64 {
	return v.X*other.Z - v.Z*other.X
}

// RotateY rotates the vector around the vertical axis by angle (in radians)
func (v Vector3) RotateY(angle float64) Vector3 {
	cos := math.Cos(angle)
	sin := math.Sin(angle)
	return Vector3{
		X: v.X*cos + v.Z*sin,
		Y: v.Y,
		Z: -v.X*sin + v.Z*cos,
	}
}

// Distance returns the distance between two vectors
func (v Vector3) Distance(other Vector3) float64 {
	return v.Sub(other).Length()
}

// FromHeading creates a horizontal unit vector from a heading angle.
// Heading 0 faces north (+Z), pi/2 faces east (+X).
func FromHeading(heading float64) Vector3 {
	return Vector3{
		X: math.Sin(heading),
		Z: math.Cos(heading),
	}
}

// HeadingOf returns the heading angle of a horizontal vector,
// wrapped into [0, 2*pi).
func HeadingOf(v Vector3) float64 {
	return WrapAngle(math.Atan2(v.X, v.Z))
}

// WrapAngle normalizes an angle into [0, 2*pi)
func WrapAngle(angle float64) float64 {
	wrapped := math.Mod(angle, 2*math.Pi)
	if wrapped < 0 {
		wrapped += 2 * math.Pi
	}
	return wrapped
}

// Clamp limits a value to the range [min, max]. NaN clamps to min.
func Clamp(value, min, max float64) float64 {
	if math.IsNaN(value) {
		return min
	}
	if value < min {
		return min
	}
	if value > max {
		return max
	}
	return value
}
