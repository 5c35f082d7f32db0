package physics

import (
	"math"
	"testing"
)

const floatTolerance = 1e-9

func vectorsAlmostEqual(a, b Vector3) bool {
	return math.Abs(a.X-b.X) < floatTolerance &&
		math.Abs(a.Y-b.Y) < floatTolerance &&
		math.Abs(a.Z-b.Z) < floatTolerance
}

func TestVector3_AddSub(t *testing.T) {
	a := Vector3{X: 1, Y: 2, Z: 3}
	b := Vector3{X: -4, Y: 0.5, Z: 2}

	sum := a.Add(b)
	if !vectorsAlmostEqual(sum, Vector3{X: -3, Y: 2.5, Z: 5}) {
		t.Errorf("Add: expected {-3, 2.5, 5}, got %+v", sum)
	}

	diff := sum.Sub(b)
	if !vectorsAlmostEqual(diff, a) {
		t.Errorf("Sub: expected %+v, got %+v", a, diff)
	}
}

func TestVector3_LengthAndNormalize(t *testing.T) {
	v := Vector3{X: 3, Y: 0, Z: 4}

	if v.Length() != 5 {
		t.Errorf("Length: expected 5, got %f", v.Length())
	}
	if v.LengthSquared() != 25 {
		t.Errorf("LengthSquared: expected 25, got %f", v.LengthSquared())
	}

	unit := v.Normalize()
	if math.Abs(unit.Length()-1) > floatTolerance {
		t.Errorf("Normalize: expected unit length, got %f", unit.Length())
	}

	zero := Vector3{}.Normalize()
	if zero != (Vector3{}) {
		t.Errorf("Normalize of zero vector: expected zero vector, got %+v", zero)
	}
}

func TestVector3_CrossY(t *testing.T) {
	tests := []struct {
		name     string
		a        Vector3
		b        Vector3
		expected float64
	}{
		{
			name:     "East cross north is positive",
			a:        Vector3{X: 1},
			b:        Vector3{Z: 1},
			expected: 1,
		},
		{
			name:     "North cross east is negative",
			a:        Vector3{Z: 1},
			b:        Vector3{X: 1},
			expected: -1,
		},
		{
			name:     "Parallel vectors are zero",
			a:        Vector3{X: 2},
			b:        Vector3{X: 5},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.CrossY(tt.b); math.Abs(got-tt.expected) > floatTolerance {
				t.Errorf("Expected %f, got %f", tt.expected, got)
			}
		})
	}
}

func TestVector3_RotateY(t *testing.T) {
	north := Vector3{Z: 1}

	east := north.RotateY(math.Pi / 2)
	if !vectorsAlmostEqual(east, Vector3{X: 1}) {
		t.Errorf("RotateY(pi/2) of north: expected east, got %+v", east)
	}

	south := north.RotateY(math.Pi)
	if !vectorsAlmostEqual(south, Vector3{Z: -1}) {
		t.Errorf("RotateY(pi) of north: expected south, got %+v", south)
	}
}

func TestFromHeading(t *testing.T) {
	tests := []struct {
		name     string
		heading  float64
		expected Vector3
	}{
		{name: "North", heading: 0, expected: Vector3{Z: 1}},
		{name: "East", heading: math.Pi / 2, expected: Vector3{X: 1}},
		{name: "South", heading: math.Pi, expected: Vector3{Z: -1}},
		{name: "West", heading: 3 * math.Pi / 2, expected: Vector3{X: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromHeading(tt.heading)
			if !vectorsAlmostEqual(got, tt.expected) {
				t.Errorf("Expected %+v, got %+v", tt.expected, got)
			}
			// FromHeading and HeadingOf are inverses for unit vectors
			if back := HeadingOf(got); math.Abs(back-WrapAngle(tt.heading)) > floatTolerance {
				t.Errorf("HeadingOf round trip: expected %f, got %f", WrapAngle(tt.heading), back)
			}
		})
	}
}

func TestWrapAngle(t *testing.T) {
	tests := []struct {
		name     string
		angle    float64
		expected float64
	}{
		{name: "Already in range", angle: 1.5, expected: 1.5},
		{name: "Negative wraps up", angle: -math.Pi / 2, expected: 3 * math.Pi / 2},
		{name: "Over full turn wraps down", angle: 2*math.Pi + 0.25, expected: 0.25},
		{name: "Exactly full turn is zero", angle: 2 * math.Pi, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WrapAngle(tt.angle)
			if math.Abs(got-tt.expected) > floatTolerance {
				t.Errorf("Expected %f, got %f", tt.expected, got)
			}
			if got < 0 || got >= 2*math.Pi {
				t.Errorf("Wrapped angle %f outside [0, 2*pi)", got)
			}
		})
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(2, -1, 1); got != 1 {
		t.Errorf("Clamp above max: expected 1, got %f", got)
	}
	if got := Clamp(-2, -1, 1); got != -1 {
		t.Errorf("Clamp below min: expected -1, got %f", got)
	}
	if got := Clamp(0.5, -1, 1); got != 0.5 {
		t.Errorf("Clamp in range: expected 0.5, got %f", got)
	}
	if got := Clamp(math.NaN(), -1, 1); got != -1 {
		t.Errorf("Clamp NaN: expected min, got %f", got)
	}
}
