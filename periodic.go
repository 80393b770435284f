package foam

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// degenEpsilon bounds the circumcenter determinant below which a
	// tetrahedron is treated as coplanar.
	degenEpsilon = 1e-12
	// obtuseTol keeps near-right angles out of the obtuse gate.
	obtuseTol = 1e-9
	// farLimit rejects circumcenters further than this many domain widths
	// from the unit cube.
	farLimit = 10.0
)

// Wrap maps a coordinate to its canonical periodic image in [0,1).
func Wrap(x float64) float64 {
	x -= math.Floor(x)
	if x >= 1 { // x-Floor(x) rounds up to 1 for tiny negative inputs.
		x = 0
	}
	return x
}

// WrapVec wraps every component of v into [0,1).
func WrapVec(v r3.Vec) r3.Vec {
	return r3.Vec{X: Wrap(v.X), Y: Wrap(v.Y), Z: Wrap(v.Z)}
}

// MinImage returns the shortest toroidal displacement from a to b.
// Every component of the result is in [-0.5, 0.5].
func MinImage(a, b r3.Vec) r3.Vec {
	return r3.Vec{
		X: minImage1(b.X - a.X),
		Y: minImage1(b.Y - a.Y),
		Z: minImage1(b.Z - a.Z),
	}
}

// minImage1 assumes d is a difference of wrapped coordinates, so a single
// correction suffices.
func minImage1(d float64) float64 {
	if d > 0.5 {
		d--
	} else if d < -0.5 {
		d++
	}
	return d
}

// Delta is the displacement from a to b honoring the foam's periodicity.
func (f *Foam) Delta(a, b r3.Vec) r3.Vec {
	if f.Periodic {
		return MinImage(a, b)
	}
	return r3.Sub(b, a)
}

// clamp limits x to [a,b], a <= b assumed.
func clamp(x, a, b float64) float64 {
	if x < a {
		return a
	}
	if x > b {
		return b
	}
	return x
}

// cosBetween is the cosine of the angle between u and v, clamped to [-1,1].
// Returns false when either vector is too short to carry a direction.
func cosBetween(u, v r3.Vec) (float64, bool) {
	nu := r3.Norm(u)
	nv := r3.Norm(v)
	if nu < degenEpsilon || nv < degenEpsilon {
		return 0, false
	}
	return clamp(r3.Dot(u, v)/(nu*nv), -1, 1), true
}
