package foam

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// CenterMethod selects how per-tetrahedron centers are derived.
type CenterMethod uint8

const (
	// Barycenter is the arithmetic mean of the four vertices.
	Barycenter CenterMethod = iota
	// Circumcenter is the center of the circumscribed sphere, falling back
	// to the barycenter for near-degenerate tetrahedra.
	Circumcenter
)

func (m CenterMethod) String() string {
	switch m {
	case Barycenter:
		return "barycenter"
	case Circumcenter:
		return "circumcenter"
	}
	return "unknown"
}

// unfold re-expresses the tetrahedron's vertices in the periodic image of
// its first vertex so center math can run in plain euclidean space.
func (f *Foam) unfold(tet [4]int) (a, b, c, d r3.Vec) {
	a = f.Points[tet[0]]
	b = r3.Add(a, f.Delta(a, f.Points[tet[1]]))
	c = r3.Add(a, f.Delta(a, f.Points[tet[2]]))
	d = r3.Add(a, f.Delta(a, f.Points[tet[3]]))
	return a, b, c, d
}

func (f *Foam) centerOf(tet [4]int) r3.Vec {
	a, b, c, d := f.unfold(tet)
	var ctr r3.Vec
	if f.Method == Circumcenter {
		cc, ok := circumcenter(a, b, c, d)
		if ok {
			ctr = cc
		} else {
			ctr = barycenter(a, b, c, d)
		}
	} else {
		ctr = barycenter(a, b, c, d)
	}
	if f.Periodic {
		ctr = WrapVec(ctr)
	}
	return ctr
}

func barycenter(a, b, c, d r3.Vec) r3.Vec {
	s := r3.Add(r3.Add(a, b), r3.Add(c, d))
	return r3.Scale(0.25, s)
}

// circumcenter solves the 3x3 system from pairwise differences and squared
// norms. ok is false for near-coplanar inputs, non-finite solutions and
// solutions implausibly far from the unit cube, in which case callers fall
// back to the barycenter.
func circumcenter(a, b, c, d r3.Vec) (r3.Vec, bool) {
	u := r3.Sub(b, a)
	v := r3.Sub(c, a)
	w := r3.Sub(d, a)
	den := 2 * r3.Dot(u, r3.Cross(v, w))
	if math.Abs(den) < degenEpsilon {
		return r3.Vec{}, false
	}
	rel := r3.Scale(1/den, r3.Add(
		r3.Add(
			r3.Scale(r3.Norm2(u), r3.Cross(v, w)),
			r3.Scale(r3.Norm2(v), r3.Cross(w, u)),
		),
		r3.Scale(r3.Norm2(w), r3.Cross(u, v)),
	))
	cc := r3.Add(a, rel)
	if !finite(cc) {
		return r3.Vec{}, false
	}
	if math.Abs(cc.X) > farLimit || math.Abs(cc.Y) > farLimit || math.Abs(cc.Z) > farLimit {
		return r3.Vec{}, false
	}
	return cc, true
}

func finite(v r3.Vec) bool {
	return !math.IsNaN(v.X) && !math.IsInf(v.X, 0) &&
		!math.IsNaN(v.Y) && !math.IsInf(v.Y, 0) &&
		!math.IsNaN(v.Z) && !math.IsInf(v.Z, 0)
}
