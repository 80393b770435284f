// Package dynamics deforms a foam's point set toward score-driven target
// face/volume ratios. Projection is XPBD-flavored: a fixed number of
// iterations, compliance-softened displacements, a hard per-iteration
// displacement clamp, and an immediate periodic rewrap after every move.
package dynamics

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/voroforge/foam"
)

const (
	minFaceArea = 1e-12
	minTetVol   = 1e-14
)

// TargetMode selects the primitive the deformation targets bind to.
type TargetMode uint8

const (
	// PerFace treats a directive as a fractional area-change target for
	// the dual edge's shared Delaunay face.
	PerFace TargetMode = iota
	// PerTet area-weights the directives of all dual edges bounding a
	// tetrahedron into one volume-change target.
	PerTet
)

// Options is the full physical-step configuration surface.
type Options struct {
	// Threshold splits scores into contractive (below) and expansive
	// (above) directives.
	Threshold float64
	// Contract/Expand enable the respective directive signs; directives
	// whose sign matches no enabled mode are dropped.
	Contract bool
	Expand   bool
	// Invert flips directive signs.
	Invert bool
	// Strength g scales directive magnitudes.
	Strength float64
	// Shaping is the exponent gamma applied to |score-threshold|; 1 is
	// identity.
	Shaping float64
	// MaxStep clamps the absolute fractional target per step.
	MaxStep float64
	// Compliance softens displacements by 1/(1+Compliance).
	Compliance float64
	// Clamp bounds every single vertex displacement per iteration.
	Clamp float64
	// Iterations cycles the projection over all affected primitives.
	Iterations int
	Mode       TargetMode
}

// DefaultOptions returns a stable starting parameterization.
func DefaultOptions() Options {
	return Options{
		Threshold:  0.5,
		Contract:   true,
		Expand:     true,
		Strength:   0.1,
		Shaping:    1,
		MaxStep:    0.2,
		Compliance: 1,
		Clamp:      0.01,
		Iterations: 4,
		Mode:       PerFace,
	}
}

// Stats summarizes one Project invocation.
type Stats struct {
	// Affected counts primitives that received a non-zero directive.
	Affected int
	// MeanDisp and MaxDisp aggregate vertex displacement magnitudes.
	MeanDisp float64
	MaxDisp  float64
}

// directive maps a score to a signed fractional target, or ok=false when
// the score carries no enabled deformation.
func directive(score float64, opt Options) (float64, bool) {
	r := score - opt.Threshold
	if opt.Invert {
		r = -r
	}
	if r == 0 {
		return 0, false
	}
	if r < 0 && !opt.Contract {
		return 0, false
	}
	if r > 0 && !opt.Expand {
		return 0, false
	}
	mag := opt.Strength * math.Pow(math.Abs(r), opt.Shaping)
	if mag > opt.MaxStep {
		mag = opt.MaxStep
	}
	return math.Copysign(mag, r), true
}

// Project applies the physical step to f.Points in place and refreshes the
// foam's centers. Degenerate primitives are skipped for the iteration
// rather than amplified.
func Project(f *foam.Foam, scores map[foam.EdgeKey]float64, opt Options) Stats {
	if opt.Iterations <= 0 || len(scores) == 0 || len(f.Edges) == 0 {
		return Stats{}
	}
	var st Stats
	var disps []float64
	soft := 1 / (1 + opt.Compliance)

	for it := 0; it < opt.Iterations; it++ {
		first := it == 0
		switch opt.Mode {
		case PerTet:
			projectTets(f, scores, opt, soft, first, &st, &disps)
		default:
			projectFaces(f, scores, opt, soft, first, &st, &disps)
		}
	}
	if len(disps) > 0 {
		st.MeanDisp = stat.Mean(disps, nil)
		for _, d := range disps {
			if d > st.MaxDisp {
				st.MaxDisp = d
			}
		}
	}
	return st
}

func projectFaces(f *foam.Foam, scores map[foam.EdgeKey]float64, opt Options, soft float64, first bool, st *Stats, disps *[]float64) {
	for ei := range f.Edges {
		e := &f.Edges[ei]
		s, ok := scores[e.Key]
		if !ok {
			continue
		}
		p, ok := directive(s, opt)
		if !ok {
			continue
		}
		// Unfold the face around its first vertex so centroid math is
		// euclidean, then write wrapped positions back.
		v0 := f.Points[e.Face[0]]
		v := [3]r3.Vec{
			v0,
			r3.Add(v0, f.Delta(v0, f.Points[e.Face[1]])),
			r3.Add(v0, f.Delta(v0, f.Points[e.Face[2]])),
		}
		area := 0.5 * r3.Norm(r3.Cross(r3.Sub(v[1], v[0]), r3.Sub(v[2], v[0])))
		if area < minFaceArea {
			continue
		}
		if first {
			st.Affected++
		}
		ctr := r3.Scale(1.0/3.0, r3.Add(r3.Add(v[0], v[1]), v[2]))
		for i, idx := range e.Face {
			dir := r3.Sub(v[i], ctr)
			n := r3.Norm(dir)
			if n < 1e-12 {
				continue
			}
			// Area scales with the square of the in-plane distance, so
			// half the fractional target lands on each radius.
			step := clampAbs(0.5*p*n*soft, opt.Clamp)
			moved := r3.Add(v[i], r3.Scale(step/n, dir))
			writeBack(f, idx, moved)
			*disps = append(*disps, math.Abs(step))
		}
	}
	f.RecomputeCenters()
}

func projectTets(f *foam.Foam, scores map[foam.EdgeKey]float64, opt Options, soft float64, first bool, st *Stats, disps *[]float64) {
	for t, tet := range f.Tets {
		wsum, asum := 0.0, 0.0
		for _, ei := range f.TetEdges(t) {
			e := &f.Edges[ei]
			s, ok := scores[e.Key]
			if !ok {
				continue
			}
			p, ok := directive(s, opt)
			if !ok {
				continue
			}
			area := faceArea(f, e.Face)
			wsum += p * area
			asum += area
		}
		if asum <= 0 {
			continue
		}
		p := wsum / asum

		a := f.Points[tet[0]]
		b := r3.Add(a, f.Delta(a, f.Points[tet[1]]))
		c := r3.Add(a, f.Delta(a, f.Points[tet[2]]))
		d := r3.Add(a, f.Delta(a, f.Points[tet[3]]))
		vol := r3.Dot(r3.Sub(b, a), r3.Cross(r3.Sub(c, a), r3.Sub(d, a))) / 6
		if math.Abs(vol) < minTetVol {
			continue
		}
		if first {
			st.Affected++
		}
		sign := 1.0
		if vol < 0 {
			sign = -1
		}
		grads := [4]r3.Vec{
			r3.Scale(1.0/6.0, r3.Cross(r3.Sub(d, b), r3.Sub(c, b))),
			r3.Scale(1.0/6.0, r3.Cross(r3.Sub(c, a), r3.Sub(d, a))),
			r3.Scale(1.0/6.0, r3.Cross(r3.Sub(d, a), r3.Sub(b, a))),
			r3.Scale(1.0/6.0, r3.Cross(r3.Sub(b, a), r3.Sub(c, a))),
		}
		scale := math.Cbrt(math.Abs(vol))
		pos := [4]r3.Vec{a, b, c, d}
		for i := range grads {
			gn := r3.Norm(grads[i])
			if gn < 1e-12 {
				continue
			}
			step := clampAbs(p*soft*scale, opt.Clamp)
			moved := r3.Add(pos[i], r3.Scale(sign*step/gn, grads[i]))
			writeBack(f, tet[i], moved)
			*disps = append(*disps, math.Abs(step))
		}
	}
	f.RecomputeCenters()
}

func faceArea(f *foam.Foam, face [3]int) float64 {
	v0 := f.Points[face[0]]
	v1 := r3.Add(v0, f.Delta(v0, f.Points[face[1]]))
	v2 := r3.Add(v0, f.Delta(v0, f.Points[face[2]]))
	return 0.5 * r3.Norm(r3.Cross(r3.Sub(v1, v0), r3.Sub(v2, v0)))
}

func writeBack(f *foam.Foam, idx int, p r3.Vec) {
	if f.Periodic {
		p = foam.WrapVec(p)
	}
	f.Points[idx] = p
}

func clampAbs(x, lim float64) float64 {
	if x > lim {
		return lim
	}
	if x < -lim {
		return -lim
	}
	return x
}
