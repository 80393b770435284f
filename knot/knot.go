// Package knot classifies every facet of a foam by the cycles ("knots") of
// its steepest-alignment successor function. Flow crossing a facet continues
// through the face of the mirror tetrahedron whose center-to-center
// direction best aligns with the incoming direction; following that single
// successor either runs off an open end, merges into an already resolved
// path, or closes a cycle.
package knot

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/voroforge/foam"
)

// Knot is one detected cycle plus catchment accounting.
type Knot struct {
	// Facets are the cycle members, in traversal order.
	Facets []foam.Facet
	// NumCatched counts the off-cycle facets whose path drains into the
	// cycle.
	NumCatched int
}

// Result holds the per-facet classification. Facets are indexed by their
// arena id, 4*tet+face.
type Result struct {
	// KnotID is 0 for facets with no knot on their path; member and
	// feeder facets carry the 1-based index into Knots.
	KnotID []int32
	// Dist is the path length to the knot; 0 for knot members.
	Dist []int32
	// Knots is indexed by KnotID-1.
	Knots []Knot
	// Catchment is a per-tetrahedron relative measure of how much flow
	// the local knots absorb.
	Catchment []float64
}

// Detect runs successor tracing over all facets of f. An empty foam yields
// an empty result.
func Detect(f *foam.Foam) *Result {
	succ := successors(f)
	res := resolve(succ)
	res.Catchment = catchment(f, res)
	return res
}

// successors evaluates the steepest-alignment rule for every facet. -1
// marks a facet with no successor (boundary or degenerate directions).
func successors(f *foam.Foam) []int32 {
	succ := make([]int32, 4*len(f.Tets))
	for t := range f.Tets {
		for face := 0; face < 4; face++ {
			succ[4*t+face] = successorOf(f, t, face)
		}
	}
	return succ
}

func successorOf(f *foam.Foam, tet, face int) int32 {
	m := f.MirrorOf(tet, face)
	if m.Tet < 0 {
		return -1
	}
	in := f.Delta(f.Centers[tet], f.Centers[m.Tet])
	best := int32(-1)
	bestCos := -2.0
	for g := 0; g < 4; g++ {
		if g == m.Face {
			continue // immediate backtrack
		}
		mm := f.MirrorOf(m.Tet, g)
		if mm.Tet < 0 {
			continue
		}
		dir := f.Delta(f.Centers[m.Tet], f.Centers[mm.Tet])
		cos, ok := alignCos(in, dir)
		if !ok {
			continue
		}
		if cos > bestCos {
			bestCos = cos
			best = int32(4*m.Tet + g)
		}
	}
	return best
}

const (
	unvisited uint8 = iota
	onPath
	done
)

// resolve walks the functional graph. Paths are tracked with an explicit
// position table so a freshly discovered cycle is the suffix starting at
// the repeated facet.
func resolve(succ []int32) *Result {
	n := len(succ)
	res := &Result{
		KnotID: make([]int32, n),
		Dist:   make([]int32, n),
	}
	state := make([]uint8, n)
	pathPos := make([]int32, n)
	var path []int32

	for start := 0; start < n; start++ {
		if state[start] != unvisited {
			continue
		}
		path = path[:0]
		cur := int32(start)
		state[cur] = onPath
		pathPos[cur] = 0
		path = append(path, cur)

		for {
			next := succ[cur]
			if next < 0 {
				// Open end: no knot anywhere on this path.
				for _, fc := range path {
					state[fc] = done
				}
				break
			}
			if state[next] == onPath {
				// New cycle: suffix from the repeated facet.
				p := pathPos[next]
				k := int32(len(res.Knots) + 1)
				members := make([]foam.Facet, 0, int32(len(path))-p)
				for _, fc := range path[p:] {
					state[fc] = done
					res.KnotID[fc] = k
					res.Dist[fc] = 0
					members = append(members, foam.Facet{Tet: int(fc) / 4, Face: int(fc) % 4})
				}
				for i, fc := range path[:p] {
					state[fc] = done
					res.KnotID[fc] = k
					res.Dist[fc] = p - int32(i)
				}
				res.Knots = append(res.Knots, Knot{Facets: members, NumCatched: int(p)})
				break
			}
			if state[next] == done {
				// Merge into a resolved component.
				k := res.KnotID[next]
				base := res.Dist[next]
				for i, fc := range path {
					state[fc] = done
					res.KnotID[fc] = k
					if k > 0 {
						res.Dist[fc] = base + int32(len(path)-i)
					}
				}
				if k > 0 {
					res.Knots[k-1].NumCatched += len(path)
				}
				break
			}
			state[next] = onPath
			pathPos[next] = int32(len(path))
			path = append(path, next)
			cur = next
		}
	}
	return res
}

// catchment averages, over each tetrahedron's four facets, the relative
// absorption (knotLength+numCatched)/knotLength of facets sitting on a
// knot. Off-knot facets contribute 0.
func catchment(f *foam.Foam, res *Result) []float64 {
	out := make([]float64, len(f.Tets))
	for t := range f.Tets {
		sum := 0.0
		for face := 0; face < 4; face++ {
			id := 4*t + face
			k := res.KnotID[id]
			if k == 0 || res.Dist[id] != 0 {
				continue
			}
			kn := &res.Knots[k-1]
			kl := float64(len(kn.Facets))
			sum += (kl + float64(kn.NumCatched)) / kl
		}
		out[t] = sum / 4
	}
	return out
}

// alignCos is the clamped cosine between u and v; ok is false for
// degenerate directions (coincident centers).
func alignCos(u, v r3.Vec) (float64, bool) {
	nu := r3.Norm(u)
	nv := r3.Norm(v)
	if nu < 1e-12 || nv < 1e-12 {
		return 0, false
	}
	cos := r3.Dot(u, v) / (nu * nv)
	if cos < -1 {
		cos = -1
	} else if cos > 1 {
		cos = 1
	}
	return cos, true
}
