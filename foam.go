// Package foam derives the dual (Voronoi) topology of a periodic 3D Delaunay
// tetrahedralization: per-tetrahedron centers, mirrored facet adjacency, the
// dual edge set with its edge<->face maps, and the directional half-edge
// graph used by the scoring engines. The tetrahedralization itself is an
// external collaborator; this package only consumes index quadruples.
package foam

import (
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"
)

// Input contract violations. These indicate a broken upstream triangulator
// and abort the build; numerical degeneracy never surfaces as an error.
var (
	ErrTetOutOfRange = errors.New("foam: tetrahedron references out-of-range point index")
	ErrTetRepeated   = errors.New("foam: tetrahedron with repeated vertex")
	ErrNonManifold   = errors.New("foam: face shared by more than two tetrahedra")
	ErrDuplicateEdge = errors.New("foam: tetrahedron pair shares more than one face")
)

// EdgeKey identifies a dual edge: the two tetrahedron indices packed into a
// single integer, lower index in the high word.
type EdgeKey uint64

// MakeEdgeKey builds the canonical key for the unordered pair {a,b}.
func MakeEdgeKey(a, b int) EdgeKey {
	if a > b {
		a, b = b, a
	}
	return EdgeKey(uint64(uint32(a))<<32 | uint64(uint32(b)))
}

// Tets returns the two tetrahedron indices, ascending.
func (k EdgeKey) Tets() (lo, hi int) {
	return int(k >> 32), int(uint32(k))
}

// Facet addresses one triangular face of a tetrahedron. Face is the local
// index of the opposite vertex. A Facet with Tet < 0 is absent.
type Facet struct {
	Tet  int
	Face int
}

// ID is the arena index of the facet, 4*Tet+Face.
func (fc Facet) ID() int { return 4*fc.Tet + fc.Face }

// tetFace lists, per local face index, the vertex slots spanning the face.
// Face i is opposite vertex i.
var tetFace = [4][3]int{{1, 2, 3}, {0, 2, 3}, {0, 1, 3}, {0, 1, 2}}

// Edge is one dual (Voronoi) edge: the connection between the centers of two
// tetrahedra sharing a Delaunay face.
type Edge struct {
	Key  EdgeKey
	Tets [2]int // ascending
	Face [3]int // shared face vertex indices, sorted ascending
}

// Other returns the endpoint opposite to tet.
func (e Edge) Other(tet int) int {
	if e.Tets[0] == tet {
		return e.Tets[1]
	}
	return e.Tets[0]
}

// Options configures the topology build.
type Options struct {
	Periodic bool
	Method   CenterMethod
}

// Foam bundles the derived dual topology for one points/tetrahedra snapshot.
// Points is aliased, not copied: the constraint projector mutates positions
// in place and calls RecomputeCenters.
type Foam struct {
	Points   []r3.Vec
	Tets     [][4]int
	Centers  []r3.Vec
	Periodic bool
	Method   CenterMethod

	// Mirror[t][f] is the facet mirroring facet f of tetrahedron t, or
	// Tet == -1 on a domain boundary (non-periodic mode only).
	Mirror [][4]Facet
	Edges  []Edge

	// Fingerprint is a cheap change-detection hash over the topology. It
	// is stable across pure position updates.
	Fingerprint uint64

	edgeIdx  map[EdgeKey]int
	faceIdx  map[[3]int]EdgeKey
	tetEdges [][]int
}

// New builds the full dual topology. The tetrahedra slice is owned by the
// caller and never modified.
func New(points []r3.Vec, tets [][4]int, opt Options) (*Foam, error) {
	f := &Foam{
		Points:   points,
		Tets:     tets,
		Periodic: opt.Periodic,
		Method:   opt.Method,
	}
	for ti, tet := range tets {
		for i, v := range tet {
			if v < 0 || v >= len(points) {
				return nil, errors.Wrapf(ErrTetOutOfRange, "tet %d vertex %d", ti, v)
			}
			for j := 0; j < i; j++ {
				if tet[j] == v {
					return nil, errors.Wrapf(ErrTetRepeated, "tet %d vertex %d", ti, v)
				}
			}
		}
	}
	f.Centers = make([]r3.Vec, len(tets))
	for ti, tet := range tets {
		f.Centers[ti] = f.centerOf(tet)
	}
	if err := f.buildAdjacency(); err != nil {
		return nil, err
	}
	f.Fingerprint = f.fingerprint()
	return f, nil
}

// RecomputeCenters refreshes centers after in-place position updates. The
// topology (and the fingerprint) is unchanged.
func (f *Foam) RecomputeCenters() {
	for ti, tet := range f.Tets {
		f.Centers[ti] = f.centerOf(tet)
	}
}

// buildAdjacency groups facets by their sorted vertex triple, links mirrors
// and emits one dual edge per mirrored pair. Same canonical-face-key scheme
// as classic tetrahedral connectivity builders.
func (f *Foam) buildAdjacency() error {
	type slot struct {
		n  int
		fc [2]Facet
	}
	faces := make(map[[3]int]*slot, 2*len(f.Tets))
	for ti, tet := range f.Tets {
		for fi := range tetFace {
			key := faceKey(tet, fi)
			s := faces[key]
			if s == nil {
				s = &slot{}
				faces[key] = s
			}
			if s.n == 2 {
				return errors.Wrapf(ErrNonManifold, "face %v", key)
			}
			s.fc[s.n] = Facet{Tet: ti, Face: fi}
			s.n++
		}
	}

	f.Mirror = make([][4]Facet, len(f.Tets))
	for ti := range f.Mirror {
		f.Mirror[ti] = [4]Facet{{Tet: -1}, {Tet: -1}, {Tet: -1}, {Tet: -1}}
	}
	f.edgeIdx = make(map[EdgeKey]int)
	f.faceIdx = make(map[[3]int]EdgeKey)
	f.tetEdges = make([][]int, len(f.Tets))

	// Deterministic emission order: lower tetrahedron index first.
	for ti, tet := range f.Tets {
		for fi := range tetFace {
			key := faceKey(tet, fi)
			s := faces[key]
			if s.n != 2 {
				continue
			}
			a, b := s.fc[0], s.fc[1]
			other := b
			if a.Tet != ti || a.Face != fi {
				other = a
			}
			f.Mirror[ti][fi] = other
			if other.Tet <= ti {
				continue // emitted when the lower index was visited
			}
			ek := MakeEdgeKey(ti, other.Tet)
			if _, dup := f.edgeIdx[ek]; dup {
				return errors.Wrapf(ErrDuplicateEdge, "tets %d,%d", ti, other.Tet)
			}
			ei := len(f.Edges)
			f.Edges = append(f.Edges, Edge{Key: ek, Tets: [2]int{ti, other.Tet}, Face: key})
			f.edgeIdx[ek] = ei
			f.faceIdx[key] = ek
			f.tetEdges[ti] = append(f.tetEdges[ti], ei)
			f.tetEdges[other.Tet] = append(f.tetEdges[other.Tet], ei)
		}
	}
	return nil
}

func faceKey(tet [4]int, face int) [3]int {
	k := [3]int{tet[tetFace[face][0]], tet[tetFace[face][1]], tet[tetFace[face][2]]}
	sort.Ints(k[:])
	return k
}

// MirrorOf returns the mirror of facet (tet, face); Tet is -1 on a boundary.
func (f *Foam) MirrorOf(tet, face int) Facet { return f.Mirror[tet][face] }

// FaceVerts returns the point indices spanning local face `face` of tet.
func (f *Foam) FaceVerts(tet, face int) [3]int {
	t := f.Tets[tet]
	return [3]int{t[tetFace[face][0]], t[tetFace[face][1]], t[tetFace[face][2]]}
}

// TetEdges returns the indices into Edges of the dual edges bounding tet.
func (f *Foam) TetEdges(tet int) []int { return f.tetEdges[tet] }

// EdgeIndex resolves a dual edge key to its index into Edges.
func (f *Foam) EdgeIndex(k EdgeKey) (int, bool) {
	i, ok := f.edgeIdx[k]
	return i, ok
}

// FaceOfEdge returns the shared Delaunay face of a dual edge.
func (f *Foam) FaceOfEdge(k EdgeKey) ([3]int, bool) {
	i, ok := f.edgeIdx[k]
	if !ok {
		return [3]int{}, false
	}
	return f.Edges[i].Face, true
}

// EdgeOfFace is the inverse of FaceOfEdge over the dual edge set.
func (f *Foam) EdgeOfFace(a, b, c int) (EdgeKey, bool) {
	k := [3]int{a, b, c}
	sort.Ints(k[:])
	ek, ok := f.faceIdx[k]
	return ek, ok
}

// fingerprint mixes the structural counts with a bounded sample of edge
// keys. A heuristic for change detection, not a collision-free hash.
func (f *Foam) fingerprint() uint64 {
	h := mix64(uint64(len(f.Points)))
	h = mix64(h ^ uint64(len(f.Tets))<<1)
	h = mix64(h ^ uint64(len(f.Edges))<<2)
	const sample = 64
	stride := 1
	if len(f.Edges) > sample {
		stride = len(f.Edges) / sample
	}
	for i := 0; i < len(f.Edges); i += stride {
		h = mix64(h ^ uint64(f.Edges[i].Key))
	}
	return h
}

// mix64 is the SplitMix64 finalizer (Vigna 2014).
func mix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}
