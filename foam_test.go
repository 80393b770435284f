package foam

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/voroforge/foam/lattice"
)

// twoTets is the minimal mesh with one shared face {1,2,3}.
func twoTets() ([]r3.Vec, [][4]int) {
	points := []r3.Vec{
		{X: 0.2, Y: 0.2, Z: 0.2},
		{X: 0.8, Y: 0.2, Z: 0.2},
		{X: 0.2, Y: 0.8, Z: 0.2},
		{X: 0.2, Y: 0.2, Z: 0.8},
		{X: 0.8, Y: 0.8, Z: 0.8},
	}
	return points, [][4]int{{0, 1, 2, 3}, {1, 2, 3, 4}}
}

func TestEdgeKeyPacking(t *testing.T) {
	k := MakeEdgeKey(7, 3)
	require.Equal(t, MakeEdgeKey(3, 7), k)
	lo, hi := k.Tets()
	require.Equal(t, 3, lo)
	require.Equal(t, 7, hi)
}

func TestTwoTetsSingleDualEdge(t *testing.T) {
	points, tets := twoTets()
	f, err := New(points, tets, Options{Periodic: true, Method: Barycenter})
	require.NoError(t, err)

	require.Len(t, f.Edges, 1)
	e := f.Edges[0]
	require.Equal(t, MakeEdgeKey(0, 1), e.Key)
	require.Equal(t, [3]int{1, 2, 3}, e.Face)

	// Key independent of visit order.
	rev := [][4]int{tets[1], tets[0]}
	f2, err := New(points, rev, Options{Periodic: true, Method: Barycenter})
	require.NoError(t, err)
	require.Equal(t, e.Key, f2.Edges[0].Key)

	// Mirrors point at each other.
	m := f.MirrorOf(0, 0) // face opposite vertex 0 of tet 0 is {1,2,3}
	require.Equal(t, Facet{Tet: 1, Face: 3}, m)
	require.Equal(t, Facet{Tet: 0, Face: 0}, f.MirrorOf(m.Tet, m.Face))

	// Unshared faces are boundaries.
	require.Equal(t, -1, f.MirrorOf(0, 1).Tet)
}

func TestEdgeFaceMapsInverse(t *testing.T) {
	points, tets := lattice.BCC(2)
	f, err := New(points, tets, Options{Periodic: true, Method: Circumcenter})
	require.NoError(t, err)
	for _, e := range f.Edges {
		face, ok := f.FaceOfEdge(e.Key)
		require.True(t, ok)
		back, ok := f.EdgeOfFace(face[0], face[1], face[2])
		require.True(t, ok)
		require.Equal(t, e.Key, back)
	}
}

func TestBCCFullyMirrored(t *testing.T) {
	points, tets := lattice.BCC(2)
	f, err := New(points, tets, Options{Periodic: true, Method: Circumcenter})
	require.NoError(t, err)

	require.Len(t, points, 16)
	require.Len(t, tets, 96)
	// Periodic: every facet has a mirror, so the dual edge set collapses
	// 4*T facet endpoints into 2*T edges.
	require.Len(t, f.Edges, 2*len(tets))
	for ti := range tets {
		for fi := 0; fi < 4; fi++ {
			require.GreaterOrEqual(t, f.MirrorOf(ti, fi).Tet, 0, "tet %d face %d unmirrored", ti, fi)
		}
		require.Len(t, f.TetEdges(ti), 4)
	}
	seen := map[EdgeKey]bool{}
	for _, e := range f.Edges {
		require.False(t, seen[e.Key], "duplicate edge key %v", e.Key)
		seen[e.Key] = true
	}
}

func TestInputContractViolations(t *testing.T) {
	points, _ := twoTets()

	_, err := New(points, [][4]int{{0, 1, 2, 9}}, Options{})
	require.ErrorIs(t, errors.Cause(err), ErrTetOutOfRange)

	_, err = New(points, [][4]int{{0, 1, 2, 2}}, Options{})
	require.ErrorIs(t, errors.Cause(err), ErrTetRepeated)

	// Three tetrahedra on one face.
	pts := append([]r3.Vec{}, points...)
	pts = append(pts, r3.Vec{X: 0.5, Y: 0.5, Z: 0.9}, r3.Vec{X: 0.5, Y: 0.9, Z: 0.5})
	_, err = New(pts, [][4]int{{0, 1, 2, 3}, {5, 1, 2, 3}, {6, 1, 2, 3}}, Options{})
	require.ErrorIs(t, errors.Cause(err), ErrNonManifold)

	// Two tetrahedra over the same vertex set share all four faces.
	_, err = New(points, [][4]int{{0, 1, 2, 3}, {1, 2, 3, 0}}, Options{})
	require.ErrorIs(t, errors.Cause(err), ErrDuplicateEdge)
}

func TestFingerprint(t *testing.T) {
	points, tets := lattice.BCC(2)
	f1, err := New(points, tets, Options{Periodic: true, Method: Barycenter})
	require.NoError(t, err)
	f2, err := New(points, tets, Options{Periodic: true, Method: Barycenter})
	require.NoError(t, err)
	require.Equal(t, f1.Fingerprint, f2.Fingerprint, "same topology, same fingerprint")

	// Position updates keep the fingerprint.
	lattice.Jitter(f1.Points, 0.01, 3)
	f1.RecomputeCenters()
	require.Equal(t, f2.Fingerprint, f1.Fingerprint)

	// A structural change moves it.
	f3, err := New(points, tets[:len(tets)-1], Options{Periodic: true, Method: Barycenter})
	require.NoError(t, err)
	require.NotEqual(t, f1.Fingerprint, f3.Fingerprint)
}
