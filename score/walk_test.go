package score

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/voroforge/foam"
)

func walkFixture(t *testing.T, seed int64) (*foam.Foam, *foam.Graph) {
	t.Helper()
	f := buildFoam(t, seed)
	return f, foam.NewGraph(f)
}

func TestRandomWalkDeterministic(t *testing.T) {
	f, g := walkFixture(t, 1)
	opt := DefaultWalkOptions()
	a := RandomWalk(f, g, opt)
	b := RandomWalk(f, g, opt)
	// Bit-identical, not just close: walkers are seeded from edge key and
	// walker index only.
	require.Equal(t, a, b)
}

func TestRandomWalkNormalized(t *testing.T) {
	f, g := walkFixture(t, 2)
	out := RandomWalk(f, g, DefaultWalkOptions())
	require.Len(t, out, len(f.Edges))
	lo, hi := 2.0, -1.0
	for _, s := range out {
		require.GreaterOrEqual(t, s, 0.0)
		require.LessOrEqual(t, s, 1.0)
		if s < lo {
			lo = s
		}
		if s > hi {
			hi = s
		}
	}
	require.Equal(t, 0.0, lo)
	require.True(t, hi == 1.0 || hi == 0.0)
}

func TestRandomWalkSinksScoreZero(t *testing.T) {
	// A lone dual edge: both half-edges are sinks, so accessibility is 0
	// on both sides and the harmonic combination stays 0.
	points := []r3.Vec{
		{X: 0.2, Y: 0.2, Z: 0.2},
		{X: 0.8, Y: 0.2, Z: 0.2},
		{X: 0.2, Y: 0.8, Z: 0.2},
		{X: 0.2, Y: 0.2, Z: 0.8},
		{X: 0.8, Y: 0.8, Z: 0.8},
	}
	f, err := foam.New(points, [][4]int{{0, 1, 2, 3}, {1, 2, 3, 4}}, foam.Options{Method: foam.Barycenter})
	require.NoError(t, err)
	g := foam.NewGraph(f)

	for _, combine := range []Combine{CombineHarmonic, CombineMin} {
		opt := DefaultWalkOptions()
		opt.Combine = combine
		out := RandomWalk(f, g, opt)
		require.Len(t, out, 1)
		for _, s := range out {
			require.Equal(t, 0.0, s)
		}
	}
}

func TestRandomWalkEmptyFoam(t *testing.T) {
	f, err := foam.New(nil, nil, foam.Options{Periodic: true})
	require.NoError(t, err)
	out := RandomWalk(f, foam.NewGraph(f), DefaultWalkOptions())
	require.NotNil(t, out)
	require.Empty(t, out)
}

func TestRandomWalkFanoutCap(t *testing.T) {
	f, g := walkFixture(t, 3)
	base := DefaultWalkOptions()

	topm := base
	topm.TopM = 1
	outM := RandomWalk(f, g, topm)
	require.Len(t, outM, len(f.Edges))

	cum := base
	cum.CumProb = 0.5
	outC := RandomWalk(f, g, cum)
	require.Len(t, outC, len(f.Edges))

	for _, out := range []map[foam.EdgeKey]float64{outM, outC} {
		for _, s := range out {
			require.GreaterOrEqual(t, s, 0.0)
			require.LessOrEqual(t, s, 1.0)
		}
	}
	// Capped runs stay deterministic too.
	require.Equal(t, outM, RandomWalk(f, g, topm))
}

func TestRandomWalkFirstVisit(t *testing.T) {
	f, g := walkFixture(t, 4)
	opt := DefaultWalkOptions()
	opt.FirstVisit = true
	a := RandomWalk(f, g, opt)
	require.Equal(t, a, RandomWalk(f, g, opt))
	require.Len(t, a, len(f.Edges))
}

func TestSideTotalsLongerWalksAccumulateMore(t *testing.T) {
	// For a fixed seed family, a longer walk follows the same path prefix
	// and then keeps accumulating nonnegative weight, so raising MaxSteps
	// never lowers any half-edge total.
	f, g := walkFixture(t, 6)
	short := DefaultWalkOptions()
	short.MaxSteps = 6
	long := short
	long.MaxSteps = 24

	a := sideTotals(f, g, short)
	b := sideTotals(f, g, long)
	require.Len(t, b, len(a))
	for h := range a {
		require.GreaterOrEqual(t, b[h], a[h], "half-edge %d", h)
	}
	require.Greater(t, floats.Sum(b), floats.Sum(a))
}

func TestSideTotalsMoreWalkersAccumulateMore(t *testing.T) {
	// Totals average per-walker contributions, so scaled by the walker
	// count they are prefix sums of one walker sequence: adding walkers
	// never removes mass. The tolerance absorbs the weight-floor cutoff,
	// whose threshold scales with the walker count.
	f, g := walkFixture(t, 7)
	few := DefaultWalkOptions()
	few.Walkers = 8
	many := few
	many.Walkers = 16

	a := sideTotals(f, g, few)
	b := sideTotals(f, g, many)
	for h := range a {
		require.GreaterOrEqual(t, 16*b[h], 8*a[h]-1e-9, "half-edge %d", h)
	}
}

func TestHarmonicZeroesOneSidedAccessibility(t *testing.T) {
	// A three-tetrahedron strip whose centers fold back on themselves: the
	// first dual edge can be continued from its inner side only, so its
	// outer half-edge is a sink while the inner one accumulates weight.
	points := []r3.Vec{
		{},
		{X: 1},
		{Y: 1},
		{Z: 1},
		{X: 1, Y: 1, Z: 1},
		{Y: -1, Z: -1},
	}
	tets := [][4]int{{0, 1, 2, 3}, {1, 2, 3, 4}, {2, 3, 4, 5}}
	f, err := foam.New(points, tets, foam.Options{Method: foam.Barycenter})
	require.NoError(t, err)
	g := foam.NewGraph(f)

	key := foam.MakeEdgeKey(0, 1)
	ei, ok := f.EdgeIndex(key)
	require.True(t, ok)

	opt := DefaultWalkOptions()
	totals := sideTotals(f, g, opt)
	require.Equal(t, 0.0, totals[foam.HalfEdge(ei, 0)], "outer half-edge has no continuation")
	require.Greater(t, totals[foam.HalfEdge(ei, 1)], 0.0)

	out := RandomWalk(f, g, opt)
	require.Equal(t, 0.0, out[key], "harmonic combination must zero a one-sided edge")
}

func TestCappedChoicesTopM(t *testing.T) {
	g := &foam.Graph{Out: [][]foam.Transition{
		{{To: 2, W: 0.5}, {To: 4, W: 0.3}, {To: 6, W: 0.2}},
	}}
	capped := cappedChoices(g, WalkOptions{TopM: 2})
	require.Len(t, capped[0], 2)
	require.Equal(t, 2, capped[0][0].To)
	require.Equal(t, 4, capped[0][1].To)
	require.InDelta(t, 0.625, capped[0][0].W, 1e-12)
	require.InDelta(t, 0.375, capped[0][1].W, 1e-12)
}

func TestCappedChoicesCumProb(t *testing.T) {
	g := &foam.Graph{Out: [][]foam.Transition{
		{{To: 2, W: 0.5}, {To: 4, W: 0.3}, {To: 6, W: 0.2}},
	}}
	capped := cappedChoices(g, WalkOptions{CumProb: 0.7})
	// 0.5 then 0.8 > 0.7: two transitions survive.
	require.Len(t, capped[0], 2)
}
