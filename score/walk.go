package score

import (
	"math"
	"sort"

	"github.com/voroforge/foam"
)

// walkerFloor terminates walkers whose weight decayed to nothing.
const walkerFloor = 1e-12

// Combine selects how the two half-edge accessibility totals of a dual edge
// merge into one raw score.
type Combine uint8

const (
	// CombineHarmonic penalizes one-sided accessibility; the result is 0
	// whenever either side is 0.
	CombineHarmonic Combine = iota
	// CombineMin takes the weaker side outright.
	CombineMin
)

// WalkOptions tunes the truncated random-walk engine.
type WalkOptions struct {
	// MaxSteps (L) bounds each walker's path length.
	MaxSteps int
	// Walkers (K) is the number of independent walkers per half-edge,
	// each starting with weight 1/K.
	Walkers int
	// Survival (alpha) in (0,1] discounts the weight at every step.
	Survival float64
	Combine  Combine
	// FirstVisit accumulates a dual edge at most once per walker.
	FirstVisit bool
	// TopM, when positive, caps roulette selection to the M heaviest
	// transitions. Trades variance for cost.
	TopM int
	// CumProb, when positive, caps selection to the smallest weight-sorted
	// prefix whose cumulative weight exceeds it. Ignored if TopM is set.
	CumProb float64
}

// DefaultWalkOptions returns the stock walk parameters.
func DefaultWalkOptions() WalkOptions {
	return WalkOptions{MaxSteps: 24, Walkers: 16, Survival: 0.92, Combine: CombineHarmonic}
}

// RandomWalk estimates per-edge accessibility by spawning, for each of the
// two half-edges of every dual edge, Walkers independent truncated walks
// over g. Each walker samples transitions by weighted roulette, decays by
// Survival times the chosen probability and accumulates its surviving weight
// at every edge it stands on. Walker randomness is seeded from the edge
// key's content hash, the starting side and the walker index, so identical
// inputs reproduce identical outputs bit for bit.
func RandomWalk(f *foam.Foam, g *foam.Graph, opt WalkOptions) map[foam.EdgeKey]float64 {
	n := len(f.Edges)
	if n == 0 {
		return map[foam.EdgeKey]float64{}
	}
	if opt.Walkers <= 0 || opt.MaxSteps <= 0 || opt.Survival <= 0 {
		o := DefaultWalkOptions()
		if opt.Walkers <= 0 {
			opt.Walkers = o.Walkers
		}
		if opt.MaxSteps <= 0 {
			opt.MaxSteps = o.MaxSteps
		}
		if opt.Survival <= 0 {
			opt.Survival = o.Survival
		}
	}

	totals := sideTotals(f, g, opt)

	keys := make([]foam.EdgeKey, n)
	raw := make([]float64, n)
	for ei := range f.Edges {
		keys[ei] = f.Edges[ei].Key
		a := totals[foam.HalfEdge(ei, 0)]
		b := totals[foam.HalfEdge(ei, 1)]
		switch opt.Combine {
		case CombineMin:
			raw[ei] = math.Min(a, b)
		default:
			if a <= 0 || b <= 0 {
				raw[ei] = 0
			} else {
				raw[ei] = 2 * a * b / (a + b)
			}
		}
	}
	return normalized(keys, raw)
}

// sideTotals runs the walker ensemble and returns the accumulated
// accessibility total per half-edge, indexed by foam.HalfEdge. Walk
// parameters are assumed populated. A half-edge's total averages the
// contributions of its Walkers independent walkers; for a fixed walker
// ensemble, raising MaxSteps only extends walks with further nonnegative
// accumulation.
func sideTotals(f *foam.Foam, g *foam.Graph, opt WalkOptions) []float64 {
	choices := cappedChoices(g, opt)

	totals := make([]float64, 2*len(f.Edges))
	inv := 1 / float64(opt.Walkers)
	var visited map[int]struct{}
	for ei := range f.Edges {
		hash := mix64(uint64(f.Edges[ei].Key))
		for side := 0; side < 2; side++ {
			start := foam.HalfEdge(ei, side)
			total := 0.0
			for w := 0; w < opt.Walkers; w++ {
				r := seedRNG(hash, uint64(side), uint64(w))
				if opt.FirstVisit {
					visited = make(map[int]struct{}, opt.MaxSteps)
				}
				wgt := inv
				cur := start
				for step := 0; step < opt.MaxSteps; step++ {
					out := choices[cur]
					if len(out) == 0 {
						break // sink
					}
					x := r.float64()
					pick := out[len(out)-1]
					acc := 0.0
					for _, tr := range out {
						acc += tr.W
						if x < acc {
							pick = tr
							break
						}
					}
					wgt *= opt.Survival * pick.W
					if wgt < walkerFloor {
						break
					}
					cur = pick.To
					if opt.FirstVisit {
						e := cur >> 1
						if _, seen := visited[e]; seen {
							continue
						}
						visited[e] = struct{}{}
					}
					total += wgt
				}
			}
			totals[start] = total
		}
	}
	return totals
}

// cappedChoices applies the fan-out cap once per half-edge and renormalizes
// the surviving transitions, so the roulette samples the distribution the
// walker actually sees.
func cappedChoices(g *foam.Graph, opt WalkOptions) [][]foam.Transition {
	if opt.TopM <= 0 && opt.CumProb <= 0 {
		return g.Out
	}
	capped := make([][]foam.Transition, len(g.Out))
	for h, out := range g.Out {
		if len(out) == 0 {
			continue
		}
		sorted := make([]foam.Transition, len(out))
		copy(sorted, out)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].W > sorted[j].W })
		keep := len(sorted)
		if opt.TopM > 0 {
			if opt.TopM < keep {
				keep = opt.TopM
			}
		} else {
			cum := 0.0
			for i, tr := range sorted {
				cum += tr.W
				if cum > opt.CumProb {
					keep = i + 1
					break
				}
			}
		}
		sorted = sorted[:keep]
		sum := 0.0
		for _, tr := range sorted {
			sum += tr.W
		}
		if sum > 0 {
			for i := range sorted {
				sorted[i].W /= sum
			}
		}
		capped[h] = sorted
	}
	return capped
}
