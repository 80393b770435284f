// Package score computes edge-importance mappings over a foam's dual edge
// set. Two independent engines exist: stationary propagation (PageRank) over
// an undirected collapse of the adjacency structure, and a truncated seeded
// random walk over the directional half-edge graph. Both return the same
// shape of result, a dual-edge-key to [0,1] mapping, and both are pure
// functions of their inputs so they can run on either side of the worker
// boundary.
package score

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/voroforge/foam"
)

// PageRankOptions tunes stationary propagation.
type PageRankOptions struct {
	// Depth is the fixed iteration count.
	Depth int
	// Damping is the damping factor d in [0,1).
	Damping float64
}

// DefaultPageRankOptions returns the stock depth/damping.
func DefaultPageRankOptions() PageRankOptions {
	return PageRankOptions{Depth: 20, Damping: 0.85}
}

// PageRank runs score propagation over dual-edge nodes. Two dual edges are
// linked when they meet at a shared tetrahedron center with an obtuse angle
// between their outward center-to-center directions. The linkage is a
// multigraph: a pair qualifying at both shared centers contributes twice.
//
// Note this obtuse test works on undirected dual-edge identity and is
// deliberately not shared with the half-edge gate in foam.NewGraph.
func PageRank(f *foam.Foam, opt PageRankOptions) map[foam.EdgeKey]float64 {
	n := len(f.Edges)
	if n == 0 {
		return map[foam.EdgeKey]float64{}
	}
	if opt.Depth <= 0 {
		opt.Depth = 1
	}

	nbr := make([][]int, n)
	for t := range f.Tets {
		edges := f.TetEdges(t)
		for i := 0; i < len(edges); i++ {
			for j := i + 1; j < len(edges); j++ {
				ei, ej := edges[i], edges[j]
				di := f.Delta(f.Centers[t], f.Centers[f.Edges[ei].Other(t)])
				dj := f.Delta(f.Centers[t], f.Centers[f.Edges[ej].Other(t)])
				cos, ok := obtuseCos(di, dj)
				if !ok || cos >= -1e-9 {
					continue
				}
				nbr[ei] = append(nbr[ei], ej)
				nbr[ej] = append(nbr[ej], ei)
			}
		}
	}

	cur := propagate(nbr, opt)

	keys := make([]foam.EdgeKey, n)
	for i := range f.Edges {
		keys[i] = f.Edges[i].Key
	}
	return normalized(keys, cur)
}

// propagate runs the damped score iteration over an explicit neighbor
// structure, starting from the uniform vector, and returns the raw
// (unnormalized) scores after opt.Depth iterations.
func propagate(nbr [][]int, opt PageRankOptions) []float64 {
	n := len(nbr)
	cur := make([]float64, n)
	next := make([]float64, n)
	for i := range cur {
		cur[i] = 1
	}
	invN := 1 / float64(n)
	for it := 0; it < opt.Depth; it++ {
		// Nodes with no neighbors distribute to every node so no score
		// leaks out of the system.
		dangling := 0.0
		for i := range next {
			next[i] = 0
		}
		for i, ns := range nbr {
			if len(ns) == 0 {
				dangling += cur[i]
				continue
			}
			share := cur[i] / float64(len(ns))
			for _, j := range ns {
				next[j] += share
			}
		}
		base := (1 - opt.Damping) * invN
		for i := range next {
			next[i] = base + opt.Damping*(next[i]+dangling*invN)
		}
		cur, next = next, cur
	}
	return cur
}

// obtuseCos is the clamped cosine between u and v; ok is false when either
// direction is degenerate (coincident centers).
func obtuseCos(u, v r3.Vec) (float64, bool) {
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
