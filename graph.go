package foam

// Half-edge h is one directed traversal of dual edge h>>1, terminating at
// the center of Edges[h>>1].Tets[h&1].

// HalfEdge returns the half-edge of edge ei arriving at side (0 or 1).
func HalfEdge(ei, side int) int { return 2*ei + side }

// HalfEdgeCount is the number of half-edges, two per dual edge.
func (f *Foam) HalfEdgeCount() int { return 2 * len(f.Edges) }

// Head is the tetrahedron whose center the half-edge terminates at.
func (f *Foam) Head(h int) int { return f.Edges[h>>1].Tets[h&1] }

// Tail is the tetrahedron the half-edge comes from.
func (f *Foam) Tail(h int) int { return f.Edges[h>>1].Tets[1-h&1] }

// Transition is a directed link between half-edges meeting at a center.
// W is normalized so a half-edge's outgoing weights sum to 1.
type Transition struct {
	To int
	W  float64
}

// Graph is the directional adjacency graph over half-edges, gated on
// strictly obtuse turning angles at each dual vertex. Reversal (180 degrees)
// is maximally preferred; transitions at or below 90 degrees are dropped.
type Graph struct {
	f *Foam
	// Out[h] lists the admitted transitions leaving half-edge h.
	// A half-edge with none is a sink.
	Out [][]Transition
}

// Foam returns the topology snapshot the graph was built over.
func (g *Graph) Foam() *Foam { return g.f }

// NewGraph builds the half-edge graph from a Foam snapshot.
func NewGraph(f *Foam) *Graph {
	g := &Graph{f: f, Out: make([][]Transition, f.HalfEdgeCount())}
	for h := range g.Out {
		ei := h >> 1
		head := f.Head(h)
		tail := f.Tail(h)
		in := f.Delta(f.Centers[tail], f.Centers[head])

		var out []Transition
		sum := 0.0
		for _, oi := range f.tetEdges[head] {
			if oi == ei {
				continue // reverse of the same dual edge
			}
			e := &f.Edges[oi]
			other := e.Other(head)
			dir := f.Delta(f.Centers[head], f.Centers[other])
			cos, ok := cosBetween(in, dir)
			if !ok || cos >= -obtuseTol {
				continue
			}
			side := 0
			if e.Tets[1] == other {
				side = 1
			}
			w := -cos // max(0, -cos): 0 at 90 degrees, 1 at reversal
			out = append(out, Transition{To: HalfEdge(oi, side), W: w})
			sum += w
		}
		if sum > 0 {
			for i := range out {
				out[i].W /= sum
			}
		}
		g.Out[h] = out
	}
	return g
}
