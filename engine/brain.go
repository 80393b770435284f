package engine

import (
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/voroforge/foam"
	"github.com/voroforge/foam/score"
)

// Method selects the scoring engine for a brain pass.
type Method uint8

const (
	MethodPageRank Method = iota
	MethodMonteCarlo
)

func (m Method) String() string {
	switch m {
	case MethodPageRank:
		return "pagerank"
	case MethodMonteCarlo:
		return "montecarlo"
	}
	return "unknown"
}

// Request is the brain message: the topology fingerprint, method selection
// and the foam snapshot flattened into plain numeric buffers. It carries no
// pointers into live engine state, so a pass is a pure function of the
// request and can run on any execution context.
type Request struct {
	Fingerprint uint64
	Method      Method
	PageRank    score.PageRankOptions
	Walk        score.WalkOptions

	// Points holds xyz triples; Tets holds index quadruples.
	Points   []float64
	Tets     []int32
	Periodic bool
	Center   foam.CenterMethod
}

// Response echoes the request identity and parameters, and carries the
// scores as parallel key/score arrays in deterministic edge order plus
// summary statistics.
type Response struct {
	Fingerprint uint64
	Method      Method
	PageRank    score.PageRankOptions
	Walk        score.WalkOptions
	Elapsed     time.Duration

	Keys   []foam.EdgeKey
	Scores []float64

	Count    int
	Mean     float64
	Variance float64
}

// Result is what the worker hands back over the one-shot channel.
type Result struct {
	Response Response
	Err      error
}

// ErrFingerprint reports a rebuilt snapshot that no longer matches the
// fingerprint the request was keyed by.
var ErrFingerprint = errors.New("engine: request fingerprint does not match rebuilt foam")

// NewRequest serializes a foam snapshot into a brain request.
func NewRequest(f *foam.Foam, cfg Config) Request {
	req := Request{
		Fingerprint: f.Fingerprint,
		Method:      cfg.Method,
		PageRank:    cfg.PageRank,
		Walk:        cfg.Walk,
		Points:      make([]float64, 0, 3*len(f.Points)),
		Tets:        make([]int32, 0, 4*len(f.Tets)),
		Periodic:    f.Periodic,
		Center:      f.Method,
	}
	for _, p := range f.Points {
		req.Points = append(req.Points, p.X, p.Y, p.Z)
	}
	for _, t := range f.Tets {
		req.Tets = append(req.Tets, int32(t[0]), int32(t[1]), int32(t[2]), int32(t[3]))
	}
	return req
}

// Run executes the request on its own goroutine and returns the one-shot
// result channel. A pass cannot be preempted; callers cancel by discarding
// the result.
func Run(req Request) <-chan Result {
	ch := make(chan Result, 1)
	go func() {
		resp, err := req.evaluate(nil)
		ch <- Result{Response: resp, Err: err}
	}()
	return ch
}

// evaluate rebuilds the foam from the flat buffers and scores it. When ent
// is non-nil (in-process path) the cached structures are used instead.
func (req Request) evaluate(ent *Entry) (Response, error) {
	start := time.Now()
	resp := Response{
		Fingerprint: req.Fingerprint,
		Method:      req.Method,
		PageRank:    req.PageRank,
		Walk:        req.Walk,
	}

	var f *foam.Foam
	var g *foam.Graph
	if ent != nil {
		f, g = ent.Foam, ent.Graph
	} else {
		points := make([]r3.Vec, len(req.Points)/3)
		for i := range points {
			points[i] = r3.Vec{X: req.Points[3*i], Y: req.Points[3*i+1], Z: req.Points[3*i+2]}
		}
		tets := make([][4]int, len(req.Tets)/4)
		for i := range tets {
			tets[i] = [4]int{int(req.Tets[4*i]), int(req.Tets[4*i+1]), int(req.Tets[4*i+2]), int(req.Tets[4*i+3])}
		}
		var err error
		f, err = foam.New(points, tets, foam.Options{Periodic: req.Periodic, Method: req.Center})
		if err != nil {
			return resp, err
		}
		if f.Fingerprint != req.Fingerprint {
			return resp, errors.Wrapf(ErrFingerprint, "got %x want %x", f.Fingerprint, req.Fingerprint)
		}
	}

	var scores map[foam.EdgeKey]float64
	switch req.Method {
	case MethodMonteCarlo:
		if g == nil {
			g = foam.NewGraph(f)
		}
		scores = score.RandomWalk(f, g, req.Walk)
	default:
		scores = score.PageRank(f, req.PageRank)
	}

	resp.Keys = make([]foam.EdgeKey, 0, len(scores))
	resp.Scores = make([]float64, 0, len(scores))
	for _, e := range f.Edges {
		s, ok := scores[e.Key]
		if !ok {
			continue
		}
		resp.Keys = append(resp.Keys, e.Key)
		resp.Scores = append(resp.Scores, s)
	}
	resp.Count = len(resp.Scores)
	if resp.Count > 1 {
		resp.Mean, resp.Variance = stat.MeanVariance(resp.Scores, nil)
	} else if resp.Count == 1 {
		resp.Mean = resp.Scores[0]
	}
	resp.Elapsed = time.Since(start)
	return resp, nil
}
