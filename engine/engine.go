// Package engine runs the foam control loop: a Brain phase that scores dual
// edges (optionally offloaded to a worker goroutine over a one-shot
// request/response channel) and a Physical phase that projects point
// positions using the most recently completed Brain result. Retriangulation
// invalidates the fingerprint-keyed cache and triggers the priming
// handshake: exactly one physical step is skipped, then a fresh Brain pass
// is forced for the new fingerprint before the physical cadence resumes.
package engine

import (
	"github.com/plan-systems/klog"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/voroforge/foam"
	"github.com/voroforge/foam/dynamics"
	"github.com/voroforge/foam/knot"
	"github.com/voroforge/foam/score"
)

// Triangulator is the external Delaunay collaborator. Quadruples referencing
// out-of-range indices are discarded by the engine before they reach the
// foam builder.
type Triangulator interface {
	Tetrahedralize(points []r3.Vec, periodic bool) ([][4]int, error)
}

// Config is the full configuration surface consumed by the control loop.
type Config struct {
	Periodic bool
	Center   foam.CenterMethod

	Method   Method
	PageRank score.PageRankOptions
	Walk     score.WalkOptions

	Physical dynamics.Options
	// PhysicalPerBrain is how many physical steps run per brain cycle.
	PhysicalPerBrain int
	// RetriangulateEvery is the tick cadence of topology rebuilds;
	// 0 disables retriangulation.
	RetriangulateEvery int
	// Offload runs brain passes on a worker goroutine; otherwise they run
	// synchronously on the control loop using cached structures.
	Offload bool
	// CacheSize bounds the fingerprint cache.
	CacheSize int
}

// DefaultConfig returns a periodic circumcenter setup with Monte Carlo
// scoring and worker offload.
func DefaultConfig() Config {
	return Config{
		Periodic:           true,
		Center:             foam.Circumcenter,
		Method:             MethodMonteCarlo,
		PageRank:           score.DefaultPageRankOptions(),
		Walk:               score.DefaultWalkOptions(),
		Physical:           dynamics.DefaultOptions(),
		PhysicalPerBrain:   4,
		RetriangulateEvery: 16,
		Offload:            true,
		CacheSize:          4,
	}
}

// Engine owns the simulation state: the point set, the current foam
// snapshot, the cache and the in-flight brain pass.
type Engine struct {
	cfg    Config
	tri    Triangulator
	points []r3.Vec
	foam   *foam.Foam
	cache  *Cache

	scores  map[foam.EdgeKey]float64
	scoreFP uint64
	pending <-chan Result

	skipPhysical bool
	sinceBrain   int
	tick         int

	lastPhys dynamics.Stats
	lastResp Response
}

// New triangulates the initial point set and builds the first snapshot.
// The points slice is owned by the engine from here on.
func New(points []r3.Vec, tri Triangulator, cfg Config) (*Engine, error) {
	e := &Engine{
		cfg:    cfg,
		tri:    tri,
		points: points,
		cache:  NewCache(cfg.CacheSize),
	}
	if err := e.retriangulate(); err != nil {
		return nil, err
	}
	// Initial build counts as the first priming; there is no stale
	// physical step to skip yet.
	e.skipPhysical = false
	return e, nil
}

// Tick advances the control loop by one step: adopt any completed brain
// result, keep a brain pass in flight per the cadence, then run one
// physical step against the last completed result.
func (e *Engine) Tick() error {
	e.tick++
	if e.cfg.RetriangulateEvery > 0 && e.tick%e.cfg.RetriangulateEvery == 0 {
		if err := e.retriangulate(); err != nil {
			return err
		}
	}
	e.collect()
	e.ensureBrain()

	if e.skipPhysical {
		// Priming handshake: one physical step sits out after every
		// retriangulation.
		e.skipPhysical = false
		klog.V(2).Infof("tick %d: physical skipped (priming)", e.tick)
		return nil
	}
	if e.scoreFP != e.foam.Fingerprint || len(e.scores) == 0 {
		return nil // no completed brain pass for this topology yet
	}
	e.lastPhys = dynamics.Project(e.foam, e.scores, e.cfg.Physical)
	e.sinceBrain++
	klog.V(2).Infof("tick %d: physical affected=%d mean=%.3g max=%.3g",
		e.tick, e.lastPhys.Affected, e.lastPhys.MeanDisp, e.lastPhys.MaxDisp)
	return nil
}

// collect adopts a completed brain result. Results keyed by a superseded
// fingerprint are discarded; that is the only cancellation mechanism.
func (e *Engine) collect() {
	if e.pending == nil {
		return
	}
	select {
	case res := <-e.pending:
		e.pending = nil
		if res.Err != nil {
			klog.Warningf("brain pass failed: %v", res.Err)
			return
		}
		e.adopt(res.Response)
	default:
	}
}

func (e *Engine) adopt(resp Response) {
	if resp.Fingerprint != e.foam.Fingerprint {
		klog.V(1).Infof("discarding stale brain result for fingerprint %x", resp.Fingerprint)
		return
	}
	scores := make(map[foam.EdgeKey]float64, len(resp.Keys))
	for i, k := range resp.Keys {
		scores[k] = resp.Scores[i]
	}
	e.scores = scores
	e.scoreFP = resp.Fingerprint
	e.lastResp = resp
	e.sinceBrain = 0
	klog.V(1).Infof("brain %s: %d edges mean=%.4f var=%.4g in %s",
		resp.Method, resp.Count, resp.Mean, resp.Variance, resp.Elapsed)
}

// ensureBrain keeps a scoring pass in flight whenever the current scores
// are stale or the physical cadence used them up.
func (e *Engine) ensureBrain() {
	if e.pending != nil {
		return
	}
	per := e.cfg.PhysicalPerBrain
	if per < 1 {
		per = 1
	}
	if e.scoreFP == e.foam.Fingerprint && len(e.scores) > 0 && e.sinceBrain < per {
		return
	}
	req := NewRequest(e.foam, e.cfg)
	if e.cfg.Offload {
		e.pending = Run(req)
		return
	}
	resp, err := req.evaluate(e.entry())
	if err != nil {
		klog.Warningf("brain pass failed: %v", err)
		return
	}
	e.adopt(resp)
}

// entry returns the cached structures for the current fingerprint, building
// them on a miss.
func (e *Engine) entry() *Entry {
	if ent, ok := e.cache.Get(e.foam.Fingerprint); ok {
		return ent
	}
	ent := &Entry{Foam: e.foam, Graph: foam.NewGraph(e.foam)}
	e.cache.Put(e.foam.Fingerprint, ent)
	return ent
}

// retriangulate replaces the tetrahedra set, rebuilds the foam and starts
// the priming handshake for the new fingerprint.
func (e *Engine) retriangulate() error {
	tets, err := e.tri.Tetrahedralize(e.points, e.cfg.Periodic)
	if err != nil {
		return err
	}
	kept := tets[:0]
	dropped := 0
	for _, t := range tets {
		if t[0] < 0 || t[1] < 0 || t[2] < 0 || t[3] < 0 ||
			t[0] >= len(e.points) || t[1] >= len(e.points) ||
			t[2] >= len(e.points) || t[3] >= len(e.points) {
			dropped++
			continue
		}
		kept = append(kept, t)
	}
	if dropped > 0 {
		klog.Warningf("discarded %d tetrahedra with out-of-range indices", dropped)
	}
	f, err := foam.New(e.points, kept, foam.Options{Periodic: e.cfg.Periodic, Method: e.cfg.Center})
	if err != nil {
		return err
	}
	if e.foam != nil {
		e.cache.Invalidate(e.foam.Fingerprint)
		e.skipPhysical = true
	}
	e.foam = f
	e.scores = nil
	e.scoreFP = 0
	klog.V(1).Infof("retriangulated: %d tets, %d dual edges, fingerprint %x",
		len(f.Tets), len(f.Edges), f.Fingerprint)
	// Drop any in-flight pass for the old fingerprint (its result would be
	// discarded on arrival anyway) so the fresh pass starts immediately.
	e.pending = nil
	e.ensureBrain()
	return nil
}

// Foam exposes the current topology snapshot.
func (e *Engine) Foam() *foam.Foam { return e.foam }

// Points exposes the live point set.
func (e *Engine) Points() []r3.Vec { return e.points }

// Scores returns the last adopted score mapping; nil while priming.
func (e *Engine) Scores() map[foam.EdgeKey]float64 {
	if e.scoreFP != e.foam.Fingerprint {
		return nil
	}
	return e.scores
}

// LastPhysical reports the statistics of the most recent physical step.
func (e *Engine) LastPhysical() dynamics.Stats { return e.lastPhys }

// LastBrain reports the most recent adopted brain response.
func (e *Engine) LastBrain() Response { return e.lastResp }

// DetectKnots runs the flow/knot detector over the current snapshot.
func (e *Engine) DetectKnots() *knot.Result { return knot.Detect(e.foam) }

// Graph returns the half-edge graph for the current snapshot, cached by
// fingerprint.
func (e *Engine) Graph() *foam.Graph { return e.entry().Graph }
