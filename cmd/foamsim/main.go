// Command foamsim runs the foam dynamics control loop on a jittered
// periodic BCC lattice and reports scoring and projection statistics.
// Optionally writes a histogram of the final edge scores.
package main

import (
	"flag"
	"os"

	"github.com/plan-systems/klog"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/voroforge/foam"
	"github.com/voroforge/foam/dynamics"
	"github.com/voroforge/foam/engine"
	"github.com/voroforge/foam/lattice"
	"github.com/voroforge/foam/score"
)

func main() {
	var (
		n      = flag.Int("n", 4, "BCC lattice resolution (cells per axis)")
		ticks  = flag.Int("ticks", 64, "control loop ticks to run")
		jitter = flag.Float64("jitter", 0.02, "initial point jitter amplitude")
		seed   = flag.Int64("seed", 1, "jitter seed")

		method = flag.String("method", "montecarlo", "scoring method: pagerank|montecarlo")
		center = flag.String("center", "circumcenter", "center method: barycenter|circumcenter")

		depth   = flag.Int("depth", 20, "pagerank iteration count")
		damping = flag.Float64("damping", 0.85, "pagerank damping factor")

		walkers    = flag.Int("walkers", 16, "MC walkers per half-edge (K)")
		steps      = flag.Int("steps", 24, "MC max steps per walker (L)")
		alpha      = flag.Float64("alpha", 0.92, "MC per-step survival factor")
		combine    = flag.String("combine", "harmonic", "MC side combination: harmonic|min")
		firstVisit = flag.Bool("first-visit", false, "MC first-visit accumulation")
		topM       = flag.Int("topm", 0, "MC fan-out cap: top-M transitions (0 = off)")
		cumProb    = flag.Float64("cumprob", 0, "MC fan-out cap: cumulative probability (0 = off)")

		threshold  = flag.Float64("threshold", 0.5, "physical score threshold")
		contract   = flag.Bool("contract", true, "enable contractive directives")
		expand     = flag.Bool("expand", true, "enable expansive directives")
		invert     = flag.Bool("invert", false, "invert directive signs")
		strength   = flag.Float64("strength", 0.1, "physical strength g")
		gamma      = flag.Float64("gamma", 1, "directive shaping exponent")
		maxStep    = flag.Float64("maxstep", 0.2, "max fractional target per step")
		compliance = flag.Float64("compliance", 1, "projection compliance")
		clampDisp  = flag.Float64("clamp", 0.01, "per-iteration displacement clamp")
		iters      = flag.Int("iters", 4, "projection iterations per physical step")
		mode       = flag.String("mode", "face", "target mode: face|tet")

		perBrain = flag.Int("phys-per-brain", 4, "physical steps per brain cycle")
		retri    = flag.Int("retri", 16, "ticks between retriangulations (0 = off)")
		offload  = flag.Bool("offload", true, "run scoring on a worker goroutine")
		histOut  = flag.String("hist", "", "write final score histogram PNG to this path")
	)
	klog.InitFlags(nil)
	flag.Set("logtostderr", "true")
	klog.SetFormatter(&klog.FmtConstWidth{
		FileNameCharWidth: 16,
		UseColor:          true,
	})
	flag.Parse()
	defer klog.Flush()

	cfg := engine.DefaultConfig()
	cfg.PageRank.Depth = *depth
	cfg.PageRank.Damping = *damping
	cfg.Walk.Walkers = *walkers
	cfg.Walk.MaxSteps = *steps
	cfg.Walk.Survival = *alpha
	cfg.Walk.FirstVisit = *firstVisit
	cfg.Walk.TopM = *topM
	cfg.Walk.CumProb = *cumProb
	if *combine == "min" {
		cfg.Walk.Combine = score.CombineMin
	}
	if *method == "pagerank" {
		cfg.Method = engine.MethodPageRank
	}
	if *center == "barycenter" {
		cfg.Center = foam.Barycenter
	}
	cfg.Physical = dynamics.Options{
		Threshold:  *threshold,
		Contract:   *contract,
		Expand:     *expand,
		Invert:     *invert,
		Strength:   *strength,
		Shaping:    *gamma,
		MaxStep:    *maxStep,
		Compliance: *compliance,
		Clamp:      *clampDisp,
		Iterations: *iters,
	}
	if *mode == "tet" {
		cfg.Physical.Mode = dynamics.PerTet
	}
	cfg.PhysicalPerBrain = *perBrain
	cfg.RetriangulateEvery = *retri
	cfg.Offload = *offload

	points, _ := lattice.BCC(*n)
	lattice.Jitter(points, *jitter, *seed)

	eng, err := engine.New(points, lattice.Mesher{N: *n}, cfg)
	if err != nil {
		fatalf("engine setup: %v", err)
	}
	klog.Infof("running %d ticks over %d points, %d tets (%s/%s)",
		*ticks, len(points), len(eng.Foam().Tets), *method, *center)

	for i := 0; i < *ticks; i++ {
		if err := eng.Tick(); err != nil {
			fatalf("tick %d: %v", i, err)
		}
	}

	br := eng.LastBrain()
	ph := eng.LastPhysical()
	klog.Infof("brain: %d edges scored, mean=%.4f var=%.4g (%s)", br.Count, br.Mean, br.Variance, br.Elapsed)
	klog.Infof("physical: affected=%d meanDisp=%.3g maxDisp=%.3g", ph.Affected, ph.MeanDisp, ph.MaxDisp)

	kn := eng.DetectKnots()
	klog.Infof("knots: %d detected", len(kn.Knots))

	if *histOut != "" {
		if err := writeHistogram(*histOut, eng); err != nil {
			fatalf("histogram: %v", err)
		}
		klog.Infof("wrote %s", *histOut)
	}
}

// fatalf logs the error and exits. os.Exit bypasses deferred flushes, so
// buffered lines are flushed here first.
func fatalf(format string, args ...interface{}) {
	klog.Errorf(format, args...)
	klog.Flush()
	os.Exit(1)
}

func writeHistogram(path string, eng *engine.Engine) error {
	scores := eng.Scores()
	vals := make(plotter.Values, 0, len(scores))
	for _, s := range scores {
		vals = append(vals, s)
	}
	if len(vals) == 0 {
		return nil
	}
	p := plot.New()
	p.Title.Text = "edge score distribution"
	p.X.Label.Text = "score"
	h, err := plotter.NewHist(vals, 32)
	if err != nil {
		return err
	}
	p.Add(h)
	return p.Save(6*vg.Inch, 4*vg.Inch, path)
}
