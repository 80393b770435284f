package engine

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/voroforge/foam"
	"github.com/voroforge/foam/lattice"
)

func latticeFoam(t *testing.T, cfg Config) *foam.Foam {
	t.Helper()
	points, tets := lattice.BCC(2)
	lattice.Jitter(points, 0.02, 1)
	f, err := foam.New(points, tets, foam.Options{Periodic: cfg.Periodic, Method: cfg.Center})
	require.NoError(t, err)
	return f
}

func TestBrainRoundTrip(t *testing.T) {
	cfg := DefaultConfig()
	f := latticeFoam(t, cfg)

	req := NewRequest(f, cfg)
	require.Equal(t, f.Fingerprint, req.Fingerprint)
	require.Len(t, req.Points, 3*len(f.Points))
	require.Len(t, req.Tets, 4*len(f.Tets))

	res := <-Run(req)
	require.NoError(t, res.Err)
	resp := res.Response
	require.Equal(t, f.Fingerprint, resp.Fingerprint)
	require.Equal(t, cfg.Method, resp.Method)
	require.Equal(t, len(f.Edges), resp.Count)
	require.Len(t, resp.Keys, resp.Count)
	require.Len(t, resp.Scores, resp.Count)
	require.Greater(t, resp.Elapsed.Nanoseconds(), int64(0))
	require.GreaterOrEqual(t, resp.Mean, 0.0)
	require.GreaterOrEqual(t, resp.Variance, 0.0)
}

func TestBrainDeterministicAcrossWorkers(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Method = MethodMonteCarlo
	f := latticeFoam(t, cfg)
	req := NewRequest(f, cfg)

	a := <-Run(req)
	b := <-Run(req)
	require.NoError(t, a.Err)
	require.NoError(t, b.Err)
	require.Equal(t, a.Response.Keys, b.Response.Keys)
	require.Equal(t, a.Response.Scores, b.Response.Scores, "offloaded scoring must be bit-reproducible")
}

func TestBrainPageRankMethod(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Method = MethodPageRank
	f := latticeFoam(t, cfg)
	res := <-Run(NewRequest(f, cfg))
	require.NoError(t, res.Err)
	require.Equal(t, MethodPageRank, res.Response.Method)
	require.Equal(t, len(f.Edges), res.Response.Count)
}

func TestBrainFingerprintMismatch(t *testing.T) {
	cfg := DefaultConfig()
	f := latticeFoam(t, cfg)
	req := NewRequest(f, cfg)
	req.Fingerprint ^= 0xff
	res := <-Run(req)
	require.Error(t, res.Err)
}
