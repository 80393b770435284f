package score

import (
	"gonum.org/v1/gonum/floats"

	"github.com/voroforge/foam"
)

// normalized min-max scales raw into [0,1] keyed by keys. All-equal raw
// scores map to 0 uniformly: with no differentiation there is nothing to
// report. Empty input yields an empty, non-nil map.
func normalized(keys []foam.EdgeKey, raw []float64) map[foam.EdgeKey]float64 {
	out := make(map[foam.EdgeKey]float64, len(keys))
	if len(keys) == 0 {
		return out
	}
	lo := floats.Min(raw)
	hi := floats.Max(raw)
	span := hi - lo
	for i, k := range keys {
		if span <= 0 {
			out[k] = 0
			continue
		}
		out[k] = (raw[i] - lo) / span
	}
	return out
}
