package score

// rng is a value-typed SplitMix64 generator. Walkers need bit-identical
// streams for a given (edge key, walker index) across runs and across the
// worker boundary, so state is a plain uint64 rather than a *rand.Rand.
// Constants are the canonical SplitMix64 multipliers (Vigna 2014).
type rng struct{ s uint64 }

// seedRNG folds the parts into one avalanche-mixed seed.
func seedRNG(parts ...uint64) rng {
	var s uint64
	for _, p := range parts {
		s = mix64(s ^ p)
	}
	return rng{s: s}
}

func mix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

func (r *rng) next() uint64 {
	r.s += 0x9e3779b97f4a7c15
	z := r.s
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// float64 returns a uniform value in [0,1) with 53 bits of precision.
func (r *rng) float64() float64 {
	return float64(r.next()>>11) / (1 << 53)
}
