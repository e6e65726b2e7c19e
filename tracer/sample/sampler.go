// Package sample implements the tracker's sampling policy: a pure decision
// function over an allocation's size and its call site's observed
// frequency, gated by a per-thread deterministic PRNG.
package sample

// Config holds the tunable sampling parameters (SPEC_FULL.md §4.3/§6).
type Config struct {
	SmallRate          float64
	MediumRate         float64
	LargeRate          float64
	MediumThreshold    uint64
	LargeThreshold     uint64
	FrequencyThreshold uint64
}

// DefaultConfig returns the spec-mandated defaults.
func DefaultConfig() Config {
	return Config{
		SmallRate:          0.01,
		MediumRate:         0.1,
		LargeRate:          1.0,
		MediumThreshold:    2 * 1024,
		LargeThreshold:     64 * 1024,
		FrequencyThreshold: 1000,
	}
}

// DemoConfig samples everything: all base rates are 1.0, which combined with
// the "rate >= 1.0 always accepts" rule (below) samples every allocation
// without ever drawing from the PRNG.
func DemoConfig() Config {
	return Config{
		SmallRate:          1.0,
		MediumRate:         1.0,
		LargeRate:          1.0,
		MediumThreshold:    2 * 1024,
		LargeThreshold:     64 * 1024,
		FrequencyThreshold: 1000,
	}
}

// LCG is the per-thread deterministic pseudo-random generator the sampler
// draws from. It uses the classic constants 1103515245/12345 so the same
// (seed, draw count) sequence is reproducible across runs, which property
// tests rely on.
type LCG struct {
	state uint64
}

// NewLCG seeds a generator from a thread id.
func NewLCG(seed uint64) *LCG {
	return &LCG{state: seed}
}

// Next draws the next pseudo-random fraction in [0, 1), extracting bits
// 16-31 of the updated LCG state as the spec requires.
func (g *LCG) Next() float64 {
	g.state = (g.state*1103515245 + 12345) & 0xffffffff
	bits := (g.state >> 16) & 0xffff

	return float64(bits) / 65536.0
}

// rate computes the base-rate * frequency-multiplier decision rate for one
// allocation, clipped to [0, 1].
func rate(size, callSiteFrequency uint64, cfg Config) float64 {
	var base float64

	switch {
	case size >= cfg.LargeThreshold:
		base = cfg.LargeRate
	case size >= cfg.MediumThreshold:
		base = cfg.MediumRate
	default:
		base = cfg.SmallRate
	}

	if callSiteFrequency > cfg.FrequencyThreshold {
		mult := float64(callSiteFrequency) / float64(cfg.FrequencyThreshold)
		if mult > 10.0 {
			mult = 10.0
		}

		base *= mult
	}

	if base < 0 {
		base = 0
	}

	if base > 1 {
		base = 1
	}

	return base
}

// Sample decides whether one allocation should be emitted as an event. The
// final rate saturating at >= 1.0 always accepts without drawing from the
// PRNG — this holds uniformly across every preset, including "demo", per
// SPEC_FULL.md Open Question 3.
func Sample(size, callSiteFrequency uint64, cfg Config, prng *LCG) bool {
	finalRate := rate(size, callSiteFrequency, cfg)

	if finalRate >= 1.0 {
		return true
	}

	return prng.Next() < finalRate
}
