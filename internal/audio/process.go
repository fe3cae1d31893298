package audio

import "math"

// ProcessorConfig controls the post-processing applied to raw engine output
// before encoding.
type ProcessorConfig struct {
	// NoiseGateThreshold zeroes samples whose absolute value is strictly
	// below it. Zero or negative disables the gate.
	NoiseGateThreshold float64
	// EnableNormalization rescales the buffer so its peak equals NormalizeTarget.
	EnableNormalization bool
	// NormalizeTarget is clamped to [0, 1] at construction.
	NormalizeTarget float64
}

// Processor applies a noise gate followed by peak normalization to a float
// sample buffer. It never mutates its input.
type Processor struct {
	threshold float64
	normalize bool
	target    float64
}

// NewProcessor builds a Processor, clamping the threshold to be non-negative
// and the normalization target into [0, 1].
func NewProcessor(cfg ProcessorConfig) *Processor {
	threshold := cfg.NoiseGateThreshold
	if threshold < 0 {
		threshold = 0
	}
	target := cfg.NormalizeTarget
	if target < 0 {
		target = 0
	} else if target > 1 {
		target = 1
	}
	return &Processor{
		threshold: threshold,
		normalize: cfg.EnableNormalization,
		target:    target,
	}
}

// Apply runs the configured transforms in order: noise gate, then peak
// normalization. With both disabled the input is returned untouched.
func (p *Processor) Apply(samples []float64) []float64 {
	if p.threshold <= 0 && !p.normalize {
		return samples
	}

	processed := make([]float64, len(samples))
	copy(processed, samples)

	if p.threshold > 0 {
		for i, s := range processed {
			if math.Abs(s) < p.threshold {
				processed[i] = 0
			}
		}
	}

	if p.normalize {
		peak := 0.0
		for _, s := range processed {
			if a := math.Abs(s); a > peak {
				peak = a
			}
		}
		if peak > 0 {
			scale := p.target / peak
			for i := range processed {
				processed[i] *= scale
			}
		}
	}

	return processed
}
