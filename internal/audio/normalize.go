package audio

import "math"

// NormalizeResult describes what Normalize did to a buffer
type NormalizeResult struct {
	Peak   float64 // First-channel peak before normalization, in [0, 1]
	Gain   float64 // Multiplier applied to every sample
	Silent bool    // No rescale happened because the first channel is silent
}

// Normalize peak-normalizes buf in place so that the loudest first-channel
// sample reaches full scale. Every channel is scaled by the same gain and
// clamped. A silent buffer is left untouched. Normalize runs at most once
// per buffer; later calls are no-ops with unit gain.
func Normalize(buf *SampleBuffer) NormalizeResult {
	if buf.normalized {
		return NormalizeResult{Gain: 1}
	}
	buf.normalized = true

	n := buf.NumSamples()
	var peak float64
	for i := 0; i < n; i++ {
		if v := math.Abs(buf.Sample(i, 0)); v > peak {
			peak = v
		}
	}

	if peak == 0 {
		return NormalizeResult{Gain: 1, Silent: true}
	}

	gain := 1 / peak
	channels := buf.format.Channels
	for i := 0; i < n; i++ {
		for ch := 0; ch < channels; ch++ {
			off := buf.offset(i, ch)
			buf.realToPCM(off, gain*buf.pcmToReal(off))
		}
	}

	return NormalizeResult{Peak: peak, Gain: gain}
}
