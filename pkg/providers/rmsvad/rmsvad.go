// Package rmsvad implements sentinel.VADProvider with a lightweight,
// no-dependency root-mean-square energy detector, grounded on the
// teacher's RMSVAD. It is the pipeline's default VAD when no out-of-
// process inference service is configured; the Sentinel's own
// VADSmoother still applies hysteresis on top of whatever score it
// returns.
package rmsvad

import "math"

// Gain scales raw RMS amplitude (roughly [0, 0.3] for conversational
// speech) up into the VADSmoother's expected [0, 1] score range.
const Gain = 3.0

// Detector scores a frame's speech probability from its RMS amplitude.
type Detector struct {
	gain float64
}

// New builds a Detector using the default gain.
func New() *Detector {
	return &Detector{gain: Gain}
}

// Score implements sentinel.VADProvider.
func (d *Detector) Score(samples []float32) (float64, error) {
	if len(samples) == 0 {
		return 0, nil
	}
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	score := rms * d.gain
	if score > 1 {
		score = 1
	}
	return score, nil
}
