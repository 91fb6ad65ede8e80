package sentinel

// SilenceJitter tracks how long silence has persisted since the last
// confirmed speech, under two independent conditions, so the Sentinel
// does not fire a trigger on a merely brief in-speech pause. Grounded on
// the asymmetric hysteresis counters in the teacher's RMSVAD and on
// fankserver's HybridVAD.updateState consecutive-frame accumulator.
type SilenceJitter struct {
	minContinuousMs   float64
	windowMs          float64
	silenceMs         float64
	windowSilenceMs   float64
}

// NewSilenceJitter builds a SilenceJitter with the given continuous and
// windowed silence thresholds in milliseconds. minContinuousMs=600,
// windowMs=800 are the defaults.
func NewSilenceJitter(minContinuousMs, windowMs float64) *SilenceJitter {
	return &SilenceJitter{
		minContinuousMs: minContinuousMs,
		windowMs:        windowMs,
	}
}

// ResetOnSpeech zeroes both counters; called whenever the VADSmoother
// reports speaking.
func (s *SilenceJitter) ResetOnSpeech() {
	s.silenceMs = 0
	s.windowSilenceMs = 0
}

// UpdateSilence accumulates deltaMs of newly observed silence into both
// counters. windowSilenceMs is clamped to windowMs so an arbitrarily long
// silence doesn't keep that counter growing unbounded.
func (s *SilenceJitter) UpdateSilence(deltaMs float64) {
	s.silenceMs += deltaMs
	s.windowSilenceMs += deltaMs
	if s.windowSilenceMs > s.windowMs {
		s.windowSilenceMs = s.windowMs
	}
}

// IsTriggerReady reports whether both the continuous and windowed silence
// conditions are satisfied.
func (s *SilenceJitter) IsTriggerReady() bool {
	return s.silenceMs >= s.minContinuousMs && s.windowSilenceMs >= s.windowMs
}

// ContinuousSilenceMs returns the current continuous silence duration, for
// the Sentinel's mic-dead inactivity check.
func (s *SilenceJitter) ContinuousSilenceMs() float64 {
	return s.silenceMs
}
