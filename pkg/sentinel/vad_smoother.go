package sentinel

import "time"

// scoreSample is a single timestamped VAD score inside the smoothing
// window.
type scoreSample struct {
	at    time.Time
	score float64
}

// VADSmoother turns a noisy per-frame VAD score into a hysteresis-gated
// speaking/not-speaking boolean, so single-frame flicker from the raw VAD
// model never reaches the Sentinel's state machine. Mirrors the
// confirmed-frame hysteresis in the teacher's RMSVAD, generalized from a
// frame-count gate to a time-windowed mean gate.
type VADSmoother struct {
	windowDur     time.Duration
	enterThresh   float64
	exitThresh    float64
	samples       []scoreSample
	speaking      bool
}

// NewVADSmoother builds a VADSmoother with the given window and hysteresis
// thresholds. windowMs=400, enterThreshold=0.6, exitThreshold=0.3 are the
// defaults.
func NewVADSmoother(windowMs int, enterThreshold, exitThreshold float64) *VADSmoother {
	return &VADSmoother{
		windowDur:   time.Duration(windowMs) * time.Millisecond,
		enterThresh: enterThreshold,
		exitThresh:  exitThreshold,
	}
}

// Update feeds a new VAD score for timestamp now and returns the smoothed
// speaking state. Transitions false→true only once the windowed mean
// exceeds enterThreshold; true→false only once it falls below
// exitThreshold. Otherwise the prior state holds.
func (v *VADSmoother) Update(score float64, now time.Time) bool {
	v.samples = append(v.samples, scoreSample{at: now, score: score})
	cutoff := now.Add(-v.windowDur)

	i := 0
	for i < len(v.samples) && v.samples[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		v.samples = v.samples[i:]
	}

	var sum float64
	for _, s := range v.samples {
		sum += s.score
	}
	mean := sum / float64(len(v.samples))

	switch {
	case !v.speaking && mean > v.enterThresh:
		v.speaking = true
	case v.speaking && mean < v.exitThresh:
		v.speaking = false
	}

	return v.speaking
}

// Speaking returns the current smoothed state without feeding a new score.
func (v *VADSmoother) Speaking() bool {
	return v.speaking
}

// Reset clears the window and returns to not-speaking.
func (v *VADSmoother) Reset() {
	v.samples = nil
	v.speaking = false
}
