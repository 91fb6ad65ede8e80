package telemetry

import (
	"sync"
	"time"
)

// driftToleranceFraction bounds how far the observed capture rate may
// wander from the configured rate before it is treated as real device
// drift rather than ordinary frame-delivery jitter. The original sample
// comparison flags any non-zero difference, but that assumes a driver API
// reporting an exact negotiated rate; deriving the rate from wall-clock
// frame arrival (§ Audio capture) is inherently noisier, so a small
// tolerance keeps DEVICE_DRIFT meaningful instead of firing every window.
const driftToleranceFraction = 0.02

// driftWindow is how much capture time DriftMonitor accumulates before it
// estimates an observed sample rate and compares it to the configured one.
const driftWindow = 5 * time.Second

// DriftMonitor watches the rate at which audio samples actually arrive
// from the capture device and flags a mismatch against the configured
// sample rate as DEVICE_DRIFT telemetry.
type DriftMonitor struct {
	events       *Log
	expectedRate int

	mu          sync.Mutex
	windowStart time.Time
	samples     int
}

// NewDriftMonitor builds a monitor comparing observed capture rate against
// expectedRate (the configured audio sample rate). events may be nil, in
// which case drift is still detected but never written.
func NewDriftMonitor(events *Log, expectedRate int) *DriftMonitor {
	return &DriftMonitor{events: events, expectedRate: expectedRate}
}

// Observe accounts for frameCount samples delivered at now. Once a full
// driftWindow of audio has accumulated, it estimates the observed sample
// rate and checks it against the configured rate, emitting DEVICE_DRIFT on
// a mismatch beyond tolerance.
func (d *DriftMonitor) Observe(frameCount int, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.windowStart.IsZero() {
		d.windowStart = now
	}
	d.samples += frameCount

	elapsed := now.Sub(d.windowStart)
	if elapsed < driftWindow {
		return
	}

	observed := int(float64(d.samples) / elapsed.Seconds())
	d.detect(observed)

	d.windowStart = now
	d.samples = 0
}

func (d *DriftMonitor) detect(observed int) bool {
	drift := d.expectedRate - observed
	if drift < 0 {
		drift = -drift
	}
	tolerance := int(float64(d.expectedRate) * driftToleranceFraction)
	if drift <= tolerance {
		return false
	}
	if d.events != nil {
		d.events.writeRaw(map[string]any{
			"type":     TypeDeviceDrift,
			"expected": d.expectedRate,
			"observed": observed,
		})
	}
	return true
}
