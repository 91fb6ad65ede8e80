package telemetry

import (
	"testing"
	"time"
)

func TestDriftMonitor_FlagsRateBeyondTolerance(t *testing.T) {
	log, path := newTestLog(t)
	d := NewDriftMonitor(log, 16000)
	now := time.Now()

	// 16000 expected, but only ~8000 samples arrive per second: well
	// beyond the 2% tolerance.
	d.Observe(8000*5, now)
	d.Observe(0, now.Add(driftWindow+time.Millisecond))

	var sawDrift bool
	for _, l := range readLines(t, path) {
		if l["type"] == TypeDeviceDrift {
			sawDrift = true
		}
	}
	if !sawDrift {
		t.Fatal("expected a DEVICE_DRIFT event for a rate far below expected")
	}
}

func TestDriftMonitor_ToleratesSmallJitter(t *testing.T) {
	log, path := newTestLog(t)
	d := NewDriftMonitor(log, 16000)
	now := time.Now()

	// Within 2% of 16000/sec over the window.
	d.Observe(16000*5, now)
	d.Observe(0, now.Add(driftWindow+time.Millisecond))

	for _, l := range readLines(t, path) {
		if l["type"] == TypeDeviceDrift {
			t.Fatalf("unexpected DEVICE_DRIFT event for a rate within tolerance: %v", l)
		}
	}
}
