package eval

import "github.com/dcsim/dc-simulator/pkg/model"

// failureTracker watches the active-failure set across ticks to compute the
// mean time-to-resolve feeding the FailureResponse subscore.
type failureTracker struct {
	firstSeen map[string]float64 // failure id -> clock time first observed
	resolved  []float64          // resolution durations, in seconds
	lastSeen  map[string]bool
}

func newFailureTracker() *failureTracker {
	return &failureTracker{
		firstSeen: make(map[string]float64),
		lastSeen:  make(map[string]bool),
	}
}

func (t *failureTracker) observe(snap model.FacilityState) {
	current := make(map[string]bool, len(snap.ActiveFailures))
	for _, f := range snap.ActiveFailures {
		current[f.ID] = true
		if _, ok := t.firstSeen[f.ID]; !ok {
			t.firstSeen[f.ID] = snap.Clock
		}
	}
	for id, start := range t.firstSeen {
		if t.lastSeen[id] && !current[id] {
			t.resolved = append(t.resolved, snap.Clock-start)
		}
	}
	t.lastSeen = current
}

// score turns the observed resolution durations into the FailureResponse
// subscore. Failures still active at the end of the run count their
// elapsed (unresolved) duration, so an agent that never clears a fault
// cannot hide behind "the run ended first".
func (t *failureTracker) score(durationTicks int, tickIntervalS float64) float64 {
	durations := append([]float64(nil), t.resolved...)
	endTime := float64(durationTicks) * tickIntervalS
	for id, start := range t.firstSeen {
		if t.lastSeen[id] {
			durations = append(durations, endTime-start)
		}
	}
	if len(durations) == 0 {
		return 100
	}
	sum := 0.0
	for _, d := range durations {
		sum += d
	}
	mean := sum / float64(len(durations))
	budget := endTime
	if budget <= 0 {
		budget = 1
	}
	return 100 * clamp(1-mean/budget, 0, 1)
}
