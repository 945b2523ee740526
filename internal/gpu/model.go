// Package gpu derives per-server GPU telemetry from upstream thermal and
// utilisation state (spec §4.6). Read-only: it never feeds back into the
// simulation within the same tick.
package gpu

import "github.com/dcsim/dc-simulator/internal/rng"

const (
	junctionCritical = 83.0
	eccBaseRate      = 1e-7
	eccHotMultiplier = 3.0
	eccHotThreshold  = 85.0
	clockFullMHz     = 1800.0
	throttledClockFrac = 0.6
	baseBandwidthGBs = 900.0
)

// State is one server's derived GPU telemetry for the tick.
type State struct {
	JunctionTempC   float64
	Throttled       bool
	ClockMHz        float64
	ECCErrorRate    float64
	MemBandwidthGBs float64
}

// Compute derives junction temperature, throttle flag, clocks, ECC rate and
// bandwidth for one server from its rack inlet and utilisation.
func Compute(inletC, util float64, r *rng.Source) State {
	junction := inletC + 5 + 70*util + r.Normal(0, 1)

	throttled := junction > junctionCritical
	clock := clockFullMHz
	if throttled {
		clock *= throttledClockFrac
	}

	ecc := eccBaseRate
	if junction > eccHotThreshold {
		ecc *= eccHotMultiplier
	}

	bandwidth := baseBandwidthGBs * util
	if throttled {
		bandwidth *= throttledClockFrac
	}

	return State{
		JunctionTempC:   junction,
		Throttled:       throttled,
		ClockMHz:        clock,
		ECCErrorRate:    ecc,
		MemBandwidthGBs: bandwidth,
	}
}
