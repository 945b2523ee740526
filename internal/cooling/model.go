// Package cooling implements the CRAC/CHW-loop telemetry layer: per-unit
// cooling output, temperature-derated COP, and cooling electrical power
// (spec §4.6).
package cooling

import "math"

// State is one CRAC unit's derived telemetry for the tick.
type State struct {
	OutputKW         float64
	COP              float64
	PowerKW          float64
	HealthMultiplier float64
}

// COP returns the coefficient of performance at the given ambient
// temperature, clamped to [2.0, 6.0].
func COP(baseCOP, ambientC float64) float64 {
	cop := baseCOP * (1 - 0.02*math.Max(0, ambientC-22)) * (1 + 0.1*math.Max(0, 22-ambientC))
	return clamp(cop, 2.0, 6.0)
}

// Compute derives one CRAC unit's output/power for the tick. heatAbsorbedKW
// is the sum of heat generated this tick by the racks this unit serves;
// setpointMultiplier
// is the adjust_cooling action's persisted per-zone multiplier.
func Compute(heatAbsorbedKW, baseCOP, ambientC, healthMultiplier, setpointMultiplier float64) State {
	output := heatAbsorbedKW * healthMultiplier * setpointMultiplier
	cop := COP(baseCOP, ambientC)
	power := 0.0
	if cop > 0 {
		power = output / cop
	}
	return State{
		OutputKW:         output,
		COP:              cop,
		PowerKW:          power,
		HealthMultiplier: healthMultiplier,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
