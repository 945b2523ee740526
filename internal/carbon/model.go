// Package carbon implements the diurnal carbon-intensity and price curves
// and cumulative emissions/cost accounting (spec §4.6, GLOSSARY).
package carbon

import (
	"math"

	"github.com/dcsim/dc-simulator/internal/rng"
)

const (
	intensityBase = 210.0 // midpoint of 140 min / 280 max
	intensityAmp  = 70.0
	intensityNoiseSigma = 5.0
)

// IntensityGCO2PerKWh returns the carbon intensity at the given hour-of-day,
// trough ~140 at 03:00, peak ~280 at 15:00, with Gaussian noise sigma=5.
func IntensityGCO2PerKWh(hourOfDay float64, r *rng.Source) float64 {
	// Peak at hour 15, trough at hour 3: a sine with period 24h shifted so
	// its maximum lands at 15.
	phase := 2 * math.Pi * (hourOfDay - 15) / 24
	val := intensityBase + intensityAmp*math.Cos(phase)
	return val + r.Normal(0, intensityNoiseSigma)
}

// PriceGBPPerKWh returns the double-peak price profile documented in the
// glossary: trough ~0.10 (01-05), peak 0.23 (07-09), mid 0.15 (11-15),
// peak 0.21 (17-19), 0.13 (21-01).
func PriceGBPPerKWh(hourOfDay float64) float64 {
	h := math.Mod(hourOfDay, 24)
	switch {
	case h >= 1 && h < 5:
		return 0.10
	case h >= 5 && h < 7:
		return lerp(h, 5, 7, 0.10, 0.23)
	case h >= 7 && h < 9:
		return 0.23
	case h >= 9 && h < 11:
		return lerp(h, 9, 11, 0.23, 0.15)
	case h >= 11 && h < 15:
		return 0.15
	case h >= 15 && h < 17:
		return lerp(h, 15, 17, 0.15, 0.21)
	case h >= 17 && h < 19:
		return 0.21
	case h >= 19 && h < 21:
		return lerp(h, 19, 21, 0.21, 0.13)
	case h >= 21 || h < 1:
		return 0.13
	default:
		return 0.15
	}
}

func lerp(x, x0, x1, y0, y1 float64) float64 {
	if x1 == x0 {
		return y0
	}
	t := (x - x0) / (x1 - x0)
	return y0 + t*(y1-y0)
}

// Accumulator tracks cumulative carbon/cost across ticks.
type Accumulator struct {
	CumulativeKG  float64
	CumulativeGBP float64
}

// Accumulate adds this tick's contribution from facilityPowerKW over
// tickIntervalS seconds at the given intensity/price.
func (a *Accumulator) Accumulate(facilityPowerKW, tickIntervalS, intensity, price float64) {
	kwh := facilityPowerKW * tickIntervalS / 3600.0
	a.CumulativeKG += kwh * intensity / 1000.0
	a.CumulativeGBP += kwh * price
}

// Reset zeroes the cumulative counters.
func (a *Accumulator) Reset() {
	a.CumulativeKG = 0
	a.CumulativeGBP = 0
}
