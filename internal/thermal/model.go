// Package thermal implements the per-rack thermal energy balance with
// recirculation and hysteretic throttling (spec §4.5).
package thermal

import (
	"math"

	"github.com/dcsim/dc-simulator/internal/config"
)

// RackState is the thermal model's owned per-rack mutable state.
type RackState struct {
	ID        int
	ZoneID    int
	Inlet     float64
	Outlet    float64
	HeatKW    float64
	Humidity  float64
	Throttled bool
}

// New builds one RackState per configured rack, inlet initialised to
// ambient.
func New(cfg config.Config) []*RackState {
	racks := make([]*RackState, cfg.Facility.NumRacks)
	for r := range racks {
		racks[r] = &RackState{
			ID:       r,
			ZoneID:   cfg.ZoneOf(r),
			Inlet:    cfg.Thermal.AmbientTempC,
			Outlet:   cfg.Thermal.AmbientTempC,
			Humidity: 45,
		}
	}
	return racks
}

// Ambient returns the diurnal ambient temperature at the given hour-of-day.
func Ambient(baseAmbient, hourOfDay float64) float64 {
	return baseAmbient + 4*math.Sin(2*math.Pi*(hourOfDay-14)/24)
}

// cracHealth is supplied by the failure engine: 0.0, 0.5 or 1.0.
type CRACHealthFunc func(zone int) float64

// Tick advances every rack's thermal state by one step. heatKW is the
// per-rack IT heat generated this tick (from the power model's rack power,
// minus efficiency losses already folded into the power model — thermal
// treats rack power as heat 1:1, the conventional data-centre simplification).
// cracCoolingOn reports whether any CRAC in the rack's zone is actively
// cooling (for the humidity term).
func Tick(cfg config.Config, racks []*RackState, rackHeatKW map[int]float64, ambientC float64, cracHealth CRACHealthFunc, tickIntervalS float64, cracCoolingOn func(zone int) bool) {
	racksPerZone := cfg.RacksPerZone()
	if racksPerZone <= 0 {
		racksPerZone = 1
	}

	// heat per rack this tick, needed for the recirculation term.
	heat := make(map[int]float64, len(racks))
	for _, r := range racks {
		heat[r.ID] = rackHeatKW[r.ID]
	}

	for _, r := range racks {
		health := 1.0
		if cracHealth != nil {
			health = cracHealth(r.ZoneID)
		}
		baseRemove := (cfg.Thermal.CRACCoolingCapacityKW * health) / racksPerZone

		ambientDerate := math.Max(0.7, 1-0.02*math.Max(0, ambientC-22))
		humidityDerate := math.Max(0.8, 1-0.01*math.Max(0, r.Humidity-60))
		inletDerate := math.Max(0.7, 1-0.02*math.Max(0, r.Inlet-30))
		effectiveRemoved := baseRemove * ambientDerate * humidityDerate * inletDerate

		recirc := 0.0
		for _, other := range racks {
			if other.ID == r.ID || other.ZoneID != r.ZoneID {
				continue
			}
			recirc += 0.08 * heat[other.ID]
		}

		heatGenerated := heat[r.ID]
		net := heatGenerated + recirc - effectiveRemoved
		delta := net * cfg.Thermal.ThermalMassCoefficient * (tickIntervalS / 60.0)
		inlet := r.Inlet + delta
		if math.IsNaN(inlet) || math.IsInf(inlet, 0) {
			inlet = ambientC
		}
		inlet = clamp(inlet, ambientC, 60)
		r.Inlet = inlet
		r.HeatKW = heatGenerated
		r.Outlet = inlet + 5*heatGenerated

		cracOn := 1.0
		if cracCoolingOn != nil && !cracCoolingOn(r.ZoneID) {
			cracOn = 0.0
		}
		humidity := 45 - 0.5*heatGenerated + 0.3*cracOn
		r.Humidity = clamp(humidity, 10, 90)

		// Hysteresis: set when inlet >= critical; clear only when
		// inlet <= critical - 2. Consumed by the workload model next tick.
		if r.Inlet >= cfg.Thermal.CriticalInletTempC {
			r.Throttled = true
		} else if r.Inlet <= cfg.Thermal.CriticalInletTempC-2 {
			r.Throttled = false
		}
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
