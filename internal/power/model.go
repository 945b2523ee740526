// Package power implements the non-linear GPU power curve, dynamic PUE,
// and facility power-cap accounting (spec §4.4).
package power

import (
	"sort"

	"github.com/dcsim/dc-simulator/internal/config"
)

const idleFrac = 0.05

// GPUCurve returns the fractional power draw of a GPU at utilisation u,
// gpu_curve(u) = idle_frac + (1-idle_frac)*(0.3u + 0.7u^2).
func GPUCurve(u float64) float64 {
	return idleFrac + (1-idleFrac)*(0.3*u+0.7*u*u)
}

// ServerInput is the per-server data the power model needs; pdu_spike
// multipliers are supplied separately to Compute, per rack.
type ServerInput struct {
	ID       string
	RackID   int
	NumGPUs  int
	Util     float64
}

// Result is the whole-facility power computation for one tick.
type Result struct {
	ServerPowerW map[string]float64
	RackPowerKW  map[int]float64
	ITKW         float64
	PUE          float64
	FacilityKW   float64
	HeadroomKW   float64
	CapExceeded  bool
	PDUUtil      map[int]float64
}

// Compute runs the power model for one tick. ambientC is the current
// ambient temperature (used by the dynamic PUE term); pduSpikeMult(rack)
// returns the active pdu_spike multiplier (1.0 when none).
func Compute(cfg config.Config, servers []ServerInput, ambientC float64, pduSpikeMult func(rack int) float64) Result {
	res := Result{
		ServerPowerW: make(map[string]float64),
		RackPowerKW:  make(map[int]float64),
		PDUUtil:      make(map[int]float64),
	}

	rackBaseW := make(map[int]float64)
	for _, s := range servers {
		serverW := cfg.Power.ServerBasePowerWatts + float64(s.NumGPUs)*GPUCurve(s.Util)*cfg.Power.GPUTDPWatts
		res.ServerPowerW[s.ID] = serverW
		rackBaseW[s.RackID] += serverW
	}

	// Racks are summed in id order so ITKW is bit-identical on replay.
	rackIDs := make([]int, 0, len(rackBaseW))
	for rack := range rackBaseW {
		rackIDs = append(rackIDs, rack)
	}
	sort.Ints(rackIDs)
	for _, rack := range rackIDs {
		w := rackBaseW[rack]
		mult := 1.0
		if pduSpikeMult != nil {
			mult = pduSpikeMult(rack)
		}
		kw := (w * mult) / 1000.0
		res.RackPowerKW[rack] = kw
		res.ITKW += kw
		if cfg.Power.PDUCapacityKW > 0 {
			res.PDUUtil[rack] = kw / cfg.Power.PDUCapacityKW
		}
	}

	basePUE := cfg.Power.PUEOverheadFactor
	loadFraction := 0.0
	if cfg.Power.FacilityPowerCapKW > 0 {
		loadFraction = res.ITKW / cfg.Power.FacilityPowerCapKW
	}
	pue := basePUE*(1+0.4*(1-loadFraction)) + 0.005*maxF(0, ambientC-22)
	pue = clamp(pue, basePUE, basePUE*1.6)
	res.PUE = pue
	res.FacilityKW = res.ITKW * pue
	res.HeadroomKW = cfg.Power.FacilityPowerCapKW - res.FacilityKW
	res.CapExceeded = res.HeadroomKW < 0
	return res
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
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
