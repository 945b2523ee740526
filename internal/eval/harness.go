// Package eval implements the evaluation harness (spec §4.8): deterministic
// replay of a Scenario through an injected agent callback, scored across
// seven dimensions.
package eval

import (
	"github.com/dcsim/dc-simulator/internal/simulator"
	"github.com/dcsim/dc-simulator/pkg/model"
)

// ScriptedFailure is one scenario-scripted fault injection.
type ScriptedFailure struct {
	AtTick    int
	Type      model.FailureType
	Target    string
	DurationS *float64
}

// Overrides patches config knobs for the duration of a scenario run,
// without mutating the simulator's base Config.
type Overrides struct {
	ArrivalRateMeanIntervalS *float64
}

// Scenario is a fixed, named evaluation run.
type Scenario struct {
	ID              string
	DurationTicks   int
	Overrides       Overrides
	ScriptedFailures []ScriptedFailure
}

// AgentFunc is the callback signature every agent implements: given a state
// snapshot, return the actions to apply before the next tick.
type AgentFunc func(model.FacilityState) []model.Action

// Result is the harness's output for one scenario run.
type Result struct {
	ScenarioID    string  `json:"scenario_id"`
	Ticks         int     `json:"ticks"`
	Composite     float64 `json:"composite"`
	SLA           float64 `json:"sla"`
	Energy        float64 `json:"energy"`
	Carbon        float64 `json:"carbon"`
	Thermal       float64 `json:"thermal"`
	Cost          float64 `json:"cost"`
	InfraHealth   float64 `json:"infra_health"`
	FailureResponse float64 `json:"failure_response"`
}

const (
	weightSLA             = 25.0
	weightEnergy          = 20.0
	weightCarbon          = 15.0
	weightThermal         = 15.0
	weightCost            = 10.0
	weightInfraHealth     = 10.0
	weightFailureResponse = 5.0
)

// Run resets sim, applies the scenario's overrides and scripted failures,
// drives it through DurationTicks ticks invoking agent after every tick,
// applies the returned actions, and scores the outcome.
func Run(sim *simulator.Simulator, scenario Scenario, agent AgentFunc) (Result, error) {
	if err := sim.ResetWithOverrides(scenario.Overrides.ArrivalRateMeanIntervalS); err != nil {
		return Result{}, err
	}

	throttledTicks := 0
	var snap model.FacilityState
	scriptedByTick := make(map[int][]ScriptedFailure)
	for _, sf := range scenario.ScriptedFailures {
		scriptedByTick[sf.AtTick] = append(scriptedByTick[sf.AtTick], sf)
	}

	resolveTimes := newFailureTracker()

	for tick := 1; tick <= scenario.DurationTicks; tick++ {
		snap = sim.Tick()
		if snap.Thermal.ThrottledCnt > 0 {
			throttledTicks++
		}
		resolveTimes.observe(snap)

		for _, sf := range scriptedByTick[tick] {
			_, _ = sim.InjectFailure(sf.Type, sf.Target, sf.DurationS, "scenario")
		}

		if agent != nil {
			actions := agent(snap)
			applyActions(sim, actions)
		}
	}

	sla := 100 * (1 - safeDiv(float64(snapSLAViolations(snap)), maxF(1, float64(snapTotalJobs(snap)))))
	avgPUE := snap.Power.PUE
	energy := 100 * clamp(1-(avgPUE-1.1)/0.5, 0, 1)
	carbonScore := 100 * clamp(1-snap.Carbon.CumulativeKG/referenceKG(scenario), 0, 1)
	thermalScore := 100 * (1 - safeDiv(float64(throttledTicks), float64(scenario.DurationTicks)))
	cost := 100 * clamp(1-snap.Carbon.CumulativeGBP/referenceGBP(scenario), 0, 1)
	infra := 100 * avg(snap.Storage.AvgDriveHealthPct/100, snap.GPU.HealthyFraction)
	failResp := resolveTimes.score(scenario.DurationTicks, sim.Config().Clock.TickIntervalS)

	composite := (sla*weightSLA + energy*weightEnergy + carbonScore*weightCarbon +
		thermalScore*weightThermal + cost*weightCost + infra*weightInfraHealth +
		failResp*weightFailureResponse) / 100.0

	return Result{
		ScenarioID:      scenario.ID,
		Ticks:           scenario.DurationTicks,
		Composite:       composite,
		SLA:             sla,
		Energy:          energy,
		Carbon:          carbonScore,
		Thermal:         thermalScore,
		Cost:            cost,
		InfraHealth:     infra,
		FailureResponse: failResp,
	}, nil
}

func applyActions(sim *simulator.Simulator, actions []model.Action) {
	for _, a := range actions {
		switch a.Kind {
		case model.ActionMigrateWorkload:
			_ = sim.MigrateWorkload(a.JobID, a.TargetRack, "agent")
		case model.ActionAdjustCooling:
			_ = sim.AdjustCooling(a.Rack, a.SetpointC, "agent")
		case model.ActionThrottleGPU:
			_ = sim.ThrottleGPU(a.ServerID, a.PowerCapPct, "agent")
		case model.ActionPreemptJob:
			_ = sim.PreemptJob(a.JobID, "agent")
		case model.ActionResolveFailure:
			_ = sim.ResolveFailure(a.FailureID, "agent")
		case model.ActionInjectFailure:
			_, _ = sim.InjectFailure(a.FailureType, a.Target, a.DurationS, "agent")
		}
	}
}

func snapSLAViolations(s model.FacilityState) int { return s.Workload.SLAViolations }
func snapTotalJobs(s model.FacilityState) int     { return s.Workload.TotalJobsSeen }

// referenceKG/referenceGBP give the scenario its normalisation denominator:
// a fixed budget per tick (0.05 kg, 0.02 GBP; at least 1), independent of
// the config, used only to scale the Carbon/Cost subscores into [0,100].
func referenceKG(s Scenario) float64 {
	return maxF(1, float64(s.DurationTicks)*0.05)
}

func referenceGBP(s Scenario) float64 {
	return maxF(1, float64(s.DurationTicks)*0.02)
}

func safeDiv(a, b float64) float64 {
	if b == 0 {
		return 0
	}
	return a / b
}

func maxF(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func avg(vals ...float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
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
