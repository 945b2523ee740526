package eval

import "github.com/dcsim/dc-simulator/pkg/model"

// BuiltinScenarios returns the named scenarios from the spec's end-to-end
// scenario list (§8) that are agent-scoreable (the determinism, migration
// and invalid-migrate scenarios are assertions over raw snapshots, not agent
// evaluations, and live in the simulator's own tests instead).
func BuiltinScenarios() map[string]Scenario {
	scenarios := []Scenario{
		{
			ID:            "thermal_crisis",
			DurationTicks: 40,
			ScriptedFailures: []ScriptedFailure{
				{AtTick: 30, Type: model.FailureCRACFailure, Target: "crac-0"},
			},
		},
		{
			ID:            "overload",
			DurationTicks: 120,
			Overrides:     Overrides{ArrivalRateMeanIntervalS: floatPtr(60)},
		},
		{
			ID:            "carbon_cycle",
			DurationTicks: 1440,
		},
	}
	out := make(map[string]Scenario, len(scenarios))
	for _, s := range scenarios {
		out[s.ID] = s
	}
	return out
}

func floatPtr(v float64) *float64 { return &v }
