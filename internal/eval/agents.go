package eval

import "github.com/dcsim/dc-simulator/pkg/model"

// BuiltinAgents returns the reference agents registered by default: a no-op
// baseline, a simple reactive controller and an EWMA/CUSUM predictive
// controller, all conforming to the
// (FacilityState) -> []Action callback convention (spec §9 design note).
func BuiltinAgents() map[string]AgentFunc {
	return map[string]AgentFunc{
		"noop":       NoopAgent,
		"reactive":   ReactiveAgent,
		"predictive": NewPredictiveAgent(),
	}
}

// NoopAgent never intervenes; useful as a scoring floor.
func NoopAgent(model.FacilityState) []model.Action { return nil }

// ReactiveAgent lowers a throttled zone's cooling setpoint and resolves any
// failure that has been active for more than ten ticks worth of simulated
// time, as a minimal example of a rule-based controller over the callback
// convention.
func ReactiveAgent(s model.FacilityState) []model.Action {
	var actions []model.Action
	for _, r := range s.Thermal.Racks {
		if r.Throttled {
			actions = append(actions, model.Action{
				Kind: model.ActionAdjustCooling, Rack: r.RackID, SetpointC: 16,
			})
		}
	}
	for _, f := range s.ActiveFailures {
		if f.ExpiryTime == nil && s.Clock-f.StartTime > 600 {
			actions = append(actions, model.Action{
				Kind: model.ActionResolveFailure, FailureID: f.ID,
			})
		}
	}
	return actions
}
