package eval

import "github.com/dcsim/dc-simulator/pkg/model"

// predictiveRackState tracks one rack's smoothed inlet-temperature trend and
// cumulative-sum drift detector, the same two primitives a control-theory
// baseline would reach for: an EWMA smoother against sensor noise, and a
// CUSUM detector against sustained drift, rather than reacting only once a
// rack has already crossed into Throttled.
type predictiveRackState struct {
	ewmaInletC float64
	ewmaInit   bool

	cusumPos      float64
	cusumNeg      float64
	referenceC    float64
	referenceInit bool
}

const (
	predictiveEWMAAlpha  = 0.167 // matches the smoothing default used elsewhere in the corpus
	predictiveCUSUMDrift = 0.25  // °C of tolerated drift per tick before it accumulates
	predictiveCUSUMH     = 3.0   // cumulative-sum threshold that trips an early intervention
)

func (r *predictiveRackState) update(inletC float64) (smoothed float64, drifting bool) {
	if !r.ewmaInit {
		r.ewmaInletC = inletC
		r.ewmaInit = true
	} else {
		r.ewmaInletC = predictiveEWMAAlpha*inletC + (1-predictiveEWMAAlpha)*r.ewmaInletC
	}

	if !r.referenceInit {
		r.referenceC = r.ewmaInletC
		r.referenceInit = true
	}

	dev := r.ewmaInletC - r.referenceC
	r.cusumPos = max(0, r.cusumPos+dev-predictiveCUSUMDrift)
	r.cusumNeg = max(0, r.cusumNeg-dev-predictiveCUSUMDrift)

	return r.ewmaInletC, r.cusumPos > predictiveCUSUMH
}

// PredictiveAgent lowers a rack's cooling setpoint as soon as its smoothed
// inlet temperature shows a sustained upward drift, rather than waiting for
// the rack to actually cross into Throttled the way ReactiveAgent does. It
// holds per-rack smoothing state across calls, so it is built once per
// evaluation run via NewPredictiveAgent rather than registered as a bare
// function.
type PredictiveAgent struct {
	racks map[int]*predictiveRackState
}

// NewPredictiveAgent returns a fresh PredictiveAgent with no smoothing
// history, wrapped as an AgentFunc for registration with a Server or Run.
func NewPredictiveAgent() AgentFunc {
	a := &PredictiveAgent{racks: make(map[int]*predictiveRackState)}
	return a.Act
}

// Act implements AgentFunc.
func (a *PredictiveAgent) Act(s model.FacilityState) []model.Action {
	var actions []model.Action
	for _, r := range s.Thermal.Racks {
		st, ok := a.racks[r.RackID]
		if !ok {
			st = &predictiveRackState{}
			a.racks[r.RackID] = st
		}
		smoothed, drifting := st.update(r.InletC)

		if drifting || r.Throttled {
			actions = append(actions, model.Action{
				Kind: model.ActionAdjustCooling, Rack: r.RackID, SetpointC: 16,
			})
			st.referenceC = smoothed
			st.cusumPos = 0
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
