package eval

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/dcsim/dc-simulator/pkg/model"
)

type PredictiveAgentTestSuite struct {
	suite.Suite
}

func (s *PredictiveAgentTestSuite) TestAdjustsSettingOnlyAfterSustainedDrift() {
	act := NewPredictiveAgent()

	state := model.FacilityState{Clock: 0, Thermal: model.ThermalSummary{
		Racks: []model.ThermalRackState{{RackID: 0, InletC: 22}},
	}}

	var actions []model.Action
	for i := 0; i < 3; i++ {
		actions = act(state)
	}
	s.Empty(actions, "a few ticks at ambient must not trip an early intervention")

	for i := 0; i < 20; i++ {
		state.Thermal.Racks[0].InletC += 1.0
		actions = act(state)
	}
	s.NotEmpty(actions, "sustained upward drift must eventually trigger a cooling adjustment")
	s.Equal(model.ActionAdjustCooling, actions[0].Kind)
	s.Equal(0, actions[0].Rack)
}

func (s *PredictiveAgentTestSuite) TestResolvesLongStandingFailures() {
	act := NewPredictiveAgent()
	state := model.FacilityState{
		Clock: 1000,
		ActiveFailures: []model.ActiveFailure{
			{ID: "f1", StartTime: 0, ExpiryTime: nil},
		},
	}
	actions := act(state)
	s.Require().Len(actions, 1)
	s.Equal(model.ActionResolveFailure, actions[0].Kind)
	s.Equal("f1", actions[0].FailureID)
}

func TestPredictiveAgentTestSuite(t *testing.T) {
	suite.Run(t, new(PredictiveAgentTestSuite))
}
