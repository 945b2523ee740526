package eval

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/dcsim/dc-simulator/internal/config"
	"github.com/dcsim/dc-simulator/internal/simulator"
)

type HarnessTestSuite struct {
	suite.Suite
}

func (s *HarnessTestSuite) TestRunProducesBoundedCompositeScore() {
	sim := simulator.New(config.Default())
	result, err := Run(sim, Scenario{ID: "smoke", DurationTicks: 20}, NoopAgent)
	s.Require().NoError(err)
	s.Equal(20, result.Ticks)
	s.GreaterOrEqual(result.Composite, 0.0)
	s.LessOrEqual(result.Composite, 100.0)
}

func (s *HarnessTestSuite) TestScriptedFailureIsInjectedAtTheRightTick() {
	sim := simulator.New(config.Default())
	scenario := Scenario{
		ID:            "crac-failure",
		DurationTicks: 10,
		ScriptedFailures: []ScriptedFailure{
			{AtTick: 5, Type: "crac_failure", Target: "crac-0"},
		},
	}
	result, err := Run(sim, scenario, NoopAgent)
	s.Require().NoError(err)
	s.Equal(10, result.Ticks)

	failures := sim.ActiveFailures()
	s.Require().Len(failures, 1)
	s.Equal("crac-0", failures[0].Target)
}

func (s *HarnessTestSuite) TestReactiveAgentResolvesLongStandingFailures() {
	sim := simulator.New(config.Default())
	scenario := Scenario{
		ID:            "reactive",
		DurationTicks: 15,
		ScriptedFailures: []ScriptedFailure{
			{AtTick: 1, Type: "crac_failure", Target: "crac-0"},
		},
	}
	_, err := Run(sim, scenario, ReactiveAgent)
	s.Require().NoError(err)
	s.Empty(sim.ActiveFailures(), "the reactive agent must resolve a failure active for more than 10 ticks worth of simulated time")
}

func (s *HarnessTestSuite) TestBuiltinScenariosAndAgentsAreRegistered() {
	s.Contains(BuiltinAgents(), "noop")
	s.Contains(BuiltinAgents(), "reactive")
	s.Contains(BuiltinScenarios(), "thermal_crisis")
	s.Contains(BuiltinScenarios(), "overload")
	s.Contains(BuiltinScenarios(), "carbon_cycle")
}

func TestHarnessTestSuite(t *testing.T) {
	suite.Run(t, new(HarnessTestSuite))
}
