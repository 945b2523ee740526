package failure

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/dcsim/dc-simulator/internal/rng"
	"github.com/dcsim/dc-simulator/pkg/model"
)

type FailureTestSuite struct {
	suite.Suite
	e *Engine
}

func (s *FailureTestSuite) SetupTest() {
	s.e = New()
}

func (s *FailureTestSuite) zoneOf(rack int) int { return rack / 4 }

func (s *FailureTestSuite) TestManualInjectAndResolve() {
	f, err := s.e.Inject(model.FailureCRACFailure, "crac-0", 0, nil)
	s.Require().NoError(err)
	s.True(s.e.ActiveOnTarget(model.FailureCRACFailure, "crac-0"))
	s.InDelta(0.0, s.e.CRACHealthMultiplier(0), 1e-9)

	s.Require().NoError(s.e.Resolve(f.ID))
	s.False(s.e.ActiveOnTarget(model.FailureCRACFailure, "crac-0"))
	s.InDelta(1.0, s.e.CRACHealthMultiplier(0), 1e-9)
}

func (s *FailureTestSuite) TestDuplicateInjectionRejected() {
	_, err := s.e.Inject(model.FailurePDUSpike, "rack-2", 0, nil)
	s.Require().NoError(err)
	_, err = s.e.Inject(model.FailurePDUSpike, "rack-2", 1, nil)
	s.Error(err)
}

func (s *FailureTestSuite) TestInvalidTargetRejected() {
	_, err := s.e.Inject(model.FailureCRACDegraded, "rack-0", 0, nil)
	s.Error(err, "crac_degraded must target a crac-N id, not a rack id")
}

func (s *FailureTestSuite) TestNetworkPartitionVisibleOnlyOneTickThenExpires() {
	dur := 0.0
	_, err := s.e.Inject(model.FailureNetworkPartition, "rack-3", 100, &dur)
	s.Require().NoError(err)

	_, partitioned := s.e.Tick(8, s.zoneOf, 160, rng.New(1))
	s.True(partitioned[3], "a manual injection since the last tick must show up as partitioned on the next Tick call")
	s.Empty(s.e.GetActive(), "an instant network_partition must expire within the Tick call that observes it")
}

func (s *FailureTestSuite) TestResolveUnknownIDReturnsNotFound() {
	err := s.e.Resolve("does-not-exist")
	s.Error(err)
}

func (s *FailureTestSuite) TestGPUDegradedCapsUtilFlag() {
	_, err := s.e.Inject(model.FailureGPUDegraded, "rack-0-srv-1", 0, nil)
	s.Require().NoError(err)
	s.True(s.e.GPUDegraded("rack-0-srv-1"))
	s.False(s.e.GPUDegraded("rack-0-srv-2"))
}

func TestFailureTestSuite(t *testing.T) {
	suite.Run(t, new(FailureTestSuite))
}
