package simulator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/dcsim/dc-simulator/internal/config"
	"github.com/dcsim/dc-simulator/pkg/model"
)

type SimulatorTestSuite struct {
	suite.Suite
	cfg config.Config
}

func (s *SimulatorTestSuite) SetupTest() {
	s.cfg = config.Default()
}

// TestDeterministicReplay covers spec §8 scenario 5: 200 ticks, reset, 200
// ticks again must hash identically.
func (s *SimulatorTestSuite) TestDeterministicReplay() {
	sim := New(s.cfg)
	var first, second model.FacilityState
	for i := 0; i < 200; i++ {
		first = sim.Tick()
	}
	s.Require().NoError(sim.Reset())
	for i := 0; i < 200; i++ {
		second = sim.Tick()
	}

	a, err := json.Marshal(first)
	s.Require().NoError(err)
	b, err := json.Marshal(second)
	s.Require().NoError(err)
	s.Equal(string(a), string(b))
}

// TestMigrationMovesJobAndUpdatesFreeSlots covers spec §8 scenario 3.
func (s *SimulatorTestSuite) TestMigrationMovesJobAndUpdatesFreeSlots() {
	s.cfg.Workload.MeanJobArrivalIntervalS = 1 // force arrivals quickly
	sim := New(s.cfg)

	var running model.JobSummary
	found := false
	for i := 0; i < 20 && !found; i++ {
		snap := sim.Tick()
		for _, j := range snap.Workload.Running {
			rack, _, err := model.ParseServerID(j.AssignedServers[0])
			if err == nil && rack == 0 {
				running = j
				found = true
				break
			}
		}
	}
	s.Require().True(found, "expected at least one job running on rack 0 within 20 ticks")

	s.Require().NoError(sim.MigrateWorkload(running.ID, 5, "test"))

	snap, ok := sim.Snapshot()
	s.Require().True(ok)
	for _, j := range snap.Workload.Running {
		if j.ID != running.ID {
			continue
		}
		for _, sid := range j.AssignedServers {
			rack, _, err := model.ParseServerID(sid)
			s.Require().NoError(err)
			s.Equal(5, rack)
		}
	}

	audit := sim.AuditHistory(10)
	s.Require().NotEmpty(audit)
	s.Equal("ok", audit[len(audit)-1].Result)
}

// TestInvalidMigrateReturnsConflictAndLeavesStateUnchanged covers spec §8
// scenario 4.
func (s *SimulatorTestSuite) TestInvalidMigrateReturnsConflictAndLeavesStateUnchanged() {
	sim := New(s.cfg)
	sim.Tick()

	err := sim.MigrateWorkload("does-not-exist", 5, "test")
	s.Error(err)

	audit := sim.AuditHistory(1)
	s.Require().Len(audit, 1)
	s.NotEqual("ok", audit[0].Result)
}

// TestThermalCrisisRaisesInletOnFailedZone covers spec §8 scenario 1.
func (s *SimulatorTestSuite) TestThermalCrisisRaisesInletOnFailedZone() {
	sim := New(s.cfg)
	for i := 0; i < 30; i++ {
		sim.Tick()
	}
	_, err := sim.InjectFailure(model.FailureCRACFailure, "crac-0", nil, "test")
	s.Require().NoError(err)

	var snap model.FacilityState
	for i := 0; i < 10; i++ {
		snap = sim.Tick()
	}

	var rack0, rack4 float64
	for _, r := range snap.Thermal.Racks {
		switch r.RackID {
		case 0:
			rack0 = r.InletC
		case 4:
			rack4 = r.InletC
		}
	}
	s.GreaterOrEqual(rack0-rack4, 3.0)
}

// TestAdjustCoolingLowersInletNotJustTelemetry guards against adjust_cooling
// being wired only into the read-only /cooling summary: it must actually
// raise the cooling capacity thermal.Tick consumes, the same lever the
// predictive agent relies on to head off throttling.
func (s *SimulatorTestSuite) TestAdjustCoolingLowersInletNotJustTelemetry() {
	runInletAtRack0 := func(adjust bool) float64 {
		sim := New(s.cfg)
		for i := 0; i < 30; i++ {
			sim.Tick()
		}
		_, err := sim.InjectFailure(model.FailureCRACDegraded, "crac-0", nil, "test")
		s.Require().NoError(err)
		if adjust {
			s.Require().NoError(sim.AdjustCooling(0, 10, "test"))
		}
		var snap model.FacilityState
		for i := 0; i < 20; i++ {
			snap = sim.Tick()
		}
		for _, r := range snap.Thermal.Racks {
			if r.RackID == 0 {
				return r.InletC
			}
		}
		s.Fail("rack 0 missing from snapshot")
		return 0
	}

	baseline := runInletAtRack0(false)
	adjusted := runInletAtRack0(true)
	s.Less(adjusted, baseline, "adjust_cooling raising capacity on a degraded zone must lower the rack's inlet temperature, not just a cosmetic telemetry number")
}

// TestOverloadDrivesSLAViolationsAndSaturatesRunning covers spec §8 scenario 2.
func (s *SimulatorTestSuite) TestOverloadDrivesSLAViolationsAndSaturatesRunning() {
	s.cfg.Workload.MeanJobArrivalIntervalS = 60
	sim := New(s.cfg)

	totalGPUs := s.cfg.Facility.NumRacks * s.cfg.Facility.ServersPerRack * s.cfg.Facility.GPUsPerServer

	var snap model.FacilityState
	for i := 0; i < 120; i++ {
		snap = sim.Tick()
	}

	s.GreaterOrEqual(snap.Workload.SLAViolations, 5, "sustained overload should breach SLA on at least 5 jobs within 120 ticks")
	s.LessOrEqual(len(snap.Workload.Running)*s.cfg.Facility.GPUsPerServer, totalGPUs, "running jobs can never exceed total GPU capacity")
}

// TestCarbonCycleTracksDiurnalSwingAndMonotonicAccumulation covers spec §8
// scenario 6.
func (s *SimulatorTestSuite) TestCarbonCycleTracksDiurnalSwingAndMonotonicAccumulation() {
	sim := New(s.cfg)

	minIntensity, maxIntensity := 1e9, -1e9
	prevCumulative := 0.0
	for i := 0; i < 1440; i++ {
		snap := sim.Tick()
		if snap.Carbon.IntensityGCO2PerKWh < minIntensity {
			minIntensity = snap.Carbon.IntensityGCO2PerKWh
		}
		if snap.Carbon.IntensityGCO2PerKWh > maxIntensity {
			maxIntensity = snap.Carbon.IntensityGCO2PerKWh
		}
		s.GreaterOrEqual(snap.Carbon.CumulativeKG, prevCumulative, "cumulative carbon must never decrease")
		prevCumulative = snap.Carbon.CumulativeKG
	}

	s.Greater(maxIntensity, minIntensity, "a full day must show a trough/peak swing in carbon intensity")
	s.Greater(prevCumulative, 0.0)
}

func TestSimulatorTestSuite(t *testing.T) {
	suite.Run(t, new(SimulatorTestSuite))
}
