package thermal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/dcsim/dc-simulator/internal/config"
)

type ThermalTestSuite struct {
	suite.Suite
	cfg config.Config
}

func (s *ThermalTestSuite) SetupTest() {
	s.cfg = config.Default()
}

func (s *ThermalTestSuite) TestAmbientPeaksInTheEvening() {
	// base + 4*sin(2*pi*(h-14)/24) crosses base at 14:00, peaks at 20:00
	// and bottoms out at 08:00.
	morning := Ambient(22, 8)
	evening := Ambient(22, 20)
	s.Greater(evening, morning)
}

func (s *ThermalTestSuite) TestZeroLoadConvergesToAmbientWithin50Ticks() {
	racks := New(s.cfg)
	for _, r := range racks {
		r.Inlet = 40
	}
	zeroHeat := make(map[int]float64, len(racks))
	always := func(int) float64 { return 1.0 }
	on := func(int) bool { return true }

	for i := 0; i < 50; i++ {
		Tick(s.cfg, racks, zeroHeat, s.cfg.Thermal.AmbientTempC, always, s.cfg.Clock.TickIntervalS, on)
	}

	for _, r := range racks {
		assert.InDelta(s.T(), s.cfg.Thermal.AmbientTempC, r.Inlet, 1.0)
	}
}

func (s *ThermalTestSuite) TestThrottleHysteresis() {
	racks := New(s.cfg)
	r := racks[0]
	r.Inlet = s.cfg.Thermal.CriticalInletTempC
	heat := make(map[int]float64, len(racks))
	// Zero heat and zero cooling capacity leave net heat at 0, so each Tick
	// evaluates the flag on exactly the inlet the test sets.
	noCooling := func(int) float64 { return 0.0 }
	on := func(int) bool { return true }

	Tick(s.cfg, racks, heat, s.cfg.Thermal.AmbientTempC, noCooling, s.cfg.Clock.TickIntervalS, on)
	s.True(r.Throttled, "inlet at critical temp must set the throttle flag")

	r.Inlet = s.cfg.Thermal.CriticalInletTempC - 1
	Tick(s.cfg, racks, heat, s.cfg.Thermal.AmbientTempC, noCooling, s.cfg.Clock.TickIntervalS, on)
	s.True(r.Throttled, "throttle must not clear until 2 degrees below critical")

	r.Inlet = s.cfg.Thermal.CriticalInletTempC - 3
	Tick(s.cfg, racks, heat, s.cfg.Thermal.AmbientTempC, noCooling, s.cfg.Clock.TickIntervalS, on)
	s.False(r.Throttled)
}

func (s *ThermalTestSuite) TestCRACFailureStarvesZoneOfCooling() {
	racks := New(s.cfg)
	heat := make(map[int]float64, len(racks))
	for _, r := range racks {
		heat[r.ID] = 10
	}
	none := func(int) float64 { return 0.0 }
	on := func(int) bool { return false }

	for i := 0; i < 30; i++ {
		Tick(s.cfg, racks, heat, s.cfg.Thermal.AmbientTempC, none, s.cfg.Clock.TickIntervalS, on)
	}

	for _, r := range racks {
		s.Greater(r.Inlet, s.cfg.Thermal.AmbientTempC+1, "with zero cooling capacity, heat must accumulate")
	}
}

func TestThermalTestSuite(t *testing.T) {
	suite.Run(t, new(ThermalTestSuite))
}
