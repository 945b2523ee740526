// Package config holds the simulator's immutable tunables (spec §6),
// loaded from a YAML file named by DC_SIM_CONFIG or from built-in defaults.
// Unknown keys are rejected, following the teacher's preference for strict,
// typed configuration over dynamic dicts (spec §9).
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Facility holds the rack/server/GPU dimensions.
type Facility struct {
	NumRacks       int `yaml:"num_racks"`
	ServersPerRack int `yaml:"servers_per_rack"`
	GPUsPerServer  int `yaml:"gpus_per_server"`
}

// Thermal holds thermal/CRAC tunables.
type Thermal struct {
	AmbientTempC           float64 `yaml:"ambient_temp_c"`
	CRACSetpointC           float64 `yaml:"crac_setpoint_c"`
	CRACCoolingCapacityKW   float64 `yaml:"crac_cooling_capacity_kw"`
	ThermalMassCoefficient  float64 `yaml:"thermal_mass_coefficient"`
	MaxSafeInletTempC       float64 `yaml:"max_safe_inlet_temp_c"`
	CriticalInletTempC      float64 `yaml:"critical_inlet_temp_c"`
	CRACUnits               int     `yaml:"crac_units"`
}

// Power holds power/PUE tunables.
type Power struct {
	GPUTDPWatts            float64 `yaml:"gpu_tdp_watts"`
	ServerBasePowerWatts   float64 `yaml:"server_base_power_watts"`
	PDUCapacityKW          float64 `yaml:"pdu_capacity_kw"`
	FacilityPowerCapKW     float64 `yaml:"facility_power_cap_kw"`
	PUEOverheadFactor      float64 `yaml:"pue_overhead_factor"`
}

// Workload holds workload arrival tunables.
type Workload struct {
	MeanJobArrivalIntervalS float64 `yaml:"mean_job_arrival_interval_s"`
}

// ClockConfig holds clock pacing tunables.
type ClockConfig struct {
	TickIntervalS  float64 `yaml:"tick_interval_s"`
	RealtimeFactor float64 `yaml:"realtime_factor"`
}

// Config is the whole, immutable tunable set.
type Config struct {
	Facility Facility    `yaml:"facility"`
	Thermal  Thermal     `yaml:"thermal"`
	Power    Power       `yaml:"power"`
	Workload Workload    `yaml:"workload"`
	Clock    ClockConfig `yaml:"clock"`
	RNGSeed  int64       `yaml:"rng_seed"`
}

// Default returns the exact defaults enumerated in spec §6.
func Default() Config {
	return Config{
		Facility: Facility{NumRacks: 8, ServersPerRack: 4, GPUsPerServer: 4},
		Thermal: Thermal{
			AmbientTempC:          22,
			CRACSetpointC:         18,
			CRACCoolingCapacityKW: 50,
			ThermalMassCoefficient: 0.3,
			MaxSafeInletTempC:     35,
			CriticalInletTempC:    40,
			CRACUnits:             2,
		},
		Power: Power{
			GPUTDPWatts:          300,
			ServerBasePowerWatts: 200,
			PDUCapacityKW:        20,
			FacilityPowerCapKW:   120,
			PUEOverheadFactor:    1.4,
		},
		Workload: Workload{MeanJobArrivalIntervalS: 300},
		Clock:    ClockConfig{TickIntervalS: 60, RealtimeFactor: 0},
		RNGSeed:  42,
	}
}

// Load reads the YAML file at path, which is taken from DC_SIM_CONFIG when
// path is empty, falling back to Default() when no path is set or the file
// does not exist. Unknown keys in the file are rejected.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = os.Getenv("DC_SIM_CONFIG")
	}
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("reading config %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// NumZones returns the number of CRAC zones implied by the configured
// rack/CRAC counts.
func (c Config) NumZones() int {
	if c.Thermal.CRACUnits <= 0 {
		return 1
	}
	return c.Thermal.CRACUnits
}

// RacksPerZone returns how many racks share one CRAC unit.
func (c Config) RacksPerZone() float64 {
	zones := c.NumZones()
	if zones == 0 {
		return float64(c.Facility.NumRacks)
	}
	return float64(c.Facility.NumRacks) / float64(zones)
}

// ZoneOf returns the CRAC zone id owning rackID, per spec §3:
// zone = rack_id * num_crac / num_racks.
func (c Config) ZoneOf(rackID int) int {
	if c.Facility.NumRacks == 0 {
		return 0
	}
	zone := rackID * c.NumZones() / c.Facility.NumRacks
	if zone >= c.NumZones() {
		zone = c.NumZones() - 1
	}
	return zone
}
