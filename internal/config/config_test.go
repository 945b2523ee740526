package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func (s *ConfigTestSuite) TestDefaultMatchesDocumentedValues() {
	cfg := Default()
	s.Equal(8, cfg.Facility.NumRacks)
	s.Equal(4, cfg.Facility.ServersPerRack)
	s.Equal(4, cfg.Facility.GPUsPerServer)
	s.Equal(int64(42), cfg.RNGSeed)
}

func (s *ConfigTestSuite) TestLoadRejectsUnknownKeys() {
	dir := s.T().TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	s.Require().NoError(os.WriteFile(path, []byte("facility:\n  num_racks: 4\n  bogus_key: 1\n"), 0o644))

	_, err := Load(path)
	s.Error(err)
}

func (s *ConfigTestSuite) TestLoadOverridesDefaults() {
	dir := s.T().TempDir()
	path := filepath.Join(dir, "cfg.yaml")
	s.Require().NoError(os.WriteFile(path, []byte("facility:\n  num_racks: 16\n"), 0o644))

	cfg, err := Load(path)
	s.Require().NoError(err)
	s.Equal(16, cfg.Facility.NumRacks)
	s.Equal(4, cfg.Facility.ServersPerRack, "unspecified keys must keep Default()'s value")
}

func (s *ConfigTestSuite) TestZoneOfDistributesRacksAcrossZones() {
	cfg := Default() // 8 racks, 2 CRAC units
	s.Equal(0, cfg.ZoneOf(0))
	s.Equal(0, cfg.ZoneOf(3))
	s.Equal(1, cfg.ZoneOf(4))
	s.Equal(1, cfg.ZoneOf(7))
}

func TestConfigTestSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}
