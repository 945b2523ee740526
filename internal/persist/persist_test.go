package persist

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/dcsim/dc-simulator/pkg/model"
)

type JSONLSinkTestSuite struct {
	suite.Suite
	dir string
}

func (s *JSONLSinkTestSuite) SetupTest() {
	s.dir = s.T().TempDir()
}

func (s *JSONLSinkTestSuite) TestWritesOneLinePerSnapshotAndAudit() {
	sink, err := NewJSONLSink(filepath.Join(s.dir, "snap.jsonl"), filepath.Join(s.dir, "audit.jsonl"))
	s.Require().NoError(err)

	s.Require().NoError(sink.WriteSnapshot(model.FacilityState{TickCount: 1}))
	s.Require().NoError(sink.WriteSnapshot(model.FacilityState{TickCount: 2}))
	s.Require().NoError(sink.WriteAudit(model.AuditEntry{Action: "migrate_workload", Result: "ok"}))
	s.Require().NoError(sink.Close())

	lines := readLines(s.T(), filepath.Join(s.dir, "snap.jsonl"))
	s.Len(lines, 2)
	var snap model.FacilityState
	s.Require().NoError(json.Unmarshal([]byte(lines[1]), &snap))
	s.Equal(2, snap.TickCount)

	auditLines := readLines(s.T(), filepath.Join(s.dir, "audit.jsonl"))
	s.Len(auditLines, 1)
}

func (s *JSONLSinkTestSuite) TestNopSinkDiscardsSilently() {
	var sink Sink = NopSink{}
	s.NoError(sink.WriteSnapshot(model.FacilityState{}))
	s.NoError(sink.WriteAudit(model.AuditEntry{}))
	s.NoError(sink.Close())
}

func readLines(t *testing.T, path string) []string {
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}

func TestJSONLSinkTestSuite(t *testing.T) {
	suite.Run(t, new(JSONLSinkTestSuite))
}
