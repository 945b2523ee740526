package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/dcsim/dc-simulator/internal/config"
	"github.com/dcsim/dc-simulator/internal/eval"
	"github.com/dcsim/dc-simulator/internal/metrics"
	"github.com/dcsim/dc-simulator/internal/simulator"
)

type ServerTestSuite struct {
	suite.Suite
	server *Server
	sim    *simulator.Simulator
}

func (s *ServerTestSuite) SetupTest() {
	s.sim = simulator.New(config.Default())
	reg := metrics.NewRegistry()
	s.sim.SetMetricsObserver(reg)
	s.server = NewServer(s.sim, reg)
	for name, agent := range eval.BuiltinAgents() {
		s.server.RegisterAgent(name, agent)
	}
	for _, sc := range eval.BuiltinScenarios() {
		s.server.RegisterScenario(sc)
	}
}

func (s *ServerTestSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.server.Router().ServeHTTP(w, req)
	return w
}

func (s *ServerTestSuite) TestTickThenStatusReflectsAdvance() {
	w := s.do(http.MethodPost, "/sim/tick?n=5", nil)
	s.Equal(http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/sim/status", nil)
	s.Equal(http.StatusOK, w.Code)
	var body map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &body))
	s.EqualValues(5, body["tick_count"])
}

func (s *ServerTestSuite) TestUnknownRackReturns404() {
	s.do(http.MethodPost, "/sim/tick", nil)
	w := s.do(http.MethodGet, "/thermal/999", nil)
	s.Equal(http.StatusNotFound, w.Code)
}

func (s *ServerTestSuite) TestInvalidMigrateReturns409() {
	s.do(http.MethodPost, "/sim/tick", nil)
	w := s.do(http.MethodPost, "/actions/migrate_workload", map[string]any{
		"job_id": "does-not-exist", "target_rack": 0,
	})
	s.Equal(http.StatusConflict, w.Code)
}

func (s *ServerTestSuite) TestMalformedInjectFailureBodyReturns400() {
	req := httptest.NewRequest(http.MethodPost, "/sim/inject_failure", bytes.NewReader([]byte("{not json")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.server.Router().ServeHTTP(w, req)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *ServerTestSuite) TestRunAgentEndpoint() {
	w := s.do(http.MethodPost, "/eval/run-agent", map[string]any{
		"agent_name": "noop", "scenario_id": "thermal_crisis",
	})
	s.Equal(http.StatusOK, w.Code)
	var result map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &result))
	s.Contains(result, "composite")
}

func (s *ServerTestSuite) TestMetricsEndpointServesPrometheusFormat() {
	s.do(http.MethodPost, "/sim/tick", nil)
	w := s.do(http.MethodGet, "/metrics", nil)
	s.Equal(http.StatusOK, w.Code)
	s.Contains(w.Body.String(), "dcsim_")
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}
