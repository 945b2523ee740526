// Package httpapi exposes the simulator over the REST surface from spec §6:
// read-only subsystem snapshots, tick/run/pause/reset control, the action
// endpoints, and the evaluation harness trigger. Grounded on the teacher's
// internal/api/server.go — gin.Default() plus gin-contrib/cors, one route
// group, thin handlers that translate domain errors into status codes.
package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dcsim/dc-simulator/internal/eval"
	"github.com/dcsim/dc-simulator/internal/metrics"
	"github.com/dcsim/dc-simulator/internal/simerrors"
	"github.com/dcsim/dc-simulator/internal/simulator"
	"github.com/dcsim/dc-simulator/pkg/model"
)

// Server wires a Simulator into a gin.Engine.
type Server struct {
	router  *gin.Engine
	sim     *simulator.Simulator
	metrics *metrics.Registry
	agents  map[string]eval.AgentFunc
	scenarios map[string]eval.Scenario
}

// NewServer builds a Server with CORS enabled for local dashboards and a
// Prometheus /metrics endpoint backed by reg.
func NewServer(sim *simulator.Simulator, reg *metrics.Registry) *Server {
	router := gin.Default()

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowOrigins = []string{"http://localhost:3000", "http://localhost:8080"}
	corsCfg.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsCfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	router.Use(cors.New(corsCfg))

	s := &Server{
		router:    router,
		sim:       sim,
		metrics:   reg,
		agents:    make(map[string]eval.AgentFunc),
		scenarios: make(map[string]eval.Scenario),
	}
	s.setupRoutes()
	return s
}

// RegisterAgent makes an agent callback available to POST /eval/run-agent.
func (s *Server) RegisterAgent(name string, fn eval.AgentFunc) { s.agents[name] = fn }

// RegisterScenario makes a named scenario available to POST /eval/run-agent.
func (s *Server) RegisterScenario(sc eval.Scenario) { s.scenarios[sc.ID] = sc }

func (s *Server) setupRoutes() {
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registerer(), promhttp.HandlerOpts{})))

	s.router.GET("/status", s.getStatus)
	s.router.GET("/sim/status", s.getStatus)
	s.router.GET("/sim/config", s.getConfig)

	s.router.GET("/thermal", s.getThermal)
	s.router.GET("/thermal/:rack_id", s.getThermalRack)
	s.router.GET("/power", s.getPower)
	s.router.GET("/power/:rack_id", s.getPowerRack)
	s.router.GET("/gpu", s.getGPU)
	s.router.GET("/gpu/:server_id", s.getGPUServer)
	s.router.GET("/network", s.getNetwork)
	s.router.GET("/network/:rack_id", s.getNetworkRack)
	s.router.GET("/storage", s.getStorage)
	s.router.GET("/storage/:rack_id", s.getStorageRack)
	s.router.GET("/cooling", s.getCooling)
	s.router.GET("/carbon", s.getCarbon)

	s.router.GET("/workload/queue", s.getWorkloadQueue)
	s.router.GET("/workload/running", s.getWorkloadRunning)
	s.router.GET("/workload/completed", s.getWorkloadCompleted)
	s.router.GET("/workload/sla_violations", s.getSLAViolations)

	s.router.GET("/failures/active", s.getActiveFailures)
	s.router.GET("/telemetry/history", s.getTelemetryHistory)
	s.router.GET("/audit", s.getAudit)

	s.router.POST("/sim/tick", s.postTick)
	s.router.POST("/sim/run", s.postRun)
	s.router.POST("/sim/pause", s.postPause)
	s.router.POST("/sim/reset", s.postReset)
	s.router.POST("/sim/inject_failure", s.postInjectFailure)

	actions := s.router.Group("/actions")
	actions.POST("/migrate_workload", s.postMigrateWorkload)
	actions.POST("/adjust_cooling", s.postAdjustCooling)
	actions.POST("/throttle_gpu", s.postThrottleGPU)
	actions.POST("/preempt_job", s.postPreemptJob)
	actions.POST("/resolve_failure", s.postResolveFailure)

	s.router.POST("/eval/run-agent", s.postRunAgent)
}

// Run starts the HTTP server, blocking, on addr (e.g. ":8090").
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Router exposes the underlying engine, mainly for tests (httptest).
func (s *Server) Router() *gin.Engine { return s.router }

func (s *Server) snapshot(c *gin.Context) (model.FacilityState, bool) {
	snap, ok := s.sim.Snapshot()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"message": "no ticks have run yet"})
		return snap, false
	}
	return snap, true
}

func (s *Server) getStatus(c *gin.Context) {
	snap, ok := s.snapshot(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"clock_s":    snap.Clock,
		"tick_count": snap.TickCount,
		"running":    s.sim.IsRunning(),
	})
}

func (s *Server) getConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.sim.Config())
}

func (s *Server) getThermal(c *gin.Context) {
	if snap, ok := s.snapshot(c); ok {
		c.JSON(http.StatusOK, snap.Thermal)
	}
}

func (s *Server) getThermalRack(c *gin.Context) {
	snap, ok := s.snapshot(c)
	if !ok {
		return
	}
	rack, err := parseIntParam(c, "rack_id")
	if err != nil {
		writeError(c, err)
		return
	}
	for _, r := range snap.Thermal.Racks {
		if r.RackID == rack {
			c.JSON(http.StatusOK, r)
			return
		}
	}
	writeError(c, simerrors.New(simerrors.NotFound, "unknown rack %d", rack))
}

func (s *Server) getPower(c *gin.Context) {
	if snap, ok := s.snapshot(c); ok {
		c.JSON(http.StatusOK, snap.Power)
	}
}

func (s *Server) getPowerRack(c *gin.Context) {
	snap, ok := s.snapshot(c)
	if !ok {
		return
	}
	rack, err := parseIntParam(c, "rack_id")
	if err != nil {
		writeError(c, err)
		return
	}
	for _, r := range snap.Power.Racks {
		if r.RackID == rack {
			c.JSON(http.StatusOK, r)
			return
		}
	}
	writeError(c, simerrors.New(simerrors.NotFound, "unknown rack %d", rack))
}

func (s *Server) getGPU(c *gin.Context) {
	if snap, ok := s.snapshot(c); ok {
		c.JSON(http.StatusOK, snap.GPU)
	}
}

func (s *Server) getGPUServer(c *gin.Context) {
	snap, ok := s.snapshot(c)
	if !ok {
		return
	}
	id := c.Param("server_id")
	for _, g := range snap.GPU.Servers {
		if g.ServerID == id {
			c.JSON(http.StatusOK, g)
			return
		}
	}
	writeError(c, simerrors.New(simerrors.NotFound, "unknown server %s", id))
}

func (s *Server) getNetwork(c *gin.Context) {
	if snap, ok := s.snapshot(c); ok {
		c.JSON(http.StatusOK, snap.Network)
	}
}

func (s *Server) getNetworkRack(c *gin.Context) {
	snap, ok := s.snapshot(c)
	if !ok {
		return
	}
	rack, err := parseIntParam(c, "rack_id")
	if err != nil {
		writeError(c, err)
		return
	}
	for _, r := range snap.Network.Racks {
		if r.RackID == rack {
			c.JSON(http.StatusOK, r)
			return
		}
	}
	writeError(c, simerrors.New(simerrors.NotFound, "unknown rack %d", rack))
}

func (s *Server) getStorage(c *gin.Context) {
	if snap, ok := s.snapshot(c); ok {
		c.JSON(http.StatusOK, snap.Storage)
	}
}

func (s *Server) getStorageRack(c *gin.Context) {
	snap, ok := s.snapshot(c)
	if !ok {
		return
	}
	rack, err := parseIntParam(c, "rack_id")
	if err != nil {
		writeError(c, err)
		return
	}
	for _, r := range snap.Storage.Racks {
		if r.RackID == rack {
			c.JSON(http.StatusOK, r)
			return
		}
	}
	writeError(c, simerrors.New(simerrors.NotFound, "unknown rack %d", rack))
}

func (s *Server) getCooling(c *gin.Context) {
	if snap, ok := s.snapshot(c); ok {
		c.JSON(http.StatusOK, snap.Cooling)
	}
}

func (s *Server) getCarbon(c *gin.Context) {
	if snap, ok := s.snapshot(c); ok {
		c.JSON(http.StatusOK, snap.Carbon)
	}
}

func (s *Server) getWorkloadQueue(c *gin.Context) {
	c.JSON(http.StatusOK, s.sim.PendingJobs())
}

func (s *Server) getWorkloadRunning(c *gin.Context) {
	c.JSON(http.StatusOK, s.sim.RunningJobs())
}

func (s *Server) getWorkloadCompleted(c *gin.Context) {
	n := queryInt(c, "last_n", 0)
	c.JSON(http.StatusOK, s.sim.CompletedJobs(n))
}

func (s *Server) getSLAViolations(c *gin.Context) {
	c.JSON(http.StatusOK, s.sim.SLAViolatedJobs())
}

func (s *Server) getActiveFailures(c *gin.Context) {
	c.JSON(http.StatusOK, s.sim.ActiveFailures())
}

func (s *Server) getTelemetryHistory(c *gin.Context) {
	n := queryInt(c, "last_n", 100)
	c.JSON(http.StatusOK, s.sim.TelemetryHistory(n))
}

func (s *Server) getAudit(c *gin.Context) {
	n := queryInt(c, "last_n", 100)
	c.JSON(http.StatusOK, s.sim.AuditHistory(n))
}

func (s *Server) postTick(c *gin.Context) {
	n := queryInt(c, "n", 1)
	if n < 1 {
		n = 1
	}
	c.JSON(http.StatusOK, s.sim.TickN(n))
}

func (s *Server) postRun(c *gin.Context) {
	interval := queryFloat(c, "tick_interval_s", 0)
	s.sim.StartContinuous(interval)
	c.JSON(http.StatusOK, gin.H{"running": true})
}

func (s *Server) postPause(c *gin.Context) {
	s.sim.Pause()
	c.JSON(http.StatusOK, gin.H{"running": false})
}

func (s *Server) postReset(c *gin.Context) {
	if err := s.sim.Reset(); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "reset"})
}

type injectFailureRequest struct {
	Type      model.FailureType `json:"type" binding:"required"`
	Target    string            `json:"target" binding:"required"`
	DurationS *float64          `json:"duration_s"`
}

func (s *Server) postInjectFailure(c *gin.Context) {
	var req injectFailureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	f, err := s.sim.InjectFailure(req.Type, req.Target, req.DurationS, "api")
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, f)
}

type migrateWorkloadRequest struct {
	JobID      string `json:"job_id" binding:"required"`
	TargetRack int    `json:"target_rack"`
}

func (s *Server) postMigrateWorkload(c *gin.Context) {
	var req migrateWorkloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.sim.MigrateWorkload(req.JobID, req.TargetRack, "api"); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "migrated"})
}

type adjustCoolingRequest struct {
	Rack      int     `json:"rack"`
	SetpointC float64 `json:"setpoint_c" binding:"required"`
}

func (s *Server) postAdjustCooling(c *gin.Context) {
	var req adjustCoolingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.sim.AdjustCooling(req.Rack, req.SetpointC, "api"); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "adjusted"})
}

type throttleGPURequest struct {
	ServerID    string  `json:"server_id" binding:"required"`
	PowerCapPct float64 `json:"power_cap_pct"`
}

func (s *Server) postThrottleGPU(c *gin.Context) {
	var req throttleGPURequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.sim.ThrottleGPU(req.ServerID, req.PowerCapPct, "api"); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "throttled"})
}

type preemptJobRequest struct {
	JobID string `json:"job_id" binding:"required"`
}

func (s *Server) postPreemptJob(c *gin.Context) {
	var req preemptJobRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.sim.PreemptJob(req.JobID, "api"); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "preempted"})
}

type resolveFailureRequest struct {
	FailureID string `json:"failure_id" binding:"required"`
}

func (s *Server) postResolveFailure(c *gin.Context) {
	var req resolveFailureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.sim.ResolveFailure(req.FailureID, "api"); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "resolved"})
}

type runAgentRequest struct {
	AgentName  string `json:"agent_name" binding:"required"`
	ScenarioID string `json:"scenario_id" binding:"required"`
}

func (s *Server) postRunAgent(c *gin.Context) {
	var req runAgentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	agent, ok := s.agents[req.AgentName]
	if !ok {
		writeError(c, simerrors.New(simerrors.NotFound, "unknown agent %q", req.AgentName))
		return
	}
	scenario, ok := s.scenarios[req.ScenarioID]
	if !ok {
		writeError(c, simerrors.New(simerrors.NotFound, "unknown scenario %q", req.ScenarioID))
		return
	}
	result, err := eval.Run(s.sim, scenario, agent)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// writeError maps a domain error's Kind onto the documented status codes
// (spec §7): not_found -> 404, conflict/precondition_failed -> 409,
// invalid_argument -> 400, anything untagged -> 500.
func writeError(c *gin.Context, err error) {
	se, ok := simerrors.As(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	status := http.StatusInternalServerError
	switch se.Kind {
	case simerrors.NotFound:
		status = http.StatusNotFound
	case simerrors.InvalidArgument:
		status = http.StatusBadRequest
	case simerrors.Conflict, simerrors.PreconditionFailed:
		status = http.StatusConflict
	}
	c.JSON(status, gin.H{"error": se.Message, "kind": se.Kind})
}

func parseIntParam(c *gin.Context, name string) (int, error) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		return 0, simerrors.New(simerrors.InvalidArgument, "invalid %s", name)
	}
	return v, nil
}

func queryInt(c *gin.Context, key string, def int) int {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

func queryFloat(c *gin.Context, key string, def float64) float64 {
	raw := c.Query(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return def
	}
	return v
}
