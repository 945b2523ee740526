// Package simulator owns the tick orchestrator (spec §4.7): it wires
// Clock, FailureEngine, WorkloadModel and the five read-only telemetry
// layers together in the fixed per-tick order from spec §2, and exposes
// the operator action methods that mutate state between ticks.
package simulator

import (
	"fmt"
	"sort"
	"sync"

	"github.com/dcsim/dc-simulator/internal/audit"
	"github.com/dcsim/dc-simulator/internal/carbon"
	"github.com/dcsim/dc-simulator/internal/clock"
	"github.com/dcsim/dc-simulator/internal/config"
	"github.com/dcsim/dc-simulator/internal/cooling"
	"github.com/dcsim/dc-simulator/internal/failure"
	"github.com/dcsim/dc-simulator/internal/gpu"
	"github.com/dcsim/dc-simulator/internal/network"
	"github.com/dcsim/dc-simulator/internal/persist"
	"github.com/dcsim/dc-simulator/internal/power"
	"github.com/dcsim/dc-simulator/internal/rng"
	"github.com/dcsim/dc-simulator/internal/simerrors"
	"github.com/dcsim/dc-simulator/internal/storage"
	"github.com/dcsim/dc-simulator/internal/telemetry"
	"github.com/dcsim/dc-simulator/internal/thermal"
	"github.com/dcsim/dc-simulator/internal/workload"
	"github.com/dcsim/dc-simulator/pkg/model"
)

type storageState struct {
	capacityUsedFrac float64
	wearFrac         float64
}

// Simulator is the single-writer owner of C1-C14. All mutation — tick
// advance, action application, reset — happens under mu, matching spec §5's
// single-writer scheduling model; readers take mu briefly to copy state or
// read the telemetry buffer's lock-guarded head.
type Simulator struct {
	mu sync.Mutex

	cfg     config.Config
	baseCfg config.Config // the config New was given; ResetWithOverrides patches a copy of it

	clock    *clock.Clock
	rng      *rng.Source
	failures *failure.Engine
	work     *workload.Model
	racks    []*thermal.RackState
	carbonAcc carbon.Accumulator

	powerCapFrac map[string]float64 // server id -> throttle_gpu cap, default 1.0
	zoneSetpointMult map[int]float64 // zone id -> adjust_cooling multiplier, default 1.0
	storageByRack map[int]*storageState

	telemetry *telemetry.Buffer
	audit     *audit.Log
	sink      persist.Sink
	metricsObserver MetricsObserver

	running bool // auto-ticker flag (spec §4.7, §5)
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// New builds a Simulator from cfg, fully reset and ready to tick. The
// simulator writes nothing durable until SetSink is called.
func New(cfg config.Config) *Simulator {
	s := &Simulator{
		cfg:       cfg,
		baseCfg:   cfg,
		telemetry: telemetry.New(),
		audit:     audit.New(),
		sink:      persist.NopSink{},
	}
	s.resetLocked()
	return s
}

// SetSink installs the durable sink every future tick snapshot and audit
// entry is mirrored to. Passing nil restores the no-op sink.
func (s *Simulator) SetSink(sink persist.Sink) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sink == nil {
		sink = persist.NopSink{}
	}
	s.sink = sink
}

// MetricsObserver receives one FacilityState per tick; satisfied by
// *metrics.Registry without the simulator importing the metrics package
// directly.
type MetricsObserver interface {
	Observe(model.FacilityState)
}

// SetMetricsObserver installs the Prometheus gauge sink updated every tick.
func (s *Simulator) SetMetricsObserver(o MetricsObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metricsObserver = o
}

// Config returns the simulator's immutable configuration.
func (s *Simulator) Config() config.Config { return s.cfg }

func (s *Simulator) resetLocked() {
	s.clock = clock.New(s.cfg.Clock.TickIntervalS, s.cfg.Clock.RealtimeFactor)
	s.rng = rng.New(s.cfg.RNGSeed)
	s.failures = failure.New()
	s.work = workload.New(s.cfg)
	s.racks = thermal.New(s.cfg)
	s.carbonAcc.Reset()
	s.powerCapFrac = make(map[string]float64)
	s.zoneSetpointMult = make(map[int]float64)
	s.storageByRack = make(map[int]*storageState)
	for r := 0; r < s.cfg.Facility.NumRacks; r++ {
		s.storageByRack[r] = &storageState{}
	}
	s.telemetry.Reset()
	s.audit.Reset()
}

// Reset reconstructs every component from the same config and seed,
// guaranteeing bit-identical replay (spec §8). Requires the auto-ticker to
// be paused; returns PreconditionFailed otherwise.
func (s *Simulator) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return simerrors.New(simerrors.PreconditionFailed, "pause the continuous run before reset")
	}
	s.resetLocked()
	return nil
}

// ResetWithOverrides behaves like Reset, but first restores the config New
// was given and patches the given knobs on top of it (nil entries keep that
// config's value) — the evaluation harness's per-scenario Overrides (spec
// §4.8). The patched config stays in effect until the next
// ResetWithOverrides.
func (s *Simulator) ResetWithOverrides(meanJobArrivalIntervalS *float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return simerrors.New(simerrors.PreconditionFailed, "pause the continuous run before reset")
	}
	s.cfg = s.baseCfg
	if meanJobArrivalIntervalS != nil {
		s.cfg.Workload.MeanJobArrivalIntervalS = *meanJobArrivalIntervalS
	}
	s.resetLocked()
	return nil
}

// Tick advances the simulation by one step, running every sub-model in the
// fixed order from spec §2, and appends the resulting snapshot to the
// telemetry buffer.
func (s *Simulator) Tick() model.FacilityState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tickLocked()
}

// TickN advances the simulation by n steps, returning the final snapshot.
func (s *Simulator) TickN(n int) model.FacilityState {
	s.mu.Lock()
	defer s.mu.Unlock()
	var snap model.FacilityState
	for i := 0; i < n; i++ {
		snap = s.tickLocked()
	}
	return snap
}

func (s *Simulator) tickLocked() model.FacilityState {
	s.clock.Tick()
	now := s.clock.Now()
	hour := s.clock.HourOfDay()

	// Throttle flags as set by last tick's thermal pass: read before this
	// tick's thermal.Tick overwrites them (the documented one-tick lag).
	throttledRacks := make(map[int]bool, len(s.racks))
	for _, r := range s.racks {
		throttledRacks[r.ID] = r.Throttled
	}

	_, partitioned := s.failures.Tick(s.cfg.Facility.NumRacks, s.cfg.ZoneOf, now, s.rng)

	s.work.Tick(now, s.rng, partitioned, throttledRacks, s.failures.GPUDegraded, s.serverPowerCapFrac)

	powerServers := make([]power.ServerInput, 0, len(s.work.Servers()))
	for _, srv := range s.work.Servers() {
		powerServers = append(powerServers, power.ServerInput{
			ID:      srv.ID(),
			RackID:  srv.RackID,
			NumGPUs: srv.TotalSlots,
			Util:    s.work.Util(srv.ID()),
		})
	}
	ambient := thermal.Ambient(s.cfg.Thermal.AmbientTempC, hour)
	powerResult := power.Compute(s.cfg, powerServers, ambient, s.failures.PDUSpikeMultiplier)

	thermal.Tick(s.cfg, s.racks, powerResult.RackPowerKW, ambient, s.effectiveCRACHealth,
		s.cfg.Clock.TickIntervalS, s.zoneHasActiveCooling)

	rackByID := make(map[int]*thermal.RackState, len(s.racks))
	for _, r := range s.racks {
		rackByID[r.ID] = r
	}

	gpuStates := make(map[string]gpu.State, len(powerServers))
	rackUtilSum := make(map[int]float64)
	rackUtilCount := make(map[int]int)
	for _, srv := range s.work.Servers() {
		id := srv.ID()
		u := s.work.Util(id)
		rackUtilSum[srv.RackID] += u
		rackUtilCount[srv.RackID]++
		inlet := rackByID[srv.RackID].Inlet
		gpuStates[id] = gpu.Compute(inlet, u, s.rng)
	}

	rackUtil := make(map[int]float64, len(rackUtilSum))
	for rack, sum := range rackUtilSum {
		if rackUtilCount[rack] > 0 {
			rackUtil[rack] = sum / float64(rackUtilCount[rack])
		}
	}

	netStates := make(map[int]network.State, len(rackUtil))
	for rack, u := range rackUtil {
		netStates[rack] = network.Compute(u)
	}

	stgStates := make(map[int]storage.State, len(rackUtil))
	for rack, u := range rackUtil {
		prev := s.storageByRack[rack]
		if prev == nil {
			prev = &storageState{}
			s.storageByRack[rack] = prev
		}
		st := storage.Compute(u, prev.capacityUsedFrac, prev.wearFrac)
		stgStates[rack] = st
		prev.capacityUsedFrac = st.CapacityUsedFrac
		prev.wearFrac = st.WearFrac
	}

	cracStates := s.computeCooling(rackByID, ambient)

	intensity := carbon.IntensityGCO2PerKWh(hour, s.rng)
	price := carbon.PriceGBPPerKWh(hour)
	s.carbonAcc.Accumulate(powerResult.FacilityKW, s.cfg.Clock.TickIntervalS, intensity, price)

	snap := s.buildSnapshot(now, ambient, powerResult, rackByID, gpuStates, netStates, stgStates, cracStates, intensity, price)
	s.telemetry.Push(snap)
	_ = s.sink.WriteSnapshot(snap) // best-effort; a sink failure must not stall the tick loop
	if s.metricsObserver != nil {
		s.metricsObserver.Observe(snap)
	}
	return snap
}

func (s *Simulator) serverPowerCapFrac(serverID string) float64 {
	if f, ok := s.powerCapFrac[serverID]; ok {
		return f
	}
	return 1.0
}

func (s *Simulator) zoneHasActiveCooling(zone int) bool {
	return s.failures.CRACHealthMultiplier(zone) > 0
}

// effectiveCRACHealth composes the failure engine's CRAC health multiplier
// with any adjust_cooling setpoint multiplier for the zone, so adjust_cooling
// changes the same cooling-capacity term the thermal model feeds into
// base_remove (spec §4.5/§4.7), not just the read-only /cooling telemetry.
func (s *Simulator) effectiveCRACHealth(zone int) float64 {
	return s.failures.CRACHealthMultiplier(zone) * s.zoneSetpointMultiplier(zone)
}

func (s *Simulator) computeCooling(rackByID map[int]*thermal.RackState, ambient float64) map[int]cooling.State {
	// Aggregate the heat generated by each zone's racks this tick, in rack-id
	// order so the sum is bit-identical on replay.
	zoneHeat := make(map[int]float64)
	for _, id := range sortedRackIDs(rackByID) {
		r := rackByID[id]
		zoneHeat[r.ZoneID] += r.HeatKW
	}
	out := make(map[int]cooling.State, s.cfg.NumZones())
	for zone := 0; zone < s.cfg.NumZones(); zone++ {
		health := s.failures.CRACHealthMultiplier(zone)
		setpointMult := s.zoneSetpointMultiplier(zone)
		out[zone] = cooling.Compute(zoneHeat[zone], 4.0, ambient, health, setpointMult)
	}
	return out
}

func (s *Simulator) zoneSetpointMultiplier(zone int) float64 {
	if m, ok := s.zoneSetpointMult[zone]; ok {
		return m
	}
	return 1.0
}

func (s *Simulator) buildSnapshot(
	now, ambient float64,
	powerResult power.Result,
	rackByID map[int]*thermal.RackState,
	gpuStates map[string]gpu.State,
	netStates map[int]network.State,
	stgStates map[int]storage.State,
	cracStates map[int]cooling.State,
	intensity, price float64,
) model.FacilityState {
	thermalRacks := make([]model.ThermalRackState, 0, len(rackByID))
	throttledCnt := 0
	ids := sortedRackIDs(rackByID)
	for _, id := range ids {
		r := rackByID[id]
		thermalRacks = append(thermalRacks, model.ThermalRackState{
			RackID: r.ID, ZoneID: r.ZoneID, InletC: r.Inlet, OutletC: r.Outlet,
			HeatKW: r.HeatKW, Humidity: r.Humidity, Throttled: r.Throttled,
		})
		if r.Throttled {
			throttledCnt++
		}
	}

	powerRacks := make([]model.RackPowerState, 0, len(ids))
	powerServers := make([]model.ServerPowerState, 0, len(powerResult.ServerPowerW))
	for _, id := range ids {
		powerRacks = append(powerRacks, model.RackPowerState{
			RackID: id, PowerKW: powerResult.RackPowerKW[id], PDUUtil: powerResult.PDUUtil[id],
		})
	}
	for _, srv := range s.work.Servers() {
		sid := srv.ID()
		powerServers = append(powerServers, model.ServerPowerState{
			ServerID: sid, RackID: srv.RackID, PowerW: powerResult.ServerPowerW[sid],
		})
	}

	gpuSummary := model.GPUSummary{}
	healthy := 0
	total := 0
	tempSum := 0.0
	for _, srv := range s.work.Servers() {
		sid := srv.ID()
		gs := gpuStates[sid]
		gpuSummary.Servers = append(gpuSummary.Servers, model.GPUState{
			ServerID: sid, RackID: srv.RackID, JunctionTempC: gs.JunctionTempC,
			Throttled: gs.Throttled, ClockMHz: gs.ClockMHz, ECCErrorRate: gs.ECCErrorRate,
			MemBandwidthGBs: gs.MemBandwidthGBs, Util: s.work.Util(sid),
		})
		tempSum += gs.JunctionTempC
		total++
		if !gs.Throttled && !s.failures.GPUDegraded(sid) {
			healthy++
		}
	}
	if total > 0 {
		gpuSummary.HealthyFraction = float64(healthy) / float64(total)
		gpuSummary.AvgJunctionTempC = tempSum / float64(total)
	}

	netSummary := model.NetworkSummary{}
	latSum := 0.0
	for _, id := range ids {
		ns := netStates[id]
		netSummary.Racks = append(netSummary.Racks, model.NetworkRackState{
			RackID: id, Util: ns.Util, LatencyMs: ns.LatencyMs, LossFrac: ns.LossFrac,
		})
		netSummary.SpineLinks = append(netSummary.SpineLinks, model.SpineLinkState{
			RackID: id, Util: network.SpineLinkUtil(ns.Util),
		})
		latSum += ns.LatencyMs
	}
	if len(ids) > 0 {
		netSummary.AvgLatency = latSum / float64(len(ids))
	}

	stgSummary := model.StorageSummary{}
	healthSum := 0.0
	for _, id := range ids {
		st := stgStates[id]
		stgSummary.Racks = append(stgSummary.Racks, model.StorageRackState{
			RackID: id, IOPS: st.IOPS, LatencyMs: st.LatencyMs, QueueDepth: st.QueueDepth,
			CapacityUsedFrac: st.CapacityUsedFrac, WearFrac: st.WearFrac,
		})
		healthSum += storage.DriveHealthPct(st.WearFrac)
	}
	if len(ids) > 0 {
		stgSummary.AvgDriveHealthPct = healthSum / float64(len(ids))
	}

	coolingSummary := model.CoolingSummary{}
	for zone := 0; zone < s.cfg.NumZones(); zone++ {
		cs := cracStates[zone]
		coolingSummary.CRACUnits = append(coolingSummary.CRACUnits, model.CRACState{
			UnitID: zone, OutputKW: cs.OutputKW, COP: cs.COP, PowerKW: cs.PowerKW, HealthMultiplier: cs.HealthMultiplier,
		})
		coolingSummary.TotalPowerKW += cs.PowerKW
	}

	runningSummaries := make([]model.JobSummary, 0, len(s.work.Running()))
	for _, j := range s.work.Running() {
		runningSummaries = append(runningSummaries, j.Summary())
	}
	pendingSummaries := make([]model.JobSummary, 0, len(s.work.Pending()))
	for _, j := range s.work.Pending() {
		pendingSummaries = append(pendingSummaries, j.Summary())
	}

	return model.FacilityState{
		Clock:     now,
		TickCount: s.clock.TickCount(),
		Thermal: model.ThermalSummary{
			AmbientC: ambient, Racks: thermalRacks, ThrottledCnt: throttledCnt,
		},
		Power: model.PowerSummary{
			ITKW: powerResult.ITKW, PUE: powerResult.PUE, FacilityKW: powerResult.FacilityKW,
			CapKW: s.cfg.Power.FacilityPowerCapKW, HeadroomKW: powerResult.HeadroomKW,
			CapExceeded: powerResult.CapExceeded, Racks: powerRacks, Servers: powerServers,
		},
		GPU:     gpuSummary,
		Network: netSummary,
		Storage: stgSummary,
		Cooling: coolingSummary,
		Carbon: model.CarbonSummary{
			IntensityGCO2PerKWh: intensity, PriceGBPPerKWh: price,
			CumulativeKG: s.carbonAcc.CumulativeKG, CumulativeGBP: s.carbonAcc.CumulativeGBP,
		},
		Workload: model.WorkloadSummary{
			PendingCount: len(s.work.Pending()), RunningCount: len(s.work.Running()),
			CompletedCount: countStatus(s.work.Completed(), model.JobCompleted),
			FailedCount:    s.work.FailedCount(),
			SLAViolations:  s.work.SLAViolations(),
			TotalJobsSeen:  s.work.TotalJobsSeen(),
			Running:        runningSummaries,
			Pending:        pendingSummaries,
		},
		ActiveFailures: sortedFailures(s.failures.GetActive()),
	}
}

func countStatus(jobs []*model.Job, status model.JobStatus) int {
	n := 0
	for _, j := range jobs {
		if j.Status == status {
			n++
		}
	}
	return n
}

func sortedRackIDs(m map[int]*thermal.RackState) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func sortedFailures(fs []model.ActiveFailure) []model.ActiveFailure {
	sort.Slice(fs, func(i, j int) bool { return fs[i].ID < fs[j].ID })
	return fs
}

// Snapshot returns the most recent telemetry snapshot, or ok=false if no
// tick has run yet.
func (s *Simulator) Snapshot() (model.FacilityState, bool) {
	return s.telemetry.Latest()
}

// TelemetryHistory returns up to the last n snapshots.
func (s *Simulator) TelemetryHistory(n int) []model.FacilityState {
	return s.telemetry.LastN(n)
}

// AuditHistory returns up to the last n audit entries.
func (s *Simulator) AuditHistory(n int) []model.AuditEntry {
	return s.audit.LastN(n)
}

// ActiveFailures returns a snapshot of the failure engine's active set.
func (s *Simulator) ActiveFailures() []model.ActiveFailure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return sortedFailures(s.failures.GetActive())
}

// PendingJobs returns the current queue, summarised.
func (s *Simulator) PendingJobs() []model.JobSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return summarize(s.work.Pending())
}

// RunningJobs returns the currently running jobs, summarised.
func (s *Simulator) RunningJobs() []model.JobSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return summarize(s.work.Running())
}

// CompletedJobs returns up to the last n completed/failed/preempted jobs,
// summarised, most recent last.
func (s *Simulator) CompletedJobs(n int) []model.JobSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	all := s.work.Completed()
	if n > 0 && n < len(all) {
		all = all[len(all)-n:]
	}
	return summarize(all)
}

// SLAViolatedJobs returns the jobs currently flagged SLA-violated (pending past
// deadline, or completed/failed/preempted having been flagged before exit).
func (s *Simulator) SLAViolatedJobs() []model.JobSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*model.Job
	for _, j := range s.work.Pending() {
		if j.SLAViolated {
			out = append(out, j)
		}
	}
	for _, j := range s.work.Running() {
		if j.SLAViolated {
			out = append(out, j)
		}
	}
	for _, j := range s.work.Completed() {
		if j.SLAViolated {
			out = append(out, j)
		}
	}
	return summarize(out)
}

func summarize(jobs []*model.Job) []model.JobSummary {
	out := make([]model.JobSummary, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Summary())
	}
	return out
}

func fmtErr(err error) string {
	if se, ok := simerrors.As(err); ok {
		return se.Tag()
	}
	return fmt.Sprintf("error: %v", err)
}
