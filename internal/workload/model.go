// Package workload implements the job lifecycle and scheduler (spec §4.3):
// stochastic Poisson-style arrivals, priority first-fit placement,
// duration-based completion, SLA tracking, preemption and migration.
package workload

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/dcsim/dc-simulator/internal/config"
	"github.com/dcsim/dc-simulator/internal/rng"
	"github.com/dcsim/dc-simulator/internal/simerrors"
	"github.com/dcsim/dc-simulator/pkg/model"
)

const idleFraction = 0.05

// completedRetention bounds the completed-job history (spec §4.3).
const completedRetention = 1000

type jobTypeParams struct {
	weight                  float64
	gpusMin, gpusMax        int
	durationMin, durationMax float64
	priorityMin, priorityMax int
	slaMin, slaMax          float64
	targetUtil              float64
}

var typeParams = map[model.JobType]jobTypeParams{
	model.JobTraining: {
		weight: 0.2, gpusMin: 4, gpusMax: 16,
		durationMin: 3600, durationMax: 14400,
		priorityMin: 2, priorityMax: 4,
		slaMin: 1800, slaMax: 7200,
		targetUtil: 0.92,
	},
	model.JobInference: {
		weight: 0.5, gpusMin: 1, gpusMax: 2,
		durationMin: 60, durationMax: 600,
		priorityMin: 4, priorityMax: 5,
		slaMin: 30, slaMax: 300,
		targetUtil: 0.60,
	},
	model.JobBatch: {
		weight: 0.3, gpusMin: 2, gpusMax: 8,
		durationMin: 600, durationMax: 7200,
		priorityMin: 1, priorityMax: 3,
		slaMin: 3600, slaMax: 14400,
		targetUtil: 0.85,
	},
}

var typeOrder = []model.JobType{model.JobInference, model.JobBatch, model.JobTraining}

// Server mirrors the slot bookkeeping the scheduler needs; the thermal/power
// models hold the richer per-server state, so workload keeps only what
// placement requires and the orchestrator keeps the two views in sync.
type Server struct {
	RackID     int
	Index      int
	TotalSlots int
	FreeSlots  int
}

func (s *Server) ID() string { return (&model.Server{RackID: s.RackID, Index: s.Index}).ID() }

// Model owns the pending/running/completed queues and the server slot table.
type Model struct {
	cfg     config.Config
	servers []*Server // flattened rack-major order, scan order for first-fit

	pending   []*model.Job
	running   []*model.Job
	completed []*model.Job

	totalJobsSeen int
	slaViolations int
	failedCount   int
	lastUtil      map[string]float64
}

// New builds a Model with all server slots free.
func New(cfg config.Config) *Model {
	m := &Model{cfg: cfg, lastUtil: make(map[string]float64)}
	m.buildServers()
	return m
}

func (m *Model) buildServers() {
	m.servers = nil
	for r := 0; r < m.cfg.Facility.NumRacks; r++ {
		for s := 0; s < m.cfg.Facility.ServersPerRack; s++ {
			m.servers = append(m.servers, &Server{
				RackID:     r,
				Index:      s,
				TotalSlots: m.cfg.Facility.GPUsPerServer,
				FreeSlots:  m.cfg.Facility.GPUsPerServer,
			})
		}
	}
}

// Reset clears all queues and frees every slot.
func (m *Model) Reset() {
	m.pending = nil
	m.running = nil
	m.completed = nil
	m.totalJobsSeen = 0
	m.slaViolations = 0
	m.failedCount = 0
	m.lastUtil = make(map[string]float64)
	m.buildServers()
}

// Servers exposes the slot table read-only, for the power/thermal models to
// read per-server utilisation against.
func (m *Model) Servers() []*Server { return m.servers }

// ServerByID looks up a server by its public id.
func (m *Model) ServerByID(id string) (*Server, error) {
	rack, idx, err := model.ParseServerID(id)
	if err != nil {
		return nil, simerrors.New(simerrors.InvalidArgument, "%v", err)
	}
	for _, s := range m.servers {
		if s.RackID == rack && s.Index == idx {
			return s, nil
		}
	}
	return nil, simerrors.New(simerrors.NotFound, "unknown server %s", id)
}

// Running returns the live running job list (not a copy; callers must not
// mutate).
func (m *Model) Running() []*model.Job { return m.running }

// Pending returns the live pending job list.
func (m *Model) Pending() []*model.Job { return m.pending }

// Completed returns the bounded completed/failed/preempted history.
func (m *Model) Completed() []*model.Job { return m.completed }

// Stats used by the scorer and the /workload endpoints.
func (m *Model) SLAViolations() int  { return m.slaViolations }
func (m *Model) TotalJobsSeen() int  { return m.totalJobsSeen }
func (m *Model) FailedCount() int    { return m.failedCount }

// Submit appends a job spec directly to pending (used by scripted scenarios
// and tests; random arrivals use arrive() internally).
func (m *Model) Submit(j *model.Job) {
	if j.ID == "" {
		j.ID = uuid.NewString()
	}
	j.Status = model.JobQueued
	m.totalJobsSeen++
	m.pending = append(m.pending, j)
}

// Tick advances the workload model by one tick, in the six-step order of
// spec §4.3: arrivals, failure-driven forced completion, scheduling,
// completion, SLA bookkeeping, utilisation publication. throttledRacks is the set of racks whose
// throttle flag was set on the *previous* tick (the one-tick lag feedback
// delay from the thermal model), and gpuDegraded/powerCapFrac are read from
// the failure engine / throttle_gpu action state respectively.
func (m *Model) Tick(now float64, r *rng.Source, partitioned map[int]bool, throttledRacks map[int]bool, gpuDegraded func(serverID string) bool, powerCapFrac func(serverID string) float64) {
	m.arrivals(now, r)
	m.applyPartitions(now, partitioned)
	m.schedule(now)
	m.completeFinished(now)
	m.slaBookkeeping(now)
	m.publishUtilisation(throttledRacks, gpuDegraded, powerCapFrac)
}

func (m *Model) arrivals(now float64, r *rng.Source) {
	meanInterval := m.cfg.Workload.MeanJobArrivalIntervalS
	if meanInterval <= 0 {
		return
	}
	tickInterval := m.cfg.Clock.TickIntervalS
	pArrival := 1 - expNeg(tickInterval/meanInterval)
	if !r.Bernoulli(pArrival) {
		return
	}

	weights := make([]float64, len(typeOrder))
	for i, t := range typeOrder {
		weights[i] = typeParams[t].weight
	}
	jt := typeOrder[r.WeightedIndex(weights)]
	p := typeParams[jt]

	// The id is drawn from the seeded stream, not uuid.NewString, so a replay
	// after Reset assigns the same ids.
	var id uuid.UUID
	for i := range id {
		id[i] = byte(r.Intn(256))
	}
	id[6] = id[6]&0x0f | 0x40 // version 4
	id[8] = id[8]&0x3f | 0x80 // RFC 4122 variant

	job := &model.Job{
		ID:           id.String(),
		Name:         "job-" + string(jt),
		Type:         jt,
		GPUsRequired: r.UniformInt(p.gpusMin, p.gpusMax),
		Priority:     r.UniformInt(p.priorityMin, p.priorityMax),
		DurationS:    r.Uniform(p.durationMin, p.durationMax),
		SubmittedAt:  now,
		TargetUtil:   p.targetUtil,
		SLADeadlineS: r.Uniform(p.slaMin, p.slaMax),
		Status:       model.JobQueued,
	}
	m.totalJobsSeen++
	m.pending = append(m.pending, job)
}

func expNeg(x float64) float64 {
	return math.Exp(-x)
}

func (m *Model) applyPartitions(now float64, partitioned map[int]bool) {
	if len(partitioned) == 0 {
		return
	}
	kept := m.running[:0]
	for _, j := range m.running {
		onPartitioned := false
		for _, sid := range j.AssignedServers {
			rack, _, err := model.ParseServerID(sid)
			if err == nil && partitioned[rack] {
				onPartitioned = true
				break
			}
		}
		if onPartitioned {
			m.freeSlots(j)
			j.Status = model.JobFailed
			t := now
			j.CompletedAt = &t
			j.AssignedServers = nil
			m.failedCount++
			m.pushCompleted(j)
			continue
		}
		kept = append(kept, j)
	}
	m.running = kept
}

func (m *Model) schedule(now float64) {
	sort.SliceStable(m.pending, func(i, j int) bool {
		a, b := m.pending[i], m.pending[j]
		if a.Priority != b.Priority {
			return a.Priority > b.Priority
		}
		return a.SubmittedAt < b.SubmittedAt
	})

	remaining := m.pending[:0]
	for _, j := range m.pending {
		if m.tryPlace(j, now) {
			m.running = append(m.running, j)
			continue
		}
		remaining = append(remaining, j)
	}
	m.pending = remaining
}

// tryPlace attempts single-server first-fit, falling back to a greedy
// multi-server spread across the rack-major scan order.
func (m *Model) tryPlace(j *model.Job, now float64) bool {
	need := j.GPUsRequired
	for _, s := range m.servers {
		if s.FreeSlots >= need {
			s.FreeSlots -= need
			j.AssignedServers = []string{s.ID()}
			j.ServerAllocations = map[string]int{s.ID(): need}
			m.start(j, now)
			return true
		}
	}

	total := 0
	for _, s := range m.servers {
		total += s.FreeSlots
	}
	if total < need {
		return false
	}

	var assigned []string
	allocations := make(map[string]int)
	remaining := need
	for _, s := range m.servers {
		if remaining == 0 {
			break
		}
		if s.FreeSlots == 0 {
			continue
		}
		take := s.FreeSlots
		if take > remaining {
			take = remaining
		}
		s.FreeSlots -= take
		remaining -= take
		assigned = append(assigned, s.ID())
		allocations[s.ID()] = take
	}
	j.AssignedServers = assigned
	j.ServerAllocations = allocations
	m.start(j, now)
	return true
}

func (m *Model) start(j *model.Job, now float64) {
	t := now
	j.StartedAt = &t
	j.Status = model.JobRunning
}

func (m *Model) completeFinished(now float64) {
	kept := m.running[:0]
	for _, j := range m.running {
		if j.StartedAt != nil && now-*j.StartedAt >= j.DurationS {
			m.freeSlots(j)
			t := now
			j.CompletedAt = &t
			j.Status = model.JobCompleted
			j.AssignedServers = nil
			m.pushCompleted(j)
			continue
		}
		kept = append(kept, j)
	}
	m.running = kept
}

func (m *Model) slaBookkeeping(now float64) {
	for _, j := range m.pending {
		if !j.SLAViolated && now-j.SubmittedAt > j.SLADeadlineS {
			j.SLAViolated = true
			m.slaViolations++
		}
	}
}

func (m *Model) publishUtilisation(throttledRacks map[int]bool, gpuDegraded func(string) bool, powerCapFrac func(string) float64) {
	usage := make(map[string]float64) // serverID -> assigned fraction of target util
	assignedFrac := make(map[string]float64)
	for _, j := range m.running {
		for sid, gpusHere := range j.ServerAllocations {
			s, err := m.ServerByID(sid)
			if err != nil {
				continue
			}
			frac := float64(gpusHere) / float64(s.TotalSlots)
			usage[sid] += j.TargetUtil * frac
			assignedFrac[sid] += frac
		}
	}

	for _, s := range m.servers {
		id := s.ID()
		util := usage[id] + idleFraction*(1-assignedFrac[id])
		if throttledRacks[s.RackID] {
			util = minF(util, 0.5)
		}
		if gpuDegraded != nil && gpuDegraded(id) {
			util = minF(util, 0.3)
		}
		if powerCapFrac != nil {
			if cap := powerCapFrac(id); cap < 1.0 {
				util = minF(util, cap)
			}
		}
		m.lastUtil[id] = util
	}
}

func minF(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

// freeSlots restores exactly the per-server amounts tryPlace/Migrate took,
// recorded in j.ServerAllocations (placement may split a job unevenly across
// servers, so an even need/n split here would free the wrong amounts).
func (m *Model) freeSlots(j *model.Job) {
	for sid, take := range j.ServerAllocations {
		s, err := m.ServerByID(sid)
		if err != nil {
			continue
		}
		s.FreeSlots += take
		if s.FreeSlots > s.TotalSlots {
			s.FreeSlots = s.TotalSlots
		}
	}
	j.ServerAllocations = nil
}

func (m *Model) pushCompleted(j *model.Job) {
	m.completed = append(m.completed, j)
	if len(m.completed) > completedRetention {
		m.completed = m.completed[len(m.completed)-completedRetention:]
	}
}

// Util returns the most recently published utilisation for a server id.
func (m *Model) Util(serverID string) float64 {
	return m.lastUtil[serverID]
}

// Preempt frees a running job's slots and marks it preempted.
func (m *Model) Preempt(jobID string, now float64) error {
	for i, j := range m.running {
		if j.ID != jobID {
			continue
		}
		m.freeSlots(j)
		j.Status = model.JobPreempted
		t := now
		j.CompletedAt = &t
		j.AssignedServers = nil
		m.pushCompleted(j)
		m.running = append(m.running[:i], m.running[i+1:]...)
		return nil
	}
	return simerrors.New(simerrors.Conflict, "job %s is not running", jobID)
}

// Migrate atomically frees a running job's slots and reassigns its GPU
// requirement on targetRack.
func (m *Model) Migrate(jobID string, targetRack int) error {
	var job *model.Job
	for _, j := range m.running {
		if j.ID == jobID {
			job = j
			break
		}
	}
	if job == nil {
		return simerrors.New(simerrors.Conflict, "job %s is not running", jobID)
	}

	need := job.GPUsRequired
	var targetServers []*Server
	freeOnTarget := 0
	for _, s := range m.servers {
		if s.RackID == targetRack {
			targetServers = append(targetServers, s)
			freeOnTarget += s.FreeSlots
		}
	}
	if freeOnTarget < need {
		return simerrors.New(simerrors.Conflict, "insufficient capacity on rack %d", targetRack)
	}

	m.freeSlots(job)

	var assigned []string
	allocations := make(map[string]int)
	remaining := need
	for _, s := range targetServers {
		if remaining == 0 {
			break
		}
		if s.FreeSlots == 0 {
			continue
		}
		take := s.FreeSlots
		if take > remaining {
			take = remaining
		}
		s.FreeSlots -= take
		remaining -= take
		assigned = append(assigned, s.ID())
		allocations[s.ID()] = take
	}
	job.AssignedServers = assigned
	job.ServerAllocations = allocations
	return nil
}
