package workload

import (
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/dcsim/dc-simulator/internal/config"
	"github.com/dcsim/dc-simulator/pkg/model"
)

type WorkloadTestSuite struct {
	suite.Suite
	cfg config.Config
	m   *Model
}

func (s *WorkloadTestSuite) SetupTest() {
	s.cfg = config.Default()
	s.m = New(s.cfg)
}

func noGPUDegraded(string) bool    { return false }
func fullPowerCap(string) float64 { return 1.0 }

func (s *WorkloadTestSuite) TestSingleServerFirstFitPlacement() {
	s.m.Submit(&model.Job{ID: "j1", GPUsRequired: 2, Priority: 3, TargetUtil: 0.9, SLADeadlineS: 100})
	s.m.schedule(0)
	s.Require().Len(s.m.Running(), 1)
	s.Len(s.m.Running()[0].AssignedServers, 1, "a job that fits on one server must not spread across several")
}

func (s *WorkloadTestSuite) TestMultiServerSpreadWhenNoSingleServerFits() {
	need := s.cfg.Facility.GPUsPerServer + 1
	s.m.Submit(&model.Job{ID: "j1", GPUsRequired: need, Priority: 3, TargetUtil: 0.9, SLADeadlineS: 100})
	s.m.schedule(0)
	s.Require().Len(s.m.Running(), 1)
	s.Greater(len(s.m.Running()[0].AssignedServers), 1)
}

func (s *WorkloadTestSuite) TestPriorityOrderingBeatsArrivalOrder() {
	s.m.Submit(&model.Job{ID: "low", GPUsRequired: s.cfg.Facility.GPUsPerServer * s.cfg.Facility.ServersPerRack * s.cfg.Facility.NumRacks, Priority: 1, TargetUtil: 0.9, SLADeadlineS: 100})
	s.m.Submit(&model.Job{ID: "high", GPUsRequired: 1, Priority: 5, TargetUtil: 0.9, SLADeadlineS: 100})
	s.m.schedule(0)

	var ranIDs []string
	for _, j := range s.m.Running() {
		ranIDs = append(ranIDs, j.ID)
	}
	s.Contains(ranIDs, "high", "the higher-priority small job must be placed even though it arrived second")
}

func (s *WorkloadTestSuite) TestCompletionFreesSlots() {
	s.m.Submit(&model.Job{ID: "j1", GPUsRequired: 2, Priority: 3, DurationS: 60, TargetUtil: 0.9, SLADeadlineS: 1000})
	s.m.schedule(0)
	free := s.m.Servers()[0].FreeSlots

	s.m.completeFinished(60)
	s.Require().Len(s.m.Completed(), 1)
	s.Equal(model.JobCompleted, s.m.Completed()[0].Status)
	s.Greater(s.m.Servers()[0].FreeSlots, free)
}

func (s *WorkloadTestSuite) TestSLAViolationFlaggedOncePastDeadline() {
	s.m.pending = append(s.m.pending, &model.Job{ID: "j1", SubmittedAt: 0, SLADeadlineS: 10})
	s.m.slaBookkeeping(11)
	s.Equal(1, s.m.SLAViolations())
	s.m.slaBookkeeping(12)
	s.Equal(1, s.m.SLAViolations(), "a job already flagged must not be double-counted")
}

func (s *WorkloadTestSuite) TestPreemptFreesSlotsAndMarksStatus() {
	s.m.Submit(&model.Job{ID: "j1", GPUsRequired: 2, Priority: 3, DurationS: 1000, TargetUtil: 0.9, SLADeadlineS: 1000})
	s.m.schedule(0)

	s.Require().NoError(s.m.Preempt("j1", 5))
	s.Empty(s.m.Running())
	s.Equal(model.JobPreempted, s.m.Completed()[0].Status)
}

func (s *WorkloadTestSuite) TestPreemptUnknownJobConflict() {
	err := s.m.Preempt("does-not-exist", 0)
	s.Error(err)
}

func (s *WorkloadTestSuite) TestMigrateMovesToTargetRack() {
	s.m.Submit(&model.Job{ID: "j1", GPUsRequired: 2, Priority: 3, DurationS: 1000, TargetUtil: 0.9, SLADeadlineS: 1000})
	s.m.schedule(0)

	s.Require().NoError(s.m.Migrate("j1", 1))
	for _, sid := range s.m.Running()[0].AssignedServers {
		rack, _, err := model.ParseServerID(sid)
		s.Require().NoError(err)
		s.Equal(1, rack)
	}
}

func (s *WorkloadTestSuite) TestUnevenMultiServerSplitFreesExactPerServerAmounts() {
	gps := s.cfg.Facility.GPUsPerServer

	// Leave exactly one free slot on server 0 so the next job's multi-server
	// spread is forced to take an uneven 1-then-gps split, not a clean half.
	s.m.Submit(&model.Job{ID: "filler", GPUsRequired: gps - 1, Priority: 3, DurationS: 1000, TargetUtil: 0.9, SLADeadlineS: 1000})
	s.m.schedule(0)
	s.Require().Equal(1, s.m.Servers()[0].FreeSlots)

	need := 1 + gps
	s.m.Submit(&model.Job{ID: "spread", GPUsRequired: need, Priority: 3, DurationS: 1000, TargetUtil: 0.9, SLADeadlineS: 1000})
	s.m.schedule(0)

	var spread *model.Job
	for _, j := range s.m.Running() {
		if j.ID == "spread" {
			spread = j
		}
	}
	s.Require().NotNil(spread)
	s.Require().Len(spread.ServerAllocations, 2, "the job must spread across exactly the two servers it needed")
	s.Equal(1, spread.ServerAllocations[s.m.Servers()[0].ID()])
	s.Equal(gps, spread.ServerAllocations[s.m.Servers()[1].ID()])
	s.Equal(0, s.m.Servers()[0].FreeSlots)
	s.Equal(0, s.m.Servers()[1].FreeSlots)

	s.Require().NoError(s.m.Preempt("spread", 5))
	s.Equal(1, s.m.Servers()[0].FreeSlots, "server 0 only ever held 1 of spread's GPUs; freeing must restore exactly that, not an even need/n split")
	s.Equal(gps, s.m.Servers()[1].FreeSlots, "server 1 held all of the remaining GPUs and must get them all back")
}

func (s *WorkloadTestSuite) TestPartitionFailsRunningJobsOnAffectedRack() {
	s.m.Submit(&model.Job{ID: "j1", GPUsRequired: 2, Priority: 3, DurationS: 1000, TargetUtil: 0.9, SLADeadlineS: 1000})
	s.m.schedule(0)

	s.m.applyPartitions(0, map[int]bool{0: true})
	s.Empty(s.m.Running())
	s.Equal(model.JobFailed, s.m.Completed()[0].Status)
}

func (s *WorkloadTestSuite) TestUtilCappedByThrottleAndDegradedAndPowerCap() {
	s.m.Submit(&model.Job{ID: "j1", GPUsRequired: 4, Priority: 3, DurationS: 1000, TargetUtil: 1.0, SLADeadlineS: 1000})
	s.m.schedule(0)
	sid := s.m.Running()[0].AssignedServers[0]

	s.m.publishUtilisation(throttledSet(0), noGPUDegraded, fullPowerCap)
	s.LessOrEqual(s.m.Util(sid), 0.5)

	s.m.publishUtilisation(nil, func(string) bool { return true }, fullPowerCap)
	s.LessOrEqual(s.m.Util(sid), 0.3)

	s.m.publishUtilisation(nil, noGPUDegraded, func(string) float64 { return 0.2 })
	s.LessOrEqual(s.m.Util(sid), 0.2)
}

func throttledSet(racks ...int) map[int]bool {
	m := make(map[int]bool, len(racks))
	for _, r := range racks {
		m[r] = true
	}
	return m
}

func TestWorkloadTestSuite(t *testing.T) {
	suite.Run(t, new(WorkloadTestSuite))
}
