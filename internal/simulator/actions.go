package simulator

import (
	"time"

	"github.com/dcsim/dc-simulator/internal/simerrors"
	"github.com/dcsim/dc-simulator/pkg/model"
)

// recordAudit writes one entry for an action, recording "ok" or the error's tag.
func (s *Simulator) recordAudit(action string, params map[string]any, source string, err error) {
	result := "ok"
	if err != nil {
		result = fmtErr(err)
	}
	entry := model.AuditEntry{
		Timestamp: s.clock.Now(),
		Action:    action,
		Params:    params,
		Result:    result,
		Source:    source,
	}
	s.audit.Append(entry)
	_ = s.sink.WriteAudit(entry)
}

// MigrateWorkload moves a running job's GPU allocation to targetRack.
func (s *Simulator) MigrateWorkload(jobID string, targetRack int, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.work.Migrate(jobID, targetRack)
	s.recordAudit(string(model.ActionMigrateWorkload), map[string]any{"job_id": jobID, "target_rack": targetRack}, source, err)
	return err
}

// AdjustCooling turns a cooling setpoint into a per-zone capacity
// multiplier, 1 + 0.02*(18-setpoint) clamped to [0.8, 1.2] (spec §4.7), and
// persists it; the multiplier scales the zone's CRAC capacity in the thermal
// model and in the cooling telemetry. Calling it twice with the same setpoint is a
// no-op the second time (spec §8 idempotence law).
func (s *Simulator) AdjustCooling(rack int, setpointC float64, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rack < 0 || rack >= s.cfg.Facility.NumRacks {
		err := simerrors.New(simerrors.InvalidArgument, "unknown rack %d", rack)
		s.recordAudit(string(model.ActionAdjustCooling), map[string]any{"rack": rack, "setpoint_c": setpointC}, source, err)
		return err
	}
	zone := s.cfg.ZoneOf(rack)
	mult := clamp(1+0.02*(18-setpointC), 0.8, 1.2)
	s.zoneSetpointMult[zone] = mult
	s.recordAudit(string(model.ActionAdjustCooling), map[string]any{"rack": rack, "setpoint_c": setpointC}, source, nil)
	return nil
}

// ThrottleGPU sets a server's power-cap fraction. Accepts either a 0-100 or
// a 0.0-1.0 input and normalises to a fraction (spec §9 Open Question),
// rejecting anything outside [0, 100].
func (s *Simulator) ThrottleGPU(serverID string, powerCapPct float64, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if powerCapPct < 0 || powerCapPct > 100 {
		err := simerrors.New(simerrors.InvalidArgument, "power_cap_pct %v out of range [0,100]", powerCapPct)
		s.recordAudit(string(model.ActionThrottleGPU), map[string]any{"server_id": serverID, "power_cap_pct": powerCapPct}, source, err)
		return err
	}
	if _, err := s.work.ServerByID(serverID); err != nil {
		s.recordAudit(string(model.ActionThrottleGPU), map[string]any{"server_id": serverID, "power_cap_pct": powerCapPct}, source, err)
		return err
	}

	frac := powerCapPct
	if frac > 1.0 {
		frac = frac / 100.0
	}
	s.powerCapFrac[serverID] = frac
	s.recordAudit(string(model.ActionThrottleGPU), map[string]any{"server_id": serverID, "power_cap_pct": powerCapPct}, source, nil)
	return nil
}

// PreemptJob frees a running job's slots and marks it preempted.
func (s *Simulator) PreemptJob(jobID string, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.work.Preempt(jobID, s.clock.Now())
	s.recordAudit(string(model.ActionPreemptJob), map[string]any{"job_id": jobID}, source, err)
	return err
}

// ResolveFailure removes an active failure by id.
func (s *Simulator) ResolveFailure(id string, source string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.failures.Resolve(id)
	s.recordAudit(string(model.ActionResolveFailure), map[string]any{"failure_id": id}, source, err)
	return err
}

// InjectFailure manually injects a failure of ftype on target, deterministic
// and identical in effect to a random injection.
func (s *Simulator) InjectFailure(ftype model.FailureType, target string, durationS *float64, source string) (*model.ActiveFailure, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f, err := s.failures.Inject(ftype, target, s.clock.Now(), durationS)
	s.recordAudit(string(model.ActionInjectFailure), map[string]any{"type": string(ftype), "target": target}, source, err)
	return f, err
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// StartContinuous launches a background auto-ticker that calls Tick() every
// intervalS wall seconds until Pause() is called (spec §4.7, §5). Pausing
// is cooperative: the flag is checked between ticks, never mid-tick.
func (s *Simulator) StartContinuous(intervalS float64) {
	if intervalS <= 0 {
		intervalS = s.cfg.Clock.TickIntervalS
	}
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(time.Duration(intervalS * float64(time.Second)))
		defer ticker.Stop()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				s.Tick()
			}
		}
	}()
}

// Pause stops the auto-ticker within at most one tick and waits for the
// in-flight tick (if any) to finish.
func (s *Simulator) Pause() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()
	s.wg.Wait()
}

// IsRunning reports whether the auto-ticker is currently active.
func (s *Simulator) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
