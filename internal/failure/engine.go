// Package failure implements the probabilistic/manual fault injection engine
// (spec §4.2): active failure tracking, random injection per rack per tick,
// manual inject/resolve, and time-based expiry.
package failure

import (
	"github.com/google/uuid"

	"github.com/dcsim/dc-simulator/internal/config"
	"github.com/dcsim/dc-simulator/internal/rng"
	"github.com/dcsim/dc-simulator/internal/simerrors"
	"github.com/dcsim/dc-simulator/pkg/model"
)

// randomInjectable are the failure types eligible for per-tick random
// injection (spec §4.2 table); gpu_degraded is manual-only, as the spec
// gives it no default duration or random trigger.
var randomInjectable = []model.FailureType{
	model.FailureCRACDegraded,
	model.FailurePDUSpike,
	model.FailureNetworkPartition,
}

// perRackProbability is the documented "~0.5% per tick per rack" rate
// (spec §9 Open Question: the per-rack rate is kept as-is rather than
// reconciled against the inconsistent "2-3 failures per 4h" prose).
const perRackProbability = 0.005

// Engine owns the active-failure set.
type Engine struct {
	active map[string]*model.ActiveFailure
}

// New builds an empty Engine.
func New() *Engine {
	return &Engine{active: make(map[string]*model.ActiveFailure)}
}

// Reset clears all active failures.
func (e *Engine) Reset() {
	e.active = make(map[string]*model.ActiveFailure)
}

// GetActive returns a snapshot list of currently active failures, sorted by
// insertion is not guaranteed; callers needing determinism should sort by ID.
func (e *Engine) GetActive() []model.ActiveFailure {
	out := make([]model.ActiveFailure, 0, len(e.active))
	for _, f := range e.active {
		out = append(out, *f)
	}
	return out
}

// ActiveOnTarget reports whether a failure of the given type is already
// active on target (duplicate-injection guard).
func (e *Engine) ActiveOnTarget(failureType model.FailureType, target string) bool {
	for _, f := range e.active {
		if f.Type == failureType && f.Target == target {
			return true
		}
	}
	return false
}

// defaultDuration returns the documented default duration for a random
// injection, or nil for "until resolved"/instant types.
func defaultDuration(r *rng.Source, t model.FailureType) *float64 {
	var d float64
	switch t {
	case model.FailureCRACDegraded:
		d = r.Uniform(600, 1800)
	case model.FailureCRACFailure:
		d = r.Uniform(300, 900)
	case model.FailurePDUSpike:
		d = 300
	case model.FailureNetworkPartition:
		d = 0 // instant: expires immediately
	default:
		return nil
	}
	return &d
}

// Tick injects random events, then captures the set of racks affected by an
// active network_partition (including one injected this call), and only
// then expires stale failures — so an instant network_partition is visible
// to the caller for exactly the tick it takes effect on, whether it was
// injected by this call's random draw or by a manual inject_failure action
// since the previous tick (spec §5: "injected failures take effect on the
// tick following injection"). numRacks drives the per-rack injection loop;
// zoneOf maps a rack id to its CRAC unit id for CRAC-targeted draws; now is
// the simulator's current time.
func (e *Engine) Tick(numRacks int, zoneOf func(rack int) int, now float64, r *rng.Source) (injected []model.ActiveFailure, partitioned map[int]bool) {
	injected = make([]model.ActiveFailure, 0)
	for rack := 0; rack < numRacks; rack++ {
		if !r.Bernoulli(perRackProbability) {
			continue
		}
		idx := r.Intn(len(randomInjectable))
		ftype := randomInjectable[idx]
		target := targetFor(ftype, rack, zoneOf)
		if e.ActiveOnTarget(ftype, target) {
			continue
		}
		dur := defaultDuration(r, ftype)
		// The id is drawn from the seeded stream, not uuid.NewString, so a
		// replay after Reset assigns the same ids.
		var id uuid.UUID
		for i := range id {
			id[i] = byte(r.Intn(256))
		}
		id[6] = id[6]&0x0f | 0x40 // version 4
		id[8] = id[8]&0x3f | 0x80 // RFC 4122 variant
		f, err := e.inject(id.String(), ftype, target, now, dur, false)
		if err == nil {
			injected = append(injected, *f)
		}
	}

	partitioned = e.PartitionedRacks()
	e.expire(now)
	return injected, partitioned
}

func targetFor(t model.FailureType, rack int, zoneOf func(rack int) int) string {
	switch t {
	case model.FailureCRACDegraded, model.FailureCRACFailure:
		return "crac-" + itoa(zoneOf(rack))
	default:
		return rackTarget(rack)
	}
}

func rackTarget(rack int) string { return "rack-" + itoa(rack) }

func itoa(i int) string {
	if i == 0 {
		return "0"
	}
	neg := i < 0
	if neg {
		i = -i
	}
	var buf [20]byte
	pos := len(buf)
	for i > 0 {
		pos--
		buf[pos] = byte('0' + i%10)
		i /= 10
	}
	if neg {
		pos--
		buf[pos] = '-'
	}
	return string(buf[pos:])
}

func (e *Engine) expire(now float64) {
	for id, f := range e.active {
		if f.Expired(now) {
			delete(e.active, id)
		}
	}
}

// Inject manually injects a failure, deterministically: no RNG draw is made
// for the duration, a nil durationS means "until resolved", and a
// network_partition always expires at now. The id comes from uuid.NewString.
func (e *Engine) Inject(ftype model.FailureType, target string, now float64, durationS *float64) (*model.ActiveFailure, error) {
	return e.inject(uuid.NewString(), ftype, target, now, durationS, true)
}

func (e *Engine) inject(id string, ftype model.FailureType, target string, now float64, durationS *float64, manual bool) (*model.ActiveFailure, error) {
	if !ftype.IsValid() {
		return nil, simerrors.New(simerrors.InvalidArgument, "unknown failure type %q", ftype)
	}
	if err := validateTarget(ftype, target); err != nil {
		return nil, err
	}
	if e.ActiveOnTarget(ftype, target) {
		return nil, simerrors.New(simerrors.Conflict, "failure %s already active on %s", ftype, target)
	}

	var expiry *float64
	if ftype == model.FailureNetworkPartition {
		t := now
		expiry = &t
	} else if durationS != nil {
		t := now + *durationS
		expiry = &t
	} // else: nil = until resolved (gpu_degraded, or manual open-ended)

	f := &model.ActiveFailure{
		ID:         id,
		Type:       ftype,
		Target:     target,
		StartTime:  now,
		ExpiryTime: expiry,
		Payload:    payloadFor(ftype),
	}
	e.active[f.ID] = f
	return f, nil
}

func payloadFor(t model.FailureType) map[string]float64 {
	switch t {
	case model.FailurePDUSpike:
		return map[string]float64{"pdu_spike_multiplier": 1.2}
	case model.FailureCRACDegraded:
		return map[string]float64{"capacity_multiplier": 0.5}
	case model.FailureCRACFailure:
		return map[string]float64{"capacity_multiplier": 0.0}
	case model.FailureGPUDegraded:
		return map[string]float64{"util_cap": 0.3}
	default:
		return nil
	}
}

func validateTarget(ftype model.FailureType, target string) error {
	var err error
	switch ftype {
	case model.FailureCRACDegraded, model.FailureCRACFailure:
		_, err = model.ParseCRACTarget(target)
	case model.FailureGPUDegraded:
		_, _, err = model.ParseServerID(target)
	case model.FailurePDUSpike, model.FailureNetworkPartition:
		_, err = model.ParseRackTarget(target)
	}
	if err != nil {
		return simerrors.New(simerrors.InvalidArgument, "invalid target %q for %s", target, ftype)
	}
	return nil
}

// Resolve removes an active failure by id.
func (e *Engine) Resolve(id string) error {
	if _, ok := e.active[id]; !ok {
		return simerrors.New(simerrors.NotFound, "unknown failure %s", id)
	}
	delete(e.active, id)
	return nil
}

// CRACHealthMultiplier returns the cooling-capacity multiplier (0, 0.5 or
// 1.0) implied by active CRAC failures on the given unit.
func (e *Engine) CRACHealthMultiplier(unit int) float64 {
	target := "crac-" + itoa(unit)
	mult := 1.0
	for _, f := range e.active {
		if f.Target != target {
			continue
		}
		switch f.Type {
		case model.FailureCRACFailure:
			return 0.0
		case model.FailureCRACDegraded:
			mult = 0.5
		}
	}
	return mult
}

// PDUSpikeMultiplier returns the power multiplier (1.0 normally, 1.2 while
// pdu_spike is active) for the given rack.
func (e *Engine) PDUSpikeMultiplier(rack int) float64 {
	target := rackTarget(rack)
	for _, f := range e.active {
		if f.Target == target && f.Type == model.FailurePDUSpike {
			return 1.2
		}
	}
	return 1.0
}

// GPUDegraded reports whether gpu_degraded is active on the given server.
func (e *Engine) GPUDegraded(serverID string) bool {
	for _, f := range e.active {
		if f.Target == serverID && f.Type == model.FailureGPUDegraded {
			return true
		}
	}
	return false
}

// PartitionedRacks returns the set of rack ids with an active
// network_partition failure.
func (e *Engine) PartitionedRacks() map[int]bool {
	out := make(map[int]bool)
	for _, f := range e.active {
		if f.Type == model.FailureNetworkPartition {
			if rack, err := model.ParseRackTarget(f.Target); err == nil {
				out[rack] = true
			}
		}
	}
	return out
}
