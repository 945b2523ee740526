// Package persist implements the optional snapshot/audit sink (spec §6):
// every tick's FacilityState and every AuditEntry can be appended to a
// durable sink so a run survives process restarts. Two sinks are provided —
// a JSON-lines file (zero external dependency) and a SQLite
// sink adapted from the teacher's internal/database, repurposed from
// simulation/queue/scaling-decision rows to facility snapshots and actions.
package persist

import "github.com/dcsim/dc-simulator/pkg/model"

// Sink receives a copy of every tick snapshot and every recorded action.
// Implementations must not block the simulator's single-writer lock for
// longer than a local disk append.
type Sink interface {
	WriteSnapshot(model.FacilityState) error
	WriteAudit(model.AuditEntry) error
	Close() error
}

// NopSink discards everything; it is the simulator's default sink, and serve
// installs it for --sink none.
type NopSink struct{}

func (NopSink) WriteSnapshot(model.FacilityState) error { return nil }
func (NopSink) WriteAudit(model.AuditEntry) error        { return nil }
func (NopSink) Close() error                             { return nil }
