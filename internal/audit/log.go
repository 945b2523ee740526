// Package audit holds the append-only action/outcome log (spec §4, C14).
package audit

import (
	"sync"

	"github.com/dcsim/dc-simulator/pkg/model"
)

// Log is an append-only, lock-guarded list of AuditEntry records.
type Log struct {
	mu      sync.RWMutex
	entries []model.AuditEntry
}

// New builds an empty Log.
func New() *Log { return &Log{} }

// Append records one entry.
func (l *Log) Append(e model.AuditEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

// Reset clears the log.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
}

// LastN returns up to the last n entries, oldest first.
func (l *Log) LastN(n int) []model.AuditEntry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]model.AuditEntry, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}
