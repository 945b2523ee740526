// Package telemetry holds the bounded ring buffer of full FacilityState
// snapshots (spec §4, C13), guarded by a lock so API readers can take a
// consistent copy without racing the tick writer (spec §5).
package telemetry

import (
	"sync"

	"github.com/dcsim/dc-simulator/pkg/model"
)

const capacity = 1000

// Buffer is a bounded ring of snapshots; oldest is evicted on overflow.
type Buffer struct {
	mu   sync.RWMutex
	snaps []model.FacilityState
}

// New builds an empty Buffer.
func New() *Buffer { return &Buffer{} }

// Push appends a snapshot, evicting the oldest if at capacity.
func (b *Buffer) Push(s model.FacilityState) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snaps = append(b.snaps, s)
	if len(b.snaps) > capacity {
		b.snaps = b.snaps[len(b.snaps)-capacity:]
	}
}

// Reset empties the buffer.
func (b *Buffer) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.snaps = nil
}

// Latest returns the most recently pushed snapshot, or false if empty.
func (b *Buffer) Latest() (model.FacilityState, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.snaps) == 0 {
		return model.FacilityState{}, false
	}
	return b.snaps[len(b.snaps)-1], true
}

// LastN returns a copy of up to the last n snapshots, oldest first.
func (b *Buffer) LastN(n int) []model.FacilityState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if n <= 0 || n > len(b.snaps) {
		n = len(b.snaps)
	}
	out := make([]model.FacilityState, n)
	copy(out, b.snaps[len(b.snaps)-n:])
	return out
}

// Len returns the current number of buffered snapshots.
func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.snaps)
}
