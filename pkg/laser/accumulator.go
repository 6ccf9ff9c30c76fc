package laser

import (
	"sync"

	"github.com/robotalks/laserlink/pkg/pdm"
)

// DefaultCapacity is the default accumulator size in bits, enough to
// fill a default-sized inbox.
const DefaultCapacity = 1024 * 8

// Accumulator collects symbols from the edge handler during a receive
// session. Recording never allocates and the open/closed gate is
// checked under the same guard as the append, so a symbol is either
// part of a session or not at all.
type Accumulator struct {
	guard   sync.Locker
	bits    []pdm.Symbol
	open    bool
	dropped int
}

// NewAccumulator creates an Accumulator holding up to capacity bits.
// If guard is nil, a mutex is used.
func NewAccumulator(capacity int, guard sync.Locker) *Accumulator {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if guard == nil {
		guard = &sync.Mutex{}
	}
	return &Accumulator{
		guard: guard,
		bits:  make([]pdm.Symbol, 0, capacity),
	}
}

// Open clears leftovers and starts accepting symbols. It returns the
// number of stale bits discarded.
func (a *Accumulator) Open() (stale int) {
	a.guard.Lock()
	stale = len(a.bits)
	a.bits, a.dropped, a.open = a.bits[:0], 0, true
	a.guard.Unlock()
	return
}

// Close stops accepting symbols. Collected bits stay until Drain or
// the next Open.
func (a *Accumulator) Close() {
	a.guard.Lock()
	a.open = false
	a.guard.Unlock()
}

// Record appends a symbol if the accumulator is open and has room.
func (a *Accumulator) Record(s pdm.Symbol) bool {
	a.guard.Lock()
	defer a.guard.Unlock()
	if !a.open {
		return false
	}
	if len(a.bits) == cap(a.bits) {
		a.dropped++
		return false
	}
	a.bits = append(a.bits, s)
	return true
}

// Drain copies out the collected bits and clears them. dropped is the
// number of symbols lost to overflow since Open.
func (a *Accumulator) Drain() (bits []pdm.Symbol, dropped int) {
	a.guard.Lock()
	defer a.guard.Unlock()
	if len(a.bits) > 0 {
		bits = make([]pdm.Symbol, len(a.bits))
		copy(bits, a.bits)
	}
	dropped = a.dropped
	a.bits, a.dropped = a.bits[:0], 0
	return
}

// Len returns the number of collected bits.
func (a *Accumulator) Len() int {
	a.guard.Lock()
	defer a.guard.Unlock()
	return len(a.bits)
}

// IsOpen indicates whether symbols are being recorded.
func (a *Accumulator) IsOpen() bool {
	a.guard.Lock()
	defer a.guard.Unlock()
	return a.open
}

// Cap returns the capacity in bits.
func (a *Accumulator) Cap() int {
	return cap(a.bits)
}
