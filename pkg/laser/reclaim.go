package laser

import (
	"runtime"
	"runtime/debug"
	"sync"
)

// Reclaimer controls memory reclamation around timing-critical work.
type Reclaimer interface {
	// Suspend stops automatic reclamation. The returned func forces a
	// collection and restores automatic reclamation.
	Suspend() (resume func())
	// Collect forces a collection.
	Collect()
}

// RuntimeReclaimer controls the Go garbage collector. Suspensions
// nest: the collector percent saved by the first Suspend is restored
// when the last one resumes.
type RuntimeReclaimer struct{}

var gcSuspension struct {
	sync.Mutex
	depth   int
	percent int
}

// Suspend implements Reclaimer. The returned func is idempotent.
func (RuntimeReclaimer) Suspend() func() {
	gcSuspension.Lock()
	if gcSuspension.depth == 0 {
		gcSuspension.percent = debug.SetGCPercent(-1)
	}
	gcSuspension.depth++
	gcSuspension.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			runtime.GC()
			gcSuspension.Lock()
			defer gcSuspension.Unlock()
			if gcSuspension.depth--; gcSuspension.depth == 0 {
				debug.SetGCPercent(gcSuspension.percent)
			}
		})
	}
}

// Collect implements Reclaimer.
func (RuntimeReclaimer) Collect() {
	runtime.GC()
}

// NopReclaimer never touches the collector.
type NopReclaimer struct{}

// Suspend implements Reclaimer.
func (NopReclaimer) Suspend() func() { return func() {} }

// Collect implements Reclaimer.
func (NopReclaimer) Collect() {}
