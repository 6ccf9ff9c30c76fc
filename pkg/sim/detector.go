package sim

import (
	"sync"
	"time"

	"go.uber.org/atomic"

	"github.com/robotalks/laserlink/pkg/laser"
	"github.com/robotalks/laserlink/pkg/pdm"
)

// Detector is a simulated beam sensor. Every pulse raises a falling
// edge and the installed handler runs synchronously, as an interrupt
// would preempt the sender.
type Detector struct {
	handler func()
	width   time.Duration
	armed   bool
	lock    sync.Mutex
	// serializes handler invocations like a single interrupt line.
	irq sync.Mutex

	blocked atomic.Bool
	edges   atomic.Int64
}

// NewDetector creates a Detector.
func NewDetector() *Detector {
	return &Detector{}
}

// OnFallingEdge implements laser.EdgeSource.
func (d *Detector) OnFallingEdge(handler func()) error {
	d.lock.Lock()
	d.handler = handler
	d.lock.Unlock()
	return nil
}

// SetBlocked simulates an obstruction in front of the detector.
func (d *Detector) SetBlocked(blocked bool) {
	d.blocked.Store(blocked)
}

// Edges returns the number of falling edges raised.
func (d *Detector) Edges() int {
	return int(d.edges.Load())
}

// Pulse simulates the beam arriving for width.
func (d *Detector) Pulse(width time.Duration) {
	if d.blocked.Load() {
		return
	}
	d.irq.Lock()
	defer d.irq.Unlock()
	d.lock.Lock()
	d.width, d.armed = width, true
	h := d.handler
	d.lock.Unlock()
	d.edges.Inc()
	if h != nil {
		h()
	}
	d.lock.Lock()
	d.armed = false
	d.lock.Unlock()
}

// MeasurePulse implements laser.PulseMeasurer. Only the Low (beam
// present) level of the current pulse can be measured.
func (d *Detector) MeasurePulse(level laser.Level, timeout time.Duration) time.Duration {
	d.lock.Lock()
	defer d.lock.Unlock()
	if !d.armed || level != laser.Low || d.width > timeout || d.width < 0 {
		return pdm.TimedOut
	}
	d.armed = false
	return d.width
}

// Indicator records the levels set on it.
type Indicator struct {
	level   atomic.Bool
	changes atomic.Int64
}

// Set implements laser.OutputPin.
func (i *Indicator) Set(level laser.Level) {
	if i.level.Swap(bool(level)) != bool(level) {
		i.changes.Inc()
	}
}

// Level returns the last level.
func (i *Indicator) Level() laser.Level {
	return laser.Level(i.level.Load())
}

// Changes returns the number of level changes.
func (i *Indicator) Changes() int {
	return int(i.changes.Load())
}
