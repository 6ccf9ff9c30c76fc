// Package sim provides an in-process optical link for tests and
// demos. A Laser shines on a Beam and every Detector on that Beam sees
// its pulses.
package sim

import (
	"errors"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"

	"github.com/robotalks/laserlink/pkg/laser"
	"github.com/robotalks/laserlink/pkg/pdm"
)

var (
	// ErrInjectedFault is returned by a Laser configured to fail.
	ErrInjectedFault = errors.New("injected beam fault")
)

// Beam carries pulses from a Laser to the Detectors facing it.
type Beam struct {
	detectors []*Detector
	lock      sync.RWMutex
}

// NewBeam creates an empty Beam.
func NewBeam() *Beam {
	return &Beam{}
}

// Connect adds detectors to the beam.
func (b *Beam) Connect(detectors ...*Detector) *Beam {
	b.lock.Lock()
	b.detectors = append(b.detectors, detectors...)
	b.lock.Unlock()
	return b
}

func (b *Beam) deliver(width time.Duration) {
	b.lock.RLock()
	detectors := b.detectors
	b.lock.RUnlock()
	for _, d := range detectors {
		d.Pulse(width)
	}
}

// Laser is a simulated beam source.
type Laser struct {
	// Realtime paces the bitstream on Clock.
	Realtime bool
	Clock    clock.Clock
	// Jitter returns an offset added to the n-th pulse width.
	Jitter func(n int) time.Duration

	beam      *Beam
	level     atomic.Bool
	failAfter atomic.Int64
	pulses    atomic.Int64
}

// NewLaser creates a Laser shining on beam.
func NewLaser(beam *Beam) *Laser {
	l := &Laser{beam: beam, Clock: clock.New()}
	l.failAfter.Store(-1)
	return l
}

// FailAfter makes the following bitstreams fail after n bits, leaving
// the beam on. A negative n disables the fault.
func (l *Laser) FailAfter(n int) *Laser {
	l.failAfter.Store(int64(n))
	return l
}

// Level returns the current output level.
func (l *Laser) Level() laser.Level {
	return laser.Level(l.level.Load())
}

// Pulses returns the total number of pulses emitted.
func (l *Laser) Pulses() int {
	return int(l.pulses.Load())
}

// Set implements laser.OutputPin.
func (l *Laser) Set(level laser.Level) {
	l.level.Store(bool(level))
}

// Bitstream implements laser.PulseGenerator.
func (l *Laser) Bitstream(initial laser.Level, timing pdm.Timing, data []byte) (err error) {
	l.Set(initial)
	failAfter := int(l.failAfter.Load())
	n := 0
	pdm.EachBit(data, func(s pdm.Symbol) {
		if err != nil {
			return
		}
		if failAfter >= 0 && n >= failAfter {
			l.Set(laser.High)
			err = ErrInjectedFault
			return
		}
		high, low := timing.Encode(s)
		width := high
		if l.Jitter != nil {
			width += l.Jitter(int(l.pulses.Load()))
		}
		l.Set(laser.High)
		l.pulses.Inc()
		if l.beam != nil {
			l.beam.deliver(width)
		}
		if l.Realtime {
			l.Clock.Sleep(width)
		}
		l.Set(laser.Low)
		if l.Realtime {
			l.Clock.Sleep(low)
		}
		n++
	})
	return
}
