//go:build tinygo

// Package machine drives the transceiver from microcontroller pins.
package machine

import (
	"machine"
	"runtime/interrupt"
	"time"

	"github.com/robotalks/laserlink/pkg/laser"
	"github.com/robotalks/laserlink/pkg/pdm"
)

// Pin is an output pin.
type Pin struct {
	machine.Pin
}

// NewPin configures p as output, initially Low.
func NewPin(p machine.Pin) *Pin {
	p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p.Low()
	return &Pin{Pin: p}
}

// Set implements laser.OutputPin.
func (p *Pin) Set(l laser.Level) {
	p.Pin.Set(bool(l))
}

// Laser bit-bangs the beam source.
type Laser struct {
	*Pin
}

// NewLaser configures the laser pin.
func NewLaser(p machine.Pin) *Laser {
	return &Laser{Pin: NewPin(p)}
}

// Bitstream implements laser.PulseGenerator.
func (l *Laser) Bitstream(initial laser.Level, timing pdm.Timing, data []byte) error {
	l.Set(initial)
	deadline := time.Now()
	pdm.EachBit(data, func(s pdm.Symbol) {
		high, low := timing.Encode(s)
		l.Pin.Pin.High()
		deadline = spinUntil(deadline.Add(high))
		l.Pin.Pin.Low()
		deadline = spinUntil(deadline.Add(low))
	})
	return nil
}

func spinUntil(deadline time.Time) time.Time {
	for time.Now().Before(deadline) {
	}
	return deadline
}

// Detector reads the beam sensor, which pulls Low while lit.
type Detector struct {
	pin machine.Pin
}

// NewDetector configures p as input with pull-up.
func NewDetector(p machine.Pin) *Detector {
	p.Configure(machine.PinConfig{Mode: machine.PinInputPullup})
	return &Detector{pin: p}
}

// OnFallingEdge implements laser.EdgeSource.
func (d *Detector) OnFallingEdge(handler func()) error {
	if handler == nil {
		return d.pin.SetInterrupt(0, nil)
	}
	return d.pin.SetInterrupt(machine.PinFalling, func(machine.Pin) {
		handler()
	})
}

// MeasurePulse implements laser.PulseMeasurer.
func (d *Detector) MeasurePulse(level laser.Level, timeout time.Duration) time.Duration {
	start := time.Now()
	want := bool(level)
	for d.pin.Get() == want {
		if time.Since(start) >= timeout {
			return pdm.TimedOut
		}
	}
	return time.Since(start)
}

// InterruptLocker guards data shared with interrupt handlers by
// disabling interrupts.
type InterruptLocker struct {
	state interrupt.State
}

// Lock implements sync.Locker.
func (l *InterruptLocker) Lock() {
	l.state = interrupt.Disable()
}

// Unlock implements sync.Locker.
func (l *InterruptLocker) Unlock() {
	interrupt.Restore(l.state)
}

// Config names the pins of a board.
type Config struct {
	Laser     machine.Pin
	Detector  machine.Pin
	Indicator machine.Pin
}

// NewBoard configures the pins.
func NewBoard(conf Config) laser.Board {
	return laser.Board{
		Laser:     NewLaser(conf.Laser),
		Detector:  NewDetector(conf.Detector),
		Indicator: NewPin(conf.Indicator),
		Locker:    &InterruptLocker{},
	}
}
