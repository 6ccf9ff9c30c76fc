// Package periph drives the laser, detector and indicator through
// Linux GPIO using periph.io.
package periph

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	fx "github.com/robotalks/laserlink/pkg/framework"
	"github.com/robotalks/laserlink/pkg/laser"
	"github.com/robotalks/laserlink/pkg/pdm"
)

var (
	// ErrPinNotFound indicates a pin name doesn't resolve.
	ErrPinNotFound = errors.New("pin not found")
)

// Config names the pins, e.g. "GPIO17".
type Config struct {
	LaserPin     string
	DetectorPin  string
	IndicatorPin string
}

// Board is the GPIO-backed hardware.
type Board struct {
	Laser     *Laser
	Detector  *Detector
	Indicator *Pin
}

// Open initializes the host drivers and resolves the pins.
func Open(conf Config) (*Board, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("periph host init: %w", err)
	}
	laserPin, err := lookup(conf.LaserPin)
	if err != nil {
		return nil, err
	}
	detectorPin, err := lookup(conf.DetectorPin)
	if err != nil {
		return nil, err
	}
	b := &Board{}
	if b.Laser, err = NewLaser(laserPin); err != nil {
		return nil, err
	}
	if b.Detector, err = NewDetector(detectorPin); err != nil {
		return nil, err
	}
	if conf.IndicatorPin != "" {
		indicatorPin, err := lookup(conf.IndicatorPin)
		if err != nil {
			return nil, err
		}
		if b.Indicator, err = NewPin(indicatorPin); err != nil {
			return nil, err
		}
	}
	return b, nil
}

func lookup(name string) (gpio.PinIO, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty name", ErrPinNotFound)
	}
	pin := gpioreg.ByName(name)
	if pin == nil {
		return nil, fmt.Errorf("%w: %q", ErrPinNotFound, name)
	}
	return pin, nil
}

// Board returns the laser.Board view.
func (b *Board) Board() laser.Board {
	board := laser.Board{Laser: b.Laser, Detector: b.Detector}
	if b.Indicator != nil {
		board.Indicator = b.Indicator
	}
	return board
}

// Close releases the pins.
func (b *Board) Close() error {
	var errs fx.AggregatedError
	if b.Detector != nil {
		errs.Add(b.Detector.Close())
	}
	if b.Laser != nil {
		b.Laser.Set(laser.Low)
		errs.Add(b.Laser.pin.Halt())
	}
	if b.Indicator != nil {
		b.Indicator.Set(laser.Low)
	}
	return errs.Aggregate()
}

func toLevel(l laser.Level) gpio.Level {
	if l == laser.High {
		return gpio.High
	}
	return gpio.Low
}

// Pin is a GPIO output.
type Pin struct {
	pin gpio.PinOut
}

// NewPin configures pin as output, initially Low.
func NewPin(pin gpio.PinOut) (*Pin, error) {
	if err := pin.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("%s: %w", pin.Name(), err)
	}
	return &Pin{pin: pin}, nil
}

// Set implements laser.OutputPin.
func (p *Pin) Set(l laser.Level) {
	if err := p.pin.Out(toLevel(l)); err != nil {
		glog.Warningf("%s: set %v: %v", p.pin.Name(), l, err)
	}
}

// Laser bit-bangs the beam source. Edges are timed by spinning on the
// monotonic clock, sleeping is too coarse for millisecond pulses.
type Laser struct {
	Pin
}

// NewLaser configures the laser pin.
func NewLaser(pin gpio.PinOut) (*Laser, error) {
	p, err := NewPin(pin)
	if err != nil {
		return nil, err
	}
	return &Laser{Pin: *p}, nil
}

// Bitstream implements laser.PulseGenerator.
func (l *Laser) Bitstream(initial laser.Level, timing pdm.Timing, data []byte) (err error) {
	out := l.pin
	if err = out.Out(toLevel(initial)); err != nil {
		return
	}
	deadline := time.Now()
	pdm.EachBit(data, func(s pdm.Symbol) {
		if err != nil {
			return
		}
		high, low := timing.Encode(s)
		if err = out.Out(gpio.High); err != nil {
			return
		}
		deadline = spinUntil(deadline.Add(high))
		if err = out.Out(gpio.Low); err != nil {
			return
		}
		deadline = spinUntil(deadline.Add(low))
	})
	return
}

func spinUntil(deadline time.Time) time.Time {
	for time.Now().Before(deadline) {
	}
	return deadline
}

// Detector watches the sensor line for edges.
type Detector struct {
	pin gpio.PinIO

	handler func()
	lock    sync.Mutex
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewDetector configures pin as input with pull-up, detecting both
// edges so a pulse can be timed to its end.
func NewDetector(pin gpio.PinIO) (*Detector, error) {
	if err := pin.In(gpio.PullUp, gpio.BothEdges); err != nil {
		return nil, fmt.Errorf("%s: %w", pin.Name(), err)
	}
	return &Detector{pin: pin}, nil
}

// OnFallingEdge implements laser.EdgeSource.
func (d *Detector) OnFallingEdge(handler func()) error {
	var stopCh, doneCh chan struct{}
	d.lock.Lock()
	d.handler = handler
	if handler != nil && d.stopCh == nil {
		stopCh, doneCh = make(chan struct{}), make(chan struct{})
		d.stopCh, d.doneCh = stopCh, doneCh
	}
	d.lock.Unlock()
	if stopCh != nil {
		go d.watch(stopCh, doneCh)
	}
	return nil
}

func (d *Detector) watch(stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	for {
		select {
		case <-stopCh:
			return
		default:
		}
		if !d.pin.WaitForEdge(100 * time.Millisecond) {
			continue
		}
		if d.pin.Read() != gpio.Low {
			continue
		}
		d.lock.Lock()
		h := d.handler
		d.lock.Unlock()
		if h != nil {
			h()
		}
	}
}

// MeasurePulse implements laser.PulseMeasurer. It must be called from
// the edge handler, which owns the edge queue.
func (d *Detector) MeasurePulse(level laser.Level, timeout time.Duration) time.Duration {
	start := time.Now()
	want := toLevel(level)
	for {
		elapsed := time.Since(start)
		if d.pin.Read() != want {
			return elapsed
		}
		remaining := timeout - elapsed
		if remaining <= 0 || !d.pin.WaitForEdge(remaining) {
			return pdm.TimedOut
		}
	}
}

// Close stops the edge watcher.
func (d *Detector) Close() error {
	d.lock.Lock()
	stopCh, doneCh := d.stopCh, d.doneCh
	d.stopCh, d.doneCh, d.handler = nil, nil, nil
	d.lock.Unlock()
	if stopCh != nil {
		close(stopCh)
		<-doneCh
	}
	return d.pin.Halt()
}
