package laser

import (
	"github.com/golang/glog"

	"github.com/robotalks/laserlink/pkg/pdm"
)

// Transmitter sends byte ranges through the beam source.
type Transmitter struct {
	laser     Emitter
	timing    pdm.Timing
	reclaimer Reclaimer
}

// NewTransmitter creates a Transmitter.
func NewTransmitter(laser Emitter, timing pdm.Timing, reclaimer Reclaimer) *Transmitter {
	if reclaimer == nil {
		reclaimer = RuntimeReclaimer{}
	}
	return &Transmitter{laser: laser, timing: timing, reclaimer: reclaimer}
}

// Timing returns the pulse timing in use.
func (t *Transmitter) Timing() pdm.Timing {
	return t.timing
}

// Transmit emits buf[start:end]. The laser is always forced off when
// the call returns, whether the pulse generator succeeded or not.
func (t *Transmitter) Transmit(buf []byte, start, end int) (Outcome, error) {
	if start < 0 || start > end || end > len(buf) {
		return OK, &RangeError{Start: start, End: end, Len: len(buf)}
	}
	if start == end {
		glog.V(2).Info("nothing to transmit")
		return NothingToTransmit, nil
	}

	defer t.laser.Set(Low)
	resume := t.reclaimer.Suspend()
	defer resume()

	glog.V(2).Infof("transmit %d bytes", end-start)
	return OK, t.laser.Bitstream(Low, t.timing, buf[start:end])
}
