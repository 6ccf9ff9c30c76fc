package laser

import (
	"sync"
	"time"

	"github.com/robotalks/laserlink/pkg/pdm"
)

// Level is a logic level on a line.
type Level bool

// Levels
const (
	Low  Level = false
	High Level = true
)

// String implements fmt.Stringer.
func (l Level) String() string {
	if l {
		return "High"
	}
	return "Low"
}

// OutputPin drives a binary output.
type OutputPin interface {
	Set(Level)
}

// PulseGenerator emits a high/low pulse pair per bit over data, most
// significant bit first, starting from the initial level.
type PulseGenerator interface {
	Bitstream(initial Level, timing pdm.Timing, data []byte) error
}

// PulseMeasurer measures how long a line stays at level, waiting at
// most timeout. It returns pdm.TimedOut when the window expires.
type PulseMeasurer interface {
	MeasurePulse(level Level, timeout time.Duration) time.Duration
}

// EdgeSource calls the handler on each falling edge of the detector.
// A nil handler uninstalls it.
type EdgeSource interface {
	OnFallingEdge(handler func()) error
}

// Emitter is the beam source.
type Emitter interface {
	OutputPin
	PulseGenerator
}

// Detector is the beam sensor. It reads Low while the beam is present.
type Detector interface {
	PulseMeasurer
	EdgeSource
}

// Board groups the hardware one transceiver runs on.
type Board struct {
	Laser     Emitter
	Detector  Detector
	Indicator OutputPin
	// Locker guards data shared with the edge handler. A mutex is used
	// if nil.
	Locker sync.Locker
}

type nopPin struct{}

func (nopPin) Set(Level) {}

// NopPin is an OutputPin which does nothing.
var NopPin OutputPin = nopPin{}
