package laser

import (
	"time"

	"go.uber.org/atomic"

	"github.com/robotalks/laserlink/pkg/pdm"
)

// Sampler is the detector edge handler. It measures each pulse,
// classifies it and records it while a receive session is open.
type Sampler struct {
	detector  PulseMeasurer
	timing    pdm.Timing
	window    time.Duration
	acc       *Accumulator
	indicator OutputPin

	edges     atomic.Uint64
	timeouts  atomic.Uint64
	recorded  atomic.Uint64
	discarded atomic.Uint64
}

// SamplerStats are counters since the sampler was created.
type SamplerStats struct {
	Edges     uint64
	Timeouts  uint64
	Recorded  uint64
	Discarded uint64
}

// NewSampler creates a Sampler. The indicator may be nil.
func NewSampler(detector PulseMeasurer, timing pdm.Timing, acc *Accumulator, indicator OutputPin) *Sampler {
	if indicator == nil {
		indicator = NopPin
	}
	return &Sampler{
		detector:  detector,
		timing:    timing,
		window:    timing.MaxPulse(),
		acc:       acc,
		indicator: indicator,
	}
}

// HandleEdge runs on each falling edge. The detector reads Low while
// the beam is present, so the Low time is the pulse width.
func (s *Sampler) HandleEdge() {
	s.edges.Inc()
	d := s.detector.MeasurePulse(Low, s.window)
	if d == pdm.TimedOut {
		s.timeouts.Inc()
	}
	sym := s.timing.Classify(d)
	if s.acc.Record(sym) {
		s.recorded.Inc()
	} else {
		s.discarded.Inc()
	}
	s.indicator.Set(sym == pdm.One)
}

// Stats returns the counters.
func (s *Sampler) Stats() SamplerStats {
	return SamplerStats{
		Edges:     s.edges.Load(),
		Timeouts:  s.timeouts.Load(),
		Recorded:  s.recorded.Load(),
		Discarded: s.discarded.Load(),
	}
}
