package laser

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"go.uber.org/atomic"

	"github.com/robotalks/laserlink/pkg/pdm"
)

// FullLength asks TransmitOutbox to send the whole outbox.
const FullLength = -1

// Outbox is the outbound message source.
type Outbox interface {
	Len() int
	Bytes() []byte
}

// Inbox receives decoded text.
type Inbox interface {
	AppendText(string) error
}

// Mode is the transceiver state.
type Mode uint32

// Modes
const (
	Idle Mode = iota
	Receiving
	Transmitting
)

// String implements fmt.Stringer.
func (m Mode) String() string {
	switch m {
	case Idle:
		return "idle"
	case Receiving:
		return "receiving"
	case Transmitting:
		return "transmitting"
	}
	return "unknown"
}

// ReceiveResult reports a finished receive session.
type ReceiveResult struct {
	ID       string
	Outcome  Outcome
	Text     string
	Bits     int
	Trailing int
	Dropped  int
	Stale    int
	// Truncated is set when the inbox could not take all the text.
	Truncated bool
	Started   time.Time
	Duration  time.Duration
}

// Stats are the session counters.
type Stats struct {
	SamplerStats
	Transmits     uint64
	BytesSent     uint64
	Receives      uint64
	BytesReceived uint64
}

// Option configures a Session.
type Option func(*Session)

// WithTiming sets the pulse timing.
func WithTiming(t pdm.Timing) Option {
	return func(s *Session) { s.timing = t }
}

// WithClock sets the clock timing receive windows.
func WithClock(c clock.Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithReclaimer sets the memory reclaimer.
func WithReclaimer(r Reclaimer) Option {
	return func(s *Session) { s.reclaimer = r }
}

// WithCapacity sets the accumulator capacity in bits.
func WithCapacity(bits int) Option {
	return func(s *Session) { s.capacity = bits }
}

// Session owns one transceiver: it transmits the outbox and runs
// receive windows which decode into the inbox.
//
// Only one transmit drives the laser at a time. Transmit and receive
// are not mutually exclusive. A transmit during
// an open receive window proceeds, and whatever the detector sees,
// including the transmitter's own beam, is recorded.
type Session struct {
	board     Board
	outbox    Outbox
	inbox     Inbox
	timing    pdm.Timing
	clock     clock.Clock
	reclaimer Reclaimer
	capacity  int

	tx      *Transmitter
	acc     *Accumulator
	sampler *Sampler

	receiving    atomic.Bool
	transmitting atomic.Bool
	attached     atomic.Bool
	rxLock       sync.Mutex
	txLock       sync.Mutex

	transmits     atomic.Uint64
	bytesSent     atomic.Uint64
	receives      atomic.Uint64
	bytesReceived atomic.Uint64
}

// NewSession creates a Session.
func NewSession(board Board, outbox Outbox, inbox Inbox, opts ...Option) (*Session, error) {
	s := &Session{
		board:     board,
		outbox:    outbox,
		inbox:     inbox,
		timing:    pdm.DefaultTiming,
		clock:     clock.New(),
		reclaimer: RuntimeReclaimer{},
		capacity:  DefaultCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.timing.Validate(); err != nil {
		return nil, err
	}
	s.tx = NewTransmitter(board.Laser, s.timing, s.reclaimer)
	s.acc = NewAccumulator(s.capacity, board.Locker)
	s.sampler = NewSampler(board.Detector, s.timing, s.acc, board.Indicator)
	return s, nil
}

// Attach installs the edge handler on the detector.
func (s *Session) Attach() error {
	if err := s.board.Detector.OnFallingEdge(s.sampler.HandleEdge); err != nil {
		return err
	}
	s.attached.Store(true)
	return nil
}

// Detach uninstalls the edge handler.
func (s *Session) Detach() error {
	s.attached.Store(false)
	return s.board.Detector.OnFallingEdge(nil)
}

// Timing returns the pulse timing.
func (s *Session) Timing() pdm.Timing {
	return s.timing
}

// Sampler returns the edge handler.
func (s *Session) Sampler() *Sampler {
	return s.sampler
}

// Accumulator returns the bit accumulator.
func (s *Session) Accumulator() *Accumulator {
	return s.acc
}

// Mode returns the current state.
func (s *Session) Mode() Mode {
	if s.transmitting.Load() {
		return Transmitting
	}
	if s.receiving.Load() {
		return Receiving
	}
	return Idle
}

// Stats returns the counters.
func (s *Session) Stats() Stats {
	return Stats{
		SamplerStats:  s.sampler.Stats(),
		Transmits:     s.transmits.Load(),
		BytesSent:     s.bytesSent.Load(),
		Receives:      s.receives.Load(),
		BytesReceived: s.bytesReceived.Load(),
	}
}

// TransmitOutbox sends the first length bytes of the outbox, or all of
// it with FullLength, and returns the number of bytes sent. An
// overlapping transmit fails with ErrTransmitInProgress.
func (s *Session) TransmitOutbox(length int) (Outcome, int, error) {
	if length == 0 {
		glog.Info("no message to transmit")
		return NothingToTransmit, 0, nil
	}
	if !s.txLock.TryLock() {
		return OK, 0, ErrTransmitInProgress
	}
	defer s.txLock.Unlock()
	data := s.outbox.Bytes()
	if length == FullLength {
		length = len(data)
	}
	s.transmitting.Store(true)
	defer s.transmitting.Store(false)
	outcome, err := s.tx.Transmit(data, 0, length)
	if err != nil || outcome != OK {
		return outcome, 0, err
	}
	s.transmits.Inc()
	s.bytesSent.Add(uint64(length))
	return outcome, length, nil
}

// StartReceive opens a receive window for d and decodes what arrived
// into the inbox. A non-positive d doesn't block. If ctx is done
// before the window ends, the session is abandoned and the collected
// bits are discarded by the next session.
func (s *Session) StartReceive(ctx context.Context, d time.Duration) (res ReceiveResult, err error) {
	if !s.rxLock.TryLock() {
		return res, ErrReceiveInProgress
	}
	defer s.rxLock.Unlock()
	if !s.attached.Load() {
		return res, ErrNotAttached
	}

	res.ID = uuid.NewString()
	res.Started = s.clock.Now()
	if res.Stale = s.acc.Open(); res.Stale > 0 {
		glog.Infof("rx %s: resetting %d stale bits", res.ID, res.Stale)
	}
	s.receiving.Store(true)
	glog.V(2).Infof("rx %s: open for %v", res.ID, d)

	if d > 0 {
		timer := s.clock.Timer(d)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			s.acc.Close()
			s.receiving.Store(false)
			glog.V(2).Infof("rx %s: aborted with %d bits", res.ID, s.acc.Len())
			return res, ctx.Err()
		}
	}

	s.acc.Close()
	s.receiving.Store(false)
	s.reclaimer.Collect()
	res.Duration = s.clock.Since(res.Started)
	s.receives.Inc()

	bits, dropped := s.acc.Drain()
	res.Bits, res.Dropped, res.Trailing = len(bits), dropped, pdm.Trailing(bits)
	if dropped > 0 {
		glog.Warningf("rx %s: %d bits dropped on overflow", res.ID, dropped)
	}
	if len(bits) == 0 {
		glog.Info("no data was received during rx period")
		res.Outcome = NoDataReceived
		return res, nil
	}
	res.Text = pdm.Frame(bits)
	if err := s.inbox.AppendText(res.Text); err != nil {
		glog.Warningf("rx %s: inbox: %v", res.ID, err)
		res.Truncated = true
	}
	s.bytesReceived.Add(uint64(len(bits) / 8))
	glog.V(2).Infof("rx %s: %d bits, %q", res.ID, len(bits), res.Text)
	res.Outcome = OK
	return res, nil
}
