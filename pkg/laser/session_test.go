package laser

import (
	"context"
	"runtime/debug"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/require"

	"github.com/robotalks/laserlink/pkg/pdm"
)

type testSession struct {
	*Session
	t        *testing.T
	clock    *clock.Mock
	journal  *testJournal
	emitter  *testEmitter
	detector *testDetector
	led      *testPin
	outbox   *testOutbox
	inbox    *testInbox
}

func newTestSession(t *testing.T, opts ...Option) *testSession {
	ts := &testSession{
		t:        t,
		clock:    clock.NewMock(),
		journal:  &testJournal{},
		detector: &testDetector{},
		led:      &testPin{},
		outbox:   &testOutbox{},
		inbox:    &testInbox{},
	}
	ts.emitter = &testEmitter{journal: ts.journal}
	board := Board{Laser: ts.emitter, Detector: ts.detector, Indicator: ts.led}
	opts = append([]Option{
		WithClock(ts.clock),
		WithReclaimer(&testReclaimer{journal: ts.journal}),
	}, opts...)
	s, err := NewSession(board, ts.outbox, ts.inbox, opts...)
	require.NoError(t, err)
	require.NoError(t, s.Attach())
	ts.Session = s
	return ts
}

type receiveReturn struct {
	res ReceiveResult
	err error
}

// startReceive opens a window in the background and waits until it's
// recording.
func (ts *testSession) startReceive(ctx context.Context, d time.Duration) <-chan receiveReturn {
	ch := make(chan receiveReturn, 1)
	go func() {
		res, err := ts.StartReceive(ctx, d)
		ch <- receiveReturn{res: res, err: err}
	}()
	require.Eventually(ts.t, func() bool {
		return ts.Mode() == Receiving && ts.Accumulator().IsOpen()
	}, time.Second, time.Millisecond)
	return ch
}

// finish advances the clock until the window closes.
func (ts *testSession) finish(ch <-chan receiveReturn, step time.Duration) receiveReturn {
	var ret receiveReturn
	require.Eventually(ts.t, func() bool {
		ts.clock.Add(step)
		select {
		case ret = <-ch:
			return true
		default:
			return false
		}
	}, time.Second, time.Millisecond)
	return ret
}

func TestNewSessionRejectsBadTiming(t *testing.T) {
	timing := pdm.DefaultTiming
	timing.Low1 = 0
	_, err := NewSession(Board{}, &testOutbox{}, &testInbox{}, WithTiming(timing))
	require.Error(t, err)
	_, ok := err.(*pdm.ConfigurationError)
	require.True(t, ok)
}

func TestReceiveZeroDuration(t *testing.T) {
	ts := newTestSession(t)
	res, err := ts.StartReceive(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, NoDataReceived, res.Outcome)
	require.Empty(t, res.Text)
	require.Empty(t, ts.inbox.text)
	require.Equal(t, Idle, ts.Mode())
	require.NotEmpty(t, res.ID)
}

func TestReceiveRequiresAttach(t *testing.T) {
	ts := newTestSession(t)
	require.NoError(t, ts.Detach())
	_, err := ts.StartReceive(context.Background(), 0)
	require.Equal(t, ErrNotAttached, err)
}

func TestReceiveText(t *testing.T) {
	testCases := []struct {
		name     string
		send     string
		extra    string
		expect   string
		trailing int
	}{
		{name: "Hi", send: "Hi", expect: "Hi"},
		{name: "twenty bits", send: "Hi", extra: "1011", expect: "Hi", trailing: 4},
		{name: "partial only", extra: "101", expect: "", trailing: 3},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestSession(t)
			ch := ts.startReceive(context.Background(), 5*time.Second)
			ts.detector.send(ts.Timing(), []byte(tc.send))
			for _, s := range pdm.ParseBits(tc.extra) {
				high, _ := ts.Timing().Encode(s)
				ts.detector.pulse(high)
			}
			ret := ts.finish(ch, time.Second)
			require.NoError(t, ret.err)
			require.Equal(t, OK, ret.res.Outcome)
			require.Equal(t, tc.expect, ret.res.Text)
			require.Equal(t, tc.trailing, ret.res.Trailing)
			require.Equal(t, len(tc.send)*8+len(tc.extra), ret.res.Bits)
			require.Equal(t, []string{tc.expect}, ts.inbox.text)
			require.Zero(t, ts.Accumulator().Len())
			require.Equal(t, Idle, ts.Mode())
			require.Contains(t, ts.journal.list(), "collect")
		})
	}
}

func TestReceiveLastsDuration(t *testing.T) {
	ts := newTestSession(t)
	ch := ts.startReceive(context.Background(), 5*time.Second)
	ts.clock.Add(4 * time.Second)
	select {
	case <-ch:
		t.Fatal("receive finished early")
	case <-time.After(10 * time.Millisecond):
	}
	ret := ts.finish(ch, time.Second)
	require.NoError(t, ret.err)
	require.Equal(t, NoDataReceived, ret.res.Outcome)
	require.True(t, ret.res.Duration >= 5*time.Second)
}

func TestReceiveNoBleedThrough(t *testing.T) {
	ts := newTestSession(t)

	// Noise before any session is never recorded.
	ts.detector.pulse(4 * time.Millisecond)
	require.Zero(t, ts.Accumulator().Len())

	ctx, cancel := context.WithCancel(context.Background())
	ch := ts.startReceive(ctx, 5*time.Second)
	ts.detector.send(ts.Timing(), []byte("X"))
	cancel()
	ret := <-ch
	require.Equal(t, context.Canceled, ret.err)
	require.Equal(t, 8, ts.Accumulator().Len())
	require.Empty(t, ts.inbox.text)
	require.Equal(t, Idle, ts.Mode())

	ch = ts.startReceive(context.Background(), 5*time.Second)
	require.Zero(t, ts.Accumulator().Len())
	ts.detector.send(ts.Timing(), []byte("Hi"))
	ret = ts.finish(ch, time.Second)
	require.NoError(t, ret.err)
	require.Equal(t, 8, ret.res.Stale)
	require.Equal(t, "Hi", ret.res.Text)
	require.Equal(t, []string{"Hi"}, ts.inbox.text)
}

func TestReceiveInProgress(t *testing.T) {
	ts := newTestSession(t)
	ch := ts.startReceive(context.Background(), 5*time.Second)
	_, err := ts.StartReceive(context.Background(), 0)
	require.Equal(t, ErrReceiveInProgress, err)
	ret := ts.finish(ch, time.Second)
	require.NoError(t, ret.err)
}

func TestReceiveOverflow(t *testing.T) {
	ts := newTestSession(t, WithCapacity(8))
	ch := ts.startReceive(context.Background(), time.Second)
	ts.detector.send(ts.Timing(), []byte("Hi"))
	ret := ts.finish(ch, time.Second)
	require.NoError(t, ret.err)
	require.Equal(t, "H", ret.res.Text)
	require.Equal(t, 8, ret.res.Dropped)
}

func TestReceiveInboxFull(t *testing.T) {
	ts := newTestSession(t)
	ts.inbox.err = errBeamFault
	ch := ts.startReceive(context.Background(), time.Second)
	ts.detector.send(ts.Timing(), []byte("Hi"))
	ret := ts.finish(ch, time.Second)
	require.NoError(t, ret.err)
	require.True(t, ret.res.Truncated)
	require.Equal(t, OK, ret.res.Outcome)
}

func TestReceiveIndicator(t *testing.T) {
	ts := newTestSession(t)
	ts.detector.send(ts.Timing(), []byte{0xa5})
	require.Equal(t, []Level{High, Low, High, Low, Low, High, Low, High}, ts.led.levels)
}

func TestTransmitOutbox(t *testing.T) {
	ts := newTestSession(t)
	ts.outbox.data = []byte("Hello")

	outcome, sent, err := ts.TransmitOutbox(0)
	require.NoError(t, err)
	require.Equal(t, NothingToTransmit, outcome)
	require.Zero(t, sent)
	require.Empty(t, ts.emitter.calls)

	outcome, sent, err = ts.TransmitOutbox(FullLength)
	require.NoError(t, err)
	require.Equal(t, OK, outcome)
	require.Equal(t, 5, sent)

	outcome, sent, err = ts.TransmitOutbox(2)
	require.NoError(t, err)
	require.Equal(t, OK, outcome)
	require.Equal(t, 2, sent)
	require.Equal(t, [][]byte{[]byte("Hello"), []byte("He")}, ts.emitter.calls)

	_, sent, err = ts.TransmitOutbox(6)
	require.Error(t, err)
	require.IsType(t, &RangeError{}, err)
	require.Zero(t, sent)
	require.Len(t, ts.emitter.calls, 2)

	stats := ts.Stats()
	require.Equal(t, uint64(2), stats.Transmits)
	require.Equal(t, uint64(7), stats.BytesSent)
}

func TestTransmitEmptyOutbox(t *testing.T) {
	ts := newTestSession(t)
	outcome, sent, err := ts.TransmitOutbox(FullLength)
	require.NoError(t, err)
	require.Equal(t, NothingToTransmit, outcome)
	require.Zero(t, sent)
	require.Empty(t, ts.emitter.calls)
}

func TestTransmitFailureDuringSession(t *testing.T) {
	ts := newTestSession(t)
	ts.outbox.data = []byte("Hi")
	ts.emitter.err = errBeamFault
	_, sent, err := ts.TransmitOutbox(FullLength)
	require.Equal(t, errBeamFault, err)
	require.Zero(t, sent)
	require.Equal(t, Low, ts.emitter.level)
	require.Equal(t, Idle, ts.Mode())
	require.Zero(t, ts.Stats().Transmits)
}

func TestTransmitWhileReceiving(t *testing.T) {
	ts := newTestSession(t)
	ts.outbox.data = []byte("Hi")
	var modes []Mode
	ts.emitter.onBitstream = func(data []byte) {
		modes = append(modes, ts.Mode())
		ts.detector.send(ts.Timing(), data)
	}

	ch := ts.startReceive(context.Background(), 5*time.Second)
	outcome, _, err := ts.TransmitOutbox(FullLength)
	require.NoError(t, err)
	require.Equal(t, OK, outcome)
	require.Equal(t, []Mode{Transmitting}, modes)
	require.Equal(t, Receiving, ts.Mode())

	ret := ts.finish(ch, time.Second)
	require.NoError(t, ret.err)
	require.Equal(t, "Hi", ret.res.Text)
}

func TestTransmitInProgress(t *testing.T) {
	percent := debug.SetGCPercent(100)
	defer debug.SetGCPercent(percent)

	ts := newTestSession(t, WithReclaimer(RuntimeReclaimer{}))
	ts.outbox.data = []byte("Hello")
	entered, release := make(chan struct{}), make(chan struct{})
	ts.emitter.onBitstream = func([]byte) {
		close(entered)
		<-release
	}

	type transmitReturn struct {
		outcome Outcome
		sent    int
		err     error
	}
	ch := make(chan transmitReturn, 1)
	go func() {
		outcome, sent, err := ts.TransmitOutbox(FullLength)
		ch <- transmitReturn{outcome: outcome, sent: sent, err: err}
	}()
	<-entered
	require.Equal(t, Transmitting, ts.Mode())
	require.Equal(t, -1, gcPercent())

	// The outbox changes while the first transmit is on the air.
	ts.outbox.data = []byte("Hi")
	_, sent, err := ts.TransmitOutbox(FullLength)
	require.Equal(t, ErrTransmitInProgress, err)
	require.Zero(t, sent)
	require.Equal(t, Transmitting, ts.Mode())

	close(release)
	ret := <-ch
	require.NoError(t, ret.err)
	require.Equal(t, OK, ret.outcome)
	require.Equal(t, 5, ret.sent)
	require.Equal(t, [][]byte{[]byte("Hello")}, ts.emitter.calls)
	require.Equal(t, []string{"bitstream", "laser:Low"}, ts.journal.list())
	require.Equal(t, Idle, ts.Mode())
	require.Equal(t, 100, gcPercent())

	ts.emitter.onBitstream = nil
	_, sent, err = ts.TransmitOutbox(FullLength)
	require.NoError(t, err)
	require.Equal(t, 2, sent)
	require.Equal(t, 100, gcPercent())
	require.Equal(t, uint64(2), ts.Stats().Transmits)
}
