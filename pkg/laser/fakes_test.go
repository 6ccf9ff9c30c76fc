package laser

import (
	"errors"
	"sync"
	"time"

	"github.com/robotalks/laserlink/pkg/pdm"
)

var errBeamFault = errors.New("beam fault")

type testJournal struct {
	lock    sync.Mutex
	entries []string
}

func (j *testJournal) add(entry string) {
	j.lock.Lock()
	j.entries = append(j.entries, entry)
	j.lock.Unlock()
}

func (j *testJournal) list() []string {
	j.lock.Lock()
	defer j.lock.Unlock()
	return append([]string(nil), j.entries...)
}

type testEmitter struct {
	journal *testJournal
	level   Level
	calls   [][]byte
	err     error
	panics  bool
	// onBitstream runs inside Bitstream, e.g. to feed a detector.
	onBitstream func(data []byte)
}

func (e *testEmitter) Set(l Level) {
	e.level = l
	e.journal.add("laser:" + l.String())
}

func (e *testEmitter) Bitstream(initial Level, timing pdm.Timing, data []byte) error {
	e.journal.add("bitstream")
	e.calls = append(e.calls, append([]byte(nil), data...))
	e.level = High
	if e.onBitstream != nil {
		e.onBitstream(data)
	}
	if e.panics {
		panic(e.err)
	}
	return e.err
}

type testDetector struct {
	lock    sync.Mutex
	handler func()
	pulses  []time.Duration
	windows []time.Duration
}

func (d *testDetector) OnFallingEdge(handler func()) error {
	d.lock.Lock()
	d.handler = handler
	d.lock.Unlock()
	return nil
}

func (d *testDetector) MeasurePulse(level Level, timeout time.Duration) time.Duration {
	d.lock.Lock()
	defer d.lock.Unlock()
	d.windows = append(d.windows, timeout)
	if len(d.pulses) == 0 {
		return pdm.TimedOut
	}
	p := d.pulses[0]
	d.pulses = d.pulses[1:]
	if p > timeout {
		return pdm.TimedOut
	}
	return p
}

// pulse raises one falling edge followed by a Low period of width d.
func (d *testDetector) pulse(width time.Duration) {
	d.lock.Lock()
	d.pulses = append(d.pulses, width)
	h := d.handler
	d.lock.Unlock()
	if h != nil {
		h()
	}
}

// send raises a pulse per bit of data using timing.
func (d *testDetector) send(timing pdm.Timing, data []byte) {
	pdm.EachBit(data, func(s pdm.Symbol) {
		high, _ := timing.Encode(s)
		d.pulse(high)
	})
}

type testPin struct {
	levels []Level
}

func (p *testPin) Set(l Level) {
	p.levels = append(p.levels, l)
}

type testReclaimer struct {
	journal *testJournal
}

func (r *testReclaimer) Suspend() func() {
	r.journal.add("suspend")
	return func() { r.journal.add("resume") }
}

func (r *testReclaimer) Collect() {
	r.journal.add("collect")
}

type testOutbox struct {
	data []byte
}

func (o *testOutbox) Len() int      { return len(o.data) }
func (o *testOutbox) Bytes() []byte { return append([]byte(nil), o.data...) }

type testInbox struct {
	text []string
	err  error
}

func (i *testInbox) AppendText(s string) error {
	i.text = append(i.text, s)
	return i.err
}
