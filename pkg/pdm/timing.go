package pdm

import "time"

// Symbol is a binary symbol carried by one pulse.
type Symbol uint8

// Symbols
const (
	Zero Symbol = 0
	One  Symbol = 1
)

// String implements fmt.Stringer.
func (s Symbol) String() string {
	if s == Zero {
		return "0"
	}
	return "1"
}

// TimedOut is the duration reported by a pulse measurement when the
// line doesn't change within the window.
const TimedOut time.Duration = -time.Microsecond

// Timing is the pulse shape table: the high and low durations for
// symbol 0 followed by those for symbol 1.
type Timing struct {
	High0 time.Duration
	Low0  time.Duration
	High1 time.Duration
	Low1  time.Duration
}

// DefaultTiming averages 5ms per bit, about 200 bit/s.
var DefaultTiming = Timing{
	High0: 1 * time.Millisecond,
	Low0:  3 * time.Millisecond,
	High1: 4 * time.Millisecond,
	Low1:  2 * time.Millisecond,
}

// Validate checks every duration is positive and both symbols are
// distinguishable by their high pulse.
func (t Timing) Validate() error {
	fields := []struct {
		name string
		val  time.Duration
	}{
		{"high0", t.High0},
		{"low0", t.Low0},
		{"high1", t.High1},
		{"low1", t.Low1},
	}
	for _, f := range fields {
		if f.val <= 0 {
			return &ConfigurationError{Field: f.name, Value: f.val, Reason: "must be positive"}
		}
	}
	if t.High0 == t.High1 {
		return &ConfigurationError{Field: "high1", Value: t.High1, Reason: "must differ from high0"}
	}
	return nil
}

// Encode returns the pulse shape of a symbol.
func (t Timing) Encode(s Symbol) (high, low time.Duration) {
	if s == Zero {
		return t.High0, t.Low0
	}
	return t.High1, t.Low1
}

// References returns the nominal measured pulse widths of each symbol.
func (t Timing) References() (ref0, ref1 time.Duration) {
	return t.High0, t.High1
}

// BitPeriod is the full airtime of one symbol.
func (t Timing) BitPeriod(s Symbol) time.Duration {
	high, low := t.Encode(s)
	return high + low
}

// MaxPulse is the longest single-pulse window, used to bound
// measurements.
func (t Timing) MaxPulse() time.Duration {
	p0, p1 := t.BitPeriod(Zero), t.BitPeriod(One)
	if p0 > p1 {
		return p0
	}
	return p1
}

// Airtime is the worst-case time to send n bytes.
func (t Timing) Airtime(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n*8) * t.MaxPulse()
}

// Classify maps a measured duration to the symbol with the nearer
// reference width. Zero wins only when strictly nearer, so a duration
// exactly between the references is One. TimedOut goes through the
// same rule.
func (t Timing) Classify(d time.Duration) Symbol {
	ref0, ref1 := t.References()
	if absDuration(d-ref0) < absDuration(d-ref1) {
		return Zero
	}
	return One
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
