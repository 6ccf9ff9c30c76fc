package pdm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestClassifyRoundTrip(t *testing.T) {
	timings := []struct {
		name   string
		timing Timing
	}{
		{name: "default", timing: DefaultTiming},
		{
			name: "fast",
			timing: Timing{
				High0: 300 * time.Microsecond,
				Low0:  700 * time.Microsecond,
				High1: 600 * time.Microsecond,
				Low1:  400 * time.Microsecond,
			},
		},
	}
	for _, tc := range timings {
		t.Run(tc.name, func(t *testing.T) {
			for _, s := range []Symbol{Zero, One} {
				high, _ := tc.timing.Encode(s)
				require.Equal(t, s, tc.timing.Classify(high))
			}
		})
	}
}

func TestClassify(t *testing.T) {
	testCases := []struct {
		name   string
		dur    time.Duration
		expect Symbol
	}{
		{name: "zero", dur: 0, expect: Zero},
		{name: "near zero", dur: 1200 * time.Microsecond, expect: Zero},
		{name: "just below midpoint", dur: 2499 * time.Microsecond, expect: Zero},
		{name: "midpoint", dur: 2500 * time.Microsecond, expect: One},
		{name: "near one", dur: 3900 * time.Microsecond, expect: One},
		{name: "longer than one", dur: 10 * time.Millisecond, expect: One},
		{name: "timed out", dur: TimedOut, expect: Zero},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.expect, DefaultTiming.Classify(tc.dur))
		})
	}
}

func TestClassifyTieIsStable(t *testing.T) {
	ref0, ref1 := DefaultTiming.References()
	mid := (ref0 + ref1) / 2
	first := DefaultTiming.Classify(mid)
	for i := 0; i < 100; i++ {
		require.Equal(t, first, DefaultTiming.Classify(mid))
	}
	require.Equal(t, One, first)
}

func TestTimingValidate(t *testing.T) {
	require.NoError(t, DefaultTiming.Validate())

	testCases := []struct {
		name   string
		modify func(*Timing)
		field  string
	}{
		{name: "zero high0", modify: func(t *Timing) { t.High0 = 0 }, field: "high0"},
		{name: "negative low0", modify: func(t *Timing) { t.Low0 = -time.Millisecond }, field: "low0"},
		{name: "zero high1", modify: func(t *Timing) { t.High1 = 0 }, field: "high1"},
		{name: "zero low1", modify: func(t *Timing) { t.Low1 = 0 }, field: "low1"},
		{name: "ambiguous", modify: func(t *Timing) { t.High1 = t.High0 }, field: "high1"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			timing := DefaultTiming
			tc.modify(&timing)
			err := timing.Validate()
			require.Error(t, err)
			cfgErr, ok := err.(*ConfigurationError)
			require.True(t, ok)
			require.Equal(t, tc.field, cfgErr.Field)
		})
	}
}

func TestTimingWindows(t *testing.T) {
	require.Equal(t, 6*time.Millisecond, DefaultTiming.MaxPulse())
	require.Equal(t, 4*time.Millisecond, DefaultTiming.BitPeriod(Zero))
	require.Equal(t, 6*time.Millisecond, DefaultTiming.BitPeriod(One))
	require.Equal(t, 96*time.Millisecond, DefaultTiming.Airtime(2))
	require.Zero(t, DefaultTiming.Airtime(0))

	lopsided := Timing{High0: time.Millisecond, Low0: 9 * time.Millisecond, High1: 2 * time.Millisecond, Low1: time.Millisecond}
	require.Equal(t, 10*time.Millisecond, lopsided.MaxPulse())
}
