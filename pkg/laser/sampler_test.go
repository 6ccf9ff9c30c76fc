package laser

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/laserlink/pkg/pdm"
)

func TestAccumulatorGate(t *testing.T) {
	acc := NewAccumulator(4, nil)
	require.Equal(t, 4, acc.Cap())
	require.False(t, acc.Record(pdm.One))
	require.Zero(t, acc.Len())

	require.Zero(t, acc.Open())
	require.True(t, acc.IsOpen())
	for _, s := range []pdm.Symbol{pdm.One, pdm.Zero, pdm.One, pdm.One} {
		require.True(t, acc.Record(s))
	}
	require.False(t, acc.Record(pdm.Zero))
	acc.Close()
	require.False(t, acc.Record(pdm.Zero))
	require.Equal(t, 4, acc.Len())

	bits, dropped := acc.Drain()
	require.Equal(t, "1011", pdm.FormatBits(bits))
	require.Equal(t, 1, dropped)
	require.Zero(t, acc.Len())
	bits, dropped = acc.Drain()
	require.Nil(t, bits)
	require.Zero(t, dropped)
}

func TestAccumulatorOpenDiscardsStale(t *testing.T) {
	acc := NewAccumulator(16, nil)
	acc.Open()
	acc.Record(pdm.One)
	acc.Record(pdm.Zero)
	acc.Close()
	require.Equal(t, 2, acc.Open())
	require.Zero(t, acc.Len())
}

func TestAccumulatorConcurrentRecord(t *testing.T) {
	acc := NewAccumulator(1000, nil)
	acc.Open()
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for n := 0; n < 300; n++ {
				acc.Record(pdm.One)
			}
		}()
	}
	wg.Wait()
	acc.Close()
	bits, dropped := acc.Drain()
	require.Len(t, bits, 1000)
	require.Equal(t, 200, dropped)
}

func TestSamplerHandleEdge(t *testing.T) {
	det := &testDetector{}
	led := &testPin{}
	acc := NewAccumulator(64, nil)
	s := NewSampler(det, pdm.DefaultTiming, acc, led)
	require.NoError(t, det.OnFallingEdge(s.HandleEdge))

	// Not receiving: measured and shown, not recorded.
	det.pulse(4 * time.Millisecond)
	require.Zero(t, acc.Len())
	require.Equal(t, []Level{High}, led.levels)

	acc.Open()
	det.pulse(1 * time.Millisecond)
	det.pulse(4 * time.Millisecond)
	det.pulse(10 * time.Millisecond)
	acc.Close()

	bits, _ := acc.Drain()
	require.Equal(t, "010", pdm.FormatBits(bits))
	require.Equal(t, []Level{High, Low, High, Low}, led.levels)
	require.Equal(t, SamplerStats{Edges: 4, Timeouts: 1, Recorded: 3, Discarded: 1}, s.Stats())
	for _, w := range det.windows {
		require.Equal(t, pdm.DefaultTiming.MaxPulse(), w)
	}
}

func TestSamplerNilIndicator(t *testing.T) {
	det := &testDetector{}
	acc := NewAccumulator(8, nil)
	s := NewSampler(det, pdm.DefaultTiming, acc, nil)
	require.NoError(t, det.OnFallingEdge(s.HandleEdge))
	acc.Open()
	det.pulse(time.Millisecond)
	require.Equal(t, 1, acc.Len())
}
