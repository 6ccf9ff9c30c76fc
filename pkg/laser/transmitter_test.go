package laser

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/laserlink/pkg/pdm"
)

func newTestTransmitter() (*Transmitter, *testEmitter, *testJournal) {
	journal := &testJournal{}
	emitter := &testEmitter{journal: journal}
	tx := NewTransmitter(emitter, pdm.DefaultTiming, &testReclaimer{journal: journal})
	return tx, emitter, journal
}

func TestTransmitSequence(t *testing.T) {
	tx, emitter, journal := newTestTransmitter()
	buf := []byte("xHiy")
	outcome, err := tx.Transmit(buf, 1, 3)
	require.NoError(t, err)
	require.Equal(t, OK, outcome)
	require.Equal(t, [][]byte{[]byte("Hi")}, emitter.calls)
	require.Equal(t, []string{"suspend", "bitstream", "resume", "laser:Low"}, journal.list())
	require.Equal(t, Low, emitter.level)
	require.Equal(t, []byte("xHiy"), buf)
}

func TestTransmitEmptyRange(t *testing.T) {
	tx, emitter, journal := newTestTransmitter()
	buf := []byte("Hi")
	for _, pos := range []int{0, 1, 2} {
		outcome, err := tx.Transmit(buf, pos, pos)
		require.NoError(t, err)
		require.Equal(t, NothingToTransmit, outcome)
	}
	require.Empty(t, emitter.calls)
	require.Empty(t, journal.list())
}

func TestTransmitRangeError(t *testing.T) {
	testCases := []struct {
		name       string
		start, end int
	}{
		{name: "negative start", start: -1, end: 1},
		{name: "reversed", start: 2, end: 1},
		{name: "past end", start: 0, end: 3},
		{name: "both past end", start: 3, end: 4},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tx, emitter, journal := newTestTransmitter()
			_, err := tx.Transmit([]byte("Hi"), tc.start, tc.end)
			require.Error(t, err)
			rangeErr, ok := err.(*RangeError)
			require.True(t, ok)
			require.Equal(t, RangeError{Start: tc.start, End: tc.end, Len: 2}, *rangeErr)
			require.Empty(t, emitter.calls)
			require.Empty(t, journal.list())
		})
	}
}

func TestTransmitFailureTurnsLaserOff(t *testing.T) {
	tx, emitter, journal := newTestTransmitter()
	emitter.err = errBeamFault
	_, err := tx.Transmit([]byte("Hi"), 0, 2)
	require.Equal(t, errBeamFault, err)
	require.Equal(t, Low, emitter.level)
	require.Equal(t, []string{"suspend", "bitstream", "resume", "laser:Low"}, journal.list())
}

func TestTransmitPanicTurnsLaserOff(t *testing.T) {
	tx, emitter, journal := newTestTransmitter()
	emitter.err, emitter.panics = errBeamFault, true
	require.Panics(t, func() {
		tx.Transmit([]byte("Hi"), 0, 2)
	})
	require.Equal(t, Low, emitter.level)
	require.Equal(t, []string{"suspend", "bitstream", "resume", "laser:Low"}, journal.list())
}
