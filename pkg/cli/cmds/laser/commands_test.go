package laser

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	testCases := []struct {
		in   string
		want time.Duration
		err  bool
	}{
		{in: "2000", want: 2 * time.Second},
		{in: "1.5s", want: 1500 * time.Millisecond},
		{in: "250ms", want: 250 * time.Millisecond},
		{in: "-1s", err: true},
		{in: "soon", err: true},
	}
	for _, tc := range testCases {
		t.Run(tc.in, func(t *testing.T) {
			d, err := ParseDuration(tc.in)
			if tc.err {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, d)
		})
	}
}

func TestText(t *testing.T) {
	require.Equal(t, []byte("Hello, laser!"), text([]string{"Hello,", "laser!"}))
	require.Empty(t, text(nil))
}
