package fourier

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInterpolateSine_NoClicks(t *testing.T) {
	freq := 440.0
	sampleRate := 44100.0

	before := make([]float64, 2048)
	for i := range before {
		before[i] = math.Sin(2 * math.Pi * freq * float64(i) / sampleRate)
	}

	gapLen := 441 // 10ms gap

	after := make([]float64, 2048)
	for i := range after {
		after[i] = math.Sin(2 * math.Pi * freq * float64(i+len(before)+gapLen) / sampleRate)
	}

	interpolated := New().Interpolate(before, after, gapLen)
	require.Equal(t, gapLen, len(interpolated))

	// Typical sample-to-sample difference in the signal
	maxDiff := 0.0
	for i := 1; i < len(before); i++ {
		d := math.Abs(before[i] - before[i-1])
		if d > maxDiff {
			maxDiff = d
		}
	}

	d1 := math.Abs(interpolated[0] - before[len(before)-1])
	require.LessOrEqual(t, d1, maxDiff*1.5, "value jump too large at the left boundary")

	d2 := math.Abs(after[0] - interpolated[len(interpolated)-1])
	require.LessOrEqual(t, d2, maxDiff*1.5, "value jump too large at the right boundary")

	for i := 1; i < len(interpolated); i++ {
		d := math.Abs(interpolated[i] - interpolated[i-1])
		require.LessOrEqual(t, d, maxDiff*3.0, "click detected within the interpolated part at index %d", i)
	}
}

func TestInterpolate_ShortContext(t *testing.T) {
	out := New().Interpolate([]float64{0.5}, []float64{0.5}, 10)
	require.Equal(t, make([]float64, 10), out)
}

func TestInterpolate_ZeroGap(t *testing.T) {
	require.Empty(t, New().Interpolate(make([]float64, 128), make([]float64, 128), 0))
}
