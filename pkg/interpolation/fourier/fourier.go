package fourier

import (
	"math"

	"github.com/brettbuddin/fourier"
	"github.com/xaionaro-go/voicenote/pkg/interpolation"
)

const (
	// AnalysisWindowSize caps the amount of samples fed into the FFT on
	// each side of the gap.
	AnalysisWindowSize = 1024

	// MinContextSamples is the minimum context on a side of the gap for a
	// spectral projection to make sense; with less, that side contributes
	// silence.
	MinContextSamples = 4

	// PeakThresholdFactor: a spectral peak must exceed the average bin
	// magnitude by this factor to take part in the synthesis.
	PeakThresholdFactor = 2.5
)

// Interpolator conceals gaps by projecting the dominant tonal components of
// the surrounding signal into the gap.
//
// Both sides of the gap are analyzed with a forward FFT; bins that stand out
// against the average magnitude (and are local maxima) are kept, the rest is
// treated as noise and discarded. The kept components are extended into the
// gap as phase-continuous sine waves, forward from the left context and
// backward from the right one. The two projections are blended with a cubic
// cross-fade and a linear trend correction pins the boundary samples to the
// real signal, so the stitch points stay click-free.
type Interpolator struct{}

var _ interpolation.Interpolator = (*Interpolator)(nil)

func New() *Interpolator {
	return &Interpolator{}
}

func (i *Interpolator) Interpolate(before, after []float64, gapLen int) []float64 {
	if gapLen <= 0 {
		return nil
	}
	if len(before) < MinContextSamples || len(after) < MinContextSamples {
		return make([]float64, gapLen)
	}

	n := min(len(before), len(after), AnalysisWindowSize)
	n = floorPowerOfTwo(n)

	windowBefore := before[len(before)-n:]
	windowAfter := after[:n]

	forward := projectTonalComponents(windowBefore, gapLen, true)
	backward := projectTonalComponents(windowAfter, gapLen, false)

	vStart := windowBefore[len(windowBefore)-1]
	vEnd := windowAfter[0]
	startDiff := forward[0] - vStart
	endDiff := backward[gapLen-1] - vEnd

	result := make([]float64, gapLen)
	for idx := range result {
		t := float64(idx+1) / float64(gapLen+1)
		w := t * t * (3 - 2*t) // cubic cross-fade

		val := (1-w)*forward[idx] + w*backward[idx]
		val -= (1-w)*startDiff + w*endDiff
		result[idx] = val
	}
	return result
}

func floorPowerOfTwo(n int) int {
	p := 1
	for p*2 <= n {
		p *= 2
	}
	return p
}

// projectTonalComponents extends the significant spectral peaks of samples
// into an adjacent gap of gapLen samples. With forward==true the gap lies
// just after the samples, otherwise just before them.
func projectTonalComponents(samples []float64, gapLen int, forward bool) []float64 {
	n := len(samples)
	coeffs := make([]complex128, n)
	for idx, v := range samples {
		coeffs[idx] = complex(v, 0)
	}
	if err := fourier.Forward(coeffs); err != nil {
		return make([]float64, gapLen)
	}

	magnitudes := make([]float64, n)
	var avg float64
	for idx, c := range coeffs {
		magnitudes[idx] = math.Hypot(real(c), imag(c))
		avg += magnitudes[idx]
	}
	threshold := avg / float64(n) * PeakThresholdFactor

	type peak struct {
		bin   int
		coeff complex128
	}
	var peaks []peak
	for bin := 1; bin < n/2; bin++ {
		if magnitudes[bin] > threshold &&
			magnitudes[bin] > magnitudes[bin-1] &&
			magnitudes[bin] > magnitudes[bin+1] {
			peaks = append(peaks, peak{bin, coeffs[bin]})
		}
	}

	result := make([]float64, gapLen)
	invN := 1.0 / float64(n)
	for idx := range result {
		var t float64
		if forward {
			t = float64(n + idx)
		} else {
			t = float64(idx - gapLen)
		}

		var sum float64
		for _, p := range peaks {
			phase := 2*math.Pi*float64(p.bin)*t*invN + math.Atan2(imag(p.coeff), real(p.coeff))
			// one-sided spectrum, so the magnitude counts twice
			sum += 2 * magnitudes[p.bin] * invN * math.Cos(phase)
		}
		sum += real(coeffs[0]) * invN // DC
		result[idx] = sum
	}
	return result
}
