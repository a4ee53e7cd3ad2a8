// Package spectralgate implements noise reduction by spectral gating: the
// reference noise clip yields a per-bin magnitude threshold, and every
// STFT bin of the voice signal falling below its threshold is zeroed
// before resynthesis.
package spectralgate

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/window"

	"github.com/xaionaro-go/voicenote/pkg/audio"
	"github.com/xaionaro-go/voicenote/pkg/noisereduction"
)

const (
	fftSize = 1024
	hopSize = 256

	// sensitivity scales the noise magnitude deviation when deriving the
	// per-bin threshold: threshold = mean + sensitivity*stddev.
	sensitivity = 1.5

	// overlapNorm is the gain of a Hann analysis+synthesis window pair
	// overlap-added at fftSize/hopSize overlap.
	overlapNorm = float64(fftSize) / float64(hopSize) / 2

	// noiseUpdateRate is the per-frame exponential update rate of the
	// noise magnitude estimate in non-stationary mode.
	noiseUpdateRate = 0.05
)

type SpectralGate struct {
	sampleRate audio.SampleRate
	window     []float64
}

var _ noisereduction.Reducer = (*SpectralGate)(nil)

func New(sampleRate audio.SampleRate) *SpectralGate {
	coeffs := make([]float64, fftSize)
	for idx := range coeffs {
		coeffs[idx] = 1
	}
	window.Hann(coeffs)
	return &SpectralGate{
		sampleRate: sampleRate,
		window:     coeffs,
	}
}

func (sg *SpectralGate) Close() error {
	return nil
}

func (sg *SpectralGate) SampleRate() audio.SampleRate {
	return sg.sampleRate
}

// ReduceNoise gates the voice signal against the noise clip's spectral
// profile. In stationary mode the threshold is fixed from the noise clip;
// otherwise it tracks slow changes of the background via an exponentially
// smoothed per-bin magnitude estimate.
func (sg *SpectralGate) ReduceNoise(
	ctx context.Context,
	voice []float64,
	noise []float64,
	stationary bool,
) (_ []float64, _err error) {
	logger.Tracef(ctx, "ReduceNoise(stationary: %v)", stationary)
	defer func() { logger.Tracef(ctx, "/ReduceNoise(stationary: %v): %v", stationary, _err) }()

	if len(voice) == 0 {
		return nil, fmt.Errorf("no voice samples: %w", noisereduction.ErrEmptyInput)
	}
	if len(noise) == 0 {
		return nil, fmt.Errorf("no noise samples: %w", noisereduction.ErrEmptyInput)
	}

	noiseMean, noiseStdDev := sg.noiseStatistics(noise)
	threshold := make([]float64, fftSize)
	for idx := range threshold {
		threshold[idx] = noiseMean[idx] + sensitivity*noiseStdDev[idx]
	}

	padded, frameCount := padForAnalysis(voice)
	result := make([]float64, len(padded))

	noiseEstimate := noiseMean
	if !stationary {
		noiseEstimate = make([]float64, fftSize)
		copy(noiseEstimate, noiseMean)
	}

	for frameIdx := 0; frameIdx < frameCount; frameIdx++ {
		offset := frameIdx * hopSize
		spectrum := fft.FFTReal(sg.windowed(padded[offset : offset+fftSize]))

		if !stationary {
			for binIdx := range spectrum {
				magnitude := cmplx.Abs(spectrum[binIdx])
				if magnitude >= threshold[binIdx] {
					continue
				}
				noiseEstimate[binIdx] += noiseUpdateRate * (magnitude - noiseEstimate[binIdx])
				threshold[binIdx] = noiseEstimate[binIdx] + sensitivity*noiseStdDev[binIdx]
			}
		}

		for binIdx := range spectrum {
			if cmplx.Abs(spectrum[binIdx]) <= threshold[binIdx] {
				spectrum[binIdx] = 0
			}
		}

		// fft.IFFT already divides by the transform length.
		frame := fft.IFFT(spectrum)
		for idx := range frame {
			result[offset+idx] += real(frame[idx]) * sg.window[idx]
		}
	}

	result = result[:len(voice)]
	for idx := range result {
		result[idx] /= overlapNorm
	}
	return result, nil
}

// noiseStatistics returns the per-bin mean and standard deviation of the
// STFT magnitudes of the noise clip.
func (sg *SpectralGate) noiseStatistics(noise []float64) (mean, stdDev []float64) {
	padded, frameCount := padForAnalysis(noise)

	sum := make([]float64, fftSize)
	sumSq := make([]float64, fftSize)
	for frameIdx := 0; frameIdx < frameCount; frameIdx++ {
		offset := frameIdx * hopSize
		spectrum := fft.FFTReal(sg.windowed(padded[offset : offset+fftSize]))
		for binIdx := range spectrum {
			magnitude := cmplx.Abs(spectrum[binIdx])
			sum[binIdx] += magnitude
			sumSq[binIdx] += magnitude * magnitude
		}
	}

	mean = make([]float64, fftSize)
	stdDev = make([]float64, fftSize)
	for binIdx := range mean {
		mean[binIdx] = sum[binIdx] / float64(frameCount)
		variance := sumSq[binIdx]/float64(frameCount) - mean[binIdx]*mean[binIdx]
		if variance > 0 {
			stdDev[binIdx] = math.Sqrt(variance)
		}
	}
	return mean, stdDev
}

func (sg *SpectralGate) windowed(frame []float64) []float64 {
	result := make([]float64, fftSize)
	for idx := range result {
		result[idx] = frame[idx] * sg.window[idx]
	}
	return result
}

// padForAnalysis zero-pads the signal so that a whole amount of
// hop-spaced frames covers every sample.
func padForAnalysis(signal []float64) ([]float64, int) {
	frameCount := 1
	if len(signal) > fftSize {
		frameCount += (len(signal) - fftSize + hopSize - 1) / hopSize
	}
	paddedLen := fftSize + (frameCount-1)*hopSize
	padded := make([]float64, paddedLen)
	copy(padded, signal)
	return padded, frameCount
}
