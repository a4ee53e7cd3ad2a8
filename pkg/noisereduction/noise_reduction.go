package noisereduction

import (
	"context"
	"errors"
	"io"

	"github.com/xaionaro-go/voicenote/pkg/audio"
)

// ErrEmptyInput is returned (wrapped) when a signal required for the
// reduction contains no samples.
var ErrEmptyInput = errors.New("the input signal is empty")

// Reducer denoises a complete utterance at once, given a reference clip
// of background noise. The output always has the same length as the
// voice input.
type Reducer interface {
	io.Closer

	SampleRate() audio.SampleRate

	ReduceNoise(
		ctx context.Context,
		voice []float64,
		noise []float64,
		stationary bool,
	) ([]float64, error)
}
