package noisereduction

import (
	"context"
	"fmt"

	"github.com/xaionaro-go/voicenote/pkg/audio"
)

type Dummy struct {
	SampleRateValue audio.SampleRate
}

var _ Reducer = (*Dummy)(nil)

func NewDummy(sampleRate audio.SampleRate) *Dummy {
	return &Dummy{
		SampleRateValue: sampleRate,
	}
}

func (r *Dummy) Close() error {
	return nil
}

func (r *Dummy) SampleRate() audio.SampleRate {
	return r.SampleRateValue
}

// ReduceNoise returns the voice signal unchanged.
func (r *Dummy) ReduceNoise(
	ctx context.Context,
	voice []float64,
	noise []float64,
	stationary bool,
) ([]float64, error) {
	if len(voice) == 0 {
		return nil, fmt.Errorf("no voice samples: %w", ErrEmptyInput)
	}
	result := make([]float64, len(voice))
	copy(result, voice)
	return result, nil
}
