package capture

import (
	"context"
	"encoding/binary"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/voicenote/pkg/audio"
	"github.com/xaionaro-go/voicenote/pkg/interpolation"
)

type recorderFake struct {
	chunks [][]float64

	wrote chan struct{}
}

func newRecorderFake(chunks ...[]float64) *recorderFake {
	return &recorderFake{
		chunks: chunks,
		wrote:  make(chan struct{}),
	}
}

func (r *recorderFake) RecordPCM(
	ctx context.Context,
	sampleRate audio.SampleRate,
	channels audio.Channel,
	format audio.PCMFormat,
	writer io.Writer,
) (audio.RecordStream, error) {
	ctx, cancelFn := context.WithCancel(ctx)
	stream := &recordStreamFake{cancelFn: cancelFn}
	stream.wg.Add(1)
	go func() {
		defer stream.wg.Done()
		for _, chunk := range r.chunks {
			select {
			case <-ctx.Done():
				return
			default:
			}
			if _, err := writer.Write(samplesToF32LE(chunk)); err != nil {
				return
			}
		}
		close(r.wrote)
	}()
	return stream, nil
}

type recordStreamFake struct {
	cancelFn context.CancelFunc
	wg       sync.WaitGroup
}

func (s *recordStreamFake) Close() error {
	s.cancelFn()
	s.wg.Wait()
	return nil
}

func samplesToF32LE(samples []float64) []byte {
	b := make([]byte, 4*len(samples))
	for idx, sample := range samples {
		binary.LittleEndian.PutUint32(b[idx*4:], math.Float32bits(float32(sample)))
	}
	return b
}

func TestCaptureUntilStop(t *testing.T) {
	ctx := context.Background()

	t.Run("captured", func(t *testing.T) {
		recorder := newRecorderFake(
			[]float64{0.25, -0.5},
			[]float64{0.75, -1},
		)
		capturer := NewCapturer(recorder, 44100)

		stop := make(chan struct{})
		go func() {
			<-recorder.wrote
			close(stop)
		}()

		result, err := capturer.CaptureUntilStop(ctx, stop)
		require.NoError(t, err)
		require.Equal(t, OutcomeCaptured, result.Outcome)
		require.Equal(t, []float64{0.25, -0.5, 0.75, -1}, result.Samples)
	})

	t.Run("empty", func(t *testing.T) {
		recorder := newRecorderFake()
		capturer := NewCapturer(recorder, 44100)

		stop := make(chan struct{})
		go func() {
			<-recorder.wrote
			close(stop)
		}()

		result, err := capturer.CaptureUntilStop(ctx, stop)
		require.NoError(t, err)
		require.Equal(t, OutcomeEmpty, result.Outcome)
		require.Empty(t, result.Samples)
	})

	t.Run("cancelled", func(t *testing.T) {
		recorder := newRecorderFake([]float64{0.25, -0.5})
		capturer := NewCapturer(recorder, 44100)

		cancelledCtx, cancelFn := context.WithCancel(ctx)
		go func() {
			<-recorder.wrote
			cancelFn()
		}()

		result, err := capturer.CaptureUntilStop(cancelledCtx, nil)
		require.NoError(t, err)
		require.Equal(t, OutcomeCancelled, result.Outcome)
		require.Empty(t, result.Samples)
	})

	t.Run("overflow_is_concealed", func(t *testing.T) {
		recorder := newRecorderFake(
			[]float64{0.25, -0.5},
			[]float64{0.75, -1},
			[]float64{0.5, 0.5},
		)
		capturer := NewCapturer(recorder, 44100)
		capturer.QueueCapacity = 1
		capturer.Interpolator = interpolation.Dummy{}

		stop := make(chan struct{})
		go func() {
			<-recorder.wrote
			close(stop)
		}()

		result, err := capturer.CaptureUntilStop(ctx, stop)
		require.NoError(t, err)
		require.Equal(t, OutcomeCaptured, result.Outcome)
		require.Equal(t, []float64{0.25, -0.5, 0, 0, 0, 0}, result.Samples)
	})
}

func TestCaptureDuration(t *testing.T) {
	ctx := context.Background()

	recorder := newRecorderFake(
		[]float64{0, 0.1, 0.2, 0.3},
		[]float64{0.4, 0.5, 0.6, 0.7},
		[]float64{0.8, 0.9, 1, 1},
	)
	capturer := NewCapturer(recorder, 10)

	samples, err := capturer.CaptureDuration(ctx, time.Second)
	require.NoError(t, err)
	require.Len(t, samples, 10)
	for idx, sample := range samples {
		require.InDelta(t, float64(idx)/10, sample, 1e-6, "sample %d", idx)
	}
}

func TestCaptureDurationCancelled(t *testing.T) {
	ctx, cancelFn := context.WithCancel(context.Background())

	recorder := newRecorderFake([]float64{0.25})
	capturer := NewCapturer(recorder, 44100)

	go func() {
		<-recorder.wrote
		cancelFn()
	}()

	_, err := capturer.CaptureDuration(ctx, time.Second)
	require.ErrorIs(t, err, context.Canceled)
}
