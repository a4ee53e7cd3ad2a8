// Package capture accumulates microphone input into an in-memory sample
// buffer. The record stream feeds a bounded chunk queue, so a slow consumer
// never blocks the audio device; overflow gaps are concealed afterwards.
package capture

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/xaionaro-go/voicenote/pkg/audio"
	"github.com/xaionaro-go/voicenote/pkg/interpolation"
	"github.com/xaionaro-go/voicenote/pkg/interpolation/fourier"
)

const (
	// DefaultQueueCapacity is the amount of device chunks the queue holds
	// before it starts dropping. At the usual 100ms chunk size this is
	// about half a minute of audio.
	DefaultQueueCapacity = 300
)

// Recorder is the subset of audio.Recorder the capturer requires.
type Recorder interface {
	RecordPCM(
		ctx context.Context,
		sampleRate audio.SampleRate,
		channels audio.Channel,
		format audio.PCMFormat,
		writer io.Writer,
	) (audio.RecordStream, error)
}

// Capturer records mono float64 sample buffers from a Recorder.
type Capturer struct {
	Recorder      Recorder
	SampleRate    audio.SampleRate
	QueueCapacity int
	Interpolator  interpolation.Interpolator
}

func NewCapturer(
	recorder Recorder,
	sampleRate audio.SampleRate,
) *Capturer {
	return &Capturer{
		Recorder:      recorder,
		SampleRate:    sampleRate,
		QueueCapacity: DefaultQueueCapacity,
		Interpolator:  fourier.New(),
	}
}

func (c *Capturer) interpolator() interpolation.Interpolator {
	if c.Interpolator != nil {
		return c.Interpolator
	}
	return interpolation.Dummy{}
}

// CaptureUntilStop records until `stop` is closed (or receives a value).
// Cancelling the context aborts the capture and discards whatever was
// accumulated; this is reported as OutcomeCancelled, not as an error.
func (c *Capturer) CaptureUntilStop(
	ctx context.Context,
	stop <-chan struct{},
) (_ Result, _err error) {
	logger.Tracef(ctx, "CaptureUntilStop")
	defer func() { logger.Tracef(ctx, "/CaptureUntilStop: %v", _err) }()

	queue := newChunkQueue(c.QueueCapacity)
	stream, err := c.Recorder.RecordPCM(ctx, c.SampleRate, 1, audio.PCMFormatFloat32LE, queue)
	if err != nil {
		return Result{}, fmt.Errorf("unable to open the record stream: %w", err)
	}

	var cancelled bool
	select {
	case <-ctx.Done():
		cancelled = true
	case <-stop:
	}

	if err := stream.Close(); err != nil {
		logger.Debugf(ctx, "unable to close the record stream: %v", err)
	}

	if cancelled {
		return Result{Outcome: OutcomeCancelled}, nil
	}

	samples := queue.drain(c.interpolator())
	if queue.droppedTotal > 0 {
		logger.Warnf(ctx, "the capture queue overflowed, concealed %d dropped samples", queue.droppedTotal)
	}
	if len(samples) == 0 {
		return Result{Outcome: OutcomeEmpty}, nil
	}
	return Result{Outcome: OutcomeCaptured, Samples: samples}, nil
}

// CaptureDuration records exactly `duration` worth of samples.
func (c *Capturer) CaptureDuration(
	ctx context.Context,
	duration time.Duration,
) (_ []float64, _err error) {
	logger.Tracef(ctx, "CaptureDuration(%v)", duration)
	defer func() { logger.Tracef(ctx, "/CaptureDuration(%v): %v", duration, _err) }()

	needed := int(duration.Seconds() * float64(c.SampleRate))
	if needed <= 0 {
		return nil, fmt.Errorf("the requested duration is too short: %v", duration)
	}

	writer := newCollectWriter(needed)
	stream, err := c.Recorder.RecordPCM(ctx, c.SampleRate, 1, audio.PCMFormatFloat32LE, writer)
	if err != nil {
		return nil, fmt.Errorf("unable to open the record stream: %w", err)
	}

	select {
	case <-ctx.Done():
		if err := stream.Close(); err != nil {
			logger.Debugf(ctx, "unable to close the record stream: %v", err)
		}
		return nil, ctx.Err()
	case <-writer.Done():
	}

	if err := stream.Close(); err != nil {
		logger.Debugf(ctx, "unable to close the record stream: %v", err)
	}

	return writer.Samples()[:needed], nil
}

// collectWriter accumulates f32le samples and signals once the needed
// amount has arrived. Writes past that point are accepted and ignored.
type collectWriter struct {
	needed int

	doneOnce sync.Once
	done     chan struct{}

	locker  sync.Mutex
	samples []float64
}

func newCollectWriter(needed int) *collectWriter {
	return &collectWriter{
		needed:  needed,
		done:    make(chan struct{}),
		samples: make([]float64, 0, needed),
	}
}

func (w *collectWriter) Write(b []byte) (int, error) {
	w.locker.Lock()
	defer w.locker.Unlock()
	if len(w.samples) >= w.needed {
		return len(b), nil
	}

	w.samples = appendSamplesF32LE(w.samples, b)
	if len(w.samples) >= w.needed {
		w.doneOnce.Do(func() { close(w.done) })
	}
	return len(b), nil
}

func (w *collectWriter) Done() <-chan struct{} {
	return w.done
}

func (w *collectWriter) Samples() []float64 {
	w.locker.Lock()
	defer w.locker.Unlock()
	return w.samples
}
