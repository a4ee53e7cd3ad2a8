// Package session drives the record-denoise-save-play cycle: it owns the
// interactive prompts and the state machine, and delegates the actual
// work to the capture, noisereduction, profile and wavfile packages.
package session

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/spf13/afero"
	"github.com/xaionaro-go/datacounter"
	"github.com/xaionaro-go/observability"

	"github.com/xaionaro-go/voicenote/pkg/audio"
	"github.com/xaionaro-go/voicenote/pkg/capture"
	"github.com/xaionaro-go/voicenote/pkg/noisereduction"
	"github.com/xaionaro-go/voicenote/pkg/profile"
	"github.com/xaionaro-go/voicenote/pkg/wavfile"
)

// Capturer is the subset of capture.Capturer the controller requires.
type Capturer interface {
	CaptureUntilStop(ctx context.Context, stop <-chan struct{}) (capture.Result, error)
	CaptureDuration(ctx context.Context, duration time.Duration) ([]float64, error)
}

// Player is the subset of audio.Player the controller requires.
type Player interface {
	PlayPCM(
		ctx context.Context,
		sampleRate audio.SampleRate,
		channels audio.Channel,
		format audio.PCMFormat,
		bufferSize time.Duration,
		reader io.Reader,
	) (audio.PlayStream, error)
}

type Controller struct {
	Capturer   Capturer
	Reducer    noisereduction.Reducer
	Profile    *profile.Store
	Player     Player
	Prompter   Prompter
	FS         afero.Fs
	OutputDir  string
	SampleRate audio.SampleRate
	Stationary bool
	Out        io.Writer

	// Now is overridable for tests; nil means time.Now.
	Now func() time.Time

	state State
}

func (c *Controller) State() State {
	return c.state
}

func (c *Controller) setState(ctx context.Context, state State) {
	logger.Debugf(ctx, "state: %v -> %v", c.state, state)
	c.state = state
}

func (c *Controller) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// Run repeats the record-denoise-save-play cycle until the context is
// cancelled.
func (c *Controller) Run(ctx context.Context) error {
	for ctx.Err() == nil {
		if err := c.RunOnce(ctx); err != nil {
			if errors.Is(err, context.Canceled) {
				break
			}
			c.setState(ctx, StateTerminated)
			return err
		}
	}
	c.setState(ctx, StateTerminated)
	return nil
}

// RunOnce performs one full cycle: capture a voice note, denoise it
// against the stored noise profile (recording the profile first if there
// is none yet), persist it as a timestamped WAV and play it back.
//
// A cancelled or empty capture ends the cycle early without an error.
// A playback failure is logged but not returned: the recording is
// already persisted by then.
func (c *Controller) RunOnce(ctx context.Context) (_err error) {
	logger.Tracef(ctx, "RunOnce")
	defer func() { logger.Tracef(ctx, "/RunOnce: %v", _err) }()
	defer c.setState(ctx, StateIdle)

	if err := c.Prompter.WaitForEnter(ctx, "Press Enter to start recording... "); err != nil {
		return fmt.Errorf("unable to wait for the recording to start: %w", err)
	}

	c.setState(ctx, StateCapturing)
	stop := make(chan struct{})
	observability.Go(ctx, func(ctx context.Context) {
		if err := c.Prompter.WaitForEnter(ctx, "Recording, press Enter to stop... "); err == nil {
			close(stop)
		}
	})

	result, err := c.Capturer.CaptureUntilStop(ctx, stop)
	if err != nil {
		return fmt.Errorf("unable to capture the voice: %w", err)
	}
	switch result.Outcome {
	case capture.OutcomeCancelled:
		fmt.Fprintln(c.Out, "Recording cancelled.")
		return ctx.Err()
	case capture.OutcomeEmpty:
		fmt.Fprintln(c.Out, "Nothing was recorded.")
		return nil
	}

	noise, err := c.ensureProfile(ctx)
	if err != nil {
		return err
	}

	c.setState(ctx, StateDenoising)
	denoised, err := c.Reducer.ReduceNoise(ctx, result.Samples, noise, c.Stationary)
	if err != nil {
		return fmt.Errorf("unable to reduce the noise: %w", err)
	}

	c.setState(ctx, StateSaving)
	path, err := c.save(ctx, denoised)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.Out, "Saved %s\n", path)

	c.setState(ctx, StatePlaying)
	c.play(ctx, denoised)
	return nil
}

// ensureProfile returns the stored noise profile, interactively recording
// one first if it does not exist yet.
func (c *Controller) ensureProfile(ctx context.Context) ([]float64, error) {
	noise, found, err := c.Profile.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load the noise profile: %w", err)
	}
	if found {
		return noise, nil
	}

	msg := fmt.Sprintf(
		"No noise profile found. Press Enter to record %v of background noise (keep silent)... ",
		profile.DefaultDuration,
	)
	if err := c.Prompter.WaitForEnter(ctx, msg); err != nil {
		return nil, fmt.Errorf("unable to wait for the noise recording to start: %w", err)
	}

	noise, err = c.Profile.Record(ctx, c.Capturer, profile.DefaultDuration)
	if err != nil {
		return nil, fmt.Errorf("unable to record the noise profile: %w", err)
	}
	fmt.Fprintln(c.Out, "Noise profile stored.")
	return noise, nil
}

func (c *Controller) save(ctx context.Context, samples []float64) (string, error) {
	if err := c.FS.MkdirAll(c.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("unable to create directory '%s': %w", c.OutputDir, err)
	}
	path, err := wavfile.TimestampedPath(c.FS, c.OutputDir, c.now())
	if err != nil {
		return "", fmt.Errorf("unable to pick a file name in '%s': %w", c.OutputDir, err)
	}
	if err := wavfile.Write(c.FS, path, samples, int(c.SampleRate)); err != nil {
		return "", fmt.Errorf("unable to write '%s': %w", path, err)
	}
	return path, nil
}

func (c *Controller) play(ctx context.Context, samples []float64) {
	counter := datacounter.NewReaderCounter(newSamplesReader(samples))
	stream, err := c.Player.PlayPCM(
		ctx,
		c.SampleRate,
		1,
		audio.PCMFormatFloat32LE,
		audio.BufferSize,
		counter,
	)
	if err != nil {
		logger.Errorf(ctx, "unable to start the playback: %v", err)
		return
	}
	if err := stream.Drain(); err != nil {
		logger.Errorf(ctx, "unable to finish the playback: %v", err)
	}
	if err := stream.Close(); err != nil {
		logger.Debugf(ctx, "unable to close the playback stream: %v", err)
	}
	logger.Debugf(ctx, "the playback consumed %d bytes", counter.Count())
}

// samplesReader streams float64 samples as little-endian float32 PCM.
type samplesReader struct {
	samples []float64
}

func newSamplesReader(samples []float64) *samplesReader {
	return &samplesReader{samples: samples}
}

func (r *samplesReader) Read(b []byte) (int, error) {
	if len(r.samples) == 0 {
		return 0, io.EOF
	}
	if len(b) < 4 {
		return 0, io.ErrShortBuffer
	}

	n := 0
	for len(b)-n >= 4 && len(r.samples) > 0 {
		binary.LittleEndian.PutUint32(b[n:], math.Float32bits(float32(r.samples[0])))
		r.samples = r.samples[1:]
		n += 4
	}
	return n, nil
}
