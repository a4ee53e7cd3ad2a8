package session

import (
	"bytes"
	"context"
	"errors"
	"io"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/xaionaro-go/voicenote/pkg/audio"
	"github.com/xaionaro-go/voicenote/pkg/capture"
	"github.com/xaionaro-go/voicenote/pkg/profile"
	"github.com/xaionaro-go/voicenote/pkg/wavfile"
)

type prompterFake struct {
	locker sync.Mutex
	count  int
}

func (p *prompterFake) WaitForEnter(ctx context.Context, msg string) error {
	p.locker.Lock()
	defer p.locker.Unlock()
	p.count++
	return ctx.Err()
}

type capturerFake struct {
	result capture.Result

	durationCalls int
}

func (c *capturerFake) CaptureUntilStop(
	ctx context.Context,
	stop <-chan struct{},
) (capture.Result, error) {
	return c.result, nil
}

func (c *capturerFake) CaptureDuration(
	ctx context.Context,
	duration time.Duration,
) ([]float64, error) {
	c.durationCalls++
	return make([]float64, int(duration.Seconds()*44100)), nil
}

type reducerFake struct {
	gotVoice      []float64
	gotNoise      []float64
	gotStationary bool
}

func (r *reducerFake) Close() error                 { return nil }
func (r *reducerFake) SampleRate() audio.SampleRate { return 44100 }

func (r *reducerFake) ReduceNoise(
	ctx context.Context,
	voice []float64,
	noise []float64,
	stationary bool,
) ([]float64, error) {
	r.gotVoice = voice
	r.gotNoise = noise
	r.gotStationary = stationary
	result := make([]float64, len(voice))
	copy(result, voice)
	return result, nil
}

type playerFake struct {
	err       error
	bytesRead int
}

func (p *playerFake) PlayPCM(
	ctx context.Context,
	sampleRate audio.SampleRate,
	channels audio.Channel,
	format audio.PCMFormat,
	bufferSize time.Duration,
	reader io.Reader,
) (audio.PlayStream, error) {
	if p.err != nil {
		return nil, p.err
	}
	b, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}
	p.bytesRead = len(b)
	return playStreamFake{}, nil
}

type playStreamFake struct{}

func (playStreamFake) Drain() error { return nil }
func (playStreamFake) Close() error { return nil }

func newTestController(
	fs afero.Fs,
	capturer *capturerFake,
	reducer *reducerFake,
	player *playerFake,
) *Controller {
	dir := "/home/user/Voice"
	return &Controller{
		Capturer:   capturer,
		Reducer:    reducer,
		Profile:    profile.NewStore(fs, dir, 44100),
		Player:     player,
		Prompter:   &prompterFake{},
		FS:         fs,
		OutputDir:  dir,
		SampleRate: 44100,
		Stationary: true,
		Out:        &bytes.Buffer{},
		Now: func() time.Time {
			return time.Date(2025, 3, 14, 15, 9, 26, 0, time.UTC)
		},
	}
}

func TestRunOnceFullCycle(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()

	voice := make([]float64, 44100)
	for idx := range voice {
		voice[idx] = 0.25
	}
	capturer := &capturerFake{
		result: capture.Result{Outcome: capture.OutcomeCaptured, Samples: voice},
	}
	reducer := &reducerFake{}
	player := &playerFake{}
	controller := newTestController(fs, capturer, reducer, player)

	require.NoError(t, controller.RunOnce(ctx))

	require.Equal(t, 1, capturer.durationCalls, "should have recorded a noise profile")
	require.Len(t, reducer.gotNoise, 88200)
	require.Equal(t, voice, reducer.gotVoice)
	require.True(t, reducer.gotStationary)

	recordingPath := filepath.Join("/home/user/Voice", "voice_sample_20250314-150926.wav")
	exists, err := afero.Exists(fs, recordingPath)
	require.NoError(t, err)
	require.True(t, exists)

	exists, err = afero.Exists(fs, filepath.Join("/home/user/Voice", profile.FileName))
	require.NoError(t, err)
	require.True(t, exists)

	require.Equal(t, len(voice)*4, player.bytesRead)
	require.Equal(t, StateIdle, controller.State())
}

func TestRunOnceReusesProfile(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()

	profilePath := filepath.Join("/home/user/Voice", profile.FileName)
	require.NoError(t, wavfile.Write(fs, profilePath, make([]float64, 88200), 44100))

	capturer := &capturerFake{
		result: capture.Result{
			Outcome: capture.OutcomeCaptured,
			Samples: []float64{0.25, -0.25},
		},
	}
	controller := newTestController(fs, capturer, &reducerFake{}, &playerFake{})

	require.NoError(t, controller.RunOnce(ctx))
	require.Zero(t, capturer.durationCalls)
}

func TestRunOnceEmptyCapture(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()

	capturer := &capturerFake{result: capture.Result{Outcome: capture.OutcomeEmpty}}
	reducer := &reducerFake{}
	controller := newTestController(fs, capturer, reducer, &playerFake{})

	require.NoError(t, controller.RunOnce(ctx))
	require.Nil(t, reducer.gotVoice, "nothing should have been denoised")

	files, err := afero.ReadDir(fs, "/home/user/Voice")
	if err == nil {
		require.Empty(t, files)
	}
}

func TestRunOncePlaybackFailureIsNotFatal(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()

	capturer := &capturerFake{
		result: capture.Result{
			Outcome: capture.OutcomeCaptured,
			Samples: []float64{0.25, -0.25},
		},
	}
	player := &playerFake{err: errors.New("no output device")}
	controller := newTestController(fs, capturer, &reducerFake{}, player)

	require.NoError(t, controller.RunOnce(ctx))

	exists, err := afero.Exists(
		fs,
		filepath.Join("/home/user/Voice", "voice_sample_20250314-150926.wav"),
	)
	require.NoError(t, err)
	require.True(t, exists)
}

func TestRunStopsOnCancellation(t *testing.T) {
	ctx, cancelFn := context.WithCancel(context.Background())
	cancelFn()

	controller := newTestController(
		afero.NewMemMapFs(),
		&capturerFake{result: capture.Result{Outcome: capture.OutcomeCancelled}},
		&reducerFake{},
		&playerFake{},
	)

	require.NoError(t, controller.Run(ctx))
	require.Equal(t, StateTerminated, controller.State())
}
