// Package profile persists the reference background-noise clip used for
// noise reduction. A single profile lives at a fixed hidden path inside
// the output directory and is overwritten on every re-record.
package profile

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/spf13/afero"

	"github.com/xaionaro-go/voicenote/pkg/audio"
	"github.com/xaionaro-go/voicenote/pkg/wavfile"
)

const (
	// FileName is the name of the noise profile file inside the output
	// directory. The leading dot keeps it out of the recording listing.
	FileName = ".noise_profile.wav"

	// DefaultDuration is how much background noise is sampled for a
	// profile.
	DefaultDuration = 2 * time.Second
)

// DurationCapturer records a fixed amount of audio, see capture.Capturer.
type DurationCapturer interface {
	CaptureDuration(ctx context.Context, duration time.Duration) ([]float64, error)
}

type Store struct {
	FS         afero.Fs
	Dir        string
	SampleRate audio.SampleRate
}

func NewStore(fs afero.Fs, dir string, sampleRate audio.SampleRate) *Store {
	return &Store{
		FS:         fs,
		Dir:        dir,
		SampleRate: sampleRate,
	}
}

func (s *Store) Path() string {
	return filepath.Join(s.Dir, FileName)
}

// Load returns the stored noise profile, or (nil, false, nil) if none was
// recorded yet.
func (s *Store) Load(ctx context.Context) (_ []float64, _ bool, _err error) {
	logger.Tracef(ctx, "Load")
	defer func() { logger.Tracef(ctx, "/Load: %v", _err) }()

	path := s.Path()
	exists, err := afero.Exists(s.FS, path)
	if err != nil {
		return nil, false, fmt.Errorf("unable to check if file '%s' exists: %w", path, err)
	}
	if !exists {
		return nil, false, nil
	}

	samples, sampleRate, err := wavfile.Read(s.FS, path)
	if err != nil {
		return nil, false, fmt.Errorf("unable to read the noise profile '%s': %w", path, err)
	}
	if audio.SampleRate(sampleRate) != s.SampleRate {
		return nil, false, fmt.Errorf(
			"the noise profile '%s' has sample rate %d, expected %d",
			path, sampleRate, s.SampleRate,
		)
	}
	return samples, true, nil
}

// Record samples the background for `duration`, stores the result as the
// new profile and returns it.
func (s *Store) Record(
	ctx context.Context,
	capturer DurationCapturer,
	duration time.Duration,
) (_ []float64, _err error) {
	logger.Tracef(ctx, "Record(%v)", duration)
	defer func() { logger.Tracef(ctx, "/Record(%v): %v", duration, _err) }()

	samples, err := capturer.CaptureDuration(ctx, duration)
	if err != nil {
		return nil, fmt.Errorf("unable to capture the background noise: %w", err)
	}

	if err := s.FS.MkdirAll(s.Dir, 0755); err != nil {
		return nil, fmt.Errorf("unable to create directory '%s': %w", s.Dir, err)
	}
	path := s.Path()
	if err := wavfile.Write(s.FS, path, samples, int(s.SampleRate)); err != nil {
		return nil, fmt.Errorf("unable to write the noise profile '%s': %w", path, err)
	}
	logger.Debugf(ctx, "stored a %v noise profile at '%s'", duration, path)
	return samples, nil
}
