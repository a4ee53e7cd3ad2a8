// Package wavfile persists sample sequences as mono 16-bit PCM WAV files
// and reads them back as normalized float64 samples.
package wavfile

import (
	"fmt"
	"math"
	"path/filepath"
	"time"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/spf13/afero"
)

const (
	BitDepth       = 16
	audioFormatPCM = 1

	sampleScale = 32767
)

// Write encodes samples (normalized to [-1, 1]) into a mono WAV file at
// path. The file is created (or truncated) on the given filesystem.
func Write(fs afero.Fs, path string, samples []float64, sampleRate int) (_err error) {
	if len(samples) == 0 {
		return fmt.Errorf("refusing to write an empty sample sequence to %q", path)
	}

	f, err := fs.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create %q: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil && _err == nil {
			_err = fmt.Errorf("unable to close %q: %w", path, err)
		}
	}()

	data := make([]int, len(samples))
	for idx, v := range samples {
		data[idx] = int(math.Round(clamp(v) * sampleScale))
	}

	enc := wav.NewEncoder(f, sampleRate, BitDepth, 1, audioFormatPCM)
	err = enc.Write(&audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: 1,
			SampleRate:  sampleRate,
		},
		Data:           data,
		SourceBitDepth: BitDepth,
	})
	if err != nil {
		return fmt.Errorf("unable to encode %q: %w", path, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("unable to finalize %q: %w", path, err)
	}
	return nil
}

// Read decodes a WAV file into normalized float64 samples and its sample
// rate. Multi-channel files are folded to mono by averaging the channels.
func Read(fs afero.Fs, path string) (_ []float64, _ int, _err error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("unable to open %q: %w", path, err)
	}
	defer func() {
		if err := f.Close(); err != nil && _err == nil {
			_err = fmt.Errorf("unable to close %q: %w", path, err)
		}
	}()

	dec := wav.NewDecoder(f)
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, 0, fmt.Errorf("unable to decode %q: %w", path, err)
	}
	if buf.Format == nil || buf.Format.NumChannels < 1 {
		return nil, 0, fmt.Errorf("%q has no format information", path)
	}

	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = BitDepth
	}
	scale := float64(uint64(1)<<(bitDepth-1)) - 1

	channels := buf.Format.NumChannels
	samples := make([]float64, len(buf.Data)/channels)
	for idx := range samples {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			sum += float64(buf.Data[idx*channels+ch]) / scale
		}
		samples[idx] = sum / float64(channels)
	}
	return samples, buf.Format.SampleRate, nil
}

// TimestampedPath returns a not-yet-existing recording path inside dir,
// named after the given moment. Recordings saved within the same second
// get a numeric suffix instead of overwriting each other.
func TimestampedPath(fs afero.Fs, dir string, now time.Time) (string, error) {
	base := "voice_sample_" + now.Format("20060102-150405")
	path := filepath.Join(dir, base+".wav")
	for attempt := 2; ; attempt++ {
		exists, err := afero.Exists(fs, path)
		if err != nil {
			return "", fmt.Errorf("unable to check for %q: %w", path, err)
		}
		if !exists {
			return path, nil
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%d.wav", base, attempt))
	}
}

func clamp(v float64) float64 {
	if v < -1 {
		return -1
	}
	if v > 1 {
		return 1
	}
	return v
}
