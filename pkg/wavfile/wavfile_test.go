package wavfile

import (
	"math"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	fs := afero.NewMemMapFs()

	samples := make([]float64, 4410)
	for i := range samples {
		samples[i] = 0.8 * math.Sin(2*math.Pi*440*float64(i)/44100)
	}

	require.NoError(t, Write(fs, "test.wav", samples, 44100))

	got, rate, err := Read(fs, "test.wav")
	require.NoError(t, err)
	require.Equal(t, 44100, rate)
	require.Equal(t, len(samples), len(got))

	// 16-bit quantization tolerance
	for i := range samples {
		require.InDelta(t, samples[i], got[i], 1.0/32767, "sample %d", i)
	}

	// The quantization is applied only once, repeated round-trips are exact.
	require.NoError(t, Write(fs, "test2.wav", got, 44100))
	got2, _, err := Read(fs, "test2.wav")
	require.NoError(t, err)
	require.Equal(t, got, got2, spew.Sdump(got2[:8]))
}

func TestWriteClampsOutOfRange(t *testing.T) {
	fs := afero.NewMemMapFs()

	require.NoError(t, Write(fs, "loud.wav", []float64{2.0, -3.0, 0}, 44100))
	got, _, err := Read(fs, "loud.wav")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, got[0], 1.0/32767)
	assert.InDelta(t, -1.0, got[1], 1.0/32767)
	assert.InDelta(t, 0.0, got[2], 1.0/32767)
}

func TestWriteEmptyFails(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.Error(t, Write(fs, "empty.wav", nil, 44100))
	exists, err := afero.Exists(fs, "empty.wav")
	require.NoError(t, err)
	require.False(t, exists)
}

func TestTimestampedPath(t *testing.T) {
	fs := afero.NewMemMapFs()
	now := time.Date(2024, 5, 17, 13, 37, 42, 0, time.UTC)

	path, err := TimestampedPath(fs, "out", now)
	require.NoError(t, err)
	assert.Equal(t, "out/voice_sample_20240517-133742.wav", path)

	// Saving twice within the same second must not overwrite.
	require.NoError(t, Write(fs, path, []float64{0.1}, 44100))
	path2, err := TimestampedPath(fs, "out", now)
	require.NoError(t, err)
	assert.Equal(t, "out/voice_sample_20240517-133742_2.wav", path2)
	require.NoError(t, Write(fs, path2, []float64{0.2}, 44100))

	path3, err := TimestampedPath(fs, "out", now)
	require.NoError(t, err)
	assert.Equal(t, "out/voice_sample_20240517-133742_3.wav", path3)
}
