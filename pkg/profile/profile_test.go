package profile

import (
	"context"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/voicenote/pkg/wavfile"
)

type durationCapturerFake struct {
	samples []float64
}

func (c *durationCapturerFake) CaptureDuration(
	ctx context.Context,
	duration time.Duration,
) ([]float64, error) {
	needed := int(duration.Seconds() * 44100)
	if len(c.samples) >= needed {
		return c.samples[:needed], nil
	}
	return c.samples, nil
}

func TestStoreLoadAbsent(t *testing.T) {
	ctx := context.Background()
	store := NewStore(afero.NewMemMapFs(), "/home/user/Voice", 44100)

	samples, found, err := store.Load(ctx)
	require.NoError(t, err)
	require.False(t, found)
	require.Nil(t, samples)
}

func TestStoreRecordAndLoad(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/home/user/Voice", 44100)

	captured := make([]float64, 2*44100)
	for idx := range captured {
		captured[idx] = 0.25
	}
	capturer := &durationCapturerFake{samples: captured}

	recorded, err := store.Record(ctx, capturer, DefaultDuration)
	require.NoError(t, err)
	require.Len(t, recorded, 88200)

	loaded, found, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, loaded, 88200)
	require.InDelta(t, 0.25, loaded[0], 1.0/32767)
}

func TestStoreRecordOverwrites(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()
	store := NewStore(fs, "/home/user/Voice", 44100)

	_, err := store.Record(ctx, &durationCapturerFake{samples: make([]float64, 88200)}, DefaultDuration)
	require.NoError(t, err)

	second := make([]float64, 88200)
	for idx := range second {
		second[idx] = 0.5
	}
	_, err = store.Record(ctx, &durationCapturerFake{samples: second}, DefaultDuration)
	require.NoError(t, err)

	loaded, found, err := store.Load(ctx)
	require.NoError(t, err)
	require.True(t, found)
	require.InDelta(t, 0.5, loaded[0], 1.0/32767)
}

func TestStoreLoadSampleRateMismatch(t *testing.T) {
	ctx := context.Background()
	fs := afero.NewMemMapFs()

	require.NoError(t, wavfile.Write(fs, "/home/user/Voice/"+FileName, []float64{0.1, 0.2}, 22050))

	store := NewStore(fs, "/home/user/Voice", 44100)
	_, _, err := store.Load(ctx)
	require.Error(t, err)
}
