package oto

import (
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/xaionaro-go/voicenote/pkg/audio/registry"
	"github.com/xaionaro-go/voicenote/pkg/audio/types"
)

const (
	Priority = 50
)

// oto allows to initialize its context only once per process, so the
// parameters are fixed here and everything else goes through the resampler.
const (
	SampleRate = types.SampleRate(44100)
	Channels   = types.Channel(1)
	Format     = types.PCMFormatFloat32LE
	BufferSize = 100 * time.Millisecond
)

var getOtoContext = sync.OnceValues(func() (*oto.Context, error) {
	otoCtx, readyChan, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   int(SampleRate),
		ChannelCount: int(Channels),
		Format:       oto.FormatFloat32LE,
		BufferSize:   BufferSize,
	})
	if err != nil {
		return nil, err
	}
	<-readyChan
	return otoCtx, nil
})

func init() {
	registry.RegisterPlayerFactory(Priority, PlayerPCMOtoFactory{})
}

type PlayerPCMOtoFactory struct{}

func (PlayerPCMOtoFactory) NewPlayerPCM() (types.PlayerPCM, error) {
	return NewPlayerPCM()
}
