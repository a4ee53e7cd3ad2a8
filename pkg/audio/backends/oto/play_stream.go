package oto

import (
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/xaionaro-go/voicenote/pkg/audio/types"
)

type PlayStream struct {
	OtoPlayer *oto.Player
}

var _ types.PlayStream = (*PlayStream)(nil)

func newPlayStream(player *oto.Player) *PlayStream {
	return &PlayStream{
		OtoPlayer: player,
	}
}

// Drain polls until the player stops on its own (reader exhausted). oto
// provides no blocking wait, so this is the best available.
func (s *PlayStream) Drain() error {
	for s.OtoPlayer.IsPlaying() {
		time.Sleep(10 * time.Millisecond)
	}
	return s.OtoPlayer.Err()
}

func (s *PlayStream) Close() error {
	return s.OtoPlayer.Close()
}
