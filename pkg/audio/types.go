package audio

import (
	"github.com/xaionaro-go/voicenote/pkg/audio/types"
)

type SampleRate = types.SampleRate
type Channel = types.Channel
type PCMFormat = types.PCMFormat

const (
	PCMFormatUndefined = types.PCMFormatUndefined
	PCMFormatU8        = types.PCMFormatU8
	PCMFormatS16LE     = types.PCMFormatS16LE
	PCMFormatS32LE     = types.PCMFormatS32LE
	PCMFormatFloat32LE = types.PCMFormatFloat32LE
	PCMFormatFloat64LE = types.PCMFormatFloat64LE
)

type RecorderPCM = types.RecorderPCM
type PlayerPCM = types.PlayerPCM
type Stream = types.Stream
type PlayStream = types.PlayStream
type RecordStream = types.RecordStream
