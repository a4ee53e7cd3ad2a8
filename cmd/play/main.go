package main

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"github.com/xaionaro-go/datacounter"

	"github.com/xaionaro-go/voicenote/pkg/audio"
	_ "github.com/xaionaro-go/voicenote/pkg/audio/backends/oto"
	_ "github.com/xaionaro-go/voicenote/pkg/audio/backends/portaudio"
	_ "github.com/xaionaro-go/voicenote/pkg/audio/backends/pulseaudio"
	"github.com/xaionaro-go/voicenote/pkg/wavfile"
)

func main() {
	loggerLevel := logger.LevelInfo
	pflag.Var(&loggerLevel, "log-level", "Log level")
	pflag.Parse()

	if pflag.NArg() != 1 {
		panic("expected exactly one positional argument: path to a .wav or .ogg file")
	}
	filePath := pflag.Arg(0)

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	player := audio.NewPlayerAuto(ctx)
	defer player.Close()

	var stream audio.PlayStream
	var counter *datacounter.ReaderCounter
	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".ogg":
		file, err := os.Open(filePath)
		assertNoError(err)
		defer file.Close()

		counter = datacounter.NewReaderCounter(file)
		stream, err = player.PlayVorbis(ctx, counter)
		assertNoError(err)
	default:
		samples, sampleRate, err := wavfile.Read(afero.NewOsFs(), filePath)
		assertNoError(err)

		counter = datacounter.NewReaderCounter(bytes.NewReader(samplesToF32LE(samples)))
		stream, err = player.PlayPCM(
			ctx,
			audio.SampleRate(sampleRate),
			1,
			audio.PCMFormatFloat32LE,
			audio.BufferSize,
			counter,
		)
		assertNoError(err)
	}
	defer stream.Close()

	logger.Infof(ctx, "playing '%s' via %T", filePath, player.PlayerPCM)
	assertNoError(stream.Drain())
	logger.Debugf(ctx, "the playback consumed %d bytes", counter.Count())
}

func samplesToF32LE(samples []float64) []byte {
	b := make([]byte, 4*len(samples))
	for idx, sample := range samples {
		binary.LittleEndian.PutUint32(b[idx*4:], math.Float32bits(float32(sample)))
	}
	return b
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
