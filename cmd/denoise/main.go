package main

import (
	"context"
	"fmt"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"github.com/xaionaro-go/voicenote/pkg/audio"
	"github.com/xaionaro-go/voicenote/pkg/noisereduction/implementations/spectralgate"
	"github.com/xaionaro-go/voicenote/pkg/wavfile"
)

func main() {
	loggerLevel := logger.LevelInfo
	pflag.Var(&loggerLevel, "log-level", "Log level")
	stationaryFlag := pflag.Bool("stationary", false, "Assume the background noise does not change over time")
	pflag.Parse()

	if pflag.NArg() != 3 {
		panic("expected exactly three positional arguments: <voice.wav> <noise.wav> <output.wav>")
	}
	voicePath, noisePath, outputPath := pflag.Arg(0), pflag.Arg(1), pflag.Arg(2)

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	fs := afero.NewOsFs()
	voice, voiceRate, err := wavfile.Read(fs, voicePath)
	assertNoError(err)
	noise, noiseRate, err := wavfile.Read(fs, noisePath)
	assertNoError(err)
	if voiceRate != noiseRate {
		panic(fmt.Sprintf(
			"the sample rates do not match: '%s' is %dHz, '%s' is %dHz",
			voicePath, voiceRate, noisePath, noiseRate,
		))
	}

	sg := spectralgate.New(audio.SampleRate(voiceRate))
	defer sg.Close()

	denoised, err := sg.ReduceNoise(ctx, voice, noise, *stationaryFlag)
	assertNoError(err)
	assertNoError(wavfile.Write(fs, outputPath, denoised, voiceRate))
	logger.Infof(ctx, "wrote %d denoised samples to '%s'", len(denoised), outputPath)
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
