package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/facebookincubator/go-belt"
	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/facebookincubator/go-belt/tool/logger/implementation/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"github.com/xaionaro-go/voicenote/pkg/audio"
	_ "github.com/xaionaro-go/voicenote/pkg/audio/backends/oto"
	_ "github.com/xaionaro-go/voicenote/pkg/audio/backends/portaudio"
	_ "github.com/xaionaro-go/voicenote/pkg/audio/backends/pulseaudio"
	"github.com/xaionaro-go/voicenote/pkg/capture"
	"github.com/xaionaro-go/voicenote/pkg/noisereduction/implementations/spectralgate"
	"github.com/xaionaro-go/voicenote/pkg/profile"
	"github.com/xaionaro-go/voicenote/pkg/session"
)

const sampleRate = audio.SampleRate(44100)

func main() {
	loggerLevel := logger.LevelWarning
	pflag.Var(&loggerLevel, "log-level", "Log level")
	outputDirFlag := pflag.String("output-dir", "", "Directory to store the recordings in (default: ~/Voice)")
	stationaryFlag := pflag.Bool("stationary", false, "Assume the background noise does not change over time")
	pflag.Parse()

	l := logrus.Default().WithLevel(loggerLevel)
	ctx := logger.CtxWithLogger(context.Background(), l)
	logger.Default = func() logger.Logger {
		return l
	}
	defer belt.Flush(ctx)

	ctx, cancelFn := signal.NotifyContext(ctx, os.Interrupt)
	defer cancelFn()

	outputDir := *outputDirFlag
	if outputDir == "" {
		home, err := os.UserHomeDir()
		assertNoError(err)
		outputDir = filepath.Join(home, "Voice")
	}

	recorder := audio.NewRecorderAuto(ctx)
	defer recorder.Close()
	player := audio.NewPlayerAuto(ctx)
	defer player.Close()

	fs := afero.NewOsFs()
	controller := &session.Controller{
		Capturer:   capture.NewCapturer(recorder, sampleRate),
		Reducer:    spectralgate.New(sampleRate),
		Profile:    profile.NewStore(fs, outputDir, sampleRate),
		Player:     player,
		Prompter:   session.NewStdioPrompter(os.Stdin, os.Stdout),
		FS:         fs,
		OutputDir:  outputDir,
		SampleRate: sampleRate,
		Stationary: *stationaryFlag,
		Out:        os.Stdout,
	}
	assertNoError(controller.Run(ctx))
}

func assertNoError(err error) {
	if err != nil {
		panic(err)
	}
}
