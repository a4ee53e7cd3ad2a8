package portaudio

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"
	"unsafe"

	"github.com/facebookincubator/go-belt/tool/logger"
	"github.com/gordonklaus/portaudio"
	"github.com/xaionaro-go/observability"
	"github.com/xaionaro-go/voicenote/pkg/audio/types"
)

// PlayPCMStream feeds the output device from an io.Reader in buffer-sized
// blocks. The reader running dry (io.EOF) is the normal end of playback;
// the final partial block is zero-padded to keep the device write aligned.
type PlayPCMStream struct {
	PortAudioStream *portaudio.Stream
	DeviceBuffer    []byte
	Reader          io.Reader
	CancelFunc      context.CancelFunc
	WaitGroup       sync.WaitGroup
	CloseOnce       sync.Once
	CloseErr        error

	resultLocker sync.Mutex
	resultErr    error
}

var _ types.PlayStream = (*PlayPCMStream)(nil)

func newPlayPCMStream[T any](
	ctx context.Context,
	sampleRate types.SampleRate,
	channels types.Channel,
	bufferSize time.Duration,
) (*PlayPCMStream, error) {
	bufferItemsCount := int(bufferSize.Seconds() * float64(sampleRate))

	var sample T
	buf := make([]T, bufferItemsCount*int(channels))
	logger.Debugf(ctx, "newPlayPCMStream: %T, %d, %d, %s(%d)", sample, sampleRate, channels, bufferSize, bufferItemsCount)
	stream, err := portaudio.OpenDefaultStream(0, int(channels), float64(sampleRate), bufferItemsCount, &buf)
	if err != nil {
		return nil, err
	}

	ptr := unsafe.SliceData(buf)
	bytesBuf := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), len(buf)*int(unsafe.Sizeof(sample)))

	return &PlayPCMStream{
		PortAudioStream: stream,
		DeviceBuffer:    bytesBuf,
	}, nil
}

func (s *PlayPCMStream) start(
	ctx context.Context,
	rawReader io.Reader,
) error {
	s.Reader = rawReader
	ctx, s.CancelFunc = context.WithCancel(ctx)

	if err := s.PortAudioStream.Start(); err != nil {
		return fmt.Errorf("unable to start the stream: %w", err)
	}

	s.WaitGroup.Add(1)
	observability.Go(ctx, func(ctx context.Context) {
		defer s.WaitGroup.Done()
		defer s.CancelFunc()
		err := s.transferLoop(ctx)
		s.resultLocker.Lock()
		defer s.resultLocker.Unlock()
		s.resultErr = err
	})
	return nil
}

func (s *PlayPCMStream) transferLoop(
	ctx context.Context,
) (_ret error) {
	logger.Debugf(ctx, "transferLoop")
	defer func() { logger.Debugf(ctx, "/transferLoop: %v", _ret) }()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := io.ReadFull(s.Reader, s.DeviceBuffer)
		isEOF := errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
		if err != nil && !isEOF {
			return fmt.Errorf("unable to read: %w", err)
		}
		if n == 0 {
			return nil
		}
		for idx := n; idx < len(s.DeviceBuffer); idx++ {
			s.DeviceBuffer[idx] = 0
		}

		logger.Tracef(ctx, "Write")
		err = s.PortAudioStream.Write()
		logger.Tracef(ctx, "/Write: %v", err)
		if err != nil {
			return fmt.Errorf("unable to write: %w", err)
		}
		if isEOF {
			return nil
		}
	}
}

// Drain blocks until the reader is fully played back (or the stream fails).
func (s *PlayPCMStream) Drain() error {
	s.WaitGroup.Wait()
	s.resultLocker.Lock()
	defer s.resultLocker.Unlock()
	return s.resultErr
}

func (s *PlayPCMStream) Close() error {
	s.CloseOnce.Do(func() {
		s.CancelFunc()
		s.CloseErr = s.PortAudioStream.Abort()
		s.WaitGroup.Wait()
	})
	return s.CloseErr
}
