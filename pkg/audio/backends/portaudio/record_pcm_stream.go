package portaudio

import (
	"context"
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

const (
	RecordBufferSize = time.Millisecond * 100
)

// RecordPCMStream pulls fixed-size frame chunks from the device and pushes
// them into the provided writer. The writer is expected to never block for
// long (the capture queue on the other side drops instead of blocking), so a
// single transfer goroutine is enough.
type RecordPCMStream struct {
	PortAudioStream *portaudio.Stream
	DeviceBuffer    []byte
	TransferBuffer  []byte
	Writer          io.Writer
	CancelFunc      context.CancelFunc
	WaitGroup       sync.WaitGroup
	CloseOnce       sync.Once
	CloseErr        error
}

var _ types.RecordStream = (*RecordPCMStream)(nil)

func newRecordPCMStream[T any](
	ctx context.Context,
	sampleRate types.SampleRate,
	channels types.Channel,
) (*RecordPCMStream, error) {
	bufferItemsCount := int(RecordBufferSize.Seconds() * float64(sampleRate))

	var sample T
	buf := make([]T, bufferItemsCount*int(channels))
	logger.Debugf(ctx, "newRecordPCMStream: %T, %d, %d, %s(%d)", sample, sampleRate, channels, RecordBufferSize, bufferItemsCount)
	stream, err := portaudio.OpenDefaultStream(int(channels), 0, float64(sampleRate), bufferItemsCount, buf)
	if err != nil {
		return nil, err
	}

	ptr := unsafe.SliceData(buf)
	bytesBuf := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), len(buf)*int(unsafe.Sizeof(sample)))

	return &RecordPCMStream{
		PortAudioStream: stream,
		DeviceBuffer:    bytesBuf,
		TransferBuffer:  make([]byte, len(bytesBuf)),
	}, nil
}

func (s *RecordPCMStream) start(
	ctx context.Context,
	writer io.Writer,
) error {
	s.Writer = writer
	ctx, s.CancelFunc = context.WithCancel(ctx)

	if err := s.PortAudioStream.Start(); err != nil {
		return fmt.Errorf("unable to start the stream: %w", err)
	}

	s.WaitGroup.Add(1)
	observability.Go(ctx, func(ctx context.Context) {
		defer s.WaitGroup.Done()
		defer s.CancelFunc()
		s.transferLoop(ctx)
	})
	return nil
}

func (s *RecordPCMStream) transferLoop(
	ctx context.Context,
) (_ret error) {
	logger.Debugf(ctx, "transferLoop")
	defer func() { logger.Debugf(ctx, "/transferLoop: %v", _ret) }()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		logger.Tracef(ctx, "Read")
		err := s.PortAudioStream.Read()
		logger.Tracef(ctx, "/Read: %v", err)
		if err != nil {
			return fmt.Errorf("unable to read: %w", err)
		}

		// The device buffer gets overwritten by the next Read, hand a
		// stable copy to the writer.
		copy(s.TransferBuffer, s.DeviceBuffer)
		n, err := s.Writer.Write(s.TransferBuffer)
		if err != nil {
			return fmt.Errorf("unable to write: %w", err)
		}
		if n != len(s.TransferBuffer) {
			return fmt.Errorf("invalid write length: %d != %d", n, len(s.TransferBuffer))
		}
	}
}

func (s *RecordPCMStream) Close() error {
	s.CloseOnce.Do(func() {
		s.CancelFunc()
		s.CloseErr = s.PortAudioStream.Abort()
		s.WaitGroup.Wait()
	})
	return s.CloseErr
}
