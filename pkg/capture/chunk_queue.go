package capture

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/xaionaro-go/voicenote/pkg/interpolation"
)

type chunk struct {
	samples []float64

	// droppedBefore is the amount of samples which were dropped (due to
	// queue overflow) right before this chunk.
	droppedBefore int
}

// chunkQueue is the io.Writer the record stream feeds. Enqueuing never
// blocks: if the queue is full the chunk is dropped and accounted, so a
// stalled consumer can never back-pressure the audio device.
type chunkQueue struct {
	ch chan chunk

	// both fields below are owned by the producer goroutine until the
	// record stream is closed, and by the consumer afterwards.
	pendingDropped int
	droppedTotal   int
}

func newChunkQueue(capacity int) *chunkQueue {
	return &chunkQueue{
		ch: make(chan chunk, capacity),
	}
}

func appendSamplesF32LE(dst []float64, b []byte) []float64 {
	for idx := 0; idx < len(b); idx += 4 {
		dst = append(dst, float64(math.Float32frombits(binary.LittleEndian.Uint32(b[idx:]))))
	}
	return dst
}

func (q *chunkQueue) Write(b []byte) (int, error) {
	if len(b)%4 != 0 {
		return 0, fmt.Errorf("the buffer length is not a multiple of the sample size: %d %% 4 != 0", len(b))
	}

	samples := appendSamplesF32LE(make([]float64, 0, len(b)/4), b)

	select {
	case q.ch <- chunk{samples: samples, droppedBefore: q.pendingDropped}:
		q.pendingDropped = 0
	default:
		q.pendingDropped += len(samples)
		q.droppedTotal += len(samples)
	}
	return len(b), nil
}

// drain concatenates the queued chunks in arrival order. Gaps left by
// dropped chunks are filled by the interpolator. Must be called only
// after the record stream is closed.
func (q *chunkQueue) drain(interpolator interpolation.Interpolator) []float64 {
	var result []float64
	for {
		select {
		case c := <-q.ch:
			if c.droppedBefore > 0 {
				result = append(result, interpolator.Interpolate(result, c.samples, c.droppedBefore)...)
			}
			result = append(result, c.samples...)
		default:
			if q.pendingDropped > 0 {
				result = append(result, interpolator.Interpolate(result, nil, q.pendingDropped)...)
				q.pendingDropped = 0
			}
			return result
		}
	}
}
