package audio

import (
	"encoding/binary"
	"io"
	"math"
)

type float32Reader interface {
	Read(p []float32) (int, error)
}

// newReaderFromFloat32Reader converts a float32-sample reader (e.g. a vorbis
// decoder) into a byte stream of f32le PCM.
func newReaderFromFloat32Reader(r float32Reader) io.Reader {
	return &float32ByteReader{Backend: r}
}

type float32ByteReader struct {
	Backend float32Reader
	tail    []byte
}

var _ io.Reader = (*float32ByteReader)(nil)

func (r *float32ByteReader) Read(p []byte) (int, error) {
	if len(r.tail) > 0 {
		n := copy(p, r.tail)
		r.tail = r.tail[n:]
		return n, nil
	}

	sampleCount := len(p) / 4
	if sampleCount == 0 {
		sampleCount = 1
	}
	samples := make([]float32, sampleCount)
	n, err := r.Backend.Read(samples)
	if n == 0 {
		return 0, err
	}

	buf := make([]byte, n*4)
	for idx, sample := range samples[:n] {
		binary.LittleEndian.PutUint32(buf[idx*4:], math.Float32bits(sample))
	}

	copied := copy(p, buf)
	r.tail = buf[copied:]
	if len(r.tail) > 0 {
		// do not surface the error until the tail is consumed
		return copied, nil
	}
	return copied, err
}
