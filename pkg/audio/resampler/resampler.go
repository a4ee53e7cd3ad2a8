package resampler

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/xaionaro-go/voicenote/pkg/audio/types"
)

type Format struct {
	Channels   types.Channel
	SampleRate types.SampleRate
	PCMFormat  types.PCMFormat
}

func (f Format) frameSize() int {
	return int(f.Channels) * int(f.PCMFormat.Size())
}

// Resampler converts a PCM byte stream between formats, sample rates and
// channel layouts (mono<->stereo only). Rate conversion is done by
// nearest-frame selection: output frame k maps to input frame
// k*inRate/outRate; frames are duplicated when upsampling and skipped when
// downsampling.
type Resampler struct {
	inReader  io.Reader
	inFormat  Format
	outFormat Format

	locker       sync.Mutex
	outFrameIdx  uint64
	nextSrcFrame uint64
	srcFrame     []float64
	srcFrameBuf  []byte
	srcStarted   bool
	srcErr       error
}

func NewResampler(
	inFormat Format,
	inReader io.Reader,
	outFormat Format,
) (*Resampler, error) {
	for _, f := range []Format{inFormat, outFormat} {
		if f.PCMFormat.Size() == 0 {
			return nil, fmt.Errorf("unsupported PCM format: %v", f.PCMFormat)
		}
		if f.Channels < 1 || f.Channels > 2 {
			return nil, fmt.Errorf("unsupported amount of channels: %d", f.Channels)
		}
		if f.SampleRate == 0 {
			return nil, fmt.Errorf("sample rate is not set")
		}
	}
	return &Resampler{
		inReader:    inReader,
		inFormat:    inFormat,
		outFormat:   outFormat,
		srcFrame:    make([]float64, inFormat.Channels),
		srcFrameBuf: make([]byte, inFormat.frameSize()),
	}, nil
}

var _ io.Reader = (*Resampler)(nil)

func (r *Resampler) Read(p []byte) (int, error) {
	r.locker.Lock()
	defer r.locker.Unlock()

	outFrameSize := r.outFormat.frameSize()
	written := 0
	for written+outFrameSize <= len(p) {
		srcFrameIdx := r.outFrameIdx * uint64(r.inFormat.SampleRate) / uint64(r.outFormat.SampleRate)
		if err := r.advanceTo(srcFrameIdx); err != nil {
			if written > 0 {
				return written, nil
			}
			return 0, err
		}
		r.encodeFrame(p[written : written+outFrameSize])
		written += outFrameSize
		r.outFrameIdx++
	}
	if written == 0 && len(p) > 0 {
		return 0, fmt.Errorf("buffer of %d bytes is too small for a single %d-byte frame", len(p), outFrameSize)
	}
	return written, nil
}

// advanceTo reads source frames until frame srcFrameIdx is the current one.
func (r *Resampler) advanceTo(srcFrameIdx uint64) error {
	if r.srcErr != nil {
		return r.srcErr
	}
	for !r.srcStarted || r.nextSrcFrame <= srcFrameIdx {
		_, err := io.ReadFull(r.inReader, r.srcFrameBuf)
		if err != nil {
			if err == io.ErrUnexpectedEOF {
				err = io.EOF
			}
			r.srcErr = err
			return err
		}
		sampleSize := int(r.inFormat.PCMFormat.Size())
		for ch := 0; ch < int(r.inFormat.Channels); ch++ {
			r.srcFrame[ch] = decodeSample(r.inFormat.PCMFormat, r.srcFrameBuf[ch*sampleSize:])
		}
		r.srcStarted = true
		r.nextSrcFrame++
	}
	return nil
}

func (r *Resampler) encodeFrame(dst []byte) {
	sampleSize := int(r.outFormat.PCMFormat.Size())
	switch {
	case r.inFormat.Channels == r.outFormat.Channels:
		for ch := 0; ch < int(r.outFormat.Channels); ch++ {
			encodeSample(r.outFormat.PCMFormat, r.srcFrame[ch], dst[ch*sampleSize:])
		}
	case r.inFormat.Channels == 1:
		for ch := 0; ch < int(r.outFormat.Channels); ch++ {
			encodeSample(r.outFormat.PCMFormat, r.srcFrame[0], dst[ch*sampleSize:])
		}
	default:
		var sum float64
		for _, v := range r.srcFrame {
			sum += v
		}
		encodeSample(r.outFormat.PCMFormat, sum/float64(len(r.srcFrame)), dst)
	}
}

func decodeSample(f types.PCMFormat, p []byte) float64 {
	switch f {
	case types.PCMFormatU8:
		return (float64(p[0]) - 128) / 128
	case types.PCMFormatS16LE:
		return float64(int16(binary.LittleEndian.Uint16(p))) / 32768
	case types.PCMFormatS32LE:
		return float64(int32(binary.LittleEndian.Uint32(p))) / 2147483648
	case types.PCMFormatFloat32LE:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(p)))
	case types.PCMFormatFloat64LE:
		return math.Float64frombits(binary.LittleEndian.Uint64(p))
	default:
		panic(fmt.Sprintf("unknown format: %v", f))
	}
}

func encodeSample(f types.PCMFormat, v float64, p []byte) {
	switch f {
	case types.PCMFormatU8:
		p[0] = uint8(clamp(math.Round(v*128+128), 0, 255))
	case types.PCMFormatS16LE:
		binary.LittleEndian.PutUint16(p, uint16(int16(clamp(math.Round(v*32768), math.MinInt16, math.MaxInt16))))
	case types.PCMFormatS32LE:
		binary.LittleEndian.PutUint32(p, uint32(int32(clamp(math.Round(v*2147483648), math.MinInt32, math.MaxInt32))))
	case types.PCMFormatFloat32LE:
		binary.LittleEndian.PutUint32(p, math.Float32bits(float32(v)))
	case types.PCMFormatFloat64LE:
		binary.LittleEndian.PutUint64(p, math.Float64bits(v))
	default:
		panic(fmt.Sprintf("unknown format: %v", f))
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
