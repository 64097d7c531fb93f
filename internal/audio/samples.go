package audio

import (
	"encoding/binary"
	"math"
	"time"

	"github.com/go-audio/audio"
	"github.com/google/uuid"
)

// SampleBuffer owns the interleaved PCM payload of a loaded recording.
// It is written once, by Normalize, before any reader is attached.
type SampleBuffer struct {
	data       []byte
	format     Format
	order      binary.ByteOrder
	normalized bool
}

func newSampleBuffer(data []byte, format Format) *SampleBuffer {
	var order binary.ByteOrder = binary.LittleEndian
	if format.ByteOrder == BigEndian {
		order = binary.BigEndian
	}
	return &SampleBuffer{data: data, format: format, order: order}
}

// Bytes returns the raw payload. Callers must not modify it.
func (b *SampleBuffer) Bytes() []byte {
	return b.data
}

// Len returns the payload length in bytes
func (b *SampleBuffer) Len() int {
	return len(b.data)
}

// NumSamples returns the number of frames (one sample per channel)
func (b *SampleBuffer) NumSamples() int {
	frame := b.format.FrameSize()
	if frame <= 0 {
		return 0
	}
	return len(b.data) / frame
}

// Normalized reports whether Normalize has already run on this buffer
func (b *SampleBuffer) Normalized() bool {
	return b.normalized
}

// Sample returns the sample for channel ch of frame i as a real in [-1, 1].
func (b *SampleBuffer) Sample(i, ch int) float64 {
	return b.pcmToReal(b.offset(i, ch))
}

// FirstChannel fills dst with consecutive first-channel samples starting at
// frame start. Frames past the end of the buffer are zero.
func (b *SampleBuffer) FirstChannel(dst []float64, start int) {
	n := b.NumSamples()
	for j := range dst {
		if start+j >= n {
			dst[j] = 0
			continue
		}
		dst[j] = b.Sample(start+j, 0)
	}
}

func (b *SampleBuffer) offset(i, ch int) int {
	return i*b.format.FrameSize() + ch*b.format.BytesPerSample()
}

// pcmToReal converts the sample at byte offset off. Signed samples divide by
// 2^(bits-1); 8-bit unsigned samples are centred on 128 first.
func (b *SampleBuffer) pcmToReal(off int) float64 {
	p := b.data[off:]
	switch b.format.BitsPerSample {
	case 8:
		if b.format.SampleType == UnsignedInt {
			return (float64(p[0]) - 128) / 128
		}
		return float64(int8(p[0])) / 128
	case 16:
		return float64(int16(b.order.Uint16(p))) / 32768
	case 24:
		var v int32
		if b.format.ByteOrder == BigEndian {
			v = int32(p[0])<<16 | int32(p[1])<<8 | int32(p[2])
		} else {
			v = int32(p[2])<<16 | int32(p[1])<<8 | int32(p[0])
		}
		if v&0x800000 != 0 {
			v |= ^0xFFFFFF
		}
		return float64(v) / 8388608
	case 32:
		return float64(int32(b.order.Uint32(p))) / 2147483648
	}
	return 0
}

// realToPCM writes v back at byte offset off, clamped to [-1, 1] and scaled
// by the largest signed value of the sample width.
func (b *SampleBuffer) realToPCM(off int, v float64) {
	v = math.Max(-1, math.Min(1, v))
	scaled := int64(math.Round(v * float64(audio.IntMaxSignedValue(b.format.BitsPerSample))))

	p := b.data[off:]
	switch b.format.BitsPerSample {
	case 8:
		if b.format.SampleType == UnsignedInt {
			p[0] = byte(scaled + 128)
			return
		}
		p[0] = byte(int8(scaled))
	case 16:
		b.order.PutUint16(p, uint16(int16(scaled)))
	case 24:
		if b.format.ByteOrder == BigEndian {
			p[0], p[1], p[2] = byte(scaled>>16), byte(scaled>>8), byte(scaled)
		} else {
			p[0], p[1], p[2] = byte(scaled), byte(scaled>>8), byte(scaled>>16)
		}
	case 32:
		b.order.PutUint32(p, uint32(int32(scaled)))
	}
}

// LoadedFile is a decoded, normalized recording. At most one is live in the
// playback engine at a time.
type LoadedFile struct {
	ID           uuid.UUID
	Name         string
	Format       Format
	Samples      *SampleBuffer
	HeaderLength int64 // Byte offset of the payload within the source
}

// PayloadLength returns the payload size in bytes
func (f *LoadedFile) PayloadLength() int64 {
	if f == nil || f.Samples == nil {
		return 0
	}
	return int64(f.Samples.Len())
}

// NumSamples returns the number of frames in the payload
func (f *LoadedFile) NumSamples() int {
	if f == nil || f.Samples == nil {
		return 0
	}
	return f.Samples.NumSamples()
}

// Duration returns the playback length of the payload
func (f *LoadedFile) Duration() time.Duration {
	if f == nil {
		return 0
	}
	return f.Format.Duration(f.PayloadLength())
}
