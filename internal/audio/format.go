package audio

import (
	"fmt"
	"time"

	"github.com/linuxmatters/earmark/internal/config"
)

// ByteOrder is the endianness of multi-byte samples in the payload
type ByteOrder int

const (
	LittleEndian ByteOrder = iota
	BigEndian
)

func (o ByteOrder) String() string {
	if o == BigEndian {
		return "BigEndian"
	}
	return "LittleEndian"
}

// SampleType distinguishes signed from unsigned integer samples
type SampleType int

const (
	SignedInt SampleType = iota
	UnsignedInt
)

func (t SampleType) String() string {
	if t == UnsignedInt {
		return "UnSignedInt"
	}
	return "SignedInt"
}

// Format describes a decoded PCM stream. It is immutable once decoded.
type Format struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
	ByteOrder     ByteOrder
	SampleType    SampleType
}

// BytesPerSample returns the width of a single channel sample
func (f Format) BytesPerSample() int {
	return f.BitsPerSample / 8
}

// FrameSize returns the number of bytes holding one sample per channel
func (f Format) FrameSize() int {
	return f.BytesPerSample() * f.Channels
}

// BytesPerSecond returns the payload rate, used to turn byte offsets into time
func (f Format) BytesPerSecond() int {
	return f.SampleRate * f.FrameSize()
}

// Duration converts a payload byte offset into playback time.
func (f Format) Duration(bytes int64) time.Duration {
	bps := int64(f.BytesPerSecond())
	if bps <= 0 {
		return 0
	}
	return time.Duration(bytes * int64(time.Second) / bps)
}

// Offset converts a playback time into a frame-aligned payload byte offset.
func (f Format) Offset(d time.Duration) int64 {
	bps := int64(f.BytesPerSecond())
	if bps <= 0 {
		return 0
	}
	offset := int64(d) * bps / int64(time.Second)
	return f.AlignDown(offset)
}

// AlignDown quantizes a byte offset to the start of the frame containing it.
// Negative offsets align to zero.
func (f Format) AlignDown(offset int64) int64 {
	if offset <= 0 {
		return 0
	}
	frame := int64(f.FrameSize())
	if frame <= 0 {
		return offset
	}
	return offset - offset%frame
}

// CheckPlayable checks the format against the playback whitelist: 16-bit
// signed little-endian PCM at one of config.SupportedSampleRates.
func (f Format) CheckPlayable() error {
	switch {
	case f.Channels < 1:
		return fmt.Errorf("%w: %s: no channels", ErrUnsupportedFormat, f)
	case f.SampleType != SignedInt:
		return fmt.Errorf("%w: %s: samples must be signed", ErrUnsupportedFormat, f)
	case f.BitsPerSample != config.PlaybackBitsPerSample:
		return fmt.Errorf("%w: %s: samples must be %d-bit", ErrUnsupportedFormat, f, config.PlaybackBitsPerSample)
	case f.ByteOrder != LittleEndian:
		return fmt.Errorf("%w: %s: samples must be little-endian", ErrUnsupportedFormat, f)
	case !config.IsSupportedSampleRate(f.SampleRate):
		return fmt.Errorf("%w: %s: sample rate must be one of %v Hz", ErrUnsupportedFormat, f, config.SupportedSampleRates)
	}
	return nil
}

// String renders the format the way the error dialogs show it
func (f Format) String() string {
	return fmt.Sprintf("%dHz %dbit %dch %s %s",
		f.SampleRate, f.BitsPerSample, f.Channels, f.SampleType, f.ByteOrder)
}
