package audio

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

const (
	chunkHeaderSize   = 8
	fmtBodySize       = 16         // WAVEFORMAT without cbSize
	streamingDataSize = 0xFFFFFFFF // placeholder written by streaming recorders

	// RIFF descriptor plus the "fmt " chunk
	combinedHeaderSize = chunkHeaderSize + 4 + chunkHeaderSize + fmtBodySize
)

// WAVDecoder parses RIFF (little-endian) and RIFX (big-endian) PCM WAV streams
type WAVDecoder struct {
	logger *log.Logger
}

// NewWAVDecoder creates a decoder that reports chunk-level detail at debug level
func NewWAVDecoder(logger *log.Logger) *WAVDecoder {
	return &WAVDecoder{logger: logger.WithPrefix("wav")}
}

// Load opens, decodes and normalizes the recording at path.
func (d *WAVDecoder) Load(path string) (*LoadedFile, error) {
	src, err := OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	return d.LoadSource(path, src)
}

// LoadSource decodes and normalizes src. The returned file is ready to be
// shared with playback and analysis.
func (d *WAVDecoder) LoadSource(name string, src ByteSource) (*LoadedFile, error) {
	file, err := d.Decode(src)
	if err != nil {
		return nil, err
	}
	file.Name = name

	result := Normalize(file.Samples)
	d.logger.Debug("normalized",
		"file", name,
		"peak", result.Peak,
		"gain", result.Gain,
		"silent", result.Silent)

	return file, nil
}

// Decode parses the header of src and copies its payload. It does not
// normalize.
func (d *WAVDecoder) Decode(src ByteSource) (*LoadedFile, error) {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileOpen, err)
	}

	var hdr [combinedHeaderSize]byte
	if _, err := io.ReadFull(src, hdr[:]); err != nil {
		return nil, fmt.Errorf("%w: header truncated: %v", ErrFormatParse, err)
	}

	var order binary.ByteOrder
	format := Format{}
	switch string(hdr[0:4]) {
	case "RIFF":
		order = binary.LittleEndian
		format.ByteOrder = LittleEndian
	case "RIFX":
		order = binary.BigEndian
		format.ByteOrder = BigEndian
	default:
		return nil, fmt.Errorf("%w: bad RIFF id %q", ErrFormatParse, hdr[0:4])
	}

	if string(hdr[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: bad RIFF type %q", ErrFormatParse, hdr[8:12])
	}
	if string(hdr[12:16]) != "fmt " {
		return nil, fmt.Errorf("%w: expected \"fmt \" chunk, got %q", ErrFormatParse, hdr[12:16])
	}

	fmtSize := order.Uint32(hdr[16:20])
	audioFormat := order.Uint16(hdr[20:22])
	format.Channels = int(order.Uint16(hdr[22:24]))
	format.SampleRate = int(order.Uint32(hdr[24:28]))
	format.BitsPerSample = int(order.Uint16(hdr[34:36]))

	if audioFormat != 0 && audioFormat != 1 {
		return nil, fmt.Errorf("%w: audio format code %d is not PCM", ErrFormatParse, audioFormat)
	}
	if fmtSize < fmtBodySize {
		return nil, fmt.Errorf("%w: \"fmt \" chunk is %d bytes", ErrFormatParse, fmtSize)
	}
	if format.Channels < 1 {
		return nil, fmt.Errorf("%w: channel count is zero", ErrFormatParse)
	}
	if format.BitsPerSample == 0 || format.BitsPerSample%8 != 0 || format.BitsPerSample > 32 {
		return nil, fmt.Errorf("%w: %d bits per sample", ErrFormatParse, format.BitsPerSample)
	}
	if format.BitsPerSample == 8 {
		format.SampleType = UnsignedInt
	}

	// Extensible variants carry cbSize plus extension bytes; skip them unparsed
	if fmtSize > fmtBodySize {
		var ext [2]byte
		if _, err := io.ReadFull(src, ext[:]); err != nil {
			return nil, fmt.Errorf("%w: format extension truncated: %v", ErrFormatParse, err)
		}
		extra := int64(order.Uint16(ext[:]))
		if _, err := io.CopyN(io.Discard, src, extra); err != nil {
			return nil, fmt.Errorf("%w: format extension truncated: %v", ErrFormatParse, err)
		}
		d.logger.Debug("skipped format extension", "bytes", 2+extra)
	}

	dataSize, err := d.findData(src, order)
	if err != nil {
		return nil, err
	}

	headerLength, err := src.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileOpen, err)
	}

	payloadLength := src.Size() - headerLength
	if dataSize != streamingDataSize && int64(dataSize) > 0 && int64(dataSize) < payloadLength {
		payloadLength = int64(dataSize)
	}
	if payloadLength < 0 {
		payloadLength = 0
	}
	payloadLength -= payloadLength % int64(format.FrameSize())

	payload := make([]byte, payloadLength)
	if _, err := io.ReadFull(src, payload); err != nil {
		return nil, fmt.Errorf("%w: reading payload: %w", ErrFileOpen, err)
	}

	file := &LoadedFile{
		ID:           uuid.New(),
		Format:       format,
		Samples:      newSampleBuffer(payload, format),
		HeaderLength: headerLength,
	}

	d.logger.Debug("decoded",
		"format", format,
		"header", headerLength,
		"payload", payloadLength,
		"samples", file.NumSamples())

	return file, nil
}

// findData walks sub-chunks until "data" and returns its declared size.
// Chunks such as LIST, fact or cue that precede the samples are skipped,
// honouring the RIFF pad byte on odd sizes.
func (d *WAVDecoder) findData(src ByteSource, order binary.ByteOrder) (uint32, error) {
	var ch [chunkHeaderSize]byte
	for {
		if _, err := io.ReadFull(src, ch[:]); err != nil {
			return 0, fmt.Errorf("%w: no data chunk: %v", ErrFormatParse, err)
		}

		id := string(ch[0:4])
		size := order.Uint32(ch[4:8])
		if id == "data" {
			return size, nil
		}

		skip := int64(size) + int64(size&1)
		d.logger.Debug("skipping chunk", "id", id, "bytes", skip)
		if _, err := src.Seek(skip, io.SeekCurrent); err != nil {
			return 0, fmt.Errorf("%w: skipping %q chunk: %v", ErrFormatParse, id, err)
		}
	}
}
