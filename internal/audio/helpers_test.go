package audio

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/charmbracelet/log"
)

// wavFixture describes a synthetic WAV image for decoder tests
type wavFixture struct {
	rifx       bool
	rate       int
	channels   int
	bits       int
	fmtExtra   []byte // bytes after cbSize; a non-nil slice forces an extended fmt chunk
	preData    [][2]string
	dataSize   *uint32 // overrides the declared data chunk size
	payload    []byte
	audioFmt   *uint16 // overrides the PCM code 1
	truncateAt int     // cut the image to this many bytes when > 0
}

func (f wavFixture) order() binary.ByteOrder {
	if f.rifx {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// bytes renders the fixture the same way createWAVFile does in audpbx-style
// tests: field by field through binary.Write
func (f wavFixture) bytes() []byte {
	order := f.order()
	buf := new(bytes.Buffer)

	if f.rifx {
		buf.WriteString("RIFX")
	} else {
		buf.WriteString("RIFF")
	}
	binary.Write(buf, order, uint32(0)) // patched below
	buf.WriteString("WAVE")

	fmtSize := uint32(16)
	if f.fmtExtra != nil {
		fmtSize = 18 + uint32(len(f.fmtExtra))
	}
	audioFmt := uint16(1)
	if f.audioFmt != nil {
		audioFmt = *f.audioFmt
	}
	blockAlign := uint16(f.channels * f.bits / 8)

	buf.WriteString("fmt ")
	binary.Write(buf, order, fmtSize)
	binary.Write(buf, order, audioFmt)
	binary.Write(buf, order, uint16(f.channels))
	binary.Write(buf, order, uint32(f.rate))
	binary.Write(buf, order, uint32(f.rate)*uint32(blockAlign))
	binary.Write(buf, order, blockAlign)
	binary.Write(buf, order, uint16(f.bits))
	if f.fmtExtra != nil {
		binary.Write(buf, order, uint16(len(f.fmtExtra)))
		buf.Write(f.fmtExtra)
	}

	for _, chunk := range f.preData {
		buf.WriteString(chunk[0])
		binary.Write(buf, order, uint32(len(chunk[1])))
		buf.WriteString(chunk[1])
		if len(chunk[1])%2 == 1 {
			buf.WriteByte(0)
		}
	}

	dataSize := uint32(len(f.payload))
	if f.dataSize != nil {
		dataSize = *f.dataSize
	}
	buf.WriteString("data")
	binary.Write(buf, order, dataSize)
	buf.Write(f.payload)

	out := buf.Bytes()
	order.PutUint32(out[4:8], uint32(len(out)-8))
	if f.truncateAt > 0 && f.truncateAt < len(out) {
		out = out[:f.truncateAt]
	}
	return out
}

// pcm16 encodes samples as 16-bit PCM in the given byte order
func pcm16(order binary.ByteOrder, samples ...int16) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		order.PutUint16(out[2*i:], uint16(s))
	}
	return out
}

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

func decodeFixture(f wavFixture) (*LoadedFile, error) {
	return NewWAVDecoder(testLogger()).Decode(NewMemorySource(f.bytes()))
}
