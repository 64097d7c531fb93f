package audio

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/argusdusty/gofft"
)

// Processor computes magnitude spectra of fixed-length real frames
type Processor struct {
	size int
	buf  []complex128
}

// NewProcessor creates a processor for frames of size samples. size must be
// a power of two.
func NewProcessor(size int) (*Processor, error) {
	if size < 2 || !gofft.IsPow2(size) {
		return nil, fmt.Errorf("FFT size %d is not a power of two", size)
	}
	if err := gofft.Prepare(size); err != nil {
		return nil, fmt.Errorf("preparing FFT of size %d: %w", size, err)
	}
	return &Processor{
		size: size,
		buf:  make([]complex128, size),
	}, nil
}

// Size returns the frame length in samples
func (p *Processor) Size() int {
	return p.size
}

// Magnitudes transforms frame and writes the magnitude of the first
// len(dst) bins into dst, scaled by 2/size so a full-scale sine reads 1.0.
// No window is applied. frame shorter than Size is zero-padded.
func (p *Processor) Magnitudes(dst, frame []float64) error {
	for i := range p.buf {
		if i < len(frame) {
			p.buf[i] = complex(frame[i], 0)
		} else {
			p.buf[i] = 0
		}
	}

	if err := gofft.FFT(p.buf); err != nil {
		return fmt.Errorf("FFT failed: %w", err)
	}

	scale := 2 / float64(p.size)
	n := len(dst)
	if n > p.size/2 {
		n = p.size / 2
	}
	for j := 0; j < n; j++ {
		dst[j] = cmplx.Abs(p.buf[j]) * scale
	}
	return nil
}

// Intensity maps a magnitude to an 8-bit gray level, clamping to [0, 1]
func Intensity(magnitude float64) uint8 {
	m := math.Max(0, math.Min(1, magnitude))
	return uint8(m * 255)
}
