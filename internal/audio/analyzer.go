package audio

import (
	"fmt"
	"image"
	"time"

	"github.com/charmbracelet/log"
)

// Spectrogram is a grayscale magnitude image. Column i covers the frame
// starting at sample i*HopSize; row j is frequency bin j, lowest at the top.
type Spectrogram struct {
	*image.Gray

	FrameSize int
	HopSize   int
}

// Width returns the number of analysed columns
func (s *Spectrogram) Width() int {
	if s == nil || s.Gray == nil {
		return 0
	}
	return s.Rect.Dx()
}

// Height returns the number of frequency bins per column
func (s *Spectrogram) Height() int {
	if s == nil || s.Gray == nil {
		return 0
	}
	return s.Rect.Dy()
}

// SpectrogramWidth returns how many columns a buffer of numSamples frames
// yields for the given analysis frame size. The last two hops are dropped so
// the final frame never reads past the buffer; short files give zero.
func SpectrogramWidth(numSamples, frameSize int) int {
	hop := frameSize / 2
	if hop <= 0 {
		return 0
	}
	w := numSamples/hop - 2
	if w < 0 {
		return 0
	}
	return w
}

// ProgressCallback is called with progress updates during analysis
type ProgressCallback func(column, totalColumns int, elapsed time.Duration)

// progressEvery throttles progress callbacks
const progressEvery = 64

// SpectrumAnalyzer computes short-time magnitude spectra over the first
// channel of a sample buffer
type SpectrumAnalyzer struct {
	processor *Processor
	logger    *log.Logger
}

// NewSpectrumAnalyzer creates an analyzer with a frameSize-point FFT and a
// hop of frameSize/2
func NewSpectrumAnalyzer(frameSize int, logger *log.Logger) (*SpectrumAnalyzer, error) {
	processor, err := NewProcessor(frameSize)
	if err != nil {
		return nil, err
	}
	return &SpectrumAnalyzer{
		processor: processor,
		logger:    logger.WithPrefix("spectrum"),
	}, nil
}

// FrameSize returns the analysis window length in samples
func (a *SpectrumAnalyzer) FrameSize() int {
	return a.processor.Size()
}

// Analyze computes the spectrogram of buf. Frames are taken without a
// window function. progressCb may be nil.
func (a *SpectrumAnalyzer) Analyze(buf *SampleBuffer, progressCb ProgressCallback) (*Spectrogram, error) {
	frameSize := a.processor.Size()
	hop := frameSize / 2

	numSamples := 0
	if buf != nil {
		numSamples = buf.NumSamples()
	}
	width := SpectrogramWidth(numSamples, frameSize)

	spec := &Spectrogram{
		Gray:      image.NewGray(image.Rect(0, 0, width, hop)),
		FrameSize: frameSize,
		HopSize:   hop,
	}

	frame := make([]float64, frameSize)
	mags := make([]float64, hop)
	startTime := time.Now()

	for col := 0; col < width; col++ {
		buf.FirstChannel(frame, col*hop)
		if err := a.processor.Magnitudes(mags, frame); err != nil {
			return nil, fmt.Errorf("analysing column %d: %w", col, err)
		}

		for j, m := range mags {
			spec.Pix[j*spec.Stride+col] = Intensity(m)
		}

		if progressCb != nil && (col%progressEvery == 0 || col == width-1) {
			progressCb(col+1, width, time.Since(startTime))
		}
	}

	a.logger.Debug("spectrogram computed",
		"columns", width,
		"bins", hop,
		"samples", numSamples,
		"elapsed", time.Since(startTime))

	return spec, nil
}
