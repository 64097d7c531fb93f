package renderer

import (
	"image"

	"github.com/charmbracelet/log"
	"github.com/linuxmatters/earmark/internal/audio"
)

// Builder derives what the display draws for a loaded file: an amplitude
// trace sized to the display and a spectrogram computed once per file.
type Builder struct {
	analyzer *audio.SpectrumAnalyzer
	logger   *log.Logger

	file        *audio.LoadedFile
	spectrogram *audio.Spectrogram

	width  int
	height int
	trace  []image.Point
}

// NewBuilder creates a builder that analyses files with analyzer
func NewBuilder(analyzer *audio.SpectrumAnalyzer, logger *log.Logger) *Builder {
	return &Builder{
		analyzer: analyzer,
		logger:   logger.WithPrefix("builder"),
	}
}

// Load replaces the file, recomputes its spectrogram and rebuilds the trace
// at the current size. A nil file clears both.
func (b *Builder) Load(file *audio.LoadedFile, progressCb audio.ProgressCallback) error {
	b.file = file
	b.spectrogram = nil

	if file != nil && file.NumSamples() > 0 {
		spec, err := b.analyzer.Analyze(file.Samples, progressCb)
		if err != nil {
			b.file = nil
			return err
		}
		b.spectrogram = spec
	}

	b.rebuildTrace()
	return nil
}

// Resize rebuilds the trace for a display of width by height pixels. The
// spectrogram is left alone.
func (b *Builder) Resize(width, height int) {
	if width == b.width && height == b.height {
		return
	}
	b.width, b.height = width, height
	b.rebuildTrace()
}

// File returns the loaded file, or nil
func (b *Builder) File() *audio.LoadedFile {
	return b.file
}

// Trace returns one vertex per display column. It is empty when nothing is
// loaded or the display has no area.
func (b *Builder) Trace() []image.Point {
	return b.trace
}

// Spectrogram returns the spectrogram of the loaded file, or nil
func (b *Builder) Spectrogram() *audio.Spectrogram {
	return b.spectrogram
}

// Size returns the display size the trace was built for
func (b *Builder) Size() (width, height int) {
	return b.width, b.height
}

func (b *Builder) rebuildTrace() {
	b.trace = Trace(b.file, b.width, b.height)
	b.logger.Debug("trace rebuilt", "width", b.width, "height", b.height, "vertices", len(b.trace))
}

// Trace point-samples the first channel of file, one vertex per column. The
// sample nearest each column's start time is used unaveraged and mapped to
// y = (v+1)/2 * height, so full negative scale sits at the top.
func Trace(file *audio.LoadedFile, width, height int) []image.Point {
	n := file.NumSamples()
	if n == 0 || width <= 0 || height <= 0 {
		return nil
	}

	points := make([]image.Point, width)
	for x := 0; x < width; x++ {
		i := int(int64(x) * int64(n) / int64(width))
		if i >= n {
			i = n - 1
		}
		v := file.Samples.Sample(i, 0)
		points[x] = image.Point{X: x, Y: int((v + 1) / 2 * float64(height))}
	}
	return points
}
