package renderer

import (
	"image"
	"image/color"

	"github.com/golang/freetype/raster"
	"github.com/linuxmatters/earmark/internal/audio"
	"github.com/linuxmatters/earmark/internal/config"
	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Frame composites the amplitude trace into the upper half of an image and
// the spectrogram, scaled to fit, into the lower half
type Frame struct {
	img    *image.RGBA
	width  int
	height int
	half   int

	traceColor color.RGBA
	textColor  color.RGBA
	fontFace   font.Face

	rasterizer *raster.Rasterizer
	painter    *raster.RGBAPainter
}

// NewFrame creates a frame renderer. fontFace may be nil to skip captions.
func NewFrame(width, height int, traceColor color.RGBA, fontFace font.Face) *Frame {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	painter := raster.NewRGBAPainter(img)
	painter.SetColor(traceColor)

	return &Frame{
		img:        img,
		width:      width,
		height:     height,
		half:       height / 2,
		traceColor: traceColor,
		textColor:  color.RGBA{R: config.TextColorR, G: config.TextColorG, B: config.TextColorB, A: 255},
		fontFace:   fontFace,
		rasterizer: raster.NewRasterizer(width, height),
		painter:    painter,
	}
}

// TraceHeight is the height the trace should be built for
func (f *Frame) TraceHeight() int {
	return f.half
}

// Draw renders one frame. playhead is a fraction of the file duration in
// [0, 1]; a negative value omits the playhead.
func (f *Frame) Draw(trace []image.Point, spec *audio.Spectrogram, caption string, playhead float64) {
	f.clear()
	f.drawSpectrogram(spec)
	f.drawTrace(trace)
	if playhead >= 0 {
		f.drawPlayhead(playhead)
	}
	if f.fontFace != nil && caption != "" {
		DrawCaption(f.img, f.fontFace, caption, config.CaptionMargin, config.CaptionMargin, f.textColor)
	}
}

// Image returns the current frame image
func (f *Frame) Image() *image.RGBA {
	return f.img
}

func (f *Frame) clear() {
	// Fast clear to black, 8 pixels at a time
	blackPattern := [32]byte{
		0, 0, 0, 255, 0, 0, 0, 255,
		0, 0, 0, 255, 0, 0, 0, 255,
		0, 0, 0, 255, 0, 0, 0, 255,
		0, 0, 0, 255, 0, 0, 0, 255,
	}
	for i := 0; i < len(f.img.Pix); i += 32 {
		copy(f.img.Pix[i:], blackPattern[:])
	}
}

func (f *Frame) drawSpectrogram(spec *audio.Spectrogram) {
	if spec.Width() == 0 || spec.Height() == 0 || f.height-f.half <= 0 {
		return
	}
	dst := image.Rect(0, f.half, f.width, f.height)
	draw.BiLinear.Scale(f.img, dst, spec.Gray, spec.Bounds(), draw.Src, nil)
}

// drawTrace strokes the polyline one pixel wide
func (f *Frame) drawTrace(trace []image.Point) {
	if len(trace) < 2 {
		return
	}

	var path raster.Path
	path.Start(toFixed(trace[0]))
	for _, p := range trace[1:] {
		path.Add1(toFixed(p))
	}

	f.rasterizer.Clear()
	raster.Stroke(f.rasterizer, path, fixed.I(1), nil, nil)
	f.rasterizer.Rasterize(f.painter)
}

func (f *Frame) drawPlayhead(fraction float64) {
	if fraction > 1 {
		fraction = 1
	}
	x := int(fraction * float64(f.width-1))
	for y := 0; y < f.height; y++ {
		f.img.SetRGBA(x, y, f.traceColor)
	}
}

// toFixed centres a pixel coordinate in 26.6 fixed point
func toFixed(p image.Point) fixed.Point26_6 {
	return fixed.Point26_6{
		X: fixed.I(p.X) + 32,
		Y: fixed.I(p.Y) + 32,
	}
}
