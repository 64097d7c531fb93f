package renderer

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"time"

	"github.com/linuxmatters/earmark/internal/audio"
	"github.com/linuxmatters/earmark/internal/config"
	"golang.org/x/image/font"
)

// SnapshotOptions controls a headless render of the visualization
type SnapshotOptions struct {
	Width      int
	Height     int
	TraceColor color.RGBA
	// Position is the playhead offset into the payload, or -1 for none
	Position int64
	// FontPath names a TrueType font for the captions; empty uses Go Regular
	FontPath string
}

// DefaultSnapshotOptions returns the standard 1280x720 snapshot without a
// playhead
func DefaultSnapshotOptions() SnapshotOptions {
	r, g, b, _ := config.ParseHexColor(config.TraceColor)
	return SnapshotOptions{
		Width:      config.SnapshotWidth,
		Height:     config.SnapshotHeight,
		TraceColor: color.RGBA{R: r, G: g, B: b, A: 255},
		Position:   -1,
	}
}

// RenderSnapshot draws the builder's file into a new image. The builder is
// resized to the trace area of the snapshot.
func RenderSnapshot(b *Builder, opts SnapshotOptions) (*image.RGBA, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("invalid snapshot size %dx%d", opts.Width, opts.Height)
	}

	face, err := captionFace(opts.FontPath)
	if err != nil {
		return nil, err
	}
	defer face.Close()

	frame := NewFrame(opts.Width, opts.Height, opts.TraceColor, face)
	b.Resize(opts.Width, frame.TraceHeight())

	file := b.File()
	frame.Draw(b.Trace(), b.Spectrogram(), snapshotCaption(file), playheadFraction(file, opts.Position))

	// Format details in the top right corner
	if file != nil {
		details := file.Format.String()
		width, _ := measureText(face, details)
		x := opts.Width - width - config.CaptionMargin
		DrawCaption(frame.Image(), face, details, x, config.CaptionMargin, frame.textColor)
	}

	return frame.Image(), nil
}

// GenerateSnapshot renders the builder's file and saves it as a PNG
func GenerateSnapshot(outputPath string, b *Builder, opts SnapshotOptions) error {
	img, err := RenderSnapshot(b, opts)
	if err != nil {
		return fmt.Errorf("failed to render snapshot: %w", err)
	}

	if err := saveSnapshot(img, outputPath); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

func captionFace(fontPath string) (font.Face, error) {
	if fontPath == "" {
		return DefaultFace(config.CaptionFontSize)
	}
	return LoadFont(fontPath, config.CaptionFontSize)
}

func snapshotCaption(file *audio.LoadedFile) string {
	if file == nil {
		return ""
	}
	return fmt.Sprintf("%s  %s", filepath.Base(file.Name), file.Duration().Round(time.Millisecond))
}

func playheadFraction(file *audio.LoadedFile, position int64) float64 {
	n := file.PayloadLength()
	if position < 0 || n == 0 {
		return -1
	}
	return float64(position) / float64(n)
}

// saveSnapshot saves the image to a PNG file
func saveSnapshot(img *image.RGBA, outputPath string) error {
	outFile, err := os.Create(outputPath)
	if err != nil {
		return err
	}
	defer outFile.Close()

	return png.Encode(outFile, img)
}
