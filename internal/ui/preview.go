package ui

import (
	"fmt"
	"image"
	"image/color"
	"strings"
)

// PreviewConfig is the size of the visualization panel in terminal cells
type PreviewConfig struct {
	Width  int
	Height int
}

// DefaultPreviewConfig returns the panel size used before the first
// window size message
func DefaultPreviewConfig() PreviewConfig {
	return PreviewConfig{
		Width:  72,
		Height: 16,
	}
}

// Pixels per terminal cell when rendering the panel frame
const (
	cellPixelsX = 2
	cellPixelsY = 4
)

// FrameSize returns the pixel size of a frame that maps onto the panel
func (c PreviewConfig) FrameSize() (width, height int) {
	return c.Width * cellPixelsX, c.Height * cellPixelsY
}

// DownsampleFrame averages each cell-sized region of frame into one colour
func DownsampleFrame(frame *image.RGBA, config PreviewConfig) [][]color.RGBA {
	bounds := frame.Bounds()
	srcWidth := bounds.Dx()
	srcHeight := bounds.Dy()

	cellWidth := max(1, srcWidth/config.Width)
	cellHeight := max(1, srcHeight/config.Height)

	preview := make([][]color.RGBA, config.Height)
	for row := 0; row < config.Height; row++ {
		preview[row] = make([]color.RGBA, config.Width)
		for col := 0; col < config.Width; col++ {
			srcX := col * cellWidth
			srcY := row * cellHeight

			var sumR, sumG, sumB uint32
			pixelCount := 0

			for y := srcY; y < srcY+cellHeight && y < srcHeight; y++ {
				off := frame.PixOffset(bounds.Min.X+srcX, bounds.Min.Y+y)
				for x := srcX; x < srcX+cellWidth && x < srcWidth; x++ {
					sumR += uint32(frame.Pix[off])
					sumG += uint32(frame.Pix[off+1])
					sumB += uint32(frame.Pix[off+2])
					off += 4
					pixelCount++
				}
			}

			if pixelCount > 0 {
				preview[row][col] = color.RGBA{
					R: uint8(sumR / uint32(pixelCount)),
					G: uint8(sumG / uint32(pixelCount)),
					B: uint8(sumB / uint32(pixelCount)),
					A: 255,
				}
			}
		}
	}

	return preview
}

// RenderPreview draws the grid with 24-bit background colours inside a thin
// frame. Each cell is a space on a coloured background.
func RenderPreview(preview [][]color.RGBA) string {
	if len(preview) == 0 {
		return ""
	}

	var b strings.Builder
	rule := strings.Repeat("─", len(preview[0]))

	b.WriteString("┌" + rule + "┐\n")
	for _, row := range preview {
		b.WriteString("│")
		for _, pixel := range row {
			// \x1b[48;2;R;G;Bm sets a 24-bit background colour
			fmt.Fprintf(&b, "\x1b[48;2;%d;%d;%dm \x1b[0m", pixel.R, pixel.G, pixel.B)
		}
		b.WriteString("│\n")
	}
	b.WriteString("└" + rule + "┘")

	return b.String()
}
