package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Analysis settings
const (
	FFTLengthPowerOfTwo = 10
	FFTSize             = 1 << FFTLengthPowerOfTwo // Spectrogram analysis window
	SpectrumHeight      = FFTSize / 2              // Frequency bins per spectrogram column
)

// Playback settings
const (
	PlaybackBitsPerSample = 16
	NotifyInterval        = 100 * time.Millisecond // Device progress cadence
	SeekStep              = 5 * time.Second        // Arrow-key seek distance
	WatchDebounce         = 250 * time.Millisecond // Quiet period before a changed file reloads
)

// SupportedSampleRates is the playback whitelist. The decoder accepts any
// rate; the engine refuses to play anything else.
var SupportedSampleRates = []int{8000, 16000}

// Snapshot settings
const (
	SnapshotWidth   = 1280
	SnapshotHeight  = 720
	CaptionFontSize = 18
	CaptionMargin   = 12
)

// Appearance
const (
	// Waveform trace colour
	TraceColor = "#FFFFFF"

	// Caption colour, brand yellow #F8B31D
	TextColorR = 248
	TextColorG = 179
	TextColorB = 29
)

// ParseHexColor parses "RRGGBB" or "#RRGGBB" into its components.
func ParseHexColor(s string) (r, g, b uint8, err error) {
	hex := strings.TrimPrefix(s, "#")
	if len(hex) != 6 {
		return 0, 0, 0, fmt.Errorf("invalid colour %q: want 6 hex digits", s)
	}

	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid colour %q: %w", s, err)
	}

	return uint8(v >> 16), uint8(v >> 8), uint8(v), nil
}

// IsSupportedSampleRate reports whether rate is on the playback whitelist.
func IsSupportedSampleRate(rate int) bool {
	for _, r := range SupportedSampleRates {
		if r == rate {
			return true
		}
	}
	return false
}
