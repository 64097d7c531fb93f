package playback

import (
	"errors"

	"github.com/linuxmatters/earmark/internal/audio"
)

var (
	// ErrDevice is returned when the output device fails to open, start or
	// keep playing
	ErrDevice = errors.New("audio device error")

	// ErrNoFile is returned by Play when nothing is loaded
	ErrNoFile = errors.New("no file loaded")

	// ErrClosed is returned by calls on a closed engine
	ErrClosed = errors.New("engine is closed")
)

// Heading returns the user-facing title for an error dialog
func Heading(err error) string {
	switch {
	case errors.Is(err, audio.ErrFileOpen), errors.Is(err, audio.ErrFormatParse):
		return "Could not open file"
	case errors.Is(err, audio.ErrUnsupportedFormat):
		return "Audio format not supported"
	case errors.Is(err, ErrDevice):
		return "Audio device error"
	case errors.Is(err, ErrNoFile):
		return "Nothing to play"
	default:
		return "Error"
	}
}
