package audio

import "errors"

var (
	// ErrFileOpen is returned when the recording cannot be opened or read
	ErrFileOpen = errors.New("could not open file")

	// ErrFormatParse is returned for malformed RIFF/WAVE headers or non-PCM codecs
	ErrFormatParse = errors.New("malformed WAV file")

	// ErrUnsupportedFormat is returned when a decoded format cannot be played
	ErrUnsupportedFormat = errors.New("audio format not supported")
)
