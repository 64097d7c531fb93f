package audio

import (
	"bytes"
	"fmt"
	"io"
	"os"
)

// ByteSource is the random-access input the WAV decoder consumes. Files,
// in-memory buffers and test doubles all satisfy it.
type ByteSource interface {
	io.Reader
	io.Seeker

	// Size returns the total length of the stream in bytes
	Size() int64
}

// FileSource is a ByteSource backed by a file on disk
type FileSource struct {
	*os.File
	size int64
}

// OpenFile opens path for decoding. Failures wrap ErrFileOpen.
func OpenFile(path string) (*FileSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFileOpen, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %w", ErrFileOpen, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%w: %s is a directory", ErrFileOpen, path)
	}

	return &FileSource{File: f, size: info.Size()}, nil
}

// Size returns the file length captured at open time
func (s *FileSource) Size() int64 {
	return s.size
}

// NewMemorySource wraps an in-memory WAV image
func NewMemorySource(data []byte) ByteSource {
	return bytes.NewReader(data)
}
