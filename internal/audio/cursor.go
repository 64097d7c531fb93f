package audio

import (
	"errors"
	"fmt"
	"io"
	"sync"
)

// ErrCursorClosed is returned when reading from a closed cursor
var ErrCursorClosed = errors.New("cursor is closed")

// Cursor is a seekable reader over the payload of a loaded file. The
// playback sink reads from it on the device goroutine while the engine
// repositions it, so every access is guarded.
//
// Seek positions are payload byte offsets, quantized down to whole frames
// and clamped to [0, Len].
type Cursor struct {
	mu     sync.Mutex
	data   []byte
	frame  int64
	pos    int64
	closed bool
}

// NewCursor creates a cursor at the start of file's payload
func NewCursor(file *LoadedFile) *Cursor {
	c := &Cursor{frame: 1}
	if file != nil && file.Samples != nil {
		c.data = file.Samples.Bytes()
		if fs := int64(file.Format.FrameSize()); fs > 0 {
			c.frame = fs
		}
	}
	return c
}

// Read implements io.Reader. It returns io.EOF once the payload is exhausted.
func (c *Cursor) Read(p []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0, ErrCursorClosed
	}
	if c.pos >= int64(len(c.data)) {
		return 0, io.EOF
	}

	n := copy(p, c.data[c.pos:])
	c.pos += int64(n)
	return n, nil
}

// Seek implements io.Seeker
func (c *Cursor) Seek(offset int64, whence int) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var abs int64
	switch whence {
	case io.SeekStart:
		abs = offset
	case io.SeekCurrent:
		abs = c.pos + offset
	case io.SeekEnd:
		abs = int64(len(c.data)) + offset
	default:
		return c.pos, fmt.Errorf("invalid whence %d", whence)
	}

	c.pos = c.clamp(abs)
	return c.pos, nil
}

func (c *Cursor) clamp(offset int64) int64 {
	if offset <= 0 {
		return 0
	}
	if n := int64(len(c.data)); offset > n {
		offset = n
	}
	return offset - offset%c.frame
}

// Pos returns the current read offset
func (c *Cursor) Pos() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos
}

// Len returns the payload length in bytes
func (c *Cursor) Len() int64 {
	return int64(len(c.data))
}

// AtEnd reports whether every byte has been read
func (c *Cursor) AtEnd() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pos >= int64(len(c.data))
}

// Close makes further reads fail with ErrCursorClosed
func (c *Cursor) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
