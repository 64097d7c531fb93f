package playback

import (
	"io"

	"github.com/linuxmatters/earmark/internal/audio"
)

// NotifyFunc receives sink notifications. Implementations must not block;
// the engine queues the event and handles it on its own goroutine.
type NotifyFunc func(DeviceEvent)

// Device creates output sinks
type Device interface {
	// Supports reports whether the device can play format
	Supports(format audio.Format) bool

	// Open acquires an output resource for format. Progress and state
	// changes are reported through notify until the sink is closed.
	Open(format audio.Format, notify NotifyFunc) (Sink, error)
}

// Sink is an acquired output resource bound to a single format.
//
// A sink reports progress while started and not suspended. Seek and the
// computation of a progress notification must be mutually exclusive, so
// that once Seek returns no notification carrying an older position can
// still be queued.
type Sink interface {
	Format() audio.Format

	// Start begins playback from r's current offset
	Start(r io.ReadSeeker) error

	// Seek repositions the stream being played and discards buffered output
	Seek(offset int64) error

	Suspend() error
	Resume() error

	// Stop halts output and drains buffered audio before returning. The
	// sink can be started again.
	Stop() error

	// Close releases the sink. No notifications follow.
	Close() error
}
