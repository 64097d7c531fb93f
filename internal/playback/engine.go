package playback

import (
	"fmt"
	"io"
	"runtime"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/linuxmatters/earmark/internal/audio"
)

// Config holds engine settings
type Config struct {
	Logger   *log.Logger
	Observer Observer

	// ResuspendBeforeResume suspends the sink again before resuming it.
	// The Windows backend can report a stale suspended state after it has
	// resumed internally and then ignores a plain resume.
	ResuspendBeforeResume bool
}

// DefaultConfig returns the configuration for the running platform
func DefaultConfig(logger *log.Logger, observer Observer) Config {
	return Config{
		Logger:                logger,
		Observer:              observer,
		ResuspendBeforeResume: runtime.GOOS == "windows",
	}
}

// Engine plays one loaded file through a Device.
//
// Every public call and every device notification is executed in order on
// a single engine goroutine, so playback state is never observed half
// updated. Public methods block until the engine has handled them but never
// wait for the device to acknowledge anything.
type Engine struct {
	device    Device
	decoder   *audio.WAVDecoder
	observer  Observer
	logger    *log.Logger
	resuspend bool

	mb   *mailbox
	done chan struct{}

	// Owned by the engine goroutine
	cursor   *audio.Cursor
	sink     Sink
	sinkGen  uint64
	seekMark uint64

	// Written on the engine goroutine under mu, readable from anywhere
	mu       sync.RWMutex
	file     *audio.LoadedFile
	state    State
	position int64
	lastErr  error
}

// NewEngine starts an engine that outputs through device
func NewEngine(device Device, cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	observer := cfg.Observer
	if observer == nil {
		observer = ObserverFuncs{}
	}

	e := &Engine{
		device:    device,
		decoder:   audio.NewWAVDecoder(logger),
		observer:  observer,
		logger:    logger.WithPrefix("engine"),
		resuspend: cfg.ResuspendBeforeResume,
		mb:        newMailbox(),
		done:      make(chan struct{}),
	}
	go e.run()
	return e
}

func (e *Engine) run() {
	defer close(e.done)
	for {
		batch, done := e.mb.take()
		if done {
			return
		}
		for _, env := range batch {
			env.run(env.seq)
		}
		if len(batch) == 0 {
			<-e.mb.wake
		}
	}
}

// call runs fn on the engine goroutine and waits for its result
func (e *Engine) call(fn func() error) error {
	reply := make(chan error, 1)
	if !e.mb.post(func(uint64) { reply <- fn() }) {
		return ErrClosed
	}
	return <-reply
}

// Load decodes and normalizes path on the calling goroutine, then hands the
// result to LoadFile. Decode failures are reported to the observer too.
func (e *Engine) Load(path string) error {
	file, err := e.decoder.Load(path)
	if err != nil {
		e.logger.Debug("load failed", "path", path, "err", err)
		return e.call(func() error {
			e.resetFile()
			e.fail(err)
			return err
		})
	}
	return e.LoadFile(file)
}

// LoadFile replaces the current file. Playback stops, the previous file is
// released and the new format is validated against the playback whitelist
// and the device. On failure nothing is loaded.
func (e *Engine) LoadFile(file *audio.LoadedFile) error {
	return e.call(func() error { return e.loadFile(file) })
}

// Play starts playback from the current position, or resumes it
func (e *Engine) Play() error {
	return e.call(e.play)
}

// Suspend pauses playback, keeping the position
func (e *Engine) Suspend() error {
	return e.call(func() error {
		if e.state != Playing {
			return nil
		}
		if err := e.sink.Suspend(); err != nil {
			return e.deviceFailure(fmt.Errorf("%w: suspend: %w", ErrDevice, err))
		}
		e.setState(Suspended)
		return nil
	})
}

// Stop halts playback and rewinds to the start
func (e *Engine) Stop() error {
	return e.call(func() error {
		e.stopPlayback()
		return nil
	})
}

// Seek moves the play position to the frame containing position, clamped to
// the payload. The new position is published immediately.
func (e *Engine) Seek(position int64) error {
	return e.call(func() error { return e.seek(position) })
}

// Reset stops playback, releases the device and unloads the file
func (e *Engine) Reset() error {
	return e.call(func() error {
		e.resetFile()
		e.closeSink()
		return nil
	})
}

// Close resets the engine and stops its goroutine. Further calls return
// ErrClosed.
func (e *Engine) Close() error {
	err := e.call(func() error {
		e.resetFile()
		e.closeSink()
		e.mb.close()
		return nil
	})
	if err != nil {
		return err
	}
	<-e.done
	return nil
}

// State returns the current playback state
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Position returns the current frame-aligned payload offset
func (e *Engine) Position() int64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.position
}

// File returns the loaded file, or nil
func (e *Engine) File() *audio.LoadedFile {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.file
}

// LastError returns the most recent error reported to the observer
func (e *Engine) LastError() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.lastErr
}

func (e *Engine) loadFile(file *audio.LoadedFile) error {
	e.resetFile()

	if err := e.checkFormat(file.Format); err != nil {
		e.fail(err)
		return err
	}
	if err := e.acquireSink(file.Format); err != nil {
		e.fail(err)
		return err
	}

	e.mu.Lock()
	e.file = file
	e.lastErr = nil
	e.mu.Unlock()
	e.cursor = audio.NewCursor(file)

	e.logger.Debug("file loaded",
		"id", file.ID,
		"name", file.Name,
		"format", file.Format,
		"payload", file.PayloadLength())

	e.observer.FileChanged(file)
	e.setPosition(0, true)
	return nil
}

func (e *Engine) checkFormat(format audio.Format) error {
	if err := format.CheckPlayable(); err != nil {
		return err
	}
	if !e.device.Supports(format) {
		return fmt.Errorf("%w: %s: rejected by output device", audio.ErrUnsupportedFormat, format)
	}
	return nil
}

// acquireSink opens a sink for format unless the current one already
// matches it
func (e *Engine) acquireSink(format audio.Format) error {
	if e.sink != nil && e.sink.Format() == format {
		return nil
	}
	e.closeSink()

	e.sinkGen++
	gen := e.sinkGen
	notify := func(ev DeviceEvent) {
		e.mb.post(func(seq uint64) { e.handleDeviceEvent(gen, seq, ev) })
	}

	sink, err := e.device.Open(format, notify)
	if err != nil {
		return fmt.Errorf("%w: open %s: %w", ErrDevice, format, err)
	}
	e.sink = sink
	e.logger.Debug("sink opened", "format", format, "generation", gen)
	return nil
}

func (e *Engine) closeSink() {
	if e.sink == nil {
		return
	}
	if err := e.sink.Close(); err != nil {
		e.logger.Debug("sink close failed", "err", err)
	}
	e.sink = nil
	// Late notifications from the old sink carry a stale generation
	e.sinkGen++
}

func (e *Engine) play() error {
	if e.file == nil {
		return ErrNoFile
	}

	switch e.state {
	case Playing:
		return nil

	case Suspended:
		if e.resuspend {
			if err := e.sink.Suspend(); err != nil {
				return e.deviceFailure(fmt.Errorf("%w: re-suspend: %w", ErrDevice, err))
			}
		}
		if err := e.sink.Resume(); err != nil {
			return e.deviceFailure(fmt.Errorf("%w: resume: %w", ErrDevice, err))
		}
		e.setState(Playing)
		return nil
	}

	if err := e.checkFormat(e.file.Format); err != nil {
		e.fail(err)
		return err
	}
	if err := e.acquireSink(e.file.Format); err != nil {
		e.fail(err)
		return err
	}

	e.setPosition(e.position, true)
	if _, err := e.cursor.Seek(e.position, io.SeekStart); err != nil {
		return e.deviceFailure(fmt.Errorf("%w: %w", ErrDevice, err))
	}
	if err := e.sink.Start(e.cursor); err != nil {
		return e.deviceFailure(fmt.Errorf("%w: start: %w", ErrDevice, err))
	}
	e.seekMark = e.mb.lastSeq()
	e.setState(Playing)
	return nil
}

func (e *Engine) seek(position int64) error {
	if e.file == nil {
		return nil
	}

	position = e.clamp(position)
	if e.sink != nil && e.state != Stopped {
		if err := e.sink.Seek(position); err != nil {
			return e.deviceFailure(fmt.Errorf("%w: seek: %w", ErrDevice, err))
		}
		// Progress queued before this point describes the old position
		e.seekMark = e.mb.lastSeq()
	} else if _, err := e.cursor.Seek(position, io.SeekStart); err != nil {
		return err
	}

	e.setPosition(position, true)
	return nil
}

// clamp bounds position to the payload and aligns it to a frame
func (e *Engine) clamp(position int64) int64 {
	if n := e.file.PayloadLength(); position > n {
		position = n
	}
	return e.file.Format.AlignDown(position)
}

// stopPlayback drains the sink, then rewinds. Observers see Stopped before
// the position reset.
func (e *Engine) stopPlayback() {
	if e.sink != nil && e.state != Stopped {
		if err := e.sink.Stop(); err != nil {
			e.logger.Debug("sink stop failed", "err", err)
		}
	}
	e.seekMark = e.mb.lastSeq()
	e.setState(Stopped)
	if e.cursor != nil {
		e.cursor.Seek(0, io.SeekStart)
	}
	e.setPosition(0, false)
}

// resetFile stops playback and forgets the current file. The sink is kept
// for reuse by the next file.
func (e *Engine) resetFile() {
	e.stopPlayback()
	if e.cursor != nil {
		e.cursor.Close()
		e.cursor = nil
	}

	e.mu.Lock()
	had := e.file != nil
	e.file = nil
	e.mu.Unlock()

	if had {
		e.observer.FileChanged(nil)
	}
}

// deviceFailure tears down the sink after a runtime error. The file stays
// loaded and the next Play opens a fresh sink.
func (e *Engine) deviceFailure(err error) error {
	e.logger.Debug("device failure", "err", err)
	e.closeSink()
	e.setState(Stopped)
	if e.cursor != nil {
		e.cursor.Seek(0, io.SeekStart)
	}
	e.setPosition(0, false)
	e.fail(err)
	return err
}

func (e *Engine) fail(err error) {
	e.mu.Lock()
	e.lastErr = err
	e.mu.Unlock()
	e.observer.Error(err)
}

func (e *Engine) handleDeviceEvent(gen, seq uint64, ev DeviceEvent) {
	if gen != e.sinkGen {
		return
	}

	switch ev.Kind {
	case EventProgress:
		if e.state != Playing || seq <= e.seekMark || e.file == nil {
			return
		}
		position := e.clamp(ev.Position)
		if position < e.position {
			return
		}
		e.setPosition(position, false)

	case EventState:
		e.logger.Debug("device state", "state", ev.State, "engine", e.state)
		switch ev.State {
		case DeviceIdle:
			// A sink goes idle only once the cursor is exhausted and it has
			// stopped reporting; anything else would leave Playing stuck
			if e.state == Playing && e.cursor != nil && e.cursor.AtEnd() {
				e.stopPlayback()
			} else if e.state == Playing {
				e.logger.Warn("device idle before end of payload", "position", e.position)
			}
		case DeviceError:
			if e.state == Stopped {
				return
			}
			err := ev.Err
			if err == nil {
				err = fmt.Errorf("%w: playback stopped", ErrDevice)
			} else {
				err = fmt.Errorf("%w: %w", ErrDevice, err)
			}
			e.deviceFailure(err)
		case DeviceStopped:
			if e.state != Stopped {
				e.setState(Stopped)
			}
		}
	}
}

func (e *Engine) setState(state State) {
	if e.state == state {
		return
	}
	e.mu.Lock()
	e.state = state
	e.mu.Unlock()
	e.observer.StateChanged(state)
}

func (e *Engine) setPosition(position int64, force bool) {
	changed := e.position != position
	if changed {
		e.mu.Lock()
		e.position = position
		e.mu.Unlock()
	}
	if changed || force {
		e.observer.PositionChanged(position)
	}
}
