package playback

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
	"github.com/linuxmatters/earmark/internal/audio"
)

// OtoDevice outputs through the system audio device using oto. oto allows a
// single context per process, so once a sink has been opened the device only
// supports that sample rate and channel count.
type OtoDevice struct {
	logger   *log.Logger
	interval time.Duration

	mu     sync.Mutex
	ctx    *oto.Context
	format audio.Format
}

// NewOtoDevice creates a device that reports progress every interval
func NewOtoDevice(logger *log.Logger, interval time.Duration) *OtoDevice {
	return &OtoDevice{
		logger:   logger.WithPrefix("oto"),
		interval: interval,
	}
}

// Supports reports whether format is 16-bit signed little-endian mono or
// stereo and compatible with an already created context
func (d *OtoDevice) Supports(format audio.Format) bool {
	if format.Channels < 1 || format.Channels > 2 ||
		format.BitsPerSample != 16 ||
		format.SampleType != audio.SignedInt ||
		format.ByteOrder != audio.LittleEndian ||
		format.SampleRate <= 0 {
		return false
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx == nil {
		return true
	}
	return d.format.SampleRate == format.SampleRate && d.format.Channels == format.Channels
}

// Open creates a sink for format
func (d *OtoDevice) Open(format audio.Format, notify NotifyFunc) (Sink, error) {
	ctx, err := d.context(format)
	if err != nil {
		return nil, err
	}
	return &otoSink{
		logger:   d.logger,
		ctx:      ctx,
		ctxErr:   ctx.Err,
		format:   format,
		notify:   notify,
		interval: d.interval,
	}, nil
}

func (d *OtoDevice) context(format audio.Format) (*oto.Context, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.ctx != nil {
		if d.format.SampleRate != format.SampleRate || d.format.Channels != format.Channels {
			return nil, fmt.Errorf("output already running at %dHz %dch", d.format.SampleRate, d.format.Channels)
		}
		return d.ctx, nil
	}

	op := &oto.NewContextOptions{
		SampleRate:   format.SampleRate,
		ChannelCount: format.Channels,
		Format:       oto.FormatSignedInt16LE,
	}

	ctx, readyChan, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("failed to create oto context: %w", err)
	}
	<-readyChan

	d.ctx = ctx
	d.format = format
	d.logger.Debug("audio output initialized", "rate", format.SampleRate, "channels", format.Channels)
	return ctx, nil
}

// Close suspends the audio device
func (d *OtoDevice) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctx == nil {
		return nil
	}
	return d.ctx.Suspend()
}

// outputPlayer is the part of *oto.Player a sink drives
type outputPlayer interface {
	Play()
	Pause()
	Seek(offset int64, whence int) (int64, error)
	IsPlaying() bool
	BufferedSize() int
	Err() error
	Close() error
}

// positioner is implemented by streams that can report their read offset
// without moving it
type positioner interface {
	Pos() int64
}

type otoSink struct {
	logger   *log.Logger
	ctx      *oto.Context
	ctxErr   func() error
	format   audio.Format
	notify   NotifyFunc
	interval time.Duration

	// mu serializes progress computation with Seek
	mu        sync.Mutex
	player    outputPlayer
	stream    io.ReadSeeker
	suspended bool
	stop      chan struct{}
	done      chan struct{}
}

func (s *otoSink) Format() audio.Format {
	return s.format
}

func (s *otoSink) Start(r io.ReadSeeker) error {
	s.Stop()

	if err := s.ctxErr(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.stream = r
	s.player = s.ctx.NewPlayer(r)
	s.suspended = false
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.player.Play()

	go s.watch(s.player, s.stop, s.done)
	s.notify(StateEvent(DevicePlaying, nil))
	return nil
}

func (s *otoSink) Seek(offset int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player == nil {
		return nil
	}
	_, err := s.player.Seek(offset, io.SeekStart)
	return err
}

func (s *otoSink) Suspend() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player == nil {
		return nil
	}
	s.player.Pause()
	s.suspended = true
	s.notify(StateEvent(DeviceSuspended, nil))
	return nil
}

func (s *otoSink) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player == nil {
		return nil
	}
	s.player.Play()
	s.suspended = false
	s.notify(StateEvent(DevicePlaying, nil))
	return nil
}

// Stop pauses output, waits for the watcher to exit and releases the
// player together with any audio still buffered in it
func (s *otoSink) Stop() error {
	s.mu.Lock()
	player, stop, done := s.player, s.stop, s.done
	s.player, s.stream = nil, nil
	s.mu.Unlock()

	if player == nil {
		return nil
	}

	player.Pause()
	close(stop)
	<-done
	return player.Close()
}

func (s *otoSink) Close() error {
	return s.Stop()
}

func (s *otoSink) watch(player outputPlayer, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if !s.tick(player) {
				return
			}
		}
	}
}

// tick reports progress and detects the end of the stream or a failure.
// It returns false once the watcher should exit. After an idle report the
// watcher is gone, so the sink sends nothing more until the next Start; the
// player only drains once the cursor has handed over the whole payload.
func (s *otoSink) tick(player outputPlayer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.player != player {
		return false
	}

	if err := player.Err(); err != nil {
		s.notify(StateEvent(DeviceError, err))
		return false
	}
	if err := s.ctxErr(); err != nil {
		s.notify(StateEvent(DeviceError, err))
		return false
	}
	if s.suspended {
		return true
	}

	buffered := int64(player.BufferedSize())
	read := s.streamPos()
	position := read - buffered
	if position < 0 {
		position = 0
	}
	s.notify(ProgressEvent(position))

	if !player.IsPlaying() && buffered == 0 {
		s.logger.Debug("stream drained", "position", position)
		s.notify(StateEvent(DeviceIdle, nil))
		return false
	}
	return true
}

func (s *otoSink) streamPos() int64 {
	if p, ok := s.stream.(positioner); ok {
		return p.Pos()
	}
	pos, _ := s.stream.Seek(0, io.SeekCurrent)
	return pos
}
