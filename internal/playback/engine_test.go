package playback

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/linuxmatters/earmark/internal/audio"
)

// fakeDevice records what the engine asks of it. Tests drive notifications
// through the notify function of the most recently opened sink.
type fakeDevice struct {
	mu       sync.Mutex
	reject   bool
	openErr  error
	opened   []*fakeSink
	onSeek   func(s *fakeSink, offset int64)
	supports []audio.Format
}

func (d *fakeDevice) Supports(format audio.Format) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.supports = append(d.supports, format)
	return !d.reject
}

func (d *fakeDevice) Open(format audio.Format, notify NotifyFunc) (Sink, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.openErr != nil {
		return nil, d.openErr
	}
	s := &fakeSink{device: d, format: format, notify: notify}
	d.opened = append(d.opened, s)
	return s, nil
}

func (d *fakeDevice) last() *fakeSink {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.opened) == 0 {
		return nil
	}
	return d.opened[len(d.opened)-1]
}

func (d *fakeDevice) openCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.opened)
}

type fakeSink struct {
	device *fakeDevice
	format audio.Format
	notify NotifyFunc

	mu     sync.Mutex
	stream io.ReadSeeker
	calls  []string
	closed bool
}

func (s *fakeSink) record(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *fakeSink) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *fakeSink) Format() audio.Format { return s.format }

func (s *fakeSink) Start(r io.ReadSeeker) error {
	s.mu.Lock()
	s.stream = r
	s.mu.Unlock()
	s.record("start")
	return nil
}

func (s *fakeSink) Seek(offset int64) error {
	s.record("seek")
	if s.device.onSeek != nil {
		s.device.onSeek(s, offset)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.stream.Seek(offset, io.SeekStart)
	return err
}

func (s *fakeSink) Suspend() error { s.record("suspend"); return nil }
func (s *fakeSink) Resume() error  { s.record("resume"); return nil }
func (s *fakeSink) Stop() error    { s.record("stop"); return nil }

func (s *fakeSink) Close() error {
	s.record("close")
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

// drain consumes the rest of the stream as the hardware would
func (s *fakeSink) drain() {
	s.mu.Lock()
	defer s.mu.Unlock()
	io.Copy(io.Discard, s.stream)
}

// recorder collects observer notifications in delivery order
type recorder struct {
	mu     sync.Mutex
	events []string
	pos    []int64
	states []State
	errs   []error
	files  []*audio.LoadedFile
}

func (r *recorder) FileChanged(file *audio.LoadedFile) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "file")
	r.files = append(r.files, file)
}

func (r *recorder) StateChanged(state State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "state:"+state.String())
	r.states = append(r.states, state)
}

func (r *recorder) PositionChanged(position int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "position")
	r.pos = append(r.pos, position)
}

func (r *recorder) Error(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "error")
	r.errs = append(r.errs, err)
}

func (r *recorder) positions() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.pos...)
}

func (r *recorder) stateList() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func (r *recorder) errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events, r.pos, r.states, r.errs, r.files = nil, nil, nil, nil, nil
}

// wavBytes renders a little-endian 16-bit PCM WAV image
func wavBytes(rate, channels int, samples []int16) []byte {
	data := make([]byte, 44+2*len(samples))
	copy(data[0:], "RIFF")
	binary.LittleEndian.PutUint32(data[4:], uint32(len(data)-8))
	copy(data[8:], "WAVEfmt ")
	binary.LittleEndian.PutUint32(data[16:], 16)
	binary.LittleEndian.PutUint16(data[20:], 1)
	binary.LittleEndian.PutUint16(data[22:], uint16(channels))
	binary.LittleEndian.PutUint32(data[24:], uint32(rate))
	binary.LittleEndian.PutUint32(data[28:], uint32(rate*channels*2))
	binary.LittleEndian.PutUint16(data[32:], uint16(channels*2))
	binary.LittleEndian.PutUint16(data[34:], 16)
	copy(data[36:], "data")
	binary.LittleEndian.PutUint32(data[40:], uint32(2*len(samples)))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[44+2*i:], uint16(s))
	}
	return data
}

func loadedFile(t *testing.T, rate, channels, frames int) *audio.LoadedFile {
	t.Helper()

	samples := make([]int16, frames*channels)
	for i := range samples {
		samples[i] = int16((i%200 - 100) * 100)
	}
	file, err := audio.NewWAVDecoder(quietLogger()).LoadSource("fixture.wav",
		audio.NewMemorySource(wavBytes(rate, channels, samples)))
	if err != nil {
		t.Fatalf("LoadSource() error = %v", err)
	}
	return file
}

func quietLogger() *log.Logger {
	return log.New(io.Discard)
}

func newTestEngine(t *testing.T, device *fakeDevice) (*Engine, *recorder) {
	t.Helper()

	rec := &recorder{}
	e := NewEngine(device, Config{Logger: quietLogger(), Observer: rec})
	t.Cleanup(func() { e.Close() })
	return e, rec
}

// flush waits until every notification posted so far has been handled
func flush(e *Engine) {
	e.call(func() error { return nil })
}

func TestEngine_LoadStartsStoppedAtZero(t *testing.T) {
	device := &fakeDevice{}
	e, rec := newTestEngine(t, device)

	file := loadedFile(t, 8000, 1, 1000)
	if err := e.LoadFile(file); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	if e.State() != Stopped {
		t.Errorf("State() = %v, want Stopped", e.State())
	}
	if e.Position() != 0 {
		t.Errorf("Position() = %d, want 0", e.Position())
	}
	if e.File() != file {
		t.Error("File() is not the loaded file")
	}
	if got := rec.positions(); len(got) != 1 || got[0] != 0 {
		t.Errorf("published positions = %v, want [0]", got)
	}
	if device.openCount() != 1 {
		t.Errorf("device opened %d times, want 1", device.openCount())
	}
}

func TestEngine_StateTable(t *testing.T) {
	device := &fakeDevice{}
	e, rec := newTestEngine(t, device)

	if err := e.Play(); !errors.Is(err, ErrNoFile) {
		t.Errorf("Play() without file = %v, want ErrNoFile", err)
	}

	if err := e.LoadFile(loadedFile(t, 16000, 2, 4000)); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	sink := device.last()

	steps := []struct {
		name  string
		do    func() error
		want  State
		calls []string
	}{
		{"suspend while stopped is a no-op", e.Suspend, Stopped, nil},
		{"play from stopped starts", e.Play, Playing, []string{"start"}},
		{"play while playing is a no-op", e.Play, Playing, []string{"start"}},
		{"suspend while playing", e.Suspend, Suspended, []string{"start", "suspend"}},
		{"suspend while suspended is a no-op", e.Suspend, Suspended, []string{"start", "suspend"}},
		{"play while suspended resumes", e.Play, Playing, []string{"start", "suspend", "resume"}},
		{"stop drains", e.Stop, Stopped, []string{"start", "suspend", "resume", "stop"}},
	}

	for _, step := range steps {
		if err := step.do(); err != nil {
			t.Fatalf("%s: error = %v", step.name, err)
		}
		if e.State() != step.want {
			t.Errorf("%s: State() = %v, want %v", step.name, e.State(), step.want)
		}
		if got := sink.Calls(); !slices.Equal(got, step.calls) {
			t.Errorf("%s: sink calls = %v, want %v", step.name, got, step.calls)
		}
	}

	want := []State{Playing, Suspended, Playing, Stopped}
	if got := rec.stateList(); !slices.Equal(got, want) {
		t.Errorf("state notifications = %v, want %v", got, want)
	}
}

func TestEngine_ResuspendBeforeResume(t *testing.T) {
	device := &fakeDevice{}
	rec := &recorder{}
	e := NewEngine(device, Config{Logger: quietLogger(), Observer: rec, ResuspendBeforeResume: true})
	defer e.Close()

	if err := e.LoadFile(loadedFile(t, 8000, 1, 1000)); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	e.Play()
	e.Suspend()
	e.Play()

	want := []string{"start", "suspend", "suspend", "resume"}
	if got := device.last().Calls(); !slices.Equal(got, want) {
		t.Errorf("sink calls = %v, want %v", got, want)
	}
	if e.State() != Playing {
		t.Errorf("State() = %v, want Playing", e.State())
	}
}

// TestEngine_SeekQuantizesAndClamps checks that any requested position,
// including negative and out-of-range ones, publishes a frame-aligned offset
// within the payload.
func TestEngine_SeekQuantizesAndClamps(t *testing.T) {
	device := &fakeDevice{}
	e, rec := newTestEngine(t, device)

	file := loadedFile(t, 16000, 2, 1000) // 4000 bytes, 4-byte frames
	if err := e.LoadFile(file); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	tests := []struct {
		request int64
		want    int64
	}{
		{0, 0},
		{4, 4},
		{7, 4},
		{2001, 2000},
		{-1, 0},
		{-1 << 40, 0},
		{3999, 3996},
		{4000, 4000},
		{1 << 40, 4000},
	}

	for _, playing := range []bool{false, true} {
		if playing {
			if err := e.Play(); err != nil {
				t.Fatalf("Play() error = %v", err)
			}
		}
		for _, tt := range tests {
			rec.reset()
			if err := e.Seek(tt.request); err != nil {
				t.Fatalf("Seek(%d) error = %v", tt.request, err)
			}

			got := rec.positions()
			if len(got) != 1 || got[0] != tt.want {
				t.Errorf("playing=%v Seek(%d) published %v, want [%d]", playing, tt.request, got, tt.want)
			}
			if e.Position() != tt.want {
				t.Errorf("playing=%v Seek(%d): Position() = %d, want %d", playing, tt.request, e.Position(), tt.want)
			}
			if e.Position()%int64(file.Format.FrameSize()) != 0 || e.Position() > file.PayloadLength() {
				t.Errorf("position %d is not an aligned payload offset", e.Position())
			}
		}
	}
}

// TestEngine_ProgressMonotonicAcrossSeek simulates a progress tick that was
// computed before a seek but queued while it was being applied. The stale
// position must never be published.
func TestEngine_ProgressMonotonicAcrossSeek(t *testing.T) {
	device := &fakeDevice{}
	e, rec := newTestEngine(t, device)

	if err := e.LoadFile(loadedFile(t, 8000, 1, 10000)); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if err := e.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	sink := device.last()
	rec.reset()

	sink.notify(ProgressEvent(1000))
	sink.notify(ProgressEvent(3001))
	sink.notify(ProgressEvent(2000)) // out of order, ignored
	flush(e)

	device.onSeek = func(s *fakeSink, offset int64) {
		s.notify(ProgressEvent(5000))
	}
	if err := e.Seek(400); err != nil {
		t.Fatalf("Seek() error = %v", err)
	}
	device.onSeek = nil

	sink.notify(ProgressEvent(600))
	sink.notify(ProgressEvent(1 << 30))
	flush(e)

	want := []int64{1000, 3000, 400, 600, 20000}
	if got := rec.positions(); !slices.Equal(got, want) {
		t.Errorf("published positions = %v, want %v", got, want)
	}
}

func TestEngine_ProgressIgnoredUnlessPlaying(t *testing.T) {
	device := &fakeDevice{}
	e, rec := newTestEngine(t, device)

	if err := e.LoadFile(loadedFile(t, 8000, 1, 1000)); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	e.Play()
	e.Suspend()
	rec.reset()

	device.last().notify(ProgressEvent(800))
	flush(e)

	if got := rec.positions(); len(got) != 0 {
		t.Errorf("progress while suspended published %v", got)
	}
}

// TestEngine_EndOfBuffer plays to the end and checks for exactly one
// transition to Stopped, delivered before the position reset, and silence
// afterwards until the next Play.
func TestEngine_EndOfBuffer(t *testing.T) {
	device := &fakeDevice{}
	e, rec := newTestEngine(t, device)

	file := loadedFile(t, 8000, 1, 1000)
	if err := e.LoadFile(file); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if err := e.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	sink := device.last()
	sink.drain()
	rec.reset()

	sink.notify(ProgressEvent(file.PayloadLength()))
	sink.notify(StateEvent(DeviceIdle, nil))
	sink.notify(StateEvent(DeviceIdle, nil))
	sink.notify(ProgressEvent(file.PayloadLength()))
	flush(e)

	rec.mu.Lock()
	events := append([]string(nil), rec.events...)
	rec.mu.Unlock()

	want := []string{"position", "state:Stopped", "position"}
	if !slices.Equal(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
	if got := rec.positions(); !slices.Equal(got, []int64{file.PayloadLength(), 0}) {
		t.Errorf("positions = %v, want [%d 0]", got, file.PayloadLength())
	}
	if e.State() != Stopped || e.Position() != 0 {
		t.Errorf("State/Position = %v/%d, want Stopped/0", e.State(), e.Position())
	}
	if calls := sink.Calls(); calls[len(calls)-1] != "stop" {
		t.Errorf("sink calls = %v, want a final stop", calls)
	}

	if err := e.Play(); err != nil {
		t.Fatalf("second Play() error = %v", err)
	}
	if e.State() != Playing {
		t.Errorf("State() after replay = %v, want Playing", e.State())
	}
}

func TestEngine_IdleBeforeEndIsIgnored(t *testing.T) {
	device := &fakeDevice{}
	var logs bytes.Buffer
	e := NewEngine(device, Config{Logger: log.New(&logs), Observer: &recorder{}})
	t.Cleanup(func() { e.Close() })

	if err := e.LoadFile(loadedFile(t, 8000, 1, 1000)); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	e.Play()

	device.last().notify(StateEvent(DeviceIdle, nil))
	flush(e)

	if e.State() != Playing {
		t.Errorf("State() = %v, want Playing after an underrun", e.State())
	}
	if !strings.Contains(logs.String(), "device idle before end of payload") {
		t.Errorf("early idle not logged, got %q", logs.String())
	}
}

// TestEngine_DeviceErrorResets checks that a runtime failure tears the sink
// down, keeps the file, reports ErrDevice and that Play reopens the device.
func TestEngine_DeviceErrorResets(t *testing.T) {
	device := &fakeDevice{}
	e, rec := newTestEngine(t, device)

	file := loadedFile(t, 8000, 1, 1000)
	if err := e.LoadFile(file); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	e.Play()
	e.Seek(800)
	sink := device.last()

	sink.notify(StateEvent(DeviceError, errors.New("underrun")))
	flush(e)

	if e.State() != Stopped || e.Position() != 0 {
		t.Errorf("State/Position = %v/%d, want Stopped/0", e.State(), e.Position())
	}
	if e.File() != file {
		t.Error("file was unloaded by a device error")
	}
	errs := rec.errors()
	if len(errs) != 1 || !errors.Is(errs[0], ErrDevice) {
		t.Errorf("reported errors = %v, want one ErrDevice", errs)
	}
	if !errors.Is(e.LastError(), ErrDevice) {
		t.Errorf("LastError() = %v, want ErrDevice", e.LastError())
	}
	if calls := sink.Calls(); calls[len(calls)-1] != "close" {
		t.Errorf("sink calls = %v, want close last", calls)
	}

	// Notifications from the torn-down sink are stale
	sink.notify(ProgressEvent(400))
	flush(e)
	if e.Position() != 0 {
		t.Errorf("stale progress moved position to %d", e.Position())
	}

	if err := e.Play(); err != nil {
		t.Fatalf("Play() after device error = %v", err)
	}
	if device.openCount() != 2 {
		t.Errorf("device opened %d times, want 2", device.openCount())
	}
}

func TestEngine_SinkReusedForSameFormat(t *testing.T) {
	device := &fakeDevice{}
	e, _ := newTestEngine(t, device)

	if err := e.LoadFile(loadedFile(t, 8000, 1, 1000)); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	if err := e.LoadFile(loadedFile(t, 8000, 1, 2000)); err != nil {
		t.Fatalf("second LoadFile() error = %v", err)
	}
	if device.openCount() != 1 {
		t.Errorf("device opened %d times for the same format, want 1", device.openCount())
	}

	first := device.last()
	if err := e.LoadFile(loadedFile(t, 16000, 2, 1000)); err != nil {
		t.Fatalf("third LoadFile() error = %v", err)
	}
	if device.openCount() != 2 {
		t.Errorf("device opened %d times after a format change, want 2", device.openCount())
	}
	if calls := first.Calls(); len(calls) == 0 || calls[len(calls)-1] != "close" {
		t.Errorf("old sink calls = %v, want close", calls)
	}
}

func TestEngine_LoadWhilePlayingStopsFirst(t *testing.T) {
	device := &fakeDevice{}
	e, rec := newTestEngine(t, device)

	if err := e.LoadFile(loadedFile(t, 8000, 1, 1000)); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	e.Play()
	e.Seek(100)
	rec.reset()

	next := loadedFile(t, 8000, 1, 500)
	if err := e.LoadFile(next); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}

	rec.mu.Lock()
	events := append([]string(nil), rec.events...)
	files := append([]*audio.LoadedFile(nil), rec.files...)
	rec.mu.Unlock()

	want := []string{"state:Stopped", "position", "file", "file", "position"}
	if !slices.Equal(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
	if len(files) != 2 || files[0] != nil || files[1] != next {
		t.Errorf("file notifications = %v, want [nil next]", files)
	}
}

// TestEngine_UnsupportedFormats checks the playback whitelist: a 44.1 kHz
// file decodes but cannot be loaded for playback.
func TestEngine_UnsupportedFormats(t *testing.T) {
	device := &fakeDevice{}
	e, rec := newTestEngine(t, device)

	file := loadedFile(t, 44100, 2, 1000)
	err := e.LoadFile(file)
	if !errors.Is(err, audio.ErrUnsupportedFormat) {
		t.Fatalf("LoadFile(44100 Hz) = %v, want ErrUnsupportedFormat", err)
	}
	if e.File() != nil {
		t.Error("unsupported file was loaded")
	}
	if device.openCount() != 0 {
		t.Error("device opened for an unsupported format")
	}
	if errs := rec.errors(); len(errs) != 1 || Heading(errs[0]) != "Audio format not supported" {
		t.Errorf("reported errors = %v", errs)
	}
	if err := e.Play(); !errors.Is(err, ErrNoFile) {
		t.Errorf("Play() = %v, want ErrNoFile", err)
	}

	device.reject = true
	if err := e.LoadFile(loadedFile(t, 8000, 1, 100)); !errors.Is(err, audio.ErrUnsupportedFormat) {
		t.Errorf("LoadFile() with rejecting device = %v, want ErrUnsupportedFormat", err)
	}
}

func TestEngine_OpenFailure(t *testing.T) {
	device := &fakeDevice{openErr: errors.New("no device")}
	e, _ := newTestEngine(t, device)

	err := e.LoadFile(loadedFile(t, 8000, 1, 100))
	if !errors.Is(err, ErrDevice) {
		t.Errorf("LoadFile() = %v, want ErrDevice", err)
	}
	if e.File() != nil {
		t.Error("file loaded without a device")
	}
}

func TestEngine_LoadPath(t *testing.T) {
	device := &fakeDevice{}
	e, rec := newTestEngine(t, device)

	dir := t.TempDir()
	if err := e.Load(filepath.Join(dir, "missing.wav")); !errors.Is(err, audio.ErrFileOpen) {
		t.Errorf("Load(missing) = %v, want ErrFileOpen", err)
	}

	path := filepath.Join(dir, "ok.wav")
	if err := os.WriteFile(path, wavBytes(16000, 1, []int16{0, 10, -20, 5}), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := e.Load(path); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if e.File() == nil || e.File().Name != path {
		t.Errorf("File() = %v, want %s", e.File(), path)
	}
	if errs := rec.errors(); len(errs) != 1 || Heading(errs[0]) != "Could not open file" {
		t.Errorf("reported errors = %v", errs)
	}
}

func TestEngine_ResetAndClose(t *testing.T) {
	device := &fakeDevice{}
	e := NewEngine(device, Config{Logger: quietLogger()})

	if err := e.LoadFile(loadedFile(t, 8000, 1, 100)); err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	e.Play()
	if err := e.Reset(); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if e.File() != nil || e.State() != Stopped {
		t.Errorf("after Reset: file %v state %v", e.File(), e.State())
	}

	if err := e.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := e.Play(); !errors.Is(err, ErrClosed) {
		t.Errorf("Play() after Close = %v, want ErrClosed", err)
	}
	if err := e.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close() = %v, want ErrClosed", err)
	}
}

func TestHeading(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{audio.ErrFileOpen, "Could not open file"},
		{audio.ErrFormatParse, "Could not open file"},
		{audio.ErrUnsupportedFormat, "Audio format not supported"},
		{ErrDevice, "Audio device error"},
		{errors.New("other"), "Error"},
	}
	for _, tt := range tests {
		if got := Heading(tt.err); got != tt.want {
			t.Errorf("Heading(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
