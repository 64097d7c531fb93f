package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/linuxmatters/earmark/internal/audio"
	"github.com/linuxmatters/earmark/internal/playback"
	"github.com/linuxmatters/earmark/internal/renderer"
)

// FileChanged reports a newly loaded file, or nil after a reset
type FileChanged struct {
	File *audio.LoadedFile
}

// StateChanged reports a playback state transition
type StateChanged struct {
	State playback.State
}

// PositionChanged reports the play position as a payload offset
type PositionChanged struct {
	Position int64
}

// PlaybackError reports an error raised by the engine
type PlaybackError struct {
	Err error
}

// AnalysisProgress represents spectrogram progress for a new file
type AnalysisProgress struct {
	Column       int
	TotalColumns int
	Elapsed      time.Duration
}

// VisualizationReady hands over a builder holding the new file's
// spectrogram. The model owns it from then on.
type VisualizationReady struct {
	Builder *renderer.Builder
}

// NewObserver forwards engine notifications to send, typically
// (*tea.Program).Send. send may block until the program reads the message,
// so the model never calls the engine from Update directly.
func NewObserver(send func(tea.Msg)) playback.Observer {
	return playback.ObserverFuncs{
		OnFileChanged:     func(f *audio.LoadedFile) { send(FileChanged{File: f}) },
		OnStateChanged:    func(s playback.State) { send(StateChanged{State: s}) },
		OnPositionChanged: func(p int64) { send(PositionChanged{Position: p}) },
		OnError:           func(err error) { send(PlaybackError{Err: err}) },
	}
}
