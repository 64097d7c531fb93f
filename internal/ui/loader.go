package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/linuxmatters/earmark/internal/audio"
	"github.com/linuxmatters/earmark/internal/renderer"
)

// Engine is the part of the playback engine the loader needs
type Engine interface {
	Load(path string) error
	File() *audio.LoadedFile
	Play() error
}

// Loader loads a file into the engine, then analyses it for the display
// and optionally starts playback
type Loader struct {
	Engine   Engine
	Analyzer *audio.SpectrumAnalyzer
	Logger   *log.Logger
	Send     func(tea.Msg)
	Autoplay bool
}

// Load runs on its own goroutine. Load errors have already been reported
// through the engine observer when it returns them.
func (l *Loader) Load(path string) error {
	if err := l.Engine.Load(path); err != nil {
		return err
	}
	file := l.Engine.File()

	builder := renderer.NewBuilder(l.Analyzer, l.Logger)
	err := builder.Load(file, func(column, totalColumns int, elapsed time.Duration) {
		l.Send(AnalysisProgress{
			Column:       column,
			TotalColumns: totalColumns,
			Elapsed:      elapsed,
		})
	})
	if err != nil {
		l.Send(PlaybackError{Err: err})
		return err
	}
	l.Send(VisualizationReady{Builder: builder})

	if l.Autoplay {
		return l.Engine.Play()
	}
	return nil
}
