package ui

import (
	"fmt"
	"image/color"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/linuxmatters/earmark/internal/audio"
	"github.com/linuxmatters/earmark/internal/cli"
	"github.com/linuxmatters/earmark/internal/config"
	"github.com/linuxmatters/earmark/internal/playback"
	"github.com/linuxmatters/earmark/internal/renderer"
)

// Player is the part of the playback engine the model drives
type Player interface {
	Play() error
	Suspend() error
	Stop() error
	Seek(position int64) error
}

// panelLeft is the column of the first panel cell: outer border, two cells
// of padding, then the panel frame
const panelLeft = 4

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(cli.Amber)

	faintStyle = lipgloss.NewStyle().Faint(true)

	stateStyles = map[playback.State]lipgloss.Style{
		playback.Stopped:   lipgloss.NewStyle().Foreground(cli.WarmGray),
		playback.Playing:   lipgloss.NewStyle().Bold(true).Foreground(cli.Amber),
		playback.Suspended: lipgloss.NewStyle().Foreground(cli.Copper),
	}

	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(cli.Rust)

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(cli.Copper).
			Padding(1, 2)
)

// Model is the terminal player. Engine notifications arrive as messages;
// engine calls are issued from commands so Update never waits on the
// engine.
type Model struct {
	player      Player
	keys        keyMap
	help        help.Model
	progressBar progress.Model
	traceColor  color.RGBA

	file     *audio.LoadedFile
	state    playback.State
	position int64
	err      error
	analysis AnalysisProgress

	builder *renderer.Builder
	frame   *renderer.Frame

	preview       PreviewConfig
	cachedPreview string
	cachedColumn  int
	quitting      bool
}

// NewModel creates a player model driving player
func NewModel(player Player, traceColor color.RGBA) *Model {
	m := &Model{
		player: player,
		keys:   newKeyMap(),
		help:   help.New(),
		progressBar: progress.New(
			progress.WithGradient(string(cli.Rust), string(cli.Amber)),
			progress.WithoutPercentage(),
		),
		traceColor:   traceColor,
		cachedColumn: -1,
	}
	m.resize(DefaultPreviewConfig())
	return m
}

// Init initializes the model
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		m.resize(PreviewConfig{
			Width:  max(16, msg.Width-10),
			Height: min(max(4, msg.Height-14), 32),
		})
		return m, nil

	case FileChanged:
		m.file = msg.File
		m.position = 0
		m.builder = nil
		m.analysis = AnalysisProgress{}
		if msg.File != nil {
			m.err = nil
		}
		m.refreshPreview(true)
		return m, nil

	case StateChanged:
		m.state = msg.State
		if msg.State == playback.Playing {
			m.err = nil
		}
		return m, nil

	case PositionChanged:
		m.position = msg.Position
		m.refreshPreview(false)
		return m, nil

	case PlaybackError:
		m.err = msg.Err
		return m, nil

	case AnalysisProgress:
		m.analysis = msg
		return m, nil

	case VisualizationReady:
		// Ignore results for a file that has since been replaced
		if msg.Builder == nil || msg.Builder.File() != m.file {
			return m, nil
		}
		m.builder = msg.Builder
		m.resizeBuilder()
		m.refreshPreview(true)
		return m, nil

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft {
			return m, m.seekToColumn(msg.X)
		}

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Toggle):
			if m.state == playback.Playing {
				return m, m.run(m.player.Suspend)
			}
			return m, m.run(m.player.Play)
		case key.Matches(msg, m.keys.Stop):
			return m, m.run(m.player.Stop)
		case key.Matches(msg, m.keys.Back):
			return m, m.seekBy(-1)
		case key.Matches(msg, m.keys.Forward):
			return m, m.seekBy(1)
		case key.Matches(msg, m.keys.Start):
			return m, m.seek(0)
		}
	}

	return m, nil
}

// View renders the UI
func (m *Model) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder

	s.WriteString(titleStyle.Render("Earmark"))
	s.WriteString("\n")
	if m.file == nil {
		s.WriteString(faintStyle.Render("No file loaded"))
	} else {
		s.WriteString(filepath.Base(m.file.Name))
		s.WriteString("  ")
		s.WriteString(faintStyle.Render(m.file.Format.String()))
	}
	s.WriteString("\n\n")

	m.renderPanel(&s)
	s.WriteString("\n")

	// Leading space lines the bar up with the panel cells
	s.WriteString(" ")
	s.WriteString(m.progressBar.ViewAs(m.fraction()))
	s.WriteString("  ")
	s.WriteString(m.positionText())
	s.WriteString("\n")

	style, ok := stateStyles[m.state]
	if !ok {
		style = faintStyle
	}
	s.WriteString(style.Render(m.state.String()))

	if m.err != nil {
		s.WriteString("\n")
		s.WriteString(errorStyle.Render(playback.Heading(m.err) + ":"))
		s.WriteString(" ")
		s.WriteString(m.err.Error())
	}

	s.WriteString("\n\n")
	s.WriteString(m.help.View(m.keys))

	return boxStyle.Render(s.String())
}

func (m *Model) renderPanel(s *strings.Builder) {
	switch {
	case m.cachedPreview != "":
		s.WriteString(m.cachedPreview)
	case m.file != nil && m.analysis.TotalColumns > 0:
		fmt.Fprintf(s, "Analysing spectrogram... %d/%d columns  %s",
			m.analysis.Column, m.analysis.TotalColumns, formatDuration(m.analysis.Elapsed))
	case m.file != nil:
		s.WriteString(faintStyle.Render("Analysing spectrogram..."))
	default:
		s.WriteString(faintStyle.Render("Nothing to show"))
	}
	s.WriteString("\n")
}

// positionText renders the position and duration in milliseconds
func (m *Model) positionText() string {
	if m.file == nil {
		return faintStyle.Render("0 / 0 ms")
	}
	return fmt.Sprintf("%d / %d ms",
		m.file.Format.Duration(m.position).Milliseconds(),
		m.file.Duration().Milliseconds())
}

// fraction is the play position as a share of the payload
func (m *Model) fraction() float64 {
	n := m.file.PayloadLength()
	if n == 0 {
		return 0
	}
	return min(1, max(0, float64(m.position)/float64(n)))
}

func (m *Model) resize(cfg PreviewConfig) {
	m.preview = cfg
	m.progressBar.Width = cfg.Width

	width, height := cfg.FrameSize()
	m.frame = renderer.NewFrame(width, height, m.traceColor, nil)
	m.resizeBuilder()
	m.refreshPreview(true)
}

func (m *Model) resizeBuilder() {
	if m.builder == nil {
		return
	}
	width, _ := m.preview.FrameSize()
	m.builder.Resize(width, m.frame.TraceHeight())
}

// refreshPreview redraws the panel when the playhead moves to another cell
// or when forced
func (m *Model) refreshPreview(force bool) {
	if m.builder == nil {
		m.cachedPreview = ""
		m.cachedColumn = -1
		return
	}

	column := int(m.fraction() * float64(m.preview.Width-1))
	if !force && column == m.cachedColumn {
		return
	}

	m.frame.Draw(m.builder.Trace(), m.builder.Spectrogram(), "", m.fraction())
	m.cachedPreview = RenderPreview(DownsampleFrame(m.frame.Image(), m.preview))
	m.cachedColumn = column
}

func (m *Model) seekBy(direction int64) tea.Cmd {
	if m.file == nil {
		return nil
	}
	step := m.file.Format.Offset(config.SeekStep)
	return m.seek(m.position + direction*step)
}

// seekToColumn seeks to the share of the file under a click on the panel or
// the progress bar
func (m *Model) seekToColumn(x int) tea.Cmd {
	if m.file == nil {
		return nil
	}
	column := x - panelLeft
	if column < 0 || column >= m.preview.Width {
		return nil
	}
	share := float64(column) / float64(m.preview.Width)
	return m.seek(int64(share * float64(m.file.PayloadLength())))
}

func (m *Model) seek(position int64) tea.Cmd {
	position = max(0, position)
	return m.run(func() error { return m.player.Seek(position) })
}

// run calls the engine off the UI goroutine
func (m *Model) run(fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return PlaybackError{Err: err}
		}
		return nil
	}
}

func formatDuration(d time.Duration) string {
	if d == 0 {
		return "0s"
	}
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}
