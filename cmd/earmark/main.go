package main

import (
	"fmt"
	"image/color"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/linuxmatters/earmark/internal/audio"
	"github.com/linuxmatters/earmark/internal/cli"
	"github.com/linuxmatters/earmark/internal/config"
	"github.com/linuxmatters/earmark/internal/logging"
	"github.com/linuxmatters/earmark/internal/playback"
	"github.com/linuxmatters/earmark/internal/renderer"
	"github.com/linuxmatters/earmark/internal/ui"
)

// version is set via ldflags at build time
// Local dev builds: "dev"
// Release builds: git tag (e.g. "v0.1.0")
var version = "dev"

var CLI struct {
	File       string `arg:"" name:"file" help:"WAV file to play" optional:""`
	Verbose    bool   `short:"v" help:"Log debug diagnostics"`
	TraceColor string `help:"Waveform colour" default:"${trace_color}" placeholder:"RRGGBB"`
	Version    bool   `help:"Show version information"`

	NoAutoplay bool   `help:"Load the file without starting playback" group:"player"`
	Watch      bool   `help:"Reload the file when it changes on disk" group:"player"`
	LogFile    string `help:"Write diagnostics to a file while the player runs" placeholder:"PATH" group:"player"`

	Snapshot string `help:"Render the waveform and spectrogram to a PNG and exit" placeholder:"PATH" group:"snapshot"`
	Width    int    `help:"Snapshot width" default:"${snapshot_width}" placeholder:"PIXELS" group:"snapshot"`
	Height   int    `help:"Snapshot height" default:"${snapshot_height}" placeholder:"PIXELS" group:"snapshot"`
	Font     string `help:"TrueType font for the snapshot captions" placeholder:"PATH" group:"snapshot"`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("earmark"),
		kong.Description(cli.Tagline),
		kong.Vars{
			"version":         version,
			"snapshot_width":  fmt.Sprint(config.SnapshotWidth),
			"snapshot_height": fmt.Sprint(config.SnapshotHeight),
			"trace_color":     config.TraceColor,
		},
		kong.ExplicitGroups([]kong.Group{
			{Key: "player", Title: "Player"},
			{Key: "snapshot", Title: "Snapshot"},
		}),
		kong.UsageOnError(),
		kong.Help(cli.StyledHelpPrinter(cli.HelpSection{Title: "Keys", Rows: ui.KeyHelp()})),
	)
	_ = ctx

	if CLI.Version {
		cli.PrintVersion(version)
		os.Exit(0)
	}

	if CLI.File == "" {
		cli.PrintError("<file> is required")
		os.Exit(1)
	}

	if _, err := os.Stat(CLI.File); os.IsNotExist(err) {
		cli.PrintError(fmt.Sprintf("input file does not exist: %s", CLI.File))
		os.Exit(1)
	}

	r, g, b, err := config.ParseHexColor(CLI.TraceColor)
	if err != nil {
		cli.PrintError(err.Error())
		os.Exit(1)
	}
	traceColor := color.RGBA{R: r, G: g, B: b, A: 255}

	logOutput, closeLog, err := openLogOutput(CLI.LogFile, CLI.Snapshot != "")
	if err != nil {
		cli.PrintError(fmt.Sprintf("opening log file: %v", err))
		os.Exit(1)
	}
	defer closeLog()

	logger := logging.New(logging.Config{
		Verbose:    CLI.Verbose,
		Output:     logOutput,
		Timestamps: CLI.LogFile != "",
	})

	if CLI.Snapshot != "" {
		opts := renderer.SnapshotOptions{
			Width:      CLI.Width,
			Height:     CLI.Height,
			TraceColor: traceColor,
			Position:   -1,
			FontPath:   CLI.Font,
		}
		if err := runSnapshot(logger, CLI.File, CLI.Snapshot, opts); err != nil {
			closeLog()
			os.Exit(1)
		}
		return
	}

	if err := runPlayer(logger, CLI.File, traceColor, !CLI.NoAutoplay, CLI.Watch); err != nil {
		closeLog()
		os.Exit(1)
	}
}

// openLogOutput picks the log destination. The player owns the terminal, so
// without a log file its diagnostics are dropped.
func openLogOutput(path string, headless bool) (io.Writer, func(), error) {
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, err
		}
		return f, func() { f.Close() }, nil
	}
	if headless {
		return os.Stderr, func() {}, nil
	}
	return io.Discard, func() {}, nil
}

// runSnapshot decodes the file and writes a PNG without touching the audio
// device, so formats the player refuses can still be inspected
func runSnapshot(logger *log.Logger, path, outputPath string, opts renderer.SnapshotOptions) error {
	startTime := time.Now()

	file, err := audio.NewWAVDecoder(logger).Load(path)
	if err != nil {
		cli.PrintHeadedError(playback.Heading(err), err)
		return err
	}

	analyzer, err := audio.NewSpectrumAnalyzer(config.FFTSize, logger)
	if err != nil {
		cli.PrintError(err.Error())
		return err
	}

	builder := renderer.NewBuilder(analyzer, logger)
	if err := builder.Load(file, nil); err != nil {
		cli.PrintError(fmt.Sprintf("analysing audio: %v", err))
		return err
	}

	if err := renderer.GenerateSnapshot(outputPath, builder, opts); err != nil {
		cli.PrintError(err.Error())
		return err
	}

	cli.PrintFileSummary(
		filepath.Base(file.Name),
		file.Format.String(),
		cli.FormatDuration(file.Duration()),
		cli.FormatBytes(file.PayloadLength()),
	)
	spec := builder.Spectrogram()
	cli.PrintInfo("Spectrogram", fmt.Sprintf("%d columns x %d bins", spec.Width(), spec.Height()))
	cli.PrintInfo("Image", fmt.Sprintf("%dx%d", opts.Width, opts.Height))
	cli.PrintSuccess(fmt.Sprintf("Snapshot written to %s in %s", outputPath, cli.FormatDuration(time.Since(startTime))))
	return nil
}

// runPlayer runs the terminal player until the user quits
func runPlayer(logger *log.Logger, path string, traceColor color.RGBA, autoplay, watch bool) error {
	analyzer, err := audio.NewSpectrumAnalyzer(config.FFTSize, logger)
	if err != nil {
		cli.PrintError(err.Error())
		return err
	}

	device := playback.NewOtoDevice(logger, config.NotifyInterval)

	// The observer is only called once the program exists: the first
	// notification comes from the loader started below
	var program *tea.Program
	observer := ui.NewObserver(func(msg tea.Msg) { program.Send(msg) })
	engine := playback.NewEngine(device, playback.DefaultConfig(logger, observer))

	model := ui.NewModel(engine, traceColor)
	program = tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())

	loader := &ui.Loader{
		Engine:   engine,
		Analyzer: analyzer,
		Logger:   logger,
		Send:     program.Send,
		Autoplay: autoplay,
	}
	go func() {
		if err := loader.Load(path); err != nil {
			logger.Debug("load failed", "path", path, "err", err)
		}
	}()

	if watch {
		watcher, err := ui.NewWatcher(path, config.WatchDebounce, logger, func(p string) {
			if err := loader.Load(p); err != nil {
				logger.Debug("reload failed", "path", p, "err", err)
			}
		})
		if err != nil {
			cli.PrintWarning(fmt.Sprintf("not watching %s: %v", path, err))
		} else {
			defer watcher.Close()
			go watcher.Run()
		}
	}

	_, runErr := program.Run()

	lastErr := engine.LastError()
	loaded := engine.File() != nil

	if err := engine.Close(); err != nil {
		logger.Debug("engine close failed", "err", err)
	}
	if err := device.Close(); err != nil {
		logger.Debug("device close failed", "err", err)
	}

	if runErr != nil {
		cli.PrintError(fmt.Sprintf("running UI: %v", runErr))
		return runErr
	}
	if lastErr != nil {
		cli.PrintHeadedError(playback.Heading(lastErr), lastErr)
		if !loaded {
			return lastErr
		}
	}
	return nil
}
