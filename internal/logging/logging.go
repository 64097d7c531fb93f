// Package logging builds the diagnostic logger handed to every component.
package logging

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
)

// Config selects where diagnostics go and how much is written
type Config struct {
	// Verbose enables debug output; otherwise only errors are logged
	Verbose bool
	// Output receives log lines. Nil means stderr.
	Output io.Writer
	// Timestamps prefixes each line with the time of day
	Timestamps bool
}

// New creates the root logger for cfg
func New(cfg Config) *log.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	level := log.ErrorLevel
	if cfg.Verbose {
		level = log.DebugLevel
	}

	return log.NewWithOptions(out, log.Options{
		Level:           level,
		Prefix:          "earmark",
		ReportTimestamp: cfg.Timestamps,
		TimeFormat:      "15:04:05.000",
	})
}

// Discard returns a logger that drops everything
func Discard() *log.Logger {
	return log.NewWithOptions(io.Discard, log.Options{Level: log.FatalLevel})
}
