package cli

import "github.com/charmbracelet/lipgloss"

// Amber palette shared by the CLI and the TUI
var (
	Amber    = lipgloss.Color("#F8B31D") // Brand yellow, as in snapshot captions
	Copper   = lipgloss.Color("#D2691E")
	Rust     = lipgloss.Color("#B7410E")
	Oxide    = lipgloss.Color("#7A2E0E") // Box borders
	WarmGray = lipgloss.Color("#B8860B") // Labels and defaults
	Moss     = lipgloss.Color("#6B8E23") // Success
	Paper    = lipgloss.Color("#F5F0E6") // Values
)
