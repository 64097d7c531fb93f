package cli

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// Tagline describes the tool in help and version output
const Tagline = "Play a .wav file and watch its waveform and spectrogram."

var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Amber)

	SuccessStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Moss)

	ErrorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Rust)

	WarningStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Copper)

	KeyStyle = lipgloss.NewStyle().
			Foreground(WarmGray)

	ValueStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(Paper)

	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(Oxide).
			Padding(0, 2)
)

// PrintVersion prints version information
func PrintVersion(version string) {
	fmt.Printf("%s %s\n", TitleStyle.Render("Earmark"), ValueStyle.Render(version))
}

// PrintError prints an error message
func PrintError(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render("Error:"), message)
}

// PrintHeadedError prints an error under a short heading such as
// "Could not open file"
func PrintHeadedError(heading string, err error) {
	fmt.Fprintf(os.Stderr, "%s %s\n", ErrorStyle.Render(heading+":"), err)
}

// PrintWarning prints a non-fatal problem to stderr
func PrintWarning(message string) {
	fmt.Fprintf(os.Stderr, "%s %s\n", WarningStyle.Render("Warning:"), message)
}

// PrintSuccess prints a success message
func PrintSuccess(message string) {
	fmt.Printf("%s %s\n", SuccessStyle.Render("✓"), message)
}

// PrintInfo prints a labelled value
func PrintInfo(key, value string) {
	writeInfo(os.Stdout, key, value)
}

func writeInfo(w io.Writer, key, value string) {
	fmt.Fprintf(w, "%s %s\n", KeyStyle.Render(key+":"), ValueStyle.Render(value))
}

// FormatDuration formats a duration nicely
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%.0fms", d.Seconds()*1000)
	}
	return fmt.Sprintf("%.1fs", d.Seconds())
}

// FormatBytes formats bytes into human-readable format
func FormatBytes(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}

// PrintFileSummary prints the decoded file details in a box
func PrintFileSummary(name, format, duration, size string) {
	fmt.Println(fileSummary(name, format, duration, size))
}

func fileSummary(name, format, duration, size string) string {
	var b strings.Builder

	b.WriteString(TitleStyle.Render(name))
	b.WriteString("\n")
	writeInfo(&b, "Format  ", format)
	writeInfo(&b, "Duration", duration)
	writeInfo(&b, "Payload ", size)

	return BoxStyle.Render(strings.TrimSuffix(b.String(), "\n"))
}
