package cli

import (
	"fmt"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/lipgloss"
)

var (
	helpSectionStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(Copper)

	helpTermStyle = lipgloss.NewStyle().
			Foreground(Amber)

	helpNoteStyle = lipgloss.NewStyle().
			Foreground(WarmGray).
			Italic(true)
)

// HelpSection is a titled block of term/description rows printed after the
// flags, such as the player's key bindings
type HelpSection struct {
	Title string
	Rows  [][2]string
}

// StyledHelpPrinter prints usage, the file argument, the flags grouped by
// their kong group, then any extra sections
func StyledHelpPrinter(extra ...HelpSection) kong.HelpPrinter {
	return func(_ kong.HelpOptions, ctx *kong.Context) error {
		_, err := fmt.Fprint(ctx.Stdout, renderHelp(ctx.Model, extra))
		return err
	}
}

func renderHelp(app *kong.Application, extra []HelpSection) string {
	var sb strings.Builder

	sb.WriteString(TitleStyle.Render("Earmark"))
	sb.WriteString("  ")
	sb.WriteString(helpNoteStyle.Render(Tagline))
	sb.WriteString("\n")

	sections := []HelpSection{{
		Title: "Usage",
		Rows: [][2]string{
			{app.Name + " <file> [flags]", "play the file in the terminal"},
			{app.Name + " <file> --snapshot=PATH", "write a PNG and exit"},
		},
	}}

	var args [][2]string
	for _, arg := range app.Node.Positional {
		args = append(args, [2]string{arg.Summary(), arg.Help})
	}
	if len(args) > 0 {
		sections = append(sections, HelpSection{Title: "Arguments", Rows: args})
	}

	sections = append(sections, flagSections(app.Node.Flags)...)
	sections = append(sections, extra...)

	for _, section := range sections {
		writeSection(&sb, section)
	}
	return sb.String()
}

// flagSections splits flags into the ungrouped "Flags" section followed by
// one section per group in declaration order
func flagSections(flags []*kong.Flag) []HelpSection {
	ungrouped := HelpSection{Title: "Flags"}
	var grouped []HelpSection
	index := map[string]int{}

	for _, f := range flags {
		if f.Hidden {
			continue
		}
		row := [2]string{flagTerm(f), flagDescription(f)}

		if f.Group == nil {
			ungrouped.Rows = append(ungrouped.Rows, row)
			continue
		}
		i, ok := index[f.Group.Key]
		if !ok {
			i = len(grouped)
			index[f.Group.Key] = i
			grouped = append(grouped, HelpSection{Title: f.Group.Title})
		}
		grouped[i].Rows = append(grouped[i].Rows, row)
	}

	return append([]HelpSection{ungrouped}, grouped...)
}

func flagTerm(f *kong.Flag) string {
	term := "--" + f.Name
	if f.Short != 0 {
		term = fmt.Sprintf("-%c, %s", f.Short, term)
	} else {
		term = "    " + term
	}
	if !f.IsBool() {
		term += "=" + strings.ToUpper(f.FormatPlaceHolder())
	}
	return term
}

func flagDescription(f *kong.Flag) string {
	if !f.HasDefault || f.IsBool() || f.Default == "" {
		return f.Help
	}
	return f.Help + " " + helpNoteStyle.Render("("+f.Default+")")
}

// writeSection prints rows with their descriptions aligned in one column
func writeSection(sb *strings.Builder, section HelpSection) {
	if len(section.Rows) == 0 {
		return
	}

	width := 0
	for _, row := range section.Rows {
		width = max(width, lipgloss.Width(row[0]))
	}

	sb.WriteString("\n")
	sb.WriteString(helpSectionStyle.Render(section.Title + ":"))
	sb.WriteString("\n")
	for _, row := range section.Rows {
		sb.WriteString("  ")
		sb.WriteString(helpTermStyle.Render(row[0]))
		if row[1] != "" {
			sb.WriteString(strings.Repeat(" ", width-lipgloss.Width(row[0])+2))
			sb.WriteString(row[1])
		}
		sb.WriteString("\n")
	}
}
