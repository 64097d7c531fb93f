package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Toggle  key.Binding
	Stop    key.Binding
	Back    key.Binding
	Forward key.Binding
	Start   key.Binding
	Quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Toggle: key.NewBinding(
			key.WithKeys(" ", "p"),
			key.WithHelp("space", "play/pause"),
		),
		Stop: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "stop"),
		),
		Back: key.NewBinding(
			key.WithKeys("left", "h"),
			key.WithHelp("←", "back 5s"),
		),
		Forward: key.NewBinding(
			key.WithKeys("right", "l"),
			key.WithHelp("→", "forward 5s"),
		),
		Start: key.NewBinding(
			key.WithKeys("home", "0"),
			key.WithHelp("home", "rewind"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp implements help.KeyMap
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Stop, k.Back, k.Forward, k.Start, k.Quit}
}

// FullHelp implements help.KeyMap
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

// KeyHelp lists the player's key bindings as key/description pairs, with
// every key that triggers each binding
func KeyHelp() [][2]string {
	var rows [][2]string
	for _, b := range newKeyMap().ShortHelp() {
		keys := make([]string, len(b.Keys()))
		for i, k := range b.Keys() {
			if k == " " {
				k = "space"
			}
			keys[i] = k
		}
		rows = append(rows, [2]string{strings.Join(keys, ", "), b.Help().Desc})
	}
	return rows
}
