package main

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the TUI
type keyMap struct {
	Up      key.Binding
	Down    key.Binding
	Restart key.Binding
	Kill    key.Binding
	Format  key.Binding
	Check   key.Binding
	Refresh key.Binding
	Quit    key.Binding
	Confirm key.Binding
	Cancel  key.Binding
}

// keys is the default set of key bindings
var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Restart: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "restart app"),
	),
	Kill: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "kill listener"),
	),
	Format: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "format sources"),
	),
	Check: key.NewBinding(
		key.WithKeys("c"),
		key.WithHelp("c", "check formatting"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("R"),
		key.WithHelp("R", "refresh"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	Confirm: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "confirm"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("n", "esc"),
		key.WithHelp("n/esc", "cancel"),
	),
}
