package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings shared by the terminal views.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding

	// Focus moves between the todo sidebar and the chat input.
	Focus key.Binding

	// Todo actions
	Toggle  key.Binding
	Section key.Binding

	// Chat
	Send key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Manual refresh
	Refresh key.Binding

	// Help toggle
	Help key.Binding
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Focus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch focus"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" ", "x"),
			key.WithHelp("space", "toggle todo"),
		),
		Section: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "toggle section"),
		),
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "refresh"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Focus, k.Send, k.Toggle, k.Back, k.Quit, k.Help,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Focus, k.Back, k.Quit},
		{k.Toggle, k.Section, k.Refresh},
		{k.Send, k.Help},
	}
}
