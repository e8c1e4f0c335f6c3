package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the console keybindings.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	Open     key.Binding
	Back     key.Binding
	NextView key.Binding
	Refresh  key.Binding
	Filter   key.Binding
	Search   key.Binding
	Unit     key.Binding
	ZoomIn   key.Binding
	ZoomOut  key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Quit     key.Binding
	Num1     key.Binding
	Num2     key.Binding
	Num3     key.Binding
	Num4     key.Binding
	Num5     key.Binding
}

var keys = KeyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "pan left")),
	Right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "pan right")),
	Open:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
	Back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	NextView: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next view")),
	Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	Filter:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter")),
	Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Unit:     key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "unit")),
	ZoomIn:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
	ZoomOut:  key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "zoom out")),
	PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("pgup", "scroll up")),
	PageDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("pgdn", "scroll down")),
	Quit:     key.NewBinding(key.WithKeys("ctrl+c", "q"), key.WithHelp("q", "quit")),
	Num1:     key.NewBinding(key.WithKeys("1")),
	Num2:     key.NewBinding(key.WithKeys("2")),
	Num3:     key.NewBinding(key.WithKeys("3")),
	Num4:     key.NewBinding(key.WithKeys("4")),
	Num5:     key.NewBinding(key.WithKeys("5")),
}
