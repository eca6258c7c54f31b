package termview

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Reset   key.Binding
	ZoomIn  key.Binding
	ZoomOut key.Binding
	Left    key.Binding
	Right   key.Binding
	Up      key.Binding
	Down    key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Reset:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reset")),
		ZoomIn:  key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "zoom")),
		ZoomOut: key.NewBinding(key.WithKeys("-", "_")),
		Left:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("arrows", "pan")),
		Right:   key.NewBinding(key.WithKeys("right", "l")),
		Up:      key.NewBinding(key.WithKeys("up", "k")),
		Down:    key.NewBinding(key.WithKeys("down", "j")),
		Quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// help returns the footer hint for the bindings that carry help text.
func (k keyMap) help() string {
	var s string
	for _, b := range []key.Binding{k.Quit, k.Reset, k.ZoomIn, k.Left} {
		h := b.Help()
		if h.Key == "" {
			continue
		}
		s += " " + h.Key + " " + h.Desc + " "
	}
	return s + " wheel zoom  drag pan"
}
