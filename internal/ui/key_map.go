package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up        key.Binding
	down      key.Binding
	prevPage  key.Binding
	nextPage  key.Binding
	play      key.Binding
	stop      key.Binding
	nextTrack key.Binding
	prevTrack key.Binding
	cover     key.Binding
	sound     key.Binding
	upload    key.Binding
	tab       key.Binding
	submit    key.Binding
	back      key.Binding
	retry     key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		prevPage:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev page")),
		nextPage:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next page")),
		play:      key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "play/stop")),
		stop:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		nextTrack: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next track")),
		prevTrack: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "prev track")),
		cover:     key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "cover search")),
		sound:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "sound search")),
		upload:    key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "upload dataset")),
		tab:       key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "next field")),
		submit:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		retry:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "retry")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.prevPage, k.nextPage},
		{k.play, k.stop, k.nextTrack, k.prevTrack},
		{k.cover, k.sound, k.upload},
		{k.back, k.retry, k.quit},
	}
}
