package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the turntable screen
type keyMap struct {
	playPause key.Binding
	stop      key.Binding
	next      key.Binding
	prev      key.Binding
	lift      key.Binding
	up        key.Binding
	down      key.Binding
	drop      key.Binding
	seekBack  key.Binding
	seekFwd   key.Binding
	volUp     key.Binding
	volDown   key.Binding
	mode      key.Binding
	playlists key.Binding
	open      key.Binding
	remove    key.Binding
	clear     key.Binding
	logout    key.Binding
	dismiss   key.Binding
	back      key.Binding
	help      key.Binding
	quit      key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		playPause: key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		stop:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		next:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		prev:      key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "previous")),
		lift:      key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "lift arm")),
		up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		drop:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "drop needle")),
		seekBack:  key.NewBinding(key.WithKeys(",", "left"), key.WithHelp("←/,", "-10s")),
		seekFwd:   key.NewBinding(key.WithKeys(".", "right"), key.WithHelp("→/.", "+10s")),
		volUp:     key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "louder")),
		volDown:   key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "quieter")),
		mode:      key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "switch source")),
		playlists: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "playlists")),
		open:      key.NewBinding(key.WithKeys("o"), key.WithHelp("o", "load files")),
		remove:    key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "remove file")),
		clear:     key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "clear files")),
		logout:    key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "log out")),
		dismiss:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "dismiss alerts")),
		back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.playPause, k.next, k.prev, k.lift, k.mode, k.help, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.playPause, k.stop, k.next, k.prev, k.lift},
		{k.up, k.down, k.drop, k.seekBack, k.seekFwd},
		{k.volUp, k.volDown, k.mode, k.playlists, k.open},
		{k.remove, k.clear, k.logout, k.dismiss, k.quit},
	}
}
