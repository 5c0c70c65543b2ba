package tui

import "github.com/charmbracelet/bubbles/key"

// networkKeyMap defines key bindings for the network list
type networkKeyMap struct {
	Up     key.Binding
	Down   key.Binding
	Select key.Binding
	Manual key.Binding
	Rescan key.Binding
	Next   key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k networkKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Manual, k.Rescan, k.Next, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k networkKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select},
		{k.Manual, k.Rescan, k.Next, k.Quit},
	}
}

// inputKeyMap defines key bindings while a text field has focus
type inputKeyMap struct {
	Confirm key.Binding
	Cancel  key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k inputKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Confirm, k.Cancel}
}

// FullHelp returns keybindings for the expanded help view
func (k inputKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Confirm, k.Cancel}}
}

// channelKeyMap defines key bindings for the channel screen
type channelKeyMap struct {
	Edit   key.Binding
	Select key.Binding
	Submit key.Binding
	Next   key.Binding
	Back   key.Binding
	Quit   key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k channelKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Edit, k.Select, k.Submit, k.Next, k.Back, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k channelKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Edit, k.Select, k.Submit},
		{k.Next, k.Back, k.Quit},
	}
}

// completeKeyMap defines key bindings for the complete screen
type completeKeyMap struct {
	Restart key.Binding
	Quit    key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k completeKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Restart, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k completeKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Restart, k.Quit}}
}

// busyKeyMap is shown while a device call runs
type busyKeyMap struct {
	Quit key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k busyKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k busyKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Quit}}
}

type keyMaps struct {
	Networks networkKeyMap
	Input    inputKeyMap
	Channel  channelKeyMap
	Complete completeKeyMap
	Busy     busyKeyMap
}

func defaultKeyMaps() keyMaps {
	return keyMaps{
		Networks: networkKeyMap{
			Up: key.NewBinding(
				key.WithKeys("up", "k"),
				key.WithHelp("↑/k", "move up"),
			),
			Down: key.NewBinding(
				key.WithKeys("down", "j"),
				key.WithHelp("↓/j", "move down"),
			),
			Select: key.NewBinding(
				key.WithKeys("enter"),
				key.WithHelp("enter", "select"),
			),
			Manual: key.NewBinding(
				key.WithKeys("m"),
				key.WithHelp("m", "hidden network"),
			),
			Rescan: key.NewBinding(
				key.WithKeys("r"),
				key.WithHelp("r", "rescan"),
			),
			Next: key.NewBinding(
				key.WithKeys("n"),
				key.WithHelp("n", "next"),
			),
			Quit: key.NewBinding(
				key.WithKeys("q"),
				key.WithHelp("q", "quit"),
			),
		},
		Input: inputKeyMap{
			Confirm: key.NewBinding(
				key.WithKeys("enter"),
				key.WithHelp("enter", "confirm"),
			),
			Cancel: key.NewBinding(
				key.WithKeys("esc"),
				key.WithHelp("esc", "cancel"),
			),
		},
		Channel: channelKeyMap{
			Edit: key.NewBinding(
				key.WithKeys("/"),
				key.WithHelp("/", "search"),
			),
			Select: key.NewBinding(
				key.WithKeys("s"),
				key.WithHelp("s", "select"),
			),
			Submit: key.NewBinding(
				key.WithKeys("enter"),
				key.WithHelp("enter", "submit"),
			),
			Next: key.NewBinding(
				key.WithKeys("n"),
				key.WithHelp("n", "finish"),
			),
			Back: key.NewBinding(
				key.WithKeys("esc"),
				key.WithHelp("esc", "back to WiFi"),
			),
			Quit: key.NewBinding(
				key.WithKeys("q"),
				key.WithHelp("q", "quit"),
			),
		},
		Complete: completeKeyMap{
			Restart: key.NewBinding(
				key.WithKeys("r"),
				key.WithHelp("r", "start over"),
			),
			Quit: key.NewBinding(
				key.WithKeys("q", "enter"),
				key.WithHelp("q", "quit"),
			),
		},
		Busy: busyKeyMap{
			Quit: key.NewBinding(
				key.WithKeys("ctrl+c"),
				key.WithHelp("ctrl+c", "abort"),
			),
		},
	}
}
