package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Precipitation key.Binding
	Wind          key.Binding
	CloudCover    key.Binding
	Global        key.Binding
	Regional      key.Binding
	Earlier       key.Binding
	Later         key.Binding
	First         key.Binding
	Last          key.Binding
	Help          key.Binding
	Quit          key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Precipitation, k.Wind, k.CloudCover, k.Global, k.Regional, k.Earlier, k.Later, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Precipitation, k.Wind, k.CloudCover},
		{k.Global, k.Regional},
		{k.Earlier, k.Later, k.First, k.Last},
		{k.Help, k.Quit},
	}
}

func defaultKeyMap() keyMap {
	return keyMap{
		Precipitation: key.NewBinding(key.WithKeys("1"), key.WithHelp("1", "precipitation")),
		Wind:          key.NewBinding(key.WithKeys("2"), key.WithHelp("2", "wind")),
		CloudCover:    key.NewBinding(key.WithKeys("3"), key.WithHelp("3", "cloud cover")),
		Global:        key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "global")),
		Regional:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "scandinavia")),
		Earlier:       key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "earlier")),
		Later:         key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "later")),
		First:         key.NewBinding(key.WithKeys("home"), key.WithHelp("home", "first step")),
		Last:          key.NewBinding(key.WithKeys("end"), key.WithHelp("end", "last step")),
		Help:          key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more keys")),
		Quit:          key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}
