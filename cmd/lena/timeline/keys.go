package timelinecmder

import "charm.land/bubbles/v2/key"

type timelineKeyMap struct {
	Left     key.Binding
	Right    key.Binding
	PageLeft  key.Binding
	PageRight key.Binding
	Select   key.Binding
	Back     key.Binding
	NextMem  key.Binding
	PrevMem  key.Binding
	PrevYear key.Binding
	NextYear key.Binding
	Add      key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func (k timelineKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Left, k.Right, k.Select, k.PrevYear, k.NextYear, k.Add, k.Help, k.Quit}
}

func (k timelineKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Left, k.Right, k.PageLeft, k.PageRight},
		{k.Select, k.Back, k.NextMem, k.PrevMem},
		{k.PrevYear, k.NextYear, k.Add, k.Help, k.Quit},
	}
}

func defaultKeyMap() timelineKeyMap {
	return timelineKeyMap{
		Left:      key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h", "prev day")),
		Right:     key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l", "next day")),
		PageLeft:  key.NewBinding(key.WithKeys("H", "pgup", "shift+left"), key.WithHelp("H", "scroll left")),
		PageRight: key.NewBinding(key.WithKeys("L", "pgdown", "shift+right"), key.WithHelp("L", "scroll right")),
		Select:    key.NewBinding(key.WithKeys("enter", "space"), key.WithHelp("enter", "open day")),
		Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "close day")),
		NextMem:   key.NewBinding(key.WithKeys("tab", "n"), key.WithHelp("tab", "next memory")),
		PrevMem:   key.NewBinding(key.WithKeys("shift+tab", "p"), key.WithHelp("shift+tab", "prev memory")),
		PrevYear:  key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev year")),
		NextYear:  key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next year")),
		Add:       key.NewBinding(key.WithKeys("a", "+"), key.WithHelp("a", "add memory")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

type wizardKeyMap struct {
	Next   key.Binding
	Back   key.Binding
	Jump   key.Binding
	Cancel key.Binding
	Quit   key.Binding
}

func (k wizardKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Back, k.Jump, k.Cancel}
}

func (k wizardKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Next, k.Back, k.Jump, k.Cancel, k.Quit}}
}

func defaultWizardKeyMap() wizardKeyMap {
	return wizardKeyMap{
		Next:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "next")),
		Back:   key.NewBinding(key.WithKeys("shift+tab"), key.WithHelp("shift+tab", "back")),
		Jump:   key.NewBinding(key.WithKeys("alt+1", "alt+2", "alt+3", "alt+4", "alt+5"), key.WithHelp("alt+1-5", "go to step")),
		Cancel: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Quit:   key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	}
}
