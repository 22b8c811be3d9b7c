package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the inbox session.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding

	// Views
	NextView   key.Binding
	PrevView   key.Binding
	SimpleMode key.Binding

	Select key.Binding
	Back   key.Binding
	Quit   key.Binding
	Search key.Binding
	Help   key.Binding

	// Retry sync
	Sync key.Binding

	// Single-thread actions
	Close       key.Binding
	Reopen      key.Binding
	NeedsAction key.Binding
	Waiting     key.Binding
	FYI         key.Binding
	AssignSelf  key.Binding
	Pin         key.Binding
	ToggleRead  key.Binding

	// Form-backed edits; link and assign also apply to a selection
	LinkProject  key.Binding
	LinkContract key.Binding
	AssignTo     key.Binding
	AddNote      key.Binding

	// Bulk selection
	SelectMode key.Binding
	Toggle     key.Binding
	BulkRead   key.Binding
	BulkUnread key.Binding
	BulkClose  key.Binding
	BulkAssign key.Binding

	// Simple surface filter toggles
	FilterClosed   key.Binding
	FilterMine     key.Binding
	FilterSent     key.Binding
	FilterReceived key.Binding
	FilterPinned   key.Binding
	FilterLinked   key.Binding
	FilterUnlinked key.Binding
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
		NextView: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next view"),
		),
		PrevView: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "previous view"),
		),
		SimpleMode: key.NewBinding(
			key.WithKeys("S"),
			key.WithHelp("S", "simple list"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open thread"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Sync: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "sync mail"),
		),
		Close: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "close"),
		),
		Reopen: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "reopen"),
		),
		NeedsAction: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "needs action"),
		),
		Waiting: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "waiting"),
		),
		FYI: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "fyi"),
		),
		AssignSelf: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "assign to me"),
		),
		Pin: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "pin/unpin"),
		),
		ToggleRead: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "read/unread"),
		),
		LinkProject: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "link project"),
		),
		LinkContract: key.NewBinding(
			key.WithKeys("C"),
			key.WithHelp("C", "link contract"),
		),
		AssignTo: key.NewBinding(
			key.WithKeys("@"),
			key.WithHelp("@", "assign to…"),
		),
		AddNote: key.NewBinding(
			key.WithKeys("N"),
			key.WithHelp("N", "add note"),
		),
		SelectMode: key.NewBinding(
			key.WithKeys("v"),
			key.WithHelp("v", "select mode"),
		),
		Toggle: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "select thread"),
		),
		BulkRead: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "mark selected read"),
		),
		BulkUnread: key.NewBinding(
			key.WithKeys("U"),
			key.WithHelp("U", "mark selected unread"),
		),
		BulkClose: key.NewBinding(
			key.WithKeys("X"),
			key.WithHelp("X", "close selected"),
		),
		BulkAssign: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "assign selected to me"),
		),
		FilterClosed: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "closed"),
		),
		FilterMine: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "assigned to me"),
		),
		FilterSent: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "sent"),
		),
		FilterReceived: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "received"),
		),
		FilterPinned: key.NewBinding(
			key.WithKeys("5"),
			key.WithHelp("5", "pinned"),
		),
		FilterLinked: key.NewBinding(
			key.WithKeys("6"),
			key.WithHelp("6", "linked"),
		),
		FilterUnlinked: key.NewBinding(
			key.WithKeys("7"),
			key.WithHelp("7", "unlinked"),
		),
	}
}

// ShortHelp returns the most essential keybindings for the compact help view.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Up, k.Down, k.NextView, k.Select,
		k.Search, k.Sync, k.Quit, k.Help,
	}
}

// FullHelp returns all keybindings grouped by category for the expanded
// help view.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NextView, k.PrevView, k.SimpleMode, k.Select, k.Back, k.Quit},
		{k.Search, k.Sync, k.Help},
		{k.Close, k.Reopen, k.NeedsAction, k.Waiting, k.FYI, k.AssignSelf, k.Pin, k.ToggleRead},
		{k.LinkProject, k.LinkContract, k.AssignTo, k.AddNote},
		{k.SelectMode, k.Toggle, k.BulkRead, k.BulkUnread, k.BulkClose, k.BulkAssign},
		{k.FilterClosed, k.FilterMine, k.FilterSent, k.FilterReceived, k.FilterPinned, k.FilterLinked, k.FilterUnlinked},
	}
}
