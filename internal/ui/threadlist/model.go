package threadlist

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/inbox-triage/internal/bulk"
	"github.com/nhle/inbox-triage/internal/inbox"
	"github.com/nhle/inbox-triage/internal/keys"
	"github.com/nhle/inbox-triage/internal/model"
	"github.com/nhle/inbox-triage/internal/theme"
)

// SearchMsg is sent when the search term is committed or cleared.
type SearchMsg struct {
	Query string
}

// OpenMsg is sent when the user opens the thread under the cursor.
type OpenMsg struct {
	ThreadID string
}

// Model is the thread list component.
type Model struct {
	list        list.Model
	keys        *keys.KeyMap
	selection   *bulk.Selection
	selectMode  *bool
	searchMode  bool
	searchInput textinput.Model
	query       string
	width       int
	height      int
}

// New creates a thread list that renders membership of sel.
func New(k *keys.KeyMap, sel *bulk.Selection, width, height int) Model {
	selectMode := new(bool)
	delegate := ItemDelegate{selection: sel, selectMode: selectMode}
	l := list.New([]list.Item{}, delegate, width, height-1)
	l.SetShowTitle(false)
	l.SetShowStatusBar(false)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.KeyMap.Quit.SetEnabled(false)
	l.KeyMap.ForceQuit.SetEnabled(false)

	si := textinput.New()
	si.Placeholder = "search subject, sender, snippet..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:        l,
		keys:        k,
		selection:   sel,
		selectMode:  selectMode,
		searchInput: si,
		width:       width,
		height:      height,
	}
}

// SetItems replaces the rows, keeping the cursor in range.
func (m *Model) SetItems(items []inbox.Item) tea.Cmd {
	rows := make([]list.Item, len(items))
	for i, it := range items {
		rows[i] = ThreadItem{Item: it}
	}
	cmd := m.list.SetItems(rows)
	if idx := m.list.Index(); idx >= len(rows) && len(rows) > 0 {
		m.list.Select(len(rows) - 1)
	}
	return cmd
}

// Update handles messages for the thread list.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		switch {
		case key.Matches(msg, m.keys.Select):
			if id, ok := m.SelectedID(); ok {
				return m, func() tea.Msg { return OpenMsg{ThreadID: id} }
			}
			return m, nil

		case key.Matches(msg, m.keys.Search):
			m.searchMode = true
			m.searchInput.SetValue(m.query)
			return m, m.searchInput.Focus()
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while in search mode.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.searchInput.Blur()
		m.query = m.searchInput.Value()
		query := m.query
		return m, func() tea.Msg { return SearchMsg{Query: query} }

	case "esc":
		m.searchMode = false
		m.searchInput.Blur()
		m.searchInput.Reset()
		m.query = ""
		return m, func() tea.Msg { return SearchMsg{} }
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// SelectedID returns the ID of the thread under the cursor.
func (m Model) SelectedID() (string, bool) {
	t, ok := m.SelectedThread()
	return t.ID, ok
}

// SelectedThread returns the thread under the cursor.
func (m Model) SelectedThread() (model.Thread, bool) {
	item, ok := m.list.SelectedItem().(ThreadItem)
	if !ok {
		return model.Thread{}, false
	}
	return item.Thread, true
}

// SetSelectMode turns the selection markers on or off.
func (m *Model) SetSelectMode(on bool) { *m.selectMode = on }

// SelectMode reports whether selection markers are shown.
func (m Model) SelectMode() bool { return *m.selectMode }

// Searching reports whether the search input has focus.
func (m Model) Searching() bool { return m.searchMode }

// Query returns the committed search term.
func (m Model) Query() string { return m.query }

// Len returns the number of rows.
func (m Model) Len() int { return len(m.list.Items()) }

// View renders the thread list.
func (m Model) View() string {
	if m.searchMode {
		searchBar := lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
		return lipgloss.JoinVertical(lipgloss.Left, searchBar, m.list.View())
	}

	if len(m.list.Items()) == 0 {
		return m.renderEmptyState()
	}

	return m.list.View()
}

// renderEmptyState shows guidance text when the view has no threads.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.query != "" {
		return style.Render("No threads match \"" + m.query + "\".\nPress / then esc to clear the search.")
	}
	return style.Render("Nothing here.\n\nPress r to pull new mail.")
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-1)
	m.searchInput.Width = width - 4
}
