package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/inbox-triage/internal/crossref"
	"github.com/nhle/inbox-triage/internal/inbox"
	"github.com/nhle/inbox-triage/internal/keys"
	"github.com/nhle/inbox-triage/internal/model"
	"github.com/nhle/inbox-triage/internal/theme"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// LoadedMsg carries a thread, its annotations and its notes.
type LoadedMsg struct {
	Item  *inbox.Item
	Notes []model.Note
	Err   error
}

// Model is the thread detail view component.
type Model struct {
	item     *inbox.Item
	notes    []model.Note
	err      error
	viewport viewport.Model
	keys     *keys.KeyMap
	width    int
	height   int
	loading  bool
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	return Model{
		viewport: vp,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case LoadedMsg:
		m.SetThread(msg)
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Back) {
			return m, func() tea.Msg { return BackMsg{} }
		}
	}

	// Delegate to viewport for scrolling (j/k, up/down, pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the detail view.
func (m Model) View() string {
	placeholder := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	switch {
	case m.loading:
		return placeholder.Render("Loading thread...")
	case m.err != nil:
		return placeholder.Render("Could not load thread: " + m.err.Error())
	case m.item == nil:
		return placeholder.Render("No thread selected")
	}
	return m.viewport.View()
}

// ThreadID returns the ID of the thread on display.
func (m Model) ThreadID() string {
	if m.item == nil {
		return ""
	}
	return m.item.Thread.ID
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.item == nil {
		return ""
	}

	t := m.item.Thread
	ann := m.item.Annotation
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(t.Subject))

	badges := []string{theme.StatusStyle(string(ann.Status)).Render(string(ann.Status))}
	if ann.Intent != nil {
		badges = append(badges, theme.IntentStyle(string(ann.Intent.Bucket)).Render(string(ann.Intent.Bucket)))
	}
	badges = append(badges, lipgloss.NewStyle().Foreground(theme.ColorMagenta).
		Render(fmt.Sprintf("%s (%d)", ann.Category.Value, ann.Category.Confidence)))
	sections = append(sections, strings.Join(badges, "  "), "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray).Width(12)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	row := func(label, value string) {
		if value == "" {
			return
		}
		sections = append(sections, metaStyle.Render(label)+valStyle.Render(value))
	}

	row("Direction:", string(ann.Direction))
	row("From:", t.FromAddress)
	row("To:", strings.Join(t.ToAddresses, ", "))
	row("Last:", t.LastMessageDate)
	row("Assigned:", assignee(t))
	row("Pinned:", t.PinnedAt)
	row("Project:", t.ProjectID)
	row("Contract:", t.ContractID)
	row("Mentions:", strings.Join(crossref.Unlinked(t, nil), ", "))
	if ann.Intent != nil {
		row("Intent:", ann.Intent.Reason)
	}
	row("Category:", ann.Category.Reason)

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
	sections = append(sections, "", separator, "")

	snippet := t.Snippet
	if snippet == "" {
		snippet = lipgloss.NewStyle().Foreground(theme.ColorGray).Italic(true).Render("No preview")
	}
	sections = append(sections, snippet)

	if len(m.notes) > 0 {
		sections = append(sections, "", separator, "")
		header := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
		sections = append(sections, header.Render(fmt.Sprintf("Activity (%d)", len(m.notes))), "")

		authorStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorBlue)
		timeStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
		for _, n := range m.notes {
			sections = append(sections, fmt.Sprintf("%s  %s  %s",
				timeStyle.Render(n.CreatedAt.Local().Format("2006-01-02 15:04")),
				authorStyle.Render(n.Author),
				n.Body))
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func assignee(t model.Thread) string {
	if t.AssignedToName != "" {
		return t.AssignedToName + " <" + t.AssignedTo + ">"
	}
	return t.AssignedTo
}

// SetThread updates the thread being displayed and re-renders the content.
func (m *Model) SetThread(msg LoadedMsg) {
	m.item = msg.Item
	m.notes = msg.Notes
	m.err = msg.Err
	m.loading = false
	m.viewport.SetContent(m.renderContent())
	m.viewport.GotoTop()
}

// SetLoading sets the loading state.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
}
