package threadform

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/inbox-triage/internal/model"
	"github.com/nhle/inbox-triage/internal/theme"
)

// Kind is the edit a form collects.
type Kind string

const (
	KindLinkProject  Kind = "link-project"
	KindLinkContract Kind = "link-contract"
	KindAssign       Kind = "assign"
	KindNote         Kind = "note"
)

// Title returns the form heading for k.
func (k Kind) Title() string {
	switch k {
	case KindLinkProject:
		return "Link to project"
	case KindLinkContract:
		return "Link to contract"
	case KindAssign:
		return "Assign"
	case KindNote:
		return "Add note"
	}
	return string(k)
}

// Request is a submitted form. ThreadID is empty for a bulk request.
type Request struct {
	Kind     Kind
	ThreadID string
	Bulk     bool

	// Value is the project or contract ID, the assignee address or the
	// note body.
	Value string

	// Name is the assignee's display name.
	Name string
}

// SubmitMsg is dispatched when the user completes the form.
type SubmitMsg struct {
	Request
}

// CancelMsg is dispatched when the user leaves the form without
// submitting.
type CancelMsg struct{}

// formBindings holds form field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	value    string
	assignee string
}

// Model is the Bubble Tea model for the link, assign and note forms.
type Model struct {
	form     *huh.Form
	fb       *formBindings
	kind     Kind
	threadID string
	bulk     int
	members  []model.Member
	width    int
	height   int
}

// New creates a new thread form model.
func New(width, height int) Model {
	return Model{fb: &formBindings{}, width: width, height: height}
}

// SetMembers sets the people offered by the assign form.
func (m *Model) SetMembers(members []model.Member) {
	m.members = members
}

// StartSingle opens a form of kind for t, prefilled with its current
// link or assignee.
func (m *Model) StartSingle(kind Kind, t model.Thread) tea.Cmd {
	m.kind = kind
	m.threadID = t.ID
	m.bulk = 0
	m.fb.value = ""
	m.fb.assignee = ""
	switch kind {
	case KindLinkProject:
		m.fb.value = t.ProjectID
	case KindLinkContract:
		m.fb.value = t.ContractID
	case KindAssign:
		m.fb.assignee = model.NormalizeAddress(t.AssignedTo)
	}
	m.form = m.buildForm()
	return m.form.Init()
}

// StartBulk opens a form of kind for a selection of count threads. Notes
// are per thread and cannot be bulk edited.
func (m *Model) StartBulk(kind Kind, count int) (tea.Cmd, error) {
	if kind == KindNote {
		return nil, fmt.Errorf("%s cannot be applied to a selection", kind)
	}
	m.kind = kind
	m.threadID = ""
	m.bulk = count
	m.fb.value = ""
	m.fb.assignee = ""
	m.form = m.buildForm()
	return m.form.Init(), nil
}

// Kind returns the kind of the open form.
func (m Model) Kind() Kind {
	return m.kind
}

// Update handles messages for the thread form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}
	if k, ok := msg.(tea.KeyMsg); ok && k.Type == tea.KeyEsc {
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.form = nil
		req := m.request()
		return m, func() tea.Msg { return SubmitMsg{Request: req} }
	}
	if m.form.State == huh.StateAborted {
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}

	return m, cmd
}

// View renders the thread form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	title := m.kind.Title()
	if m.bulk > 0 {
		title = fmt.Sprintf("%s · %d selected", title, m.bulk)
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(titleStyle.Render(title) + "\n" + m.form.View())
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	if m.form != nil {
		m.form = m.form.WithWidth(m.formWidth()).WithHeight(m.formHeight())
	}
}

func (m Model) request() Request {
	req := Request{Kind: m.kind, ThreadID: m.threadID, Bulk: m.bulk > 0}
	if m.kind == KindAssign {
		req.Value = m.fb.assignee
		req.Name = m.memberName(m.fb.assignee)
		return req
	}
	req.Value = strings.TrimSpace(m.fb.value)
	return req
}

func (m Model) memberName(email string) string {
	for _, mem := range m.members {
		if model.NormalizeAddress(mem.Email) == email {
			return mem.Name
		}
	}
	return ""
}

func (m *Model) buildForm() *huh.Form {
	var field huh.Field
	switch m.kind {
	case KindAssign:
		field = m.assigneeField()
	case KindNote:
		field = huh.NewText().
			Title("Note").
			Placeholder("What happened on this thread?").
			Value(&m.fb.value).
			Validate(validateRequired("Note"))
	default:
		label := "Project ID"
		if m.kind == KindLinkContract {
			label = "Contract ID"
		}
		input := huh.NewInput().
			Title(label).
			Value(&m.fb.value)
		if m.bulk > 0 {
			input = input.Validate(validateRequired(label))
		} else {
			input = input.Placeholder("Leave empty to unlink")
		}
		field = input
	}

	return huh.NewForm(
		huh.NewGroup(field),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m *Model) assigneeField() huh.Field {
	opts := []huh.Option[string]{huh.NewOption("Nobody (unassign)", "")}
	for _, mem := range m.members {
		email := model.NormalizeAddress(mem.Email)
		if email == "" {
			continue
		}
		label := email
		if mem.Name != "" {
			label = fmt.Sprintf("%s <%s>", mem.Name, email)
		}
		opts = append(opts, huh.NewOption(label, email))
	}
	return huh.NewSelect[string]().
		Title("Assign to").
		Options(opts...).
		Value(&m.fb.assignee)
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 100 {
		w = 100
	}
	return w
}

func (m Model) formHeight() int {
	h := m.height - 4
	if h < 10 {
		h = 10
	}
	return h
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}
