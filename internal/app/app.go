package app

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/nhle/inbox-triage/internal/bulk"
	"github.com/nhle/inbox-triage/internal/cache"
	"github.com/nhle/inbox-triage/internal/inbox"
	"github.com/nhle/inbox-triage/internal/keys"
	"github.com/nhle/inbox-triage/internal/live"
	"github.com/nhle/inbox-triage/internal/model"
	"github.com/nhle/inbox-triage/internal/store"
	appsync "github.com/nhle/inbox-triage/internal/sync"
	"github.com/nhle/inbox-triage/internal/theme"
	"github.com/nhle/inbox-triage/internal/triage"
	"github.com/nhle/inbox-triage/internal/ui"
	"github.com/nhle/inbox-triage/internal/ui/detail"
	"github.com/nhle/inbox-triage/internal/ui/threadform"
	"github.com/nhle/inbox-triage/internal/ui/threadlist"
)

// noticeTTL is how long a notice stays in the status bar.
var noticeTTL = 6 * time.Second

// Screen is the active full-screen view.
type Screen int

const (
	ScreenList Screen = iota
	ScreenDetail
	ScreenHelp
	ScreenForm
)

// ConfigChangedMsg delivers a reloaded configuration to the session.
type ConfigChangedMsg struct {
	Config *model.AppConfig
}

// Deps are the collaborators a session works with. Orchestrator and
// Watcher may be nil.
type Deps struct {
	Config       *model.AppConfig
	Store        store.Store
	Cache        *cache.ThreadCache
	Orchestrator *appsync.Orchestrator
	Batcher      *bulk.Batcher
	Actions      *inbox.Actions
	Watcher      *live.Watcher
	Logger       zerolog.Logger
}

// Model is the root Bubble Tea model for one inbox session.
type Model struct {
	deps      Deps
	cfg       *model.AppConfig
	book      *triage.AddressBook
	annotator *triage.Annotator
	log       zerolog.Logger

	keys   *keys.KeyMap
	layout ui.Layout
	list   threadlist.Model
	detail detail.Model
	form   threadform.Model
	help   help.Model
	screen Screen
	ready  bool

	view    inbox.View
	simple  bool
	filters inbox.Filters
	search  string
	counts  inbox.Counts
	shown   int

	selection *bulk.Selection

	// syncing blocks duplicate sync requests from this session while one
	// is outstanding.
	syncing     bool
	bulkRunning bool

	notice    *model.Notice
	noticeSeq int
}

// New creates a session model.
func New(deps Deps) Model {
	k := keys.DefaultKeyMap()
	sel := bulk.NewSelection()
	book := &triage.AddressBook{}

	m := Model{
		deps:      deps,
		cfg:       deps.Config,
		book:      book,
		log:       deps.Logger.With().Str("component", "session").Logger(),
		keys:      k,
		list:      threadlist.New(k, sel, 80, 20),
		detail:    detail.New(k, 80, 20),
		form:      threadform.New(80, 20),
		help:      help.New(),
		view:      inbox.ViewUnassigned,
		filters:   inbox.Filters{},
		selection: sel,
	}
	m.annotator = m.buildAnnotator()
	m.form.SetMembers(m.members())
	return m
}

// members lists the people a thread can be assigned to, the actor first.
func (m Model) members() []model.Member {
	out := []model.Member{{Email: m.cfg.Actor.Email, Name: m.cfg.Actor.Name}}
	seen := map[string]bool{model.NormalizeAddress(m.cfg.Actor.Email): true}
	for _, mem := range m.cfg.Team {
		addr := model.NormalizeAddress(mem.Email)
		if addr == "" || seen[addr] {
			continue
		}
		seen[addr] = true
		out = append(out, mem)
	}
	return out
}

func (m Model) buildAnnotator() *triage.Annotator {
	org := m.book.Set(m.cfg.Actor.Email, m.cfg.Team)
	return triage.NewAnnotator(org, m.cfg.Triage.CategoryThreshold)
}

// mountMsg starts the mount-time sync from inside Update.
type mountMsg struct{}

// Init loads the cached threads, asks for a mount sync and starts
// listening for store changes.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.loadThreads(),
		func() tea.Msg { return mountMsg{} },
	}
	if m.deps.Watcher != nil {
		cmds = append(cmds, m.deps.Watcher.WaitCmd())
	}
	return tea.Batch(cmds...)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		m.list.SetSize(m.layout.ContentWidth(), m.layout.ContentHeight())
		m.detail.SetSize(m.layout.ContentWidth(), m.layout.ContentHeight())
		m.form.SetSize(m.layout.ContentWidth(), m.layout.ContentHeight())
		m.help.Width = m.layout.ContentWidth() - 4
		return m, nil

	case mountMsg:
		return m, m.startSync(appsync.TriggerMount)

	case tea.FocusMsg:
		return m, m.startSync(appsync.TriggerVisible)

	case threadsLoadedMsg:
		var cmd tea.Cmd
		if msg.err != nil {
			m.log.Error().Err(msg.err).Msg("loading threads failed")
			cmd = m.setNotice(model.NoticeError, "Could not load threads.")
		}
		return m, tea.Batch(cmd, m.refresh())

	case appsync.ResultMsg:
		m.syncing = false
		if msg.Suppressed {
			return m, nil
		}
		var cmd tea.Cmd
		if msg.Notice != nil {
			cmd = m.showNotice(*msg.Notice)
		}
		return m, tea.Batch(cmd, m.refresh())

	case bulk.ResultMsg:
		m.bulkRunning = false
		var cmd tea.Cmd
		if msg.Notice != nil {
			cmd = m.showNotice(*msg.Notice)
		}
		return m, tea.Batch(cmd, m.refresh())

	case actionDoneMsg:
		var cmd tea.Cmd
		if msg.err != nil {
			m.log.Error().Err(msg.err).Str("action", msg.verb).Msg("thread action failed")
			cmd = m.setNotice(model.NoticeError, "Could not "+msg.verb+" the thread.")
		}
		return m, tea.Batch(cmd, m.refresh())

	case live.ChangedMsg:
		return m, tea.Batch(m.loadThreads(), m.deps.Watcher.WaitCmd())

	case ConfigChangedMsg:
		if msg.Config == nil {
			return m, m.refresh()
		}
		prev := m.cfg.Actor
		m.cfg = msg.Config
		m.annotator = m.buildAnnotator()
		m.form.SetMembers(m.members())
		if prev == m.cfg.Actor {
			return m, m.refresh()
		}
		m.applyActor(m.cfg.Actor)
		return m, tea.Batch(m.refresh(), m.loadThreads())

	case clearNoticeMsg:
		if msg.seq == m.noticeSeq {
			m.notice = nil
		}
		return m, nil

	case threadlist.SearchMsg:
		m.search = msg.Query
		return m, m.refresh()

	case threadlist.OpenMsg:
		m.screen = ScreenDetail
		m.detail.SetLoading(true)
		return m, m.loadDetail(msg.ThreadID)

	case detail.LoadedMsg:
		m.detail.SetThread(msg)
		return m, m.refresh()

	case detail.BackMsg:
		m.screen = ScreenList
		return m, nil

	case threadform.SubmitMsg:
		m.screen = ScreenList
		return m, m.submitForm(msg.Request)

	case threadform.CancelMsg:
		m.screen = ScreenList
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.quit()
		}
		if m.screen == ScreenList && !m.list.Searching() {
			if next, cmd, handled := m.handleListKeys(msg); handled {
				return next, cmd
			}
		}
		if m.screen == ScreenHelp {
			if key.Matches(msg, m.keys.Help) || key.Matches(msg, m.keys.Back) {
				m.screen = ScreenList
			}
			return m, nil
		}
	}

	return m.updateActiveView(msg)
}

// handleListKeys processes the session-level keys on the list screen.
func (m Model) handleListKeys(msg tea.KeyMsg) (Model, tea.Cmd, bool) {
	k := m.keys
	switch {
	case key.Matches(msg, k.Quit):
		next, cmd := m.quit()
		return next.(Model), cmd, true

	case key.Matches(msg, k.Help):
		m.screen = ScreenHelp
		return m, nil, true

	case key.Matches(msg, k.Sync):
		return m, m.startSync(appsync.TriggerRetry), true

	case key.Matches(msg, k.NextView):
		m.simple = false
		m.view = shiftView(m.view, 1)
		return m, m.refresh(), true

	case key.Matches(msg, k.PrevView):
		m.simple = false
		m.view = shiftView(m.view, -1)
		return m, m.refresh(), true

	case key.Matches(msg, k.SimpleMode):
		m.simple = !m.simple
		return m, m.refresh(), true

	case key.Matches(msg, k.Back):
		if m.list.SelectMode() {
			m.exitSelectMode()
			return m, nil, true
		}
		return m, nil, false

	case key.Matches(msg, k.SelectMode):
		if m.list.SelectMode() {
			m.exitSelectMode()
		} else {
			m.list.SetSelectMode(true)
		}
		return m, nil, true

	case key.Matches(msg, k.Toggle):
		if !m.list.SelectMode() {
			return m, nil, false
		}
		if id, ok := m.list.SelectedID(); ok {
			m.selection.Toggle(id)
		}
		return m, nil, true

	case key.Matches(msg, k.BulkRead):
		return m, m.startBulk(bulk.MarkRead()), true
	case key.Matches(msg, k.BulkUnread):
		return m, m.startBulk(bulk.MarkUnread()), true
	case key.Matches(msg, k.BulkClose):
		return m, m.startBulk(bulk.Close()), true
	case key.Matches(msg, k.BulkAssign):
		return m, m.startBulk(bulk.AssignToSelf(m.cfg.Actor)), true

	case key.Matches(msg, k.LinkProject):
		return m, m.openForm(threadform.KindLinkProject), true
	case key.Matches(msg, k.LinkContract):
		return m, m.openForm(threadform.KindLinkContract), true
	case key.Matches(msg, k.AssignTo):
		return m, m.openForm(threadform.KindAssign), true
	case key.Matches(msg, k.AddNote):
		return m, m.openForm(threadform.KindNote), true
	}

	if cmd, ok := m.threadAction(msg); ok {
		return m, cmd, true
	}
	if f, ok := m.filterKey(msg); ok {
		m.simple = true
		m.filters[f] = !m.filters[f]
		return m, m.refresh(), true
	}
	return m, nil, false
}

// filterKey maps the simple surface toggle keys to filters.
func (m Model) filterKey(msg tea.KeyMsg) (inbox.Filter, bool) {
	k := m.keys
	bindings := []struct {
		binding key.Binding
		filter  inbox.Filter
	}{
		{k.FilterClosed, inbox.FilterClosed},
		{k.FilterMine, inbox.FilterAssignedToMe},
		{k.FilterSent, inbox.FilterSent},
		{k.FilterReceived, inbox.FilterReceived},
		{k.FilterPinned, inbox.FilterPinned},
		{k.FilterLinked, inbox.FilterLinked},
		{k.FilterUnlinked, inbox.FilterUnlinked},
	}
	for _, b := range bindings {
		if key.Matches(msg, b.binding) {
			return b.filter, true
		}
	}
	return inbox.FilterNone, false
}

func (m *Model) exitSelectMode() {
	m.list.SetSelectMode(false)
	m.selection.Clear()
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	if m.deps.Orchestrator != nil {
		m.deps.Orchestrator.Detach()
	}
	return m, tea.Quit
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.screen {
	case ScreenList:
		m.list, cmd = m.list.Update(msg)
	case ScreenDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ScreenForm:
		m.form, cmd = m.form.Update(msg)
	}
	return m, cmd
}

// refresh recomputes the visible list and the tab counts from the cache.
func (m *Model) refresh() tea.Cmd {
	threads := m.deps.Cache.Threads()
	me := m.cfg.Actor.Email
	m.counts = inbox.CountViews(threads, m.annotator, me)

	var items []inbox.Item
	if m.simple {
		items = inbox.Simple(threads, m.annotator, inbox.SimpleQuery{Filters: m.filters, Search: m.search, Me: me})
	} else {
		items = inbox.Workflow(threads, m.annotator, inbox.Query{View: m.view, Search: m.search, Me: me})
	}
	m.shown = len(items)
	return m.list.SetItems(items)
}

func shiftView(v inbox.View, step int) inbox.View {
	for i, candidate := range inbox.Views {
		if candidate == v {
			n := len(inbox.Views)
			return inbox.Views[((i+step)%n+n)%n]
		}
	}
	return inbox.Views[0]
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := "Inbox"
	if m.simple {
		title = "Inbox · all threads"
	}
	header := m.layout.RenderHeader(title, m.syncStatus())
	tabs := m.layout.RenderTabs(m.tabs())

	var content string
	switch m.screen {
	case ScreenDetail:
		content = m.detail.View()
	case ScreenForm:
		content = m.form.View()
	case ScreenHelp:
		m.help.ShowAll = true
		content = theme.DetailPanelStyle.
			Width(m.layout.ContentWidth() - 4).
			Height(m.layout.ContentHeight() - 4).
			Render(lipgloss.JoinVertical(lipgloss.Left,
				lipgloss.NewStyle().Bold(true).MarginBottom(1).Render("Inbox shortcuts"),
				m.help.View(m.keys)))
	default:
		content = m.list.View()
	}

	text, style := m.statusLine()
	return m.layout.RenderWithFrame(header, tabs, content, m.layout.RenderStatusBar(text, style))
}

func (m Model) tabs() []ui.Tab {
	if !m.simple {
		tabs := make([]ui.Tab, 0, len(inbox.Views))
		for _, v := range inbox.Views {
			tabs = append(tabs, ui.Tab{Title: v.Title(), Count: m.counts[v], Active: v == m.view})
		}
		return tabs
	}

	honored := m.filters.Honored()
	tabs := []ui.Tab{{Title: "All", Count: m.shown, Active: honored == inbox.FilterNone}}
	for _, f := range []inbox.Filter{
		inbox.FilterClosed, inbox.FilterAssignedToMe, inbox.FilterSent, inbox.FilterReceived,
		inbox.FilterPinned, inbox.FilterLinked, inbox.FilterUnlinked,
	} {
		tab := ui.Tab{Title: string(f), Count: -1, Active: f == honored}
		if tab.Active {
			tab.Count = m.shown
		}
		tabs = append(tabs, tab)
	}
	return tabs
}

// syncStatus returns a short description of the sync state.
func (m Model) syncStatus() string {
	if m.deps.Orchestrator == nil {
		return "sync not configured"
	}
	if m.syncing {
		return "syncing…"
	}
	st := m.deps.Orchestrator.Status()
	switch {
	case st.Error != nil:
		return "sync failed"
	case st.LastSync.IsZero():
		return "not synced yet"
	default:
		return "synced " + st.LastSync.Local().Format("15:04")
	}
}

// statusLine returns the notice, the selection summary or key hints.
func (m Model) statusLine() (string, lipgloss.Style) {
	if m.notice != nil {
		return m.notice.Message, theme.NoticeStyle(string(m.notice.Level))
	}
	switch m.screen {
	case ScreenDetail:
		return "esc back | j/k scroll", theme.StatusBarStyle
	case ScreenHelp:
		return "? close help | esc back", theme.StatusBarStyle
	case ScreenForm:
		return "enter submit | esc cancel", theme.StatusBarStyle
	}
	if m.list.SelectMode() {
		return fmt.Sprintf("%d selected | space toggle | R read | U unread | X close | A assign | L/C link | @ assign to | esc done",
			m.selection.Len()), theme.StatusBarStyle
	}
	if m.search != "" {
		return fmt.Sprintf("search %q | / edit | esc clear", m.search), theme.StatusBarStyle
	}
	return "q quit | ? help | tab view | S all threads | / search | r sync | v select", theme.StatusBarStyle
}
