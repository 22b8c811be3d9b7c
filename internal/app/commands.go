package app

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/inbox-triage/internal/bulk"
	"github.com/nhle/inbox-triage/internal/inbox"
	"github.com/nhle/inbox-triage/internal/model"
	"github.com/nhle/inbox-triage/internal/store"
	appsync "github.com/nhle/inbox-triage/internal/sync"
	"github.com/nhle/inbox-triage/internal/triage"
	"github.com/nhle/inbox-triage/internal/ui/detail"
	"github.com/nhle/inbox-triage/internal/ui/threadform"
)

// threadsLoadedMsg is sent after the cache has been refetched.
type threadsLoadedMsg struct {
	err error
}

// actionDoneMsg is sent after a single-thread action settles.
type actionDoneMsg struct {
	verb string
	err  error
}

// clearNoticeMsg expires the notice with the same sequence number.
type clearNoticeMsg struct {
	seq int
}

// loadThreads refetches the cache.
func (m Model) loadThreads() tea.Cmd {
	c := m.deps.Cache
	return func() tea.Msg {
		return threadsLoadedMsg{err: c.Invalidate(context.Background())}
	}
}

// loadDetail fetches one thread with its notes, marking it read first.
func (m Model) loadDetail(id string) tea.Cmd {
	s := m.deps.Store
	actions := m.deps.Actions
	annotator := m.annotator
	return func() tea.Msg {
		ctx := context.Background()
		t, err := s.GetThread(ctx, id)
		if err != nil {
			return detail.LoadedMsg{Err: err}
		}
		if !t.IsRead {
			if err := actions.MarkRead(ctx, id); err == nil {
				t.IsRead = true
			}
		}
		notes, err := s.GetNotes(ctx, id)
		if err != nil {
			return detail.LoadedMsg{Err: err}
		}
		item := inbox.Item{Thread: *t, Annotation: annotator.Annotate(*t)}
		return detail.LoadedMsg{Item: &item, Notes: notes}
	}
}

// applyActor points every collaborator that acts on behalf of the user
// at actor.
func (m Model) applyActor(actor model.ActorConfig) {
	m.deps.Actions.SetActor(actor)
	if m.deps.Batcher != nil {
		m.deps.Batcher.SetAuthor(actor.Email)
	}
	m.deps.Cache.SetQuery(store.ThreadQuery{Actor: actor.Email, AllMailboxes: actor.AllMailboxes})
}

// startSync asks the orchestrator for a sync unless this session already
// has one outstanding. The session flag is checked before the
// orchestrator's own in-flight and throttle checks.
func (m *Model) startSync(trigger appsync.Trigger) tea.Cmd {
	if m.deps.Orchestrator == nil || m.syncing {
		return nil
	}
	m.syncing = true
	return m.deps.Orchestrator.Cmd(trigger)
}

// startBulk applies action to the current selection.
func (m *Model) startBulk(action bulk.Action) tea.Cmd {
	if !m.list.SelectMode() || m.selection.Len() == 0 {
		return m.setNotice(model.NoticeInfo, "Press v and select threads with space first.")
	}
	if m.bulkRunning {
		return nil
	}
	m.bulkRunning = true
	return m.deps.Batcher.Cmd(m.selection, action)
}

// openForm shows the form for kind. In select mode the link and assign
// forms apply to the selection; notes always go to the thread under the
// cursor.
func (m *Model) openForm(kind threadform.Kind) tea.Cmd {
	if m.list.SelectMode() && kind != threadform.KindNote {
		if m.selection.Len() == 0 {
			return m.setNotice(model.NoticeInfo, "Press v and select threads with space first.")
		}
		if m.bulkRunning {
			return nil
		}
		cmd, err := m.form.StartBulk(kind, m.selection.Len())
		if err != nil {
			return m.setNotice(model.NoticeError, err.Error())
		}
		m.screen = ScreenForm
		return cmd
	}

	t, ok := m.list.SelectedThread()
	if !ok {
		return nil
	}
	m.screen = ScreenForm
	return m.form.StartSingle(kind, t)
}

// submitForm applies a completed form.
func (m *Model) submitForm(req threadform.Request) tea.Cmd {
	if req.Bulk {
		var action bulk.Action
		switch req.Kind {
		case threadform.KindLinkProject:
			action = bulk.LinkProject(req.Value)
		case threadform.KindLinkContract:
			action = bulk.LinkContract(req.Value)
		case threadform.KindAssign:
			action = bulk.Assign(req.Value, req.Name)
		default:
			return nil
		}
		return m.startBulk(action)
	}

	a := m.deps.Actions
	id := req.ThreadID
	var verb string
	var fn func(context.Context) error
	switch req.Kind {
	case threadform.KindLinkProject:
		verb = "link"
		fn = func(ctx context.Context) error { return a.LinkProject(ctx, id, req.Value) }
	case threadform.KindLinkContract:
		verb = "link"
		fn = func(ctx context.Context) error { return a.LinkContract(ctx, id, req.Value) }
	case threadform.KindAssign:
		verb = "assign"
		fn = func(ctx context.Context) error { return a.Assign(ctx, id, req.Value, req.Name) }
	case threadform.KindNote:
		if req.Value == "" {
			return nil
		}
		verb = "add a note to"
		fn = func(ctx context.Context) error { return a.AddNote(ctx, id, req.Value) }
	default:
		return nil
	}
	return func() tea.Msg {
		return actionDoneMsg{verb: verb, err: fn(context.Background())}
	}
}

// threadAction maps single-thread keys to workflow actions on the thread
// under the cursor.
func (m Model) threadAction(msg tea.KeyMsg) (tea.Cmd, bool) {
	t, ok := m.list.SelectedThread()
	if !ok {
		return nil, false
	}
	a := m.deps.Actions
	k := m.keys

	var verb string
	var fn func(context.Context, string) error
	switch {
	case key.Matches(msg, k.Close):
		verb, fn = "close", a.Close
	case key.Matches(msg, k.Reopen):
		verb, fn = "reopen", a.Reopen
	case key.Matches(msg, k.NeedsAction):
		verb, fn = "update", statusFn(a, triage.StatusNeedsAction)
	case key.Matches(msg, k.Waiting):
		verb, fn = "update", statusFn(a, triage.StatusWaiting)
	case key.Matches(msg, k.FYI):
		verb, fn = "update", statusFn(a, triage.StatusFYI)
	case key.Matches(msg, k.AssignSelf):
		verb, fn = "assign", a.AssignToSelf
	case key.Matches(msg, k.Pin):
		verb, fn = "pin", a.Pin
		if t.IsPinned() {
			verb, fn = "unpin", a.Unpin
		}
	case key.Matches(msg, k.ToggleRead):
		verb, fn = "mark read", a.MarkRead
		if t.IsRead {
			verb, fn = "mark unread", a.MarkUnread
		}
	default:
		return nil, false
	}

	id := t.ID
	return func() tea.Msg {
		return actionDoneMsg{verb: verb, err: fn(context.Background(), id)}
	}, true
}

func statusFn(a *inbox.Actions, status triage.Status) func(context.Context, string) error {
	return func(ctx context.Context, id string) error {
		return a.SetStatus(ctx, id, status)
	}
}

// setNotice shows a notice built from level and msg.
func (m *Model) setNotice(level model.NoticeLevel, msg string) tea.Cmd {
	return m.showNotice(model.NewNotice(level, msg))
}

// showNotice replaces the current notice and schedules its expiry.
func (m *Model) showNotice(n model.Notice) tea.Cmd {
	m.noticeSeq++
	m.notice = &n
	seq := m.noticeSeq
	m.log.Debug().Str("level", string(n.Level)).Msg(n.Message)
	return tea.Tick(noticeTTL, func(time.Time) tea.Msg { return clearNoticeMsg{seq: seq} })
}
