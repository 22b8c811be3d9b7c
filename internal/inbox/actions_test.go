package inbox

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/inbox-triage/internal/cache"
	"github.com/nhle/inbox-triage/internal/model"
	"github.com/nhle/inbox-triage/internal/store"
	"github.com/nhle/inbox-triage/internal/triage"
	"github.com/nhle/inbox-triage/tests/testutil"
)

type actionsFixture struct {
	store   *store.SQLiteStore
	cache   *cache.ThreadCache
	actions *Actions
}

func newActionsFixture(t *testing.T, threads ...model.Thread) actionsFixture {
	t.Helper()
	s := testutil.NewTestStore(t)
	require.NoError(t, s.UpsertThreads(context.Background(), threads))

	c := cache.New(s, store.ThreadQuery{Actor: me, AllMailboxes: true})
	require.NoError(t, c.Invalidate(context.Background()))

	actor := model.ActorConfig{Email: me, Name: "Mia"}
	a := NewActions(s, c, actor, zerolog.Nop())
	a.now = func() time.Time { return testutil.Reference }
	return actionsFixture{store: s, cache: c, actions: a}
}

func (f actionsFixture) view(v View) []string {
	return ids(Workflow(f.cache.Threads(), annotator(), Query{View: v, Me: me}))
}

func TestActions_StatusTransitionsRefreshViews(t *testing.T) {
	f := newActionsFixture(t, testutil.Thread("t1", 5))
	ctx := context.Background()

	assert.Equal(t, []string{"t1"}, f.view(ViewUnassigned))

	require.NoError(t, f.actions.SetStatus(ctx, "t1", triage.StatusWaiting))
	assert.Empty(t, f.view(ViewUnassigned))
	assert.Equal(t, []string{"t1"}, f.view(ViewWaiting))

	require.NoError(t, f.actions.Close(ctx, "t1"))
	assert.Equal(t, []string{"t1"}, f.view(ViewDone))
	assert.Empty(t, f.view(ViewWaiting))

	require.NoError(t, f.actions.Reopen(ctx, "t1"))
	assert.Equal(t, []string{"t1"}, f.view(ViewUnassigned))

	require.NoError(t, f.actions.SetStatus(ctx, "t1", triage.StatusDone))
	assert.Equal(t, []string{"t1"}, f.view(ViewDone))

	require.NoError(t, f.actions.SetStatus(ctx, "t1", triage.StatusFYI))
	assert.Equal(t, []string{"t1"}, f.view(ViewFYI))

	notes, err := f.store.GetNotes(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, notes, 5)
	for _, n := range notes {
		assert.Equal(t, model.NoteKindAudit, n.Kind)
		assert.Equal(t, me, n.Author)
	}
}

func TestActions_InvalidStatus(t *testing.T) {
	f := newActionsFixture(t, testutil.Thread("t1", 5))

	err := f.actions.SetStatus(context.Background(), "t1", triage.Status("someday"))
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestActions_AssignToSelf(t *testing.T) {
	f := newActionsFixture(t, testutil.Thread("t1", 5))
	ctx := context.Background()

	require.NoError(t, f.actions.AssignToSelf(ctx, "t1"))
	assert.Equal(t, []string{"t1"}, f.view(ViewMyActions))

	require.NoError(t, f.actions.Assign(ctx, "t1", "", ""))
	assert.Equal(t, []string{"t1"}, f.view(ViewUnassigned))

	notes, err := f.store.GetNotes(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	bodies := []string{notes[0].Body, notes[1].Body}
	assert.ElementsMatch(t, []string{"Assigned to Mia", "Unassigned"}, bodies)
}

func TestActions_SetActor(t *testing.T) {
	f := newActionsFixture(t, testutil.Thread("t1", 5))
	ctx := context.Background()

	f.actions.SetActor(model.ActorConfig{Email: "new.me@fieldco.com", Name: "Nia"})
	require.NoError(t, f.actions.AssignToSelf(ctx, "t1"))
	require.NoError(t, f.actions.AddNote(ctx, "t1", "called back"))

	th, err := f.store.GetThread(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "new.me@fieldco.com", th.AssignedTo)

	notes, err := f.store.GetNotes(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	for _, n := range notes {
		assert.Equal(t, "new.me@fieldco.com", n.Author)
	}
}

func TestActions_PinReadLinkDelete(t *testing.T) {
	f := newActionsFixture(t, testutil.Thread("t1", 5), testutil.Thread("t2", 1))
	ctx := context.Background()

	require.NoError(t, f.actions.Pin(ctx, "t1"))
	require.NoError(t, f.actions.MarkRead(ctx, "t2"))
	require.NoError(t, f.actions.LinkProject(ctx, "t2", "P-1"))

	got := Simple(f.cache.Threads(), annotator(), SimpleQuery{})
	assert.Equal(t, []string{"t1", "t2"}, ids(got))

	th, err := f.store.GetThread(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, model.FormatTimestamp(testutil.Reference), th.PinnedAt)

	require.NoError(t, f.actions.Unpin(ctx, "t1"))
	require.NoError(t, f.actions.MarkUnread(ctx, "t2"))
	require.NoError(t, f.actions.LinkContract(ctx, "t1", "C-4"))

	linked := Simple(f.cache.Threads(), annotator(), SimpleQuery{Filters: Filters{FilterLinked: true}})
	assert.Equal(t, []string{"t2", "t1"}, ids(linked))

	require.NoError(t, f.actions.Delete(ctx, "t2"))
	assert.Equal(t, []string{"t1"}, f.view(ViewUnassigned))
}

func TestActions_MissingThread(t *testing.T) {
	f := newActionsFixture(t)

	err := f.actions.Close(context.Background(), "missing")
	assert.ErrorIs(t, err, store.ErrThreadNotFound)
}

func TestActions_AddNote(t *testing.T) {
	f := newActionsFixture(t, testutil.Thread("t1", 5))
	ctx := context.Background()

	require.NoError(t, f.actions.AddNote(ctx, "t1", "called the supplier"))

	notes, err := f.store.GetNotes(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, model.NoteKindNote, notes[0].Kind)
}
