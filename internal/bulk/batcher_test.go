package bulk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/inbox-triage/internal/model"
)

type recordingSink struct {
	mu       sync.Mutex
	updates  map[string]model.ThreadPatch
	notes    []model.Note
	inFlight atomic.Int32
	peak     atomic.Int32
	failID   string
	onUpdate func(id string)
}

func newRecordingSink() *recordingSink {
	return &recordingSink{updates: make(map[string]model.ThreadPatch)}
}

func (s *recordingSink) UpdateThread(_ context.Context, id string, patch model.ThreadPatch) error {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		peak := s.peak.Load()
		if n <= peak || s.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	if s.onUpdate != nil {
		s.onUpdate(id)
	}
	time.Sleep(time.Millisecond)
	if id == s.failID {
		return errors.New("rate limited")
	}
	s.mu.Lock()
	s.updates[id] = patch
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) CreateNote(_ context.Context, note model.Note) error {
	s.mu.Lock()
	s.notes = append(s.notes, note)
	s.mu.Unlock()
	return nil
}

type countingCache struct{ calls atomic.Int32 }

func (c *countingCache) Invalidate(context.Context) error {
	c.calls.Add(1)
	return nil
}

func threadIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("t%02d", i)
	}
	return ids
}

func newBatcher(sink *recordingSink, cache Invalidator) *Batcher {
	return NewBatcher(sink, cache, Options{
		ChunkSize: 10,
		Pause:     time.Millisecond,
		Author:    "me@fieldco.com",
		Logger:    zerolog.Nop(),
	})
}

func TestChunk(t *testing.T) {
	chunks := Chunk(threadIDs(25), 10)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 10)
	assert.Len(t, chunks[1], 10)
	assert.Len(t, chunks[2], 5)

	assert.Empty(t, Chunk(nil, 10))
	assert.Len(t, Chunk(threadIDs(3), 0), 1)
}

func TestBatcher_MarkReadTwentyFive(t *testing.T) {
	sink := newRecordingSink()
	cache := &countingCache{}
	sel := NewSelection(threadIDs(25)...)

	var clearedEarly atomic.Bool
	sink.onUpdate = func(string) {
		if sel.Len() != 25 {
			clearedEarly.Store(true)
		}
	}

	res := newBatcher(sink, cache).Apply(context.Background(), sel, MarkRead())

	require.NoError(t, res.Err)
	assert.Equal(t, []int{10, 10, 5}, res.Chunks)
	assert.Equal(t, 25, res.Applied)
	assert.False(t, clearedEarly.Load())
	assert.Zero(t, sel.Len())
	assert.Len(t, sink.updates, 25)
	assert.True(t, *sink.updates["t07"].IsRead)
	assert.LessOrEqual(t, sink.peak.Load(), int32(10))
	assert.Empty(t, sink.notes)
	assert.Equal(t, int32(1), cache.calls.Load())

	require.NotNil(t, res.Notice)
	assert.Equal(t, model.NoticeInfo, res.Notice.Level)
	assert.Equal(t, "25 threads marked as read.", res.Notice.Message)
}

func TestBatcher_FailureAbortsRemainingChunks(t *testing.T) {
	sink := newRecordingSink()
	sink.failID = "t12"
	cache := &countingCache{}
	sel := NewSelection(threadIDs(25)...)

	res := newBatcher(sink, cache).Apply(context.Background(), sel, Close())

	require.Error(t, res.Err)
	assert.ErrorContains(t, res.Err, "t12")
	assert.Equal(t, []int{10, 10}, res.Chunks)
	assert.Equal(t, 10, res.Applied)
	assert.Equal(t, 25, sel.Len())
	assert.NotContains(t, sink.updates, "t20")
	assert.Equal(t, int32(1), cache.calls.Load())

	require.NotNil(t, res.Notice)
	assert.Equal(t, model.NoticeError, res.Notice.Level)
}

func TestBatcher_AuditNotes(t *testing.T) {
	sink := newRecordingSink()
	sel := NewSelection("a", "b")

	actor := model.ActorConfig{Email: "Me@FieldCo.com", Name: "Mia"}
	res := newBatcher(sink, nil).Apply(context.Background(), sel, AssignToSelf(actor))

	require.NoError(t, res.Err)
	assert.Equal(t, "me@fieldco.com", *sink.updates["a"].AssignedTo)
	require.Len(t, sink.notes, 2)
	for _, n := range sink.notes {
		assert.Equal(t, model.NoteKindAudit, n.Kind)
		assert.Equal(t, "Assigned to Mia (bulk)", n.Body)
		assert.Equal(t, "me@fieldco.com", n.Author)
	}
}

func TestBatcher_SetAuthor(t *testing.T) {
	sink := newRecordingSink()
	b := newBatcher(sink, nil)
	b.SetAuthor("new.me@fieldco.com")

	res := b.Apply(context.Background(), NewSelection("a"), Close())

	require.NoError(t, res.Err)
	require.Len(t, sink.notes, 1)
	assert.Equal(t, "new.me@fieldco.com", sink.notes[0].Author)
}

func TestBatcher_EmptySelection(t *testing.T) {
	sink := newRecordingSink()
	res := newBatcher(sink, nil).Apply(context.Background(), NewSelection(), MarkRead())

	assert.NoError(t, res.Err)
	assert.Empty(t, res.Chunks)
	assert.Nil(t, res.Notice)
}

func TestBatcher_CancelledContext(t *testing.T) {
	sink := newRecordingSink()
	b := NewBatcher(sink, nil, Options{ChunkSize: 2, Pause: time.Hour, Logger: zerolog.Nop()})
	sel := NewSelection(threadIDs(4)...)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	res := b.Apply(ctx, sel, MarkUnread())

	require.Error(t, res.Err)
	assert.Equal(t, []int{2}, res.Chunks)
	assert.Equal(t, 4, sel.Len())
}

func TestBatcher_Cmd(t *testing.T) {
	sink := newRecordingSink()
	msg := newBatcher(sink, nil).Cmd(NewSelection("a"), MarkRead())()

	res, ok := msg.(ResultMsg)
	require.True(t, ok)
	assert.Equal(t, "read", res.Action)
	assert.Equal(t, "1 thread marked as read.", res.Notice.Message)
}

func TestSelection(t *testing.T) {
	sel := NewSelection()
	assert.True(t, sel.Toggle("b"))
	sel.Add("a")
	assert.True(t, sel.Has("a"))
	assert.Equal(t, []string{"a", "b"}, sel.IDs())
	assert.False(t, sel.Toggle("b"))
	sel.Remove("a")
	assert.Zero(t, sel.Len())

	var zero Selection
	zero.Add("x")
	assert.Equal(t, 1, zero.Len())
	zero.Clear()
	assert.Zero(t, zero.Len())
}

func TestParseAction(t *testing.T) {
	actor := model.ActorConfig{Email: "me@fieldco.com"}

	a, err := ParseAction("Read", "", actor)
	require.NoError(t, err)
	assert.Equal(t, "read", a.Name)

	a, err = ParseAction("link-project", "P-7", actor)
	require.NoError(t, err)
	assert.Equal(t, "P-7", *a.Patch.ProjectID)

	a, err = ParseAction("LINK-CONTRACT", "C-1", actor)
	require.NoError(t, err)
	assert.Equal(t, "C-1", *a.Patch.ContractID)

	_, err = ParseAction("link-project", "", actor)
	assert.Error(t, err)

	_, err = ParseAction("assign", "", model.ActorConfig{})
	assert.Error(t, err)

	_, err = ParseAction("archive", "", actor)
	assert.Error(t, err)
}

func TestAssign(t *testing.T) {
	a := Assign(" Sam@FieldCo.com ", "Sam")
	assert.Equal(t, "sam@fieldco.com", *a.Patch.AssignedTo)
	assert.Equal(t, "assigned to Sam", a.Verb)
	assert.Equal(t, "Assigned to Sam (bulk)", a.Audit)

	a = Assign("", "")
	assert.Empty(t, *a.Patch.AssignedTo)
	assert.Equal(t, "Unassigned (bulk)", a.Audit)
}
