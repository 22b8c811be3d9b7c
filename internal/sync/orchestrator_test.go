package sync

import (
	"context"
	"errors"
	gosync "sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/inbox-triage/internal/model"
	"github.com/nhle/inbox-triage/internal/source"
)

type fakeClock struct {
	mu  gosync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

type fakeRemote struct {
	calls   atomic.Int32
	block   chan struct{}
	started chan struct{}
	outcome *source.Outcome
	err     error
	panics  bool
}

func (f *fakeRemote) Sync(ctx context.Context) (*source.Outcome, error) {
	f.calls.Add(1)
	if f.started != nil {
		f.started <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	if f.panics {
		panic("boom")
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.outcome != nil {
		return f.outcome, nil
	}
	return &source.Outcome{Summary: source.Summary{ThreadsSynced: 3, MessagesSynced: 7}}, nil
}

type fakeCache struct {
	invalidations atomic.Int32
	staleness     time.Duration
	err           error
}

func (f *fakeCache) Invalidate(context.Context) error {
	f.invalidations.Add(1)
	return f.err
}

func (f *fakeCache) Staleness() time.Duration { return f.staleness }

func newOrchestrator(remote source.Syncer, cache Cache, clock *fakeClock) *Orchestrator {
	return New(remote, cache, Options{
		MinInterval: time.Minute,
		StaleAfter:  10 * time.Minute,
		Now:         clock.Now,
		Logger:      zerolog.Nop(),
	})
}

func TestOrchestrator_ConcurrentTriggersMakeOneCall(t *testing.T) {
	remote := &fakeRemote{block: make(chan struct{}), started: make(chan struct{}, 2)}
	cache := &fakeCache{}
	o := newOrchestrator(remote, cache, newFakeClock())

	first := make(chan Result, 1)
	go func() { first <- o.Run(context.Background(), TriggerMount) }()
	<-remote.started

	second := o.Run(context.Background(), TriggerRetry)
	assert.Equal(t, OutcomeNoop, second.Outcome)
	assert.Equal(t, StateInFlight, o.Status().State)

	close(remote.block)
	res := <-first

	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, int32(1), remote.calls.Load())
	assert.Equal(t, int32(1), cache.invalidations.Load())
	assert.Equal(t, StateIdle, o.Status().State)
}

func TestOrchestrator_ThrottleWithinInterval(t *testing.T) {
	clock := newFakeClock()
	remote := &fakeRemote{}
	o := newOrchestrator(remote, &fakeCache{}, clock)

	res := o.Run(context.Background(), TriggerMount)
	require.Equal(t, OutcomeCompleted, res.Outcome)

	clock.Advance(100 * time.Millisecond)
	res = o.Run(context.Background(), TriggerRetry)

	assert.Equal(t, OutcomeNoop, res.Outcome)
	assert.Equal(t, int32(1), remote.calls.Load())
	assert.Equal(t, StateIdle, o.Status().State)
}

func TestOrchestrator_ThrottleExpiry(t *testing.T) {
	clock := newFakeClock()
	remote := &fakeRemote{}
	o := newOrchestrator(remote, &fakeCache{}, clock)

	require.Equal(t, OutcomeCompleted, o.Run(context.Background(), TriggerMount).Outcome)
	clock.Advance(61 * time.Second)
	require.Equal(t, OutcomeCompleted, o.Run(context.Background(), TriggerRetry).Outcome)

	assert.Equal(t, int32(2), remote.calls.Load())
	assert.Equal(t, clock.Now(), o.Status().LastSync)
}

func TestOrchestrator_CompletedNotice(t *testing.T) {
	o := newOrchestrator(&fakeRemote{}, &fakeCache{}, newFakeClock())

	res := o.Run(context.Background(), TriggerMount)

	require.NotNil(t, res.Summary)
	assert.Equal(t, 3, res.Summary.ThreadsSynced)
	require.NotNil(t, res.Notice)
	assert.Equal(t, model.NoticeInfo, res.Notice.Level)
	assert.Equal(t, "Synced 3 threads.", res.Notice.Message)
}

func TestOrchestrator_CompletedWithoutNewThreadsIsQuiet(t *testing.T) {
	remote := &fakeRemote{outcome: &source.Outcome{}}
	o := newOrchestrator(remote, &fakeCache{}, newFakeClock())

	res := o.Run(context.Background(), TriggerMount)

	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Nil(t, res.Notice)
}

func TestOrchestrator_LockedDoesNotArmThrottle(t *testing.T) {
	clock := newFakeClock()
	until := clock.Now().Add(5 * time.Minute)
	remote := &fakeRemote{outcome: &source.Outcome{
		Skipped:     true,
		Reason:      source.SkipReasonLocked,
		LockedUntil: until.Format(time.RFC3339),
	}}
	cache := &fakeCache{}
	o := newOrchestrator(remote, cache, clock)

	res := o.Run(context.Background(), TriggerMount)

	assert.Equal(t, OutcomeLocked, res.Outcome)
	assert.True(t, until.Equal(res.LockedUntil))
	require.NotNil(t, res.Notice)
	assert.Equal(t, model.NoticeWarning, res.Notice.Level)
	assert.Contains(t, res.Notice.Message, "already running elsewhere")
	assert.Zero(t, cache.invalidations.Load())
	assert.True(t, o.Status().LastSync.IsZero())
	assert.Equal(t, StateIdle, o.Status().State)

	res = o.Run(context.Background(), TriggerRetry)
	assert.Equal(t, OutcomeLocked, res.Outcome)
	assert.Equal(t, int32(2), remote.calls.Load())
}

func TestOrchestrator_FailureReleasesAndNotifies(t *testing.T) {
	remote := &fakeRemote{err: errors.New("connection reset")}
	cache := &fakeCache{}
	o := newOrchestrator(remote, cache, newFakeClock())

	res := o.Run(context.Background(), TriggerMount)

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.EqualError(t, res.Err, "connection reset")
	require.NotNil(t, res.Notice)
	assert.Equal(t, model.NoticeError, res.Notice.Level)
	assert.Zero(t, cache.invalidations.Load())
	assert.Equal(t, StateIdle, o.Status().State)
	assert.Error(t, o.Status().Error)

	remote.err = nil
	res = o.Run(context.Background(), TriggerRetry)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.NoError(t, o.Status().Error)
}

func TestOrchestrator_AuthFailureNotice(t *testing.T) {
	remote := &fakeRemote{err: &source.AuthError{Endpoint: "https://fn", Message: "bad token"}}
	o := newOrchestrator(remote, &fakeCache{}, newFakeClock())

	res := o.Run(context.Background(), TriggerMount)

	require.NotNil(t, res.Notice)
	assert.Contains(t, res.Notice.Message, "token was rejected")
}

func TestOrchestrator_PanicIsRecovered(t *testing.T) {
	remote := &fakeRemote{panics: true}
	o := newOrchestrator(remote, &fakeCache{}, newFakeClock())

	res := o.Run(context.Background(), TriggerMount)

	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.ErrorContains(t, res.Err, "panicked")
	assert.Equal(t, StateIdle, o.Status().State)
}

func TestOrchestrator_VisibleRequiresStaleCache(t *testing.T) {
	remote := &fakeRemote{}
	cache := &fakeCache{staleness: 5 * time.Minute}
	o := newOrchestrator(remote, cache, newFakeClock())

	res := o.Run(context.Background(), TriggerVisible)
	assert.Equal(t, OutcomeNoop, res.Outcome)
	assert.Zero(t, remote.calls.Load())

	cache.staleness = 11 * time.Minute
	res = o.Run(context.Background(), TriggerVisible)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.Equal(t, int32(1), remote.calls.Load())
}

func TestOrchestrator_RefetchFailureWarns(t *testing.T) {
	cache := &fakeCache{err: errors.New("database is locked")}
	o := newOrchestrator(&fakeRemote{}, cache, newFakeClock())

	res := o.Run(context.Background(), TriggerMount)

	assert.Equal(t, OutcomeCompleted, res.Outcome)
	require.NotNil(t, res.Notice)
	assert.Equal(t, model.NoticeWarning, res.Notice.Level)
	assert.False(t, o.Status().LastSync.IsZero())
}

func TestOrchestrator_DetachSuppressesInFlightResult(t *testing.T) {
	remote := &fakeRemote{block: make(chan struct{}), started: make(chan struct{}, 2)}
	cache := &fakeCache{}
	o := newOrchestrator(remote, cache, newFakeClock())

	first := make(chan Result, 1)
	go func() { first <- o.Run(context.Background(), TriggerMount) }()
	<-remote.started

	o.Detach()
	assert.Equal(t, StateIdle, o.Status().State)

	second := make(chan Result, 1)
	go func() { second <- o.Run(context.Background(), TriggerMount) }()
	<-remote.started

	close(remote.block)
	stale := <-first
	fresh := <-second

	assert.True(t, stale.Suppressed)
	assert.Nil(t, stale.Notice)
	assert.False(t, fresh.Suppressed)
	assert.Equal(t, OutcomeCompleted, fresh.Outcome)
	assert.Equal(t, int32(2), remote.calls.Load())
	assert.Equal(t, int32(1), cache.invalidations.Load())
	assert.Equal(t, StateIdle, o.Status().State)
}

func TestOrchestrator_CancelledContextDoesNotAbortCall(t *testing.T) {
	remote := &ctxRemote{}
	o := newOrchestrator(remote, &fakeCache{}, newFakeClock())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res := o.Run(ctx, TriggerMount)

	assert.Equal(t, OutcomeCompleted, res.Outcome)
	assert.NoError(t, remote.seen)
}

type ctxRemote struct{ seen error }

func (r *ctxRemote) Sync(ctx context.Context) (*source.Outcome, error) {
	r.seen = ctx.Err()
	return &source.Outcome{}, nil
}

func TestOrchestrator_Cmd(t *testing.T) {
	o := newOrchestrator(&fakeRemote{}, &fakeCache{}, newFakeClock())

	msg := o.Cmd(TriggerRetry)()

	res, ok := msg.(ResultMsg)
	require.True(t, ok)
	assert.Equal(t, TriggerRetry, res.Trigger)
	assert.Equal(t, OutcomeCompleted, res.Outcome)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "in_flight", StateInFlight.String())
	assert.Equal(t, "locked", OutcomeLocked.String())
}
