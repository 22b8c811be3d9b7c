package sync

import (
	"context"
	"fmt"
	gosync "sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/nhle/inbox-triage/internal/model"
	"github.com/nhle/inbox-triage/internal/policy"
	"github.com/nhle/inbox-triage/internal/source"
)

// State is the orchestrator's lifecycle state.
type State int

const (
	StateIdle State = iota
	StateInFlight
)

func (s State) String() string {
	if s == StateInFlight {
		return "in_flight"
	}
	return "idle"
}

// Trigger names the event that asked for a sync.
type Trigger string

const (
	TriggerMount   Trigger = "mount"
	TriggerVisible Trigger = "visible"
	TriggerRetry   Trigger = "retry"
)

// Outcome classifies what a Run did.
type Outcome int

const (
	// OutcomeNoop means a guard refused the transition; nothing was called.
	OutcomeNoop Outcome = iota
	OutcomeCompleted
	// OutcomeLocked means the server reported another sync in progress.
	OutcomeLocked
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeLocked:
		return "locked"
	case OutcomeFailed:
		return "failed"
	default:
		return "noop"
	}
}

// Result describes one Run.
type Result struct {
	Trigger Trigger
	Outcome Outcome

	// Summary is set for completed syncs.
	Summary *source.Summary

	// LockedUntil is set when the server lock reported an expiry.
	LockedUntil time.Time

	Err error

	// Notice is the single user-visible message for this run, if any.
	Notice *model.Notice

	// Suppressed is set when the orchestrator was detached while the
	// call was in flight; no state was updated for this run.
	Suppressed bool
}

// ResultMsg is a tea.Msg carrying the result of a sync started by Cmd.
type ResultMsg struct {
	Result
}

// Cache is the part of the thread cache the orchestrator depends on.
type Cache interface {
	Invalidate(ctx context.Context) error
	Staleness() time.Duration
}

// Options tunes an Orchestrator.
type Options struct {
	// MinInterval is the throttle floor between successful syncs.
	MinInterval time.Duration

	// StaleAfter is how old the cache must be for a visibility trigger
	// to sync.
	StaleAfter time.Duration

	Now    func() time.Time
	Logger zerolog.Logger
}

// Status is a snapshot of the orchestrator.
type Status struct {
	State    State
	LastSync time.Time
	Error    error
}

// Orchestrator runs the remote mail sync with at most one call in flight
// per session and a minimum interval between successful syncs.
type Orchestrator struct {
	remote     source.Syncer
	cache      Cache
	throttle   *policy.Throttle
	staleAfter time.Duration
	now        func() time.Time
	log        zerolog.Logger

	mu      gosync.Mutex
	state   State
	epoch   uint64
	lastErr error
}

// New creates an orchestrator for remote that refreshes cache after each
// successful sync.
func New(remote source.Syncer, cache Cache, opts Options) *Orchestrator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.MinInterval <= 0 {
		opts.MinInterval = time.Minute
	}
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 10 * time.Minute
	}
	return &Orchestrator{
		remote:     remote,
		cache:      cache,
		throttle:   policy.NewThrottle(opts.MinInterval, opts.Now),
		staleAfter: opts.StaleAfter,
		now:        opts.Now,
		log:        opts.Logger.With().Str("component", "sync").Logger(),
	}
}

// Status returns the current state and last successful sync time.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Status{State: o.state, LastSync: o.throttle.Last(), Error: o.lastErr}
}

// Cmd returns a tea.Cmd that runs a sync and reports a ResultMsg.
func (o *Orchestrator) Cmd(trigger Trigger) tea.Cmd {
	return func() tea.Msg {
		return ResultMsg{Result: o.Run(context.Background(), trigger)}
	}
}

// Detach tears the orchestrator down from its owning view. Any call in
// flight keeps running but its result no longer updates state, and the
// mutex is released so a later mount can sync again.
func (o *Orchestrator) Detach() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.epoch++
	o.state = StateIdle
}

// Run performs one guarded sync. It never panics and always releases the
// in-flight slot before returning. Cancelling ctx does not cancel a remote
// call that has already been issued.
func (o *Orchestrator) Run(ctx context.Context, trigger Trigger) Result {
	res := Result{Trigger: trigger}

	if trigger == TriggerVisible {
		if age := o.cache.Staleness(); age <= o.staleAfter {
			o.log.Debug().Dur("age", age).Msg("cache fresh; skipping visibility sync")
			return res
		}
	}

	epoch, ok := o.acquire()
	if !ok {
		o.log.Debug().Str("trigger", string(trigger)).Msg("sync already in flight")
		return res
	}
	defer o.release(epoch)

	if !o.throttle.Ready() {
		o.log.Debug().Time("last_sync", o.throttle.Last()).Msg("sync throttled")
		return res
	}

	o.log.Info().Str("trigger", string(trigger)).Msg("sync started")
	out, err := o.call(context.WithoutCancel(ctx))

	if !o.current(epoch) {
		o.log.Debug().Msg("detached during sync; result suppressed")
		res.Outcome = outcomeOf(out, err)
		res.Err = err
		res.Suppressed = true
		return res
	}

	switch {
	case err != nil:
		o.setErr(err)
		o.log.Error().Err(err).Msg("sync failed")
		res.Outcome = OutcomeFailed
		res.Err = err
		msg := "Mail sync failed. Try again shortly."
		if source.IsAuthError(err) {
			msg = "Mail sync failed: the sync token was rejected."
		}
		res.Notice = notice(model.NoticeError, msg)

	case out.Skipped:
		o.setErr(nil)
		res.Outcome = OutcomeLocked
		res.LockedUntil = out.LockedUntilTime()
		o.log.Info().Str("reason", out.Reason).Str("locked_until", out.LockedUntil).Msg("sync skipped by server")
		res.Notice = notice(model.NoticeWarning, lockedMessage(out.Reason, res.LockedUntil))

	default:
		o.setErr(nil)
		o.throttle.Mark()
		res.Outcome = OutcomeCompleted
		res.Summary = &out.Summary
		o.log.Info().
			Int("threads", out.ThreadsSynced).
			Int("messages", out.MessagesSynced).
			Int("errors", len(out.Errors)).
			Msg("sync completed")

		if err := o.cache.Invalidate(ctx); err != nil {
			o.log.Warn().Err(err).Msg("refetch after sync failed")
			res.Notice = notice(model.NoticeWarning, "Mail synced but the list could not be refreshed.")
		} else if len(out.Errors) > 0 {
			res.Notice = notice(model.NoticeWarning,
				fmt.Sprintf("Synced %d threads with %d errors.", out.ThreadsSynced, len(out.Errors)))
		} else if out.ThreadsSynced > 0 {
			res.Notice = notice(model.NoticeInfo, fmt.Sprintf("Synced %d threads.", out.ThreadsSynced))
		}
	}

	return res
}

// acquire moves idle to in_flight and returns the epoch that owns the
// slot.
func (o *Orchestrator) acquire() (uint64, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateIdle {
		return 0, false
	}
	o.state = StateInFlight
	return o.epoch, true
}

// release returns to idle unless a Detach already reset the slot.
func (o *Orchestrator) release(epoch uint64) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.epoch == epoch {
		o.state = StateIdle
	}
}

func (o *Orchestrator) current(epoch uint64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.epoch == epoch
}

func (o *Orchestrator) setErr(err error) {
	o.mu.Lock()
	o.lastErr = err
	o.mu.Unlock()
}

// call invokes the remote operation, converting a panic into an error.
func (o *Orchestrator) call(ctx context.Context) (out *source.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, fmt.Errorf("sync function panicked: %v", r)
		}
	}()
	out, err = o.remote.Sync(ctx)
	if err == nil && out == nil {
		err = fmt.Errorf("sync function returned no outcome")
	}
	return out, err
}

func outcomeOf(out *source.Outcome, err error) Outcome {
	switch {
	case err != nil:
		return OutcomeFailed
	case out.Skipped:
		return OutcomeLocked
	default:
		return OutcomeCompleted
	}
}

func lockedMessage(reason string, until time.Time) string {
	if reason != source.SkipReasonLocked {
		return fmt.Sprintf("Mail sync skipped (%s).", reason)
	}
	if until.IsZero() {
		return "Mail sync is already running elsewhere."
	}
	return fmt.Sprintf("Mail sync is already running elsewhere; try again after %s.",
		until.Local().Format("15:04"))
}

func notice(level model.NoticeLevel, msg string) *model.Notice {
	n := model.NewNotice(level, msg)
	return &n
}
