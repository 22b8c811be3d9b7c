package inbox

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/nhle/inbox-triage/internal/model"
	"github.com/nhle/inbox-triage/internal/store"
	"github.com/nhle/inbox-triage/internal/triage"
)

// ErrInvalidStatus is returned for a workflow status that cannot be set.
var ErrInvalidStatus = errors.New("invalid workflow status")

// Invalidator refreshes the thread cache after writes.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Actions applies single-thread workflow changes. Every write goes through
// the mutation sink and is followed by a cache refetch; derived fields are
// never patched in place.
type Actions struct {
	sink  store.MutationSink
	cache Invalidator
	now   func() time.Time
	log   zerolog.Logger

	mutex sync.RWMutex
	actor model.ActorConfig
}

// NewActions creates an action set for actor. cache may be nil.
func NewActions(sink store.MutationSink, cache Invalidator, actor model.ActorConfig, logger zerolog.Logger) *Actions {
	return &Actions{
		sink:  sink,
		cache: cache,
		actor: actor,
		now:   time.Now,
		log:   logger.With().Str("component", "inbox").Logger(),
	}
}

// SetActor replaces the user that self-assignments and notes are
// attributed to.
func (a *Actions) SetActor(actor model.ActorConfig) {
	a.mutex.Lock()
	defer a.mutex.Unlock()
	a.actor = actor
}

func (a *Actions) currentActor() model.ActorConfig {
	a.mutex.RLock()
	defer a.mutex.RUnlock()
	return a.actor
}

// SetStatus moves a thread to the given workflow status. Done closes the
// thread; any other status also reopens it.
func (a *Actions) SetStatus(ctx context.Context, id string, status triage.Status) error {
	switch status {
	case triage.StatusDone:
		return a.Close(ctx, id)
	case triage.StatusNeedsAction, triage.StatusWaiting, triage.StatusFYI:
		patch := model.ThreadPatch{
			UserStatus:       model.Ptr(""),
			NextActionStatus: model.Ptr(string(status)),
		}
		return a.apply(ctx, id, patch, "Status set to "+string(status))
	}
	return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
}

// Close marks the thread done. Its next action status is kept so a
// reopen can be audited against it.
func (a *Actions) Close(ctx context.Context, id string) error {
	return a.apply(ctx, id, model.ThreadPatch{UserStatus: model.Ptr(model.UserStatusClosed)}, "Closed")
}

// Reopen clears the closed flag and puts the thread back to needs_action.
func (a *Actions) Reopen(ctx context.Context, id string) error {
	patch := model.ThreadPatch{
		UserStatus:       model.Ptr(""),
		NextActionStatus: model.Ptr(model.NextActionNeedsAction),
	}
	return a.apply(ctx, id, patch, "Reopened")
}

// Assign gives the thread to email. An empty email unassigns it.
func (a *Actions) Assign(ctx context.Context, id, email, name string) error {
	email = model.NormalizeAddress(email)
	audit := "Unassigned"
	if email != "" {
		who := name
		if who == "" {
			who = email
		}
		audit = "Assigned to " + who
	}
	patch := model.ThreadPatch{AssignedTo: model.Ptr(email), AssignedToName: model.Ptr(name)}
	return a.apply(ctx, id, patch, audit)
}

// AssignToSelf assigns the thread to the current user.
func (a *Actions) AssignToSelf(ctx context.Context, id string) error {
	actor := a.currentActor()
	if actor.Email == "" {
		return fmt.Errorf("assigning %s: actor email is not configured", id)
	}
	return a.Assign(ctx, id, actor.Email, actor.Name)
}

func (a *Actions) Pin(ctx context.Context, id string) error {
	return a.apply(ctx, id, model.ThreadPatch{PinnedAt: model.Ptr(model.FormatTimestamp(a.now()))}, "")
}

func (a *Actions) Unpin(ctx context.Context, id string) error {
	return a.apply(ctx, id, model.ThreadPatch{PinnedAt: model.Ptr("")}, "")
}

func (a *Actions) MarkRead(ctx context.Context, id string) error {
	return a.apply(ctx, id, model.ThreadPatch{IsRead: model.Ptr(true)}, "")
}

func (a *Actions) MarkUnread(ctx context.Context, id string) error {
	return a.apply(ctx, id, model.ThreadPatch{IsRead: model.Ptr(false)}, "")
}

// LinkProject attaches the thread to a project; an empty ID detaches it.
func (a *Actions) LinkProject(ctx context.Context, id, projectID string) error {
	audit := "Unlinked from project"
	if projectID != "" {
		audit = "Linked to project " + projectID
	}
	return a.apply(ctx, id, model.ThreadPatch{ProjectID: model.Ptr(projectID)}, audit)
}

// LinkContract attaches the thread to a contract; an empty ID detaches it.
func (a *Actions) LinkContract(ctx context.Context, id, contractID string) error {
	audit := "Unlinked from contract"
	if contractID != "" {
		audit = "Linked to contract " + contractID
	}
	return a.apply(ctx, id, model.ThreadPatch{ContractID: model.Ptr(contractID)}, audit)
}

// Delete soft-deletes the thread.
func (a *Actions) Delete(ctx context.Context, id string) error {
	return a.apply(ctx, id, model.ThreadPatch{IsDeleted: model.Ptr(true)}, "Deleted")
}

// AddNote records a free-form note on the thread.
func (a *Actions) AddNote(ctx context.Context, id, body string) error {
	note := model.Note{ThreadID: id, Kind: model.NoteKindNote, Body: body, Author: a.currentActor().Email}
	if err := a.sink.CreateNote(ctx, note); err != nil {
		return fmt.Errorf("adding note to %s: %w", id, err)
	}
	return nil
}

func (a *Actions) apply(ctx context.Context, id string, patch model.ThreadPatch, audit string) error {
	if err := a.sink.UpdateThread(ctx, id, patch); err != nil {
		return fmt.Errorf("updating thread %s: %w", id, err)
	}
	if audit != "" {
		note := model.Note{ThreadID: id, Kind: model.NoteKindAudit, Body: audit, Author: a.currentActor().Email}
		if err := a.sink.CreateNote(ctx, note); err != nil {
			return fmt.Errorf("recording audit note on %s: %w", id, err)
		}
	}
	a.log.Debug().Str("thread", id).Str("audit", audit).Msg("thread updated")

	if a.cache != nil {
		if err := a.cache.Invalidate(ctx); err != nil {
			a.log.Warn().Err(err).Msg("refetch after update failed")
		}
	}
	return nil
}
