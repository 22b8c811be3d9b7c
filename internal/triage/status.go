package triage

import "github.com/nhle/inbox-triage/internal/model"

// Status is the canonical workflow state of a thread.
type Status string

const (
	StatusNeedsAction Status = model.NextActionNeedsAction
	StatusWaiting     Status = model.NextActionWaiting
	StatusFYI         Status = model.NextActionFYI
	StatusDone        Status = "done"
)

// ResolveStatus returns the canonical workflow status. A manually closed
// thread is done regardless of its next action status; otherwise the
// stored next action status applies, defaulting to needs_action.
// Unrecognised stored values count as unset.
func ResolveStatus(t model.Thread) Status {
	if t.IsClosed() {
		return StatusDone
	}
	switch Status(t.NextActionStatus) {
	case StatusNeedsAction, StatusWaiting, StatusFYI:
		return Status(t.NextActionStatus)
	}
	return StatusNeedsAction
}
