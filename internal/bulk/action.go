package bulk

import (
	"fmt"
	"strings"

	"github.com/nhle/inbox-triage/internal/model"
)

// Action is a state transition applied to every selected thread.
type Action struct {
	// Name identifies the action in logs and the CLI.
	Name string

	// Verb completes "Marked 3 threads as read" style notices.
	Verb string

	Patch model.ThreadPatch

	// Audit is recorded as a note on each thread; empty skips the note.
	Audit string
}

func MarkRead() Action {
	return Action{Name: "read", Verb: "marked as read", Patch: model.ThreadPatch{IsRead: model.Ptr(true)}}
}

func MarkUnread() Action {
	return Action{Name: "unread", Verb: "marked as unread", Patch: model.ThreadPatch{IsRead: model.Ptr(false)}}
}

func Close() Action {
	return Action{
		Name:  "close",
		Verb:  "closed",
		Patch: model.ThreadPatch{UserStatus: model.Ptr(model.UserStatusClosed)},
		Audit: "Closed (bulk)",
	}
}

// AssignToSelf assigns the threads to the given actor.
func AssignToSelf(actor model.ActorConfig) Action {
	a := Assign(actor.Email, actor.Name)
	a.Verb = "assigned to you"
	return a
}

// Assign gives the threads to email. An empty email unassigns them.
func Assign(email, name string) Action {
	email = model.NormalizeAddress(email)
	a := Action{
		Name: "assign",
		Verb: "unassigned",
		Patch: model.ThreadPatch{
			AssignedTo:     model.Ptr(email),
			AssignedToName: model.Ptr(name),
		},
		Audit: "Unassigned (bulk)",
	}
	if email != "" {
		who := displayName(model.ActorConfig{Email: email, Name: name})
		a.Verb = "assigned to " + who
		a.Audit = fmt.Sprintf("Assigned to %s (bulk)", who)
	}
	return a
}

func LinkProject(projectID string) Action {
	return Action{
		Name:  "link-project",
		Verb:  "linked to project " + projectID,
		Patch: model.ThreadPatch{ProjectID: model.Ptr(projectID)},
		Audit: "Linked to project " + projectID + " (bulk)",
	}
}

func LinkContract(contractID string) Action {
	return Action{
		Name:  "link-contract",
		Verb:  "linked to contract " + contractID,
		Patch: model.ThreadPatch{ContractID: model.Ptr(contractID)},
		Audit: "Linked to contract " + contractID + " (bulk)",
	}
}

// ParseAction resolves an action name as typed on the command line. Link
// actions take their target as arg.
func ParseAction(name, arg string, actor model.ActorConfig) (Action, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "read":
		return MarkRead(), nil
	case "unread":
		return MarkUnread(), nil
	case "close":
		return Close(), nil
	case "assign", "assign-to-self":
		if actor.Email == "" {
			return Action{}, fmt.Errorf("assign needs actor.email in the config")
		}
		return AssignToSelf(actor), nil
	case "link-project", "link-contract":
		if arg == "" {
			return Action{}, fmt.Errorf("%s needs a target id", name)
		}
		if name == "link-project" {
			return LinkProject(arg), nil
		}
		return LinkContract(arg), nil
	default:
		return Action{}, fmt.Errorf("unknown bulk action %q", name)
	}
}

func displayName(actor model.ActorConfig) string {
	if actor.Name != "" {
		return actor.Name
	}
	return actor.Email
}
