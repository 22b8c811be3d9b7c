package store

import (
	"context"
	"errors"

	"github.com/nhle/inbox-triage/internal/model"
)

// ErrThreadNotFound is returned when a thread ID does not exist.
var ErrThreadNotFound = errors.New("thread not found")

// ThreadQuery selects one page of threads visible to an actor.
type ThreadQuery struct {
	// Actor is the normalized address of the current user.
	Actor string

	// AllMailboxes makes every thread visible to the actor.
	AllMailboxes bool

	// Cursor continues from a previous page; the zero value starts at
	// the newest thread.
	Cursor Cursor

	Limit          int
	IncludeDeleted bool
}

// Cursor is a "before timestamp" position. AfterID breaks ties between
// threads sharing the same last message instant.
type Cursor struct {
	BeforeMS int64
	AfterID  string
}

// IsZero reports whether the cursor points at the first page.
func (c Cursor) IsZero() bool { return c.BeforeMS == 0 && c.AfterID == "" }

// ThreadPage holds one page of threads, newest first.
type ThreadPage struct {
	Threads []model.Thread
	HasMore bool
	Next    Cursor
}

// ThreadSource returns bounded pages of threads.
type ThreadSource interface {
	ListThreads(ctx context.Context, q ThreadQuery) (*ThreadPage, error)
}

// MutationSink applies partial updates to threads and records notes.
type MutationSink interface {
	UpdateThread(ctx context.Context, id string, patch model.ThreadPatch) error
	CreateNote(ctx context.Context, note model.Note) error
}

// Store is the full record store used by the application.
type Store interface {
	ThreadSource
	MutationSink

	UpsertThreads(ctx context.Context, threads []model.Thread) error
	GetThread(ctx context.Context, id string) (*model.Thread, error)
	GetNotes(ctx context.Context, threadID string) ([]model.Note, error)
	Close() error
}
