package model

import "time"

// Note kinds.
const (
	NoteKindAudit = "audit"
	NoteKindNote  = "note"
)

// Note is an audit entry or free-form note attached to a thread.
type Note struct {
	ID        string    `json:"id" db:"id"`
	ThreadID  string    `json:"thread_id" db:"thread_id"`
	Kind      string    `json:"kind" db:"kind"`
	Body      string    `json:"body" db:"body"`
	Author    string    `json:"author" db:"author"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
