package model

import (
	"strings"
	"time"
)

// UserStatusClosed marks a thread as manually closed.
const UserStatusClosed = "closed"

// Next action status constants. An empty value means the status is unset.
const (
	NextActionNeedsAction = "needs_action"
	NextActionWaiting     = "waiting"
	NextActionFYI         = "fyi"
)

// Stored direction labels.
const (
	DirectionSent     = "sent"
	DirectionReceived = "received"
	DirectionUnknown  = "unknown"
)

// Thread is a conversation record as held by the record store.
// Timestamps are kept as the raw strings the store returns; use Millis to
// read them.
type Thread struct {
	ID      string `json:"id" db:"id"`
	Subject string `json:"subject" db:"subject"`
	Snippet string `json:"snippet" db:"snippet"`

	// LastMessageDate is the timestamp of the most recent message in
	// either direction.
	LastMessageDate       string `json:"last_message_date" db:"last_message_date"`
	LastInternalMessageAt string `json:"lastInternalMessageAt" db:"last_internal_message_at"`
	LastExternalMessageAt string `json:"lastExternalMessageAt" db:"last_external_message_at"`

	FromAddress     string   `json:"from_address" db:"from_address"`
	ToAddresses     []string `json:"to_addresses" db:"-"`
	CounterpartName string   `json:"counterpart_name" db:"counterpart_name"`

	// LastDirection is a previously stored direction label, used only as
	// the final fallback when nothing else decides.
	LastDirection string `json:"last_direction" db:"last_direction"`

	UserStatus       string `json:"userStatus" db:"user_status"`
	NextActionStatus string `json:"next_action_status" db:"next_action_status"`

	AssignedTo     string `json:"assigned_to" db:"assigned_to"`
	AssignedToName string `json:"assigned_to_name" db:"assigned_to_name"`

	PinnedAt        string `json:"pinned_at" db:"pinned_at"`
	IsRead          bool   `json:"is_read" db:"is_read"`
	IsReadUpdatedAt string `json:"is_read_updated_at" db:"is_read_updated_at"`

	ProjectID  string `json:"project_id" db:"project_id"`
	ContractID string `json:"contract_id" db:"contract_id"`

	MessageCount int  `json:"message_count" db:"message_count"`
	IsDeleted    bool `json:"is_deleted" db:"is_deleted"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// IsClosed reports whether the thread has been manually closed.
func (t Thread) IsClosed() bool { return t.UserStatus == UserStatusClosed }

// IsPinned reports whether the thread carries a pin timestamp.
func (t Thread) IsPinned() bool { return strings.TrimSpace(t.PinnedAt) != "" }

// IsLinked reports whether the thread is attached to a project or contract.
func (t Thread) IsLinked() bool { return t.ProjectID != "" || t.ContractID != "" }

// ThreadPatch is a partial update for a thread. Nil fields are left as is.
type ThreadPatch struct {
	UserStatus       *string
	NextActionStatus *string
	AssignedTo       *string
	AssignedToName   *string
	PinnedAt         *string
	IsRead           *bool
	ProjectID        *string
	ContractID       *string
	IsDeleted        *bool
}

// Empty reports whether the patch changes nothing.
func (p ThreadPatch) Empty() bool {
	return p.UserStatus == nil &&
		p.NextActionStatus == nil &&
		p.AssignedTo == nil &&
		p.AssignedToName == nil &&
		p.PinnedAt == nil &&
		p.IsRead == nil &&
		p.ProjectID == nil &&
		p.ContractID == nil &&
		p.IsDeleted == nil
}

// Ptr returns a pointer to v. It keeps patch literals short.
func Ptr[T any](v T) *T { return &v }

// NormalizeAddress lowercases and trims an email address.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// timestampLayouts are the formats accepted by Millis, tried in order.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Millis parses a stored timestamp into Unix milliseconds. Missing or
// malformed input yields 0; it never fails.
func Millis(raw string) int64 {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UnixMilli()
		}
	}
	return 0
}

// FormatTimestamp renders t in the canonical stored form.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
