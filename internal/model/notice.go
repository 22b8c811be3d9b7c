package model

import "time"

// NoticeLevel distinguishes how a notice is presented.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Notice is a short, transient message surfaced to the user.
type Notice struct {
	// Level controls presentation only; no error codes are exposed.
	Level NoticeLevel `json:"level"`

	// Message is the human-readable notice text.
	Message string `json:"message"`

	// CreatedAt is when this notice was generated.
	CreatedAt time.Time `json:"created_at"`
}

// NewNotice builds a notice stamped with the current time.
func NewNotice(level NoticeLevel, msg string) Notice {
	return Notice{Level: level, Message: msg, CreatedAt: time.Now()}
}
