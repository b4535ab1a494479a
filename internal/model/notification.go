package model

import "time"

// Notification levels.
const (
	LevelSuccess = "success"
	LevelError   = "error"
)

// Notification is a short message surfaced to the user about the outcome
// of a store action (the equivalent of a toast).
type Notification struct {
	// ID is the unique identifier for this notification.
	ID string `json:"id"`

	// Level is LevelSuccess or LevelError.
	Level string `json:"level"`

	// Title is a short heading such as "Task added".
	Title string `json:"title"`

	// Message is the human-readable detail, including the underlying
	// error text for failures.
	Message string `json:"message"`

	// CreatedAt is when this notification was generated.
	CreatedAt time.Time `json:"created_at"`
}

// IsError reports whether n describes a failed action.
func (n Notification) IsError() bool {
	return n.Level == LevelError
}
