package model

import "time"

// Summary is a free-form study session note. Summaries live only on this
// device and are never sent to the remote API.
type Summary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
