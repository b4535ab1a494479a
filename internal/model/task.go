package model

import (
	"strings"
	"time"
)

// Priority levels for study tasks (lower number = higher priority).
const (
	PriorityHigh   = 1
	PriorityMedium = 2
	PriorityLow    = 3
)

// ProvisionalPrefix marks identifiers generated locally before the server
// has confirmed a task.
const ProvisionalPrefix = "tmp-"

// Task is a single study item owned by the task store.
type Task struct {
	// ID is the server-assigned identifier, or a provisional
	// "tmp-<uuid>" value until the first successful create.
	ID string `json:"id"`

	// Title is the non-empty text shown to the user.
	Title string `json:"title"`

	Completed bool     `json:"completed"`
	Category  Category `json:"category"`

	// Description is optional free text.
	Description string `json:"description"`

	// Priority defaults to PriorityHigh, matching the remote API default.
	Priority int      `json:"priority"`
	Tags     []string `json:"tags"`

	// Progress is a 0-100 percentage. The range is not enforced locally.
	Progress int `json:"progress"`

	// CreatedAt and UpdatedAt become server-authoritative once assigned.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	DueDate *time.Time `json:"due_date,omitempty"`
}

// NewTask creates a task with defaults and the given identifier.
func NewTask(id, title string, category Category, now time.Time) Task {
	return Task{
		ID:        id,
		Title:     title,
		Category:  category,
		Priority:  PriorityHigh,
		Tags:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Provisional reports whether the task still carries a locally generated id.
func (t *Task) Provisional() bool {
	return strings.HasPrefix(t.ID, ProvisionalPrefix)
}

// Clone returns a deep copy so callers cannot alias store-owned slices.
func (t Task) Clone() Task {
	c := t
	if t.Tags != nil {
		c.Tags = make([]string, len(t.Tags))
		copy(c.Tags, t.Tags)
	}
	if t.DueDate != nil {
		due := *t.DueDate
		c.DueDate = &due
	}
	return c
}

// TaskDraft is the body sent when creating a task remotely.
type TaskDraft struct {
	Title       string   `json:"title"`
	Category    Category `json:"category"`
	Description string   `json:"description"`
	Priority    int      `json:"priority"`
	Tags        []string `json:"tags"`
	Progress    int      `json:"progress"`
}

// DraftFrom builds the create payload for t.
func DraftFrom(t Task) TaskDraft {
	tags := t.Tags
	if tags == nil {
		tags = []string{}
	}
	return TaskDraft{
		Title:       t.Title,
		Category:    t.Category,
		Description: t.Description,
		Priority:    t.Priority,
		Tags:        tags,
		Progress:    t.Progress,
	}
}

// TaskPatch carries the fields of a partial update. Nil fields are omitted.
type TaskPatch struct {
	Title     *string `json:"title,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}
