// Package models defines data structures shared by the campusdesk services.
package models

import "time"

// Task is a single todo item owned by one user.
type Task struct {
	ID        string    `json:"_id"`
	OwnerID   string    `json:"user"`
	Text      string    `json:"text"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// TaskInput holds the fields accepted when creating a task.
// Text is a pointer so a missing field can be reported as such.
type TaskInput struct {
	Text      *string `json:"text"`
	Completed *bool   `json:"completed,omitempty"`
}

// TaskPatch holds the fields of a partial update.
// A nil field is left unchanged; a non-nil field is applied, even when it holds
// the zero value (empty string, false).
type TaskPatch struct {
	Text      *string `json:"text,omitempty"`
	Completed *bool   `json:"completed,omitempty"`
}

// IsEmpty reports whether the patch carries no fields.
func (p TaskPatch) IsEmpty() bool {
	return p.Text == nil && p.Completed == nil
}
