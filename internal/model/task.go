package model

import (
	"fmt"
	"strings"
	"time"
)

// Status is the workflow state of a task.
type Status string

// The three statuses a task can be in. Board columns follow this order.
const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// Statuses lists every valid status in board order.
var Statuses = []Status{StatusTodo, StatusInProgress, StatusDone}

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Label returns the human-readable column title for the status.
func (s Status) Label() string {
	switch s {
	case StatusTodo:
		return "To Do"
	case StatusInProgress:
		return "In Progress"
	case StatusDone:
		return "Done"
	default:
		return string(s)
	}
}

// Next returns the status after s in board order, wrapping around.
func (s Status) Next() Status {
	for i, st := range Statuses {
		if st == s {
			return Statuses[(i+1)%len(Statuses)]
		}
	}
	return StatusTodo
}

// ParseStatus converts user input such as "in-progress" or "Done" into a Status.
func ParseStatus(raw string) (Status, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	st := Status(normalized)
	if !st.Valid() {
		return "", fmt.Errorf("invalid status %q: must be one of todo, in_progress, done", raw)
	}
	return st, nil
}

// ProvisionalPrefix marks ids generated locally for tasks the server
// has not yet confirmed.
const ProvisionalPrefix = "tmp-"

// IsProvisionalID reports whether id was generated locally.
func IsProvisionalID(id string) bool {
	return strings.HasPrefix(id, ProvisionalPrefix)
}

// Task is a single tracked work item as returned by the remote API.
type Task struct {
	ID           string     `json:"id" db:"id"`
	Title        string     `json:"title" db:"title"`
	Description  string     `json:"description,omitempty" db:"description"`
	Status       Status     `json:"status" db:"status"`
	TotalMinutes int        `json:"total_minutes" db:"total_minutes"`
	UserID       string     `json:"user_id" db:"user_id"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// Clone returns a deep copy of t. Snapshots taken for rollback must not
// share the UpdatedAt pointer with the live entry.
func (t Task) Clone() Task {
	c := t
	if t.UpdatedAt != nil {
		u := *t.UpdatedAt
		c.UpdatedAt = &u
	}
	return c
}

// IsProvisional reports whether the task only exists locally.
func (t Task) IsProvisional() bool {
	return IsProvisionalID(t.ID)
}

// TaskPatch holds the editable fields of a task. Nil fields are left
// untouched when the patch is applied.
type TaskPatch struct {
	Title       *string
	Description *string
}

// Apply returns a copy of t with the patch fields applied.
func (p TaskPatch) Apply(t Task) Task {
	out := t.Clone()
	if p.Title != nil {
		out.Title = *p.Title
	}
	if p.Description != nil {
		out.Description = *p.Description
	}
	return out
}

// IsEmpty reports whether the patch changes nothing.
func (p TaskPatch) IsEmpty() bool {
	return p.Title == nil && p.Description == nil
}
