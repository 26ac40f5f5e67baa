package model

import "time"

type TaskID string

// Priority is one of Low, Medium, High. The canonical casing is capitalized;
// anything else is rejected at validation time, never coerced.
type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

// ParsePriority returns the matching priority for an exact canonical value.
func ParsePriority(s string) (Priority, bool) {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(s), true
	}
	return "", false
}

// Rank orders priorities for display: High sorts before Medium before Low.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	case PriorityLow:
		return 2
	}
	return 3
}

// Task is the persisted entity. Struct field order matches the on-disk key
// order. Due holds a YYYY-MM-DD date, nil when the task has no due date.
type Task struct {
	ID          TaskID    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Priority    Priority  `json:"priority"`
	Due         *string   `json:"due,omitempty"`
	Completed   bool      `json:"completed"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DueDate returns the due date string, empty when unset.
func (t Task) DueDate() string {
	if t.Due == nil {
		return ""
	}
	return *t.Due
}
