package domain

import (
	"fmt"
	"time"
	"unicode/utf8"
)

// Fixed lifecycle buckets a task moves through on the board.
const (
	CategoryToDo       = "To-Do"
	CategoryInProgress = "In Progress"
	CategoryDone       = "Done"
)

// Categories lists the board columns in display order.
var Categories = []string{CategoryToDo, CategoryInProgress, CategoryDone}

const (
	maxTitleLen       = 50
	maxDescriptionLen = 200
)

// Task represents a single board item.
type Task struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Category    string    `json:"category"`
	OwnerEmail  string    `json:"userEmail"`
	OwnerName   string    `json:"userName,omitempty"`
	OwnerPhoto  string    `json:"userPhoto,omitempty"`
	Order       int       `json:"order"`
	CreatedAt   time.Time `json:"timestamp"`
}

// TaskPatch carries a partial update; nil fields are left untouched.
type TaskPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Category    *string `json:"category,omitempty"`
	Order       *int    `json:"order,omitempty"`
}

// OrderUpdate reassigns a single task's position within its column.
type OrderUpdate struct {
	TaskID string `json:"taskId"`
	Order  int    `json:"order"`
}

// ValidationError reports a request field that failed validation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ErrMissingFields is returned when a required field is absent entirely.
var ErrMissingFields = ValidationError{Field: "request", Reason: "missing required fields"}

// ValidCategory reports whether c is one of the three board columns.
func ValidCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Validate checks the fields a client supplies on creation. ID and
// CreatedAt are store-assigned and ignored here.
func (t Task) Validate() error {
	if t.Title == "" || t.Category == "" || t.OwnerEmail == "" {
		return ErrMissingFields
	}
	if utf8.RuneCountInString(t.Title) > maxTitleLen {
		return ValidationError{Field: "title", Reason: fmt.Sprintf("longer than %d characters", maxTitleLen)}
	}
	if utf8.RuneCountInString(t.Description) > maxDescriptionLen {
		return ValidationError{Field: "description", Reason: fmt.Sprintf("longer than %d characters", maxDescriptionLen)}
	}
	if !ValidCategory(t.Category) {
		return ValidationError{Field: "category", Reason: "unknown category"}
	}
	if t.Order < 0 {
		return ValidationError{Field: "order", Reason: "must not be negative"}
	}
	return nil
}

// Validate checks the supplied fields of a partial update.
func (p TaskPatch) Validate() error {
	if p.Title == nil && p.Description == nil && p.Category == nil && p.Order == nil {
		return ValidationError{Field: "request", Reason: "no fields to update"}
	}
	if p.Title != nil {
		if *p.Title == "" {
			return ValidationError{Field: "title", Reason: "must not be empty"}
		}
		if utf8.RuneCountInString(*p.Title) > maxTitleLen {
			return ValidationError{Field: "title", Reason: fmt.Sprintf("longer than %d characters", maxTitleLen)}
		}
	}
	if p.Description != nil && utf8.RuneCountInString(*p.Description) > maxDescriptionLen {
		return ValidationError{Field: "description", Reason: fmt.Sprintf("longer than %d characters", maxDescriptionLen)}
	}
	if p.Category != nil && !ValidCategory(*p.Category) {
		return ValidationError{Field: "category", Reason: "unknown category"}
	}
	if p.Order != nil && *p.Order < 0 {
		return ValidationError{Field: "order", Reason: "must not be negative"}
	}
	return nil
}
