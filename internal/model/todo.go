package model

import "time"

// StepTodo is a single actionable task inside a section.
type StepTodo struct {
	ID          int64     `json:"id" db:"id"`
	SectionID   int64     `json:"section_id" db:"section_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	IsCompleted bool      `json:"is_completed" db:"is_completed"`
	Order       int       `json:"order" db:"order"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// TodoPatch carries the fields of a partial todo update. Nil fields are
// left untouched.
type TodoPatch struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	IsCompleted *bool   `json:"isCompleted,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p TodoPatch) Empty() bool {
	return p.Title == nil && p.Description == nil && p.IsCompleted == nil
}
