package model

import "time"

// StepSection is a titled subdivision of an idea's implementation plan.
type StepSection struct {
	ID          int64     `json:"id" db:"id"`
	IdeaID      int64     `json:"idea_id" db:"idea_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Order       int       `json:"order" db:"order"`
	IsCompleted bool      `json:"is_completed" db:"is_completed"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// SectionContext is a section joined with the idea it belongs to.
type SectionContext struct {
	Section StepSection `db:"section"`
	Idea    Idea        `db:"idea"`
}
