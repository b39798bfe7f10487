package model

import "time"

// Idea is one candidate direction for a project. Several ideas may be
// marked final; nothing enforces exclusivity.
type Idea struct {
	ID          int64     `json:"id" db:"id"`
	ProjectID   int64     `json:"project_id" db:"project_id"`
	Title       string    `json:"title" db:"title"`
	Description string    `json:"description" db:"description"`
	Content     string    `json:"content" db:"content"`
	IsFinal     bool      `json:"is_final" db:"is_final"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
