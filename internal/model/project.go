package model

import "time"

// DefaultDeadlineWindow is how far out a new project's deadline lands when
// the caller does not supply one.
const DefaultDeadlineWindow = 7 * 24 * time.Hour

// Project is a user-owned container for ideas.
type Project struct {
	ID              int64     `json:"id" db:"id"`
	UserID          string    `json:"user_id" db:"user_id"`
	Name            string    `json:"name" db:"name"`
	Description     string    `json:"description" db:"description"`
	TechStack       string    `json:"tech_stack" db:"tech_stack"`
	Timeline        string    `json:"timeline" db:"timeline"`
	AdditionalNotes string    `json:"additional_notes" db:"additional_notes"`
	TargetDeadline  time.Time `json:"target_deadline" db:"target_deadline"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}
