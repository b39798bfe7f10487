package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/buildfast/internal/model"
)

const projectColumns = `id, user_id, name, description, tech_stack, timeline,
	additional_notes, target_deadline, created_at, updated_at`

// CreateProject inserts a new project and returns it with its assigned ID.
func (s *SQLStore) CreateProject(ctx context.Context, project model.Project) (*model.Project, error) {
	if strings.TrimSpace(project.Name) == "" {
		return nil, fmt.Errorf("project name must not be empty")
	}
	now := time.Now().UTC()
	project.CreatedAt = now
	project.UpdatedAt = now
	if project.TargetDeadline.IsZero() {
		project.TargetDeadline = now.Add(model.DefaultDeadlineWindow)
	}
	project.TargetDeadline = project.TargetDeadline.UTC()

	id, err := s.insertReturningID(ctx, `
		INSERT INTO projects (
			user_id, name, description, tech_stack, timeline,
			additional_notes, target_deadline, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		project.UserID, project.Name, project.Description, project.TechStack, project.Timeline,
		project.AdditionalNotes, project.TargetDeadline, project.CreatedAt, project.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating project: %w", err)
	}
	project.ID = id
	return &project, nil
}

// UpdateProject overwrites the editable fields of a project owned by
// project.UserID. A project owned by someone else reports ErrNotFound.
func (s *SQLStore) UpdateProject(ctx context.Context, project model.Project) (*model.Project, error) {
	if strings.TrimSpace(project.Name) == "" {
		return nil, fmt.Errorf("project name must not be empty")
	}

	rows, err := s.exec(ctx, `
		UPDATE projects SET
			name = ?, description = ?, tech_stack = ?, timeline = ?,
			additional_notes = ?, target_deadline = ?, updated_at = ?
		WHERE id = ? AND user_id = ?`,
		project.Name, project.Description, project.TechStack, project.Timeline,
		project.AdditionalNotes, project.TargetDeadline.UTC(), time.Now().UTC(),
		project.ID, project.UserID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating project %d: %w", project.ID, err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("project %d: %w", project.ID, ErrNotFound)
	}
	return s.GetProject(ctx, project.UserID, project.ID)
}

// GetProject retrieves a project by ID, scoped to its owner.
func (s *SQLStore) GetProject(ctx context.Context, userID string, id int64) (*model.Project, error) {
	var project model.Project
	err := s.get(ctx, &project,
		"SELECT "+projectColumns+" FROM projects WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return nil, wrapNotFound(err, "project %d", id)
	}
	return &project, nil
}

// ListProjects returns the user's projects, newest first.
func (s *SQLStore) ListProjects(ctx context.Context, userID string) ([]model.Project, error) {
	projects := []model.Project{}
	err := s.selectAll(ctx, &projects,
		"SELECT "+projectColumns+" FROM projects WHERE user_id = ? ORDER BY created_at DESC, id DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	return projects, nil
}
