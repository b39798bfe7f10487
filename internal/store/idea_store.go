package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/buildfast/internal/model"
)

const ideaColumns = "ideas.id, ideas.project_id, ideas.title, ideas.description, ideas.content, ideas.is_final, ideas.created_at"

// CreateIdea inserts a new idea under an existing project.
func (s *SQLStore) CreateIdea(ctx context.Context, idea model.Idea) (*model.Idea, error) {
	if strings.TrimSpace(idea.Title) == "" {
		return nil, fmt.Errorf("idea title must not be empty")
	}
	idea.CreatedAt = time.Now().UTC()

	id, err := s.insertReturningID(ctx, `
		INSERT INTO ideas (project_id, title, description, content, is_final, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		idea.ProjectID, idea.Title, idea.Description, idea.Content, idea.IsFinal, idea.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating idea: %w", err)
	}
	idea.ID = id
	return &idea, nil
}

// UpdateIdea overwrites an idea's text fields and final flag.
func (s *SQLStore) UpdateIdea(ctx context.Context, idea model.Idea) (*model.Idea, error) {
	if strings.TrimSpace(idea.Title) == "" {
		return nil, fmt.Errorf("idea title must not be empty")
	}

	rows, err := s.exec(ctx, `
		UPDATE ideas SET title = ?, description = ?, content = ?, is_final = ?
		WHERE id = ?`,
		idea.Title, idea.Description, idea.Content, idea.IsFinal, idea.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("updating idea %d: %w", idea.ID, err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("idea %d: %w", idea.ID, ErrNotFound)
	}
	return &idea, nil
}

// GetIdea retrieves an idea whose project belongs to userID.
func (s *SQLStore) GetIdea(ctx context.Context, userID string, id int64) (*model.Idea, error) {
	var idea model.Idea
	err := s.get(ctx, &idea, `
		SELECT `+ideaColumns+`
		FROM ideas
		INNER JOIN projects ON projects.id = ideas.project_id
		WHERE ideas.id = ? AND projects.user_id = ?`,
		id, userID,
	)
	if err != nil {
		return nil, wrapNotFound(err, "idea %d", id)
	}
	return &idea, nil
}

// ListIdeas returns a project's ideas in creation order.
func (s *SQLStore) ListIdeas(ctx context.Context, projectID int64) ([]model.Idea, error) {
	ideas := []model.Idea{}
	err := s.selectAll(ctx, &ideas,
		"SELECT "+ideaColumns+" FROM ideas WHERE project_id = ? ORDER BY created_at, id", projectID)
	if err != nil {
		return nil, fmt.Errorf("querying ideas: %w", err)
	}
	return ideas, nil
}
