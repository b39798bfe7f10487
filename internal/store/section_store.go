package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/buildfast/internal/model"
)

const sectionColumns = `id, idea_id, title, description, "order", is_completed, created_at`

// CreateSection appends a section to an idea. Order defaults to max+1
// within the idea.
func (s *SQLStore) CreateSection(ctx context.Context, section model.StepSection) (*model.StepSection, error) {
	if strings.TrimSpace(section.Title) == "" {
		return nil, fmt.Errorf("section title must not be empty")
	}
	section.CreatedAt = time.Now().UTC()

	if section.Order == 0 {
		var maxOrder int
		err := s.get(ctx, &maxOrder,
			`SELECT COALESCE(MAX("order"), 0) FROM step_sections WHERE idea_id = ?`, section.IdeaID)
		if err != nil {
			return nil, fmt.Errorf("getting max section order: %w", err)
		}
		section.Order = maxOrder + 1
	}

	id, err := s.insertReturningID(ctx, `
		INSERT INTO step_sections (idea_id, title, description, "order", is_completed, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		section.IdeaID, section.Title, section.Description, section.Order,
		section.IsCompleted, section.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating section: %w", err)
	}
	section.ID = id
	return &section, nil
}

// GetSection loads a section together with its idea, provided the idea's
// project belongs to userID.
func (s *SQLStore) GetSection(ctx context.Context, userID string, id int64) (*model.SectionContext, error) {
	var sc model.SectionContext
	err := s.get(ctx, &sc, `
		SELECT
			step_sections.id           AS "section.id",
			step_sections.idea_id      AS "section.idea_id",
			step_sections.title        AS "section.title",
			step_sections.description  AS "section.description",
			step_sections."order"      AS "section.order",
			step_sections.is_completed AS "section.is_completed",
			step_sections.created_at   AS "section.created_at",
			ideas.id          AS "idea.id",
			ideas.project_id  AS "idea.project_id",
			ideas.title       AS "idea.title",
			ideas.description AS "idea.description",
			ideas.content     AS "idea.content",
			ideas.is_final    AS "idea.is_final",
			ideas.created_at  AS "idea.created_at"
		FROM step_sections
		INNER JOIN ideas ON ideas.id = step_sections.idea_id
		INNER JOIN projects ON projects.id = ideas.project_id
		WHERE step_sections.id = ? AND projects.user_id = ?`,
		id, userID,
	)
	if err != nil {
		return nil, wrapNotFound(err, "section %d", id)
	}
	return &sc, nil
}

// GetSectionByID retrieves a section without an ownership check.
func (s *SQLStore) GetSectionByID(ctx context.Context, id int64) (*model.StepSection, error) {
	var section model.StepSection
	err := s.get(ctx, &section, "SELECT "+sectionColumns+" FROM step_sections WHERE id = ?", id)
	if err != nil {
		return nil, wrapNotFound(err, "section %d", id)
	}
	return &section, nil
}

// ListSections returns an idea's sections in display order.
func (s *SQLStore) ListSections(ctx context.Context, ideaID int64) ([]model.StepSection, error) {
	sections := []model.StepSection{}
	err := s.selectAll(ctx, &sections,
		`SELECT `+sectionColumns+` FROM step_sections WHERE idea_id = ? ORDER BY "order", id`, ideaID)
	if err != nil {
		return nil, fmt.Errorf("querying sections: %w", err)
	}
	return sections, nil
}

// SetSectionCompleted writes the section's completion flag.
func (s *SQLStore) SetSectionCompleted(ctx context.Context, id int64, completed bool) error {
	rows, err := s.exec(ctx, "UPDATE step_sections SET is_completed = ? WHERE id = ?", completed, id)
	if err != nil {
		return fmt.Errorf("updating section %d: %w", id, err)
	}
	if rows == 0 {
		return fmt.Errorf("section %d: %w", id, ErrNotFound)
	}
	return nil
}
