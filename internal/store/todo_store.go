package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/buildfast/internal/model"
)

const todoColumns = `step_todos.id, step_todos.section_id, step_todos.title, step_todos.description,
	step_todos.is_completed, step_todos."order", step_todos.created_at`

// CreateTodo appends a todo to a section. Order is always max+1 within the
// section (1 for an empty section) and the todo starts incomplete. Callers
// that need the order to be race-free run this inside InTx.
func (s *SQLStore) CreateTodo(ctx context.Context, todo model.StepTodo) (*model.StepTodo, error) {
	if strings.TrimSpace(todo.Title) == "" {
		return nil, fmt.Errorf("todo title must not be empty")
	}
	todo.IsCompleted = false
	todo.CreatedAt = time.Now().UTC()

	var maxOrder int
	err := s.get(ctx, &maxOrder,
		`SELECT COALESCE(MAX("order"), 0) FROM step_todos WHERE section_id = ?`, todo.SectionID)
	if err != nil {
		return nil, fmt.Errorf("getting max todo order: %w", err)
	}
	todo.Order = maxOrder + 1

	id, err := s.insertReturningID(ctx, `
		INSERT INTO step_todos (section_id, title, description, is_completed, "order", created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		todo.SectionID, todo.Title, todo.Description, todo.IsCompleted, todo.Order, todo.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("creating todo: %w", err)
	}
	todo.ID = id
	return &todo, nil
}

// GetTodo retrieves a todo by ID.
func (s *SQLStore) GetTodo(ctx context.Context, id int64) (*model.StepTodo, error) {
	var todo model.StepTodo
	err := s.get(ctx, &todo, "SELECT "+todoColumns+" FROM step_todos WHERE id = ?", id)
	if err != nil {
		return nil, wrapNotFound(err, "todo %d", id)
	}
	return &todo, nil
}

// GetOwnedTodo retrieves a todo whose project belongs to userID.
func (s *SQLStore) GetOwnedTodo(ctx context.Context, userID string, id int64) (*model.StepTodo, error) {
	var todo model.StepTodo
	err := s.get(ctx, &todo, `
		SELECT `+todoColumns+`
		FROM step_todos
		INNER JOIN step_sections ON step_sections.id = step_todos.section_id
		INNER JOIN ideas ON ideas.id = step_sections.idea_id
		INNER JOIN projects ON projects.id = ideas.project_id
		WHERE step_todos.id = ? AND projects.user_id = ?`,
		id, userID,
	)
	if err != nil {
		return nil, wrapNotFound(err, "todo %d", id)
	}
	return &todo, nil
}

// ListTodos returns a section's todos ordered by their order column.
func (s *SQLStore) ListTodos(ctx context.Context, sectionID int64) ([]model.StepTodo, error) {
	todos := []model.StepTodo{}
	err := s.selectAll(ctx, &todos,
		`SELECT `+todoColumns+` FROM step_todos WHERE section_id = ? ORDER BY "order", id`, sectionID)
	if err != nil {
		return nil, fmt.Errorf("querying todos: %w", err)
	}
	return todos, nil
}

// UpdateTodo applies the non-nil fields of patch and returns the updated
// row. An unknown ID reports ErrNotFound and writes nothing.
func (s *SQLStore) UpdateTodo(ctx context.Context, id int64, patch model.TodoPatch) (*model.StepTodo, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, fmt.Errorf("todo title must not be empty")
	}
	if patch.Empty() {
		return s.GetTodo(ctx, id)
	}

	var sets []string
	var args []any
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.IsCompleted != nil {
		sets = append(sets, "is_completed = ?")
		args = append(args, *patch.IsCompleted)
	}
	args = append(args, id)

	rows, err := s.exec(ctx,
		"UPDATE step_todos SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return nil, fmt.Errorf("updating todo %d: %w", id, err)
	}
	if rows == 0 {
		return nil, fmt.Errorf("todo %d: %w", id, ErrNotFound)
	}
	return s.GetTodo(ctx, id)
}

// DeleteTodo removes a todo by ID.
func (s *SQLStore) DeleteTodo(ctx context.Context, id int64) error {
	rows, err := s.exec(ctx, "DELETE FROM step_todos WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting todo %d: %w", id, err)
	}
	if rows == 0 {
		return fmt.Errorf("todo %d: %w", id, ErrNotFound)
	}
	return nil
}

// SetTodosCompleted sets the completion flag on every todo in a section
// and reports how many rows changed.
func (s *SQLStore) SetTodosCompleted(ctx context.Context, sectionID int64, completed bool) (int64, error) {
	rows, err := s.exec(ctx,
		"UPDATE step_todos SET is_completed = ? WHERE section_id = ? AND is_completed <> ?",
		completed, sectionID, completed)
	if err != nil {
		return 0, fmt.Errorf("updating todos of section %d: %w", sectionID, err)
	}
	return rows, nil
}

// TodoCompletion counts a section's todos and how many are complete.
func (s *SQLStore) TodoCompletion(ctx context.Context, sectionID int64) (total, done int, err error) {
	var counts struct {
		Total int `db:"total"`
		Done  int `db:"done"`
	}
	err = s.get(ctx, &counts, `
		SELECT COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN is_completed THEN 1 ELSE 0 END), 0) AS done
		FROM step_todos WHERE section_id = ?`, sectionID)
	if err != nil {
		return 0, 0, fmt.Errorf("counting todos of section %d: %w", sectionID, err)
	}
	return counts.Total, counts.Done, nil
}
