// Package steps owns every mutation of step todos and section completion.
// Each mutation runs under a per-section lock inside one transaction and
// ends by recomputing the section's completion flag, so a section is
// complete exactly when all of its todos are.
package steps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nhle/buildfast/internal/model"
	"github.com/nhle/buildfast/internal/store"
)

// ErrEmptyTitle is returned when a todo would end up without a title.
var ErrEmptyTitle = errors.New("title is required")

// Change describes the outcome of a todo mutation.
type Change struct {
	Todo *model.StepTodo

	// SectionCompleted is the section's flag after recompute.
	SectionCompleted bool
}

// Service serialises todo mutations per section.
type Service struct {
	store store.Store
	locks *keyedMutex
}

// NewService creates a Service over st.
func NewService(st store.Store) *Service {
	return &Service{store: st, locks: newKeyedMutex()}
}

// ListTodos returns the section's todos in display order.
func (s *Service) ListTodos(ctx context.Context, sectionID int64) ([]model.StepTodo, error) {
	return s.store.ListTodos(ctx, sectionID)
}

// CreateTodo appends a todo to the section.
func (s *Service) CreateTodo(ctx context.Context, sectionID int64, title, description string) (*Change, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrEmptyTitle
	}

	var change Change
	err := s.mutate(ctx, sectionID, func(tx store.Store) error {
		if _, err := tx.GetSectionByID(ctx, sectionID); err != nil {
			return err
		}
		todo, err := tx.CreateTodo(ctx, model.StepTodo{
			SectionID:   sectionID,
			Title:       strings.TrimSpace(title),
			Description: strings.TrimSpace(description),
		})
		if err != nil {
			return err
		}
		change.Todo = todo
		change.SectionCompleted, err = recompute(ctx, tx, sectionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &change, nil
}

// UpdateTodo applies patch to a todo of the section. A todo that does not
// exist, or lives in another section, reports store.ErrNotFound.
func (s *Service) UpdateTodo(ctx context.Context, sectionID, todoID int64, patch model.TodoPatch) (*Change, error) {
	if patch.Title != nil && strings.TrimSpace(*patch.Title) == "" {
		return nil, ErrEmptyTitle
	}

	var change Change
	err := s.mutate(ctx, sectionID, func(tx store.Store) error {
		if _, err := belongsTo(ctx, tx, sectionID, todoID); err != nil {
			return err
		}
		todo, err := tx.UpdateTodo(ctx, todoID, patch)
		if err != nil {
			return err
		}
		change.Todo = todo
		change.SectionCompleted, err = recompute(ctx, tx, sectionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &change, nil
}

// DeleteTodo removes a todo of the section. Change.Todo holds the row as it
// was before deletion.
func (s *Service) DeleteTodo(ctx context.Context, sectionID, todoID int64) (*Change, error) {
	var change Change
	err := s.mutate(ctx, sectionID, func(tx store.Store) error {
		todo, err := belongsTo(ctx, tx, sectionID, todoID)
		if err != nil {
			return err
		}
		if err := tx.DeleteTodo(ctx, todoID); err != nil {
			return err
		}
		change.Todo = todo
		change.SectionCompleted, err = recompute(ctx, tx, sectionID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &change, nil
}

// SetSectionCompleted sets the section's flag and pushes the same value
// onto every todo in it.
func (s *Service) SetSectionCompleted(ctx context.Context, sectionID int64, completed bool) error {
	return s.mutate(ctx, sectionID, func(tx store.Store) error {
		if err := tx.SetSectionCompleted(ctx, sectionID, completed); err != nil {
			return err
		}
		if _, err := tx.SetTodosCompleted(ctx, sectionID, completed); err != nil {
			return err
		}
		return nil
	})
}

func (s *Service) mutate(ctx context.Context, sectionID int64, fn func(tx store.Store) error) error {
	unlock := s.locks.Lock(sectionID)
	defer unlock()

	return s.store.InTx(ctx, fn)
}

func belongsTo(ctx context.Context, tx store.Store, sectionID, todoID int64) (*model.StepTodo, error) {
	todo, err := tx.GetTodo(ctx, todoID)
	if err != nil {
		return nil, err
	}
	if todo.SectionID != sectionID {
		return nil, fmt.Errorf("todo %d in section %d: %w", todoID, sectionID, store.ErrNotFound)
	}
	return todo, nil
}

// recompute derives the section's completion flag from its todos. An
// empty section keeps whatever flag it has.
func recompute(ctx context.Context, tx store.Store, sectionID int64) (bool, error) {
	total, done, err := tx.TodoCompletion(ctx, sectionID)
	if err != nil {
		return false, err
	}
	if total == 0 {
		section, err := tx.GetSectionByID(ctx, sectionID)
		if err != nil {
			return false, err
		}
		return section.IsCompleted, nil
	}

	completed := done == total
	if err := tx.SetSectionCompleted(ctx, sectionID, completed); err != nil {
		return false, err
	}
	return completed, nil
}
