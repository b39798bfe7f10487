package api

import (
	"errors"
	"net/http"

	"github.com/nhle/buildfast/internal/apperr"
	"github.com/nhle/buildfast/internal/model"
	"github.com/nhle/buildfast/internal/steps"
)

// todoChange is returned by every todo mutation so clients can update the
// section's checkbox without a refetch.
type todoChange struct {
	Todo             *model.StepTodo `json:"todo"`
	SectionCompleted bool            `json:"sectionCompleted"`
}

func (s *Server) handleListSections(w http.ResponseWriter, r *http.Request) {
	ideaID, err := queryID(r, "ideaId", "Idea")
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	if _, err := s.store.GetIdea(r.Context(), currentUser(r), ideaID); err != nil {
		s.writeDomainError(w, r, err, "Idea not found")
		return
	}
	sections, err := s.store.ListSections(r.Context(), ideaID)
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, sections)
}

func (s *Server) handleCreateSection(w http.ResponseWriter, r *http.Request) {
	var in struct {
		IdeaID      *int64  `json:"ideaId"`
		Title       *string `json:"title"`
		Description *string `json:"description"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	var v validator
	ideaID := v.requiredID("ideaId", in.IdeaID)
	title := v.requiredString("title", in.Title, "Title is required")
	if err := v.err(); err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}

	if _, err := s.store.GetIdea(r.Context(), currentUser(r), ideaID); err != nil {
		s.writeDomainError(w, r, err, "Idea not found")
		return
	}
	section, err := s.store.CreateSection(r.Context(), model.StepSection{
		IdeaID:      ideaID,
		Title:       title,
		Description: deref(in.Description),
	})
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, section)
}

// handleUpdateSection toggles a section; every todo in it follows.
func (s *Server) handleUpdateSection(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Section")
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	var in struct {
		IsCompleted *bool `json:"isCompleted"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	if in.IsCompleted == nil {
		s.writeDomainError(w, r, apperr.Invalid("isCompleted", "invalid_type", "Required"), "")
		return
	}

	if _, err := s.store.GetSection(r.Context(), currentUser(r), id); err != nil {
		s.writeDomainError(w, r, err, "Section not found")
		return
	}
	if err := s.steps.SetSectionCompleted(r.Context(), id, *in.IsCompleted); err != nil {
		s.writeDomainError(w, r, err, "Section not found")
		return
	}
	section, err := s.store.GetSectionByID(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, r, err, "Section not found")
		return
	}
	writeJSON(w, http.StatusOK, section)
}

func (s *Server) handleListTodos(w http.ResponseWriter, r *http.Request) {
	sectionID, err := queryID(r, "sectionId", "Section")
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	if _, err := s.store.GetSection(r.Context(), currentUser(r), sectionID); err != nil {
		s.writeDomainError(w, r, err, "Section not found")
		return
	}
	todos, err := s.steps.ListTodos(r.Context(), sectionID)
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

func (s *Server) handleCreateTodo(w http.ResponseWriter, r *http.Request) {
	var in struct {
		SectionID   *int64  `json:"sectionId"`
		Title       *string `json:"title"`
		Description *string `json:"description"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	var v validator
	sectionID := v.requiredID("sectionId", in.SectionID)
	title := v.requiredString("title", in.Title, "Title is required")
	if err := v.err(); err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}

	if _, err := s.store.GetSection(r.Context(), currentUser(r), sectionID); err != nil {
		s.writeDomainError(w, r, err, "Section not found")
		return
	}
	change, err := s.steps.CreateTodo(r.Context(), sectionID, title, deref(in.Description))
	if err != nil {
		s.writeDomainError(w, r, err, "Section not found")
		return
	}
	writeJSON(w, http.StatusCreated, todoChange{Todo: change.Todo, SectionCompleted: change.SectionCompleted})
}

func (s *Server) handleUpdateTodo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Todo")
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	var patch model.TodoPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	if patch.Empty() {
		s.writeDomainError(w, r, apperr.Validation(apperr.Issue{
			Code: "custom", Path: []any{}, Message: "Nothing to update",
		}), "")
		return
	}
	if patch.Title != nil {
		var v validator
		v.requiredString("title", patch.Title, "Title is required")
		if err := v.err(); err != nil {
			s.writeDomainError(w, r, err, "")
			return
		}
	}

	todo, err := s.store.GetOwnedTodo(r.Context(), currentUser(r), id)
	if err != nil {
		s.writeDomainError(w, r, err, "Todo not found")
		return
	}
	change, err := s.steps.UpdateTodo(r.Context(), todo.SectionID, id, patch)
	if err != nil {
		s.writeDomainError(w, r, todoError(err), "Todo not found")
		return
	}
	writeJSON(w, http.StatusOK, todoChange{Todo: change.Todo, SectionCompleted: change.SectionCompleted})
}

func (s *Server) handleDeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Todo")
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	todo, err := s.store.GetOwnedTodo(r.Context(), currentUser(r), id)
	if err != nil {
		s.writeDomainError(w, r, err, "Todo not found")
		return
	}
	change, err := s.steps.DeleteTodo(r.Context(), todo.SectionID, id)
	if err != nil {
		s.writeDomainError(w, r, err, "Todo not found")
		return
	}
	writeJSON(w, http.StatusOK, todoChange{Todo: change.Todo, SectionCompleted: change.SectionCompleted})
}

func todoError(err error) error {
	if errors.Is(err, steps.ErrEmptyTitle) {
		return apperr.Invalid("title", "too_small", "Title is required")
	}
	return err
}
