package api

import (
	"net/http"
	"strings"

	"github.com/nhle/buildfast/internal/model"
)

func (s *Server) handleListIdeas(w http.ResponseWriter, r *http.Request) {
	projectID, err := queryID(r, "projectId", "Project")
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	if _, err := s.store.GetProject(r.Context(), currentUser(r), projectID); err != nil {
		s.writeDomainError(w, r, err, "Project not found")
		return
	}
	ideas, err := s.store.ListIdeas(r.Context(), projectID)
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, ideas)
}

func (s *Server) handleCreateIdea(w http.ResponseWriter, r *http.Request) {
	var in struct {
		ProjectID   *int64  `json:"projectId"`
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Content     *string `json:"content"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	var v validator
	projectID := v.requiredID("projectId", in.ProjectID)
	title := v.requiredString("title", in.Title, "Title is required")
	if err := v.err(); err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}

	if _, err := s.store.GetProject(r.Context(), currentUser(r), projectID); err != nil {
		s.writeDomainError(w, r, err, "Project not found")
		return
	}
	idea, err := s.store.CreateIdea(r.Context(), model.Idea{
		ProjectID:   projectID,
		Title:       title,
		Description: deref(in.Description),
		Content:     deref(in.Content),
	})
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, idea)
}

func (s *Server) handleUpdateIdea(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Idea")
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	var in struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Content     *string `json:"content"`
		IsFinal     *bool   `json:"isFinal"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}

	idea, err := s.store.GetIdea(r.Context(), currentUser(r), id)
	if err != nil {
		s.writeDomainError(w, r, err, "Idea not found")
		return
	}

	var v validator
	if in.Title != nil {
		idea.Title = v.requiredString("title", in.Title, "Title is required")
	}
	if err := v.err(); err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	if in.Description != nil {
		idea.Description = strings.TrimSpace(*in.Description)
	}
	if in.Content != nil {
		idea.Content = *in.Content
	}
	if in.IsFinal != nil {
		idea.IsFinal = *in.IsFinal
	}

	updated, err := s.store.UpdateIdea(r.Context(), *idea)
	if err != nil {
		s.writeDomainError(w, r, err, "Idea not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
