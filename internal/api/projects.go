package api

import (
	"net/http"
	"time"

	"github.com/nhle/buildfast/internal/model"
)

type projectInput struct {
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	TechStack       *string `json:"tech_stack"`
	Timeline        *string `json:"timeline"`
	AdditionalNotes *string `json:"additional_notes"`
	TargetDeadline  *string `json:"target_deadline"`
}

// project validates the input. The deadline is zero when absent.
func (in projectInput) project() (model.Project, bool, error) {
	var v validator
	p := model.Project{
		Name:            v.requiredString("name", in.Name, "Project name is required"),
		Description:     deref(in.Description),
		TechStack:       deref(in.TechStack),
		Timeline:        deref(in.Timeline),
		AdditionalNotes: deref(in.AdditionalNotes),
	}
	deadline, ok := v.optionalTime("target_deadline", in.TargetDeadline)
	p.TargetDeadline = deadline
	return p, ok, v.err()
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var in projectInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	p, hasDeadline, err := in.project()
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	if !hasDeadline {
		p.TargetDeadline = time.Now().UTC().Add(model.DefaultDeadlineWindow)
	}
	p.UserID = currentUser(r)

	created, err := s.store.CreateProject(r.Context(), p)
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.store.ListProjects(r.Context(), currentUser(r))
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Project")
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	p, err := s.store.GetProject(r.Context(), currentUser(r), id)
	if err != nil {
		s.writeDomainError(w, r, err, "Project not found")
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleUpdateProject replaces the project's fields. An absent deadline is
// set to the current time.
func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id", "Project")
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	var in projectInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	p, hasDeadline, err := in.project()
	if err != nil {
		s.writeDomainError(w, r, err, "")
		return
	}
	if !hasDeadline {
		p.TargetDeadline = time.Now().UTC()
	}
	p.ID = id
	p.UserID = currentUser(r)

	updated, err := s.store.UpdateProject(r.Context(), p)
	if err != nil {
		s.writeDomainError(w, r, err, "Project not found or you don't have permission to edit it")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}
