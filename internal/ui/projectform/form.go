// Package projectform collects project fields interactively.
package projectform

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/nhle/buildfast/internal/client"
	"github.com/nhle/buildfast/internal/model"
)

const dateLayout = "2006-01-02"

// ErrCancelled is returned when the user aborts the form.
var ErrCancelled = errors.New("cancelled")

// Values are the form bindings. Deadline is a date or an RFC 3339
// timestamp; empty lets the server pick the default.
type Values struct {
	Name            string
	Description     string
	TechStack       string
	Timeline        string
	AdditionalNotes string
	Deadline        string
}

// FromProject pre-fills the form for editing.
func FromProject(p model.Project) *Values {
	v := &Values{
		Name:            p.Name,
		Description:     p.Description,
		TechStack:       p.TechStack,
		Timeline:        p.Timeline,
		AdditionalNotes: p.AdditionalNotes,
	}
	if !p.TargetDeadline.IsZero() {
		v.Deadline = p.TargetDeadline.Format(dateLayout)
	}
	return v
}

// Form builds the huh form bound to v.
func (v *Values) Form(title string) *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().Title(title),
			huh.NewInput().
				Title("Name").
				Placeholder("Project name").
				Value(&v.Name).
				Validate(validateName),
			huh.NewText().
				Title("Description").
				Placeholder("What are you building?").
				Value(&v.Description),
			huh.NewInput().
				Title("Tech stack").
				Placeholder("Go, Postgres").
				Value(&v.TechStack),
		),
		huh.NewGroup(
			huh.NewInput().
				Title("Timeline").
				Placeholder("Two weekends").
				Value(&v.Timeline),
			huh.NewText().
				Title("Additional notes").
				Value(&v.AdditionalNotes),
			huh.NewInput().
				Title("Target deadline").
				Placeholder(dateLayout).
				Value(&v.Deadline).
				Validate(validateDeadline),
		),
	)
}

// Run shows the form in the terminal.
func (v *Values) Run(title string) error {
	if err := v.Form(title).Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			return ErrCancelled
		}
		return err
	}
	return nil
}

// Input converts the bindings into an API request body.
func (v *Values) Input() (client.ProjectInput, error) {
	in := client.ProjectInput{
		Name:            strings.TrimSpace(v.Name),
		Description:     v.Description,
		TechStack:       v.TechStack,
		Timeline:        v.Timeline,
		AdditionalNotes: v.AdditionalNotes,
	}
	if err := validateName(in.Name); err != nil {
		return in, err
	}
	deadline, err := parseDeadline(v.Deadline)
	if err != nil {
		return in, err
	}
	if !deadline.IsZero() {
		in.TargetDeadline = deadline.Format(time.RFC3339)
	}
	return in, nil
}

func validateName(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("name is required")
	}
	return nil
}

func validateDeadline(s string) error {
	_, err := parseDeadline(s)
	return err
}

// parseDeadline accepts a date (end of that day, UTC) or RFC 3339.
func parseDeadline(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("deadline must look like %s", dateLayout)
	}
	return t.Add(24*time.Hour - time.Second), nil
}
